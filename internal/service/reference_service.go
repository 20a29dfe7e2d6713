package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

type referenceRepository[T any] interface {
	List(ctx context.Context, filter models.ReferenceFilter) ([]T, int, error)
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*T, error)
	Create(ctx context.Context, label string, actor *string) (int64, error)
	Update(ctx context.Context, id int64, label string, actor *string) error
	SoftDelete(ctx context.Context, id int64, actor *string) error
	Restore(ctx context.Context, id int64, actor *string) error
}

// ReferenceConfig describes one lookup resource.
type ReferenceConfig struct {
	// Resource is the singular name used in error messages.
	Resource string
	// MaxLength bounds the label length.
	MaxLength int
}

// ReferenceService implements CRUD over a lookup table such as profiles or subjects.
type ReferenceService[T any] struct {
	repo      referenceRepository[T]
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReferenceConfig
}

// NewReferenceService constructs a reference service.
func NewReferenceService[T any](repo referenceRepository[T], validate *validator.Validate, logger *zap.Logger, cfg ReferenceConfig) *ReferenceService[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 100
	}
	if cfg.Resource == "" {
		cfg.Resource = "record"
	}
	return &ReferenceService[T]{repo: repo, validator: validate, logger: logger, cfg: cfg}
}

// List returns a page of rows.
func (s *ReferenceService[T]) List(ctx context.Context, filter models.ReferenceFilter) ([]T, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list %ss", s.cfg.Resource))
	}
	if items == nil {
		items = []T{}
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a row by id.
func (s *ReferenceService[T]) Get(ctx context.Context, id int64, includeDeleted bool) (*T, error) {
	item, err := s.repo.FindByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, s.translate(err, "load")
	}
	return item, nil
}

// Create inserts a row after validating its label.
func (s *ReferenceService[T]) Create(ctx context.Context, label string, meta models.RequestMeta) (*T, error) {
	label, err := s.checkLabel(label)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, label, actorOf(meta))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to create %s", s.cfg.Resource))
	}
	return s.Get(ctx, id, false)
}

// Update replaces the label of an active row.
func (s *ReferenceService[T]) Update(ctx context.Context, id int64, label string, meta models.RequestMeta) (*T, error) {
	label, err := s.checkLabel(label)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, label, actorOf(meta)); err != nil {
		return nil, s.translate(err, "update")
	}
	return s.Get(ctx, id, false)
}

// Delete soft-deletes a row. Rows that reference it are left untouched.
func (s *ReferenceService[T]) Delete(ctx context.Context, id int64, meta models.RequestMeta) error {
	if err := s.repo.SoftDelete(ctx, id, actorOf(meta)); err != nil {
		return s.translate(err, "delete")
	}
	s.logger.Info("reference row deleted", zap.String("resource", s.cfg.Resource), zap.Int64("id", id), zap.String("actor", meta.ActorID))
	return nil
}

// Restore reactivates a soft-deleted row.
func (s *ReferenceService[T]) Restore(ctx context.Context, id int64, meta models.RequestMeta) (*T, error) {
	if err := s.repo.Restore(ctx, id, actorOf(meta)); err != nil {
		return nil, s.translate(err, "restore")
	}
	return s.Get(ctx, id, false)
}

func (s *ReferenceService[T]) checkLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if err := s.validator.Var(label, fmt.Sprintf("required,max=%d", s.cfg.MaxLength)); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("%s name is required and must be at most %d characters", s.cfg.Resource, s.cfg.MaxLength))
	}
	return label, nil
}

func (s *ReferenceService[T]) translate(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", s.cfg.Resource))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to %s %s", action, s.cfg.Resource))
}

func newPagination(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

func actorOf(meta models.RequestMeta) *string {
	if meta.ActorID == "" {
		return nil
	}
	actor := meta.ActorID
	return &actor
}
