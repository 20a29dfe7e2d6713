package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
)

// SubmissionStatusService manages status rows and keeps the status catalog in step with them.
type SubmissionStatusService struct {
	*ReferenceService[models.SubmissionStatus]
	catalog *StatusCatalog
}

// NewSubmissionStatusService constructs the status service.
func NewSubmissionStatusService(repo referenceRepository[models.SubmissionStatus], catalog *StatusCatalog, validate *validator.Validate, logger *zap.Logger) *SubmissionStatusService {
	base := NewReferenceService[models.SubmissionStatus](repo, validate, logger, ReferenceConfig{Resource: "submission status", MaxLength: 50})
	return &SubmissionStatusService{ReferenceService: base, catalog: catalog}
}

// Create inserts a status. A previously unresolved role may now resolve.
func (s *SubmissionStatusService) Create(ctx context.Context, description string, meta models.RequestMeta) (*models.SubmissionStatus, error) {
	item, err := s.ReferenceService.Create(ctx, description, meta)
	if err == nil {
		s.resetCatalog()
	}
	return item, err
}

// Update renames a status.
func (s *SubmissionStatusService) Update(ctx context.Context, id int64, description string, meta models.RequestMeta) (*models.SubmissionStatus, error) {
	item, err := s.ReferenceService.Update(ctx, id, description, meta)
	if err == nil {
		s.resetCatalog()
	}
	return item, err
}

// Delete soft-deletes a status.
func (s *SubmissionStatusService) Delete(ctx context.Context, id int64, meta models.RequestMeta) error {
	err := s.ReferenceService.Delete(ctx, id, meta)
	if err == nil {
		s.resetCatalog()
	}
	return err
}

// Restore reactivates a status.
func (s *SubmissionStatusService) Restore(ctx context.Context, id int64, meta models.RequestMeta) (*models.SubmissionStatus, error) {
	item, err := s.ReferenceService.Restore(ctx, id, meta)
	if err == nil {
		s.resetCatalog()
	}
	return item, err
}

func (s *SubmissionStatusService) resetCatalog() {
	if s.catalog != nil {
		s.catalog.Reset()
	}
}
