package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

// StatusRole is the meaning a workflow step has to the lifecycle, independent of its row id.
type StatusRole string

const (
	StatusPending   StatusRole = "pending"
	StatusSent      StatusRole = "sent"
	StatusValidated StatusRole = "validated"
	StatusRejected  StatusRole = "rejected"
)

var statusRoles = []StatusRole{StatusPending, StatusSent, StatusValidated, StatusRejected}

type statusLookup interface {
	FindByDescription(ctx context.Context, description string) (*models.SubmissionStatus, error)
}

// StatusCatalog maps lifecycle roles onto status rows by their configured description.
type StatusCatalog struct {
	repo   statusLookup
	names  map[StatusRole]string
	logger *zap.Logger

	mu  sync.RWMutex
	ids map[StatusRole]int64
}

// NewStatusCatalog builds a catalog. names maps each role to the description it is stored under.
func NewStatusCatalog(repo statusLookup, names map[StatusRole]string, logger *zap.Logger) *StatusCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusCatalog{repo: repo, names: names, logger: logger, ids: make(map[StatusRole]int64)}
}

// Load resolves every role eagerly. Missing rows are logged and retried on demand.
func (c *StatusCatalog) Load(ctx context.Context) error {
	for _, role := range statusRoles {
		if _, err := c.ID(ctx, role); err != nil {
			if appErrors.Is(err, appErrors.ErrConfiguration) {
				c.logger.Warn("status role unresolved", zap.String("role", string(role)), zap.String("description", c.names[role]))
				continue
			}
			return err
		}
	}
	return nil
}

// ID returns the status id for role.
func (c *StatusCatalog) ID(ctx context.Context, role StatusRole) (int64, error) {
	c.mu.RLock()
	id, ok := c.ids[role]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	description := c.names[role]
	if description == "" {
		return 0, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("no description configured for status role %q", role))
	}

	status, err := c.repo.FindByDescription(ctx, description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("status %q (%s) is not registered", description, role))
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve status")
	}

	c.mu.Lock()
	c.ids[role] = status.ID
	c.mu.Unlock()
	return status.ID, nil
}

// OpenIDs returns the non-terminal status ids.
func (c *StatusCatalog) OpenIDs(ctx context.Context) ([]int64, error) {
	pending, err := c.ID(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	sent, err := c.ID(ctx, StatusSent)
	if err != nil {
		return nil, err
	}
	return []int64{pending, sent}, nil
}

// Buckets returns the status ids counted by the stats aggregate.
func (c *StatusCatalog) Buckets(ctx context.Context) (models.StatsBuckets, error) {
	var (
		buckets models.StatsBuckets
		err     error
	)
	if buckets.PendingID, err = c.ID(ctx, StatusPending); err != nil {
		return buckets, err
	}
	if buckets.ApprovedID, err = c.ID(ctx, StatusValidated); err != nil {
		return buckets, err
	}
	if buckets.RejectedID, err = c.ID(ctx, StatusRejected); err != nil {
		return buckets, err
	}
	return buckets, nil
}

// Reset forgets resolved ids so the next lookup reads the table again.
func (c *StatusCatalog) Reset() {
	c.mu.Lock()
	c.ids = make(map[StatusRole]int64)
	c.mu.Unlock()
}
