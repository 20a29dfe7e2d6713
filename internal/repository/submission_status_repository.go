package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/material-submission-api/internal/models"
)

// SubmissionStatusRepository adds description lookups to the status table.
type SubmissionStatusRepository struct {
	*ReferenceRepository[models.SubmissionStatus]
}

// NewSubmissionStatusRepository returns the repository for submission statuses.
func NewSubmissionStatusRepository(db *sqlx.DB) *SubmissionStatusRepository {
	return &SubmissionStatusRepository{ReferenceRepository: newReferenceRepository[models.SubmissionStatus](db, statusesTable)}
}

// FindByDescription returns the active status with the given description.
func (r *SubmissionStatusRepository) FindByDescription(ctx context.Context, description string) (*models.SubmissionStatus, error) {
	return r.FindByLabel(ctx, description)
}
