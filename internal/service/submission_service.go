package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
	"github.com/noah-isme/material-submission-api/pkg/database"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

const statsCachePattern = "submissions:stats:*"

type submissionRepository interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.Submission, error)
	ExistsByKey(ctx context.Context, key models.SubmissionKey, excludeID int64) (bool, error)
	Create(ctx context.Context, item *models.Submission) error
	Update(ctx context.Context, item *models.Submission) error
	UpdateStatus(ctx context.Context, id, statusID int64, notes string, validatedOn *models.Date, actor *string) error
	SoftDelete(ctx context.Context, id int64, actor *string) error
	Restore(ctx context.Context, id int64, actor *string) error
	Stats(ctx context.Context, month, year *int, buckets models.StatsBuckets) (*models.SubmissionStats, error)
}

type stageLookup interface {
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.SchoolStage, error)
}

type subjectLookup interface {
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.Subject, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.User, error)
}

type statusByIDLookup interface {
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.SubmissionStatus, error)
}

// SubmissionRequest is the body of create and full-update calls.
// Omitted month, year and status fall back to the current period and the pending status on create,
// and to the stored values on update.
type SubmissionRequest struct {
	StageID                      int64        `json:"stage_id" validate:"required,gt=0"`
	SubjectID                    int64        `json:"subject_id" validate:"required,gt=0"`
	UserID                       int64        `json:"user_id" validate:"required,gt=0"`
	StatusID                     *int64       `json:"status_id" validate:"omitempty,gt=0"`
	ReferenceMonth               *int         `json:"reference_month" validate:"omitempty,min=1,max=12"`
	ReferenceYear                *int         `json:"reference_year" validate:"omitempty,min=2000,max=2100"`
	ManagementNotes              *string      `json:"management_notes" validate:"omitempty,max=2000"`
	SchoolSubmissionDate         *models.Date `json:"school_submission_date"`
	RegionalOfficeSubmissionDate *models.Date `json:"regional_office_submission_date"`
	ManagementValidationDate     *models.Date `json:"management_validation_date"`
	TrainerSubmissionDate        *models.Date `json:"trainer_submission_date"`
	SubmissionDeadline           *models.Date `json:"submission_deadline"`
}

// SubmissionPatch changes only the fields present in the body. Dates may be cleared with null.
type SubmissionPatch struct {
	StageID                      *int64       `json:"stage_id" validate:"omitempty,gt=0"`
	SubjectID                    *int64       `json:"subject_id" validate:"omitempty,gt=0"`
	UserID                       *int64       `json:"user_id" validate:"omitempty,gt=0"`
	StatusID                     *int64       `json:"status_id" validate:"omitempty,gt=0"`
	ReferenceMonth               *int         `json:"reference_month" validate:"omitempty,min=1,max=12"`
	ReferenceYear                *int         `json:"reference_year" validate:"omitempty,min=2000,max=2100"`
	ManagementNotes              *string      `json:"management_notes" validate:"omitempty,max=2000"`
	SchoolSubmissionDate         OptionalDate `json:"school_submission_date"`
	RegionalOfficeSubmissionDate OptionalDate `json:"regional_office_submission_date"`
	ManagementValidationDate     OptionalDate `json:"management_validation_date"`
	TrainerSubmissionDate        OptionalDate `json:"trainer_submission_date"`
	SubmissionDeadline           OptionalDate `json:"submission_deadline"`
}

// OptionalDate tells an absent JSON field apart from an explicit null.
type OptionalDate struct {
	Set   bool
	Value *models.Date
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if string(data) == "null" {
		return nil
	}
	var d models.Date
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	if !d.IsZero() {
		o.Value = &d
	}
	return nil
}

func (o OptionalDate) apply(dst **models.Date) {
	if o.Set {
		*dst = o.Value
	}
}

// ValidateRequest records a management decision.
type ValidateRequest struct {
	Approved *bool   `json:"approved" validate:"required"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

// ChangeStatusRequest moves a submission to an arbitrary status.
type ChangeStatusRequest struct {
	StatusID int64   `json:"status_id" validate:"required,gt=0"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

// SubmissionServiceParams groups the collaborators of SubmissionService.
type SubmissionServiceParams struct {
	Repo      submissionRepository
	Stages    stageLookup
	Subjects  subjectLookup
	Users     userLookup
	Statuses  statusByIDLookup
	Catalog   *StatusCatalog
	Cache     *CacheService
	Audit     auditRepository
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Now       func() time.Time
}

// SubmissionService owns writes to the submission ledger and the validation lifecycle.
type SubmissionService struct {
	repo      submissionRepository
	stages    stageLookup
	subjects  subjectLookup
	users     userLookup
	statuses  statusByIDLookup
	catalog   *StatusCatalog
	cache     *CacheService
	audit     auditRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(p SubmissionServiceParams) *SubmissionService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Validator == nil {
		p.Validator = NewValidator()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &SubmissionService{
		repo:      p.Repo,
		stages:    p.Stages,
		subjects:  p.Subjects,
		users:     p.Users,
		statuses:  p.Statuses,
		catalog:   p.Catalog,
		cache:     p.Cache,
		audit:     p.Audit,
		metrics:   p.Metrics,
		validator: p.Validator,
		logger:    p.Logger,
		now:       p.Now,
	}
}

// Get returns the projection of an active submission.
func (s *SubmissionService) Get(ctx context.Context, id int64) (*models.Submission, error) {
	item, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return item, nil
}

// Create records a new submission.
func (s *SubmissionService) Create(ctx context.Context, req SubmissionRequest, meta models.RequestMeta) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid submission payload")
	}

	today := s.now()
	item := &models.Submission{
		StageID:                      req.StageID,
		SubjectID:                    req.SubjectID,
		UserID:                       req.UserID,
		ReferenceMonth:               int(today.Month()),
		ReferenceYear:                today.Year(),
		ManagementNotes:              req.ManagementNotes,
		SchoolSubmissionDate:         models.DateOrNil(req.SchoolSubmissionDate),
		RegionalOfficeSubmissionDate: models.DateOrNil(req.RegionalOfficeSubmissionDate),
		ManagementValidationDate:     models.DateOrNil(req.ManagementValidationDate),
		TrainerSubmissionDate:        models.DateOrNil(req.TrainerSubmissionDate),
		SubmissionDeadline:           models.DateOrNil(req.SubmissionDeadline),
	}
	if req.ReferenceMonth != nil {
		item.ReferenceMonth = *req.ReferenceMonth
	}
	if req.ReferenceYear != nil {
		item.ReferenceYear = *req.ReferenceYear
	}
	if req.StatusID != nil {
		item.StatusID = *req.StatusID
	} else {
		pendingID, err := s.catalog.ID(ctx, StatusPending)
		if err != nil {
			return nil, err
		}
		item.StatusID = pendingID
	}

	if err := s.checkPeriod(item); err != nil {
		return nil, err
	}
	if err := s.resolveReferences(ctx, item, nil); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, item.Key(), 0); err != nil {
		return nil, err
	}

	actor := actorOf(meta)
	item.CreatedBy = actor
	item.UpdatedBy = actor
	if err := s.repo.Create(ctx, item); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicateSubmission()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	created, err := s.Get(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, models.AuditActionSubmissionCreate, created.ID, nil, created, meta)
	return created, nil
}

// Update replaces the mutable fields of a submission.
func (s *SubmissionService) Update(ctx context.Context, id int64, req SubmissionRequest, meta models.RequestMeta) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid submission payload")
	}
	return s.modify(ctx, id, meta, func(item *models.Submission) {
		item.StageID = req.StageID
		item.SubjectID = req.SubjectID
		item.UserID = req.UserID
		if req.StatusID != nil {
			item.StatusID = *req.StatusID
		}
		if req.ReferenceMonth != nil {
			item.ReferenceMonth = *req.ReferenceMonth
		}
		if req.ReferenceYear != nil {
			item.ReferenceYear = *req.ReferenceYear
		}
		item.ManagementNotes = req.ManagementNotes
		item.SchoolSubmissionDate = models.DateOrNil(req.SchoolSubmissionDate)
		item.RegionalOfficeSubmissionDate = models.DateOrNil(req.RegionalOfficeSubmissionDate)
		item.ManagementValidationDate = models.DateOrNil(req.ManagementValidationDate)
		item.TrainerSubmissionDate = models.DateOrNil(req.TrainerSubmissionDate)
		item.SubmissionDeadline = models.DateOrNil(req.SubmissionDeadline)
	})
}

// Patch changes the fields present in req.
func (s *SubmissionService) Patch(ctx context.Context, id int64, req SubmissionPatch, meta models.RequestMeta) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid submission payload")
	}
	return s.modify(ctx, id, meta, func(item *models.Submission) {
		if req.StageID != nil {
			item.StageID = *req.StageID
		}
		if req.SubjectID != nil {
			item.SubjectID = *req.SubjectID
		}
		if req.UserID != nil {
			item.UserID = *req.UserID
		}
		if req.StatusID != nil {
			item.StatusID = *req.StatusID
		}
		if req.ReferenceMonth != nil {
			item.ReferenceMonth = *req.ReferenceMonth
		}
		if req.ReferenceYear != nil {
			item.ReferenceYear = *req.ReferenceYear
		}
		if req.ManagementNotes != nil {
			item.ManagementNotes = req.ManagementNotes
		}
		req.SchoolSubmissionDate.apply(&item.SchoolSubmissionDate)
		req.RegionalOfficeSubmissionDate.apply(&item.RegionalOfficeSubmissionDate)
		req.ManagementValidationDate.apply(&item.ManagementValidationDate)
		req.TrainerSubmissionDate.apply(&item.TrainerSubmissionDate)
		req.SubmissionDeadline.apply(&item.SubmissionDeadline)
	})
}

func (s *SubmissionService) modify(ctx context.Context, id int64, meta models.RequestMeta, mutate func(*models.Submission)) (*models.Submission, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *current
	mutate(&next)

	if err := s.checkPeriod(&next); err != nil {
		return nil, err
	}
	if err := s.resolveReferences(ctx, &next, current); err != nil {
		return nil, err
	}
	if next.Key() != current.Key() {
		if err := s.checkUnique(ctx, next.Key(), id); err != nil {
			return nil, err
		}
	}

	next.UpdatedBy = actorOf(meta)
	if err := s.repo.Update(ctx, &next); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		case database.IsUniqueViolation(err):
			return nil, duplicateSubmission()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, models.AuditActionSubmissionUpdate, id, current, updated, meta)
	return updated, nil
}

// Delete soft-deletes a submission.
func (s *SubmissionService) Delete(ctx context.Context, id int64, meta models.RequestMeta) error {
	if err := s.repo.SoftDelete(ctx, id, actorOf(meta)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}
	s.afterWrite(ctx, models.AuditActionSubmissionDelete, id, nil, nil, meta)
	return nil
}

// Restore reactivates a soft-deleted submission unless an active one already holds its key.
func (s *SubmissionService) Restore(ctx context.Context, id int64, meta models.RequestMeta) (*models.Submission, error) {
	item, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if err := s.checkUnique(ctx, item.Key(), id); err != nil {
		return nil, err
	}
	if err := s.repo.Restore(ctx, id, actorOf(meta)); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission is not deleted")
		case database.IsUniqueViolation(err):
			return nil, duplicateSubmission()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore submission")
	}
	restored, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, models.AuditActionSubmissionUpdate, id, nil, restored, meta)
	return restored, nil
}

// Validate records a management decision: approved moves the submission to the validated
// status, otherwise to the rejected one. Notes are overwritten and the validation date is
// stamped with today's date.
func (s *SubmissionService) Validate(ctx context.Context, id int64, req ValidateRequest, meta models.RequestMeta) (*models.Submission, error) {
	if req.Approved == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approved is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid validate payload")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	role := StatusRejected
	if *req.Approved {
		role = StatusValidated
	}
	statusID, err := s.catalog.ID(ctx, role)
	if err != nil {
		return nil, err
	}

	today := models.NewDate(s.now())
	if err := s.repo.UpdateStatus(ctx, id, statusID, notesOrEmpty(req.Notes), &today, actorOf(meta)); err != nil {
		return nil, s.transitionError(err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("validate", string(role))
	s.afterWrite(ctx, models.AuditActionSubmissionValidate, id, current, updated, meta)
	return updated, nil
}

// ChangeStatus moves a submission to any status. It never touches the validation date.
func (s *SubmissionService) ChangeStatus(ctx context.Context, id int64, req ChangeStatusRequest, meta models.RequestMeta) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid change status payload")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	status, err := s.statuses.FindByID(ctx, req.StatusID, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission status not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission status")
	}

	if err := s.repo.UpdateStatus(ctx, id, status.ID, notesOrEmpty(req.Notes), nil, actorOf(meta)); err != nil {
		return nil, s.transitionError(err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("change_status", status.Description)
	s.afterWrite(ctx, models.AuditActionSubmissionStatus, id, current, updated, meta)
	return updated, nil
}

func (s *SubmissionService) transitionError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission status")
}

func (s *SubmissionService) checkPeriod(item *models.Submission) error {
	if item.ReferenceMonth < 1 || item.ReferenceMonth > 12 {
		return appErrors.Clone(appErrors.ErrValidation, "reference_month must be between 1 and 12")
	}
	if item.ReferenceYear < 2000 || item.ReferenceYear > 2100 {
		return appErrors.Clone(appErrors.ErrValidation, "reference_year must be between 2000 and 2100")
	}
	return nil
}

// resolveReferences checks that every reference of item points at an active row.
// When current is set only references that changed are checked.
func (s *SubmissionService) resolveReferences(ctx context.Context, item, current *models.Submission) error {
	checks := []struct {
		field   string
		id      int64
		changed bool
		find    func(context.Context, int64) error
	}{
		{"stage_id", item.StageID, current == nil || current.StageID != item.StageID, func(ctx context.Context, id int64) error {
			_, err := s.stages.FindByID(ctx, id, false)
			return err
		}},
		{"subject_id", item.SubjectID, current == nil || current.SubjectID != item.SubjectID, func(ctx context.Context, id int64) error {
			_, err := s.subjects.FindByID(ctx, id, false)
			return err
		}},
		{"user_id", item.UserID, current == nil || current.UserID != item.UserID, func(ctx context.Context, id int64) error {
			_, err := s.users.FindByID(ctx, id, false)
			return err
		}},
		{"status_id", item.StatusID, current == nil || current.StatusID != item.StatusID, func(ctx context.Context, id int64) error {
			_, err := s.statuses.FindByID(ctx, id, false)
			return err
		}},
	}
	for _, c := range checks {
		if !c.changed {
			continue
		}
		if err := c.find(ctx, c.id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, c.field+" "+strconv.FormatInt(c.id, 10)+" does not reference an active record")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve "+c.field)
		}
	}
	return nil
}

func (s *SubmissionService) checkUnique(ctx context.Context, key models.SubmissionKey, excludeID int64) error {
	exists, err := s.repo.ExistsByKey(ctx, key, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check submission uniqueness")
	}
	if exists {
		return duplicateSubmission()
	}
	return nil
}

// afterWrite records the audit entry and drops cached statistics.
func (s *SubmissionService) afterWrite(ctx context.Context, action string, id int64, before, after *models.Submission, meta models.RequestMeta) {
	s.cache.Invalidate(ctx, statsCachePattern)

	if s.audit == nil {
		return
	}
	var oldValues, newValues []byte
	if before != nil {
		oldValues, _ = json.Marshal(before)
	}
	if after != nil {
		newValues, _ = json.Marshal(after)
	}
	resourceID := strconv.FormatInt(id, 10)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorOf(meta),
		Action:     action,
		Resource:   "submissions",
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record submission audit log", zap.String("action", action), zap.Int64("id", id), zap.Error(err))
	}
}

func duplicateSubmission() error {
	return appErrors.Clone(appErrors.ErrConflict, "a submission for this stage, subject, user and period already exists")
}

func notesOrEmpty(notes *string) string {
	if notes == nil {
		return ""
	}
	return *notes
}
