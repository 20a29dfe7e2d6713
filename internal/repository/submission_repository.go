package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/material-submission-api/internal/models"
)

const submissionColumns = `s.id, s.stage_id, st.name AS stage_name, s.subject_id, sb.name AS subject_name, s.user_id, u.name AS user_name,
	s.status_id, ss.description AS status_description, s.reference_month, s.reference_year, s.management_notes,
	s.school_submission_date, s.regional_office_submission_date, s.management_validation_date, s.trainer_submission_date, s.submission_deadline,
	s.record_status, s.created_by, s.updated_by, s.deleted_by, s.created_at, s.updated_at, s.deleted_at`

const submissionFrom = `FROM submissions s
	JOIN school_stages st ON st.id = s.stage_id
	JOIN subjects sb ON sb.id = s.subject_id
	JOIN users u ON u.id = s.user_id
	JOIN submission_statuses ss ON ss.id = s.status_id`

// SubmissionRepository persists the submission ledger.
type SubmissionRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// List returns submissions matching filter with total count.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	where, args := buildSubmissionWhere(filter)
	base := submissionFrom + " WHERE " + where

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s", submissionColumns, base, submissionOrder(filter.SortBy, filter.SortOrder))
	page, size := normalizePage(filter.Page, filter.PageSize)
	if !filter.Unpaged {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	var items []models.Submission
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	for i := range items {
		items[i].Decorate()
	}

	if filter.Unpaged {
		return items, len(items), nil
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return items, total, nil
}

// FindByID returns the projection of a submission.
func (r *SubmissionRepository) FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.Submission, error) {
	query := "SELECT " + submissionColumns + " " + submissionFrom + " WHERE s.id = $1"
	if !includeDeleted {
		query += " AND s.record_status = 'ACTIVE'"
	}
	var item models.Submission
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	item.Decorate()
	return &item, nil
}

// ExistsByKey reports whether another active submission already uses the natural key.
func (r *SubmissionRepository) ExistsByKey(ctx context.Context, key models.SubmissionKey, excludeID int64) (bool, error) {
	query := `SELECT 1 FROM submissions WHERE stage_id = $1 AND subject_id = $2 AND user_id = $3 AND reference_month = $4 AND reference_year = $5 AND record_status = 'ACTIVE'`
	args := []interface{}{key.StageID, key.SubjectID, key.UserID, key.Month, key.Year}
	if excludeID > 0 {
		query += " AND id <> $6"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check submission key: %w", err)
	}
	return true, nil
}

// Create inserts a submission and stores the generated id on the model.
func (r *SubmissionRepository) Create(ctx context.Context, item *models.Submission) error {
	now := r.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.RecordStatus = models.RecordActive

	const query = `INSERT INTO submissions (stage_id, subject_id, user_id, status_id, reference_month, reference_year, management_notes,
		school_submission_date, regional_office_submission_date, management_validation_date, trainer_submission_date, submission_deadline,
		record_status, created_by, updated_by, created_at, updated_at)
		VALUES (:stage_id, :subject_id, :user_id, :status_id, :reference_month, :reference_year, :management_notes,
		:school_submission_date, :regional_office_submission_date, :management_validation_date, :trainer_submission_date, :submission_deadline,
		:record_status, :created_by, :updated_by, :created_at, :updated_at) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&item.ID); err != nil {
			return fmt.Errorf("scan submission id: %w", err)
		}
	}
	return rows.Err()
}

// Update overwrites every mutable column of an active submission.
func (r *SubmissionRepository) Update(ctx context.Context, item *models.Submission) error {
	item.UpdatedAt = r.now()
	const query = `UPDATE submissions SET stage_id = :stage_id, subject_id = :subject_id, user_id = :user_id, status_id = :status_id,
		reference_month = :reference_month, reference_year = :reference_year, management_notes = :management_notes,
		school_submission_date = :school_submission_date, regional_office_submission_date = :regional_office_submission_date,
		management_validation_date = :management_validation_date, trainer_submission_date = :trainer_submission_date,
		submission_deadline = :submission_deadline, updated_by = :updated_by, updated_at = :updated_at
		WHERE id = :id AND record_status = 'ACTIVE'`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return requireAffected(res)
}

// UpdateStatus sets status and notes. The validation date is only written when validatedOn is non-nil.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id, statusID int64, notes string, validatedOn *models.Date, actor *string) error {
	query := `UPDATE submissions SET status_id = $2, management_notes = $3, updated_by = $4, updated_at = $5`
	args := []interface{}{id, statusID, notes, actor, r.now()}
	if validatedOn != nil {
		query += `, management_validation_date = $6`
		args = append(args, *validatedOn)
	}
	query += ` WHERE id = $1 AND record_status = 'ACTIVE'`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	return requireAffected(res)
}

// SoftDelete marks a submission as deleted.
func (r *SubmissionRepository) SoftDelete(ctx context.Context, id int64, actor *string) error {
	res, err := r.db.ExecContext(ctx, softDeleteQuery("submissions"), id, actor, r.now())
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return requireAffected(res)
}

// Restore reactivates a deleted submission.
func (r *SubmissionRepository) Restore(ctx context.Context, id int64, actor *string) error {
	res, err := r.db.ExecContext(ctx, restoreQuery("submissions"), id, actor, r.now())
	if err != nil {
		return fmt.Errorf("restore submission: %w", err)
	}
	return requireAffected(res)
}

// Stats counts active submissions per bucket, optionally restricted to a period.
func (r *SubmissionRepository) Stats(ctx context.Context, month, year *int, buckets models.StatsBuckets) (*models.SubmissionStats, error) {
	query := `SELECT COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status_id = $1) AS pending,
		COUNT(*) FILTER (WHERE status_id = $2) AS approved,
		COUNT(*) FILTER (WHERE status_id = $3) AS rejected
		FROM submissions WHERE record_status = 'ACTIVE'`
	args := []interface{}{buckets.PendingID, buckets.ApprovedID, buckets.RejectedID}
	if month != nil {
		args = append(args, *month)
		query += fmt.Sprintf(" AND reference_month = $%d", len(args))
	}
	if year != nil {
		args = append(args, *year)
		query += fmt.Sprintf(" AND reference_year = $%d", len(args))
	}

	var stats models.SubmissionStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("submission stats: %w", err)
	}
	stats.Month = month
	stats.Year = year
	return &stats, nil
}

func buildSubmissionWhere(filter models.SubmissionFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "s.record_status = 'ACTIVE'")
	}

	exact := []struct {
		column string
		value  *int64
	}{
		{"s.stage_id", filter.StageID},
		{"s.subject_id", filter.SubjectID},
		{"s.user_id", filter.UserID},
		{"s.status_id", filter.StatusID},
	}
	for _, f := range exact {
		if f.value != nil {
			conditions = append(conditions, fmt.Sprintf("%s = %s", f.column, arg(*f.value)))
		}
	}

	membership := []struct {
		column string
		values []int64
	}{
		{"s.stage_id", filter.StageIDs},
		{"s.subject_id", filter.SubjectIDs},
		{"s.user_id", filter.UserIDs},
		{"s.status_id", filter.StatusIDs},
	}
	for _, f := range membership {
		if len(f.values) > 0 {
			conditions = append(conditions, fmt.Sprintf("%s = ANY(%s)", f.column, arg(pq.Array(f.values))))
		}
	}

	ints := []struct {
		expr  string
		value *int
	}{
		{"s.reference_month = %s", filter.Month},
		{"s.reference_month >= %s", filter.MonthGTE},
		{"s.reference_month <= %s", filter.MonthLTE},
		{"s.reference_year = %s", filter.Year},
		{"s.reference_year >= %s", filter.YearGTE},
		{"s.reference_year <= %s", filter.YearLTE},
	}
	for _, f := range ints {
		if f.value != nil {
			conditions = append(conditions, fmt.Sprintf(f.expr, arg(*f.value)))
		}
	}

	dates := []struct {
		expr  string
		value *models.Date
	}{
		{"s.school_submission_date >= %s", filter.SchoolDateFrom},
		{"s.school_submission_date <= %s", filter.SchoolDateTo},
		{"s.submission_deadline >= %s", filter.DeadlineFrom},
		{"s.submission_deadline <= %s", filter.DeadlineTo},
	}
	for _, f := range dates {
		if f.value != nil {
			conditions = append(conditions, fmt.Sprintf(f.expr, arg(*f.value)))
		}
	}

	contains := []struct {
		column string
		value  string
	}{
		{"st.name", filter.StageName},
		{"sb.name", filter.SubjectName},
		{"u.name", filter.UserName},
		{"ss.description", filter.StatusDescription},
	}
	for _, f := range contains {
		if value := strings.TrimSpace(f.value); value != "" {
			conditions = append(conditions, fmt.Sprintf("LOWER(%s) LIKE %s", f.column, arg("%"+strings.ToLower(value)+"%")))
		}
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		p := arg("%" + strings.ToLower(search) + "%")
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(u.name) LIKE %[1]s OR LOWER(u.registration_number) LIKE %[1]s OR LOWER(sb.name) LIKE %[1]s OR LOWER(st.name) LIKE %[1]s OR LOWER(COALESCE(s.management_notes, '')) LIKE %[1]s)", p))
	}

	if filter.HasNotes != nil {
		const hasNotes = "(s.management_notes IS NOT NULL AND s.management_notes <> '')"
		conditions = append(conditions, negateUnless(*filter.HasNotes, hasNotes))
	}

	if filter.Overdue != nil && filter.OverdueBefore != nil {
		overdue := fmt.Sprintf("(s.submission_deadline IS NOT NULL AND s.submission_deadline < %s AND s.status_id = ANY(%s))",
			arg(*filter.OverdueBefore), arg(pq.Array(filter.OpenStatusIDs)))
		conditions = append(conditions, negateUnless(*filter.Overdue, overdue))
	}

	if filter.PendingValidation != nil {
		const pending = "(s.school_submission_date IS NOT NULL AND s.management_validation_date IS NULL)"
		conditions = append(conditions, negateUnless(*filter.PendingValidation, pending))
	}

	return strings.Join(conditions, " AND "), args
}

func negateUnless(keep bool, predicate string) string {
	if keep {
		return predicate
	}
	return "NOT " + predicate
}

func submissionOrder(sortBy, sortOrder string) string {
	order := strings.ToUpper(sortOrder)
	if strings.HasPrefix(sortBy, "-") {
		sortBy = strings.TrimPrefix(sortBy, "-")
		order = "DESC"
	}
	allowed := map[string]string{
		"id":                     "s.id",
		"reference_month":        "s.reference_month",
		"reference_year":         "s.reference_year",
		"school_submission_date": "s.school_submission_date",
		"submission_deadline":    "s.submission_deadline",
	}
	column, ok := allowed[sortBy]
	if !ok {
		return "s.id DESC"
	}
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	return column + " " + order
}
