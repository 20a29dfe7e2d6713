package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/material-submission-api/internal/models"
)

// referenceTable describes a lookup table and the table that references it.
type referenceTable struct {
	name        string
	label       string
	usageTable  string
	usageColumn string
	defaultSort string
}

var (
	profilesTable = referenceTable{name: "profiles", label: "name", usageTable: "users", usageColumn: "profile_id", defaultSort: "id"}
	stagesTable   = referenceTable{name: "school_stages", label: "name", usageTable: "submissions", usageColumn: "stage_id", defaultSort: "id"}
	subjectsTable = referenceTable{name: "subjects", label: "name", usageTable: "submissions", usageColumn: "subject_id", defaultSort: "name"}
	statusesTable = referenceTable{name: "submission_statuses", label: "description", usageTable: "submissions", usageColumn: "status_id", defaultSort: "id"}
)

// ReferenceRepository provides CRUD over one lookup table.
type ReferenceRepository[T any] struct {
	db    *sqlx.DB
	table referenceTable
	now   func() time.Time
}

// NewProfileRepository returns the repository for profiles.
func NewProfileRepository(db *sqlx.DB) *ReferenceRepository[models.Profile] {
	return newReferenceRepository[models.Profile](db, profilesTable)
}

// NewSchoolStageRepository returns the repository for school stages.
func NewSchoolStageRepository(db *sqlx.DB) *ReferenceRepository[models.SchoolStage] {
	return newReferenceRepository[models.SchoolStage](db, stagesTable)
}

// NewSubjectRepository returns the repository for subjects.
func NewSubjectRepository(db *sqlx.DB) *ReferenceRepository[models.Subject] {
	return newReferenceRepository[models.Subject](db, subjectsTable)
}

func newReferenceRepository[T any](db *sqlx.DB, table referenceTable) *ReferenceRepository[T] {
	return &ReferenceRepository[T]{db: db, table: table, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ReferenceRepository[T]) columns() string {
	t := r.table
	return fmt.Sprintf(`t.id, t.%s, (SELECT COUNT(*) FROM %s u WHERE u.%s = t.id AND u.record_status = 'ACTIVE') AS usage_count, %s`,
		t.label, t.usageTable, t.usageColumn, auditColumns("t"))
}

// List returns rows matching filters with the total count.
func (r *ReferenceRepository[T]) List(ctx context.Context, filter models.ReferenceFilter) ([]T, int, error) {
	base := fmt.Sprintf("FROM %s t WHERE 1=1", r.table.name)
	var args []interface{}

	if !filter.IncludeDeleted {
		base += " AND t.record_status = 'ACTIVE'"
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(t.%s) LIKE $%d", r.table.label, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	if sortBy == "name" || sortBy == "description" {
		sortBy = r.table.label
	}
	allowedSorts := map[string]bool{
		"id":          true,
		r.table.label: true,
		"created_at":  true,
		"updated_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = r.table.defaultSort
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY t.%s %s LIMIT %d OFFSET %d", r.columns(), base, sortBy, order, size, offset)
	var items []T
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.table.name, err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.table.name, err)
	}

	return items, total, nil
}

// FindByID returns a row by id. Deleted rows are only returned when includeDeleted is set.
func (r *ReferenceRepository[T]) FindByID(ctx context.Context, id int64, includeDeleted bool) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s t WHERE t.id = $1", r.columns(), r.table.name)
	if !includeDeleted {
		query += " AND t.record_status = 'ACTIVE'"
	}
	var item T
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByLabel returns the first active row whose label matches case-insensitively.
func (r *ReferenceRepository[T]) FindByLabel(ctx context.Context, label string) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s t WHERE LOWER(t.%s) = LOWER($1) AND t.record_status = 'ACTIVE' ORDER BY t.id LIMIT 1",
		r.columns(), r.table.name, r.table.label)
	var item T
	if err := r.db.GetContext(ctx, &item, query, strings.TrimSpace(label)); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a row and returns its id.
func (r *ReferenceRepository[T]) Create(ctx context.Context, label string, actor *string) (int64, error) {
	now := r.now()
	query := fmt.Sprintf(`INSERT INTO %s (%s, record_status, created_by, updated_by, created_at, updated_at) VALUES ($1, 'ACTIVE', $2, $2, $3, $3) RETURNING id`,
		r.table.name, r.table.label)
	var id int64
	if err := r.db.GetContext(ctx, &id, query, label, actor, now); err != nil {
		return 0, fmt.Errorf("create %s: %w", r.table.name, err)
	}
	return id, nil
}

// Update changes the label of an active row.
func (r *ReferenceRepository[T]) Update(ctx context.Context, id int64, label string, actor *string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, updated_by = $3, updated_at = $4 WHERE id = $1 AND record_status = 'ACTIVE'`,
		r.table.name, r.table.label)
	res, err := r.db.ExecContext(ctx, query, id, label, actor, r.now())
	if err != nil {
		return fmt.Errorf("update %s: %w", r.table.name, err)
	}
	return requireAffected(res)
}

// SoftDelete marks an active row as deleted.
func (r *ReferenceRepository[T]) SoftDelete(ctx context.Context, id int64, actor *string) error {
	res, err := r.db.ExecContext(ctx, softDeleteQuery(r.table.name), id, actor, r.now())
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.table.name, err)
	}
	return requireAffected(res)
}

// Restore reactivates a deleted row.
func (r *ReferenceRepository[T]) Restore(ctx context.Context, id int64, actor *string) error {
	res, err := r.db.ExecContext(ctx, restoreQuery(r.table.name), id, actor, r.now())
	if err != nil {
		return fmt.Errorf("restore %s: %w", r.table.name, err)
	}
	return requireAffected(res)
}

func auditColumns(alias string) string {
	cols := []string{"record_status", "created_by", "updated_by", "deleted_by", "created_at", "updated_at", "deleted_at"}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func softDeleteQuery(table string) string {
	return fmt.Sprintf(`UPDATE %s SET record_status = 'DELETED', deleted_by = $2, deleted_at = $3, updated_at = $3 WHERE id = $1 AND record_status = 'ACTIVE'`, table)
}

func restoreQuery(table string) string {
	return fmt.Sprintf(`UPDATE %s SET record_status = 'ACTIVE', deleted_by = NULL, deleted_at = NULL, updated_by = $2, updated_at = $3 WHERE id = $1 AND record_status = 'DELETED'`, table)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
