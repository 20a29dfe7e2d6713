package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/material-submission-api/internal/models"
)

const userColumns = `u.id, u.profile_id, COALESCE(p.name, '') AS profile_name, u.name, u.registration_number, u.national_id, u.password_hash, u.phone, u.last_login,
	(SELECT COUNT(*) FROM submissions s WHERE s.user_id = u.id AND s.record_status = 'ACTIVE') AS submission_count,
	u.record_status, u.created_by, u.updated_by, u.deleted_by, u.created_at, u.updated_at, u.deleted_at`

const userFrom = `FROM users u LEFT JOIN profiles p ON p.id = u.profile_id`

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByRegistrationNumber returns an active user by registration number.
func (r *UserRepository) FindByRegistrationNumber(ctx context.Context, registration string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` ` + userFrom + ` WHERE u.registration_number = $1 AND u.record_status = 'ACTIVE' LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, registration); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by registration number: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` ` + userFrom + ` WHERE u.id = $1`
	if !includeDeleted {
		query += ` AND u.record_status = 'ACTIVE'`
	}
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ExistsByRegistrationNumber checks uniqueness among active users.
func (r *UserRepository) ExistsByRegistrationNumber(ctx context.Context, registration string, excludeID int64) (bool, error) {
	return r.exists(ctx, "registration_number", registration, excludeID)
}

// ExistsByNationalID checks uniqueness among active users.
func (r *UserRepository) ExistsByNationalID(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	return r.exists(ctx, "national_id", nationalID, excludeID)
}

func (r *UserRepository) exists(ctx context.Context, column, value string, excludeID int64) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM users WHERE %s = $1 AND record_status = 'ACTIVE'", column)
	args := []interface{}{value}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check user %s: %w", column, err)
	}
	return true, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := userFrom + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "u.record_status = 'ACTIVE'")
	}
	if filter.ProfileID != nil {
		conditions = append(conditions, fmt.Sprintf("u.profile_id = $%d", len(args)+1))
		args = append(args, *filter.ProfileID)
	}
	if filter.ProfileName != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(p.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.ProfileName)+"%")
	}
	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(u.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.RegistrationNumber != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(u.registration_number) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.RegistrationNumber)+"%")
	}
	if filter.NationalID != "" {
		conditions = append(conditions, fmt.Sprintf("u.national_id = $%d", len(args)+1))
		args = append(args, filter.NationalID)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.name) LIKE $%d OR LOWER(u.registration_number) LIKE $%d OR u.national_id LIKE $%d)", n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "id"
	}
	allowedSorts := map[string]bool{
		"id":                  true,
		"name":                true,
		"registration_number": true,
		"created_at":          true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "id"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY u.%s %s LIMIT %d OFFSET %d", userColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user and stores the generated id on the model.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.RecordStatus = models.RecordActive

	const query = `INSERT INTO users (profile_id, name, registration_number, national_id, password_hash, phone, record_status, created_by, updated_by, created_at, updated_at)
		VALUES (:profile_id, :name, :registration_number, :national_id, :password_hash, :phone, :record_status, :created_by, :updated_by, :created_at, :updated_at) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&user.ID); err != nil {
			return fmt.Errorf("scan user id: %w", err)
		}
	}
	return rows.Err()
}

// Update updates mutable fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET profile_id = :profile_id, name = :name, registration_number = :registration_number, national_id = :national_id, phone = :phone, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id AND record_status = 'ACTIVE'`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res)
}

// Delete performs a soft delete.
func (r *UserRepository) Delete(ctx context.Context, id int64, actor *string) error {
	res, err := r.db.ExecContext(ctx, softDeleteQuery("users"), id, actor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res)
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
