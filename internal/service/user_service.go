package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/material-submission-api/internal/models"
	"github.com/noah-isme/material-submission-api/pkg/database"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.User, error)
	ExistsByRegistrationNumber(ctx context.Context, registration string, excludeID int64) (bool, error)
	ExistsByNationalID(ctx context.Context, nationalID string, excludeID int64) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64, actor *string) error
}

type profileLookup interface {
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.Profile, error)
	FindByLabel(ctx context.Context, label string) (*models.Profile, error)
}

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	ProfileID          int64   `json:"profile_id" validate:"required,gt=0"`
	Name               string  `json:"name" validate:"required,max=100"`
	RegistrationNumber string  `json:"registration_number" validate:"required,max=50"`
	NationalID         string  `json:"national_id" validate:"required,cpf"`
	Password           string  `json:"password" validate:"required,min=6,max=100"`
	ConfirmPassword    string  `json:"confirm_password" validate:"required,eqfield=Password"`
	Phone              *string `json:"phone" validate:"omitempty,phone_br"`
}

// CreateTeacherRequest is CreateUserRequest without the profile, which is forced to the teacher profile.
type CreateTeacherRequest struct {
	Name               string  `json:"name" validate:"required,max=100"`
	RegistrationNumber string  `json:"registration_number" validate:"required,max=50"`
	NationalID         string  `json:"national_id" validate:"required,cpf"`
	Password           string  `json:"password" validate:"required,min=6,max=100"`
	ConfirmPassword    string  `json:"confirm_password" validate:"required,eqfield=Password"`
	Phone              *string `json:"phone" validate:"omitempty,phone_br"`
}

// UpdateUserRequest payload for replacing a user's attributes.
type UpdateUserRequest struct {
	ProfileID          int64   `json:"profile_id" validate:"required,gt=0"`
	Name               string  `json:"name" validate:"required,max=100"`
	RegistrationNumber string  `json:"registration_number" validate:"required,max=50"`
	NationalID         string  `json:"national_id" validate:"required,cpf"`
	Phone              *string `json:"phone" validate:"omitempty,phone_br"`
}

// PatchUserRequest payload for partial updates; nil fields are left unchanged.
type PatchUserRequest struct {
	ProfileID          *int64  `json:"profile_id" validate:"omitempty,gt=0"`
	Name               *string `json:"name" validate:"omitempty,min=1,max=100"`
	RegistrationNumber *string `json:"registration_number" validate:"omitempty,min=1,max=50"`
	NationalID         *string `json:"national_id" validate:"omitempty,cpf"`
	Phone              *string `json:"phone" validate:"omitempty,phone_br"`
}

// UserConfig tunes user workflows.
type UserConfig struct {
	TeacherProfileName string
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	profiles  profileLookup
	audit     auditRepository
	validator *validator.Validate
	logger    *zap.Logger
	cfg       UserConfig
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, profiles profileLookup, audit auditRepository, validate *validator.Validate, logger *zap.Logger, cfg UserConfig) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.TeacherProfileName == "" {
		cfg.TeacherProfileName = "Professor"
	}
	return &UserService{repo: repo, profiles: profiles, audit: audit, validator: validate, logger: logger, cfg: cfg}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Me returns the user behind the authenticated claims.
func (s *UserService) Me(ctx context.Context, claims *models.JWTClaims) (*models.User, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	}
	return s.Get(ctx, claims.UserID)
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	profile, err := s.profiles.FindByID(ctx, req.ProfileID, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "profile does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return s.create(ctx, profile, newUserFields{
		name:               req.Name,
		registrationNumber: req.RegistrationNumber,
		nationalID:         req.NationalID,
		password:           req.Password,
		phone:              req.Phone,
	}, meta)
}

// CreateTeacher adds a user under the configured teacher profile.
func (s *UserService) CreateTeacher(ctx context.Context, req CreateTeacherRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create teacher payload")
	}
	profile, err := s.profiles.FindByLabel(ctx, s.cfg.TeacherProfileName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "profile \""+s.cfg.TeacherProfileName+"\" does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher profile")
	}
	return s.create(ctx, profile, newUserFields{
		name:               req.Name,
		registrationNumber: req.RegistrationNumber,
		nationalID:         req.NationalID,
		password:           req.Password,
		phone:              req.Phone,
	}, meta)
}

type newUserFields struct {
	name               string
	registrationNumber string
	nationalID         string
	password           string
	phone              *string
}

func (s *UserService) create(ctx context.Context, profile *models.Profile, fields newUserFields, meta models.RequestMeta) (*models.User, error) {
	if err := s.checkUnique(ctx, fields.registrationNumber, fields.nationalID, 0); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(fields.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	actor := actorOf(meta)
	user := &models.User{
		ProfileID:          profile.ID,
		ProfileName:        profile.Name,
		Name:               strings.TrimSpace(fields.name),
		RegistrationNumber: strings.TrimSpace(fields.registrationNumber),
		NationalID:         fields.nationalID,
		PasswordHash:       string(passwordHash),
		Phone:              fields.phone,
		Audit:              models.Audit{CreatedBy: actor, UpdatedBy: actor},
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration number or national id already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "registration_number": user.RegistrationNumber, "profile_id": user.ProfileID})
	s.recordAudit(ctx, models.AuditActionUserCreate, user.ID, nil, newPayload, meta)
	return user, nil
}

// Update replaces the user's attributes.
func (s *UserService) Update(ctx context.Context, id int64, req UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}
	return s.patch(ctx, id, PatchUserRequest{
		ProfileID:          &req.ProfileID,
		Name:               &req.Name,
		RegistrationNumber: &req.RegistrationNumber,
		NationalID:         &req.NationalID,
		Phone:              req.Phone,
	}, true, meta)
}

// Patch changes only the provided attributes.
func (s *UserService) Patch(ctx context.Context, id int64, req PatchUserRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid patch payload")
	}
	return s.patch(ctx, id, req, false, meta)
}

func (s *UserService) patch(ctx context.Context, id int64, req PatchUserRequest, replacePhone bool, meta models.RequestMeta) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldPayload, _ := json.Marshal(map[string]interface{}{"profile_id": user.ProfileID, "name": user.Name, "registration_number": user.RegistrationNumber})

	if req.ProfileID != nil && *req.ProfileID != user.ProfileID {
		profile, err := s.profiles.FindByID(ctx, *req.ProfileID, false)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "profile does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		user.ProfileID = profile.ID
		user.ProfileName = profile.Name
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	registration := user.RegistrationNumber
	if req.RegistrationNumber != nil {
		registration = strings.TrimSpace(*req.RegistrationNumber)
	}
	nationalID := user.NationalID
	if req.NationalID != nil {
		nationalID = *req.NationalID
	}
	if registration != user.RegistrationNumber || nationalID != user.NationalID {
		if err := s.checkUnique(ctx, changed(registration, user.RegistrationNumber), changed(nationalID, user.NationalID), user.ID); err != nil {
			return nil, err
		}
	}
	user.RegistrationNumber = registration
	user.NationalID = nationalID
	if replacePhone || req.Phone != nil {
		user.Phone = req.Phone
	}
	user.UpdatedBy = actorOf(meta)

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		case database.IsUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration number or national id already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"profile_id": user.ProfileID, "name": user.Name, "registration_number": user.RegistrationNumber})
	s.recordAudit(ctx, models.AuditActionUserUpdate, user.ID, oldPayload, newPayload, meta)
	return user, nil
}

// Delete performs a soft delete on a user.
func (s *UserService) Delete(ctx context.Context, id int64, meta models.RequestMeta) error {
	if err := s.repo.Delete(ctx, id, actorOf(meta)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.recordAudit(ctx, models.AuditActionUserDelete, id, nil, []byte(`{"record_status":"DELETED"}`), meta)
	return nil
}

// VerifyPassword reports whether password matches the user's stored hash.
func (s *UserService) VerifyPassword(ctx context.Context, id int64, password string) (bool, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil, nil
}

// checkUnique rejects values already held by another active user. Empty values are skipped.
func (s *UserService) checkUnique(ctx context.Context, registration, nationalID string, excludeID int64) error {
	if registration != "" {
		exists, err := s.repo.ExistsByRegistrationNumber(ctx, registration, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration number")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "registration number already in use")
		}
	}
	if nationalID != "" {
		exists, err := s.repo.ExistsByNationalID(ctx, nationalID, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check national id")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "national id already in use")
		}
	}
	return nil
}

func (s *UserService) recordAudit(ctx context.Context, action string, userID int64, oldValues, newValues []byte, meta models.RequestMeta) {
	if s.audit == nil {
		return
	}
	resourceID := strconv.FormatInt(userID, 10)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorOf(meta),
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}

// changed returns next when it differs from current, otherwise "".
func changed(next, current string) string {
	if next == current {
		return ""
	}
	return next
}
