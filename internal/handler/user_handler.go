package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/material-submission-api/internal/middleware"
	"github.com/noah-isme/material-submission-api/internal/models"
	"github.com/noah-isme/material-submission-api/internal/service"
	"github.com/noah-isme/material-submission-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Me(ctx context.Context, claims *models.JWTClaims) (*models.User, error)
	Create(ctx context.Context, req service.CreateUserRequest, meta models.RequestMeta) (*models.User, error)
	CreateTeacher(ctx context.Context, req service.CreateTeacherRequest, meta models.RequestMeta) (*models.User, error)
	Update(ctx context.Context, id int64, req service.UpdateUserRequest, meta models.RequestMeta) (*models.User, error)
	Patch(ctx context.Context, id int64, req service.PatchUserRequest, meta models.RequestMeta) (*models.User, error)
	Delete(ctx context.Context, id int64, meta models.RequestMeta) error
	VerifyPassword(ctx context.Context, id int64, password string) (bool, error)
}

// UserHandler manages user endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param profileId query int false "Filter by profile"
// @Param profile_name query string false "Profile name contains"
// @Param name query string false "User name contains"
// @Param registration_number query string false "Registration number contains"
// @Param national_id query string false "Exact CPF"
// @Param search query string false "Search by name, registration number or CPF"
// @Param include_deleted query bool false "Include soft-deleted users"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field, prefix with - for descending"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	q := newQueryParser(c)
	filter := models.UserFilter{
		ProfileID:          q.Int64("profileId"),
		ProfileName:        strings.TrimSpace(c.Query("profile_name")),
		Name:               strings.TrimSpace(c.Query("name")),
		RegistrationNumber: strings.TrimSpace(c.Query("registration_number")),
		NationalID:         strings.TrimSpace(c.Query("national_id")),
		Search:             strings.TrimSpace(c.Query("search")),
	}
	if deleted := q.Bool("include_deleted"); deleted != nil {
		filter.IncludeDeleted = *deleted
	}
	filter.Page, filter.PageSize = q.Page()
	filter.SortBy, filter.SortOrder = q.Sort()
	if err := q.Err(); err != nil {
		response.Error(c, err)
		return
	}

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Me godoc
// @Summary Current user
// @Description Returns the authenticated user's record
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	user, err := h.service.Create(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// CreateTeacher godoc
// @Summary Create teacher
// @Description Creates a user bound to the teacher profile
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users/create-teacher [post]
func (h *UserHandler) CreateTeacher(c *gin.Context) {
	var req service.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	user, err := h.service.CreateTeacher(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Replace user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param payload body service.UpdateUserRequest true "User payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	user, err := h.service.Update(c.Request.Context(), id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Patch godoc
// @Summary Update user fields
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param payload body service.PatchUserRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [patch]
func (h *UserHandler) Patch(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.PatchUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	user, err := h.service.Patch(c.Request.Context(), id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete user
// @Tags Users
// @Param id path int true "User ID"
// @Success 204
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// VerifyPassword godoc
// @Summary Check a user's password
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param payload body map[string]string true "Password"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/verify-password [post]
func (h *UserHandler) VerifyPassword(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var payload struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err))
		return
	}
	ok, err := h.service.VerifyPassword(c.Request.Context(), id, payload.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"valid": ok}, nil)
}
