package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/material-submission-api/internal/models"
	"github.com/noah-isme/material-submission-api/pkg/response"
)

type referenceService[T any] interface {
	List(ctx context.Context, filter models.ReferenceFilter) ([]T, *models.Pagination, error)
	Get(ctx context.Context, id int64, includeDeleted bool) (*T, error)
	Create(ctx context.Context, label string, meta models.RequestMeta) (*T, error)
	Update(ctx context.Context, id int64, label string, meta models.RequestMeta) (*T, error)
	Delete(ctx context.Context, id int64, meta models.RequestMeta) error
	Restore(ctx context.Context, id int64, meta models.RequestMeta) (*T, error)
}

// ReferencePayload is the body accepted by every lookup resource.
// Profiles, stages and subjects send name; submission statuses send description.
type ReferencePayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (p ReferencePayload) label() string {
	if p.Name != nil {
		return *p.Name
	}
	if p.Description != nil {
		return *p.Description
	}
	return ""
}

// ReferenceHandler exposes CRUD endpoints for one lookup table.
// Routes: GET/POST /{resource}, GET/PUT/PATCH/DELETE /{resource}/{id}, POST /{resource}/{id}/restore.
type ReferenceHandler[T any] struct {
	service referenceService[T]
}

// NewReferenceHandler constructs a handler over a reference service.
func NewReferenceHandler[T any](svc referenceService[T]) *ReferenceHandler[T] {
	return &ReferenceHandler[T]{service: svc}
}

// Register mounts the routes on group. Writes go through the guards.
func (h *ReferenceHandler[T]) Register(group *gin.RouterGroup, writeGuards ...gin.HandlerFunc) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	writes := group.Group("", writeGuards...)
	writes.POST("", h.Create)
	writes.PUT("/:id", h.Update)
	writes.PATCH("/:id", h.Update)
	writes.DELETE("/:id", h.Delete)
	writes.POST("/:id/restore", h.Restore)
}

// List returns a page of rows filtered by search and include_deleted.
func (h *ReferenceHandler[T]) List(c *gin.Context) {
	q := newQueryParser(c)
	filter := models.ReferenceFilter{Search: strings.TrimSpace(c.Query("search"))}
	if deleted := q.Bool("include_deleted"); deleted != nil {
		filter.IncludeDeleted = *deleted
	}
	filter.Page, filter.PageSize = q.Page()
	filter.SortBy, filter.SortOrder = q.Sort()
	if err := q.Err(); err != nil {
		response.Error(c, err)
		return
	}

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get returns one row.
func (h *ReferenceHandler[T]) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	includeDeleted := c.Query("include_deleted") == "true"
	item, err := h.service.Get(c.Request.Context(), id, includeDeleted)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create inserts a row.
func (h *ReferenceHandler[T]) Create(c *gin.Context) {
	var req ReferencePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req.label(), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update renames a row. PUT and PATCH behave alike since the label is the only attribute.
func (h *ReferenceHandler[T]) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req ReferencePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.service.Update(c.Request.Context(), id, req.label(), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete soft-deletes a row.
func (h *ReferenceHandler[T]) Delete(c *gin.Context) {
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

// Restore reactivates a soft-deleted row.
func (h *ReferenceHandler[T]) Restore(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.Restore(c.Request.Context(), id, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
