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

type submissionCommands interface {
	Get(ctx context.Context, id int64) (*models.Submission, error)
	Create(ctx context.Context, req service.SubmissionRequest, meta models.RequestMeta) (*models.Submission, error)
	Update(ctx context.Context, id int64, req service.SubmissionRequest, meta models.RequestMeta) (*models.Submission, error)
	Patch(ctx context.Context, id int64, req service.SubmissionPatch, meta models.RequestMeta) (*models.Submission, error)
	Delete(ctx context.Context, id int64, meta models.RequestMeta) error
	Restore(ctx context.Context, id int64, meta models.RequestMeta) (*models.Submission, error)
	Validate(ctx context.Context, id int64, req service.ValidateRequest, meta models.RequestMeta) (*models.Submission, error)
	ChangeStatus(ctx context.Context, id int64, req service.ChangeStatusRequest, meta models.RequestMeta) (*models.Submission, error)
}

type submissionQueries interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error)
	ByUser(ctx context.Context, userID *int64) ([]models.Submission, error)
	ByPeriod(ctx context.Context, month, year *int) ([]models.Submission, error)
	Pending(ctx context.Context, statusID *int64) ([]models.Submission, error)
	Overdue(ctx context.Context) ([]models.Submission, error)
	Stats(ctx context.Context, month, year *int) (*models.SubmissionStats, bool, error)
	Export(ctx context.Context, filter models.SubmissionFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// SubmissionHandler exposes the submission ledger and its lifecycle.
type SubmissionHandler struct {
	commands submissionCommands
	queries  submissionQueries
}

// NewSubmissionHandler constructs SubmissionHandler.
func NewSubmissionHandler(commands submissionCommands, queries submissionQueries) *SubmissionHandler {
	return &SubmissionHandler{commands: commands, queries: queries}
}

// List godoc
// @Summary List submissions
// @Tags Submissions
// @Produce json
// @Param stage_name query string false "Stage name contains"
// @Param subject_name query string false "Subject name contains"
// @Param user_name query string false "User name contains"
// @Param status_description query string false "Status description contains"
// @Param search query string false "Search user, registration number, subject, stage and notes"
// @Param stageId query int false "Stage"
// @Param subjectId query int false "Subject"
// @Param userId query int false "User"
// @Param statusId query int false "Status"
// @Param stageIds query string false "Comma separated stages"
// @Param subjectIds query string false "Comma separated subjects"
// @Param userIds query string false "Comma separated users"
// @Param statusIds query string false "Comma separated statuses"
// @Param month query int false "Reference month"
// @Param month_gte query int false "Reference month lower bound"
// @Param month_lte query int false "Reference month upper bound"
// @Param year query int false "Reference year"
// @Param year_gte query int false "Reference year lower bound"
// @Param year_lte query int false "Reference year upper bound"
// @Param school_date_from query string false "School submission date from (DD-MM-YYYY)"
// @Param school_date_to query string false "School submission date to (DD-MM-YYYY)"
// @Param deadline_from query string false "Deadline from (DD-MM-YYYY)"
// @Param deadline_to query string false "Deadline to (DD-MM-YYYY)"
// @Param has_notes query bool false "Only rows with or without notes"
// @Param overdue query bool false "Only overdue or not overdue rows"
// @Param pending_validation query bool false "Sent by the school but not validated"
// @Param include_deleted query bool false "Include soft-deleted rows"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "id, reference_month, reference_year, school_submission_date or submission_deadline; prefix with - for descending"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter, err := submissionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.queries.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

func submissionFilterFromQuery(c *gin.Context) (models.SubmissionFilter, error) {
	q := newQueryParser(c)
	filter := models.SubmissionFilter{
		StageID:           q.Int64("stageId"),
		SubjectID:         q.Int64("subjectId"),
		UserID:            q.Int64("userId"),
		StatusID:          q.Int64("statusId"),
		StageIDs:          q.IDs("stageIds"),
		SubjectIDs:        q.IDs("subjectIds"),
		UserIDs:           q.IDs("userIds"),
		StatusIDs:         q.IDs("statusIds"),
		Month:             q.Int("month"),
		MonthGTE:          q.Int("month_gte"),
		MonthLTE:          q.Int("month_lte"),
		Year:              q.Int("year"),
		YearGTE:           q.Int("year_gte"),
		YearLTE:           q.Int("year_lte"),
		SchoolDateFrom:    q.Date("school_date_from"),
		SchoolDateTo:      q.Date("school_date_to"),
		DeadlineFrom:      q.Date("deadline_from"),
		DeadlineTo:        q.Date("deadline_to"),
		StageName:         strings.TrimSpace(c.Query("stage_name")),
		SubjectName:       strings.TrimSpace(c.Query("subject_name")),
		UserName:          strings.TrimSpace(c.Query("user_name")),
		StatusDescription: strings.TrimSpace(c.Query("status_description")),
		Search:            strings.TrimSpace(c.Query("search")),
		HasNotes:          q.Bool("has_notes"),
		Overdue:           q.Bool("overdue"),
		PendingValidation: q.Bool("pending_validation"),
	}
	if deleted := q.Bool("include_deleted"); deleted != nil {
		filter.IncludeDeleted = *deleted
	}
	filter.Page, filter.PageSize = q.Page()
	filter.SortBy, filter.SortOrder = q.Sort()
	return filter, q.Err()
}

// ByUser godoc
// @Summary Submissions of a user
// @Tags Submissions
// @Produce json
// @Param userId query int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/by-user [get]
func (h *SubmissionHandler) ByUser(c *gin.Context) {
	q := newQueryParser(c)
	userID := q.Int64("userId")
	if err := q.Err(); err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.queries.ByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ByPeriod godoc
// @Summary Submissions of a reference period
// @Tags Submissions
// @Produce json
// @Param month query int true "Reference month"
// @Param year query int true "Reference year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/by-period [get]
func (h *SubmissionHandler) ByPeriod(c *gin.Context) {
	q := newQueryParser(c)
	month, year := q.Int("month"), q.Int("year")
	if err := q.Err(); err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.queries.ByPeriod(c.Request.Context(), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Pending godoc
// @Summary Submissions in a status
// @Description Defaults to the pending status
// @Tags Submissions
// @Produce json
// @Param statusId query int false "Status ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/pending [get]
func (h *SubmissionHandler) Pending(c *gin.Context) {
	q := newQueryParser(c)
	statusID := q.Int64("statusId")
	if err := q.Err(); err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.queries.Pending(c.Request.Context(), statusID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Overdue godoc
// @Summary Overdue submissions
// @Description Deadline before today and status still open
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/overdue [get]
func (h *SubmissionHandler) Overdue(c *gin.Context) {
	items, err := h.queries.Overdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Stats godoc
// @Summary Submission statistics
// @Tags Submissions
// @Produce json
// @Param month query int false "Reference month"
// @Param year query int false "Reference year"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/stats [get]
func (h *SubmissionHandler) Stats(c *gin.Context) {
	q := newQueryParser(c)
	month, year := q.Int("month"), q.Int("year")
	if err := q.Err(); err != nil {
		response.Error(c, err)
		return
	}
	stats, hit, err := h.queries.Stats(c.Request.Context(), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export submissions
// @Description Accepts the same filters as the list endpoint
// @Tags Submissions
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/export [get]
func (h *SubmissionHandler) Export(c *gin.Context) {
	filter, err := submissionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportCSV))))
	file, err := h.queries.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Get godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Param id path int true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.commands.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create submission
// @Description Month and year default to the current period and the status to pending
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body service.SubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req service.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.commands.Create(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Replace submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Submission ID"
// @Param payload body service.SubmissionRequest true "Submission payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id} [put]
func (h *SubmissionHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.commands.Update(c.Request.Context(), id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Patch godoc
// @Summary Update submission fields
// @Description Only fields present in the body change; dates can be cleared with null
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Submission ID"
// @Param payload body service.SubmissionPatch true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id} [patch]
func (h *SubmissionHandler) Patch(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.SubmissionPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.commands.Patch(c.Request.Context(), id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete submission
// @Tags Submissions
// @Param id path int true "Submission ID"
// @Success 204
// @Security BearerAuth
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.commands.Delete(c.Request.Context(), id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore submission
// @Tags Submissions
// @Produce json
// @Param id path int true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id}/restore [post]
func (h *SubmissionHandler) Restore(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.commands.Restore(c.Request.Context(), id, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Validate godoc
// @Summary Approve or reject a submission
// @Description Sets the validated or rejected status, overwrites the notes and stamps today's validation date
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Submission ID"
// @Param payload body service.ValidateRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id}/validate [post]
func (h *SubmissionHandler) Validate(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.commands.Validate(c.Request.Context(), id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// ChangeStatus godoc
// @Summary Move a submission to another status
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Submission ID"
// @Param payload body service.ChangeStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id}/change-status [post]
func (h *SubmissionHandler) ChangeStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.commands.ChangeStatus(c.Request.Context(), id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
