package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/material-submission-api/internal/middleware"
	"github.com/noah-isme/material-submission-api/internal/models"
	"github.com/noah-isme/material-submission-api/internal/service"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

type referenceServiceMock struct {
	filter models.ReferenceFilter
	label  string
	meta   models.RequestMeta
}

func (m *referenceServiceMock) List(ctx context.Context, filter models.ReferenceFilter) ([]models.Subject, *models.Pagination, error) {
	m.filter = filter
	return []models.Subject{{ID: 1, Name: "Matemática"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *referenceServiceMock) Get(ctx context.Context, id int64, includeDeleted bool) (*models.Subject, error) {
	if id != 1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return &models.Subject{ID: 1, Name: "Matemática"}, nil
}

func (m *referenceServiceMock) Create(ctx context.Context, label string, meta models.RequestMeta) (*models.Subject, error) {
	m.label, m.meta = label, meta
	return &models.Subject{ID: 2, Name: label}, nil
}

func (m *referenceServiceMock) Update(ctx context.Context, id int64, label string, meta models.RequestMeta) (*models.Subject, error) {
	m.label = label
	return &models.Subject{ID: id, Name: label}, nil
}

func (m *referenceServiceMock) Delete(ctx context.Context, id int64, meta models.RequestMeta) error {
	return nil
}

func (m *referenceServiceMock) Restore(ctx context.Context, id int64, meta models.RequestMeta) (*models.Subject, error) {
	return &models.Subject{ID: id}, nil
}

func newReferenceRouter(mock *referenceServiceMock, profile string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 3, ProfileName: profile})
		c.Next()
	})
	NewReferenceHandler[models.Subject](mock).Register(r.Group("/subjects"), middleware.RequireProfiles("Administrador"))
	return r
}

func TestReferenceHandlerRoutes(t *testing.T) {
	mock := &referenceServiceMock{}
	r := newReferenceRouter(mock, "Administrador")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subjects?search=mat&include_deleted=true&sort=-name", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReferenceFilter{Search: "mat", IncludeDeleted: true, Page: 1, PageSize: 20, SortBy: "name", SortOrder: "desc"}, mock.filter)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subjects", bytes.NewBufferString(`{"name":"Ciências"}`)))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Ciências", mock.label)
	assert.Equal(t, "3", mock.meta.ActorID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/subjects/2", bytes.NewBufferString(`{"description":"Física"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Física", mock.label)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/subjects/2", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subjects/7", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReferenceHandlerWritesNeedProfile(t *testing.T) {
	mock := &referenceServiceMock{}
	r := newReferenceRouter(mock, "Professor")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subjects/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subjects", bytes.NewBufferString(`{"name":"Artes"}`)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, mock.label)
}

type attachmentSenderMock struct {
	req     service.AttachmentRequest
	content []byte
}

func (m *attachmentSenderMock) SendAttachment(ctx context.Context, req service.AttachmentRequest, meta models.RequestMeta) (*service.AttachmentReceipt, error) {
	m.req = req
	data, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, err
	}
	m.content = data
	return &service.AttachmentReceipt{JobID: "job-1", Email: req.Email, Filename: req.Filename, Size: int64(len(data))}, nil
}

func TestMailHandlerSendAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &attachmentSenderMock{}
	h := NewMailHandler(mock)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("email", "coord@escola.gov.br"))
	part, err := form.CreateFormFile("file", "plano.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4 conteúdo"))
	require.NoError(t, form.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/mail/attachments", &body)
	c.Request.Header.Set("Content-Type", form.FormDataContentType())

	h.SendAttachment(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "coord@escola.gov.br", mock.req.Email)
	assert.Equal(t, "plano.pdf", mock.req.Filename)
	assert.Equal(t, []byte("%PDF-1.4 conteúdo"), mock.content)
}

func TestMailHandlerRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMailHandler(&attachmentSenderMock{})

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("email", "coord@escola.gov.br"))
	require.NoError(t, form.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/mail/attachments", &body)
	c.Request.Header.Set("Content-Type", form.FormDataContentType())

	h.SendAttachment(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, pingerStub{}).Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, pingerStub{err: context.DeadlineExceeded}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
