package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
	"github.com/noah-isme/material-submission-api/pkg/export"
)

type submissionReader interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	Stats(ctx context.Context, month, year *int, buckets models.StatsBuckets) (*models.SubmissionStats, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportFormat names a rendering of the ledger.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFile is a rendered ledger ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmissionQueryConfig tunes the read side.
type SubmissionQueryConfig struct {
	StatsTTL time.Duration
	// ExportLimit caps the rows rendered by Export.
	ExportLimit int
	// Now is the clock used for overdue cut-offs; nil means time.Now.
	Now func() time.Time
}

// SubmissionQueryService answers the read-only ledger queries.
type SubmissionQueryService struct {
	repo      submissionReader
	catalog   *StatusCatalog
	cache     *CacheService
	renderers map[ExportFormat]datasetRenderer
	logger    *zap.Logger
	cfg       SubmissionQueryConfig
	now       func() time.Time
}

// NewSubmissionQueryService constructs the query service.
func NewSubmissionQueryService(repo submissionReader, catalog *StatusCatalog, cache *CacheService, logger *zap.Logger, cfg SubmissionQueryConfig) *SubmissionQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportLimit <= 0 {
		cfg.ExportLimit = 5000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SubmissionQueryService{
		repo:    repo,
		catalog: catalog,
		cache:   cache,
		renderers: map[ExportFormat]datasetRenderer{
			ExportCSV: export.NewCSVExporter(),
			ExportPDF: export.NewPDFExporter(),
		},
		logger: logger,
		cfg:    cfg,
		now:    cfg.Now,
	}
}

// List returns a page of submissions matching filter.
func (s *SubmissionQueryService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	if err := s.prepare(ctx, &filter); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return nonNil(items), newPagination(filter.Page, filter.PageSize, total), nil
}

// ByUser returns every active submission of a user.
func (s *SubmissionQueryService) ByUser(ctx context.Context, userID *int64) ([]models.Submission, error) {
	if userID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "userId is required")
	}
	return s.all(ctx, models.SubmissionFilter{UserID: userID})
}

// ByPeriod returns every active submission of a reference month and year.
func (s *SubmissionQueryService) ByPeriod(ctx context.Context, month, year *int) ([]models.Submission, error) {
	if month == nil || year == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month and year are required")
	}
	return s.all(ctx, models.SubmissionFilter{Month: month, Year: year})
}

// Pending returns submissions in statusID, defaulting to the pending status.
func (s *SubmissionQueryService) Pending(ctx context.Context, statusID *int64) ([]models.Submission, error) {
	if statusID == nil {
		id, err := s.catalog.ID(ctx, StatusPending)
		if err != nil {
			return nil, err
		}
		statusID = &id
	}
	return s.all(ctx, models.SubmissionFilter{StatusID: statusID})
}

// Overdue returns submissions whose deadline is before today and whose status is still open.
// A deadline of today is not overdue.
func (s *SubmissionQueryService) Overdue(ctx context.Context) ([]models.Submission, error) {
	overdue := true
	return s.all(ctx, models.SubmissionFilter{Overdue: &overdue})
}

// Stats counts active submissions per status bucket, optionally within a period.
// The boolean reports whether the result came from cache.
func (s *SubmissionQueryService) Stats(ctx context.Context, month, year *int) (*models.SubmissionStats, bool, error) {
	if month != nil && (*month < 1 || *month > 12) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}

	key := statsCacheKey(month, year)
	var cached models.SubmissionStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	buckets, err := s.catalog.Buckets(ctx)
	if err != nil {
		return nil, false, err
	}
	stats, err := s.repo.Stats(ctx, month, year, buckets)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute submission stats")
	}
	s.cache.Set(ctx, key, stats, s.cfg.StatsTTL)
	return stats, false, nil
}

// Export renders the submissions matching filter in format.
func (s *SubmissionQueryService) Export(ctx context.Context, filter models.SubmissionFilter, format ExportFormat) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err := s.prepare(ctx, &filter); err != nil {
		return nil, err
	}
	filter.Page, filter.PageSize, filter.Unpaged = 0, 0, true

	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions for export")
	}
	if len(items) > s.cfg.ExportLimit {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export is limited to %d rows; narrow the filter", s.cfg.ExportLimit))
	}

	data, err := renderer.Render(submissionDataset(items))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("submissions exported", zap.String("format", string(format)), zap.Int("rows", len(items)))
	return &ExportFile{
		Filename:    fmt.Sprintf("submissions_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func (s *SubmissionQueryService) all(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	filter.Unpaged = true
	if err := s.prepare(ctx, &filter); err != nil {
		return nil, err
	}
	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return nonNil(items), nil
}

// prepare fills the overdue reference date and open statuses when the filter asks for them.
func (s *SubmissionQueryService) prepare(ctx context.Context, filter *models.SubmissionFilter) error {
	if filter.Overdue == nil {
		return nil
	}
	open, err := s.catalog.OpenIDs(ctx)
	if err != nil {
		return err
	}
	today := models.NewDate(s.now())
	filter.OverdueBefore = &today
	filter.OpenStatusIDs = open
	return nil
}

func statsCacheKey(month, year *int) string {
	part := func(v *int) string {
		if v == nil {
			return "all"
		}
		return strconv.Itoa(*v)
	}
	return "submissions:stats:" + part(month) + ":" + part(year)
}

func submissionDataset(items []models.Submission) export.Dataset {
	data := export.Dataset{
		Title: "Envios de material didático",
		Headers: []string{"ID", "Etapa", "Disciplina", "Usuário", "Status", "Mês", "Ano",
			"Envio escola", "Envio regional", "Validação", "Envio formador", "Prazo", "Observações"},
	}
	for _, item := range items {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.StageName,
			item.SubjectName,
			item.UserName,
			item.StatusDescription,
			item.ReferenceMonthName,
			strconv.Itoa(item.ReferenceYear),
			formatDate(item.SchoolSubmissionDate),
			formatDate(item.RegionalOfficeSubmissionDate),
			formatDate(item.ManagementValidationDate),
			formatDate(item.TrainerSubmissionDate),
			formatDate(item.SubmissionDeadline),
			strings.TrimSpace(notesOrEmpty(item.ManagementNotes)),
		})
	}
	return data
}

func formatDate(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func nonNil(items []models.Submission) []models.Submission {
	if items == nil {
		return []models.Submission{}
	}
	return items
}
