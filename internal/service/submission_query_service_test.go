package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

func TestSubmissionQueryOverdueFillsReferenceDate(t *testing.T) {
	f := newSubmissionFixture()
	f.seed(1, 10, 100, 1, 3, 2024)

	items, err := f.query.Overdue(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)

	filter := f.ledger.lastFilter()
	require.NotNil(t, filter.Overdue)
	assert.True(t, *filter.Overdue)
	require.NotNil(t, filter.OverdueBefore)
	assert.Equal(t, "15-03-2024", filter.OverdueBefore.String())
	assert.Equal(t, []int64{1, 2}, filter.OpenStatusIDs)
	assert.True(t, filter.Unpaged)
}

func TestSubmissionQueryListNegatedOverdueNeedsCatalog(t *testing.T) {
	f := newSubmissionFixture("Pendente", "Validado", "Rejeitado")
	notOverdue := false

	_, _, err := f.query.List(context.Background(), models.SubmissionFilter{Overdue: &notOverdue})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfiguration.Code, errCode(err))

	items, page, err := f.query.List(context.Background(), models.SubmissionFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, 10, page.PageSize)
	assert.Nil(t, f.ledger.lastFilter().OverdueBefore)
}

func TestSubmissionQueryByUserRequiresID(t *testing.T) {
	f := newSubmissionFixture()

	_, err := f.query.ByUser(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	user := int64(100)
	_, err = f.query.ByUser(context.Background(), &user)
	require.NoError(t, err)
	assert.Equal(t, int64(100), *f.ledger.lastFilter().UserID)
}

func TestSubmissionQueryByPeriodRequiresBoth(t *testing.T) {
	f := newSubmissionFixture()
	month := 3

	_, err := f.query.ByPeriod(context.Background(), &month, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	year := 2024
	_, err = f.query.ByPeriod(context.Background(), &month, &year)
	require.NoError(t, err)
	filter := f.ledger.lastFilter()
	assert.Equal(t, 3, *filter.Month)
	assert.Equal(t, 2024, *filter.Year)
}

func TestSubmissionQueryPendingDefaultsToPendingStatus(t *testing.T) {
	f := newSubmissionFixture()

	_, err := f.query.Pending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *f.ledger.lastFilter().StatusID)

	sent := int64(2)
	_, err = f.query.Pending(context.Background(), &sent)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *f.ledger.lastFilter().StatusID)
}

func TestSubmissionQueryStatsCountsBuckets(t *testing.T) {
	f := newSubmissionFixture()
	f.seed(1, 10, 100, 1, 3, 2024)
	f.seed(1, 11, 100, 1, 3, 2024)
	f.seed(2, 10, 100, 3, 3, 2024)
	f.seed(2, 11, 100, 4, 3, 2024)
	f.seed(1, 10, 101, 2, 3, 2024)
	deleted := f.seed(1, 11, 101, 1, 3, 2024)
	f.ledger.rows[deleted].RecordStatus = models.RecordDeleted

	stats, hit, err := f.query.Stats(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Contains(t, f.cache.entries, "submissions:stats:all:all")
}

func TestSubmissionQueryStatsCacheInvalidatedByWrites(t *testing.T) {
	f := newSubmissionFixture()
	id := f.seed(1, 10, 100, 1, 3, 2024)
	ctx := context.Background()
	month, year := 3, 2024

	first, hit, err := f.query.Stats(ctx, &month, &year)
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = f.query.Stats(ctx, &month, &year)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.ledger.statsCalls)
	assert.Equal(t, 1, first.Pending)

	approved := true
	_, err = f.svc.Validate(ctx, id, ValidateRequest{Approved: &approved}, models.RequestMeta{})
	require.NoError(t, err)

	after, _, err := f.query.Stats(ctx, &month, &year)
	require.NoError(t, err)
	assert.Equal(t, 2, f.ledger.statsCalls)
	assert.Equal(t, 0, after.Pending)
	assert.Equal(t, 1, after.Approved)
}

func TestSubmissionQueryStatsRejectsBadMonth(t *testing.T) {
	f := newSubmissionFixture()
	month := 0

	_, _, err := f.query.Stats(context.Background(), &month, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
	assert.Zero(t, f.ledger.statsCalls)
}

func TestSubmissionQueryExportCSV(t *testing.T) {
	f := newSubmissionFixture()
	id := f.seed(1, 10, 100, 1, 3, 2024)
	f.ledger.rows[id].StageName = "Anos Iniciais"
	f.ledger.rows[id].SubmissionDeadline = date(t, "31-03-2024")

	file, err := f.query.Export(context.Background(), models.SubmissionFilter{Page: 3, PageSize: 5}, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "submissions_20240315_093000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.True(t, f.ledger.lastFilter().Unpaged)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID;Etapa;Disciplina"))
	assert.Contains(t, lines[1], "Anos Iniciais")
	assert.Contains(t, lines[1], "31-03-2024")
}

func TestSubmissionQueryExportLimits(t *testing.T) {
	f := newSubmissionFixture()
	f.seed(1, 10, 100, 1, 3, 2024)
	f.seed(1, 11, 100, 1, 3, 2024)
	f.query.cfg.ExportLimit = 1

	_, err := f.query.Export(context.Background(), models.SubmissionFilter{}, ExportPDF)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	_, err = f.query.Export(context.Background(), models.SubmissionFilter{}, ExportFormat("xlsx"))
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestSubmissionQueryExportPDF(t *testing.T) {
	f := newSubmissionFixture()
	f.seed(1, 10, 100, 1, 3, 2024)

	file, err := f.query.Export(context.Background(), models.SubmissionFilter{}, ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}
