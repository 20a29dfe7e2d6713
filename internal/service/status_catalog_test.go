package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

// memoryStatusRepo is an in-memory submission_statuses table.
type memoryStatusRepo struct {
	rows    []models.SubmissionStatus
	lookups int
}

func newMemoryStatusRepo(descriptions ...string) *memoryStatusRepo {
	repo := &memoryStatusRepo{}
	for _, d := range descriptions {
		_, _ = repo.Create(context.Background(), d, nil)
	}
	return repo
}

func (m *memoryStatusRepo) find(id int64) *models.SubmissionStatus {
	for i := range m.rows {
		if m.rows[i].ID == id {
			return &m.rows[i]
		}
	}
	return nil
}

func (m *memoryStatusRepo) List(ctx context.Context, filter models.ReferenceFilter) ([]models.SubmissionStatus, int, error) {
	var out []models.SubmissionStatus
	for _, row := range m.rows {
		if !filter.IncludeDeleted && !row.Active() {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(row.Description), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, row)
	}
	return out, len(out), nil
}

func (m *memoryStatusRepo) FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.SubmissionStatus, error) {
	row := m.find(id)
	if row == nil || (!includeDeleted && !row.Active()) {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (m *memoryStatusRepo) FindByDescription(ctx context.Context, description string) (*models.SubmissionStatus, error) {
	m.lookups++
	for _, row := range m.rows {
		if row.Active() && strings.EqualFold(row.Description, strings.TrimSpace(description)) {
			clone := row
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStatusRepo) Create(ctx context.Context, label string, actor *string) (int64, error) {
	id := int64(len(m.rows) + 1)
	m.rows = append(m.rows, models.SubmissionStatus{ID: id, Description: label, Audit: models.Audit{RecordStatus: models.RecordActive, CreatedBy: actor}})
	return id, nil
}

func (m *memoryStatusRepo) Update(ctx context.Context, id int64, label string, actor *string) error {
	row := m.find(id)
	if row == nil || !row.Active() {
		return sql.ErrNoRows
	}
	row.Description = label
	row.UpdatedBy = actor
	return nil
}

func (m *memoryStatusRepo) SoftDelete(ctx context.Context, id int64, actor *string) error {
	row := m.find(id)
	if row == nil || !row.Active() {
		return sql.ErrNoRows
	}
	row.RecordStatus = models.RecordDeleted
	row.DeletedBy = actor
	return nil
}

func (m *memoryStatusRepo) Restore(ctx context.Context, id int64, actor *string) error {
	row := m.find(id)
	if row == nil || row.Active() {
		return sql.ErrNoRows
	}
	row.RecordStatus = models.RecordActive
	row.DeletedBy = nil
	return nil
}

var defaultStatusNames = map[StatusRole]string{
	StatusPending:   "Pendente",
	StatusSent:      "Enviado",
	StatusValidated: "Validado",
	StatusRejected:  "Rejeitado",
}

func TestStatusCatalogResolvesAndCaches(t *testing.T) {
	repo := newMemoryStatusRepo("PENDENTE", "Enviado", "Validado", "Rejeitado")
	catalog := NewStatusCatalog(repo, defaultStatusNames, zap.NewNop())

	id, err := catalog.ID(context.Background(), StatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = catalog.ID(context.Background(), StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lookups)
}

func TestStatusCatalogMissingStatus(t *testing.T) {
	repo := newMemoryStatusRepo("Pendente", "Enviado", "Validado")
	catalog := NewStatusCatalog(repo, defaultStatusNames, zap.NewNop())

	_, err := catalog.ID(context.Background(), StatusRejected)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConfiguration))

	_, err = catalog.Buckets(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrConfiguration))
}

func TestStatusCatalogUnconfiguredRole(t *testing.T) {
	repo := newMemoryStatusRepo("Pendente")
	catalog := NewStatusCatalog(repo, map[StatusRole]string{StatusPending: "Pendente"}, zap.NewNop())

	_, err := catalog.OpenIDs(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConfiguration))
	assert.Equal(t, 1, repo.lookups)
}

func TestStatusCatalogLoadToleratesMissingRows(t *testing.T) {
	repo := newMemoryStatusRepo("Pendente", "Enviado")
	catalog := NewStatusCatalog(repo, defaultStatusNames, zap.NewNop())

	require.NoError(t, catalog.Load(context.Background()))

	open, err := catalog.OpenIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, open)
}

func TestStatusCatalogResetRereads(t *testing.T) {
	repo := newMemoryStatusRepo("Pendente", "Enviado", "Validado")
	catalog := NewStatusCatalog(repo, defaultStatusNames, zap.NewNop())

	_, err := catalog.ID(context.Background(), StatusRejected)
	require.Error(t, err)

	_, _ = repo.Create(context.Background(), "Rejeitado", nil)
	catalog.Reset()

	buckets, err := catalog.Buckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatsBuckets{PendingID: 1, ApprovedID: 3, RejectedID: 4}, buckets)
}
