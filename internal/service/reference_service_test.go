package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

func TestReferenceServiceCreateTrimsLabel(t *testing.T) {
	repo := newMemoryStatusRepo()
	svc := NewReferenceService[models.SubmissionStatus](repo, nil, zap.NewNop(), ReferenceConfig{Resource: "submission status", MaxLength: 50})

	item, err := svc.Create(context.Background(), "  Em revisão ", models.RequestMeta{ActorID: "9"})
	require.NoError(t, err)
	assert.Equal(t, "Em revisão", item.Description)
	require.NotNil(t, item.CreatedBy)
	assert.Equal(t, "9", *item.CreatedBy)
}

func TestReferenceServiceRejectsBadLabels(t *testing.T) {
	repo := newMemoryStatusRepo()
	svc := NewReferenceService[models.SubmissionStatus](repo, nil, zap.NewNop(), ReferenceConfig{Resource: "submission status", MaxLength: 50})

	for _, label := range []string{"", "   ", strings.Repeat("a", 51)} {
		_, err := svc.Create(context.Background(), label, models.RequestMeta{})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Empty(t, repo.rows)
}

func TestReferenceServiceLifecycle(t *testing.T) {
	repo := newMemoryStatusRepo("Pendente")
	svc := NewReferenceService[models.SubmissionStatus](repo, nil, zap.NewNop(), ReferenceConfig{Resource: "submission status"})
	ctx := context.Background()

	updated, err := svc.Update(ctx, 1, "Aguardando", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Aguardando", updated.Description)

	require.NoError(t, svc.Delete(ctx, 1, models.RequestMeta{}))
	_, err = svc.Get(ctx, 1, false)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	deleted, err := svc.Get(ctx, 1, true)
	require.NoError(t, err)
	assert.False(t, deleted.Active())

	err = svc.Delete(ctx, 1, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	restored, err := svc.Restore(ctx, 1, models.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, restored.Active())

	items, page, err := svc.List(ctx, models.ReferenceFilter{Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, &models.Pagination{Page: 2, PageSize: 5, TotalCount: 1}, page)
}

func TestReferenceServiceUpdateMissing(t *testing.T) {
	svc := NewReferenceService[models.SubmissionStatus](newMemoryStatusRepo(), nil, zap.NewNop(), ReferenceConfig{Resource: "submission status"})

	_, err := svc.Update(context.Background(), 42, "Enviado", models.RequestMeta{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "submission status not found", appErr.Message)
}

func TestSubmissionStatusServiceResetsCatalog(t *testing.T) {
	repo := newMemoryStatusRepo("Pendente", "Enviado", "Validado")
	catalog := NewStatusCatalog(repo, defaultStatusNames, zap.NewNop())
	svc := NewSubmissionStatusService(repo, catalog, nil, zap.NewNop())
	ctx := context.Background()

	_, err := catalog.ID(ctx, StatusRejected)
	require.Error(t, err)

	_, err = svc.Create(ctx, "Rejeitado", models.RequestMeta{})
	require.NoError(t, err)

	id, err := catalog.ID(ctx, StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	_, err = svc.Update(ctx, 4, "Recusado", models.RequestMeta{})
	require.NoError(t, err)
	_, err = catalog.ID(ctx, StatusRejected)
	assert.True(t, appErrors.Is(err, appErrors.ErrConfiguration))
}
