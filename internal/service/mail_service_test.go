package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
	"github.com/noah-isme/material-submission-api/pkg/jobs"
	"github.com/noah-isme/material-submission-api/pkg/mailer"
	"github.com/noah-isme/material-submission-api/pkg/storage"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)

type capturingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *capturingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type failingSender struct{ calls int }

func (s *failingSender) Send(ctx context.Context, msg mailer.Message) error {
	s.calls++
	return errors.New("smtp unavailable")
}

func newMailFixture(t *testing.T, sender mailer.Sender, cfg MailConfig) (*MailService, *capturingQueue, string, *MetricsService) {
	t.Helper()
	dir := t.TempDir()
	spool, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	metrics := NewMetricsService()
	svc := NewMailService(sender, spool, metrics, nil, zap.NewNop(), cfg)
	queue := &capturingQueue{}
	svc.SetQueue(queue)
	return svc, queue, dir, metrics
}

func spooledFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestMailServiceQueuesAndDelivers(t *testing.T) {
	sender := mailer.NewConsoleSender(zap.NewNop())
	svc, queue, dir, metrics := newMailFixture(t, sender, MailConfig{AllowedMIMEs: []string{"application/pdf", "image/png"}})

	receipt, err := svc.SendAttachment(context.Background(), AttachmentRequest{
		Email:    "coord@escola.gov.br",
		Filename: "../plano/aula.png",
		Size:     int64(len(pngBytes)),
		Content:  bytes.NewReader(pngBytes),
	}, models.RequestMeta{ActorID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", receipt.MIMEType)
	assert.Equal(t, "aula.png", receipt.Filename)
	assert.Equal(t, int64(len(pngBytes)), receipt.Size)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, []string{receipt.JobID + ".png"}, spooledFiles(t, dir))

	require.NoError(t, svc.Deliver(context.Background(), queue.jobs[0]))
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "coord@escola.gov.br", sent[0].To)
	assert.Equal(t, "Arquivo enviado pelo sistema", sent[0].Subject)
	assert.Equal(t, "Segue o arquivo em anexo.", sent[0].Body)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, pngBytes, sent[0].Attachments[0].Content)
	assert.Empty(t, spooledFiles(t, dir))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.mailDeliveries.WithLabelValues("success")))
}

func TestMailServiceRejectsDisallowedType(t *testing.T) {
	svc, queue, dir, _ := newMailFixture(t, mailer.NewConsoleSender(nil), MailConfig{AllowedMIMEs: []string{"application/pdf"}})

	_, err := svc.SendAttachment(context.Background(), AttachmentRequest{
		Email:    "coord@escola.gov.br",
		Filename: "notes.txt",
		Content:  bytes.NewBufferString("just some plain text"),
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
	assert.Empty(t, queue.jobs)
	assert.Empty(t, spooledFiles(t, dir))
}

func TestMailServiceAllowsChildTypes(t *testing.T) {
	svc, queue, _, _ := newMailFixture(t, mailer.NewConsoleSender(nil), MailConfig{AllowedMIMEs: []string{"text/plain"}})

	_, err := svc.SendAttachment(context.Background(), AttachmentRequest{
		Email:    "coord@escola.gov.br",
		Filename: "planilha.csv",
		Content:  bytes.NewBufferString("a,b,c\n1,2,3\n4,5,6\n"),
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Len(t, queue.jobs, 1)
}

func TestMailServiceEnforcesSize(t *testing.T) {
	svc, queue, dir, _ := newMailFixture(t, mailer.NewConsoleSender(nil), MailConfig{MaxFileSize: 8})

	_, err := svc.SendAttachment(context.Background(), AttachmentRequest{
		Email:    "coord@escola.gov.br",
		Filename: "big.png",
		Content:  bytes.NewReader(pngBytes),
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
	assert.Empty(t, queue.jobs)
	assert.Empty(t, spooledFiles(t, dir))

	_, err = svc.SendAttachment(context.Background(), AttachmentRequest{
		Email:    "coord@escola.gov.br",
		Filename: "big.png",
		Size:     1 << 20,
		Content:  bytes.NewReader(pngBytes),
	}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestMailServiceValidatesRecipient(t *testing.T) {
	svc, _, _, _ := newMailFixture(t, mailer.NewConsoleSender(nil), MailConfig{})

	for _, email := range []string{"", "not-an-email"} {
		_, err := svc.SendAttachment(context.Background(), AttachmentRequest{
			Email:    email,
			Filename: "aula.png",
			Content:  bytes.NewReader(pngBytes),
		}, models.RequestMeta{})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
	}
}

func TestMailServiceQueueFullDiscardsSpool(t *testing.T) {
	svc, queue, dir, _ := newMailFixture(t, mailer.NewConsoleSender(nil), MailConfig{})
	queue.err = jobs.ErrQueueFull

	_, err := svc.SendAttachment(context.Background(), AttachmentRequest{
		Email:    "coord@escola.gov.br",
		Filename: "aula.png",
		Content:  bytes.NewReader(pngBytes),
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, errCode(err))
	assert.Empty(t, spooledFiles(t, dir))
}

func TestMailServiceFailedDeliveryKeepsFileUntilGiveUp(t *testing.T) {
	sender := &failingSender{}
	svc, queue, dir, metrics := newMailFixture(t, sender, MailConfig{})

	_, err := svc.SendAttachment(context.Background(), AttachmentRequest{
		Email:    "coord@escola.gov.br",
		Filename: "aula.png",
		Content:  bytes.NewReader(pngBytes),
	}, models.RequestMeta{})
	require.NoError(t, err)

	err = svc.Deliver(context.Background(), queue.jobs[0])
	require.Error(t, err)
	assert.Equal(t, 1, sender.calls)
	assert.Len(t, spooledFiles(t, dir), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.mailDeliveries.WithLabelValues("failure")))

	svc.GiveUp(queue.jobs[0], err)
	assert.Empty(t, spooledFiles(t, dir))
}

func TestMailServiceCleanupSpool(t *testing.T) {
	svc, _, dir, _ := newMailFixture(t, mailer.NewConsoleSender(nil), MailConfig{SpoolTTL: time.Minute})
	stale := filepath.Join(dir, "stale.bin")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	svc.CleanupSpool()
	assert.Empty(t, spooledFiles(t, dir))
}
