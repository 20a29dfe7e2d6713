package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
	"github.com/noah-isme/material-submission-api/pkg/jobs"
	"github.com/noah-isme/material-submission-api/pkg/mailer"
)

const attachmentJobType = "mail.attachment"

type attachmentSpool interface {
	SaveStream(filename string, r io.Reader) (int64, error)
	ReadFile(filename string) ([]byte, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AttachmentRequest is a file to be mailed to Email.
type AttachmentRequest struct {
	Email    string `validate:"required,email,max=254"`
	Filename string `validate:"required,max=255"`
	Size     int64
	Content  io.Reader
}

// AttachmentReceipt acknowledges a queued delivery.
type AttachmentReceipt struct {
	JobID    string `json:"job_id"`
	Email    string `json:"email"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type attachmentJob struct {
	To        string
	Filename  string
	MIMEType  string
	SpoolName string
}

// MailConfig tunes the attachment relay.
type MailConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	SpoolTTL     time.Duration
	Subject      string
	Body         string
}

// MailService spools uploaded attachments and delivers them from a background queue.
type MailService struct {
	sender    mailer.Sender
	spool     attachmentSpool
	queue     jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       MailConfig
}

// NewMailService constructs a MailService. The queue is attached separately with SetQueue
// because the queue's handler is the service's own Deliver method.
func NewMailService(sender mailer.Sender, spool attachmentSpool, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg MailConfig) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if cfg.SpoolTTL <= 0 {
		cfg.SpoolTTL = 24 * time.Hour
	}
	if cfg.Subject == "" {
		cfg.Subject = "Arquivo enviado pelo sistema"
	}
	if cfg.Body == "" {
		cfg.Body = "Segue o arquivo em anexo."
	}
	return &MailService{sender: sender, spool: spool, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// SetQueue attaches the queue used by SendAttachment.
func (s *MailService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// SendAttachment checks and spools the file, then queues its delivery.
func (s *MailService) SendAttachment(ctx context.Context, req AttachmentRequest, meta models.RequestMeta) (*AttachmentReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attachment request")
	}
	if req.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if req.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSize))
	}

	id := uuid.NewString()
	spoolName := id + filepath.Ext(filepath.Base(req.Filename))
	written, err := s.spool.SaveStream(spoolName, io.LimitReader(req.Content, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}
	if written > s.cfg.MaxFileSize {
		s.discard(spoolName)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSize))
	}

	data, err := s.spool.ReadFile(spoolName)
	if err != nil {
		s.discard(spoolName)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read attachment")
	}
	detected := mimetype.Detect(data)
	if !s.allowed(detected) {
		s.discard(spoolName)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", detected.String()))
	}

	payload := attachmentJob{To: req.Email, Filename: filepath.Base(req.Filename), MIMEType: detected.String(), SpoolName: spoolName}
	if s.queue == nil {
		s.discard(spoolName)
		return nil, appErrors.Clone(appErrors.ErrInternal, "mail queue is not running")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: id, Type: attachmentJobType, Payload: payload}); err != nil {
		s.discard(spoolName)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue attachment")
	}

	s.logger.Info("attachment queued",
		zap.String("job_id", id),
		zap.String("to", req.Email),
		zap.String("mime", detected.String()),
		zap.Int64("bytes", written),
		zap.String("actor", meta.ActorID),
	)
	return &AttachmentReceipt{JobID: id, Email: req.Email, Filename: payload.Filename, MIMEType: payload.MIMEType, Size: written}, nil
}

// Deliver is the queue handler: it sends one spooled attachment and removes it on success.
func (s *MailService) Deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(attachmentJob)
	if !ok {
		s.logger.Error("unexpected mail job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	data, err := s.spool.ReadFile(payload.SpoolName)
	if err != nil {
		s.logger.Error("spooled attachment missing", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	err = s.sender.Send(ctx, mailer.Message{
		To:      payload.To,
		Subject: s.cfg.Subject,
		Body:    s.cfg.Body,
		Attachments: []mailer.Attachment{
			{Filename: payload.Filename, ContentType: payload.MIMEType, Content: data},
		},
	})
	s.metrics.RecordMailDelivery(err == nil)
	if err != nil {
		return err
	}
	s.discard(payload.SpoolName)
	s.logger.Info("attachment delivered", zap.String("job_id", job.ID), zap.String("to", payload.To))
	return nil
}

// GiveUp drops the spooled file of a job that will not be retried.
func (s *MailService) GiveUp(job jobs.Job, err error) {
	if payload, ok := job.Payload.(attachmentJob); ok {
		s.discard(payload.SpoolName)
	}
	s.logger.Error("attachment delivery abandoned", zap.String("job_id", job.ID), zap.Error(err))
}

// CleanupSpool removes spooled files older than the configured TTL.
func (s *MailService) CleanupSpool() {
	removed, err := s.spool.CleanupOlderThan(s.cfg.SpoolTTL)
	if err != nil {
		s.logger.Warn("spool cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("spool cleaned", zap.Int("removed", len(removed)))
	}
}

func (s *MailService) allowed(detected *mimetype.MIME) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for m := detected; m != nil; m = m.Parent() {
		for _, allowed := range s.cfg.AllowedMIMEs {
			if m.Is(strings.TrimSpace(allowed)) {
				return true
			}
		}
	}
	return false
}

func (s *MailService) discard(name string) {
	if err := s.spool.Delete(name); err != nil {
		s.logger.Warn("failed to delete spooled attachment", zap.String("file", name), zap.Error(err))
	}
}
