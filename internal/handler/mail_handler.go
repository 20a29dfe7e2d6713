package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/material-submission-api/internal/models"
	"github.com/noah-isme/material-submission-api/internal/service"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
	"github.com/noah-isme/material-submission-api/pkg/response"
)

type attachmentSender interface {
	SendAttachment(ctx context.Context, req service.AttachmentRequest, meta models.RequestMeta) (*service.AttachmentReceipt, error)
}

// MailHandler relays uploaded files by e-mail.
type MailHandler struct {
	mail attachmentSender
}

// NewMailHandler constructs MailHandler.
func NewMailHandler(mail attachmentSender) *MailHandler {
	return &MailHandler{mail: mail}
}

// SendAttachment godoc
// @Summary Send a file by e-mail
// @Description The file is queued and delivered asynchronously
// @Tags Mail
// @Accept multipart/form-data
// @Produce json
// @Param email formData string true "Recipient"
// @Param file formData file true "Attachment"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /mail/attachments [post]
func (h *MailHandler) SendAttachment(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	receipt, err := h.mail.SendAttachment(c.Request.Context(), service.AttachmentRequest{
		Email:    c.PostForm("email"),
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, receipt, nil)
}
