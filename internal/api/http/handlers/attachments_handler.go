package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/investinkids/feedback-service/internal/api/dto"
	"github.com/investinkids/feedback-service/internal/media"
	apperrors "github.com/investinkids/feedback-service/pkg/util"
)

const presignExpiry = 15 * time.Minute

// AttachmentsHandler uploads report attachments to the media store.
type AttachmentsHandler struct {
	store *media.Store
}

// NewAttachmentsHandler constructs handler. The store may be nil when no
// object storage is configured.
func NewAttachmentsHandler(store *media.Store) *AttachmentsHandler {
	return &AttachmentsHandler{store: store}
}

// Upload POST /attachments (multipart, field "file").
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	if h.store == nil {
		return apperrors.NewDomainError("UNAVAILABLE", "attachment storage not configured", http.StatusServiceUnavailable, nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field 'file' required", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.MapError(err)
	}
	defer file.Close()

	ref, err := h.store.Upload(c.UserContext(), file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AttachmentUploadResponse{AttachmentRef: ref}})
}

// DownloadURL GET /attachments/:ref/url.
func (h *AttachmentsHandler) DownloadURL(c *fiber.Ctx) error {
	if h.store == nil {
		return apperrors.NewDomainError("UNAVAILABLE", "attachment storage not configured", http.StatusServiceUnavailable, nil)
	}
	ref := c.Params("ref")
	if ref == "" {
		return apperrors.NewValidationError("attachment ref required", nil)
	}

	url, err := h.store.PresignedURL(c.UserContext(), ref, presignExpiry)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"url": url}})
}
