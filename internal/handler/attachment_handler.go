package handler

import (
	"io"
	"net/http"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// maxAttachmentBytes bounds the multipart body this handler will read into
// memory before handing bytes to the object-store collaborator.
const maxAttachmentBytes = 8 * 1024 * 1024

// AttachmentHandler handles receipt-attachment HTTP requests, fronting
// the object store only to hand the core an opaque attachment id to
// store on an Expense.
type AttachmentHandler struct {
	attachmentService *service.AttachmentService
	membershipService *service.MembershipService
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachmentService *service.AttachmentService, membershipService *service.MembershipService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService, membershipService: membershipService}
}

// AttachmentResponse is the reference handed back to the caller; it never
// carries a permanent URL since URLs are presigned and short-lived.
type AttachmentResponse struct {
	ID          string `json:"id"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// Upload handles POST /groups/:groupId/attachments, accepting a single
// multipart "file" field.
func (h *AttachmentHandler) Upload(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "missing file field")
	}
	if fileHeader.Size > maxAttachmentBytes {
		return Fail(c, domain.ErrInvalidInput)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return Fail(c, domain.ErrInvalidInput)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxAttachmentBytes+1))
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	attachment, err := h.attachmentService.Upload(c.Request().Context(), actor.GroupID, actor.ID, contentType, data)
	if err != nil {
		return Fail(c, err)
	}

	return Created(c, AttachmentResponse{
		ID:          attachment.ID.String(),
		ContentType: attachment.ContentType,
		SizeBytes:   attachment.SizeBytes,
	})
}

// AttachmentURLResponse carries the short-lived presigned URLs for an
// attachment's variants.
type AttachmentURLResponse struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// GetURL handles GET /groups/:groupId/attachments/:attachmentId, resolving
// an attachment reference to presigned display URLs.
func (h *AttachmentHandler) GetURL(c echo.Context) error {
	if _, err := h.actorMembership(c); err != nil {
		return Fail(c, err)
	}

	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid attachment id")
	}

	url, thumbnailURL, err := h.attachmentService.URLs(c.Request().Context(), attachmentID)
	if err != nil {
		return Fail(c, err)
	}

	return OK(c, AttachmentURLResponse{URL: url, ThumbnailURL: thumbnailURL})
}

func (h *AttachmentHandler) actorMembership(c echo.Context) (*domain.Membership, error) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	actor, err := h.membershipService.GetActive(groupID, userID)
	if err != nil {
		return nil, domain.ErrForbidden
	}
	return actor, nil
}
