package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Attachment is an opaque reference to a receipt image stored by the
// external object-store backend. Attachments remain after an expense is
// soft-deleted. The core only ever stores this id on
// an Expense; it never inspects the bytes.
type Attachment struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"groupId"`
	UploaderID   uuid.UUID `json:"uploaderMemberId"`
	StorageKey   string    `json:"-"`
	ThumbnailKey *string   `json:"-"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AttachmentStore is the external collaborator's contract: upload raw
// bytes, get back an opaque reference, resolve a reference to a
// short-lived display URL later. The concrete implementation (S3-backed)
// lives in internal/attachment.
type AttachmentStore interface {
	Upload(ctx context.Context, groupID, uploaderID uuid.UUID, contentType string, data []byte) (*Attachment, error)
	URL(ctx context.Context, attachmentID uuid.UUID) (string, error)
	ThumbnailURL(ctx context.Context, attachmentID uuid.UUID) (string, error)
}

// AttachmentRepository persists Attachment metadata (not the bytes
// themselves, which live in the object store).
type AttachmentRepository interface {
	GetByID(id uuid.UUID) (*Attachment, error)
	Create(a *Attachment) (*Attachment, error)
}
