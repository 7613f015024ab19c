package service

import (
	"context"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
)

// AttachmentService fronts the external object-store collaborator
// (domain.AttachmentStore) with the one piece of business logic the core
// owns: who is allowed to mint a reference. Everything else — encoding,
// resizing, presigning — belongs to the store implementation.
type AttachmentService struct {
	store domain.AttachmentStore
	repo  domain.AttachmentRepository
}

// NewAttachmentService creates a new AttachmentService.
func NewAttachmentService(store domain.AttachmentStore, repo domain.AttachmentRepository) *AttachmentService {
	return &AttachmentService{store: store, repo: repo}
}

// Upload hands raw bytes to the object-store collaborator on behalf of an
// active group member, returning the opaque Attachment reference an
// Expense can later point at.
func (s *AttachmentService) Upload(ctx context.Context, groupID, uploaderID uuid.UUID, contentType string, data []byte) (*domain.Attachment, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.store.Upload(ctx, groupID, uploaderID, contentType, data)
}

// URLs resolves an attachment reference to its short-lived presigned
// display and thumbnail URLs.
func (s *AttachmentService) URLs(ctx context.Context, attachmentID uuid.UUID) (url, thumbnailURL string, err error) {
	if _, err := s.repo.GetByID(attachmentID); err != nil {
		return "", "", err
	}
	url, err = s.store.URL(ctx, attachmentID)
	if err != nil {
		return "", "", err
	}
	thumbnailURL, err = s.store.ThumbnailURL(ctx, attachmentID)
	if err != nil {
		return "", "", err
	}
	return url, thumbnailURL, nil
}
