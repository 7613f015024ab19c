package service

import (
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
)

const defaultNotificationLimit = 50

// NotificationService is a thin read/acknowledge wrapper around the
// append-only notification log; writers call the repository
// directly from the service that owns the triggering event.
type NotificationService struct {
	repo domain.NotificationRepository
}

func NewNotificationService(repo domain.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// ListForUser returns the user's most recent notifications, newest first.
func (s *NotificationService) ListForUser(userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return s.repo.ListForUser(userID, limit)
}

// MarkRead acknowledges a notification.
func (s *NotificationService) MarkRead(id uuid.UUID) error {
	return s.repo.MarkRead(id, time.Now())
}
