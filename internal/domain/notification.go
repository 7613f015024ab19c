package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType enumerates the event tags the core emits.
type NotificationType string

const (
	NotificationExpenseAdded         NotificationType = "expense_added"
	NotificationSettlementRequested  NotificationType = "settlement_requested"
	NotificationSettlementConfirmed  NotificationType = "settlement_confirmed"
	NotificationSettlementRejected   NotificationType = "settlement_rejected"
	NotificationGroupDeleted         NotificationType = "group_deleted"
)

// Notification is an append-only, user-directed event record. It doubles
// as the system's audit trail: every settlement transition and expense
// mutation that affects another member writes one of these, adapted from
// the shape of a transport-facing event (Type/Entity/Payload/Timestamp)
// but persisted instead of pushed.
type Notification struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"userId"`
	Type           NotificationType  `json:"type"`
	ReferenceType  string            `json:"referenceType"`
	ReferenceID    uuid.UUID         `json:"referenceId"`
	AmountCents    *int64            `json:"amountMinorUnits,omitempty"`
	Currency       *string           `json:"currency,omitempty"`
	Reason         *string           `json:"reason,omitempty"`
	ReadAt         *time.Time        `json:"readAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// IsRead reports whether the user has acknowledged this notification.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// NotificationRepository defines persistence operations for Notification.
type NotificationRepository interface {
	Create(n *Notification) (*Notification, error)
	ListForUser(userID uuid.UUID, limit int) ([]*Notification, error)
	MarkRead(id uuid.UUID, readAt time.Time) error
}
