package domain

import (
	"time"

	"github.com/google/uuid"
)

// JoinCodeAlphabet excludes visually ambiguous characters (0/O, 1/I/L).
const JoinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// JoinCodeLength is the fixed length of a generated join code.
const JoinCodeLength = 8

// Group is the top-level container for memberships, expenses, settlements,
// and recurring rules. Only the owner may delete it; deletion is a
// soft-delete, never a row removal.
type Group struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Label           *string    `json:"label,omitempty"`
	OwnerUserID     uuid.UUID  `json:"ownerUserId"`
	JoinCode        string     `json:"joinCode"`
	DefaultCurrency string     `json:"defaultCurrency"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	DeletedAt       *time.Time `json:"-"`
}

// IsDeleted reports whether the group has been soft-deleted.
func (g *Group) IsDeleted() bool {
	return g.DeletedAt != nil
}

// GroupRepository defines persistence operations for Group.
type GroupRepository interface {
	GetByID(id uuid.UUID) (*Group, error)
	GetByJoinCode(code string) (*Group, error)
	ListForUser(userID uuid.UUID) ([]*Group, error)
	Create(group *Group) (*Group, error)
	Update(group *Group) (*Group, error)
	SoftDelete(id uuid.UUID, deletedAt time.Time) error
	JoinCodeExists(code string) (bool, error)
}
