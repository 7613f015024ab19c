package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the membership's position in the group's role hierarchy,
// descending: Owner > Admin > Member > Viewer.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// roleRank gives Role a total order so callers can compare seniority
// without a chain of if/else.
var roleRank = map[Role]int{
	RoleOwner:  4,
	RoleAdmin:  3,
	RoleMember: 2,
	RoleViewer: 1,
}

// Outranks reports whether r is strictly senior to other.
func (r Role) Outranks(other Role) bool {
	return roleRank[r] > roleRank[other]
}

// AtLeast reports whether r is senior to or equal to other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// MembershipStatus tracks whether a membership row is the active row for
// its (group, user) pair or a historical left one.
type MembershipStatus string

const (
	MembershipStatusActive MembershipStatus = "active"
	MembershipStatusLeft   MembershipStatus = "left"
)

// Membership is a user's participation in a group. At most one row per
// (GroupID, UserID) may be active at a time; rejoining reactivates the
// existing row rather than inserting a new one.
type Membership struct {
	ID          uuid.UUID        `json:"id"`
	GroupID     uuid.UUID        `json:"groupId"`
	UserID      uuid.UUID        `json:"userId"`
	Role        Role             `json:"role"`
	Status      MembershipStatus `json:"status"`
	DisplayName string           `json:"displayName"`
	JoinedAt    time.Time        `json:"joinedAt"`
	LeftAt      *time.Time       `json:"leftAt,omitempty"`
}

// IsActive reports whether this membership currently counts toward the
// group's active-member set.
func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

// MembershipRepository defines persistence operations for Membership.
type MembershipRepository interface {
	GetByID(id uuid.UUID) (*Membership, error)
	GetActiveByGroupAndUser(groupID, userID uuid.UUID) (*Membership, error)
	// GetAnyByGroupAndUser returns the row regardless of status, active or
	// left, so rejoin can reactivate it instead of inserting a duplicate.
	GetAnyByGroupAndUser(groupID, userID uuid.UUID) (*Membership, error)
	ListActiveByGroup(groupID uuid.UUID) ([]*Membership, error)
	ListActiveByUser(userID uuid.UUID) ([]*Membership, error)
	CountActiveOwners(groupID uuid.UUID) (int, error)
	// Upsert inserts a fresh membership or reactivates an existing left row
	// for (GroupID, UserID) in one statement (ON CONFLICT DO UPDATE).
	Upsert(membership *Membership) (*Membership, error)
	UpdateRole(id uuid.UUID, role Role) error
	Leave(id uuid.UUID, leftAt time.Time) error
}
