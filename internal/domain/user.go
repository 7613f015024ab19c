package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered identity. Email and Name are cleared in place by the
// anonymization sweep rather than the row being deleted, so that
// Memberships, Expenses, and Settlements referencing the user keep their
// historical balance meaning.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Auth0ID             *string    `json:"-"`
	Email               *string    `json:"email"`
	Name                string     `json:"name"`
	PictureURL          *string    `json:"pictureUrl,omitempty"`
	PasswordHash        *string    `json:"-"`
	DeletionRequestedAt *time.Time `json:"deletionRequestedAt,omitempty"`
	DeletedAt           *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// IsDeletionPending reports whether a grace-period request is outstanding
// and has not yet been cancelled or swept.
func (u *User) IsDeletionPending() bool {
	return u.DeletionRequestedAt != nil && u.DeletedAt == nil
}

// UserRepository defines persistence operations for User.
type UserRepository interface {
	GetByID(id uuid.UUID) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByAuth0ID(auth0ID string) (*User, error)
	Create(user *User) (*User, error)
	Update(user *User) (*User, error)
	CreateOrGetByAuth0ID(auth0ID, email string, name, pictureURL *string) (*User, error)
	RequestDeletion(id uuid.UUID, requestedAt time.Time) error
	CancelDeletion(id uuid.UUID) error
	ListDeletionDue(olderThan time.Time) ([]*User, error)
	Anonymize(id uuid.UUID, anonymizedAt time.Time) error
}
