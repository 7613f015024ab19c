package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken, PasswordResetToken, and EmailVerificationToken are opaque
// bearer secrets the core treats identically: a random high-entropy value
// is generated once, only its SHA-256 hash and a short display prefix are
// persisted, and the plaintext is never stored or logged.

// RefreshToken backs session renewal.
type RefreshToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PasswordResetToken backs the forgot-password flow. The service layer
// never reveals whether the target email exists.
type PasswordResetToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// EmailVerificationToken confirms a user controls the email on file.
type EmailVerificationToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TokenRepository defines persistence for the three single-use opaque
// token kinds. All are looked up by hash, never by id, since the caller
// only ever presents the plaintext secret.
type TokenRepository interface {
	CreateRefreshToken(t *RefreshToken) error
	GetRefreshTokenByHash(hash string) (*RefreshToken, error)
	RevokeRefreshToken(id uuid.UUID, revokedAt time.Time) error
	MarkRefreshTokenUsed(id uuid.UUID, usedAt time.Time) error

	CreatePasswordResetToken(t *PasswordResetToken) error
	GetPasswordResetTokenByHash(hash string) (*PasswordResetToken, error)
	MarkPasswordResetTokenUsed(id uuid.UUID, usedAt time.Time) error

	CreateEmailVerificationToken(t *EmailVerificationToken) error
	GetEmailVerificationTokenByHash(hash string) (*EmailVerificationToken, error)
	MarkEmailVerificationTokenUsed(id uuid.UUID, usedAt time.Time) error
}
