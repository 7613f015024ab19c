package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRepository implements domain.TokenRepository for the three
// single-use opaque token kinds (refresh, password reset, email
// verification), each backed by its own table with an identical shape.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) CreateRefreshToken(t *domain.RefreshToken) error {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		t.UserID, t.TokenHash, t.ExpiresAt,
	)
	return row.Scan(&t.ID, &t.CreatedAt)
}

func (r *TokenRepository) GetRefreshTokenByHash(hash string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	var usedAt, revokedAt pgtype.Timestamptz
	err := r.pool.QueryRow(context.Background(),
		`SELECT id, user_id, token_hash, expires_at, used_at, revoked_at, created_at
		 FROM refresh_tokens WHERE token_hash = $1`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &usedAt, &revokedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	t.UsedAt = fromPgTimestamptzPtr(usedAt)
	t.RevokedAt = fromPgTimestamptzPtr(revokedAt)
	return &t, nil
}

func (r *TokenRepository) RevokeRefreshToken(id uuid.UUID, revokedAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, revokedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) MarkRefreshTokenUsed(id uuid.UUID, usedAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE refresh_tokens SET used_at = $2 WHERE id = $1`, id, usedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) CreatePasswordResetToken(t *domain.PasswordResetToken) error {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		t.UserID, t.TokenHash, t.ExpiresAt,
	)
	return row.Scan(&t.ID, &t.CreatedAt)
}

func (r *TokenRepository) GetPasswordResetTokenByHash(hash string) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	var usedAt pgtype.Timestamptz
	err := r.pool.QueryRow(context.Background(),
		`SELECT id, user_id, token_hash, expires_at, used_at, created_at
		 FROM password_reset_tokens WHERE token_hash = $1`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	t.UsedAt = fromPgTimestamptzPtr(usedAt)
	return &t, nil
}

func (r *TokenRepository) MarkPasswordResetTokenUsed(id uuid.UUID, usedAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE password_reset_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, id, usedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) CreateEmailVerificationToken(t *domain.EmailVerificationToken) error {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO email_verification_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		t.UserID, t.TokenHash, t.ExpiresAt,
	)
	return row.Scan(&t.ID, &t.CreatedAt)
}

func (r *TokenRepository) GetEmailVerificationTokenByHash(hash string) (*domain.EmailVerificationToken, error) {
	var t domain.EmailVerificationToken
	var usedAt pgtype.Timestamptz
	err := r.pool.QueryRow(context.Background(),
		`SELECT id, user_id, token_hash, expires_at, used_at, created_at
		 FROM email_verification_tokens WHERE token_hash = $1`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	t.UsedAt = fromPgTimestamptzPtr(usedAt)
	return &t, nil
}

func (r *TokenRepository) MarkEmailVerificationTokenUsed(id uuid.UUID, usedAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE email_verification_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, id, usedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}
