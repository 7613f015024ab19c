package postgres

import (
	"context"
	"errors"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APITokenRepository implements domain.APITokenRepository using PostgreSQL.
type APITokenRepository struct {
	pool *pgxpool.Pool
}

func NewAPITokenRepository(pool *pgxpool.Pool) *APITokenRepository {
	return &APITokenRepository{pool: pool}
}

const apiTokenColumns = `id, user_id, description, token_hash, token_prefix, last_used_at, created_at, revoked_at`

func (r *APITokenRepository) scanAPIToken(row pgx.Row) (*domain.APIToken, error) {
	var t domain.APIToken
	var lastUsedAt, revokedAt pgtype.Timestamptz
	err := row.Scan(&t.ID, &t.UserID, &t.Description, &t.TokenHash, &t.TokenPrefix, &lastUsedAt, &t.CreatedAt, &revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAPITokenNotFound
		}
		return nil, err
	}
	t.LastUsedAt = fromPgTimestamptzPtr(lastUsedAt)
	t.RevokedAt = fromPgTimestamptzPtr(revokedAt)
	return &t, nil
}

func (r *APITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO api_tokens (user_id, description, token_hash, token_prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING `+apiTokenColumns,
		token.UserID, token.Description, token.TokenHash, token.TokenPrefix,
	)
	created, err := r.scanAPIToken(row)
	if err != nil {
		return err
	}
	*token = *created
	return nil
}

func (r *APITokenRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.APIToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+apiTokenColumns+` FROM api_tokens WHERE user_id = $1 AND revoked_at IS NULL ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*domain.APIToken
	for rows.Next() {
		t, err := r.scanAPIToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *APITokenRepository) GetByID(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*domain.APIToken, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+apiTokenColumns+` FROM api_tokens WHERE id = $1 AND user_id = $2`,
		id, userID)
	return r.scanAPIToken(row)
}

func (r *APITokenRepository) GetByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+apiTokenColumns+` FROM api_tokens WHERE token_hash = $1 AND revoked_at IS NULL`,
		hash)
	return r.scanAPIToken(row)
}

func (r *APITokenRepository) Revoke(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE api_tokens SET revoked_at = now() WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPITokenNotFound
	}
	return nil
}

func (r *APITokenRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_tokens SET last_used_at = now() WHERE id = $1`, id)
	return err
}
