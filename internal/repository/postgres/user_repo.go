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

// UserRepository implements domain.UserRepository using PostgreSQL,
// against hand-written SQL rather than generated query structs (see
// DESIGN.md for the sqlc substitution).
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, auth0_id, email, name, picture_url, password_hash, deletion_requested_at, deleted_at, created_at, updated_at`

func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var auth0ID, email, pictureURL, passwordHash pgtype.Text
	var deletionRequestedAt, deletedAt pgtype.Timestamptz
	err := row.Scan(&u.ID, &auth0ID, &email, &u.Name, &pictureURL, &passwordHash, &deletionRequestedAt, &deletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.Auth0ID = fromPgTextPtr(auth0ID)
	u.Email = fromPgTextPtr(email)
	u.PictureURL = fromPgTextPtr(pictureURL)
	u.PasswordHash = fromPgTextPtr(passwordHash)
	u.DeletionRequestedAt = fromPgTimestamptzPtr(deletionRequestedAt)
	u.DeletedAt = fromPgTimestamptzPtr(deletedAt)
	return &u, nil
}

func (r *UserRepository) GetByID(id uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanUser(row)
}

func (r *UserRepository) GetByEmail(email string) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.scanUser(row)
}

func (r *UserRepository) GetByAuth0ID(auth0ID string) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+userColumns+` FROM users WHERE auth0_id = $1`, auth0ID)
	return r.scanUser(row)
}

func (r *UserRepository) Create(user *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO users (auth0_id, email, name, picture_url, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.Auth0ID, user.Email, user.Name, user.PictureURL, user.PasswordHash,
	)
	return r.scanUser(row)
}

func (r *UserRepository) Update(user *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(), `
		UPDATE users SET email = $2, name = $3, picture_url = $4, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+userColumns,
		user.ID, user.Email, user.Name, user.PictureURL,
	)
	return r.scanUser(row)
}

func (r *UserRepository) CreateOrGetByAuth0ID(auth0ID, email string, name, pictureURL *string) (*domain.User, error) {
	displayName := "New User"
	if name != nil {
		displayName = *name
	}
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO users (auth0_id, email, name, picture_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (auth0_id) DO UPDATE SET email = EXCLUDED.email
		RETURNING `+userColumns,
		auth0ID, email, displayName, pictureURL,
	)
	return r.scanUser(row)
}

func (r *UserRepository) RequestDeletion(id uuid.UUID, requestedAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE users SET deletion_requested_at = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id, requestedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CancelDeletion(id uuid.UUID) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE users SET deletion_requested_at = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListDeletionDue(olderThan time.Time) ([]*domain.User, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+userColumns+` FROM users
		WHERE deletion_requested_at IS NOT NULL AND deletion_requested_at < $1 AND deleted_at IS NULL`,
		olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Anonymize(id uuid.UUID, anonymizedAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(), `
		UPDATE users SET
			email = NULL,
			name = 'Deleted User',
			picture_url = NULL,
			password_hash = NULL,
			auth0_id = NULL,
			deleted_at = $2,
			updated_at = $2
		WHERE id = $1`,
		id, anonymizedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
