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

// GroupRepository implements domain.GroupRepository using PostgreSQL.
type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

const groupColumns = `id, name, label, owner_user_id, join_code, default_currency, created_at, updated_at, deleted_at`

func (r *GroupRepository) scanGroup(row pgx.Row) (*domain.Group, error) {
	var g domain.Group
	var label pgtype.Text
	var deletedAt pgtype.Timestamptz
	err := row.Scan(&g.ID, &g.Name, &label, &g.OwnerUserID, &g.JoinCode, &g.DefaultCurrency, &g.CreatedAt, &g.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	g.Label = fromPgTextPtr(label)
	g.DeletedAt = fromPgTimestamptzPtr(deletedAt)
	return &g, nil
}

func (r *GroupRepository) GetByID(id uuid.UUID) (*domain.Group, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+groupColumns+` FROM groups WHERE id = $1 AND deleted_at IS NULL`, id)
	return r.scanGroup(row)
}

func (r *GroupRepository) GetByJoinCode(code string) (*domain.Group, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+groupColumns+` FROM groups WHERE join_code = $1 AND deleted_at IS NULL`, code)
	return r.scanGroup(row)
}

func (r *GroupRepository) ListForUser(userID uuid.UUID) ([]*domain.Group, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT g.id, g.name, g.label, g.owner_user_id, g.join_code, g.default_currency, g.created_at, g.updated_at, g.deleted_at
		FROM groups g
		JOIN memberships m ON m.group_id = g.id
		WHERE m.user_id = $1 AND m.status = 'active' AND g.deleted_at IS NULL
		ORDER BY g.created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		g, err := r.scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepository) Create(group *domain.Group) (*domain.Group, error) {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO groups (name, label, owner_user_id, join_code, default_currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+groupColumns,
		group.Name, group.Label, group.OwnerUserID, group.JoinCode, group.DefaultCurrency,
	)
	return r.scanGroup(row)
}

func (r *GroupRepository) Update(group *domain.Group) (*domain.Group, error) {
	row := r.pool.QueryRow(context.Background(), `
		UPDATE groups SET name = $2, label = $3, join_code = $4, owner_user_id = $5, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+groupColumns,
		group.ID, group.Name, group.Label, group.JoinCode, group.OwnerUserID,
	)
	return r.scanGroup(row)
}

func (r *GroupRepository) SoftDelete(id uuid.UUID, deletedAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE groups SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, deletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepository) JoinCodeExists(code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM groups WHERE join_code = $1 AND deleted_at IS NULL)`, code,
	).Scan(&exists)
	return exists, err
}
