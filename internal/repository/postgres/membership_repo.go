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

// MembershipRepository implements domain.MembershipRepository using PostgreSQL.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

const membershipColumns = `id, group_id, user_id, role, status, display_name, joined_at, left_at`

func (r *MembershipRepository) scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	var leftAt pgtype.Timestamptz
	err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.Status, &m.DisplayName, &m.JoinedAt, &leftAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, err
	}
	m.LeftAt = fromPgTimestamptzPtr(leftAt)
	return &m, nil
}

func (r *MembershipRepository) GetByID(id uuid.UUID) (*domain.Membership, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id)
	return r.scanMembership(row)
}

func (r *MembershipRepository) GetActiveByGroupAndUser(groupID, userID uuid.UUID) (*domain.Membership, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+membershipColumns+` FROM memberships WHERE group_id = $1 AND user_id = $2 AND status = 'active'`,
		groupID, userID)
	return r.scanMembership(row)
}

func (r *MembershipRepository) GetAnyByGroupAndUser(groupID, userID uuid.UUID) (*domain.Membership, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+membershipColumns+` FROM memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID)
	return r.scanMembership(row)
}

func (r *MembershipRepository) ListActiveByGroup(groupID uuid.UUID) ([]*domain.Membership, error) {
	rows, err := r.pool.Query(context.Background(),
		`SELECT `+membershipColumns+` FROM memberships WHERE group_id = $1 AND status = 'active' ORDER BY joined_at`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Membership
	for rows.Next() {
		m, err := r.scanMembership(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *MembershipRepository) ListActiveByUser(userID uuid.UUID) ([]*domain.Membership, error) {
	rows, err := r.pool.Query(context.Background(),
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND status = 'active' ORDER BY joined_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Membership
	for rows.Next() {
		m, err := r.scanMembership(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *MembershipRepository) CountActiveOwners(groupID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM memberships WHERE group_id = $1 AND status = 'active' AND role = 'owner'`,
		groupID,
	).Scan(&count)
	return count, err
}

// Upsert inserts a fresh membership row, or, if one already exists for
// (group_id, user_id), reactivates it in place. The strict unique key
// precludes a second insert, so rejoin must UPDATE the existing row.
func (r *MembershipRepository) Upsert(membership *domain.Membership) (*domain.Membership, error) {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO memberships (group_id, user_id, role, status, display_name, joined_at)
		VALUES ($1, $2, $3, 'active', $4, now())
		ON CONFLICT (group_id, user_id) DO UPDATE SET
			status = 'active',
			left_at = NULL,
			display_name = EXCLUDED.display_name
		RETURNING `+membershipColumns,
		membership.GroupID, membership.UserID, membership.Role, membership.DisplayName,
	)
	return r.scanMembership(row)
}

func (r *MembershipRepository) UpdateRole(id uuid.UUID, role domain.Role) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE memberships SET role = $2 WHERE id = $1 AND status = 'active'`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *MembershipRepository) Leave(id uuid.UUID, leftAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE memberships SET status = 'left', left_at = $2 WHERE id = $1 AND status = 'active'`,
		id, leftAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}
