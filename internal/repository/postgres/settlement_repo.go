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

// SettlementRepository implements domain.SettlementRepository using PostgreSQL.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

const settlementColumns = `id, group_id, payer_member_id, payee_member_id, amount_cents, currency, status, note, created_at, updated_at`

func (r *SettlementRepository) scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var s domain.Settlement
	var note pgtype.Text
	err := row.Scan(&s.ID, &s.GroupID, &s.PayerID, &s.PayeeID, &s.AmountCents, &s.Currency, &s.Status, &note, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettlementNotFound
		}
		return nil, err
	}
	s.Note = fromPgTextPtr(note)
	return &s, nil
}

func (r *SettlementRepository) GetByID(id uuid.UUID) (*domain.Settlement, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id)
	return r.scanSettlement(row)
}

func (r *SettlementRepository) ListByGroup(groupID uuid.UUID) ([]*domain.Settlement, error) {
	rows, err := r.pool.Query(context.Background(),
		`SELECT `+settlementColumns+` FROM settlements WHERE group_id = $1 ORDER BY created_at DESC`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []*domain.Settlement
	for rows.Next() {
		s, err := r.scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

func (r *SettlementRepository) ListConfirmedByGroup(groupID uuid.UUID) ([]*domain.Settlement, error) {
	rows, err := r.pool.Query(context.Background(),
		`SELECT `+settlementColumns+` FROM settlements WHERE group_id = $1 AND status = $2 ORDER BY created_at`,
		groupID, domain.SettlementConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []*domain.Settlement
	for rows.Next() {
		s, err := r.scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

func (r *SettlementRepository) Create(settlement *domain.Settlement) (*domain.Settlement, error) {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO settlements (group_id, payer_member_id, payee_member_id, amount_cents, currency, status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+settlementColumns,
		settlement.GroupID, settlement.PayerID, settlement.PayeeID, settlement.AmountCents,
		settlement.Currency, domain.SettlementPending, settlement.Note,
	)
	return r.scanSettlement(row)
}

// TransitionStatus performs the compare-and-set the settlement state
// machine requires: the UPDATE only matches a row still in fromStatus, so a
// concurrent transition loses the race instead of silently overwriting it.
func (r *SettlementRepository) TransitionStatus(id uuid.UUID, fromStatus, toStatus domain.SettlementStatus) (*domain.Settlement, error) {
	row := r.pool.QueryRow(context.Background(), `
		UPDATE settlements SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+settlementColumns,
		id, fromStatus, toStatus,
	)
	s, err := r.scanSettlement(row)
	if err != nil {
		if errors.Is(err, domain.ErrSettlementNotFound) {
			// Distinguish "no such settlement" from "settlement exists but
			// isn't in fromStatus" so callers surface the right error.
			if _, getErr := r.GetByID(id); getErr == nil {
				return nil, domain.ErrInvalidTransition
			}
		}
		return nil, err
	}
	return s, nil
}
