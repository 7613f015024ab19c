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

// NotificationRepository implements domain.NotificationRepository using
// PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = `id, user_id, type, reference_type, reference_id, amount_cents, currency, reason, read_at, created_at`

func (r *NotificationRepository) scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var amountCents pgtype.Int8
	var currency, reason pgtype.Text
	var readAt pgtype.Timestamptz
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.ReferenceType, &n.ReferenceID, &amountCents, &currency, &reason, &readAt, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	n.AmountCents = fromPgInt8Ptr(amountCents)
	n.Currency = fromPgTextPtr(currency)
	n.Reason = fromPgTextPtr(reason)
	n.ReadAt = fromPgTimestamptzPtr(readAt)
	return &n, nil
}

func (r *NotificationRepository) Create(n *domain.Notification) (*domain.Notification, error) {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO notifications (user_id, type, reference_type, reference_id, amount_cents, currency, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+notificationColumns,
		n.UserID, n.Type, n.ReferenceType, n.ReferenceID, pgInt8Ptr(n.AmountCents), pgTextPtr(n.Currency), pgTextPtr(n.Reason),
	)
	return r.scanNotification(row)
}

func (r *NotificationRepository) ListForUser(userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(context.Background(),
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkRead(id uuid.UUID, readAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE notifications SET read_at = $2 WHERE id = $1 AND read_at IS NULL`, id, readAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
