package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseRepository implements domain.ExpenseRepository using PostgreSQL.
// Create and Update run each inside a single transaction spanning the
// expense row plus its owned payers, items, and splits, so a half-written
// expense is never visible to a balance read.
type ExpenseRepository struct {
	pool *pgxpool.Pool
}

func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{pool: pool}
}

const expenseColumns = `id, group_id, creator_member_id, name, category, currency, subtotal_cents, expense_date, attachment_id, created_at, updated_at, deleted_at`

func (r *ExpenseRepository) scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	var category pgtype.Text
	var attachmentID pgtype.UUID
	var deletedAt pgtype.Timestamptz
	err := row.Scan(&e.ID, &e.GroupID, &e.CreatorID, &e.Name, &category, &e.Currency, &e.SubtotalCents, &e.ExpenseDate, &attachmentID, &e.CreatedAt, &e.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrExpenseNotFound
		}
		return nil, err
	}
	e.Category = fromPgTextPtr(category)
	e.AttachmentID = fromPgUUIDPtr(attachmentID)
	e.DeletedAt = fromPgTimestamptzPtr(deletedAt)
	return &e, nil
}

func (r *ExpenseRepository) loadPayersItemsSplits(ctx context.Context, e *domain.Expense) error {
	payerRows, err := r.pool.Query(ctx,
		`SELECT id, expense_id, member_id, amount_cents, currency FROM expense_payers WHERE expense_id = $1`,
		e.ID)
	if err != nil {
		return err
	}
	for payerRows.Next() {
		var p domain.ExpensePayer
		if err := payerRows.Scan(&p.ID, &p.ExpenseID, &p.MemberID, &p.AmountCents, &p.Currency); err != nil {
			payerRows.Close()
			return err
		}
		e.Payers = append(e.Payers, p)
	}
	err = payerRows.Err()
	payerRows.Close()
	if err != nil {
		return err
	}

	itemRows, err := r.pool.Query(ctx,
		`SELECT id, expense_id, name, quantity, unit_value_cents, currency FROM expense_items WHERE expense_id = $1 ORDER BY id`,
		e.ID)
	if err != nil {
		return err
	}
	var items []domain.ExpenseItem
	for itemRows.Next() {
		var it domain.ExpenseItem
		if err := itemRows.Scan(&it.ID, &it.ExpenseID, &it.Name, &it.Quantity, &it.UnitValueCents, &it.Currency); err != nil {
			itemRows.Close()
			return err
		}
		items = append(items, it)
	}
	err = itemRows.Err()
	itemRows.Close()
	if err != nil {
		return err
	}

	for i := range items {
		splitRows, err := r.pool.Query(ctx,
			`SELECT id, item_id, member_id, share_mode, weight, exact_cents, computed_cents FROM expense_item_members WHERE item_id = $1`,
			items[i].ID)
		if err != nil {
			return err
		}
		for splitRows.Next() {
			var s domain.ExpenseItemMember
			var weight, exactCents pgtype.Int8
			if err := splitRows.Scan(&s.ID, &s.ItemID, &s.MemberID, &s.ShareMode, &weight, &exactCents, &s.ComputedCents); err != nil {
				splitRows.Close()
				return err
			}
			s.Weight = fromPgInt8Ptr(weight)
			s.ExactCents = fromPgInt8Ptr(exactCents)
			items[i].Splits = append(items[i].Splits, s)
		}
		err = splitRows.Err()
		splitRows.Close()
		if err != nil {
			return err
		}
	}
	e.Items = items
	return nil
}

func (r *ExpenseRepository) GetByID(id uuid.UUID) (*domain.Expense, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND deleted_at IS NULL`, id)
	e, err := r.scanExpense(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPayersItemsSplits(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *ExpenseRepository) ListByGroup(groupID uuid.UUID, filter domain.ExpenseFilter) ([]*domain.Expense, error) {
	ctx := context.Background()
	sql := `SELECT ` + expenseColumns + ` FROM expenses WHERE group_id = $1 AND deleted_at IS NULL`
	args := []any{groupID}

	if filter.From != nil {
		args = append(args, *filter.From)
		sql += fmt.Sprintf(" AND expense_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		sql += fmt.Sprintf(" AND expense_date <= $%d", len(args))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		sql += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.PayerID != nil {
		args = append(args, *filter.PayerID)
		sql += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM expense_payers p WHERE p.expense_id = expenses.id AND p.member_id = $%d)", len(args))
	}
	sql += " ORDER BY expense_date DESC"

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		e, err := r.scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, e := range expenses {
		if err := r.loadPayersItemsSplits(ctx, e); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

// ListActiveByGroupSince returns every non-deleted expense for a group,
// the balance engine's full input set.
func (r *ExpenseRepository) ListActiveByGroupSince(groupID uuid.UUID) ([]*domain.Expense, error) {
	return r.ListByGroup(groupID, domain.ExpenseFilter{})
}

func (r *ExpenseRepository) Create(expense *domain.Expense) (*domain.Expense, error) {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO expenses (group_id, creator_member_id, name, category, currency, subtotal_cents, expense_date, attachment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+expenseColumns,
		expense.GroupID, expense.CreatorID, expense.Name, expense.Category, expense.Currency,
		expense.SubtotalCents, expense.ExpenseDate, pgUUIDPtr(expense.AttachmentID),
	)
	created, err := r.scanExpense(row)
	if err != nil {
		return nil, err
	}

	if err := r.writeOwnedRows(ctx, tx, created, expense); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// writeOwnedRows inserts payers, items, and item splits for a freshly
// created or rewritten expense, assigning generated ids back onto created.
func (r *ExpenseRepository) writeOwnedRows(ctx context.Context, tx pgx.Tx, created *domain.Expense, source *domain.Expense) error {
	for _, p := range source.Payers {
		err := tx.QueryRow(ctx, `
			INSERT INTO expense_payers (expense_id, member_id, amount_cents, currency)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			created.ID, p.MemberID, p.AmountCents, p.Currency,
		).Scan(&p.ID)
		if err != nil {
			return err
		}
		p.ExpenseID = created.ID
		created.Payers = append(created.Payers, p)
	}

	for _, item := range source.Items {
		var itemID uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO expense_items (expense_id, name, quantity, unit_value_cents, currency)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			created.ID, item.Name, item.Quantity, item.UnitValueCents, item.Currency,
		).Scan(&itemID)
		if err != nil {
			return err
		}
		item.ID = itemID
		item.ExpenseID = created.ID

		written := make([]domain.ExpenseItemMember, 0, len(item.Splits))
		for _, split := range item.Splits {
			err := tx.QueryRow(ctx, `
				INSERT INTO expense_item_members (item_id, member_id, share_mode, weight, exact_cents, computed_cents)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				itemID, split.MemberID, split.ShareMode, pgInt8Ptr(split.Weight), pgInt8Ptr(split.ExactCents), split.ComputedCents,
			).Scan(&split.ID)
			if err != nil {
				return err
			}
			split.ItemID = itemID
			written = append(written, split)
		}
		item.Splits = written
		created.Items = append(created.Items, item)
	}
	return nil
}

// Update replaces an expense's owned rows wholesale: the payer/item/split
// set is small and always submitted in full by the client, so a
// delete-then-reinsert inside one transaction is simpler and cheaper than
// diffing.
func (r *ExpenseRepository) Update(expense *domain.Expense) (*domain.Expense, error) {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE expenses SET
			name = $2, category = $3, currency = $4, subtotal_cents = $5, expense_date = $6,
			attachment_id = $7, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+expenseColumns,
		expense.ID, expense.Name, expense.Category, expense.Currency, expense.SubtotalCents,
		expense.ExpenseDate, pgUUIDPtr(expense.AttachmentID),
	)
	updated, err := r.scanExpense(row)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM expense_payers WHERE expense_id = $1`, updated.ID); err != nil {
		return nil, err
	}
	// expense_item_members.item_id must carry ON DELETE CASCADE:
	// deleting the items is what clears their splits, and without the
	// cascade every edit would orphan the old split rows.
	if _, err := tx.Exec(ctx, `DELETE FROM expense_items WHERE expense_id = $1`, updated.ID); err != nil {
		return nil, err
	}

	if err := r.writeOwnedRows(ctx, tx, updated, expense); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ExpenseRepository) SoftDelete(id uuid.UUID, deletedAt time.Time) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE expenses SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, deletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}
