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

// RecurringRuleRepository implements domain.RecurringRuleRepository using
// PostgreSQL.
type RecurringRuleRepository struct {
	pool *pgxpool.Pool
}

func NewRecurringRuleRepository(pool *pgxpool.Pool) *RecurringRuleRepository {
	return &RecurringRuleRepository{pool: pool}
}

const recurringRuleColumns = `id, group_id, creator_member_id, name, category, amount_cents, currency, frequency,
	day_of_week, day_of_month, month_of_year, start_date, end_date, next_occurrence, last_generated_at,
	is_active, created_at, updated_at`

func (r *RecurringRuleRepository) scanRule(row pgx.Row) (*domain.RecurringRule, error) {
	var rule domain.RecurringRule
	var category pgtype.Text
	var dayOfWeek, dayOfMonth, monthOfYear pgtype.Int4
	var endDate, lastGeneratedAt pgtype.Timestamptz
	err := row.Scan(
		&rule.ID, &rule.GroupID, &rule.CreatorID, &rule.Name, &category, &rule.AmountCents, &rule.Currency, &rule.Frequency,
		&dayOfWeek, &dayOfMonth, &monthOfYear, &rule.StartDate, &endDate, &rule.NextOccurrence, &lastGeneratedAt,
		&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecurringRuleNotFound
		}
		return nil, err
	}
	rule.Category = fromPgTextPtr(category)
	rule.DayOfWeek = fromPgInt4Ptr(dayOfWeek)
	rule.DayOfMonth = fromPgInt4Ptr(dayOfMonth)
	rule.MonthOfYear = fromPgInt4Ptr(monthOfYear)
	rule.EndDate = fromPgTimestamptzPtr(endDate)
	rule.LastGeneratedAt = fromPgTimestamptzPtr(lastGeneratedAt)
	return &rule, nil
}

func (r *RecurringRuleRepository) loadPayersAndSplits(ctx context.Context, rule *domain.RecurringRule) error {
	payerRows, err := r.pool.Query(ctx,
		`SELECT id, recurring_rule_id, member_id, amount_cents FROM recurring_payers WHERE recurring_rule_id = $1`,
		rule.ID)
	if err != nil {
		return err
	}
	defer payerRows.Close()
	for payerRows.Next() {
		var p domain.RecurringPayer
		if err := payerRows.Scan(&p.ID, &p.RecurringRuleID, &p.MemberID, &p.AmountCents); err != nil {
			return err
		}
		rule.Payers = append(rule.Payers, p)
	}
	if err := payerRows.Err(); err != nil {
		return err
	}

	splitRows, err := r.pool.Query(ctx,
		`SELECT id, recurring_rule_id, member_id, share_mode, weight, exact_cents FROM recurring_splits WHERE recurring_rule_id = $1`,
		rule.ID)
	if err != nil {
		return err
	}
	defer splitRows.Close()
	for splitRows.Next() {
		var s domain.RecurringSplit
		var weight, exactCents pgtype.Int8
		if err := splitRows.Scan(&s.ID, &s.RecurringRuleID, &s.MemberID, &s.ShareMode, &weight, &exactCents); err != nil {
			return err
		}
		s.Weight = fromPgInt8Ptr(weight)
		s.ExactCents = fromPgInt8Ptr(exactCents)
		rule.Splits = append(rule.Splits, s)
	}
	return splitRows.Err()
}

func (r *RecurringRuleRepository) GetByID(id uuid.UUID) (*domain.RecurringRule, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+recurringRuleColumns+` FROM recurring_rules WHERE id = $1`, id)
	rule, err := r.scanRule(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPayersAndSplits(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *RecurringRuleRepository) ListByGroup(groupID uuid.UUID) ([]*domain.RecurringRule, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx,
		`SELECT `+recurringRuleColumns+` FROM recurring_rules WHERE group_id = $1 ORDER BY created_at DESC`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.RecurringRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if err := r.loadPayersAndSplits(ctx, rule); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

func (r *RecurringRuleRepository) ListDue(now time.Time) ([]*domain.RecurringRule, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx,
		`SELECT `+recurringRuleColumns+` FROM recurring_rules
		WHERE is_active = true AND next_occurrence <= $1
		ORDER BY next_occurrence`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.RecurringRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if err := r.loadPayersAndSplits(ctx, rule); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

func (r *RecurringRuleRepository) Create(rule *domain.RecurringRule) (*domain.RecurringRule, error) {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO recurring_rules (group_id, creator_member_id, name, category, amount_cents, currency, frequency,
			day_of_week, day_of_month, month_of_year, start_date, end_date, next_occurrence, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, true)
		RETURNING `+recurringRuleColumns,
		rule.GroupID, rule.CreatorID, rule.Name, rule.Category, rule.AmountCents, rule.Currency, rule.Frequency,
		pgInt4Ptr(rule.DayOfWeek), pgInt4Ptr(rule.DayOfMonth), pgInt4Ptr(rule.MonthOfYear),
		rule.StartDate, pgTimestamptzPtr(rule.EndDate), rule.NextOccurrence,
	)
	created, err := r.scanRule(row)
	if err != nil {
		return nil, err
	}

	for _, p := range rule.Payers {
		err := tx.QueryRow(ctx, `
			INSERT INTO recurring_payers (recurring_rule_id, member_id, amount_cents)
			VALUES ($1, $2, $3) RETURNING id`,
			created.ID, p.MemberID, p.AmountCents,
		).Scan(&p.ID)
		if err != nil {
			return nil, err
		}
		p.RecurringRuleID = created.ID
		created.Payers = append(created.Payers, p)
	}

	for _, s := range rule.Splits {
		err := tx.QueryRow(ctx, `
			INSERT INTO recurring_splits (recurring_rule_id, member_id, share_mode, weight, exact_cents)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			created.ID, s.MemberID, s.ShareMode, pgInt8Ptr(s.Weight), pgInt8Ptr(s.ExactCents),
		).Scan(&s.ID)
		if err != nil {
			return nil, err
		}
		s.RecurringRuleID = created.ID
		created.Splits = append(created.Splits, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *RecurringRuleRepository) Update(rule *domain.RecurringRule) (*domain.RecurringRule, error) {
	row := r.pool.QueryRow(context.Background(), `
		UPDATE recurring_rules SET
			name = $2, category = $3, amount_cents = $4, currency = $5, frequency = $6,
			day_of_week = $7, day_of_month = $8, month_of_year = $9, end_date = $10, updated_at = now()
		WHERE id = $1
		RETURNING `+recurringRuleColumns,
		rule.ID, rule.Name, rule.Category, rule.AmountCents, rule.Currency, rule.Frequency,
		pgInt4Ptr(rule.DayOfWeek), pgInt4Ptr(rule.DayOfMonth), pgInt4Ptr(rule.MonthOfYear), pgTimestamptzPtr(rule.EndDate),
	)
	return r.scanRule(row)
}

func (r *RecurringRuleRepository) Delete(id uuid.UUID) error {
	tag, err := r.pool.Exec(context.Background(), `DELETE FROM recurring_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecurringRuleNotFound
	}
	return nil
}

func (r *RecurringRuleRepository) Deactivate(id uuid.UUID) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE recurring_rules SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecurringRuleNotFound
	}
	return nil
}

// AdvanceAndRecordGeneration moves the rule's next_occurrence forward and
// records the occurrence in recurring_generations under a unique
// (rule_id, occurrence) constraint, so a racing second sweep's insert fails
// with a conflict rather than materializing the expense twice.
func (r *RecurringRuleRepository) AdvanceAndRecordGeneration(ruleID uuid.UUID, occurrence, nextOccurrence, generatedAt time.Time) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO recurring_generations (recurring_rule_id, occurrence, generated_at) VALUES ($1, $2, $3)`,
		ruleID, occurrence, generatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateOccurrence
		}
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE recurring_rules SET next_occurrence = $2, last_generated_at = $3, updated_at = now() WHERE id = $1`,
		ruleID, nextOccurrence, generatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecurringRuleNotFound
	}

	return tx.Commit(ctx)
}
