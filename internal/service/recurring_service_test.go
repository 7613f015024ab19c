package service

import (
	"testing"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecurringServiceFixture(t *testing.T) (*RecurringService, *testutil.MockRecurringRuleRepository, *testutil.MockExpenseRepository, *domain.Group, *domain.Membership, *domain.Membership) {
	t.Helper()
	groupRepo := testutil.NewMockGroupRepository()
	membershipRepo := testutil.NewMockMembershipRepository()
	ruleRepo := testutil.NewMockRecurringRuleRepository()
	expenseRepo := testutil.NewMockExpenseRepository()
	notificationRepo := testutil.NewMockNotificationRepository()
	cache := balancecache.New(5 * time.Minute)

	group := &domain.Group{ID: uuid.New(), Name: "Roomies", DefaultCurrency: "USD"}
	groupRepo.AddGroup(group)
	a := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "A", JoinedAt: time.Now()}
	b := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "B", JoinedAt: time.Now()}
	membershipRepo.AddMembership(a)
	membershipRepo.AddMembership(b)

	svc := NewRecurringService(ruleRepo, expenseRepo, membershipRepo, groupRepo, notificationRepo, cache)
	return svc, ruleRepo, expenseRepo, group, a, b
}

// A monthly rule anchored to dayOfMonth=31 generates one expense per sweep
// and clamps nextOccurrence to each month's last day.
func TestRecurringService_GenerateDue_MonthlyClampsAcrossSweeps(t *testing.T) {
	svc, ruleRepo, expenseRepo, group, a, b := newRecurringServiceFixture(t)

	dayOfMonth := 31
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	rule := &domain.RecurringRule{
		ID: uuid.New(), GroupID: group.ID, CreatorID: a.ID, Name: "Rent",
		AmountCents: 100000, Currency: "USD", Frequency: domain.FrequencyMonthly,
		DayOfMonth: &dayOfMonth, StartDate: start, NextOccurrence: start, IsActive: true,
		Payers: []domain.RecurringPayer{{MemberID: a.ID, AmountCents: 100000}},
		Splits: []domain.RecurringSplit{
			{MemberID: a.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: b.ID, ShareMode: domain.ShareModeEqual},
		},
	}
	ruleRepo.AddRule(rule)

	sweep1 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	n, err := svc.GenerateDue(sweep1)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	expenses, _ := expenseRepo.ListActiveByGroupSince(group.ID)
	require.Len(t, expenses, 1)
	assert.True(t, expenses[0].ExpenseDate.Equal(start), "expenseDate = %v, want %v", expenses[0].ExpenseDate, start)

	updated, err := ruleRepo.GetByID(rule.ID)
	require.NoError(t, err)
	wantNext := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	assert.True(t, updated.NextOccurrence.Equal(wantNext), "nextOccurrence = %v, want %v (clamped to Feb's last day)", updated.NextOccurrence, wantNext)

	sweep2 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	n, err = svc.GenerateDue(sweep2)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	expenses, _ = expenseRepo.ListActiveByGroupSince(group.ID)
	require.Len(t, expenses, 2)

	updated, err = ruleRepo.GetByID(rule.ID)
	require.NoError(t, err)
	wantNext = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.True(t, updated.NextOccurrence.Equal(wantNext), "nextOccurrence after second sweep = %v, want %v", updated.NextOccurrence, wantNext)
}

// A restart that misses several occurrences must backfill them one at a
// time in the same sweep.
func TestRecurringService_GenerateDue_BackfillsMissedDailyOccurrences(t *testing.T) {
	svc, ruleRepo, expenseRepo, group, a, b := newRecurringServiceFixture(t)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rule := &domain.RecurringRule{
		ID: uuid.New(), GroupID: group.ID, CreatorID: a.ID, Name: "Coffee",
		AmountCents: 500, Currency: "USD", Frequency: domain.FrequencyDaily,
		StartDate: start, NextOccurrence: start, IsActive: true,
		Payers: []domain.RecurringPayer{{MemberID: a.ID, AmountCents: 500}},
		Splits: []domain.RecurringSplit{
			{MemberID: a.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: b.ID, ShareMode: domain.ShareModeEqual},
		},
	}
	ruleRepo.AddRule(rule)

	now := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	n, err := svc.GenerateDue(now)
	require.NoError(t, err)
	assert.Equal(t, 5, n, "expected Jan 1-5 backfilled")

	expenses, _ := expenseRepo.ListActiveByGroupSince(group.ID)
	assert.Len(t, expenses, 5)
}

// A rule past its end date deactivates and is never generated.
func TestRecurringService_GenerateDue_DeactivatesExpiredRule(t *testing.T) {
	svc, ruleRepo, expenseRepo, group, a, b := newRecurringServiceFixture(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rule := &domain.RecurringRule{
		ID: uuid.New(), GroupID: group.ID, CreatorID: a.ID, Name: "Gym",
		AmountCents: 5000, Currency: "USD", Frequency: domain.FrequencyMonthly,
		StartDate: start, EndDate: &end, NextOccurrence: start, IsActive: true,
		Payers: []domain.RecurringPayer{{MemberID: a.ID, AmountCents: 5000}},
		Splits: []domain.RecurringSplit{
			{MemberID: a.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: b.ID, ShareMode: domain.ShareModeEqual},
		},
	}
	ruleRepo.AddRule(rule)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n, err := svc.GenerateDue(now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	expenses, _ := expenseRepo.ListActiveByGroupSince(group.ID)
	assert.Empty(t, expenses)

	updated, err := ruleRepo.GetByID(rule.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive, "an expired rule must be deactivated by the sweep")
}

// Two racing sweeps attempting the same occurrence: the idempotency key
// on (ruleId, occurrence) must let only the first materialize.
func TestRecurringService_GenerateDue_DuplicateOccurrenceStopsGeneration(t *testing.T) {
	svc, ruleRepo, expenseRepo, group, a, b := newRecurringServiceFixture(t)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rule := &domain.RecurringRule{
		ID: uuid.New(), GroupID: group.ID, CreatorID: a.ID, Name: "Coffee",
		AmountCents: 500, Currency: "USD", Frequency: domain.FrequencyDaily,
		StartDate: start, NextOccurrence: start, IsActive: true,
		Payers: []domain.RecurringPayer{{MemberID: a.ID, AmountCents: 500}},
		Splits: []domain.RecurringSplit{
			{MemberID: a.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: b.ID, ShareMode: domain.ShareModeEqual},
		},
	}
	ruleRepo.AddRule(rule)
	// Simulate a racing worker that already recorded this occurrence.
	ruleRepo.Occurrences[rule.ID.String()+"|"+start.UTC().Format(time.RFC3339)] = true

	n, err := svc.GenerateDue(start)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "occurrence was already recorded by the racing worker")

	expenses, _ := expenseRepo.ListActiveByGroupSince(group.ID)
	assert.Empty(t, expenses, "no duplicate expense may be materialized")
}

func TestRecurringService_CreateRule_RejectsPayerSumMismatch(t *testing.T) {
	svc, _, _, group, a, b := newRecurringServiceFixture(t)

	_, err := svc.CreateRule(
		group.ID, a.ID, "Rent", nil, "USD", 10000, domain.FrequencyMonthly,
		nil, nil, nil, time.Now(), nil,
		[]ExpensePayerInput{{MemberID: a.ID, AmountCents: 5000}},
		[]ExpenseSplitInput{
			{MemberID: a.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: b.ID, ShareMode: domain.ShareModeEqual},
		},
	)
	assert.ErrorIs(t, err, domain.ErrPayerSumMismatch)
}
