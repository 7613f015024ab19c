package service

import (
	"testing"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/testutil"
	"github.com/google/uuid"
)

func newExpenseServiceFixture(t *testing.T) (*ExpenseService, *domain.Group, *domain.Membership, *domain.Membership, *testutil.MockNotificationRepository) {
	t.Helper()
	groupRepo := testutil.NewMockGroupRepository()
	membershipRepo := testutil.NewMockMembershipRepository()
	expenseRepo := testutil.NewMockExpenseRepository()
	notificationRepo := testutil.NewMockNotificationRepository()
	cache := balancecache.New(5 * time.Minute)

	group := &domain.Group{ID: uuid.New(), Name: "Roomies", DefaultCurrency: "USD"}
	groupRepo.AddGroup(group)

	creator := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "Alice", JoinedAt: time.Now()}
	other := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "Bob", JoinedAt: time.Now()}
	membershipRepo.AddMembership(creator)
	membershipRepo.AddMembership(other)

	svc := NewExpenseService(expenseRepo, membershipRepo, groupRepo, notificationRepo, cache)
	return svc, group, creator, other, notificationRepo
}

func TestExpenseService_CreateExpense_Success(t *testing.T) {
	svc, group, creator, other, notifications := newExpenseServiceFixture(t)

	items := []ExpenseItemInput{{
		Name: "Pizza", Quantity: 1, UnitValueCents: 4000,
		Splits: []ExpenseSplitInput{
			{MemberID: creator.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: other.ID, ShareMode: domain.ShareModeEqual},
		},
	}}
	payers := []ExpensePayerInput{{MemberID: creator.ID, AmountCents: 4000}}

	expense, err := svc.CreateExpense(group.ID, creator.ID, "Pizza night", nil, "USD", items, payers, time.Now(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expense.SubtotalCents != 4000 {
		t.Errorf("subtotal = %d, want 4000", expense.SubtotalCents)
	}
	if len(notifications.ByID) != 1 {
		t.Fatalf("expected 1 notification for the non-creator split, got %d", len(notifications.ByID))
	}
	for _, n := range notifications.ByID {
		if n.UserID != other.UserID {
			t.Errorf("notification sent to wrong user")
		}
		if n.Type != domain.NotificationExpenseAdded {
			t.Errorf("notification type = %s, want expense_added", n.Type)
		}
	}
}

func TestExpenseService_CreateExpense_RejectsPayerSumMismatch(t *testing.T) {
	svc, group, creator, other, _ := newExpenseServiceFixture(t)

	items := []ExpenseItemInput{{
		Name: "Pizza", Quantity: 1, UnitValueCents: 4000,
		Splits: []ExpenseSplitInput{
			{MemberID: creator.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: other.ID, ShareMode: domain.ShareModeEqual},
		},
	}}
	payers := []ExpensePayerInput{{MemberID: creator.ID, AmountCents: 3000}}

	_, err := svc.CreateExpense(group.ID, creator.ID, "Pizza night", nil, "USD", items, payers, time.Now(), nil)
	if err != domain.ErrPayerSumMismatch {
		t.Fatalf("expected ErrPayerSumMismatch, got %v", err)
	}
}

func TestExpenseService_CreateExpense_RejectsMemberNotInGroup(t *testing.T) {
	svc, group, creator, _, _ := newExpenseServiceFixture(t)
	stranger := uuid.New()

	items := []ExpenseItemInput{{
		Name: "Pizza", Quantity: 1, UnitValueCents: 4000,
		Splits: []ExpenseSplitInput{{MemberID: stranger, ShareMode: domain.ShareModeEqual}},
	}}
	payers := []ExpensePayerInput{{MemberID: creator.ID, AmountCents: 4000}}

	_, err := svc.CreateExpense(group.ID, creator.ID, "Pizza night", nil, "USD", items, payers, time.Now(), nil)
	if err != domain.ErrMemberNotInGroup {
		t.Fatalf("expected ErrMemberNotInGroup, got %v", err)
	}
}

func TestExpenseService_CreateExpense_RejectsCurrencyMismatch(t *testing.T) {
	svc, group, creator, other, _ := newExpenseServiceFixture(t)

	items := []ExpenseItemInput{{
		Name: "Pizza", Quantity: 1, UnitValueCents: 4000,
		Splits: []ExpenseSplitInput{
			{MemberID: creator.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: other.ID, ShareMode: domain.ShareModeEqual},
		},
	}}
	payers := []ExpensePayerInput{{MemberID: creator.ID, AmountCents: 4000}}

	_, err := svc.CreateExpense(group.ID, creator.ID, "Pizza night", nil, "EUR", items, payers, time.Now(), nil)
	if err != domain.ErrCurrencyMismatch {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

// Split of 0.01 among 3 parties yields [1,0,0] cents, deterministic
// largest-remainder by index.
func TestExpenseService_CreateExpense_PennySplitDeterministicRemainder(t *testing.T) {
	groupRepo := testutil.NewMockGroupRepository()
	membershipRepo := testutil.NewMockMembershipRepository()
	expenseRepo := testutil.NewMockExpenseRepository()
	notificationRepo := testutil.NewMockNotificationRepository()
	cache := balancecache.New(5 * time.Minute)

	group := &domain.Group{ID: uuid.New(), Name: "Trio", DefaultCurrency: "USD"}
	groupRepo.AddGroup(group)
	m1 := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "A", JoinedAt: time.Now()}
	m2 := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "B", JoinedAt: time.Now()}
	m3 := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "C", JoinedAt: time.Now()}
	membershipRepo.AddMembership(m1)
	membershipRepo.AddMembership(m2)
	membershipRepo.AddMembership(m3)

	svc := NewExpenseService(expenseRepo, membershipRepo, groupRepo, notificationRepo, cache)

	items := []ExpenseItemInput{{
		Name: "penny", Quantity: 1, UnitValueCents: 1,
		Splits: []ExpenseSplitInput{
			{MemberID: m1.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: m2.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: m3.ID, ShareMode: domain.ShareModeEqual},
		},
	}}
	payers := []ExpensePayerInput{{MemberID: m1.ID, AmountCents: 1}}

	expense, err := svc.CreateExpense(group.ID, m1.ID, "penny", nil, "USD", items, payers, time.Now(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	splits := expense.Items[0].Splits
	got := map[uuid.UUID]int64{}
	for _, s := range splits {
		got[s.MemberID] = s.ComputedCents
	}
	if got[m1.ID] != 1 || got[m2.ID] != 0 || got[m3.ID] != 0 {
		t.Fatalf("expected [1,0,0] by index order, got %+v", got)
	}
}

func TestExpenseService_DeleteExpense_ForbiddenForNonCreatorMember(t *testing.T) {
	svc, group, creator, other, _ := newExpenseServiceFixture(t)

	items := []ExpenseItemInput{{
		Name: "Pizza", Quantity: 1, UnitValueCents: 4000,
		Splits: []ExpenseSplitInput{
			{MemberID: creator.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: other.ID, ShareMode: domain.ShareModeEqual},
		},
	}}
	payers := []ExpensePayerInput{{MemberID: creator.ID, AmountCents: 4000}}
	expense, err := svc.CreateExpense(group.ID, creator.ID, "Pizza night", nil, "USD", items, payers, time.Now(), nil)
	if err != nil {
		t.Fatalf("setup: unexpected error: %v", err)
	}

	err = svc.DeleteExpense(other, expense.ID)
	if err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestExpenseService_DeleteExpense_AllowedForAdmin(t *testing.T) {
	svc, group, creator, other, _ := newExpenseServiceFixture(t)
	other.Role = domain.RoleAdmin

	items := []ExpenseItemInput{{
		Name: "Pizza", Quantity: 1, UnitValueCents: 4000,
		Splits: []ExpenseSplitInput{
			{MemberID: creator.ID, ShareMode: domain.ShareModeEqual},
			{MemberID: other.ID, ShareMode: domain.ShareModeEqual},
		},
	}}
	payers := []ExpensePayerInput{{MemberID: creator.ID, AmountCents: 4000}}
	expense, err := svc.CreateExpense(group.ID, creator.ID, "Pizza night", nil, "USD", items, payers, time.Now(), nil)
	if err != nil {
		t.Fatalf("setup: unexpected error: %v", err)
	}

	if err := svc.DeleteExpense(other, expense.ID); err != nil {
		t.Fatalf("expected admin delete to succeed, got %v", err)
	}
	got, err := svc.GetExpense(expense.ID)
	if err != nil {
		t.Fatalf("unexpected error re-fetching: %v", err)
	}
	if !got.IsDeleted() {
		t.Fatalf("expected expense to be soft-deleted")
	}
}

// Exact split with remainder distributed among the non-exact members.
func TestExpenseService_CreateExpense_ExactPlusWeightedResidual(t *testing.T) {
	svc, group, creator, other, _ := newExpenseServiceFixture(t)

	exact := int64(1500)
	items := []ExpenseItemInput{{
		Name: "Groceries", Quantity: 1, UnitValueCents: 4000,
		Splits: []ExpenseSplitInput{
			{MemberID: creator.ID, ShareMode: domain.ShareModeExact, ExactCents: &exact},
			{MemberID: other.ID, ShareMode: domain.ShareModeEqual},
		},
	}}
	payers := []ExpensePayerInput{{MemberID: creator.ID, AmountCents: 4000}}

	expense, err := svc.CreateExpense(group.ID, creator.ID, "Groceries", nil, "USD", items, payers, time.Now(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	splits := expense.Items[0].Splits
	got := map[uuid.UUID]int64{}
	for _, s := range splits {
		got[s.MemberID] = s.ComputedCents
	}
	if got[creator.ID] != 1500 {
		t.Errorf("creator exact share = %d, want 1500", got[creator.ID])
	}
	if got[other.ID] != 2500 {
		t.Errorf("other residual share = %d, want 2500", got[other.ID])
	}
}

func TestExpenseService_CreateExpense_RejectsExactExceedingTotal(t *testing.T) {
	svc, group, creator, other, _ := newExpenseServiceFixture(t)

	exact := int64(5000)
	items := []ExpenseItemInput{{
		Name: "Groceries", Quantity: 1, UnitValueCents: 4000,
		Splits: []ExpenseSplitInput{
			{MemberID: creator.ID, ShareMode: domain.ShareModeExact, ExactCents: &exact},
			{MemberID: other.ID, ShareMode: domain.ShareModeEqual},
		},
	}}
	payers := []ExpensePayerInput{{MemberID: creator.ID, AmountCents: 4000}}

	_, err := svc.CreateExpense(group.ID, creator.ID, "Groceries", nil, "USD", items, payers, time.Now(), nil)
	if err != domain.ErrExactExceedsItemTotal {
		t.Fatalf("expected ErrExactExceedsItemTotal, got %v", err)
	}
}
