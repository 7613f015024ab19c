package service

import (
	"testing"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/testutil"
	"github.com/google/uuid"
)

func newSettlementServiceFixture(t *testing.T) (*SettlementService, *domain.Group, *domain.Membership, *domain.Membership) {
	t.Helper()
	groupRepo := testutil.NewMockGroupRepository()
	membershipRepo := testutil.NewMockMembershipRepository()
	settlementRepo := testutil.NewMockSettlementRepository()
	notificationRepo := testutil.NewMockNotificationRepository()
	cache := balancecache.New(5 * time.Minute)

	group := &domain.Group{ID: uuid.New(), Name: "Roomies", DefaultCurrency: "USD"}
	groupRepo.AddGroup(group)
	payer := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "Bob", JoinedAt: time.Now()}
	payee := &domain.Membership{ID: uuid.New(), GroupID: group.ID, UserID: uuid.New(), Role: domain.RoleMember, Status: domain.MembershipStatusActive, DisplayName: "Alice", JoinedAt: time.Now()}
	membershipRepo.AddMembership(payer)
	membershipRepo.AddMembership(payee)

	svc := NewSettlementService(settlementRepo, membershipRepo, groupRepo, notificationRepo, cache)
	return svc, group, payer, payee
}

func TestSettlementService_CreateSettlement_RejectsSamePayerPayee(t *testing.T) {
	svc, group, payer, _ := newSettlementServiceFixture(t)
	_, err := svc.CreateSettlement(group.ID, payer.ID, payer.ID, 1000, nil)
	if err != domain.ErrPayerEqualsPayee {
		t.Fatalf("expected ErrPayerEqualsPayee, got %v", err)
	}
}

func TestSettlementService_CreateSettlement_RejectsNonPositiveAmount(t *testing.T) {
	svc, group, payer, payee := newSettlementServiceFixture(t)
	_, err := svc.CreateSettlement(group.ID, payer.ID, payee.ID, 0, nil)
	if err != domain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSettlementService_Confirm_OnlyPayeeMayConfirm(t *testing.T) {
	svc, group, payer, payee := newSettlementServiceFixture(t)
	s, err := svc.CreateSettlement(group.ID, payer.ID, payee.ID, 2000, nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := svc.Confirm(payer, s.ID); err != domain.ErrNotSettlementPayee {
		t.Fatalf("expected ErrNotSettlementPayee when payer tries to confirm, got %v", err)
	}

	confirmed, err := svc.Confirm(payee, s.ID)
	if err != nil {
		t.Fatalf("expected payee confirm to succeed, got %v", err)
	}
	if confirmed.Status != domain.SettlementConfirmed {
		t.Fatalf("status = %s, want confirmed", confirmed.Status)
	}
}

func TestSettlementService_Cancel_OnlyPayerMayCancel(t *testing.T) {
	svc, group, payer, payee := newSettlementServiceFixture(t)
	s, err := svc.CreateSettlement(group.ID, payer.ID, payee.ID, 2000, nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := svc.Cancel(payee, s.ID); err != domain.ErrNotSettlementPayer {
		t.Fatalf("expected ErrNotSettlementPayer when payee tries to cancel, got %v", err)
	}

	cancelled, err := svc.Cancel(payer, s.ID)
	if err != nil {
		t.Fatalf("expected payer cancel to succeed, got %v", err)
	}
	if cancelled.Status != domain.SettlementCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
}

// State-machine terminality: once in a terminal state, no further
// transition may mutate the row.
func TestSettlementService_NoTransitionOutOfTerminalState(t *testing.T) {
	svc, group, payer, payee := newSettlementServiceFixture(t)
	s, err := svc.CreateSettlement(group.ID, payer.ID, payee.ID, 2000, nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := svc.Confirm(payee, s.ID); err != nil {
		t.Fatalf("setup confirm: %v", err)
	}

	if _, err := svc.Reject(payee, s.ID); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition rejecting an already-confirmed settlement, got %v", err)
	}
	if _, err := svc.Cancel(payer, s.ID); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition cancelling an already-confirmed settlement, got %v", err)
	}
}

// Concurrent confirm attempts: the compare-and-set in TransitionStatus must
// let exactly one of two racing confirmations succeed.
func TestSettlementService_ConcurrentConfirm_OnlyOneWins(t *testing.T) {
	svc, group, payer, payee := newSettlementServiceFixture(t)
	s, err := svc.CreateSettlement(group.ID, payer.ID, payee.ID, 2000, nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err1 := svc.Confirm(payee, s.ID)
	_, err2 := svc.Confirm(payee, s.ID)

	successes := 0
	if err1 == nil {
		successes++
	}
	if err2 == nil {
		successes++
	}
	if successes != 1 {
		t.Fatalf("expected exactly one confirm to succeed, got %d (err1=%v err2=%v)", successes, err1, err2)
	}
}

func TestSettlementService_CreateSettlement_RejectsMemberOutsideGroup(t *testing.T) {
	svc, group, payer, _ := newSettlementServiceFixture(t)
	outsider := uuid.New()
	if _, err := svc.CreateSettlement(group.ID, payer.ID, outsider, 1000, nil); err != domain.ErrMemberNotInGroup {
		t.Fatalf("expected ErrMemberNotInGroup, got %v", err)
	}
}
