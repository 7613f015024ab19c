package service

import (
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
)

// BalanceEngine computes a group's member balances and simplified debt
// graph from its expenses, item splits, and confirmed settlements. It is a
// pure function of repository state: given the same rows it always
// produces the same GroupBalances, so callers are free to cache the result.
type BalanceEngine struct {
	groupRepo      domain.GroupRepository
	membershipRepo domain.MembershipRepository
	expenseRepo    domain.ExpenseRepository
	settlementRepo domain.SettlementRepository
}

func NewBalanceEngine(
	groupRepo domain.GroupRepository,
	membershipRepo domain.MembershipRepository,
	expenseRepo domain.ExpenseRepository,
	settlementRepo domain.SettlementRepository,
) *BalanceEngine {
	return &BalanceEngine{
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		expenseRepo:    expenseRepo,
		settlementRepo: settlementRepo,
	}
}

// Compute runs the full balance algorithm for a group: load active
// members, accumulate paid/owed from every non-deleted expense and every
// confirmed settlement, derive net balances, and simplify the result into
// a minimal debt edge list.
func (e *BalanceEngine) Compute(groupID uuid.UUID) (*domain.GroupBalances, error) {
	group, err := e.groupRepo.GetByID(groupID)
	if err != nil {
		return nil, err
	}

	members, err := e.membershipRepo.ListActiveByGroup(groupID)
	if err != nil {
		return nil, err
	}

	type accumulator struct {
		member *domain.Membership
		paid   int64
		owed   int64
	}
	accByMember := make(map[uuid.UUID]*accumulator, len(members))
	// order preserves a deterministic "first member" for residual
	// reconciliation below; ListActiveByGroup already orders by joined_at.
	order := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		accByMember[m.ID] = &accumulator{member: m}
		order = append(order, m.ID)
	}

	expenses, err := e.expenseRepo.ListActiveByGroupSince(groupID)
	if err != nil {
		return nil, err
	}
	for _, exp := range expenses {
		if exp.IsDeleted() {
			continue
		}
		for _, payer := range exp.Payers {
			if acc, ok := accByMember[payer.MemberID]; ok {
				acc.paid += payer.AmountCents
			}
		}
		for _, item := range exp.Items {
			for _, split := range item.Splits {
				if acc, ok := accByMember[split.MemberID]; ok {
					acc.owed += split.ComputedCents
				}
			}
		}
	}

	settlements, err := e.settlementRepo.ListConfirmedByGroup(groupID)
	if err != nil {
		return nil, err
	}
	for _, s := range settlements {
		if acc, ok := accByMember[s.PayerID]; ok {
			acc.paid += s.AmountCents
		}
		if acc, ok := accByMember[s.PayeeID]; ok {
			acc.owed += s.AmountCents
		}
	}

	balances := make([]domain.MemberBalance, 0, len(members))
	var netSum int64
	for _, id := range order {
		acc := accByMember[id]
		net := acc.paid - acc.owed
		netSum += net
		balances = append(balances, domain.MemberBalance{
			MemberID:    acc.member.ID,
			UserID:      acc.member.UserID,
			DisplayName: acc.member.DisplayName,
			PaidCents:   acc.paid,
			OwedCents:   acc.owed,
			NetCents:    net,
		})
	}

	// Residual reconciliation: per-item remainder allocation
	// can leave Σnet off by a few minor units; the first member in
	// deterministic order absorbs it so Σnet is exactly zero.
	if len(balances) > 0 && netSum != 0 {
		balances[0].NetCents -= netSum
	}

	edges := simplifyDebts(balances)

	return &domain.GroupBalances{
		GroupID:  groupID,
		Currency: group.DefaultCurrency,
		Members:  balances,
		Edges:    edges,
	}, nil
}
