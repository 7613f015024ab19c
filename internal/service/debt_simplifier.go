package service

import (
	"sort"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
)

// balanceTolerance is the ± minor-unit band within which a member's net
// balance is treated as settled and excluded from simplification.
const balanceTolerance = 1

// simplifyDebts implements the greedy min-cash-flow matcher: sort
// creditors and debtors by absolute balance descending, repeatedly pair
// the largest of each, and emit one edge per pairing until every balance
// is absorbed. This is the same largest-first greedy shape as the
// reference debt optimizer, adapted from float balances to minor-unit
// integers and from an unordered map to memberId-stable sort.
func simplifyDebts(balances []domain.MemberBalance) []domain.DebtEdge {
	type position struct {
		balance domain.MemberBalance
		amount  int64 // remaining amount to receive (creditor) or pay (debtor), always positive
	}

	var creditors, debtors []position
	for _, b := range balances {
		switch {
		case b.NetCents > balanceTolerance:
			creditors = append(creditors, position{balance: b, amount: b.NetCents})
		case b.NetCents < -balanceTolerance:
			debtors = append(debtors, position{balance: b, amount: -b.NetCents})
		}
	}

	sort.SliceStable(creditors, func(i, j int) bool {
		if creditors[i].amount != creditors[j].amount {
			return creditors[i].amount > creditors[j].amount
		}
		return creditors[i].balance.MemberID.String() < creditors[j].balance.MemberID.String()
	})
	sort.SliceStable(debtors, func(i, j int) bool {
		if debtors[i].amount != debtors[j].amount {
			return debtors[i].amount > debtors[j].amount
		}
		return debtors[i].balance.MemberID.String() < debtors[j].balance.MemberID.String()
	})

	var edges []domain.DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		transfer := debtors[i].amount
		if creditors[j].amount < transfer {
			transfer = creditors[j].amount
		}

		if transfer > 0 {
			edges = append(edges, domain.DebtEdge{
				FromMemberID:    debtors[i].balance.MemberID,
				FromUserID:      debtors[i].balance.UserID,
				FromDisplayName: debtors[i].balance.DisplayName,
				ToMemberID:      creditors[j].balance.MemberID,
				ToUserID:        creditors[j].balance.UserID,
				ToDisplayName:   creditors[j].balance.DisplayName,
				AmountCents:     transfer,
			})
		}

		debtors[i].amount -= transfer
		creditors[j].amount -= transfer

		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}

	return edges
}
