package domain

import "github.com/google/uuid"

// MemberBalance is one member's position within a group as of the balance
// engine's as-of time.
type MemberBalance struct {
	MemberID    uuid.UUID `json:"memberId"`
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	PaidCents   int64     `json:"paidMinorUnits"`
	OwedCents   int64     `json:"owedMinorUnits"`
	NetCents    int64     `json:"netMinorUnits"`
}

// DebtEdge is one directed payment obligation produced by the debt
// simplifier.
type DebtEdge struct {
	FromMemberID    uuid.UUID `json:"fromMemberId"`
	FromUserID      uuid.UUID `json:"fromUserId"`
	FromDisplayName string    `json:"fromDisplayName"`
	ToMemberID      uuid.UUID `json:"toMemberId"`
	ToUserID        uuid.UUID `json:"toUserId"`
	ToDisplayName   string    `json:"toDisplayName"`
	AmountCents     int64     `json:"amountMinorUnits"`
}

// GroupBalances is the balance engine's full output for one group: every
// active member's net position plus the simplified debt edge list. This is
// the value the balance cache stores per group.
type GroupBalances struct {
	GroupID  uuid.UUID       `json:"groupId"`
	Currency string          `json:"currency"`
	Members  []MemberBalance `json:"members"`
	Edges    []DebtEdge      `json:"simplifiedDebts"`
}
