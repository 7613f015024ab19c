package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShareMode is the tagged variant controlling how a split's owed amount for
// an item is computed. Modeled as a string tag plus the mode-specific
// fields on ExpenseItemMember rather than an interface hierarchy, mirroring
// how this codebase models its other small closed tag sets (Role,
// MembershipStatus, SettlementStatus).
type ShareMode string

const (
	ShareModeEqual    ShareMode = "equal"
	ShareModeWeighted ShareMode = "weighted"
	ShareModeExact    ShareMode = "exact"
)

// Expense is a single recorded cost, split across one or more items and
// funded by one or more payers. Subtotal is derived from (and must equal)
// the sum of item totals; it is denormalized onto the row for cheap listing
// queries.
type Expense struct {
	ID           uuid.UUID  `json:"id"`
	GroupID      uuid.UUID  `json:"groupId"`
	CreatorID    uuid.UUID  `json:"creatorMemberId"`
	Name         string     `json:"name"`
	Category     *string    `json:"category,omitempty"`
	Currency     string     `json:"currency"`
	SubtotalCents int64     `json:"subtotalMinorUnits"`
	ExpenseDate  time.Time  `json:"expenseDate"`
	AttachmentID *uuid.UUID `json:"attachmentId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"-"`

	Payers []ExpensePayer `json:"payers"`
	Items  []ExpenseItem  `json:"items"`
}

// IsDeleted reports whether the expense has been soft-deleted and should be
// excluded from balance computation.
func (e *Expense) IsDeleted() bool {
	return e.DeletedAt != nil
}

// ExpensePayer records that a member fronted part (or all) of an expense.
// Σ(ExpensePayer.AmountCents) over an expense must equal its SubtotalCents.
type ExpensePayer struct {
	ID          uuid.UUID `json:"id"`
	ExpenseID   uuid.UUID `json:"expenseId"`
	MemberID    uuid.UUID `json:"memberId"`
	AmountCents int64     `json:"amountMinorUnits"`
	Currency    string    `json:"currency"`
}

// ExpenseItem is a single priced line of an expense. Total = Quantity *
// UnitValueCents. Σ(ExpenseItem totals) over an expense must equal its
// SubtotalCents.
type ExpenseItem struct {
	ID            uuid.UUID `json:"id"`
	ExpenseID     uuid.UUID `json:"expenseId"`
	Name          string    `json:"name"`
	Quantity      int64     `json:"quantity"`
	UnitValueCents int64    `json:"unitValueMinorUnits"`
	Currency      string    `json:"currency"`

	Splits []ExpenseItemMember `json:"splits"`
}

// Total returns the item's total cost in minor units.
func (i *ExpenseItem) Total() int64 {
	return i.Quantity * i.UnitValueCents
}

// ExpenseItemMember is one split: what a single member owes for a single
// item. Weight is meaningful only for ShareModeEqual (implicitly weight 1)
// and ShareModeWeighted; ExactCents is meaningful only for ShareModeExact.
// ComputedCents is the resolved owed amount after the split algebra runs,
// persisted so historical balances don't shift if algebra or currency
// metadata changes later.
type ExpenseItemMember struct {
	ID            uuid.UUID `json:"id"`
	ItemID        uuid.UUID `json:"itemId"`
	MemberID      uuid.UUID `json:"memberId"`
	ShareMode     ShareMode `json:"shareMode"`
	Weight        *int64    `json:"weight,omitempty"`
	ExactCents    *int64    `json:"exactMinorUnits,omitempty"`
	ComputedCents int64     `json:"computedMinorUnits"`
}

// ExpenseRepository defines persistence operations for Expense and its
// owned rows. Create/Update/SoftDelete are expected to run each under one
// transaction so an expense, its items, its splits, and its payers become
// visible together or not at all.
type ExpenseRepository interface {
	GetByID(id uuid.UUID) (*Expense, error)
	ListByGroup(groupID uuid.UUID, filter ExpenseFilter) ([]*Expense, error)
	ListActiveByGroupSince(groupID uuid.UUID) ([]*Expense, error)
	Create(expense *Expense) (*Expense, error)
	Update(expense *Expense) (*Expense, error)
	SoftDelete(id uuid.UUID, deletedAt time.Time) error
}

// ExpenseFilter narrows a group's expense listing. Zero values mean
// "unfiltered" for that dimension.
type ExpenseFilter struct {
	From     *time.Time
	To       *time.Time
	Category *string
	PayerID  *uuid.UUID
}
