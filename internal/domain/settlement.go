package domain

import (
	"time"

	"github.com/google/uuid"
)

// SettlementStatus is the state of the settlement finite-state machine;
// pending is the only non-terminal state.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementConfirmed SettlementStatus = "confirmed"
	SettlementRejected  SettlementStatus = "rejected"
	SettlementCancelled SettlementStatus = "cancelled"
)

// IsTerminal reports whether no further transition may be applied to a
// settlement in this status.
func (s SettlementStatus) IsTerminal() bool {
	return s != SettlementPending
}

// Settlement is a recorded payment between two members that reduces debt
// once confirmed. Only confirmed settlements participate in balance
// arithmetic.
type Settlement struct {
	ID          uuid.UUID        `json:"id"`
	GroupID     uuid.UUID        `json:"groupId"`
	PayerID     uuid.UUID        `json:"payerMemberId"`
	PayeeID     uuid.UUID        `json:"payeeMemberId"`
	AmountCents int64            `json:"amountMinorUnits"`
	Currency    string           `json:"currency"`
	Status      SettlementStatus `json:"status"`
	Note        *string          `json:"note,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// SettlementActor identifies which side of a settlement an actor must be
// for a given transition to be legal.
type SettlementActor string

const (
	ActorPayer SettlementActor = "payer"
	ActorPayee SettlementActor = "payee"
)

// settlementTransitions enumerates the permitted actor for each legal
// pending -> terminal edge. Anything not listed here, or any transition out
// of an already-terminal status, is InvalidTransition.
var settlementTransitions = map[SettlementStatus]SettlementActor{
	SettlementConfirmed: ActorPayee,
	SettlementRejected:  ActorPayee,
	SettlementCancelled: ActorPayer,
}

// CanTransition reports whether actor is permitted to move a pending
// settlement to target.
func CanTransition(from SettlementStatus, target SettlementStatus, actor SettlementActor) bool {
	if from.IsTerminal() {
		return false
	}
	requiredActor, ok := settlementTransitions[target]
	if !ok {
		return false
	}
	return requiredActor == actor
}

// SettlementRepository defines persistence operations for Settlement.
type SettlementRepository interface {
	GetByID(id uuid.UUID) (*Settlement, error)
	ListByGroup(groupID uuid.UUID) ([]*Settlement, error)
	ListConfirmedByGroup(groupID uuid.UUID) ([]*Settlement, error)
	Create(settlement *Settlement) (*Settlement, error)
	// TransitionStatus performs a compare-and-set UPDATE ... WHERE
	// status = fromStatus, returning ErrInvalidTransition if zero rows
	// were affected.
	TransitionStatus(id uuid.UUID, fromStatus, toStatus SettlementStatus) (*Settlement, error)
}
