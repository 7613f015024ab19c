package service

import (
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SettlementService drives the pending/confirmed/rejected/cancelled state
// machine. Only a confirmed settlement ever feeds the balance
// engine, so every transition invalidates the group's balance cache and
// the write itself is a single compare-and-set at the repository layer.
type SettlementService struct {
	settlementRepo   domain.SettlementRepository
	membershipRepo   domain.MembershipRepository
	groupRepo        domain.GroupRepository
	notificationRepo domain.NotificationRepository
	cache            *balancecache.Cache
}

func NewSettlementService(
	settlementRepo domain.SettlementRepository,
	membershipRepo domain.MembershipRepository,
	groupRepo domain.GroupRepository,
	notificationRepo domain.NotificationRepository,
	cache *balancecache.Cache,
) *SettlementService {
	return &SettlementService{
		settlementRepo:   settlementRepo,
		membershipRepo:   membershipRepo,
		groupRepo:        groupRepo,
		notificationRepo: notificationRepo,
		cache:            cache,
	}
}

// CreateSettlement records a pending settlement from the caller (payer) to
// another active member (payee) in the group's default currency.
func (s *SettlementService) CreateSettlement(groupID uuid.UUID, payerMemberID, payeeMemberID uuid.UUID, amountCents int64, note *string) (*domain.Settlement, error) {
	if payerMemberID == payeeMemberID {
		return nil, domain.ErrPayerEqualsPayee
	}
	if amountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return nil, err
	}

	payer, err := s.membershipRepo.GetByID(payerMemberID)
	if err != nil || !payer.IsActive() || payer.GroupID != groupID {
		return nil, domain.ErrMemberNotInGroup
	}
	payee, err := s.membershipRepo.GetByID(payeeMemberID)
	if err != nil || !payee.IsActive() || payee.GroupID != groupID {
		return nil, domain.ErrMemberNotInGroup
	}

	settlement := &domain.Settlement{
		GroupID:     groupID,
		PayerID:     payerMemberID,
		PayeeID:     payeeMemberID,
		AmountCents: amountCents,
		Currency:    group.DefaultCurrency,
		Status:      domain.SettlementPending,
		Note:        note,
	}

	created, err := s.settlementRepo.Create(settlement)
	if err != nil {
		return nil, err
	}

	s.notify(payee.UserID, domain.NotificationSettlementRequested, created)

	log.Info().
		Str("group_id", groupID.String()).
		Str("settlement_id", created.ID.String()).
		Msg("settlement requested")

	return created, nil
}

// GetSettlement returns a settlement by id.
func (s *SettlementService) GetSettlement(id uuid.UUID) (*domain.Settlement, error) {
	return s.settlementRepo.GetByID(id)
}

// ListSettlements returns every settlement recorded for a group.
func (s *SettlementService) ListSettlements(groupID uuid.UUID) ([]*domain.Settlement, error) {
	return s.settlementRepo.ListByGroup(groupID)
}

// Confirm accepts a pending settlement; only the payee may confirm. Once
// confirmed it participates in balance arithmetic, so the group's cache is
// invalidated in the same step.
func (s *SettlementService) Confirm(actor *domain.Membership, settlementID uuid.UUID) (*domain.Settlement, error) {
	return s.transition(actor, settlementID, domain.ActorPayee, domain.SettlementConfirmed, domain.NotificationSettlementConfirmed, s.payerUserID)
}

// Reject declines a pending settlement; only the payee may reject.
func (s *SettlementService) Reject(actor *domain.Membership, settlementID uuid.UUID) (*domain.Settlement, error) {
	return s.transition(actor, settlementID, domain.ActorPayee, domain.SettlementRejected, domain.NotificationSettlementRejected, s.payerUserID)
}

// Cancel withdraws a pending settlement; only the payer may cancel. No
// notification is emitted since the payee never acted on it.
func (s *SettlementService) Cancel(actor *domain.Membership, settlementID uuid.UUID) (*domain.Settlement, error) {
	return s.transition(actor, settlementID, domain.ActorPayer, domain.SettlementCancelled, "", nil)
}

func (s *SettlementService) transition(
	actor *domain.Membership,
	settlementID uuid.UUID,
	requiredActor domain.SettlementActor,
	target domain.SettlementStatus,
	notifyType domain.NotificationType,
	recipient func(*domain.Settlement) (uuid.UUID, error),
) (*domain.Settlement, error) {
	existing, err := s.settlementRepo.GetByID(settlementID)
	if err != nil {
		return nil, err
	}

	memberID := existing.PayeeID
	if requiredActor == domain.ActorPayer {
		memberID = existing.PayerID
	}
	if actor.ID != memberID {
		if requiredActor == domain.ActorPayee {
			return nil, domain.ErrNotSettlementPayee
		}
		return nil, domain.ErrNotSettlementPayer
	}

	if !domain.CanTransition(existing.Status, target, requiredActor) {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.settlementRepo.TransitionStatus(settlementID, existing.Status, target)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(updated.GroupID)

	if notifyType != "" && recipient != nil {
		if userID, err := recipient(updated); err == nil {
			s.notify(userID, notifyType, updated)
		}
	}

	log.Info().
		Str("settlement_id", settlementID.String()).
		Str("status", string(target)).
		Msg("settlement transitioned")

	return updated, nil
}

func (s *SettlementService) payerUserID(settlement *domain.Settlement) (uuid.UUID, error) {
	payer, err := s.membershipRepo.GetByID(settlement.PayerID)
	if err != nil {
		return uuid.Nil, err
	}
	return payer.UserID, nil
}

func (s *SettlementService) notify(userID uuid.UUID, notifType domain.NotificationType, settlement *domain.Settlement) {
	amount := settlement.AmountCents
	currency := settlement.Currency
	_, err := s.notificationRepo.Create(&domain.Notification{
		UserID:        userID,
		Type:          notifType,
		ReferenceType: "settlement",
		ReferenceID:   settlement.ID,
		AmountCents:   &amount,
		Currency:      &currency,
	})
	if err != nil {
		log.Warn().Err(err).Str("settlement_id", settlement.ID.String()).Msg("failed to emit settlement notification")
	}
}
