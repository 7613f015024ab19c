package service

import (
	"errors"
	"strings"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxGenerationsPerSweep bounds how many missed occurrences a single sweep
// will backfill for one rule, so a rule that sat inactive for years doesn't
// flood a group with thousands of materialized expenses in one pass.
const maxGenerationsPerSweep = 100

// RecurringService owns recurring-rule CRUD and the due-detection sweep
// that materializes an Expense for every occurrence a rule has reached.
// Split/payer algebra is shared with ExpenseService's buildPayers/
// resolveSplits since a rule's materialized expense is a single-item
// expense in every way that matters.
type RecurringService struct {
	ruleRepo         domain.RecurringRuleRepository
	expenseRepo      domain.ExpenseRepository
	membershipRepo   domain.MembershipRepository
	groupRepo        domain.GroupRepository
	notificationRepo domain.NotificationRepository
	cache            *balancecache.Cache
}

func NewRecurringService(
	ruleRepo domain.RecurringRuleRepository,
	expenseRepo domain.ExpenseRepository,
	membershipRepo domain.MembershipRepository,
	groupRepo domain.GroupRepository,
	notificationRepo domain.NotificationRepository,
	cache *balancecache.Cache,
) *RecurringService {
	return &RecurringService{
		ruleRepo:         ruleRepo,
		expenseRepo:      expenseRepo,
		membershipRepo:   membershipRepo,
		groupRepo:        groupRepo,
		notificationRepo: notificationRepo,
		cache:            cache,
	}
}

// CreateRule validates and stores a recurring rule definition. Payers and
// splits are validated against the current membership but stored as the
// raw definition (not resolved amounts), since membership may have shifted
// by the time a later occurrence actually generates.
func (s *RecurringService) CreateRule(
	groupID, creatorMemberID uuid.UUID,
	name string,
	category *string,
	currency string,
	amountCents int64,
	frequency domain.Frequency,
	dayOfWeek, dayOfMonth, monthOfYear *int,
	startDate time.Time,
	endDate *time.Time,
	payers []ExpensePayerInput,
	splits []ExpenseSplitInput,
) (*domain.RecurringRule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxExpenseNameLength {
		return nil, domain.ErrNameTooLong
	}
	if !domain.ValidFrequency(frequency) {
		return nil, domain.ErrInvalidFrequency
	}
	if amountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return nil, err
	}
	if currency != group.DefaultCurrency {
		return nil, domain.ErrCurrencyMismatch
	}

	members, err := s.membershipRepo.ListActiveByGroup(groupID)
	if err != nil {
		return nil, err
	}
	activeMembers := membershipSet(members)

	_, payerSum, err := buildPayers(payers, currency, activeMembers)
	if err != nil {
		return nil, err
	}
	if payerSum != amountCents {
		return nil, domain.ErrPayerSumMismatch
	}
	if _, err := resolveSplits(amountCents, splits, activeMembers); err != nil {
		return nil, err
	}

	rule := &domain.RecurringRule{
		GroupID:        groupID,
		CreatorID:      creatorMemberID,
		Name:           name,
		Category:       category,
		AmountCents:    amountCents,
		Currency:       currency,
		Frequency:      frequency,
		DayOfWeek:      dayOfWeek,
		DayOfMonth:     dayOfMonth,
		MonthOfYear:    monthOfYear,
		StartDate:      startDate,
		EndDate:        endDate,
		NextOccurrence: startDate,
		IsActive:       true,
		Payers:         recurringPayersFromInput(payers),
		Splits:         recurringSplitsFromInput(splits),
	}

	created, err := s.ruleRepo.Create(rule)
	if err != nil {
		return nil, err
	}

	log.Info().Str("group_id", groupID.String()).Str("rule_id", created.ID.String()).Msg("recurring rule created")

	return created, nil
}

// UpdateRule edits a rule's definition. Past materialized expenses are left
// untouched; only the rule's future behavior changes.
func (s *RecurringService) UpdateRule(
	actor *domain.Membership,
	ruleID uuid.UUID,
	name string,
	category *string,
	amountCents int64,
	dayOfWeek, dayOfMonth, monthOfYear *int,
	endDate *time.Time,
	payers []ExpensePayerInput,
	splits []ExpenseSplitInput,
) (*domain.RecurringRule, error) {
	existing, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return nil, err
	}
	if existing.CreatorID != actor.ID && !actor.Role.AtLeast(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if amountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	members, err := s.membershipRepo.ListActiveByGroup(existing.GroupID)
	if err != nil {
		return nil, err
	}
	activeMembers := membershipSet(members)

	_, payerSum, err := buildPayers(payers, existing.Currency, activeMembers)
	if err != nil {
		return nil, err
	}
	if payerSum != amountCents {
		return nil, domain.ErrPayerSumMismatch
	}
	if _, err := resolveSplits(amountCents, splits, activeMembers); err != nil {
		return nil, err
	}

	existing.Name = name
	existing.Category = category
	existing.AmountCents = amountCents
	existing.DayOfWeek = dayOfWeek
	existing.DayOfMonth = dayOfMonth
	existing.MonthOfYear = monthOfYear
	existing.EndDate = endDate
	existing.Payers = recurringPayersFromInput(payers)
	existing.Splits = recurringSplitsFromInput(splits)

	updated, err := s.ruleRepo.Update(existing)
	if err != nil {
		return nil, err
	}

	log.Info().Str("rule_id", ruleID.String()).Msg("recurring rule updated")

	return updated, nil
}

// GetRule returns a rule by id.
func (s *RecurringService) GetRule(id uuid.UUID) (*domain.RecurringRule, error) {
	return s.ruleRepo.GetByID(id)
}

// ListRules returns every rule defined for a group.
func (s *RecurringService) ListRules(groupID uuid.UUID) ([]*domain.RecurringRule, error) {
	return s.ruleRepo.ListByGroup(groupID)
}

// DeactivateRule stops future generation without deleting history.
func (s *RecurringService) DeactivateRule(actor *domain.Membership, ruleID uuid.UUID) error {
	existing, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return err
	}
	if existing.CreatorID != actor.ID && !actor.Role.AtLeast(domain.RoleAdmin) {
		return domain.ErrForbidden
	}
	return s.ruleRepo.Deactivate(ruleID)
}

// DeleteRule removes a rule definition entirely. Permitted for the rule's
// creator or a group admin/owner.
func (s *RecurringService) DeleteRule(actor *domain.Membership, ruleID uuid.UUID) error {
	existing, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return err
	}
	if existing.CreatorID != actor.ID && !actor.Role.AtLeast(domain.RoleAdmin) {
		return domain.ErrForbidden
	}
	return s.ruleRepo.Delete(ruleID)
}

// GenerateDue sweeps every rule at or past its next occurrence and
// materializes the missed expense(s), advancing each rule until it is no
// longer due or has expired. Returns the number of expenses generated.
func (s *RecurringService) GenerateDue(now time.Time) (int, error) {
	due, err := s.ruleRepo.ListDue(now)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, rule := range due {
		generated, err := s.generateRuleOccurrences(rule, now)
		if err != nil {
			log.Error().Err(err).Str("rule_id", rule.ID.String()).Msg("failed to generate recurring occurrences")
			continue
		}
		total += generated
	}

	return total, nil
}

func (s *RecurringService) generateRuleOccurrences(rule *domain.RecurringRule, now time.Time) (int, error) {
	if rule.HasExpired(now) {
		if err := s.ruleRepo.Deactivate(rule.ID); err != nil {
			return 0, err
		}
		rule.IsActive = false
		return 0, nil
	}

	generated := 0
	for i := 0; i < maxGenerationsPerSweep; i++ {
		if !rule.IsDue(now) {
			break
		}

		occurrence := rule.NextOccurrence
		next := rule.Advance()

		// Claim the occurrence before materializing: the (ruleId, occurrence)
		// uniqueness makes exactly one racing sweep win, and the loser stops
		// without double-booking the rule's remaining occurrences.
		if err := s.ruleRepo.AdvanceAndRecordGeneration(rule.ID, occurrence, next, now); err != nil {
			if errors.Is(err, domain.ErrDuplicateOccurrence) {
				break
			}
			return generated, err
		}

		rule.NextOccurrence = next
		rule.LastGeneratedAt = &now

		expense, err := s.materializeExpense(rule, occurrence)
		if err != nil {
			return generated, err
		}

		s.cache.Invalidate(rule.GroupID)
		generated++

		members, err := s.membershipRepo.ListActiveByGroup(rule.GroupID)
		if err == nil {
			notifyMembersOfExpense(s.notificationRepo, expense, members)
		}
	}
	return generated, nil
}

func (s *RecurringService) materializeExpense(rule *domain.RecurringRule, occurrence time.Time) (*domain.Expense, error) {
	members, err := s.membershipRepo.ListActiveByGroup(rule.GroupID)
	if err != nil {
		return nil, err
	}
	activeMembers := membershipSet(members)

	payerInputs := make([]ExpensePayerInput, len(rule.Payers))
	for i, p := range rule.Payers {
		payerInputs[i] = ExpensePayerInput{MemberID: p.MemberID, AmountCents: p.AmountCents}
	}
	splitInputs := make([]ExpenseSplitInput, len(rule.Splits))
	for i, sp := range rule.Splits {
		splitInputs[i] = ExpenseSplitInput{MemberID: sp.MemberID, ShareMode: sp.ShareMode, Weight: sp.Weight, ExactCents: sp.ExactCents}
	}

	domainPayers, _, err := buildPayers(payerInputs, rule.Currency, activeMembers)
	if err != nil {
		return nil, err
	}
	splits, err := resolveSplits(rule.AmountCents, splitInputs, activeMembers)
	if err != nil {
		return nil, err
	}

	expense := &domain.Expense{
		GroupID:     rule.GroupID,
		CreatorID:   rule.CreatorID,
		Name:        rule.Name,
		Category:    rule.Category,
		Currency:    rule.Currency,
		SubtotalCents: rule.AmountCents,
		ExpenseDate: occurrence,
		Payers:      domainPayers,
		Items: []domain.ExpenseItem{{
			Name:           rule.Name,
			Quantity:       1,
			UnitValueCents: rule.AmountCents,
			Currency:       rule.Currency,
			Splits:         splits,
		}},
	}

	return s.expenseRepo.Create(expense)
}

func recurringPayersFromInput(inputs []ExpensePayerInput) []domain.RecurringPayer {
	payers := make([]domain.RecurringPayer, len(inputs))
	for i, p := range inputs {
		payers[i] = domain.RecurringPayer{MemberID: p.MemberID, AmountCents: p.AmountCents}
	}
	return payers
}

func recurringSplitsFromInput(inputs []ExpenseSplitInput) []domain.RecurringSplit {
	splits := make([]domain.RecurringSplit, len(inputs))
	for i, sp := range inputs {
		splits[i] = domain.RecurringSplit{MemberID: sp.MemberID, ShareMode: sp.ShareMode, Weight: sp.Weight, ExactCents: sp.ExactCents}
	}
	return splits
}
