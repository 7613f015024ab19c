package service

import (
	"strings"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/money"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ExpensePayerInput is the caller-supplied shape of one payer row on
// create/update.
type ExpensePayerInput struct {
	MemberID    uuid.UUID
	AmountCents int64
}

// ExpenseSplitInput is the caller-supplied shape of one split on an item.
type ExpenseSplitInput struct {
	MemberID   uuid.UUID
	ShareMode  domain.ShareMode
	Weight     *int64
	ExactCents *int64
}

// ExpenseItemInput is the caller-supplied shape of one expense line item.
type ExpenseItemInput struct {
	Name           string
	Quantity       int64
	UnitValueCents int64
	Splits         []ExpenseSplitInput
}

// ExpenseService creates and edits expenses, owning the expense/payer/
// item/split write as one atomic change and keeping the balance cache and
// notification sink in sync with every mutation.
type ExpenseService struct {
	expenseRepo      domain.ExpenseRepository
	membershipRepo   domain.MembershipRepository
	groupRepo        domain.GroupRepository
	notificationRepo domain.NotificationRepository
	cache            *balancecache.Cache
}

func NewExpenseService(
	expenseRepo domain.ExpenseRepository,
	membershipRepo domain.MembershipRepository,
	groupRepo domain.GroupRepository,
	notificationRepo domain.NotificationRepository,
	cache *balancecache.Cache,
) *ExpenseService {
	return &ExpenseService{
		expenseRepo:      expenseRepo,
		membershipRepo:   membershipRepo,
		groupRepo:        groupRepo,
		notificationRepo: notificationRepo,
		cache:            cache,
	}
}

// CreateExpense validates and writes an expense plus its owned rows in one
// transaction, invalidates the group's balance cache, and notifies every
// non-creator member included in a split.
func (s *ExpenseService) CreateExpense(
	groupID, creatorMemberID uuid.UUID,
	name string,
	category *string,
	currency string,
	items []ExpenseItemInput,
	payers []ExpensePayerInput,
	expenseDate time.Time,
	attachmentID *uuid.UUID,
) (*domain.Expense, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxExpenseNameLength {
		return nil, domain.ErrNameTooLong
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

	domainPayers, payerSum, err := buildPayers(payers, currency, activeMembers)
	if err != nil {
		return nil, err
	}
	domainItems, subtotal, err := buildItems(items, currency, activeMembers)
	if err != nil {
		return nil, err
	}
	if payerSum != subtotal {
		return nil, domain.ErrPayerSumMismatch
	}

	expense := &domain.Expense{
		GroupID:       groupID,
		CreatorID:     creatorMemberID,
		Name:          name,
		Category:      category,
		Currency:      currency,
		SubtotalCents: subtotal,
		ExpenseDate:   expenseDate,
		AttachmentID:  attachmentID,
		Payers:        domainPayers,
		Items:         domainItems,
	}

	created, err := s.expenseRepo.Create(expense)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(groupID)
	notifyMembersOfExpense(s.notificationRepo, created, members)

	log.Info().
		Str("group_id", groupID.String()).
		Str("expense_id", created.ID.String()).
		Int64("subtotal_minor_units", subtotal).
		Msg("expense created")

	return created, nil
}

// UpdateExpense is authorized for the expense's creator or a group admin/
// owner. It replaces items/payers/splits wholesale under one transaction,
// re-validating every invariant CreateExpense checks.
func (s *ExpenseService) UpdateExpense(
	actor *domain.Membership,
	expenseID uuid.UUID,
	name string,
	category *string,
	items []ExpenseItemInput,
	payers []ExpensePayerInput,
	expenseDate time.Time,
	attachmentID *uuid.UUID,
) (*domain.Expense, error) {
	existing, err := s.expenseRepo.GetByID(expenseID)
	if err != nil {
		return nil, err
	}
	if !canModifyExpense(actor, existing) {
		return nil, domain.ErrForbidden
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxExpenseNameLength {
		return nil, domain.ErrNameTooLong
	}

	members, err := s.membershipRepo.ListActiveByGroup(existing.GroupID)
	if err != nil {
		return nil, err
	}
	activeMembers := membershipSet(members)

	domainPayers, payerSum, err := buildPayers(payers, existing.Currency, activeMembers)
	if err != nil {
		return nil, err
	}
	domainItems, subtotal, err := buildItems(items, existing.Currency, activeMembers)
	if err != nil {
		return nil, err
	}
	if payerSum != subtotal {
		return nil, domain.ErrPayerSumMismatch
	}

	existing.Name = name
	existing.Category = category
	existing.SubtotalCents = subtotal
	existing.ExpenseDate = expenseDate
	if attachmentID != nil {
		existing.AttachmentID = attachmentID
	}
	existing.Payers = domainPayers
	existing.Items = domainItems

	updated, err := s.expenseRepo.Update(existing)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(updated.GroupID)
	notifyMembersOfExpense(s.notificationRepo, updated, members)

	log.Info().
		Str("group_id", updated.GroupID.String()).
		Str("expense_id", updated.ID.String()).
		Msg("expense updated")

	return updated, nil
}

// GetExpense returns a single expense by id.
func (s *ExpenseService) GetExpense(id uuid.UUID) (*domain.Expense, error) {
	return s.expenseRepo.GetByID(id)
}

// ListExpenses returns a group's expenses narrowed by filter.
func (s *ExpenseService) ListExpenses(groupID uuid.UUID, filter domain.ExpenseFilter) ([]*domain.Expense, error) {
	return s.expenseRepo.ListByGroup(groupID, filter)
}

// DeleteExpense soft-deletes an expense, excluding it from all future
// balance computation. Attachments are left untouched.
func (s *ExpenseService) DeleteExpense(actor *domain.Membership, expenseID uuid.UUID) error {
	expense, err := s.expenseRepo.GetByID(expenseID)
	if err != nil {
		return err
	}
	if !canModifyExpense(actor, expense) {
		return domain.ErrForbidden
	}

	if err := s.expenseRepo.SoftDelete(expenseID, time.Now()); err != nil {
		return err
	}

	s.cache.Invalidate(expense.GroupID)

	log.Info().
		Str("group_id", expense.GroupID.String()).
		Str("expense_id", expenseID.String()).
		Msg("expense soft-deleted")

	return nil
}

func canModifyExpense(actor *domain.Membership, expense *domain.Expense) bool {
	if actor.ID == expense.CreatorID {
		return true
	}
	return actor.Role.AtLeast(domain.RoleAdmin)
}

func membershipSet(members []*domain.Membership) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		set[m.ID] = true
	}
	return set
}

func buildPayers(inputs []ExpensePayerInput, currency string, activeMembers map[uuid.UUID]bool) ([]domain.ExpensePayer, int64, error) {
	if len(inputs) == 0 {
		return nil, 0, domain.ErrInvalidInput
	}
	var sum int64
	payers := make([]domain.ExpensePayer, 0, len(inputs))
	for _, p := range inputs {
		if !activeMembers[p.MemberID] {
			return nil, 0, domain.ErrMemberNotInGroup
		}
		if p.AmountCents <= 0 {
			return nil, 0, domain.ErrInvalidAmount
		}
		sum += p.AmountCents
		payers = append(payers, domain.ExpensePayer{MemberID: p.MemberID, AmountCents: p.AmountCents, Currency: currency})
	}
	return payers, sum, nil
}

func buildItems(inputs []ExpenseItemInput, currency string, activeMembers map[uuid.UUID]bool) ([]domain.ExpenseItem, int64, error) {
	if len(inputs) == 0 {
		return nil, 0, domain.ErrInvalidInput
	}
	items := make([]domain.ExpenseItem, 0, len(inputs))
	var subtotal int64
	for _, item := range inputs {
		if strings.TrimSpace(item.Name) == "" {
			return nil, 0, domain.ErrNameRequired
		}
		if item.Quantity <= 0 || item.UnitValueCents <= 0 {
			return nil, 0, domain.ErrInvalidAmount
		}
		total := item.Quantity * item.UnitValueCents
		subtotal += total

		splits, err := resolveSplits(total, item.Splits, activeMembers)
		if err != nil {
			return nil, 0, err
		}

		items = append(items, domain.ExpenseItem{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitValueCents: item.UnitValueCents,
			Currency:       currency,
			Splits:         splits,
		})
	}
	return items, subtotal, nil
}

// resolveSplits applies the split algebra to one item: exact shares are
// taken verbatim (bounded by the item total), and the residual is
// distributed among the equal/weighted shares by largest-remainder weight.
func resolveSplits(itemTotal int64, inputs []ExpenseSplitInput, activeMembers map[uuid.UUID]bool) ([]domain.ExpenseItemMember, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	var exactSum int64
	weights := make([]int64, 0, len(inputs))

	for _, sp := range inputs {
		if !activeMembers[sp.MemberID] {
			return nil, domain.ErrMemberNotInGroup
		}
		switch sp.ShareMode {
		case domain.ShareModeExact:
			if sp.ExactCents == nil || *sp.ExactCents < 0 {
				return nil, domain.ErrInvalidAmount
			}
			exactSum += *sp.ExactCents
		case domain.ShareModeEqual:
			weights = append(weights, 1)
		case domain.ShareModeWeighted:
			if sp.Weight == nil || *sp.Weight <= 0 {
				return nil, domain.ErrInvalidWeight
			}
			weights = append(weights, *sp.Weight)
		default:
			return nil, domain.ErrInvalidShareMode
		}
	}

	if exactSum > itemTotal {
		return nil, domain.ErrExactExceedsItemTotal
	}

	residual := itemTotal - exactSum
	var computedShares []int64
	if len(weights) > 0 {
		shares, err := money.SplitWeighted(residual, weights)
		if err != nil {
			return nil, domain.ErrInternal
		}
		computedShares = shares
	} else if residual != 0 {
		return nil, domain.ErrSplitSumMismatch
	}

	splits := make([]domain.ExpenseItemMember, len(inputs))
	cursor := 0
	for i, sp := range inputs {
		if sp.ShareMode == domain.ShareModeExact {
			exact := *sp.ExactCents
			splits[i] = domain.ExpenseItemMember{
				MemberID:      sp.MemberID,
				ShareMode:     sp.ShareMode,
				ExactCents:    sp.ExactCents,
				ComputedCents: exact,
			}
			continue
		}
		splits[i] = domain.ExpenseItemMember{
			MemberID:      sp.MemberID,
			ShareMode:     sp.ShareMode,
			Weight:        weightOf(sp),
			ComputedCents: computedShares[cursor],
		}
		cursor++
	}

	return splits, nil
}

func weightOf(sp ExpenseSplitInput) *int64 {
	if sp.ShareMode == domain.ShareModeWeighted {
		return sp.Weight
	}
	return nil
}

// notifyMembersOfExpense emits one expense_added notification per
// non-creator member who appears in at least one split.
func notifyMembersOfExpense(notificationRepo domain.NotificationRepository, expense *domain.Expense, members []*domain.Membership) {
	memberUser := make(map[uuid.UUID]uuid.UUID, len(members))
	for _, m := range members {
		memberUser[m.ID] = m.UserID
	}

	notified := make(map[uuid.UUID]bool)
	for _, item := range expense.Items {
		for _, split := range item.Splits {
			if split.MemberID == expense.CreatorID || notified[split.MemberID] {
				continue
			}
			notified[split.MemberID] = true

			userID, ok := memberUser[split.MemberID]
			if !ok {
				continue
			}

			amount := split.ComputedCents
			currency := expense.Currency
			_, err := notificationRepo.Create(&domain.Notification{
				UserID:        userID,
				Type:          domain.NotificationExpenseAdded,
				ReferenceType: "expense",
				ReferenceID:   expense.ID,
				AmountCents:   &amount,
				Currency:      &currency,
			})
			if err != nil {
				log.Warn().Err(err).Str("expense_id", expense.ID.String()).Msg("failed to emit expense notification")
			}
		}
	}
}
