// Package testutil holds hand-written in-memory mocks of every repository
// interface in internal/domain: a map keyed the
// way the real table is keyed, plus an optional *Fn hook per method so a
// test can inject a failure or a side effect without a mocking framework.
package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
)

// MockUserRepository is a mock implementation of domain.UserRepository.
type MockUserRepository struct {
	ByID     map[uuid.UUID]*domain.User
	ByEmail  map[string]*domain.User
	ByAuth0  map[string]*domain.User
	CreateFn func(user *domain.User) (*domain.User, error)
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		ByID:    make(map[uuid.UUID]*domain.User),
		ByEmail: make(map[string]*domain.User),
		ByAuth0: make(map[string]*domain.User),
	}
}

func (m *MockUserRepository) AddUser(u *domain.User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.ByID[u.ID] = u
	if u.Email != nil {
		m.ByEmail[*u.Email] = u
	}
	if u.Auth0ID != nil {
		m.ByAuth0[*u.Auth0ID] = u
	}
}

func (m *MockUserRepository) GetByID(id uuid.UUID) (*domain.User, error) {
	if u, ok := m.ByID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(email string) (*domain.User, error) {
	if u, ok := m.ByEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByAuth0ID(auth0ID string) (*domain.User, error) {
	if u, ok := m.ByAuth0[auth0ID]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Create(user *domain.User) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(user)
	}
	m.AddUser(user)
	return user, nil
}

func (m *MockUserRepository) Update(user *domain.User) (*domain.User, error) {
	if _, ok := m.ByID[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	m.AddUser(user)
	return user, nil
}

func (m *MockUserRepository) CreateOrGetByAuth0ID(auth0ID, email string, name, pictureURL *string) (*domain.User, error) {
	if u, ok := m.ByAuth0[auth0ID]; ok {
		return u, nil
	}
	u := &domain.User{ID: uuid.New(), Auth0ID: &auth0ID, Email: &email, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if name != nil {
		u.Name = *name
	}
	u.PictureURL = pictureURL
	m.AddUser(u)
	return u, nil
}

func (m *MockUserRepository) RequestDeletion(id uuid.UUID, requestedAt time.Time) error {
	u, ok := m.ByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.DeletionRequestedAt = &requestedAt
	return nil
}

func (m *MockUserRepository) CancelDeletion(id uuid.UUID) error {
	u, ok := m.ByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.DeletionRequestedAt = nil
	return nil
}

func (m *MockUserRepository) ListDeletionDue(olderThan time.Time) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.ByID {
		if u.DeletionRequestedAt != nil && u.DeletedAt == nil && u.DeletionRequestedAt.Before(olderThan) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MockUserRepository) Anonymize(id uuid.UUID, anonymizedAt time.Time) error {
	u, ok := m.ByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.Email != nil {
		delete(m.ByEmail, *u.Email)
	}
	u.Email = nil
	u.Name = "Deleted User"
	u.PasswordHash = nil
	u.DeletedAt = &anonymizedAt
	return nil
}

// MockGroupRepository is a mock implementation of domain.GroupRepository.
type MockGroupRepository struct {
	ByID       map[uuid.UUID]*domain.Group
	CreateFn   func(g *domain.Group) (*domain.Group, error)
	JoinCodeFn func(code string) (bool, error)
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{ByID: make(map[uuid.UUID]*domain.Group)}
}

func (m *MockGroupRepository) AddGroup(g *domain.Group) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	m.ByID[g.ID] = g
}

func (m *MockGroupRepository) GetByID(id uuid.UUID) (*domain.Group, error) {
	g, ok := m.ByID[id]
	if !ok || g.IsDeleted() {
		return nil, domain.ErrGroupNotFound
	}
	return g, nil
}

func (m *MockGroupRepository) GetByJoinCode(code string) (*domain.Group, error) {
	for _, g := range m.ByID {
		if g.JoinCode == code && !g.IsDeleted() {
			return g, nil
		}
	}
	return nil, domain.ErrGroupNotFound
}

func (m *MockGroupRepository) ListForUser(userID uuid.UUID) ([]*domain.Group, error) {
	var out []*domain.Group
	for _, g := range m.ByID {
		if !g.IsDeleted() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *MockGroupRepository) Create(group *domain.Group) (*domain.Group, error) {
	if m.CreateFn != nil {
		return m.CreateFn(group)
	}
	m.AddGroup(group)
	return group, nil
}

func (m *MockGroupRepository) Update(group *domain.Group) (*domain.Group, error) {
	if _, ok := m.ByID[group.ID]; !ok {
		return nil, domain.ErrGroupNotFound
	}
	m.ByID[group.ID] = group
	return group, nil
}

func (m *MockGroupRepository) SoftDelete(id uuid.UUID, deletedAt time.Time) error {
	g, ok := m.ByID[id]
	if !ok {
		return domain.ErrGroupNotFound
	}
	g.DeletedAt = &deletedAt
	return nil
}

func (m *MockGroupRepository) JoinCodeExists(code string) (bool, error) {
	if m.JoinCodeFn != nil {
		return m.JoinCodeFn(code)
	}
	for _, g := range m.ByID {
		if g.JoinCode == code {
			return true, nil
		}
	}
	return false, nil
}

// MockMembershipRepository is a mock implementation of domain.MembershipRepository.
type MockMembershipRepository struct {
	ByID     map[uuid.UUID]*domain.Membership
	UpsertFn func(m *domain.Membership) (*domain.Membership, error)
}

func NewMockMembershipRepository() *MockMembershipRepository {
	return &MockMembershipRepository{ByID: make(map[uuid.UUID]*domain.Membership)}
}

func (m *MockMembershipRepository) AddMembership(ms *domain.Membership) {
	if ms.ID == uuid.Nil {
		ms.ID = uuid.New()
	}
	m.ByID[ms.ID] = ms
}

func (m *MockMembershipRepository) GetByID(id uuid.UUID) (*domain.Membership, error) {
	ms, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrMembershipNotFound
	}
	return ms, nil
}

func (m *MockMembershipRepository) GetActiveByGroupAndUser(groupID, userID uuid.UUID) (*domain.Membership, error) {
	for _, ms := range m.ByID {
		if ms.GroupID == groupID && ms.UserID == userID && ms.IsActive() {
			return ms, nil
		}
	}
	return nil, domain.ErrMembershipNotFound
}

func (m *MockMembershipRepository) GetAnyByGroupAndUser(groupID, userID uuid.UUID) (*domain.Membership, error) {
	for _, ms := range m.ByID {
		if ms.GroupID == groupID && ms.UserID == userID {
			return ms, nil
		}
	}
	return nil, domain.ErrMembershipNotFound
}

func (m *MockMembershipRepository) ListActiveByGroup(groupID uuid.UUID) ([]*domain.Membership, error) {
	var out []*domain.Membership
	for _, ms := range m.ByID {
		if ms.GroupID == groupID && ms.IsActive() {
			out = append(out, ms)
		}
	}
	sortMembershipsByJoinedAt(out)
	return out, nil
}

func (m *MockMembershipRepository) ListActiveByUser(userID uuid.UUID) ([]*domain.Membership, error) {
	var out []*domain.Membership
	for _, ms := range m.ByID {
		if ms.UserID == userID && ms.IsActive() {
			out = append(out, ms)
		}
	}
	sortMembershipsByJoinedAt(out)
	return out, nil
}

// sortMembershipsByJoinedAt matches the real repository's "ORDER BY
// joined_at", since callers like the balance engine rely on a
// deterministic first member for residual reconciliation.
func sortMembershipsByJoinedAt(ms []*domain.Membership) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].JoinedAt.Before(ms[j].JoinedAt)
	})
}

func (m *MockMembershipRepository) CountActiveOwners(groupID uuid.UUID) (int, error) {
	count := 0
	for _, ms := range m.ByID {
		if ms.GroupID == groupID && ms.IsActive() && ms.Role == domain.RoleOwner {
			count++
		}
	}
	return count, nil
}

func (m *MockMembershipRepository) Upsert(membership *domain.Membership) (*domain.Membership, error) {
	if m.UpsertFn != nil {
		return m.UpsertFn(membership)
	}
	for _, existing := range m.ByID {
		if existing.GroupID == membership.GroupID && existing.UserID == membership.UserID {
			existing.Status = domain.MembershipStatusActive
			existing.LeftAt = nil
			existing.Role = membership.Role
			existing.DisplayName = membership.DisplayName
			return existing, nil
		}
	}
	m.AddMembership(membership)
	return membership, nil
}

func (m *MockMembershipRepository) UpdateRole(id uuid.UUID, role domain.Role) error {
	ms, ok := m.ByID[id]
	if !ok {
		return domain.ErrMembershipNotFound
	}
	ms.Role = role
	return nil
}

func (m *MockMembershipRepository) Leave(id uuid.UUID, leftAt time.Time) error {
	ms, ok := m.ByID[id]
	if !ok {
		return domain.ErrMembershipNotFound
	}
	ms.Status = domain.MembershipStatusLeft
	ms.LeftAt = &leftAt
	return nil
}

// MockExpenseRepository is a mock implementation of domain.ExpenseRepository.
type MockExpenseRepository struct {
	ByID     map[uuid.UUID]*domain.Expense
	CreateFn func(e *domain.Expense) (*domain.Expense, error)
}

func NewMockExpenseRepository() *MockExpenseRepository {
	return &MockExpenseRepository{ByID: make(map[uuid.UUID]*domain.Expense)}
}

func (m *MockExpenseRepository) AddExpense(e *domain.Expense) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.ByID[e.ID] = e
}

func (m *MockExpenseRepository) GetByID(id uuid.UUID) (*domain.Expense, error) {
	e, ok := m.ByID[id]
	if !ok || e.IsDeleted() {
		return nil, domain.ErrExpenseNotFound
	}
	return e, nil
}

func (m *MockExpenseRepository) ListByGroup(groupID uuid.UUID, filter domain.ExpenseFilter) ([]*domain.Expense, error) {
	var out []*domain.Expense
	for _, e := range m.ByID {
		if e.GroupID != groupID || e.IsDeleted() {
			continue
		}
		if filter.Category != nil && (e.Category == nil || *e.Category != *filter.Category) {
			continue
		}
		if filter.From != nil && e.ExpenseDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.ExpenseDate.After(*filter.To) {
			continue
		}
		if filter.PayerID != nil {
			found := false
			for _, p := range e.Payers {
				if p.MemberID == *filter.PayerID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MockExpenseRepository) ListActiveByGroupSince(groupID uuid.UUID) ([]*domain.Expense, error) {
	var out []*domain.Expense
	for _, e := range m.ByID {
		if e.GroupID == groupID && !e.IsDeleted() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockExpenseRepository) Create(expense *domain.Expense) (*domain.Expense, error) {
	if m.CreateFn != nil {
		return m.CreateFn(expense)
	}
	now := time.Now()
	expense.CreatedAt = now
	expense.UpdatedAt = now
	for i := range expense.Items {
		expense.Items[i].ID = uuid.New()
		expense.Items[i].ExpenseID = expense.ID
		for j := range expense.Items[i].Splits {
			expense.Items[i].Splits[j].ID = uuid.New()
			expense.Items[i].Splits[j].ItemID = expense.Items[i].ID
		}
	}
	for i := range expense.Payers {
		expense.Payers[i].ID = uuid.New()
		expense.Payers[i].ExpenseID = expense.ID
	}
	m.AddExpense(expense)
	return expense, nil
}

func (m *MockExpenseRepository) Update(expense *domain.Expense) (*domain.Expense, error) {
	if _, ok := m.ByID[expense.ID]; !ok {
		return nil, domain.ErrExpenseNotFound
	}
	expense.UpdatedAt = time.Now()
	for i := range expense.Items {
		if expense.Items[i].ID == uuid.Nil {
			expense.Items[i].ID = uuid.New()
		}
		expense.Items[i].ExpenseID = expense.ID
		for j := range expense.Items[i].Splits {
			if expense.Items[i].Splits[j].ID == uuid.Nil {
				expense.Items[i].Splits[j].ID = uuid.New()
			}
			expense.Items[i].Splits[j].ItemID = expense.Items[i].ID
		}
	}
	for i := range expense.Payers {
		if expense.Payers[i].ID == uuid.Nil {
			expense.Payers[i].ID = uuid.New()
		}
		expense.Payers[i].ExpenseID = expense.ID
	}
	m.ByID[expense.ID] = expense
	return expense, nil
}

func (m *MockExpenseRepository) SoftDelete(id uuid.UUID, deletedAt time.Time) error {
	e, ok := m.ByID[id]
	if !ok {
		return domain.ErrExpenseNotFound
	}
	e.DeletedAt = &deletedAt
	return nil
}

// MockSettlementRepository is a mock implementation of domain.SettlementRepository.
type MockSettlementRepository struct {
	ByID     map[uuid.UUID]*domain.Settlement
	CreateFn func(s *domain.Settlement) (*domain.Settlement, error)
}

func NewMockSettlementRepository() *MockSettlementRepository {
	return &MockSettlementRepository{ByID: make(map[uuid.UUID]*domain.Settlement)}
}

func (m *MockSettlementRepository) AddSettlement(s *domain.Settlement) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.ByID[s.ID] = s
}

func (m *MockSettlementRepository) GetByID(id uuid.UUID) (*domain.Settlement, error) {
	s, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	return s, nil
}

func (m *MockSettlementRepository) ListByGroup(groupID uuid.UUID) ([]*domain.Settlement, error) {
	var out []*domain.Settlement
	for _, s := range m.ByID {
		if s.GroupID == groupID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSettlementRepository) ListConfirmedByGroup(groupID uuid.UUID) ([]*domain.Settlement, error) {
	var out []*domain.Settlement
	for _, s := range m.ByID {
		if s.GroupID == groupID && s.Status == domain.SettlementConfirmed {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSettlementRepository) Create(settlement *domain.Settlement) (*domain.Settlement, error) {
	if m.CreateFn != nil {
		return m.CreateFn(settlement)
	}
	now := time.Now()
	settlement.CreatedAt = now
	settlement.UpdatedAt = now
	m.AddSettlement(settlement)
	return settlement, nil
}

// TransitionStatus performs the same compare-and-set the real repository
// does: a row affected only if the in-memory status still matches fromStatus.
func (m *MockSettlementRepository) TransitionStatus(id uuid.UUID, fromStatus, toStatus domain.SettlementStatus) (*domain.Settlement, error) {
	s, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	if s.Status != fromStatus {
		return nil, domain.ErrInvalidTransition
	}
	s.Status = toStatus
	s.UpdatedAt = time.Now()
	return s, nil
}

// MockRecurringRuleRepository is a mock implementation of domain.RecurringRuleRepository.
type MockRecurringRuleRepository struct {
	ByID         map[uuid.UUID]*domain.RecurringRule
	Occurrences  map[string]bool
	CreateFn     func(r *domain.RecurringRule) (*domain.RecurringRule, error)
	AdvanceErrFn func(ruleID uuid.UUID, occurrence time.Time) error
}

func NewMockRecurringRuleRepository() *MockRecurringRuleRepository {
	return &MockRecurringRuleRepository{
		ByID:        make(map[uuid.UUID]*domain.RecurringRule),
		Occurrences: make(map[string]bool),
	}
}

func (m *MockRecurringRuleRepository) AddRule(r *domain.RecurringRule) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.ByID[r.ID] = r
}

func (m *MockRecurringRuleRepository) GetByID(id uuid.UUID) (*domain.RecurringRule, error) {
	r, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrRecurringRuleNotFound
	}
	return r, nil
}

func (m *MockRecurringRuleRepository) ListByGroup(groupID uuid.UUID) ([]*domain.RecurringRule, error) {
	var out []*domain.RecurringRule
	for _, r := range m.ByID {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRecurringRuleRepository) ListDue(now time.Time) ([]*domain.RecurringRule, error) {
	var out []*domain.RecurringRule
	for _, r := range m.ByID {
		if r.IsDue(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRecurringRuleRepository) Create(rule *domain.RecurringRule) (*domain.RecurringRule, error) {
	if m.CreateFn != nil {
		return m.CreateFn(rule)
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	for i := range rule.Payers {
		rule.Payers[i].ID = uuid.New()
		rule.Payers[i].RecurringRuleID = rule.ID
	}
	for i := range rule.Splits {
		rule.Splits[i].ID = uuid.New()
		rule.Splits[i].RecurringRuleID = rule.ID
	}
	m.AddRule(rule)
	return rule, nil
}

func (m *MockRecurringRuleRepository) Update(rule *domain.RecurringRule) (*domain.RecurringRule, error) {
	if _, ok := m.ByID[rule.ID]; !ok {
		return nil, domain.ErrRecurringRuleNotFound
	}
	rule.UpdatedAt = time.Now()
	m.ByID[rule.ID] = rule
	return rule, nil
}

func (m *MockRecurringRuleRepository) Delete(id uuid.UUID) error {
	if _, ok := m.ByID[id]; !ok {
		return domain.ErrRecurringRuleNotFound
	}
	delete(m.ByID, id)
	return nil
}

func (m *MockRecurringRuleRepository) Deactivate(id uuid.UUID) error {
	r, ok := m.ByID[id]
	if !ok {
		return domain.ErrRecurringRuleNotFound
	}
	r.IsActive = false
	return nil
}

func (m *MockRecurringRuleRepository) AdvanceAndRecordGeneration(ruleID uuid.UUID, occurrence, nextOccurrence, generatedAt time.Time) error {
	if m.AdvanceErrFn != nil {
		if err := m.AdvanceErrFn(ruleID, occurrence); err != nil {
			return err
		}
	}
	key := ruleID.String() + "|" + occurrence.UTC().Format(time.RFC3339)
	if m.Occurrences[key] {
		return domain.ErrDuplicateOccurrence
	}
	m.Occurrences[key] = true

	r, ok := m.ByID[ruleID]
	if !ok {
		return domain.ErrRecurringRuleNotFound
	}
	r.NextOccurrence = nextOccurrence
	r.LastGeneratedAt = &generatedAt
	return nil
}

// MockNotificationRepository is a mock implementation of domain.NotificationRepository.
type MockNotificationRepository struct {
	ByID     map[uuid.UUID]*domain.Notification
	CreateFn func(n *domain.Notification) (*domain.Notification, error)
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{ByID: make(map[uuid.UUID]*domain.Notification)}
}

func (m *MockNotificationRepository) Create(n *domain.Notification) (*domain.Notification, error) {
	if m.CreateFn != nil {
		return m.CreateFn(n)
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	m.ByID[n.ID] = n
	return n, nil
}

func (m *MockNotificationRepository) ListForUser(userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for _, n := range m.ByID {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockNotificationRepository) MarkRead(id uuid.UUID, readAt time.Time) error {
	n, ok := m.ByID[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.ReadAt = &readAt
	return nil
}

// MockTokenRepository is a mock implementation of domain.TokenRepository.
type MockTokenRepository struct {
	RefreshByHash  map[string]*domain.RefreshToken
	PasswordByHash map[string]*domain.PasswordResetToken
	VerifyByHash   map[string]*domain.EmailVerificationToken
}

func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{
		RefreshByHash:  make(map[string]*domain.RefreshToken),
		PasswordByHash: make(map[string]*domain.PasswordResetToken),
		VerifyByHash:   make(map[string]*domain.EmailVerificationToken),
	}
}

func (m *MockTokenRepository) CreateRefreshToken(t *domain.RefreshToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	m.RefreshByHash[t.TokenHash] = t
	return nil
}

func (m *MockTokenRepository) GetRefreshTokenByHash(hash string) (*domain.RefreshToken, error) {
	if t, ok := m.RefreshByHash[hash]; ok {
		return t, nil
	}
	return nil, domain.ErrTokenNotFound
}

func (m *MockTokenRepository) RevokeRefreshToken(id uuid.UUID, revokedAt time.Time) error {
	for _, t := range m.RefreshByHash {
		if t.ID == id {
			t.RevokedAt = &revokedAt
			return nil
		}
	}
	return domain.ErrTokenNotFound
}

func (m *MockTokenRepository) MarkRefreshTokenUsed(id uuid.UUID, usedAt time.Time) error {
	for _, t := range m.RefreshByHash {
		if t.ID == id {
			t.UsedAt = &usedAt
			return nil
		}
	}
	return domain.ErrTokenNotFound
}

func (m *MockTokenRepository) CreatePasswordResetToken(t *domain.PasswordResetToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	m.PasswordByHash[t.TokenHash] = t
	return nil
}

func (m *MockTokenRepository) GetPasswordResetTokenByHash(hash string) (*domain.PasswordResetToken, error) {
	if t, ok := m.PasswordByHash[hash]; ok {
		return t, nil
	}
	return nil, domain.ErrTokenNotFound
}

func (m *MockTokenRepository) MarkPasswordResetTokenUsed(id uuid.UUID, usedAt time.Time) error {
	for _, t := range m.PasswordByHash {
		if t.ID == id {
			t.UsedAt = &usedAt
			return nil
		}
	}
	return domain.ErrTokenNotFound
}

func (m *MockTokenRepository) CreateEmailVerificationToken(t *domain.EmailVerificationToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	m.VerifyByHash[t.TokenHash] = t
	return nil
}

func (m *MockTokenRepository) GetEmailVerificationTokenByHash(hash string) (*domain.EmailVerificationToken, error) {
	if t, ok := m.VerifyByHash[hash]; ok {
		return t, nil
	}
	return nil, domain.ErrTokenNotFound
}

func (m *MockTokenRepository) MarkEmailVerificationTokenUsed(id uuid.UUID, usedAt time.Time) error {
	for _, t := range m.VerifyByHash {
		if t.ID == id {
			t.UsedAt = &usedAt
			return nil
		}
	}
	return domain.ErrTokenNotFound
}

// MockAPITokenRepository is a mock implementation of domain.APITokenRepository.
type MockAPITokenRepository struct {
	ByID   map[uuid.UUID]*domain.APIToken
	ByHash map[string]*domain.APIToken
}

func NewMockAPITokenRepository() *MockAPITokenRepository {
	return &MockAPITokenRepository{
		ByID:   make(map[uuid.UUID]*domain.APIToken),
		ByHash: make(map[string]*domain.APIToken),
	}
}

func (m *MockAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	m.ByID[token.ID] = token
	m.ByHash[token.TokenHash] = token
	return nil
}

func (m *MockAPITokenRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.APIToken, error) {
	var out []*domain.APIToken
	for _, t := range m.ByID {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockAPITokenRepository) GetByID(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*domain.APIToken, error) {
	t, ok := m.ByID[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrAPITokenNotFound
	}
	return t, nil
}

func (m *MockAPITokenRepository) GetByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	t, ok := m.ByHash[hash]
	if !ok || t.IsRevoked() {
		return nil, domain.ErrAPITokenNotFound
	}
	return t, nil
}

func (m *MockAPITokenRepository) Revoke(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	t, ok := m.ByID[id]
	if !ok || t.UserID != userID {
		return domain.ErrAPITokenNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (m *MockAPITokenRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	t, ok := m.ByID[id]
	if !ok {
		return domain.ErrAPITokenNotFound
	}
	now := time.Now()
	t.LastUsedAt = &now
	return nil
}

// MockAttachmentRepository is a mock implementation of domain.AttachmentRepository.
type MockAttachmentRepository struct {
	ByID map[uuid.UUID]*domain.Attachment
}

func NewMockAttachmentRepository() *MockAttachmentRepository {
	return &MockAttachmentRepository{ByID: make(map[uuid.UUID]*domain.Attachment)}
}

func (m *MockAttachmentRepository) GetByID(id uuid.UUID) (*domain.Attachment, error) {
	a, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrAttachmentNotFound
	}
	return a, nil
}

func (m *MockAttachmentRepository) Create(a *domain.Attachment) (*domain.Attachment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	m.ByID[a.ID] = a
	return a, nil
}
