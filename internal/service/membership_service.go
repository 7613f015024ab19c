package service

import (
	"strings"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/google/uuid"
)

// MembershipService owns join/leave/remove/transfer and the role
// hierarchy's permission rules. Group CRUD itself lives in
// GroupService; this service is the "membership" half of the authority.
type MembershipService struct {
	groupRepo      domain.GroupRepository
	membershipRepo domain.MembershipRepository
	cache          *balancecache.Cache
}

func NewMembershipService(
	groupRepo domain.GroupRepository,
	membershipRepo domain.MembershipRepository,
	cache *balancecache.Cache,
) *MembershipService {
	return &MembershipService{
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		cache:          cache,
	}
}

// JoinByCode resolves a join code to its group and reactivates (or
// inserts) the caller's membership row. Reusing the existing row on
// rejoin matters: the repository's Upsert
// does `ON CONFLICT (group_id, user_id) DO UPDATE` rather than a plain
// insert, so a user who left and comes back never collides with their own
// historical row.
func (s *MembershipService) JoinByCode(code string, userID uuid.UUID, displayName string) (*domain.Membership, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	group, err := s.resolveJoinCode(code)
	if err != nil {
		return nil, err
	}

	if existing, err := s.membershipRepo.GetActiveByGroupAndUser(group.ID, userID); err == nil && existing != nil {
		return nil, domain.ErrAlreadyMember
	}

	membership := &domain.Membership{
		GroupID:     group.ID,
		UserID:      userID,
		Role:        domain.RoleMember,
		Status:      domain.MembershipStatusActive,
		DisplayName: displayName,
		JoinedAt:    time.Now(),
	}
	created, err := s.membershipRepo.Upsert(membership)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(group.ID)

	return created, nil
}

// resolveJoinCode validates the alphabet/length before hitting
// persistence and maps both "never existed" and "once existed, now
// deleted" to the same generic error.
func (s *MembershipService) resolveJoinCode(code string) (*domain.Group, error) {
	if len(code) != domain.JoinCodeLength {
		return nil, domain.ErrInvalidJoinCode
	}
	for _, r := range code {
		if !strings.ContainsRune(domain.JoinCodeAlphabet, r) {
			return nil, domain.ErrInvalidJoinCode
		}
	}
	group, err := s.groupRepo.GetByJoinCode(code)
	if err != nil {
		return nil, domain.ErrInvalidJoinCode
	}
	return group, nil
}

// ListMembers returns every active member of a group.
func (s *MembershipService) ListMembers(groupID uuid.UUID) ([]*domain.Membership, error) {
	return s.membershipRepo.ListActiveByGroup(groupID)
}

// GetActive resolves the caller's own active membership in a group, the
// "actor" every authorization check in this package and in the expense/
// settlement/recurring services is keyed off of.
func (s *MembershipService) GetActive(groupID, userID uuid.UUID) (*domain.Membership, error) {
	return s.membershipRepo.GetActiveByGroupAndUser(groupID, userID)
}

// GetByID returns a membership row by id, used to resolve a path-param
// target (e.g. the member being removed or promoted) independent of who
// is asking.
func (s *MembershipService) GetByID(id uuid.UUID) (*domain.Membership, error) {
	return s.membershipRepo.GetByID(id)
}

// Leave ends the caller's own membership. The sole remaining owner must
// transfer ownership first.
func (s *MembershipService) Leave(membership *domain.Membership) error {
	if membership.Role == domain.RoleOwner {
		owners, err := s.membershipRepo.CountActiveOwners(membership.GroupID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return domain.ErrSoleOwnerCannotLeave
		}
	}

	if err := s.membershipRepo.Leave(membership.ID, time.Now()); err != nil {
		return err
	}

	s.cache.Invalidate(membership.GroupID)

	return nil
}

// RemoveMember removes another member from the group. Owner or admin may
// remove; an admin may never remove the owner; self-removal must go
// through Leave.
func (s *MembershipService) RemoveMember(actor *domain.Membership, target *domain.Membership) error {
	if actor.ID == target.ID {
		return domain.ErrInvalidInput
	}
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return domain.ErrInsufficientRole
	}
	if target.Role == domain.RoleOwner && actor.Role != domain.RoleOwner {
		return domain.ErrCannotRemoveOwner
	}
	if target.Role == domain.RoleOwner {
		owners, err := s.membershipRepo.CountActiveOwners(target.GroupID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return domain.ErrSoleOwnerCannotLeave
		}
	}

	if err := s.membershipRepo.Leave(target.ID, time.Now()); err != nil {
		return err
	}

	s.cache.Invalidate(target.GroupID)

	return nil
}

// TransferOwnership moves ownership of a group from the current owner to
// another active, non-self member. The previous owner becomes admin, the
// least-surprising downgrade.
func (s *MembershipService) TransferOwnership(actor *domain.Membership, target *domain.Membership) error {
	if actor.Role != domain.RoleOwner {
		return domain.ErrNotGroupOwner
	}
	if actor.ID == target.ID {
		return domain.ErrInvalidInput
	}
	if target.GroupID != actor.GroupID || !target.IsActive() {
		return domain.ErrMemberNotInGroup
	}

	if err := s.membershipRepo.UpdateRole(target.ID, domain.RoleOwner); err != nil {
		return err
	}
	if err := s.membershipRepo.UpdateRole(actor.ID, domain.RoleAdmin); err != nil {
		return err
	}

	return nil
}

// UpdateRole changes a member's role. Permitted for owner or admin,
// outranking the target role being assigned is not otherwise enforced
// here: promoting to owner must go through TransferOwnership so the
// "exactly one owner unless mid-transfer" invariant never breaks.
func (s *MembershipService) UpdateRole(actor *domain.Membership, target *domain.Membership, role domain.Role) error {
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return domain.ErrInsufficientRole
	}
	if role == domain.RoleOwner {
		return domain.ErrInvalidInput
	}
	if target.Role == domain.RoleOwner {
		return domain.ErrCannotRemoveOwner
	}

	return s.membershipRepo.UpdateRole(target.ID, role)
}
