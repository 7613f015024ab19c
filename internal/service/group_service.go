package service

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// joinCodeMaxRetries is the number of fresh-random attempts before falling
// back to a timestamp-suffixed code.
const joinCodeMaxRetries = 3

// GroupService owns group CRUD, join-code lifecycle, and deletion, the
// "group" half of the group/membership authority.
type GroupService struct {
	groupRepo        domain.GroupRepository
	membershipRepo   domain.MembershipRepository
	notificationRepo domain.NotificationRepository
	cache            *balancecache.Cache
}

func NewGroupService(
	groupRepo domain.GroupRepository,
	membershipRepo domain.MembershipRepository,
	notificationRepo domain.NotificationRepository,
	cache *balancecache.Cache,
) *GroupService {
	return &GroupService{
		groupRepo:        groupRepo,
		membershipRepo:   membershipRepo,
		notificationRepo: notificationRepo,
		cache:            cache,
	}
}

// CreateGroup creates a group and an active owner membership for the
// creator in one logical operation. The join code is generated with the
// retry-then-fallback scheme described on allocateJoinCode.
func (s *GroupService) CreateGroup(ownerUserID uuid.UUID, name string, label *string, defaultCurrency, ownerDisplayName string) (*domain.Group, *domain.Membership, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxGroupNameLength {
		return nil, nil, domain.ErrNameTooLong
	}

	code, err := s.allocateJoinCode()
	if err != nil {
		return nil, nil, err
	}

	group := &domain.Group{
		Name:            name,
		Label:           label,
		OwnerUserID:     ownerUserID,
		JoinCode:        code,
		DefaultCurrency: defaultCurrency,
	}
	created, err := s.groupRepo.Create(group)
	if err != nil {
		return nil, nil, err
	}

	membership := &domain.Membership{
		GroupID:     created.ID,
		UserID:      ownerUserID,
		Role:        domain.RoleOwner,
		Status:      domain.MembershipStatusActive,
		DisplayName: ownerDisplayName,
		JoinedAt:    time.Now(),
	}
	createdMembership, err := s.membershipRepo.Upsert(membership)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("group_id", created.ID.String()).Str("owner_id", ownerUserID.String()).Msg("group created")

	return created, createdMembership, nil
}

// allocateJoinCode generates a fresh 8-character code from the unambiguous
// alphabet, retrying on collision up to joinCodeMaxRetries times before
// falling back to a timestamp-suffixed code that is virtually guaranteed
// unique.
func (s *GroupService) allocateJoinCode() (string, error) {
	for i := 0; i < joinCodeMaxRetries; i++ {
		code, err := randomJoinCode()
		if err != nil {
			return "", err
		}
		exists, err := s.groupRepo.JoinCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}

	fallback, err := timestampFallbackJoinCode()
	if err != nil {
		return "", err
	}
	exists, err := s.groupRepo.JoinCodeExists(fallback)
	if err != nil {
		return "", err
	}
	if exists {
		return "", domain.ErrJoinCodeCollision
	}
	return fallback, nil
}

func randomJoinCode() (string, error) {
	alphabet := domain.JoinCodeAlphabet
	buf := make([]byte, domain.JoinCodeLength)
	idx := make([]byte, domain.JoinCodeLength)
	if _, err := rand.Read(idx); err != nil {
		return "", err
	}
	for i, b := range idx {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// timestampFallbackJoinCode derives a deterministic-length code from the
// alphabet seeded by the current nanosecond clock, for the rare case every
// random attempt collided.
func timestampFallbackJoinCode() (string, error) {
	alphabet := domain.JoinCodeAlphabet
	n := time.Now().UnixNano()
	buf := make([]byte, domain.JoinCodeLength)
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = alphabet[n%int64(len(alphabet))]
		n /= int64(len(alphabet))
	}
	return string(buf), nil
}

// GetGroup returns a group by id.
func (s *GroupService) GetGroup(id uuid.UUID) (*domain.Group, error) {
	return s.groupRepo.GetByID(id)
}

// GetByJoinCode resolves a join code to its group, normalizing to
// uppercase and rejecting any code outside the declared alphabet so a
// malformed code never reaches persistence. Both "never existed"
// and "existed but was deleted" map to the same ErrInvalidJoinCode.
func (s *GroupService) GetByJoinCode(code string) (*domain.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
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

// ListForUser returns every non-deleted group a user belongs to.
func (s *GroupService) ListForUser(userID uuid.UUID) ([]*domain.Group, error) {
	return s.groupRepo.ListForUser(userID)
}

// UpdateGroup edits group metadata. Permitted for owner or admin.
func (s *GroupService) UpdateGroup(actor *domain.Membership, groupID uuid.UUID, name string, label *string, defaultCurrency string) (*domain.Group, error) {
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return nil, domain.ErrInsufficientRole
	}

	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxGroupNameLength {
		return nil, domain.ErrNameTooLong
	}

	currencyChanged := group.DefaultCurrency != defaultCurrency
	group.Name = name
	group.Label = label
	group.DefaultCurrency = defaultCurrency

	updated, err := s.groupRepo.Update(group)
	if err != nil {
		return nil, err
	}

	if currencyChanged {
		s.cache.Invalidate(groupID)
	}

	return updated, nil
}

// RegenerateJoinCode rotates a group's join code. Permitted for owner or
// admin.
func (s *GroupService) RegenerateJoinCode(actor *domain.Membership, groupID uuid.UUID) (*domain.Group, error) {
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return nil, domain.ErrInsufficientRole
	}

	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return nil, err
	}

	code, err := s.allocateJoinCode()
	if err != nil {
		return nil, err
	}
	group.JoinCode = code

	return s.groupRepo.Update(group)
}

// DeleteGroup soft-deletes a group. Owner only; notifies every
// active member with group_deleted.
func (s *GroupService) DeleteGroup(actor *domain.Membership, groupID uuid.UUID) error {
	if actor.Role != domain.RoleOwner {
		return domain.ErrNotGroupOwner
	}

	members, err := s.membershipRepo.ListActiveByGroup(groupID)
	if err != nil {
		return err
	}

	if err := s.groupRepo.SoftDelete(groupID, time.Now()); err != nil {
		return err
	}

	s.cache.Invalidate(groupID)

	for _, m := range members {
		_, err := s.notificationRepo.Create(&domain.Notification{
			UserID:        m.UserID,
			Type:          domain.NotificationGroupDeleted,
			ReferenceType: "group",
			ReferenceID:   groupID,
		})
		if err != nil {
			log.Warn().Err(err).Str("group_id", groupID.String()).Msg("failed to emit group_deleted notification")
		}
	}

	log.Info().Str("group_id", groupID.String()).Msg("group soft-deleted")

	return nil
}
