package service

import (
	"strings"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
)

// ProfileService handles profile-related business logic.
type ProfileService struct {
	userRepo domain.UserRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(userRepo domain.UserRepository) *ProfileService {
	return &ProfileService{userRepo: userRepo}
}

// GetProfile retrieves a user's profile by id.
func (s *ProfileService) GetProfile(userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(userID)
}

// UpdateProfile updates a user's display name.
func (s *ProfileService) UpdateProfile(userID uuid.UUID, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	return s.userRepo.Update(user)
}
