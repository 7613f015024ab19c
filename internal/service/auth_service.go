package service

import (
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuthService resolves the Auth0-authenticated caller to a core User,
// creating one on first sight. Refresh-token issuance and rotation live in
// TokenService, and access-token validation lives in the middleware layer;
// this service only owns the User row the rest of the core keys off of.
type AuthService struct {
	userRepo domain.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo domain.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// AuthResult is the outcome of resolving an Auth0 callback to a User.
type AuthResult struct {
	User      *domain.User
	IsNewUser bool
}

// AuthenticateUser resolves (or creates) the User behind an Auth0 subject.
func (s *AuthService) AuthenticateUser(auth0ID, email string, name, pictureURL *string) (*AuthResult, error) {
	_, err := s.userRepo.GetByAuth0ID(auth0ID)
	isNew := err != nil

	user, err := s.userRepo.CreateOrGetByAuth0ID(auth0ID, email, name, pictureURL)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("failed to create or get user")
		return nil, err
	}

	if isNew {
		log.Info().Str("user_id", user.ID.String()).Msg("new user registered")
	}

	return &AuthResult{User: user, IsNewUser: isNew}, nil
}

// GetUserByID retrieves a user by their ID.
func (s *AuthService) GetUserByID(id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(id)
}

// GetUserByAuth0ID retrieves a user by their Auth0 ID.
func (s *AuthService) GetUserByAuth0ID(auth0ID string) (*domain.User, error) {
	return s.userRepo.GetByAuth0ID(auth0ID)
}
