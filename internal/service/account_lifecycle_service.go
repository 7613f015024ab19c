package service

import (
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// accountDeletionGracePeriod is how long a requested deletion sits before
// the sweep anonymizes the row.
const accountDeletionGracePeriod = 7 * 24 * time.Hour

// AccountLifecycleService owns the request/cancel/sweep state machine for
// account deletion: a soft "requested" window followed by an
// irreversible anonymization pass, so a user who changes their mind
// within the grace period loses nothing.
type AccountLifecycleService struct {
	userRepo domain.UserRepository
}

func NewAccountLifecycleService(userRepo domain.UserRepository) *AccountLifecycleService {
	return &AccountLifecycleService{userRepo: userRepo}
}

// RequestDeletion starts the grace period for a user's account.
func (s *AccountLifecycleService) RequestDeletion(userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user.IsDeletionPending() {
		return nil
	}
	if err := s.userRepo.RequestDeletion(userID, time.Now()); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Msg("account deletion requested")
	return nil
}

// CancelDeletion aborts a pending deletion request before the sweep runs.
func (s *AccountLifecycleService) CancelDeletion(userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if !user.IsDeletionPending() {
		return domain.ErrInvalidInput
	}
	if err := s.userRepo.CancelDeletion(userID); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Msg("account deletion cancelled")
	return nil
}

// SweepDue anonymizes every account whose grace period has elapsed. Meant
// to be invoked on a daily schedule by the worker package; returns the
// count of accounts anonymized.
func (s *AccountLifecycleService) SweepDue(now time.Time) (int, error) {
	cutoff := now.Add(-accountDeletionGracePeriod)
	due, err := s.userRepo.ListDeletionDue(cutoff)
	if err != nil {
		return 0, err
	}

	anonymized := 0
	for _, u := range due {
		if err := s.userRepo.Anonymize(u.ID, now); err != nil {
			log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to anonymize account")
			continue
		}
		anonymized++
	}

	if anonymized > 0 {
		log.Info().Int("count", anonymized).Msg("account deletion sweep anonymized accounts")
	}

	return anonymized, nil
}
