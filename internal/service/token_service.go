package service

import (
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// refreshTokenTTL is how long a refresh token stays usable before the
	// session must re-authenticate from scratch.
	refreshTokenTTL = 30 * 24 * time.Hour
	// passwordResetTTL keeps reset links short-lived.
	passwordResetTTL = time.Hour
	// emailVerificationTTL gives the user a day to click the link.
	emailVerificationTTL = 24 * time.Hour
)

// TokenService owns the three single-use opaque token kinds: refresh
// tokens (session renewal), password-reset tokens, and email-verification
// tokens. All share the generate-hash shape APITokenService uses: the
// plaintext is returned exactly once, only its SHA-256 hash is persisted,
// and lookups go by hash. Delivery of reset/verification links belongs to
// the external email collaborator; this service only mints and consumes.
type TokenService struct {
	tokenRepo domain.TokenRepository
	userRepo  domain.UserRepository
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokenRepo domain.TokenRepository, userRepo domain.UserRepository) *TokenService {
	return &TokenService{tokenRepo: tokenRepo, userRepo: userRepo}
}

// IssueRefreshToken mints a refresh token for a freshly authenticated
// user and returns the plaintext for one-time delivery to the client.
func (s *TokenService) IssueRefreshToken(userID uuid.UUID) (string, *domain.RefreshToken, error) {
	plaintext, err := generateSecureToken()
	if err != nil {
		return "", nil, err
	}

	token := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(plaintext),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.tokenRepo.CreateRefreshToken(token); err != nil {
		return "", nil, err
	}

	log.Info().Str("user_id", userID.String()).Msg("refresh token issued")

	return plaintext, token, nil
}

// RotateRefreshToken exchanges a valid refresh token for a new one. The
// presented token is single-use: it is marked used and revoked before the
// replacement is minted, so a replayed token fails with the same generic
// error as a token that never existed.
func (s *TokenService) RotateRefreshToken(plaintext string) (string, *domain.RefreshToken, error) {
	token, err := s.tokenRepo.GetRefreshTokenByHash(hashToken(plaintext))
	if err != nil {
		return "", nil, domain.ErrTokenNotFound
	}
	if token.RevokedAt != nil || token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return "", nil, domain.ErrTokenNotFound
	}

	now := time.Now()
	if err := s.tokenRepo.MarkRefreshTokenUsed(token.ID, now); err != nil {
		return "", nil, err
	}
	if err := s.tokenRepo.RevokeRefreshToken(token.ID, now); err != nil {
		return "", nil, err
	}

	return s.IssueRefreshToken(token.UserID)
}

// RevokeRefreshToken invalidates the presented refresh token (logout).
// Unknown or already-revoked tokens are treated as success so logout is
// idempotent and reveals nothing.
func (s *TokenService) RevokeRefreshToken(plaintext string) error {
	token, err := s.tokenRepo.GetRefreshTokenByHash(hashToken(plaintext))
	if err != nil {
		return nil
	}
	if token.RevokedAt != nil {
		return nil
	}
	return s.tokenRepo.RevokeRefreshToken(token.ID, time.Now())
}

// RequestPasswordReset mints a reset token for the account behind email,
// returning the plaintext for the external mailer. When no account matches
// it returns an empty string and no error, so the caller's response is
// identical for known and unknown addresses.
func (s *TokenService) RequestPasswordReset(email string) (string, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		log.Info().Msg("password reset requested for unknown address")
		return "", nil
	}

	plaintext, err := generateSecureToken()
	if err != nil {
		return "", err
	}
	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashToken(plaintext),
		ExpiresAt: time.Now().Add(passwordResetTTL),
	}
	if err := s.tokenRepo.CreatePasswordResetToken(token); err != nil {
		return "", err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("password reset token issued")

	return plaintext, nil
}

// ConfirmPasswordReset consumes a reset token and returns the user it
// belongs to. The credential change itself happens at the external
// identity provider; the core's job ends at proving the link was valid
// and single-use.
func (s *TokenService) ConfirmPasswordReset(plaintext string) (uuid.UUID, error) {
	token, err := s.tokenRepo.GetPasswordResetTokenByHash(hashToken(plaintext))
	if err != nil {
		return uuid.Nil, domain.ErrTokenNotFound
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return uuid.Nil, domain.ErrTokenNotFound
	}

	if err := s.tokenRepo.MarkPasswordResetTokenUsed(token.ID, time.Now()); err != nil {
		return uuid.Nil, err
	}

	log.Info().Str("user_id", token.UserID.String()).Msg("password reset confirmed")

	return token.UserID, nil
}

// IssueEmailVerification mints a verification token for the user's email
// on file, returning the plaintext for the external mailer.
func (s *TokenService) IssueEmailVerification(userID uuid.UUID) (string, error) {
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return "", err
	}

	plaintext, err := generateSecureToken()
	if err != nil {
		return "", err
	}
	token := &domain.EmailVerificationToken{
		UserID:    userID,
		TokenHash: hashToken(plaintext),
		ExpiresAt: time.Now().Add(emailVerificationTTL),
	}
	if err := s.tokenRepo.CreateEmailVerificationToken(token); err != nil {
		return "", err
	}

	return plaintext, nil
}

// ConfirmEmailVerification consumes a verification token and returns the
// verified user's id.
func (s *TokenService) ConfirmEmailVerification(plaintext string) (uuid.UUID, error) {
	token, err := s.tokenRepo.GetEmailVerificationTokenByHash(hashToken(plaintext))
	if err != nil {
		return uuid.Nil, domain.ErrTokenNotFound
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return uuid.Nil, domain.ErrTokenNotFound
	}

	if err := s.tokenRepo.MarkEmailVerificationTokenUsed(token.ID, time.Now()); err != nil {
		return uuid.Nil, err
	}

	log.Info().Str("user_id", token.UserID.String()).Msg("email verified")

	return token.UserID, nil
}
