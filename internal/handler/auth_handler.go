package handler

import (
	"net/http"
	"strings"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication-related HTTP requests: the Auth0
// callback/session surface plus the opaque-token flows (refresh rotation,
// password reset, email verification).
type AuthHandler struct {
	authService  *service.AuthService
	tokenService *service.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService) *AuthHandler {
	return &AuthHandler{authService: authService, tokenService: tokenService}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID         string  `json:"id"`
	Email      *string `json:"email"`
	Name       string  `json:"name"`
	PictureURL *string `json:"pictureUrl,omitempty"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		PictureURL: u.PictureURL,
	}
}

// AuthCallbackResponse represents the response from the auth callback.
// RefreshToken carries the plaintext exactly once; only its hash survives
// server-side.
type AuthCallbackResponse struct {
	User         UserResponse `json:"user"`
	IsNewUser    bool         `json:"isNewUser"`
	RefreshToken string       `json:"refreshToken,omitempty"`
}

// Callback handles the Auth0 callback after successful authentication,
// resolving (or creating) the core User for this subject and minting a
// refresh token for the new session.
// POST /auth/callback
func (h *AuthHandler) Callback(c echo.Context) error {
	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		log.Error().Msg("no auth0 id in context - middleware may not be configured")
		return Fail(c, domain.ErrUnauthorized)
	}

	customClaims := middleware.GetCustomClaims(c)
	var email, name, picture string
	if customClaims != nil {
		email = customClaims.Email
		name = customClaims.Name
		picture = customClaims.Picture
	}

	if email == "" {
		log.Error().Str("auth0_id", auth0ID).Msg("no email in jwt claims")
		return FailWithDetails(c, domain.ErrInvalidInput, []ValidationError{
			{Field: "email", Message: "email claim is missing from token"},
		})
	}

	var namePtr, picturePtr *string
	if name != "" {
		namePtr = &name
	}
	if picture != "" {
		picturePtr = &picture
	}

	result, err := h.authService.AuthenticateUser(auth0ID, email, namePtr, picturePtr)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("failed to authenticate user")
		return Fail(c, err)
	}

	refreshToken, _, err := h.tokenService.IssueRefreshToken(result.User.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", result.User.ID.String()).Msg("failed to issue refresh token")
		return Fail(c, domain.ErrInternal)
	}

	return OK(c, AuthCallbackResponse{
		User:         toUserResponse(result.User),
		IsNewUser:    result.IsNewUser,
		RefreshToken: refreshToken,
	})
}

// Me returns the current authenticated user's information.
// GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		return Fail(c, domain.ErrUnauthorized)
	}

	user, err := h.authService.GetUserByAuth0ID(auth0ID)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("failed to get user")
		return Fail(c, domain.ErrUserNotFound)
	}

	return OK(c, toUserResponse(user))
}

// ValidationError is a single field-level validation failure, carried as
// an error response's details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// LogoutRequest optionally carries the session's refresh token so it can
// be revoked server-side.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LogoutResponse represents the response from logout.
type LogoutResponse struct {
	Message string `json:"message"`
}

// Logout handles user logout: the session's refresh token (if presented)
// is revoked so it can never be rotated again. Access-token termination
// itself happens on Auth0's side.
// POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		return Fail(c, domain.ErrUnauthorized)
	}

	var req LogoutRequest
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		if err := h.tokenService.RevokeRefreshToken(req.RefreshToken); err != nil {
			log.Warn().Err(err).Str("auth0_id", auth0ID).Msg("failed to revoke refresh token on logout")
		}
	}

	log.Info().Str("auth0_id", auth0ID).Msg("user logged out")

	return OK(c, LogoutResponse{Message: "logged out successfully"})
}

// RefreshRequest carries the refresh token being exchanged.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries the replacement token.
type RefreshResponse struct {
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

// Refresh rotates a refresh token: the presented token is consumed and a
// replacement is returned. Replays and expired tokens fail with the same
// generic error.
// POST /auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "refresh token is required")
	}

	plaintext, token, err := h.tokenService.RotateRefreshToken(req.RefreshToken)
	if err != nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	return OK(c, RefreshResponse{
		RefreshToken: plaintext,
		ExpiresAt:    token.ExpiresAt.Format(timeFormat),
	})
}

// ForgotPasswordRequest carries the address to send a reset link to.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword mints a password-reset token and hands it to the external
// mailer. The response is identical whether or not the address exists.
// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "email is required")
	}

	// The plaintext goes to the email delivery collaborator, never into
	// this response.
	if _, err := h.tokenService.RequestPasswordReset(strings.TrimSpace(req.Email)); err != nil {
		log.Error().Err(err).Msg("failed to mint password reset token")
	}

	return OK(c, map[string]string{
		"message": "If an account exists for that address, a reset link has been sent.",
	})
}

// ResetPasswordRequest carries the single-use reset token.
type ResetPasswordRequest struct {
	Token string `json:"token"`
}

// ResetPassword consumes a reset token. The credential change itself is
// completed at the identity provider once the link is proven valid.
// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "token is required")
	}

	if _, err := h.tokenService.ConfirmPasswordReset(req.Token); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid or expired reset token")
	}

	return OK(c, map[string]string{"message": "password reset confirmed"})
}

// RequestEmailVerification mints a verification token for the caller's
// email on file and hands it to the external mailer.
// POST /auth/verify-email/request
func (h *AuthHandler) RequestEmailVerification(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	if _, err := h.tokenService.IssueEmailVerification(userID); err != nil {
		return Fail(c, err)
	}

	return OK(c, map[string]string{"message": "verification email sent"})
}

// VerifyEmailRequest carries the single-use verification token.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmail consumes an email-verification token.
// POST /auth/verify-email
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "token is required")
	}

	if _, err := h.tokenService.ConfirmEmailVerification(req.Token); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid or expired verification token")
	}

	return OK(c, map[string]string{"message": "email verified"})
}
