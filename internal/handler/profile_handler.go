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

// ProfileHandler handles profile-related HTTP requests.
type ProfileHandler struct {
	profileService  *service.ProfileService
	lifecycleService *service.AccountLifecycleService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService, lifecycleService *service.AccountLifecycleService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, lifecycleService: lifecycleService}
}

// UpdateProfileRequest represents the update profile request.
type UpdateProfileRequest struct {
	Name string `json:"name"`
}

// GetProfile handles GET /profile.
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	user, err := h.profileService.GetProfile(userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get profile")
		return Fail(c, err)
	}

	return OK(c, toUserResponse(user))
}

// UpdateProfile handles PUT /profile.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return FailWithDetails(c, domain.ErrNameRequired, []ValidationError{
			{Field: "name", Message: "name is required"},
		})
	}

	user, err := h.profileService.UpdateProfile(userID, name)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to update profile")
		return Fail(c, err)
	}

	log.Info().Str("user_id", userID.String()).Str("name", name).Msg("profile updated")

	return OK(c, toUserResponse(user))
}

// RequestDeletion handles POST /profile/delete, starting the account's
// deletion grace period.
func (h *ProfileHandler) RequestDeletion(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	if err := h.lifecycleService.RequestDeletion(userID); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// CancelDeletion handles POST /profile/delete/cancel, aborting a pending
// deletion request before the sweep runs.
func (h *ProfileHandler) CancelDeletion(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	if err := h.lifecycleService.CancelDeletion(userID); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}
