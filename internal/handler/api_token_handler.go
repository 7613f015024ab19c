package handler

import (
	"net/http"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// APITokenHandler handles API token HTTP requests. Tokens are
// user-scoped, not group-scoped.
type APITokenHandler struct {
	apiTokenService *service.APITokenService
}

// NewAPITokenHandler creates a new APITokenHandler.
func NewAPITokenHandler(apiTokenService *service.APITokenService) *APITokenHandler {
	return &APITokenHandler{apiTokenService: apiTokenService}
}

// Create handles POST /api-tokens.
func (h *APITokenHandler) Create(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	var req domain.CreateAPITokenRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}
	if req.Description == "" {
		return FailWithDetails(c, domain.ErrInvalidInput, []ValidationError{
			{Field: "description", Message: "description is required"},
		})
	}

	resp, err := h.apiTokenService.Create(c.Request().Context(), userID, req.Description)
	if err != nil {
		return Fail(c, err)
	}
	return Created(c, resp)
}

// List handles GET /api-tokens.
func (h *APITokenHandler) List(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	tokens, err := h.apiTokenService.GetByUser(c.Request().Context(), userID)
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, tokens)
}

// Revoke handles DELETE /api-tokens/:tokenId.
func (h *APITokenHandler) Revoke(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	tokenID, err := uuid.Parse(c.Param("tokenId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid token id")
	}

	if err := h.apiTokenService.Revoke(c.Request().Context(), userID, tokenID); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}
