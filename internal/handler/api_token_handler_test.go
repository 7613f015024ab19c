package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func setupAPITokenHandler() (*APITokenHandler, *testutil.MockAPITokenRepository) {
	tokenRepo := testutil.NewMockAPITokenRepository()
	tokenService := service.NewAPITokenService(tokenRepo)
	return NewAPITokenHandler(tokenService), tokenRepo
}

func newAPITokenContext(e *echo.Echo, method, body string, userID uuid.UUID, tokenID string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if tokenID != "" {
		c.SetParamNames("tokenId")
		c.SetParamValues(tokenID)
	}
	if userID != uuid.Nil {
		ctx := context.WithValue(c.Request().Context(), middleware.UserIDKey, userID)
		c.SetRequest(c.Request().WithContext(ctx))
	}
	return c, rec
}

func TestAPITokenHandler_Create_Success(t *testing.T) {
	e := echo.New()
	handler, _ := setupAPITokenHandler()
	userID := uuid.New()

	c, rec := newAPITokenContext(e, http.MethodPost, `{"description": "CI script"}`, userID, "")

	err := handler.Create(c)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response struct {
		Success bool                           `json:"success"`
		Data    domain.CreateAPITokenResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Data.Token == "" {
		t.Error("expected the full token in the create response")
	}
	if !strings.HasPrefix(response.Data.Token, "divvy_") {
		t.Errorf("expected token prefix divvy_, got %s", response.Data.Token)
	}
	if response.Data.Description != "CI script" {
		t.Errorf("expected description to round-trip, got %s", response.Data.Description)
	}
}

func TestAPITokenHandler_Create_MissingUser(t *testing.T) {
	e := echo.New()
	handler, _ := setupAPITokenHandler()

	c, rec := newAPITokenContext(e, http.MethodPost, `{"description": "CI script"}`, uuid.Nil, "")

	err := handler.Create(c)
	if err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAPITokenHandler_Create_MissingDescription(t *testing.T) {
	e := echo.New()
	handler, _ := setupAPITokenHandler()

	c, rec := newAPITokenContext(e, http.MethodPost, `{}`, uuid.New(), "")

	err := handler.Create(c)
	if err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestAPITokenHandler_Create_TooManyTokens(t *testing.T) {
	e := echo.New()
	handler, tokenRepo := setupAPITokenHandler()
	userID := uuid.New()

	for i := 0; i < 10; i++ {
		_ = tokenRepo.Create(context.Background(), &domain.APIToken{
			UserID:      userID,
			Description: "existing",
			TokenHash:   uuid.New().String(),
			TokenPrefix: "divvy_xxx...",
		})
	}

	c, rec := newAPITokenContext(e, http.MethodPost, `{"description": "one too many"}`, userID, "")

	err := handler.Create(c)
	if err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestAPITokenHandler_List_ExcludesSecret(t *testing.T) {
	e := echo.New()
	handler, tokenRepo := setupAPITokenHandler()
	userID := uuid.New()

	_ = tokenRepo.Create(context.Background(), &domain.APIToken{
		UserID:      userID,
		Description: "CI script",
		TokenHash:   "deadbeef",
		TokenPrefix: "divvy_abc...",
	})

	c, rec := newAPITokenContext(e, http.MethodGet, "", userID, "")

	err := handler.List(c)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	if strings.Contains(rec.Body.String(), "deadbeef") {
		t.Error("list response must never include the token hash")
	}

	var response struct {
		Success bool                       `json:"success"`
		Data    []domain.APITokenResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(response.Data) != 1 {
		t.Fatalf("expected 1 token, got %d", len(response.Data))
	}
	if response.Data[0].TokenPrefix != "divvy_abc..." {
		t.Errorf("expected display prefix, got %s", response.Data[0].TokenPrefix)
	}
}

func TestAPITokenHandler_Revoke_Success(t *testing.T) {
	e := echo.New()
	handler, tokenRepo := setupAPITokenHandler()
	userID := uuid.New()

	token := &domain.APIToken{
		UserID:      userID,
		Description: "CI script",
		TokenHash:   "deadbeef",
		TokenPrefix: "divvy_abc...",
	}
	_ = tokenRepo.Create(context.Background(), token)

	c, rec := newAPITokenContext(e, http.MethodDelete, "", userID, token.ID.String())

	err := handler.Revoke(c)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestAPITokenHandler_Revoke_OtherUsersToken(t *testing.T) {
	e := echo.New()
	handler, tokenRepo := setupAPITokenHandler()

	owner := uuid.New()
	token := &domain.APIToken{
		UserID:      owner,
		Description: "CI script",
		TokenHash:   "deadbeef",
		TokenPrefix: "divvy_abc...",
	}
	_ = tokenRepo.Create(context.Background(), token)

	c, rec := newAPITokenContext(e, http.MethodDelete, "", uuid.New(), token.ID.String())

	err := handler.Revoke(c)
	if err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestAPITokenHandler_Revoke_InvalidID(t *testing.T) {
	e := echo.New()
	handler, _ := setupAPITokenHandler()

	c, rec := newAPITokenContext(e, http.MethodDelete, "", uuid.New(), "not-a-uuid")

	err := handler.Revoke(c)
	if err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
