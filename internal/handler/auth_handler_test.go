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
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// setupAuthContext wires an Auth0 subject plus custom claims into the
// request context, mirroring what the JWT middleware would have set.
func setupAuthContext(c echo.Context, auth0ID string, email, name, picture string) {
	customClaims := &middleware.CustomClaims{
		Email:   email,
		Name:    name,
		Picture: picture,
	}
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Subject: auth0ID,
		},
		CustomClaims: customClaims,
	}
	ctx := context.WithValue(c.Request().Context(), middleware.ClaimsKey, claims)
	ctx = context.WithValue(ctx, middleware.Auth0IDKey, auth0ID)
	c.SetRequest(c.Request().WithContext(ctx))
}

func setupAuthHandler() (*AuthHandler, *testutil.MockUserRepository, *testutil.MockTokenRepository) {
	userRepo := testutil.NewMockUserRepository()
	tokenRepo := testutil.NewMockTokenRepository()
	authService := service.NewAuthService(userRepo)
	tokenService := service.NewTokenService(tokenRepo, userRepo)
	return NewAuthHandler(authService, tokenService), userRepo, tokenRepo
}

func TestCallback_NewUser(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContext(c, "auth0|newuser123", "new@example.com", "New User", "https://example.com/pic.jpg")

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !response.Success {
		t.Fatal("Expected success envelope")
	}

	data, err := json.Marshal(response.Data)
	if err != nil {
		t.Fatalf("Failed to re-marshal data: %v", err)
	}
	var callback AuthCallbackResponse
	if err := json.Unmarshal(data, &callback); err != nil {
		t.Fatalf("Failed to unmarshal callback response: %v", err)
	}

	if !callback.IsNewUser {
		t.Error("Expected IsNewUser to be true for new user")
	}
	if callback.User.Email == nil || *callback.User.Email != "new@example.com" {
		t.Errorf("Expected email 'new@example.com', got %v", callback.User.Email)
	}
	if callback.RefreshToken == "" {
		t.Error("Expected a refresh token to be minted for the new session")
	}
}

func TestCallback_ExistingUser(t *testing.T) {
	e := echo.New()
	handler, userRepo, _ := setupAuthHandler()

	auth0ID := "auth0|existing123"
	email := "existing@example.com"
	existingUser := &domain.User{
		ID:      uuid.New(),
		Auth0ID: &auth0ID,
		Email:   &email,
		Name:    "Existing User",
	}
	userRepo.AddUser(existingUser)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContext(c, auth0ID, email, "Existing User", "")

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	data, _ := json.Marshal(response.Data)
	var callback AuthCallbackResponse
	if err := json.Unmarshal(data, &callback); err != nil {
		t.Fatalf("Failed to unmarshal callback response: %v", err)
	}

	if callback.IsNewUser {
		t.Error("Expected IsNewUser to be false for existing user")
	}
	if callback.User.ID != existingUser.ID.String() {
		t.Errorf("Expected user ID %s, got %s", existingUser.ID, callback.User.ID)
	}
}

func TestCallback_MissingAuth0ID(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestCallback_MissingEmail(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContext(c, "auth0|noemail123", "", "No Email User", "")

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var response envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Error == nil || response.Error.Code != "validation_error" {
		t.Errorf("Expected validation_error code, got %+v", response.Error)
	}
}

func TestMe_Success(t *testing.T) {
	e := echo.New()
	handler, userRepo, _ := setupAuthHandler()

	auth0ID := "auth0|me123"
	email := "me@example.com"
	existingUser := &domain.User{
		ID:      uuid.New(),
		Auth0ID: &auth0ID,
		Email:   &email,
		Name:    "Me User",
	}
	userRepo.AddUser(existingUser)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContext(c, auth0ID, email, "Me User", "")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	data, _ := json.Marshal(response.Data)
	var user UserResponse
	if err := json.Unmarshal(data, &user); err != nil {
		t.Fatalf("Failed to unmarshal user response: %v", err)
	}
	if user.Email == nil || *user.Email != "me@example.com" {
		t.Errorf("Expected email 'me@example.com', got %v", user.Email)
	}
}

func TestMe_MissingAuth0ID(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupAuthHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestMe_UserNotFound(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupAuthHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContext(c, "auth0|notfound", "notfound@example.com", "Not Found", "")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestLogout_RevokesPresentedRefreshToken(t *testing.T) {
	e := echo.New()
	handler, userRepo, tokenRepo := setupAuthHandler()
	user := seedUser(userRepo, "Logout")

	// Mint a session the way Callback would, against the same repo the
	// handler's service writes to.
	tokenService := service.NewTokenService(tokenRepo, userRepo)
	plaintext, minted, err := tokenService.IssueRefreshToken(user.ID)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	body := `{"refreshToken": "` + plaintext + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContext(c, "auth0|logout123", "logout@example.com", "Logout User", "")

	if err := handler.Logout(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	if minted.RevokedAt == nil {
		t.Error("Expected the presented refresh token to be revoked")
	}
}

func TestLogout_MissingAuth0ID(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Logout(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}

	var response envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Error == nil || response.Error.Code != "unauthorized" {
		t.Errorf("Expected unauthorized code, got %+v", response.Error)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	e := echo.New()
	handler, userRepo, tokenRepo := setupAuthHandler()
	user := seedUser(userRepo, "Rotate")

	tokenService := service.NewTokenService(tokenRepo, userRepo)
	plaintext, _, err := tokenService.IssueRefreshToken(user.ID)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	body := `{"refreshToken": "` + plaintext + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Refresh(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response struct {
		Success bool            `json:"success"`
		Data    RefreshResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Data.RefreshToken == "" || response.Data.RefreshToken == plaintext {
		t.Error("Expected a fresh replacement token")
	}

	// The consumed token must not rotate twice.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, rec)

	if err := handler.Refresh(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 on replay, got %d", rec.Code)
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Refresh(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestForgotPassword_SameResponseForUnknownAddress(t *testing.T) {
	e := echo.New()
	handler, userRepo, _ := setupAuthHandler()
	seedUser(userRepo, "Known")

	for _, email := range []string{"known@example.com", "stranger@example.com"} {
		body := `{"email": "` + email + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/forgot-password", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.ForgotPassword(c); err != nil {
			t.Fatalf("Expected no error for %s, got %v", email, err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200 for %s, got %d", email, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "stranger") || strings.Contains(rec.Body.String(), "known@") {
			t.Errorf("Response for %s must not echo the address: %s", email, rec.Body.String())
		}
	}
}

func TestResetPassword_ConsumesTokenOnce(t *testing.T) {
	e := echo.New()
	handler, userRepo, tokenRepo := setupAuthHandler()
	user := seedUser(userRepo, "Reset")

	tokenService := service.NewTokenService(tokenRepo, userRepo)
	plaintext, err := tokenService.RequestPasswordReset(*user.Email)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	body := `{"token": "` + plaintext + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/reset-password", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ResetPassword(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Second use of the same link fails.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/reset-password", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, rec)

	if err := handler.ResetPassword(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 on reuse, got %d", rec.Code)
	}
}

func TestVerifyEmail_ConsumesToken(t *testing.T) {
	e := echo.New()
	handler, userRepo, tokenRepo := setupAuthHandler()
	user := seedUser(userRepo, "Verify")

	tokenService := service.NewTokenService(tokenRepo, userRepo)
	plaintext, err := tokenService.IssueEmailVerification(user.ID)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	body := `{"token": "` + plaintext + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/verify-email", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.VerifyEmail(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
