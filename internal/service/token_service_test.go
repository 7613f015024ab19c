package service

import (
	"testing"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/testutil"
	"github.com/google/uuid"
)

func newTokenServiceFixture() (*TokenService, *testutil.MockTokenRepository, *testutil.MockUserRepository, *domain.User) {
	tokenRepo := testutil.NewMockTokenRepository()
	userRepo := testutil.NewMockUserRepository()

	email := "alice@example.com"
	user := &domain.User{ID: uuid.New(), Email: &email, Name: "Alice"}
	userRepo.AddUser(user)

	return NewTokenService(tokenRepo, userRepo), tokenRepo, userRepo, user
}

func TestTokenService_IssueRefreshToken_StoresOnlyHash(t *testing.T) {
	svc, tokenRepo, _, user := newTokenServiceFixture()

	plaintext, token, err := svc.IssueRefreshToken(user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plaintext == "" {
		t.Fatal("expected a plaintext token")
	}
	if token.TokenHash == plaintext {
		t.Error("plaintext must never be persisted")
	}
	if _, ok := tokenRepo.RefreshByHash[plaintext]; ok {
		t.Error("repository must be keyed by hash, not plaintext")
	}
	if token.ExpiresAt.Before(time.Now()) {
		t.Error("fresh token must not be expired")
	}
}

func TestTokenService_RotateRefreshToken_SingleUse(t *testing.T) {
	svc, _, _, user := newTokenServiceFixture()

	plaintext, _, err := svc.IssueRefreshToken(user.ID)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	replacement, rotated, err := svc.RotateRefreshToken(plaintext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replacement == "" || replacement == plaintext {
		t.Fatal("expected a fresh replacement token")
	}
	if rotated.UserID != user.ID {
		t.Errorf("replacement bound to %s, want %s", rotated.UserID, user.ID)
	}

	// Replaying the consumed token fails like an unknown token.
	if _, _, err := svc.RotateRefreshToken(plaintext); err != domain.ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound on replay, got %v", err)
	}
}

func TestTokenService_RotateRefreshToken_RejectsExpired(t *testing.T) {
	svc, _, _, user := newTokenServiceFixture()

	plaintext, token, err := svc.IssueRefreshToken(user.ID)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	// The mock stores the same row, so backdating here expires it in place.
	token.ExpiresAt = time.Now().Add(-time.Minute)

	if _, _, err := svc.RotateRefreshToken(plaintext); err != domain.ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound for expired token, got %v", err)
	}
}

func TestTokenService_RevokeRefreshToken_Idempotent(t *testing.T) {
	svc, _, _, user := newTokenServiceFixture()

	plaintext, token, err := svc.IssueRefreshToken(user.ID)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := svc.RevokeRefreshToken(plaintext); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.RevokedAt == nil {
		t.Fatal("expected token to be revoked")
	}

	// Revoking again, or revoking garbage, succeeds silently.
	if err := svc.RevokeRefreshToken(plaintext); err != nil {
		t.Fatalf("second revoke should be a no-op, got %v", err)
	}
	if err := svc.RevokeRefreshToken("never-issued"); err != nil {
		t.Fatalf("unknown token revoke should be a no-op, got %v", err)
	}
}

func TestTokenService_RequestPasswordReset_SilentForUnknownEmail(t *testing.T) {
	svc, tokenRepo, _, _ := newTokenServiceFixture()

	plaintext, err := svc.RequestPasswordReset("stranger@example.com")
	if err != nil {
		t.Fatalf("unknown address must not error: %v", err)
	}
	if plaintext != "" {
		t.Error("no token may be minted for an unknown address")
	}
	if len(tokenRepo.PasswordByHash) != 0 {
		t.Error("no reset row may be written for an unknown address")
	}
}

func TestTokenService_ConfirmPasswordReset_SingleUse(t *testing.T) {
	svc, _, _, user := newTokenServiceFixture()

	plaintext, err := svc.RequestPasswordReset(*user.Email)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if plaintext == "" {
		t.Fatal("expected a token for a known address")
	}

	userID, err := svc.ConfirmPasswordReset(plaintext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != user.ID {
		t.Errorf("confirmed for %s, want %s", userID, user.ID)
	}

	if _, err := svc.ConfirmPasswordReset(plaintext); err != domain.ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound on reuse, got %v", err)
	}
}

func TestTokenService_EmailVerification_RoundTrip(t *testing.T) {
	svc, _, _, user := newTokenServiceFixture()

	plaintext, err := svc.IssueEmailVerification(user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	userID, err := svc.ConfirmEmailVerification(plaintext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != user.ID {
		t.Errorf("verified %s, want %s", userID, user.ID)
	}

	if _, err := svc.ConfirmEmailVerification(plaintext); err != domain.ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound on reuse, got %v", err)
	}
}

func TestTokenService_IssueEmailVerification_UnknownUser(t *testing.T) {
	svc, _, _, _ := newTokenServiceFixture()

	if _, err := svc.IssueEmailVerification(uuid.New()); err == nil {
		t.Fatal("expected an error for an unknown user")
	}
}
