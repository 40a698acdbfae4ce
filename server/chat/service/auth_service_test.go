package service

import (
	"errors"
	"testing"

	"rag_server/server/chat/domain"
	commonauth "rag_server/server/common/auth"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	tokens := commonauth.NewService("test-secret", 60)
	svc, err := NewAuthService(tokens, []SeedUser{
		{Email: "user@example.com", Name: "Test User", Password: "password"},
	})
	if err != nil {
		t.Fatalf("seed auth service: %v", err)
	}
	return svc
}

func TestLogin_Success(t *testing.T) {
	svc := newTestAuthService(t)

	user, token, err := svc.Login("user@example.com", "password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Error("expected an access token")
	}
	if user.Email != "user@example.com" || user.Name != "Test User" {
		t.Errorf("unexpected user: %+v", user)
	}
	if !user.IsActive {
		t.Error("seeded user should be active")
	}
}

func TestLogin_CaseInsensitiveEmail(t *testing.T) {
	svc := newTestAuthService(t)

	if _, _, err := svc.Login("User@Example.COM", "password"); err != nil {
		t.Fatalf("login with mixed-case email failed: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestAuthService(t)

	_, _, err := svc.Login("user@example.com", "nope")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestAuthService(t)

	_, _, err := svc.Login("ghost@example.com", "password")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_EmptyCredentials(t *testing.T) {
	svc := newTestAuthService(t)

	if _, _, err := svc.Login("", "password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty email, got %v", err)
	}
	if _, _, err := svc.Login("user@example.com", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}
}

func TestGuestLogin_IssuesFreshIdentity(t *testing.T) {
	svc := newTestAuthService(t)

	first, firstToken, err := svc.GuestLogin()
	if err != nil {
		t.Fatalf("guest login failed: %v", err)
	}
	second, _, err := svc.GuestLogin()
	if err != nil {
		t.Fatalf("guest login failed: %v", err)
	}
	if firstToken == "" {
		t.Error("expected an access token for guests")
	}
	if first.ID == second.ID {
		t.Error("guest identities must be unique per login")
	}
}
