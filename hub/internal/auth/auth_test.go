package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/amurg-ai/contenthub/hub/internal/config"
)

const testSecret = "test-secret-at-least-32-chars-long"

func newTestAuthService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("alice-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.AuthConfig{
		JWTSecret: testSecret,
		JWTExpiry: config.Duration{Duration: 1 * time.Hour},
		Accounts:  []config.Account{{Identity: "alice", PasswordHash: string(hash)}},
	}
	return NewService(cfg)
}

func TestLoginSuccess(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, "alice", "alice-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	id, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if id.ID != "alice" || id.Provider != "builtin" {
		t.Errorf("identity = %+v", id)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestAuthService(t)
	_, err := svc.Login(context.Background(), "alice", "wrong-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginNonexistentUser(t *testing.T) {
	svc := newTestAuthService(t)
	_, err := svc.Login(context.Background(), "mallory", "anything")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestIssueTokenRequiresIdentity(t *testing.T) {
	svc := newTestAuthService(t)
	if _, err := svc.IssueToken(""); err == nil {
		t.Fatal("expected error for empty identity")
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	good, err := svc.IssueToken("bob")
	if err != nil {
		t.Fatal(err)
	}

	otherSecret := NewService(config.AuthConfig{JWTSecret: "another-secret-that-is-32-chars-long"})
	foreign, _ := otherSecret.IssueToken("bob")

	noIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "bob",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  issuer,
		Subject: "bob",
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"tampered", good[:len(good)-2] + "xx"},
		{"wrong secret", foreign},
		{"wrong issuer", noIssuer},
		{"no expiry", noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(ctx, tt.token); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestExpiredToken(t *testing.T) {
	svc := newTestAuthService(t)
	token, err := svc.IssueToken("alice")
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q is not bcrypt", hash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.AuthConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "builtin" {
		t.Errorf("Name = %q", p.Name())
	}
	if _, ok := p.(LoginProvider); !ok {
		t.Error("builtin provider does not support login")
	}
	if _, err := NewProvider(config.AuthConfig{Provider: "ldap"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
