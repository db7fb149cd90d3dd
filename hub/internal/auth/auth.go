// Package auth authenticates content hub callers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/amurg-ai/contenthub/hub/internal/config"
)

const issuer = "contenthub"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Service issues and validates HS256 tokens for builtin accounts.
// It implements Provider and LoginProvider.
type Service struct {
	jwtSecret []byte
	jwtExpiry time.Duration
	accounts  map[string]string // identity -> bcrypt hash
	now       func() time.Time
}

// NewService creates a builtin auth service from config.
func NewService(cfg config.AuthConfig) *Service {
	accounts := make(map[string]string, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts[a.Identity] = a.PasswordHash
	}
	expiry := cfg.JWTExpiry.Duration
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &Service{
		jwtSecret: []byte(cfg.JWTSecret),
		jwtExpiry: expiry,
		accounts:  accounts,
		now:       time.Now,
	}
}

// Name returns the provider name.
func (s *Service) Name() string { return "builtin" }

// Login checks identity's password and returns a signed token.
func (s *Service) Login(ctx context.Context, identity, password string) (string, error) {
	hash, ok := s.accounts[identity]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(identity)
}

// IssueToken signs a token for identity without checking credentials.
func (s *Service) IssueToken(identity string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("identity is required")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   identity,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a bearer token and returns its Identity.
func (s *Service) ValidateToken(ctx context.Context, tokenStr string) (*Identity, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrUnauthorized
	}
	return &Identity{ID: claims.Subject, Name: claims.Subject, Provider: s.Name()}, nil
}

// HashPassword returns the bcrypt hash stored in auth.accounts.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
