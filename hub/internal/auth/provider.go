package auth

import (
	"context"
)

// Identity is the authenticated caller. ID is the identity the engine sees
// as sender, creator, or user.
type Identity struct {
	ID       string
	Name     string // display name, defaults to ID
	Provider string
}

// Provider validates bearer tokens and returns identities.
type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Identity, error)
	Name() string
}

// LoginProvider is implemented by providers that support identity/password login.
type LoginProvider interface {
	Login(ctx context.Context, identity, password string) (string, error)
}
