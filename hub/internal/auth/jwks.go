package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSProvider validates externally issued JWTs against the issuer's JWKS.
// The token subject is the caller identity.
type JWKSProvider struct {
	issuer string
	jwks   keyfunc.Keyfunc
	cancel context.CancelFunc
}

// NewJWKSProvider fetches the key set at jwksURL and keeps it refreshed until
// Close is called.
func NewJWKSProvider(issuer, jwksURL string) (*JWKSProvider, error) {
	if issuer == "" {
		return nil, fmt.Errorf("jwks issuer is required")
	}
	if jwksURL == "" {
		jwksURL = strings.TrimRight(issuer, "/") + "/.well-known/jwks.json"
	}

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch JWKS from %s: %w", jwksURL, err)
	}

	return &JWKSProvider{
		issuer: issuer,
		jwks:   jwks,
		cancel: cancel,
	}, nil
}

// ValidateToken parses a JWT signed by one of the issuer's keys.
func (p *JWKSProvider) ValidateToken(ctx context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, p.jwks.KeyfuncCtx(ctx),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}

	sub := claimStr(claims, "sub")
	if sub == "" {
		return nil, ErrUnauthorized
	}

	name := sub
	for _, key := range []string{"preferred_username", "name", "email"} {
		if v := claimStr(claims, key); v != "" {
			name = v
			break
		}
	}

	return &Identity{ID: sub, Name: name, Provider: p.Name()}, nil
}

// Name returns the provider name.
func (p *JWKSProvider) Name() string { return "jwks" }

// Close stops the background JWKS refresh.
func (p *JWKSProvider) Close() error {
	p.cancel()
	return nil
}

func claimStr(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
