package auth

import (
	"fmt"

	"github.com/amurg-ai/contenthub/hub/internal/config"
)

// NewProvider creates an auth Provider based on configuration.
func NewProvider(cfg config.AuthConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "builtin":
		return NewService(cfg), nil
	case "jwks":
		return NewJWKSProvider(cfg.JWKSIssuer, cfg.JWKSURL)
	default:
		return nil, fmt.Errorf("unknown auth provider: %q", cfg.Provider)
	}
}
