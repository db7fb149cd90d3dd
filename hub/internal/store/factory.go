package store

import (
	"fmt"

	"github.com/amurg-ai/contenthub/hub/internal/config"
)

// New creates a Store based on the configured storage driver.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "postgres":
		return NewPostgres(cfg.DSN)
	case "redis":
		return NewRedis(cfg.DSN, cfg.Namespace)
	case "sqlite", "":
		return NewSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Driver)
	}
}
