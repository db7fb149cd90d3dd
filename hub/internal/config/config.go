// Package config handles content hub configuration loading and validation.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// knownWeakSecrets is a blocklist of secrets that must never be used in production.
var knownWeakSecrets = map[string]bool{
	"local-dev-secret-for-testing-only-32chars!": true,
	"changeme": true,
	"secret":   true,
}

// Drivers lists the supported storage drivers.
var Drivers = []string{"sqlite", "postgres", "redis", "memory"}

// GenerateRandomSecret returns a cryptographically random 64-character hex string
// suitable for use as a JWT secret.
func GenerateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Config is the top-level content hub configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Events    EventsConfig    `json:"events,omitempty" yaml:"events,omitempty"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// ServerConfig defines the HTTP listener settings.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr" env:"CONTENTHUB_SERVER_ADDR"` // e.g. ":8080"
	TLSCert        string   `json:"tls_cert,omitempty" yaml:"tls_cert,omitempty"`
	TLSKey         string   `json:"tls_key,omitempty" yaml:"tls_key,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"` // CORS origins; default ["*"]
	MaxBodyBytes   int64    `json:"max_body_bytes,omitempty" yaml:"max_body_bytes,omitempty"`   // default 1MB
}

// AuthConfig defines how caller identities are authenticated.
type AuthConfig struct {
	Provider   string    `json:"provider,omitempty" yaml:"provider,omitempty"` // "builtin" (default) or "jwks"
	JWKSIssuer string    `json:"jwks_issuer,omitempty" yaml:"jwks_issuer,omitempty" env:"CONTENTHUB_AUTH_JWKS_ISSUER"`
	JWKSURL    string    `json:"jwks_url,omitempty" yaml:"jwks_url,omitempty"` // default <issuer>/.well-known/jwks.json
	JWTSecret  string    `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty" env:"CONTENTHUB_AUTH_JWT_SECRET"`
	JWTExpiry  Duration  `json:"jwt_expiry,omitempty" yaml:"jwt_expiry,omitempty"`
	Accounts   []Account `json:"accounts,omitempty" yaml:"accounts,omitempty"`
}

// Account is a builtin login. PasswordHash is a bcrypt hash.
type Account struct {
	Identity     string `json:"identity" yaml:"identity"`
	PasswordHash string `json:"password_hash" yaml:"password_hash"`
}

// StorageConfig defines the backing key-value store.
type StorageConfig struct {
	Driver    string `json:"driver" yaml:"driver" env:"CONTENTHUB_STORAGE_DRIVER"` // "sqlite" (default)
	DSN       string `json:"dsn" yaml:"dsn" env:"CONTENTHUB_STORAGE_DSN"`          // e.g. "contenthub.db", ":memory:", "redis://localhost:6379/0"
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`       // redis key prefix
}

// EventsConfig defines where committed exec events are published.
type EventsConfig struct {
	KafkaBrokers []string `json:"kafka_brokers,omitempty" yaml:"kafka_brokers,omitempty" env:"CONTENTHUB_EVENTS_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `json:"kafka_topic,omitempty" yaml:"kafka_topic,omitempty"`
	FeedBuffer   int      `json:"feed_buffer,omitempty" yaml:"feed_buffer,omitempty"` // per-subscriber channel size
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" env:"CONTENTHUB_LOG_LEVEL"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" env:"CONTENTHUB_LOG_FORMAT"` // "json" or "text"
}

// RateLimitConfig defines rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"` // default 10
	Burst             int     `json:"burst,omitempty" yaml:"burst,omitempty"`                             // default 20
}

// Duration is a time.Duration that decodes from "30m" style strings or from
// a number of seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		return d.UnmarshalText([]byte(val))
	case float64:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalText(b []byte) error {
	dur, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!int" || node.Tag == "!!float" {
		var secs float64
		if err := node.Decode(&secs); err != nil {
			return err
		}
		d.Duration = time.Duration(secs) * time.Second
		return nil
	}
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Load reads a JSON or YAML config file, applies CONTENTHUB_* environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := Decode(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Decode unmarshals data as YAML when path ends in .yaml or .yml, and as JSON otherwise.
func Decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

// Encode is the inverse of Decode.
func Encode(path string, cfg *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ParseEnv overlays environment variables onto target. Unset variables leave
// the existing values alone.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Auth.Provider {
	case "", "builtin":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required")
		}
	case "jwks":
		if c.Auth.JWKSIssuer == "" {
			return fmt.Errorf("auth.jwks_issuer is required when provider is jwks")
		}
	default:
		return fmt.Errorf("unsupported auth provider: %q", c.Auth.Provider)
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if knownWeakSecrets[c.Auth.JWTSecret] {
		return fmt.Errorf("auth.jwt_secret is a well-known weak secret, generate a new one")
	}
	for i, a := range c.Auth.Accounts {
		if a.Identity == "" || a.PasswordHash == "" {
			return fmt.Errorf("auth.accounts[%d]: identity and password_hash are required", i)
		}
	}
	if c.Storage.Driver != "" && !validDriver(c.Storage.Driver) {
		return fmt.Errorf("unsupported storage driver: %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for postgres")
	}
	return nil
}

func validDriver(d string) bool {
	for _, known := range Drivers {
		if d == known {
			return true
		}
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.Auth.Provider == "" {
		c.Auth.Provider = "builtin"
	}
	if c.Auth.JWTExpiry.Duration == 0 {
		c.Auth.JWTExpiry.Duration = 24 * time.Hour
	}
	if c.Auth.Provider == "jwks" && c.Auth.JWKSURL == "" {
		c.Auth.JWKSURL = strings.TrimRight(c.Auth.JWKSIssuer, "/") + "/.well-known/jwks.json"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DSN == "" {
		switch c.Storage.Driver {
		case "sqlite":
			c.Storage.DSN = "contenthub.db"
		case "redis":
			c.Storage.DSN = "localhost:6379"
		}
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = "contenthub"
	}
	if c.Events.KafkaTopic == "" {
		c.Events.KafkaTopic = "contenthub.events"
	}
	if c.Events.FeedBuffer == 0 {
		c.Events.FeedBuffer = 64
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1024 * 1024 // 1MB
	}
}
