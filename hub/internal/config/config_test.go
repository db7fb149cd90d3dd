package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "my-super-secret-jwt-key-at-least-32"

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	configJSON := `{
		"server": {
			"addr": ":8080",
			"allowed_origins": ["http://localhost:3000"]
		},
		"auth": {
			"jwt_secret": "my-super-secret-jwt-key-at-least-32",
			"jwt_expiry": "2h",
			"accounts": [
				{"identity": "alice", "password_hash": "$2a$10$abc"}
			]
		},
		"storage": {
			"driver": "postgres",
			"dsn": "postgres://localhost/contenthub"
		},
		"events": {
			"kafka_brokers": ["k1:9092", "k2:9092"],
			"kafka_topic": "hub.events"
		},
		"logging": {
			"level": "debug",
			"format": "text"
		},
		"rate_limit": {
			"requests_per_second": 20,
			"burst": 40
		}
	}`

	path := writeTempConfig(t, "config.json", configJSON)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Server
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr: got %q, want %q", cfg.Server.Addr, ":8080")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Server.AllowedOrigins: got %v, want [http://localhost:3000]", cfg.Server.AllowedOrigins)
	}

	// Auth
	if cfg.Auth.JWTSecret != testSecret {
		t.Errorf("Auth.JWTSecret: got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.JWTExpiry.Duration != 2*time.Hour {
		t.Errorf("Auth.JWTExpiry: got %v, want 2h", cfg.Auth.JWTExpiry.Duration)
	}
	if len(cfg.Auth.Accounts) != 1 || cfg.Auth.Accounts[0].Identity != "alice" {
		t.Fatalf("Auth.Accounts: got %+v", cfg.Auth.Accounts)
	}
	if cfg.Auth.Provider != "builtin" {
		t.Errorf("Auth.Provider: got %q, want builtin", cfg.Auth.Provider)
	}

	// Storage
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("Storage.Driver: got %q, want %q", cfg.Storage.Driver, "postgres")
	}
	if cfg.Storage.DSN != "postgres://localhost/contenthub" {
		t.Errorf("Storage.DSN: got %q", cfg.Storage.DSN)
	}

	// Events
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("Events.KafkaBrokers: got %v", cfg.Events.KafkaBrokers)
	}
	if cfg.Events.KafkaTopic != "hub.events" {
		t.Errorf("Events.KafkaTopic: got %q", cfg.Events.KafkaTopic)
	}

	// Logging
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}

	// Rate limit
	if cfg.RateLimit.RequestsPerSecond != 20 {
		t.Errorf("RateLimit.RequestsPerSecond: got %f, want 20", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.RateLimit.Burst != 40 {
		t.Errorf("RateLimit.Burst: got %d, want 40", cfg.RateLimit.Burst)
	}
}

func TestLoadYAML(t *testing.T) {
	configYAML := `
server:
  addr: ":9090"
auth:
  jwt_secret: my-super-secret-jwt-key-at-least-32
  jwt_expiry: 90
storage:
  driver: redis
  dsn: redis://localhost:6379/1
  namespace: hubtest
logging:
  format: text
`
	path := writeTempConfig(t, "config.yaml", configYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr: got %q", cfg.Server.Addr)
	}
	if cfg.Auth.JWTExpiry.Duration != 90*time.Second {
		t.Errorf("Auth.JWTExpiry: got %v, want 90s", cfg.Auth.JWTExpiry.Duration)
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.Namespace != "hubtest" {
		t.Errorf("Storage: got %+v", cfg.Storage)
	}
	if cfg.Logging.Format != "text" || cfg.Logging.Level != "info" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONTENTHUB_SERVER_ADDR", ":7070")
	t.Setenv("CONTENTHUB_STORAGE_DRIVER", "memory")
	t.Setenv("CONTENTHUB_EVENTS_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("CONTENTHUB_LOG_LEVEL", "warn")

	minimal := `{
		"server": {"addr": ":8080"},
		"auth": {"jwt_secret": "my-secret-key-for-testing-purposes"},
		"storage": {"driver": "sqlite", "dsn": "file.db"}
	}`
	cfg, err := Load(writeTempConfig(t, "config.json", minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr: got %q, want :7070", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver: got %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN != "file.db" {
		t.Errorf("Storage.DSN: got %q, want file.db (unset env keeps file value)", cfg.Storage.DSN)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[0] != "a:9092" {
		t.Errorf("Events.KafkaBrokers: got %v", cfg.Events.KafkaBrokers)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level: got %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "missing addr",
			config:  `{"server": {}, "auth": {"jwt_secret": "some-secret-value-long-enough-for-32"}}`,
			wantErr: "server.addr",
		},
		{
			name:    "missing secret",
			config:  `{"server": {"addr": ":8080"}, "auth": {}}`,
			wantErr: "auth.jwt_secret is required",
		},
		{
			name:    "short secret",
			config:  `{"server": {"addr": ":8080"}, "auth": {"jwt_secret": "short"}}`,
			wantErr: "at least 32",
		},
		{
			name:    "weak secret",
			config:  `{"server": {"addr": ":8080"}, "auth": {"jwt_secret": "local-dev-secret-for-testing-only-32chars!"}}`,
			wantErr: "weak secret",
		},
		{
			name:    "jwks without issuer",
			config:  `{"server": {"addr": ":8080"}, "auth": {"provider": "jwks"}}`,
			wantErr: "jwks_issuer",
		},
		{
			name:    "unknown provider",
			config:  `{"server": {"addr": ":8080"}, "auth": {"provider": "ldap"}}`,
			wantErr: "unsupported auth provider",
		},
		{
			name:    "unknown driver",
			config:  `{"server": {"addr": ":8080"}, "auth": {"jwt_secret": "some-secret-value-long-enough-for-32"}, "storage": {"driver": "mysql"}}`,
			wantErr: "unsupported storage driver",
		},
		{
			name:    "postgres without dsn",
			config:  `{"server": {"addr": ":8080"}, "auth": {"jwt_secret": "some-secret-value-long-enough-for-32"}, "storage": {"driver": "postgres"}}`,
			wantErr: "storage.dsn",
		},
		{
			name:    "account without hash",
			config:  `{"server": {"addr": ":8080"}, "auth": {"jwt_secret": "some-secret-value-long-enough-for-32", "accounts": [{"identity": "bob"}]}}`,
			wantErr: "auth.accounts[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, "config.json", tt.config))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	minimal := `{
		"server": {"addr": ":8080"},
		"auth": {"jwt_secret": "my-secret-key-for-testing-purposes"}
	}`

	cfg, err := Load(writeTempConfig(t, "config.json", minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Auth.JWTExpiry.Duration != 24*time.Hour {
		t.Errorf("default JWTExpiry: got %v, want 24h", cfg.Auth.JWTExpiry.Duration)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("default Storage.Driver: got %q, want %q", cfg.Storage.Driver, "sqlite")
	}
	if cfg.Storage.DSN != "contenthub.db" {
		t.Errorf("default Storage.DSN: got %q, want %q", cfg.Storage.DSN, "contenthub.db")
	}
	if cfg.Events.KafkaTopic != "contenthub.events" {
		t.Errorf("default Events.KafkaTopic: got %q", cfg.Events.KafkaTopic)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("default AllowedOrigins: got %v, want [*]", cfg.Server.AllowedOrigins)
	}
	if cfg.RateLimit.RequestsPerSecond != 10 {
		t.Errorf("default RateLimit.RequestsPerSecond: got %f, want 10", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.RateLimit.Burst != 20 {
		t.Errorf("default RateLimit.Burst: got %d, want 20", cfg.RateLimit.Burst)
	}
	if cfg.Server.MaxBodyBytes != 1024*1024 {
		t.Errorf("default Server.MaxBodyBytes: got %d, want %d", cfg.Server.MaxBodyBytes, 1024*1024)
	}
}

func TestJWKSDefaultURL(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "config.json", `{
		"server": {"addr": ":8080"},
		"auth": {"provider": "jwks", "jwks_issuer": "https://issuer.example.com/"}
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWKSURL != "https://issuer.example.com/.well-known/jwks.json" {
		t.Errorf("JWKSURL: got %q", cfg.Auth.JWKSURL)
	}
}

func TestEncodeDecodeYAML(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.JWTExpiry.Duration = 2 * time.Hour

	data, err := Encode("out.yaml", cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var back Config
	if err := Decode("out.yaml", data, &back); err != nil {
		t.Fatalf("Decode: %v\n%s", err, data)
	}
	if back.Server.Addr != ":8080" || back.Auth.JWTExpiry.Duration != 2*time.Hour {
		t.Errorf("decoded = %+v", back)
	}
}
