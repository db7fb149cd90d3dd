package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amurg-ai/contenthub/hub/internal/auth"
	"github.com/amurg-ai/contenthub/hub/internal/config"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:           "127.0.0.1:0",
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1024 * 1024,
		},
		Auth: config.AuthConfig{
			Provider:  "builtin",
			JWTSecret: "test-secret-at-least-32-chars-long",
			JWTExpiry: config.Duration{Duration: time.Hour},
		},
		Storage:   config.StorageConfig{Driver: "memory"},
		Events:    config.EventsConfig{FeedBuffer: 8},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func TestExecReachesEventBus(t *testing.T) {
	cfg := testConfig()
	h, err := New(cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)

	ch := h.bus.Subscribe(protocol.TypeCreateHub)

	token, err := auth.NewService(cfg.Auth).IssueToken("alice")
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := protocol.EncodeCommand(protocol.CreateHub{Name: "Chess Club", Price: protocol.NewCoin(0, "uxion")})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(protocol.ExecRequest{Request: cmd})

	req := httptest.NewRequest(http.MethodPost, "/api/exec", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("exec: status %d; body: %s", w.Code, w.Body.String())
	}

	select {
	case e := <-ch:
		if e.Sender != "alice" || e.Attr("name") != "Chess Club" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestNewRejectsBadStorage(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Driver = "cassandra"
	if _, err := New(cfg, slog.Default()); err == nil {
		t.Fatal("expected storage init error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h, err := New(testConfig(), slog.Default())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
