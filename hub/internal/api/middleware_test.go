package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amurg-ai/contenthub/hub/internal/auth"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, ok := bearerToken(r)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

type staticProvider struct{ id string }

func (p staticProvider) ValidateToken(context.Context, string) (*auth.Identity, error) {
	return &auth.Identity{ID: p.id, Provider: "static"}, nil
}

func (staticProvider) Name() string { return "static" }

func TestAuthMiddlewareSetsCaller(t *testing.T) {
	tests := []struct {
		id   string
		code int
	}{
		{"carol", http.StatusOK},
		{"", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		s := &Server{authProvider: staticProvider{id: tt.id}}
		var sender string
		h := s.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sender = callerFromContext(r.Context()).ID
		}))

		r := httptest.NewRequest(http.MethodPost, "/api/exec", nil)
		r.Header.Set("Authorization", "Bearer any")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		if w.Code != tt.code {
			t.Errorf("id %q: status = %d, want %d", tt.id, w.Code, tt.code)
		}
		if sender != tt.id {
			t.Errorf("id %q: handler saw sender %q", tt.id, sender)
		}
	}
}

func TestCORSListedOrigin(t *testing.T) {
	h := makeCORSMiddleware([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for origin, want := range map[string]string{
		"https://app.example":  "https://app.example",
		"https://evil.example": "",
	} {
		r := httptest.NewRequest(http.MethodGet, "/api/hubs", nil)
		r.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %q: allow-origin = %q, want %q", origin, got, want)
		}
	}
}
