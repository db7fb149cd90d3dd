// Package api provides the HTTP API and middleware for the content hub.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/amurg-ai/contenthub/hub/internal/auth"
	"github.com/amurg-ai/contenthub/hub/internal/config"
	"github.com/amurg-ai/contenthub/hub/internal/engine"
	"github.com/amurg-ai/contenthub/hub/internal/events"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

// Backend executes commands and queries against the hub state.
type Backend interface {
	Exec(ctx context.Context, sender string, req protocol.ExecRequest) (protocol.ExecResult, error)
	Query(ctx context.Context, req protocol.Request) (any, error)
	QueryTyped(ctx context.Context, q protocol.Query) (any, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	backend       Backend
	authProvider  auth.Provider
	loginProvider auth.LoginProvider
	feed          *events.Feed
	logger        *slog.Logger
	mux           *chi.Mux
	startTime     time.Time
	maxBodyBytes  int64
	loginRL       *rateLimiter
	rl            *rateLimiter
}

// NewServer creates a new API server. lp may be nil when the auth provider
// has no password login; feed may be nil to disable the event stream.
func NewServer(b Backend, ap auth.Provider, lp auth.LoginProvider, feed *events.Feed, cfg *config.Config, logger *slog.Logger) *Server {
	srv := &Server{
		backend:       b,
		authProvider:  ap,
		loginProvider: lp,
		feed:          feed,
		logger:        logger.With("component", "api"),
		startTime:     time.Now(),
		maxBodyBytes:  cfg.Server.MaxBodyBytes,
	}
	if srv.maxBodyBytes <= 0 {
		srv.maxBodyBytes = 1024 * 1024
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.RealIP)
	mux.Use(securityHeadersMiddleware)
	mux.Use(makeCORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check routes (unauthenticated)
	mux.Get("/healthz", srv.handleHealthz)
	mux.Get("/readyz", srv.handleReadyz)

	mux.Get("/api/auth/config", srv.handleAuthConfig)
	if lp != nil {
		srv.loginRL = newRateLimiter(5, 10)
		mux.With(loginIPRateLimitMiddleware(srv.loginRL)).Post("/api/auth/login", srv.handleLogin)
	}

	// WebSocket feed (auth handled inside)
	if feed != nil {
		mux.Get("/ws/events", srv.handleEventsWS)
	}

	srv.rl = newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	mux.Group(func(r chi.Router) {
		r.Use(srv.authMiddleware)
		r.Use(rateLimitMiddleware(srv.rl))

		r.Post("/api/exec", srv.handleExec)
		r.Post("/api/query", srv.handleQuery)
		r.Get("/api/me", srv.handleGetMe)

		r.Get("/api/hubs", srv.handleListHubs)
		r.Get("/api/hubs/{creator}", srv.handleGetHub)
		r.Get("/api/hubs/{creator}/exists", srv.handleHubExists)
		r.Get("/api/hubs/{creator}/posts", srv.handleHubPosts)
		r.Get("/api/subscriptions", srv.handleSubscriptions)
		r.Get("/api/posts/{postID}/likes", srv.handlePostLikes)
		r.Get("/api/posts/{postID}/liked", srv.handlePostLiked)
	})

	srv.mux = mux
	return srv
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartBackgroundTasks starts periodic cleanup tasks for rate limiters.
func (s *Server) StartBackgroundTasks(ctx context.Context) {
	if s.loginRL != nil {
		s.loginRL.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)
	}
	if s.rl != nil {
		s.rl.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)
	}
}

// --- Health handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- Auth handlers ---

func (s *Server) handleAuthConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": s.authProvider.Name(),
		"login":    s.loginProvider != nil,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Identity) == 0 || len(req.Identity) > 128 {
		writeError(w, http.StatusBadRequest, "identity must be 1-128 characters")
		return
	}

	token, err := s.loginProvider.Login(r.Context(), req.Identity, req.Password)
	if err != nil {
		s.logger.Info("login failed", "identity", req.Identity)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	identity := callerFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"identity": identity.ID,
		"name":     identity.Name,
		"provider": identity.Provider,
	})
}

// handleEventsWS authenticates via ?token= (browsers cannot set headers on
// WebSocket requests) or a bearer header, then hands off to the feed.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = bearerToken(r)
	}
	identity, err := s.authProvider.ValidateToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.feed.Serve(w, r, identity.ID, splitTypes(r.URL.Query().Get("types")))
}

// --- Helpers ---

// statusFor maps an exec or query error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrUnknownType), errors.Is(err, protocol.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrHubNotFound), errors.Is(err, engine.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrCreatorAlreadyHasHub), errors.Is(err, engine.ErrAlreadySubscribed),
		errors.Is(err, engine.ErrPostAlreadyExists), errors.Is(err, engine.ErrPostAlreadyLiked):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := protocol.ErrorResponse{Kind: engine.Kind(err), Message: err.Error()}
	switch {
	case status == http.StatusBadRequest:
		resp.Kind = "invalid_request"
	case status == http.StatusInternalServerError:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		resp.Message = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, protocol.ErrorResponse{Message: message})
}
