// Package hub is the main orchestrator that ties all content hub components together.
package hub

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/amurg-ai/contenthub/hub/internal/api"
	"github.com/amurg-ai/contenthub/hub/internal/auth"
	"github.com/amurg-ai/contenthub/hub/internal/config"
	"github.com/amurg-ai/contenthub/hub/internal/events"
	"github.com/amurg-ai/contenthub/hub/internal/host"
	"github.com/amurg-ai/contenthub/hub/internal/store"
)

// Hub is the main content hub process.
type Hub struct {
	cfg          *config.Config
	store        store.Store
	authProvider auth.Provider
	bus          *events.Bus
	kafka        *events.KafkaPublisher
	host         *host.Host
	api          *api.Server
	logger       *slog.Logger
}

// New creates a new hub from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Hub, error) {
	// Initialize storage.
	db, err := store.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// Create auth provider based on config.
	authProvider, err := auth.NewProvider(cfg.Auth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init auth provider: %w", err)
	}

	var loginProvider auth.LoginProvider
	if lp, ok := authProvider.(auth.LoginProvider); ok {
		loginProvider = lp
	}

	// Committed execs fan out to the in-process bus and, when configured, Kafka.
	bus := events.NewBus(cfg.Events.FeedBuffer)
	publishers := []events.Publisher{bus}
	var kafkaPub *events.KafkaPublisher
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafkaPub, err = events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			_ = db.Close()
			closeProvider(authProvider)
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publishers = append(publishers, kafkaPub)
	}

	h := host.New(db, logger, publishers...)
	feed := events.NewFeed(bus, logger, events.FeedOptions{AllowedOrigins: cfg.Server.AllowedOrigins})
	apiSrv := api.NewServer(h, authProvider, loginProvider, feed, cfg, logger)

	hb := &Hub{
		cfg:          cfg,
		store:        db,
		authProvider: authProvider,
		bus:          bus,
		kafka:        kafkaPub,
		host:         h,
		api:          apiSrv,
		logger:       logger.With("component", "hub"),
	}

	if authProvider.Name() == "builtin" && len(cfg.Auth.Accounts) == 0 {
		logger.Warn("no builtin accounts configured, password login will always fail")
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			logger.Warn("CORS allowed_origins contains wildcard '*', restrict to specific origins in production")
			break
		}
	}

	return hb, nil
}

// Handler returns the HTTP handler serving the API.
func (h *Hub) Handler() http.Handler {
	return h.api.Handler()
}

// Run starts the hub HTTP server and blocks until the context is canceled.
func (h *Hub) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              h.cfg.Server.Addr,
		Handler:           h.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start rate limiter cleanup tasks.
	h.api.StartBackgroundTasks(ctx)

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("hub listening", "addr", h.cfg.Server.Addr, "storage", h.cfg.Storage.Driver)
		if h.cfg.Server.TLSCert != "" && h.cfg.Server.TLSKey != "" {
			errCh <- srv.ListenAndServeTLS(h.cfg.Server.TLSCert, h.cfg.Server.TLSKey)
		} else {
			h.logger.Warn("TLS not configured, running without encryption (development only)")
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		h.logger.Info("shutting down hub gracefully")

		// Closing the bus ends open feed connections so Shutdown can drain.
		h.bus.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			h.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = srv.Close()
		} else {
			h.logger.Info("http server stopped gracefully")
		}

		h.Close()
		h.logger.Info("shutdown complete")
		return ctx.Err()

	case err := <-errCh:
		h.bus.Close()
		h.Close()
		return err
	}
}

// Close releases the store, the Kafka writer, and the auth provider.
func (h *Hub) Close() {
	if h.kafka != nil {
		if err := h.kafka.Close(); err != nil {
			h.logger.Warn("close kafka publisher", "error", err)
		}
	}
	closeProvider(h.authProvider)
	h.logger.Info("closing store")
	if err := h.store.Close(); err != nil {
		h.logger.Warn("close store", "error", err)
	}
}

func closeProvider(p auth.Provider) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}
