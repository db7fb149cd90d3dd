// Package host runs engine calls the way the content hub requires: exec
// calls one at a time, each in its own store transaction, with a strictly
// increasing logical timestamp, and queries against committed state only.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amurg-ai/contenthub/hub/internal/engine"
	"github.com/amurg-ai/contenthub/hub/internal/events"
	"github.com/amurg-ai/contenthub/hub/internal/state"
	"github.com/amurg-ai/contenthub/hub/internal/store"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

// Host serializes exec calls over a Store and publishes committed results.
type Host struct {
	store      store.Store
	logger     *slog.Logger
	publishers []events.Publisher
	now        func() time.Time

	mu       sync.RWMutex // held for writing by exec, for reading by queries
	lastTime uint64
}

// New creates a Host. Committed exec results go to every publisher.
func New(s store.Store, logger *slog.Logger, publishers ...events.Publisher) *Host {
	return &Host{
		store:      s,
		logger:     logger.With("component", "host"),
		publishers: publishers,
		now:        time.Now,
	}
}

// Exec decodes and applies one exec request on behalf of sender.
func (h *Host) Exec(ctx context.Context, sender string, req protocol.ExecRequest) (protocol.ExecResult, error) {
	cmd, err := protocol.DecodeCommand(req.Request)
	if err != nil {
		return protocol.ExecResult{}, err
	}
	return h.ExecCommand(ctx, engine.Info{Sender: sender, Funds: req.Funds}, cmd)
}

// ExecCommand applies cmd atomically. On error nothing is written.
func (h *Host) ExecCommand(ctx context.Context, info engine.Info, cmd protocol.Command) (protocol.ExecResult, error) {
	if info.Sender == "" {
		return protocol.ExecResult{}, fmt.Errorf("%w: missing sender", engine.ErrUnauthorized)
	}

	h.mu.Lock()
	var (
		env  engine.Env
		resp engine.Response
	)
	err := h.store.Update(ctx, func(kv store.KV) error {
		// The persisted clock keeps timestamps increasing across processes
		// sharing the store and across restarts.
		last, _, err := state.Clock.Load(ctx, kv)
		if err != nil {
			return &engine.StorageError{Op: "load clock", Err: err}
		}
		env = engine.Env{Time: h.tick(last)}
		resp, err = engine.Execute(ctx, kv, env, info, cmd)
		if err != nil {
			return err
		}
		if err := state.Clock.Save(ctx, kv, env.Time); err != nil {
			return &engine.StorageError{Op: "save clock", Err: err}
		}
		return nil
	})
	h.mu.Unlock()

	if err != nil {
		h.logger.Info("exec rejected",
			"type", cmd.CommandType(), "sender", info.Sender, "kind", engine.Kind(err), "error", err)
		return protocol.ExecResult{}, err
	}

	result := protocol.ExecResult{
		ID:         uuid.New().String(),
		Timestamp:  env.Time,
		Action:     resp.Action,
		Attributes: resp.Attributes,
	}
	h.logger.Debug("exec applied",
		"type", cmd.CommandType(), "sender", info.Sender, "id", result.ID, "timestamp", env.Time)

	h.publish(ctx, events.Event{
		ID:         result.ID,
		Type:       resp.Action,
		Sender:     info.Sender,
		Timestamp:  env.Time,
		Attributes: resp.Attributes,
		Time:       h.now(),
	})
	return result, nil
}

// Query decodes and answers one query request.
func (h *Host) Query(ctx context.Context, req protocol.Request) (any, error) {
	q, err := protocol.DecodeQuery(req)
	if err != nil {
		return nil, err
	}
	return h.QueryTyped(ctx, q)
}

// QueryTyped answers q without modifying state.
func (h *Host) QueryTyped(ctx context.Context, q protocol.Query) (any, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out any
	err := h.store.View(ctx, func(kv store.KV) error {
		var err error
		out, err = engine.Query(ctx, kv, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks the underlying store.
func (h *Host) Ping(ctx context.Context) error {
	return h.store.Ping(ctx)
}

// tick returns the next logical timestamp: wall-clock nanoseconds, bumped
// past both the last tick of this host and committed, the last timestamp
// stored. Callers hold h.mu for writing.
func (h *Host) tick(committed uint64) uint64 {
	t := uint64(h.now().UnixNano())
	floor := max(h.lastTime, committed)
	if t <= floor {
		t = floor + 1
	}
	h.lastTime = t
	return t
}

func (h *Host) publish(ctx context.Context, e events.Event) {
	for _, p := range h.publishers {
		if err := p.Publish(ctx, e); err != nil {
			h.logger.Warn("publish event failed", "id", e.ID, "type", e.Type, "error", err)
		}
	}
}
