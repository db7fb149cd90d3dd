package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// FeedOptions configures the Feed.
type FeedOptions struct {
	AllowedOrigins      []string // for WebSocket origin check
	MaxConnsPerIdentity int      // default 10
	PingInterval        time.Duration
}

// Feed streams bus events to WebSocket clients as JSON text messages.
type Feed struct {
	bus      *Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader
	maxConns int
	ping     time.Duration

	mu         sync.Mutex
	byIdentity map[string]int
}

// NewFeed creates a Feed over bus.
func NewFeed(bus *Bus, logger *slog.Logger, opts FeedOptions) *Feed {
	maxConns := opts.MaxConnsPerIdentity
	if maxConns == 0 {
		maxConns = 10
	}
	ping := opts.PingInterval
	if ping <= 0 || ping >= pongWait {
		ping = pongWait * 9 / 10
	}
	return &Feed{
		bus:        bus,
		logger:     logger.With("component", "feed"),
		upgrader:   makeUpgrader(opts.AllowedOrigins),
		maxConns:   maxConns,
		ping:       ping,
		byIdentity: make(map[string]int),
	}
}

// makeUpgrader creates a WebSocket upgrader with origin checking.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// Serve upgrades the request for an already authenticated identity and
// streams events of the given types (all when empty) until the client goes
// away or the bus closes.
func (f *Feed) Serve(w http.ResponseWriter, r *http.Request, identity string, types []string) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("feed websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if !f.acquire(identity) {
		f.logger.Warn("too many feed connections", "identity", identity, "limit", f.maxConns)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			time.Now().Add(writeWait))
		return
	}
	defer f.release(identity)

	connID := uuid.New().String()
	f.logger.Info("feed client connected", "identity", identity, "conn_id", connID)
	defer f.logger.Info("feed client disconnected", "identity", identity, "conn_id", connID)

	ch := f.bus.Subscribe(types...)
	defer f.bus.Unsubscribe(ch)

	// The feed is one-way; the read loop only services control frames.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.logger.Debug("feed read error", "conn_id", connID, "error", err)
				return
			}
		}
	}()

	ticker := time.NewTicker(f.ping)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				f.logger.Warn("marshal event", "id", e.ID, "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				f.logger.Debug("feed write failed", "conn_id", connID, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (f *Feed) acquire(identity string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byIdentity[identity] >= f.maxConns {
		return false
	}
	f.byIdentity[identity]++
	return true
}

func (f *Feed) release(identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byIdentity[identity]--
	if f.byIdentity[identity] <= 0 {
		delete(f.byIdentity, identity)
	}
}
