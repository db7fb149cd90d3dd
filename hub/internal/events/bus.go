// Package events distributes committed exec results to in-process
// subscribers, WebSocket clients, and Kafka.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/amurg-ai/contenthub/pkg/protocol"
)

// Event describes one committed exec call.
type Event struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"` // exec type, e.g. "create_hub"
	Sender     string               `json:"sender"`
	Timestamp  uint64               `json:"timestamp,string"` // logical time of the exec
	Attributes []protocol.Attribute `json:"attributes,omitempty"`
	Time       time.Time            `json:"ts"`
}

// Attr returns the value of the first attribute named key.
func (e Event) Attr(key string) string {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// Publisher receives events after their exec has committed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Bus is a fan-out pub/sub event bus. Subscribers receive events on a buffered
// channel. Slow subscribers miss events (non-blocking publish).
type Bus struct {
	mu     sync.RWMutex
	subs   map[chan Event]map[string]bool // channel -> set of event types (nil = all)
	buffer int
}

// NewBus creates an event bus whose subscriber channels hold buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[chan Event]map[string]bool),
		buffer: buffer,
	}
}

// Subscribe returns a channel that receives events matching the given types.
// If no types are given, all events are received.
func (b *Bus) Subscribe(types ...string) chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(types) == 0 {
		b.subs[ch] = nil
	} else {
		filter := make(map[string]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
		b.subs[ch] = filter
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish sends e to all matching subscribers. It never blocks and never
// fails; a full subscriber buffer drops the event for that subscriber.
func (b *Bus) Publish(_ context.Context, e Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, filter := range b.subs {
		if filter != nil && !filter[e.Type] {
			continue
		}
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes all subscribers and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
