package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store in process memory. It is used by tests and by
// throwaway hubs; nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(KV) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newOverlay(memoryReader{s}, false)
	if err := fn(tx); err != nil {
		return err
	}
	for _, p := range tx.pending() {
		s.data[string(p.key)] = p.value
	}
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(KV) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newOverlay(memoryReader{s}, true))
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// memoryReader reads committed data; callers hold s.mu.
type memoryReader struct {
	s *MemoryStore
}

func (r memoryReader) get(ctx context.Context, key []byte) ([]byte, error) {
	return clone(r.s.data[string(key)]), nil
}

func (r memoryReader) scan(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	keys := make([]string, 0)
	for k := range r.s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), r.s.data[k]); err != nil {
			return err
		}
	}
	return nil
}
