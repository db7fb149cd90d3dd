// Package store defines the key-value persistence interface for the hub and provides
// in-memory, SQLite, PostgreSQL and Redis implementations.
//
// Every call the hub serves runs inside exactly one transaction: Update for exec
// commands, View for queries. A failed Update leaves the store untouched.
package store

import (
	"context"
	"errors"
)

// ErrReadOnly is returned by KV.Set inside a View transaction.
var ErrReadOnly = errors.New("store: write in read-only transaction")

// KV is the key-value view a single transaction reads and writes.
type KV interface {
	// Get returns the value stored under key, or nil when the key is absent.
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	// Iterate calls fn for every key starting with prefix, in ascending byte order.
	// A non-nil error from fn stops the iteration and is returned.
	Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error
}

// Store is the persistence interface for the hub.
type Store interface {
	// Update runs fn in a read-write transaction. Writes are committed only
	// when fn returns nil; otherwise every write made by fn is discarded.
	// Optimistic backends may call fn again after a conflicting commit, so fn
	// must not have effects outside the KV it is given.
	Update(ctx context.Context, fn func(KV) error) error
	// View runs fn in a read-only transaction over one committed snapshot.
	// Like Update, fn may be called more than once.
	View(ctx context.Context, fn func(KV) error) error

	// Health
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, or nil when no such bound exists (empty or all-0xff prefix).
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
