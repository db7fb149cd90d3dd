package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amurg-ai/contenthub/hub/internal/store"
)

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("corrupt value")

// Item is a single JSON value stored under its namespace.
type Item[V any] struct {
	namespace string
}

// NewItem returns an Item stored under namespace.
func NewItem[V any](namespace string) Item[V] {
	return Item[V]{namespace: namespace}
}

// Load returns the stored value, or the zero value and false when unset.
func (i Item[V]) Load(ctx context.Context, kv store.KV) (V, bool, error) {
	return load[V](ctx, kv, []byte(i.namespace))
}

// Save overwrites the stored value.
func (i Item[V]) Save(ctx context.Context, kv store.KV, v V) error {
	return save(ctx, kv, []byte(i.namespace), v)
}

// Map is a collection of JSON values keyed by a string.
type Map[V any] struct {
	namespace string
}

// NewMap returns a Map under namespace.
func NewMap[V any](namespace string) Map[V] {
	return Map[V]{namespace: namespace}
}

// Load returns the value for k, or the zero value and false when absent.
func (m Map[V]) Load(ctx context.Context, kv store.KV, k string) (V, bool, error) {
	key, err := Key(m.namespace, k)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return load[V](ctx, kv, key)
}

// Has reports whether k is present.
func (m Map[V]) Has(ctx context.Context, kv store.KV, k string) (bool, error) {
	key, err := Key(m.namespace, k)
	if err != nil {
		return false, err
	}
	return has(ctx, kv, key)
}

// Save stores v under k.
func (m Map[V]) Save(ctx context.Context, kv store.KV, k string, v V) error {
	key, err := Key(m.namespace, k)
	if err != nil {
		return err
	}
	return save(ctx, kv, key, v)
}

// PairMap is a collection keyed by an ordered pair of strings. Entries that
// share the first component are iterable in ascending order of the second.
type PairMap[V any] struct {
	namespace string
}

// NewPairMap returns a PairMap under namespace.
func NewPairMap[V any](namespace string) PairMap[V] {
	return PairMap[V]{namespace: namespace}
}

// Load returns the value for (a, b), or the zero value and false when absent.
func (m PairMap[V]) Load(ctx context.Context, kv store.KV, a, b string) (V, bool, error) {
	key, err := Key(m.namespace, a, b)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return load[V](ctx, kv, key)
}

// Has reports whether (a, b) is present.
func (m PairMap[V]) Has(ctx context.Context, kv store.KV, a, b string) (bool, error) {
	key, err := Key(m.namespace, a, b)
	if err != nil {
		return false, err
	}
	return has(ctx, kv, key)
}

// Save stores v under (a, b).
func (m PairMap[V]) Save(ctx context.Context, kv store.KV, a, b string, v V) error {
	key, err := Key(m.namespace, a, b)
	if err != nil {
		return err
	}
	return save(ctx, kv, key, v)
}

// Seconds returns the second components of every entry whose first component
// is a, in ascending byte order.
func (m PairMap[V]) Seconds(ctx context.Context, kv store.KV, a string) ([]string, error) {
	prefix, err := Prefix(m.namespace, a)
	if err != nil {
		return nil, err
	}
	var out []string
	err = kv.Iterate(ctx, prefix, func(key, _ []byte) error {
		b, err := SplitLast(prefix, key)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func load[V any](ctx context.Context, kv store.KV, key []byte) (V, bool, error) {
	var v V
	data, err := kv.Get(ctx, key)
	if err != nil {
		return v, false, err
	}
	if data == nil {
		return v, false, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("%w at %x: %v", ErrCorrupt, key, err)
	}
	return v, true, nil
}

func has(ctx context.Context, kv store.KV, key []byte) (bool, error) {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

func save[V any](ctx context.Context, kv store.KV, key []byte, v V) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %x: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}
