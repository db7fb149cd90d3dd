package store

import (
	"bytes"
	"context"
	"sort"
)

// reader is the committed state an overlay reads through.
type reader interface {
	get(ctx context.Context, key []byte) ([]byte, error)
	scan(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error
}

// overlay buffers the writes of one transaction on top of committed state.
// Reads observe the transaction's own writes. Nothing reaches the backend
// until the owner flushes writes on commit.
type overlay struct {
	base     reader
	writes   map[string][]byte
	readOnly bool
}

func newOverlay(base reader, readOnly bool) *overlay {
	return &overlay{base: base, writes: make(map[string][]byte), readOnly: readOnly}
}

func (o *overlay) Get(ctx context.Context, key []byte) ([]byte, error) {
	if v, ok := o.writes[string(key)]; ok {
		return clone(v), nil
	}
	return o.base.get(ctx, key)
}

func (o *overlay) Set(ctx context.Context, key, value []byte) error {
	if o.readOnly {
		return ErrReadOnly
	}
	o.writes[string(key)] = clone(value)
	return nil
}

func (o *overlay) Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	merged := make(map[string][]byte)
	err := o.base.scan(ctx, prefix, func(k, v []byte) error {
		merged[string(k)] = clone(v)
		return nil
	})
	if err != nil {
		return err
	}
	for k, v := range o.writes {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn([]byte(k), clone(merged[k])); err != nil {
			return err
		}
	}
	return nil
}

// pending returns the buffered writes in ascending key order.
func (o *overlay) pending() []kvPair {
	pairs := make([]kvPair, 0, len(o.writes))
	for k, v := range o.writes {
		pairs = append(pairs, kvPair{key: []byte(k), value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return bytes.Compare(pairs[i].key, pairs[j].key) < 0 })
	return pairs
}

type kvPair struct {
	key, value []byte
}
