package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis tests")
	}
	s, err := NewRedis(addr, "contenthub-test-"+uuid.New().String()[:8])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), s.keysKey, s.valuesKey).Err()
		_ = s.Close()
	})
	return s
}

// newMiniRedisStores returns n stores, each with its own client, sharing one
// in-process Redis server, the way two hub processes share a real one.
func newMiniRedisStores(t *testing.T, n int) []*RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	stores := make([]*RedisStore, n)
	for i := range stores {
		s := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "contenthub-test")
		t.Cleanup(func() { _ = s.Close() })
		stores[i] = s
	}
	return stores
}

func TestRedisStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return newTestRedisStore(t) })
}

func TestMiniRedisStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return newMiniRedisStores(t, 1)[0] })
}

func TestRedisConcurrentCommitIsNotLost(t *testing.T) {
	stores := newMiniRedisStores(t, 2)
	a, b := stores[0], stores[1]
	ctx := context.Background()
	mustUpdate(t, a, func(kv KV) error { return kv.Set(ctx, []byte("counter"), []byte("0")) })

	appendTo := func(kv KV, suffix string) error {
		v, err := kv.Get(ctx, []byte("counter"))
		if err != nil {
			return err
		}
		return kv.Set(ctx, []byte("counter"), append(v, suffix...))
	}

	attempts := 0
	err := a.Update(ctx, func(kv KV) error {
		attempts++
		v, err := kv.Get(ctx, []byte("counter"))
		if err != nil {
			return err
		}
		if attempts == 1 {
			// Another process commits between our read and our commit.
			if err := b.Update(ctx, func(kv KV) error { return appendTo(kv, "+B") }); err != nil {
				return err
			}
		}
		return kv.Set(ctx, []byte("counter"), append(v, "+A"...))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (one retry after the conflict)", attempts)
	}
	if got := mustGet(t, a, "counter"); string(got) != "0+B+A" {
		t.Errorf("counter = %q, want 0+B+A", got)
	}
}

func TestRedisRejectionSeesConsistentReads(t *testing.T) {
	stores := newMiniRedisStores(t, 2)
	a, b := stores[0], stores[1]
	ctx := context.Background()
	errTaken := errors.New("taken")

	// a rejects when the slot is set; b sets it after a's first read.
	attempts := 0
	err := a.Update(ctx, func(kv KV) error {
		attempts++
		v, err := kv.Get(ctx, []byte("slot"))
		if err != nil {
			return err
		}
		if attempts == 1 {
			if err := b.Update(ctx, func(kv KV) error { return kv.Set(ctx, []byte("slot"), []byte("b")) }); err != nil {
				return err
			}
		}
		if v != nil {
			return errTaken
		}
		return kv.Set(ctx, []byte("slot"), []byte("a"))
	})
	if !errors.Is(err, errTaken) {
		t.Fatalf("Update err = %v, want the rejection computed on fresh data", err)
	}
	if got := mustGet(t, a, "slot"); string(got) != "b" {
		t.Errorf("slot = %q, want b", got)
	}
}

func TestRedisViewReadsOneSnapshot(t *testing.T) {
	stores := newMiniRedisStores(t, 2)
	a, b := stores[0], stores[1]
	ctx := context.Background()

	setPair := func(v string) {
		mustUpdate(t, b, func(kv KV) error {
			if err := kv.Set(ctx, []byte("hub"), []byte(v)); err != nil {
				return err
			}
			return kv.Set(ctx, []byte("sub"), []byte(v))
		})
	}
	setPair("1")

	attempts := 0
	var hub, sub []byte
	err := a.View(ctx, func(kv KV) error {
		attempts++
		var err error
		if hub, err = kv.Get(ctx, []byte("hub")); err != nil {
			return err
		}
		if attempts == 1 {
			setPair("2")
		}
		sub, err = kv.Get(ctx, []byte("sub"))
		return err
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if string(hub) != string(sub) {
		t.Errorf("torn read: hub = %q, sub = %q", hub, sub)
	}
	if string(hub) != "2" || attempts != 2 {
		t.Errorf("hub = %q after %d attempts, want 2 after a retry", hub, attempts)
	}
}
