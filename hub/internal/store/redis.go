package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Values live in one hash; a sorted set
// with every score at zero indexes the keys so prefix scans come back in byte
// order via ZRANGEBYLEX.
//
// Transactions are optimistic: both keys are WATCHed while fn reads, and the
// buffered writes go out in one MULTI/EXEC. If another client commits in
// between, EXEC is aborted and fn runs again on fresh data, so fn may be
// called more than once. View validates its reads the same way and so sees a
// single committed snapshot.
type RedisStore struct {
	client    *redis.Client
	keysKey   string
	valuesKey string
	mu        sync.Mutex // serializes Update within this process to avoid needless aborts
}

// maxTxAttempts bounds how often a transaction is retried after a concurrent commit.
const maxTxAttempts = 32

// NewRedis connects to Redis at addr (redis:// URL or host:port) and stores
// data under the given namespace.
func NewRedis(addr, namespace string) (*RedisStore, error) {
	client, err := connectRedis(addr)
	if err != nil {
		return nil, err
	}
	return NewRedisWithClient(client, namespace), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "contenthub"
	}
	return &RedisStore{
		client:    client,
		keysKey:   namespace + ":keys",
		valuesKey: namespace + ":values",
	}
}

// connectRedis accepts both URL and host:port forms.
func connectRedis(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func (s *RedisStore) Update(ctx context.Context, fn func(KV) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, false, fn)
}

func (s *RedisStore) View(ctx context.Context, fn func(KV) error) error {
	return s.run(ctx, true, fn)
}

// run executes fn against the watched keys until its reads are validated by a
// successful EXEC. An error from fn is returned only once the reads it was
// based on are known to be consistent.
func (s *RedisStore) run(ctx context.Context, readOnly bool, fn func(KV) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		var fnErr error
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			o := newOverlay(redisReader{cmds: tx, s: s}, readOnly)
			fnErr = fn(o)
			var writes []kvPair
			if fnErr == nil {
				writes = o.pending()
			}
			_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				if len(writes) == 0 {
					// EXEC still has to run so WATCH can vouch for the reads.
					p.Exists(ctx, s.keysKey)
					return nil
				}
				members := make([]redis.Z, 0, len(writes))
				values := make([]any, 0, 2*len(writes))
				for _, w := range writes {
					members = append(members, redis.Z{Score: 0, Member: string(w.key)})
					values = append(values, string(w.key), w.value)
				}
				p.HSet(ctx, s.valuesKey, values...)
				p.ZAdd(ctx, s.keysKey, members...)
				return nil
			})
			return err
		}, s.valuesKey, s.keysKey)
		if errors.Is(err, redis.TxFailedErr) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("redis commit: %w", err)
		}
		return fnErr
	}
	return fmt.Errorf("redis commit: gave up after %d attempts: %w", maxTxAttempts, redis.TxFailedErr)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// redisCmds is the subset of commands a transaction reads with. Both
// *redis.Client and *redis.Tx provide it.
type redisCmds interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
	ZRangeByLex(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
}

type redisReader struct {
	cmds redisCmds
	s    *RedisStore
}

func (r redisReader) get(ctx context.Context, key []byte) ([]byte, error) {
	v, err := r.cmds.HGet(ctx, r.s.valuesKey, string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r redisReader) scan(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	lo := "-"
	if len(prefix) > 0 {
		lo = "[" + string(prefix)
	}
	hi := "+"
	if end := PrefixEnd(prefix); end != nil {
		hi = "(" + string(end)
	}

	keys, err := r.cmds.ZRangeByLex(ctx, r.s.keysKey, &redis.ZRangeBy{Min: lo, Max: hi}).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	values, err := r.cmds.HMGet(ctx, r.s.valuesKey, keys...).Result()
	if err != nil {
		return err
	}
	for i, k := range keys {
		v, ok := values[i].(string)
		if !ok {
			continue
		}
		if err := fn([]byte(k), []byte(v)); err != nil {
			return err
		}
	}
	return nil
}
