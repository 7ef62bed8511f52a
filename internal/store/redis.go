package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of Redis. Multi-key transactions use
// WATCH/MULTI/EXEC, which is exactly the optimistic check-and-commit the
// accept paths depend on: if any watched key changes between the read and
// EXEC, the transaction fails and the caller retries.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects a store to the given Redis instance.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
	}
}

// Ping verifies connectivity; used by readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, data []byte) error {
	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // deleted between SCAN and GET
			}
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		out[key] = data
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	return out, nil
}

func (s *RedisStore) RunTransaction(ctx context.Context, keys []string, fn func(tx Tx) error) error {
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		t := &redisTx{rtx: rtx, sets: make(map[string][]byte), dels: make(map[string]bool)}
		if err := fn(t); err != nil {
			return err
		}
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, data := range t.sets {
				pipe.Set(ctx, key, data, 0)
			}
			for key := range t.dels {
				pipe.Del(ctx, key)
			}
			return nil
		})
		return err
	}, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrTxConflict
	}
	return err
}

type redisTx struct {
	rtx  *redis.Tx
	sets map[string][]byte
	dels map[string]bool
}

func (t *redisTx) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := t.sets[key]; ok {
		return data, nil
	}
	if t.dels[key] {
		return nil, ErrNotFound
	}
	data, err := t.rtx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis tx get %s: %w", key, err)
	}
	return data, nil
}

func (t *redisTx) Set(key string, data []byte) {
	delete(t.dels, key)
	t.sets[key] = data
}

func (t *redisTx) Delete(key string) {
	delete(t.sets, key)
	t.dels[key] = true
}

var _ Store = (*RedisStore)(nil)
