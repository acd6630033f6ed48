package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "idem:"
	pendingMarker = "pending"
)

// RedisStore shares idempotency state across instances. Claims use SET NX so
// exactly one request owns a key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (*Response, error) {
	k := keyPrefix + key
	// Two attempts cover a key expiring between SET NX and GET.
	for range 2 {
		claimed, err := s.client.SetNX(ctx, k, pendingMarker, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if claimed {
			return nil, nil
		}

		raw, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read idempotency key: %w", err)
		}
		if string(raw) == pendingMarker {
			return nil, ErrInProgress
		}
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode idempotent response: %w", err)
		}
		return &resp, nil
	}
	return nil, ErrInProgress
}

func (s *RedisStore) Complete(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotent response: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+key, payload, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
