package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// idem:checkout:{user_id}:{key} -> order_id
	KeyIdemCheckout = "idem:checkout:%s:%s"

	TTLIdempotency = 24 * time.Hour
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// StringStore is the slice of *redis.Client the idempotency store uses.
type StringStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// IdempotencyStore remembers which order a checkout idempotency key produced.
type IdempotencyStore struct {
	rdb StringStore
	ttl time.Duration
}

func NewIdempotencyStore(rdb StringStore) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: TTLIdempotency}
}

// Lookup returns the remembered order id, or "" when the key is unknown.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID, key string) (string, error) {
	v, err := s.rdb.Get(ctx, fmt.Sprintf(KeyIdemCheckout, userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *IdempotencyStore) Remember(ctx context.Context, userID, key, orderID string) error {
	if err := s.rdb.Set(ctx, fmt.Sprintf(KeyIdemCheckout, userID, key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func Ping(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
