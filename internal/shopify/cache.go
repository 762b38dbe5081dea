package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/returnguard/internal/risk"
)

const cachePrefix = "returnguard:shopify:order:"

// Cache stores derived order contexts so redelivered jobs skip the Admin API.
type Cache interface {
	Get(ctx context.Context, key string) (risk.Order, bool, error)
	Set(ctx context.Context, key string, o risk.Order) error
}

func cacheKey(orderID string) string { return cachePrefix + orderID }

// RedisCache implements Cache on redis with a fixed TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache wraps client. A zero ttl keeps entries until evicted.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (risk.Order, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return risk.Order{}, false, nil
	}
	if err != nil {
		return risk.Order{}, false, fmt.Errorf("redis get: %w", err)
	}
	var o risk.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return risk.Order{}, false, fmt.Errorf("decode cached order: %w", err)
	}
	return o, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, o risk.Order) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
