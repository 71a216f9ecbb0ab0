// Package cache keeps the latest layout snapshot of each chart in Redis so
// chart reads skip Postgres. A nil cache is valid and always misses.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "seatplan:snapshot:"

// store is the subset of redis.Cmdable the cache needs.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type SnapshotCache struct {
	rdb store
	ttl time.Duration
}

// NewRedisClient connects to the Redis server at url (redis://...). The
// caller decides whether a failed ping disables caching.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func New(rdb store, ttl time.Duration) *SnapshotCache {
	if rdb == nil {
		return nil
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached layout JSON of a chart.
func (c *SnapshotCache) Get(ctx context.Context, chartID string) ([]byte, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	data, err := c.rdb.Get(ctx, keyPrefix+chartID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return data, true, nil
}

// Set stores the layout JSON of a chart.
func (c *SnapshotCache) Set(ctx context.Context, chartID string, data []byte) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, keyPrefix+chartID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops a chart's cached layout.
func (c *SnapshotCache) Invalidate(ctx context.Context, chartID string) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, keyPrefix+chartID).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
