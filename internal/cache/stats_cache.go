package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/library-service/internal/domain"
)

const statsKey = "library:catalog:stats"

// ErrMiss indicates the cache has no usable entry.
var ErrMiss = errors.New("cache miss")

// StatsCache keeps dashboard catalog counts in Redis for a short TTL so that
// dashboard polling does not hit Postgres on every request.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache builds the cache. A nil client disables caching; Get then
// always misses and Set/Invalidate are no-ops.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get fetches cached stats, returning ErrMiss when absent or unreadable.
func (c *StatsCache) Get(ctx context.Context) (domain.CatalogStats, error) {
	if c == nil || c.client == nil {
		return domain.CatalogStats{}, ErrMiss
	}
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CatalogStats{}, ErrMiss
		}
		return domain.CatalogStats{}, err
	}
	var stats domain.CatalogStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.CatalogStats{}, ErrMiss
	}
	return stats, nil
}

// Set stores stats for the configured TTL.
func (c *StatsCache) Set(ctx context.Context, stats domain.CatalogStats) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, raw, c.ttl).Err()
}

// Invalidate drops the cached stats. Called after any borrow, return, or
// catalog mutation.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, statsKey).Err()
}
