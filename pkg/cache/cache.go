// Package cache provides a Redis-backed read-through cache for the public
// AWB snapshot endpoint (§6). Unlike the teacher's runbook.Cache — an
// in-memory, single-process map with lazy TTL expiry — the tracking API
// runs behind a load balancer with multiple replicas, so the cache has to
// live somewhere all of them can see: Redis, via the same client
// (redis/go-redis/v9) and in-process test double (alicebob/miniredis/v2)
// already present in the corpus's dependency graph.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/airfreight/trackingd/pkg/config"
)

const keyPrefix = "trackingd:snapshot:"

// Cache wraps a Redis client with the Get/Set/Invalidate shape the public
// tracking handler and the ingestion pipeline need. A nil *Cache is valid
// and behaves as an always-miss, no-op cache — the same fail-open posture
// the teacher gives its runbook fetcher when GitHub is unreachable.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// New constructs a Cache against the Redis instance described by cfg.
func New(cfg config.CacheConfig) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.TTL,
		log: slog.With("component", "cache"),
	}
}

// Get returns the cached snapshot payload for an AWB number, if present and
// unexpired. A miss (key absent, expired, or a Redis error) reports ok=false
// — callers fall back to rebuilding the snapshot from the stores.
func (c *Cache) Get(ctx context.Context, awbNumber string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, keyPrefix+awbNumber).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache get failed", "awb", awbNumber, "error", err)
		}
		return nil, false
	}
	return val, true
}

// Set stores a snapshot payload with the configured TTL. Failures are
// logged, not returned — a cache write that fails should never fail the
// request that is about to serve the same payload straight from the store.
func (c *Cache) Set(ctx context.Context, awbNumber string, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+awbNumber, payload, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "awb", awbNumber, "error", err)
	}
}

// Invalidate drops a cached snapshot after the shipment it describes
// changes. Implements ingest.CacheInvalidator. Deliberately has no error
// return: a failed invalidation just means the entry rides out its TTL and
// serves a stale (but self-correcting) snapshot for a few more seconds —
// never a reason to fail or retry the ingestion transaction that triggered it.
func (c *Cache) Invalidate(ctx context.Context, awbNumber string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+awbNumber).Err(); err != nil {
		c.log.Warn("cache invalidate failed", "awb", awbNumber, "error", err)
	}
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
