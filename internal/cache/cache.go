// Package cache memoizes full comparison results in Redis under a
// content-addressed key. The cache is strictly best-effort: every Redis or
// serialization failure is logged and treated as a miss, never surfaced.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/models"
)

const keyPrefix = "pagecmp"

// ResultCache stores computed ComparisonResults with a TTL, scoped per shop.
type ResultCache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewResultCache creates a Redis-backed result cache.
func NewResultCache(client *redis.Client, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *ResultCache {
	return &ResultCache{client: client, ttl: ttl, logger: logger, metrics: m}
}

// Key derives the canonical cache key for a request shape. Parameters are
// serialized through a map so key ordering can never influence the hash;
// tag filter tags and logic are part of the identity, URL order is preserved
// (the response is ordered by request order).
func Key(urls []string, dateRange models.DateRange, filter *models.TagFilter, strategy string) string {
	params := map[string]any{
		"urls":     urls,
		"start":    dateRange.Start,
		"end":      dateRange.End,
		"strategy": strategy,
	}
	if filter.IsActive() {
		params["tags"] = filter.Tags
		params["logic"] = string(filter.Logic)
	}

	// encoding/json writes map keys in sorted order, which makes the
	// serialization canonical.
	payload, _ := json.Marshal(params)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (c *ResultCache) redisKey(shop, key string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, shop, key)
}

// Get returns the cached result for the key, or nil on miss. Expired entries
// are handled by Redis TTL; read and decode failures count as misses.
func (c *ResultCache) Get(ctx context.Context, shop, key string) *models.ComparisonResult {
	raw, err := c.client.Get(ctx, c.redisKey(shop, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("shop", shop), zap.Error(err))
			c.metrics.RecordCacheError()
		}
		c.metrics.RecordCacheMiss()
		return nil
	}

	var result models.ComparisonResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("cache entry corrupt, deleting", zap.String("shop", shop), zap.Error(err))
		c.metrics.RecordCacheError()
		c.client.Del(ctx, c.redisKey(shop, key))
		c.metrics.RecordCacheMiss()
		return nil
	}

	c.metrics.RecordCacheHit()
	return &result
}

// Set upserts the result under the key with the configured TTL. Failures are
// logged and swallowed; caching never blocks a response.
func (c *ResultCache) Set(ctx context.Context, shop, key string, result *models.ComparisonResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("shop", shop), zap.Error(err))
		c.metrics.RecordCacheError()
		return
	}
	if err := c.client.Set(ctx, c.redisKey(shop, key), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("shop", shop), zap.Error(err))
		c.metrics.RecordCacheError()
	}
}

// InvalidateAll deletes every cached entry for the shop. Used by
// force-refresh, which clears the whole tenant, not just the matching key.
func (c *ResultCache) InvalidateAll(ctx context.Context, shop string) {
	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, shop)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache invalidation scan failed", zap.String("shop", shop), zap.Error(err))
		c.metrics.RecordCacheError()
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation delete failed", zap.String("shop", shop), zap.Error(err))
		c.metrics.RecordCacheError()
	}
}
