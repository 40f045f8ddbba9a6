package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
)

const defaultLocalEntries = 1024

const defaultTTL = 15 * time.Minute

// Result is a scored prediction list together with the model version
// that produced it. Cached results replay the original version so that
// stored records always name the model that actually ranked them.
type Result struct {
	ModelVersion string                   `json:"model_version"`
	Predictions  domain.RankedPredictions `json:"predictions"`
}

// Cache is a two-tier response cache for model service scores: an
// in-process expiring LRU in front of an optional shared Redis tier.
// Cache failures are never surfaced to the prediction path; a broken
// tier degrades to a miss.
type Cache struct {
	local *expirable.LRU[string, Result]

	// Tier 2; nil when no Redis URL is configured.
	redis    *redis.Client
	redisTTL time.Duration

	logger  *logrus.Logger
	stats   *CacheStats
	statsMu sync.RWMutex
}

// CacheStats represents cache performance statistics
type CacheStats struct {
	LocalHits      int64     `json:"local_hits"`
	LocalMisses    int64     `json:"local_misses"`
	RedisHits      int64     `json:"redis_hits"`
	RedisMisses    int64     `json:"redis_misses"`
	LocalEntries   int       `json:"local_entries"`
	RedisAvailable bool      `json:"redis_available"`
	LastReset      time.Time `json:"last_reset"`
}

// cachedScore wraps a Result with cache metadata for the Redis tier.
type cachedScore struct {
	Result    Result    `json:"result"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCache creates a score cache. The Redis tier is attached when the
// configuration carries a Redis URL; an unreachable Redis is logged and
// tolerated since the client reconnects on its own.
func NewCache(config domain.CacheConfig, logger *logrus.Logger) (*Cache, error) {
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	c := &Cache{
		local:    expirable.NewLRU[string, Result](defaultLocalEntries, nil, ttl),
		redisTTL: ttl,
		logger:   logger,
		stats: &CacheStats{
			LastReset: time.Now(),
		},
	}

	if config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}

		opts.PoolSize = config.PoolSize
		opts.PoolTimeout = config.PoolTimeout
		opts.MaxRetries = config.MaxRetries

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis score cache unreachable, serving from the in-process tier until it recovers")
		}

		c.redis = client
	}

	return c, nil
}

// Get retrieves a cached score for the snapshot. A Redis hit is promoted
// into the in-process tier for subsequent lookups.
func (c *Cache) Get(ctx context.Context, snapshot *domain.PatientSnapshot) (Result, bool) {
	key, err := c.snapshotKey(snapshot)
	if err != nil {
		return Result{}, false
	}

	if result, ok := c.local.Get(key); ok {
		c.incrementStat("local_hits")
		return result, true
	}
	c.incrementStat("local_misses")

	if c.redis == nil {
		return Result{}, false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		c.incrementStat("redis_misses")
		return Result{}, false
	}
	if err != nil {
		c.incrementStat("redis_misses")
		c.logger.WithError(err).Debug("Score cache read from Redis failed")
		return Result{}, false
	}

	var cached cachedScore
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		c.incrementStat("redis_misses")
		return Result{}, false
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		c.incrementStat("redis_misses")
		return Result{}, false
	}

	c.incrementStat("redis_hits")
	c.local.Add(key, cached.Result)
	return cached.Result, true
}

// Set stores a score in both tiers. Redis writes are best effort.
func (c *Cache) Set(ctx context.Context, snapshot *domain.PatientSnapshot, result Result) {
	key, err := c.snapshotKey(snapshot)
	if err != nil {
		return
	}

	c.local.Add(key, result)

	if c.redis == nil {
		return
	}

	cached := cachedScore{
		Result:    result,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.redisTTL),
	}

	payload, err := json.Marshal(cached)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal cached score")
		return
	}

	if err := c.redis.Set(ctx, key, payload, c.redisTTL).Err(); err != nil {
		c.logger.WithError(err).Debug("Score cache write to Redis failed")
	}
}

// Stats returns a snapshot of cache performance counters.
func (c *Cache) Stats() CacheStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()

	stats := *c.stats
	stats.LocalEntries = c.local.Len()
	stats.RedisAvailable = c.redis != nil
	return stats
}

// Ping reports warm-tier reachability. A cache running without a Redis
// tier is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close releases the Redis connection, if any.
func (c *Cache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

// snapshotKey creates a standardized cache key for a patient snapshot.
func (c *Cache) snapshotKey(snapshot *domain.PatientSnapshot) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("score:patient:%x", hash[:8]), nil
}

func (c *Cache) incrementStat(statName string) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	switch statName {
	case "local_hits":
		c.stats.LocalHits++
	case "local_misses":
		c.stats.LocalMisses++
	case "redis_hits":
		c.stats.RedisHits++
	case "redis_misses":
		c.stats.RedisMisses++
	}
}
