package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// Cache is a JSON value cache under <prefix>cache:<key>.
type Cache struct {
	client       *Client
	logger       logging.Logger
	defaultTTL   time.Duration
	singleflight singleflight.Group
}

type CacheOption func(*Cache)

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.defaultTTL = ttl }
}

func NewCache(client *Client, log logging.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		client:     client,
		logger:     log,
		defaultTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) fullKey(key string) string {
	return c.client.Key("cache", key)
}

// jitterTTL spreads expiry by +/- 10%.  Zero means no expiry.
func (c *Cache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// Get decodes the cached value into dest or returns ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	rdb, err := c.client.Underlying()
	if err != nil {
		return err
	}
	data, err := rdb.Get(ctx, c.fullKey(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}

// Set stores value for ttl, or the default TTL when ttl is zero.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	rdb, err := c.client.Underlying()
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := rdb.Set(ctx, c.fullKey(key), string(data), c.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	rdb, err := c.client.Underlying()
	if err != nil {
		return err
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	return rdb.Del(ctx, full...).Err()
}

// GetOrSet reads key, calling loader at most once per key across concurrent
// misses and caching its result.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		return err
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.Set(ctx, key, v, ttl); setErr != nil {
			c.logger.Warn("Failed to set cache in GetOrSet", logging.String("key", key), logging.Err(setErr))
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	data, err := json.Marshal(val)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return json.Unmarshal(data, dest)
}

// ─────────────────────────────────────────────────────────────────────────────
// SummaryCache
// ─────────────────────────────────────────────────────────────────────────────

const lastSummaryKey = "summary:last"

// SummaryCache shares the latest run summary between processes.  It
// implements scoring.ReportArchiver so it can sit next to the object-store
// archiver.
type SummaryCache struct {
	cache *Cache
	ttl   time.Duration
}

var _ scoring.ReportArchiver = (*SummaryCache)(nil)

// NewSummaryCache keeps summaries for ttl; zero keeps them until replaced.
func NewSummaryCache(cache *Cache, ttl time.Duration) *SummaryCache {
	return &SummaryCache{cache: cache, ttl: ttl}
}

// Archive stores sum as the latest summary.
func (s *SummaryCache) Archive(ctx context.Context, sum *scoring.Summary) (string, error) {
	ttl := s.ttl
	if ttl == 0 {
		ttl = -1
	}
	if err := s.cache.Set(ctx, lastSummaryKey, sum, ttl); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeReportArchive, "failed to cache run summary")
	}
	return "redis://" + s.cache.fullKey(lastSummaryKey), nil
}

// Last returns the most recently archived summary, or nil when none exists.
func (s *SummaryCache) Last(ctx context.Context) (*scoring.Summary, error) {
	var sum scoring.Summary
	err := s.cache.Get(ctx, lastSummaryKey, &sum)
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
