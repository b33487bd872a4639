package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.CodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.CodeSerialization, "serialization failed")
)

// nullSentinel marks a cached negative result.  Provider lookups that found
// nothing are remembered for a short TTL so repeated searches for unknown
// terms do not hammer the upstream APIs.
const nullSentinel = "__null__"

// Cache is the read-through contract the provider adapters depend on.
// Loaded values round-trip through JSON; ErrCacheMiss from GetOrSet means
// the loader itself produced nothing.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	Ping(ctx context.Context) error
}

type redisCache struct {
	client       *Client
	logger       logging.Logger
	metrics      *prometheus.AppMetrics
	metricsName  string
	prefix       string
	defaultTTL   time.Duration
	nullCacheTTL time.Duration
	singleflight singleflight.Group
}

type CacheOption func(*redisCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// WithNullCacheTTL sets the retention of negative results.  Shorter than the
// positive TTL so a provider outage or a newly added material is retried
// soon.
func WithNullCacheTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.nullCacheTTL = ttl }
}

// WithMetrics enables hit/miss counting under the given cache label.
func WithMetrics(m *prometheus.AppMetrics, name string) CacheOption {
	return func(c *redisCache) {
		c.metrics = m
		c.metricsName = name
	}
}

func NewRedisCache(client *Client, log logging.Logger, opts ...CacheOption) Cache {
	c := &redisCache{
		client:       client,
		logger:       log,
		prefix:       "matsource:",
		defaultTTL:   24 * time.Hour,
		nullCacheTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expirations by +/-10% so a popular query's provider
// entries do not all expire in the same instant.
func (c *redisCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// errNegativeEntry distinguishes a remembered "nothing upstream" from a
// plain miss so GetOrSet can honor the sentinel without rerunning the
// loader.  Callers of Get only ever see ErrCacheMiss.
var errNegativeEntry = errors.New(errors.CodeNotFound, "negative cache entry")

func (c *redisCache) recordAccess(hit bool) {
	if c.metrics != nil {
		prometheus.RecordCacheAccess(c.metrics, c.metricsName, hit)
	}
}

func (c *redisCache) get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		c.recordAccess(false)
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "failed to get from cache")
	}
	if string(data) == nullSentinel {
		c.recordAccess(true)
		return errNegativeEntry
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed
	}
	c.recordAccess(true)
	return nil
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := c.get(ctx, key, dest)
	if err == errNegativeEntry {
		return ErrCacheMiss
	}
	return err
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed
	}
	return c.client.Set(ctx, c.fullKey(key), data, c.jitterTTL(ttl)).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = c.fullKey(k)
	}
	return c.client.Del(ctx, fullKeys...).Err()
}

// GetOrSet reads key, falling back to loader on a miss.  Concurrent misses
// on the same key collapse to one loader call.  A loader returning (nil,
// nil) is remembered as a negative entry and surfaces as ErrCacheMiss; a
// remembered negative entry answers without invoking the loader until its
// TTL lapses.
func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if err == errNegativeEntry {
		return ErrCacheMiss
	}
	if err != ErrCacheMiss {
		return err
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if v == nil {
			c.client.Set(ctx, c.fullKey(key), nullSentinel, c.nullCacheTTL)
			return nil, nil
		}
		if setErr := c.Set(ctx, key, v, ttl); setErr != nil {
			c.logger.Warn("failed to populate cache", logging.String("key", key), logging.Err(setErr))
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	if val == nil {
		return ErrCacheMiss
	}

	// val is whatever concrete type the loader returned; round-trip
	// through JSON to fill the caller's dest.
	data, err := json.Marshal(val)
	if err != nil {
		return ErrSerializationFailed
	}
	return json.Unmarshal(data, dest)
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// nopCache is wired when no redis address is configured.  Every Get misses
// and GetOrSet always invokes the loader.
type nopCache struct{}

// NewNopCache returns a Cache that stores nothing.
func NewNopCache() Cache { return nopCache{} }

func (nopCache) Get(context.Context, string, interface{}) error { return ErrCacheMiss }
func (nopCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (nopCache) Delete(context.Context, ...string) error { return nil }
func (nopCache) GetOrSet(ctx context.Context, _ string, dest interface{}, _ time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	if v == nil {
		return ErrCacheMiss
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ErrSerializationFailed
	}
	return json.Unmarshal(data, dest)
}
func (nopCache) Ping(context.Context) error { return nil }
