// Package cache keeps fetched manifest bytes in Redis. Content URIs name
// immutable data, so an entry never goes stale; the TTL only bounds memory.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ethpm/explorer/fetch"
	"github.com/ethpm/explorer/internal/ident"
	"github.com/ethpm/explorer/internal/metrics"
)

// DefaultPrefix namespaces cache keys.
const DefaultPrefix = "explorer:manifest:"

// Options configures the Redis connection.
type Options struct {
	Address  string
	Password string
	DB       int
}

// NewClient opens a Redis client with the pool settings used for the cache.
func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// CachingFetcher serves content from Redis and falls back to the wrapped
// fetcher on a miss. Redis failures are logged and bypassed; they never fail
// a fetch.
type CachingFetcher struct {
	next    fetch.ContentFetcher
	rdb     redis.UniversalClient
	ttl     time.Duration
	prefix  string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a CachingFetcher.
type Option func(*CachingFetcher)

// WithTTL sets the entry lifetime. Zero keeps entries until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachingFetcher) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *CachingFetcher) {
		c.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *CachingFetcher) {
		c.logger = l
	}
}

// WithMetrics records hits, misses and bypassed errors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *CachingFetcher) {
		c.metrics = m
	}
}

// New wraps next with a Redis cache.
func New(next fetch.ContentFetcher, rdb redis.UniversalClient, opts ...Option) *CachingFetcher {
	c := &CachingFetcher{
		next:    next,
		rdb:     rdb,
		prefix:  DefaultPrefix,
		logger:  zap.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key for uri.
func (c *CachingFetcher) Key(uri ident.URI) string {
	return c.prefix + uri.Hash()
}

// Fetch returns the cached bytes for uri or fetches and stores them.
func (c *CachingFetcher) Fetch(ctx context.Context, uri ident.URI) ([]byte, error) {
	key := c.Key(uri)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.metrics.CacheHits.Inc()
		c.logger.Debug("cache hit", zap.String("uri", uri.String()))
		return data, nil
	case errors.Is(err, redis.Nil):
		c.metrics.CacheMisses.Inc()
	default:
		c.metrics.CacheErrors.Inc()
		c.logger.Warn("cache read failed, bypassing", zap.String("key", key), zap.Error(err))
	}

	data, err = c.next.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.metrics.CacheErrors.Inc()
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}

// Ping checks the Redis connection.
func (c *CachingFetcher) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
