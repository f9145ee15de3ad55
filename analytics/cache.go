package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores serialized report payloads for a bounded time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	val     []byte
	expires time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return nil, false, nil
	}
	return e.val, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{val: val, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// RedisCache stores payloads in Redis under a key prefix.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache parses a redis:// or rediss:// URL and verifies connectivity.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, prefix: "antlia:analytics:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, val, ttl).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Reader = (*CachedReader)(nil)

// CachedReader serves reports from a Cache, falling through to the wrapped
// Reader on a miss. Cache failures are logged and never fail a read.
type CachedReader struct {
	next   Reader
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedReader wraps next. A nil logger uses slog.Default().
func NewCachedReader(next Reader, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedReader{next: next, cache: cache, ttl: ttl, logger: logger}
}

func cached[T any](ctx context.Context, r *CachedReader, key ReportType, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if b, ok, err := r.cache.Get(ctx, string(key)); err != nil {
		r.logger.Warn("report cache get failed", slog.String("report", string(key)), slog.Any("error", err))
	} else if ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if b, err := json.Marshal(v); err == nil {
		if err := r.cache.Set(ctx, string(key), b, r.ttl); err != nil {
			r.logger.Warn("report cache set failed", slog.String("report", string(key)), slog.Any("error", err))
		}
	}
	return v, nil
}

func (r *CachedReader) TotalVisitors(ctx context.Context) (int, error) {
	return cached(ctx, r, ReportTotalVisitors, r.next.TotalVisitors)
}

func (r *CachedReader) AverageSessionTime(ctx context.Context) (int, error) {
	return cached(ctx, r, ReportAverageSessionTime, r.next.AverageSessionTime)
}

func (r *CachedReader) VisitorsByCountry(ctx context.Context) ([]CountryCount, error) {
	return cached(ctx, r, ReportVisitorsByCountry, r.next.VisitorsByCountry)
}

func (r *CachedReader) VisitorsByBrowser(ctx context.Context) ([]BrowserCount, error) {
	return cached(ctx, r, ReportVisitorsByBrowser, r.next.VisitorsByBrowser)
}

func (r *CachedReader) PageViews(ctx context.Context) ([]PageCount, error) {
	return cached(ctx, r, ReportPageViews, r.next.PageViews)
}
