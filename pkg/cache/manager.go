package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the page is not cached or has gone stale
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored page could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// scanBatch is the COUNT hint for SCAN during invalidation.
const scanBatch = 256

// Manager stores result pages in Redis. It is safe for concurrent use by
// the workers of a sharded pull, and by several processes sharing Redis.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a page cache on redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get returns the cached page for key, or ErrCacheMiss. A stale entry
// that Redis has not evicted yet is removed and reported as a miss.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	redisKey := key.String()

	data, err := m.redis.Get(ctx, redisKey).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", redisKey, err)
	}

	entry := new(CacheEntry)
	if err := json.Unmarshal(data, entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, redisKey, err)
	}

	if entry.IsExpired() {
		m.redis.Del(ctx, redisKey)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return entry, nil
}

// Set stores entry until its Expires time. Entries that are already stale
// are silently dropped.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes one cached page.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Invalidate removes every cached page of endpoint, whatever its field mask,
// query or body, and returns how many pages were dropped. It is used to force
// a fresh pull after the server-side data changed.
func (m *Manager) Invalidate(ctx context.Context, endpoint string) (int, error) {
	prefix := CacheKey{Endpoint: endpoint}.String()
	if prefix == "genomics" {
		return 0, fmt.Errorf("invalidate: empty endpoint")
	}

	removed := 0
	iter := m.redis.Scan(ctx, 0, prefix+":*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := m.redis.Del(ctx, batch...).Result()
		if err != nil {
			CacheErrors.WithLabelValues("delete").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	// a page requested without mask, query or body is stored under the bare prefix
	batch = append(batch, prefix)
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}

// UpdateTTL moves the expiry of a cached page. Shards that are re-run later
// than planned extend the lifetime of the pages they already fetched.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}
