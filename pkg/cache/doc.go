// Package cache stores fetched result pages in Redis.
//
// A sharded pull fails and is retried shard by shard. Caching successful
// pages means a retried shard replays the pages it already fetched from
// Redis and only goes to the API for the pages it is missing.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint: "/v1/reads/search",
//		Fields:   "nextPageToken,alignments(id,alignment(position))",
//		Body:     requestBody,
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the API, then:
//		entry, _ = cache.ResponseToEntry(resp, cache.DefaultTTL)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Expiry
//
// The TTL of an entry comes from the response's Expires header. Responses
// without one are kept for the fallback TTL passed to ResponseToEntry.
//
// # Invalidation
//
// Invalidate drops every page of one endpoint, whatever its mask or body,
// to force a fresh pull after the data behind it changed.
//
// # Metrics
//
//   - genomics_cache_hits_total{layer="redis"}
//   - genomics_cache_misses_total
//   - genomics_cache_size_bytes{layer="redis"}
//   - genomics_cache_errors_total{operation}  (get, set, delete, scan)
package cache
