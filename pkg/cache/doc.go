// Package cache stores listing responses in Redis so repeated exports of the
// same space do not walk the whole listing again.
//
// Only listing pages are cached. Analytics counters are always requested
// live.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, 15*time.Minute)
//
//	key := cache.Key{
//		Scope:    "acme.atlassian.net",
//		Endpoint: "/wiki/rest/api/space",
//		Query:    url.Values{"start": []string{"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch and store
//		_ = manager.Store(ctx, key, body)
//	}
//
// # Metrics
//
//   - swrangler_cache_hits_total{layer="redis"} - Cache hits
//   - swrangler_cache_misses_total - Cache misses
//   - swrangler_cache_stored_bytes_total{layer="redis"} - Bytes written
//   - swrangler_cache_errors_total{operation} - Cache operation errors
package cache
