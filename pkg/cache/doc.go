// Package cache provides the caching layers of the catalog client.
//
// Course pages are cached in a TTLCache, an in-memory store owned by one
// browser instance:
//
//   - Keys are derived deterministically from the filter state (BuildKey)
//   - Entries are served for DefaultTTL (5s) and then treated as absent
//   - Writes overwrite unconditionally; entries are never mutated
//
// # Basic Usage
//
//	c := cache.NewTTLCache(cache.DefaultTTL, nil)
//
//	key := cache.BuildKey(catalog.FilterState{Page: 1, PageSize: 12})
//	if entry, ok := c.Get(key); ok {
//		// fresh hit, no network call needed
//	}
//
//	c.Put(key, cache.NewEntry(page, time.Now()))
//
// # Shared Category Cache
//
// The category list changes rarely and is not part of the page cache. It
// can be shared between processes through a redis backed Manager:
//
//	manager := cache.NewManager(redisClient)
//	entry, err := manager.Get(ctx, cache.CacheKey{Resource: cache.ResourceCategories})
//	if err == cache.ErrCacheMiss {
//		// fetch from the API
//	}
//
// # Metrics
//
//   - catalog_cache_hits_total{layer} - Cache hits (memory, redis)
//   - catalog_cache_misses_total{layer} - Cache misses
//   - catalog_cache_stale_total - In-memory reads past TTL
//   - catalog_cache_size_bytes{layer="redis"} - Bytes written to redis
//   - catalog_cache_errors_total{operation} - Redis operation errors
package cache
