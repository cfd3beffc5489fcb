package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	layerMemory = "memory"
	layerRedis  = "redis"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer, stale reads included
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"layer"},
	)

	// CacheStale tracks in-memory reads that found an entry past its TTL
	CacheStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_stale_total",
			Help: "Total number of in-memory reads that found a stale entry",
		},
	)

	// CacheSize tracks bytes written to the redis layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_cache_size_bytes",
			Help: "Bytes written to the catalog cache",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
