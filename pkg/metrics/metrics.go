// Package metrics exposes the Prometheus metrics of the catalog client.
// All metrics are defined in their respective packages (client, cache, fetch)
// to maintain modularity and avoid circular dependencies.
//
// This package provides the HTTP handler and a reference of all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler serves from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{layer="memory|redis"} (Counter): Cache hits by layer
//   - catalog_cache_misses_total{layer="memory|redis"} (Counter): Cache misses by layer
//   - catalog_cache_stale_total (Counter): In-memory reads that found an entry past its TTL
//   - catalog_cache_size_bytes{layer="redis"} (Gauge): Bytes written to redis
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Fetch Metrics (pkg/fetch):
//   - catalog_fetch_started_total (Counter): Network fetches started
//   - catalog_fetch_succeeded_total (Counter): Fetches cached and published
//   - catalog_fetch_failed_total (Counter): Fetches that ended in an error
//   - catalog_fetch_cancelled_total (Counter): Fetches discarded after cancellation
//   - catalog_fetch_dropped_total (Counter): Requests dropped while a fetch was in flight
//   - catalog_fetch_duration_seconds (Histogram): Fetch duration
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Errors by class (client, throttled, server, network, decode)
//
// Retry Metrics (pkg/client):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Memory Cache Hit Rate
//   sum(rate(catalog_cache_hits_total{layer="memory"}[5m])) /
//   (sum(rate(catalog_cache_hits_total{layer="memory"}[5m])) + sum(rate(catalog_cache_misses_total{layer="memory"}[5m])))
//
//   # Share of fetches abandoned by a newer request
//   rate(catalog_fetch_cancelled_total[5m]) / rate(catalog_fetch_started_total[5m])
//
//   # Request Error Rate
//   rate(catalog_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
