package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchStarted tracks network fetches issued by coordinators
	FetchStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fetch_started_total",
			Help: "Total number of catalog fetches started",
		},
	)

	// FetchSucceeded tracks fetches whose result was cached and published
	FetchSucceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fetch_succeeded_total",
			Help: "Total number of catalog fetches that succeeded",
		},
	)

	// FetchFailed tracks fetches that ended in a published error
	FetchFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fetch_failed_total",
			Help: "Total number of catalog fetches that failed",
		},
	)

	// FetchCancelled tracks fetches whose result was discarded
	FetchCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fetch_cancelled_total",
			Help: "Total number of catalog fetches cancelled before completion",
		},
	)

	// FetchDropped tracks requests ignored because a fetch was in flight
	FetchDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fetch_dropped_total",
			Help: "Total number of requests dropped while a fetch was in flight",
		},
	)

	// FetchDuration tracks the network time of completed fetches
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_fetch_duration_seconds",
			Help:    "Duration of catalog fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
)
