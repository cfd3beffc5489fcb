package client

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	catalogRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	catalogRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"error_class"})

	catalogRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps every wait. A Retry-After hint above it is not waited
	// for; the request fails instead.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait per attempt (values below 1 mean 1).
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration. Backoffs are
// short because a user is waiting on the result.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// NoRetry returns a configuration that makes exactly one attempt.
func NoRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// retrier runs a request function under a RetryConfig. Only server, network
// and throttled errors are retried.
type retrier struct {
	config RetryConfig
	logger zerolog.Logger

	// jitter returns a value in [0, 1); nil uses math/rand.
	jitter func() float64
}

func newRetrier(config RetryConfig, logger zerolog.Logger) retrier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = 1
	}
	return retrier{config: config, logger: logger, jitter: rand.Float64}
}

// backoff returns the wait after the given failed attempt, jittered by ±20%
// and raised to the server's Retry-After hint. ok is false when the hint
// exceeds MaxBackoff.
func (r retrier) backoff(attempt int, err error) (wait time.Duration, ok bool) {
	base := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
	if limit := float64(r.config.MaxBackoff); limit > 0 && base > limit {
		base = limit
	}
	wait = time.Duration(base * (0.8 + r.jitter()*0.4))

	if hint := retryAfter(err); hint > 0 {
		if r.config.MaxBackoff > 0 && hint > r.config.MaxBackoff {
			return 0, false
		}
		wait = max(wait, hint)
	}
	return wait, true
}

// do calls fn until it succeeds, fails with a non-retryable error, the
// attempts are used up or ctx is done.
func (r retrier) do(ctx context.Context, fn func() error) error {
	var lastErr error
	var errorClass ErrorClass

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				r.logger.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass = ClassOf(err)

		// A cancelled caller must not be retried or reported as exhausted.
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
		if !shouldRetry(errorClass) || r.config.MaxAttempts == 1 {
			return lastErr
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		wait, ok := r.backoff(attempt, err)
		if !ok {
			r.logger.Warn().
				Str("error_class", string(errorClass)).
				Dur("retry_after", retryAfter(err)).
				Dur("max_backoff", r.config.MaxBackoff).
				Msg("Retry-After exceeds max backoff, giving up")
			return lastErr
		}

		catalogRetriesTotal.WithLabelValues(string(errorClass)).Inc()
		catalogRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())
		r.logger.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	catalogRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	r.logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", r.config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, r.config.MaxAttempts, lastErr)
}
