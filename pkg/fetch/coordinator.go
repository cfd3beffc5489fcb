// Package fetch coordinates course page requests for one browser instance.
//
// A Coordinator owns at most one network request at a time. Requests are
// served from a private TTLCache when fresh; otherwise a single fetch runs in
// the background and its result is cached and published only if the request
// was not cancelled in the meantime.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/cache"
	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/clock"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single fetch. Expiry is reported as a failure.
const DefaultTimeout = 5 * time.Second

var (
	// ErrClosed is returned by requests made after Close.
	ErrClosed = errors.New("coordinator closed")

	// ErrNoAllFetcher is returned by RequestAll when no AllFetcher is configured.
	ErrNoAllFetcher = errors.New("no all-pages fetcher configured")
)

// Fetcher loads one page of courses.
type Fetcher interface {
	ListCourses(ctx context.Context, filter catalog.FilterState) (*catalog.CoursePage, error)
}

// AllFetcher loads every page of a filtered result set.
type AllFetcher interface {
	FetchAll(ctx context.Context, filter catalog.FilterState) (*catalog.CoursePage, error)
}

// Status is the kind of an Outcome.
type Status int

const (
	// StatusLoading is published when a network fetch starts.
	StatusLoading Status = iota

	// StatusSucceeded carries a fresh entry, from cache or network.
	StatusSucceeded

	// StatusFailed carries the fetch error. The cache is left untouched.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is a state transition published to the presentation layer.
type Outcome struct {
	Status Status
	Key    cache.QueryKey
	Filter catalog.FilterState

	// Entry is set for StatusSucceeded
	Entry *cache.Entry

	// FromCache reports whether Entry was served without network I/O
	FromCache bool

	// Err is set for StatusFailed
	Err error
}

// Publisher receives outcomes. Publish is called while the coordinator lock
// is held, so it must not call back into the Coordinator.
type Publisher interface {
	Publish(Outcome)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(Outcome)

// Publish calls f(o).
func (f PublisherFunc) Publish(o Outcome) {
	f(o)
}

// Config holds coordinator configuration.
type Config struct {
	// Fetcher loads single pages (REQUIRED)
	Fetcher Fetcher

	// AllFetcher loads complete result sets for RequestAll (optional)
	AllFetcher AllFetcher

	// Cache is the private page cache (default: new TTLCache with DefaultTTL)
	Cache *cache.TTLCache

	// Publisher receives outcomes (REQUIRED)
	Publisher Publisher

	// Clock stamps fetched entries (default: system clock)
	Clock clock.Clock

	// Timeout bounds a single fetch (default: DefaultTimeout)
	Timeout time.Duration
}

// flight is the request currently owned by the coordinator. Its pointer
// identity is the cancellation token: once c.inflight no longer points to
// it, its result is discarded.
type flight struct {
	key     cache.QueryKey
	cancel  context.CancelFunc
	started time.Time
}

type fetchFunc func(ctx context.Context) (*catalog.CoursePage, error)

// Coordinator implements the fetch state machine
// Idle -> Fetching -> (Succeeded | Cancelled | Failed) -> Idle.
type Coordinator struct {
	fetcher    Fetcher
	allFetcher AllFetcher
	cache      *cache.TTLCache
	publisher  Publisher
	clock      clock.Clock
	timeout    time.Duration
	logger     zerolog.Logger

	mu       sync.Mutex
	inflight *flight
	closed   bool
	wg       sync.WaitGroup
}

// New creates a coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewRealClock()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewTTLCache(cache.DefaultTTL, cfg.Clock)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Coordinator{
		fetcher:    cfg.Fetcher,
		allFetcher: cfg.AllFetcher,
		cache:      cfg.Cache,
		publisher:  cfg.Publisher,
		clock:      cfg.Clock,
		timeout:    cfg.Timeout,
		logger:     logging.NewLogger(logging.ComponentCoordinator),
	}, nil
}

// Cache returns the coordinator's page cache.
func (c *Coordinator) Cache() *cache.TTLCache {
	return c.cache
}

// RequestData requests the page selected by filter. It reports whether the
// request was accepted: false means it was dropped because a fetch is
// still owned, or the coordinator is closed.
//
// A fresh cache entry is published synchronously before RequestData returns.
func (c *Coordinator) RequestData(filter catalog.FilterState) bool {
	return c.request(cache.BuildKey(filter), filter, func(ctx context.Context) (*catalog.CoursePage, error) {
		return c.fetcher.ListCourses(ctx, filter)
	})
}

// RequestAll requests the complete result set for filter's category and
// level through the AllFetcher. Page and page size do not take part in the
// cache key.
func (c *Coordinator) RequestAll(filter catalog.FilterState) (bool, error) {
	if c.allFetcher == nil {
		return false, ErrNoAllFetcher
	}
	return c.request(cache.BuildAllKey(filter), filter, func(ctx context.Context) (*catalog.CoursePage, error) {
		return c.allFetcher.FetchAll(ctx, filter)
	}), nil
}

func (c *Coordinator) request(key cache.QueryKey, filter catalog.FilterState, fetch fetchFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Debug().Str("key", string(key)).Err(ErrClosed).Msg("Request ignored")
		return false
	}

	if c.inflight != nil {
		FetchDropped.Inc()
		c.logger.Debug().
			Str("key", string(key)).
			Str("inflight_key", string(c.inflight.key)).
			Msg("Fetch in flight, request dropped")
		return false
	}

	if entry, ok := c.cache.Get(key); ok {
		c.logger.Debug().
			Str("key", string(key)).
			Dur("age", entry.Age(c.clock.Now())).
			Bool("cache_hit", true).
			Msg("Serving page from cache")
		c.publisher.Publish(Outcome{
			Status:    StatusSucceeded,
			Key:       key,
			Filter:    filter,
			Entry:     entry,
			FromCache: true,
		})
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	f := &flight{key: key, cancel: cancel, started: time.Now()}
	c.inflight = f

	FetchStarted.Inc()
	c.logger.Debug().Str("key", string(key)).Bool("cache_hit", false).Msg("Fetching page")
	c.publisher.Publish(Outcome{Status: StatusLoading, Key: key, Filter: filter})

	c.wg.Add(1)
	go c.run(ctx, f, filter, fetch)

	return true
}

func (c *Coordinator) run(ctx context.Context, f *flight, filter catalog.FilterState, fetch fetchFunc) {
	defer c.wg.Done()
	defer f.cancel()

	page, err := fetch(ctx)
	fetchedAt := c.clock.Now()
	duration := time.Since(f.started)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		if c.inflight == f {
			c.inflight = nil
		}
	}()

	if c.inflight != f {
		FetchCancelled.Inc()
		c.logger.Debug().
			Str("key", string(f.key)).
			Dur("duration", duration).
			Msg("Discarding result of cancelled fetch")
		return
	}

	FetchDuration.Observe(duration.Seconds())

	if err == nil && page == nil {
		err = fmt.Errorf("empty response for %s", f.key)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("fetch timed out after %s: %w", c.timeout, err)
		}
		FetchFailed.Inc()
		c.logger.Warn().
			Err(err).
			Str("key", string(f.key)).
			Dur("duration", duration).
			Msg("Fetch failed")
		c.publisher.Publish(Outcome{Status: StatusFailed, Key: f.key, Filter: filter, Err: err})
		return
	}

	entry := cache.NewEntry(page, fetchedAt)
	c.cache.Put(f.key, entry)

	FetchSucceeded.Inc()
	c.logger.Debug().
		Str("key", string(f.key)).
		Int("courses", len(entry.Data)).
		Int("total_count", entry.TotalCount).
		Dur("duration", duration).
		Msg("Fetch complete")
	c.publisher.Publish(Outcome{Status: StatusSucceeded, Key: f.key, Filter: filter, Entry: entry})
}

// Cancel invalidates the owned request, if any, and aborts its transport.
// Its result will be neither cached nor published.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Coordinator) cancelLocked() {
	if c.inflight == nil {
		return
	}
	c.logger.Debug().Str("key", string(c.inflight.key)).Msg("Cancelling fetch")
	c.inflight.cancel()
	c.inflight = nil
}

// InFlight reports whether a request is currently owned.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// Wait blocks until no fetch goroutine is running.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels the owned request and waits for fetch goroutines to exit.
// Later requests are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.cancelLocked()
	c.mu.Unlock()

	c.wg.Wait()
}
