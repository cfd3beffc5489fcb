package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/cache"
	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/clock"
)

type reply struct {
	page *catalog.CoursePage
	err  error
}

type pendingCall struct {
	ctx    context.Context
	filter catalog.FilterState
	reply  chan reply
}

func (p *pendingCall) respond(page *catalog.CoursePage, err error) {
	p.reply <- reply{page: page, err: err}
}

// fakeFetcher blocks every call until the test responds to it.
type fakeFetcher struct {
	// ignoreCancel simulates a transport that resolves after cancellation
	ignoreCancel bool

	mu      sync.Mutex
	calls   int
	started chan *pendingCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{started: make(chan *pendingCall, 16)}
}

func (f *fakeFetcher) ListCourses(ctx context.Context, filter catalog.FilterState) (*catalog.CoursePage, error) {
	return f.wait(ctx, filter)
}

func (f *fakeFetcher) FetchAll(ctx context.Context, filter catalog.FilterState) (*catalog.CoursePage, error) {
	return f.wait(ctx, filter)
}

func (f *fakeFetcher) wait(ctx context.Context, filter catalog.FilterState) (*catalog.CoursePage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	p := &pendingCall{ctx: ctx, filter: filter, reply: make(chan reply, 1)}
	f.started <- p

	if f.ignoreCancel {
		r := <-p.reply
		return r.page, r.err
	}
	select {
	case r := <-p.reply:
		return r.page, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case p := <-f.started:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
		return nil
	}
}

func (f *fakeFetcher) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case p := <-f.started:
		t.Fatalf("unexpected fetch for %+v", p.filter)
	case <-time.After(20 * time.Millisecond):
	}
}

type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recorder) Publish(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) all() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

func (r *recorder) statuses() []Status {
	var out []Status
	for _, o := range r.all() {
		out = append(out, o.Status)
	}
	return out
}

func pageOf(ids ...string) *catalog.CoursePage {
	courses := make([]catalog.Course, len(ids))
	for i, id := range ids {
		courses[i] = catalog.Course{ID: id}
	}
	return &catalog.CoursePage{Courses: courses, TotalCount: len(ids), TotalPages: 1}
}

func newTestCoordinator(t *testing.T, fetcher *fakeFetcher, clk clock.Clock) (*Coordinator, *recorder) {
	t.Helper()

	rec := &recorder{}
	c, err := New(Config{
		Fetcher:    fetcher,
		AllFetcher: fetcher,
		Cache:      cache.NewTTLCache(cache.DefaultTTL, clk),
		Publisher:  rec,
		Clock:      clk,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c, rec
}

var (
	filterA = catalog.FilterState{Page: 1, PageSize: 12, CategoryID: "A"}
	filterB = catalog.FilterState{Page: 1, PageSize: 12, CategoryID: "B"}
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"missing fetcher", Config{Publisher: &recorder{}}},
		{"missing publisher", Config{Fetcher: newFakeFetcher()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config); err == nil {
				t.Error("Expected error but got nil")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{Fetcher: newFakeFetcher(), Publisher: &recorder{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if c.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
	}
	if c.Cache().TTL() != cache.DefaultTTL {
		t.Errorf("cache TTL = %v, want %v", c.Cache().TTL(), cache.DefaultTTL)
	}
}

func TestRequestData_MissFetchesAndCaches(t *testing.T) {
	fetcher := newFakeFetcher()
	c, rec := newTestCoordinator(t, fetcher, clock.NewMockClock(time.Unix(0, 0)))

	if !c.RequestData(filterA) {
		t.Fatal("RequestData() = false, want true")
	}
	if !c.InFlight() {
		t.Error("InFlight() = false during fetch")
	}

	fetcher.next(t).respond(pageOf("a1", "a2"), nil)
	c.Wait()

	if got := rec.statuses(); len(got) != 2 || got[0] != StatusLoading || got[1] != StatusSucceeded {
		t.Fatalf("statuses = %v, want [loading succeeded]", got)
	}
	final := rec.all()[1]
	if final.FromCache {
		t.Error("network result reported as FromCache")
	}
	if len(final.Entry.Data) != 2 {
		t.Errorf("published %d courses, want 2", len(final.Entry.Data))
	}
	if c.InFlight() {
		t.Error("InFlight() = true after completion")
	}

	entry, ok := c.Cache().Get(cache.BuildKey(filterA))
	if !ok {
		t.Fatal("result was not cached")
	}
	if entry.TotalCount != 2 || entry.TotalPages != 1 {
		t.Errorf("cached totals = %d/%d, want 2/1", entry.TotalCount, entry.TotalPages)
	}
}

func TestRequestData_DropsWhileInFlight(t *testing.T) {
	fetcher := newFakeFetcher()
	c, rec := newTestCoordinator(t, fetcher, clock.NewMockClock(time.Unix(0, 0)))

	if !c.RequestData(filterA) {
		t.Fatal("first RequestData() = false")
	}
	if c.RequestData(filterA) {
		t.Error("second RequestData() accepted while first in flight")
	}
	if c.RequestData(filterB) {
		t.Error("RequestData() for another key accepted while first in flight")
	}

	fetcher.next(t).respond(pageOf("a1"), nil)
	c.Wait()
	fetcher.expectNoCall(t)

	if got := fetcher.callCount(); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
	if got := len(rec.all()); got != 2 {
		t.Errorf("published %d outcomes, want 2", got)
	}
}

func TestRequestData_CancelledResultNeverPublished(t *testing.T) {
	tests := []struct {
		name   string
		aFirst bool
	}{
		{"stale response arrives before replacement", true},
		{"stale response arrives after replacement", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFakeFetcher()
			fetcher.ignoreCancel = true
			c, rec := newTestCoordinator(t, fetcher, clock.NewMockClock(time.Unix(0, 0)))

			c.RequestData(filterA)
			callA := fetcher.next(t)

			c.Cancel()
			if !c.RequestData(filterB) {
				t.Fatal("RequestData(B) dropped after Cancel")
			}
			callB := fetcher.next(t)

			if tt.aFirst {
				callA.respond(pageOf("a1"), nil)
				callB.respond(pageOf("b1"), nil)
			} else {
				callB.respond(pageOf("b1"), nil)
				callA.respond(pageOf("a1"), nil)
			}
			c.Wait()

			for _, o := range rec.all() {
				if o.Status == StatusSucceeded && o.Key != cache.BuildKey(filterB) {
					t.Errorf("published outcome for %s, want only B", o.Key)
				}
			}
			if _, ok := c.Cache().Get(cache.BuildKey(filterA)); ok {
				t.Error("cancelled result was cached")
			}
			if _, ok := c.Cache().Get(cache.BuildKey(filterB)); !ok {
				t.Error("replacement result was not cached")
			}
			if c.InFlight() {
				t.Error("InFlight() = true after both fetches resolved")
			}
		})
	}
}

func TestCancel_AbortsTransport(t *testing.T) {
	fetcher := newFakeFetcher()
	c, rec := newTestCoordinator(t, fetcher, clock.NewMockClock(time.Unix(0, 0)))

	c.RequestData(filterA)
	call := fetcher.next(t)
	c.Cancel()

	select {
	case <-call.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("fetch context was not cancelled")
	}
	c.Wait()

	if got := rec.statuses(); len(got) != 1 || got[0] != StatusLoading {
		t.Errorf("statuses = %v, want [loading]", got)
	}
	if c.Cache().Len() != 0 {
		t.Error("cancelled fetch touched the cache")
	}
}

func TestCancel_Idle(t *testing.T) {
	c, _ := newTestCoordinator(t, newFakeFetcher(), clock.NewRealClock())
	c.Cancel()
	if c.InFlight() {
		t.Error("InFlight() = true after Cancel on idle coordinator")
	}
}

func TestRequestData_TTL(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	fetcher := newFakeFetcher()
	c, rec := newTestCoordinator(t, fetcher, clk)

	// t=0: miss, fetch
	c.RequestData(filterA)
	fetcher.next(t).respond(pageOf("a1"), nil)
	c.Wait()

	// t=4000ms: served from cache
	clk.Advance(4000 * time.Millisecond)
	if !c.RequestData(filterA) {
		t.Fatal("RequestData() at 4000ms = false")
	}
	fetcher.expectNoCall(t)
	last := rec.all()[len(rec.all())-1]
	if last.Status != StatusSucceeded || !last.FromCache {
		t.Errorf("outcome at 4000ms = %+v, want cached success", last)
	}

	// t=6000ms: stale, new fetch
	clk.Advance(2000 * time.Millisecond)
	c.RequestData(filterA)
	fetcher.next(t).respond(pageOf("a1", "a2"), nil)
	c.Wait()

	if got := fetcher.callCount(); got != 2 {
		t.Errorf("network calls = %d, want 2", got)
	}
	entry, ok := c.Cache().Get(cache.BuildKey(filterA))
	if !ok {
		t.Fatal("refetched entry missing")
	}
	if !entry.FetchedAt.Equal(clk.Now()) {
		t.Errorf("FetchedAt = %v, want %v", entry.FetchedAt, clk.Now())
	}
	if entry.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2 (last write wins)", entry.TotalCount)
	}
}

func TestRequestData_FailureNotCached(t *testing.T) {
	fetcher := newFakeFetcher()
	c, rec := newTestCoordinator(t, fetcher, clock.NewMockClock(time.Unix(0, 0)))
	boom := errors.New("connection reset")

	c.RequestData(filterA)
	fetcher.next(t).respond(nil, boom)
	c.Wait()

	outcomes := rec.all()
	if len(outcomes) != 2 || outcomes[1].Status != StatusFailed {
		t.Fatalf("statuses = %v, want [loading failed]", rec.statuses())
	}
	if !errors.Is(outcomes[1].Err, boom) {
		t.Errorf("Err = %v, want %v", outcomes[1].Err, boom)
	}
	if c.Cache().Len() != 0 {
		t.Error("failure was cached")
	}

	// A retry goes to the network again.
	c.RequestData(filterA)
	fetcher.next(t).respond(pageOf("a1"), nil)
	c.Wait()
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("network calls = %d, want 2", got)
	}
}

func TestRequestData_NilPageIsFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	c, rec := newTestCoordinator(t, fetcher, clock.NewMockClock(time.Unix(0, 0)))

	c.RequestData(filterA)
	fetcher.next(t).respond(nil, nil)
	c.Wait()

	if got := rec.statuses(); got[len(got)-1] != StatusFailed {
		t.Errorf("statuses = %v, want trailing failed", got)
	}
}

func TestRequestData_Timeout(t *testing.T) {
	fetcher := newFakeFetcher()
	rec := &recorder{}
	c, err := New(Config{Fetcher: fetcher, Publisher: rec, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	c.RequestData(filterA)
	fetcher.next(t)
	c.Wait()

	outcomes := rec.all()
	if len(outcomes) != 2 || outcomes[1].Status != StatusFailed {
		t.Fatalf("statuses = %v, want [loading failed]", rec.statuses())
	}
	if !errors.Is(outcomes[1].Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want DeadlineExceeded", outcomes[1].Err)
	}
}

func TestRequestAll(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		c, err := New(Config{Fetcher: newFakeFetcher(), Publisher: &recorder{}})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer c.Close()

		if _, err := c.RequestAll(filterA); !errors.Is(err, ErrNoAllFetcher) {
			t.Errorf("RequestAll() error = %v, want ErrNoAllFetcher", err)
		}
	})

	t.Run("caches under the all key", func(t *testing.T) {
		fetcher := newFakeFetcher()
		c, rec := newTestCoordinator(t, fetcher, clock.NewMockClock(time.Unix(0, 0)))

		ok, err := c.RequestAll(filterA.WithPage(3))
		if err != nil || !ok {
			t.Fatalf("RequestAll() = %v, %v", ok, err)
		}
		fetcher.next(t).respond(pageOf("a1", "a2", "a3"), nil)
		c.Wait()

		if _, hit := c.Cache().Get(cache.BuildAllKey(filterA)); !hit {
			t.Error("full result set not cached under BuildAllKey")
		}
		if _, hit := c.Cache().Get(cache.BuildKey(filterA)); hit {
			t.Error("full result set leaked into the page key")
		}

		// Any page of the same filter reuses the cached set.
		c.RequestAll(filterA.WithPage(1))
		fetcher.expectNoCall(t)
		if last := rec.all()[len(rec.all())-1]; !last.FromCache {
			t.Error("second RequestAll() not served from cache")
		}
	})
}

func TestClose(t *testing.T) {
	fetcher := newFakeFetcher()
	c, rec := newTestCoordinator(t, fetcher, clock.NewMockClock(time.Unix(0, 0)))

	c.RequestData(filterA)
	fetcher.next(t)
	c.Close()

	if c.InFlight() {
		t.Error("InFlight() = true after Close")
	}
	if c.RequestData(filterB) {
		t.Error("RequestData() accepted after Close")
	}
	fetcher.expectNoCall(t)
	if got := len(rec.all()); got != 1 {
		t.Errorf("published %d outcomes, want 1 (loading only)", got)
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusLoading, "loading"},
		{StatusSucceeded, "succeeded"},
		{StatusFailed, "failed"},
		{Status(9), "status(9)"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("Status(%d).String() = %q, want %q", int(tt.status), got, tt.expected)
		}
	}
}
