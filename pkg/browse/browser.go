// Package browse implements a paged, filterable and sortable course listing.
//
// A Browser owns the filter state, the sort mode and a private page cache.
// Every state change cancels the outstanding fetch before the next one is
// requested, so a late response for an abandoned filter is never shown.
// Views are recomputed on each call to View; nothing derived is cached.
package browse

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/cache"
	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/clock"
	"github.com/Sternrassler/catalog-client/pkg/fetch"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/pagination"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the number of courses per page.
const DefaultPageSize = 12

var (
	// ErrPageOutOfRange is returned for page changes outside 1..TotalPages.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrClosed is returned by state changes after Close.
	ErrClosed = errors.New("browser closed")
)

// SortScope selects which records a non-default sort orders.
type SortScope int

const (
	// ScopePage orders only the records of the current page.
	ScopePage SortScope = iota

	// ScopeGlobal fetches the full result set, orders it and pages through
	// it client-side.
	ScopeGlobal
)

// String returns the scope name.
func (s SortScope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "page"
}

// ParseSortScope parses "page" or "global". An empty string yields ScopePage.
func ParseSortScope(s string) (SortScope, error) {
	switch s {
	case "", "page":
		return ScopePage, nil
	case "global":
		return ScopeGlobal, nil
	default:
		return ScopePage, fmt.Errorf("invalid sort scope %q", s)
	}
}

// Config holds browser configuration.
type Config struct {
	// Fetcher loads single pages (REQUIRED)
	Fetcher fetch.Fetcher

	// PageFetcher walks pages for ScopeGlobal (default: Fetcher, if it implements it)
	PageFetcher pagination.PageFetcher

	// PageSize is fixed for the browser's lifetime (default: DefaultPageSize)
	PageSize int

	// TTL of the page cache (default: cache.DefaultTTL)
	TTL time.Duration

	// Timeout bounds a single fetch (default: fetch.DefaultTimeout)
	Timeout time.Duration

	// Clock drives cache freshness (default: system clock)
	Clock clock.Clock

	// SortScope selects per-page or global sorting (default: ScopePage)
	SortScope SortScope

	// Batch configures the all-pages fetcher used by ScopeGlobal
	Batch pagination.Config

	// Initial filter and sort. Page defaults to 1; PageSize is ignored.
	InitialFilter catalog.FilterState
	InitialSort   catalog.SortMode
}

// View is the read-only state handed to the presentation layer.
type View struct {
	Records    []catalog.ViewRecord
	Loading    bool
	Error      string
	From       int
	To         int
	TotalCount int
	TotalPages int
	Page       int
	Filter     catalog.FilterState
	Sort       catalog.SortMode
}

// viewState is the raw state View is computed from.
type viewState struct {
	filter catalog.FilterState
	sort   catalog.SortMode

	// records are the last successfully loaded courses; for a full result
	// set (all == true) they span every page. loadedFilter is the filter
	// they were loaded for.
	records      []catalog.Course
	loadedFilter catalog.FilterState
	all          bool
	totalCount   int
	totalPages   int
	loaded       bool

	loading bool
	err     string
}

// Browser is a single course listing.
type Browser struct {
	coord    *fetch.Coordinator
	scope    SortScope
	pageSize int
	logger   zerolog.Logger

	// changeMu serializes state changes. Lock order: changeMu, then the
	// coordinator lock, then viewMu.
	changeMu sync.Mutex

	viewMu  sync.RWMutex
	state   viewState
	closed  bool
	updates chan struct{}
}

// New creates a browser. Call Start to issue the first request.
func New(cfg Config) (*Browser, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewRealClock()
	}

	initial := cfg.InitialFilter
	initial.PageSize = cfg.PageSize
	if initial.Page < 1 {
		initial.Page = 1
	}
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("invalid initial filter: %w", err)
	}

	b := &Browser{
		scope:    cfg.SortScope,
		pageSize: cfg.PageSize,
		logger:   logging.NewLogger(logging.ComponentBrowser),
		state:    viewState{filter: initial, sort: cfg.InitialSort},
		updates:  make(chan struct{}, 1),
	}

	coordCfg := fetch.Config{
		Fetcher:   cfg.Fetcher,
		Cache:     cache.NewTTLCache(cfg.TTL, cfg.Clock),
		Publisher: fetch.PublisherFunc(b.publish),
		Clock:     cfg.Clock,
		Timeout:   cfg.Timeout,
	}

	if cfg.SortScope == ScopeGlobal {
		pages := cfg.PageFetcher
		if pages == nil {
			pf, ok := cfg.Fetcher.(pagination.PageFetcher)
			if !ok {
				return nil, fmt.Errorf("global sort scope requires a page fetcher")
			}
			pages = pf
		}
		coordCfg.AllFetcher = pagination.NewBatchFetcher(pages, cfg.Batch)
	}

	coord, err := fetch.New(coordCfg)
	if err != nil {
		return nil, fmt.Errorf("create coordinator: %w", err)
	}
	b.coord = coord

	return b, nil
}

// Start issues the request for the initial state.
func (b *Browser) Start() error {
	b.changeMu.Lock()
	defer b.changeMu.Unlock()
	return b.refresh()
}

// OnPageChange moves to page. Pages below 1 or past the last known page are
// rejected with ErrPageOutOfRange and leave the state unchanged.
func (b *Browser) OnPageChange(page int) error {
	b.changeMu.Lock()
	defer b.changeMu.Unlock()

	b.viewMu.RLock()
	loaded, totalPages := b.state.loaded, b.totalPagesLocked()
	b.viewMu.RUnlock()

	if page < 1 || (loaded && !pagination.ValidPage(page, totalPages)) {
		return fmt.Errorf("%w: %d (pages: %d)", ErrPageOutOfRange, page, totalPages)
	}

	if err := b.update(func(s *viewState) { s.filter.Page = page }); err != nil {
		return err
	}
	return b.refresh()
}

// OnCategoryChange filters by category and returns to the first page. An
// empty id removes the category filter.
func (b *Browser) OnCategoryChange(id string) error {
	b.changeMu.Lock()
	defer b.changeMu.Unlock()

	if err := b.update(func(s *viewState) {
		s.filter.CategoryID = id
		s.filter.Page = 1
	}); err != nil {
		return err
	}
	return b.refresh()
}

// OnLevelChange filters by level and returns to the first page. LevelAny
// removes the level filter.
func (b *Browser) OnLevelChange(level catalog.Level) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidLevel, level)
	}

	b.changeMu.Lock()
	defer b.changeMu.Unlock()

	if err := b.update(func(s *viewState) {
		s.filter.Level = level
		s.filter.Page = 1
	}); err != nil {
		return err
	}
	return b.refresh()
}

// OnSortChange changes the sort mode. The current page is kept.
func (b *Browser) OnSortChange(mode catalog.SortMode) error {
	b.changeMu.Lock()
	defer b.changeMu.Unlock()

	if err := b.update(func(s *viewState) { s.sort = mode }); err != nil {
		return err
	}
	return b.refresh()
}

// OnClearFilters removes category and level filters, resets the sort and
// returns to the first page.
func (b *Browser) OnClearFilters() error {
	b.changeMu.Lock()
	defer b.changeMu.Unlock()

	if err := b.update(func(s *viewState) {
		s.filter.CategoryID = ""
		s.filter.Level = catalog.LevelAny
		s.filter.Page = 1
		s.sort = catalog.SortDefault
	}); err != nil {
		return err
	}
	return b.refresh()
}

// refresh cancels the outstanding fetch and requests the current state.
// Must be called with changeMu held and viewMu released.
func (b *Browser) refresh() error {
	b.viewMu.RLock()
	filter, mode, closed := b.state.filter, b.state.sort, b.closed
	b.viewMu.RUnlock()

	if closed {
		return ErrClosed
	}

	b.coord.Cancel()

	if b.scope == ScopeGlobal && mode != catalog.SortDefault {
		_, err := b.coord.RequestAll(filter)
		return err
	}
	b.coord.RequestData(filter)
	return nil
}

// update cancels the outstanding fetch, applies fn to the view state and
// notifies subscribers. The fetch is cancelled first so its result cannot be
// published against the new state.
func (b *Browser) update(fn func(s *viewState)) error {
	b.coord.Cancel()

	b.viewMu.Lock()
	defer b.viewMu.Unlock()

	if b.closed {
		return ErrClosed
	}
	fn(&b.state)
	b.notifyLocked()
	return nil
}

// publish receives coordinator outcomes.
func (b *Browser) publish(o fetch.Outcome) {
	b.viewMu.Lock()
	defer b.viewMu.Unlock()

	if b.closed {
		return
	}

	s := &b.state
	if o.Filter != s.filter {
		b.logger.Debug().Str("key", string(o.Key)).Msg("Ignoring outcome for superseded filter")
		return
	}

	switch o.Status {
	case fetch.StatusLoading:
		s.loading = true
	case fetch.StatusSucceeded:
		s.records = o.Entry.Data
		s.loadedFilter = o.Filter
		s.all = o.Key == cache.BuildAllKey(o.Filter)
		s.totalCount = o.Entry.TotalCount
		s.totalPages = o.Entry.TotalPages
		s.loaded = true
		s.loading = false
		s.err = ""
	case fetch.StatusFailed:
		// Keep the last rendered records and totals, and return to the
		// filter they belong to so the window describes what is shown.
		if s.loaded {
			s.filter = s.loadedFilter
		}
		s.loading = false
		s.err = o.Err.Error()
		b.logger.Warn().Err(o.Err).Str("key", string(o.Key)).Msg("Listing refresh failed")
	}
	b.notifyLocked()
}

// totalPagesLocked returns the page count of the loaded data. Must be called
// with viewMu held.
func (b *Browser) totalPagesLocked() int {
	if b.state.all {
		return pagination.TotalPages(b.state.totalCount, b.pageSize)
	}
	return b.state.totalPages
}

func (b *Browser) notifyLocked() {
	select {
	case b.updates <- struct{}{}:
	default:
	}
}

// View computes the current view.
func (b *Browser) View() View {
	b.viewMu.RLock()
	s := b.state
	totalPages := b.totalPagesLocked()
	b.viewMu.RUnlock()

	records := catalog.Project(s.records, s.sort)
	if s.all {
		records = pagination.Slice(records, s.filter.Page, b.pageSize)
	}
	window := pagination.Present(s.filter.Page, b.pageSize, s.totalCount)

	return View{
		Records:    catalog.MapCourses(records),
		Loading:    s.loading,
		Error:      s.err,
		From:       window.From,
		To:         window.To,
		TotalCount: s.totalCount,
		TotalPages: totalPages,
		Page:       s.filter.Page,
		Filter:     s.filter,
		Sort:       s.sort,
	}
}

// Filter returns the current filter state.
func (b *Browser) Filter() catalog.FilterState {
	b.viewMu.RLock()
	defer b.viewMu.RUnlock()
	return b.state.filter
}

// Updates returns a channel that receives a value after state changes.
// Notifications are coalesced; the channel is closed by Close.
func (b *Browser) Updates() <-chan struct{} {
	return b.updates
}

// Wait blocks until no fetch is running.
func (b *Browser) Wait() {
	b.coord.Wait()
}

// Close cancels the outstanding fetch and waits for it to exit. State
// changes after Close return ErrClosed.
func (b *Browser) Close() {
	b.changeMu.Lock()
	defer b.changeMu.Unlock()

	b.coord.Close()

	b.viewMu.Lock()
	defer b.viewMu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.updates)
	}
}
