package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int

	// Timeout per page fetch
	Timeout time.Duration

	// PageSize is the page size used while walking the full result set
	PageSize int
}

// DefaultConfig returns the default batch configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        5 * time.Second,
		PageSize:       50,
	}
}

// PageFetcher fetches a single page of courses for a filter.
type PageFetcher interface {
	FetchPage(ctx context.Context, filter catalog.FilterState, page int) (*catalog.CoursePage, error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Page       *catalog.CoursePage
	Error      error
}

// BatchFetcher fetches every page of a filtered result set in parallel.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches all pages for the filter's category and level and returns
// them concatenated in server order. The filter's page and page size are
// ignored. Unlike a partial listing, a global ordering needs every page, so
// any failed page fails the whole call.
func (bf *BatchFetcher) FetchAll(ctx context.Context, filter catalog.FilterState) (*catalog.CoursePage, error) {
	start := time.Now()
	filter.PageSize = bf.config.PageSize

	first, err := bf.fetchPage(ctx, filter, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	totalPages := first.TotalPages
	if totalPages <= 1 {
		log.Debug().
			Int("courses", len(first.Courses)).
			Dur("duration", time.Since(start)).
			Msg("Fetch all complete (single page)")
		return &catalog.CoursePage{
			Courses:    first.Courses,
			TotalCount: max(first.TotalCount, len(first.Courses)),
			TotalPages: 1,
		}, nil
	}

	log.Debug().
		Int("total_pages", totalPages).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pages := make([]*catalog.CoursePage, totalPages+1)
	pages[1] = first

	pageQueue := make(chan int, totalPages)
	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	results := make(chan PageResult, totalPages)
	var wg sync.WaitGroup
	for i := 0; i < min(bf.config.MaxConcurrency, totalPages-1); i++ {
		wg.Add(1)
		go bf.worker(ctx, filter, pageQueue, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for result := range results {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", result.PageNumber, result.Error)
				cancel()
			}
			continue
		}
		pages[result.PageNumber] = result.Page
	}
	if firstErr != nil {
		return nil, firstErr
	}

	all := &catalog.CoursePage{TotalPages: 1}
	for _, p := range pages[1:] {
		if p == nil {
			return nil, fmt.Errorf("incomplete result set: %w", ctx.Err())
		}
		all.Courses = append(all.Courses, p.Courses...)
	}
	all.TotalCount = len(all.Courses)

	log.Debug().
		Int("pages", totalPages).
		Int("courses", all.TotalCount).
		Dur("duration", time.Since(start)).
		Msg("Fetch all complete")

	return all, nil
}

func (bf *BatchFetcher) fetchPage(ctx context.Context, filter catalog.FilterState, page int) (*catalog.CoursePage, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()
	return bf.fetcher.FetchPage(pageCtx, filter, page)
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, filter catalog.FilterState, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for pageNum := range pageQueue {
		if ctx.Err() != nil {
			results <- PageResult{PageNumber: pageNum, Error: ctx.Err()}
			continue
		}

		page, err := bf.fetchPage(ctx, filter, pageNum)
		results <- PageResult{PageNumber: pageNum, Page: page, Error: err}
	}
}
