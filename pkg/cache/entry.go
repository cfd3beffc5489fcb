package cache

import (
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
)

// Entry is one cached page of courses. Entries are superseded by later
// writes for the same key, never mutated.
type Entry struct {
	// Data is the ordered page of courses as returned by the server
	Data []catalog.Course

	// TotalCount is the number of courses across all pages
	TotalCount int

	// TotalPages is the number of pages for the request's page size
	TotalPages int

	// FetchedAt is when the response was received
	FetchedAt time.Time
}

// NewEntry builds an Entry from a fetched page.
func NewEntry(page *catalog.CoursePage, fetchedAt time.Time) *Entry {
	return &Entry{
		Data:       page.Courses,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
		FetchedAt:  fetchedAt,
	}
}

// Age returns how long ago the entry was fetched.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// IsStale reports whether the entry is at least ttl old.
func (e *Entry) IsStale(now time.Time, ttl time.Duration) bool {
	return e.Age(now) >= ttl
}

// Page converts the entry back into a CoursePage.
func (e *Entry) Page() *catalog.CoursePage {
	return &catalog.CoursePage{
		Courses:    e.Data,
		TotalCount: e.TotalCount,
		TotalPages: e.TotalPages,
	}
}
