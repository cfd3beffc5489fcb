// Package catalog defines the course catalog records returned by the REST API,
// the filter state that selects a page of them, and the pure transformations
// (sorting, view mapping) applied before rendering.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPage indicates a page number below 1.
	ErrInvalidPage = errors.New("page must be >= 1")

	// ErrInvalidPageSize indicates a page size below 1.
	ErrInvalidPageSize = errors.New("page size must be >= 1")

	// ErrInvalidLevel indicates an unknown difficulty level.
	ErrInvalidLevel = errors.New("invalid level")
)

// Level is the difficulty level of a course.
type Level string

const (
	// LevelAny means no level filter.
	LevelAny Level = ""

	LevelBeginner     Level = "BEGINNER"
	LevelIntermediate Level = "INTERMEDIATE"
	LevelAdvanced     Level = "ADVANCED"
)

// Levels lists the selectable levels in display order.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseLevel parses a level case-insensitively. An empty string yields LevelAny.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if l.Valid() {
		return l, nil
	}
	return LevelAny, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Valid reports whether l is LevelAny or one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelAny, LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Label returns the human readable name of the level.
func (l Level) Label() string {
	switch l {
	case LevelBeginner:
		return "Beginner"
	case LevelIntermediate:
		return "Intermediate"
	case LevelAdvanced:
		return "Advanced"
	case LevelAny:
		return "All levels"
	default:
		return string(l)
	}
}

// FilterState selects which page of which filtered view is requested.
// An empty CategoryID or Level means the filter is absent.
type FilterState struct {
	Page       int
	PageSize   int
	CategoryID string
	Level      Level
}

// Validate checks the FilterState invariants.
func (f FilterState) Validate() error {
	if f.Page < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidPage, f.Page)
	}
	if f.PageSize < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidPageSize, f.PageSize)
	}
	if !f.Level.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, f.Level)
	}
	return nil
}

// HasFilters reports whether a category or level filter is active.
func (f FilterState) HasFilters() bool {
	return f.CategoryID != "" || f.Level != LevelAny
}

// WithPage returns a copy of f for the given page.
func (f FilterState) WithPage(page int) FilterState {
	f.Page = page
	return f
}
