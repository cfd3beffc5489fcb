package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// SortMode selects the client-side ordering of the loaded records.
type SortMode int

const (
	// SortDefault keeps the server order, which reflects the curated
	// display order set by administrators.
	SortDefault SortMode = iota
	SortMostPopular
	SortTopRated
	SortPriceAsc
	SortPriceDesc
	SortNewest
)

var sortModeNames = map[SortMode]string{
	SortDefault:     "default",
	SortMostPopular: "popular",
	SortTopRated:    "rating",
	SortPriceAsc:    "price-asc",
	SortPriceDesc:   "price-desc",
	SortNewest:      "newest",
}

var sortModeLabels = map[SortMode]string{
	SortDefault:     "Featured",
	SortMostPopular: "Most popular",
	SortTopRated:    "Top rated",
	SortPriceAsc:    "Price (Low-High)",
	SortPriceDesc:   "Price (High-Low)",
	SortNewest:      "Newest",
}

// String returns the wire name of the sort mode.
func (m SortMode) String() string {
	if name, ok := sortModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("SortMode(%d)", int(m))
}

// Label returns the display label of the sort mode.
func (m SortMode) Label() string {
	if label, ok := sortModeLabels[m]; ok {
		return label
	}
	return m.String()
}

// ParseSortMode parses a wire name. An empty string yields SortDefault.
func ParseSortMode(s string) (SortMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortDefault, nil
	}
	for mode, name := range sortModeNames {
		if name == s {
			return mode, nil
		}
	}
	return SortDefault, fmt.Errorf("unknown sort mode %q", s)
}

// Project orders records according to mode.
//
// SortDefault returns records unchanged. Every other mode returns a stably
// sorted copy; the input slice is never modified. Only the records passed in
// are ordered, so with per-page fetching the order applies to the current
// page only.
func Project(records []Course, mode SortMode) []Course {
	cmp := comparator(mode)
	if cmp == nil {
		return records
	}
	out := slices.Clone(records)
	slices.SortStableFunc(out, cmp)
	return out
}

func comparator(mode SortMode) func(a, b Course) int {
	switch mode {
	case SortMostPopular:
		return func(a, b Course) int {
			return compareDesc(a.Enrollments(), b.Enrollments())
		}
	case SortTopRated:
		return func(a, b Course) int {
			return compareDesc(a.RatingValue(), b.RatingValue())
		}
	case SortPriceAsc:
		return func(a, b Course) int {
			return compareDesc(b.EffectivePrice(), a.EffectivePrice())
		}
	case SortPriceDesc:
		return func(a, b Course) int {
			return compareDesc(a.EffectivePrice(), b.EffectivePrice())
		}
	case SortNewest:
		return func(a, b Course) int {
			return b.Created().Compare(a.Created())
		}
	default:
		return nil
	}
}

func compareDesc[T int | float64](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}
