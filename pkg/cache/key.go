package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
)

// Resource names used as the first key segment.
const (
	ResourceCourses    = "courses"
	ResourceAllCourses = "courses/all"
	ResourceCategories = "categories"
)

// QueryKey is the canonical string form of a request, used as the cache index.
type QueryKey string

// CacheKey represents a unique identifier for a cached catalog response.
type CacheKey struct {
	// Resource is the collection being requested (e.g., "courses")
	Resource string

	// Params are the request parameters that influence the response
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: resource:param1=val1:param2=val2
//
// Example:
//
//	courses:categoryId=web:level=BEGINNER:limit=12:page=2
func (k CacheKey) String() string {
	parts := []string{strings.Trim(k.Resource, "/")}

	// Params are sorted for determinism; values are escaped so a ':' inside
	// a category id cannot collide with the separator.
	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, url.QueryEscape(k.Params.Get(name))))
		}
	}

	return strings.Join(parts, ":")
}

// QueryParams returns the request parameters a FilterState sends to the API.
// Absent optional filters are omitted.
func QueryParams(f catalog.FilterState) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("limit", strconv.Itoa(f.PageSize))
	if f.CategoryID != "" {
		q.Set("categoryId", f.CategoryID)
	}
	if f.Level != catalog.LevelAny {
		q.Set("level", string(f.Level))
	}
	return q
}

// BuildKey derives the QueryKey of a single page request. Field-for-field
// equal filters always produce equal keys.
func BuildKey(f catalog.FilterState) QueryKey {
	return QueryKey(CacheKey{Resource: ResourceCourses, Params: QueryParams(f)}.String())
}

// BuildAllKey derives the key of the full, unpaginated result set for the
// filter's category and level. Page and page size do not participate.
func BuildAllKey(f catalog.FilterState) QueryKey {
	q := QueryParams(f)
	q.Del("page")
	q.Del("limit")
	return QueryKey(CacheKey{Resource: ResourceAllCourses, Params: q}.String())
}
