package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/gorilla/schema"
)

// initialQuery is the listing state encoded in a URL query, e.g.
// "categoryId=web&level=BEGINNER&page=2&sort=price-asc".
type initialQuery struct {
	Page       int    `schema:"page"`
	CategoryID string `schema:"categoryId"`
	Level      string `schema:"level"`
	Sort       string `schema:"sort,default:default"`
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// parseQuery decodes an initial filter and sort mode from a query string.
func parseQuery(raw string) (catalog.FilterState, catalog.SortMode, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(raw), "?"))
	if err != nil {
		return catalog.FilterState{}, catalog.SortDefault, fmt.Errorf("parse query: %w", err)
	}

	var q initialQuery
	if err := decoder.Decode(&q, values); err != nil {
		return catalog.FilterState{}, catalog.SortDefault, fmt.Errorf("decode query: %w", err)
	}
	// Only an absent page means the first one; "page=" and "page=0" are rejected.
	if !values.Has("page") {
		q.Page = 1
	}

	level, err := catalog.ParseLevel(q.Level)
	if err != nil {
		return catalog.FilterState{}, catalog.SortDefault, err
	}
	mode, err := catalog.ParseSortMode(q.Sort)
	if err != nil {
		return catalog.FilterState{}, catalog.SortDefault, err
	}
	if q.Page < 1 {
		return catalog.FilterState{}, catalog.SortDefault, fmt.Errorf("%w (got %d)", catalog.ErrInvalidPage, q.Page)
	}

	return catalog.FilterState{Page: q.Page, CategoryID: q.CategoryID, Level: level}, mode, nil
}
