package cache

import (
	"net/url"
	"testing"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "resource no params",
			key:  CacheKey{Resource: "/categories/"},
			want: "categories",
		},
		{
			name: "multiple params (sorted)",
			key: CacheKey{
				Resource: "courses",
				Params: url.Values{
					"page":  []string{"1"},
					"limit": []string{"12"},
				},
			},
			want: "courses:limit=12:page=1",
		},
		{
			name: "separator inside value is escaped",
			key: CacheKey{
				Resource: "courses",
				Params:   url.Values{"categoryId": []string{"a:b"}},
			},
			want: "courses:categoryId=a%3Ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name   string
		filter catalog.FilterState
		want   QueryKey
	}{
		{
			name:   "no optional filters",
			filter: catalog.FilterState{Page: 1, PageSize: 12},
			want:   "courses:limit=12:page=1",
		},
		{
			name:   "category only",
			filter: catalog.FilterState{Page: 2, PageSize: 12, CategoryID: "web"},
			want:   "courses:categoryId=web:limit=12:page=2",
		},
		{
			name:   "all fields",
			filter: catalog.FilterState{Page: 3, PageSize: 9, CategoryID: "web", Level: catalog.LevelAdvanced},
			want:   "courses:categoryId=web:level=ADVANCED:limit=9:page=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildKey(tt.filter); got != tt.want {
				t.Errorf("BuildKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestBuildKey_Determinism ensures equal filters always produce equal keys
func TestBuildKey_Determinism(t *testing.T) {
	filter := catalog.FilterState{Page: 4, PageSize: 12, CategoryID: "data", Level: catalog.LevelBeginner}

	first := BuildKey(filter)
	for i := 0; i < 10; i++ {
		copyOf := filter
		if got := BuildKey(copyOf); got != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, got, first)
		}
	}
}

func TestBuildKey_DistinctFilters(t *testing.T) {
	filters := []catalog.FilterState{
		{Page: 1, PageSize: 12},
		{Page: 2, PageSize: 12},
		{Page: 1, PageSize: 24},
		{Page: 1, PageSize: 12, CategoryID: "a"},
		{Page: 1, PageSize: 12, CategoryID: "b"},
		{Page: 1, PageSize: 12, Level: catalog.LevelBeginner},
		{Page: 1, PageSize: 12, CategoryID: "a", Level: catalog.LevelBeginner},
	}

	seen := make(map[QueryKey]catalog.FilterState)
	for _, f := range filters {
		key := BuildKey(f)
		if prev, ok := seen[key]; ok {
			t.Errorf("key %q shared by %+v and %+v", key, prev, f)
		}
		seen[key] = f
	}
}

func TestBuildAllKey(t *testing.T) {
	a := BuildAllKey(catalog.FilterState{Page: 1, PageSize: 12, CategoryID: "web"})
	b := BuildAllKey(catalog.FilterState{Page: 5, PageSize: 12, CategoryID: "web"})
	if a != b {
		t.Errorf("BuildAllKey should ignore page: %q != %q", a, b)
	}
	if a != "courses/all:categoryId=web" {
		t.Errorf("BuildAllKey() = %q", a)
	}
	if a == BuildKey(catalog.FilterState{Page: 1, PageSize: 12, CategoryID: "web"}) {
		t.Error("page key and full-set key must differ")
	}
}
