package catalog

import (
	"slices"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func ids(courses []Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.ID
	}
	return out
}

func fixtureCourses() []Course {
	return []Course{
		{ID: "a", Price: ptr(50.0), EnrollmentCount: ptr(10), Rating: ptr(4.0), CreatedAt: ptr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
		{ID: "b", Price: ptr(80.0), DiscountPrice: ptr(20.0), EnrollmentCount: ptr(300), Rating: ptr(4.8)},
		{ID: "c", EnrollmentCount: nil, Rating: nil, CreatedAt: ptr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))},
		{ID: "d", Price: ptr(30.0), EnrollmentCount: ptr(10), Rating: ptr(4.0), CreatedAt: ptr(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))},
	}
}

func TestProject_DefaultIsIdentity(t *testing.T) {
	inputs := [][]Course{
		nil,
		{},
		fixtureCourses(),
		{{ID: "z"}, {ID: "a"}, {ID: "m"}},
	}

	for _, in := range inputs {
		got := Project(in, SortDefault)
		if !slices.Equal(ids(got), ids(in)) {
			t.Errorf("Project(Default) = %v, want %v", ids(got), ids(in))
		}
		if len(in) > 0 && &got[0] != &in[0] {
			t.Error("Project(Default) should return the input slice unchanged")
		}
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name string
		mode SortMode
		want []string
	}{
		{"most popular (missing count is 0, stable ties)", SortMostPopular, []string{"b", "a", "d", "c"}},
		{"top rated (missing rating is 0)", SortTopRated, []string{"b", "a", "d", "c"}},
		{"price ascending uses discount", SortPriceAsc, []string{"c", "b", "d", "a"}},
		{"price descending", SortPriceDesc, []string{"a", "d", "b", "c"}},
		{"newest (missing timestamp is epoch)", SortNewest, []string{"c", "a", "d", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := fixtureCourses()
			got := Project(in, tt.mode)
			if !slices.Equal(ids(got), tt.want) {
				t.Errorf("Project(%s) = %v, want %v", tt.mode, ids(got), tt.want)
			}
			if !slices.Equal(ids(in), []string{"a", "b", "c", "d"}) {
				t.Errorf("input was modified: %v", ids(in))
			}
		})
	}
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SortMode
		wantErr bool
	}{
		{"", SortDefault, false},
		{"default", SortDefault, false},
		{"popular", SortMostPopular, false},
		{"RATING", SortTopRated, false},
		{"price-asc", SortPriceAsc, false},
		{"price-desc", SortPriceDesc, false},
		{" newest ", SortNewest, false},
		{"cheapest", SortDefault, true},
	}

	for _, tt := range tests {
		got, err := ParseSortMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSortMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSortMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSortMode_RoundTripNames(t *testing.T) {
	for mode := SortDefault; mode <= SortNewest; mode++ {
		parsed, err := ParseSortMode(mode.String())
		if err != nil {
			t.Fatalf("ParseSortMode(%q): %v", mode.String(), err)
		}
		if parsed != mode {
			t.Errorf("round trip %v -> %v", mode, parsed)
		}
	}
}
