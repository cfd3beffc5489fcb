package pagination

import (
	"slices"
	"testing"
)

func TestPresent(t *testing.T) {
	tests := []struct {
		name              string
		page, size, total int
		want              Window
	}{
		{"empty result", 1, 12, 0, Window{From: 0, To: 0}},
		{"partial last page", 2, 12, 15, Window{From: 13, To: 15}},
		{"full first page", 1, 12, 30, Window{From: 1, To: 12}},
		{"exact multiple", 3, 10, 30, Window{From: 21, To: 30}},
		{"single item", 1, 12, 1, Window{From: 1, To: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Present(tt.page, tt.size, tt.total); got != tt.want {
				t.Errorf("Present(%d, %d, %d) = %+v, want %+v", tt.page, tt.size, tt.total, got, tt.want)
			}
		})
	}
}

func TestValidPage(t *testing.T) {
	tests := []struct {
		page, totalPages int
		want             bool
	}{
		{0, 5, false},
		{-1, 5, false},
		{1, 0, true},
		{2, 0, false},
		{5, 5, true},
		{6, 5, false},
	}

	for _, tt := range tests {
		if got := ValidPage(tt.page, tt.totalPages); got != tt.want {
			t.Errorf("ValidPage(%d, %d) = %v, want %v", tt.page, tt.totalPages, got, tt.want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct{ total, size, want int }{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		page, size int
		want       []int
	}{
		{1, 2, []int{1, 2}},
		{3, 2, []int{5}},
		{4, 2, nil},
		{0, 2, nil},
	}
	for _, tt := range tests {
		if got := Slice(items, tt.page, tt.size); !slices.Equal(got, tt.want) {
			t.Errorf("Slice(page=%d, size=%d) = %v, want %v", tt.page, tt.size, got, tt.want)
		}
	}
}
