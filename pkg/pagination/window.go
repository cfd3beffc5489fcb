package pagination

// Window is the "showing From-To of N" range of the current page.
type Window struct {
	From int
	To   int
}

// Present computes the showing range for a page.
//
// An empty result yields {0, 0}. Page is not clamped; callers reject
// out-of-range pages before they get here.
func Present(page, pageSize, totalCount int) Window {
	if totalCount == 0 {
		return Window{}
	}
	return Window{
		From: (page-1)*pageSize + 1,
		To:   min(page*pageSize, totalCount),
	}
}

// ValidPage reports whether page can be requested given the known number of
// pages. Page 1 is always valid so that an empty or not yet loaded result can
// be (re)requested.
func ValidPage(page, totalPages int) bool {
	if page < 1 {
		return false
	}
	return page == 1 || page <= totalPages
}

// TotalPages returns the number of pages needed for totalCount items.
func TotalPages(totalCount, pageSize int) int {
	if totalCount <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}

// Slice returns the items of items that fall on page, or nil when the page
// is past the end.
func Slice[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize < 1 {
		return nil
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}
