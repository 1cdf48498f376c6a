package contracts

// DefaultPageSize is the number of records shown per page of the record browser.
const DefaultPageSize = 8

// PageCount returns the number of pages needed to show n items, size per page.
func PageCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Page returns the 1-based page of items. Pages outside the available range yield an
// empty slice.
func Page[T any](items []T, page, size int) []T {
	if page < 1 || size <= 0 {
		return []T{}
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+size, len(items))]
}
