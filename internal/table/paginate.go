package table

import "github.com/pitabwire/tabula/model"

// Paginate returns the rows of the 1-based page, clamped to the slice bounds.
// A non-positive size returns every row.
func Paginate(rows []model.Row, page, size int) []model.Row {
	if size <= 0 {
		return rows
	}
	if page < 1 {
		page = 1
	}
	if len(rows) == 0 || page-1 > (len(rows)-1)/size {
		return []model.Row{}
	}
	start := (page - 1) * size
	end := min(start+size, len(rows))
	return rows[start:end]
}

// PageCount returns the number of pages needed for n rows, never less than 1.
func PageCount(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage bounds page to [1, pageCount].
func ClampPage(page, pageCount int) int {
	return max(1, min(page, max(pageCount, 1)))
}
