package domain

// PaginationParams selects one page of a list. A zero PageSize means the
// whole list.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Paged reports whether the list should be cut to a single page.
func (p PaginationParams) Paged() bool { return p.PageSize > 0 }

// Offset is the number of rows before the first row of the page.
func (p PaginationParams) Offset() int {
	if !p.Paged() || p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// PageCount is how many pages total rows fill.
func (p PaginationParams) PageCount(total int) int {
	if !p.Paged() || total <= 0 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}
