package query

// DefaultPageSize is the fixed browse page size.
const DefaultPageSize = 50

// Page holds the resolved pagination state for one request.
type Page struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Paginate clamps a requested page into [1, totalPages] for the given
// total count. Out-of-range requests (zero, negative, beyond the last
// page) never error; they clamp silently so that stale bookmarks and racy
// concurrent deletes degrade gracefully.
func Paginate(requested, totalCount, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if totalCount < 0 {
		totalCount = 0
	}

	totalPages := (totalCount + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := requested
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	return Page{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}
