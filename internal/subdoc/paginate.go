package subdoc

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

type PageMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

// NewPageMeta computes page metadata. There is always at least one page,
// even for an empty result.
func NewPageMeta(total int64, page, pageSize int) PageMeta {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	return PageMeta{
		Total:       total,
		CurrentPage: page,
		PerPage:     pageSize,
		TotalPage:   totalPages,
	}
}

// Paginate slices one page out of items in memory. Pages past the end
// yield an empty slice.
func Paginate[T any](items []T, page, pageSize int) ([]T, PageMeta) {
	meta := NewPageMeta(int64(len(items)), page, pageSize)

	start := (meta.CurrentPage - 1) * meta.PerPage
	if start >= len(items) {
		return []T{}, meta
	}
	end := min(start+meta.PerPage, len(items))

	return items[start:end], meta
}
