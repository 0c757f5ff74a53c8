package httpapi

// Page is the wire envelope for paginated lists. Page is 1-based on the wire.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// NewPage builds the envelope from a 0-based page index.
func NewPage[T any](items []T, pageIndex, pageSize, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 && total > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return Page[T]{Items: items, Page: pageIndex + 1, PageSize: pageSize, TotalCount: total, TotalPages: pages}
}

// PageIndex converts the wire page (1-based) to the internal index (0-based).
func PageIndex(wirePage int) int {
	if wirePage < 1 {
		return 0
	}
	return wirePage - 1
}
