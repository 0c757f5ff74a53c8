package pagestate

// Pagination tracks a 0-based page index. DisplayPage is the only 1-based value.
type Pagination struct {
	Page       int
	PageSize   int
	TotalCount int
}

// NewPagination returns page 0 of an empty result.
func NewPagination(pageSize int) Pagination {
	if pageSize <= 0 {
		panic("pagestate: page size must be positive")
	}
	return Pagination{PageSize: pageSize}
}

// TotalPages is ceil(TotalCount / PageSize).
func (p Pagination) TotalPages() int {
	if p.TotalCount <= 0 {
		return 0
	}
	return (p.TotalCount + p.PageSize - 1) / p.PageSize
}

// Clamp bounds page to [0, TotalPages-1]. Navigation never errors.
func (p Pagination) Clamp(page int) int {
	last := p.TotalPages() - 1
	if page > last {
		page = last
	}
	if page < 0 {
		page = 0
	}
	return page
}

// To returns p moved to the clamped page.
func (p Pagination) To(page int) Pagination {
	p.Page = p.Clamp(page)
	return p
}

// WithTotal records a fresh total and re-clamps the current page.
func (p Pagination) WithTotal(total int) Pagination {
	p.TotalCount = total
	p.Page = p.Clamp(p.Page)
	return p
}

func (p Pagination) HasNext() bool { return p.Page+1 < p.TotalPages() }
func (p Pagination) HasPrev() bool { return p.Page > 0 }

// DisplayPage is the 1-based page number shown to users.
func (p Pagination) DisplayPage() int { return p.Page + 1 }

// Offset is the first row index of the current page.
func (p Pagination) Offset() int { return p.Page * p.PageSize }
