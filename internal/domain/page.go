package domain

// DefaultPageSize applies when a list request does not name one.
const DefaultPageSize = 10

// ListParams selects a page and an optional category filter.
type ListParams struct {
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
	Type     string `json:"type,omitempty"`
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Page is one slice of a paginated list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// Paginate cuts items according to params. Out-of-range pages are empty.
func Paginate[T any](items []T, params ListParams) Page[T] {
	p := params.normalized()
	total := len(items)
	pages := (total + p.PageSize - 1) / p.PageSize
	if pages == 0 {
		pages = 1
	}
	start := (p.Page - 1) * p.PageSize
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	return Page[T]{
		Items:      append([]T{}, items[start:end]...),
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}
