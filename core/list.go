package core

// Status filters understood by all admin list views. Each value maps to a fixed
// predicate fragment in the storage layer; StatusAll adds no predicate.
const (
	StatusFilterPending   = "pending"
	StatusFilterApproved  = "approved"
	StatusFilterSuspended = "suspended"
	StatusFilterAll       = "all"
)

// DefaultPageSize is the fixed page size of the admin list views.
const DefaultPageSize = 20

// ListParams carries the filter/search/pagination input of a list view.
type ListParams struct {
	Status   string `query:"filter"`
	Search   string `query:"search"`
	Role     string `query:"role"`
	ParentID int    `query:"-"`
	Page     int    `query:"page"`
}

func (p *ListParams) Clean() {
	p.Status = CleanString(p.Status, true /* lower */)
	p.Search = CleanString(p.Search)
	p.Role = CleanString(p.Role, true /* lower */)
	if p.Status == "" {
		p.Status = StatusFilterAll
	}
	p.Page = ClampPage(p.Page)
}

// ClampPage clamps a requested page number to >= 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Page describes one page of a filtered list. NumPages = ceil(Total/Size).
type Page struct {
	Total    int `json:"total"`
	NumPages int `json:"num_pages"`
	Number   int `json:"page"`
	Size     int `json:"page_size"`
}

func NewPage(total, number, size int) Page {
	if size < 1 {
		size = DefaultPageSize
	}
	return Page{
		Total:    total,
		NumPages: (total + size - 1) / size,
		Number:   ClampPage(number),
		Size:     size,
	}
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
