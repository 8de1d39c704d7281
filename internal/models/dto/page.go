package dto

import "math"

// ListParams is the pageNum/pageSize style paging sent as query parameters.
type ListParams struct {
	PageNum       int    `json:"pageNum"`
	PageSize      int    `json:"pageSize"`
	OrderByColumn string `json:"orderByColumn,omitempty"`
	IsAsc         string `json:"isAsc,omitempty"`
}

// Page is the current/size style paging sent inside a JSON body.
type Page struct {
	Current int `json:"current"`
	Size    int `json:"size"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 200
	// MaxPageNum keeps (Current-1)*Size within int range for every allowed size.
	MaxPageNum = math.MaxInt / MaxPageSize
)

// Normalize clamps paging to sane bounds.
func (p Page) Normalize() Page {
	if p.Current < 1 {
		p.Current = 1
	}
	if p.Current > MaxPageNum {
		p.Current = MaxPageNum
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the zero-based index of the first row of the page.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Current - 1) * p.Size
}

// Page converts query-style paging to body-style paging.
func (l ListParams) Page() Page {
	return Page{Current: l.PageNum, Size: l.PageSize}.Normalize()
}
