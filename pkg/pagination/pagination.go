package pagination

import (
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds the page/limit pair sent to the backend.
type Params struct {
	Page  int
	Limit int
}

// Normalize returns p with defaults applied and the limit capped at MaxLimit.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Values encodes the params as the page and limit query parameters.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

// Offset returns the zero-based index of the first item on the page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination block the backend returns with every list.
type Meta struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

// NewMeta builds a Meta for a page of a collection holding total items.
func NewMeta(page, limit, total int) Meta {
	return Meta{Current: page, Pages: TotalPages(total, limit), Total: total}
}

// HasNext returns true if there are pages after the current one.
func (m Meta) HasNext() bool {
	return m.Current < m.Pages
}

// HasPrevious returns true if the current page is not the first.
func (m Meta) HasPrevious() bool {
	return m.Current > 1
}

// TotalPages returns ceil(total/limit), or 0 for an empty collection.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Clamp bounds page to [1, pages]. A non-positive pages value only applies
// the lower bound.
func Clamp(page, pages int) int {
	if pages > 0 && page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	return page
}
