// Package collection implements the remote collection controller shared by
// every list tab of the referral console: query state, debounced search,
// cancellable fetches with stale-response discard, and immutable state
// snapshots for subscribers.
package collection

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/referral/referral/pkg/pagination"
)

// AllValue is the filter sentinel meaning "no constraint". It is never sent
// to the backend.
const AllValue = "all"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps anything other than "desc" to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort orders a collection by one field.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Query is the full set of parameters that determines the next fetch.
type Query struct {
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Sort     *Sort             `json:"sort,omitempty"`
	Search   string            `json:"search"`
	Filters  map[string]string `json:"filters"`
}

func (q Query) clone() Query {
	out := q
	out.Filters = make(map[string]string, len(q.Filters))
	for k, v := range q.Filters {
		out.Filters[k] = v
	}
	if q.Sort != nil {
		s := *q.Sort
		out.Sort = &s
	}
	return out
}

// Values encodes the query as backend query-string parameters: page, limit,
// every filter, search when present, and sortBy/sortOrder when sorted.
func (q Query) Values() url.Values {
	v := pagination.Params{Page: q.Page, Limit: q.PageSize}.Normalize().Values()
	for k, val := range q.Filters {
		if val == "" || val == AllValue {
			continue
		}
		v.Set(k, val)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.Sort != nil && q.Sort.Field != "" {
		v.Set("sortBy", q.Sort.Field)
		v.Set("sortOrder", string(q.Sort.Direction))
	}
	return v
}

// Page is one page of a remote collection. It replaces the previous page
// as a whole; pages are never merged.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
}

// NewPage builds a Page from backend pagination metadata.
func NewPage[T any](items []T, meta pagination.Meta) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		CurrentPage: meta.Current,
		TotalPages:  meta.Pages,
		TotalCount:  meta.Total,
	}
}

// ErrorInfo describes the last failed fetch. Cause keeps the underlying
// error for logging; it is not serialized.
type ErrorInfo struct {
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *ErrorInfo) Error() string { return e.Message }

func (e *ErrorInfo) Unwrap() error { return e.Cause }

func newErrorInfo(err error) *ErrorInfo {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return &ErrorInfo{Message: msg, Cause: err}
}

// State is an immutable snapshot of a controller. Version increases by one
// on every published transition.
type State[T any] struct {
	Version uint64     `json:"version"`
	Query   Query      `json:"query"`
	Result  *Page[T]   `json:"result"`
	Loading bool       `json:"loading"`
	Error   *ErrorInfo `json:"error"`
}

// Fetch loads one page for q. The context is cancelled when the query is
// superseded or the controller is disposed.
type Fetch[T any] func(ctx context.Context, q Query) (Page[T], error)
