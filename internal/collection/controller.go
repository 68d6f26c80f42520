package collection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/referral/referral/pkg/pagination"
)

type subscriber[T any] struct {
	id uint64
	fn func(State[T])
}

// Controller owns the query state of one remote collection and is the single
// source of truth for what page is shown, and whether it is loading or failed.
//
// Every trigger (SetFilter, debounced SetSearch, SetPage, SetSort, Refresh)
// issues a new request token; a response is applied only while its token is
// still current, so the last-issued query always wins regardless of arrival
// order.
//
// Subscribers are called synchronously, in version order, from whichever
// goroutine caused the transition. They must not block and must not call
// back into the controller.
type Controller[T any] struct {
	fetch    Fetch[T]
	debounce time.Duration
	scope    map[string]string
	logger   zerolog.Logger
	parent   context.Context

	mu        sync.Mutex
	state     State[T]
	token     uint64
	cancel    context.CancelFunc
	timer     *time.Timer
	searchSeq uint64
	pending   string
	disposed  bool

	// pubMu is taken while mu is still held so deliveries keep transition order.
	pubMu   sync.Mutex
	subs    []subscriber[T]
	nextSub uint64
}

// New creates a controller bound to fetch. No query is issued until the
// first trigger; call Refresh to load the first page.
func New[T any](fetch Fetch[T], opts ...Option) *Controller[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller[T]{
		fetch:    fetch,
		debounce: o.debounce,
		scope:    o.scope,
		logger:   o.logger,
		parent:   o.ctx,
		state: State[T]{
			Query: Query{
				Page:     1,
				PageSize: o.pageSize,
				Filters:  o.filters,
			},
		},
	}
}

// Snapshot returns the most recent state.
func (c *Controller[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every future snapshot and returns a function
// that removes it. Subscribing to a disposed controller is a no-op.
func (c *Controller[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	c.mu.Lock()
	disposed := c.disposed
	c.mu.Unlock()
	if disposed {
		return func() {}
	}

	c.pubMu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})
	c.pubMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.pubMu.Lock()
			defer c.pubMu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// SetFilter sets one structured filter, resets to page 1 and queries
// immediately. An empty value is stored as AllValue. Scope keys cannot be
// overridden.
func (c *Controller[T]) SetFilter(key, value string) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	if _, scoped := c.scope[key]; scoped {
		c.mu.Unlock()
		c.logger.Debug().Str("filter", key).Msg("ignoring change to scoped filter")
		return
	}
	if value == "" {
		value = AllValue
	}
	q := c.state.Query.clone()
	q.Filters[key] = value
	q.Page = 1
	c.state.Query = q
	c.issueLocked()
	c.unlockAndPublish()
}

// SetSearch records the search text and queries once no further call has
// arrived for the debounce interval. Each call replaces the pending one.
func (c *Controller[T]) SetSearch(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.pending = text
	if c.timer != nil {
		c.timer.Stop()
	}
	c.searchSeq++
	seq := c.searchSeq
	c.timer = time.AfterFunc(c.debounce, func() { c.fireSearch(seq) })
}

func (c *Controller[T]) fireSearch(seq uint64) {
	c.mu.Lock()
	// A timer that fired while being replaced must not run.
	if c.disposed || seq != c.searchSeq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	q := c.state.Query.clone()
	q.Search = c.pending
	q.Page = 1
	c.state.Query = q
	c.issueLocked()
	c.unlockAndPublish()
}

// SetPage moves to page n, clamped to [1, totalPages] of the current result,
// and queries immediately. Other query fields are unchanged.
func (c *Controller[T]) SetPage(n int) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	pages := 0
	if c.state.Result != nil {
		pages = max(c.state.Result.TotalPages, 1)
	}
	q := c.state.Query.clone()
	q.Page = pagination.Clamp(n, pages)
	c.state.Query = q
	c.issueLocked()
	c.unlockAndPublish()
}

// SetSort orders by field, resets to page 1 and queries immediately. An
// empty field removes the sort.
func (c *Controller[T]) SetSort(field string, dir Direction) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	q := c.state.Query.clone()
	field = strings.TrimSpace(field)
	if field == "" {
		q.Sort = nil
	} else {
		if dir != Desc {
			dir = Asc
		}
		q.Sort = &Sort{Field: field, Direction: dir}
	}
	q.Page = 1
	c.state.Query = q
	c.issueLocked()
	c.unlockAndPublish()
}

// Refresh re-issues the current query unchanged. It is also the initial
// trigger after New, and the manual retry after a failure.
func (c *Controller[T]) Refresh() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.issueLocked()
	c.unlockAndPublish()
}

// Mutate runs op and, if it succeeds, refreshes the current page so the view
// resynchronizes with the server. The error from op is returned as is.
func (c *Controller[T]) Mutate(ctx context.Context, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}
	c.Refresh()
	return nil
}

// Dispose cancels any in-flight or pending query and detaches all
// subscribers. Once Dispose returns no subscriber is called again. It is
// safe to call more than once.
func (c *Controller[T]) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.token++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.pubMu.Lock()
	c.subs = nil
	c.pubMu.Unlock()
}

// outgoingLocked is the query handed to fetch: "all" filters and blank
// search removed, scope applied last.
func (c *Controller[T]) outgoingLocked() Query {
	q := c.state.Query.clone()
	for k, v := range q.Filters {
		if v == "" || v == AllValue {
			delete(q.Filters, k)
		}
	}
	for k, v := range c.scope {
		q.Filters[k] = v
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// issueLocked starts a new authoritative query. Caller holds mu.
func (c *Controller[T]) issueLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.token++
	tok := c.token
	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel

	c.state.Loading = true
	c.state.Error = nil

	go c.run(ctx, tok, c.outgoingLocked())
}

func (c *Controller[T]) run(ctx context.Context, tok uint64, q Query) {
	page, err := c.call(ctx, q)

	c.mu.Lock()
	if c.disposed || tok != c.token {
		c.mu.Unlock()
		c.logger.Debug().Uint64("token", tok).Int("page", q.Page).Msg("discarded superseded response")
		return
	}
	c.cancel()
	c.cancel = nil

	if err != nil {
		c.logger.Warn().Err(err).Int("page", q.Page).Str("search", q.Search).Msg("collection fetch failed")
		c.state.Error = newErrorInfo(err)
	} else {
		c.state.Result = &page
	}
	c.state.Loading = false
	c.unlockAndPublish()
}

// call invokes fetch, turning a panic into an error so it never escapes the
// fetch goroutine.
func (c *Controller[T]) call(ctx context.Context, q Query) (page Page[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	page, err = c.fetch(ctx, q)
	if err == nil && page.Items == nil {
		page.Items = []T{}
	}
	return page, err
}

// unlockAndPublish bumps the version, releases mu and delivers the new
// snapshot. Caller holds mu.
func (c *Controller[T]) unlockAndPublish() {
	c.state.Version++
	snap := c.state
	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()
	for _, s := range c.subs {
		s.fn(snap)
	}
}
