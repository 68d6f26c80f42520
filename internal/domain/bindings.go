package domain

import "sync"

// Refresher is anything that can re-issue its current query, normally a
// *collection.Controller.
type Refresher interface {
	Refresh()
}

// Bindings is the set of controllers showing an entity. Services embed it
// and call RefreshAll after a mutation succeeds.
type Bindings struct {
	mu    sync.Mutex
	next  uint64
	bound map[uint64]Refresher
}

// Bind registers r and returns a function that removes it again.
func (b *Bindings) Bind(r Refresher) (unbind func()) {
	b.mu.Lock()
	if b.bound == nil {
		b.bound = make(map[uint64]Refresher)
	}
	b.next++
	id := b.next
	b.bound[id] = r
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.bound, id)
		b.mu.Unlock()
	}
}

// RefreshAll refreshes every bound controller.
func (b *Bindings) RefreshAll() {
	b.mu.Lock()
	rs := make([]Refresher, 0, len(b.bound))
	for _, r := range b.bound {
		rs = append(rs, r)
	}
	b.mu.Unlock()

	for _, r := range rs {
		r.Refresh()
	}
}

// Len returns the number of bound controllers.
func (b *Bindings) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bound)
}
