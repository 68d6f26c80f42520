package dashboard

import (
	"context"
	"encoding/json"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/domain"
)

// Tab is one list view of a dashboard: a collection controller bound to an
// entity service. Records cross the boundary as JSON values.
type Tab interface {
	Name() string
	ReadOnly() bool
	Snapshot() interface{}
	Version() uint64
	SetFilter(key, value string)
	SetSearch(text string)
	SetPage(n int)
	SetSort(field string, dir collection.Direction)
	Refresh()
	// Subscribe calls fn with every published snapshot until unsubscribe.
	Subscribe(fn func(state interface{})) (unsubscribe func())

	Get(ctx context.Context, id string) (interface{}, error)
	Create(ctx context.Context, body []byte) (interface{}, error)
	Update(ctx context.Context, id string, body []byte) (interface{}, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status, notes string) (interface{}, error)

	Close()
}

type statusFunc func(ctx context.Context, id, status, notes string) (interface{}, error)

type tab[T any] struct {
	spec   tabSpec
	ctl    *collection.Controller[*T]
	svc    Service[T]
	status statusFunc
	unbind func()
}

func newTab[T any](spec tabSpec, svc Service[T], opts []collection.Option) *tab[T] {
	opts = append(opts,
		collection.WithInitialFilters(spec.filters),
		collection.WithScope(spec.scope),
	)
	t := &tab[T]{
		spec: spec,
		ctl:  collection.New[*T](svc.Fetch, opts...),
		svc:  svc,
	}
	t.unbind = svc.Bind(t.ctl)
	return t
}

func (t *tab[T]) Name() string   { return t.spec.name }
func (t *tab[T]) ReadOnly() bool { return t.spec.readOnly }

func (t *tab[T]) Snapshot() interface{} { return t.ctl.Snapshot() }
func (t *tab[T]) Version() uint64       { return t.ctl.Snapshot().Version }

func (t *tab[T]) SetFilter(key, value string) { t.ctl.SetFilter(key, value) }
func (t *tab[T]) SetSearch(text string)       { t.ctl.SetSearch(text) }
func (t *tab[T]) SetPage(n int)               { t.ctl.SetPage(n) }
func (t *tab[T]) SetSort(field string, dir collection.Direction) {
	t.ctl.SetSort(field, dir)
}
func (t *tab[T]) Refresh() { t.ctl.Refresh() }

func (t *tab[T]) Subscribe(fn func(interface{})) func() {
	return t.ctl.Subscribe(func(s collection.State[*T]) { fn(s) })
}

func (t *tab[T]) Get(ctx context.Context, id string) (interface{}, error) {
	return t.svc.Get(ctx, id)
}

func (t *tab[T]) Create(ctx context.Context, body []byte) (interface{}, error) {
	if t.spec.readOnly {
		return nil, ErrReadOnly
	}
	item, err := t.decode(body)
	if err != nil {
		return nil, err
	}
	if err := t.svc.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (t *tab[T]) Update(ctx context.Context, id string, body []byte) (interface{}, error) {
	if t.spec.readOnly {
		return nil, ErrReadOnly
	}
	item, err := t.decode(body)
	if err != nil {
		return nil, err
	}
	if err := t.svc.Update(ctx, id, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (t *tab[T]) Delete(ctx context.Context, id string) error {
	if t.spec.readOnly {
		return ErrReadOnly
	}
	return t.svc.Delete(ctx, id)
}

func (t *tab[T]) UpdateStatus(ctx context.Context, id, status, notes string) (interface{}, error) {
	if t.status == nil {
		return nil, ErrUnsupported
	}
	if t.spec.readOnly {
		return nil, ErrReadOnly
	}
	return t.status(ctx, id, status, notes)
}

// decode reads a record from body and stamps the tab scope onto it, so a
// hospital admin cannot file a doctor under another hospital.
func (t *tab[T]) decode(body []byte) (*T, error) {
	fields := map[string]interface{}{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, domain.ValidationError{Msg: "request body must be a JSON object", Err: err}
	}
	for k, v := range t.spec.scope {
		fields[k] = v
	}
	stamped, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	item := new(T)
	if err := json.Unmarshal(stamped, item); err != nil {
		return nil, domain.ValidationError{Msg: "request body does not match the record", Err: err}
	}
	return item, nil
}

func (t *tab[T]) Close() {
	t.unbind()
	t.ctl.Dispose()
}
