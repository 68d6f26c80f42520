package collection

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/referral/referral/pkg/pagination"
)

const (
	DefaultPageSize       = 10
	DefaultSearchDebounce = 500 * time.Millisecond
)

type options struct {
	pageSize int
	debounce time.Duration
	filters  map[string]string
	scope    map[string]string
	logger   zerolog.Logger
	ctx      context.Context
}

func defaultOptions() options {
	return options{
		pageSize: DefaultPageSize,
		debounce: DefaultSearchDebounce,
		filters:  map[string]string{},
		scope:    map[string]string{},
		logger:   zerolog.Nop(),
		ctx:      context.Background(),
	}
}

// Option configures a Controller.
type Option func(*options)

// WithPageSize fixes the page size for the lifetime of the controller.
// Non-positive values are ignored and sizes above pagination.MaxLimit are
// capped, so the state always reports the limit actually sent.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > pagination.MaxLimit {
			n = pagination.MaxLimit
		}
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithSearchDebounce sets the quiet period before a search query fires.
// Zero fires on the next timer tick; negative values are treated as zero.
func WithSearchDebounce(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.debounce = d
	}
}

// WithInitialFilters sets the starting value of structured filters,
// e.g. {"status": "all"}.
func WithInitialFilters(filters map[string]string) Option {
	return func(o *options) {
		for k, v := range filters {
			if v == "" {
				v = AllValue
			}
			o.filters[k] = v
		}
	}
}

// WithScope adds constraints sent with every query that SetFilter cannot
// change, e.g. {"hospital": id} for a hospital admin.
func WithScope(scope map[string]string) Option {
	return func(o *options) {
		for k, v := range scope {
			if v != "" && v != AllValue {
				o.scope[k] = v
			}
		}
	}
}

// WithLogger attaches a logger for fetch failures and discarded responses.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithContext sets the parent of every fetch context. Values carried by ctx
// (request ids, credentials) reach the fetch function; cancelling ctx
// cancels in-flight fetches but does not dispose the controller.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}
