// Package dashboard assembles the role-scoped tabs a console session sees
// and owns their controllers for the lifetime of the view.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/domain/doctor"
	"github.com/referral/referral/internal/domain/hospital"
	"github.com/referral/referral/internal/domain/patient"
	"github.com/referral/referral/internal/domain/referral"
	"github.com/referral/referral/internal/platform/auth"
)

var (
	ErrUnknownRole = errors.New("unknown role")
	ErrNoHospital  = errors.New("hospital admin session has no hospital id")
	ErrNoUser      = errors.New("session has no user id")
	ErrReadOnly    = errors.New("tab is read-only for this role")
	ErrUnsupported = errors.New("operation not supported by this tab")
)

// Options tune every controller of a dashboard.
type Options struct {
	PageSize int
	// SearchDebounce is the search quiet period; nil selects
	// collection.DefaultSearchDebounce and zero fires immediately.
	SearchDebounce *time.Duration
	Logger         zerolog.Logger
	// Context is the parent of every fetch; its values (request id,
	// credentials) reach the backend client.
	Context context.Context
}

// Dashboard is the open view of one session.
type Dashboard struct {
	session auth.Session
	tabs    []Tab
	byName  map[string]Tab
	logger  zerolog.Logger

	closeOnce sync.Once
}

// Open builds one controller per tab of the session's role, binds each to
// its entity service and loads the first page of every tab.
func Open(s auth.Session, svcs Services, opts Options) (*Dashboard, error) {
	specs, err := layout(s)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.With().Str("user_id", s.UserID).Str("role", string(s.Role)).Logger()
	d := &Dashboard{
		session: s,
		byName:  make(map[string]Tab, len(specs)),
		logger:  logger,
	}

	for _, spec := range specs {
		copts := []collection.Option{
			collection.WithLogger(logger.With().Str("tab", spec.name).Logger()),
		}
		if opts.PageSize > 0 {
			copts = append(copts, collection.WithPageSize(opts.PageSize))
		}
		if opts.SearchDebounce != nil {
			copts = append(copts, collection.WithSearchDebounce(*opts.SearchDebounce))
		}
		if opts.Context != nil {
			copts = append(copts, collection.WithContext(opts.Context))
		}

		var t Tab
		switch spec.name {
		case TabHospitals:
			t = newTab[hospital.Hospital](spec, svcs.Hospitals, copts)
		case TabDoctors:
			t = newTab[doctor.Doctor](spec, svcs.Doctors, copts)
		case TabPatients:
			t = newTab[patient.Patient](spec, svcs.Patients, copts)
		case TabReferrals:
			rt := newTab[referral.Referral](spec, svcs.Referrals, copts)
			rt.status = func(ctx context.Context, id, status, notes string) (interface{}, error) {
				return svcs.Referrals.UpdateStatus(ctx, id, status, notes)
			}
			t = rt
		}
		d.tabs = append(d.tabs, t)
		d.byName[spec.name] = t
	}

	for _, t := range d.tabs {
		t.Refresh()
	}
	logger.Info().Strs("tabs", d.TabNames()).Msg("dashboard opened")
	return d, nil
}

func (d *Dashboard) Session() auth.Session { return d.session }

// Tabs returns the tabs in display order.
func (d *Dashboard) Tabs() []Tab { return d.tabs }

func (d *Dashboard) TabNames() []string {
	names := make([]string, len(d.tabs))
	for i, t := range d.tabs {
		names[i] = t.Name()
	}
	return names
}

func (d *Dashboard) Tab(name string) (Tab, bool) {
	t, ok := d.byName[name]
	return t, ok
}

// Subscribe calls fn with the tab name and snapshot for every transition of
// every tab.
func (d *Dashboard) Subscribe(fn func(tab string, state interface{})) (unsubscribe func()) {
	unsubs := make([]func(), 0, len(d.tabs))
	for _, t := range d.tabs {
		name := t.Name()
		unsubs = append(unsubs, t.Subscribe(func(s interface{}) { fn(name, s) }))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Close disposes every controller. It is safe to call more than once.
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		for _, t := range d.tabs {
			t.Close()
		}
		d.logger.Info().Msg("dashboard closed")
	})
}
