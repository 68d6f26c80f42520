package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/domain"
	"github.com/referral/referral/internal/domain/doctor"
	"github.com/referral/referral/internal/domain/hospital"
	"github.com/referral/referral/internal/domain/patient"
	"github.com/referral/referral/internal/domain/referral"
	"github.com/referral/referral/pkg/pagination"
)

// fakeService records every query and serves an empty page.
type fakeService[T any] struct {
	domain.Bindings
	mu      sync.Mutex
	queries []collection.Query
	created []*T
	deleted []string
}

func (f *fakeService[T]) Fetch(_ context.Context, q collection.Query) (collection.Page[*T], error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return collection.Page[*T]{Items: []*T{}, CurrentPage: q.Page, TotalPages: 1}, nil
}

func (f *fakeService[T]) Get(_ context.Context, id string) (*T, error) {
	return nil, fmt.Errorf("%s not found", id)
}

func (f *fakeService[T]) Create(_ context.Context, item *T) error {
	f.mu.Lock()
	f.created = append(f.created, item)
	f.mu.Unlock()
	f.RefreshAll()
	return nil
}

func (f *fakeService[T]) Update(_ context.Context, _ string, _ *T) error { return nil }

func (f *fakeService[T]) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeService[T]) lastQuery(t *testing.T) collection.Query {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		n := len(f.queries)
		var q collection.Query
		if n > 0 {
			q = f.queries[n-1]
		}
		f.mu.Unlock()
		if n > 0 {
			return q
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no query issued")
	return collection.Query{}
}

func (f *fakeService[T]) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type referralRepo struct {
	mu     sync.Mutex
	params []url.Values
}

func (r *referralRepo) List(_ context.Context, params url.Values) ([]*referral.Referral, pagination.Meta, error) {
	r.mu.Lock()
	r.params = append(r.params, params)
	r.mu.Unlock()
	return nil, pagination.Meta{Current: 1}, nil
}

func (r *referralRepo) last(t *testing.T) url.Values {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		n := len(r.params)
		var p url.Values
		if n > 0 {
			p = r.params[n-1]
		}
		r.mu.Unlock()
		if n > 0 {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no referral query issued")
	return nil
}

func (r *referralRepo) GetByID(_ context.Context, id string) (*referral.Referral, error) {
	if id == "" {
		return nil, errors.New("not found")
	}
	return &referral.Referral{ID: id, Status: referral.StatusPending}, nil
}
func (r *referralRepo) Create(context.Context, *referral.Referral) error { return nil }
func (r *referralRepo) Update(context.Context, *referral.Referral) error { return nil }
func (r *referralRepo) Delete(context.Context, string) error             { return nil }
func (r *referralRepo) UpdateStatus(_ context.Context, id, status, _ string) (*referral.Referral, error) {
	return &referral.Referral{ID: id, Status: status}, nil
}

type fakes struct {
	hospitals *fakeService[hospital.Hospital]
	doctors   *fakeService[doctor.Doctor]
	patients  *fakeService[patient.Patient]
	referrals *referralRepo
}

func newFakes() (fakes, Services) {
	f := fakes{
		hospitals: &fakeService[hospital.Hospital]{},
		doctors:   &fakeService[doctor.Doctor]{},
		patients:  &fakeService[patient.Patient]{},
		referrals: &referralRepo{},
	}
	return f, Services{
		Hospitals: f.hospitals,
		Doctors:   f.doctors,
		Patients:  f.patients,
		Referrals: referral.NewService(f.referrals),
	}
}

func testOptions() Options {
	return Options{PageSize: 10, SearchDebounce: durationPtr(10 * time.Millisecond), Logger: zerolog.Nop()}
}

type hospitalT = hospital.Hospital

func durationPtr(d time.Duration) *time.Duration { return &d }
