package doctor

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/domain"
	"github.com/referral/referral/pkg/pagination"
)

type mockDoctorRepo struct {
	doctors    map[string]*Doctor
	lastParams url.Values
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[string]*Doctor)}
}

func (m *mockDoctorRepo) List(_ context.Context, params url.Values) ([]*Doctor, pagination.Meta, error) {
	m.lastParams = params
	var result []*Doctor
	for _, d := range m.doctors {
		if h := params.Get("hospital"); h != "" && d.Hospital != h {
			continue
		}
		result = append(result, d)
	}
	return result, pagination.NewMeta(1, 10, len(result)), nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id string) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = fmt.Sprintf("d%d", len(m.doctors)+1)
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id string) error {
	delete(m.doctors, id)
	return nil
}

type refreshCounter struct{ n int }

func (r *refreshCounter) Refresh() { r.n++ }

func validDoctor() *Doctor {
	return &Doctor{FirstName: "Asha", LastName: "Rao", Email: "asha@cg.org", Specialization: "Cardiology", Hospital: "h1"}
}

func TestService_CreateDoctor(t *testing.T) {
	svc := NewService(newMockDoctorRepo())
	rc := &refreshCounter{}
	svc.Bind(rc)

	d := validDoctor()
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == "" {
		t.Error("expected ID to be set")
	}
	if d.Status != StatusActive {
		t.Errorf("expected default status, got %q", d.Status)
	}
	if rc.n != 1 {
		t.Errorf("expected one refresh, got %d", rc.n)
	}
}

func TestService_CreateDoctor_RequiredFields(t *testing.T) {
	tests := []struct {
		field string
		edit  func(*Doctor)
	}{
		{"firstName", func(d *Doctor) { d.FirstName = "" }},
		{"lastName", func(d *Doctor) { d.LastName = "" }},
		{"email", func(d *Doctor) { d.Email = "" }},
		{"specialization", func(d *Doctor) { d.Specialization = "" }},
		{"status", func(d *Doctor) { d.Status = "retired" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			repo := newMockDoctorRepo()
			svc := NewService(repo)
			d := validDoctor()
			tt.edit(d)

			err := svc.Create(context.Background(), d)
			if !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(repo.doctors) != 0 {
				t.Error("invalid doctor must not be created")
			}
		})
	}
}

func TestService_UpdateDoctor(t *testing.T) {
	svc := NewService(newMockDoctorRepo())
	d := validDoctor()
	svc.Create(context.Background(), d)

	changed := validDoctor()
	changed.Status = StatusOnLeave
	if err := svc.Update(context.Background(), d.ID, changed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(context.Background(), d.ID)
	if got.Status != StatusOnLeave {
		t.Errorf("expected on_leave, got %q", got.Status)
	}
}

func TestService_DeleteDoctor(t *testing.T) {
	svc := NewService(newMockDoctorRepo())
	d := validDoctor()
	svc.Create(context.Background(), d)
	if err := svc.Delete(context.Background(), d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), d.ID); err == nil {
		t.Error("expected doctor to be gone")
	}
}

func TestService_FetchScopedByHospital(t *testing.T) {
	repo := newMockDoctorRepo()
	svc := NewService(repo)
	svc.Create(context.Background(), validDoctor())
	other := validDoctor()
	other.Hospital = "h2"
	svc.Create(context.Background(), other)

	page, err := svc.Fetch(context.Background(), collection.Query{Page: 1, PageSize: 10, Filters: map[string]string{"hospital": "h1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Hospital != "h1" {
		t.Errorf("expected only h1 doctors, got %+v", page.Items)
	}
}

func TestDoctor_FullName(t *testing.T) {
	if got := validDoctor().FullName(); got != "Asha Rao" {
		t.Errorf("expected Asha Rao, got %q", got)
	}
	if got := (&Doctor{FirstName: "Asha"}).FullName(); got != "Asha" {
		t.Errorf("expected Asha, got %q", got)
	}
}
