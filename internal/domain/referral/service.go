package referral

import (
	"context"
	"fmt"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/domain"
)

type Service struct {
	domain.Bindings
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Fetch(ctx context.Context, q collection.Query) (collection.Page[*Referral], error) {
	items, meta, err := s.repo.List(ctx, q.Values())
	if err != nil {
		return collection.Page[*Referral]{}, fmt.Errorf("list referrals: %w", err)
	}
	return collection.NewPage(items, meta), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Referral, error) {
	if id == "" {
		return nil, domain.ValidationError{Field: "id", Msg: "is required"}
	}
	return s.repo.GetByID(ctx, id)
}

// Create files a new referral. Priority defaults to medium and status to
// pending.
func (s *Service) Create(ctx context.Context, r *Referral) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.FromHospital == r.ToHospital {
		return domain.ValidationError{Field: "toHospital", Msg: "must differ from fromHospital"}
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	s.RefreshAll()
	return nil
}

func (s *Service) Update(ctx context.Context, id string, r *Referral) error {
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	r.ID = id
	if err := r.Validate(); err != nil {
		return err
	}
	if r.FromHospital == r.ToHospital {
		return domain.ValidationError{Field: "toHospital", Msg: "must differ from fromHospital"}
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return fmt.Errorf("update referral %s: %w", id, err)
	}
	s.RefreshAll()
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete referral %s: %w", id, err)
	}
	s.RefreshAll()
	return nil
}

// UpdateStatus moves a referral to status. A referral in a terminal status
// keeps it; other transitions are left to the backend.
func (s *Service) UpdateStatus(ctx context.Context, id, status, notes string) (*Referral, error) {
	if id == "" {
		return nil, domain.ValidationError{Field: "id", Msg: "is required"}
	}
	if err := domain.Require(domain.Field{Name: "status", Value: status}); err != nil {
		return nil, err
	}
	if err := domain.OneOf("status", status, statuses...); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load referral %s: %w", id, err)
	}
	if Terminal(current.Status) && current.Status != status {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("cannot leave terminal status %q", current.Status)}
	}
	r, err := s.repo.UpdateStatus(ctx, id, status, notes)
	if err != nil {
		return nil, fmt.Errorf("update referral %s status: %w", id, err)
	}
	s.RefreshAll()
	return r, nil
}
