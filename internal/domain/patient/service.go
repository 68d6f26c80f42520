package patient

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

func (s *Service) Fetch(ctx context.Context, q collection.Query) (collection.Page[*Patient], error) {
	items, meta, err := s.repo.List(ctx, q.Values())
	if err != nil {
		return collection.Page[*Patient]{}, fmt.Errorf("list patients: %w", err)
	}
	return collection.NewPage(items, meta), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	if id == "" {
		return nil, domain.ValidationError{Field: "id", Msg: "is required"}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	s.RefreshAll()
	return nil
}

func (s *Service) Update(ctx context.Context, id string, p *Patient) error {
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	p.ID = id
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("update patient %s: %w", id, err)
	}
	s.RefreshAll()
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete patient %s: %w", id, err)
	}
	s.RefreshAll()
	return nil
}
