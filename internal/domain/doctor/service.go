package doctor

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

func (s *Service) Fetch(ctx context.Context, q collection.Query) (collection.Page[*Doctor], error) {
	items, meta, err := s.repo.List(ctx, q.Values())
	if err != nil {
		return collection.Page[*Doctor]{}, fmt.Errorf("list doctors: %w", err)
	}
	return collection.NewPage(items, meta), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Doctor, error) {
	if id == "" {
		return nil, domain.ValidationError{Field: "id", Msg: "is required"}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, d *Doctor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	s.RefreshAll()
	return nil
}

func (s *Service) Update(ctx context.Context, id string, d *Doctor) error {
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	d.ID = id
	if err := d.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return fmt.Errorf("update doctor %s: %w", id, err)
	}
	s.RefreshAll()
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete doctor %s: %w", id, err)
	}
	s.RefreshAll()
	return nil
}
