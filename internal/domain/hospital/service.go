package hospital

import (
	"context"
	"fmt"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/domain"
)

// Service validates hospital mutations and keeps bound controllers in sync
// with the backend.
type Service struct {
	domain.Bindings
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Fetch loads one page of hospitals for a collection controller.
func (s *Service) Fetch(ctx context.Context, q collection.Query) (collection.Page[*Hospital], error) {
	items, meta, err := s.repo.List(ctx, q.Values())
	if err != nil {
		return collection.Page[*Hospital]{}, fmt.Errorf("list hospitals: %w", err)
	}
	return collection.NewPage(items, meta), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Hospital, error) {
	if id == "" {
		return nil, domain.ValidationError{Field: "id", Msg: "is required"}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, h *Hospital) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if h.Status == "" {
		h.Status = StatusActive
	}
	if err := s.repo.Create(ctx, h); err != nil {
		return fmt.Errorf("create hospital: %w", err)
	}
	s.RefreshAll()
	return nil
}

func (s *Service) Update(ctx context.Context, id string, h *Hospital) error {
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	h.ID = id
	if err := h.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, h); err != nil {
		return fmt.Errorf("update hospital %s: %w", id, err)
	}
	s.RefreshAll()
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "is required"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete hospital %s: %w", id, err)
	}
	s.RefreshAll()
	return nil
}
