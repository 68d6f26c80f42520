package patient

import (
	"context"
	"net/url"

	"github.com/referral/referral/pkg/pagination"
)

// Repository is the remote store of patients.
type Repository interface {
	List(ctx context.Context, params url.Values) ([]*Patient, pagination.Meta, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id string) error
}
