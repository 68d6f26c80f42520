package doctor

import (
	"context"
	"net/url"

	"github.com/referral/referral/pkg/pagination"
)

// Repository is the remote store of doctors.
type Repository interface {
	List(ctx context.Context, params url.Values) ([]*Doctor, pagination.Meta, error)
	GetByID(ctx context.Context, id string) (*Doctor, error)
	Create(ctx context.Context, d *Doctor) error
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id string) error
}
