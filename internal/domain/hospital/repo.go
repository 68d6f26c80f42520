package hospital

import (
	"context"
	"net/url"

	"github.com/referral/referral/pkg/pagination"
)

// Repository is the remote store of hospitals.
type Repository interface {
	List(ctx context.Context, params url.Values) ([]*Hospital, pagination.Meta, error)
	GetByID(ctx context.Context, id string) (*Hospital, error)
	Create(ctx context.Context, h *Hospital) error
	Update(ctx context.Context, h *Hospital) error
	Delete(ctx context.Context, id string) error
}
