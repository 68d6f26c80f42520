package referral

import (
	"context"
	"net/url"

	"github.com/referral/referral/pkg/pagination"
)

// Repository is the remote store of referrals.
type Repository interface {
	List(ctx context.Context, params url.Values) ([]*Referral, pagination.Meta, error)
	GetByID(ctx context.Context, id string) (*Referral, error)
	Create(ctx context.Context, r *Referral) error
	Update(ctx context.Context, r *Referral) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status, notes string) (*Referral, error)
}
