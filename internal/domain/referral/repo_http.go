package referral

import (
	"context"
	"net/url"

	"github.com/referral/referral/internal/platform/apiclient"
	"github.com/referral/referral/pkg/pagination"
)

const basePath = "/api/referrals"

type referralRepoHTTP struct {
	client *apiclient.Client
}

func NewRepo(client *apiclient.Client) Repository {
	return &referralRepoHTTP{client: client}
}

func (r *referralRepoHTTP) path(id string) string {
	return basePath + "/" + url.PathEscape(id)
}

func (r *referralRepoHTTP) List(ctx context.Context, params url.Values) ([]*Referral, pagination.Meta, error) {
	return apiclient.List[*Referral](ctx, r.client, basePath, params, "referrals")
}

func (r *referralRepoHTTP) GetByID(ctx context.Context, id string) (*Referral, error) {
	return apiclient.Get[Referral](ctx, r.client, r.path(id), "referral")
}

func (r *referralRepoHTTP) Create(ctx context.Context, ref *Referral) error {
	out, err := apiclient.Create[Referral](ctx, r.client, basePath, "referral", ref)
	if err == nil && out != nil {
		*ref = *out
	}
	return err
}

func (r *referralRepoHTTP) Update(ctx context.Context, ref *Referral) error {
	out, err := apiclient.Update[Referral](ctx, r.client, r.path(ref.ID), "referral", ref)
	if err == nil && out != nil {
		*ref = *out
	}
	return err
}

func (r *referralRepoHTTP) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.path(id))
}

type statusUpdate struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (r *referralRepoHTTP) UpdateStatus(ctx context.Context, id, status, notes string) (*Referral, error) {
	return apiclient.Patch[Referral](ctx, r.client, r.path(id)+"/status", "referral", statusUpdate{Status: status, Notes: notes})
}
