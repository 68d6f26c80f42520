package hospital

import (
	"context"
	"net/url"

	"github.com/referral/referral/internal/platform/apiclient"
	"github.com/referral/referral/pkg/pagination"
)

const basePath = "/api/hospitals"

type hospitalRepoHTTP struct {
	client *apiclient.Client
}

// NewRepo returns a Repository backed by the referral REST API.
func NewRepo(client *apiclient.Client) Repository {
	return &hospitalRepoHTTP{client: client}
}

func (r *hospitalRepoHTTP) List(ctx context.Context, params url.Values) ([]*Hospital, pagination.Meta, error) {
	return apiclient.List[*Hospital](ctx, r.client, basePath, params, "hospitals")
}

func (r *hospitalRepoHTTP) GetByID(ctx context.Context, id string) (*Hospital, error) {
	return apiclient.Get[Hospital](ctx, r.client, basePath+"/"+url.PathEscape(id), "hospital")
}

func (r *hospitalRepoHTTP) Create(ctx context.Context, h *Hospital) error {
	out, err := apiclient.Create[Hospital](ctx, r.client, basePath, "hospital", h)
	if err != nil {
		return err
	}
	if out != nil {
		*h = *out
	}
	return nil
}

func (r *hospitalRepoHTTP) Update(ctx context.Context, h *Hospital) error {
	out, err := apiclient.Update[Hospital](ctx, r.client, basePath+"/"+url.PathEscape(h.ID), "hospital", h)
	if err != nil {
		return err
	}
	if out != nil {
		*h = *out
	}
	return nil
}

func (r *hospitalRepoHTTP) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, basePath+"/"+url.PathEscape(id))
}
