package doctor

import (
	"context"
	"net/url"

	"github.com/referral/referral/internal/platform/apiclient"
	"github.com/referral/referral/pkg/pagination"
)

const basePath = "/api/doctors"

type doctorRepoHTTP struct {
	client *apiclient.Client
}

func NewRepo(client *apiclient.Client) Repository {
	return &doctorRepoHTTP{client: client}
}

func (r *doctorRepoHTTP) path(id string) string {
	return basePath + "/" + url.PathEscape(id)
}

func (r *doctorRepoHTTP) List(ctx context.Context, params url.Values) ([]*Doctor, pagination.Meta, error) {
	return apiclient.List[*Doctor](ctx, r.client, basePath, params, "doctors")
}

func (r *doctorRepoHTTP) GetByID(ctx context.Context, id string) (*Doctor, error) {
	return apiclient.Get[Doctor](ctx, r.client, r.path(id), "doctor")
}

func (r *doctorRepoHTTP) Create(ctx context.Context, d *Doctor) error {
	out, err := apiclient.Create[Doctor](ctx, r.client, basePath, "doctor", d)
	if err == nil && out != nil {
		*d = *out
	}
	return err
}

func (r *doctorRepoHTTP) Update(ctx context.Context, d *Doctor) error {
	out, err := apiclient.Update[Doctor](ctx, r.client, r.path(d.ID), "doctor", d)
	if err == nil && out != nil {
		*d = *out
	}
	return err
}

func (r *doctorRepoHTTP) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.path(id))
}
