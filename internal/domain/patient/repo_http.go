package patient

import (
	"context"
	"net/url"

	"github.com/referral/referral/internal/platform/apiclient"
	"github.com/referral/referral/pkg/pagination"
)

const basePath = "/api/patients"

type patientRepoHTTP struct {
	client *apiclient.Client
}

func NewRepo(client *apiclient.Client) Repository {
	return &patientRepoHTTP{client: client}
}

func (r *patientRepoHTTP) path(id string) string {
	return basePath + "/" + url.PathEscape(id)
}

func (r *patientRepoHTTP) List(ctx context.Context, params url.Values) ([]*Patient, pagination.Meta, error) {
	return apiclient.List[*Patient](ctx, r.client, basePath, params, "patients")
}

func (r *patientRepoHTTP) GetByID(ctx context.Context, id string) (*Patient, error) {
	return apiclient.Get[Patient](ctx, r.client, r.path(id), "patient")
}

func (r *patientRepoHTTP) Create(ctx context.Context, p *Patient) error {
	out, err := apiclient.Create[Patient](ctx, r.client, basePath, "patient", p)
	if err == nil && out != nil {
		*p = *out
	}
	return err
}

func (r *patientRepoHTTP) Update(ctx context.Context, p *Patient) error {
	out, err := apiclient.Update[Patient](ctx, r.client, r.path(p.ID), "patient", p)
	if err == nil && out != nil {
		*p = *out
	}
	return err
}

func (r *patientRepoHTTP) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.path(id))
}
