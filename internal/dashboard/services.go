package dashboard

import (
	"context"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/domain"
	"github.com/referral/referral/internal/domain/doctor"
	"github.com/referral/referral/internal/domain/hospital"
	"github.com/referral/referral/internal/domain/patient"
	"github.com/referral/referral/internal/domain/referral"
	"github.com/referral/referral/internal/platform/apiclient"
)

// Service is what a tab needs from an entity service.
type Service[T any] interface {
	Fetch(ctx context.Context, q collection.Query) (collection.Page[*T], error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, id string, item *T) error
	Delete(ctx context.Context, id string) error
	Bind(r domain.Refresher) (unbind func())
}

// Services groups the entity services of one session.
type Services struct {
	Hospitals Service[hospital.Hospital]
	Doctors   Service[doctor.Doctor]
	Patients  Service[patient.Patient]
	Referrals *referral.Service
}

// NewServices wires every entity service to client.
func NewServices(client *apiclient.Client) Services {
	return Services{
		Hospitals: hospital.NewService(hospital.NewRepo(client)),
		Doctors:   doctor.NewService(doctor.NewRepo(client)),
		Patients:  patient.NewService(patient.NewRepo(client)),
		Referrals: referral.NewService(referral.NewRepo(client)),
	}
}
