package doctor

import (
	"time"

	"github.com/referral/referral/internal/domain"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusOnLeave  = "on_leave"
)

// Doctor maps to a doctor record. Hospital holds the id of the employing
// hospital.
type Doctor struct {
	ID             string    `json:"_id,omitempty"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Specialization string    `json:"specialization"`
	Hospital       string    `json:"hospital,omitempty"`
	LicenseNumber  string    `json:"licenseNumber,omitempty"`
	Status         string    `json:"status,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// FullName returns "First Last".
func (d *Doctor) FullName() string {
	if d.LastName == "" {
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}

func (d *Doctor) Validate() error {
	if err := domain.Require(
		domain.Field{Name: "firstName", Value: d.FirstName},
		domain.Field{Name: "lastName", Value: d.LastName},
		domain.Field{Name: "email", Value: d.Email},
		domain.Field{Name: "specialization", Value: d.Specialization},
	); err != nil {
		return err
	}
	return domain.OneOf("status", d.Status, StatusActive, StatusInactive, StatusOnLeave)
}
