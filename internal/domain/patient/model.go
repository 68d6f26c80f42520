package patient

import (
	"time"

	"github.com/referral/referral/internal/domain"
)

const (
	StatusActive     = "active"
	StatusInactive   = "inactive"
	StatusDischarged = "discharged"

	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Patient maps to a patient record. DateOfBirth is kept as the backend sends
// it (ISO 8601 date or timestamp).
type Patient struct {
	ID          string    `json:"_id,omitempty"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone"`
	DateOfBirth string    `json:"dateOfBirth"`
	Gender      string    `json:"gender"`
	BloodGroup  string    `json:"bloodGroup,omitempty"`
	Address     string    `json:"address,omitempty"`
	Hospital    string    `json:"hospital,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

func (p *Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Birthdate parses DateOfBirth. ok is false when it is empty or unparsable.
func (p *Patient) Birthdate() (t time.Time, ok bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if parsed, err := time.Parse(layout, p.DateOfBirth); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func (p *Patient) Validate() error {
	if err := domain.Require(
		domain.Field{Name: "firstName", Value: p.FirstName},
		domain.Field{Name: "lastName", Value: p.LastName},
		domain.Field{Name: "phone", Value: p.Phone},
		domain.Field{Name: "dateOfBirth", Value: p.DateOfBirth},
		domain.Field{Name: "gender", Value: p.Gender},
	); err != nil {
		return err
	}
	if err := domain.OneOf("gender", p.Gender, GenderMale, GenderFemale, GenderOther); err != nil {
		return err
	}
	return domain.OneOf("status", p.Status, StatusActive, StatusInactive, StatusDischarged)
}
