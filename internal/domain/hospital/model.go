package hospital

import (
	"time"

	"github.com/referral/referral/internal/domain"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// Hospital is a hospital record as served by the backend.
type Hospital struct {
	ID                 string    `json:"_id,omitempty"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Address            string    `json:"address,omitempty"`
	City               string    `json:"city,omitempty"`
	State              string    `json:"state,omitempty"`
	RegistrationNumber string    `json:"registrationNumber,omitempty"`
	Status             string    `json:"status,omitempty"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
}

// Validate checks the fields the backend requires on create and update.
func (h *Hospital) Validate() error {
	if err := domain.Require(
		domain.Field{Name: "name", Value: h.Name},
		domain.Field{Name: "email", Value: h.Email},
		domain.Field{Name: "phone", Value: h.Phone},
	); err != nil {
		return err
	}
	return domain.OneOf("status", h.Status, StatusActive, StatusInactive, StatusPending)
}
