package referral

import (
	"time"

	"github.com/referral/referral/internal/domain"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var statuses = []string{StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled}

// Referral moves a patient from one hospital to another. Patient,
// ReferringDoctor, FromHospital and ToHospital hold record ids.
type Referral struct {
	ID              string    `json:"_id,omitempty"`
	Patient         string    `json:"patient"`
	ReferringDoctor string    `json:"referringDoctor,omitempty"`
	FromHospital    string    `json:"fromHospital"`
	ToHospital      string    `json:"toHospital"`
	Reason          string    `json:"reason"`
	Priority        string    `json:"priority,omitempty"`
	Status          string    `json:"status,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

func (r *Referral) Validate() error {
	if err := domain.Require(
		domain.Field{Name: "patient", Value: r.Patient},
		domain.Field{Name: "fromHospital", Value: r.FromHospital},
		domain.Field{Name: "toHospital", Value: r.ToHospital},
		domain.Field{Name: "reason", Value: r.Reason},
	); err != nil {
		return err
	}
	if err := domain.OneOf("priority", r.Priority, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent); err != nil {
		return err
	}
	return domain.OneOf("status", r.Status, statuses...)
}

// Terminal reports whether the status admits no further transition.
func Terminal(status string) bool {
	switch status {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
