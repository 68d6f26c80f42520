package dashboard

import (
	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/platform/auth"
)

const (
	TabHospitals = "hospitals"
	TabDoctors   = "doctors"
	TabPatients  = "patients"
	TabReferrals = "referrals"
)

type tabSpec struct {
	name     string
	filters  map[string]string
	scope    map[string]string
	readOnly bool
}

func statusFilter() map[string]string {
	return map[string]string{"status": collection.AllValue}
}

func referralFilters() map[string]string {
	return map[string]string{"status": collection.AllValue, "priority": collection.AllValue}
}

// layout returns the tabs a session sees, in display order.
func layout(s auth.Session) ([]tabSpec, error) {
	switch s.Role {
	case auth.RoleSuperAdmin:
		return []tabSpec{
			{name: TabHospitals, filters: statusFilter()},
			{name: TabDoctors, filters: statusFilter()},
			{name: TabPatients, filters: statusFilter()},
			{name: TabReferrals, filters: referralFilters()},
		}, nil

	case auth.RoleHospitalAdmin:
		if s.HospitalID == "" {
			return nil, ErrNoHospital
		}
		scope := map[string]string{"hospital": s.HospitalID}
		return []tabSpec{
			{name: TabDoctors, filters: statusFilter(), scope: scope},
			{name: TabPatients, filters: statusFilter(), scope: scope},
			{name: TabReferrals, filters: referralFilters(), scope: scope},
		}, nil

	case auth.RoleDoctor:
		if s.UserID == "" {
			return nil, ErrNoUser
		}
		// A doctor not attached to a hospital sees only their own patients.
		patients := map[string]string{"hospital": s.HospitalID}
		if s.HospitalID == "" {
			patients = map[string]string{"doctor": s.UserID}
		}
		return []tabSpec{
			{name: TabPatients, filters: statusFilter(), scope: patients},
			{name: TabReferrals, filters: referralFilters(), scope: map[string]string{"doctor": s.UserID}},
		}, nil

	case auth.RolePatient:
		if s.UserID == "" {
			return nil, ErrNoUser
		}
		return []tabSpec{
			{name: TabReferrals, filters: referralFilters(), scope: map[string]string{"patient": s.UserID}, readOnly: true},
		}, nil
	}
	return nil, ErrUnknownRole
}
