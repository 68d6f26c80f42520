package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/dashboard"
	"github.com/referral/referral/internal/domain/doctor"
	"github.com/referral/referral/internal/domain/hospital"
	"github.com/referral/referral/internal/domain/patient"
	"github.com/referral/referral/internal/domain/referral"
)

// view renders one entity as table rows.
type view[T any] struct {
	headers []string
	row     func(*T) []string
}

var hospitalView = view[hospital.Hospital]{
	headers: []string{"ID", "Name", "City", "Email", "Phone", "Status"},
	row: func(h *hospital.Hospital) []string {
		return []string{h.ID, h.Name, h.City, h.Email, h.Phone, h.Status}
	},
}

var doctorView = view[doctor.Doctor]{
	headers: []string{"ID", "Name", "Specialization", "Hospital", "Email", "Status"},
	row: func(d *doctor.Doctor) []string {
		return []string{d.ID, d.FullName(), d.Specialization, d.Hospital, d.Email, d.Status}
	},
}

var patientView = view[patient.Patient]{
	headers: []string{"ID", "Name", "Gender", "Born", "Phone", "Status"},
	row: func(p *patient.Patient) []string {
		born := p.DateOfBirth
		if t, ok := p.Birthdate(); ok {
			born = t.Format("2006-01-02")
		}
		return []string{p.ID, p.FullName(), p.Gender, born, p.Phone, p.Status}
	},
}

var referralView = view[referral.Referral]{
	headers: []string{"ID", "Patient", "From", "To", "Priority", "Status", "Reason"},
	row: func(r *referral.Referral) []string {
		return []string{r.ID, r.Patient, r.FromHospital, r.ToHospital, r.Priority, r.Status, r.Reason}
	},
}

func (v view[T]) render(w io.Writer, st collection.State[*T]) {
	if st.Error != nil {
		fmt.Fprintf(w, "error: %s (type \"refresh\" to retry)\n", st.Error.Message)
	}
	if st.Result == nil {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(v.headers)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, item := range st.Result.Items {
		table.Append(v.row(item))
	}
	table.Render()

	fmt.Fprintf(w, "page %d of %d, %d total", st.Result.CurrentPage, max(st.Result.TotalPages, 1), st.Result.TotalCount)
	if q := describeQuery(st.Query); q != "" {
		fmt.Fprintf(w, " [%s]", q)
	}
	fmt.Fprintln(w)
}

func describeQuery(q collection.Query) string {
	var parts []string
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("search=%q", q.Search))
	}
	for _, k := range sortedKeys(q.Filters) {
		if v := q.Filters[k]; v != collection.AllValue {
			parts = append(parts, k+"="+v)
		}
	}
	if q.Sort != nil {
		parts = append(parts, "sort="+q.Sort.Field+":"+string(q.Sort.Direction))
	}
	return strings.Join(parts, " ")
}

// open dispatches an entity name to a console over the matching service.
func open(entity string, svcs dashboard.Services, w io.Writer, opts []collection.Option) (runner, error) {
	switch strings.ToLower(strings.TrimSpace(entity)) {
	case "hospital", "hospitals":
		return newConsole[hospital.Hospital](svcs.Hospitals, hospitalView, w, opts), nil
	case "doctor", "doctors":
		return newConsole[doctor.Doctor](svcs.Doctors, doctorView, w, opts), nil
	case "patient", "patients":
		return newConsole[patient.Patient](svcs.Patients, patientView, w, opts), nil
	case "referral", "referrals":
		return newConsole[referral.Referral](svcs.Referrals, referralView, w, opts), nil
	}
	return nil, fmt.Errorf("unknown entity %q (want hospitals, doctors, patients or referrals)", entity)
}
