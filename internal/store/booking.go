package store

import (
	"context"

	"saude/backend/internal/domain"
)

// Directory answers read-only questions about the seeded catalog: clinics,
// doctors, patients and the weekly roster. Nothing here mutates.
type Directory interface {
	ListClinics(ctx context.Context) ([]domain.Clinic, error)
	ListSpecialties(ctx context.Context, clinic string) ([]string, error)
	ClinicExists(ctx context.Context, name string) (bool, error)
	SpecialtyExists(ctx context.Context, specialty string) (bool, error)
	SpecialtyOfferedAt(ctx context.Context, clinic, specialty string) (bool, error)
	DoctorWorksAt(ctx context.Context, clinic, nif string, weekday int) (bool, error)
	DoctorExists(ctx context.Context, nif string) (bool, error)
	PatientExists(ctx context.Context, ssn string) (bool, error)
}

// DoctorAgenda is the read set the availability walk runs against: the
// doctor's roster weekdays at one clinic and every booked future slot of
// that doctor across all clinics. It is snapshotted under a share lock so
// concurrent bookings cannot invalidate it mid-search.
type DoctorAgenda struct {
	NIF      string
	Name     string
	Weekdays map[int]bool
	Booked   map[domain.Slot]struct{}
}

// BookingRepository is the transactional surface of the appointment store.
type BookingRepository interface {
	Directory

	// DoctorAgendas snapshots, under a share lock on consulta, the agenda
	// of every doctor with the given specialty who has at least one
	// appointment on record at the clinic. Booked slots are collected from
	// fromDate (inclusive) onward.
	DoctorAgendas(ctx context.Context, clinic, specialty, fromDate string) ([]DoctorAgenda, error)

	AppointmentExists(ctx context.Context, key domain.AppointmentKey) (bool, error)
	DoctorBusy(ctx context.Context, nif, date, hour string) (bool, error)
	PatientBusy(ctx context.Context, ssn, date, hour string) (bool, error)

	// Book inserts a validated appointment under an exclusive lock,
	// allocating its id and health code. ErrConflict when the slot was
	// taken between validation and commit.
	Book(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	// Cancel removes the appointment matching key together with its
	// prescriptions and observations, all in one exclusive transaction.
	// ErrNotFound when no such appointment remains.
	Cancel(ctx context.Context, key domain.AppointmentKey) error
}
