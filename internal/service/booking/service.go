package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"saude/backend/internal/domain"
	"saude/backend/internal/store"
)

// ValidationError carries every violation found for a request, in check
// order. Validation is collect-all: one bad request reports all of its
// problems at once.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

const (
	// slotsPerDoctor is how many upcoming free slots an availability
	// search reports per doctor.
	slotsPerDoctor = 3

	// maxSearchDays bounds the day-by-day walk so a doctor without a
	// roster at the clinic produces an empty agenda instead of an
	// unterminated search.
	maxSearchDays = 366
)

type Service struct {
	repo store.BookingRepository
	now  func() time.Time
}

func NewService(repo store.BookingRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Input is a booking or cancellation request in wire form. Date and Hour
// stay strings until validated; their shape is itself under validation.
type Input struct {
	Clinic  string
	Patient string
	Doctor  string
	Date    string
	Hour    string
}

func (s *Service) ListClinics(ctx context.Context) ([]domain.Clinic, error) {
	return s.repo.ListClinics(ctx)
}

func (s *Service) ListSpecialties(ctx context.Context, clinic string) ([]string, error) {
	clinic = strings.TrimSpace(clinic)
	ok, err := s.repo.ClinicExists(ctx, clinic)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.repo.ListSpecialties(ctx, clinic)
}

// FindAvailability returns, per doctor of the given specialty with at
// least one appointment on record at the clinic, the next free slots
// (up to slotsPerDoctor each) starting from now.
func (s *Service) FindAvailability(ctx context.Context, clinic, specialty string) (map[string][]domain.Slot, error) {
	clinic = strings.TrimSpace(clinic)
	specialty = strings.TrimSpace(specialty)

	var violations []string
	if clinic == "" {
		violations = append(violations, "clinic is required")
	} else if ok, err := s.repo.ClinicExists(ctx, clinic); err != nil {
		return nil, fmt.Errorf("clinic lookup: %w", err)
	} else if !ok {
		violations = append(violations, fmt.Sprintf("clinic %q does not exist", clinic))
	}

	if specialty == "" {
		violations = append(violations, "specialty is required")
	} else if ok, err := s.repo.SpecialtyExists(ctx, specialty); err != nil {
		return nil, fmt.Errorf("specialty lookup: %w", err)
	} else if !ok {
		violations = append(violations, fmt.Sprintf("specialty %q does not exist", specialty))
	}

	if len(violations) == 0 {
		ok, err := s.repo.SpecialtyOfferedAt(ctx, clinic, specialty)
		if err != nil {
			return nil, fmt.Errorf("specialty offering lookup: %w", err)
		}
		if !ok {
			violations = append(violations, fmt.Sprintf("specialty %q is not offered at clinic %q", specialty, clinic))
		}
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	from := s.now()
	agendas, err := s.repo.DoctorAgendas(ctx, clinic, specialty, from.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("agenda snapshot: %w", err)
	}

	out := make(map[string][]domain.Slot, len(agendas))
	for _, agenda := range agendas {
		out[agenda.Name] = freeSlots(agenda, from)
	}
	return out, nil
}

// freeSlots walks the slot grid forward from now, skipping days the doctor
// is not rostered at the clinic and slots already booked, until
// slotsPerDoctor slots are found or the search horizon is exhausted.
func freeSlots(agenda store.DoctorAgenda, from time.Time) []domain.Slot {
	slots := make([]domain.Slot, 0, slotsPerDoctor)
	if len(agenda.Weekdays) == 0 {
		return slots
	}

	horizon := from.AddDate(0, 0, maxSearchDays)
	t := domain.NextHalfHour(from)
	for len(slots) < slotsPerDoctor && t.Before(horizon) {
		if !agenda.Weekdays[domain.Weekday(t)] {
			t = domain.NextDayOpening(t)
			continue
		}
		slot := domain.Slot{Date: t.Format(domain.DateLayout), Hour: t.Format(domain.HourLayout)}
		if _, booked := agenda.Booked[slot]; !booked {
			slots = append(slots, slot)
		}
		t = domain.NextHalfHour(t)
	}
	return slots
}

// Book validates in and, if clean, persists the appointment. The returned
// appointment carries the allocated id and health code.
func (s *Service) Book(ctx context.Context, in Input) (domain.Appointment, error) {
	v, err := s.validate(ctx, in, false)
	if err != nil {
		return domain.Appointment{}, err
	}
	if len(v.violations) > 0 {
		return domain.Appointment{}, &ValidationError{Violations: v.violations}
	}

	return s.repo.Book(ctx, domain.Appointment{
		SSN:        v.ssn,
		NIF:        v.nif,
		ClinicName: v.clinic,
		Date:       v.date,
		Hour:       v.hour,
	})
}

// Cancel validates in against an existing appointment and removes it with
// its prescriptions and observations.
func (s *Service) Cancel(ctx context.Context, in Input) error {
	v, err := s.validate(ctx, in, true)
	if err != nil {
		return err
	}
	if len(v.violations) > 0 {
		return &ValidationError{Violations: v.violations}
	}

	return s.repo.Cancel(ctx, domain.AppointmentKey{
		ClinicName: v.clinic,
		SSN:        v.ssn,
		NIF:        v.nif,
		Date:       v.date,
		Hour:       v.hour,
	})
}

// validated holds normalized request fields plus the violation list.
// Fields are only meaningful when their corresponding ok flag was set.
type validated struct {
	violations []string

	clinic string
	ssn    string
	nif    string
	date   string
	hour   string
}

// validate runs every applicable check and collects all violations.
// Dependent checks are skipped while their inputs are malformed so one
// root cause does not fan out into spurious follow-on errors.
func (s *Service) validate(ctx context.Context, in Input, cancelling bool) (validated, error) {
	var v validated

	v.clinic = strings.TrimSpace(in.Clinic)
	clinicOK := false
	if v.clinic == "" {
		v.fail("clinic is required")
	} else if ok, err := s.repo.ClinicExists(ctx, v.clinic); err != nil {
		return v, fmt.Errorf("clinic lookup: %w", err)
	} else if !ok {
		v.fail(fmt.Sprintf("clinic %q does not exist", v.clinic))
	} else {
		clinicOK = true
	}

	v.ssn = strings.TrimSpace(in.Patient)
	patientOK := false
	if v.ssn == "" {
		v.fail("patient ssn is required")
	} else if !domain.ValidSSN(v.ssn) {
		v.fail(fmt.Sprintf("patient ssn must be exactly %d digits", domain.SSNLength))
	} else if ok, err := s.repo.PatientExists(ctx, v.ssn); err != nil {
		return v, fmt.Errorf("patient lookup: %w", err)
	} else if !ok {
		v.fail(fmt.Sprintf("patient %s does not exist", v.ssn))
	} else {
		patientOK = true
	}

	v.nif = strings.TrimSpace(in.Doctor)
	doctorOK := false
	if v.nif == "" {
		v.fail("doctor nif is required")
	} else if !domain.ValidNIF(v.nif) {
		v.fail(fmt.Sprintf("doctor nif must be exactly %d digits", domain.NIFLength))
	} else if ok, err := s.repo.DoctorExists(ctx, v.nif); err != nil {
		return v, fmt.Errorf("doctor lookup: %w", err)
	} else if !ok {
		v.fail(fmt.Sprintf("doctor %s does not exist", v.nif))
	} else {
		doctorOK = true
	}

	day, dateOK := parseDate(in.Date)
	if !dateOK {
		v.fail("date is required in YYYY-MM-DD format")
	} else {
		v.date = day.Format(domain.DateLayout)
	}

	clock, hourOK := parseHour(in.Hour)
	if !hourOK {
		v.fail("hour is required in HH:MM:SS format")
	} else {
		v.hour = clock.Format(domain.HourLayout)
	}

	if dateOK && hourOK {
		at := time.Date(day.Year(), day.Month(), day.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, time.Local)
		if !at.After(s.now()) {
			v.fail("appointment must be in the future")
		}
		if !domain.IsWorkingInstant(at) {
			v.fail("hour must be on a half-hour boundary within 08:00-12:30 or 14:00-18:30")
		}
		if clinicOK && doctorOK {
			works, err := s.repo.DoctorWorksAt(ctx, v.clinic, v.nif, domain.Weekday(at))
			if err != nil {
				return v, fmt.Errorf("roster lookup: %w", err)
			}
			if !works {
				v.fail(fmt.Sprintf("doctor %s does not work at clinic %q on that weekday", v.nif, v.clinic))
			}
		}
	}

	if clinicOK && patientOK && doctorOK && dateOK && hourOK {
		key := domain.AppointmentKey{
			ClinicName: v.clinic,
			SSN:        v.ssn,
			NIF:        v.nif,
			Date:       v.date,
			Hour:       v.hour,
		}
		exists, err := s.repo.AppointmentExists(ctx, key)
		if err != nil {
			return v, fmt.Errorf("appointment lookup: %w", err)
		}

		switch {
		case cancelling && !exists:
			v.fail("no such appointment to cancel")
		case !cancelling && exists:
			v.fail("an identical appointment already exists")
		case !cancelling:
			// The doctor/patient clash checks only make sense once the
			// exact tuple is known to be absent: any hit is then a
			// different appointment at the same instant.
			if busy, err := s.repo.DoctorBusy(ctx, v.nif, v.date, v.hour); err != nil {
				return v, fmt.Errorf("doctor conflict lookup: %w", err)
			} else if busy {
				v.fail(fmt.Sprintf("doctor %s already has an appointment at %s %s", v.nif, v.date, v.hour))
			}
			if busy, err := s.repo.PatientBusy(ctx, v.ssn, v.date, v.hour); err != nil {
				return v, fmt.Errorf("patient conflict lookup: %w", err)
			} else if busy {
				v.fail(fmt.Sprintf("patient %s already has an appointment at %s %s", v.ssn, v.date, v.hour))
			}
		}
	}

	return v, nil
}

func (v *validated) fail(msg string) {
	v.violations = append(v.violations, msg)
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	return t, err == nil
}

// parseHour accepts HH:MM:SS and HH:MM.
func parseHour(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(domain.HourLayout, s); err == nil {
		return t, true
	}
	t, err := time.Parse("15:04", s)
	return t, err == nil
}
