package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"saude/backend/internal/domain"
	"saude/backend/internal/store"
)

// maxHealthCodeAttempts bounds the random health-code draw; with 10^12
// possible codes the loop should never run more than once in practice.
const maxHealthCodeAttempts = 16

type BookingRepo struct {
	db  *bun.DB
	rnd io.Reader
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db, rnd: rand.Reader}
}

func (r *BookingRepo) ListClinics(ctx context.Context) ([]domain.Clinic, error) {
	var rows []domain.Clinic
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("nome ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListSpecialties(ctx context.Context, clinic string) ([]string, error) {
	var specialties []string
	err := r.db.NewRaw(`
		SELECT DISTINCT m.especialidade
		FROM medico m
		JOIN trabalha t ON t.nif = m.nif
		WHERE t.nome = ?
		ORDER BY m.especialidade`, clinic).
		Scan(ctx, &specialties)
	if err != nil {
		return nil, err
	}
	return specialties, nil
}

func (r *BookingRepo) ClinicExists(ctx context.Context, name string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Clinic)(nil)).
		Where("nome = ?", name).
		Exists(ctx)
}

func (r *BookingRepo) SpecialtyExists(ctx context.Context, specialty string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Doctor)(nil)).
		Where("especialidade = ?", specialty).
		Exists(ctx)
}

func (r *BookingRepo) SpecialtyOfferedAt(ctx context.Context, clinic, specialty string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Doctor)(nil)).
		Join("JOIN trabalha AS t ON t.nif = m.nif").
		Where("t.nome = ?", clinic).
		Where("m.especialidade = ?", specialty).
		Exists(ctx)
}

func (r *BookingRepo) DoctorWorksAt(ctx context.Context, clinic, nif string, weekday int) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.WorkAssignment)(nil)).
		Where("nif = ?", nif).
		Where("nome = ?", clinic).
		Where("dia = ?", weekday).
		Exists(ctx)
}

func (r *BookingRepo) DoctorExists(ctx context.Context, nif string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Doctor)(nil)).
		Where("nif = ?", nif).
		Exists(ctx)
}

func (r *BookingRepo) PatientExists(ctx context.Context, ssn string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Patient)(nil)).
		Where("ssn = ?", ssn).
		Exists(ctx)
}

type doctorRow struct {
	NIF  string `bun:"nif"`
	Name string `bun:"nome"`
}

type rosterRow struct {
	NIF     string `bun:"nif"`
	Weekday int    `bun:"dia"`
}

type bookedRow struct {
	NIF  string `bun:"nif"`
	Date string `bun:"data"`
	Hour string `bun:"hora"`
}

func (r *BookingRepo) DoctorAgendas(ctx context.Context, clinic, specialty, fromDate string) ([]store.DoctorAgenda, error) {
	var agendas []store.DoctorAgenda
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Share-lock consulta so no booking lands between reading the
		// booked slots and reporting them free.
		if _, err := tx.ExecContext(ctx, "LOCK TABLE consulta IN SHARE MODE"); err != nil {
			return err
		}

		var doctors []doctorRow
		err := tx.NewRaw(`
			SELECT m.nif, m.nome
			FROM medico m
			WHERE m.especialidade = ?
			  AND EXISTS (SELECT 1 FROM consulta con WHERE con.nif = m.nif AND con.nome = ?)
			ORDER BY m.nome, m.nif`, specialty, clinic).
			Scan(ctx, &doctors)
		if err != nil {
			return err
		}
		if len(doctors) == 0 {
			return nil
		}

		nifs := make([]string, len(doctors))
		for i, d := range doctors {
			nifs[i] = d.NIF
		}

		var roster []rosterRow
		err = tx.NewSelect().
			Model((*domain.WorkAssignment)(nil)).
			Column("nif", "dia").
			Where("nome = ?", clinic).
			Where("nif IN (?)", bun.In(nifs)).
			Scan(ctx, &roster)
		if err != nil {
			return err
		}

		var booked []bookedRow
		err = tx.NewRaw(`
			SELECT nif, data::text AS data, hora::text AS hora
			FROM consulta
			WHERE nif IN (?) AND data >= ?::date`, bun.In(nifs), fromDate).
			Scan(ctx, &booked)
		if err != nil {
			return err
		}

		agendas = buildAgendas(doctors, roster, booked)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agendas, nil
}

func buildAgendas(doctors []doctorRow, roster []rosterRow, booked []bookedRow) []store.DoctorAgenda {
	byNIF := make(map[string]*store.DoctorAgenda, len(doctors))
	agendas := make([]store.DoctorAgenda, len(doctors))
	for i, d := range doctors {
		agendas[i] = store.DoctorAgenda{
			NIF:      d.NIF,
			Name:     d.Name,
			Weekdays: make(map[int]bool),
			Booked:   make(map[domain.Slot]struct{}),
		}
		byNIF[d.NIF] = &agendas[i]
	}
	for _, row := range roster {
		if a, ok := byNIF[row.NIF]; ok {
			a.Weekdays[row.Weekday] = true
		}
	}
	for _, row := range booked {
		if a, ok := byNIF[row.NIF]; ok {
			a.Booked[domain.Slot{Date: row.Date, Hour: row.Hour}] = struct{}{}
		}
	}
	return agendas
}

func (r *BookingRepo) AppointmentExists(ctx context.Context, key domain.AppointmentKey) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("nome = ?", key.ClinicName).
		Where("ssn = ?", key.SSN).
		Where("nif = ?", key.NIF).
		Where("data = ?::date", key.Date).
		Where("hora = ?::time", key.Hour).
		Exists(ctx)
}

func (r *BookingRepo) DoctorBusy(ctx context.Context, nif, date, hour string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("nif = ?", nif).
		Where("data = ?::date", date).
		Where("hora = ?::time", hour).
		Exists(ctx)
}

func (r *BookingRepo) PatientBusy(ctx context.Context, ssn, date, hour string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("ssn = ?", ssn).
		Where("data = ?::date", date).
		Where("hora = ?::time", hour).
		Exists(ctx)
}

func (r *BookingRepo) Book(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Exclusive lock: id allocation below is read-then-write and only
		// race-free while no other writer can touch consulta.
		if _, err := tx.ExecContext(ctx, "LOCK TABLE consulta IN ACCESS EXCLUSIVE MODE"); err != nil {
			return err
		}

		if err := tx.NewRaw("SELECT COALESCE(MAX(id), 0) + 1 FROM consulta").Scan(ctx, &appt.ID); err != nil {
			return err
		}

		code, err := newHealthCode(ctx, r.rnd, func(ctx context.Context, code string) (bool, error) {
			return tx.NewSelect().
				Model((*domain.Appointment)(nil)).
				Where("codigo_sns = ?", code).
				Exists(ctx)
		})
		if err != nil {
			return err
		}
		appt.HealthCode = code

		if _, err := tx.NewInsert().Model(&appt).Exec(ctx); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return store.ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *BookingRepo) Cancel(ctx context.Context, key domain.AppointmentKey) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"LOCK TABLE consulta, receita, observacao IN ACCESS EXCLUSIVE MODE"); err != nil {
			return err
		}

		// Re-resolve under the lock: the validator's existence check ran
		// before the lock and may have gone stale.
		var id int64
		var healthCode string
		err := tx.NewRaw(`
			SELECT id, codigo_sns
			FROM consulta
			WHERE nome = ? AND ssn = ? AND nif = ? AND data = ?::date AND hora = ?::time`,
			key.ClinicName, key.SSN, key.NIF, key.Date, key.Hour).
			Scan(ctx, &id, &healthCode)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*domain.Prescription)(nil)).
			Where("codigo_sns = ?", healthCode).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*domain.Observation)(nil)).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*domain.Appointment)(nil)).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}

var healthCodeSpace = big.NewInt(1_000_000_000_000)

func drawHealthCode(rnd io.Reader) (string, error) {
	n, err := rand.Int(rnd, healthCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%012d", n), nil
}

func newHealthCode(ctx context.Context, rnd io.Reader, taken func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxHealthCodeAttempts; attempt++ {
		code, err := drawHealthCode(rnd)
		if err != nil {
			return "", err
		}
		inUse, err := taken(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", store.ErrHealthCodeExhausted
}
