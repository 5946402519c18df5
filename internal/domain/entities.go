package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// Table and column names follow the national health schema this service was
// built against (clinica, medico, paciente, trabalha, consulta, receita,
// observacao). Go names are English; the wire keeps the Portuguese names.

const (
	DateLayout = "2006-01-02"
	HourLayout = "15:04:05"
)

const SpecialtyGeneralPractice = "clínica geral"

type Clinic struct {
	bun.BaseModel `bun:"table:clinica,alias:c"`

	Name    string `bun:"nome,pk" json:"nome"`
	Phone   string `bun:"telefone,notnull" json:"telefone"`
	Address string `bun:"morada,notnull" json:"morada"`
}

type Doctor struct {
	bun.BaseModel `bun:"table:medico,alias:m"`

	NIF       string `bun:"nif,pk" json:"nif"`
	Name      string `bun:"nome,notnull" json:"nome"`
	Phone     string `bun:"telefone,notnull" json:"telefone"`
	Address   string `bun:"morada,notnull" json:"morada"`
	Specialty string `bun:"especialidade,notnull" json:"especialidade"`
}

type Patient struct {
	bun.BaseModel `bun:"table:paciente,alias:p"`

	SSN       string    `bun:"ssn,pk" json:"ssn"`
	NIF       string    `bun:"nif,notnull" json:"nif"`
	Name      string    `bun:"nome,notnull" json:"nome"`
	Phone     string    `bun:"telefone,notnull" json:"telefone"`
	Address   string    `bun:"morada,notnull" json:"morada"`
	BirthDate time.Time `bun:"data_nasc,notnull" json:"data_nasc"`
}

// WorkAssignment is one weekly roster entry: the doctor is at the clinic
// every week on Weekday (Sunday=0 .. Saturday=6).
type WorkAssignment struct {
	bun.BaseModel `bun:"table:trabalha,alias:t"`

	NIF        string `bun:"nif,notnull" json:"nif"`
	ClinicName string `bun:"nome,notnull" json:"nome"`
	Weekday    int    `bun:"dia,notnull" json:"dia"`
}

// Appointment is a consulta row. Date and Hour are kept in their wire form
// (YYYY-MM-DD, HH:MM:SS); reads cast the date/time columns to text.
type Appointment struct {
	bun.BaseModel `bun:"table:consulta,alias:con"`

	ID         int64  `bun:"id,pk" json:"id"`
	SSN        string `bun:"ssn,notnull" json:"ssn"`
	NIF        string `bun:"nif,notnull" json:"nif"`
	ClinicName string `bun:"nome,notnull" json:"nome"`
	Date       string `bun:"data,notnull" json:"data"`
	Hour       string `bun:"hora,notnull" json:"hora"`
	HealthCode string `bun:"codigo_sns,notnull" json:"codigo_sns"`
}

type Prescription struct {
	bun.BaseModel `bun:"table:receita,alias:r"`

	HealthCode string `bun:"codigo_sns,pk" json:"codigo_sns"`
	Medication string `bun:"medicamento,pk" json:"medicamento"`
	Quantity   int    `bun:"quantidade,notnull" json:"quantidade"`
}

type Observation struct {
	bun.BaseModel `bun:"table:observacao,alias:o"`

	AppointmentID int64    `bun:"id,notnull" json:"id"`
	Parameter     string   `bun:"parametro,notnull" json:"parametro"`
	Value         *float64 `bun:"valor" json:"valor,omitempty"`
}

// Slot is a bookable (date, hour) pair in wire form.
type Slot struct {
	Date string `json:"data"`
	Hour string `json:"hora"`
}

// AppointmentKey is the natural key a client books and cancels by.
type AppointmentKey struct {
	ClinicName string
	SSN        string
	NIF        string
	Date       string
	Hour       string
}
