package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"saude/backend/internal/domain"
	"saude/backend/internal/service/booking"
	"saude/backend/internal/store"
)

type fakeService struct {
	listClinicsFn      func(ctx context.Context) ([]domain.Clinic, error)
	listSpecialtiesFn  func(ctx context.Context, clinic string) ([]string, error)
	findAvailabilityFn func(ctx context.Context, clinic, specialty string) (map[string][]domain.Slot, error)
	bookFn             func(ctx context.Context, in booking.Input) (domain.Appointment, error)
	cancelFn           func(ctx context.Context, in booking.Input) error
}

func (f *fakeService) ListClinics(ctx context.Context) ([]domain.Clinic, error) {
	return f.listClinicsFn(ctx)
}

func (f *fakeService) ListSpecialties(ctx context.Context, clinic string) ([]string, error) {
	return f.listSpecialtiesFn(ctx, clinic)
}

func (f *fakeService) FindAvailability(ctx context.Context, clinic, specialty string) (map[string][]domain.Slot, error) {
	return f.findAvailabilityFn(ctx, clinic, specialty)
}

func (f *fakeService) Book(ctx context.Context, in booking.Input) (domain.Appointment, error) {
	return f.bookFn(ctx, in)
}

func (f *fakeService) Cancel(ctx context.Context, in booking.Input) error {
	return f.cancelFn(ctx, in)
}

func newTestRouter(svc BookingService) *echo.Echo {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(svc, log)
	return NewRouter(h, func(ctx context.Context) error { return nil }, 0, log)
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestListClinics_OK(t *testing.T) {
	e := newTestRouter(&fakeService{
		listClinicsFn: func(ctx context.Context) ([]domain.Clinic, error) {
			return []domain.Clinic{
				{Name: "Clinica Central", Phone: "210000000", Address: "Rua A 1"},
			}, nil
		},
	})

	rec := doJSON(t, e, http.MethodGet, "/clinicas", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var clinics []domain.Clinic
	if err := json.Unmarshal(rec.Body.Bytes(), &clinics); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(clinics) != 1 || clinics[0].Name != "Clinica Central" {
		t.Fatalf("clinics = %+v", clinics)
	}
}

func TestListClinics_RootAliasAndInternalError(t *testing.T) {
	e := newTestRouter(&fakeService{
		listClinicsFn: func(ctx context.Context) ([]domain.Clinic, error) {
			return nil, errors.New("connection refused")
		},
	})

	rec := doJSON(t, e, http.MethodGet, "/", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeStatus(t, rec)
	if resp.Message != "internal error" {
		t.Fatalf("message = %q, internals must not leak", resp.Message)
	}
}

func TestListSpecialties_NotFound(t *testing.T) {
	e := newTestRouter(&fakeService{
		listSpecialtiesFn: func(ctx context.Context, clinic string) ([]string, error) {
			return nil, store.ErrNotFound
		},
	})

	rec := doJSON(t, e, http.MethodGet, "/c/Nowhere/", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFindAvailability_OK(t *testing.T) {
	var gotClinic, gotSpecialty string
	e := newTestRouter(&fakeService{
		findAvailabilityFn: func(ctx context.Context, clinic, specialty string) (map[string][]domain.Slot, error) {
			gotClinic, gotSpecialty = clinic, specialty
			return map[string][]domain.Slot{
				"Dr. Amaral": {
					{Date: "2030-01-07", Hour: "09:30:00"},
					{Date: "2030-01-07", Hour: "10:00:00"},
				},
			}, nil
		},
	})

	rec := doJSON(t, e, http.MethodGet, "/c/ClinicA/cardiologia/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotClinic != "ClinicA" || gotSpecialty != "cardiologia" {
		t.Fatalf("params = %q, %q", gotClinic, gotSpecialty)
	}
	var out map[string][]domain.Slot
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out["Dr. Amaral"]) != 2 || out["Dr. Amaral"][0].Hour != "09:30:00" {
		t.Fatalf("out = %v", out)
	}
}

func TestBook_OK(t *testing.T) {
	var gotIn booking.Input
	e := newTestRouter(&fakeService{
		bookFn: func(ctx context.Context, in booking.Input) (domain.Appointment, error) {
			gotIn = in
			return domain.Appointment{
				ID:         7,
				SSN:        in.Patient,
				NIF:        in.Doctor,
				ClinicName: in.Clinic,
				Date:       in.Date,
				Hour:       in.Hour,
				HealthCode: "123456789012",
			}, nil
		},
	})

	rec := doJSON(t, e, http.MethodPost, "/a/ClinicA/registar/",
		`{"paciente":"12345678901","medico":"111111111","data":"2030-01-07","hora":"09:30:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotIn.Clinic != "ClinicA" || gotIn.Patient != "12345678901" || gotIn.Doctor != "111111111" {
		t.Fatalf("input = %+v, path and body not threaded through", gotIn)
	}
	resp := decodeStatus(t, rec)
	if resp.Status != "success" || resp.ID != 7 || resp.HealthCode != "123456789012" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestBook_ValidationErrors(t *testing.T) {
	e := newTestRouter(&fakeService{
		bookFn: func(ctx context.Context, in booking.Input) (domain.Appointment, error) {
			return domain.Appointment{}, &booking.ValidationError{Violations: []string{
				"patient 12345678901 does not exist",
				"hour must be on a half-hour boundary within 08:00-12:30 or 14:00-18:30",
			}}
		},
	})

	rec := doJSON(t, e, http.MethodPost, "/a/ClinicA/registar/",
		`{"paciente":"12345678901","medico":"111111111","data":"2030-01-07","hora":"09:45:00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeStatus(t, rec)
	if resp.Status != "error" || len(resp.Reasons) != 2 {
		t.Fatalf("resp = %+v, want both reasons", resp)
	}
}

func TestBook_MalformedBody(t *testing.T) {
	e := newTestRouter(&fakeService{
		bookFn: func(ctx context.Context, in booking.Input) (domain.Appointment, error) {
			t.Fatal("service must not be called on a malformed body")
			return domain.Appointment{}, nil
		},
	})

	rec := doJSON(t, e, http.MethodPost, "/a/ClinicA/registar/", `{"paciente":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBook_Conflict(t *testing.T) {
	e := newTestRouter(&fakeService{
		bookFn: func(ctx context.Context, in booking.Input) (domain.Appointment, error) {
			return domain.Appointment{}, store.ErrConflict
		},
	})

	rec := doJSON(t, e, http.MethodPost, "/a/ClinicA/registar/",
		`{"paciente":"12345678901","medico":"111111111","data":"2030-01-07","hora":"09:30:00"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCancel_OK(t *testing.T) {
	e := newTestRouter(&fakeService{
		cancelFn: func(ctx context.Context, in booking.Input) error {
			return nil
		},
	})

	rec := doJSON(t, e, http.MethodPost, "/a/ClinicA/cancelar/",
		`{"paciente":"12345678901","medico":"111111111","data":"2030-01-07","hora":"09:30:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeStatus(t, rec)
	if resp.Status != "success" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestCancel_NotFound(t *testing.T) {
	e := newTestRouter(&fakeService{
		cancelFn: func(ctx context.Context, in booking.Input) error {
			return store.ErrNotFound
		},
	})

	rec := doJSON(t, e, http.MethodPost, "/a/ClinicA/cancelar/",
		`{"paciente":"12345678901","medico":"111111111","data":"2030-01-07","hora":"09:30:00"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	healthy := true
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(&fakeService{}, log)
	e := NewRouter(h, func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	}, 0, log)

	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	healthy = false
	rec = doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
