package postgres

import (
	"context"
	"crypto/rand"
	"errors"
	"regexp"
	"testing"

	"saude/backend/internal/domain"
	"saude/backend/internal/store"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestDrawHealthCode_TwelveDigitsZeroPadded(t *testing.T) {
	code, err := drawHealthCode(zeroReader{})
	if err != nil {
		t.Fatalf("drawHealthCode error: %v", err)
	}
	if code != "000000000000" {
		t.Fatalf("code = %q, want zero-padded twelve digits", code)
	}
}

func TestDrawHealthCode_Format(t *testing.T) {
	digits := regexp.MustCompile(`^[0-9]{12}$`)
	for i := 0; i < 32; i++ {
		code, err := drawHealthCode(rand.Reader)
		if err != nil {
			t.Fatalf("drawHealthCode error: %v", err)
		}
		if !digits.MatchString(code) {
			t.Fatalf("code = %q, want 12 digits", code)
		}
	}
}

func TestNewHealthCode_ReturnsFirstFreeCode(t *testing.T) {
	calls := 0
	code, err := newHealthCode(context.Background(), zeroReader{}, func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls < 3, nil // first two draws collide
	})
	if err != nil {
		t.Fatalf("newHealthCode error: %v", err)
	}
	if code != "000000000000" {
		t.Fatalf("code = %q", code)
	}
	if calls != 3 {
		t.Fatalf("taken calls = %d, want 3", calls)
	}
}

func TestNewHealthCode_Exhaustion(t *testing.T) {
	calls := 0
	_, err := newHealthCode(context.Background(), zeroReader{}, func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	})
	if !errors.Is(err, store.ErrHealthCodeExhausted) {
		t.Fatalf("error = %v, want %v", err, store.ErrHealthCodeExhausted)
	}
	if calls != maxHealthCodeAttempts {
		t.Fatalf("taken calls = %d, want %d", calls, maxHealthCodeAttempts)
	}
}

func TestBuildAgendas(t *testing.T) {
	doctors := []doctorRow{
		{NIF: "111111111", Name: "Dr. Amaral"},
		{NIF: "222222222", Name: "Dr. Barros"},
	}
	roster := []rosterRow{
		{NIF: "111111111", Weekday: 1},
		{NIF: "111111111", Weekday: 3},
		{NIF: "999999999", Weekday: 2}, // not among the doctors, ignored
	}
	booked := []bookedRow{
		{NIF: "111111111", Date: "2030-01-07", Hour: "09:30:00"},
		{NIF: "222222222", Date: "2030-01-08", Hour: "14:00:00"},
	}

	agendas := buildAgendas(doctors, roster, booked)
	if len(agendas) != 2 {
		t.Fatalf("len(agendas) = %d, want 2", len(agendas))
	}

	a := agendas[0]
	if a.NIF != "111111111" || a.Name != "Dr. Amaral" {
		t.Fatalf("agendas[0] = %+v", a)
	}
	if len(a.Weekdays) != 2 || !a.Weekdays[1] || !a.Weekdays[3] {
		t.Fatalf("weekdays = %v, want Monday and Wednesday", a.Weekdays)
	}
	if _, ok := a.Booked[domain.Slot{Date: "2030-01-07", Hour: "09:30:00"}]; !ok {
		t.Fatalf("booked = %v, missing the doctor's slot", a.Booked)
	}

	b := agendas[1]
	if len(b.Weekdays) != 0 {
		t.Fatalf("agendas[1].Weekdays = %v, want empty for unrostered doctor", b.Weekdays)
	}
	if len(b.Booked) != 1 {
		t.Fatalf("agendas[1].Booked = %v, want one slot", b.Booked)
	}
}
