package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"saude/backend/internal/domain"
	"saude/backend/internal/service/booking"
	"saude/backend/internal/store"
)

// BookingService is what the HTTP layer needs from the booking service.
type BookingService interface {
	ListClinics(ctx context.Context) ([]domain.Clinic, error)
	ListSpecialties(ctx context.Context, clinic string) ([]string, error)
	FindAvailability(ctx context.Context, clinic, specialty string) (map[string][]domain.Slot, error)
	Book(ctx context.Context, in booking.Input) (domain.Appointment, error)
	Cancel(ctx context.Context, in booking.Input) error
}

type Handler struct {
	svc BookingService
	log *slog.Logger
}

func NewHandler(svc BookingService, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.ListClinics)
	e.GET("/clinicas", h.ListClinics)
	e.GET("/c/:clinica/", h.ListSpecialties)
	e.GET("/c/:clinica/:especialidade/", h.FindAvailability)
	e.POST("/a/:clinica/registar/", h.Book)
	e.POST("/a/:clinica/cancelar/", h.Cancel)
}

// bookingRequest is the body of registar and cancelar. The clinic comes
// from the path.
type bookingRequest struct {
	Patient string `json:"paciente"`
	Doctor  string `json:"medico"`
	Date    string `json:"data"`
	Hour    string `json:"hora"`
}

type statusResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
	ID         int64    `json:"id,omitempty"`
	HealthCode string   `json:"codigo_sns,omitempty"`
}

func (h *Handler) ListClinics(c echo.Context) error {
	clinics, err := h.svc.ListClinics(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, clinics)
}

func (h *Handler) ListSpecialties(c echo.Context) error {
	specialties, err := h.svc.ListSpecialties(c.Request().Context(), c.Param("clinica"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, specialties)
}

func (h *Handler) FindAvailability(c echo.Context) error {
	slots, err := h.svc.FindAvailability(c.Request().Context(),
		c.Param("clinica"), c.Param("especialidade"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) Book(c echo.Context) error {
	var req bookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{
			Status:  "error",
			Message: "malformed request body",
		})
	}

	appt, err := h.svc.Book(c.Request().Context(), booking.Input{
		Clinic:  c.Param("clinica"),
		Patient: req.Patient,
		Doctor:  req.Doctor,
		Date:    req.Date,
		Hour:    req.Hour,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, statusResponse{
		Status:     "success",
		Message:    "appointment booked",
		ID:         appt.ID,
		HealthCode: appt.HealthCode,
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	var req bookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{
			Status:  "error",
			Message: "malformed request body",
		})
	}

	err := h.svc.Cancel(c.Request().Context(), booking.Input{
		Clinic:  c.Param("clinica"),
		Patient: req.Patient,
		Doctor:  req.Doctor,
		Date:    req.Date,
		Hour:    req.Hour,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, statusResponse{
		Status:  "success",
		Message: "appointment cancelled",
	})
}

// fail maps service errors to responses. Unexpected errors are logged
// with the request id and answered with a generic message.
func (h *Handler) fail(c echo.Context, err error) error {
	var vErr *booking.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, statusResponse{
			Status:  "error",
			Reasons: vErr.Violations,
		})
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, statusResponse{
			Status:  "error",
			Message: "not found",
		})
	case errors.Is(err, store.ErrConflict):
		return c.JSON(http.StatusConflict, statusResponse{
			Status:  "error",
			Message: "conflicting appointment",
		})
	default:
		h.log.Error("request failed",
			"error", err,
			"method", c.Request().Method,
			"path", c.Path(),
			"request_id", requestID(c),
		)
		return c.JSON(http.StatusInternalServerError, statusResponse{
			Status:  "error",
			Message: "internal error",
		})
	}
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
