package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/auth"
	"github.com/sakif/treatment-companion/internal/model"
)

// AppointmentService is the part of service.AppointmentService the handler
// uses.
type AppointmentService interface {
	List(ctx context.Context, userID string) ([]model.Appointment, error)
	Create(ctx context.Context, userID, name, date, clock string) (*model.Appointment, error)
	Update(ctx context.Context, userID, id string, upd model.AppointmentUpdate) (*model.Appointment, error)
	Delete(ctx context.Context, userID, id string) error
}

// AppointmentHandler serves /api/appointments.
type AppointmentHandler struct {
	service AppointmentService
	logger  *slog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc AppointmentService, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: svc,
		logger:  logger,
	}
}

type createAppointmentRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,datetime=15:04"`
}

// updateAppointmentRequest lists every field a PATCH may carry. Anything
// else, userId included, is rejected by the decoder.
type updateAppointmentRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=200"`
	Date      *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time      *string `json:"time" validate:"omitempty,datetime=15:04"`
	Completed *bool   `json:"completed"`
}

// HandleList handles GET /api/appointments.
func (h *AppointmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}

	appts, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, appts)
}

// HandleCreate handles POST /api/appointments.
func (h *AppointmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}

	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid appointment JSON", slog.String("error", err.Error()))
		writeError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.logger.Warn("appointment request rejected",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, r, err)
		return
	}

	appt, err := h.service.Create(r.Context(), userID, req.Name, req.Date, req.Time)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, appt)
}

// HandleUpdate handles PATCH /api/appointments/{id}.
func (h *AppointmentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}
	id := chi.URLParam(r, "id")

	var req updateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid appointment JSON", slog.String("error", err.Error()))
		writeError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.logger.Warn("appointment request rejected",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, r, err)
		return
	}

	appt, err := h.service.Update(r.Context(), userID, id, model.AppointmentUpdate{
		Name:      req.Name,
		Date:      req.Date,
		Time:      req.Time,
		Completed: req.Completed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

// HandleDelete handles DELETE /api/appointments/{id}.
func (h *AppointmentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}
	id := chi.URLParam(r, "id")
	h.logger.Info("appointment delete requested", slog.String("id", id), slog.String("userID", userID))

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
