package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/metrics"
	"github.com/sakif/treatment-companion/internal/model"
	"github.com/sakif/treatment-companion/internal/repository"
)

// MaxAppointmentNameLength bounds an appointment's display name.
const MaxAppointmentNameLength = 200

// AppointmentService handles the appointment tracker.
type AppointmentService struct {
	repo   repository.AppointmentRepository
	logger *slog.Logger
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(repo repository.AppointmentRepository, logger *slog.Logger) *AppointmentService {
	return &AppointmentService{
		repo:   repo,
		logger: logger,
	}
}

// List returns the user's appointments ordered by date, then time.
func (s *AppointmentService) List(ctx context.Context, userID string) ([]model.Appointment, error) {
	appts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/appointment: listing for user %s: %w", userID, err)
	}
	return appts, nil
}

// Create validates and schedules a new, not yet completed appointment.
func (s *AppointmentService) Create(ctx context.Context, userID, name, date, clock string) (*model.Appointment, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := validateTime(clock); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		UserID: userID,
		Name:   name,
		Date:   date,
		Time:   clock,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		s.logger.Error("failed to create appointment",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/appointment: creating: %w", err)
	}

	metrics.AppointmentsCreatedTotal.Inc()
	s.logger.Info("appointment created",
		slog.String("id", appt.ID),
		slog.String("userID", userID),
		slog.String("date", appt.Date),
	)

	return appt, nil
}

// Update applies a partial update to an appointment the user owns.
// A missing and a foreign appointment both yield apperror.ErrNotFound.
func (s *AppointmentService) Update(ctx context.Context, userID, id string, upd model.AppointmentUpdate) (*model.Appointment, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if upd.Date != nil {
		if err := validateDate(*upd.Date); err != nil {
			return nil, err
		}
	}
	if upd.Time != nil {
		if err := validateTime(*upd.Time); err != nil {
			return nil, err
		}
	}

	appt, err := s.repo.Update(ctx, id, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("service/appointment: updating %s: %w", id, err)
	}

	if upd.Completed != nil && *upd.Completed {
		metrics.AppointmentsCompletedTotal.Inc()
	}
	s.logger.Info("appointment updated",
		slog.String("id", id),
		slog.String("userID", userID),
	)

	return appt, nil
}

// Delete removes an appointment the user owns.
// A missing and a foreign appointment both yield apperror.ErrNotFound.
func (s *AppointmentService) Delete(ctx context.Context, userID, id string) error {
	ok, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("service/appointment: deleting %s: %w", id, err)
	}
	if !ok {
		return apperror.NotFound("appointment", id)
	}

	metrics.AppointmentsDeletedTotal.Inc()
	s.logger.Info("appointment deleted",
		slog.String("id", id),
		slog.String("userID", userID),
	)
	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "appointment name is required")
	}
	if utf8.RuneCountInString(name) > MaxAppointmentNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("appointment name must be %d characters or less", MaxAppointmentNameLength))
	}
	return nil
}

// Dates and times must be zero-padded so they sort as text.

func validateDate(date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil || len(date) != len(model.DateLayout) {
		return apperror.ValidationFailed("date", "date must be formatted YYYY-MM-DD")
	}
	return nil
}

func validateTime(clock string) error {
	if _, err := time.Parse(model.TimeLayout, clock); err != nil || len(clock) != len(model.TimeLayout) {
		return apperror.ValidationFailed("time", "time must be formatted HH:MM")
	}
	return nil
}
