// Package service contains the business logic layer of the application.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces domain rules, logs, counts
//	Repository      → reads and writes the database
//
// Services take repository interfaces, never *sqlite.DB, and return
// apperror values for every outcome a caller can act on. Every method takes
// the owner's user id explicitly; it always comes from the verified
// identity, never from a request body.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/metrics"
	"github.com/sakif/treatment-companion/internal/model"
	"github.com/sakif/treatment-companion/internal/repository"
)

// MaxNotesLength bounds the free-text notes on a symptom entry.
const MaxNotesLength = 2000

// SymptomService handles the symptom log.
type SymptomService struct {
	repo   repository.SymptomRepository
	logger *slog.Logger
}

// NewSymptomService creates a new SymptomService.
func NewSymptomService(repo repository.SymptomRepository, logger *slog.Logger) *SymptomService {
	return &SymptomService{
		repo:   repo,
		logger: logger,
	}
}

// List returns the user's symptoms, newest first.
func (s *SymptomService) List(ctx context.Context, userID string) ([]model.Symptom, error) {
	symptoms, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/symptom: listing for user %s: %w", userID, err)
	}
	return symptoms, nil
}

// Record validates and stores a new symptom entry for userID.
//
// Blank notes are stored as absent. Notes are never logged.
func (s *SymptomService) Record(ctx context.Context, userID string, typ model.SymptomType, severity int, notes *string) (*model.Symptom, error) {
	if !typ.Valid() {
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("unknown symptom type %q", typ))
	}
	if !model.ValidSeverity(severity) {
		return nil, apperror.ValidationFailed("severity",
			fmt.Sprintf("severity must be between %d and %d", model.MinSeverity, model.MaxSeverity))
	}

	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		if trimmed == "" {
			notes = nil
		} else {
			if utf8.RuneCountInString(trimmed) > MaxNotesLength {
				return nil, apperror.ValidationFailed("notes",
					fmt.Sprintf("notes must be %d characters or less", MaxNotesLength))
			}
			notes = &trimmed
		}
	}

	symptom := &model.Symptom{
		UserID:   userID,
		Type:     typ,
		Severity: severity,
		Notes:    notes,
	}

	if err := s.repo.Create(ctx, symptom); err != nil {
		s.logger.Error("failed to record symptom",
			slog.String("userID", userID),
			slog.String("type", string(typ)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/symptom: recording: %w", err)
	}

	metrics.SymptomsRecordedTotal.WithLabelValues(string(typ)).Inc()
	s.logger.Info("symptom recorded",
		slog.String("id", symptom.ID),
		slog.String("userID", userID),
		slog.String("type", string(typ)),
		slog.Int("severity", severity),
	)

	return symptom, nil
}
