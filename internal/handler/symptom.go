// Package handler contains the HTTP handlers of the treatment companion API.
//
// Handlers parse and validate requests, read the caller from the context
// the auth gate populated, call a service and write JSON. They hold no
// business rules and never accept an owner id from the request.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/auth"
	"github.com/sakif/treatment-companion/internal/model"
)

// SymptomService is the part of service.SymptomService the handler uses.
type SymptomService interface {
	List(ctx context.Context, userID string) ([]model.Symptom, error)
	Record(ctx context.Context, userID string, typ model.SymptomType, severity int, notes *string) (*model.Symptom, error)
}

// SymptomHandler serves /api/symptoms.
type SymptomHandler struct {
	service SymptomService
	logger  *slog.Logger
}

// NewSymptomHandler creates a new SymptomHandler.
func NewSymptomHandler(svc SymptomService, logger *slog.Logger) *SymptomHandler {
	return &SymptomHandler{
		service: svc,
		logger:  logger,
	}
}

type createSymptomRequest struct {
	Type     string  `json:"type" validate:"required,symptom_type"`
	Severity *int    `json:"severity" validate:"required,min=1,max=10"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

// HandleList handles GET /api/symptoms.
func (h *SymptomHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}

	symptoms, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, symptoms)
}

// HandleCreate handles POST /api/symptoms.
func (h *SymptomHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}

	var req createSymptomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid symptom JSON", slog.String("error", err.Error()))
		writeError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.logger.Warn("symptom request rejected",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, r, err)
		return
	}

	symptom, err := h.service.Record(r.Context(), userID, model.SymptomType(req.Type), *req.Severity, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, symptom)
}
