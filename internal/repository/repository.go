// Package repository declares the storage contracts the service layer
// depends on. The sqlite subpackage implements all of them on one *sqlite.DB.
package repository

import (
	"context"
	"time"

	"github.com/sakif/treatment-companion/internal/model"
)

// UserRepository stores patient accounts.
type UserRepository interface {
	// GetUserByID returns apperror.ErrNotFound when no user has that id.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// Upsert inserts the user, or, when the id already exists, overwrites
	// only the non-nil fields and refreshes UpdatedAt. An empty ID gets a
	// generated one. The caller's struct is replaced with the stored row.
	Upsert(ctx context.Context, user *model.User) error
}

// SymptomRepository stores the symptom log. There is no update or delete.
type SymptomRepository interface {
	// ListByUser returns the user's symptoms, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Symptom, error)
	Create(ctx context.Context, symptom *model.Symptom) error
}

// AppointmentRepository stores appointments. Every mutation is scoped to
// the owning user.
type AppointmentRepository interface {
	// ListByUser returns the user's appointments by date, then time.
	ListByUser(ctx context.Context, userID string) ([]model.Appointment, error)
	Create(ctx context.Context, appt *model.Appointment) error
	// Get returns apperror.ErrNotFound for missing and foreign rows alike.
	Get(ctx context.Context, id, userID string) (*model.Appointment, error)
	// Update returns apperror.ErrNotFound for missing and foreign rows alike.
	Update(ctx context.Context, id, userID string, upd model.AppointmentUpdate) (*model.Appointment, error)
	// Delete reports whether a row owned by userID was removed.
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// SessionRepository persists server-side login sessions.
type SessionRepository interface {
	// GetSession returns apperror.ErrNotFound for missing or expired sessions.
	GetSession(ctx context.Context, sid string) ([]byte, error)
	SaveSession(ctx context.Context, sid string, payload []byte, expire time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	// PruneExpiredSessions removes expired rows and returns how many went.
	PruneExpiredSessions(ctx context.Context) (int64, error)
}
