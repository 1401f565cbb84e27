package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/model"
	"github.com/sakif/treatment-companion/internal/repository"
)

var _ repository.AppointmentRepository = (*AppointmentDB)(nil)

// AppointmentDB is the appointments table view of a DB.
//
// Every statement except the INSERT carries a user_id predicate, so a
// foreign row behaves exactly like a missing one.
type AppointmentDB struct {
	conn *sql.DB
}

// Appointments returns the appointment repository backed by db.
func (db *DB) Appointments() *AppointmentDB {
	return &AppointmentDB{conn: db.conn}
}

// Create inserts an appointment. Completed always starts false.
func (a *AppointmentDB) Create(ctx context.Context, appt *model.Appointment) error {
	appt.ID = xid.New().String()
	appt.Completed = false
	appt.CreatedAt = now()

	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO appointments (id, user_id, name, date, time, completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		appt.ID,
		appt.UserID,
		appt.Name,
		appt.Date,
		appt.Time,
		appt.Completed,
		appt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating appointment: %w", err)
	}

	return nil
}

// ListByUser returns the user's appointments ordered by date, then time.
func (a *AppointmentDB) ListByUser(ctx context.Context, userID string) ([]model.Appointment, error) {
	rows, err := a.conn.QueryContext(ctx,
		`SELECT id, user_id, name, date, time, completed, created_at
		 FROM appointments
		 WHERE user_id = ?
		 ORDER BY date ASC, time ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing appointments for %s: %w", userID, err)
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID, &appt.UserID, &appt.Name, &appt.Date,
			&appt.Time, &appt.Completed, &appt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning appointment row: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating appointments: %w", err)
	}

	return appts, nil
}

// Get returns one appointment owned by userID.
func (a *AppointmentDB) Get(ctx context.Context, id, userID string) (*model.Appointment, error) {
	var appt model.Appointment

	err := a.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, date, time, completed, created_at
		 FROM appointments
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(
		&appt.ID, &appt.UserID, &appt.Name, &appt.Date,
		&appt.Time, &appt.Completed, &appt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("appointment", id)
		}
		return nil, fmt.Errorf("sqlite: getting appointment %s: %w", id, err)
	}

	return &appt, nil
}

// Update applies the set fields of upd in a single UPDATE and returns the
// resulting row. An empty update just returns the current row.
func (a *AppointmentDB) Update(ctx context.Context, id, userID string, upd model.AppointmentUpdate) (*model.Appointment, error) {
	if upd.IsEmpty() {
		return a.Get(ctx, id, userID)
	}

	// Column names are fixed strings; only values are bound.
	var sets []string
	var args []any
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *upd.Date)
	}
	if upd.Time != nil {
		sets = append(sets, "time = ?")
		args = append(args, *upd.Time)
	}
	if upd.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *upd.Completed)
	}
	args = append(args, id, userID)

	result, err := a.conn.ExecContext(ctx,
		`UPDATE appointments SET `+strings.Join(sets, ", ")+`
		 WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating appointment %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("appointment", id)
	}

	return a.Get(ctx, id, userID)
}

// Delete removes the appointment only if userID owns it. It reports false,
// not an error, when nothing matched.
func (a *AppointmentDB) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := a.conn.ExecContext(ctx,
		`DELETE FROM appointments WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting appointment %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
