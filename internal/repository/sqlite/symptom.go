package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/treatment-companion/internal/model"
	"github.com/sakif/treatment-companion/internal/repository"
)

var _ repository.SymptomRepository = (*SymptomDB)(nil)

// SymptomDB is the symptoms table view of a DB.
type SymptomDB struct {
	conn *sql.DB
}

// Symptoms returns the symptom repository backed by db.
func (db *DB) Symptoms() *SymptomDB {
	return &SymptomDB{conn: db.conn}
}

// Create inserts a symptom, assigning its id and created_at.
// Severity and type are validated by the service; the table's CHECK
// constraint is the last line.
func (s *SymptomDB) Create(ctx context.Context, symptom *model.Symptom) error {
	symptom.ID = xid.New().String()
	symptom.CreatedAt = now()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO symptoms (id, user_id, type, severity, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		symptom.ID,
		symptom.UserID,
		string(symptom.Type),
		symptom.Severity,
		symptom.Notes,
		symptom.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating symptom: %w", err)
	}

	return nil
}

// ListByUser returns every symptom of userID, newest first. xids sort by
// creation time, so id breaks ties between rows written in the same instant.
func (s *SymptomDB) ListByUser(ctx context.Context, userID string) ([]model.Symptom, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, type, severity, notes, created_at
		 FROM symptoms
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing symptoms for %s: %w", userID, err)
	}
	defer rows.Close()

	symptoms := []model.Symptom{}
	for rows.Next() {
		var sym model.Symptom
		var typ string
		if err := rows.Scan(&sym.ID, &sym.UserID, &typ, &sym.Severity, &sym.Notes, &sym.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning symptom row: %w", err)
		}
		sym.Type = model.SymptomType(typ)
		symptoms = append(symptoms, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating symptoms: %w", err)
	}

	return symptoms, nil
}
