package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/repository"
)

var _ repository.SessionRepository = (*SessionDB)(nil)

// SessionDB is the sessions table view of a DB. Payloads are opaque to it.
type SessionDB struct {
	conn *sql.DB
}

// Sessions returns the session repository backed by db.
func (db *DB) Sessions() *SessionDB {
	return &SessionDB{conn: db.conn}
}

// GetSession returns the payload of a live session.
func (s *SessionDB) GetSession(ctx context.Context, sid string) ([]byte, error) {
	var payload []byte

	err := s.conn.QueryRowContext(ctx,
		`SELECT sess FROM sessions WHERE sid = ? AND expire > ?`,
		sid, now(),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", sid)
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}

	return payload, nil
}

// SaveSession writes or replaces a session.
func (s *SessionDB) SaveSession(ctx context.Context, sid string, payload []byte, expire time.Time) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sessions (sid, sess, expire) VALUES (?, ?, ?)
		 ON CONFLICT(sid) DO UPDATE SET sess = excluded.sess, expire = excluded.expire`,
		sid, string(payload), expire.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session: %w", err)
	}
	return nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (s *SessionDB) DeleteSession(ctx context.Context, sid string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, sid); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

// PruneExpiredSessions deletes every expired session.
func (s *SessionDB) PruneExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expire <= ?`, now())
	if err != nil {
		return 0, fmt.Errorf("sqlite: pruning sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
