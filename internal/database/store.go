package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/logging"
)

// SessionStore handles login session storage in SQLite
type SessionStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewSessionStore creates a new session store
func NewSessionStore(db *DB) (*SessionStore, error) {
	return &SessionStore{db: db.Conn(), logger: logging.GetLogger("session-store"), now: db.now}, nil
}

// SaveSession inserts a new session
func (s *SessionStore) SaveSession(ctx context.Context, session *Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, session.ID, session.UserID, FormatTime(session.CreatedAt), FormatTime(session.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", classify(err))
	}
	return nil
}

// GetActiveSession returns the session if it is neither revoked nor expired at now
func (s *SessionStore) GetActiveSession(ctx context.Context, id string, now time.Time) (*Session, error) {
	var (
		session              Session
		createdAt, expiresAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = ?
		  AND revoked_at IS NULL
		  AND expires_at > ?
	`, id, FormatTime(now)).Scan(&session.ID, &session.UserID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}

	if session.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, err
	}
	if session.ExpiresAt, err = ParseTime(expiresAt); err != nil {
		return nil, err
	}
	return &session, nil
}

// RevokeSession marks the session revoked. Unknown ids are ignored.
func (s *SessionStore) RevokeSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL
	`, FormatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// PurgeSessions deletes sessions that expired or were revoked before cutoff
func (s *SessionStore) PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	stamp := FormatTime(cutoff)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE expires_at <= ? OR (revoked_at IS NOT NULL AND revoked_at <= ?)
	`, stamp, stamp)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug().Int64("deleted", n).Msg("Purged sessions")
	}
	return n, nil
}
