package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/logging"
)

// PasswordStore handles password history and reset tokens
type PasswordStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewPasswordStore creates a new password store
func NewPasswordStore(db *DB) (*PasswordStore, error) {
	return &PasswordStore{db: db.Conn(), logger: logging.GetLogger("password-store"), now: db.now}, nil
}

// RecentHashes returns up to limit password hashes of the user, newest first
func (s *PasswordStore) RecentHashes(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT password_hash
		FROM password_history
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query password history: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan password history: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// UpdatePassword sets the user's hash and records it in the history
func (s *PasswordStore) UpdatePassword(ctx context.Context, userID, hash string) error {
	return withTransaction(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		return setPassword(ctx, tx, userID, hash, s.now())
	})
}

// SaveResetToken stores a new reset token
func (s *PasswordStore) SaveResetToken(ctx context.Context, t *ResetToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Token, FormatTime(t.ExpiresAt), FormatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save reset token: %w", classify(err))
	}
	return nil
}

// GetUsableResetToken returns the token when it is unused and unexpired at now
func (s *PasswordStore) GetUsableResetToken(ctx context.Context, token string, now time.Time) (*ResetToken, error) {
	return getUsableResetToken(ctx, s.db, token, now)
}

// ResetPassword consumes the token and sets the new hash in one transaction.
// An unknown, used or expired token yields ErrNotFound and changes nothing.
func (s *PasswordStore) ResetPassword(ctx context.Context, token, hash string, now time.Time) (*ResetToken, error) {
	var consumed *ResetToken
	err := withTransaction(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		t, err := getUsableResetToken(ctx, tx, token, now)
		if err != nil {
			return err
		}
		if err := setPassword(ctx, tx, t.UserID, hash, now); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE password_reset_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL
		`, FormatTime(now), t.ID)
		if err != nil {
			return fmt.Errorf("failed to mark reset token used: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return ErrNotFound
		}
		usedAt := now.UTC()
		t.UsedAt = &usedAt
		consumed = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", consumed.UserID).Msg("Password reset via token")
	return consumed, nil
}

// PurgeResetTokens deletes tokens that expired before cutoff or were already used
func (s *PasswordStore) PurgeResetTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	stamp := FormatTime(cutoff)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM password_reset_tokens WHERE expires_at <= ? OR (used_at IS NOT NULL AND used_at <= ?)
	`, stamp, stamp)
	if err != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func getUsableResetToken(ctx context.Context, q querier, token string, now time.Time) (*ResetToken, error) {
	var (
		t                    ResetToken
		expiresAt, createdAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM password_reset_tokens
		WHERE token = ?
		  AND used_at IS NULL
		  AND expires_at > ?
	`, token, FormatTime(now)).Scan(&t.ID, &t.UserID, &t.Token, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reset token: %w", err)
	}
	if t.ExpiresAt, err = ParseTime(expiresAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func setPassword(ctx context.Context, q querier, userID, hash string, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?
	`, hash, FormatTime(now), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return insertPasswordHistory(ctx, q, userID, hash, now)
}

func insertPasswordHistory(ctx context.Context, q querier, userID, hash string, now time.Time) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO password_history (id, user_id, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), userID, hash, FormatTime(now)); err != nil {
		return fmt.Errorf("failed to record password history: %w", err)
	}
	return nil
}
