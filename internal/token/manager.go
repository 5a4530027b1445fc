package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/logging"
)

// ErrInvalidToken is returned for unknown, revoked, used or expired tokens
var ErrInvalidToken = errors.New("invalid or expired token")

// Manager issues and validates session and password reset tokens
type Manager struct {
	sessions   *database.SessionStore
	passwords  *database.PasswordStore
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// NewManager creates a new Manager. A nil clock uses time.Now.
func NewManager(sessions *database.SessionStore, passwords *database.PasswordStore, sessionTTL, resetTTL time.Duration, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		sessions:   sessions,
		passwords:  passwords,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		now:        now,
		logger:     logging.GetLogger("token-manager"),
	}
}

// SessionTTL returns how long issued sessions stay valid
func (m *Manager) SessionTTL() time.Duration {
	return m.sessionTTL
}

// IssueSession opens a new session for the user
func (m *Manager) IssueSession(ctx context.Context, userID string) (*database.Session, error) {
	now := m.now().UTC()
	session := &database.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	if err := m.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	m.logger.Debug().Str("user_id", userID).Time("expires_at", session.ExpiresAt).Msg("Session issued")
	return session, nil
}

// ValidateSession returns the active session with the given id
func (m *Manager) ValidateSession(ctx context.Context, id string) (*database.Session, error) {
	if id == "" {
		return nil, ErrInvalidToken
	}
	session, err := m.sessions.GetActiveSession(ctx, id, m.now())
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}
	return session, nil
}

// RevokeSession ends the session. Unknown ids are ignored.
func (m *Manager) RevokeSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.sessions.RevokeSession(ctx, id)
}

// IssueResetToken stores a new single-use password reset token for the user
func (m *Manager) IssueResetToken(ctx context.Context, userID string) (*database.ResetToken, error) {
	now := m.now().UTC()
	t := &database.ResetToken{
		UserID:    userID,
		Token:     newResetToken(),
		ExpiresAt: now.Add(m.resetTTL),
		CreatedAt: now,
	}
	if err := m.passwords.SaveResetToken(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to issue reset token: %w", err)
	}
	m.logger.Debug().Str("user_id", userID).Time("expires_at", t.ExpiresAt).Msg("Reset token issued")
	return t, nil
}

// LookupResetToken returns the reset token if it can still be used
func (m *Manager) LookupResetToken(ctx context.Context, token string) (*database.ResetToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	t, err := m.passwords.GetUsableResetToken(ctx, token, m.now())
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}
	return t, nil
}

// ConsumeResetToken marks the token used and stores the new password hash atomically
func (m *Manager) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*database.ResetToken, error) {
	t, err := m.passwords.ResetPassword(ctx, token, passwordHash, m.now())
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}
	return t, nil
}

// newResetToken returns 64 hex characters drawn from two random UUIDs
func newResetToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
