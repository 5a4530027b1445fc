package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deliciousroute/delicious-route/internal/constants"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	account := createTestUser(t, db, "session@example.com", constants.RoleConsumer)

	sessions, err := NewSessionStore(db)
	require.NoError(t, err)

	session := &Session{ID: "session-1", UserID: account.User.ID, ExpiresAt: testNow.Add(time.Hour)}
	require.NoError(t, sessions.SaveSession(ctx, session))
	assert.Equal(t, testNow, session.CreatedAt)

	got, err := sessions.GetActiveSession(ctx, "session-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, account.User.ID, got.UserID)
	assert.Equal(t, testNow.Add(time.Hour), got.ExpiresAt)

	// Expired at exactly ExpiresAt
	_, err = sessions.GetActiveSession(ctx, "session-1", testNow.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, sessions.RevokeSession(ctx, "session-1"))
	_, err = sessions.GetActiveSession(ctx, "session-1", testNow)
	assert.ErrorIs(t, err, ErrNotFound)

	// Revoking twice or revoking unknown sessions is harmless
	assert.NoError(t, sessions.RevokeSession(ctx, "session-1"))
	assert.NoError(t, sessions.RevokeSession(ctx, "unknown"))

	_, err = sessions.GetActiveSession(ctx, "unknown", testNow)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_SaveUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	sessions, err := NewSessionStore(db)
	require.NoError(t, err)

	err = sessions.SaveSession(context.Background(), &Session{ID: "s", UserID: "ghost", ExpiresAt: testNow.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_PurgeSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	account := createTestUser(t, db, "purge@example.com", constants.RoleConsumer)

	sessions, err := NewSessionStore(db)
	require.NoError(t, err)

	require.NoError(t, sessions.SaveSession(ctx, &Session{ID: "expired", UserID: account.User.ID, ExpiresAt: testNow.Add(-time.Minute)}))
	require.NoError(t, sessions.SaveSession(ctx, &Session{ID: "revoked", UserID: account.User.ID, ExpiresAt: testNow.Add(time.Hour)}))
	require.NoError(t, sessions.SaveSession(ctx, &Session{ID: "active", UserID: account.User.ID, ExpiresAt: testNow.Add(time.Hour)}))
	require.NoError(t, sessions.RevokeSession(ctx, "revoked"))

	n, err := sessions.PurgeSessions(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = sessions.GetActiveSession(ctx, "active", testNow)
	assert.NoError(t, err)
}
