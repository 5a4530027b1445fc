package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deliciousroute/delicious-route/internal/hours"
)

// testNow is the fixed clock used by store tests: Tuesday 2025-01-07 15:00 UTC
var testNow = time.Date(2025, time.January, 7, 15, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(NewDefaultOptions(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.MigrateDatabase(), "Failed to run migrations")
	db.SetClock(func() time.Time { return testNow })
	return db
}

func createTestUser(t *testing.T, db *DB, email, role string) *CreatedAccount {
	t.Helper()

	users, err := NewUserStore(db)
	require.NoError(t, err)
	account, err := users.CreateUser(context.Background(), NewUser{
		Email:        email,
		PasswordHash: "hash-" + email,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	})
	require.NoError(t, err)
	return account
}

func createTestVendor(t *testing.T, db *DB, id, name string, week hours.WeeklyHours) *Vendor {
	t.Helper()

	vendors, err := NewVendorStore(db)
	require.NoError(t, err)
	v := &Vendor{ID: id, Name: name, Cuisine: "Tacos", City: "Austin, TX"}
	loc := &Location{City: "Austin, TX", Lat: 30.2672, Lng: -97.7431, HasCoords: true}
	require.NoError(t, vendors.CreateVendor(context.Background(), v, loc, week))
	return v
}
