package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBClose(t *testing.T) {
	db, err := New(NewDefaultOptions(filepath.Join(t.TempDir(), "close.db")))
	require.NoError(t, err)
	require.NotNil(t, db)

	assert.NoError(t, db.Close())

	// Verify connection is closed by trying to ping
	assert.Error(t, db.conn.Ping())
}

// TestPragmaSettings verifies that DSN pragmas end up applied on the connection
func TestPragmaSettings(t *testing.T) {
	testCases := []struct {
		name            string
		opts            func(path string) SQLiteOptions
		expectedJournal string
		expectedBusy    int
		expectedCache   int
		expectedFK      int // 0 for false, 1 for true
		expectedSync    int // 0=OFF, 1=NORMAL, 2=FULL, 3=EXTRA
	}{
		{
			name:            "Default Options",
			opts:            NewDefaultOptions,
			expectedJournal: "wal",
			expectedBusy:    5000,
			expectedCache:   2000,
			expectedFK:      1,
			expectedSync:    1,
		},
		{
			name: "Custom Options",
			opts: func(path string) SQLiteOptions {
				return SQLiteOptions{
					Path:        path,
					Mode:        "rwc",
					Journal:     JournalDelete,
					BusyTimeout: 12345,
					CacheSize:   -4000,
					ForeignKeys: false,
					Synchronous: SynchronousFull,
				}
			},
			expectedJournal: "delete",
			expectedBusy:    12345,
			expectedCache:   -4000,
			expectedFK:      0,
			expectedSync:    2,
		},
		{
			name: "Memory Journal",
			opts: func(path string) SQLiteOptions {
				return SQLiteOptions{
					Path:        path,
					Mode:        "rwc",
					Journal:     JournalMemory,
					BusyTimeout: 999,
					CacheSize:   8000,
					ForeignKeys: true,
					Synchronous: SynchronousOff,
				}
			},
			expectedJournal: "memory",
			expectedBusy:    999,
			expectedCache:   8000,
			expectedFK:      1,
			expectedSync:    0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, err := New(tc.opts(filepath.Join(t.TempDir(), "pragma.db")))
			require.NoError(t, err, "Failed to create DB connection")
			defer db.Close()

			var journalMode string
			require.NoError(t, db.conn.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
			assert.Equal(t, tc.expectedJournal, journalMode, "Unexpected journal_mode")

			var busyTimeout int
			require.NoError(t, db.conn.QueryRow("PRAGMA busy_timeout;").Scan(&busyTimeout))
			assert.Equal(t, tc.expectedBusy, busyTimeout, "Unexpected busy_timeout")

			var cacheSize int
			require.NoError(t, db.conn.QueryRow("PRAGMA cache_size;").Scan(&cacheSize))
			assert.Equal(t, tc.expectedCache, cacheSize, "Unexpected cache_size")

			var foreignKeys int
			require.NoError(t, db.conn.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeys))
			assert.Equal(t, tc.expectedFK, foreignKeys, "Unexpected foreign_keys setting")

			var synchronous int
			require.NoError(t, db.conn.QueryRow("PRAGMA synchronous;").Scan(&synchronous))
			assert.Equal(t, tc.expectedSync, synchronous, "Unexpected synchronous setting")
		})
	}
}

func TestMigrateDatabase_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	// A second run finds nothing to apply
	require.NoError(t, db.MigrateDatabase())

	var count int
	require.NoError(t, db.conn.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'vendors', 'location_hours', 'reels')
	`).Scan(&count))
	assert.Equal(t, 4, count)
}

func TestTimeFormatting(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	ts := time.Date(2025, time.January, 6, 21, 30, 0, 123456789, loc)
	formatted := FormatTime(ts)
	assert.Equal(t, "2025-01-07T03:30:00.123456Z", formatted)

	parsed, err := ParseTime(formatted)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts.Truncate(time.Microsecond)))

	_, err = ParseTime("not a time")
	assert.Error(t, err)

	// Lexical order follows chronological order
	assert.Less(t, FormatTime(testNow), FormatTime(testNow.Add(time.Microsecond)))
	assert.Less(t, FormatTime(testNow.Add(9*time.Second)), FormatTime(testNow.Add(10*time.Second)))
}

// TestWithTransaction tests the transaction functionality
func TestWithTransaction(t *testing.T) {
	db := setupTestDB(t)

	insertRole := func(ctx context.Context, tx *sql.Tx, name string) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO roles (name) VALUES (?)`, name)
		return err
	}
	countRoles := func(t *testing.T) int {
		var n int
		require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM roles").Scan(&n))
		return n
	}

	t.Run("Successful Transaction", func(t *testing.T) {
		ctx := context.Background()
		before := countRoles(t)

		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			return insertRole(ctx, tx, "committed")
		})
		assert.NoError(t, err)
		assert.Equal(t, before+1, countRoles(t))
	})

	t.Run("Transaction Rollback on Error", func(t *testing.T) {
		ctx := context.Background()
		before := countRoles(t)

		testError := errors.New("test error")
		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := insertRole(ctx, tx, "rolled-back"); err != nil {
				return err
			}
			return testError
		})
		assert.Equal(t, testError, err)
		assert.Equal(t, before, countRoles(t))
	})

	t.Run("Transaction Rollback on Panic", func(t *testing.T) {
		ctx := context.Background()
		before := countRoles(t)

		assert.Panics(t, func() {
			_ = db.WithTransaction(ctx, func(tx *sql.Tx) error {
				if err := insertRole(ctx, tx, "panicked"); err != nil {
					return err
				}
				panic("test panic")
			})
		})
		assert.Equal(t, before, countRoles(t))
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			return insertRole(ctx, tx, "cancelled")
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "context")
	})
}

func TestClassify(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(sql.ErrNoRows), ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, classify(other))

	_, err := db.conn.ExecContext(ctx, `INSERT INTO roles (name) VALUES ('dup')`)
	require.NoError(t, err)
	_, err = db.conn.ExecContext(ctx, `INSERT INTO roles (name) VALUES ('dup')`)
	require.Error(t, err)
	assert.ErrorIs(t, classify(err), ErrConflict)

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO favorites (user_id, vendor_id, created_at) VALUES ('nobody', 'nothing', 'x')
	`)
	require.Error(t, err)
	assert.ErrorIs(t, classify(err), ErrNotFound)
}
