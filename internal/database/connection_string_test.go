package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildConnectionString_PathHandling(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "plain path",
			path:     "test.db",
			expected: "file:test.db?_pragma=busy_timeout(0)&_pragma=foreign_keys(0)",
		},
		{
			name:     "path with file prefix",
			path:     "file:test.db",
			expected: "file:test.db?_pragma=busy_timeout(0)&_pragma=foreign_keys(0)",
		},
		{
			name:     "memory database",
			path:     ":memory:",
			expected: "file::memory:?_pragma=busy_timeout(0)&_pragma=foreign_keys(0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := SQLiteOptions{Path: tt.path}
			assert.Equal(t, tt.expected, opts.buildConnectionString())
		})
	}
}

func TestPragmas_Order(t *testing.T) {
	opts := NewDefaultOptions("test.db")

	var names []string
	for _, p := range opts.pragmas() {
		names = append(names, p.name)
	}
	assert.Equal(t, []string{"busy_timeout", "journal_mode", "foreign_keys", "synchronous", "cache_size"}, names)
}

func TestBuildConnectionString_ComplexCombination(t *testing.T) {
	opts := SQLiteOptions{
		Path:                   "complex.db",
		Mode:                   "ro",
		Journal:                JournalWAL,
		ForeignKeys:            true,
		BusyTimeout:            10000,
		LockingMode:            LockingExclusive,
		AutoVacuum:             "incremental",
		CaseSensitiveLike:      true,
		RecursiveTriggers:      true,
		SecureDelete:           "FAST",
		IgnoreCheckConstraints: true,
		QueryOnly:              true,
		TxLock:                 TxLockExclusive,
	}

	result := opts.buildConnectionString()
	assert.Contains(t, result, "_pragma=locking_mode(EXCLUSIVE)")
	assert.Contains(t, result, "_pragma=auto_vacuum(incremental)")
	assert.Contains(t, result, "_pragma=case_sensitive_like(1)")
	assert.Contains(t, result, "_pragma=recursive_triggers(1)")
	assert.Contains(t, result, "_pragma=secure_delete(FAST)")
	assert.Contains(t, result, "_pragma=ignore_check_constraints(1)")
	assert.Contains(t, result, "_pragma=query_only(1)")
	assert.Contains(t, result, "_txlock=exclusive")
	assert.Contains(t, result, "mode=ro")
	assert.NotContains(t, result, "cache=")
	assert.NotContains(t, result, "synchronous")
}
