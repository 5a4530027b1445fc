package database

import (
	"fmt"
	"strconv"
	"strings"
)

// pragma is a single PRAGMA assignment carried in the DSN
type pragma struct {
	name  string
	value string
}

func boolPragma(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// pragmas lists the PRAGMAs derived from the options, in application order.
// busy_timeout and foreign_keys are always emitted; everything else only when set.
func (opts *SQLiteOptions) pragmas() []pragma {
	var ps []pragma
	add := func(name, value string) {
		ps = append(ps, pragma{name: name, value: value})
	}

	// busy_timeout first so later PRAGMAs wait on a locked database
	add("busy_timeout", strconv.Itoa(opts.BusyTimeout))
	if opts.Journal != "" {
		add("journal_mode", string(opts.Journal))
	}
	add("foreign_keys", boolPragma(opts.ForeignKeys))
	if opts.Synchronous != "" {
		add("synchronous", string(opts.Synchronous))
	}
	if opts.CacheSize != 0 {
		add("cache_size", strconv.Itoa(opts.CacheSize))
	}
	if opts.LockingMode != "" {
		add("locking_mode", string(opts.LockingMode))
	}
	if opts.AutoVacuum != "" {
		add("auto_vacuum", opts.AutoVacuum)
	}
	if opts.CaseSensitiveLike {
		add("case_sensitive_like", "1")
	}
	if opts.RecursiveTriggers {
		add("recursive_triggers", "1")
	}
	if opts.SecureDelete != "" {
		add("secure_delete", opts.SecureDelete)
	}
	if opts.IgnoreCheckConstraints {
		add("ignore_check_constraints", "1")
	}
	if opts.QueryOnly {
		add("query_only", "1")
	}
	return ps
}

// buildConnectionString generates a modernc SQLite DSN from options
func (opts *SQLiteOptions) buildConnectionString() string {
	var params []string

	for _, p := range opts.pragmas() {
		params = append(params, fmt.Sprintf("_pragma=%s(%s)", p.name, p.value))
	}
	if opts.TxLock != "" {
		params = append(params, "_txlock="+string(opts.TxLock))
	}
	if opts.Cache != "" {
		params = append(params, "cache="+string(opts.Cache))
	}
	if opts.Mode != "" {
		params = append(params, "mode="+opts.Mode)
	}

	// Build the final connection string
	connStr := opts.Path
	if !strings.HasPrefix(connStr, "file:") {
		connStr = "file:" + connStr
	}
	if len(params) > 0 {
		connStr += "?" + strings.Join(params, "&")
	}

	return connStr
}
