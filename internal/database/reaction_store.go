package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/logging"
)

// ReactionKind identifies one of the per-user toggles
type ReactionKind string

const (
	ReactionFavorite   ReactionKind = "favorite"
	ReactionVendorLike ReactionKind = "vendor_like"
	ReactionVendorSave ReactionKind = "vendor_save"
	ReactionReelLike   ReactionKind = "reel_like"
	ReactionReelSave   ReactionKind = "reel_save"
)

type reactionTable struct {
	table  string
	column string
}

// Table and column names are fixed here and never taken from input.
var reactionTables = map[ReactionKind]reactionTable{
	ReactionFavorite:   {table: "favorites", column: "vendor_id"},
	ReactionVendorLike: {table: "vendor_likes", column: "vendor_id"},
	ReactionVendorSave: {table: "vendor_saves", column: "vendor_id"},
	ReactionReelLike:   {table: "reel_likes", column: "reel_id"},
	ReactionReelSave:   {table: "reel_saves", column: "reel_id"},
}

// ReactionStore handles favorites, likes and saves
type ReactionStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewReactionStore creates a new reaction store
func NewReactionStore(db *DB) (*ReactionStore, error) {
	return &ReactionStore{db: db.Conn(), logger: logging.GetLogger("reaction-store"), now: db.now}, nil
}

// Toggle flips the user's reaction on the target and returns the new state
// with the target's total count. An unknown target yields ErrNotFound.
func (s *ReactionStore) Toggle(ctx context.Context, kind ReactionKind, userID, targetID string) (ToggleResult, error) {
	tbl, ok := reactionTables[kind]
	if !ok {
		return ToggleResult{}, fmt.Errorf("unknown reaction kind: %s", kind)
	}

	var result ToggleResult
	err := withTransaction(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND %s = ?`, tbl.table, tbl.column),
			userID, targetID)
		if err != nil {
			return fmt.Errorf("failed to remove %s: %w", kind, err)
		}

		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (user_id, %s, created_at) VALUES (?, ?, ?)`, tbl.table, tbl.column),
				userID, targetID, FormatTime(s.now())); err != nil {
				return fmt.Errorf("failed to add %s: %w", kind, classify(err))
			}
			result.Active = true
		}

		if err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, tbl.table, tbl.column),
			targetID).Scan(&result.Count); err != nil {
			return fmt.Errorf("failed to count %s: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}

	s.logger.Debug().
		Str("kind", string(kind)).
		Str("user_id", userID).
		Str("target_id", targetID).
		Bool("active", result.Active).
		Int("count", result.Count).
		Msg("Reaction toggled")
	return result, nil
}

// IsActive reports whether the user currently has the reaction on the target
func (s *ReactionStore) IsActive(ctx context.Context, kind ReactionKind, userID, targetID string) (bool, error) {
	tbl, ok := reactionTables[kind]
	if !ok {
		return false, fmt.Errorf("unknown reaction kind: %s", kind)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = ? AND %s = ?`, tbl.table, tbl.column),
		userID, targetID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", kind, err)
	}
	return n > 0, nil
}
