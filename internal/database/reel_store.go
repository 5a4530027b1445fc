package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/logging"
)

const (
	// ReelStatusPublished is the only status listed publicly
	ReelStatusPublished = "published"
	// MaxListedReels caps the public reel feed
	MaxListedReels = 30
)

// ReelStore handles vendor reels
type ReelStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewReelStore creates a new reel store
func NewReelStore(db *DB) (*ReelStore, error) {
	return &ReelStore{db: db.Conn(), logger: logging.GetLogger("reel-store"), now: db.now}, nil
}

// ListRecentReels returns published reels created after since, newest first
func (s *ReelStore) ListRecentReels(ctx context.Context, since time.Time, limit int) ([]Reel, error) {
	if limit <= 0 || limit > MaxListedReels {
		limit = MaxListedReels
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			r.id, r.vendor_id, COALESCE(r.caption, ''), r.created_at, rm.video_url,
			COALESCE(v.name, ''), COALESCE(v.primary_region, ''),
			(SELECT COUNT(*) FROM reel_likes rl WHERE rl.reel_id = r.id),
			(SELECT COUNT(*) FROM reel_saves rs WHERE rs.reel_id = r.id)
		FROM reels r
		JOIN reel_media rm ON rm.reel_id = r.id
		JOIN vendors v ON v.id = r.vendor_id
		WHERE r.status = ?
		  AND r.created_at > ?
		ORDER BY r.created_at DESC
		LIMIT ?
	`, ReelStatusPublished, FormatTime(since), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query reels")
		return nil, fmt.Errorf("failed to query reels: %w", err)
	}
	defer rows.Close()

	reels := []Reel{}
	for rows.Next() {
		var (
			r       Reel
			created string
		)
		if err := rows.Scan(&r.ID, &r.VendorID, &r.Caption, &created, &r.VideoURL,
			&r.VendorName, &r.City, &r.Likes, &r.Saves); err != nil {
			return nil, fmt.Errorf("failed to scan reel: %w", err)
		}
		if r.CreatedAt, err = ParseTime(created); err != nil {
			return nil, err
		}
		reels = append(reels, r)
	}
	return reels, rows.Err()
}

// ReplaceActiveReel deletes the vendor's existing reels and publishes a new one.
// A vendor has at most one reel at a time.
func (s *ReelStore) ReplaceActiveReel(ctx context.Context, vendorID, userID, caption, videoURL string) (*Reel, error) {
	now := s.now().UTC()
	reel := &Reel{
		ID:        uuid.NewString(),
		VendorID:  vendorID,
		Caption:   caption,
		VideoURL:  videoURL,
		CreatedAt: now,
	}

	err := withTransaction(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reels WHERE vendor_id = ?`, vendorID); err != nil {
			return fmt.Errorf("failed to remove previous reels: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reels (id, vendor_id, created_by_user_id, caption, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, reel.ID, vendorID, nullString(userID), nullString(caption), ReelStatusPublished, FormatTime(now)); err != nil {
			return fmt.Errorf("failed to insert reel: %w", classify(err))
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reel_media (id, reel_id, video_url) VALUES (?, ?, ?)
		`, uuid.NewString(), reel.ID, videoURL); err != nil {
			return fmt.Errorf("failed to insert reel media: %w", err)
		}
		return tx.QueryRowContext(ctx, `
			SELECT COALESCE(name, ''), COALESCE(primary_region, '') FROM vendors WHERE id = ?
		`, vendorID).Scan(&reel.VendorName, &reel.City)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("vendor_id", vendorID).Msg("Failed to replace reel")
		return nil, err
	}

	s.logger.Info().Str("vendor_id", vendorID).Str("reel_id", reel.ID).Msg("Reel published")
	return reel, nil
}

// DeleteReelsBefore removes reels created before cutoff
func (s *ReelStore) DeleteReelsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reels WHERE created_at < ?`, FormatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reels: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
