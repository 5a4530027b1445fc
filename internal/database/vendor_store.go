package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/hours"
	"github.com/deliciousroute/delicious-route/internal/logging"
)

// Audit event types recorded for profile changes
const (
	AuditBasicInfoUpdated = "basic_info_updated"
	AuditLinksUpdated     = "links_updated"
	AuditLocationUpdated  = "location_updated"
	AuditHoursUpdated     = "hours_updated"
	AuditGPSUpdated       = "gps_updated"
	AuditReelUploaded     = "grub_reel_uploaded"
)

var auditDescriptions = map[string]string{
	AuditBasicInfoUpdated: "Updated basic truck profile details (name, cuisine, city, tagline, description).",
	AuditLinksUpdated:     "Updated website and/or social links.",
	AuditLocationUpdated:  "Updated primary location and/or GPS coordinates.",
	AuditHoursUpdated:     "Updated open hours schedule.",
	AuditGPSUpdated:       "Checked in a live GPS position.",
	AuditReelUploaded:     "Uploaded a new Grub Reel.",
}

// AuditDescription returns the human readable text of an audit event type
func AuditDescription(eventType string) string {
	return auditDescriptions[eventType]
}

// VendorFilter narrows ListVendors. Zero fields do not filter.
type VendorFilter struct {
	Query       string // case-insensitive substring of name or cuisine
	VendorID    string
	OwnerUserID string
	FavoritedBy string
}

// Coordinates is a latitude/longitude pair
type Coordinates struct {
	Lat float64
	Lng float64
}

// ProfileUpdate is the full set of editable profile fields. A nil Coordinates
// or Hours leaves the stored value untouched.
type ProfileUpdate struct {
	Name         string
	Description  string
	Cuisine      string
	City         string
	Tagline      string
	HoursText    string
	WebsiteURL   string
	InstagramURL string
	FacebookURL  string
	TikTokURL    string
	XURL         string
	Coordinates  *Coordinates
	Hours        hours.WeeklyHours
}

// VendorStore handles vendors, their primary location and hours
type VendorStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewVendorStore creates a new vendor store
func NewVendorStore(db *DB) (*VendorStore, error) {
	return &VendorStore{db: db.Conn(), logger: logging.GetLogger("vendor-store"), now: db.now}, nil
}

const vendorSelect = `
	SELECT
		v.id, v.owner_user_id, v.vendor_type, v.name, v.description, v.cuisine_style,
		v.primary_region, v.tagline, v.hours_text, v.website_url, v.instagram_url,
		v.facebook_url, v.tiktok_url, v.x_url, v.created_at, v.updated_at,
		vl.id, vl.label, vl.city, vl.lat, vl.lng, vl.gps_updated_at,
		(SELECT COUNT(*) FROM vendor_likes l WHERE l.vendor_id = v.id),
		(SELECT COUNT(*) FROM vendor_saves sv WHERE sv.vendor_id = v.id),
		(SELECT COUNT(*) FROM favorites f WHERE f.vendor_id = v.id),
		lh.day_of_week, lh.open_time, lh.close_time
	FROM vendors v
	LEFT JOIN vendor_locations vl ON vl.id = (
		SELECT pl.id FROM vendor_locations pl
		WHERE pl.vendor_id = v.id AND pl.is_primary = 1
		ORDER BY pl.created_at DESC
		LIMIT 1
	)
	LEFT JOIN location_hours lh ON lh.vendor_location_id = vl.id
`

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListVendors returns vendor summaries, newest first. Hours come from one
// joined query and are grouped per vendor; the first row seen for a day wins.
func (s *VendorStore) ListVendors(ctx context.Context, filter VendorFilter) ([]*VendorSummary, error) {
	var (
		conds []string
		args  []any
	)
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		conds = append(conds, `(lower(COALESCE(v.name, '')) LIKE ? ESCAPE '\' OR lower(COALESCE(v.cuisine_style, '')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.VendorID != "" {
		conds = append(conds, `v.id = ?`)
		args = append(args, filter.VendorID)
	}
	if filter.OwnerUserID != "" {
		conds = append(conds, `v.owner_user_id = ?`)
		args = append(args, filter.OwnerUserID)
	}
	if filter.FavoritedBy != "" {
		conds = append(conds, `v.id IN (SELECT fav.vendor_id FROM favorites fav WHERE fav.user_id = ?)`)
		args = append(args, filter.FavoritedBy)
	}

	query := vendorSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY v.created_at DESC, v.id, lh.day_of_week"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query vendors")
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	var (
		vendors  []*VendorSummary
		byID     = make(map[string]*VendorSummary)
		hourRows = make(map[string][]hours.Row)
	)
	for rows.Next() {
		var (
			v                          Vendor
			owner, name, desc, cuisine sql.NullString
			region, tagline, hoursTxt  sql.NullString
			web, insta, fb, tiktok, x  sql.NullString
			createdAt, updatedAt       string
			locID, locLabel, locCity   sql.NullString
			lat, lng                   sql.NullFloat64
			gpsAt                      sql.NullString
			likes, saves, favorites    int
			day                        sql.NullInt64
			openTime, closeTime        sql.NullString
		)
		if err := rows.Scan(
			&v.ID, &owner, &v.VendorType, &name, &desc, &cuisine,
			&region, &tagline, &hoursTxt, &web, &insta,
			&fb, &tiktok, &x, &createdAt, &updatedAt,
			&locID, &locLabel, &locCity, &lat, &lng, &gpsAt,
			&likes, &saves, &favorites,
			&day, &openTime, &closeTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vendor row: %w", err)
		}

		summary, seen := byID[v.ID]
		if !seen {
			v.OwnerUserID = owner.String
			v.Name = name.String
			v.Description = desc.String
			v.Cuisine = cuisine.String
			v.City = region.String
			v.Tagline = tagline.String
			v.HoursText = hoursTxt.String
			v.WebsiteURL = web.String
			v.InstagramURL = insta.String
			v.FacebookURL = fb.String
			v.TikTokURL = tiktok.String
			v.XURL = x.String
			if v.CreatedAt, err = ParseTime(createdAt); err != nil {
				return nil, err
			}
			if v.UpdatedAt, err = ParseTime(updatedAt); err != nil {
				return nil, err
			}

			summary = &VendorSummary{Vendor: v, Likes: likes, Saves: saves, Favorites: favorites}
			if locID.Valid {
				loc := &Location{
					ID:        locID.String,
					VendorID:  v.ID,
					Label:     locLabel.String,
					City:      locCity.String,
					Lat:       lat.Float64,
					Lng:       lng.Float64,
					HasCoords: lat.Valid && lng.Valid,
					IsPrimary: true,
				}
				if loc.GPSUpdatedAt, err = parseNullTime(gpsAt); err != nil {
					return nil, err
				}
				summary.Location = loc
			}
			byID[v.ID] = summary
			vendors = append(vendors, summary)
		}

		if day.Valid {
			hourRows[v.ID] = append(hourRows[v.ID], hours.Row{
				Day:   int(day.Int64),
				Open:  openTime.String,
				Close: closeTime.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vendors: %w", err)
	}

	for _, v := range vendors {
		v.Hours = hours.FromRows(hourRows[v.ID])
	}

	s.logger.Debug().Int("count", len(vendors)).Str("query", filter.Query).Msg("Listed vendors")
	return vendors, nil
}

// GetVendor returns one vendor summary or ErrNotFound
func (s *VendorStore) GetVendor(ctx context.Context, id string) (*VendorSummary, error) {
	vendors, err := s.ListVendors(ctx, VendorFilter{VendorID: id})
	if err != nil {
		return nil, err
	}
	if len(vendors) == 0 {
		return nil, ErrNotFound
	}
	return vendors[0], nil
}

// GetOwnedVendor returns the most recently created vendor owned by the user
func (s *VendorStore) GetOwnedVendor(ctx context.Context, userID string) (*VendorSummary, error) {
	vendors, err := s.ListVendors(ctx, VendorFilter{OwnerUserID: userID})
	if err != nil {
		return nil, err
	}
	if len(vendors) == 0 {
		return nil, ErrNotFound
	}
	return vendors[0], nil
}

// CreateVendor inserts a vendor and, when loc is given, its primary location and hours
func (s *VendorStore) CreateVendor(ctx context.Context, v *Vendor, loc *Location, week hours.WeeklyHours) error {
	now := s.now()
	return withTransaction(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := insertVendor(ctx, tx, v, now); err != nil {
			return err
		}
		if loc == nil {
			return nil
		}
		loc.VendorID = v.ID
		loc.IsPrimary = true
		if err := insertLocation(ctx, tx, loc, now); err != nil {
			return err
		}
		return replaceHours(ctx, tx, loc.ID, week)
	})
}

// UpdateProfile applies the update to the vendor described by current,
// records one audit event per kind of change and returns those events.
func (s *VendorStore) UpdateProfile(ctx context.Context, current *VendorSummary, userID string, upd ProfileUpdate) ([]AuditEvent, error) {
	now := s.now()
	var events []AuditEvent

	basicChanged := current.Name != upd.Name ||
		current.Description != upd.Description ||
		current.Cuisine != upd.Cuisine ||
		current.City != upd.City ||
		current.Tagline != upd.Tagline ||
		current.HoursText != upd.HoursText
	linksChanged := current.WebsiteURL != upd.WebsiteURL ||
		current.InstagramURL != upd.InstagramURL ||
		current.FacebookURL != upd.FacebookURL ||
		current.TikTokURL != upd.TikTokURL ||
		current.XURL != upd.XURL

	err := withTransaction(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE vendors SET
				name = ?, description = ?, cuisine_style = ?, primary_region = ?, tagline = ?,
				hours_text = ?, website_url = ?, instagram_url = ?, facebook_url = ?,
				tiktok_url = ?, x_url = ?, updated_at = ?
			WHERE id = ?
		`, nullString(upd.Name), nullString(upd.Description), nullString(upd.Cuisine),
			nullString(upd.City), nullString(upd.Tagline), nullString(upd.HoursText),
			nullString(upd.WebsiteURL), nullString(upd.InstagramURL), nullString(upd.FacebookURL),
			nullString(upd.TikTokURL), nullString(upd.XURL), FormatTime(now), current.ID); err != nil {
			return fmt.Errorf("failed to update vendor: %w", err)
		}

		locationChanged := false
		loc := current.Location
		if loc == nil {
			loc = &Location{VendorID: current.ID, Label: "Default location", City: upd.City, IsPrimary: true}
			if upd.Coordinates != nil {
				loc.Lat, loc.Lng, loc.HasCoords = upd.Coordinates.Lat, upd.Coordinates.Lng, true
			}
			if err := insertLocation(ctx, tx, loc, now); err != nil {
				return err
			}
			locationChanged = upd.Coordinates != nil
		} else if c := upd.Coordinates; c != nil && (!loc.HasCoords || loc.Lat != c.Lat || loc.Lng != c.Lng) {
			if _, err := tx.ExecContext(ctx, `
				UPDATE vendor_locations SET lat = ?, lng = ? WHERE id = ?
			`, c.Lat, c.Lng, loc.ID); err != nil {
				return fmt.Errorf("failed to update location: %w", err)
			}
			locationChanged = true
		}

		hoursChanged := false
		if upd.Hours != nil {
			hoursChanged = !upd.Hours.Equal(current.Hours)
			if err := replaceHours(ctx, tx, loc.ID, upd.Hours); err != nil {
				return err
			}
		}

		for _, change := range []struct {
			changed   bool
			eventType string
		}{
			{basicChanged, AuditBasicInfoUpdated},
			{linksChanged, AuditLinksUpdated},
			{locationChanged, AuditLocationUpdated},
			{hoursChanged, AuditHoursUpdated},
		} {
			if !change.changed {
				continue
			}
			ev := AuditEvent{EventType: change.eventType, Description: AuditDescription(change.eventType), UserID: userID, CreatedAt: now.UTC()}
			if err := insertAuditEvent(ctx, tx, current.ID, ev); err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("vendor_id", current.ID).Msg("Failed to update vendor profile")
		return nil, err
	}

	s.logger.Info().Str("vendor_id", current.ID).Int("changes", len(events)).Msg("Vendor profile updated")
	return events, nil
}

// UpdateGPS stores a live position for the location. An empty city keeps the stored one.
func (s *VendorStore) UpdateGPS(ctx context.Context, locationID string, lat, lng float64, city string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vendor_locations
		SET lat = ?, lng = ?, city = COALESCE(NULLIF(?, ''), city), gps_updated_at = ?
		WHERE id = ?
	`, lat, lng, city, FormatTime(at), locationID)
	if err != nil {
		s.logger.Error().Err(err).Str("location_id", locationID).Msg("Failed to update GPS position")
		return fmt.Errorf("failed to update GPS position: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordAuditEvent stores a single audit event for the vendor
func (s *VendorStore) RecordAuditEvent(ctx context.Context, vendorID string, ev AuditEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now().UTC()
	}
	if ev.Description == "" {
		ev.Description = AuditDescription(ev.EventType)
	}
	return insertAuditEvent(ctx, s.db, vendorID, ev)
}

// ListAuditEvents returns the vendor's audit trail, newest first
func (s *VendorStore) ListAuditEvents(ctx context.Context, vendorID string) ([]AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, description, COALESCE(user_id, ''), created_at
		FROM vendor_audit_events
		WHERE vendor_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			ev      AuditEvent
			created string
		)
		if err := rows.Scan(&ev.EventType, &ev.Description, &ev.UserID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if ev.CreatedAt, err = ParseTime(created); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountVendors returns the number of vendors
func (s *VendorStore) CountVendors(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vendors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vendors: %w", err)
	}
	return n, nil
}

func insertVendor(ctx context.Context, q querier, v *Vendor, now time.Time) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.VendorType == "" {
		v.VendorType = constants.VendorTypeFoodTruck
	}
	v.CreatedAt, v.UpdatedAt = now.UTC(), now.UTC()
	stamp := FormatTime(now)
	_, err := q.ExecContext(ctx, `
		INSERT INTO vendors (
			id, owner_user_id, vendor_type, name, description, cuisine_style, primary_region,
			tagline, hours_text, website_url, instagram_url, facebook_url, tiktok_url, x_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, nullString(v.OwnerUserID), v.VendorType, nullString(v.Name), nullString(v.Description),
		nullString(v.Cuisine), nullString(v.City), nullString(v.Tagline), nullString(v.HoursText),
		nullString(v.WebsiteURL), nullString(v.InstagramURL), nullString(v.FacebookURL),
		nullString(v.TikTokURL), nullString(v.XURL), stamp, stamp)
	if err != nil {
		return fmt.Errorf("failed to insert vendor: %w", classify(err))
	}
	return nil
}

func insertLocation(ctx context.Context, q querier, loc *Location, now time.Time) error {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	if loc.Label == "" {
		loc.Label = "Default location"
	}
	var lat, lng sql.NullFloat64
	if loc.HasCoords {
		lat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: loc.Lng, Valid: true}
	}
	primary := 0
	if loc.IsPrimary {
		primary = 1
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO vendor_locations (id, vendor_id, label, city, lat, lng, is_primary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, loc.ID, loc.VendorID, loc.Label, nullString(loc.City), lat, lng, primary, FormatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", classify(err))
	}
	return nil
}

// replaceHours swaps the location's hours for the complete pairs in week
func replaceHours(ctx context.Context, q querier, locationID string, week hours.WeeklyHours) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM location_hours WHERE vendor_location_id = ?`, locationID); err != nil {
		return fmt.Errorf("failed to clear hours: %w", err)
	}
	for day := 0; day < hours.DaysPerWeek; day++ {
		info, ok := week[day]
		if !ok || !info.Complete() {
			continue
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO location_hours (id, vendor_location_id, day_of_week, open_time, close_time)
			VALUES (?, ?, ?, ?, ?)
		`, uuid.NewString(), locationID, day, info.Open, info.Close); err != nil {
			return fmt.Errorf("failed to insert hours for day %d: %w", day, err)
		}
	}
	return nil
}

func insertAuditEvent(ctx context.Context, q querier, vendorID string, ev AuditEvent) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO vendor_audit_events (id, vendor_id, user_id, event_type, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), vendorID, nullString(ev.UserID), ev.EventType, ev.Description, FormatTime(ev.CreatedAt)); err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}
