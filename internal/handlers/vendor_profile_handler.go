package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/geo"
	"github.com/deliciousroute/delicious-route/internal/hours"
	"github.com/deliciousroute/delicious-route/internal/signals"
)

// VendorProfileHandler lets vendor owners view and edit their profile
type VendorProfileHandler struct {
	*BaseHandler
}

// NewVendorProfileHandler creates a new vendor profile handler
func NewVendorProfileHandler(baseHandler *BaseHandler) *VendorProfileHandler {
	return &VendorProfileHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers vendor profile routes
func (h *VendorProfileHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "GET /api/vendor/profile", h.handleGetProfile)
	h.Handle(mux, "PUT /api/vendor/profile", h.handleUpdateProfile)
}

// HoursEntry is one weekday of the editable hours table
type HoursEntry struct {
	Day   int    `json:"day"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// ProfileLocation is the owner's view of the primary location
type ProfileLocation struct {
	Label        string     `json:"label"`
	City         string     `json:"city"`
	Lat          *float64   `json:"lat"`
	Lng          *float64   `json:"lng"`
	GPSUpdatedAt *time.Time `json:"gpsUpdatedAt,omitempty"`
}

// VendorProfile is the owner's view of their vendor
type VendorProfile struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Cuisine           string           `json:"cuisine"`
	City              string           `json:"city"`
	Tagline           string           `json:"tagline"`
	HoursText         string           `json:"hoursText"`
	WebsiteURL        string           `json:"websiteUrl"`
	InstagramURL      string           `json:"instagramUrl"`
	FacebookURL       string           `json:"facebookUrl"`
	TikTokURL         string           `json:"tiktokUrl"`
	XURL              string           `json:"xUrl"`
	Location          *ProfileLocation `json:"location"`
	Hours             []HoursEntry     `json:"hours"`
	ConsolidatedHours *string          `json:"consolidatedHours"`
	IsOpenNow         bool             `json:"isOpenNow"`
}

// UpdateProfileRequest is the body of PUT /api/vendor/profile. Omitted
// fields keep their stored value; a nil Hours leaves the hours untouched.
type UpdateProfileRequest struct {
	Name         *string       `json:"name"`
	Description  *string       `json:"description"`
	Cuisine      *string       `json:"cuisine"`
	City         *string       `json:"city"`
	Tagline      *string       `json:"tagline"`
	HoursText    *string       `json:"hoursText"`
	WebsiteURL   *string       `json:"websiteUrl"`
	InstagramURL *string       `json:"instagramUrl"`
	FacebookURL  *string       `json:"facebookUrl"`
	TikTokURL    *string       `json:"tiktokUrl"`
	XURL         *string       `json:"xUrl"`
	Lat          *float64      `json:"lat"`
	Lng          *float64      `json:"lng"`
	Hours        *[]HoursEntry `json:"hours"`
}

// profileFields is the merged update checked by the validator
type profileFields struct {
	Name         string `validate:"max=120"`
	Description  string `validate:"max=2000"`
	Cuisine      string `validate:"max=120"`
	City         string `validate:"max=120"`
	Tagline      string `validate:"max=200"`
	HoursText    string `validate:"max=200"`
	WebsiteURL   string `validate:"omitempty,url,max=2048"`
	InstagramURL string `validate:"omitempty,url,max=2048"`
	FacebookURL  string `validate:"omitempty,url,max=2048"`
	TikTokURL    string `validate:"omitempty,url,max=2048"`
	XURL         string `validate:"omitempty,url,max=2048"`
}

func newVendorProfile(v *database.VendorSummary, open bool) VendorProfile {
	profile := VendorProfile{
		ID:           v.ID,
		Name:         v.Name,
		Description:  v.Description,
		Cuisine:      v.Cuisine,
		City:         v.City,
		Tagline:      v.Tagline,
		HoursText:    v.HoursText,
		WebsiteURL:   v.WebsiteURL,
		InstagramURL: v.InstagramURL,
		FacebookURL:  v.FacebookURL,
		TikTokURL:    v.TikTokURL,
		XURL:         v.XURL,
		Hours:        hoursEntries(v.Hours),
		IsOpenNow:    open,
	}
	if loc := v.Location; loc != nil {
		profile.Location = &ProfileLocation{Label: loc.Label, City: loc.City, GPSUpdatedAt: loc.GPSUpdatedAt}
		if loc.HasCoords {
			lat, lng := loc.Lat, loc.Lng
			profile.Location.Lat, profile.Location.Lng = &lat, &lng
		}
	}
	if consolidated, ok := hours.ConsolidatedHours(v.Hours, v.HoursText); ok {
		profile.ConsolidatedHours = &consolidated
	}
	return profile
}

func hoursEntries(week hours.WeeklyHours) []HoursEntry {
	entries := make([]HoursEntry, 0, len(week))
	for day, h := range week {
		entries = append(entries, HoursEntry{Day: day, Open: h.Open, Close: h.Close})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Day < entries[j].Day })
	return entries
}

// parseHours validates the submitted table. A day with both times empty is
// closed and omitted. Every problem is reported, not just the first.
func parseHours(entries []HoursEntry) (hours.WeeklyHours, error) {
	var result *multierror.Error
	week := make(hours.WeeklyHours, len(entries))
	seen := make(map[int]bool, len(entries))

	for _, e := range entries {
		if !hours.ValidDay(e.Day) {
			result = multierror.Append(result, fmt.Errorf("day %d is not between 0 (Sunday) and 6 (Saturday)", e.Day))
			continue
		}
		name := constants.DayName(e.Day)
		if seen[e.Day] {
			result = multierror.Append(result, fmt.Errorf("%s is listed more than once", name))
			continue
		}
		seen[e.Day] = true

		rawOpen, rawClose := strings.TrimSpace(e.Open), strings.TrimSpace(e.Close)
		if rawOpen == "" && rawClose == "" {
			continue
		}
		open, closing := hours.Normalize(rawOpen), hours.Normalize(rawClose)
		if open == "" {
			result = multierror.Append(result, fmt.Errorf("%s opening time %q must be HH:MM", name, e.Open))
		}
		if closing == "" {
			result = multierror.Append(result, fmt.Errorf("%s closing time %q must be HH:MM", name, e.Close))
		}
		if open != "" && closing != "" {
			week[e.Day] = hours.DayHours{Open: open, Close: closing}
		}
	}
	return week, result.ErrorOrNil()
}

func pick(value *string, current string) string {
	if value == nil {
		return current
	}
	return strings.TrimSpace(*value)
}

func (h *VendorProfileHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleGetProfile").Logger()
	_, vendor := h.requireVendor(w, r, handlerLogger)
	if vendor == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"vendor": newVendorProfile(vendor, h.Evaluator.IsOpenNow(vendor.Hours))})
}

func (h *VendorProfileHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleUpdateProfile").Logger()
	user, vendor := h.requireVendor(w, r, handlerLogger)
	if vendor == nil {
		return
	}

	var req UpdateProfileRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	fields := profileFields{
		Name:         pick(req.Name, vendor.Name),
		Description:  pick(req.Description, vendor.Description),
		Cuisine:      pick(req.Cuisine, vendor.Cuisine),
		City:         pick(req.City, vendor.City),
		Tagline:      pick(req.Tagline, vendor.Tagline),
		HoursText:    pick(req.HoursText, vendor.HoursText),
		WebsiteURL:   pick(req.WebsiteURL, vendor.WebsiteURL),
		InstagramURL: pick(req.InstagramURL, vendor.InstagramURL),
		FacebookURL:  pick(req.FacebookURL, vendor.FacebookURL),
		TikTokURL:    pick(req.TikTokURL, vendor.TikTokURL),
		XURL:         pick(req.XURL, vendor.XURL),
	}
	if !h.validateStruct(w, fields) {
		return
	}

	update := database.ProfileUpdate{
		Name:         fields.Name,
		Description:  fields.Description,
		Cuisine:      fields.Cuisine,
		City:         fields.City,
		Tagline:      fields.Tagline,
		HoursText:    fields.HoursText,
		WebsiteURL:   fields.WebsiteURL,
		InstagramURL: fields.InstagramURL,
		FacebookURL:  fields.FacebookURL,
		TikTokURL:    fields.TikTokURL,
		XURL:         fields.XURL,
	}

	if (req.Lat == nil) != (req.Lng == nil) {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidCoords)
		return
	}
	if req.Lat != nil {
		if !geo.ValidCoords(*req.Lat, *req.Lng) {
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidCoords)
			return
		}
		update.Coordinates = &database.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
	}

	if req.Hours != nil {
		week, err := parseHours(*req.Hours)
		if err != nil {
			details := []string{err.Error()}
			if merr, ok := err.(*multierror.Error); ok {
				details = details[:0]
				for _, e := range merr.Errors {
					details = append(details, e.Error())
				}
			}
			h.writeErrorWith(w, http.StatusBadRequest, ErrCodeInvalidHours, map[string]any{"details": details})
			return
		}
		update.Hours = week
	}

	events, err := h.Vendors.UpdateProfile(r.Context(), vendor, user.ID, update)
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to update vendor profile")
		return
	}

	changes := make([]string, 0, len(events))
	for _, ev := range events {
		changes = append(changes, ev.EventType)
	}
	if len(changes) > 0 {
		signals.EmitVendorProfileChanged(r.Context(), signals.VendorProfileChangedData{
			VendorID:   vendor.ID,
			VendorName: update.Name,
			UserID:     user.ID,
			Email:      user.Email,
			Changes:    changes,
		})
	}

	updated, err := h.Vendors.GetVendor(r.Context(), vendor.ID)
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to reload vendor profile")
		return
	}
	handlerLogger.Info().Str("vendor_id", vendor.ID).Strs("changes", changes).Msg("Vendor profile saved")
	h.writeJSON(w, http.StatusOK, map[string]any{
		"vendor":  newVendorProfile(updated, h.Evaluator.IsOpenNow(updated.Hours)),
		"changes": changes,
	})
}
