package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/geo"
	"github.com/deliciousroute/delicious-route/internal/geocode"
	"github.com/deliciousroute/delicious-route/internal/metrics"
	"github.com/deliciousroute/delicious-route/internal/signals"
)

// geocodeTimeout bounds the best-effort city lookup of a check-in
const geocodeTimeout = 3 * time.Second

// GPSHandler handles live location check-ins from vendors
type GPSHandler struct {
	*BaseHandler
	geocoder geocode.Geocoder
}

// NewGPSHandler creates a new GPS handler
func NewGPSHandler(baseHandler *BaseHandler, geocoder geocode.Geocoder) *GPSHandler {
	if geocoder == nil {
		geocoder = geocode.Disabled{}
	}
	return &GPSHandler{BaseHandler: baseHandler, geocoder: geocoder}
}

// RegisterRoutes registers the GPS check-in route
func (h *GPSHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "POST /api/vendor/gps", h.handleCheckIn)
}

// GPSRequest is the body of POST /api/vendor/gps. Coordinates may be JSON
// numbers or numeric strings.
type GPSRequest struct {
	Lat any `json:"lat"`
	Lng any `json:"lng"`
}

// coordValue converts a decoded JSON value into a finite float
func coordValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func (h *GPSHandler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleCheckIn").Logger()
	user := h.requireUser(w, r)
	if user == nil {
		return
	}

	var req GPSRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	lat, latOK := coordValue(req.Lat)
	lng, lngOK := coordValue(req.Lng)
	if !latOK || !lngOK || !geo.ValidCoords(lat, lng) {
		metrics.GPSUpdates.WithLabelValues(metrics.GPSInvalidCoords).Inc()
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidCoords)
		return
	}

	vendor, err := h.Vendors.GetOwnedVendor(r.Context(), user.ID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && vendor.Location == nil) {
		metrics.GPSUpdates.WithLabelValues(metrics.GPSNoLocation).Inc()
		h.writeError(w, http.StatusBadRequest, ErrCodeNoLocation)
		return
	}
	if err != nil {
		metrics.GPSUpdates.WithLabelValues(metrics.GPSError).Inc()
		h.serverError(w, handlerLogger, err, "Failed to load owned vendor")
		return
	}

	if !h.Evaluator.IsOpenNow(vendor.Hours) {
		metrics.GPSUpdates.WithLabelValues(metrics.GPSClosed).Inc()
		h.writeError(w, http.StatusBadRequest, ErrCodeClosed)
		return
	}

	city := h.reverseCity(r.Context(), lat, lng)
	at := h.Evaluator.Now().UTC()
	loc := vendor.Location

	err = h.Vendors.UpdateGPS(r.Context(), loc.ID, lat, lng, city, at)
	if errors.Is(err, database.ErrNotFound) {
		metrics.GPSUpdates.WithLabelValues(metrics.GPSNoLocation).Inc()
		h.writeError(w, http.StatusBadRequest, ErrCodeNoLocation)
		return
	}
	if err != nil {
		metrics.GPSUpdates.WithLabelValues(metrics.GPSError).Inc()
		h.serverError(w, handlerLogger, err, "Failed to store GPS position")
		return
	}
	if city == "" {
		city = loc.City
	}

	if err := h.Vendors.RecordAuditEvent(r.Context(), vendor.ID, database.AuditEvent{
		EventType: database.AuditGPSUpdated,
		UserID:    user.ID,
		CreatedAt: at,
	}); err != nil {
		handlerLogger.Warn().Err(err).Msg("Failed to record GPS audit event")
	}

	signals.EmitVendorLocationUpdated(r.Context(), signals.VendorLocationUpdatedData{
		VendorID:   vendor.ID,
		LocationID: loc.ID,
		Lat:        lat,
		Lng:        lng,
		City:       city,
		UpdatedAt:  at,
	})
	metrics.GPSUpdates.WithLabelValues(metrics.GPSUpdated).Inc()

	handlerLogger.Info().Str("vendor_id", vendor.ID).Str("city", city).Msg("GPS check-in stored")
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "city": city, "updatedAt": at})
}

// reverseCity looks the city up, returning "" on any failure
func (h *GPSHandler) reverseCity(ctx context.Context, lat, lng float64) string {
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	city, err := h.geocoder.ReverseCity(ctx, lat, lng)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Reverse geocoding failed, keeping stored city")
		return ""
	}
	return city
}
