package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/signals"
)

func TestGPSCheckIn(t *testing.T) {
	s := setupTestServer(t, withGeocoder(stubGeocoder{city: "Round Rock"}))
	session, vendor := s.signupVendor(t, "owner@example.com", lunchHours)

	var mu sync.Mutex
	var updates []signals.VendorLocationUpdatedData
	signals.OnVendorLocationUpdated(func(_ context.Context, d signals.VendorLocationUpdatedData) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, d)
	}, "gps-handler-test")
	t.Cleanup(func() { signals.RemoveListeners("gps-handler-test") })

	rec := s.do(t, http.MethodPost, "/api/vendor/gps", map[string]any{"lat": 30.5083, "lng": -97.6789}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Round Rock", body["city"])
	assert.Equal(t, testNow.Format(time.RFC3339), body["updatedAt"])

	stored, err := s.stores.Vendors.GetVendor(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.5083, stored.Location.Lat)
	assert.Equal(t, -97.6789, stored.Location.Lng)
	assert.Equal(t, "Round Rock", stored.Location.City)

	events, err := s.stores.Vendors.ListAuditEvents(context.Background(), vendor.ID)
	require.NoError(t, err)
	var gps int
	for _, ev := range events {
		if ev.EventType == database.AuditGPSUpdated {
			gps++
		}
	}
	assert.Equal(t, 1, gps)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) == 1
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, vendor.ID, updates[0].VendorID)
	assert.Equal(t, "Round Rock", updates[0].City)
}

func TestGPSCheckIn_StringCoordinates(t *testing.T) {
	s := setupTestServer(t)
	session, _ := s.signupVendor(t, "owner@example.com", lunchHours)

	rec := s.do(t, http.MethodPost, "/api/vendor/gps", map[string]any{"lat": " 30.27 ", "lng": "-97.74"}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Austin", decodeBody(t, rec)["city"])
}

func TestGPSCheckIn_GeocoderFailureKeepsCity(t *testing.T) {
	s := setupTestServer(t, withGeocoder(stubGeocoder{err: errors.New("upstream timeout")}))
	session, _ := s.signupVendor(t, "owner@example.com", lunchHours)

	rec := s.do(t, http.MethodPost, "/api/vendor/gps", map[string]any{"lat": 30.27, "lng": -97.74}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Austin, TX", decodeBody(t, rec)["city"])
}

func TestGPSCheckIn_Rejected(t *testing.T) {
	s := setupTestServer(t)
	open, _ := s.signupVendor(t, "open@example.com", lunchHours)
	closed, _ := s.signupVendor(t, "closed@example.com", dinnerHours)
	noLocation := s.signup(t, "new@example.com", "vendor")
	customer := s.signup(t, "diner@example.com", "customer")

	tests := []struct {
		name    string
		session string
		body    map[string]any
		status  int
		code    string
	}{
		{"signed out", "", map[string]any{"lat": 30.27, "lng": -97.74}, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"missing longitude", open, map[string]any{"lat": 30.27}, http.StatusBadRequest, ErrCodeInvalidCoords},
		{"latitude out of range", open, map[string]any{"lat": 120, "lng": -97.74}, http.StatusBadRequest, ErrCodeInvalidCoords},
		{"non-numeric string", open, map[string]any{"lat": "north", "lng": -97.74}, http.StatusBadRequest, ErrCodeInvalidCoords},
		{"boolean", open, map[string]any{"lat": true, "lng": -97.74}, http.StatusBadRequest, ErrCodeInvalidCoords},
		{"vendor without a location", noLocation, map[string]any{"lat": 30.27, "lng": -97.74}, http.StatusBadRequest, ErrCodeNoLocation},
		{"customer has no vendor", customer, map[string]any{"lat": 30.27, "lng": -97.74}, http.StatusBadRequest, ErrCodeNoLocation},
		{"closed right now", closed, map[string]any{"lat": 30.27, "lng": -97.74}, http.StatusBadRequest, ErrCodeClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/vendor/gps", tt.body, tt.session)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestCoordValue(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{30.5, 30.5, true},
		{"-97.1", -97.1, true},
		{"", 0, false},
		{nil, 0, false},
		{false, 0, false},
	}
	for _, tt := range tests {
		got, ok := coordValue(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
