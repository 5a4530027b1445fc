package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/deliciousroute/delicious-route/internal/auth"
	"github.com/deliciousroute/delicious-route/internal/config"
	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/geocode"
	"github.com/deliciousroute/delicious-route/internal/hours"
	"github.com/deliciousroute/delicious-route/internal/token"
)

const (
	testPassword   = "Tacos4Ever!"
	testCookieName = "dr_session"
)

// testNow is Wednesday 2025-05-07 12:30 UTC
var testNow = time.Date(2025, time.May, 7, 12, 30, 0, 0, time.UTC)

// lunchHours is open 11:00-15:00 every day, so vendors are open at testNow
var lunchHours = hours.WeeklyHours{
	0: {Open: "11:00", Close: "15:00"},
	1: {Open: "11:00", Close: "15:00"},
	2: {Open: "11:00", Close: "15:00"},
	3: {Open: "11:00", Close: "15:00"},
	4: {Open: "11:00", Close: "15:00"},
	5: {Open: "11:00", Close: "15:00"},
	6: {Open: "11:00", Close: "15:00"},
}

// dinnerHours is open 17:00-22:00 on Wednesday only, so vendors are closed at testNow
var dinnerHours = hours.WeeklyHours{3: {Open: "17:00", Close: "22:00"}}

type stubGeocoder struct {
	city string
	err  error
}

func (s stubGeocoder) ReverseCity(context.Context, float64, float64) (string, error) {
	return s.city, s.err
}

type testServer struct {
	now     *time.Time
	db      *database.DB
	stores  *Stores
	base    *BaseHandler
	health  *HealthHandler
	handler http.Handler
}

type serverOption func(*serverConfig)

type serverConfig struct {
	geocoder geocode.Geocoder
	limits   config.RateLimitConfig
}

func withGeocoder(g geocode.Geocoder) serverOption {
	return func(c *serverConfig) { c.geocoder = g }
}

func withRateLimit(perMinute, burst int) serverOption {
	return func(c *serverConfig) {
		c.limits = config.RateLimitConfig{ForgotPasswordPerMinute: perMinute, Burst: burst}
	}
}

func setupTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := serverConfig{
		geocoder: stubGeocoder{city: "Austin"},
		limits:   config.RateLimitConfig{ForgotPasswordPerMinute: 60, Burst: 60},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := database.New(database.NewDefaultOptions(filepath.Join(t.TempDir(), "handlers.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateDatabase())

	now := testNow
	clock := func() time.Time { return now }
	db.SetClock(clock)

	stores, err := NewStores(db)
	require.NoError(t, err)
	sessions, err := database.NewSessionStore(db)
	require.NoError(t, err)
	passwords, err := database.NewPasswordStore(db)
	require.NoError(t, err)

	tokens := token.NewManager(sessions, passwords, time.Hour, 2*time.Hour, clock)
	authService := auth.NewService(stores.Users, passwords, tokens, auth.NewHasher(bcrypt.MinCost), 3, "https://deliciousroute.test")

	base := NewBaseHandler(stores, authService, hours.NewEvaluator(time.UTC, clock), config.SessionConfig{CookieName: testCookieName})
	mux := http.NewServeMux()
	health := NewHealthHandler(base)
	health.RegisterRoutes(mux)
	NewVendorHandler(base).RegisterRoutes(mux)
	NewReactionHandler(base).RegisterRoutes(mux)
	NewReelHandler(base).RegisterRoutes(mux)
	NewEventHandler(base).RegisterRoutes(mux)
	NewAuthHandler(base, cfg.limits).RegisterRoutes(mux)
	NewVendorProfileHandler(base).RegisterRoutes(mux)
	NewGPSHandler(base, cfg.geocoder).RegisterRoutes(mux)
	NewMenuHandler(base).RegisterRoutes(mux)
	health.SetReady(true)

	return &testServer{
		now:     &now,
		db:      db,
		stores:  stores,
		base:    base,
		health:  health,
		handler: health.Gate(base.WithSession(mux)),
	}
}

// do sends a request; body is JSON encoded unless it is a string
func (s *testServer) do(t *testing.T, method, path string, body any, session string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: session})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// signup creates an account through the API and returns its session id
func (s *testServer) signup(t *testing.T, email, accountType string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"firstName":   "Rosa",
		"lastName":    "Diaz",
		"email":       email,
		"password":    testPassword,
		"accountType": accountType,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

// signupVendor creates a vendor account and gives its vendor a primary
// location with the given hours
func (s *testServer) signupVendor(t *testing.T, email string, week hours.WeeklyHours) (string, *database.VendorSummary) {
	t.Helper()

	session := s.signup(t, email, auth.AccountVendor)
	user, err := s.stores.Users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	vendor, err := s.stores.Vendors.GetOwnedVendor(context.Background(), user.ID)
	require.NoError(t, err)

	_, err = s.stores.Vendors.UpdateProfile(context.Background(), vendor, user.ID, database.ProfileUpdate{
		Name:        vendor.Name,
		Cuisine:     "Tacos",
		City:        "Austin, TX",
		Coordinates: &database.Coordinates{Lat: 30.2672, Lng: -97.7431},
		Hours:       week,
	})
	require.NoError(t, err)

	vendor, err = s.stores.Vendors.GetOwnedVendor(context.Background(), user.ID)
	require.NoError(t, err)
	return session, vendor
}

// createVendor inserts a vendor one minute after the previous one so that
// newest-first ordering is deterministic
func (s *testServer) createVendor(t *testing.T, id, name string, lat, lng float64, week hours.WeeklyHours) {
	t.Helper()
	*s.now = s.now.Add(time.Minute)
	v := &database.Vendor{ID: id, Name: name, Cuisine: "Tacos", City: "Austin, TX"}
	loc := &database.Location{City: "Austin, TX", Lat: lat, Lng: lng, HasCoords: true}
	require.NoError(t, s.stores.Vendors.CreateVendor(context.Background(), v, loc, week))
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookieName && c.Value != "" {
			return c.Value
		}
	}
	t.Fatalf("no %s cookie in response", testCookieName)
	return ""
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&body), rec.Body.String())
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	code, _ := decodeBody(t, rec)["error"].(string)
	return code
}

// userID resolves a session through /api/auth/me
func (s *testServer) userID(t *testing.T, session string) string {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/auth/me", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	return decodeBody(t, rec)["user"].(map[string]any)["id"].(string)
}
