// Package metrics declares the Prometheus collectors exported on /metrics
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GPSUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delicious_route_gps_updates_total",
		Help: "GPS check-ins by result",
	}, []string{"result"})
	Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delicious_route_reactions_total",
		Help: "Favorite, like and save toggles by kind and resulting state",
	}, []string{"kind", "state"})
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delicious_route_auth_events_total",
		Help: "Account and password events",
	}, []string{"event"})
	Emails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delicious_route_emails_total",
		Help: "Transactional emails by kind and delivery status",
	}, []string{"kind", "status"})
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "delicious_route_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and method",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Auth event labels
const (
	EventSignup               = "signup"
	EventLogin                = "login"
	EventLoginFailed          = "login_failed"
	EventLogout               = "logout"
	EventResetRequested       = "password_reset_requested"
	EventPasswordReset        = "password_reset"
	EventPasswordChanged      = "password_changed"
	EventPasswordResetInvalid = "password_reset_invalid"
)

// Email delivery status labels
const (
	EmailSent    = "sent"
	EmailSkipped = "skipped"
	EmailFailed  = "failed"
)

// GPS check-in result labels
const (
	GPSUpdated       = "updated"
	GPSInvalidCoords = "invalid_coords"
	GPSClosed        = "closed"
	GPSNoLocation    = "no_location"
	GPSError         = "error"
)

// State returns the reactions state label for a toggle result
func State(active bool) string {
	if active {
		return "on"
	}
	return "off"
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
