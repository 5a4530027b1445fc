package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/atomic"

	"github.com/deliciousroute/delicious-route/internal/metrics"
)

// HealthHandler reports readiness and exposes metrics
type HealthHandler struct {
	*BaseHandler
	ready atomic.Bool
}

// NewHealthHandler creates a health handler that starts out not ready
func NewHealthHandler(baseHandler *BaseHandler) *HealthHandler {
	return &HealthHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers health and metrics routes
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

// SetReady marks the service as ready once migrations and seeding are done
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready reports whether the service accepts API traffic
func (h *HealthHandler) Ready() bool {
	return h.ready.Load()
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !h.Ready() {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Gate answers API requests with 503 until the service is ready
func (h *HealthHandler) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Ready() && strings.HasPrefix(r.URL.Path, "/api/") {
			h.writeError(w, http.StatusServiceUnavailable, ErrCodeNotReady)
			return
		}
		next.ServeHTTP(w, r)
	})
}
