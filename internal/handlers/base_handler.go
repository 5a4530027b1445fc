package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/auth"
	"github.com/deliciousroute/delicious-route/internal/config"
	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/hours"
	"github.com/deliciousroute/delicious-route/internal/logging"
	"github.com/deliciousroute/delicious-route/internal/metrics"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

type contextKey string

const userContextKey contextKey = "user"

// Stores groups the database stores used by the handlers
type Stores struct {
	Users     *database.UserStore
	Vendors   *database.VendorStore
	Reactions *database.ReactionStore
	Reels     *database.ReelStore
	Events    *database.EventStore
	Menus     *database.MenuStore
}

// NewStores creates every store on db
func NewStores(db *database.DB) (*Stores, error) {
	users, err := database.NewUserStore(db)
	if err != nil {
		return nil, err
	}
	vendors, err := database.NewVendorStore(db)
	if err != nil {
		return nil, err
	}
	reactions, err := database.NewReactionStore(db)
	if err != nil {
		return nil, err
	}
	reels, err := database.NewReelStore(db)
	if err != nil {
		return nil, err
	}
	events, err := database.NewEventStore(db)
	if err != nil {
		return nil, err
	}
	menus, err := database.NewMenuStore(db)
	if err != nil {
		return nil, err
	}
	return &Stores{Users: users, Vendors: vendors, Reactions: reactions, Reels: reels, Events: events, Menus: menus}, nil
}

// BaseHandler contains common handler functionality
type BaseHandler struct {
	*Stores
	Auth      *auth.Service
	Evaluator *hours.Evaluator
	Session   config.SessionConfig
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewBaseHandler creates a common base handler with shared components
func NewBaseHandler(stores *Stores, authService *auth.Service, evaluator *hours.Evaluator, session config.SessionConfig) *BaseHandler {
	return &BaseHandler{
		Stores:    stores,
		Auth:      authService,
		Evaluator: evaluator,
		Session:   session,
		validate:  validator.New(),
		logger:    logging.GetLogger("handlers"),
	}
}

// Handle registers fn on mux under pattern with access logging and latency metrics
func (h *BaseHandler) Handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	method, route, found := strings.Cut(pattern, " ")
	if !found {
		method, route = "ANY", pattern
	}
	mux.Handle(pattern, h.instrument(method, route, fn))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *BaseHandler) instrument(method, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		metrics.RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("Request handled")
	})
}

// WithSession resolves the session cookie to a user stored in the request context.
// Unknown or expired sessions continue anonymously.
func (h *BaseHandler) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(h.Session.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := h.Auth.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			h.logger.Debug().Err(err).Msg("Ignoring invalid session cookie")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

// CurrentUser returns the signed-in user, or nil
func CurrentUser(ctx context.Context) *database.User {
	user, _ := ctx.Value(userContextKey).(*database.User)
	return user
}

// requireUser writes 401 and returns nil when nobody is signed in
func (h *BaseHandler) requireUser(w http.ResponseWriter, r *http.Request) *database.User {
	user := CurrentUser(r.Context())
	if user == nil {
		h.writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized)
		return nil
	}
	return user
}

// requireVendor returns the signed-in vendor admin and the vendor they own.
// It writes the error response and returns nils otherwise.
func (h *BaseHandler) requireVendor(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (*database.User, *database.VendorSummary) {
	user := h.requireUser(w, r)
	if user == nil {
		return nil, nil
	}
	if !user.HasRole(constants.RoleVendorAdmin) {
		logger.Warn().Str("user_id", user.ID).Msg("Non-vendor account attempted a vendor action")
		h.writeError(w, http.StatusForbidden, ErrCodeForbidden)
		return nil, nil
	}
	vendor, err := h.Vendors.GetOwnedVendor(r.Context(), user.ID)
	if errors.Is(err, database.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, ErrCodeNoVendor)
		return nil, nil
	}
	if err != nil {
		h.serverError(w, logger, err, "Failed to load owned vendor")
		return nil, nil
	}
	return user, vendor
}

// decodeJSON decodes the request body into dst. An empty body leaves dst untouched.
func (h *BaseHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidJSON)
		return false
	}
	return true
}

// validateStruct runs the validator tags on v and writes 400 on failure
func (h *BaseHandler) validateStruct(w http.ResponseWriter, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidFields)
		return false
	}
	code := ErrCodeInvalidFields
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			code = ErrCodeMissingFields
		}
		fields = append(fields, fe.Field())
	}
	h.writeErrorWith(w, http.StatusBadRequest, code, map[string]any{"fields": fields})
	return false
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *BaseHandler) writeError(w http.ResponseWriter, status int, code string) {
	h.writeErrorWith(w, status, code, nil)
}

func (h *BaseHandler) writeErrorWith(w http.ResponseWriter, status int, code string, extra map[string]any) {
	body := map[string]any{"error": code, "message": GetErrorMessage(code)}
	for k, v := range extra {
		body[k] = v
	}
	h.writeJSON(w, status, body)
}

func (h *BaseHandler) serverError(w http.ResponseWriter, logger zerolog.Logger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	h.writeError(w, http.StatusInternalServerError, ErrCodeServerError)
}

func (h *BaseHandler) setSessionCookie(w http.ResponseWriter, session *database.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Session.CookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *BaseHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type userResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Roles       []string `json:"roles"`
}

func newUserResponse(u *database.User) userResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Roles:       roles,
	}
}
