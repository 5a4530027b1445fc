package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/deliciousroute/delicious-route/internal/auth"
	"github.com/deliciousroute/delicious-route/internal/config"
)

// limiterIdleTTL is how long an unused per-client limiter is kept
const limiterIdleTTL = 10 * time.Minute

// AuthHandler serves signup, login and the password lifecycle
type AuthHandler struct {
	*BaseHandler
	forgotLimiter *clientLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(baseHandler *BaseHandler, limits config.RateLimitConfig) *AuthHandler {
	perMinute := rate.Limit(float64(limits.ForgotPasswordPerMinute) / 60)
	return &AuthHandler{
		BaseHandler:   baseHandler,
		forgotLimiter: newClientLimiter(perMinute, limits.Burst),
	}
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "POST /api/auth/signup", h.handleSignup)
	h.Handle(mux, "POST /api/auth/login", h.handleLogin)
	h.Handle(mux, "POST /api/auth/logout", h.handleLogout)
	h.Handle(mux, "GET /api/auth/me", h.handleMe)
	h.Handle(mux, "POST /api/auth/forgot-password", h.handleForgotPassword)
	h.Handle(mux, "POST /api/auth/reset-password", h.handleResetPassword)
	h.Handle(mux, "POST /api/auth/change-password", h.handleChangePassword)
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type authResponse struct {
	User     userResponse `json:"user"`
	VendorID string       `json:"vendorId,omitempty"`
}

func (h *AuthHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleSignup").Logger()

	var req auth.SignupRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.Auth.Signup(r.Context(), req)
	if err != nil {
		h.writeAuthError(w, handlerLogger, err, ErrCodeInvalidFields)
		return
	}

	h.setSessionCookie(w, result.Session)
	h.writeJSON(w, http.StatusCreated, authResponse{User: newUserResponse(result.User), VendorID: result.VendorID})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleLogin").Logger()

	var req auth.LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		h.writeAuthError(w, handlerLogger, err, ErrCodeInvalidFields)
		return
	}

	h.setSessionCookie(w, result.Session)
	h.writeJSON(w, http.StatusOK, authResponse{User: newUserResponse(result.User)})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleLogout").Logger()

	if cookie, err := r.Cookie(h.Session.CookieName); err == nil && cookie.Value != "" {
		if err := h.Auth.Logout(r.Context(), cookie.Value); err != nil {
			handlerLogger.Warn().Err(err).Msg("Failed to revoke session")
		}
	}
	h.clearSessionCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, authResponse{User: newUserResponse(user)})
}

func (h *AuthHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleForgotPassword").Logger()

	if !h.forgotLimiter.Allow(clientIP(r), time.Now()) {
		handlerLogger.Warn().Str("client", clientIP(r)).Msg("Forgot password rate limit exceeded")
		h.writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited)
		return
	}

	var req ForgotPasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	var verr *auth.ValidationError
	err := h.Auth.RequestPasswordReset(r.Context(), req.Email)
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, ErrCodeMissingEmail)
		return
	case err != nil:
		h.serverError(w, handlerLogger, err, "Failed to issue reset token")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleResetPassword").Logger()

	var req ResetPasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeAuthError(w, handlerLogger, err, ErrCodeMissingFields)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleChangePassword").Logger()
	user := h.requireUser(w, r)
	if user == nil {
		return
	}

	var req auth.ChangePasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), user.ID, req); err != nil {
		h.writeAuthError(w, handlerLogger, err, ErrCodeMissingFields)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeAuthError maps auth service errors to responses. validationCode is
// used for request field errors.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, logger zerolog.Logger, err error, validationCode string) {
	var (
		verr   *auth.ValidationError
		policy *auth.PolicyError
	)
	switch {
	case errors.As(err, &verr):
		h.writeErrorWith(w, http.StatusBadRequest, validationCode, map[string]any{"fields": verr.Fields})
	case errors.As(err, &policy):
		h.writeErrorWith(w, http.StatusBadRequest, ErrCodeWeakPassword, map[string]any{
			"codes":  policy.Codes,
			"policy": auth.PolicySummary(h.Auth.HistoryLimit()),
		})
	case errors.Is(err, auth.ErrEmailTaken):
		h.writeError(w, http.StatusConflict, ErrCodeEmailTaken)
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials)
	case errors.Is(err, auth.ErrInvalidResetToken):
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidOrExpired)
	case errors.Is(err, auth.ErrPasswordReused):
		h.writeErrorWith(w, http.StatusBadRequest, ErrCodePasswordReused, map[string]any{
			"policy": auth.PolicySummary(h.Auth.HistoryLimit()),
		})
	case errors.Is(err, auth.ErrPasswordTooLong):
		h.writeError(w, http.StatusBadRequest, ErrCodePasswordTooLong)
	case errors.Is(err, auth.ErrPasswordMismatch):
		h.writeError(w, http.StatusBadRequest, ErrCodePasswordMismatch)
	case errors.Is(err, auth.ErrPasswordUnchanged):
		h.writeError(w, http.StatusBadRequest, ErrCodePasswordUnchanged)
	case errors.Is(err, auth.ErrInvalidCurrentPassword):
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidCurrentPassword)
	case errors.Is(err, auth.ErrNoPassword):
		h.writeError(w, http.StatusBadRequest, ErrCodeNoPassword)
	default:
		h.serverError(w, logger, err, "Auth request failed")
	}
}

// clientIP returns the first X-Forwarded-For hop, or the remote host
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client key
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*limiterEntry
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{limit: limit, burst: burst, clients: make(map[string]*limiterEntry)}
}

// Allow reports whether key may make a request at now. Idle entries are
// dropped on the way.
func (l *clientLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.clients {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.clients, k)
		}
	}

	e, ok := l.clients[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
