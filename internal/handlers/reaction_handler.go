package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/metrics"
)

// ReactionHandler toggles favorites, likes and saves for the signed-in user
type ReactionHandler struct {
	*BaseHandler
}

// NewReactionHandler creates a new reaction handler
func NewReactionHandler(baseHandler *BaseHandler) *ReactionHandler {
	return &ReactionHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers like, save and favorite routes
func (h *ReactionHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "POST /api/vendors/{id}/like", h.toggleFromPath(database.ReactionVendorLike, "liked", "likes", ErrCodeVendorNotFound))
	h.Handle(mux, "POST /api/vendors/{id}/save", h.toggleFromPath(database.ReactionVendorSave, "saved", "saves", ErrCodeVendorNotFound))
	h.Handle(mux, "POST /api/reels/{id}/like", h.toggleFromPath(database.ReactionReelLike, "liked", "likes", ErrCodeReelNotFound))
	h.Handle(mux, "POST /api/reels/{id}/save", h.toggleFromPath(database.ReactionReelSave, "saved", "saves", ErrCodeReelNotFound))
	h.Handle(mux, "POST /api/favorites", h.handleToggleFavorite)
	h.Handle(mux, "GET /api/favorites", h.handleListFavorites)
}

// FavoriteRequest is the body of POST /api/favorites
type FavoriteRequest struct {
	VendorID string `json:"vendorId"`
}

// toggleFromPath returns a handler toggling kind on the {id} path value and
// answering {stateKey: bool, countKey: n}
func (h *ReactionHandler) toggleFromPath(kind database.ReactionKind, stateKey, countKey, notFoundCode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handlerLogger := h.logger.With().Str("handler", "toggle").Str("kind", string(kind)).Logger()
		user := h.requireUser(w, r)
		if user == nil {
			return
		}

		result, err := h.Reactions.Toggle(r.Context(), kind, user.ID, r.PathValue("id"))
		if errors.Is(err, database.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, notFoundCode)
			return
		}
		if err != nil {
			h.serverError(w, handlerLogger, err, "Failed to toggle reaction")
			return
		}

		metrics.Reactions.WithLabelValues(string(kind), metrics.State(result.Active)).Inc()
		h.writeJSON(w, http.StatusOK, map[string]any{stateKey: result.Active, countKey: result.Count})
	}
}

func (h *ReactionHandler) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleToggleFavorite").Logger()
	user := h.requireUser(w, r)
	if user == nil {
		return
	}

	var req FavoriteRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.VendorID = strings.TrimSpace(req.VendorID)
	if req.VendorID == "" {
		h.writeError(w, http.StatusBadRequest, ErrCodeMissingVendorID)
		return
	}

	result, err := h.Reactions.Toggle(r.Context(), database.ReactionFavorite, user.ID, req.VendorID)
	if errors.Is(err, database.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, ErrCodeVendorNotFound)
		return
	}
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to toggle favorite")
		return
	}

	metrics.Reactions.WithLabelValues(string(database.ReactionFavorite), metrics.State(result.Active)).Inc()
	handlerLogger.Debug().Str("vendor_id", req.VendorID).Bool("favorited", result.Active).Msg("Favorite toggled")
	h.writeJSON(w, http.StatusOK, map[string]any{"favorited": result.Active, "favoriteCount": result.Count})
}

func (h *ReactionHandler) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleListFavorites").Logger()
	user := h.requireUser(w, r)
	if user == nil {
		return
	}

	vendors, err := h.Vendors.ListVendors(r.Context(), database.VendorFilter{FavoritedBy: user.ID})
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to list favorites")
		return
	}

	cards := h.vendorCards(vendors, nil, 0)
	h.writeJSON(w, http.StatusOK, map[string]any{"vendors": cards})
}
