package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/signals"
)

const (
	// ReelWindow is how far back the reel feed looks
	ReelWindow = 24 * time.Hour
	// ReelFeedLimit caps the number of reels in the feed
	ReelFeedLimit = 30
)

// ReelHandler serves the reel feed and reel uploads
type ReelHandler struct {
	*BaseHandler
}

// NewReelHandler creates a new reel handler
func NewReelHandler(baseHandler *BaseHandler) *ReelHandler {
	return &ReelHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers reel routes
func (h *ReelHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "GET /api/reels", h.handleListReels)
	h.Handle(mux, "POST /api/vendor/reels", h.handlePublishReel)
}

// ReelResponse is one reel of the feed
type ReelResponse struct {
	ID         string    `json:"id"`
	VendorID   string    `json:"vendorId"`
	Caption    *string   `json:"caption"`
	VideoURL   string    `json:"videoUrl"`
	VendorName string    `json:"vendorName"`
	City       string    `json:"city"`
	Likes      int       `json:"likes"`
	Saves      int       `json:"saves"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PublishReelRequest is the body of POST /api/vendor/reels
type PublishReelRequest struct {
	VideoURL string `json:"videoUrl" validate:"required,url,max=2048"`
	Caption  string `json:"caption" validate:"max=2200"`
}

func newReelResponse(r database.Reel) ReelResponse {
	resp := ReelResponse{
		ID:         r.ID,
		VendorID:   r.VendorID,
		VideoURL:   r.VideoURL,
		VendorName: r.VendorName,
		City:       r.City,
		Likes:      r.Likes,
		Saves:      r.Saves,
		CreatedAt:  r.CreatedAt,
	}
	if r.Caption != "" {
		caption := r.Caption
		resp.Caption = &caption
	}
	return resp
}

// handleListReels never fails: storage errors degrade to an empty feed
func (h *ReelHandler) handleListReels(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleListReels").Logger()

	since := h.Evaluator.Now().Add(-ReelWindow)
	reels, err := h.Reels.ListRecentReels(r.Context(), since, ReelFeedLimit)
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Failed to load reels")
		reels = nil
	}

	out := make([]ReelResponse, 0, len(reels))
	for _, reel := range reels {
		out = append(out, newReelResponse(reel))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"reels": out})
}

func (h *ReelHandler) handlePublishReel(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handlePublishReel").Logger()
	user, vendor := h.requireVendor(w, r, handlerLogger)
	if vendor == nil {
		return
	}

	var req PublishReelRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	req.Caption = strings.TrimSpace(req.Caption)
	if !h.validateStruct(w, req) {
		return
	}

	reel, err := h.Reels.ReplaceActiveReel(r.Context(), vendor.ID, user.ID, req.Caption, req.VideoURL)
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to publish reel")
		return
	}

	if err := h.Vendors.RecordAuditEvent(r.Context(), vendor.ID, database.AuditEvent{
		EventType: database.AuditReelUploaded,
		UserID:    user.ID,
	}); err != nil {
		handlerLogger.Warn().Err(err).Msg("Failed to record reel audit event")
	}

	signals.EmitReelPublished(r.Context(), signals.ReelPublishedData{
		VendorID: vendor.ID,
		ReelID:   reel.ID,
		VideoURL: reel.VideoURL,
		Caption:  reel.Caption,
	})

	handlerLogger.Info().Str("vendor_id", vendor.ID).Str("reel_id", reel.ID).Msg("Reel published")
	h.writeJSON(w, http.StatusCreated, map[string]any{"reel": newReelResponse(*reel)})
}
