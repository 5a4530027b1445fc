package handlers

import (
	"net/http"
	"time"
)

// EventHandler serves the multi-truck events list
type EventHandler struct {
	*BaseHandler
}

// NewEventHandler creates a new event handler
func NewEventHandler(baseHandler *BaseHandler) *EventHandler {
	return &EventHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers event routes
func (h *EventHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "GET /api/events", h.handleListEvents)
}

// EventResponse is one event of the list
type EventResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	City         string    `json:"city"`
	ScheduleText string    `json:"scheduleText"`
	StartsAt     time.Time `json:"startsAt"`
	TruckCount   int       `json:"truckCount"`
}

func (h *EventHandler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleListEvents").Logger()

	events, err := h.Events.ListEvents(r.Context())
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to list events")
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:           e.ID,
			Name:         e.Name,
			City:         e.City,
			ScheduleText: e.ScheduleText,
			StartsAt:     e.StartsAt,
			TruckCount:   e.TruckCount,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
