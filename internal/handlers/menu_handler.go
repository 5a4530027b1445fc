package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/deliciousroute/delicious-route/internal/database"
)

// MenuHandler lets vendor owners manage their active menu
type MenuHandler struct {
	*BaseHandler
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(baseHandler *BaseHandler) *MenuHandler {
	return &MenuHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers menu management routes
func (h *MenuHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "GET /api/vendor/menu-items", h.handleListItems)
	h.Handle(mux, "POST /api/vendor/menu-items", h.handleAddItem)
	h.Handle(mux, "DELETE /api/vendor/menu-items/{id}", h.handleDeleteItem)
}

// MenuItemRequest is the body of POST /api/vendor/menu-items
type MenuItemRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	Description  string `json:"description" validate:"max=500"`
	PriceCents   int    `json:"priceCents" validate:"gte=0,lte=1000000"`
	IsGlutenFree bool   `json:"isGlutenFree"`
	IsSpicy      bool   `json:"isSpicy"`
	IsVegan      bool   `json:"isVegan"`
	IsVegetarian bool   `json:"isVegetarian"`
}

func (h *MenuHandler) handleListItems(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleListItems").Logger()
	_, vendor := h.requireVendor(w, r, handlerLogger)
	if vendor == nil {
		return
	}

	items, err := h.Menus.ListItems(r.Context(), vendor.ID)
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to list menu items")
		return
	}

	out := make([]MenuItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newMenuItemResponse(item))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *MenuHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleAddItem").Logger()
	_, vendor := h.requireVendor(w, r, handlerLogger)
	if vendor == nil {
		return
	}

	var req MenuItemRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if !h.validateStruct(w, req) {
		return
	}

	item, err := h.Menus.AddItem(r.Context(), vendor.ID, database.NewMenuItem{
		Name:         req.Name,
		Description:  req.Description,
		PriceCents:   req.PriceCents,
		IsGlutenFree: req.IsGlutenFree,
		IsSpicy:      req.IsSpicy,
		IsVegan:      req.IsVegan,
		IsVegetarian: req.IsVegetarian,
	})
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to add menu item")
		return
	}

	handlerLogger.Info().Str("vendor_id", vendor.ID).Str("item_id", item.ID).Msg("Menu item added")
	h.writeJSON(w, http.StatusCreated, map[string]any{"item": newMenuItemResponse(*item)})
}

func (h *MenuHandler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleDeleteItem").Logger()
	_, vendor := h.requireVendor(w, r, handlerLogger)
	if vendor == nil {
		return
	}

	err := h.Menus.DeleteItem(r.Context(), vendor.ID, r.PathValue("id"))
	if errors.Is(err, database.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, ErrCodeMenuItemNotFound)
		return
	}
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to delete menu item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
