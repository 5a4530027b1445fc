package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/geo"
	"github.com/deliciousroute/delicious-route/internal/hours"
	"github.com/deliciousroute/delicious-route/internal/viewhelpers"
)

const (
	// DefaultRadiusMiles is used when near is given without radius
	DefaultRadiusMiles = 10.0

	defaultVendorName    = "Untitled venue"
	defaultVendorCuisine = "Food truck"
)

// VendorHandler serves the public vendor listing and detail pages
type VendorHandler struct {
	*BaseHandler
}

// NewVendorHandler creates a new vendor handler
func NewVendorHandler(baseHandler *BaseHandler) *VendorHandler {
	return &VendorHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers vendor browsing routes
func (h *VendorHandler) RegisterRoutes(mux *http.ServeMux) {
	h.Handle(mux, "GET /api/vendors", h.handleListVendors)
	h.Handle(mux, "GET /api/vendors/{id}", h.handleGetVendor)
}

// VendorCard is one entry of the vendor listing
type VendorCard struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Cuisine       string   `json:"cuisine"`
	City          string   `json:"city"`
	Tagline       string   `json:"tagline"`
	TodayHours    string   `json:"todayHours"`
	IsOpenNow     bool     `json:"isOpenNow"`
	Likes         int      `json:"likes"`
	Saves         int      `json:"saves"`
	Favorites     int      `json:"favoriteCount"`
	DistanceMiles *float64 `json:"distanceMiles,omitempty"`
}

// LiveLocation is a vendor's position, only exposed while the vendor is open
type LiveLocation struct {
	Lat           float64    `json:"lat"`
	Lng           float64    `json:"lng"`
	City          string     `json:"city"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	DirectionsURL string     `json:"directionsUrl"`
}

// MenuItemResponse is a menu item as returned by the API
type MenuItemResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceCents   int    `json:"priceCents"`
	IsAvailable  bool   `json:"isAvailable"`
	IsGlutenFree bool   `json:"isGlutenFree"`
	IsSpicy      bool   `json:"isSpicy"`
	IsVegan      bool   `json:"isVegan"`
	IsVegetarian bool   `json:"isVegetarian"`
}

// VendorDetail is the public vendor page
type VendorDetail struct {
	VendorCard
	Description       string               `json:"description"`
	HoursText         string               `json:"hoursText"`
	WebsiteURL        string               `json:"websiteUrl"`
	InstagramURL      string               `json:"instagramUrl"`
	FacebookURL       string               `json:"facebookUrl"`
	TikTokURL         string               `json:"tiktokUrl"`
	XURL              string               `json:"xUrl"`
	Hours             []viewhelpers.DayRow `json:"hours"`
	ConsolidatedHours *string              `json:"consolidatedHours"`
	Location          *LiveLocation        `json:"location"`
	Menu              []MenuItemResponse   `json:"menu"`
	Liked             bool                 `json:"liked"`
	Saved             bool                 `json:"saved"`
	Favorited         bool                 `json:"favorited"`
}

func (h *BaseHandler) newCard(v *database.VendorSummary, open bool) VendorCard {
	name := v.Name
	if strings.TrimSpace(name) == "" {
		name = defaultVendorName
	}
	cuisine := v.Cuisine
	if strings.TrimSpace(cuisine) == "" {
		cuisine = defaultVendorCuisine
	}
	today, _ := hours.ConsolidatedHours(v.Hours, v.HoursText)
	return VendorCard{
		ID:         v.ID,
		Slug:       viewhelpers.Slugify(v.Name, v.ID),
		Name:       name,
		Cuisine:    cuisine,
		City:       v.City,
		Tagline:    v.Tagline,
		TodayHours: today,
		IsOpenNow:  open,
		Likes:      v.Likes,
		Saves:      v.Saves,
		Favorites:  v.Favorites,
	}
}

// vendorCards turns summaries into cards. With a reference point only open
// vendors that have coordinates within radius are kept.
func (h *BaseHandler) vendorCards(vendors []*database.VendorSummary, near *geo.Point, radius float64) []VendorCard {
	cards := make([]VendorCard, 0, len(vendors))
	for _, v := range vendors {
		open := h.Evaluator.IsOpenNow(v.Hours)
		card := h.newCard(v, open)
		if near != nil {
			if !open || v.Location == nil || !v.Location.HasCoords {
				continue
			}
			d := near.Distance(geo.Point{Lat: v.Location.Lat, Lng: v.Location.Lng})
			if d > radius {
				continue
			}
			card.DistanceMiles = &d
		}
		cards = append(cards, card)
	}
	return cards
}

func sortCards(cards []VendorCard, sort constants.VendorSort) {
	switch sort {
	case constants.VendorSortName:
		slices.SortStableFunc(cards, func(a, b VendorCard) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	case constants.VendorSortDistance:
		slices.SortStableFunc(cards, func(a, b VendorCard) int {
			switch {
			case *a.DistanceMiles < *b.DistanceMiles:
				return -1
			case *a.DistanceMiles > *b.DistanceMiles:
				return 1
			}
			return 0
		})
	}
}

func (h *VendorHandler) handleListVendors(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleListVendors").Logger()
	query := r.URL.Query()

	var near *geo.Point
	if raw := query.Get("near"); raw != "" {
		p, err := geo.ParseLatLng(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidNear)
			return
		}
		near = &p
	}

	radius := DefaultRadiusMiles
	if raw := query.Get("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(v > 0) || math.IsInf(v, 1) {
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRadius)
			return
		}
		radius = v
	}

	sort, err := constants.ParseVendorSort(query.Get("sort"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidSort)
		return
	}
	if near != nil && query.Get("sort") == "" {
		sort = constants.VendorSortDistance
	}
	if sort == constants.VendorSortDistance && near == nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidSort)
		return
	}

	vendors, err := h.Vendors.ListVendors(r.Context(), database.VendorFilter{Query: query.Get("q")})
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to list vendors")
		return
	}

	cards := h.vendorCards(vendors, near, radius)
	sortCards(cards, sort)

	handlerLogger.Debug().Int("count", len(cards)).Str("sort", sort.String()).Msg("Listed vendors")
	h.writeJSON(w, http.StatusOK, map[string]any{"vendors": cards})
}

func (h *VendorHandler) handleGetVendor(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleGetVendor").Logger()
	id := r.PathValue("id")

	vendor, err := h.Vendors.GetVendor(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, ErrCodeVendorNotFound)
		return
	}
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to load vendor")
		return
	}

	items, err := h.Menus.ListItems(r.Context(), vendor.ID)
	if err != nil {
		h.serverError(w, handlerLogger, err, "Failed to load menu")
		return
	}

	detail := h.vendorDetail(vendor, items)
	if user := CurrentUser(r.Context()); user != nil {
		if err := h.fillReactionState(r.Context(), &detail, user.ID); err != nil {
			h.serverError(w, handlerLogger, err, "Failed to load reaction state")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *VendorHandler) vendorDetail(vendor *database.VendorSummary, items []database.MenuItem) VendorDetail {
	open := h.Evaluator.IsOpenNow(vendor.Hours)
	detail := VendorDetail{
		VendorCard:   h.newCard(vendor, open),
		Description:  vendor.Description,
		HoursText:    vendor.HoursText,
		WebsiteURL:   vendor.WebsiteURL,
		InstagramURL: vendor.InstagramURL,
		FacebookURL:  vendor.FacebookURL,
		TikTokURL:    vendor.TikTokURL,
		XURL:         vendor.XURL,
		Hours:        viewhelpers.HoursTable(vendor.Hours),
		Menu:         make([]MenuItemResponse, 0, len(items)),
	}
	if consolidated, ok := hours.ConsolidatedHours(vendor.Hours, vendor.HoursText); ok {
		detail.ConsolidatedHours = &consolidated
	}
	if loc := vendor.Location; open && loc != nil && loc.HasCoords {
		detail.Location = &LiveLocation{
			Lat:           loc.Lat,
			Lng:           loc.Lng,
			City:          loc.City,
			UpdatedAt:     loc.GPSUpdatedAt,
			DirectionsURL: viewhelpers.DirectionsURL(loc.Lat, loc.Lng),
		}
	}
	for _, item := range items {
		detail.Menu = append(detail.Menu, newMenuItemResponse(item))
	}
	return detail
}

func (h *VendorHandler) fillReactionState(ctx context.Context, detail *VendorDetail, userID string) error {
	var err error
	if detail.Liked, err = h.Reactions.IsActive(ctx, database.ReactionVendorLike, userID, detail.ID); err != nil {
		return err
	}
	if detail.Saved, err = h.Reactions.IsActive(ctx, database.ReactionVendorSave, userID, detail.ID); err != nil {
		return err
	}
	detail.Favorited, err = h.Reactions.IsActive(ctx, database.ReactionFavorite, userID, detail.ID)
	return err
}

func newMenuItemResponse(item database.MenuItem) MenuItemResponse {
	return MenuItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		PriceCents:   item.PriceCents,
		IsAvailable:  item.IsAvailable,
		IsGlutenFree: item.IsGlutenFree,
		IsSpicy:      item.IsSpicy,
		IsVegan:      item.IsVegan,
		IsVegetarian: item.IsVegetarian,
	}
}
