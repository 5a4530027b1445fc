package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/hours"
	"github.com/deliciousroute/delicious-route/internal/logging"
)

// Seeder populates reference data on startup
type Seeder struct {
	db      *DB
	vendors *VendorStore
	events  *EventStore
	logger  zerolog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(db *DB) (*Seeder, error) {
	vendors, err := NewVendorStore(db)
	if err != nil {
		return nil, err
	}
	events, err := NewEventStore(db)
	if err != nil {
		return nil, err
	}
	return &Seeder{
		db:      db,
		vendors: vendors,
		events:  events,
		logger:  logging.GetLogger("seeder"),
	}, nil
}

// Run seeds roles on every startup and the demo catalog when requested
func (s *Seeder) Run(ctx context.Context, seedDemo bool) error {
	if err := s.SeedRoles(ctx); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}
	if !seedDemo {
		return nil
	}
	if err := s.SeedDemoData(ctx); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	return nil
}

// SeedRoles makes sure every application role exists
func (s *Seeder) SeedRoles(ctx context.Context) error {
	for _, role := range constants.AllRoles() {
		if _, err := ensureRole(ctx, s.db.Conn(), role); err != nil {
			return err
		}
	}
	s.logger.Debug().Strs("roles", constants.AllRoles()).Msg("Roles ensured")
	return nil
}

// SeedDemoData inserts the demo vendors and events into an empty catalog.
// It does nothing once any vendor exists.
func (s *Seeder) SeedDemoData(ctx context.Context) error {
	count, err := s.vendors.CountVendors(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.logger.Info().Int("vendors", count).Msg("Catalog already populated, skipping demo data")
		return nil
	}

	s.logger.Info().Msg("Seeding demo vendors and events")
	for _, d := range demoVendors() {
		if err := s.vendors.CreateVendor(ctx, d.vendor, d.location, d.hours); err != nil {
			return fmt.Errorf("failed to seed vendor %s: %w", d.vendor.ID, err)
		}
	}

	base := s.db.now().UTC().Truncate(24 * time.Hour)
	for i, e := range demoEvents() {
		e.StartsAt = base.Add(time.Duration(i+1) * 24 * time.Hour)
		if err := s.events.CreateEvent(ctx, &e); err != nil {
			return fmt.Errorf("failed to seed event %s: %w", e.Name, err)
		}
	}
	s.logger.Info().Msg("Demo data seeded")
	return nil
}

type demoVendor struct {
	vendor   *Vendor
	location *Location
	hours    hours.WeeklyHours
}

func demoVendors() []demoVendor {
	return []demoVendor{
		{
			vendor: &Vendor{
				ID:           "la-calle-roja",
				Name:         "La Calle Roja",
				Cuisine:      "Birria tacos & street classics",
				City:         "Austin, TX",
				Tagline:      "Slow-braised birria, crisped to perfection and dunked in consomé.",
				Description:  "La Calle Roja is a late-night birria specialist serving tacos, quesabirria, and crispy mulitas with a rich, house-made consomé.",
				WebsiteURL:   "https://example.com/la-calle-roja",
				InstagramURL: "https://instagram.com/lacallerojatacos",
			},
			location: &Location{City: "Austin, TX", Lat: 30.2672, Lng: -97.7431, HasCoords: true},
			hours: hours.WeeklyHours{
				2: {Open: "17:00", Close: "23:00"},
				3: {Open: "17:00", Close: "23:00"},
				4: {Open: "17:00", Close: "00:00"},
				5: {Open: "19:00", Close: "01:00"},
				6: {Open: "19:00", Close: "01:00"},
			},
		},
		{
			vendor: &Vendor{
				ID:           "chrome-and-cheddar",
				Name:         "Chrome & Cheddar",
				Cuisine:      "Smash burgers & loaded fries",
				City:         "Portland, OR",
				Tagline:      "Thin, craggly-edged patties with a molten cheddar crown.",
				Description:  "Chrome & Cheddar brings diner energy to the curb: smash burgers, secret sauce, and crispy shoestring fries loaded with toppings.",
				HoursText:    "Saturday pop-ups announced on Instagram",
				WebsiteURL:   "https://example.com/chrome-and-cheddar",
				InstagramURL: "https://instagram.com/chromeandcheddar",
			},
			location: &Location{City: "Portland, OR", Lat: 45.5152, Lng: -122.6784, HasCoords: true},
			hours: hours.WeeklyHours{
				1: {Open: "11:00", Close: "15:00"},
				2: {Open: "11:00", Close: "15:00"},
				3: {Open: "11:00", Close: "15:00"},
				4: {Open: "11:00", Close: "15:00"},
				5: {Open: "11:00", Close: "15:00"},
			},
		},
		{
			vendor: &Vendor{
				ID:           "glow-bowl",
				Name:         "Glow Bowl",
				Cuisine:      "Plant-based bowls & comfort",
				City:         "Los Angeles, CA",
				Tagline:      "Colorful bowls, warm grains, and indulgent vegan comfort food.",
				Description:  "Glow Bowl focuses on vibrant, plant-forward dishes: roasted veggies, marinated tofu, and dairy-free mac & cheese with a golden cashew sauce.",
				WebsiteURL:   "https://example.com/glow-bowl",
				InstagramURL: "https://instagram.com/eatglowbowl",
			},
			location: &Location{City: "Los Angeles, CA", Lat: 34.0522, Lng: -118.2437, HasCoords: true},
			hours: hours.WeeklyHours{
				1: {Open: "12:00", Close: "20:00"},
				2: {Open: "12:00", Close: "20:00"},
				3: {Open: "12:00", Close: "20:00"},
				4: {Open: "12:00", Close: "21:00"},
				5: {Open: "12:00", Close: "21:00"},
				6: {Open: "12:00", Close: "21:00"},
			},
		},
	}
}

func demoEvents() []Event {
	return []Event{
		{Name: "Downtown Street Food Fridays", City: "Austin, TX", ScheduleText: "Every Friday · 6–10pm", TruckCount: 14},
		{Name: "Rooftop Lunchtime Rally", City: "Seattle, WA", ScheduleText: "Wednesdays · 11am–2pm", TruckCount: 8},
		{Name: "Night Market by the River", City: "Sacramento, CA", ScheduleText: "First Saturdays · 5–11pm", TruckCount: 22},
	}
}
