package database

import (
	"time"

	"github.com/deliciousroute/delicious-route/internal/hours"
)

// User is an account row together with its role names
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	FirstName    string
	LastName     string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds the named role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Session is an opaque login session
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// ResetToken is a one-time password reset token
type ResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Vendor holds the profile columns of a vendor
type Vendor struct {
	ID           string
	OwnerUserID  string
	VendorType   string
	Name         string
	Description  string
	Cuisine      string
	City         string
	Tagline      string
	HoursText    string
	WebsiteURL   string
	InstagramURL string
	FacebookURL  string
	TikTokURL    string
	XURL         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Location is a vendor location. HasCoords is false until coordinates are set.
type Location struct {
	ID           string
	VendorID     string
	Label        string
	City         string
	Lat          float64
	Lng          float64
	HasCoords    bool
	IsPrimary    bool
	GPSUpdatedAt *time.Time
}

// VendorSummary is a vendor with its primary location, weekly hours and reaction counts
type VendorSummary struct {
	Vendor
	Location  *Location
	Hours     hours.WeeklyHours
	Likes     int
	Saves     int
	Favorites int
}

// MenuItem is an entry on a vendor's active menu
type MenuItem struct {
	ID           string
	MenuID       string
	Name         string
	Description  string
	PriceCents   int
	IsAvailable  bool
	IsGlutenFree bool
	IsSpicy      bool
	IsVegan      bool
	IsVegetarian bool
	CreatedAt    time.Time
}

// NewMenuItem is the input for adding a menu item
type NewMenuItem struct {
	Name         string
	Description  string
	PriceCents   int
	IsGlutenFree bool
	IsSpicy      bool
	IsVegan      bool
	IsVegetarian bool
}

// Reel is a short vendor video with its vendor's display fields
type Reel struct {
	ID         string
	VendorID   string
	Caption    string
	VideoURL   string
	VendorName string
	City       string
	Likes      int
	Saves      int
	CreatedAt  time.Time
}

// Event is a multi-truck gathering
type Event struct {
	ID           string
	Name         string
	City         string
	ScheduleText string
	StartsAt     time.Time
	TruckCount   int
}

// AuditEvent is one recorded change to a vendor profile
type AuditEvent struct {
	EventType   string
	Description string
	UserID      string
	CreatedAt   time.Time
}

// ToggleResult is the state of a like/save/favorite after a toggle
type ToggleResult struct {
	Active bool
	Count  int
}
