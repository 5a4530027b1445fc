package signals

import (
	"context"
	"time"

	"github.com/maniartech/signals"
)

// AccountCreatedData contains data associated with a new account
type AccountCreatedData struct {
	UserID      string
	Email       string
	DisplayName string
	Role        string
	VendorID    string // set for vendor accounts
}

// PasswordResetRequestedData contains the reset link sent to the user
type PasswordResetRequestedData struct {
	UserID    string
	Email     string
	ResetURL  string
	ExpiresAt time.Time
}

// PasswordChangedData contains data associated with a password change or reset
type PasswordChangedData struct {
	UserID string
	Email  string
	Role   string
}

// VendorLocationUpdatedData contains a vendor's new live position
type VendorLocationUpdatedData struct {
	VendorID   string
	LocationID string
	Lat        float64
	Lng        float64
	City       string
	UpdatedAt  time.Time
}

// VendorProfileChangedData lists the audit event types of a profile update
type VendorProfileChangedData struct {
	VendorID   string
	VendorName string
	UserID     string
	Email      string
	Changes    []string
}

// ReelPublishedData contains the reel that replaced a vendor's previous one
type ReelPublishedData struct {
	VendorID string
	ReelID   string
	VideoURL string
	Caption  string
}

// Signal definitions using generics
var AccountCreated = signals.New[AccountCreatedData]()
var PasswordResetRequested = signals.New[PasswordResetRequestedData]()
var PasswordChanged = signals.New[PasswordChangedData]()
var VendorLocationUpdated = signals.New[VendorLocationUpdatedData]()
var VendorProfileChanged = signals.New[VendorProfileChangedData]()
var ReelPublished = signals.New[ReelPublishedData]()

// EmitAccountCreated emits a signal when an account is created
func EmitAccountCreated(ctx context.Context, data AccountCreatedData) {
	AccountCreated.Emit(ctx, data)
}

// EmitPasswordResetRequested emits a signal when a reset token is issued
func EmitPasswordResetRequested(ctx context.Context, data PasswordResetRequestedData) {
	PasswordResetRequested.Emit(ctx, data)
}

// EmitPasswordChanged emits a signal when a password is changed or reset
func EmitPasswordChanged(ctx context.Context, data PasswordChangedData) {
	PasswordChanged.Emit(ctx, data)
}

// EmitVendorLocationUpdated emits a signal after a GPS check-in
func EmitVendorLocationUpdated(ctx context.Context, data VendorLocationUpdatedData) {
	VendorLocationUpdated.Emit(ctx, data)
}

// EmitVendorProfileChanged emits a signal after a profile update that changed something
func EmitVendorProfileChanged(ctx context.Context, data VendorProfileChangedData) {
	VendorProfileChanged.Emit(ctx, data)
}

// EmitReelPublished emits a signal when a vendor publishes a reel
func EmitReelPublished(ctx context.Context, data ReelPublishedData) {
	ReelPublished.Emit(ctx, data)
}

// OnAccountCreated registers a handler for account creation events
func OnAccountCreated(handler func(ctx context.Context, data AccountCreatedData), key ...string) {
	if len(key) > 0 {
		AccountCreated.AddListener(handler, key[0])
	} else {
		AccountCreated.AddListener(handler)
	}
}

// OnPasswordResetRequested registers a handler for reset requests
func OnPasswordResetRequested(handler func(ctx context.Context, data PasswordResetRequestedData), key ...string) {
	if len(key) > 0 {
		PasswordResetRequested.AddListener(handler, key[0])
	} else {
		PasswordResetRequested.AddListener(handler)
	}
}

// OnPasswordChanged registers a handler for password changes
func OnPasswordChanged(handler func(ctx context.Context, data PasswordChangedData), key ...string) {
	if len(key) > 0 {
		PasswordChanged.AddListener(handler, key[0])
	} else {
		PasswordChanged.AddListener(handler)
	}
}

// OnVendorLocationUpdated registers a handler for GPS check-ins
func OnVendorLocationUpdated(handler func(ctx context.Context, data VendorLocationUpdatedData), key ...string) {
	if len(key) > 0 {
		VendorLocationUpdated.AddListener(handler, key[0])
	} else {
		VendorLocationUpdated.AddListener(handler)
	}
}

// OnVendorProfileChanged registers a handler for profile updates
func OnVendorProfileChanged(handler func(ctx context.Context, data VendorProfileChangedData), key ...string) {
	if len(key) > 0 {
		VendorProfileChanged.AddListener(handler, key[0])
	} else {
		VendorProfileChanged.AddListener(handler)
	}
}

// OnReelPublished registers a handler for published reels
func OnReelPublished(handler func(ctx context.Context, data ReelPublishedData), key ...string) {
	if len(key) > 0 {
		ReelPublished.AddListener(handler, key[0])
	} else {
		ReelPublished.AddListener(handler)
	}
}

// RemoveListeners detaches every handler registered under key
func RemoveListeners(key string) {
	AccountCreated.RemoveListener(key)
	PasswordResetRequested.RemoveListener(key)
	PasswordChanged.RemoveListener(key)
	VendorLocationUpdated.RemoveListener(key)
	VendorProfileChanged.RemoveListener(key)
	ReelPublished.RemoveListener(key)
}
