package handlers

// Error Codes
const (
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeNoVendor               = "no_vendor"
	ErrCodeNotReady               = "not_ready"
	ErrCodeInvalidJSON            = "invalid_json"
	ErrCodeMissingFields          = "missing_fields"
	ErrCodeInvalidFields          = "invalid_fields"
	ErrCodeMissingEmail           = "missing_email"
	ErrCodeMissingVendorID        = "missing_vendor_id"
	ErrCodeVendorNotFound         = "vendor_not_found"
	ErrCodeReelNotFound           = "reel_not_found"
	ErrCodeMenuItemNotFound       = "menu_item_not_found"
	ErrCodeInvalidNear            = "invalid_near"
	ErrCodeInvalidRadius          = "invalid_radius"
	ErrCodeInvalidSort            = "invalid_sort"
	ErrCodeInvalidCoords          = "invalid_coords"
	ErrCodeInvalidHours           = "invalid_hours"
	ErrCodeNoLocation             = "no_location"
	ErrCodeClosed                 = "closed"
	ErrCodeEmailTaken             = "email_taken"
	ErrCodeInvalidCredentials     = "invalid_credentials"
	ErrCodeWeakPassword           = "weak_password"
	ErrCodePasswordTooLong        = "password_too_long"
	ErrCodePasswordReused         = "password_reused"
	ErrCodePasswordMismatch       = "password_mismatch"
	ErrCodePasswordUnchanged      = "password_unchanged"
	ErrCodeInvalidCurrentPassword = "invalid_current_password"
	ErrCodeNoPassword             = "no_password"
	ErrCodeInvalidOrExpired       = "invalid_or_expired"
	ErrCodeRateLimited            = "rate_limited"
	ErrCodeServerError            = "server_error"
	ErrCodeUnknown                = "unknown_error"
)

// ErrorMessages maps error codes to user-friendly messages
var ErrorMessages = map[string]string{
	ErrCodeUnauthorized:           "You must be logged in to perform this action.",
	ErrCodeForbidden:              "Only vendor accounts can perform this action.",
	ErrCodeNoVendor:               "No vendor profile is linked to this account.",
	ErrCodeNotReady:               "The service is starting up. Please try again shortly.",
	ErrCodeInvalidJSON:            "The request body is not valid JSON.",
	ErrCodeMissingFields:          "Please fill in all required fields.",
	ErrCodeInvalidFields:          "Some fields have invalid values.",
	ErrCodeMissingEmail:           "Please enter your email address.",
	ErrCodeMissingVendorID:        "No vendor specified.",
	ErrCodeVendorNotFound:         "Vendor not found.",
	ErrCodeReelNotFound:           "Reel not found.",
	ErrCodeMenuItemNotFound:       "Menu item not found.",
	ErrCodeInvalidNear:            "The near parameter must look like \"lat,lng\".",
	ErrCodeInvalidRadius:          "The radius must be a positive number of miles.",
	ErrCodeInvalidSort:            "Sort must be newest, name or distance.",
	ErrCodeInvalidCoords:          "Latitude and longitude must be valid numbers.",
	ErrCodeInvalidHours:           "Some of the open hours are invalid.",
	ErrCodeNoLocation:             "Add a primary location before checking in.",
	ErrCodeClosed:                 "You can only share your live location while you are open.",
	ErrCodeEmailTaken:             "An account with this email already exists.",
	ErrCodeInvalidCredentials:     "Invalid email or password.",
	ErrCodeWeakPassword:           "The password does not meet the requirements.",
	ErrCodePasswordTooLong:        "The password is too long.",
	ErrCodePasswordReused:         "You can't reuse one of your recent passwords.",
	ErrCodePasswordMismatch:       "The new passwords do not match.",
	ErrCodePasswordUnchanged:      "The new password must be different from the current one.",
	ErrCodeInvalidCurrentPassword: "Your current password is incorrect.",
	ErrCodeNoPassword:             "This account has no password set.",
	ErrCodeInvalidOrExpired:       "This reset link is invalid or has expired.",
	ErrCodeRateLimited:            "Too many requests. Please wait a minute and try again.",
	ErrCodeServerError:            "Something went wrong. Please try again.",
	ErrCodeUnknown:                "An unknown error occurred.",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return ErrorMessages[ErrCodeUnknown]
}
