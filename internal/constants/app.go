// Package constants provides shared constants for the delicious-route application
package constants

// AppName is the product name used in emails, user agents and logs
const AppName = "Delicious Route"

// Role names stored in the roles table
const (
	RoleVendorAdmin = "vendor_admin"
	RoleConsumer    = "consumer"
)

// VendorTypeFoodTruck is the vendor_type assigned to vendors created at signup
const VendorTypeFoodTruck = "food_truck"

// AllRoles returns every role the application seeds on startup
func AllRoles() []string {
	return []string{RoleVendorAdmin, RoleConsumer}
}
