package constants

import "fmt"

// VendorSort represents the sort order for vendor listings
type VendorSort string

const (
	// VendorSortNewest lists the most recently created vendors first
	VendorSortNewest VendorSort = "newest"
	// VendorSortName lists vendors alphabetically by name
	VendorSortName VendorSort = "name"
	// VendorSortDistance lists the closest vendors first, only meaningful with a reference point
	VendorSortDistance VendorSort = "distance"
)

// IsValid checks if the sort value is valid
func (s VendorSort) IsValid() bool {
	switch s {
	case VendorSortNewest, VendorSortName, VendorSortDistance:
		return true
	}
	return false
}

// String returns the string representation of the sort order
func (s VendorSort) String() string {
	return string(s)
}

// ParseVendorSort parses a query value into a VendorSort.
// An empty value yields VendorSortNewest.
func ParseVendorSort(s string) (VendorSort, error) {
	if s == "" {
		return VendorSortNewest, nil
	}
	sort := VendorSort(s)
	if !sort.IsValid() {
		return "", fmt.Errorf("invalid vendor sort: %s (must be 'newest', 'name' or 'distance')", s)
	}
	return sort, nil
}
