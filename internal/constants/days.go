// Package constants provides shared constants for the delicious-route application
package constants

// DayNames lists weekday names indexed the way the hours tables store them:
// 0 is Sunday and 6 is Saturday.
var DayNames = [7]string{
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

// IsValidDayIndex checks if a given index is a stored weekday index
func IsValidDayIndex(day int) bool {
	return day >= 0 && day < len(DayNames)
}

// DayName returns the English weekday name for an index, or "" when out of range
func DayName(day int) string {
	if !IsValidDayIndex(day) {
		return ""
	}
	return DayNames[day]
}

// ShortDayName returns the first three letters of the weekday name
func ShortDayName(day int) string {
	name := DayName(day)
	if len(name) < 3 {
		return name
	}
	return name[:3]
}
