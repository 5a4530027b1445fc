package viewhelpers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deliciousroute/delicious-route/internal/constants"
	"github.com/deliciousroute/delicious-route/internal/hours"
)

const slugFallback = "vendor"

// ClosedLabel is shown for days without complete hours
const ClosedLabel = "Closed"

// DayRow is one line of the per-day hours table
type DayRow struct {
	Day   string `json:"day"`
	Hours string `json:"hours"`
}

// Slugify lowercases name, collapses every run of non-alphanumerics into a
// single dash and appends the first eight alphanumerics of id.
func Slugify(name, id string) string {
	base := collapse(strings.ToLower(strings.TrimSpace(name)))
	if base == "" {
		base = slugFallback
	}

	var short strings.Builder
	for _, r := range strings.ToLower(id) {
		if short.Len() == 8 {
			break
		}
		if isSlugRune(r) {
			short.WriteRune(r)
		}
	}
	if short.Len() == 0 {
		return base
	}
	return base + "-" + short.String()
}

func collapse(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range s {
		if !isSlugRune(r) {
			pendingDash = b.Len() > 0
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// HoursTable lists Sunday through Saturday with each day's 12-hour range,
// or ClosedLabel when the day has no complete pair.
func HoursTable(week hours.WeeklyHours) []DayRow {
	rows := make([]DayRow, 0, len(constants.DayNames))
	for day, name := range constants.DayNames {
		label := ClosedLabel
		if h, ok := week[day]; ok && h.Complete() {
			label = hours.DayRange(h.Open, h.Close)
		}
		rows = append(rows, DayRow{Day: name, Hours: label})
	}
	return rows
}

// DirectionsURL returns a Google Maps directions link to the coordinates
func DirectionsURL(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64))
}
