// Package hours evaluates vendor operating hours: whether a vendor is open at
// a given moment and a compact weekly summary such as "Mon-Wed 11am-3pm".
//
// All functions are total. Missing or malformed data degrades to "closed" or
// "no structured hours" and never produces an error.
package hours

import (
	"fmt"
	"strconv"
	"strings"
)

// DaysPerWeek is the number of weekday slots in a WeeklyHours table.
const DaysPerWeek = 7

// DayHours is the open/close pair recorded for one weekday.
// Times are zero-padded 24h "HH:MM" strings; either may be empty.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Complete reports whether both ends of the pair are present.
func (d DayHours) Complete() bool {
	return d.Open != "" && d.Close != ""
}

// WeeklyHours maps a weekday index (0=Sunday .. 6=Saturday) to its hours.
// An absent day means no hours were recorded for it.
type WeeklyHours map[int]DayHours

// Row is one persisted hours row for a location.
type Row struct {
	Day   int
	Open  string
	Close string
}

// FromRows builds a WeeklyHours table from persisted rows. Rows for days
// outside [0,6] are dropped and the first row seen for a day wins.
func FromRows(rows []Row) WeeklyHours {
	week := make(WeeklyHours, len(rows))
	for _, r := range rows {
		if !ValidDay(r.Day) {
			continue
		}
		if _, seen := week[r.Day]; seen {
			continue
		}
		week[r.Day] = DayHours{Open: Normalize(r.Open), Close: Normalize(r.Close)}
	}
	return week
}

// ValidDay reports whether day is a weekday index in [0,6].
func ValidDay(day int) bool {
	return day >= 0 && day < DaysPerWeek
}

// Normalize converts "H:MM", "HH:MM" or "HH:MM:SS" into zero-padded "HH:MM".
// Anything else, including out-of-range values, yields "".
func Normalize(raw string) string {
	h, m, ok := parseClock(raw)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func parseClock(raw string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false
	}

	hour, ok = parseField(parts[0], 23)
	if !ok {
		return 0, 0, false
	}
	minute, ok = parseField(parts[1], 59)
	if !ok || len(parts[1]) != 2 {
		return 0, 0, false
	}
	if len(parts) == 3 {
		if _, ok = parseField(parts[2], 59); !ok {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

func parseField(s string, max int) (int, bool) {
	if s == "" || len(s) > 2 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > max {
		return 0, false
	}
	return n, true
}

// Equal reports whether both tables have the same complete pair on every
// weekday. Incomplete or out-of-range entries are ignored.
func (w WeeklyHours) Equal(other WeeklyHours) bool {
	for day := 0; day < DaysPerWeek; day++ {
		a, aok := w[day]
		b, bok := other[day]
		aok = aok && a.Complete()
		bok = bok && b.Complete()
		if aok != bok || (aok && a != b) {
			return false
		}
	}
	return true
}
