package hours

import (
	"fmt"
	"time"
)

// DefaultTimezone is the reference zone used when none is configured.
const DefaultTimezone = "America/Chicago"

// Moment is a wall-clock weekday and "HH:MM" time in the reference zone.
type Moment struct {
	Weekday int
	Time    string
}

// MomentAt converts an instant to a Moment in loc. A nil loc means UTC.
func MomentAt(t time.Time, loc *time.Location) Moment {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Moment{
		Weekday: int(local.Weekday()),
		Time:    fmt.Sprintf("%02d:%02d", local.Hour(), local.Minute()),
	}
}

// IsOpenAt reports whether the table has the entity open at m.
//
// A same-day shift (open <= close) is open on [open, close] inclusive. A shift
// whose open is after its close wraps past midnight and is open from open to
// the end of the day and from midnight to close. open == close therefore only
// matches that exact minute.
func IsOpenAt(week WeeklyHours, m Moment) bool {
	day, ok := week[m.Weekday]
	if !ok || !day.Complete() {
		return false
	}

	open, closing := day.Open, day.Close
	if open <= closing {
		return m.Time >= open && m.Time <= closing
	}
	return m.Time >= open || m.Time <= closing
}

// Evaluator answers "open now" questions against a fixed reference zone.
// It is immutable and safe for concurrent use.
type Evaluator struct {
	loc *time.Location
	now func() time.Time
}

// NewEvaluator creates an Evaluator. A nil now uses time.Now; a nil loc uses UTC.
func NewEvaluator(loc *time.Location, now func() time.Time) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{loc: loc, now: now}
}

// Location returns the reference zone.
func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// Moment samples the clock and returns the current Moment.
func (e *Evaluator) Moment() Moment {
	return MomentAt(e.now(), e.loc)
}

// Now returns the current instant from the injected clock.
func (e *Evaluator) Now() time.Time {
	return e.now()
}

// IsOpenNow reports whether the table has the entity open right now. The
// clock is read on every call.
func (e *Evaluator) IsOpenNow(week WeeklyHours) bool {
	return IsOpenAt(week, e.Moment())
}

// LoadLocation resolves an IANA zone name, using DefaultTimezone when name is
// empty. On failure it returns UTC together with the lookup error so callers
// can log it and keep serving.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}
