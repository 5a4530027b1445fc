package hours

import (
	"strconv"
	"strings"

	"github.com/deliciousroute/delicious-route/internal/constants"
)

// GroupSeparator joins consecutive-day groups in a consolidated summary.
const GroupSeparator = " · "

type dayGroup struct {
	start, end  int
	open, close string
}

// ConsolidatedHours collapses a weekly table into a summary such as
// "Mon-Wed 11am-3pm · Fri 5pm-11pm". Consecutive days with an identical pair
// share a group; a gap always starts a new group.
//
// When no day has a complete pair the fallback text is returned. The boolean
// is false when there is neither structured hours nor fallback text.
func ConsolidatedHours(week WeeklyHours, fallback string) (string, bool) {
	var groups []dayGroup
	for day := 0; day < DaysPerWeek; day++ {
		info, ok := week[day]
		if !ok || !info.Complete() {
			continue
		}

		if n := len(groups); n > 0 {
			last := &groups[n-1]
			if last.end == day-1 && last.open == info.Open && last.close == info.Close {
				last.end = day
				continue
			}
		}
		groups = append(groups, dayGroup{start: day, end: day, open: info.Open, close: info.Close})
	}

	if len(groups) == 0 {
		if fallback == "" {
			return "", false
		}
		return fallback, true
	}

	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, dayLabel(g.start, g.end)+" "+DayRange(g.open, g.close))
	}
	return strings.Join(parts, GroupSeparator), true
}

// DayRange renders an open/close pair as "11am-3pm".
func DayRange(open, close string) string {
	return Format12h(open) + "-" + Format12h(close)
}

// Format12h renders a 24h clock string in 12h form: "13:00" is "1pm",
// "09:05" is "9:05am" and "00:00" is "12am". Unparsable input yields "".
func Format12h(clock string) string {
	h24, m, ok := parseClock(clock)
	if !ok {
		return ""
	}

	suffix := "pm"
	if h24 < 12 {
		suffix = "am"
	}
	h12 := ((h24 + 11) % 12) + 1

	var b strings.Builder
	b.WriteString(strconv.Itoa(h12))
	if m != 0 {
		b.WriteByte(':')
		if m < 10 {
			b.WriteByte('0')
		}
		b.WriteString(strconv.Itoa(m))
	}
	b.WriteString(suffix)
	return b.String()
}

func dayLabel(start, end int) string {
	if start == end {
		return constants.ShortDayName(start)
	}
	return constants.ShortDayName(start) + "-" + constants.ShortDayName(end)
}
