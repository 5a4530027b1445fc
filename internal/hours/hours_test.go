package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"09:00", "09:00"},
		{"9:30", "09:30"},
		{"23:59", "23:59"},
		{"00:00", "00:00"},
		{"17:45:00", "17:45"},
		{" 11:00 ", "11:00"},
		{"", ""},
		{"24:00", ""},
		{"12:60", ""},
		{"12:5", ""},
		{"noon", ""},
		{"12", ""},
		{"1:2:3:4", ""},
		{"-1:00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestFromRows(t *testing.T) {
	t.Run("first row per day wins", func(t *testing.T) {
		week := FromRows([]Row{
			{Day: 1, Open: "11:00", Close: "15:00"},
			{Day: 1, Open: "17:00", Close: "21:00"},
		})
		require.Len(t, week, 1)
		assert.Equal(t, DayHours{Open: "11:00", Close: "15:00"}, week[1])
	})

	t.Run("out of range days are dropped", func(t *testing.T) {
		week := FromRows([]Row{
			{Day: -1, Open: "11:00", Close: "15:00"},
			{Day: 7, Open: "11:00", Close: "15:00"},
			{Day: 6, Open: "11:00", Close: "15:00"},
		})
		require.Len(t, week, 1)
		assert.Contains(t, week, 6)
	})

	t.Run("times are normalized and bad values blanked", func(t *testing.T) {
		week := FromRows([]Row{
			{Day: 2, Open: "9:00:00", Close: "17:30:00"},
			{Day: 3, Open: "", Close: "17:00"},
			{Day: 4, Open: "late", Close: "17:00"},
		})
		assert.Equal(t, DayHours{Open: "09:00", Close: "17:30"}, week[2])
		assert.False(t, week[3].Complete())
		assert.False(t, week[4].Complete())
	})

	t.Run("nil rows give an empty table", func(t *testing.T) {
		assert.Empty(t, FromRows(nil))
	})
}

func TestIsOpenAt(t *testing.T) {
	sameDay := WeeklyHours{1: {Open: "09:00", Close: "17:00"}}
	overnight := WeeklyHours{5: {Open: "20:00", Close: "02:00"}}

	tests := []struct {
		name     string
		week     WeeklyHours
		moment   Moment
		expected bool
	}{
		{"no entry for today", sameDay, Moment{Weekday: 2, Time: "12:00"}, false},
		{"empty table", WeeklyHours{}, Moment{Weekday: 1, Time: "12:00"}, false},
		{"nil table", nil, Moment{Weekday: 1, Time: "12:00"}, false},
		{"missing open", WeeklyHours{1: {Close: "17:00"}}, Moment{Weekday: 1, Time: "12:00"}, false},
		{"missing close", WeeklyHours{1: {Open: "09:00"}}, Moment{Weekday: 1, Time: "12:00"}, false},
		{"same day midday", sameDay, Moment{Weekday: 1, Time: "12:00"}, true},
		{"same day before open", sameDay, Moment{Weekday: 1, Time: "08:59"}, false},
		{"same day after close", sameDay, Moment{Weekday: 1, Time: "17:01"}, false},
		{"same day at open", sameDay, Moment{Weekday: 1, Time: "09:00"}, true},
		{"same day at close", sameDay, Moment{Weekday: 1, Time: "17:00"}, true},
		{"overnight late evening", overnight, Moment{Weekday: 5, Time: "23:00"}, true},
		{"overnight early morning", overnight, Moment{Weekday: 5, Time: "01:00"}, true},
		{"overnight mid morning", overnight, Moment{Weekday: 5, Time: "10:00"}, false},
		{"overnight just after close", overnight, Moment{Weekday: 5, Time: "02:01"}, false},
		{"open equals close at that minute", WeeklyHours{0: {Open: "12:00", Close: "12:00"}}, Moment{Weekday: 0, Time: "12:00"}, true},
		{"open equals close a minute later", WeeklyHours{0: {Open: "12:00", Close: "12:00"}}, Moment{Weekday: 0, Time: "12:01"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsOpenAt(tt.week, tt.moment))
		})
	}
}

func TestMomentAt(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	// Tuesday 03:30 UTC is still Monday evening in Chicago.
	instant := time.Date(2025, 1, 7, 3, 30, 0, 0, time.UTC)

	assert.Equal(t, Moment{Weekday: 1, Time: "21:30"}, MomentAt(instant, chicago))
	assert.Equal(t, Moment{Weekday: 2, Time: "03:30"}, MomentAt(instant, time.UTC))
	assert.Equal(t, Moment{Weekday: 2, Time: "03:30"}, MomentAt(instant, nil))
}

func TestEvaluator_IsOpenNow(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	current := time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC) // Monday 12:00 in Chicago
	eval := NewEvaluator(chicago, func() time.Time { return current })
	week := WeeklyHours{1: {Open: "09:00", Close: "17:00"}}

	assert.True(t, eval.IsOpenNow(week))
	assert.Equal(t, Moment{Weekday: 1, Time: "12:00"}, eval.Moment())

	// The clock is re-read on every call.
	current = time.Date(2025, 1, 6, 23, 30, 0, 0, time.UTC) // Monday 17:30 in Chicago
	assert.False(t, eval.IsOpenNow(week))
}

func TestNewEvaluator_Defaults(t *testing.T) {
	eval := NewEvaluator(nil, nil)
	assert.Equal(t, time.UTC, eval.Location())
	assert.WithinDuration(t, time.Now(), eval.Now(), time.Minute)
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, loc.String())

	loc, err = LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	loc, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestWeeklyHours_Equal(t *testing.T) {
	base := WeeklyHours{1: {Open: "11:00", Close: "15:00"}}

	assert.True(t, base.Equal(WeeklyHours{1: {Open: "11:00", Close: "15:00"}}))
	assert.True(t, base.Equal(WeeklyHours{1: {Open: "11:00", Close: "15:00"}, 2: {Open: "11:00"}}), "incomplete entries are ignored")
	assert.True(t, WeeklyHours(nil).Equal(WeeklyHours{}))
	assert.False(t, base.Equal(WeeklyHours{1: {Open: "11:00", Close: "16:00"}}))
	assert.False(t, base.Equal(WeeklyHours{2: {Open: "11:00", Close: "15:00"}}))
}
