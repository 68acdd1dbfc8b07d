package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestWeekKey(t *testing.T) {
	loc := newYork(t)

	testCases := []struct {
		name     string
		at       time.Time
		expected string
	}{
		{name: "Monday morning", at: time.Date(2024, 6, 10, 8, 0, 0, 0, loc), expected: "2024-06-10"},
		{name: "Wednesday", at: time.Date(2024, 6, 12, 15, 0, 0, 0, loc), expected: "2024-06-10"},
		{name: "Saturday", at: time.Date(2024, 6, 15, 10, 15, 0, 0, loc), expected: "2024-06-10"},
		{name: "Sunday belongs to previous Monday", at: time.Date(2024, 6, 16, 23, 59, 0, 0, loc), expected: "2024-06-10"},
		{name: "Next Monday midnight", at: time.Date(2024, 6, 17, 0, 0, 0, 0, loc), expected: "2024-06-17"},
		{name: "UTC instant already Monday but still Sunday in New York", at: time.Date(2024, 6, 17, 2, 0, 0, 0, time.UTC), expected: "2024-06-10"},
		{name: "Month boundary", at: time.Date(2024, 3, 2, 9, 0, 0, 0, loc), expected: "2024-02-26"},
		{name: "Year boundary", at: time.Date(2025, 1, 4, 9, 0, 0, 0, loc), expected: "2024-12-30"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, WeekKey(tc.at, loc))
		})
	}
}

func TestWeekKey_StableAcrossWeek(t *testing.T) {
	loc := newYork(t)
	start := time.Date(2024, 11, 4, 0, 0, 0, 0, loc)
	want := WeekKey(start, loc)

	for at := start; at.Before(time.Date(2024, 11, 11, 0, 0, 0, 0, loc)); at = at.Add(37 * time.Minute) {
		assert.Equal(t, want, WeekKey(at, loc), "instant %s", at)
	}
}

func TestWeekKey_DaylightSavingTransitions(t *testing.T) {
	loc := newYork(t)

	// Spring forward on Sunday 2024-03-10, fall back on Sunday 2024-11-03.
	assert.Equal(t, "2024-03-04", WeekKey(time.Date(2024, 3, 10, 3, 30, 0, 0, loc), loc))
	assert.Equal(t, "2024-03-04", WeekKey(time.Date(2024, 3, 9, 23, 30, 0, 0, loc), loc))
	assert.Equal(t, "2024-03-11", WeekKey(time.Date(2024, 3, 11, 0, 30, 0, 0, loc), loc))
	assert.Equal(t, "2024-10-28", WeekKey(time.Date(2024, 11, 3, 1, 30, 0, 0, loc), loc))
	assert.Equal(t, "2024-11-04", WeekKey(time.Date(2024, 11, 4, 0, 0, 0, 0, loc), loc))
}

func TestClock(t *testing.T) {
	loc := newYork(t)
	clock := NewFixedClock(time.Date(2024, 6, 15, 11, 0, 0, 0, loc), loc)

	assert.Equal(t, "2024-06-10", clock.CurrentWeek())
	assert.Equal(t, loc, clock.Location())

	_, err := NewClock("Nowhere/Land")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	catalog := NewCatalog(map[string][]string{
		"Saturday": {"10:00-10:30", "10:30-11:00"},
		"Sunday":   {"11:30-12:00"},
	})

	assert.True(t, catalog.Has("Saturday", "10:30-11:00"))
	assert.False(t, catalog.Has("Sunday", "10:30-11:00"))
	assert.False(t, catalog.Has("Friday", "10:30-11:00"))
	assert.Equal(t, []string{"10:00-10:30", "10:30-11:00"}, catalog.Slots("Saturday"))
	assert.Len(t, catalog.TimeSlots(), 3)
	assert.Equal(t, "10:00–10:30", Label("10:00-10:30"))
}
