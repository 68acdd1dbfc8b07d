package schedule

import (
	"fmt"
	"time"
)

// WeekKey returns the ISO date of the Monday that starts t's week in loc.
// Sunday belongs to the week that began six days earlier.
func WeekKey(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	offset := 1 - int(local.Weekday())
	if local.Weekday() == time.Sunday {
		offset = -6
	}
	// time.Date normalizes day overflow, so this stays on calendar dates
	// and never drifts across a DST change.
	monday := time.Date(local.Year(), local.Month(), local.Day()+offset, 12, 0, 0, 0, loc)
	return monday.Format("2006-01-02")
}

// Clock resolves "now" and the current week in the reservation time zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a Clock for the named IANA zone.
func NewClock(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixedClock returns a Clock that always reports t. Intended for tests.
func NewFixedClock(t time.Time, loc *time.Location) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return t }}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time { return c.now() }

// Location returns the reservation time zone.
func (c *Clock) Location() *time.Location { return c.loc }

// CurrentWeek returns the week key for Now.
func (c *Clock) CurrentWeek() string { return WeekKey(c.now(), c.loc) }
