package utils

import (
	"time"
)

// Clock supplies the current instant in the group's fixed civil timezone
// and derives the day window used to scope "today" counts.
type Clock struct {
	loc   *time.Location
	nowFn func() time.Time
}

// NewClock loads the named timezone
func NewClock(zone string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc, nowFn: time.Now}, nil
}

// NewClockWithNow is NewClock with an injected time source, for tests
func NewClockWithNow(zone string, nowFn func() time.Time) (*Clock, error) {
	clock, err := NewClock(zone)
	if err != nil {
		return nil, err
	}
	clock.nowFn = nowFn
	return clock, nil
}

// Now returns the current instant in the fixed zone
func (c *Clock) Now() time.Time {
	return c.nowFn().In(c.loc)
}

// DayWindow returns [start-of-day, start-of-next-day) for the civil day
// containing t, in the fixed zone.
func (c *Clock) DayWindow(t time.Time) (time.Time, time.Time) {
	local := t.In(c.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// Location returns the fixed zone
func (c *Clock) Location() *time.Location {
	return c.loc
}
