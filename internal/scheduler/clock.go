package scheduler

import (
	"fmt"
	"time"
)

// Default trading day.
const (
	DefaultOpen  = 9 * time.Hour
	DefaultClose = 16 * time.Hour
	DefaultStep  = 30 * time.Minute
)

// DisplayLayout formats simulated times in log lines.
const DisplayLayout = "03:04 PM"

// clockDate anchors simulated times of day; only the time part matters.
var clockDate = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// Clock is the simulated trading-day clock. It is advanced by a fixed
// step per round, independent of how much real time a round takes.
type Clock struct {
	now   time.Time
	step  time.Duration
	close time.Time
}

// NewClock creates a clock at open. open and closeAt are offsets from
// midnight.
func NewClock(open, closeAt, step time.Duration) (*Clock, error) {
	if step <= 0 {
		return nil, fmt.Errorf("clock step must be positive, got %s", step)
	}
	if closeAt <= open {
		return nil, fmt.Errorf("market close %s must be after open %s", FormatTimeOfDay(closeAt), FormatTimeOfDay(open))
	}
	return &Clock{
		now:   clockDate.Add(open),
		step:  step,
		close: clockDate.Add(closeAt),
	}, nil
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward by one step.
func (c *Clock) Advance() { c.now = c.now.Add(c.step) }

// Closed reports whether the market has reached close.
func (c *Clock) Closed() bool { return !c.now.Before(c.close) }

// Rounds returns how many rounds remain before close.
func (c *Clock) Rounds() int {
	if c.Closed() {
		return 0
	}
	remaining := c.close.Sub(c.now)
	return int((remaining + c.step - 1) / c.step)
}

// ParseTimeOfDay parses "15:04" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// FormatTimeOfDay renders an offset from midnight as "09:00 AM".
func FormatTimeOfDay(d time.Duration) string {
	return clockDate.Add(d).Format(DisplayLayout)
}
