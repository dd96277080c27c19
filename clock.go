package conveyor

import (
	"context"
	"time"
)

// Clock is the single source of timestamps for all RT measurements.
// Timestamps are microseconds since the clock's epoch, taken from the
// runtime's monotonic reading.
type Clock struct {
	epoch time.Time
}

func NewClock() *Clock {
	return &Clock{epoch: time.Now()}
}

// Now returns the current timestamp in microseconds.
func (c *Clock) Now() int64 {
	return time.Since(c.epoch).Microseconds()
}

// Until returns the duration from now until the given timestamp.
// Negative if the timestamp is already in the past.
func (c *Clock) Until(us int64) time.Duration {
	return time.Duration(us)*time.Microsecond - time.Since(c.epoch)
}

// SleepUntil suspends until the absolute timestamp us, or until the context
// is cancelled. Periodic tasks use this so that a late wakeup shows up as
// latency rather than period drift.
func (c *Clock) SleepUntil(ctx context.Context, us int64) error {
	d := c.Until(us)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ctx.Err()
	}
}
