package clock

import "time"

// FakeClock is a manually advanced clock for tests. Deadline sweeps are
// exercised by jumping it past the acceptance, delivery and confirmation
// windows instead of sleeping.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
