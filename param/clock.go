package param

import "time"

// ManualClock only moves when told to. Used for scripted playback and tests.
type ManualClock struct {
	now float64
}

// NewManualClock creates a clock reading start
func NewManualClock(start float64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() float64 {
	return c.now
}

// Set moves the clock to t. Earlier times are ignored so the clock stays monotonic.
func (c *ManualClock) Set(t float64) {
	if t > c.now {
		c.now = t
	}
}

// Advance moves the clock forward by d seconds
func (c *ManualClock) Advance(d float64) {
	if d > 0 {
		c.now += d
	}
}

// WallClock reports seconds elapsed since it was created
type WallClock struct {
	start time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) Now() float64 {
	return time.Since(c.start).Seconds()
}
