// Package clock supplies the monotonic time source the simulation reads once
// per tick.
package clock

import "time"

// GameTime is the per-tick time snapshot handed to every updated node.
type GameTime struct {
	CurrentTime     time.Time
	ElapsedGameTime time.Duration
	TotalGameTime   time.Duration
}

// GameClock tracks start, current and previous tick times.
type GameClock struct {
	now         func() time.Time
	startTime   time.Time
	currentTime time.Time
	lastTime    time.Time
}

// New returns a clock reading time.Now. The clock is reset.
func New() *GameClock {
	return NewWithSource(time.Now)
}

// NewWithSource returns a clock reading now, which must be monotonic.
func NewWithSource(now func() time.Time) *GameClock {
	c := &GameClock{now: now}
	c.Reset()
	return c
}

// Reset restarts the clock at the current time.
func (c *GameClock) Reset() {
	c.startTime = c.now()
	c.currentTime = c.startTime
	c.lastTime = c.startTime
}

func (c *GameClock) StartTime() time.Time   { return c.startTime }
func (c *GameClock) CurrentTime() time.Time { return c.currentTime }
func (c *GameClock) LastTime() time.Time    { return c.lastTime }

// Update advances the clock by one tick and fills gt.
func (c *GameClock) Update(gt *GameTime) {
	c.lastTime = c.currentTime
	c.currentTime = c.now()
	gt.CurrentTime = c.currentTime
	gt.ElapsedGameTime = c.currentTime.Sub(c.lastTime)
	gt.TotalGameTime = c.currentTime.Sub(c.startTime)
}
