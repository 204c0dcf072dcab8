package walk

import (
	"math"
	"time"
)

// Clock accumulates progress along a route of known length from monotonic
// timestamps. It is not safe for concurrent use; Session serializes access.
type Clock struct {
	progress    float64
	speed       float64 // m/s
	totalLength float64 // meters
	lastTick    time.Time
	armed       bool // lastTick is valid
	running     bool
	complete    bool
}

// NewClock returns a stopped clock at progress 0
func NewClock(totalLength, speed float64) (*Clock, error) {
	if !positive(totalLength) {
		return nil, ErrInvalidRoute
	}
	if !positive(speed) {
		return nil, ErrInvalidSpeed
	}
	return &Clock{totalLength: totalLength, speed: speed}, nil
}

// Start begins or resumes ticking at now. Resuming re-arms the clock so the
// paused interval is never counted. Starting a completed clock begins again
// from zero.
func (c *Clock) Start(now time.Time) {
	if c.complete {
		c.progress = 0
		c.complete = false
	}
	c.running = true
	c.lastTick = now
	c.armed = true
}

// Pause stops accumulation until the next Start
func (c *Clock) Pause() {
	c.running = false
	c.armed = false
	c.lastTick = time.Time{}
}

// Reset returns the clock to progress 0, stopped
func (c *Clock) Reset() {
	c.progress = 0
	c.running = false
	c.complete = false
	c.armed = false
	c.lastTick = time.Time{}
}

// SetSpeed changes the speed used for the next tick's delta
func (c *Clock) SetSpeed(speed float64) error {
	if !positive(speed) {
		return ErrInvalidSpeed
	}
	c.speed = speed
	return nil
}

// Advance applies the time elapsed since the previous tick and reports
// whether this tick completed the route. Ticks with dt <= 0 are skipped.
func (c *Clock) Advance(now time.Time) bool {
	if !c.running {
		return false
	}
	if !c.armed {
		c.lastTick = now
		c.armed = true
		return false
	}

	dt := now.Sub(c.lastTick).Seconds()
	if dt <= 0 {
		return false
	}

	c.progress = math.Min(1, c.progress+(c.speed*dt)/c.totalLength)
	c.lastTick = now

	if c.progress >= 1 {
		c.progress = 1
		c.running = false
		c.complete = true
		c.armed = false
		return true
	}
	return false
}

// Progress returns the completed fraction in [0, 1]
func (c *Clock) Progress() float64 { return c.progress }

// Speed returns the current speed in m/s
func (c *Clock) Speed() float64 { return c.speed }

// Running reports whether ticks are being accumulated
func (c *Clock) Running() bool { return c.running }

// Complete reports whether progress has reached 1
func (c *Clock) Complete() bool { return c.complete }

// Budget returns the total time the route takes at the current speed
func (c *Clock) Budget() time.Duration {
	return secondsToDuration(c.totalLength / c.speed)
}

// TimeRemaining returns budget * (1 - progress)
func (c *Clock) TimeRemaining() time.Duration {
	return secondsToDuration(c.totalLength / c.speed * (1 - c.progress))
}
