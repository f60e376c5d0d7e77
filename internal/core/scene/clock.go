package scene

import (
	"time"

	"github.com/nighttide/nighttide/internal/core/spatial"
)

// MaxFrameDelta caps the time step handed to systems. Hosts that suspend
// (backgrounded tabs, debugger pauses) would otherwise feed one enormous
// delta into the wave and fade integrators.
const MaxFrameDelta = 0.1

// Clock converts wall-clock time into clamped Frames.
type Clock struct {
	last    time.Time
	elapsed float64
	index   int64
}

// NewClock starts a clock at the current time.
func NewClock() *Clock {
	return &Clock{last: time.Now()}
}

// Tick produces the next Frame from wall time.
func (c *Clock) Tick(camera *spatial.Camera) Frame {
	now := time.Now()
	delta := now.Sub(c.last).Seconds()
	c.last = now
	return c.advance(delta, camera)
}

// Elapsed returns total simulation time in seconds.
func (c *Clock) Elapsed() float64 { return c.elapsed }

// TickDelta produces the next Frame from an externally supplied delta in
// seconds, for hosts that already own frame timing.
func (c *Clock) TickDelta(delta float64, camera *spatial.Camera) Frame {
	return c.advance(delta, camera)
}

func (c *Clock) advance(delta float64, camera *spatial.Camera) Frame {
	if delta < 0 {
		delta = 0
	}
	if delta > MaxFrameDelta {
		delta = MaxFrameDelta
	}
	c.elapsed += delta
	c.index++
	return Frame{
		Delta:   delta,
		Elapsed: c.elapsed,
		Index:   c.index,
		Camera:  camera,
	}
}
