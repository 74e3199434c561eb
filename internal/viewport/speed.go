package viewport

import (
	"math"
	"time"

	"github.com/conneroisu/vlist/internal/types"
)

// defaultDecayWindow bounds how long a velocity sample stays
// meaningful: past it the tracker reads zero, which drives the state
// machine back toward Settling and Idle.
const defaultDecayWindow = 150 * time.Millisecond

// SpeedTracker derives scroll velocity (pixels per millisecond) and
// direction from successive scroll deltas. Velocity decays linearly to
// zero over the decay window when no new samples arrive, so a reader
// polling between frames sees deceleration rather than a frozen peak.
type SpeedTracker struct {
	velocity    float64
	direction   types.Direction
	lastSample  time.Time
	decayWindow time.Duration
}

// NewSpeedTracker creates a tracker with the given decay window; zero
// selects the default.
func NewSpeedTracker(decayWindow time.Duration) *SpeedTracker {
	if decayWindow <= 0 {
		decayWindow = defaultDecayWindow
	}

	return &SpeedTracker{
		direction:   types.DirectionForward,
		decayWindow: decayWindow,
	}
}

// Update records a scroll delta observed at now and returns the new
// velocity magnitude.
func (t *SpeedTracker) Update(delta float64, now time.Time) float64 {
	elapsed := now.Sub(t.lastSample)
	if t.lastSample.IsZero() || elapsed <= 0 {
		elapsed = time.Millisecond
	}

	t.velocity = math.Abs(delta) / (float64(elapsed) / float64(time.Millisecond))
	if delta < 0 {
		t.direction = types.DirectionBackward
	} else if delta > 0 {
		t.direction = types.DirectionForward
	}
	t.lastSample = now

	return t.velocity
}

// Velocity returns the current velocity magnitude at now, decayed
// linearly since the last sample.
func (t *SpeedTracker) Velocity(now time.Time) float64 {
	if t.lastSample.IsZero() {
		return 0
	}

	elapsed := now.Sub(t.lastSample)
	if elapsed >= t.decayWindow {
		return 0
	}
	if elapsed <= 0 {
		return t.velocity
	}

	remaining := 1 - float64(elapsed)/float64(t.decayWindow)

	return t.velocity * remaining
}

// Direction returns the most recent scroll direction.
func (t *SpeedTracker) Direction() types.Direction {
	return t.direction
}

// LastSample returns when the tracker last saw a delta.
func (t *SpeedTracker) LastSample() time.Time {
	return t.lastSample
}

// Reset clears the tracker state.
func (t *SpeedTracker) Reset() {
	t.velocity = 0
	t.direction = types.DirectionForward
	t.lastSample = time.Time{}
}
