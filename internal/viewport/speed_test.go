package viewport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/vlist/internal/types"
)

func TestSpeedTrackerVelocityFromDeltaAndElapsed(t *testing.T) {
	tr := NewSpeedTracker(100 * time.Millisecond)
	base := time.Now()

	tr.Update(10, base)

	// 150px over 100ms reads 1.5 px/ms.
	v := tr.Update(150, base.Add(100*time.Millisecond))
	assert.InDelta(t, 1.5, v, 1e-9)
	assert.Equal(t, types.DirectionForward, tr.Direction())
}

func TestSpeedTrackerDirectionFollowsSign(t *testing.T) {
	tr := NewSpeedTracker(100 * time.Millisecond)
	base := time.Now()

	tr.Update(-40, base)
	assert.Equal(t, types.DirectionBackward, tr.Direction())

	tr.Update(40, base.Add(10*time.Millisecond))
	assert.Equal(t, types.DirectionForward, tr.Direction())

	// A zero delta keeps the previous direction.
	tr.Update(0, base.Add(20*time.Millisecond))
	assert.Equal(t, types.DirectionForward, tr.Direction())
}

func TestSpeedTrackerDecaysToZero(t *testing.T) {
	tr := NewSpeedTracker(100 * time.Millisecond)
	base := time.Now()

	tr.Update(10, base)
	v := tr.Update(100, base.Add(10*time.Millisecond))
	assert.Greater(t, v, 0.0)

	assert.Equal(t, v, tr.Velocity(base.Add(10*time.Millisecond)))

	// Halfway through the window half the velocity remains.
	assert.InDelta(t, v/2, tr.Velocity(base.Add(60*time.Millisecond)), 1e-9)

	assert.Equal(t, 0.0, tr.Velocity(base.Add(200*time.Millisecond)))
}

func TestSpeedTrackerReset(t *testing.T) {
	tr := NewSpeedTracker(100 * time.Millisecond)

	tr.Update(-50, time.Now())
	tr.Reset()

	assert.Equal(t, 0.0, tr.Velocity(time.Now()))
	assert.Equal(t, types.DirectionForward, tr.Direction())
}
