package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrollStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "scrolling", StateScrolling.String())
	assert.Equal(t, "fast", StateFast.String())
	assert.Equal(t, "slow", StateSlow.String())
	assert.Equal(t, "settling", StateSettling.String())
	assert.Equal(t, "unknown", ScrollState(42).String())
}

func TestFetchAllowedPerState(t *testing.T) {
	assert.True(t, StateIdle.FetchAllowed())
	assert.True(t, StateSlow.FetchAllowed())
	assert.False(t, StateScrolling.FetchAllowed())
	assert.False(t, StateFast.FetchAllowed())
	assert.False(t, StateSettling.FetchAllowed())
}
