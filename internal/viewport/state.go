package viewport

// ScrollState is the phase of the scroll state machine:
// Idle -> Scrolling on the first delta, then Fast (velocity above the
// fast threshold) or Slow (below the slow threshold), Settling while
// velocity sits between thresholds or decays, and back to Idle after
// the quiet period.
type ScrollState int

const (
	// StateIdle means no scrolling for at least the quiet period.
	StateIdle ScrollState = iota
	// StateScrolling is the entry phase before velocity classifies.
	StateScrolling
	// StateFast suppresses data fetching; placeholders render instead.
	StateFast
	// StateSlow fetches missing ranges for the visible window.
	StateSlow
	// StateSettling rides out in-flight loads without issuing new ones.
	StateSettling
)

// String returns the lowercase state name.
func (s ScrollState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScrolling:
		return "scrolling"
	case StateFast:
		return "fast"
	case StateSlow:
		return "slow"
	case StateSettling:
		return "settling"
	default:
		return "unknown"
	}
}

// FetchAllowed reports whether the state permits issuing new range
// loads. Fast and Scrolling defer fetching; Settling keeps in-flight
// loads running but starts none.
func (s ScrollState) FetchAllowed() bool {
	return s == StateIdle || s == StateSlow
}
