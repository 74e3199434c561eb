// Package viewport implements the performance layer of the list
// engine: it maintains the illusion of a fully-populated, natively
// scrolled list while only materializing a small rendered window. The
// engine owns the virtual scroll offset, the item size map, the speed
// tracker, synthetic scrollbar geometry, and the scroll state machine;
// it reads item data from a collection and never touches the adapter
// directly.
package viewport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/vlist/internal/collection"
	"github.com/conneroisu/vlist/internal/events"
	vlisterrors "github.com/conneroisu/vlist/internal/errors"
	"github.com/conneroisu/vlist/internal/logging"
	"github.com/conneroisu/vlist/internal/types"
)

// Row is one renderable entry of the visible window. Placeholder rows
// carry the masked stand-in item (or stale cached data after a
// strategy switch); Errored rows mark indices whose last load failed.
type Row struct {
	Index       int        `json:"index"`
	Item        types.Item `json:"item,omitempty"`
	Placeholder bool       `json:"placeholder,omitempty"`
	Errored     bool       `json:"errored,omitempty"`
}

// RenderHost is the presentation-side contract. The engine computes
// geometry and rows; the host turns them into pixels (or terminal
// cells). Hosts must not call back into the engine from these methods.
type RenderHost interface {
	// ApplyTransform positions the rendered container: translate is
	// the cumulative size of all items before the visible range start,
	// relative to the current scroll offset.
	ApplyTransform(translate float64)
	// SetScrollbar positions the synthetic scrollbar thumb.
	SetScrollbar(thumbPos, thumbSize float64)
	// RenderRange replaces the rendered window with rows covering
	// [start, end).
	RenderRange(start, end int, rows []Row)
}

// Options configures an Engine. Zero values are filled from defaults.
type Options struct {
	Orientation       types.Orientation
	ContainerSize     float64
	TrackSize         float64 // defaults to ContainerSize
	EstimatedItemSize float64
	Overscan          int
	RangeSize         int
	FastThreshold     float64 // px/ms
	SlowThreshold     float64 // px/ms
	MinThumbSize      float64
	QuietPeriod       time.Duration
	ShowErrorItems    bool
}

func (o *Options) applyDefaults() {
	if o.Orientation == "" {
		o.Orientation = types.OrientationVertical
	}
	if o.ContainerSize == 0 {
		o.ContainerSize = 500
	}
	if o.TrackSize == 0 {
		o.TrackSize = o.ContainerSize
	}
	if o.EstimatedItemSize == 0 {
		o.EstimatedItemSize = 40
	}
	if o.RangeSize == 0 {
		o.RangeSize = 20
	}
	if o.FastThreshold == 0 {
		o.FastThreshold = 1.0
	}
	if o.SlowThreshold == 0 {
		o.SlowThreshold = 0.25
	}
	if o.MinThumbSize == 0 {
		o.MinThumbSize = 20
	}
	if o.QuietPeriod == 0 {
		o.QuietPeriod = 200 * time.Millisecond
	}
}

// frame is a render snapshot computed under the engine lock and
// applied to the host after unlocking, so host callbacks and event
// handlers never run while the lock is held.
type frame struct {
	visible      types.Range
	offset       float64
	translate    float64
	thumbPos     float64
	thumbSize    float64
	rows         []Row
	placeholders []int
}

// Engine drives virtual scrolling over a collection. Safe for
// concurrent use.
type Engine struct {
	coll   *collection.Collection
	bus    *events.Bus
	logger logging.Logger

	mu        sync.Mutex
	opts      Options
	host      RenderHost
	sizes     *SizeMap
	speed     *SpeedTracker
	scrollbar Scrollbar
	offset    float64
	state     ScrollState
	visible   types.Range
	errored   map[int]bool
	loading   map[types.Range]bool

	now    func() time.Time
	unsubs []func()
}

// New creates an Engine over the given collection.
func New(coll *collection.Collection, opts Options, bus *events.Bus, logger logging.Logger) (*Engine, error) {
	opts.applyDefaults()

	if coll == nil {
		return nil, vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid, "viewport requires a collection")
	}
	if !opts.Orientation.Valid() {
		return nil, vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("orientation %q is not vertical or horizontal", opts.Orientation))
	}
	if opts.SlowThreshold >= opts.FastThreshold {
		return nil, vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("slow threshold %g must be below fast threshold %g",
				opts.SlowThreshold, opts.FastThreshold))
	}

	if bus == nil {
		bus = events.NewBus()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	e := &Engine{
		coll:      coll,
		bus:       bus,
		logger:    logger.WithComponent("viewport"),
		opts:      opts,
		sizes:     NewSizeMap(opts.EstimatedItemSize),
		speed:     NewSpeedTracker(opts.QuietPeriod),
		scrollbar: Scrollbar{TrackSize: opts.TrackSize, MinThumbSize: opts.MinThumbSize},
		errored:   make(map[int]bool),
		loading:   make(map[types.Range]bool),
		now:       time.Now,
	}

	// Loads resolve asynchronously; re-render when resolutions touch
	// the visible window so placeholders flip to real rows.
	e.unsubs = append(e.unsubs,
		bus.Subscribe(events.KindRangeLoaded, func(ev events.Event) {
			loaded := ev.(events.RangeLoaded)
			e.onRangeResolved(loaded.Range, nil)
		}),
		bus.Subscribe(events.KindErrorOccurred, func(ev events.Event) {
			failed := ev.(events.ErrorOccurred)
			e.onRangeResolved(failed.Range, failed.Err)
		}),
	)

	return e, nil
}

// Close removes the engine's event subscriptions.
func (e *Engine) Close() {
	for _, unsub := range e.unsubs {
		unsub()
	}
}

// SetHost attaches the render host and renders the current window.
func (e *Engine) SetHost(host RenderHost) {
	e.mu.Lock()
	e.host = host
	f := e.buildFrame()
	e.mu.Unlock()

	e.apply(f, false)
}

// UpdateViewport applies a scroll delta in pixels along the
// orientation axis: clamp the offset, recompute the visible range by
// walking the size map, reclassify scroll speed, fetch or defer per
// the resulting state, and re-render.
func (e *Engine) UpdateViewport(delta float64) {
	now := e.now()

	e.mu.Lock()
	count := e.itemCountLocked()
	e.offset = e.clampOffsetLocked(e.offset+delta, count)

	velocity := e.speed.Update(delta, now)
	direction := e.speed.Direction()
	prev := e.state
	e.state = e.classifyLocked(prev, velocity)
	next := e.state
	stateChanged := next != prev

	f := e.buildFrame()
	fetch := next.FetchAllowed()
	e.mu.Unlock()

	if stateChanged {
		e.logger.Debug(context.Background(), "scroll state changed",
			"from", prev.String(),
			"to", next.String(),
			"velocity", velocity)
		e.bus.Emit(events.SpeedChanged{
			Velocity:  velocity,
			Direction: direction,
		})
	}

	e.apply(f, fetch)
}

// ScrollToIndex jumps to index with the given alignment: start places
// the item at the viewport top, center offsets by half the container,
// end places it at the bottom. The jump resets speed tracking and
// performs the same update sequence as a scroll, fetching immediately.
func (e *Engine) ScrollToIndex(index int, alignment types.Alignment) error {
	if index < 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeInvalidRange,
			fmt.Sprintf("scroll target index %d is negative", index))
	}
	if !alignment.Valid() {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown alignment %q", alignment))
	}

	e.mu.Lock()
	count := e.itemCountLocked()
	if count > 0 && index >= count {
		index = count - 1
	}

	target := e.sizes.OffsetOf(index)
	switch alignment {
	case types.AlignCenter:
		target -= e.opts.ContainerSize / 2
	case types.AlignEnd:
		target -= e.opts.ContainerSize - e.sizes.SizeOf(index)
	}

	e.offset = e.clampOffsetLocked(target, count)
	e.speed.Reset()
	direction := e.speed.Direction()
	wasMoving := e.state != StateIdle
	e.state = StateIdle

	f := e.buildFrame()
	e.mu.Unlock()

	if wasMoving {
		e.bus.Emit(events.SpeedChanged{Velocity: 0, Direction: direction})
	}

	e.apply(f, true)

	return nil
}

// Settle advances the decay side of the state machine; hosts call it
// on a timer. A moving state drops to Settling once velocity has
// decayed to zero, then Settling drops to Idle after the quiet period,
// fetching whatever the visible window still misses.
func (e *Engine) Settle() {
	now := e.now()

	e.mu.Lock()
	if e.state == StateIdle {
		e.mu.Unlock()

		return
	}
	if e.speed.Velocity(now) > 0 {
		e.mu.Unlock()

		return
	}

	prev := e.state
	if prev == StateSettling && now.Sub(e.speed.LastSample()) >= e.opts.QuietPeriod {
		e.state = StateIdle
	} else if prev != StateSettling {
		e.state = StateSettling
	}
	stateChanged := e.state != prev
	direction := e.speed.Direction()

	f := e.buildFrame()
	fetch := e.state.FetchAllowed()
	e.mu.Unlock()

	if stateChanged {
		e.bus.Emit(events.SpeedChanged{Velocity: 0, Direction: direction})
	}

	e.apply(f, fetch)
}

// Refresh recomputes and re-renders the current window, fetching
// missing ranges when the state allows. Hosts call it after resizes or
// external data changes.
func (e *Engine) Refresh() {
	e.mu.Lock()
	count := e.itemCountLocked()
	e.offset = e.clampOffsetLocked(e.offset, count)
	f := e.buildFrame()
	fetch := e.state.FetchAllowed()
	e.mu.Unlock()

	e.apply(f, fetch)
}

// RecordItemSize stores a measured item size reported by the host and
// re-renders, since geometry downstream of the size map shifted.
func (e *Engine) RecordItemSize(index int, size float64) {
	e.mu.Lock()
	e.sizes.Record(index, size)
	count := e.itemCountLocked()
	e.offset = e.clampOffsetLocked(e.offset, count)
	f := e.buildFrame()
	e.mu.Unlock()

	e.apply(f, false)
}

// SetContainerSize updates the viewport extent (host resize).
func (e *Engine) SetContainerSize(size float64) {
	e.mu.Lock()
	e.opts.ContainerSize = size
	if e.opts.TrackSize < size || e.scrollbar.TrackSize == 0 {
		e.opts.TrackSize = size
		e.scrollbar.TrackSize = size
	}
	count := e.itemCountLocked()
	e.offset = e.clampOffsetLocked(e.offset, count)
	f := e.buildFrame()
	fetch := e.state.FetchAllowed()
	e.mu.Unlock()

	e.apply(f, fetch)
}

// State returns the current scroll state.
func (e *Engine) State() ScrollState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Offset returns the current virtual scroll offset.
func (e *Engine) Offset() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.offset
}

// VisibleRange returns the last computed visible window including
// overscan.
func (e *Engine) VisibleRange() types.Range {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.visible
}

// TotalVirtualSize returns the virtual extent of the whole list.
func (e *Engine) TotalVirtualSize() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sizes.TotalSize(e.itemCountLocked())
}

// classifyLocked maps velocity to the next state. Above the fast
// threshold reads Fast, below the slow threshold reads Slow. Between
// thresholds the direction of travel decides: ramping up from Idle is
// Scrolling, coming down from a classified state is Settling.
func (e *Engine) classifyLocked(prev ScrollState, velocity float64) ScrollState {
	switch {
	case velocity > e.opts.FastThreshold:
		return StateFast
	case velocity < e.opts.SlowThreshold:
		return StateSlow
	}

	if prev == StateFast || prev == StateSlow || prev == StateSettling {
		return StateSettling
	}

	return StateScrolling
}

// itemCountLocked returns the virtualizable item count: the known
// total, or the loaded frontier plus one range of speculative
// lookahead so the user can scroll into unloaded territory and trigger
// its load.
func (e *Engine) itemCountLocked() int {
	count, known := e.coll.Length()
	if known {
		return count
	}

	return count + e.opts.RangeSize
}

func (e *Engine) clampOffsetLocked(offset float64, count int) float64 {
	maxOffset := e.sizes.TotalSize(count) - e.opts.ContainerSize
	if maxOffset < 0 {
		maxOffset = 0
	}

	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}

	return offset
}

// buildFrame computes the visible range, rows, transform, and
// scrollbar geometry for the current offset. Callers hold mu.
func (e *Engine) buildFrame() frame {
	count := e.itemCountLocked()
	total := e.sizes.TotalSize(count)

	f := frame{offset: e.offset}

	if count == 0 {
		e.visible = types.Range{}
		f.thumbSize = e.scrollbar.TrackSize
		f.rows = []Row{}

		return f
	}

	first := e.sizes.IndexAt(e.offset, count)
	pos := e.sizes.OffsetOf(first)
	last := first
	for last < count && pos < e.offset+e.opts.ContainerSize {
		pos += e.sizes.SizeOf(last)
		last++
	}

	start := first - e.opts.Overscan
	if start < 0 {
		start = 0
	}
	end := last + e.opts.Overscan
	if end > count {
		end = count
	}

	e.visible = types.Range{Start: start, End: end}
	f.visible = e.visible
	f.translate = e.sizes.OffsetOf(start) - e.offset
	f.thumbPos, f.thumbSize = e.scrollbar.Thumb(e.offset, e.opts.ContainerSize, total)

	placeholder := e.coll.Placeholder()
	f.rows = make([]Row, 0, end-start)
	for i := start; i < end; i++ {
		row := Row{Index: i}

		switch {
		case e.coll.IsResident(i):
			row.Item, _ = e.coll.GetItem(i)
		case e.errored[i] && e.opts.ShowErrorItems:
			row.Errored = true
			f.placeholders = append(f.placeholders, i)
		default:
			// Stale cached data (after a strategy switch) still
			// renders, flagged as placeholder until it reloads.
			if item, ok := e.coll.GetItem(i); ok {
				row.Item = item
			} else {
				row.Item = placeholder
			}
			row.Placeholder = true
			f.placeholders = append(f.placeholders, i)
		}

		f.rows = append(f.rows, row)
	}

	return f
}

// apply pushes a computed frame to the host and bus, then optionally
// requests missing data. Runs outside the engine lock.
func (e *Engine) apply(f frame, fetch bool) {
	e.mu.Lock()
	host := e.host
	e.mu.Unlock()

	if host != nil {
		host.ApplyTransform(f.translate)
		host.SetScrollbar(f.thumbPos, f.thumbSize)
		host.RenderRange(f.visible.Start, f.visible.End, f.rows)
	}

	e.bus.Emit(events.ViewportChanged{
		Range:        f.visible,
		Offset:       f.offset,
		Placeholders: f.placeholders,
	})

	if fetch {
		e.loadMissing(f.visible)
	}
}

// loadMissing requests every non-resident sub-range of the visible
// window, widened to range-size boundaries, one fire-and-forget load
// per aligned chunk. The collection deduplicates overlap with loads
// already in flight; the engine additionally skips chunks it has
// itself issued and not yet seen resolve.
func (e *Engine) loadMissing(visible types.Range) {
	if visible.IsEmpty() || e.opts.RangeSize <= 0 {
		return
	}

	rangeSize := e.opts.RangeSize
	aligned := types.Range{
		Start: (visible.Start / rangeSize) * rangeSize,
		End:   ((visible.End + rangeSize - 1) / rangeSize) * rangeSize,
	}
	if count, known := e.coll.Length(); known && aligned.End > count {
		aligned.End = count
	}
	if aligned.IsEmpty() {
		return
	}

	for _, missing := range e.coll.MissingRanges(aligned) {
		chunkStart := (missing.Start / rangeSize) * rangeSize
		for ; chunkStart < missing.End; chunkStart += rangeSize {
			chunk := types.NewRange(chunkStart, rangeSize)
			chunk = chunk.Intersect(aligned)
			if chunk.IsEmpty() {
				continue
			}

			e.mu.Lock()
			already := e.loading[chunk]
			if !already {
				e.loading[chunk] = true
			}
			e.mu.Unlock()
			if already {
				continue
			}

			go e.loadChunk(chunk)
		}
	}
}

// loadChunk performs one fire-and-forget range load. Failures are
// reported through the event bus by the collection; the engine's
// error-event handler marks the indices and re-renders.
func (e *Engine) loadChunk(chunk types.Range) {
	defer func() {
		e.mu.Lock()
		delete(e.loading, chunk)
		e.mu.Unlock()
	}()

	// Issued loads run to completion on their own timeout budget;
	// there is no caller to cancel on behalf of.
	if _, err := e.coll.LoadRange(context.Background(), chunk.Start, chunk.Len()); err != nil {
		e.logger.Warn(context.Background(), err, "visible range load failed", "range", chunk.String())
	}
}

// onRangeResolved reacts to load resolutions from the bus: track the
// error surface and re-render when the resolution touches the visible
// window.
func (e *Engine) onRangeResolved(r types.Range, loadErr error) {
	e.mu.Lock()
	for i := r.Start; i < r.End; i++ {
		if loadErr != nil {
			e.errored[i] = true
		} else {
			delete(e.errored, i)
		}
	}

	touchesVisible := r.Overlaps(e.visible)
	var f frame
	if touchesVisible {
		f = e.buildFrame()
	}
	e.mu.Unlock()

	if touchesVisible {
		e.apply(f, false)
	}
}
