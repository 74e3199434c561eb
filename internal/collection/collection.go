// Package collection implements the data layer of the list engine: an
// authoritative, lazily-populated view over a possibly unbounded remote
// item sequence. It owns the item cache and range-residency
// bookkeeping, fetches ranges through a pluggable adapter per the
// active pagination strategy, deduplicates overlapping in-flight
// requests, and surfaces load state through the event bus.
//
// The collection has no viewport or rendering knowledge.
package collection

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/vlist/internal/adapters"
	"github.com/conneroisu/vlist/internal/events"
	vlisterrors "github.com/conneroisu/vlist/internal/errors"
	"github.com/conneroisu/vlist/internal/logging"
	"github.com/conneroisu/vlist/internal/types"
)

// Options configures a Collection. Zero values are filled from
// defaults; an invalid strategy is a construction-time error.
type Options struct {
	Strategy        types.Strategy
	MaxConcurrent   int
	FetchTimeout    time.Duration
	PlaceholderMask string
}

func (o *Options) applyDefaults() {
	if o.Strategy == "" {
		o.Strategy = types.StrategyOffset
	}
	if o.MaxConcurrent == 0 {
		o.MaxConcurrent = 4
	}
	if o.FetchTimeout == 0 {
		o.FetchTimeout = 3 * time.Second
	}
	if o.PlaceholderMask == "" {
		o.PlaceholderMask = "█"
	}
}

// LoadResult is the resolution of a LoadRange call.
type LoadResult struct {
	Range types.Range
	Items []types.Item
	Meta  types.Meta
}

// Stats exposes load-path counters for observability.
type Stats struct {
	Queued        int64 // requests currently waiting behind the cap
	QueuedTotal   int64 // requests ever queued
	Fetches       int64 // adapter fetch intervals issued
	ResidentItems int   // indices currently resident
}

// inflightFetch is one issued fetch interval awaited by every
// overlapping LoadRange call.
type inflightFetch struct {
	r    types.Range
	done chan struct{}
	err  error
}

// Collection is safe for concurrent use. The cache and residency set
// are only mutated under mu; no await happens mid-mutation, so readers
// always observe a consistent merge.
type Collection struct {
	adapter adapters.Adapter
	bus     *events.Bus
	logger  logging.Logger

	mu       sync.Mutex
	opts     Options
	fetcher  fetcher
	cache    map[int]types.Item
	resident rangeSet
	inflight []*inflightFetch
	attempts map[string]int

	structure   types.Structure
	placeholder types.Item
	analyzed    bool

	total     *int
	loadedEnd int
	exhausted bool

	sem         chan struct{}
	queued      atomic.Int64
	queuedTotal atomic.Int64
	fetches     atomic.Int64
}

// New creates a Collection over the given adapter.
func New(adapter adapters.Adapter, opts Options, bus *events.Bus, logger logging.Logger) (*Collection, error) {
	opts.applyDefaults()

	if adapter == nil {
		return nil, vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid, "collection requires an adapter")
	}
	if opts.MaxConcurrent < 1 {
		return nil, vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("max concurrent requests must be positive, got %d", opts.MaxConcurrent))
	}

	f, err := newFetcher(opts.Strategy)
	if err != nil {
		return nil, err
	}

	if bus == nil {
		bus = events.NewBus()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Collection{
		adapter:  adapter,
		bus:      bus,
		logger:   logger.WithComponent("collection"),
		opts:     opts,
		fetcher:  f,
		cache:    make(map[int]types.Item),
		attempts: make(map[string]int),
		sem:      make(chan struct{}, opts.MaxConcurrent),
	}, nil
}

// LoadRange ensures [offset, offset+limit) is resident, issuing at
// most one adapter fetch per missing merged interval. Calls that
// overlap an in-flight fetch await its result instead of duplicating
// it. On failure the affected range stays non-resident and retryable.
func (c *Collection) LoadRange(ctx context.Context, offset, limit int) (*LoadResult, error) {
	if offset < 0 || limit <= 0 {
		return nil, vlisterrors.NewConfigError(
			vlisterrors.ErrCodeInvalidRange,
			fmt.Sprintf("invalid range request offset=%d limit=%d", offset, limit))
	}

	requested := types.NewRange(offset, limit)

	c.mu.Lock()
	waiters, started := c.planFetches(requested)
	c.mu.Unlock()

	for _, f := range started {
		go c.runFetch(f)
	}

	var firstErr error
	for _, f := range waiters {
		select {
		case <-f.done:
			if f.err != nil && firstErr == nil {
				firstErr = f.err
			}
		case <-ctx.Done():
			// The fetch itself keeps running; stale merges are
			// idempotent no-ops for the viewport.
			return nil, ctx.Err()
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}

	return c.result(requested), nil
}

// planFetches computes the sub-ranges of requested that are neither
// resident nor in flight, registers a fetch per merged interval, and
// returns every in-flight fetch the caller must await. Callers hold mu.
func (c *Collection) planFetches(requested types.Range) (waiters, started []*inflightFetch) {
	for _, f := range c.inflight {
		if f.r.Overlaps(requested) {
			waiters = append(waiters, f)
		}
	}

	var pending rangeSet
	for _, missing := range c.resident.Missing(requested) {
		pending.Add(missing)
	}
	for _, f := range c.inflight {
		pending.Remove(f.r)
	}

	for _, interval := range pending.Ranges() {
		f := &inflightFetch{r: interval, done: make(chan struct{})}
		c.inflight = append(c.inflight, f)
		waiters = append(waiters, f)
		started = append(started, f)
	}

	return waiters, started
}

// runFetch performs one fetch interval end-to-end: concurrency gate,
// timeout, adapter call, merge, events, in-flight cleanup.
func (c *Collection) runFetch(f *inflightFetch) {
	defer close(f.done)
	defer c.removeInflight(f)

	c.acquire()
	defer c.release()

	c.fetches.Add(1)
	c.bus.Emit(events.LoadingStart{Range: f.r})
	defer c.bus.Emit(events.LoadingEnd{Range: f.r})

	c.mu.Lock()
	strategy := c.opts.Strategy
	fetcherImpl := c.fetcher
	timeout := c.opts.FetchTimeout
	c.attempts[f.r.String()]++
	attempt := c.attempts[f.r.String()]
	c.mu.Unlock()

	// Issued fetches run to completion regardless of caller
	// cancellation; only the timeout bounds them.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	items, mergeOffset, meta, err := fetcherImpl.Fetch(ctx, c.adapter, f.r.Start, f.r.Len())

	// A cursor walk can fail midway with a partial prefix; merge what
	// arrived so the walk was not wasted, then report the failure.
	if len(items) > 0 {
		c.merge(mergeOffset, items, meta)
	}

	if err != nil {
		f.err = c.classify(err, f.r, strategy, attempt)
		c.logger.Warn(context.Background(), f.err, "range load failed",
			"range", f.r.String(),
			"strategy", string(strategy),
			"attempt", attempt)
		c.bus.Emit(events.ErrorOccurred{
			Err:      f.err,
			Message:  f.err.Error(),
			Range:    f.r,
			Strategy: strategy,
		})

		return
	}

	c.logger.Debug(context.Background(), "range loaded",
		"range", f.r.String(),
		"items", len(items))
}

// merge writes fetched items into the cache at mergeOffset and marks
// them resident. Merging is idempotent and order-independent: applying
// the same payload twice, or applying payloads out of request order,
// converges to the same cache state.
func (c *Collection) merge(mergeOffset int, items []types.Item, meta types.Meta) {
	c.mu.Lock()

	for i, item := range items {
		c.cache[mergeOffset+i] = item
	}
	merged := types.NewRange(mergeOffset, len(items))
	c.resident.Add(merged)

	if meta.Total != nil {
		total := *meta.Total
		c.total = &total
	}
	if end := mergeOffset + len(items); end > c.loadedEnd {
		c.loadedEnd = end
	}
	if !meta.HasNext && c.total == nil {
		// The backend signalled the tail without reporting a total.
		c.exhausted = true
	}

	analyzeNow := !c.analyzed && len(items) > 0
	var structure types.Structure
	if analyzeNow {
		structure = analyzeStructure(items)
		c.structure = structure
		c.placeholder = buildPlaceholder(structure, c.opts.PlaceholderMask)
		c.analyzed = true
	}
	c.mu.Unlock()

	c.bus.Emit(events.RangeLoaded{Range: merged, Items: items})
	if analyzeNow {
		c.bus.Emit(events.StructureAnalyzed{Structure: structure})
	}
}

func (c *Collection) classify(err error, r types.Range, strategy types.Strategy, attempt int) error {
	var ee *vlisterrors.EngineError
	if stderrors.As(err, &ee) {
		return ee.WithRange(r.Start, r.End).
			WithContext("strategy", string(strategy)).
			WithContext("attempt", attempt)
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return vlisterrors.NewTimeoutError(
			fmt.Sprintf("range %s fetch exceeded %s", r, c.opts.FetchTimeout), err).
			WithRange(r.Start, r.End).
			WithContext("strategy", string(strategy)).
			WithContext("attempt", attempt)
	}

	return vlisterrors.NewAdapterError(
		fmt.Sprintf("adapter read failed for range %s", r), err).
		WithRange(r.Start, r.End).
		WithContext("strategy", string(strategy)).
		WithContext("attempt", attempt)
}

func (c *Collection) removeInflight(f *inflightFetch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.inflight {
		if existing == f {
			c.inflight = append(c.inflight[:i], c.inflight[i+1:]...)

			break
		}
	}
}

// acquire blocks until a fetch slot is free, counting time spent
// queued behind the cap. Queued requests are never dropped.
func (c *Collection) acquire() {
	select {
	case c.sem <- struct{}{}:
		return
	default:
	}

	c.queued.Add(1)
	c.queuedTotal.Add(1)
	c.sem <- struct{}{}
	c.queued.Add(-1)
}

func (c *Collection) release() {
	<-c.sem
}

// result snapshots the cached items covering the requested range.
func (c *Collection) result(requested types.Range) *LoadResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]types.Item, 0, requested.Len())
	for i := requested.Start; i < requested.End; i++ {
		if item, ok := c.cache[i]; ok {
			items = append(items, item)
		}
	}

	meta := types.Meta{Limit: requested.Len()}
	if c.total != nil {
		total := *c.total
		meta.Total = &total
		meta.HasNext = requested.End < total
		meta.HasPrev = requested.Start > 0
	}

	return &LoadResult{Range: requested, Items: items, Meta: meta}
}

// GetItem is a synchronous cache read; it never triggers a fetch.
func (c *Collection) GetItem(index int) (types.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.cache[index]

	return item, ok
}

// IsResident reports whether index has real (non-placeholder) data.
func (c *Collection) IsResident(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resident.ContainsIndex(index)
}

// ResidentRanges returns the loaded [start,end) spans in ascending
// order. The viewport uses this to compute missing sub-ranges for a
// visible window.
func (c *Collection) ResidentRanges() []types.Range {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resident.Ranges()
}

// MissingRanges returns the sub-ranges of r that are not resident.
func (c *Collection) MissingRanges(r types.Range) []types.Range {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resident.Missing(r)
}

// SetStrategy switches the pagination strategy. Residency bookkeeping
// is invalidated because offset semantics differ between strategies
// (cursor has no stable offset); cached items are retained and will be
// overwritten by idempotent merges as ranges reload.
func (c *Collection) SetStrategy(strategy types.Strategy) error {
	f, err := newFetcher(strategy)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.Strategy = strategy
	c.fetcher = f
	c.resident.Clear()
	c.attempts = make(map[string]int)
	c.total = nil
	c.loadedEnd = 0
	c.exhausted = false

	return nil
}

// Strategy returns the active pagination strategy.
func (c *Collection) Strategy() types.Strategy {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.opts.Strategy
}

// Structure returns the placeholder structure inferred from the first
// non-empty load, or nil when nothing has loaded yet.
func (c *Collection) Structure() types.Structure {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.structure
}

// Placeholder returns a masked stand-in item shaped like real data, or
// nil before structure analysis has run.
func (c *Collection) Placeholder() types.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.placeholder
}

// Length returns the known or estimated item count. known is true when
// the backend reported a total or the tail has been reached; otherwise
// the count is the loaded frontier and callers should treat the
// sequence as still growing.
func (c *Collection) Length() (count int, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total != nil {
		return *c.total, true
	}
	if c.exhausted {
		return c.loadedEnd, true
	}

	return c.loadedEnd, false
}

// Stats returns load-path counters.
func (c *Collection) Stats() Stats {
	c.mu.Lock()
	resident := c.resident.Covered()
	c.mu.Unlock()

	return Stats{
		Queued:        c.queued.Load(),
		QueuedTotal:   c.queuedTotal.Load(),
		Fetches:       c.fetches.Load(),
		ResidentItems: resident,
	}
}
