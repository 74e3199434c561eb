package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/vlist/internal/adapters"
	"github.com/conneroisu/vlist/internal/events"
	vlisterrors "github.com/conneroisu/vlist/internal/errors"
	"github.com/conneroisu/vlist/internal/types"
)

func newCollection(t *testing.T, adapter adapters.Adapter, opts Options) (*Collection, *events.Bus) {
	t.Helper()

	bus := events.NewBus()
	c, err := New(adapter, opts, bus, nil)
	require.NoError(t, err)

	return c, bus
}

func TestLoadRangeMergesAtOffset(t *testing.T) {
	adapter := newRecordingAdapter(100)
	c, _ := newCollection(t, adapter, Options{Strategy: types.StrategyOffset})

	res, err := c.LoadRange(context.Background(), 40, 20)
	require.NoError(t, err)
	require.Len(t, res.Items, 20)

	// The 11th returned item lands at index 50.
	item, ok := c.GetItem(50)
	require.True(t, ok)
	assert.Equal(t, "item-50", item.ID())
	assert.Equal(t, res.Items[10], item)

	assert.Equal(t, []types.Range{{Start: 40, End: 60}}, c.ResidentRanges())
}

func TestGetItemNeverFetches(t *testing.T) {
	adapter := newRecordingAdapter(100)
	c, _ := newCollection(t, adapter, Options{})

	_, ok := c.GetItem(5)
	assert.False(t, ok)
	assert.Empty(t, adapter.Calls())
}

func TestOverlappingCallsDeduplicated(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var calls []adapters.Params

	backing := newRecordingAdapter(100)
	blocking := adapters.AdapterFunc(func(ctx context.Context, params adapters.Params) (*adapters.Result, error) {
		mu.Lock()
		calls = append(calls, params)
		mu.Unlock()
		<-release

		return backing.SliceAdapter.Read(ctx, params)
	})

	c, _ := newCollection(t, blocking, Options{Strategy: types.StrategyOffset, MaxConcurrent: 8})

	var wg sync.WaitGroup
	wg.Add(2)
	errs := make([]error, 2)
	go func() {
		defer wg.Done()
		_, errs[0] = c.LoadRange(context.Background(), 40, 20)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = c.LoadRange(context.Background(), 50, 20)
	}()

	// Let both calls register their fetch plans before releasing.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(calls) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// The overlap [50,60) was fetched once: one call for [40,60) and
	// one for the non-overlapping remainder [60,70).
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2)

	covered := map[int]int{}
	for _, p := range calls {
		for i := p.Offset; i < p.Offset+p.Limit; i++ {
			covered[i]++
		}
	}
	for i := 40; i < 70; i++ {
		assert.Equal(t, 1, covered[i], "index %d fetched more than once", i)
	}
}

func TestSequentialReloadIsNoFetch(t *testing.T) {
	adapter := newRecordingAdapter(100)
	c, _ := newCollection(t, adapter, Options{})

	_, err := c.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)
	_, err = c.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)

	assert.Len(t, adapter.Calls(), 1)
}

func TestPartialOverlapFetchesOnlyHoles(t *testing.T) {
	adapter := newRecordingAdapter(100)
	c, _ := newCollection(t, adapter, Options{})

	_, err := c.LoadRange(context.Background(), 20, 20)
	require.NoError(t, err)

	_, err = c.LoadRange(context.Background(), 10, 40)
	require.NoError(t, err)

	calls := adapter.Calls()
	require.Len(t, calls, 3)
	offsets := map[int]bool{}
	for _, p := range calls[1:] {
		offsets[p.Offset] = true
	}
	assert.True(t, offsets[10], "expected a fetch for hole [10,20)")
	assert.True(t, offsets[40], "expected a fetch for hole [40,50)")
	assert.Equal(t, []types.Range{{Start: 10, End: 50}}, c.ResidentRanges())
}

func TestFailedRangeStaysRetryable(t *testing.T) {
	fail := true
	backing := newRecordingAdapter(100)
	flaky := adapters.AdapterFunc(func(ctx context.Context, params adapters.Params) (*adapters.Result, error) {
		if fail {
			return nil, errors.New("backend down")
		}

		return backing.SliceAdapter.Read(ctx, params)
	})

	c, bus := newCollection(t, flaky, Options{})

	var errEvents []events.ErrorOccurred
	bus.Subscribe(events.KindErrorOccurred, func(e events.Event) {
		errEvents = append(errEvents, e.(events.ErrorOccurred))
	})

	_, err := c.LoadRange(context.Background(), 40, 20)
	require.Error(t, err)
	assert.True(t, vlisterrors.IsAdapterError(err))
	assert.Empty(t, c.ResidentRanges())

	require.Len(t, errEvents, 1)
	assert.Equal(t, types.Range{Start: 40, End: 60}, errEvents[0].Range)
	assert.Equal(t, types.StrategyOffset, errEvents[0].Strategy)

	// The range was not marked resident, so a retry fetches again.
	fail = false
	res, err := c.LoadRange(context.Background(), 40, 20)
	require.NoError(t, err)
	assert.Len(t, res.Items, 20)
	assert.Equal(t, []types.Range{{Start: 40, End: 60}}, c.ResidentRanges())
}

func TestFetchTimeoutClassified(t *testing.T) {
	stuck := adapters.AdapterFunc(func(ctx context.Context, params adapters.Params) (*adapters.Result, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	})

	c, _ := newCollection(t, stuck, Options{FetchTimeout: 30 * time.Millisecond})

	_, err := c.LoadRange(context.Background(), 0, 20)
	require.Error(t, err)
	assert.True(t, vlisterrors.IsTimeout(err))
	assert.Empty(t, c.ResidentRanges())
}

func TestCallerCancellationDoesNotPoisonState(t *testing.T) {
	release := make(chan struct{})
	backing := newRecordingAdapter(100)
	blocking := adapters.AdapterFunc(func(ctx context.Context, params adapters.Params) (*adapters.Result, error) {
		<-release

		return backing.SliceAdapter.Read(ctx, params)
	})

	c, bus := newCollection(t, blocking, Options{})

	loaded := make(chan struct{})
	bus.Subscribe(events.KindRangeLoaded, func(events.Event) { close(loaded) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.LoadRange(ctx, 0, 20)
	require.ErrorIs(t, err, context.Canceled)

	// The issued fetch completes and merges anyway; stale merges are
	// idempotent no-ops for callers that scrolled away.
	close(release)
	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch never completed after caller cancellation")
	}
	assert.Equal(t, []types.Range{{Start: 0, End: 20}}, c.ResidentRanges())
}

func TestStructureAnalyzedExactlyOnce(t *testing.T) {
	adapter := newRecordingAdapter(100)
	c, bus := newCollection(t, adapter, Options{})

	analyzed := 0
	bus.Subscribe(events.KindStructureAnalyzed, func(events.Event) { analyzed++ })

	for i := 0; i < 4; i++ {
		_, err := c.LoadRange(context.Background(), i*20, 20)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, analyzed)
	require.NotNil(t, c.Structure())
	assert.Contains(t, c.Structure(), "name")

	placeholder := c.Placeholder()
	require.NotNil(t, placeholder)
	assert.Equal(t, "", placeholder["id"])
	assert.NotEmpty(t, placeholder["name"])
}

func TestSetStrategyInvalidatesResidencyKeepsCache(t *testing.T) {
	adapter := newRecordingAdapter(100)
	c, _ := newCollection(t, adapter, Options{Strategy: types.StrategyOffset})

	_, err := c.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)
	require.NotEmpty(t, c.ResidentRanges())

	require.NoError(t, c.SetStrategy(types.StrategyCursor))

	assert.Empty(t, c.ResidentRanges())
	assert.Equal(t, types.StrategyCursor, c.Strategy())

	// Cached items remain readable even though residency was reset.
	item, ok := c.GetItem(5)
	assert.True(t, ok)
	assert.Equal(t, "item-5", item.ID())
}

func TestSetStrategyRejectsUnknown(t *testing.T) {
	adapter := newRecordingAdapter(10)
	c, _ := newCollection(t, adapter, Options{})

	err := c.SetStrategy("keyset")
	require.Error(t, err)
	assert.True(t, vlisterrors.IsConfigError(err))
	assert.Equal(t, types.StrategyOffset, c.Strategy())
}

func TestLengthFromTotal(t *testing.T) {
	adapter := newRecordingAdapter(100)
	c, _ := newCollection(t, adapter, Options{})

	count, known := c.Length()
	assert.False(t, known)
	assert.Equal(t, 0, count)

	_, err := c.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)

	count, known = c.Length()
	assert.True(t, known)
	assert.Equal(t, 100, count)
}

func TestLengthCursorGrowsUntilTail(t *testing.T) {
	adapter := newRecordingAdapter(45)
	c, _ := newCollection(t, adapter, Options{Strategy: types.StrategyCursor})

	_, err := c.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)

	count, known := c.Length()
	assert.False(t, known)
	assert.Equal(t, 20, count)

	_, err = c.LoadRange(context.Background(), 20, 20)
	require.NoError(t, err)
	_, err = c.LoadRange(context.Background(), 40, 20)
	require.NoError(t, err)

	count, known = c.Length()
	assert.True(t, known)
	assert.Equal(t, 45, count)
}

func TestLoadingEventsBracketFetch(t *testing.T) {
	adapter := newRecordingAdapter(100)
	c, bus := newCollection(t, adapter, Options{})

	var order []events.Kind
	var mu sync.Mutex
	bus.SubscribeAll(func(e events.Event) {
		mu.Lock()
		order = append(order, e.Kind())
		mu.Unlock()
	})

	_, err := c.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, order)
	assert.Equal(t, events.KindLoadingStart, order[0])
	assert.Equal(t, events.KindLoadingEnd, order[len(order)-1])
	assert.Contains(t, order, events.KindRangeLoaded)
}

func TestConcurrencyCapQueuesInsteadOfDropping(t *testing.T) {
	release := make(chan struct{})
	backing := newRecordingAdapter(200)
	blocking := adapters.AdapterFunc(func(ctx context.Context, params adapters.Params) (*adapters.Result, error) {
		<-release

		return backing.SliceAdapter.Read(ctx, params)
	})

	c, _ := newCollection(t, blocking, Options{MaxConcurrent: 1})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.LoadRange(context.Background(), i*50, 20)
		}(i)
	}

	require.Eventually(t, func() bool {
		return c.Stats().Queued >= 1
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "request %d", i)
	}
	assert.GreaterOrEqual(t, c.Stats().QueuedTotal, int64(1))
	assert.Equal(t, int64(0), c.Stats().Queued)
}

func TestInvalidRangeRequestRejected(t *testing.T) {
	adapter := newRecordingAdapter(10)
	c, _ := newCollection(t, adapter, Options{})

	_, err := c.LoadRange(context.Background(), -1, 20)
	require.Error(t, err)

	_, err = c.LoadRange(context.Background(), 0, 0)
	require.Error(t, err)
}

func TestNewRequiresAdapter(t *testing.T) {
	_, err := New(nil, Options{}, nil, nil)
	require.Error(t, err)
	assert.True(t, vlisterrors.IsConfigError(err))
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New(newRecordingAdapter(1), Options{Strategy: "keyset"}, nil, nil)
	require.Error(t, err)
}

func TestErrorCarriesAttemptContext(t *testing.T) {
	calls := 0
	flaky := adapters.AdapterFunc(func(ctx context.Context, params adapters.Params) (*adapters.Result, error) {
		calls++

		return nil, fmt.Errorf("transient failure %d", calls)
	})

	c, _ := newCollection(t, flaky, Options{})

	_, err := c.LoadRange(context.Background(), 0, 20)
	require.Error(t, err)
	_, err = c.LoadRange(context.Background(), 0, 20)
	require.Error(t, err)

	var ee *vlisterrors.EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, ee.Context["attempt"])
	assert.Equal(t, "offset", ee.Context["strategy"])
	assert.Equal(t, 0, ee.Context["range_start"])
}
