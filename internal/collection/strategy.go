package collection

import (
	"context"
	"fmt"
	"sync"

	"github.com/conneroisu/vlist/internal/adapters"
	vlisterrors "github.com/conneroisu/vlist/internal/errors"
	"github.com/conneroisu/vlist/internal/types"
)

// fetcher translates a requested range into adapter calls for one
// pagination strategy and reports the offset at which returned items
// merge into the cache. Offset semantics differ per strategy, which is
// why switching strategies invalidates residency bookkeeping.
type fetcher interface {
	// Fetch covers [offset, offset+limit) as far as the backend allows
	// and returns the items plus the merge offset of the first item.
	Fetch(ctx context.Context, adapter adapters.Adapter, offset, limit int) (items []types.Item, mergeOffset int, meta types.Meta, err error)

	// Reset drops per-strategy position state (cursor bookmarks).
	Reset()
}

func newFetcher(strategy types.Strategy) (fetcher, error) {
	switch strategy {
	case types.StrategyOffset:
		return &offsetFetcher{}, nil
	case types.StrategyPage:
		return &pageFetcher{}, nil
	case types.StrategyCursor:
		return newCursorFetcher(), nil
	default:
		return nil, vlisterrors.NewConfigError(
			vlisterrors.ErrCodeUnknownStrategy,
			fmt.Sprintf("unknown pagination strategy: %q", strategy),
		)
	}
}

// offsetFetcher maps ranges 1:1 onto offset/limit reads.
type offsetFetcher struct{}

func (f *offsetFetcher) Fetch(ctx context.Context, adapter adapters.Adapter, offset, limit int) ([]types.Item, int, types.Meta, error) {
	res, err := adapter.Read(ctx, adapters.Params{
		Strategy: types.StrategyOffset,
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, types.Meta{}, err
	}
	if res == nil || res.Items == nil {
		return nil, 0, types.Meta{}, vlisterrors.NewMalformedResponseError(
			"offset response missing items array")
	}

	return res.Items, offset, res.Meta, nil
}

func (f *offsetFetcher) Reset() {}

// pageFetcher maps ranges onto page/limit reads. The requested offset
// is rounded down to the nearest page boundary so one call covers the
// range start; the merge offset reflects the rounding.
type pageFetcher struct{}

func (f *pageFetcher) Fetch(ctx context.Context, adapter adapters.Adapter, offset, limit int) ([]types.Item, int, types.Meta, error) {
	page := offset/limit + 1
	mergeOffset := (page - 1) * limit

	res, err := adapter.Read(ctx, adapters.Params{
		Strategy: types.StrategyPage,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, types.Meta{}, err
	}
	if res == nil || res.Items == nil {
		return nil, 0, types.Meta{}, vlisterrors.NewMalformedResponseError(
			"page response missing items array")
	}

	return res.Items, mergeOffset, res.Meta, nil
}

func (f *pageFetcher) Reset() {}

// cursorFetcher maps ranges onto cursor/limit reads. Cursors cannot
// seek, so the fetcher remembers the cursor observed at each offset it
// has reached and walks forward page-by-page from the nearest bookmark
// when a range starts beyond known territory.
type cursorFetcher struct {
	mu sync.Mutex
	// bookmarks[offset] is the cursor that resumes reading at offset.
	bookmarks map[int]string
}

func newCursorFetcher() *cursorFetcher {
	return &cursorFetcher{bookmarks: map[int]string{0: ""}}
}

func (f *cursorFetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookmarks = map[int]string{0: ""}
}

func (f *cursorFetcher) Fetch(ctx context.Context, adapter adapters.Adapter, offset, limit int) ([]types.Item, int, types.Meta, error) {
	start, cursor := f.nearestBookmark(offset)

	var (
		collected []types.Item
		meta      types.Meta
		pos       = start
	)

	for {
		res, err := adapter.Read(ctx, adapters.Params{
			Strategy: types.StrategyCursor,
			Cursor:   cursor,
			Limit:    limit,
		})
		if err != nil {
			// Items gathered before the failure are still merged by
			// the caller so the walk is not wasted.
			return collected, start, meta, err
		}
		if res == nil || res.Items == nil {
			return collected, start, meta, vlisterrors.NewMalformedResponseError(
				"cursor response missing items array")
		}

		collected = append(collected, res.Items...)
		meta = res.Meta
		pos += len(res.Items)

		if res.Meta.NextCursor != "" {
			f.remember(pos, res.Meta.NextCursor)
		}

		if pos >= offset+limit || !res.Meta.HasNext || len(res.Items) == 0 {
			return collected, start, meta, nil
		}

		cursor = res.Meta.NextCursor
	}
}

// nearestBookmark returns the largest bookmarked offset <= target.
// Offset 0 (empty cursor) is always present.
func (f *cursorFetcher) nearestBookmark(target int) (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	best := 0
	cursor := ""
	for offset, c := range f.bookmarks {
		if offset <= target && offset > best {
			best = offset
			cursor = c
		}
	}
	if best == 0 {
		cursor = f.bookmarks[0]
	}

	return best, cursor
}

func (f *cursorFetcher) remember(offset int, cursor string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookmarks[offset] = cursor
}
