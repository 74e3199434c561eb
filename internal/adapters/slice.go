package adapters

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/conneroisu/vlist/internal/types"
)

// SliceAdapter serves reads from an in-memory item slice. It backs the
// terminal demo, the dev server's built-in dataset, and most tests.
//
// Cursor strings are opaque to callers; internally they encode the
// next offset into the slice.
type SliceAdapter struct {
	mu    sync.RWMutex
	items []types.Item

	// Latency, when set, delays every read. Used by the demos to make
	// placeholder rendering observable.
	Latency time.Duration
}

// NewSliceAdapter creates an adapter over the given items.
func NewSliceAdapter(items []types.Item) *SliceAdapter {
	return &SliceAdapter{items: items}
}

// SetItems swaps the backing slice.
func (a *SliceAdapter) SetItems(items []types.Item) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = items
}

// Len returns the current item count.
func (a *SliceAdapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.items)
}

// Read implements Adapter for all three strategies.
func (a *SliceAdapter) Read(ctx context.Context, params Params) (*Result, error) {
	if params.Limit <= 0 {
		return nil, fmt.Errorf("slice adapter: limit must be positive, got %d", params.Limit)
	}

	if a.Latency > 0 {
		select {
		case <-time.After(a.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	switch params.Strategy {
	case types.StrategyPage:
		return a.readPage(params)
	case types.StrategyOffset:
		return a.readOffset(params)
	case types.StrategyCursor:
		return a.readCursor(params)
	default:
		return nil, fmt.Errorf("slice adapter: unsupported strategy %q", params.Strategy)
	}
}

func (a *SliceAdapter) readPage(params Params) (*Result, error) {
	if params.Page < 1 {
		return nil, fmt.Errorf("slice adapter: page must be >= 1, got %d", params.Page)
	}

	offset := (params.Page - 1) * params.Limit
	items := a.slice(offset, params.Limit)

	total := len(a.items)
	totalPages := (total + params.Limit - 1) / params.Limit

	return &Result{
		Items: items,
		Meta: types.Meta{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      &total,
			TotalPages: &totalPages,
			HasNext:    offset+params.Limit < total,
			HasPrev:    params.Page > 1,
		},
	}, nil
}

func (a *SliceAdapter) readOffset(params Params) (*Result, error) {
	if params.Offset < 0 {
		return nil, fmt.Errorf("slice adapter: offset must be >= 0, got %d", params.Offset)
	}

	items := a.slice(params.Offset, params.Limit)
	total := len(a.items)

	return &Result{
		Items: items,
		Meta: types.Meta{
			Offset:  params.Offset,
			Limit:   params.Limit,
			Total:   &total,
			HasNext: params.Offset+params.Limit < total,
			HasPrev: params.Offset > 0,
		},
	}, nil
}

func (a *SliceAdapter) readCursor(params Params) (*Result, error) {
	offset := 0
	if params.Cursor != "" {
		parsed, err := strconv.Atoi(params.Cursor)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("slice adapter: invalid cursor %q", params.Cursor)
		}
		offset = parsed
	}

	items := a.slice(offset, params.Limit)
	hasNext := offset+len(items) < len(a.items)

	meta := types.Meta{
		Limit:   params.Limit,
		HasNext: hasNext,
	}
	if hasNext {
		meta.NextCursor = strconv.Itoa(offset + len(items))
	}

	return &Result{Items: items, Meta: meta}, nil
}

func (a *SliceAdapter) slice(offset, limit int) []types.Item {
	if offset >= len(a.items) {
		return []types.Item{}
	}

	end := offset + limit
	if end > len(a.items) {
		end = len(a.items)
	}

	out := make([]types.Item, end-offset)
	copy(out, a.items[offset:end])

	return out
}
