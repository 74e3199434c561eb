// Package adapters defines the data-fetch contract consumed by the
// collection layer and a few ready-made implementations: an in-memory
// slice adapter, a JSON-file adapter with live reload, and an HTTP
// adapter for REST backends.
//
// The engine never talks to a backend directly; everything flows
// through Read. Params are shaped by the active pagination strategy:
// exactly one of Page, Offset, or Cursor is meaningful per call.
package adapters

import (
	"context"

	"github.com/conneroisu/vlist/internal/types"
)

// Params is a strategy-shaped read request.
//
//	page:   {Page >= 1, Limit > 0}
//	offset: {Offset >= 0, Limit > 0}
//	cursor: {Cursor (empty for first page), Limit > 0}
type Params struct {
	Strategy types.Strategy `json:"strategy"`
	Page     int            `json:"page,omitempty"`
	Offset   int            `json:"offset,omitempty"`
	Cursor   string         `json:"cursor,omitempty"`
	Limit    int            `json:"limit"`
}

// Result is a successful adapter response.
type Result struct {
	Items []types.Item `json:"items"`
	Meta  types.Meta   `json:"meta"`
}

// Adapter is the externally supplied read function. Implementations
// must return an error on failure; the collection classifies it.
type Adapter interface {
	Read(ctx context.Context, params Params) (*Result, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, params Params) (*Result, error)

// Read implements Adapter.
func (f AdapterFunc) Read(ctx context.Context, params Params) (*Result, error) {
	return f(ctx, params)
}
