// Package types holds the core domain types shared by the collection
// and viewport layers: items, half-open index ranges, pagination
// metadata, and the inferred placeholder structure.
package types

import "fmt"

// Item is an opaque application record. Items are identified by an
// "id" field and addressed by their index in the logical sequence.
type Item map[string]interface{}

// ID returns the item's id field as a string, or "" when absent.
func (it Item) ID() string {
	if it == nil {
		return ""
	}
	if v, ok := it["id"]; ok {
		return fmt.Sprintf("%v", v)
	}

	return ""
}

// Range is a contiguous half-open [Start, End) span of item indices.
// Ranges are the unit of fetch and cache bookkeeping.
type Range struct {
	Start int
	End   int
}

// NewRange builds a range from an offset and a length.
func NewRange(offset, length int) Range {
	return Range{Start: offset, End: offset + length}
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}

	return r.End - r.Start
}

// IsEmpty reports whether the range covers no indices.
func (r Range) IsEmpty() bool {
	return r.End <= r.Start
}

// Contains reports whether index i falls inside the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Overlaps reports whether the two ranges share at least one index.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Adjacent reports whether the two ranges touch without overlapping.
func (r Range) Adjacent(o Range) bool {
	return r.End == o.Start || o.End == r.Start
}

// Union returns the smallest range covering both ranges. Only
// meaningful for overlapping or adjacent ranges.
func (r Range) Union(o Range) Range {
	out := r
	if o.Start < out.Start {
		out.Start = o.Start
	}
	if o.End > out.End {
		out.End = o.End
	}

	return out
}

// Intersect returns the shared span of the two ranges. The result is
// empty when they do not overlap.
func (r Range) Intersect(o Range) Range {
	out := Range{Start: r.Start, End: r.End}
	if o.Start > out.Start {
		out.Start = o.Start
	}
	if o.End < out.End {
		out.End = o.End
	}
	if out.End < out.Start {
		out.End = out.Start
	}

	return out
}

// String renders the range in interval notation.
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Meta carries pagination metadata interpreted per the active strategy.
// Total and TotalPages are pointers because cursor responses have no
// total and page/offset backends may omit it.
type Meta struct {
	Page       int    `json:"page,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	Limit      int    `json:"limit"`
	Total      *int   `json:"total,omitempty"`
	TotalPages *int   `json:"totalPages,omitempty"`
	HasNext    bool   `json:"hasNext"`
	HasPrev    bool   `json:"hasPrev"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// FieldRange records the observed length bounds for one item field.
type FieldRange struct {
	MinLength int `json:"minLength"`
	MaxLength int `json:"maxLength"`
}

// Structure maps item field names to their observed length bounds.
// Inferred once from the first non-empty batch of real items and
// immutable thereafter; placeholder items are shaped from it.
type Structure map[string]FieldRange

// Strategy selects how ranges are translated into adapter calls.
type Strategy string

const (
	StrategyPage   Strategy = "page"
	StrategyOffset Strategy = "offset"
	StrategyCursor Strategy = "cursor"
)

// Valid reports whether the strategy is one of the known variants.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyPage, StrategyOffset, StrategyCursor:
		return true
	}

	return false
}

// Orientation is the scroll axis of the viewport.
type Orientation string

const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
)

// Valid reports whether the orientation is a known axis.
func (o Orientation) Valid() bool {
	return o == OrientationVertical || o == OrientationHorizontal
}

// Alignment controls where a target index lands after ScrollToIndex.
type Alignment string

const (
	AlignStart  Alignment = "start"
	AlignCenter Alignment = "center"
	AlignEnd    Alignment = "end"
)

// Valid reports whether the alignment is a known variant.
func (a Alignment) Valid() bool {
	switch a {
	case AlignStart, AlignCenter, AlignEnd:
		return true
	}

	return false
}

// Direction is the sign of recent scroll movement.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)
