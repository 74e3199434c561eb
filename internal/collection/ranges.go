package collection

import (
	"sort"

	"github.com/conneroisu/vlist/internal/types"
)

// rangeSet maintains a sorted, non-overlapping set of half-open index
// ranges. It backs both residency bookkeeping and the in-flight
// request merge: overlapping or adjacent insertions coalesce, and
// Missing answers index-level coverage questions so out-of-order or
// resized ranges never leave holes behind a coarse "fetched" flag.
type rangeSet struct {
	ranges []types.Range // sorted by Start, pairwise disjoint
}

// Add inserts a range, merging it with any overlapping or adjacent
// entries. Empty ranges are ignored.
func (s *rangeSet) Add(r types.Range) {
	if r.IsEmpty() {
		return
	}

	merged := r
	out := s.ranges[:0:0]
	inserted := false

	for _, existing := range s.ranges {
		switch {
		case existing.End < merged.Start:
			out = append(out, existing)
		case merged.End < existing.Start:
			if !inserted {
				out = append(out, merged)
				inserted = true
			}
			out = append(out, existing)
		default:
			merged = merged.Union(existing)
		}
	}
	if !inserted {
		out = append(out, merged)
	}

	s.ranges = out
	sort.Slice(s.ranges, func(i, j int) bool { return s.ranges[i].Start < s.ranges[j].Start })
}

// Remove subtracts a range, splitting entries that straddle it.
func (s *rangeSet) Remove(r types.Range) {
	if r.IsEmpty() {
		return
	}

	out := s.ranges[:0:0]
	for _, existing := range s.ranges {
		if !existing.Overlaps(r) {
			out = append(out, existing)

			continue
		}
		if existing.Start < r.Start {
			out = append(out, types.Range{Start: existing.Start, End: r.Start})
		}
		if existing.End > r.End {
			out = append(out, types.Range{Start: r.End, End: existing.End})
		}
	}

	s.ranges = out
}

// Contains reports whether every index of r is covered.
func (s *rangeSet) Contains(r types.Range) bool {
	return len(s.Missing(r)) == 0
}

// ContainsIndex reports whether a single index is covered.
func (s *rangeSet) ContainsIndex(i int) bool {
	for _, existing := range s.ranges {
		if existing.Contains(i) {
			return true
		}
		if existing.Start > i {
			break
		}
	}

	return false
}

// Missing returns the sub-ranges of r not covered by the set, in
// ascending order.
func (s *rangeSet) Missing(r types.Range) []types.Range {
	if r.IsEmpty() {
		return nil
	}

	var missing []types.Range
	cursor := r.Start

	for _, existing := range s.ranges {
		if existing.End <= cursor {
			continue
		}
		if existing.Start >= r.End {
			break
		}
		if existing.Start > cursor {
			missing = append(missing, types.Range{Start: cursor, End: existing.Start})
		}
		if existing.End > cursor {
			cursor = existing.End
		}
	}

	if cursor < r.End {
		missing = append(missing, types.Range{Start: cursor, End: r.End})
	}

	return missing
}

// Ranges returns a copy of the covered ranges in ascending order.
func (s *rangeSet) Ranges() []types.Range {
	out := make([]types.Range, len(s.ranges))
	copy(out, s.ranges)

	return out
}

// Clear drops all coverage.
func (s *rangeSet) Clear() {
	s.ranges = nil
}

// Covered returns the total number of covered indices.
func (s *rangeSet) Covered() int {
	total := 0
	for _, r := range s.ranges {
		total += r.Len()
	}

	return total
}
