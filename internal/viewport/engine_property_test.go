//go:build property
// +build property

package viewport

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/vlist/internal/collection"
	"github.com/conneroisu/vlist/internal/events"
)

// TestViewportProperties checks the geometric invariants over
// randomized scroll input.
func TestViewportProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: the virtual offset stays inside
	// [0, max(0, totalVirtualSize - containerSize)] for any delta
	// sequence.
	properties.Property("offset clamp", prop.ForAll(
		func(deltas []int) bool {
			adapter := newCountingAdapter(200)
			bus := events.NewBus()
			coll, err := collection.New(adapter, collection.Options{}, bus, nil)
			if err != nil {
				return false
			}

			e, err := New(coll, testOptions(), bus, nil)
			if err != nil {
				return false
			}
			defer e.Close()

			for _, delta := range deltas {
				e.UpdateViewport(float64(delta))

				maxOffset := e.TotalVirtualSize() - 500
				if maxOffset < 0 {
					maxOffset = 0
				}
				if offset := e.Offset(); offset < 0 || offset > maxOffset {
					return false
				}
			}

			return true
		},
		gen.SliceOfN(16, gen.IntRange(-5000, 5000)),
	))

	// Property: thumb position plus thumb size never exceeds the
	// track, for any offset in its valid range.
	properties.Property("thumb bounds", prop.ForAll(
		func(offset, container, total int) bool {
			s := Scrollbar{TrackSize: 500, MinThumbSize: 20}

			pos, size := s.Thumb(float64(offset), float64(container), float64(total))

			return pos >= 0 && pos+size <= 500+1e-9
		},
		gen.IntRange(0, 1_000_000),
		gen.IntRange(1, 2000),
		gen.IntRange(1, 1_000_000),
	))

	// Property: IndexAt and OffsetOf agree: the resolved index's span
	// contains the queried offset, with arbitrary measured sizes.
	properties.Property("size map walk consistency", prop.ForAll(
		func(sizes []int, at int) bool {
			m := NewSizeMap(40)
			for i, size := range sizes {
				m.Record(i*3, float64(size)) // sparse: every third index
			}

			n := 100
			total := m.TotalSize(n)
			offset := float64(at) / 1e6 * (total - 1)
			if offset < 0 {
				offset = 0
			}

			i := m.IndexAt(offset, n)
			start := m.OffsetOf(i)

			return start <= offset+1e-6 && offset < start+m.SizeOf(i)+1e-6
		},
		gen.SliceOfN(10, gen.IntRange(1, 200)),
		gen.IntRange(0, 1_000_000),
	))

	properties.TestingRun(t)
}
