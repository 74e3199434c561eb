package viewport

// SizeMap is a sparse mapping from item index to measured pixel size.
// Indices without a measurement fall back to a running estimate: the
// arithmetic mean of every measurement taken so far, recomputed on
// each sample so it never regresses to a stale value once better data
// exists. Before any measurement the configured default applies.
type SizeMap struct {
	measured        map[int]float64
	sum             float64
	defaultEstimate float64
}

// NewSizeMap creates a size map with the given default estimate.
func NewSizeMap(defaultEstimate float64) *SizeMap {
	return &SizeMap{
		measured:        make(map[int]float64),
		defaultEstimate: defaultEstimate,
	}
}

// Record stores a measurement for index. Re-measuring an index
// replaces its previous sample in the running mean.
func (m *SizeMap) Record(index int, size float64) {
	if size <= 0 {
		return
	}

	if prev, ok := m.measured[index]; ok {
		m.sum -= prev
	}
	m.measured[index] = size
	m.sum += size
}

// SizeOf returns the measured size of index, or the running estimate.
func (m *SizeMap) SizeOf(index int) float64 {
	if size, ok := m.measured[index]; ok {
		return size
	}

	return m.Estimate()
}

// Measured reports whether index has a real measurement.
func (m *SizeMap) Measured(index int) bool {
	_, ok := m.measured[index]

	return ok
}

// MeasuredCount returns the number of measured indices.
func (m *SizeMap) MeasuredCount() int {
	return len(m.measured)
}

// Estimate returns the mean of all measurements, or the default when
// nothing has been measured yet. It sizes every index beyond the
// loaded data, which is what lets TotalSize exist before all items
// are known.
func (m *SizeMap) Estimate() float64 {
	if len(m.measured) == 0 {
		return m.defaultEstimate
	}

	return m.sum / float64(len(m.measured))
}

// TotalSize returns the virtual size of itemCount items: the sum of
// measurements plus the estimate for every unmeasured index.
func (m *SizeMap) TotalSize(itemCount int) float64 {
	if itemCount <= 0 {
		return 0
	}

	measuredSum := 0.0
	measuredCount := 0
	for index, size := range m.measured {
		if index < itemCount {
			measuredSum += size
			measuredCount++
		}
	}

	return measuredSum + float64(itemCount-measuredCount)*m.Estimate()
}

// OffsetOf returns the cumulative size of all items before index.
func (m *SizeMap) OffsetOf(index int) float64 {
	if index <= 0 {
		return 0
	}

	estimate := m.Estimate()
	offset := float64(index) * estimate
	for i, size := range m.measured {
		if i < index {
			offset += size - estimate
		}
	}

	return offset
}

// IndexAt returns the index whose span contains offset, walking the
// size map from an estimate-based anchor so non-uniform item sizes
// resolve correctly. The result is clamped to [0, itemCount-1].
func (m *SizeMap) IndexAt(offset float64, itemCount int) int {
	if itemCount <= 0 || offset <= 0 {
		return 0
	}

	index := int(offset / m.Estimate())
	if index >= itemCount {
		index = itemCount - 1
	}

	start := m.OffsetOf(index)
	for index > 0 && start > offset {
		index--
		start -= m.SizeOf(index)
	}
	for index < itemCount-1 && start+m.SizeOf(index) <= offset {
		start += m.SizeOf(index)
		index++
	}

	return index
}
