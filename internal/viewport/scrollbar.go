package viewport

// Scrollbar computes synthetic thumb geometry for a virtual list whose
// real content never scrolls natively. All values are pixels along the
// scroll axis.
type Scrollbar struct {
	TrackSize    float64
	MinThumbSize float64
}

// Thumb returns the thumb position and size for the given scroll
// offset, container size, and total virtual size. When everything fits
// in the container the thumb fills the track at position zero.
// Invariant: 0 <= pos and pos+size <= TrackSize.
func (s Scrollbar) Thumb(offset, containerSize, totalSize float64) (pos, size float64) {
	if totalSize <= containerSize || s.TrackSize <= 0 {
		return 0, s.TrackSize
	}

	size = (containerSize / totalSize) * s.TrackSize
	if size < s.MinThumbSize {
		size = s.MinThumbSize
	}
	if size > s.TrackSize {
		size = s.TrackSize
	}

	maxOffset := totalSize - containerSize
	if offset < 0 {
		offset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}

	pos = (offset / maxOffset) * (s.TrackSize - size)

	return pos, size
}
