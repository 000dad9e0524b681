package styler

import "sort"

// slipRange maps one contiguous run of the document : the primary content
// up to endStuckFixed, followed by skipped content up to endFixed. All three
// fields are non-decreasing within and across consecutive ranges.
type slipRange struct {
	endStuckFixed int
	endFixed      int
	endSlipped    int
}

// SlipMap is a compressed, monotone, piecewise-linear mapping between
// offsets in full document order ("fixed") and offsets with non-primary
// content compressed out ("slipped").
//
// Callers must not query beyond MaxFixed() : values there are only the
// extrapolation of the last open range.
type SlipMap struct {
	ranges []slipRange
}

// AddStuckRange extends the current primary run up to endFixed.
func (m *SlipMap) AddStuckRange(endFixed int) {
	if len(m.ranges) == 0 {
		m.ranges = append(m.ranges, slipRange{endFixed, endFixed, endFixed})
		return
	}
	last := &m.ranges[len(m.ranges)-1]
	endSlipped := last.endSlipped + endFixed - last.endFixed
	if last.endFixed == last.endStuckFixed {
		// still a pure primary range, extend it
		last.endStuckFixed = endFixed
		last.endFixed = endFixed
		last.endSlipped = endSlipped
	} else {
		m.ranges = append(m.ranges, slipRange{endFixed, endFixed, endSlipped})
	}
}

// AddSlippedRange extends the current non-primary run up to endFixed,
// leaving the slipped coordinate behind.
func (m *SlipMap) AddSlippedRange(endFixed int) {
	if len(m.ranges) == 0 {
		m.ranges = append(m.ranges, slipRange{0, endFixed, 0})
		return
	}
	m.ranges[len(m.ranges)-1].endFixed = endFixed
}

// SlippedByFixed maps a fixed offset to the slipped coordinate space.
func (m *SlipMap) SlippedByFixed(fixed int) int {
	if len(m.ranges) == 0 {
		return 0
	}
	i := sort.Search(len(m.ranges), func(i int) bool {
		return m.ranges[i].endFixed >= fixed
	})
	if i == len(m.ranges) {
		i = len(m.ranges) - 1
	}
	r := m.ranges[i]
	if d := r.endStuckFixed - fixed; d > 0 {
		return r.endSlipped - d
	}
	return r.endSlipped
}

// FixedBySlipped maps a slipped offset back to full document order.
func (m *SlipMap) FixedBySlipped(slipped int) int {
	if len(m.ranges) == 0 {
		return 0
	}
	i := sort.Search(len(m.ranges), func(i int) bool {
		return m.ranges[i].endSlipped >= slipped
	})
	if i == len(m.ranges) {
		i = len(m.ranges) - 1
	}
	r := m.ranges[i]
	return r.endStuckFixed - (r.endSlipped - slipped)
}

// MaxFixed is the fixed offset registered last, or 0.
func (m *SlipMap) MaxFixed() int {
	if len(m.ranges) == 0 {
		return 0
	}
	return m.ranges[len(m.ranges)-1].endFixed
}

// MaxSlipped is the slipped offset registered last, or 0.
func (m *SlipMap) MaxSlipped() int {
	if len(m.ranges) == 0 {
		return 0
	}
	return m.ranges[len(m.ranges)-1].endSlipped
}
