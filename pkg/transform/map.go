package transform

const (
	delBefore = 1 << iota
	delAfter
	delAcross
	delSide
)

// Mappable is anything that can map positions from one document to another.
type Mappable interface {
	// Map maps a position. assoc determines on which side the position
	// sticks when content is inserted directly at it: negative sticks to
	// the content before, positive to the content after.
	Map(pos int, assoc int) int
	// MapResult maps a position and reports whether it was deleted.
	MapResult(pos int, assoc int) MapResult
}

// MapResult is the mapped position plus information about deletions
// that touched it.
type MapResult struct {
	Pos     int
	delInfo int
}

// Deleted reports whether the content on the side the position is
// associated with was deleted.
func (r MapResult) Deleted() bool { return r.delInfo&delSide > 0 }

// DeletedBefore reports whether the token before the position was deleted.
func (r MapResult) DeletedBefore() bool { return r.delInfo&(delBefore|delAcross) > 0 }

// DeletedAfter reports whether the token after the position was deleted.
func (r MapResult) DeletedAfter() bool { return r.delInfo&(delAfter|delAcross) > 0 }

// DeletedAcross reports whether the position was inside a deleted range.
func (r MapResult) DeletedAcross() bool { return r.delInfo&delAcross > 0 }

// StepMap describes the deletions and insertions made by a step as a flat
// list of (start, oldSize, newSize) triples.
type StepMap struct {
	ranges   []int
	inverted bool
}

// EmptyMap is a map that changes nothing.
var EmptyMap = &StepMap{}

// NewStepMap builds a map from (start, oldSize, newSize) triples.
func NewStepMap(ranges []int) *StepMap {
	if len(ranges) == 0 {
		return EmptyMap
	}
	return &StepMap{ranges: ranges}
}

// OffsetMap creates a map that shifts every position by n. A negative n
// removes the first -n positions.
func OffsetMap(n int) *StepMap {
	switch {
	case n == 0:
		return EmptyMap
	case n < 0:
		return NewStepMap([]int{0, -n, 0})
	default:
		return NewStepMap([]int{0, 0, n})
	}
}

func (m *StepMap) Map(pos int, assoc int) int {
	return m.mapPos(pos, assoc, true).Pos
}

func (m *StepMap) MapResult(pos int, assoc int) MapResult {
	return m.mapPos(pos, assoc, false)
}

func (m *StepMap) mapPos(pos, assoc int, simple bool) MapResult {
	diff := 0
	oldIndex, newIndex := 1, 2
	if m.inverted {
		oldIndex, newIndex = 2, 1
	}
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		end := start + oldSize
		if pos <= end {
			side := assoc
			switch {
			case oldSize == 0:
			case pos == start:
				side = -1
			case pos == end:
				side = 1
			}
			result := start + diff
			if side >= 0 {
				result += newSize
			}
			if simple {
				return MapResult{Pos: result}
			}
			var del int
			switch pos {
			case start:
				del = delAfter
			case end:
				del = delBefore
			default:
				del = delAcross
			}
			if (assoc < 0 && pos != start) || (assoc >= 0 && pos != end) {
				del |= delSide
			}
			return MapResult{Pos: result, delInfo: del}
		}
		diff += newSize - oldSize
	}
	return MapResult{Pos: pos + diff}
}

// ForEach calls fn for each changed range, in old and new coordinates.
func (m *StepMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int)) {
	oldIndex, newIndex := 1, 2
	if m.inverted {
		oldIndex, newIndex = 2, 1
	}
	diff := 0
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		oldStart := start
		newStart := start + diff
		if m.inverted {
			oldStart = start - diff
			newStart = start
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		fn(oldStart, oldStart+oldSize, newStart, newStart+newSize)
		diff += newSize - oldSize
	}
}

// Invert returns a map that maps positions in the new document back to
// the old one.
func (m *StepMap) Invert() *StepMap {
	if len(m.ranges) == 0 {
		return m
	}
	return &StepMap{ranges: m.ranges, inverted: !m.inverted}
}

// Mapping is a pipeline of step maps.
type Mapping struct {
	maps []*StepMap
}

// NewMapping creates a mapping from the given maps.
func NewMapping(maps ...*StepMap) *Mapping {
	return &Mapping{maps: append([]*StepMap(nil), maps...)}
}

func (m *Mapping) Maps() []*StepMap { return m.maps }

// AppendMap adds a map to the end of the pipeline.
func (m *Mapping) AppendMap(sm *StepMap) {
	m.maps = append(m.maps, sm)
}

// AppendMapping adds all maps of other to the end of the pipeline.
func (m *Mapping) AppendMapping(other *Mapping) {
	m.maps = append(m.maps, other.maps...)
}

// Slice returns a mapping with the maps in [from, to).
func (m *Mapping) Slice(from, to int) *Mapping {
	return NewMapping(m.maps[from:to]...)
}

func (m *Mapping) Map(pos int, assoc int) int {
	for _, sm := range m.maps {
		pos = sm.Map(pos, assoc)
	}
	return pos
}

func (m *Mapping) MapResult(pos int, assoc int) MapResult {
	var del int
	for _, sm := range m.maps {
		r := sm.MapResult(pos, assoc)
		pos = r.Pos
		del |= r.delInfo
	}
	return MapResult{Pos: pos, delInfo: del}
}
