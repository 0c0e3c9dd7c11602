package transform

import (
	"strconv"
	"strings"
)

// Mappable is an interface. There are several things that positions can be
// mapped through. Such objects conform to this interface.
type Mappable interface {
	// Map a position through this object. When given, assoc (should be -1 or
	// 1, defaults to 1) determines with which side the position is associated,
	// which determines in which direction to move when a chunk of content is
	// inserted at the mapped position.
	Map(pos int, assoc ...int) int

	// MapResult maps a position, and returns an object containing additional
	// information about the mapping. The result's Deleted field tells you
	// whether the position was deleted (completely enclosed in a replaced
	// range) during the mapping. When content on only one side is deleted, the
	// position itself is only considered deleted when assoc points in the
	// direction of the deleted content.
	MapResult(pos int, assoc ...int) *MapResult
}

// Recovery values encode a range index (the lower 16 bits) and an offset
// into that range, so that positions inside a range deleted by one map can
// be restored by its mirror.
const (
	lower16  = 0xffff
	factor16 = 1 << 16
)

func makeRecover(index, offset int) int { return index + offset*factor16 }
func recoverIndex(value int) int        { return value & lower16 }
func recoverOffset(value int) int       { return (value - value&lower16) / factor16 }

const (
	delBefore = 1 << iota
	delAfter
	delAcross
	delSide
)

// MapResult is an object representing a mapped position with extra
// information.
type MapResult struct {
	// The mapped version of the position.
	Pos int

	delInfo int
	recover int // -1 when the position can't be recovered
}

func newMapResult(pos, delInfo, rec int) *MapResult {
	return &MapResult{Pos: pos, delInfo: delInfo, recover: rec}
}

// Deleted tells you whether the position was deleted, that is, whether the
// step removed the token on the side queried (via the assoc argument) from
// the document.
func (r *MapResult) Deleted() bool { return r.delInfo&delSide > 0 }

// DeletedBefore tells you whether the token before the mapped position was
// deleted.
func (r *MapResult) DeletedBefore() bool { return r.delInfo&(delBefore|delAcross) > 0 }

// DeletedAfter is true when the token after the mapped position was deleted.
func (r *MapResult) DeletedAfter() bool { return r.delInfo&(delAfter|delAcross) > 0 }

// DeletedAcross tells whether any of the steps mapped through deletes across
// the position (including both the token before and after the position).
func (r *MapResult) DeletedAcross() bool { return r.delInfo&delAcross > 0 }

// StepMap is a map describing the deletions and insertions made by a step,
// which can be used to find the correspondence between positions in the
// pre-step version of a document and the same position in the post-step
// version.
type StepMap struct {
	Ranges   []int
	Inverted bool
}

// EmptyStepMap is a StepMap that contains no changed ranges.
var EmptyStepMap = &StepMap{}

// NewStepMap creates a position map. The modifications to the document are
// represented as an array of numbers, in which each group of three represents
// a modified chunk as [start, oldSize, newSize].
func NewStepMap(ranges []int, inverted ...bool) *StepMap {
	inv := len(inverted) > 0 && inverted[0]
	if len(ranges) == 0 && !inv {
		return EmptyStepMap
	}
	return &StepMap{Ranges: ranges, Inverted: inv}
}

// StepMapOffset creates a map that moves all positions by offset n (which
// may be negative). This can be useful when applying steps meant for a
// sub-document to a larger document, or vice-versa.
func StepMapOffset(n int) *StepMap {
	switch {
	case n == 0:
		return EmptyStepMap
	case n < 0:
		return NewStepMap([]int{0, -n, 0})
	default:
		return NewStepMap([]int{0, 0, n})
	}
}

func (sm *StepMap) indexes() (oldIndex, newIndex int) {
	if sm.Inverted {
		return 2, 1
	}
	return 1, 2
}

// Recover returns the position encoded by a recovery value produced when
// mapping through the mirror of this map.
func (sm *StepMap) Recover(value int) int {
	diff := 0
	index := recoverIndex(value)
	if !sm.Inverted {
		for i := 0; i < index; i++ {
			diff += sm.Ranges[i*3+2] - sm.Ranges[i*3+1]
		}
	}
	return sm.Ranges[index*3] + diff + recoverOffset(value)
}

// MapResult is part of the Mappable interface.
func (sm *StepMap) MapResult(pos int, assoc ...int) *MapResult {
	return sm.mapPos(pos, assocOf(assoc))
}

// Map is part of the Mappable interface.
func (sm *StepMap) Map(pos int, assoc ...int) int {
	return sm.mapPos(pos, assocOf(assoc)).Pos
}

func assocOf(assoc []int) int {
	if len(assoc) > 0 {
		return assoc[0]
	}
	return 1
}

func (sm *StepMap) mapPos(pos, assoc int) *MapResult {
	diff := 0
	oldIndex, newIndex := sm.indexes()
	for i := 0; i < len(sm.Ranges); i += 3 {
		start := sm.Ranges[i]
		if sm.Inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize, newSize := sm.Ranges[i+oldIndex], sm.Ranges[i+newIndex]
		end := start + oldSize
		if pos <= end {
			side := assoc
			if oldSize > 0 {
				if pos == start {
					side = -1
				} else if pos == end {
					side = 1
				}
			}
			result := start + diff
			if side >= 0 {
				result += newSize
			}

			rec := makeRecover(i/3, pos-start)
			if (assoc < 0 && pos == start) || (assoc >= 0 && pos == end) {
				rec = -1
			}
			del := delAcross
			if pos == start {
				del = delAfter
			} else if pos == end {
				del = delBefore
			}
			if (assoc < 0 && pos != start) || (assoc >= 0 && pos != end) {
				del |= delSide
			}
			return newMapResult(result, del, rec)
		}
		diff += newSize - oldSize
	}
	return newMapResult(pos+diff, 0, -1)
}

// Touches reports whether the range identified by a recovery value touches
// the given position.
func (sm *StepMap) Touches(pos, rec int) bool {
	diff := 0
	index := recoverIndex(rec)
	oldIndex, newIndex := sm.indexes()
	for i := 0; i < len(sm.Ranges); i += 3 {
		start := sm.Ranges[i]
		if sm.Inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize := sm.Ranges[i+oldIndex]
		if pos <= start+oldSize && i == index*3 {
			return true
		}
		diff += sm.Ranges[i+newIndex] - oldSize
	}
	return false
}

// ForEach calls the given function on each of the changed ranges included
// in this map.
func (sm *StepMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int)) {
	oldIndex, newIndex := sm.indexes()
	diff := 0
	for i := 0; i < len(sm.Ranges); i += 3 {
		start := sm.Ranges[i]
		oldStart, newStart := start, start
		if sm.Inverted {
			oldStart -= diff
		} else {
			newStart += diff
		}
		oldSize, newSize := sm.Ranges[i+oldIndex], sm.Ranges[i+newIndex]
		fn(oldStart, oldStart+oldSize, newStart, newStart+newSize)
		diff += newSize - oldSize
	}
}

// Invert creates an inverted version of this map. The result can be used to
// map positions in the post-step document to the pre-step document.
func (sm *StepMap) Invert() *StepMap {
	return &StepMap{Ranges: sm.Ranges, Inverted: !sm.Inverted}
}

// String returns a string representation of this StepMap.
func (sm *StepMap) String() string {
	var sb strings.Builder
	if sm.Inverted {
		sb.WriteByte('-')
	}
	sb.WriteByte('[')
	for i, r := range sm.Ranges {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(r))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Mapping represents a pipeline of zero or more step maps. It has special
// provisions for losslessly handling mapping positions through a series of
// steps in which some steps are inverted versions of earlier steps. (This
// comes up when rebasing steps for collaboration or history management.)
type Mapping struct {
	// The step maps in this mapping.
	Maps []*StepMap
	// The starting position in the Maps array, used when Map or MapResult
	// is called.
	From int
	// The end position in the Maps array.
	To int

	// Pairs of indexes of maps that mirror each other.
	mirror []int
}

// NewMapping creates a new mapping with the given position maps.
func NewMapping(maps ...*StepMap) *Mapping {
	return &Mapping{Maps: maps, To: len(maps)}
}

// Slice creates a mapping that maps only through a part of this one. to
// defaults to the number of maps.
func (m *Mapping) Slice(from int, to ...int) *Mapping {
	end := len(m.Maps)
	if len(to) > 0 {
		end = to[0]
	}
	n, k := len(m.Maps), len(m.mirror)
	return &Mapping{Maps: m.Maps[:n:n], mirror: m.mirror[:k:k], From: from, To: end}
}

// Copy makes a copy of this mapping, sharing no mutable state with it.
func (m *Mapping) Copy() *Mapping {
	return &Mapping{
		Maps:   append([]*StepMap(nil), m.Maps...),
		mirror: append([]int(nil), m.mirror...),
		From:   m.From,
		To:     m.To,
	}
}

// AppendMap adds a step map to the end of this mapping. If mirrors is given,
// it should be the index of the step map that is the mirror image of this
// one.
func (m *Mapping) AppendMap(sm *StepMap, mirrors ...int) {
	m.Maps = append(m.Maps, sm)
	m.To = len(m.Maps)
	if len(mirrors) > 0 {
		m.SetMirror(len(m.Maps)-1, mirrors[0])
	}
}

// AppendMapping adds all the step maps in a given mapping to this one
// (preserving mirroring information).
func (m *Mapping) AppendMapping(mapping *Mapping) {
	startSize := len(m.Maps)
	for i, sm := range mapping.Maps {
		if mirr, ok := mapping.GetMirror(i); ok && mirr < i {
			m.AppendMap(sm, startSize+mirr)
		} else {
			m.AppendMap(sm)
		}
	}
}

// GetMirror finds the offset of the step map that mirrors the map at the
// given offset, in this mapping.
func (m *Mapping) GetMirror(n int) (int, bool) {
	for i, v := range m.mirror {
		if v != n {
			continue
		}
		if i%2 == 1 {
			return m.mirror[i-1], true
		}
		return m.mirror[i+1], true
	}
	return 0, false
}

// SetMirror records that the maps at offsets n and mirror are the mirror
// images of each other.
func (m *Mapping) SetMirror(n, mirror int) {
	m.mirror = append(m.mirror, n, mirror)
}

// AppendMappingInverted appends the inverse of the given mapping to this
// one.
func (m *Mapping) AppendMappingInverted(mapping *Mapping) {
	totalSize := len(m.Maps) + len(mapping.Maps)
	for i := len(mapping.Maps) - 1; i >= 0; i-- {
		inverted := mapping.Maps[i].Invert()
		if mirr, ok := mapping.GetMirror(i); ok && mirr > i {
			m.AppendMap(inverted, totalSize-mirr-1)
		} else {
			m.AppendMap(inverted)
		}
	}
}

// Invert creates an inverted version of this mapping.
func (m *Mapping) Invert() *Mapping {
	inverse := &Mapping{}
	inverse.AppendMappingInverted(m)
	return inverse
}

// Map maps a position through this mapping.
func (m *Mapping) Map(pos int, assoc ...int) int {
	a := assocOf(assoc)
	if len(m.mirror) > 0 {
		return m.mapPos(pos, a).Pos
	}
	for i := m.From; i < m.To; i++ {
		pos = m.Maps[i].Map(pos, a)
	}
	return pos
}

// MapResult maps a position through this mapping, returning a mapping
// result.
func (m *Mapping) MapResult(pos int, assoc ...int) *MapResult {
	return m.mapPos(pos, assocOf(assoc))
}

func (m *Mapping) mapPos(pos, assoc int) *MapResult {
	delInfo := 0
	for i := m.From; i < m.To; i++ {
		result := m.Maps[i].MapResult(pos, assoc)
		if result.recover >= 0 {
			if corr, ok := m.GetMirror(i); ok && corr > i && corr < m.To {
				i = corr
				pos = m.Maps[corr].Recover(result.recover)
				continue
			}
		}
		delInfo |= result.delInfo
		pos = result.Pos
	}
	return newMapResult(pos, delInfo, -1)
}

var (
	_ Mappable = &StepMap{}
	_ Mappable = &Mapping{}
)
