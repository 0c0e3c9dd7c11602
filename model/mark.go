package model

import (
	"reflect"
	"sort"
)

// A mark is a piece of information that can be attached to a node, such as it
// being emphasized, in code font, or a link. It has a type and optionally a
// set of attributes that provide further information (such as the target of
// the link). Marks are created through a Schema, which controls which types
// exist and which attributes they have.
type Mark struct {
	Type  *MarkType
	Attrs map[string]interface{}
}

// NoMarks is the empty set of marks.
var NoMarks = []*Mark{}

// AddToSet, given a set of marks, creates a new set which contains this one
// as well, in the right position. If this mark is already in the set, the set
// itself is returned. If any marks that are set to be exclusive with this mark
// are present, those are replaced by this one.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	var result []*Mark
	copied, placed := false, false
	for i, other := range set {
		if m.Eq(other) {
			return set
		}
		if m.Type.Excludes(other.Type) {
			if !copied {
				result = append(make([]*Mark, 0, len(set)), set[:i]...)
				copied = true
			}
			continue
		}
		if other.Type.Excludes(m.Type) {
			return set
		}
		if !placed && other.Type.Rank > m.Type.Rank {
			if !copied {
				result = append(make([]*Mark, 0, len(set)+1), set[:i]...)
				copied = true
			}
			result = append(result, m)
			placed = true
		}
		if copied {
			result = append(result, other)
		}
	}
	if !copied {
		result = append(make([]*Mark, 0, len(set)+1), set...)
	}
	if !placed {
		result = append(result, m)
	}
	return result
}

// RemoveFromSet removes this mark from the given set, returning a new set. If
// this mark is not in the set, the set itself is returned.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	for i, other := range set {
		if m.Eq(other) {
			result := make([]*Mark, 0, len(set)-1)
			result = append(result, set[:i]...)
			return append(result, set[i+1:]...)
		}
	}
	return set
}

// IsInSet tests whether this mark is in the given set of marks.
func (m *Mark) IsInSet(set []*Mark) bool {
	for _, other := range set {
		if m.Eq(other) {
			return true
		}
	}
	return false
}

// Eq tests whether this mark has the same type and attributes as another mark.
func (m *Mark) Eq(other *Mark) bool {
	if m == other {
		return true
	}
	return other != nil && m.Type == other.Type && AttrsEqual(m.Attrs, other.Attrs)
}

// ToJSON converts this mark to a JSON-serializeable representation.
func (m *Mark) ToJSON() map[string]interface{} {
	obj := map[string]interface{}{"type": m.Type.Name}
	if len(m.Attrs) > 0 {
		obj["attrs"] = m.Attrs
	}
	return obj
}

// String returns the mark type name, for debugging.
func (m *Mark) String() string {
	return m.Type.Name
}

// SameMarkSet tests whether two sets of marks are identical.
func SameMarkSet(a, b []*Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

// MarkSetFrom creates a properly sorted mark set from nil, a single mark, or
// an unsorted array of marks.
func MarkSetFrom(marks []*Mark) []*Mark {
	var set []*Mark
	for _, m := range marks {
		if m != nil {
			set = append(set, m)
		}
	}
	if len(set) == 0 {
		return NoMarks
	}
	sort.SliceStable(set, func(i, j int) bool {
		return set[i].Type.Rank < set[j].Type.Rank
	})
	return set
}

// AttrsEqual compares two attribute maps. Numbers compare by value whatever
// their Go type, so attributes decoded from JSON (float64) match attributes
// written as int literals. A nil map equals an empty one.
func AttrsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !valuesEqual(va, vb) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if na, ok := toFloat(a); ok {
		nb, ok := toFloat(b)
		return ok && na == nb
	}
	switch va := a.(type) {
	case map[string]interface{}:
		vb, ok := b.(map[string]interface{})
		return ok && AttrsEqual(va, vb)
	case []interface{}:
		vb, ok := b.([]interface{})
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !valuesEqual(va[i], vb[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// intFromJSON reads an integer out of a decoded JSON value.
func intFromJSON(v interface{}) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
