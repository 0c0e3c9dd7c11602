package model

import (
	"fmt"
)

// Slice represents a piece cut out of a larger document. It stores not only
// a fragment, but also the depth up to which nodes on both side are open (cut
// through).
type Slice struct {
	// The slice's content.
	Content *Fragment
	// The open depth at the start.
	OpenStart int
	// The open depth at the end.
	OpenEnd int
}

// EmptySlice is the empty slice.
var EmptySlice = &Slice{Content: EmptyFragment}

// NewSlice creates a slice. When specifying a non-zero open depth, you must
// make sure that there are nodes of at least that depth at the appropriate
// side of the fragment, i.e. if the fragment is an empty paragraph node,
// openStart and openEnd can't be greater than 1.
//
// It is not necessary for the content of open nodes to conform to the
// schema's content constraints, though it should be a valid start/end/middle
// for such a node, depending on which sides are open.
func NewSlice(content *Fragment, openStart, openEnd int) *Slice {
	if content == nil {
		content = EmptyFragment
	}
	return &Slice{Content: content, OpenStart: openStart, OpenEnd: openEnd}
}

// MaxOpen creates a slice from a fragment by taking the maximum possible open
// value on both side of the fragment. Isolating nodes are only opened when
// openIsolating is true, which is the default.
func MaxOpen(fragment *Fragment, openIsolating ...bool) *Slice {
	isolating := len(openIsolating) == 0 || openIsolating[0]
	openable := func(n *Node) bool {
		return n != nil && !n.IsLeaf() && (isolating || !n.Type.Spec.Isolating)
	}
	openStart, openEnd := 0, 0
	for n := fragment.FirstChild(); openable(n); n = n.FirstChild() {
		openStart++
	}
	for n := fragment.LastChild(); openable(n); n = n.LastChild() {
		openEnd++
	}
	return NewSlice(fragment, openStart, openEnd)
}

// Size returns the size this slice would add when inserted into a document.
func (s *Slice) Size() int {
	return s.Content.Size - s.OpenStart - s.OpenEnd
}

// InsertAt inserts a fragment at the given position, relative to the start
// of the slice. Returns nil when the position doesn't point at a place where
// content can be inserted.
func (s *Slice) InsertAt(pos int, fragment *Fragment) *Slice {
	content := insertInto(s.Content, pos+s.OpenStart, fragment, nil)
	if content == nil {
		return nil
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd)
}

// RemoveBetween removes the content between the two given positions. The
// range must be flat: both ends must be in the same node, possibly inside
// text.
func (s *Slice) RemoveBetween(from, to int) (*Slice, error) {
	content, err := removeRange(s.Content, from+s.OpenStart, to+s.OpenStart)
	if err != nil {
		return nil, err
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd), nil
}

// Eq tests whether this slice is equal to another slice.
func (s *Slice) Eq(other *Slice) bool {
	return s.Content.Eq(other.Content) && s.OpenStart == other.OpenStart && s.OpenEnd == other.OpenEnd
}

// String returns a string representation of this slice.
func (s *Slice) String() string {
	return fmt.Sprintf("%s(%d,%d)", s.Content, s.OpenStart, s.OpenEnd)
}

// ToJSON converts a slice to a JSON-serializable representation. The empty
// slice is represented by nil.
func (s *Slice) ToJSON() map[string]interface{} {
	if s.Content.Size == 0 {
		return nil
	}
	obj := map[string]interface{}{"content": s.Content.ToJSON()}
	if s.OpenStart > 0 {
		obj["openStart"] = s.OpenStart
	}
	if s.OpenEnd > 0 {
		obj["openEnd"] = s.OpenEnd
	}
	return obj
}

// SliceFromJSON deserializes a slice from its JSON representation.
func SliceFromJSON(schema *Schema, raw interface{}) (*Slice, error) {
	if raw == nil {
		return EmptySlice, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, inputError("invalid input for Slice.fromJSON")
	}
	openStart, err := openDepthFromJSON(obj, "openStart")
	if err != nil {
		return nil, err
	}
	openEnd, err := openDepthFromJSON(obj, "openEnd")
	if err != nil {
		return nil, err
	}
	content, err := FragmentFromJSON(schema, obj["content"])
	if err != nil {
		return nil, err
	}
	return NewSlice(content, openStart, openEnd), nil
}

func openDepthFromJSON(obj map[string]interface{}, key string) (int, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := intFromJSON(v)
	if !ok || n < 0 {
		return 0, inputError("invalid %s for Slice.fromJSON", key)
	}
	return n, nil
}

func removeRange(content *Fragment, from, to int) (*Fragment, error) {
	index, offset, err := content.FindIndex(from)
	if err != nil {
		return nil, err
	}
	indexTo, offsetTo, err := content.FindIndex(to)
	if err != nil {
		return nil, err
	}
	child := content.MaybeChild(index)
	if offset == from || child.IsText() {
		if offsetTo != to && !content.Content[indexTo].IsText() {
			return nil, rangeError("removing non-flat range")
		}
		return content.cut(0, from).Append(content.cut(to, content.Size)), nil
	}
	if index != indexTo {
		return nil, rangeError("removing non-flat range")
	}
	inner, err := removeRange(child.Content, from-offset-1, to-offset-1)
	if err != nil {
		return nil, err
	}
	return content.ReplaceChild(index, child.Copy(inner)), nil
}

// insertInto inserts a fragment into content. parent, when not nil, is the
// node that owns content and must accept the insertion.
func insertInto(content *Fragment, dist int, insert *Fragment, parent *Node) *Fragment {
	index, offset, err := content.FindIndex(dist)
	if err != nil {
		return nil
	}
	child := content.MaybeChild(index)
	if offset == dist || child.IsText() {
		if parent != nil && !parent.CanReplace(index, index, insert) {
			return nil
		}
		return content.cut(0, dist).Append(insert).Append(content.cut(dist, content.Size))
	}
	inner := insertInto(child.Content, dist-offset-1, insert, child)
	if inner == nil {
		return nil
	}
	return content.ReplaceChild(index, child.Copy(inner))
}
