package model

import (
	"strconv"
	"strings"
	"sync"
)

// pathEntry is one level of a resolved position: the ancestor node, the
// index of the child the position points into or before, and the absolute
// position where that child starts.
type pathEntry struct {
	node  *Node
	index int
	start int
}

// ResolvedPos means resolved position. You can resolve a position to get more
// information about it. Objects of this type represent such a resolved
// position, providing various pieces of context information, and some helper
// methods.
//
// Throughout this interface, methods that take an optional depth parameter
// will interpret a missing value as r.Depth and negative numbers as r.Depth +
// value.
type ResolvedPos struct {
	// The position that was resolved.
	Pos int
	// The number of levels the parent node is from the root. If this
	// position points directly into the root node, it is 0. If it points
	// into a top-level paragraph, 1, and so on.
	Depth int
	// The offset this position has into its parent node.
	ParentOffset int

	path []pathEntry
}

func (r *ResolvedPos) depth(depth []int) int {
	if len(depth) == 0 {
		return r.Depth
	}
	if depth[0] < 0 {
		return r.Depth + depth[0]
	}
	return depth[0]
}

// Parent returns the parent node that the position points into. Note that
// even if a position points into a text node, that node is not considered the
// parent. Text nodes are flat in this model, and have no content.
func (r *ResolvedPos) Parent() *Node {
	return r.path[r.Depth].node
}

// Doc is the root node in which the position was resolved.
func (r *ResolvedPos) Doc() *Node {
	return r.path[0].node
}

// Node returns the ancestor node at the given level. r.Node(r.Depth) is the
// same as r.Parent().
func (r *ResolvedPos) Node(depth ...int) *Node {
	return r.path[r.depth(depth)].node
}

// Index returns the index into the ancestor at the given level. If this
// points at the 3rd node in the 2nd paragraph on the top level, for example,
// r.Index(0) is 1 and r.Index(1) is 2.
func (r *ResolvedPos) Index(depth ...int) int {
	return r.path[r.depth(depth)].index
}

// IndexAfter returns the index pointing after this position into the
// ancestor at the given level.
func (r *ResolvedPos) IndexAfter(depth ...int) int {
	d := r.depth(depth)
	if d == r.Depth && r.TextOffset() == 0 {
		return r.Index(d)
	}
	return r.Index(d) + 1
}

// Start is the (absolute) position at the start of the node at the given
// level.
func (r *ResolvedPos) Start(depth ...int) int {
	d := r.depth(depth)
	if d == 0 {
		return 0
	}
	return r.path[d-1].start + 1
}

// End is the (absolute) position at the end of the node at the given level.
func (r *ResolvedPos) End(depth ...int) int {
	d := r.depth(depth)
	return r.Start(d) + r.path[d].node.Content.Size
}

// Before is the (absolute) position directly before the wrapping node at the
// given level, or, when depth is r.Depth + 1, the original position.
func (r *ResolvedPos) Before(depth ...int) (int, error) {
	d := r.depth(depth)
	if d == 0 {
		return 0, rangeError("there is no position before the top-level node")
	}
	return r.before(d), nil
}

func (r *ResolvedPos) before(d int) int {
	if d == r.Depth+1 {
		return r.Pos
	}
	return r.path[d-1].start
}

// After is the (absolute) position directly after the wrapping node at the
// given level, or the original position when depth is r.Depth + 1.
func (r *ResolvedPos) After(depth ...int) (int, error) {
	d := r.depth(depth)
	if d == 0 {
		return 0, rangeError("there is no position after the top-level node")
	}
	return r.after(d), nil
}

func (r *ResolvedPos) after(d int) int {
	if d == r.Depth+1 {
		return r.Pos
	}
	return r.path[d-1].start + r.path[d].node.NodeSize()
}

// TextOffset returns, when this position points into a text node, the
// distance between the position and the start of the text node. Will be zero
// for positions that point between nodes.
func (r *ResolvedPos) TextOffset() int {
	return r.Pos - r.path[len(r.path)-1].start
}

// NodeAfter gets the node directly after the position, if any. If the
// position points into a text node, only the part of that node after the
// position is returned.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.Index()
	if index == parent.ChildCount() {
		return nil
	}
	child := parent.Content.Content[index]
	if off := r.TextOffset(); off > 0 {
		return child.cutText(off, child.size)
	}
	return child
}

// NodeBefore gets the node directly before the position, if any. If the
// position points into a text node, only the part of that node before the
// position is returned.
func (r *ResolvedPos) NodeBefore() *Node {
	index := r.Index()
	if off := r.TextOffset(); off > 0 {
		return r.Parent().Content.Content[index].cutText(0, off)
	}
	if index == 0 {
		return nil
	}
	return r.Parent().Content.Content[index-1]
}

// PosAtIndex gets the position at the given index in the parent node at the
// given depth (which defaults to r.Depth).
func (r *ResolvedPos) PosAtIndex(index int, depth ...int) int {
	d := r.depth(depth)
	node := r.path[d].node
	pos := r.Start(d)
	for i := 0; i < index && i < node.ChildCount(); i++ {
		pos += node.Content.Content[i].NodeSize()
	}
	return pos
}

// Marks gets the marks at this position, factoring in the surrounding marks'
// inclusive property. If the position is at the start of a non-empty node,
// the marks of the node after it (if any) are returned.
func (r *ResolvedPos) Marks() []*Mark {
	parent := r.Parent()
	index := r.Index()

	if parent.Content.Size == 0 {
		return NoMarks
	}
	if r.TextOffset() > 0 {
		return parent.Content.Content[index].Marks
	}

	main := parent.MaybeChild(index - 1)
	other := parent.MaybeChild(index)
	if main == nil {
		main, other = other, main
	}

	// Keep the marks of the main node, except non-inclusive ones that the
	// other node doesn't share.
	marks := main.Marks
	for _, m := range main.Marks {
		if !m.Type.IsInclusive() && (other == nil || !m.IsInSet(other.Marks)) {
			marks = m.RemoveFromSet(marks)
		}
	}
	return marks
}

// MarksAcross gets the marks after the current position, if any, except
// those that are non-inclusive and not present at position end. This is
// mostly useful for getting the set of marks to preserve after a deletion.
// Will return nil if this position is at the end of its parent node or its
// parent node isn't a textblock (in which case no marks should be
// preserved).
func (r *ResolvedPos) MarksAcross(end *ResolvedPos) []*Mark {
	after := r.Parent().MaybeChild(r.Index())
	if after == nil || !after.IsInline() {
		return nil
	}
	marks := after.Marks
	next := end.Parent().MaybeChild(end.Index())
	for _, m := range after.Marks {
		if !m.Type.IsInclusive() && (next == nil || !m.IsInSet(next.Marks)) {
			marks = m.RemoveFromSet(marks)
		}
	}
	return marks
}

// SharedDepth is the depth up to which this position and the given
// (non-resolved) position share the same parent nodes.
func (r *ResolvedPos) SharedDepth(pos int) int {
	for depth := r.Depth; depth > 0; depth-- {
		if r.Start(depth) <= pos && r.End(depth) >= pos {
			return depth
		}
	}
	return 0
}

// BlockRange returns a range based on the place where this position and the
// given position diverge around block content. If both point into the same
// textblock, for example, a range around that textblock will be returned. If
// they point into different blocks, the range around those blocks in their
// shared ancestor is returned. You can pass in an optional predicate that
// will be called with a parent node to see if a range into that parent is
// acceptable.
func (r *ResolvedPos) BlockRange(other *ResolvedPos, pred func(*Node) bool) *NodeRange {
	if other == nil {
		other = r
	}
	if other.Pos < r.Pos {
		return other.BlockRange(r, pred)
	}
	d := r.Depth
	if r.Parent().InlineContent() || r.Pos == other.Pos {
		d--
	}
	for ; d >= 0; d-- {
		if other.Pos <= r.End(d) && (pred == nil || pred(r.Node(d))) {
			return NewNodeRange(r, other, d)
		}
	}
	return nil
}

// SameParent queries whether the given position shares the same parent node.
func (r *ResolvedPos) SameParent(other *ResolvedPos) bool {
	return r.Pos-r.ParentOffset == other.Pos-other.ParentOffset
}

// Max returns the greater of this and the given position.
func (r *ResolvedPos) Max(other *ResolvedPos) *ResolvedPos {
	if other.Pos > r.Pos {
		return other
	}
	return r
}

// Min returns the smaller of this and the given position.
func (r *ResolvedPos) Min(other *ResolvedPos) *ResolvedPos {
	if other.Pos < r.Pos {
		return other
	}
	return r
}

// String renders the path as type_index segments followed by the parent
// offset, for debugging.
func (r *ResolvedPos) String() string {
	var sb strings.Builder
	for d := 1; d <= r.Depth; d++ {
		if sb.Len() > 0 {
			sb.WriteString("/")
		}
		sb.WriteString(r.Node(d).Type.Name + "_" + strconv.Itoa(r.Index(d-1)))
	}
	return sb.String() + ":" + strconv.Itoa(r.ParentOffset)
}

func resolvePos(doc *Node, pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > doc.Content.Size {
		return nil, rangeError("position %d out of range", pos)
	}
	var path []pathEntry
	start := 0
	parentOffset := pos
	node := doc
	for {
		index, offset, err := node.Content.FindIndex(parentOffset)
		if err != nil {
			return nil, err
		}
		rem := parentOffset - offset
		path = append(path, pathEntry{node: node, index: index, start: start + offset})
		if rem == 0 {
			break
		}
		node = node.Content.Content[index]
		if node.IsText() {
			if splitsPair(node.text, rem) {
				return nil, rangeError("position %d splits a surrogate pair", pos)
			}
			break
		}
		parentOffset = rem - 1
		start += offset + 1
	}
	return &ResolvedPos{Pos: pos, Depth: len(path) - 1, ParentOffset: parentOffset, path: path}, nil
}

// resolveCache remembers the last few resolved positions. Step application
// and mapping tend to resolve the same positions in the same document
// several times in a row.
type resolveCache struct {
	mu      sync.Mutex
	entries [12]struct {
		doc *Node
		pos *ResolvedPos
	}
	next int
}

var positions resolveCache

func (c *resolveCache) get(doc *Node, pos int) *ResolvedPos {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		if entry.doc == doc && entry.pos.Pos == pos {
			return entry.pos
		}
	}
	return nil
}

func (c *resolveCache) put(doc *Node, rp *ResolvedPos) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.next].doc = doc
	c.entries[c.next].pos = rp
	c.next = (c.next + 1) % len(c.entries)
}

func resolvePosCached(doc *Node, pos int) (*ResolvedPos, error) {
	if rp := positions.get(doc, pos); rp != nil {
		return rp, nil
	}
	rp, err := resolvePos(doc, pos)
	if err != nil {
		return nil, err
	}
	positions.put(doc, rp)
	return rp, nil
}

// NodeRange represents a flat range of content, i.e. one that starts and
// ends in the same node.
type NodeRange struct {
	// A resolved position along the start of the content. May have a
	// Depth greater than this object's Depth property, since these are
	// the positions that were used to compute the range, not re-resolved
	// positions directly at its boundaries.
	From *ResolvedPos
	// A position along the end of the content.
	To *ResolvedPos
	// The depth of the node that this range points into.
	Depth int
}

// NewNodeRange constructs a node range. from and to should point into the
// same node until at least the given depth, since a node range denotes an
// adjacent set of nodes in a single parent node.
func NewNodeRange(from, to *ResolvedPos, depth int) *NodeRange {
	return &NodeRange{From: from, To: to, Depth: depth}
}

// Start is the position at the start of the range.
func (nr *NodeRange) Start() int { return nr.From.before(nr.Depth + 1) }

// End is the position at the end of the range.
func (nr *NodeRange) End() int { return nr.To.after(nr.Depth + 1) }

// Parent is the parent node that the range points into.
func (nr *NodeRange) Parent() *Node { return nr.From.Node(nr.Depth) }

// StartIndex is the start index of the range in the parent node.
func (nr *NodeRange) StartIndex() int { return nr.From.Index(nr.Depth) }

// EndIndex is the end index of the range in the parent node.
func (nr *NodeRange) EndIndex() int { return nr.To.IndexAfter(nr.Depth) }
