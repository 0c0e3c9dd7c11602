package model

import (
	"strings"
)

// A fragment represents a node's collection of child nodes.
//
// Like nodes, fragments are persistent data structures, and you should not
// mutate them or their content. Rather, you create new instances whenever
// needed. The API tries to make this easy.
type Fragment struct {
	// The child nodes. Do not mutate.
	Content []*Node
	// The size of the fragment, which is the total of the size of its
	// content nodes.
	Size int
}

// EmptyFragment is the shared empty fragment.
var EmptyFragment = &Fragment{}

// NewFragment builds a fragment from nodes that are known to be normalized
// (no adjacent text nodes with the same marks). The size is computed when not
// given.
func NewFragment(content []*Node, size ...int) *Fragment {
	if len(content) == 0 {
		return EmptyFragment
	}
	s := 0
	if len(size) > 0 {
		s = size[0]
	} else {
		for _, child := range content {
			s += child.NodeSize()
		}
	}
	return &Fragment{Content: content, Size: s}
}

// FragmentFromArray builds a fragment from an array of nodes, joining
// adjacent text nodes that have the same marks.
func FragmentFromArray(array []*Node) *Fragment {
	if len(array) == 0 {
		return EmptyFragment
	}
	var joined []*Node
	size := 0
	for i, node := range array {
		size += node.NodeSize()
		if i > 0 && node.IsText() && array[i-1].SameMarkup(node) {
			if joined == nil {
				joined = append(make([]*Node, 0, len(array)), array[:i]...)
			}
			last := joined[len(joined)-1]
			joined[len(joined)-1] = last.WithText(last.Text() + node.Text())
		} else if joined != nil {
			joined = append(joined, node)
		}
	}
	if joined == nil {
		joined = array
	}
	return &Fragment{Content: joined, Size: size}
}

// FragmentFrom creates a fragment from the given nodes (possibly none).
func FragmentFrom(nodes ...*Node) *Fragment {
	return FragmentFromArray(nodes)
}

// ChildCount returns the number of child nodes in this fragment.
func (f *Fragment) ChildCount() int {
	return len(f.Content)
}

// Child returns the child node at the given index.
func (f *Fragment) Child(index int) (*Node, error) {
	if index < 0 || index >= len(f.Content) {
		return nil, rangeError("index %d out of range for %s", index, f)
	}
	return f.Content[index], nil
}

// MaybeChild returns the child node at the given index, or nil when there is
// none.
func (f *Fragment) MaybeChild(index int) *Node {
	if index < 0 || index >= len(f.Content) {
		return nil
	}
	return f.Content[index]
}

// FirstChild returns the first child of the fragment, or nil if it is empty.
func (f *Fragment) FirstChild() *Node {
	return f.MaybeChild(0)
}

// LastChild returns the last child of the fragment, or nil if it is empty.
func (f *Fragment) LastChild() *Node {
	return f.MaybeChild(len(f.Content) - 1)
}

// ForEach calls fn for every child node, passing the node, its offset into
// this parent node, and its index.
func (f *Fragment) ForEach(fn func(node *Node, offset, index int)) {
	pos := 0
	for i, child := range f.Content {
		fn(child, pos, i)
		pos += child.NodeSize()
	}
}

// NBCallback is called by NodesBetween for every node in the range. Returning
// false skips the node's children.
type NBCallback func(node *Node, pos int, parent *Node, index int) bool

// NodesBetween invokes a callback for all descendant nodes between the given
// two positions (relative to the start of this fragment). nodeStart is added
// to the positions passed to the callback.
func (f *Fragment) NodesBetween(from, to int, fn NBCallback, nodeStart int, parent *Node) {
	pos := 0
	for i := 0; pos < to && i < len(f.Content); i++ {
		child := f.Content[i]
		end := pos + child.NodeSize()
		if end > from && fn(child, nodeStart+pos, parent, i) && child.Content.Size > 0 {
			start := pos + 1
			child.Content.NodesBetween(max(0, from-start), min(child.Content.Size, to-start), fn, nodeStart+start, child)
		}
		pos = end
	}
}

// Descendants calls fn for every descendant node.
func (f *Fragment) Descendants(fn NBCallback) {
	f.NodesBetween(0, f.Size, fn, 0, nil)
}

// TextBetween extracts the text between from and to. The optional arguments
// are a block separator, inserted between textblocks, and a leaf text,
// inserted for non-text leaf nodes.
func (f *Fragment) TextBetween(from, to int, args ...string) string {
	blockSeparator, leafText := "", ""
	if len(args) > 0 {
		blockSeparator = args[0]
	}
	if len(args) > 1 {
		leafText = args[1]
	}
	var sb strings.Builder
	first := true
	f.NodesBetween(from, to, func(node *Node, pos int, _ *Node, _ int) bool {
		nodeText := ""
		switch {
		case node.IsText():
			nodeText = sliceText(node.text, max(from, pos)-pos, min(node.size, to-pos))
		case node.IsLeaf():
			nodeText = leafText
		}
		if ((node.IsBlock() && node.IsLeaf() && nodeText != "") || node.IsTextblock()) && blockSeparator != "" {
			if first {
				first = false
			} else {
				sb.WriteString(blockSeparator)
			}
		}
		sb.WriteString(nodeText)
		return true
	}, 0, nil)
	return sb.String()
}

// Append creates a new fragment containing the combined content of this
// fragment and the other.
func (f *Fragment) Append(other *Fragment) *Fragment {
	if other.Size == 0 {
		return f
	}
	if f.Size == 0 {
		return other
	}
	last, first := f.LastChild(), other.FirstChild()
	content := make([]*Node, len(f.Content), len(f.Content)+len(other.Content))
	copy(content, f.Content)
	rest := other.Content
	if last.IsText() && last.SameMarkup(first) {
		content[len(content)-1] = last.WithText(last.text + first.text)
		rest = rest[1:]
	}
	content = append(content, rest...)
	return &Fragment{Content: content, Size: f.Size + other.Size}
}

// Cut returns a sub-fragment between the two given positions. When to is not
// given, it defaults to the end of the fragment.
func (f *Fragment) Cut(from int, to ...int) (*Fragment, error) {
	end := f.Size
	if len(to) > 0 {
		end = to[0]
	}
	if from < 0 || end > f.Size || from > end {
		return nil, rangeError("cannot cut %d-%d from a fragment of size %d", from, end, f.Size)
	}
	if f.splitsText(from) || f.splitsText(end) {
		return nil, rangeError("cannot cut %d-%d inside a surrogate pair", from, end)
	}
	return f.cut(from, end), nil
}

// splitsText reports whether pos points between the halves of a surrogate
// pair in one of the text nodes of this fragment, at any depth.
func (f *Fragment) splitsText(pos int) bool {
	start := 0
	for _, child := range f.Content {
		if pos <= start {
			return false
		}
		end := start + child.NodeSize()
		if pos < end {
			if child.IsText() {
				return splitsPair(child.text, pos-start)
			}
			return child.Content.splitsText(pos - start - 1)
		}
		start = end
	}
	return false
}

func (f *Fragment) cut(from, to int) *Fragment {
	if from == 0 && to == f.Size {
		return f
	}
	if to <= from {
		return EmptyFragment
	}
	var result []*Node
	size := 0
	pos := 0
	for i := 0; pos < to && i < len(f.Content); i++ {
		child := f.Content[i]
		end := pos + child.NodeSize()
		if end > from {
			if pos < from || end > to {
				if child.IsText() {
					child = child.cutText(max(0, from-pos), min(child.size, to-pos))
				} else {
					child = child.cut(max(0, from-pos-1), min(child.Content.Size, to-pos-1))
				}
			}
			result = append(result, child)
			size += child.NodeSize()
		}
		pos = end
	}
	return NewFragment(result, size)
}

// CutByIndex returns the fragment holding the children between the two
// indices.
func (f *Fragment) CutByIndex(from, to int) *Fragment {
	if from == to {
		return EmptyFragment
	}
	if from == 0 && to == len(f.Content) {
		return f
	}
	return NewFragment(f.Content[from:to:to])
}

// ReplaceChild creates a new fragment in which the node at the given index is
// replaced by the given node. The index must be in range.
func (f *Fragment) ReplaceChild(index int, node *Node) *Fragment {
	current := f.Content[index]
	if current == node {
		return f
	}
	content := make([]*Node, len(f.Content))
	copy(content, f.Content)
	content[index] = node
	return &Fragment{Content: content, Size: f.Size + node.NodeSize() - current.NodeSize()}
}

// AddToStart creates a new fragment by prepending the given node to this
// fragment.
func (f *Fragment) AddToStart(node *Node) *Fragment {
	content := make([]*Node, 0, len(f.Content)+1)
	content = append(content, node)
	content = append(content, f.Content...)
	return &Fragment{Content: content, Size: f.Size + node.NodeSize()}
}

// AddToEnd creates a new fragment by appending the given node to this
// fragment.
func (f *Fragment) AddToEnd(node *Node) *Fragment {
	content := make([]*Node, 0, len(f.Content)+1)
	content = append(content, f.Content...)
	content = append(content, node)
	return &Fragment{Content: content, Size: f.Size + node.NodeSize()}
}

// Eq compares this fragment to another one.
func (f *Fragment) Eq(other *Fragment) bool {
	if f == other {
		return true
	}
	if len(f.Content) != len(other.Content) {
		return false
	}
	for i, child := range f.Content {
		if !child.Eq(other.Content[i]) {
			return false
		}
	}
	return true
}

// FindIndex finds the index of the child containing pos and the offset at
// which that child starts. When round is positive, a position at the end of a
// child is rounded up to the next index.
func (f *Fragment) FindIndex(pos int, round ...int) (index, offset int, err error) {
	if pos == 0 {
		return 0, 0, nil
	}
	if pos == f.Size {
		return len(f.Content), pos, nil
	}
	if pos < 0 || pos > f.Size {
		return 0, 0, rangeError("position %d outside of fragment (%s)", pos, f)
	}
	r := -1
	if len(round) > 0 {
		r = round[0]
	}
	cur := 0
	for i, child := range f.Content {
		end := cur + child.NodeSize()
		if end >= pos {
			if end == pos || r > 0 {
				return i + 1, end, nil
			}
			return i, cur, nil
		}
		cur = end
	}
	return 0, 0, rangeError("position %d outside of fragment (%s)", pos, f)
}

// String returns a debugging string that describes this fragment.
func (f *Fragment) String() string {
	return "<" + f.toStringInner() + ">"
}

func (f *Fragment) toStringInner() string {
	parts := make([]string, len(f.Content))
	for i, child := range f.Content {
		parts[i] = child.String()
	}
	return strings.Join(parts, ", ")
}

// ToJSON returns a JSON-serializable representation of this fragment (nil
// when it is empty).
func (f *Fragment) ToJSON() []interface{} {
	if len(f.Content) == 0 {
		return nil
	}
	result := make([]interface{}, len(f.Content))
	for i, child := range f.Content {
		result[i] = child.ToJSON()
	}
	return result
}

// FragmentFromJSON deserializes a fragment from its JSON representation.
func FragmentFromJSON(schema *Schema, value interface{}) (*Fragment, error) {
	if value == nil {
		return EmptyFragment, nil
	}
	var items []interface{}
	switch v := value.(type) {
	case []interface{}:
		items = v
	case []map[string]interface{}:
		for _, item := range v {
			items = append(items, item)
		}
	default:
		return nil, inputError("invalid input for Fragment.fromJSON")
	}
	nodes := make([]*Node, len(items))
	for i, item := range items {
		node, err := NodeFromJSON(schema, item)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	return FragmentFromArray(nodes), nil
}
