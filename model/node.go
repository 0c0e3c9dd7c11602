package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// This class represents a node in the tree that makes up a document. So a
// document is an instance of Node, with children that are also instances of
// Node.
//
// Nodes are persistent data structures. Instead of changing them, you create
// new ones with the content you want. Old ones keep pointing at the old
// document shape. This is made cheaper by sharing structure between the old
// and new data as much as possible, which a tree shape like this (without back
// pointers) makes easy.
//
// Do not directly mutate the properties of a Node object.
type Node struct {
	// The type of node that this is.
	Type *NodeType
	// An object mapping attribute names to values. The kind of attributes
	// allowed and required are determined by the node type.
	Attrs map[string]interface{}
	// A container holding the node's children.
	Content *Fragment
	// The marks (things like whether it is emphasized or part of a link)
	// applied to this node.
	Marks []*Mark

	text string
	size int // text length in UTF-16 units, for text nodes
}

// NewNode creates a non-text node. It doesn't check the content against the
// node type, use NodeType.CreateChecked for that.
func NewNode(typ *NodeType, attrs map[string]interface{}, content *Fragment, marks []*Mark) *Node {
	if content == nil {
		content = EmptyFragment
	}
	if marks == nil {
		marks = NoMarks
	}
	return &Node{Type: typ, Attrs: attrs, Content: content, Marks: marks}
}

// NewTextNode creates a text node. Text nodes can't be empty.
func NewTextNode(typ *NodeType, attrs map[string]interface{}, text string, marks []*Mark) *Node {
	if marks == nil {
		marks = NoMarks
	}
	return &Node{Type: typ, Attrs: attrs, Content: EmptyFragment, Marks: marks, text: text, size: TextLength(text)}
}

// NodeSize returns the size of this node, as defined by the integer-based
// indexing scheme. For text nodes, this is the amount of characters. For other
// leaf nodes, it is one. For non-leaf nodes, it is the size of the content
// plus two (the start and end token).
func (n *Node) NodeSize() int {
	if n.IsText() {
		return n.size
	}
	if n.IsLeaf() {
		return 1
	}
	return 2 + n.Content.Size
}

// Text returns the text of a text node, or the empty string for other nodes.
func (n *Node) Text() string {
	return n.text
}

// ChildCount returns the number of children that the node has.
func (n *Node) ChildCount() int {
	return n.Content.ChildCount()
}

// Child returns the child node at the given index.
func (n *Node) Child(index int) (*Node, error) {
	return n.Content.Child(index)
}

// MaybeChild returns the child node at the given index, if it exists.
func (n *Node) MaybeChild(index int) *Node {
	return n.Content.MaybeChild(index)
}

// FirstChild returns this node's first child, or nil if there are no
// children.
func (n *Node) FirstChild() *Node {
	return n.Content.FirstChild()
}

// LastChild returns this node's last child, or nil if there are no children.
func (n *Node) LastChild() *Node {
	return n.Content.LastChild()
}

// ForEach calls fn for every child node.
func (n *Node) ForEach(fn func(node *Node, offset, index int)) {
	n.Content.ForEach(fn)
}

// NodesBetween invokes a callback for all descendant nodes recursively between
// the given two positions that are relative to start of this node's content.
// The callback is invoked with the node, its parent-relative position, its
// parent node, and its child index. When the callback returns false for a
// given node, that node's children will not be recursed over. The last
// parameter can be used to specify a starting position to count from.
func (n *Node) NodesBetween(from, to int, fn NBCallback, startPos ...int) {
	s := 0
	if len(startPos) > 0 {
		s = startPos[0]
	}
	n.Content.NodesBetween(from, to, fn, s, n)
}

// Descendants calls the given callback for every descendant node.
func (n *Node) Descendants(fn NBCallback) {
	n.NodesBetween(0, n.Content.Size, fn)
}

// TextContent concatenates all the text nodes found in this node and its
// children.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.text
	}
	return n.TextBetween(0, n.Content.Size, "")
}

// TextBetween gets all text between positions from and to. When
// blockSeparator is given, it will be inserted whenever a new block node is
// started. When leafText is given, it'll be inserted for every non-text leaf
// node encountered.
func (n *Node) TextBetween(from, to int, args ...string) string {
	if n.IsText() {
		return sliceText(n.text, from, to)
	}
	return n.Content.TextBetween(from, to, args...)
}

// Eq tests whether two nodes represent the same piece of document.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if other == nil {
		return false
	}
	if n.IsText() {
		return n.text == other.text && n.SameMarkup(other)
	}
	return n.SameMarkup(other) && n.Content.Eq(other.Content)
}

// SameMarkup compares the markup (type, attributes, and marks) of this node to
// those of another. Returns true if both have the same markup.
func (n *Node) SameMarkup(other *Node) bool {
	return n.HasMarkup(other.Type, other.Attrs, other.Marks)
}

// HasMarkup checks whether this node's markup correspond to the given type,
// attributes, and marks. Nil attributes stand for the type's defaults.
func (n *Node) HasMarkup(typ *NodeType, attrs map[string]interface{}, marks ...[]*Mark) bool {
	if n.Type != typ {
		return false
	}
	if attrs == nil {
		attrs = typ.DefaultAttrs
	}
	if !AttrsEqual(n.Attrs, attrs) {
		return false
	}
	set := NoMarks
	if len(marks) > 0 {
		set = marks[0]
	}
	return SameMarkSet(n.Marks, set)
}

// Copy creates a new node with the same markup as this node, containing the
// given content (or empty, if no content is given).
func (n *Node) Copy(content ...*Fragment) *Node {
	c := EmptyFragment
	if len(content) > 0 && content[0] != nil {
		c = content[0]
	}
	if c == n.Content {
		return n
	}
	return NewNode(n.Type, n.Attrs, c, n.Marks)
}

// Mark creates a copy of this node, with the given set of marks instead of the
// node's own marks.
func (n *Node) Mark(marks []*Mark) *Node {
	if SameMarkSet(n.Marks, marks) {
		return n
	}
	if n.IsText() {
		return NewTextNode(n.Type, n.Attrs, n.text, marks)
	}
	return NewNode(n.Type, n.Attrs, n.Content, marks)
}

// WithText creates a copy of a text node with the given text.
func (n *Node) WithText(text string) *Node {
	if text == n.text {
		return n
	}
	return NewTextNode(n.Type, n.Attrs, text, n.Marks)
}

// Cut creates a copy of this node with only the content between the given
// positions. If to is not given, it defaults to the end of the node.
func (n *Node) Cut(from int, to ...int) (*Node, error) {
	limit := n.Content.Size
	if n.IsText() {
		limit = n.size
	}
	end := limit
	if len(to) > 0 {
		end = to[0]
	}
	if from < 0 || end > limit || from > end {
		return nil, rangeError("cannot cut %d-%d from %s", from, end, n)
	}
	if n.IsText() {
		if splitsPair(n.text, from) || splitsPair(n.text, end) {
			return nil, rangeError("cannot cut %d-%d inside a surrogate pair", from, end)
		}
		return n.cutText(from, end), nil
	}
	if n.Content.splitsText(from) || n.Content.splitsText(end) {
		return nil, rangeError("cannot cut %d-%d inside a surrogate pair", from, end)
	}
	return n.cut(from, end), nil
}

func (n *Node) cut(from, to int) *Node {
	if from == 0 && to == n.Content.Size {
		return n
	}
	return n.Copy(n.Content.cut(from, to))
}

func (n *Node) cutText(from, to int) *Node {
	if from == 0 && to == n.size {
		return n
	}
	return n.WithText(sliceText(n.text, from, to))
}

// Slice cuts out the part of the document between the given positions, and
// returns it as a Slice object. When includeParents is true, the slice is
// opened up to the document root.
func (n *Node) Slice(from, to int, includeParents ...bool) (*Slice, error) {
	if from == to {
		return EmptySlice, nil
	}
	rFrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rTo, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := 0
	if len(includeParents) == 0 || !includeParents[0] {
		depth = rFrom.SharedDepth(to)
	}
	start := rFrom.Start(depth)
	node := rFrom.Node(depth)
	content := node.Content.cut(rFrom.Pos-start, rTo.Pos-start)
	return NewSlice(content, rFrom.Depth-depth, rTo.Depth-depth), nil
}

// Replace replaces the part of the document between the given positions with
// the given slice. The slice must 'fit', meaning its open sides must be able
// to connect to the surrounding content, and its content nodes must be valid
// children for the node they are placed into. If any of this is violated, an
// error of kind ErrReplace, ErrJoin or ErrContent is returned.
func (n *Node) Replace(from, to int, slice *Slice) (*Node, error) {
	rFrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rTo, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	return replace(rFrom, rTo, slice)
}

// NodeAt finds the node directly after the given position.
func (n *Node) NodeAt(pos int) *Node {
	node := n
	for {
		index, offset, err := node.Content.FindIndex(pos)
		if err != nil {
			return nil
		}
		node = node.MaybeChild(index)
		if node == nil {
			return nil
		}
		if offset == pos || node.IsText() {
			return node
		}
		pos -= offset + 1
	}
}

// ChildAfter finds the (direct) child node after the given offset, if any,
// and returns it along with its index and offset relative to this node.
func (n *Node) ChildAfter(pos int) (node *Node, index, offset int) {
	index, offset, err := n.Content.FindIndex(pos)
	if err != nil {
		return nil, 0, 0
	}
	return n.Content.MaybeChild(index), index, offset
}

// ChildBefore finds the (direct) child node before the given offset, if any,
// and returns it along with its index and offset relative to this node.
func (n *Node) ChildBefore(pos int) (node *Node, index, offset int) {
	if pos == 0 {
		return nil, 0, 0
	}
	index, offset, err := n.Content.FindIndex(pos)
	if err != nil {
		return nil, 0, 0
	}
	if offset < pos {
		return n.Content.Content[index], index, offset
	}
	node = n.Content.Content[index-1]
	return node, index - 1, offset - node.NodeSize()
}

// Resolve resolves the given position in the document, returning an object
// with information about its context.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	return resolvePosCached(n, pos)
}

func (n *Node) resolveNoCache(pos int) (*ResolvedPos, error) {
	return resolvePos(n, pos)
}

// RangeHasMark tests whether a given mark or mark type occurs in this
// document between the two given positions.
func (n *Node) RangeHasMark(from, to int, typ *MarkType) bool {
	found := false
	if to > from {
		n.NodesBetween(from, to, func(node *Node, _ int, _ *Node, _ int) bool {
			if typ.IsInSet(node.Marks) != nil {
				found = true
			}
			return !found
		})
	}
	return found
}

// IsBlock is true when this is a block (non-inline node).
func (n *Node) IsBlock() bool { return n.Type.IsBlock() }

// IsTextblock is true when this is a textblock node, a block node with inline
// content.
func (n *Node) IsTextblock() bool { return n.Type.IsTextblock() }

// InlineContent is true when this node allows inline content.
func (n *Node) InlineContent() bool { return n.Type.InlineContent }

// IsInline is true when this is an inline node (a text node or a node that
// can appear among text).
func (n *Node) IsInline() bool { return n.Type.IsInline() }

// IsText is true when this is a text node.
func (n *Node) IsText() bool { return n.Type.IsText() }

// IsLeaf is true when this is a leaf node.
func (n *Node) IsLeaf() bool { return n.Type.IsLeaf() }

// IsAtom is true when this is an atom, i.e. when it does not have directly
// editable content.
func (n *Node) IsAtom() bool { return n.Type.IsAtom() }

// ContentMatchAt gets the content match in this node at the given index.
func (n *Node) ContentMatchAt(index int) (*ContentMatch, error) {
	match := n.Type.ContentMatch.MatchFragment(n.Content, 0, index)
	if match == nil {
		return nil, newError(ErrContent, "called ContentMatchAt on a node with invalid content")
	}
	return match, nil
}

// CanReplace tests whether replacing the range between from and to (by child
// index) with the given replacement fragment (which defaults to the empty
// fragment) would leave the node's content valid. You can optionally pass
// start and end indices into the replacement fragment.
func (n *Node) CanReplace(from, to int, replacement *Fragment, bounds ...int) bool {
	if replacement == nil {
		replacement = EmptyFragment
	}
	start, end := 0, replacement.ChildCount()
	if len(bounds) > 0 {
		start = bounds[0]
	}
	if len(bounds) > 1 {
		end = bounds[1]
	}
	one, err := n.ContentMatchAt(from)
	if err != nil {
		return false
	}
	one = one.MatchFragment(replacement, start, end)
	if one == nil {
		return false
	}
	two := one.MatchFragment(n.Content, to)
	if two == nil || !two.ValidEnd {
		return false
	}
	for i := start; i < end; i++ {
		if !n.Type.AllowsMarks(replacement.Content[i].Marks) {
			return false
		}
	}
	return true
}

// CanReplaceWith tests whether replacing the range from to to (by index) with
// a node of the given type would leave the node's content valid.
func (n *Node) CanReplaceWith(from, to int, typ *NodeType, marks []*Mark) bool {
	if marks != nil && !n.Type.AllowsMarks(marks) {
		return false
	}
	start, err := n.ContentMatchAt(from)
	if err != nil {
		return false
	}
	start = start.MatchType(typ)
	if start == nil {
		return false
	}
	end := start.MatchFragment(n.Content, to)
	return end != nil && end.ValidEnd
}

// CanAppend tests whether the given node's content could be appended to this
// node. If that node is empty, this will only return true if there is at least
// one node type that can appear in both nodes (to avoid merging completely
// incompatible nodes).
func (n *Node) CanAppend(other *Node) bool {
	if other.Content.Size > 0 {
		return n.CanReplace(n.ChildCount(), n.ChildCount(), other.Content)
	}
	return n.Type.compatibleContent(other.Type)
}

// Check checks whether this node and its descendants conform to the schema,
// and returns an error when they do not.
func (n *Node) Check() error {
	if err := n.Type.CheckContent(n.Content); err != nil {
		return err
	}
	if err := n.Type.checkAttrs(n.Attrs); err != nil {
		return err
	}
	set := NoMarks
	for _, mark := range n.Marks {
		if err := mark.Type.checkAttrs(mark.Attrs); err != nil {
			return err
		}
		set = mark.AddToSet(set)
	}
	if !SameMarkSet(set, n.Marks) {
		return newError(ErrContent, "invalid collection of marks for node %s: %s", n.Type.Name, markNames(n.Marks))
	}
	for _, child := range n.Content.Content {
		if err := child.Check(); err != nil {
			return err
		}
	}
	return nil
}

// String returns a string representation of this node for debugging purposes.
func (n *Node) String() string {
	name := n.Type.Name
	if n.IsText() {
		name = strconv.Quote(n.text)
	} else if n.Content.Size > 0 {
		name += "(" + n.Content.toStringInner() + ")"
	}
	return wrapMarks(n.Marks, name)
}

func wrapMarks(marks []*Mark, str string) string {
	for i := len(marks) - 1; i >= 0; i-- {
		str = fmt.Sprintf("%s(%s)", marks[i].Type.Name, str)
	}
	return str
}

func markNames(marks []*Mark) string {
	names := make([]string, len(marks))
	for i, m := range marks {
		names[i] = m.Type.Name
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// ToJSON returns a JSON-serializable representation of this node.
func (n *Node) ToJSON() map[string]interface{} {
	obj := map[string]interface{}{"type": n.Type.Name}
	if len(n.Attrs) > 0 {
		obj["attrs"] = n.Attrs
	}
	if content := n.Content.ToJSON(); content != nil {
		obj["content"] = content
	}
	if len(n.Marks) > 0 {
		marks := make([]interface{}, len(n.Marks))
		for i, m := range n.Marks {
			marks[i] = m.ToJSON()
		}
		obj["marks"] = marks
	}
	if n.IsText() {
		obj["text"] = n.text
	}
	return obj
}

// NodeFromJSON deserializes a node from its JSON representation.
func NodeFromJSON(schema *Schema, raw interface{}) (*Node, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, inputError("invalid input for Node.fromJSON")
	}
	var marks []*Mark
	if rawMarks, ok := obj["marks"]; ok && rawMarks != nil {
		list, ok := rawMarks.([]interface{})
		if !ok {
			return nil, inputError("invalid mark data for Node.fromJSON")
		}
		for _, item := range list {
			m, err := schema.MarkFromJSON(item)
			if err != nil {
				return nil, err
			}
			marks = append(marks, m)
		}
	}
	typeName, ok := obj["type"].(string)
	if !ok || typeName == "" {
		return nil, inputError("invalid node type in JSON")
	}
	if typeName == "text" {
		text, ok := obj["text"].(string)
		if !ok || text == "" {
			return nil, inputError("invalid text node in JSON")
		}
		return schema.text(text, MarkSetFrom(marks)), nil
	}
	typ, err := schema.NodeType(typeName)
	if err != nil {
		return nil, err
	}
	content, err := FragmentFromJSON(schema, obj["content"])
	if err != nil {
		return nil, err
	}
	var attrs map[string]interface{}
	if rawAttrs, ok := obj["attrs"]; ok && rawAttrs != nil {
		if attrs, ok = rawAttrs.(map[string]interface{}); !ok {
			return nil, inputError("invalid attrs for node %s", typeName)
		}
	}
	if err := typ.checkAttrs(attrs); err != nil {
		return nil, err
	}
	return typ.Create(attrs, content, marks)
}

// sortedKeys is used to render attributes deterministically.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
