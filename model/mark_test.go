package model_test

import (
	"testing"

	. "github.com/cozy/docshape/model"
	"github.com/cozy/docshape/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var custom = func() *Schema {
	s, err := NewSchema(&SchemaSpec{
		Nodes: []*NodeSpec{
			{Key: "doc", Content: "paragraph+"},
			{Key: "paragraph", Content: "text*"},
			{Key: "text"},
		},
		Marks: []*MarkSpec{
			{Key: "remark", Attrs: idAttrs, Excludes: &empty, Inclusive: &falsy},
			{Key: "user", Attrs: idAttrs, Excludes: &underscore},
			{Key: "strong", Excludes: &emGroup},
			{Key: "em", Group: "em-group"},
		},
	})
	if err != nil {
		panic(err)
	}
	return s
}()

var (
	remark1      = custom.Mark("remark", map[string]interface{}{"id": 1})
	remark2      = custom.Mark("remark", map[string]interface{}{"id": 2})
	user1        = custom.Mark("user", map[string]interface{}{"id": 1})
	user2        = custom.Mark("user", map[string]interface{}{"id": 2})
	customEm     = custom.Mark("em")
	customStrong = custom.Mark("strong")
)

func TestMarkSameSet(t *testing.T) {
	// returns true for two empty sets
	assert.True(t, SameMarkSet([]*Mark{}, []*Mark{}))

	// returns true for simple identical sets
	assert.True(t, SameMarkSet([]*Mark{em2, strong2}, []*Mark{em2, strong2}))

	// returns false for different sets
	assert.False(t, SameMarkSet([]*Mark{em2, strong2}, []*Mark{em2, code2}))

	// returns false when set size differs
	assert.False(t, SameMarkSet([]*Mark{em2, strong2}, []*Mark{em2, strong2, code2}))

	// recognizes identical links in set
	assert.True(t, SameMarkSet(
		[]*Mark{link("http://foo"), code2},
		[]*Mark{link("http://foo"), code2}))

	// recognizes different links in set
	assert.False(t, SameMarkSet(
		[]*Mark{link("http://foo"), code2},
		[]*Mark{link("http://bar"), code2}))
}

func TestMarkEq(t *testing.T) {
	// considers identical links to be the same
	assert.True(t, link("http://foo").Eq(link("http://foo")))

	// considers different links to differ
	assert.False(t, link("http://foo").Eq(link("http://bar")))

	// considers links with different titles to differ
	assert.False(t, link("http://foo").Eq(link("http://foo", "B")))

	// compares numbers by value
	assert.True(t, custom.Mark("remark", map[string]interface{}{"id": 1}).
		Eq(custom.Mark("remark", map[string]interface{}{"id": 1.0})))
}

func TestMarkAddToSet(t *testing.T) {
	same := func(actual, expected []*Mark) {
		assert.True(t, SameMarkSet(actual, expected), "%v != %v", actual, expected)
	}

	// can add to the empty set
	same(em2.AddToSet([]*Mark{}), []*Mark{em2})

	// is a no-op when the added thing is in set
	same(em2.AddToSet([]*Mark{em2}), []*Mark{em2})

	// adds marks with lower rank before others
	same(em2.AddToSet([]*Mark{strong2}), []*Mark{em2, strong2})

	// adds marks with higher rank after others
	same(strong2.AddToSet([]*Mark{em2}), []*Mark{em2, strong2})

	// replaces different marks with new attributes
	same(link("http://bar").AddToSet([]*Mark{link("http://foo"), em2}),
		[]*Mark{link("http://bar"), em2})

	// does nothing when adding an existing link
	same(link("http://foo").AddToSet([]*Mark{em2, link("http://foo")}),
		[]*Mark{em2, link("http://foo")})

	// puts code marks at the end
	same(code2.AddToSet([]*Mark{em2, strong2, link("http://foo")}),
		[]*Mark{em2, strong2, link("http://foo"), code2})

	// puts marks with middle rank in the middle
	same(strong2.AddToSet([]*Mark{em2, code2}), []*Mark{em2, strong2, code2})

	// allows nonexclusive instances of marks with the same type
	same(remark2.AddToSet([]*Mark{remark1}), []*Mark{remark1, remark2})

	// doesn't duplicate identical instances of nonexclusive marks
	same(remark1.AddToSet([]*Mark{remark1}), []*Mark{remark1})

	// clears all others when adding a globally-excluding mark
	same(user1.AddToSet([]*Mark{remark1, customEm}), []*Mark{user1})

	// does not allow adding another mark to a globally-excluding mark
	same(customEm.AddToSet([]*Mark{user1}), []*Mark{user1})

	// does overwrite a globally-excluding mark when adding another instance
	same(user2.AddToSet([]*Mark{user1}), []*Mark{user2})

	// doesn't add anything when another mark excludes the added mark
	same(customEm.AddToSet([]*Mark{remark1, customStrong}), []*Mark{remark1, customStrong})

	// remove excluded marks when adding a mark
	same(customStrong.AddToSet([]*Mark{remark1, customEm}), []*Mark{remark1, customStrong})
}

func TestMarkRemoveFromSet(t *testing.T) {
	// is a no-op for the empty set
	assert.True(t, SameMarkSet(em2.RemoveFromSet([]*Mark{}), []*Mark{}))

	// can remove the last mark from a set
	assert.True(t, SameMarkSet(em2.RemoveFromSet([]*Mark{em2}), []*Mark{}))

	// is a no-op when the mark isn't in the set
	assert.True(t, SameMarkSet(strong2.RemoveFromSet([]*Mark{em2}), []*Mark{em2}))

	// can remove a mark with attributes
	assert.True(t, SameMarkSet(link("http://foo").RemoveFromSet([]*Mark{link("http://foo")}), []*Mark{}))

	// doesn't remove a mark when its attrs differ
	assert.True(t, SameMarkSet(
		link("http://foo", "title").RemoveFromSet([]*Mark{link("http://foo")}),
		[]*Mark{link("http://foo")}))
}

func TestNodeTypeAllowedMarks(t *testing.T) {
	marks := []*Mark{em2, strong2}

	// keeps the set when the node takes any mark
	assert.Equal(t, marks, schema.Nodes["paragraph"].AllowedMarks(marks))

	// drops everything in a node that takes no marks
	assert.Empty(t, schema.Nodes["code_block"].AllowedMarks(marks))

	// drops only the marks outside the node's set
	onlyStrong := "strong"
	s, err := NewSchema(&SchemaSpec{
		Nodes: []*NodeSpec{
			{Key: "doc", Content: "text*", Marks: &onlyStrong},
			{Key: "text"},
		},
		Marks: []*MarkSpec{{Key: "em"}, {Key: "strong"}},
	})
	require.NoError(t, err)
	em, strong := s.Mark("em"), s.Mark("strong")
	assert.Equal(t, []*Mark{strong}, s.TopNodeType.AllowedMarks([]*Mark{em, strong}))
	assert.Equal(t, []*Mark{strong}, s.TopNodeType.AllowedMarks([]*Mark{strong, em}))
	assert.Empty(t, s.TopNodeType.AllowedMarks(nil))
}

func TestResolvedPosMarks(t *testing.T) {
	isAt := func(doc builder.NodeWithTag, mark *Mark, result bool) {
		rp, err := doc.Resolve(doc.Tag["a"])
		require.NoError(t, err)
		assert.Equal(t, result, mark.IsInSet(rp.Marks()))
	}

	// recognizes a mark exists inside marked text
	isAt(doc(p(em("fo<a>o"))), em2, true)

	// recognizes a mark doesn't exist in non-marked text
	isAt(doc(p(em("fo<a>o"))), strong2, false)

	// considers a mark active after the mark
	isAt(doc(p(em("hello"), "<a>")), em2, true)

	// considers a mark inactive before the mark
	isAt(doc(p("one <a>", em("two"))), em2, false)

	// considers a mark active at the start of the textblock
	isAt(doc(p(em("<a>one"))), em2, true)

	// notices that attributes differ
	isAt(doc(p(a("li<a>nk"))), link("http://baz"), false)

	customDoc, err := custom.Node("doc", nil, []*Node{
		mustNode(custom.Node("paragraph", nil, []*Node{
			custom.Text("one", remark1, customStrong),
			custom.Text("two"),
		})),
	})
	require.NoError(t, err)

	// omits non-inclusive marks at end of mark
	rp, err := customDoc.Resolve(4)
	require.NoError(t, err)
	assert.True(t, SameMarkSet(rp.Marks(), []*Mark{customStrong}))

	// includes non-inclusive marks inside a text node
	rp, err = customDoc.Resolve(3)
	require.NoError(t, err)
	assert.True(t, SameMarkSet(rp.Marks(), []*Mark{remark1, customStrong}))

	// omits non-inclusive marks at the end of a line
	isAt(doc(p(a("foo<a>"))), link("foo"), false)

	// includes non-inclusive marks between two marked nodes
	isAt(doc(p(a("foo"), a("<a>bar"))), link("foo"), true)

	// excludes non-inclusive marks at a point where mark attrs change
	isAt(doc(p(a(map[string]interface{}{"href": "foo"}, "foo"), a(map[string]interface{}{"href": "bar"}, "<a>bar"))), link("foo"), false)
}

func mustNode(n *Node, err error) *Node {
	if err != nil {
		panic(err)
	}
	return n
}
