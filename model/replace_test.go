package model_test

import (
	"errors"
	"testing"

	. "github.com/cozy/docshape/model"
	"github.com/cozy/docshape/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagSlice(t *testing.T, insert builder.NodeWithTag) *Slice {
	t.Helper()
	if insert.Node == nil {
		return EmptySlice
	}
	slice, err := insert.Slice(insert.Tag["a"], insert.Tag["b"])
	require.NoError(t, err)
	return slice
}

func TestNodeReplace(t *testing.T) {
	rpl := func(doc, insert, expect builder.NodeWithTag) {
		t.Helper()
		slice := tagSlice(t, insert)
		actual, err := doc.Replace(doc.Tag["a"], doc.Tag["b"], slice)
		if assert.NoError(t, err) {
			assert.True(t, actual.Eq(expect.Node), "%s != %s", actual, expect.Node)
			assert.Equal(t, doc.Content.Size-(doc.Tag["b"]-doc.Tag["a"])+slice.Size(), actual.Content.Size)
			assert.NoError(t, actual.Check())
		}
	}

	// joins on delete
	rpl(doc(p("on<a>e"), p("t<b>wo")), builder.NodeWithTag{}, doc(p("onwo")))

	// merges matching blocks
	rpl(doc(p("on<a>e"), p("t<b>wo")), doc(p("xx<a>xx"), p("yy<b>yy")), doc(p("onxx"), p("yywo")))

	// merges when adding text
	rpl(doc(p("on<a>e"), p("t<b>wo")),
		doc(p("<a>H<b>")),
		doc(p("onHwo")))

	// can insert text
	rpl(doc(p("before"), p("on<a><b>e"), p("after")),
		doc(p("<a>H<b>")),
		doc(p("before"), p("onHe"), p("after")))

	// doesn't merge non-matching blocks
	rpl(doc(p("on<a>e"), p("t<b>wo")),
		doc(h1("<a>H<b>")),
		doc(p("onHwo")))

	// can merge a nested node
	rpl(doc(blockquote(blockquote(p("on<a>e"), p("t<b>wo")))),
		doc(p("<a>H<b>")),
		doc(blockquote(blockquote(p("onHwo")))))

	// can replace within a block
	rpl(doc(blockquote(p("a<a>bc<b>d"))),
		doc(p("x<a>y<b>z")),
		doc(blockquote(p("ayd"))))

	// can insert a lopsided slice
	rpl(doc(blockquote(blockquote(p("on<a>e"), p("two"), "<b>", p("three")))),
		doc(blockquote(p("aa<a>aa"), p("bb"), p("cc"), "<b>", p("dd"))),
		doc(blockquote(blockquote(p("onaa"), p("bb"), p("cc"), p("three")))))

	// can insert a deep, lopsided slice
	rpl(doc(blockquote(blockquote(p("on<a>e"), p("two"), p("three")), "<b>", p("x"))),
		doc(blockquote(p("aa<a>aa"), p("bb"), p("cc")), "<b>", p("dd")),
		doc(blockquote(blockquote(p("onaa"), p("bb"), p("cc")), p("x"))))

	// can merge multiple levels
	rpl(doc(blockquote(blockquote(p("hell<a>o"))), blockquote(blockquote(p("<b>a")))),
		builder.NodeWithTag{},
		doc(blockquote(blockquote(p("hella")))))

	// can merge multiple levels while inserting
	rpl(doc(blockquote(blockquote(p("hell<a>o"))), blockquote(blockquote(p("<b>a")))),
		doc(p("<a>i<b>")),
		doc(blockquote(blockquote(p("hellia")))))

	// can insert a split
	rpl(doc(p("foo<a><b>bar")),
		doc(p("<a>x"), p("y<b>")),
		doc(p("foox"), p("ybar")))

	// can insert a deep split
	rpl(doc(blockquote(p("foo<a>x<b>bar"))),
		doc(blockquote(p("<a>x")), blockquote(p("y<b>"))),
		doc(blockquote(p("foox")), blockquote(p("ybar"))))

	// can add a split one level up
	rpl(doc(blockquote(p("foo<a>u"), p("v<b>bar"))),
		doc(blockquote(p("<a>x")), blockquote(p("y<b>"))),
		doc(blockquote(p("foox")), blockquote(p("ybar"))))

	// keeps the node type of the left node
	rpl(doc(h1("foo<a>bar"), "<b>"),
		doc(p("foo<a>baz"), "<b>"),
		doc(h1("foobaz")))

	// keeps the node type even when empty
	rpl(doc(h1("<a>bar"), "<b>"),
		doc(p("foo<a>baz"), "<b>"),
		doc(h1("baz")))

	bad := func(doc, insert builder.NodeWithTag, kind error) {
		t.Helper()
		_, err := doc.Replace(doc.Tag["a"], doc.Tag["b"], tagSlice(t, insert))
		assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	}

	// doesn't allow the left side to be too deep
	bad(doc(p("<a><b>")),
		doc(blockquote(p("<a>")), "<b>"),
		ErrReplace)

	// doesn't allow a depth mismatch
	bad(doc(p("<a><b>")),
		doc("<a>", p("<b>")),
		ErrReplace)

	// rejects a bad fit
	bad(doc("<a><b>"),
		doc(p("<a>foo<b>")),
		ErrContent)

	// rejects unjoinable content
	bad(doc(ul(li(p("a")), "<a>"), "<b>"),
		doc(p("foo", "<a>"), "<b>"),
		ErrJoin)

	// rejects an unjoinable delete
	bad(doc(blockquote(p("a"), "<a>"), ul("<b>", li(p("b")))),
		builder.NodeWithTag{},
		ErrJoin)

	// check content validity
	bad(doc(blockquote("<a>", p("hi")), "<b>"),
		doc(blockquote("hi", "<a>"), "<b>"),
		ErrContent)

	// reports out of range positions
	_, err := doc(p("x")).Replace(0, 10, EmptySlice)
	assert.True(t, errors.Is(err, ErrRange))

	// keeps the error type for replace faults
	_, err = doc(p("<a><b>")).Replace(1, 1, NewSlice(FragmentFrom(blockquote(p("x")).Node), 2, 0))
	var replaceErr *ReplaceError
	assert.True(t, errors.As(err, &replaceErr))
}
