package model_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/cozy/docshape/model"
	"github.com/cozy/docshape/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, expr string) *ContentMatch {
	t.Helper()
	cm, err := ParseContentMatch(expr, schema.NodeTypes())
	require.NoError(t, err)
	return cm
}

func match(t *testing.T, expr, types string) bool {
	m := get(t, expr)
	var ts []*NodeType
	for _, t := range strings.Fields(types) {
		ts = append(ts, schema.Nodes[t])
	}
	for i := 0; m != nil && i < len(ts); i++ {
		m = m.MatchType(ts[i])
	}
	return m != nil && m.ValidEnd
}

func valid(t *testing.T, expr, types string) {
	assert.True(t, match(t, expr, types))
}
func invalid(t *testing.T, expr, types string) {
	assert.False(t, match(t, expr, types))
}

func TestContentMatchMatchType(t *testing.T) {
	// accepts empty content for the empty expr
	valid(t, "", "")
	// doesn't accept content in the empty expr
	invalid(t, "", "image")

	// matches nothing to an asterisk
	valid(t, "image*", "")
	// matches one element to an asterisk
	valid(t, "image*", "image")
	// matches multiple elements to an asterisk
	valid(t, "image*", "image image image image")
	// only matches appropriate elements to an asterisk
	invalid(t, "image*", "image text")

	// matches group members to a group
	valid(t, "inline*", "image text")
	// doesn't match non-members to a group
	invalid(t, "inline*", "paragraph")
	// matches an element to a choice expression
	valid(t, "(paragraph | heading)", "paragraph")
	// doesn't match unmentioned elements to a choice expr
	invalid(t, "(paragraph | heading)", "image")

	// matches a simple sequence
	valid(t, "paragraph horizontal_rule paragraph", "paragraph horizontal_rule paragraph")
	// fails when a sequence is too long
	invalid(t, "paragraph horizontal_rule", "paragraph horizontal_rule paragraph")
	// fails when a sequence is too short
	invalid(t, "paragraph horizontal_rule paragraph", "paragraph horizontal_rule")
	// fails when a sequence starts incorrectly
	invalid(t, "paragraph horizontal_rule", "horizontal_rule paragraph horizontal_rule")

	// accepts a sequence asterisk matching zero elements
	valid(t, "heading paragraph*", "heading")
	// accepts a sequence asterisk matching multiple elts
	valid(t, "heading paragraph*", "heading paragraph paragraph")
	// accepts a sequence plus matching one element
	valid(t, "heading paragraph+", "heading paragraph")
	// accepts a sequence plus matching multiple elts
	valid(t, "heading paragraph+", "heading paragraph paragraph")
	// fails when a sequence plus has no elements
	invalid(t, "heading paragraph+", "heading")
	// fails when a sequence plus misses its start
	invalid(t, "heading paragraph+", "paragraph paragraph")

	// accepts an optional element being present
	valid(t, "image?", "image")
	// accepts an optional element being missing
	valid(t, "image?", "")
	// fails when an optional element is present twice
	invalid(t, "image?", "image image")

	// accepts a nested repeat
	valid(t, "(heading paragraph+)+", "heading paragraph heading paragraph paragraph")
	// fails on extra input after a nested repeat
	invalid(t, "(heading paragraph+)+", "heading paragraph heading paragraph paragraph horizontal_rule")

	// accepts a matching count
	valid(t, "hard_break{2}", "hard_break hard_break")
	// rejects a count that comes up short
	invalid(t, "hard_break{2}", "hard_break")
	// rejects a count that has too many elements
	invalid(t, "hard_break{2}", "hard_break hard_break hard_break")
	// accepts a count on the lower bound
	valid(t, "hard_break{2, 4}", "hard_break hard_break")
	// accepts a count on the upper bound
	valid(t, "hard_break{2, 4}", "hard_break hard_break hard_break hard_break")
	// accepts a count between the bounds
	valid(t, "hard_break{2, 4}", "hard_break hard_break hard_break")
	// rejects a sequence with too few elements
	invalid(t, "hard_break{2, 4}", "hard_break")
	// rejects a sequence with too many elements
	invalid(t, "hard_break{2, 4}", "hard_break hard_break hard_break hard_break hard_break")
	// rejects a sequence with a bad element after it
	invalid(t, "hard_break{2, 4} text*", "hard_break hard_break image")
	// accepts a sequence with a matching element after it
	valid(t, "hard_break{2, 4} image?", "hard_break hard_break image")
	// accepts an open range
	valid(t, "hard_break{2,}", "hard_break hard_break")
	// accepts an open range matching many
	valid(t, "hard_break{2,}", "hard_break hard_break hard_break hard_break")
	// rejects an open range with too few elements
	invalid(t, "hard_break{2,}", "hard_break")
}

func TestContentMatchFillBefore(t *testing.T) {
	fill := func(expr string, before, after builder.NodeWithTag, result *builder.NodeWithTag) {
		t.Helper()
		filled := get(t, expr).MatchFragment(before.Content).FillBefore(after.Content, true, 0)
		if result == nil {
			assert.Nil(t, filled)
			return
		}
		if assert.NotNil(t, filled) {
			assert.True(t, filled.Eq(result.Content), "%s != %s", filled, result.Content)
		}
	}
	some := func(n builder.NodeWithTag) *builder.NodeWithTag { return &n }

	// returns the empty fragment when things match
	fill("paragraph horizontal_rule paragraph", doc(p(), hr), doc(p()), some(doc()))

	// adds a node when necessary
	fill("paragraph horizontal_rule paragraph", doc(p()), doc(p()), some(doc(hr)))

	// accepts an asterisk across the bound
	fill("hard_break*", p(br), p(br), some(p()))

	// accepts an asterisk only on the left
	fill("hard_break*", p(br), p(), some(p()))

	// accepts an asterisk only on the right
	fill("hard_break*", p(), p(br), some(p()))

	// accepts an asterisk with no elements
	fill("hard_break*", p(), p(), some(p()))

	// accepts a plus across the bound
	fill("hard_break+", p(br), p(br), some(p()))

	// adds an element for a content-less plus
	fill("hard_break+", p(), p(), some(p(br)))

	// fails for a mismatched plus
	fill("hard_break+", p(), p(img), nil)

	// accepts asterisk with content on both sides
	fill("heading* paragraph*", doc(h1()), doc(p()), some(doc()))

	// accepts asterisk with no content after
	fill("heading* paragraph*", doc(h1()), doc(), some(doc()))

	// accepts plus with content on both sides
	fill("heading+ paragraph+", doc(h1()), doc(p()), some(doc()))

	// accepts plus with no content after
	fill("heading+ paragraph+", doc(h1()), doc(), some(doc(p())))

	// adds elements to match a count
	fill("hard_break{3}", p(br), p(br), some(p(br)))

	// fails when there are too many elements
	fill("hard_break{3}", p(br, br), p(br, br), nil)

	// adds elements for two counted groups
	fill("code_block{2} paragraph{2}", doc(pre()), doc(p()), some(doc(pre(), p())))

	// doesn't include optional elements
	fill("heading paragraph? horizontal_rule", doc(h1()), doc(), some(doc(hr)))
}

func TestContentMatchParseErrors(t *testing.T) {
	bad := func(expr string) {
		t.Helper()
		_, err := ParseContentMatch(expr, schema.NodeTypes())
		assert.True(t, errors.Is(err, ErrSchema), "%q: %v", expr, err)
	}

	// rejects unknown names
	bad("paragraph bogus")

	// rejects mixing inline and block content
	bad("paragraph | text")

	// rejects unclosed ranges and parens
	bad("paragraph{2")
	bad("(paragraph heading")

	// rejects trailing text
	bad("paragraph )")

	// rejects required nodes that cannot be generated
	bad("image")
	bad("text+")
}

func TestContentMatchDefaultType(t *testing.T) {
	// skips text and nodes with required attributes
	assert.Equal(t, schema.Nodes["hard_break"], get(t, "image | text | hard_break").DefaultType())
	assert.Equal(t, schema.Nodes["paragraph"], get(t, "block+").DefaultType())
	assert.Nil(t, get(t, "image*").DefaultType())
}

func TestContentMatchFindWrapping(t *testing.T) {
	top := schema.TopNodeType.ContentMatch

	// wraps list items in the first matching list type
	assert.Equal(t, []*NodeType{schema.Nodes["ordered_list"]}, top.FindWrapping(schema.Nodes["list_item"]))

	// wraps inline content in a paragraph
	assert.Equal(t, []*NodeType{schema.Nodes["paragraph"]}, top.FindWrapping(schema.Nodes["text"]))

	// needs no wrapping for direct children
	assert.Equal(t, []*NodeType{}, top.FindWrapping(schema.Nodes["paragraph"]))
}

func TestContentMatchEdges(t *testing.T) {
	m := get(t, "paragraph heading?")
	assert.Equal(t, 1, m.EdgeCount())
	edge, err := m.Edge(0)
	require.NoError(t, err)
	assert.Equal(t, schema.Nodes["paragraph"], edge.Type)
	assert.True(t, edge.Next.ValidEnd)

	_, err = m.Edge(1)
	assert.True(t, errors.Is(err, ErrRange))

	assert.Equal(t, "0 paragraph->1\n1* heading->2\n2* ", m.String())
}
