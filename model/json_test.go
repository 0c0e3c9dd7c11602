package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/cozy/docshape/model"
	"github.com/cozy/docshape/test/builder"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonSpec = `
{
  "nodes": [
    ["doc", { "content": "block+" }],
    ["paragraph", { "content": "inline*", "group": "block" }],
    ["blockquote", { "content": "block+", "group": "block" }],
    ["horizontal_rule", { "group": "block" }],
    [
      "heading",
      {
        "content": "inline*",
        "group": "block",
        "attrs": { "level": { "default": 1 } }
      }
    ],
    ["code_block", { "content": "text*", "marks": "", "group": "block" }],
    ["text", { "group": "inline" }],
    [
      "image",
      {
        "group": "inline",
        "inline": true,
        "attrs": { "alt": { "default": null }, "src": {}, "title": { "default": null } }
      }
    ],
    ["hard_break", { "group": "inline", "inline": true }],
    [
      "ordered_list",
      {
        "content": "list_item+",
        "group": "block",
        "attrs": { "order": { "default": 1 } }
      }
    ],
    ["bullet_list", { "content": "list_item+", "group": "block" }],
    ["list_item", { "content": "paragraph block*" }]
  ],
  "marks": [
    ["link", { "attrs": { "href": {}, "title": { "default": null } }, "inclusive": false }],
    ["em", {}],
    ["strong", {}],
    ["code", {}]
  ],
  "topNode": "doc"
}`

func TestSchemaSpecJSON(t *testing.T) {
	var spec SchemaSpec
	require.NoError(t, json.Unmarshal([]byte(jsonSpec), &spec))
	s, err := NewSchema(&spec)
	require.NoError(t, err)

	// keeps the order of node types
	var names []string
	for _, typ := range s.NodeTypes() {
		names = append(names, typ.Name)
	}
	assert.Equal(t, []string{"doc", "paragraph", "blockquote", "horizontal_rule", "heading",
		"code_block", "text", "image", "hard_break", "ordered_list", "bullet_list", "list_item"}, names)

	// distinguishes a null default from a missing one
	assert.True(t, s.Nodes["image"].HasRequiredAttrs())
	assert.False(t, s.Nodes["heading"].HasRequiredAttrs())
	_, hasTitle := s.Nodes["image"].Attrs["title"]
	assert.True(t, hasTitle)

	// fills the top node
	node, err := s.TopNodeType.CreateAndFill(nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "doc(paragraph)", node.String())

	// survives a round trip
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	var again SchemaSpec
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Empty(t, cmp.Diff(spec, again))
}

func TestNodeJSON(t *testing.T) {
	roundTrip := func(d builder.NodeWithTag) {
		t.Helper()
		data, err := json.Marshal(d.ToJSON())
		require.NoError(t, err)
		var raw interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		back, err := schema.NodeFromJSON(raw)
		require.NoError(t, err)
		assert.True(t, back.Eq(d.Node), "%s != %s", back, d.Node)
	}

	// can serialize a simple node
	roundTrip(doc(p("foo")))

	// can serialize marks
	roundTrip(doc(p("foo", em("bar", strong("baz")), " ", a("x"))))

	// can serialize inline leaf nodes
	roundTrip(doc(p("foo", em(img, "bar"))))

	// can serialize block leaf nodes
	roundTrip(doc(p("a"), hr, p("b"), p()))

	// can serialize nested nodes
	roundTrip(doc(blockquote(ul(li(p("a"), p("b")), li(p(img))), p("c")), p("d")))

	// produces the documented shape
	expected := map[string]interface{}{
		"type": "doc",
		"content": []interface{}{
			map[string]interface{}{
				"type": "heading",
				"attrs": map[string]interface{}{"level": 2.0},
				"content": []interface{}{
					map[string]interface{}{
						"type":  "text",
						"text":  "hi",
						"marks": []interface{}{map[string]interface{}{"type": "em"}},
					},
				},
			},
		},
	}
	assert.Empty(t, cmp.Diff(expected, doc(h2(em("hi"))).ToJSON()))
}

func TestNodeFromJSONErrors(t *testing.T) {
	bad := func(raw string, kind error) {
		t.Helper()
		var value interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &value))
		_, err := schema.NodeFromJSON(value)
		assert.True(t, errors.Is(err, kind), "%s: %v", raw, err)
	}

	// rejects non-objects
	bad(`"doc"`, ErrInvalidInput)

	// rejects unknown node types
	bad(`{"type": "bogus"}`, ErrSchema)

	// rejects unknown marks
	bad(`{"type": "text", "text": "x", "marks": [{"type": "bogus"}]}`, ErrSchema)

	// rejects empty text
	bad(`{"type": "text", "text": ""}`, ErrInvalidInput)

	// rejects unsupported attributes
	bad(`{"type": "paragraph", "attrs": {"bogus": 1}}`, ErrInvalidInput)

	// rejects malformed content
	bad(`{"type": "doc", "content": {"type": "paragraph"}}`, ErrInvalidInput)

	// a missing or non-string type is malformed input, not a schema problem
	bad(`{"content": []}`, ErrInvalidInput)
	bad(`{"type": 3}`, ErrInvalidInput)
	bad(`{"type": "text", "text": "x", "marks": [{"attrs": {}}]}`, ErrInvalidInput)
	bad(`{"type": "text", "text": "x", "marks": [{"type": null}]}`, ErrInvalidInput)
}

func TestMarkFromJSONErrors(t *testing.T) {
	_, err := schema.MarkFromJSON(map[string]interface{}{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = schema.MarkFromJSON(map[string]interface{}{"type": true})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = schema.MarkFromJSON(map[string]interface{}{"type": "blink"})
	assert.ErrorIs(t, err, ErrSchema)
	m, err := schema.MarkFromJSON(map[string]interface{}{"type": "em"})
	require.NoError(t, err)
	assert.True(t, m.Eq(em2))
}

func TestSliceJSON(t *testing.T) {
	d := doc(p("foo"), p("bar"))
	slice, err := d.Slice(2, 8)
	require.NoError(t, err)

	data, err := json.Marshal(slice.ToJSON())
	require.NoError(t, err)
	var raw interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 1.0, raw.(map[string]interface{})["openStart"])

	back, err := SliceFromJSON(schema, raw)
	require.NoError(t, err)
	assert.True(t, back.Eq(slice))

	// represents the empty slice as nil
	assert.Nil(t, EmptySlice.ToJSON())
	back, err = SliceFromJSON(schema, nil)
	require.NoError(t, err)
	assert.True(t, back.Eq(EmptySlice))

	// omits closed sides
	closed := NewSlice(FragmentFrom(p("x").Node), 0, 0).ToJSON()
	assert.NotContains(t, closed, "openStart")
	assert.NotContains(t, closed, "openEnd")

	// rejects open depths that are not integers
	_, err = SliceFromJSON(schema, map[string]interface{}{"openStart": "1"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = SliceFromJSON(schema, map[string]interface{}{"openStart": 1.5})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
