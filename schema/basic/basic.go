// Package basic defines a basic document schema, whose elements can be
// reused in other schemas.
package basic

import "github.com/cozy/docshape/model"

var (
	empty = ""
	falsy = false

	headingAttrs = map[string]*model.AttributeSpec{
		"level": {Default: 1.0},
	}
	codeBlockAttrs = map[string]*model.AttributeSpec{
		"language": {Default: nil, HasDefault: true},
	}
	imageAttrs = map[string]*model.AttributeSpec{
		"src":   {},
		"alt":   {Default: nil, HasDefault: true},
		"title": {Default: nil, HasDefault: true},
	}
	linkAttrs = map[string]*model.AttributeSpec{
		"href":  {},
		"title": {Default: nil, HasDefault: true},
	}
)

// Nodes are the specs for the nodes defined in this schema.
var Nodes = []*model.NodeSpec{
	// The top level document node.
	{Key: "doc", Content: "block+"},

	// A plain paragraph textblock.
	{Key: "paragraph", Content: "inline*", Group: "block"},

	// A blockquote wrapping one or more blocks.
	{Key: "blockquote", Content: "block+", Group: "block", Defining: true},

	// A horizontal rule.
	{Key: "horizontal_rule", Group: "block"},

	// A heading textblock, with a level attribute that should hold the number
	// 1 to 6.
	{Key: "heading", Content: "inline*", Group: "block", Attrs: headingAttrs, Defining: true},

	// A code listing. Disallows marks or non-text inline nodes by default.
	{Key: "code_block", Content: "text*", Marks: &empty, Group: "block", Attrs: codeBlockAttrs, Code: true, Defining: true},

	// The text node.
	{Key: "text", Group: "inline"},

	// An inline image node. Supports src, alt, and title attributes. The
	// latter two default to nil.
	{Key: "image", Inline: true, Group: "inline", Attrs: imageAttrs},

	// A hard line break.
	{Key: "hard_break", Inline: true, Group: "inline", Selectable: &falsy},
}

// Marks are the specs for the marks in the schema.
var Marks = []*model.MarkSpec{
	// A link. Has href and title attributes. title defaults to nil.
	{Key: "link", Attrs: linkAttrs, Inclusive: &falsy},

	// An emphasis mark.
	{Key: "em"},

	// A strong mark.
	{Key: "strong"},

	// Code font mark.
	{Key: "code"},
}

// Spec returns a fresh copy of the spec list of this schema, which other
// schemas can extend.
func Spec() *model.SchemaSpec {
	return &model.SchemaSpec{
		Nodes: append([]*model.NodeSpec{}, Nodes...),
		Marks: append([]*model.MarkSpec{}, Marks...),
	}
}

// Schema roughly corresponds to the document schema used by CommonMark,
// minus the list elements, which are defined in the list package.
var Schema = mustSchema(Spec())

func mustSchema(spec *model.SchemaSpec) *model.Schema {
	schema, err := model.NewSchema(spec)
	if err != nil {
		panic(err)
	}
	return schema
}
