// Package builder provides helpers to write test documents tersely. Strings
// passed to the builders may contain tags like <a>, whose positions are
// recorded in the Tag map of the resulting node.
package builder

import (
	"fmt"
	"regexp"

	"github.com/cozy/docshape/model"
	"github.com/cozy/docshape/schema/basic"
	"github.com/cozy/docshape/schema/list"
)

// Spec names a node or mark type ("nodeType" or "markType") and gives
// default attributes for a named builder.
type Spec map[string]interface{}

// NodeWithTag is a built node with the positions of the tags found in its
// content.
type NodeWithTag struct {
	*model.Node
	Tag map[string]int
}

// Flat is the result of a mark builder: a list of nodes carrying the mark,
// to be spliced into the parent content.
type Flat struct {
	Nodes []*model.Node
	Tag   map[string]int
}

// NodeBuilder builds a node. Arguments can be an attribute map (first
// argument only), strings, nodes, other builders' results, or leaf node
// builders.
type NodeBuilder func(args ...interface{}) NodeWithTag

// MarkBuilder applies a mark to its content.
type MarkBuilder func(args ...interface{}) Flat

var tagRE = regexp.MustCompile(`<(\w+)>`)

func flatten(schema *model.Schema, children []interface{}, f func(*model.Node) *model.Node) ([]*model.Node, map[string]int) {
	var result []*model.Node
	pos := 0
	tag := map[string]int{}
	push := func(n *model.Node) {
		n = f(n)
		pos += n.NodeSize()
		result = append(result, n)
	}
	for _, child := range children {
		switch c := child.(type) {
		case string:
			at := 0
			out := ""
			for _, m := range tagRE.FindAllStringSubmatchIndex(c, -1) {
				out += c[at:m[0]]
				pos += model.TextLength(c[at:m[0]])
				at = m[1]
				tag[c[m[2]:m[3]]] = pos
			}
			out += c[at:]
			pos += model.TextLength(c[at:])
			if out != "" {
				result = append(result, f(schema.Text(out)))
			}
		case NodeWithTag:
			offset := 1
			if c.IsText() {
				offset = 0
			}
			for id, p := range c.Tag {
				tag[id] = p + offset + pos
			}
			push(c.Node)
		case *model.Node:
			push(c)
		case Flat:
			for id, p := range c.Tag {
				tag[id] = p + pos
			}
			for _, n := range c.Nodes {
				push(n)
			}
		case NodeBuilder:
			push(c().Node)
		default:
			panic(fmt.Sprintf("builder: unexpected child %T", child))
		}
	}
	return result, tag
}

func takeAttrs(attrs map[string]interface{}, args []interface{}) (map[string]interface{}, []interface{}) {
	if len(args) == 0 {
		return attrs, args
	}
	given, ok := args[0].(map[string]interface{})
	if !ok {
		return attrs, args
	}
	args = args[1:]
	if attrs == nil {
		return given, args
	}
	merged := map[string]interface{}{}
	for k, v := range attrs {
		merged[k] = v
	}
	for k, v := range given {
		merged[k] = v
	}
	return merged, args
}

func block(typ *model.NodeType, attrs map[string]interface{}) NodeBuilder {
	return func(args ...interface{}) NodeWithTag {
		myAttrs, rest := takeAttrs(attrs, args)
		nodes, tag := flatten(typ.Schema, rest, func(n *model.Node) *model.Node { return n })
		node, err := typ.Create(myAttrs, model.FragmentFromArray(nodes), nil)
		if err != nil {
			panic(err)
		}
		return NodeWithTag{Node: node, Tag: tag}
	}
}

func mark(typ *model.MarkType, attrs map[string]interface{}) MarkBuilder {
	return func(args ...interface{}) Flat {
		myAttrs, rest := takeAttrs(attrs, args)
		m, err := typ.Create(myAttrs)
		if err != nil {
			panic(err)
		}
		nodes, tag := flatten(typ.Schema, rest, func(n *model.Node) *model.Node {
			if typ.IsInSet(n.Marks) != nil {
				return n
			}
			return n.Mark(m.AddToSet(n.Marks))
		})
		return Flat{Nodes: nodes, Tag: tag}
	}
}

// Builders creates a builder for every node and mark type of the schema,
// keyed by type name, plus the named builders. The schema itself is stored
// under "schema".
func Builders(schema *model.Schema, names map[string]Spec) map[string]interface{} {
	result := map[string]interface{}{"schema": schema}
	for name, typ := range schema.Nodes {
		result[name] = block(typ, nil)
	}
	for name, typ := range schema.Marks {
		result[name] = mark(typ, nil)
	}
	for name, spec := range names {
		attrs := map[string]interface{}{}
		for k, v := range spec {
			if k != "nodeType" && k != "markType" {
				attrs[k] = v
			}
		}
		if typeName, ok := spec["nodeType"].(string); ok {
			result[name] = block(schema.Nodes[typeName], attrs)
		} else if typeName, ok := spec["markType"].(string); ok {
			result[name] = mark(schema.Marks[typeName], attrs)
		}
	}
	return result
}

// Schema is the basic schema with list nodes added.
var Schema = func() *model.Schema {
	spec := basic.Spec()
	spec.Nodes = list.AddListNodes(spec.Nodes, "paragraph block*", "block")
	s, err := model.NewSchema(spec)
	if err != nil {
		panic(err)
	}
	return s
}()

var out = Builders(Schema, map[string]Spec{
	"p":   {"nodeType": "paragraph"},
	"pre": {"nodeType": "code_block"},
	"h1":  {"nodeType": "heading", "level": 1.0},
	"h2":  {"nodeType": "heading", "level": 2.0},
	"h3":  {"nodeType": "heading", "level": 3.0},
	"li":  {"nodeType": "list_item"},
	"ul":  {"nodeType": "bullet_list"},
	"ol":  {"nodeType": "ordered_list"},
	"br":  {"nodeType": "hard_break"},
	"img": {"nodeType": "image", "src": "img.png"},
	"hr":  {"nodeType": "horizontal_rule"},
	"a":   {"markType": "link", "href": "foo"},
})

// Builders for the test schema.
var (
	Doc        = out["doc"].(NodeBuilder)
	P          = out["p"].(NodeBuilder)
	Blockquote = out["blockquote"].(NodeBuilder)
	Pre        = out["pre"].(NodeBuilder)
	H1         = out["h1"].(NodeBuilder)
	H2         = out["h2"].(NodeBuilder)
	H3         = out["h3"].(NodeBuilder)
	Li         = out["li"].(NodeBuilder)
	Ul         = out["ul"].(NodeBuilder)
	Ol         = out["ol"].(NodeBuilder)
	Br         = out["br"].(NodeBuilder)
	Img        = out["img"].(NodeBuilder)
	Hr         = out["hr"].(NodeBuilder)
	A          = out["a"].(MarkBuilder)
	Em         = out["em"].(MarkBuilder)
	Strong     = out["strong"].(MarkBuilder)
	Code       = out["code"].(MarkBuilder)
)
