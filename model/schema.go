package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AttributeSpec is used to define attributes on nodes or marks.
type AttributeSpec struct {
	// The default value for this attribute, to use when no explicit value is
	// provided. Attributes that have no default must be provided whenever a
	// node or mark of a type that has them is created.
	Default interface{}
	// HasDefault marks a nil Default as a real default value. A non-nil
	// Default always counts as one.
	HasDefault bool
}

func (a *AttributeSpec) hasDefault() bool {
	return a != nil && (a.HasDefault || a.Default != nil)
}

// MarshalJSON writes {"default": value} when the attribute has a default.
func (a AttributeSpec) MarshalJSON() ([]byte, error) {
	if !a.hasDefault() {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}{"default": a.Default})
}

// UnmarshalJSON reads an attribute spec. A "default": null entry is a nil
// default, which is different from no default.
func (a *AttributeSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	def, ok := raw["default"]
	a.Default = def
	a.HasDefault = ok && def == nil
	return nil
}

// NodeSpec describes a node type.
type NodeSpec struct {
	// The name of the node type.
	Key string `json:"-" yaml:"-"`
	// The content expression for this node. When not given, the node does
	// not allow any content.
	Content string `json:"content,omitempty"`
	// The marks that are allowed inside of this node. May be a
	// space-separated string referring to mark names or groups, "_" to
	// explicitly allow all marks, or "" to disallow marks. When not given,
	// nodes with inline content default to allowing all marks, other nodes
	// default to not allowing marks.
	Marks *string `json:"marks,omitempty"`
	// The group or space-separated groups to which this node belongs.
	Group string `json:"group,omitempty"`
	// Should be set to true for inline nodes.
	Inline bool `json:"inline,omitempty"`
	// Can be set to true to indicate that, though this isn't a leaf node, it
	// doesn't have directly editable content and should be treated as a
	// single unit.
	Atom bool `json:"atom,omitempty"`
	// The attributes that nodes of this type get.
	Attrs map[string]*AttributeSpec `json:"attrs,omitempty"`
	// Controls whether nodes of this type can be selected as a node
	// selection. Defaults to true for non-text nodes.
	Selectable *bool `json:"selectable,omitempty"`
	// Can be used to indicate that this node contains code.
	Code bool `json:"code,omitempty"`
	// Determines whether this node is considered an important parent node
	// during replace operations (such as paste).
	Defining bool `json:"defining,omitempty"`
	// When enabled, the sides of nodes of this type count as boundaries
	// that regular editing operations, like backspacing or lifting, won't
	// cross.
	Isolating bool `json:"isolating,omitempty"`
}

// MarkSpec describes a mark type.
type MarkSpec struct {
	// The name of the mark type.
	Key string `json:"-" yaml:"-"`
	// The attributes that marks of this type get.
	Attrs map[string]*AttributeSpec `json:"attrs,omitempty"`
	// Whether this mark should be active when the cursor is positioned at
	// its end (or at its start when that is also the start of the parent
	// node). Defaults to true.
	Inclusive *bool `json:"inclusive,omitempty"`
	// Determines which other marks this mark can coexist with. Should be a
	// space-separated strings naming other marks or groups of marks. When
	// not given, marks of the same type exclude each other. "" allows all
	// marks to coexist, "_" excludes every other mark.
	Excludes *string `json:"excludes,omitempty"`
	// The group or space-separated groups to which this mark belongs.
	Group string `json:"group,omitempty"`
	// Determines whether marks of this type can span multiple adjacent
	// nodes when serialized.
	Spanning *bool `json:"spanning,omitempty"`
}

// SchemaSpec is an object describing a schema, as passed to NewSchema.
type SchemaSpec struct {
	// The node types in this schema. Order is significant: it determines
	// which definitions take precedence, and the first node in a group is
	// the default one for that group.
	Nodes []*NodeSpec
	// The mark types that exist in this schema. The order determines the
	// rank of the marks, and thus the order in which mark sets are sorted.
	Marks []*MarkSpec
	// The name of the default top-level node for the schema. Defaults to
	// "doc".
	TopNode string
}

// MarshalJSON writes the spec in the [[name, spec], ...] pair form, which
// keeps the order of nodes and marks.
func (s SchemaSpec) MarshalJSON() ([]byte, error) {
	nodes := make([][2]interface{}, len(s.Nodes))
	for i, n := range s.Nodes {
		nodes[i] = [2]interface{}{n.Key, n}
	}
	marks := make([][2]interface{}, len(s.Marks))
	for i, m := range s.Marks {
		marks[i] = [2]interface{}{m.Key, m}
	}
	obj := map[string]interface{}{"nodes": nodes, "marks": marks}
	if s.TopNode != "" {
		obj["topNode"] = s.TopNode
	}
	return json.Marshal(obj)
}

// UnmarshalJSON reads the [[name, spec], ...] pair form.
func (s *SchemaSpec) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes   [][2]json.RawMessage `json:"nodes"`
		Marks   [][2]json.RawMessage `json:"marks"`
		TopNode string               `json:"topNode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.TopNode = raw.TopNode
	s.Nodes = nil
	for _, pair := range raw.Nodes {
		spec := &NodeSpec{}
		if err := json.Unmarshal(pair[0], &spec.Key); err != nil {
			return err
		}
		if err := json.Unmarshal(pair[1], spec); err != nil {
			return err
		}
		s.Nodes = append(s.Nodes, spec)
	}
	s.Marks = nil
	for _, pair := range raw.Marks {
		spec := &MarkSpec{}
		if err := json.Unmarshal(pair[0], &spec.Key); err != nil {
			return err
		}
		if err := json.Unmarshal(pair[1], spec); err != nil {
			return err
		}
		s.Marks = append(s.Marks, spec)
	}
	return nil
}

// NodeType objects are allocated once per Schema and used to tag Node
// instances. They contain information about the node type, such as its name
// and what kind of node it represents.
type NodeType struct {
	// The name the node type has in this schema.
	Name string
	// A link back to the Schema the node type belongs to.
	Schema *Schema
	// The spec that this type is based on.
	Spec *NodeSpec
	// The groups this type belongs to.
	Groups []string
	// The attribute specs, and the default values when every attribute has
	// one (nil otherwise).
	Attrs        map[string]*AttributeSpec
	DefaultAttrs map[string]interface{}
	// The starting match of the node type's content expression.
	ContentMatch *ContentMatch
	// The set of marks allowed in this node. nil means all marks are
	// allowed.
	MarkSet []*MarkType
	// True if this node type has inline content.
	InlineContent bool
}

func newNodeType(name string, schema *Schema, spec *NodeSpec) *NodeType {
	t := &NodeType{
		Name:   name,
		Schema: schema,
		Spec:   spec,
		Groups: strings.Fields(spec.Group),
		Attrs:  spec.Attrs,
	}
	t.DefaultAttrs = defaultAttrs(spec.Attrs)
	return t
}

// IsInline is true if this is an inline type.
func (t *NodeType) IsInline() bool { return t.Spec.Inline || t.Name == "text" }

// IsBlock is true if this is a block type.
func (t *NodeType) IsBlock() bool { return !t.IsInline() }

// IsText is true if this is the text node type.
func (t *NodeType) IsText() bool { return t.Name == "text" }

// IsTextblock is true if this is a textblock type, a block that contains
// inline content.
func (t *NodeType) IsTextblock() bool { return t.IsBlock() && t.InlineContent }

// IsLeaf is true for node types that allow no content.
func (t *NodeType) IsLeaf() bool { return t.ContentMatch == EmptyContentMatch }

// IsAtom is true when this node is an atom, i.e. when it does not have
// directly editable content.
func (t *NodeType) IsAtom() bool { return t.IsLeaf() || t.Spec.Atom }

// InGroup tells you whether this node type is part of the given group.
func (t *NodeType) InGroup(group string) bool {
	for _, g := range t.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// HasRequiredAttrs tells you whether this node type has any required
// attributes.
func (t *NodeType) HasRequiredAttrs() bool {
	for _, attr := range t.Attrs {
		if !attr.hasDefault() {
			return true
		}
	}
	return false
}

func (t *NodeType) compatibleContent(other *NodeType) bool {
	return t == other || t.ContentMatch.compatible(other.ContentMatch)
}

// ComputeAttrs fills in the default values of the attributes not given.
func (t *NodeType) ComputeAttrs(attrs map[string]interface{}) (map[string]interface{}, error) {
	if attrs == nil && t.DefaultAttrs != nil {
		return t.DefaultAttrs, nil
	}
	return computeAttrs(t.Attrs, attrs, "node", t.Name)
}

// Create creates a Node of this type. The given attributes are checked and
// defaulted (you can pass nil to use the type's defaults entirely, if no
// required attributes exist). content may be nil. Does not check the content
// against the type's content expression, use CreateChecked for that.
func (t *NodeType) Create(attrs map[string]interface{}, content *Fragment, marks []*Mark) (*Node, error) {
	if t.IsText() {
		return nil, schemaError("NodeType.Create can't construct text nodes")
	}
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	return NewNode(t, computed, content, MarkSetFrom(marks)), nil
}

// CreateChecked is like Create, but checks the given content against the
// node type's content restrictions, and returns an ErrContent error if it
// doesn't match.
func (t *NodeType) CreateChecked(attrs map[string]interface{}, content *Fragment, marks []*Mark) (*Node, error) {
	if content == nil {
		content = EmptyFragment
	}
	if err := t.CheckContent(content); err != nil {
		return nil, err
	}
	return t.Create(attrs, content, marks)
}

// CreateAndFill is like Create, but sees if it is necessary to add nodes to
// the start or end of the given fragment to make it fit the node. If no
// fitting wrapping can be found, it returns nil without error.
func (t *NodeType) CreateAndFill(attrs map[string]interface{}, content *Fragment, marks []*Mark) (*Node, error) {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = EmptyFragment
	}
	if content.Size > 0 {
		before := t.ContentMatch.FillBefore(content, false, 0)
		if before == nil {
			return nil, nil
		}
		content = before.Append(content)
	}
	matched := t.ContentMatch.MatchFragment(content)
	if matched == nil {
		return nil, nil
	}
	after := matched.FillBefore(EmptyFragment, true, 0)
	if after == nil {
		return nil, nil
	}
	return NewNode(t, computed, content.Append(after), MarkSetFrom(marks)), nil
}

// ValidContent returns true if the given fragment is valid content for this
// node type.
func (t *NodeType) ValidContent(content *Fragment) bool {
	return t.CheckContent(content) == nil
}

// CheckContent returns an ErrContent error when the given fragment is not
// valid content for this node type.
func (t *NodeType) CheckContent(content *Fragment) error {
	result := t.ContentMatch.MatchFragment(content)
	if result == nil || !result.ValidEnd {
		return newError(ErrContent, "invalid content for node %s: %s", t.Name, content)
	}
	for _, child := range content.Content {
		if !t.AllowsMarks(child.Marks) {
			return newError(ErrContent, "invalid content for node %s: marks %s not allowed", t.Name, markNames(child.Marks))
		}
	}
	return nil
}

func (t *NodeType) checkAttrs(attrs map[string]interface{}) error {
	return checkAttrs(t.Attrs, attrs, "node", t.Name)
}

// AllowsMarkType checks whether the given mark type is allowed in this node.
func (t *NodeType) AllowsMarkType(markType *MarkType) bool {
	if t.MarkSet == nil {
		return true
	}
	for _, mt := range t.MarkSet {
		if mt == markType {
			return true
		}
	}
	return false
}

// AllowsMarks tests whether the given set of marks are allowed in this node.
func (t *NodeType) AllowsMarks(marks []*Mark) bool {
	if t.MarkSet == nil {
		return true
	}
	for _, m := range marks {
		if !t.AllowsMarkType(m.Type) {
			return false
		}
	}
	return true
}

// AllowedMarks removes the marks that are not allowed in this node from the
// given set.
func (t *NodeType) AllowedMarks(marks []*Mark) []*Mark {
	if t.MarkSet == nil {
		return marks
	}
	var result []*Mark
	for i, m := range marks {
		if !t.AllowsMarkType(m.Type) {
			if result == nil {
				result = append([]*Mark{}, marks[:i]...)
			}
		} else if result != nil {
			result = append(result, m)
		}
	}
	if result == nil {
		return marks
	}
	if len(result) == 0 {
		return NoMarks
	}
	return result
}

// MarkType is the type object for marks. Like nodes, marks (which are
// associated with nodes to signify things like emphasis or being part of a
// link) are tagged with type objects, which are instantiated once per Schema.
type MarkType struct {
	// The name of the mark type.
	Name string
	// The rank of the mark type, its position in the schema's mark list.
	Rank int
	// The schema that this mark type instance is part of.
	Schema *Schema
	// The spec on which the type is based.
	Spec     *MarkSpec
	Attrs    map[string]*AttributeSpec
	Excluded []*MarkType
	instance *Mark
}

func newMarkType(name string, rank int, schema *Schema, spec *MarkSpec) *MarkType {
	t := &MarkType{Name: name, Rank: rank, Schema: schema, Spec: spec, Attrs: spec.Attrs}
	if defaults := defaultAttrs(spec.Attrs); defaults != nil {
		t.instance = &Mark{Type: t, Attrs: defaults}
	}
	return t
}

// Create creates a mark of this type. attrs may be nil or an object
// containing only some of the mark's attributes. The others, if they have
// defaults, will be added.
func (t *MarkType) Create(attrs map[string]interface{}) (*Mark, error) {
	if attrs == nil && t.instance != nil {
		return t.instance, nil
	}
	computed, err := computeAttrs(t.Attrs, attrs, "mark", t.Name)
	if err != nil {
		return nil, err
	}
	return &Mark{Type: t, Attrs: computed}, nil
}

// RemoveFromSet, when there is a mark of this type in the given set, returns
// a new set without it. Otherwise, the input set is returned.
func (t *MarkType) RemoveFromSet(set []*Mark) []*Mark {
	for i, m := range set {
		if m.Type == t {
			result := append([]*Mark{}, set[:i]...)
			return append(result, set[i+1:]...)
		}
	}
	return set
}

// IsInSet tests whether there is a mark of this type in the given set.
func (t *MarkType) IsInSet(set []*Mark) *Mark {
	for _, m := range set {
		if m.Type == t {
			return m
		}
	}
	return nil
}

// Excludes queries whether a given mark type is excluded by this one.
func (t *MarkType) Excludes(other *MarkType) bool {
	for _, ex := range t.Excluded {
		if ex == other {
			return true
		}
	}
	return false
}

// IsInclusive reports whether the mark stays active at its end.
func (t *MarkType) IsInclusive() bool {
	return t.Spec.Inclusive == nil || *t.Spec.Inclusive
}

func (t *MarkType) checkAttrs(attrs map[string]interface{}) error {
	return checkAttrs(t.Attrs, attrs, "mark", t.Name)
}

// Schema holds the node and mark types that may occur in conforming
// documents, and provides functionality for creating and deserializing such
// documents.
type Schema struct {
	// The spec on which the schema is based.
	Spec *SchemaSpec
	// An object mapping the schema's node names to node type objects.
	Nodes map[string]*NodeType
	// A map from mark names to mark type objects.
	Marks map[string]*MarkType
	// The type of the default top node for this schema.
	TopNodeType *NodeType

	nodeOrder []*NodeType
	markOrder []*MarkType
}

// NewSchema constructs a schema from a schema specification.
func NewSchema(spec *SchemaSpec) (*Schema, error) {
	schema := &Schema{
		Spec:  spec,
		Nodes: map[string]*NodeType{},
		Marks: map[string]*MarkType{},
	}
	for _, ns := range spec.Nodes {
		if _, dup := schema.Nodes[ns.Key]; dup {
			return nil, schemaError("duplicate node type %s", ns.Key)
		}
		t := newNodeType(ns.Key, schema, ns)
		schema.Nodes[ns.Key] = t
		schema.nodeOrder = append(schema.nodeOrder, t)
	}
	topName := spec.TopNode
	if topName == "" {
		topName = "doc"
	}
	top, ok := schema.Nodes[topName]
	if !ok {
		return nil, schemaError("schema is missing its top node type (%q)", topName)
	}
	schema.TopNodeType = top
	text, ok := schema.Nodes["text"]
	if !ok {
		return nil, schemaError("every schema needs a 'text' type")
	}
	if len(text.Attrs) > 0 {
		return nil, schemaError("the text node type should not have attributes")
	}
	for i, ms := range spec.Marks {
		if _, dup := schema.Marks[ms.Key]; dup {
			return nil, schemaError("duplicate mark type %s", ms.Key)
		}
		t := newMarkType(ms.Key, i, schema, ms)
		schema.Marks[ms.Key] = t
		schema.markOrder = append(schema.markOrder, t)
	}

	contentExprCache := map[string]*ContentMatch{}
	for _, t := range schema.nodeOrder {
		if _, clash := schema.Marks[t.Name]; clash {
			return nil, schemaError("%s can not be both a node and a mark", t.Name)
		}
		expr := t.Spec.Content
		match, ok := contentExprCache[expr]
		if !ok {
			var err error
			match, err = ParseContentMatch(expr, schema.nodeOrder)
			if err != nil {
				return nil, err
			}
			contentExprCache[expr] = match
		}
		t.ContentMatch = match
		t.InlineContent = match.inlineContent()
	}
	for _, t := range schema.nodeOrder {
		markExpr := t.Spec.Marks
		switch {
		case markExpr != nil && *markExpr == "_":
			t.MarkSet = nil
		case markExpr != nil && *markExpr != "":
			set, err := schema.gatherMarks(strings.Fields(*markExpr))
			if err != nil {
				return nil, err
			}
			t.MarkSet = set
		case markExpr != nil || !t.InlineContent:
			t.MarkSet = []*MarkType{}
		default:
			t.MarkSet = nil
		}
	}
	for _, t := range schema.markOrder {
		excl := t.Spec.Excludes
		switch {
		case excl == nil:
			t.Excluded = []*MarkType{t}
		case *excl == "":
			t.Excluded = nil
		default:
			set, err := schema.gatherMarks(strings.Fields(*excl))
			if err != nil {
				return nil, err
			}
			t.Excluded = set
		}
	}
	return schema, nil
}

func (s *Schema) gatherMarks(names []string) ([]*MarkType, error) {
	found := []*MarkType{}
	for _, name := range names {
		if mark, ok := s.Marks[name]; ok {
			found = append(found, mark)
			continue
		}
		ok := false
		for _, mark := range s.markOrder {
			if name == "_" || strings.Contains(" "+mark.Spec.Group+" ", " "+name+" ") {
				found = append(found, mark)
				ok = true
			}
		}
		if !ok {
			return nil, schemaError("unknown mark type: %q", name)
		}
	}
	return found, nil
}

// NodeTypes returns the node types in the order of the spec.
func (s *Schema) NodeTypes() []*NodeType {
	return s.nodeOrder
}

// MarkTypes returns the mark types ordered by rank.
func (s *Schema) MarkTypes() []*MarkType {
	return s.markOrder
}

// NodeType returns the node type with the given name.
func (s *Schema) NodeType(name string) (*NodeType, error) {
	if t, ok := s.Nodes[name]; ok {
		return t, nil
	}
	return nil, schemaError("unknown node type: %s", name)
}

// MarkType returns the mark type with the given name.
func (s *Schema) MarkType(name string) (*MarkType, error) {
	if t, ok := s.Marks[name]; ok {
		return t, nil
	}
	return nil, schemaError("unknown mark type: %s", name)
}

// Node creates a node in this schema. The content nodes are joined into a
// fragment.
func (s *Schema) Node(name string, attrs map[string]interface{}, content []*Node, marks ...*Mark) (*Node, error) {
	t, err := s.NodeType(name)
	if err != nil {
		return nil, err
	}
	return t.CreateChecked(attrs, FragmentFromArray(content), marks)
}

// Text creates a text node in the schema. Empty text nodes are not allowed,
// and Text panics when given one.
func (s *Schema) Text(text string, marks ...*Mark) *Node {
	if text == "" {
		panic(newError(ErrContent, "empty text nodes are not allowed"))
	}
	return s.text(text, MarkSetFrom(marks))
}

func (s *Schema) text(text string, marks []*Mark) *Node {
	t := s.Nodes["text"]
	return NewTextNode(t, t.DefaultAttrs, text, marks)
}

// Mark creates a mark with the given type and attributes. It panics for
// unknown mark types or missing required attributes, use MarkType for a
// checked lookup.
func (s *Schema) Mark(name string, attrs ...map[string]interface{}) *Mark {
	t, err := s.MarkType(name)
	if err != nil {
		panic(err)
	}
	var a map[string]interface{}
	if len(attrs) > 0 {
		a = attrs[0]
	}
	m, err := t.Create(a)
	if err != nil {
		panic(err)
	}
	return m
}

// NodeFromJSON deserializes a node from its JSON representation.
func (s *Schema) NodeFromJSON(raw interface{}) (*Node, error) {
	return NodeFromJSON(s, raw)
}

// MarkFromJSON deserializes a mark from its JSON representation.
func (s *Schema) MarkFromJSON(raw interface{}) (*Mark, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, inputError("invalid input for Mark.fromJSON")
	}
	name, ok := obj["type"].(string)
	if !ok || name == "" {
		return nil, inputError("invalid mark type in JSON")
	}
	t, err := s.MarkType(name)
	if err != nil {
		return nil, err
	}
	var attrs map[string]interface{}
	if rawAttrs, ok := obj["attrs"]; ok && rawAttrs != nil {
		if attrs, ok = rawAttrs.(map[string]interface{}); !ok {
			return nil, inputError("invalid attrs for mark %s", name)
		}
	}
	if err := t.checkAttrs(attrs); err != nil {
		return nil, err
	}
	return t.Create(attrs)
}

func defaultAttrs(attrs map[string]*AttributeSpec) map[string]interface{} {
	defaults := map[string]interface{}{}
	for name, attr := range attrs {
		if !attr.hasDefault() {
			return nil
		}
		defaults[name] = attr.Default
	}
	return defaults
}

func computeAttrs(specs map[string]*AttributeSpec, value map[string]interface{}, kind, name string) (map[string]interface{}, error) {
	built := map[string]interface{}{}
	for attr, spec := range specs {
		given, ok := value[attr]
		if !ok {
			if !spec.hasDefault() {
				return nil, schemaError("no value supplied for attribute %s of %s %s", attr, kind, name)
			}
			given = spec.Default
		}
		built[attr] = given
	}
	return built, nil
}

func checkAttrs(specs map[string]*AttributeSpec, attrs map[string]interface{}, kind, name string) error {
	for _, attr := range sortedKeys(attrs) {
		if _, ok := specs[attr]; !ok {
			return inputError("unsupported attribute %s for %s of type %s", attr, kind, name)
		}
	}
	return nil
}

// String returns the type name.
func (t *NodeType) String() string {
	return fmt.Sprintf("NodeType(%s)", t.Name)
}
