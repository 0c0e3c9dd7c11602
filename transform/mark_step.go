package transform

import (
	"github.com/cozy/docshape/model"
)

type mapFn func(node, parent *model.Node) *model.Node

// mapFragment rebuilds a fragment, calling f on every inline node with the
// node's parent. Block nodes are copied with their mapped content.
func mapFragment(fragment *model.Fragment, f mapFn, parent *model.Node) *model.Fragment {
	mapped := make([]*model.Node, 0, fragment.ChildCount())
	for _, child := range fragment.Content {
		if child.Content.Size > 0 {
			child = child.Copy(mapFragment(child.Content, f, child))
		}
		if child.IsInline() {
			child = f(child, parent)
		}
		mapped = append(mapped, child)
	}
	return model.FragmentFromArray(mapped)
}

// markRange is the part shared by the steps that add or remove a mark over
// a range of inline content.
type markRange struct {
	From int
	To   int
	Mark *model.Mark
}

// mapRange maps the range through mapping. ok is false when the range was
// deleted or became empty.
func (r markRange) mapRange(mapping Mappable) (markRange, bool) {
	from := mapping.MapResult(r.From, 1)
	to := mapping.MapResult(r.To, -1)
	if (from.Deleted() && to.Deleted()) || from.Pos >= to.Pos {
		return markRange{}, false
	}
	return markRange{From: from.Pos, To: to.Pos, Mark: r.Mark}, true
}

// union merges two ranges carrying the same mark when they overlap or
// touch.
func (r markRange) union(other markRange) (markRange, bool) {
	if !other.Mark.Eq(r.Mark) || r.From > other.To || r.To < other.From {
		return markRange{}, false
	}
	return markRange{From: min(r.From, other.From), To: max(r.To, other.To), Mark: r.Mark}, true
}

func (r markRange) toJSON(stepType string) map[string]interface{} {
	return map[string]interface{}{
		"stepType": stepType,
		"mark":     r.Mark.ToJSON(),
		"from":     r.From,
		"to":       r.To,
	}
}

type markRangePayload struct {
	From *int        `mapstructure:"from"`
	To   *int        `mapstructure:"to"`
	Mark interface{} `mapstructure:"mark"`
}

func markRangeFromJSON(name string, schema *model.Schema, obj map[string]interface{}) (markRange, error) {
	var p markRangePayload
	if err := decodePayload(name, obj, &p); err != nil {
		return markRange{}, err
	}
	if p.From == nil || p.To == nil || p.Mark == nil {
		return markRange{}, invalidInput(name)
	}
	mark, err := schema.MarkFromJSON(p.Mark)
	if err != nil {
		return markRange{}, err
	}
	return markRange{From: *p.From, To: *p.To, Mark: mark}, nil
}

// AddMarkStep adds a mark to all inline content between two positions.
type AddMarkStep struct {
	markRange
}

// NewAddMarkStep is the constructor for AddMarkStep.
func NewAddMarkStep(from, to int, mark *model.Mark) *AddMarkStep {
	return &AddMarkStep{markRange{From: from, To: to, Mark: mark}}
}

// Apply is a method of the Step interface. The mark is only added to nodes
// whose parent allows it.
func (s *AddMarkStep) Apply(doc *model.Node) StepResult {
	oldSlice, err := doc.Slice(s.From, s.To)
	if err != nil {
		return failWith(err)
	}
	rFrom, err := doc.Resolve(s.From)
	if err != nil {
		return failWith(err)
	}
	parent := rFrom.Node(rFrom.SharedDepth(s.To))
	fragment := mapFragment(oldSlice.Content, func(node, parent *model.Node) *model.Node {
		if !node.IsAtom() || !parent.Type.AllowsMarkType(s.Mark.Type) {
			return node
		}
		return node.Mark(s.Mark.AddToSet(node.Marks))
	}, parent)
	slice := model.NewSlice(fragment, oldSlice.OpenStart, oldSlice.OpenEnd)
	return FromReplace(doc, s.From, s.To, slice)
}

// GetMap is a method of the Step interface.
func (s *AddMarkStep) GetMap() *StepMap {
	return EmptyStepMap
}

// Invert is a method of the Step interface.
func (s *AddMarkStep) Invert(doc *model.Node) Step {
	return NewRemoveMarkStep(s.From, s.To, s.Mark)
}

// Map is a method of the Step interface. A step whose range was deleted, or
// collapsed to nothing, maps to nil.
func (s *AddMarkStep) Map(mapping Mappable) Step {
	r, ok := s.mapRange(mapping)
	if !ok {
		return nil
	}
	return &AddMarkStep{r}
}

// Merge is a method of the Step interface.
func (s *AddMarkStep) Merge(other Step) (Step, bool) {
	add, ok := other.(*AddMarkStep)
	if !ok {
		return nil, false
	}
	r, ok := s.union(add.markRange)
	if !ok {
		return nil, false
	}
	return &AddMarkStep{r}, true
}

// ToJSON is a method of the Step interface.
func (s *AddMarkStep) ToJSON() map[string]interface{} {
	return s.toJSON("addMark")
}

// AddMarkStepFromJSON builds an AddMarkStep from a JSON representation.
func AddMarkStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	r, err := markRangeFromJSON("AddMarkStep", schema, obj)
	if err != nil {
		return nil, err
	}
	return &AddMarkStep{r}, nil
}

var _ Step = &AddMarkStep{}

// RemoveMarkStep removes a mark from all inline content between two
// positions.
type RemoveMarkStep struct {
	markRange
}

// NewRemoveMarkStep is the constructor for RemoveMarkStep.
func NewRemoveMarkStep(from, to int, mark *model.Mark) *RemoveMarkStep {
	return &RemoveMarkStep{markRange{From: from, To: to, Mark: mark}}
}

// Apply is a method of the Step interface.
func (s *RemoveMarkStep) Apply(doc *model.Node) StepResult {
	oldSlice, err := doc.Slice(s.From, s.To)
	if err != nil {
		return failWith(err)
	}
	fragment := mapFragment(oldSlice.Content, func(node, _ *model.Node) *model.Node {
		return node.Mark(s.Mark.RemoveFromSet(node.Marks))
	}, doc)
	slice := model.NewSlice(fragment, oldSlice.OpenStart, oldSlice.OpenEnd)
	return FromReplace(doc, s.From, s.To, slice)
}

// GetMap is a method of the Step interface.
func (s *RemoveMarkStep) GetMap() *StepMap {
	return EmptyStepMap
}

// Invert is a method of the Step interface.
func (s *RemoveMarkStep) Invert(doc *model.Node) Step {
	return NewAddMarkStep(s.From, s.To, s.Mark)
}

// Map is a method of the Step interface.
func (s *RemoveMarkStep) Map(mapping Mappable) Step {
	r, ok := s.mapRange(mapping)
	if !ok {
		return nil
	}
	return &RemoveMarkStep{r}
}

// Merge is a method of the Step interface.
func (s *RemoveMarkStep) Merge(other Step) (Step, bool) {
	remove, ok := other.(*RemoveMarkStep)
	if !ok {
		return nil, false
	}
	r, ok := s.union(remove.markRange)
	if !ok {
		return nil, false
	}
	return &RemoveMarkStep{r}, true
}

// ToJSON is a method of the Step interface.
func (s *RemoveMarkStep) ToJSON() map[string]interface{} {
	return s.toJSON("removeMark")
}

// RemoveMarkStepFromJSON builds a RemoveMarkStep from a JSON representation.
func RemoveMarkStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	r, err := markRangeFromJSON("RemoveMarkStep", schema, obj)
	if err != nil {
		return nil, err
	}
	return &RemoveMarkStep{r}, nil
}

var _ Step = &RemoveMarkStep{}
