package transform

import (
	"github.com/cozy/docshape/model"
)

// replaceNodeMarkup replaces the node at pos with a copy carrying the given
// attributes and marks, keeping its content.
func replaceNodeMarkup(doc *model.Node, pos int, node *model.Node, attrs map[string]interface{}, marks []*model.Mark) StepResult {
	updated, err := node.Type.Create(attrs, nil, marks)
	if err != nil {
		return failWith(err)
	}
	openEnd := 1
	if node.IsLeaf() {
		openEnd = 0
	}
	return FromReplace(doc, pos, pos+1, model.NewSlice(model.FragmentFrom(updated), 0, openEnd))
}

// AddNodeMarkStep adds a mark to a specific node.
type AddNodeMarkStep struct {
	Pos  int
	Mark *model.Mark
}

// NewAddNodeMarkStep creates a node mark step for the node at pos.
func NewAddNodeMarkStep(pos int, mark *model.Mark) *AddNodeMarkStep {
	return &AddNodeMarkStep{Pos: pos, Mark: mark}
}

// Apply is a method of the Step interface.
func (s *AddNodeMarkStep) Apply(doc *model.Node) StepResult {
	node := doc.NodeAt(s.Pos)
	if node == nil {
		return Fail("No node at mark step's position")
	}
	return replaceNodeMarkup(doc, s.Pos, node, node.Attrs, s.Mark.AddToSet(node.Marks))
}

// GetMap is a method of the Step interface.
func (s *AddNodeMarkStep) GetMap() *StepMap {
	return EmptyStepMap
}

// Invert is a method of the Step interface. When the added mark replaced an
// exclusive one, the inverse puts that mark back.
func (s *AddNodeMarkStep) Invert(doc *model.Node) Step {
	if node := doc.NodeAt(s.Pos); node != nil {
		newSet := s.Mark.AddToSet(node.Marks)
		if len(newSet) == len(node.Marks) {
			for _, m := range node.Marks {
				if !m.IsInSet(newSet) {
					return NewAddNodeMarkStep(s.Pos, m)
				}
			}
			return NewAddNodeMarkStep(s.Pos, s.Mark)
		}
	}
	return NewRemoveNodeMarkStep(s.Pos, s.Mark)
}

// Map is a method of the Step interface.
func (s *AddNodeMarkStep) Map(mapping Mappable) Step {
	pos := mapping.MapResult(s.Pos, 1)
	if pos.DeletedAfter() {
		return nil
	}
	return NewAddNodeMarkStep(pos.Pos, s.Mark)
}

// Merge is a method of the Step interface.
func (s *AddNodeMarkStep) Merge(other Step) (Step, bool) {
	return nil, false
}

// ToJSON is a method of the Step interface.
func (s *AddNodeMarkStep) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"stepType": "addNodeMark",
		"pos":      s.Pos,
		"mark":     s.Mark.ToJSON(),
	}
}

type nodeMarkPayload struct {
	Pos  *int        `mapstructure:"pos"`
	Mark interface{} `mapstructure:"mark"`
}

func nodeMarkFromJSON(name string, schema *model.Schema, obj map[string]interface{}) (int, *model.Mark, error) {
	var p nodeMarkPayload
	if err := decodePayload(name, obj, &p); err != nil {
		return 0, nil, err
	}
	if p.Pos == nil || p.Mark == nil {
		return 0, nil, invalidInput(name)
	}
	mark, err := schema.MarkFromJSON(p.Mark)
	if err != nil {
		return 0, nil, err
	}
	return *p.Pos, mark, nil
}

// AddNodeMarkStepFromJSON builds an AddNodeMarkStep from a JSON
// representation.
func AddNodeMarkStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	pos, mark, err := nodeMarkFromJSON("AddNodeMarkStep", schema, obj)
	if err != nil {
		return nil, err
	}
	return NewAddNodeMarkStep(pos, mark), nil
}

var _ Step = &AddNodeMarkStep{}

// RemoveNodeMarkStep removes a mark from a specific node.
type RemoveNodeMarkStep struct {
	Pos  int
	Mark *model.Mark
}

// NewRemoveNodeMarkStep creates a mark-removing step for the node at pos.
func NewRemoveNodeMarkStep(pos int, mark *model.Mark) *RemoveNodeMarkStep {
	return &RemoveNodeMarkStep{Pos: pos, Mark: mark}
}

// Apply is a method of the Step interface.
func (s *RemoveNodeMarkStep) Apply(doc *model.Node) StepResult {
	node := doc.NodeAt(s.Pos)
	if node == nil {
		return Fail("No node at mark step's position")
	}
	return replaceNodeMarkup(doc, s.Pos, node, node.Attrs, s.Mark.RemoveFromSet(node.Marks))
}

// GetMap is a method of the Step interface.
func (s *RemoveNodeMarkStep) GetMap() *StepMap {
	return EmptyStepMap
}

// Invert is a method of the Step interface.
func (s *RemoveNodeMarkStep) Invert(doc *model.Node) Step {
	node := doc.NodeAt(s.Pos)
	if node == nil || !s.Mark.IsInSet(node.Marks) {
		return s
	}
	return NewAddNodeMarkStep(s.Pos, s.Mark)
}

// Map is a method of the Step interface.
func (s *RemoveNodeMarkStep) Map(mapping Mappable) Step {
	pos := mapping.MapResult(s.Pos, 1)
	if pos.DeletedAfter() {
		return nil
	}
	return NewRemoveNodeMarkStep(pos.Pos, s.Mark)
}

// Merge is a method of the Step interface.
func (s *RemoveNodeMarkStep) Merge(other Step) (Step, bool) {
	return nil, false
}

// ToJSON is a method of the Step interface.
func (s *RemoveNodeMarkStep) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"stepType": "removeNodeMark",
		"pos":      s.Pos,
		"mark":     s.Mark.ToJSON(),
	}
}

// RemoveNodeMarkStepFromJSON builds a RemoveNodeMarkStep from a JSON
// representation.
func RemoveNodeMarkStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	pos, mark, err := nodeMarkFromJSON("RemoveNodeMarkStep", schema, obj)
	if err != nil {
		return nil, err
	}
	return NewRemoveNodeMarkStep(pos, mark), nil
}

var _ Step = &RemoveNodeMarkStep{}
