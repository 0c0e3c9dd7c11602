package transform

import (
	"github.com/cozy/docshape/model"
)

// SetAttrsStep changes the attributes of the node at a given position. The
// given attributes are merged over the node's current ones.
type SetAttrsStep struct {
	Pos   int
	Attrs map[string]interface{}
}

// NewSetAttrsStep is a constructor for SetAttrsStep.
func NewSetAttrsStep(pos int, attrs map[string]interface{}) *SetAttrsStep {
	return &SetAttrsStep{Pos: pos, Attrs: attrs}
}

// Apply is a method of the Step interface.
func (s *SetAttrsStep) Apply(doc *model.Node) StepResult {
	target := doc.NodeAt(s.Pos)
	if target == nil {
		return Fail("No node at given position")
	}
	attrs := make(map[string]interface{}, len(target.Attrs)+len(s.Attrs))
	for k, v := range target.Attrs {
		attrs[k] = v
	}
	for k, v := range s.Attrs {
		attrs[k] = v
	}
	return replaceNodeMarkup(doc, s.Pos, target, attrs, target.Marks)
}

// GetMap is a method of the Step interface.
func (s *SetAttrsStep) GetMap() *StepMap {
	return EmptyStepMap
}

// Invert is a method of the Step interface. The inverse restores the
// attributes the node had in doc.
func (s *SetAttrsStep) Invert(doc *model.Node) Step {
	attrs := map[string]interface{}{}
	if target := doc.NodeAt(s.Pos); target != nil {
		for k, v := range target.Attrs {
			attrs[k] = v
		}
	}
	return NewSetAttrsStep(s.Pos, attrs)
}

// Map is a method of the Step interface.
func (s *SetAttrsStep) Map(mapping Mappable) Step {
	result := mapping.MapResult(s.Pos, 1)
	if result.DeletedAfter() {
		return nil
	}
	return NewSetAttrsStep(result.Pos, s.Attrs)
}

// Merge is a method of the Step interface.
func (s *SetAttrsStep) Merge(other Step) (Step, bool) {
	return nil, false
}

// ToJSON is a method of the Step interface.
func (s *SetAttrsStep) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"stepType": "setAttrs",
		"pos":      s.Pos,
		"attrs":    s.Attrs,
	}
}

type setAttrsPayload struct {
	Pos   *int                   `mapstructure:"pos"`
	Attrs map[string]interface{} `mapstructure:"attrs"`
}

// SetAttrsStepFromJSON builds a SetAttrsStep from a JSON representation.
func SetAttrsStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	var p setAttrsPayload
	if err := decodePayload("SetAttrsStep", obj, &p); err != nil {
		return nil, err
	}
	if p.Pos == nil || p.Attrs == nil {
		return nil, invalidInput("SetAttrsStep")
	}
	return NewSetAttrsStep(*p.Pos, p.Attrs), nil
}

var _ Step = &SetAttrsStep{}
