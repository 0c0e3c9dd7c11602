package transform

import (
	"fmt"

	"github.com/cozy/docshape/model"
)

// ReplaceStep replaces a part of the document with a slice of new content.
type ReplaceStep struct {
	From      int
	To        int
	Slice     *model.Slice
	Structure bool
}

// NewReplaceStep is the constructor of ReplaceStep.
//
// The given slice should fit the 'gap' between from and to: the depths must
// line up, and the surrounding nodes must be able to be joined with the open
// sides of the slice. When structure is true, the step will fail if the
// content between from and to is not just a sequence of closing and then
// opening tokens (this is to guard against rebased replace steps overwriting
// something they weren't supposed to).
func NewReplaceStep(from, to int, slice *model.Slice, structure ...bool) *ReplaceStep {
	if slice == nil {
		slice = model.EmptySlice
	}
	return &ReplaceStep{From: from, To: to, Slice: slice, Structure: len(structure) > 0 && structure[0]}
}

// Apply is a method of the Step interface.
func (s *ReplaceStep) Apply(doc *model.Node) StepResult {
	if s.Structure && contentBetween(doc, s.From, s.To) {
		return Fail("Structure replace would overwrite content")
	}
	return FromReplace(doc, s.From, s.To, s.Slice)
}

// GetMap is a method of the Step interface.
func (s *ReplaceStep) GetMap() *StepMap {
	return NewStepMap([]int{s.From, s.To - s.From, s.Slice.Size()})
}

// Invert is a method of the Step interface. It panics when doc doesn't
// contain the replaced range.
func (s *ReplaceStep) Invert(doc *model.Node) Step {
	return NewReplaceStep(s.From, s.From+s.Slice.Size(), mustSlice(doc, s.From, s.To))
}

// Map is a method of the Step interface.
func (s *ReplaceStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if from.DeletedAcross() && to.DeletedAcross() {
		return nil
	}
	return NewReplaceStep(from.Pos, max(from.Pos, to.Pos), s.Slice, s.Structure)
}

// Merge is a method of the Step interface. Adjacent replacements, like
// consecutive typing or backspacing, merge into one step.
func (s *ReplaceStep) Merge(other Step) (Step, bool) {
	repl, ok := other.(*ReplaceStep)
	if !ok || repl.Structure || s.Structure {
		return nil, false
	}
	empty := s.Slice.Size()+repl.Slice.Size() == 0
	switch {
	case s.From+s.Slice.Size() == repl.From && s.Slice.OpenEnd == 0 && repl.Slice.OpenStart == 0:
		slice := model.EmptySlice
		if !empty {
			slice = model.NewSlice(s.Slice.Content.Append(repl.Slice.Content), s.Slice.OpenStart, repl.Slice.OpenEnd)
		}
		return NewReplaceStep(s.From, s.To+(repl.To-repl.From), slice), true
	case repl.To == s.From && s.Slice.OpenStart == 0 && repl.Slice.OpenEnd == 0:
		slice := model.EmptySlice
		if !empty {
			slice = model.NewSlice(repl.Slice.Content.Append(s.Slice.Content), repl.Slice.OpenStart, s.Slice.OpenEnd)
		}
		return NewReplaceStep(repl.From, s.To, slice), true
	}
	return nil, false
}

// ToJSON is a method of the Step interface.
func (s *ReplaceStep) ToJSON() map[string]interface{} {
	obj := map[string]interface{}{
		"stepType": "replace",
		"from":     s.From,
		"to":       s.To,
	}
	if slice := s.Slice.ToJSON(); slice != nil {
		obj["slice"] = slice
	}
	if s.Structure {
		obj["structure"] = true
	}
	return obj
}

type replacePayload struct {
	From      *int        `mapstructure:"from"`
	To        *int        `mapstructure:"to"`
	Slice     interface{} `mapstructure:"slice"`
	Structure bool        `mapstructure:"structure"`
}

// ReplaceStepFromJSON builds a ReplaceStep from a JSON representation.
func ReplaceStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	var p replacePayload
	if err := decodePayload("ReplaceStep", obj, &p); err != nil {
		return nil, err
	}
	if p.From == nil || p.To == nil {
		return nil, invalidInput("ReplaceStep")
	}
	slice, err := model.SliceFromJSON(schema, p.Slice)
	if err != nil {
		return nil, err
	}
	return NewReplaceStep(*p.From, *p.To, slice, p.Structure), nil
}

var _ Step = &ReplaceStep{}

// ReplaceAroundStep replaces a part of the document with a slice of content,
// but preserves a range of the replaced content by moving it into the slice.
type ReplaceAroundStep struct {
	From      int
	To        int
	GapFrom   int
	GapTo     int
	Slice     *model.Slice
	Insert    int
	Structure bool
}

// NewReplaceAroundStep creates a replace-around step with the given range and
// gap. insert should be the point in the slice into which the content of the
// gap should be moved. structure has the same meaning as it has in the
// ReplaceStep type.
func NewReplaceAroundStep(from, to, gapFrom, gapTo int, slice *model.Slice, insert int, structure ...bool) *ReplaceAroundStep {
	if slice == nil {
		slice = model.EmptySlice
	}
	return &ReplaceAroundStep{
		From:      from,
		To:        to,
		GapFrom:   gapFrom,
		GapTo:     gapTo,
		Slice:     slice,
		Insert:    insert,
		Structure: len(structure) > 0 && structure[0],
	}
}

// Apply is a method of the Step interface.
func (s *ReplaceAroundStep) Apply(doc *model.Node) StepResult {
	if s.Structure && (contentBetween(doc, s.From, s.GapFrom) || contentBetween(doc, s.GapTo, s.To)) {
		return Fail("Structure gap-replace would overwrite content")
	}
	gap, err := doc.Slice(s.GapFrom, s.GapTo)
	if err != nil {
		return failWith(err)
	}
	if gap.OpenStart != 0 || gap.OpenEnd != 0 {
		return Fail("Gap is not a flat range")
	}
	inserted := s.Slice.InsertAt(s.Insert, gap.Content)
	if inserted == nil {
		return Fail("Content does not fit in gap")
	}
	return FromReplace(doc, s.From, s.To, inserted)
}

// GetMap is a method of the Step interface.
func (s *ReplaceAroundStep) GetMap() *StepMap {
	return NewStepMap([]int{
		s.From, s.GapFrom - s.From, s.Insert,
		s.GapTo, s.To - s.GapTo, s.Slice.Size() - s.Insert,
	})
}

// Invert is a method of the Step interface. It panics when doc doesn't
// contain the replaced range.
func (s *ReplaceAroundStep) Invert(doc *model.Node) Step {
	gap := s.GapTo - s.GapFrom
	removed, err := mustSlice(doc, s.From, s.To).RemoveBetween(s.GapFrom-s.From, s.GapTo-s.From)
	if err != nil {
		panic(fmt.Sprintf("transform: cannot invert %s: %v", stepName(s), err))
	}
	return NewReplaceAroundStep(s.From, s.From+s.Slice.Size()+gap,
		s.From+s.Insert, s.From+s.Insert+gap,
		removed, s.GapFrom-s.From, s.Structure)
}

// Map is a method of the Step interface.
func (s *ReplaceAroundStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	gapFrom := from.Pos
	if s.From != s.GapFrom {
		gapFrom = mapping.Map(s.GapFrom, -1)
	}
	gapTo := to.Pos
	if s.To != s.GapTo {
		gapTo = mapping.Map(s.GapTo, 1)
	}
	if (from.DeletedAcross() && to.DeletedAcross()) || gapFrom < from.Pos || gapTo > to.Pos {
		return nil
	}
	return NewReplaceAroundStep(from.Pos, to.Pos, gapFrom, gapTo, s.Slice, s.Insert, s.Structure)
}

// Merge is a method of the Step interface.
func (s *ReplaceAroundStep) Merge(other Step) (Step, bool) {
	return nil, false
}

// ToJSON is a method of the Step interface.
func (s *ReplaceAroundStep) ToJSON() map[string]interface{} {
	obj := map[string]interface{}{
		"stepType": "replaceAround",
		"from":     s.From,
		"to":       s.To,
		"gapFrom":  s.GapFrom,
		"gapTo":    s.GapTo,
		"insert":   s.Insert,
	}
	if slice := s.Slice.ToJSON(); slice != nil {
		obj["slice"] = slice
	}
	if s.Structure {
		obj["structure"] = true
	}
	return obj
}

type replaceAroundPayload struct {
	From      *int        `mapstructure:"from"`
	To        *int        `mapstructure:"to"`
	GapFrom   *int        `mapstructure:"gapFrom"`
	GapTo     *int        `mapstructure:"gapTo"`
	Insert    *int        `mapstructure:"insert"`
	Slice     interface{} `mapstructure:"slice"`
	Structure bool        `mapstructure:"structure"`
}

// ReplaceAroundStepFromJSON builds a ReplaceAroundStep from a JSON
// representation.
func ReplaceAroundStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	var p replaceAroundPayload
	if err := decodePayload("ReplaceAroundStep", obj, &p); err != nil {
		return nil, err
	}
	if p.From == nil || p.To == nil || p.GapFrom == nil || p.GapTo == nil || p.Insert == nil {
		return nil, invalidInput("ReplaceAroundStep")
	}
	slice, err := model.SliceFromJSON(schema, p.Slice)
	if err != nil {
		return nil, err
	}
	return NewReplaceAroundStep(*p.From, *p.To, *p.GapFrom, *p.GapTo, slice, *p.Insert, p.Structure), nil
}

var _ Step = &ReplaceAroundStep{}

// contentBetween reports whether the range between from and to contains
// anything besides closing and opening tokens.
func contentBetween(doc *model.Node, from, to int) bool {
	rFrom, err := doc.Resolve(from)
	if err != nil {
		return true
	}
	dist := to - from
	depth := rFrom.Depth
	for dist > 0 && depth > 0 && rFrom.IndexAfter(depth) == rFrom.Node(depth).ChildCount() {
		depth--
		dist--
	}
	if dist > 0 {
		next := rFrom.Node(depth).MaybeChild(rFrom.IndexAfter(depth))
		for dist > 0 {
			if next == nil || next.IsLeaf() {
				return true
			}
			next = next.FirstChild()
			dist--
		}
	}
	return false
}

func mustSlice(doc *model.Node, from, to int) *model.Slice {
	slice, err := doc.Slice(from, to)
	if err != nil {
		panic(fmt.Sprintf("transform: cannot invert step over %d-%d: %v", from, to, err))
	}
	return slice
}

func stepName(s Step) string {
	if tag, ok := s.ToJSON()["stepType"].(string); ok {
		return tag
	}
	return fmt.Sprintf("%T", s)
}
