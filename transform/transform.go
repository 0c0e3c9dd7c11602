package transform

import (
	"fmt"

	"github.com/cozy/docshape/model"
	"go.uber.org/zap"
)

// Transform is an abstraction for building up and tracking an array of
// steps representing a document transformation.
//
// Most transforming methods return an error when the step they build can't
// be applied. A Transform must not be used by several goroutines at once.
type Transform struct {
	// The current document (the result of applying the steps in the
	// transform).
	Doc *model.Node
	// The steps in this transform.
	Steps []Step
	// The documents before each of the steps.
	Docs []*model.Node
	// A mapping with the maps for each of the steps in this transform.
	Mapping *Mapping

	logger *zap.Logger
}

// Option configures a Transform.
type Option func(*Transform)

// WithLogger makes the transform log the steps it applies and the ones that
// fail, at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(tr *Transform) {
		if logger != nil {
			tr.logger = logger
		}
	}
}

// New creates a transform that starts with the given document.
func New(doc *model.Node, opts ...Option) *Transform {
	tr := &Transform{
		Doc:     doc,
		Mapping: NewMapping(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// Before returns the starting document.
func (tr *Transform) Before() *model.Node {
	if len(tr.Docs) > 0 {
		return tr.Docs[0]
	}
	return tr.Doc
}

// DocChanged is true when the document has been changed (when there are any
// steps).
func (tr *Transform) DocChanged() bool {
	return len(tr.Steps) > 0
}

// Step applies a new step in this transform, saving the result. Returns an
// error matching ErrStepFailed when the step fails.
func (tr *Transform) Step(step Step) error {
	result := tr.MaybeStep(step)
	if result.Failed != "" {
		return result.Err()
	}
	return nil
}

// MaybeStep tries to apply a step in this transform, ignoring it if it
// fails. Returns the step result.
func (tr *Transform) MaybeStep(step Step) StepResult {
	result := step.Apply(tr.Doc)
	if result.Failed != "" {
		tr.logger.Debug("step failed",
			zap.String("step", stepName(step)),
			zap.String("reason", result.Failed))
		return result
	}
	tr.addStep(step, result.Doc)
	return result
}

func (tr *Transform) addStep(step Step, doc *model.Node) {
	tr.Docs = append(tr.Docs, tr.Doc)
	tr.Steps = append(tr.Steps, step)
	tr.Mapping.AppendMap(step.GetMap())
	tr.Doc = doc
	tr.logger.Debug("step applied",
		zap.String("step", stepName(step)),
		zap.Int("steps", len(tr.Steps)),
		zap.Int("size", doc.Content.Size))
}

// Replace replaces the part of the document between from and to with the
// given slice. The slice must fit the range: no attempt is made to close or
// wrap it.
func (tr *Transform) Replace(from, to int, slice *model.Slice) error {
	if slice == nil {
		slice = model.EmptySlice
	}
	if from == to && slice.Size() == 0 {
		return nil
	}
	return tr.Step(NewReplaceStep(from, to, slice))
}

// ReplaceWith replaces the given range with the given nodes.
func (tr *Transform) ReplaceWith(from, to int, content ...*model.Node) error {
	return tr.Replace(from, to, model.NewSlice(model.FragmentFromArray(content), 0, 0))
}

// ReplaceWithFragment replaces the given range with a fragment.
func (tr *Transform) ReplaceWithFragment(from, to int, content *model.Fragment) error {
	return tr.Replace(from, to, model.NewSlice(content, 0, 0))
}

// Delete deletes the content between the given positions.
func (tr *Transform) Delete(from, to int) error {
	return tr.Replace(from, to, model.EmptySlice)
}

// Insert inserts the given content at the given position.
func (tr *Transform) Insert(pos int, content ...*model.Node) error {
	return tr.ReplaceWith(pos, pos, content...)
}

// AddMark adds the given mark to the inline content between from and to.
// Marks excluded by the new one are removed first.
func (tr *Transform) AddMark(from, to int, mark *model.Mark) error {
	var removed []*RemoveMarkStep
	var added []*AddMarkStep
	var removing *RemoveMarkStep
	var adding *AddMarkStep
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, parent *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		marks := node.Marks
		if mark.IsInSet(marks) || !parent.Type.AllowsMarkType(mark.Type) {
			return true
		}
		start, end := max(pos, from), min(pos+node.NodeSize(), to)
		newSet := mark.AddToSet(marks)
		for _, m := range marks {
			if m.IsInSet(newSet) {
				continue
			}
			if removing != nil && removing.To == start && removing.Mark.Eq(m) {
				removing.To = end
			} else {
				removing = NewRemoveMarkStep(start, end, m)
				removed = append(removed, removing)
			}
		}
		if adding != nil && adding.To == start {
			adding.To = end
		} else {
			adding = NewAddMarkStep(start, end, mark)
			added = append(added, adding)
		}
		return true
	})
	for _, s := range removed {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	for _, s := range added {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	return nil
}

// RemoveMark removes the given mark from the inline content between from
// and to. A nil mark removes all marks.
func (tr *Transform) RemoveMark(from, to int, mark *model.Mark) error {
	return tr.removeMarks(from, to, func(marks []*model.Mark) []*model.Mark {
		if mark == nil {
			return marks
		}
		if mark.IsInSet(marks) {
			return []*model.Mark{mark}
		}
		return nil
	})
}

// RemoveMarkType removes all marks of the given type from the inline content
// between from and to.
func (tr *Transform) RemoveMarkType(from, to int, typ *model.MarkType) error {
	return tr.removeMarks(from, to, func(marks []*model.Mark) []*model.Mark {
		var found []*model.Mark
		for m := typ.IsInSet(marks); m != nil; m = typ.IsInSet(marks) {
			found = append(found, m)
			marks = m.RemoveFromSet(marks)
		}
		return found
	})
}

func (tr *Transform) removeMarks(from, to int, toRemove func([]*model.Mark) []*model.Mark) error {
	type match struct {
		style    *model.Mark
		from, to int
		step     int
	}
	var matched []*match
	step := 0
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		step++
		end := min(pos+node.NodeSize(), to)
		for _, style := range toRemove(node.Marks) {
			var found *match
			for _, m := range matched {
				if m.step == step-1 && style.Eq(m.style) {
					found = m
				}
			}
			if found != nil {
				found.to = end
				found.step = step
			} else {
				matched = append(matched, &match{style: style, from: max(pos, from), to: end, step: step})
			}
		}
		return true
	})
	for _, m := range matched {
		if err := tr.Step(NewRemoveMarkStep(m.from, m.to, m.style)); err != nil {
			return err
		}
	}
	return nil
}

// AddNodeMark adds a mark to the node at position pos.
func (tr *Transform) AddNodeMark(pos int, mark *model.Mark) error {
	return tr.Step(NewAddNodeMarkStep(pos, mark))
}

// RemoveNodeMark removes a mark from the node at position pos.
func (tr *Transform) RemoveNodeMark(pos int, mark *model.Mark) error {
	return tr.Step(NewRemoveNodeMarkStep(pos, mark))
}

// SetNodeMarkup changes the type, attributes, and/or marks of the node at
// pos. When typ is nil, the existing node type is preserved. nil marks keep
// the node's marks.
func (tr *Transform) SetNodeMarkup(pos int, typ *model.NodeType, attrs map[string]interface{}, marks []*model.Mark) error {
	node := tr.Doc.NodeAt(pos)
	if node == nil {
		return fmt.Errorf("%w: no node at position %d", model.ErrRange, pos)
	}
	if typ == nil {
		typ = node.Type
	}
	if marks == nil {
		marks = node.Marks
	}
	newNode, err := typ.Create(attrs, nil, marks)
	if err != nil {
		return err
	}
	if node.IsLeaf() {
		return tr.ReplaceWith(pos, pos+node.NodeSize(), newNode)
	}
	if !typ.ValidContent(node.Content) {
		return fmt.Errorf("%w: invalid content for node type %s", model.ErrContent, typ.Name)
	}
	return tr.Step(NewReplaceAroundStep(pos, pos+node.NodeSize(), pos+1, pos+node.NodeSize()-1,
		model.NewSlice(model.FragmentFrom(newNode), 0, 0), 1, true))
}

// SetNodeAttribute sets a single attribute on the node at pos.
func (tr *Transform) SetNodeAttribute(pos int, attr string, value interface{}) error {
	return tr.Step(NewSetAttrsStep(pos, map[string]interface{}{attr: value}))
}

// Join joins the blocks around the given position. If depth is 2, their
// last and first siblings are also joined, and so on.
func (tr *Transform) Join(pos int, depth ...int) error {
	d := 1
	if len(depth) > 0 {
		d = depth[0]
	}
	return tr.Step(NewReplaceStep(pos-d, pos+d, model.EmptySlice, true))
}

// NodeTypeWithAttrs names a node type and the attributes to create it with.
type NodeTypeWithAttrs struct {
	Type  *model.NodeType
	Attrs map[string]interface{}
}

// Split splits the node at the given position, and optionally, if depth is
// greater than one, any number of nodes above that. By default, the parts
// split off will inherit the node type of the original node. This can be
// changed by passing typesAfter, an array of types and attributes to use
// after the split, outermost first. nil entries keep the original type.
func (tr *Transform) Split(pos int, depth int, typesAfter ...*NodeTypeWithAttrs) error {
	rPos, err := tr.Doc.Resolve(pos)
	if err != nil {
		return err
	}
	before, after := model.EmptyFragment, model.EmptyFragment
	for d, e, i := rPos.Depth, rPos.Depth-depth, depth-1; d > e; d, i = d-1, i-1 {
		before = model.FragmentFrom(rPos.Node(d).Copy(before))
		if i < len(typesAfter) && typesAfter[i] != nil {
			node, err := typesAfter[i].Type.Create(typesAfter[i].Attrs, after, nil)
			if err != nil {
				return err
			}
			after = model.FragmentFrom(node)
		} else {
			after = model.FragmentFrom(rPos.Node(d).Copy(after))
		}
	}
	return tr.Step(NewReplaceStep(pos, pos, model.NewSlice(before.Append(after), depth, depth), true))
}
