package transform

import (
	"github.com/cozy/docshape/model"
)

// CanSplit checks whether splitting at the given position is allowed.
func CanSplit(doc *model.Node, pos int, depth int, typesAfter ...*NodeTypeWithAttrs) bool {
	rPos, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	base := rPos.Depth - depth
	typeAt := func(i int) *NodeTypeWithAttrs {
		if i >= 0 && i < len(typesAfter) {
			return typesAfter[i]
		}
		return nil
	}

	parent := rPos.Parent()
	innerType := parent.Type
	if inner := typeAt(len(typesAfter) - 1); inner != nil {
		innerType = inner.Type
	}
	if base < 0 || parent.Type.Spec.Isolating ||
		!parent.CanReplace(rPos.Index(), parent.ChildCount(), nil) ||
		!innerType.ValidContent(parent.Content.CutByIndex(rPos.Index(), parent.ChildCount())) {
		return false
	}
	for d, i := rPos.Depth-1, depth-2; d > base; d, i = d-1, i-1 {
		node, index := rPos.Node(d), rPos.Index(d)
		if node.Type.Spec.Isolating {
			return false
		}
		rest := node.Content.CutByIndex(index, node.ChildCount())
		if override := typeAt(i + 1); override != nil {
			child, err := override.Type.Create(override.Attrs, nil, nil)
			if err != nil {
				return false
			}
			rest = rest.ReplaceChild(0, child)
		}
		afterType := node.Type
		if after := typeAt(i); after != nil {
			afterType = after.Type
		}
		if !node.CanReplace(index+1, node.ChildCount(), nil) || !afterType.ValidContent(rest) {
			return false
		}
	}
	index := rPos.IndexAfter(base)
	baseType := rPos.Node(base + 1).Type
	if first := typeAt(0); first != nil {
		baseType = first.Type
	}
	return rPos.Node(base).CanReplaceWith(index, index, baseType, nil)
}

// CanJoin tests whether the blocks before and after a given position can be
// joined.
func CanJoin(doc *model.Node, pos int) bool {
	rPos, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	index := rPos.Index()
	return joinable(rPos.NodeBefore(), rPos.NodeAfter()) && rPos.Parent().CanReplace(index, index+1, nil)
}

func joinable(a, b *model.Node) bool {
	return a != nil && b != nil && !a.IsLeaf() && a.CanAppend(b)
}

// JoinPoint finds an ancestor of the given position that can be joined to
// the block before it (or after it if dir is positive). Returns the joinable
// point and true, if any.
func JoinPoint(doc *model.Node, pos int, dir ...int) (int, bool) {
	direction := -1
	if len(dir) > 0 {
		direction = dir[0]
	}
	rPos, err := doc.Resolve(pos)
	if err != nil {
		return 0, false
	}
	for d := rPos.Depth; ; d-- {
		var before, after *model.Node
		index := rPos.Index(d)
		switch {
		case d == rPos.Depth:
			before, after = rPos.NodeBefore(), rPos.NodeAfter()
		case direction > 0:
			before = rPos.Node(d + 1)
			index++
			after = rPos.Node(d).MaybeChild(index)
		default:
			before = rPos.Node(d).MaybeChild(index - 1)
			after = rPos.Node(d + 1)
		}
		if before != nil && !before.IsTextblock() && joinable(before, after) &&
			rPos.Node(d).CanReplace(index, index+1, nil) {
			return pos, true
		}
		if d == 0 {
			return 0, false
		}
		if direction < 0 {
			pos, _ = rPos.Before(d)
		} else {
			pos, _ = rPos.After(d)
		}
	}
}
