package model

// replace splices slice in between from and to, which must be positions in
// the same document.
func replace(from, to *ResolvedPos, slice *Slice) (*Node, error) {
	if slice.OpenStart > from.Depth {
		return nil, NewReplaceError("inserted content deeper than insertion position")
	}
	if from.Depth-slice.OpenStart != to.Depth-slice.OpenEnd {
		return nil, NewReplaceError("inconsistent open depths")
	}
	return replaceOuter(from, to, slice, 0)
}

func replaceOuter(from, to *ResolvedPos, slice *Slice, depth int) (*Node, error) {
	index := from.Index(depth)
	node := from.Node(depth)
	switch {
	case index == to.Index(depth) && depth < from.Depth-slice.OpenStart:
		inner, err := replaceOuter(from, to, slice, depth+1)
		if err != nil {
			return nil, err
		}
		return node.Copy(node.Content.ReplaceChild(index, inner)), nil
	case slice.Content.Size == 0:
		content, err := replaceTwoWay(from, to, depth)
		if err != nil {
			return nil, err
		}
		return closeNode(node, content)
	case slice.OpenStart == 0 && slice.OpenEnd == 0 && from.Depth == depth && to.Depth == depth:
		parent := from.Parent()
		content := parent.Content
		return closeNode(parent, content.cut(0, from.ParentOffset).
			Append(slice.Content).
			Append(content.cut(to.ParentOffset, content.Size)))
	default:
		start, end, err := prepareSliceForReplace(slice, from)
		if err != nil {
			return nil, err
		}
		content, err := replaceThreeWay(from, start, end, to, depth)
		if err != nil {
			return nil, err
		}
		return closeNode(node, content)
	}
}

func checkJoin(main, sub *Node) error {
	if !sub.Type.compatibleContent(main.Type) {
		return newError(ErrJoin, "cannot join %s onto %s", sub.Type.Name, main.Type.Name)
	}
	return nil
}

func joinable(before, after *ResolvedPos, depth int) (*Node, error) {
	node := before.Node(depth)
	if err := checkJoin(node, after.Node(depth)); err != nil {
		return nil, err
	}
	return node, nil
}

// children collects the content of a node rebuilt by the replace algorithm.
// Text nodes with the same markup are joined as they are added.
type children []*Node

func (c *children) add(child *Node) {
	last := len(*c) - 1
	if last >= 0 && child.IsText() && child.SameMarkup((*c)[last]) {
		(*c)[last] = child.WithText((*c)[last].text + child.text)
		return
	}
	*c = append(*c, child)
}

// addRange adds the children of the node at depth between start and end.
// A nil start means the start of the node, a nil end its end.
func (c *children) addRange(start, end *ResolvedPos, depth int) {
	ref := end
	if ref == nil {
		ref = start
	}
	node := ref.Node(depth)
	startIndex, endIndex := 0, node.ChildCount()
	if end != nil {
		endIndex = end.Index(depth)
	}
	if start != nil {
		startIndex = start.Index(depth)
		if start.Depth > depth {
			startIndex++
		} else if start.TextOffset() > 0 {
			c.add(start.NodeAfter())
			startIndex++
		}
	}
	for i := startIndex; i < endIndex; i++ {
		c.add(node.Content.Content[i])
	}
	if end != nil && end.Depth == depth && end.TextOffset() > 0 {
		c.add(end.NodeBefore())
	}
}

func (c children) fragment() *Fragment {
	return NewFragment(c)
}

// closeNode gives node the new content, after checking it against the
// node's content expression.
func closeNode(node *Node, content *Fragment) (*Node, error) {
	if err := node.Type.CheckContent(content); err != nil {
		return nil, newError(ErrContent, "invalid content for node %s", node.Type.Name)
	}
	return node.Copy(content), nil
}

func replaceThreeWay(from, start, end, to *ResolvedPos, depth int) (*Fragment, error) {
	var openStart, openEnd *Node
	var err error
	if from.Depth > depth {
		if openStart, err = joinable(from, start, depth+1); err != nil {
			return nil, err
		}
	}
	if to.Depth > depth {
		if openEnd, err = joinable(end, to, depth+1); err != nil {
			return nil, err
		}
	}

	var content children
	content.addRange(nil, from, depth)
	if openStart != nil && openEnd != nil && start.Index(depth) == end.Index(depth) {
		if err := checkJoin(openStart, openEnd); err != nil {
			return nil, err
		}
		inner, err := replaceThreeWay(from, start, end, to, depth+1)
		if err != nil {
			return nil, err
		}
		closed, err := closeNode(openStart, inner)
		if err != nil {
			return nil, err
		}
		content.add(closed)
	} else {
		if openStart != nil {
			closed, err := closeTwoWay(openStart, from, start, depth+1)
			if err != nil {
				return nil, err
			}
			content.add(closed)
		}
		content.addRange(start, end, depth)
		if openEnd != nil {
			closed, err := closeTwoWay(openEnd, end, to, depth+1)
			if err != nil {
				return nil, err
			}
			content.add(closed)
		}
	}
	content.addRange(to, nil, depth)
	return content.fragment(), nil
}

func replaceTwoWay(from, to *ResolvedPos, depth int) (*Fragment, error) {
	var content children
	content.addRange(nil, from, depth)
	if from.Depth > depth {
		node, err := joinable(from, to, depth+1)
		if err != nil {
			return nil, err
		}
		closed, err := closeTwoWay(node, from, to, depth+1)
		if err != nil {
			return nil, err
		}
		content.add(closed)
	}
	content.addRange(to, nil, depth)
	return content.fragment(), nil
}

func closeTwoWay(node *Node, from, to *ResolvedPos, depth int) (*Node, error) {
	inner, err := replaceTwoWay(from, to, depth)
	if err != nil {
		return nil, err
	}
	return closeNode(node, inner)
}

// prepareSliceForReplace wraps the slice content in copies of the ancestors
// of along, so that its open sides line up with along's depth, and returns
// the positions of the slice's start and end in that tree.
func prepareSliceForReplace(slice *Slice, along *ResolvedPos) (start, end *ResolvedPos, err error) {
	extra := along.Depth - slice.OpenStart
	node := along.Node(extra).Copy(slice.Content)
	for i := extra - 1; i >= 0; i-- {
		node = along.Node(i).Copy(FragmentFrom(node))
	}
	if start, err = node.resolveNoCache(slice.OpenStart + extra); err != nil {
		return nil, nil, err
	}
	if end, err = node.resolveNoCache(node.Content.Size - slice.OpenEnd - extra); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
