package model

// FindDiffStart finds the first position at which this fragment and another
// fragment differ. ok is false when they are the same. pos is added to the
// returned position.
func (f *Fragment) FindDiffStart(other *Fragment, pos ...int) (int, bool) {
	start := 0
	if len(pos) > 0 {
		start = pos[0]
	}
	return findDiffStart(f, other, start)
}

// FindDiffEnd finds the first position, searching from the end, at which
// this fragment and the given fragment differ. It returns the position in
// both fragments, which differ when their sizes differ. The end positions
// default to the sizes of the fragments.
func (f *Fragment) FindDiffEnd(other *Fragment, pos ...int) (a, b int, ok bool) {
	posA, posB := f.Size, other.Size
	if len(pos) > 0 {
		posA = pos[0]
	}
	if len(pos) > 1 {
		posB = pos[1]
	}
	return findDiffEnd(f, other, posA, posB)
}

func findDiffStart(a, b *Fragment, pos int) (int, bool) {
	for i := 0; ; i++ {
		if i == a.ChildCount() || i == b.ChildCount() {
			return pos, a.ChildCount() != b.ChildCount()
		}

		childA, childB := a.Content[i], b.Content[i]
		if childA == childB {
			pos += childA.NodeSize()
			continue
		}
		if !childA.SameMarkup(childB) {
			return pos, true
		}
		if childA.IsText() && childA.text != childB.text {
			unitsA, unitsB := textUnits(childA.text), textUnits(childB.text)
			for j := 0; j < len(unitsA) && j < len(unitsB) && unitsA[j] == unitsB[j]; j++ {
				pos++
			}
			return pos, true
		}
		if childA.Content.Size > 0 || childB.Content.Size > 0 {
			if inner, ok := findDiffStart(childA.Content, childB.Content, pos+1); ok {
				return inner, true
			}
		}
		pos += childA.NodeSize()
	}
}

func findDiffEnd(a, b *Fragment, posA, posB int) (int, int, bool) {
	ia, ib := a.ChildCount(), b.ChildCount()
	for {
		if ia == 0 || ib == 0 {
			return posA, posB, ia != ib
		}

		ia--
		ib--
		childA, childB := a.Content[ia], b.Content[ib]
		size := childA.NodeSize()
		if childA == childB {
			posA -= size
			posB -= size
			continue
		}
		if !childA.SameMarkup(childB) {
			return posA, posB, true
		}
		if childA.IsText() && childA.text != childB.text {
			unitsA, unitsB := textUnits(childA.text), textUnits(childB.text)
			la, lb := len(unitsA), len(unitsB)
			for same := 0; same < min(la, lb) && unitsA[la-same-1] == unitsB[lb-same-1]; same++ {
				posA--
				posB--
			}
			return posA, posB, true
		}
		if childA.Content.Size > 0 || childB.Content.Size > 0 {
			if innerA, innerB, ok := findDiffEnd(childA.Content, childB.Content, posA-1, posB-1); ok {
				return innerA, innerB, true
			}
		}
		posA -= size
		posB -= size
	}
}
