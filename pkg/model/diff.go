package model

// FindDiffStart returns the first position at which f and other differ,
// or false when they are equal. pos is the position of the fragment start.
func (f Fragment) FindDiffStart(other Fragment, pos int) (int, bool) {
	for i := 0; ; i++ {
		if i == f.ChildCount() || i == other.ChildCount() {
			if f.ChildCount() == other.ChildCount() {
				return 0, false
			}
			return pos, true
		}
		childA, childB := f.Child(i), other.Child(i)
		if childA == childB {
			pos += childA.NodeSize()
			continue
		}
		if !childA.SameMarkup(childB) {
			return pos, true
		}
		if childA.IsText() && childA.text != childB.text {
			a, b := []rune(childA.text), []rune(childB.text)
			for j := 0; j < len(a) && j < len(b) && a[j] == b[j]; j++ {
				pos++
			}
			return pos, true
		}
		if childA.content.Size() > 0 || childB.content.Size() > 0 {
			if inner, ok := childA.content.FindDiffStart(childB.content, pos+1); ok {
				return inner, true
			}
		}
		pos += childA.NodeSize()
	}
}

// DiffEnd holds the end of a difference in both compared fragments.
type DiffEnd struct {
	A int
	B int
}

// FindDiffEnd returns the position from the end at which f and other
// start to differ, expressed in both fragments' coordinates, or false
// when they are equal. posA and posB are the fragments' end positions.
func (f Fragment) FindDiffEnd(other Fragment, posA, posB int) (DiffEnd, bool) {
	for iA, iB := f.ChildCount(), other.ChildCount(); ; {
		if iA == 0 || iB == 0 {
			if iA == iB {
				return DiffEnd{}, false
			}
			return DiffEnd{A: posA, B: posB}, true
		}
		iA--
		iB--
		childA, childB := f.Child(iA), other.Child(iB)
		size := childA.NodeSize()
		if childA == childB {
			posA -= size
			posB -= size
			continue
		}
		if !childA.SameMarkup(childB) {
			return DiffEnd{A: posA, B: posB}, true
		}
		if childA.IsText() && childA.text != childB.text {
			a, b := []rune(childA.text), []rune(childB.text)
			same, minSize := 0, min(len(a), len(b))
			for same < minSize && a[len(a)-same-1] == b[len(b)-same-1] {
				same++
				posA--
				posB--
			}
			return DiffEnd{A: posA, B: posB}, true
		}
		if childA.content.Size() > 0 || childB.content.Size() > 0 {
			if inner, ok := childA.content.FindDiffEnd(childB.content, posA-1, posB-1); ok {
				return inner, true
			}
		}
		posA -= size
		posB -= size
	}
}
