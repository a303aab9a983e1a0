package model

import (
	"strings"
)

// Fragment is an immutable sequence of sibling nodes.
type Fragment struct {
	nodes []*Node
	size  int
}

// NewFragment builds a fragment, joining adjacent text nodes with equal marks.
func NewFragment(nodes ...*Node) Fragment {
	var f Fragment
	for _, n := range nodes {
		if n == nil {
			continue
		}
		f.nodes = appendNode(f.nodes, n)
		f.size += n.NodeSize()
	}
	return f
}

func appendNode(target []*Node, n *Node) []*Node {
	last := len(target) - 1
	if last >= 0 && n.IsText() && target[last].IsText() && sameMarks(n.marks, target[last].marks) {
		joined := target[last].withText(target[last].text + n.text)
		out := make([]*Node, len(target))
		copy(out, target)
		out[last] = joined
		return out
	}
	return append(target, n)
}

func (f Fragment) Size() int { return f.size }

func (f Fragment) ChildCount() int { return len(f.nodes) }

func (f Fragment) Child(i int) *Node { return f.nodes[i] }

func (f Fragment) FirstChild() *Node {
	if len(f.nodes) == 0 {
		return nil
	}
	return f.nodes[0]
}

func (f Fragment) LastChild() *Node {
	if len(f.nodes) == 0 {
		return nil
	}
	return f.nodes[len(f.nodes)-1]
}

// Children returns a copy of the child list.
func (f Fragment) Children() []*Node {
	out := make([]*Node, len(f.nodes))
	copy(out, f.nodes)
	return out
}

// Cut returns the part of the fragment between from and to.
func (f Fragment) Cut(from, to int) Fragment {
	if from == 0 && to == f.size {
		return f
	}
	var result []*Node
	size := 0
	if to > from {
		for i, pos := 0, 0; pos < to; i++ {
			child := f.nodes[i]
			end := pos + child.NodeSize()
			if end > from {
				if pos < from || end > to {
					if child.IsText() {
						child = child.Cut(max(0, from-pos), min(child.textLen, to-pos))
					} else {
						child = child.Cut(max(0, from-pos-1), min(child.content.Size(), to-pos-1))
					}
				}
				result = append(result, child)
				size += child.NodeSize()
			}
			pos = end
		}
	}
	return Fragment{nodes: result, size: size}
}

// Append returns a fragment with other's nodes after f's.
func (f Fragment) Append(other Fragment) Fragment {
	if other.size == 0 && len(other.nodes) == 0 {
		return f
	}
	if f.size == 0 && len(f.nodes) == 0 {
		return other
	}
	nodes := make([]*Node, len(f.nodes), len(f.nodes)+len(other.nodes))
	copy(nodes, f.nodes)
	for _, n := range other.nodes {
		nodes = appendNode(nodes, n)
	}
	return Fragment{nodes: nodes, size: f.size + other.size}
}

// ReplaceChild returns a fragment with the child at index replaced by n.
func (f Fragment) ReplaceChild(index int, n *Node) Fragment {
	current := f.nodes[index]
	if current == n {
		return f
	}
	nodes := make([]*Node, len(f.nodes))
	copy(nodes, f.nodes)
	nodes[index] = n
	return Fragment{nodes: nodes, size: f.size + n.NodeSize() - current.NodeSize()}
}

// findIndex finds the child containing pos. A position at a child
// boundary belongs to the following child.
func (f Fragment) findIndex(pos int) (index, offset int) {
	if pos == 0 {
		return 0, 0
	}
	if pos == f.size {
		return len(f.nodes), f.size
	}
	if pos > f.size || pos < 0 {
		panic("position outside of fragment")
	}
	for i, cur := 0, 0; ; i++ {
		end := cur + f.nodes[i].NodeSize()
		if end >= pos {
			if end == pos {
				return i + 1, end
			}
			return i, cur
		}
		cur = end
	}
}

// Eq compares fragments structurally.
func (f Fragment) Eq(other Fragment) bool {
	if len(f.nodes) != len(other.nodes) {
		return false
	}
	for i := range f.nodes {
		if !f.nodes[i].Eq(other.nodes[i]) {
			return false
		}
	}
	return true
}

func (f Fragment) nodesBetween(from, to int, fn func(*Node, int, *Node, int) bool, nodeStart int, parent *Node) {
	for i, pos := 0, 0; pos < to && i < len(f.nodes); i++ {
		child := f.nodes[i]
		end := pos + child.NodeSize()
		if end > from && fn(child, nodeStart+pos, parent, i) && child.content.Size() > 0 {
			start := pos + 1
			child.content.nodesBetween(
				max(0, from-start),
				min(child.content.Size(), to-start),
				fn,
				nodeStart+start,
				child,
			)
		}
		pos = end
	}
}

// Descendants calls fn for every node in the fragment, positions relative
// to the fragment start. Returning false skips the node's children.
func (f Fragment) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	f.nodesBetween(0, f.size, fn, 0, nil)
}

// TextBetween extracts text between from and to.
func (f Fragment) TextBetween(from, to int, blockSep, leafText string) string {
	var b strings.Builder
	first := true
	f.nodesBetween(from, to, func(node *Node, pos int, _ *Node, _ int) bool {
		var text string
		descend := true
		switch {
		case node.IsText():
			r := []rune(node.text)
			text = string(r[max(from, pos)-pos : min(node.textLen, to-pos)])
		case node.IsAtom() && leafText != "":
			text = leafText
			descend = false
		}
		if node.IsTextblock() && blockSep != "" {
			if first {
				first = false
			} else {
				b.WriteString(blockSep)
			}
		}
		b.WriteString(text)
		return descend
	}, 0, nil)
	return b.String()
}

func (f Fragment) String() string {
	parts := make([]string, 0, len(f.nodes))
	for _, n := range f.nodes {
		parts = append(parts, n.String())
	}
	return strings.Join(parts, ", ")
}
