package state

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/transform"
)

// Selection is a selection in a document. Positions are resolved in the
// document the selection was created for.
type Selection interface {
	Anchor() int
	Head() int
	From() int
	To() int
	ResolvedFrom() *model.ResolvedPos
	ResolvedTo() *model.ResolvedPos
	Empty() bool
	// Map maps the selection through mapping into doc, the document
	// after the mapped changes.
	Map(doc *model.Node, mapping transform.Mappable) Selection
	// Content returns the selected content, open as deep as the
	// selection endpoints are.
	Content() model.Slice
	Eq(other Selection) bool
	String() string
}

type selectionRange struct {
	anchor *model.ResolvedPos
	head   *model.ResolvedPos
}

func (r selectionRange) Anchor() int { return r.anchor.Pos }

func (r selectionRange) Head() int { return r.head.Pos }

func (r selectionRange) From() int { return min(r.anchor.Pos, r.head.Pos) }

func (r selectionRange) To() int { return max(r.anchor.Pos, r.head.Pos) }

func (r selectionRange) ResolvedFrom() *model.ResolvedPos {
	if r.anchor.Pos <= r.head.Pos {
		return r.anchor
	}
	return r.head
}

func (r selectionRange) ResolvedTo() *model.ResolvedPos {
	if r.anchor.Pos <= r.head.Pos {
		return r.head
	}
	return r.anchor
}

func (r selectionRange) Empty() bool { return r.anchor.Pos == r.head.Pos }

func (r selectionRange) Content() model.Slice {
	slice, err := r.anchor.Doc().Slice(r.From(), r.To(), true)
	if err != nil {
		// Both ends were resolved in this document.
		panic(err)
	}
	return slice
}

// TextSelection is a cursor or a range of text.
type TextSelection struct {
	selectionRange
}

// NewTextSelection creates a text selection between two resolved positions.
func NewTextSelection(anchor, head *model.ResolvedPos) *TextSelection {
	return &TextSelection{selectionRange{anchor: anchor, head: head}}
}

// CreateTextSelection creates a text selection from unresolved positions.
func CreateTextSelection(doc *model.Node, anchor, head int) (*TextSelection, error) {
	rAnchor, err := doc.Resolve(anchor)
	if err != nil {
		return nil, err
	}
	rHead, err := doc.Resolve(head)
	if err != nil {
		return nil, err
	}
	return NewTextSelection(rAnchor, rHead), nil
}

// Cursor creates an empty text selection at pos.
func Cursor(doc *model.Node, pos int) (*TextSelection, error) {
	return CreateTextSelection(doc, pos, pos)
}

func (s *TextSelection) Map(doc *model.Node, mapping transform.Mappable) Selection {
	head := doc.MustResolve(clamp(mapping.Map(s.head.Pos, 1), doc))
	if !head.Parent().InlineContent() {
		return Near(head, 1)
	}
	anchor := doc.MustResolve(clamp(mapping.Map(s.anchor.Pos, 1), doc))
	if !anchor.Parent().InlineContent() {
		anchor = head
	}
	return NewTextSelection(anchor, head)
}

func (s *TextSelection) Eq(other Selection) bool {
	o, ok := other.(*TextSelection)
	return ok && o.anchor.Pos == s.anchor.Pos && o.head.Pos == s.head.Pos
}

func (s *TextSelection) String() string {
	if s.Empty() {
		return fmt.Sprintf("cursor(%d)", s.head.Pos)
	}
	return fmt.Sprintf("text(%d-%d)", s.anchor.Pos, s.head.Pos)
}

// NodeSelection selects a single node.
type NodeSelection struct {
	selectionRange
	node *model.Node
}

// NewNodeSelection selects the node after pos. It returns nil when
// there is no node after pos.
func NewNodeSelection(pos *model.ResolvedPos) *NodeSelection {
	node := pos.NodeAfter()
	if node == nil || node.IsText() {
		return nil
	}
	head := pos.Doc().MustResolve(pos.Pos + node.NodeSize())
	return &NodeSelection{selectionRange: selectionRange{anchor: pos, head: head}, node: node}
}

// CreateNodeSelection selects the node starting at pos.
func CreateNodeSelection(doc *model.Node, pos int) (*NodeSelection, error) {
	r, err := doc.Resolve(pos)
	if err != nil {
		return nil, err
	}
	sel := NewNodeSelection(r)
	if sel == nil {
		return nil, errors.Errorf("no selectable node at %d", pos)
	}
	return sel, nil
}

// Node returns the selected node.
func (s *NodeSelection) Node() *model.Node { return s.node }

func (s *NodeSelection) Map(doc *model.Node, mapping transform.Mappable) Selection {
	result := mapping.MapResult(s.anchor.Pos, 1)
	pos := doc.MustResolve(clamp(result.Pos, doc))
	if result.Deleted() {
		return Near(pos, 1)
	}
	if sel := NewNodeSelection(pos); sel != nil {
		return sel
	}
	return Near(pos, 1)
}

func (s *NodeSelection) Eq(other Selection) bool {
	o, ok := other.(*NodeSelection)
	return ok && o.anchor.Pos == s.anchor.Pos
}

func (s *NodeSelection) String() string {
	return fmt.Sprintf("node(%d)", s.anchor.Pos)
}

// AllSelection selects the whole document.
type AllSelection struct {
	selectionRange
}

func NewAllSelection(doc *model.Node) *AllSelection {
	return &AllSelection{selectionRange{
		anchor: doc.MustResolve(0),
		head:   doc.MustResolve(doc.Content().Size()),
	}}
}

func (s *AllSelection) Map(doc *model.Node, _ transform.Mappable) Selection {
	return NewAllSelection(doc)
}

func (s *AllSelection) Eq(other Selection) bool {
	_, ok := other.(*AllSelection)
	return ok
}

func (s *AllSelection) String() string { return "all" }

func clamp(pos int, doc *model.Node) int {
	return max(0, min(pos, doc.Content().Size()))
}

// Near finds a valid selection near pos, searching in direction bias
// first. It falls back to selecting the whole document.
func Near(pos *model.ResolvedPos, bias int) Selection {
	if sel := FindFrom(pos, bias, false); sel != nil {
		return sel
	}
	if sel := FindFrom(pos, -bias, false); sel != nil {
		return sel
	}
	return NewAllSelection(pos.Doc())
}

// AtStart returns the first valid selection in doc.
func AtStart(doc *model.Node) Selection {
	if sel := findSelectionIn(doc, doc, 0, 0, 1, false); sel != nil {
		return sel
	}
	return NewAllSelection(doc)
}

// AtEnd returns the last valid selection in doc.
func AtEnd(doc *model.Node) Selection {
	if sel := findSelectionIn(doc, doc, doc.Content().Size(), doc.ChildCount(), -1, false); sel != nil {
		return sel
	}
	return NewAllSelection(doc)
}

// FindFrom finds a cursor or selectable node starting at pos and moving
// in direction dir. With textOnly, node selections are not considered.
func FindFrom(pos *model.ResolvedPos, dir int, textOnly bool) Selection {
	doc := pos.Doc()
	if pos.Parent().InlineContent() {
		return NewTextSelection(pos, pos)
	}
	if sel := findSelectionIn(doc, pos.Parent(), pos.Pos, pos.Index(pos.Depth), dir, textOnly); sel != nil {
		return sel
	}
	for depth := pos.Depth - 1; depth >= 0; depth-- {
		var sel Selection
		if dir < 0 {
			sel = findSelectionIn(doc, pos.Node(depth), pos.Before(depth+1), pos.Index(depth), dir, textOnly)
		} else {
			sel = findSelectionIn(doc, pos.Node(depth), pos.After(depth+1), pos.Index(depth)+1, dir, textOnly)
		}
		if sel != nil {
			return sel
		}
	}
	return nil
}

func findSelectionIn(doc, node *model.Node, pos, index, dir int, textOnly bool) Selection {
	if node.InlineContent() {
		r := doc.MustResolve(pos)
		return NewTextSelection(r, r)
	}
	i := index
	if dir < 0 {
		i--
	}
	for ; i >= 0 && i < node.ChildCount(); i += dir {
		child := node.Child(i)
		if !child.IsAtom() {
			start := 0
			if dir < 0 {
				start = child.ChildCount()
			}
			if sel := findSelectionIn(doc, child, pos+dir, start, dir, textOnly); sel != nil {
				return sel
			}
		} else if !textOnly {
			at := pos
			if dir < 0 {
				at -= child.NodeSize()
			}
			if sel := NewNodeSelection(doc.MustResolve(at)); sel != nil {
				return sel
			}
		}
		pos += child.NodeSize() * dir
	}
	return nil
}
