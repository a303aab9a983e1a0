// Package model implements the immutable document tree shared by the outer
// editor and the nested math editors.
//
// Positions follow a flat addressing scheme: a text node counts one position
// per rune, every other node counts its content plus one position for each of
// its opening and closing boundaries. The root node's own boundaries are not
// addressable, so positions in a document range over [0, root.Content().Size()].
package model

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Attrs holds node attributes. Nodes never mutate the map they keep.
type Attrs map[string]string

func (a Attrs) clone() Attrs {
	if len(a) == 0 {
		return nil
	}
	c := make(Attrs, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

func (a Attrs) eq(b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// Node is an immutable element of a document tree.
type Node struct {
	kind    Kind
	attrs   Attrs
	content Fragment
	text    string
	textLen int
	marks   []Mark
}

// New creates a non-text node and validates that content is allowed in it.
func New(kind Kind, attrs Attrs, content Fragment) (*Node, error) {
	if kind == KindText {
		return nil, errors.New("text nodes must be created with NewText")
	}
	n := &Node{kind: kind, attrs: attrs.clone(), content: content}
	if err := n.checkContent(content); err != nil {
		return nil, err
	}
	return n, nil
}

// NewText creates a text node. Empty text nodes are not allowed.
func NewText(text string, marks ...Mark) (*Node, error) {
	if text == "" {
		return nil, errors.New("empty text nodes are not allowed")
	}
	var m []Mark
	if len(marks) > 0 {
		m = append(m, marks...)
	}
	return &Node{kind: KindText, text: text, textLen: utf8.RuneCountInString(text), marks: m}, nil
}

func mustNode(n *Node, err error) *Node {
	if err != nil {
		panic(err)
	}
	return n
}

// Doc builds a document node. It panics on invalid content.
func Doc(children ...*Node) *Node {
	return mustNode(New(KindDoc, nil, NewFragment(children...)))
}

// Paragraph builds a paragraph node. It panics on invalid content.
func Paragraph(children ...*Node) *Node {
	return mustNode(New(KindParagraph, nil, NewFragment(children...)))
}

// Text builds a text node. It panics when text is empty.
func Text(text string, marks ...Mark) *Node {
	return mustNode(NewText(text, marks...))
}

// MathInline builds an inline math node holding source as its text.
func MathInline(source string) *Node {
	return mustNode(New(KindMathInline, nil, textFragment(source)))
}

// MathDisplay builds a display math node holding source as its text.
func MathDisplay(source string) *Node {
	return mustNode(New(KindMathDisplay, nil, textFragment(source)))
}

func textFragment(s string) Fragment {
	if s == "" {
		return Fragment{}
	}
	return NewFragment(Text(s))
}

func (n *Node) Kind() Kind { return n.kind }

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) string { return n.attrs[name] }

func (n *Node) Content() Fragment { return n.content }

func (n *Node) ChildCount() int { return n.content.ChildCount() }

func (n *Node) Child(i int) *Node { return n.content.Child(i) }

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node { return n.content.FirstChild() }

// Text returns the text of a text node, empty for other nodes.
func (n *Node) Text() string { return n.text }

func (n *Node) Marks() []Mark { return n.marks }

func (n *Node) IsText() bool { return n.kind == KindText }

func (n *Node) IsInline() bool { return n.kind.IsInline() }

func (n *Node) IsBlock() bool { return !n.kind.IsInline() }

func (n *Node) IsTextblock() bool { return n.kind.IsTextblock() }

func (n *Node) InlineContent() bool { return n.kind.InlineContent() }

func (n *Node) IsAtom() bool { return n.kind.IsAtom() }

// IsLeaf reports whether the node cannot have content.
func (n *Node) IsLeaf() bool { return n.kind == KindText }

// NodeSize is the number of positions the node occupies in its parent.
func (n *Node) NodeSize() int {
	if n.kind == KindText {
		return n.textLen
	}
	return n.content.Size() + 2
}

// TextContent concatenates all text in the node.
func (n *Node) TextContent() string {
	if n.kind == KindText {
		return n.text
	}
	var b strings.Builder
	n.content.Descendants(func(child *Node, _ int, _ *Node, _ int) bool {
		if child.IsText() {
			b.WriteString(child.text)
		}
		return true
	})
	return b.String()
}

// Copy creates a node with the same markup and new content.
func (n *Node) Copy(content Fragment) *Node {
	if n.kind == KindText {
		return n
	}
	return &Node{kind: n.kind, attrs: n.attrs, content: content, marks: n.marks}
}

func (n *Node) withText(text string) *Node {
	if text == n.text {
		return n
	}
	return &Node{kind: KindText, text: text, textLen: utf8.RuneCountInString(text), marks: n.marks}
}

// Cut returns a copy of the node containing only the content between
// from and to (relative to the node's content start).
func (n *Node) Cut(from, to int) *Node {
	if n.kind == KindText {
		if from == 0 && to == n.textLen {
			return n
		}
		r := []rune(n.text)
		return n.withText(string(r[from:to]))
	}
	if from == 0 && to == n.content.Size() {
		return n
	}
	return n.Copy(n.content.Cut(from, to))
}

// SameMarkup reports whether the nodes have the same kind, attributes and marks.
func (n *Node) SameMarkup(other *Node) bool {
	return n.kind == other.kind && n.attrs.eq(other.attrs) && sameMarks(n.marks, other.marks)
}

// Eq compares two nodes structurally.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if other == nil || !n.SameMarkup(other) {
		return false
	}
	if n.kind == KindText {
		return n.text == other.text
	}
	return n.content.Eq(other.content)
}

// NodeAt returns the node starting directly at pos, or nil.
func (n *Node) NodeAt(pos int) *Node {
	for node := n; ; {
		index, offset := node.content.findIndex(pos)
		if index >= node.content.ChildCount() {
			return nil
		}
		child := node.content.Child(index)
		if offset == pos || child.IsText() {
			return child
		}
		pos -= offset + 1
		node = child
	}
}

// NodesBetween calls fn for every descendant overlapping [from, to).
// Returning false from fn skips the node's children.
func (n *Node) NodesBetween(from, to int, fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.content.nodesBetween(from, to, fn, 0, n)
}

// Descendants calls fn for every descendant of the node.
func (n *Node) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.NodesBetween(0, n.content.Size(), fn)
}

// TextBetween returns the text between from and to. blockSep is inserted
// between textblocks; when leafText is non-empty it stands in for every
// atom node instead of the atom's own text.
func (n *Node) TextBetween(from, to int, blockSep, leafText string) string {
	return n.content.TextBetween(from, to, blockSep, leafText)
}

// CanReplaceWith reports whether replacing children [from, to) with a
// node of kind kind keeps the content valid.
func (n *Node) CanReplaceWith(from, to int, kind Kind) bool {
	if from < 0 || to > n.ChildCount() || from > to {
		return false
	}
	return n.kind.Allows(kind)
}

// Check validates the node and all its descendants.
func (n *Node) Check() error {
	if n.kind == KindText {
		return nil
	}
	if err := n.checkContent(n.content); err != nil {
		return err
	}
	for _, child := range n.content.nodes {
		if err := child.Check(); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) checkContent(content Fragment) error {
	for _, child := range content.nodes {
		if !n.kind.Allows(child.kind) {
			return errors.Wrapf(ErrInvalidContent, "%s cannot contain %s", n.kind, child.kind)
		}
		if len(child.marks) > 0 && !n.kind.AllowsMarks() {
			return errors.Wrapf(ErrInvalidContent, "%s does not allow marks", n.kind)
		}
	}
	return nil
}

func (n *Node) String() string {
	if n.kind == KindText {
		if len(n.marks) == 0 {
			return fmt.Sprintf("%q", n.text)
		}
		names := make([]string, 0, len(n.marks))
		for _, m := range n.marks {
			names = append(names, m.Kind.String())
		}
		sort.Strings(names)
		return fmt.Sprintf("%s(%q)", strings.Join(names, "+"), n.text)
	}
	if n.content.ChildCount() == 0 {
		return n.kind.String()
	}
	return n.kind.String() + "(" + n.content.String() + ")"
}
