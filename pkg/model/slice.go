package model

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidContent     = errors.New("invalid content")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrReplace            = errors.New("invalid replace")
)

// Slice is a piece of a document. OpenStart and OpenEnd are the depths
// at which the content is cut open on either side.
type Slice struct {
	Content   Fragment
	OpenStart int
	OpenEnd   int
}

// EmptySlice is the slice with no content.
var EmptySlice = Slice{}

// NewSlice creates a slice.
func NewSlice(content Fragment, openStart, openEnd int) Slice {
	return Slice{Content: content, OpenStart: openStart, OpenEnd: openEnd}
}

// SliceOf creates a closed slice holding nodes.
func SliceOf(nodes ...*Node) Slice {
	return Slice{Content: NewFragment(nodes...)}
}

// MaxOpen creates a slice that is open as deep as possible on both
// sides, stopping at leaves and atoms.
func MaxOpen(content Fragment) Slice {
	openStart, openEnd := 0, 0
	for n := content.FirstChild(); n != nil && !n.IsLeaf() && !n.IsAtom(); n = n.FirstChild() {
		openStart++
	}
	for n := content.LastChild(); n != nil && !n.IsLeaf() && !n.IsAtom(); n = n.content.LastChild() {
		openEnd++
	}
	return Slice{Content: content, OpenStart: openStart, OpenEnd: openEnd}
}

// Size is the number of positions the slice inserts.
func (s Slice) Size() int {
	return s.Content.Size() - s.OpenStart - s.OpenEnd
}

func (s Slice) Eq(other Slice) bool {
	return s.Content.Eq(other.Content) && s.OpenStart == other.OpenStart && s.OpenEnd == other.OpenEnd
}

func (s Slice) String() string {
	return fmt.Sprintf("<%s>(%d,%d)", s.Content, s.OpenStart, s.OpenEnd)
}

// Slice cuts out the part of the document between from and to. With
// includeParents the slice is taken from the root, so it is open as
// deep as from and to are.
func (n *Node) Slice(from, to int, includeParents bool) (Slice, error) {
	if from == to {
		return EmptySlice, nil
	}
	rFrom, err := n.Resolve(from)
	if err != nil {
		return EmptySlice, err
	}
	rTo, err := n.Resolve(to)
	if err != nil {
		return EmptySlice, err
	}
	depth := 0
	if !includeParents {
		depth = rFrom.SharedDepth(to)
	}
	start := rFrom.Start(depth)
	node := rFrom.Node(depth)
	content := node.content.Cut(rFrom.Pos-start, rTo.Pos-start)
	return Slice{Content: content, OpenStart: rFrom.Depth - depth, OpenEnd: rTo.Depth - depth}, nil
}
