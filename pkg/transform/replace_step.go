package transform

import (
	"fmt"

	"github.com/stateful/mathedit/pkg/model"
)

// ReplaceStep replaces a part of the document with a slice of new content.
type ReplaceStep struct {
	From  int
	To    int
	Slice model.Slice
	// Structure makes the step fail when the replaced range contains
	// content, so that it can only move node boundaries.
	Structure bool
}

// NewReplaceStep creates a step replacing [from, to) with slice.
func NewReplaceStep(from, to int, slice model.Slice) *ReplaceStep {
	return &ReplaceStep{From: from, To: to, Slice: slice}
}

func (s *ReplaceStep) Apply(doc *model.Node) StepResult {
	if s.Structure && contentBetween(doc, s.From, s.To) {
		return Fail("structure replace would overwrite content")
	}
	return FromReplace(doc, s.From, s.To, s.Slice)
}

func (s *ReplaceStep) GetMap() *StepMap {
	return NewStepMap([]int{s.From, s.To - s.From, s.Slice.Size()})
}

// Invert panics when doc is not the document the step was applied to.
func (s *ReplaceStep) Invert(doc *model.Node) Step {
	removed, err := doc.Slice(s.From, s.To, false)
	if err != nil {
		panic(fmt.Sprintf("invert replace step %d-%d: %v", s.From, s.To, err))
	}
	return &ReplaceStep{From: s.From, To: s.From + s.Slice.Size(), Slice: removed}
}

func (s *ReplaceStep) Map(mapping Mappable) (Step, bool) {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if from.DeletedAcross() && to.DeletedAcross() {
		return nil, false
	}
	return &ReplaceStep{From: from.Pos, To: max(from.Pos, to.Pos), Slice: s.Slice, Structure: s.Structure}, true
}

func (s *ReplaceStep) Merge(other Step) (Step, bool) {
	o, ok := other.(*ReplaceStep)
	if !ok || o.Structure || s.Structure {
		return nil, false
	}
	switch {
	case s.From+s.Slice.Size() == o.From && s.Slice.OpenEnd == 0 && o.Slice.OpenStart == 0:
		slice := model.EmptySlice
		if s.Slice.Size()+o.Slice.Size() > 0 {
			slice = model.NewSlice(s.Slice.Content.Append(o.Slice.Content), s.Slice.OpenStart, o.Slice.OpenEnd)
		}
		return &ReplaceStep{From: s.From, To: s.To + (o.To - o.From), Slice: slice}, true
	case o.To == s.From && s.Slice.OpenStart == 0 && o.Slice.OpenEnd == 0:
		slice := model.EmptySlice
		if s.Slice.Size()+o.Slice.Size() > 0 {
			slice = model.NewSlice(o.Slice.Content.Append(s.Slice.Content), o.Slice.OpenStart, s.Slice.OpenEnd)
		}
		return &ReplaceStep{From: o.From, To: s.To, Slice: slice}, true
	}
	return nil, false
}

func (s *ReplaceStep) String() string {
	return fmt.Sprintf("replace(%d-%d, %s)", s.From, s.To, s.Slice)
}

func contentBetween(doc *model.Node, from, to int) bool {
	rFrom, err := doc.Resolve(from)
	if err != nil {
		return true
	}
	dist, depth := to-from, rFrom.Depth
	for dist > 0 && depth > 0 && rFrom.IndexAfter(depth) == rFrom.Node(depth).ChildCount() {
		depth--
		dist--
	}
	if dist > 0 {
		parent := rFrom.Node(depth)
		var next *model.Node
		if idx := rFrom.IndexAfter(depth); idx < parent.ChildCount() {
			next = parent.Child(idx)
		}
		for ; dist > 0; dist-- {
			if next == nil || next.IsLeaf() {
				return true
			}
			next = next.FirstChild()
		}
	}
	return false
}
