package view

import (
	"sort"

	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/transform"
)

// DecorationKind tells how a decoration is drawn.
type DecorationKind int

const (
	// DecorationNode adds attributes to the DOM of the node starting at From.
	DecorationNode DecorationKind = iota
	// DecorationInline wraps the text between From and To.
	DecorationInline
)

// Decoration annotates a document range for presentation.
type Decoration struct {
	Kind  DecorationKind
	From  int
	To    int
	Attrs map[string]string
}

// NodeDecoration creates a decoration for the node spanning [from, to).
func NodeDecoration(from, to int, attrs map[string]string) Decoration {
	return Decoration{Kind: DecorationNode, From: from, To: to, Attrs: attrs}
}

// InlineDecoration creates a decoration for the inline content in [from, to).
func InlineDecoration(from, to int, attrs map[string]string) Decoration {
	return Decoration{Kind: DecorationInline, From: from, To: to, Attrs: attrs}
}

// DecorationSet is an immutable collection of decorations sorted by position.
type DecorationSet struct {
	decorations []Decoration
}

// EmptyDecorationSet holds no decorations.
var EmptyDecorationSet = &DecorationSet{}

// CreateDecorationSet creates a set for doc. Decorations outside of the
// document or node decorations that do not cover a node are dropped.
func CreateDecorationSet(doc *model.Node, decorations []Decoration) *DecorationSet {
	size := doc.Content().Size()
	kept := make([]Decoration, 0, len(decorations))
	for _, d := range decorations {
		if d.From < 0 || d.To > size || d.From > d.To {
			continue
		}
		if d.Kind == DecorationNode {
			node := doc.NodeAt(d.From)
			if node == nil || node.IsText() || d.From+node.NodeSize() != d.To {
				continue
			}
		}
		kept = append(kept, d)
	}
	if len(kept) == 0 {
		return EmptyDecorationSet
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].From != kept[j].From {
			return kept[i].From < kept[j].From
		}
		return kept[i].To < kept[j].To
	})
	return &DecorationSet{decorations: kept}
}

// Map moves the decorations of s through mapping onto doc. Decorations
// whose range was deleted are dropped, as are node decorations that no
// longer cover a node.
func (s *DecorationSet) Map(mapping transform.Mappable, doc *model.Node) *DecorationSet {
	if s.Len() == 0 {
		return EmptyDecorationSet
	}
	mapped := make([]Decoration, 0, len(s.decorations))
	for _, d := range s.decorations {
		from := mapping.MapResult(d.From, 1)
		to := mapping.MapResult(d.To, -1)
		if from.DeletedAcross() || to.DeletedAcross() || (from.Pos >= to.Pos && d.From < d.To) {
			continue
		}
		d.From, d.To = from.Pos, to.Pos
		mapped = append(mapped, d)
	}
	return CreateDecorationSet(doc, mapped)
}

// Len returns the number of decorations.
func (s *DecorationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.decorations)
}

// Find returns the decorations touching [from, to].
func (s *DecorationSet) Find(from, to int) []Decoration {
	if s == nil {
		return nil
	}
	var out []Decoration
	for _, d := range s.decorations {
		if d.From > to {
			break
		}
		if d.To >= from {
			out = append(out, d)
		}
	}
	return out
}

// All returns every decoration in the set.
func (s *DecorationSet) All() []Decoration {
	if s == nil {
		return nil
	}
	return append([]Decoration(nil), s.decorations...)
}

func joinDecorationSets(sets []*DecorationSet) *DecorationSet {
	switch len(sets) {
	case 0:
		return EmptyDecorationSet
	case 1:
		return sets[0]
	}
	var all []Decoration
	for _, s := range sets {
		all = append(all, s.All()...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].From < all[j].From })
	return &DecorationSet{decorations: all}
}

func (s *DecorationSet) nodeDecorationsAt(pos int) []Decoration {
	var out []Decoration
	for _, d := range s.Find(pos, pos) {
		if d.Kind == DecorationNode && d.From == pos {
			out = append(out, d)
		}
	}
	return out
}
