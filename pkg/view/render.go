package view

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/pkg/model"
)

// render rebuilds the DOM below the view root. Node view DOM subtrees
// are moved into place untouched.
func (v *EditorView) render() {
	for _, d := range v.descs {
		dom.Detach(d.view.DOM())
	}
	dom.RemoveChildren(v.dom)
	v.renderFragment(v.dom, v.state.Doc().Content(), 0)
}

func (v *EditorView) renderFragment(parent *html.Node, f model.Fragment, start int) {
	pos := start
	for _, child := range f.Children() {
		for _, n := range v.renderNode(child, pos) {
			parent.AppendChild(n)
		}
		pos += child.NodeSize()
	}
}

func (v *EditorView) renderNode(node *model.Node, pos int) []*html.Node {
	if d := v.descAt(pos); d != nil && d.node == node {
		el := d.view.DOM()
		for _, deco := range d.applied {
			removeAttrs(el, deco.Attrs)
		}
		d.applied = v.decorations.nodeDecorationsAt(pos)
		for _, deco := range d.applied {
			applyAttrs(el, deco.Attrs)
		}
		return []*html.Node{el}
	}
	if node.IsText() {
		return v.renderText(node, pos)
	}
	var el *html.Node
	if node.Kind().IsMath() {
		el = model.SerializeNode(node)
	} else {
		el = dom.NewElement(node.Kind().TagName())
		v.renderFragment(el, node.Content(), pos+1)
	}
	for _, deco := range v.decorations.nodeDecorationsAt(pos) {
		applyAttrs(el, deco.Attrs)
	}
	return []*html.Node{el}
}

// renderText splits a text node at inline decoration boundaries.
func (v *EditorView) renderText(node *model.Node, pos int) []*html.Node {
	end := pos + node.NodeSize()
	var inline []Decoration
	for _, d := range v.decorations.Find(pos, end) {
		if d.Kind == DecorationInline && d.To > pos && d.From < end {
			inline = append(inline, d)
		}
	}
	if len(inline) == 0 {
		return []*html.Node{model.SerializeNode(node)}
	}

	cuts := []int{pos, end}
	for _, d := range inline {
		if d.From > pos {
			cuts = append(cuts, d.From)
		}
		if d.To < end {
			cuts = append(cuts, d.To)
		}
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	var out []*html.Node
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]
		n := model.SerializeNode(node.Cut(from-pos, to-pos))
		for _, d := range inline {
			if d.From <= from && d.To >= to {
				wrap := dom.NewElement("span")
				applyAttrs(wrap, d.Attrs)
				wrap.AppendChild(n)
				n = wrap
			}
		}
		out = append(out, n)
	}
	return out
}

func applyAttrs(el *html.Node, attrs map[string]string) {
	for key, val := range attrs {
		if key == "class" {
			for _, c := range strings.Fields(val) {
				dom.AddClass(el, c)
			}
			continue
		}
		dom.SetAttr(el, key, val)
	}
}

func removeAttrs(el *html.Node, attrs map[string]string) {
	for key, val := range attrs {
		if key == "class" {
			for _, c := range strings.Fields(val) {
				dom.RemoveClass(el, c)
			}
			continue
		}
		dom.RemoveAttr(el, key)
	}
}
