package model

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/stateful/mathedit/internal/dom"
)

// MathNodeClass is the class every serialized math node carries.
const MathNodeClass = "math-node"

// SerializeFragment converts a fragment into detached DOM nodes.
func SerializeFragment(f Fragment) []*html.Node {
	out := make([]*html.Node, 0, f.ChildCount())
	for _, n := range f.nodes {
		out = append(out, SerializeNode(n))
	}
	return out
}

// SerializeNode converts a node into a detached DOM node.
func SerializeNode(n *Node) *html.Node {
	switch n.kind {
	case KindText:
		result := dom.NewText(n.text)
		for i := len(n.marks) - 1; i >= 0; i-- {
			wrap := dom.NewElement(n.marks[i].Kind.TagName())
			wrap.AppendChild(result)
			result = wrap
		}
		return result
	case KindMathInline, KindMathDisplay:
		el := dom.NewElement(n.kind.TagName())
		dom.AddClass(el, MathNodeClass)
		appendAll(el, SerializeFragment(n.content))
		return el
	case KindDoc, KindParagraph:
		el := dom.NewElement(n.kind.TagName())
		appendAll(el, SerializeFragment(n.content))
		return el
	default:
		panic("unknown node kind " + n.kind.String())
	}
}

func appendAll(parent *html.Node, children []*html.Node) {
	for _, c := range children {
		parent.AppendChild(c)
	}
}

// ParseOption customizes ParseDOM.
type ParseOption func(*domParser)

// WithTagName makes the parser recognize tag as a node of kind, in
// addition to the kind's default tag.
func WithTagName(kind Kind, tag string) ParseOption {
	return func(p *domParser) {
		if tag != "" {
			p.tags[strings.ToLower(tag)] = kind
		}
	}
}

// WithNodeResolver lets the parser take nodes for DOM elements it
// should not parse itself, such as the DOM of node views.
func WithNodeResolver(resolve func(el *html.Node) (*Node, bool)) ParseOption {
	return func(p *domParser) {
		p.resolve = resolve
	}
}

type domParser struct {
	tags    map[string]Kind
	resolve func(el *html.Node) (*Node, bool)
}

func (p *domParser) resolved(el *html.Node) (*Node, bool) {
	if p.resolve == nil || el.Type != html.ElementNode {
		return nil, false
	}
	return p.resolve(el)
}

// ParseDOM builds a document from the children of root.
func ParseDOM(root *html.Node, opts ...ParseOption) (*Node, error) {
	p := &domParser{tags: map[string]Kind{
		KindParagraph.TagName():   KindParagraph,
		KindMathInline.TagName():  KindMathInline,
		KindMathDisplay.TagName(): KindMathDisplay,
	}}
	for _, opt := range opts {
		opt(p)
	}
	blocks, err := p.parseBlocks(root)
	if err != nil {
		return nil, err
	}
	doc, err := New(KindDoc, nil, NewFragment(blocks...))
	return doc, errors.WithStack(err)
}

var textblockTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "li": true, "dt": true, "dd": true,
}

func (p *domParser) parseBlocks(parent *html.Node) ([]*Node, error) {
	var (
		blocks  []*Node
		pending []*Node
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		par, err := New(KindParagraph, nil, NewFragment(pending...))
		if err != nil {
			return err
		}
		blocks = append(blocks, par)
		pending = nil
		return nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) == "" {
				continue
			}
			pending = append(pending, Text(c.Data))
		case html.ElementNode:
			if node, ok := p.resolved(c); ok {
				if node.IsInline() {
					pending = append(pending, node)
					continue
				}
				if err := flush(); err != nil {
					return nil, err
				}
				blocks = append(blocks, node)
				continue
			}
			kind, known := p.tags[c.Data]
			switch {
			case known && kind == KindMathDisplay:
				if err := flush(); err != nil {
					return nil, err
				}
				blocks = append(blocks, p.parseMath(KindMathDisplay, c))
			case known && kind == KindParagraph, textblockTags[c.Data]:
				if err := flush(); err != nil {
					return nil, err
				}
				inline, err := p.parseInline(c, nil)
				if err != nil {
					return nil, err
				}
				par, err := New(KindParagraph, nil, NewFragment(inline...))
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, par)
			case isBlockContainer(c.Data):
				if err := flush(); err != nil {
					return nil, err
				}
				inner, err := p.parseBlocks(c)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, inner...)
			default:
				inline, err := p.parseInlineNode(c, nil)
				if err != nil {
					return nil, err
				}
				pending = append(pending, inline...)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func isBlockContainer(tag string) bool {
	switch tag {
	case "html", "body", "div", "section", "article", "main", "blockquote", "ul", "ol", "dl":
		return true
	}
	return false
}

func (p *domParser) parseInline(parent *html.Node, marks []Mark) ([]*Node, error) {
	var out []*Node
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		inline, err := p.parseInlineNode(c, marks)
		if err != nil {
			return nil, err
		}
		out = append(out, inline...)
	}
	return out, nil
}

func (p *domParser) parseInlineNode(c *html.Node, marks []Mark) ([]*Node, error) {
	switch c.Type {
	case html.TextNode:
		if c.Data == "" {
			return nil, nil
		}
		return []*Node{Text(c.Data, marks...)}, nil
	case html.ElementNode:
		if node, ok := p.resolved(c); ok {
			return []*Node{node}, nil
		}
		if kind, ok := p.tags[c.Data]; ok && kind == KindMathInline {
			return []*Node{p.parseMath(KindMathInline, c)}, nil
		}
		switch c.Data {
		case MarkMathSelect.TagName():
			return p.parseInline(c, addMark(marks, Mark{Kind: MarkMathSelect}))
		case "br":
			return []*Node{Text("\n", marks...)}, nil
		}
		return p.parseInline(c, marks)
	default:
		return nil, nil
	}
}

func (p *domParser) parseMath(kind Kind, el *html.Node) *Node {
	return mustNode(New(kind, nil, textFragment(dom.TextContent(el))))
}

func addMark(marks []Mark, m Mark) []Mark {
	for _, existing := range marks {
		if existing == m {
			return marks
		}
	}
	out := make([]Mark, 0, len(marks)+1)
	return append(append(out, marks...), m)
}
