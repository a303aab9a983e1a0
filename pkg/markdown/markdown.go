// Package markdown converts between Markdown text and document content.
// It is used for clipboard text and for loading documents from files.
package markdown

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.uber.org/zap"

	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

type Parser struct {
	md     goldmark.Markdown
	logger *zap.Logger
}

type Option func(*Parser)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		md:     goldmark.New(goldmark.WithExtensions(Math)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Blocks parses source into top-level document nodes.
func (p *Parser) Blocks(source []byte) ([]*model.Node, error) {
	root := p.md.Parser().Parse(text.NewReader(source))
	c := &converter{source: source}
	blocks := c.blocks(root)
	if c.err != nil {
		return nil, c.err
	}
	p.logger.Debug("parsed markdown", zap.Int("bytes", len(source)), zap.Int("blocks", len(blocks)))
	return blocks, nil
}

// Parse parses source into a document. An empty source yields a
// document with one empty paragraph.
func (p *Parser) Parse(source []byte) (*model.Node, error) {
	blocks, err := p.Blocks(source)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		blocks = []*model.Node{model.Paragraph()}
	}
	doc, err := model.New(model.KindDoc, nil, model.NewFragment(blocks...))
	return doc, errors.WithStack(err)
}

// ParseClipboardText turns pasted text into a slice that fits at. Text
// pasted into math is kept verbatim.
func (p *Parser) ParseClipboardText(text string, at *model.ResolvedPos) (model.Slice, error) {
	if text == "" {
		return model.EmptySlice, nil
	}
	if at != nil && at.Parent().Kind().IsMath() {
		return model.SliceOf(model.Text(text)), nil
	}
	blocks, err := p.Blocks([]byte(text))
	if err != nil {
		return model.EmptySlice, err
	}
	if len(blocks) == 0 {
		return model.EmptySlice, nil
	}
	return model.MaxOpen(model.NewFragment(blocks...)), nil
}

// Props wires Markdown clipboard handling into a view.
func (p *Parser) Props() *view.Props {
	return &view.Props{
		ClipboardTextParser:     p.ParseClipboardText,
		ClipboardTextSerializer: SerializeSlice,
	}
}

// Plugin returns a state plugin carrying Props.
func (p *Parser) Plugin() *state.Plugin {
	return &state.Plugin{Props: p.Props()}
}

type converter struct {
	source []byte
	err    error
}

func (c *converter) blocks(parent ast.Node) []*model.Node {
	var out []*model.Node
	for n := parent.FirstChild(); n != nil && c.err == nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *DisplayMath:
			out = append(out, model.MathDisplay(n.TeX))
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			out = append(out, c.paragraph(c.inlines(n, false)))
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			raw := strings.TrimRight(string(c.lines(n)), "\n")
			if raw == "" {
				out = append(out, model.Paragraph())
				continue
			}
			out = append(out, model.Paragraph(model.Text(raw)))
		case *ast.ThematicBreak:
		default:
			// Lists and blockquotes are flattened into their blocks.
			out = append(out, c.blocks(n)...)
		}
	}
	return out
}

func (c *converter) paragraph(inlines []*model.Node) *model.Node {
	n, err := model.New(model.KindParagraph, nil, model.NewFragment(inlines...))
	if err != nil {
		c.err = errors.WithStack(err)
		return nil
	}
	return n
}

func (c *converter) lines(n ast.Node) []byte {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.source))
	}
	return b.Bytes()
}

// inlines flattens the inline children of n into text and math nodes.
// Inside code spans the text is taken literally.
func (c *converter) inlines(n ast.Node, literal bool) []*model.Node {
	var (
		out []*model.Node
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, model.Text(buf.String()))
			buf.Reset()
		}
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child := child.(type) {
		case *InlineMath:
			flush()
			out = append(out, model.MathInline(child.TeX))
		case *ast.Text:
			value := child.Segment.Value(c.source)
			if !literal {
				value = util.UnescapePunctuations(value)
			}
			buf.Write(value)
			switch {
			case child.HardLineBreak():
				buf.WriteByte('\n')
			case child.SoftLineBreak():
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(child.Value)
		case *ast.AutoLink:
			buf.Write(child.Label(c.source))
		case *ast.RawHTML:
			for i := 0; i < child.Segments.Len(); i++ {
				seg := child.Segments.At(i)
				buf.Write(seg.Value(c.source))
			}
		case *ast.CodeSpan:
			c.appendInlines(&buf, &out, flush, c.inlines(child, true))
		default:
			c.appendInlines(&buf, &out, flush, c.inlines(child, literal))
		}
	}
	flush()
	return out
}

func (c *converter) appendInlines(buf *strings.Builder, out *[]*model.Node, flush func(), nodes []*model.Node) {
	for _, n := range nodes {
		if n.IsText() {
			buf.WriteString(n.Text())
			continue
		}
		flush()
		*out = append(*out, n)
	}
}

// SerializeSlice turns copied content into Markdown. Inline math is
// written as $tex$ and display math as a $$ fenced block.
func SerializeSlice(slice model.Slice) string {
	return SerializeFragment(slice.Content)
}

func SerializeFragment(f model.Fragment) string {
	var (
		blocks []string
		inline strings.Builder
	)
	flush := func() {
		if inline.Len() > 0 {
			blocks = append(blocks, inline.String())
			inline.Reset()
		}
	}
	for _, n := range f.Children() {
		switch n.Kind() {
		case model.KindText, model.KindMathInline:
			writeInline(&inline, n)
		case model.KindParagraph:
			flush()
			var b strings.Builder
			for _, child := range n.Content().Children() {
				writeInline(&b, child)
			}
			blocks = append(blocks, b.String())
		case model.KindMathDisplay:
			flush()
			blocks = append(blocks, "$$\n"+n.TextContent()+"\n$$")
		case model.KindDoc:
			flush()
			blocks = append(blocks, SerializeFragment(n.Content()))
		}
	}
	flush()
	return strings.Join(blocks, "\n\n")
}

var textEscaper = strings.NewReplacer(`$`, `\$`)

func writeInline(b *strings.Builder, n *model.Node) {
	switch n.Kind() {
	case model.KindMathInline:
		b.WriteString("$" + n.TextContent() + "$")
	case model.KindText:
		_, _ = textEscaper.WriteString(b, n.Text())
	}
}
