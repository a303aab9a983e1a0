package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	priorityInlineMathParser  = 50
	priorityDisplayMathParser = 90
)

var (
	dollar        = []byte("$")
	dollarDisplay = []byte("$$")
)

var (
	KindInlineMath  = ast.NewNodeKind("InlineMath")
	KindDisplayMath = ast.NewNodeKind("DisplayMath")
)

// InlineMath is $tex$ inside a paragraph.
type InlineMath struct {
	ast.BaseInline
	TeX string
}

func (n *InlineMath) Kind() ast.NodeKind { return KindInlineMath }

func (n *InlineMath) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"TeX": n.TeX}, nil)
}

// DisplayMath is a $$ delimited block.
type DisplayMath struct {
	ast.BaseBlock
	TeX string
}

func (n *DisplayMath) Kind() ast.NodeKind { return KindDisplayMath }

func (n *DisplayMath) IsRaw() bool { return true }

func (n *DisplayMath) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"TeX": n.TeX}, nil)
}

// closingDelimiter returns the index of the first delim in line at or
// after from that is not escaped with a backslash, or -1.
func closingDelimiter(line []byte, from int, delim []byte) int {
	for i := from; i < len(line); i++ {
		switch {
		case line[i] == '\\':
			i++
		case bytes.HasPrefix(line[i:], delim):
			return i
		}
	}
	return -1
}

type inlineMathParser struct{}

func (p *inlineMathParser) Trigger() []byte {
	return dollar
}

func (p *inlineMathParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, seg := block.PeekLine()
	delim := dollar
	if bytes.HasPrefix(line, dollarDisplay) {
		delim = dollarDisplay
	}
	stop := closingDelimiter(line, len(delim), delim)
	if stop <= len(delim) {
		return nil
	}
	tex := block.Value(text.NewSegment(seg.Start+len(delim), seg.Start+stop))
	block.Advance(stop + len(delim))
	return &InlineMath{TeX: string(tex)}
}

var displayMathInfoKey = parser.NewContextKey()

type displayMathData struct {
	// closed is set when the block ended on its opening line.
	closed bool
}

type displayMathParser struct{}

func (p *displayMathParser) Trigger() []byte {
	return dollar
}

func (p *displayMathParser) Open(_ ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, seg := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], dollarDisplay) {
		return nil, parser.NoChildren
	}
	start := pos + len(dollarDisplay)
	node := &DisplayMath{}
	data := &displayMathData{}

	if stop := closingDelimiter(line, start, dollarDisplay); stop >= 0 {
		// $$tex$$ followed by more text is inline math in a paragraph.
		if !util.IsBlank(line[stop+len(dollarDisplay):]) {
			return nil, parser.NoChildren
		}
		node.Lines().Append(text.NewSegment(seg.Start+start, seg.Start+stop))
		data.closed = true
	} else {
		node.Lines().Append(text.NewSegment(seg.Start+start, seg.Stop))
	}
	pc.Set(displayMathInfoKey, data)
	reader.Advance(seg.Len() - 1)
	return node, parser.NoChildren
}

func (p *displayMathParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	data, ok := pc.Get(displayMathInfoKey).(*displayMathData)
	if !ok {
		return parser.None
	}
	if data.closed {
		return parser.Close
	}
	line, seg := reader.PeekLine()
	if stop := closingDelimiter(line, 0, dollarDisplay); stop >= 0 {
		node.Lines().Append(text.NewSegment(seg.Start, seg.Start+stop))
		reader.Advance(stop + len(dollarDisplay))
		return parser.Close
	}
	node.Lines().Append(seg)
	reader.Advance(seg.Len() - 1)
	return parser.Continue | parser.NoChildren
}

func (p *displayMathParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	if n, ok := node.(*DisplayMath); ok {
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(reader.Source()))
		}
		n.TeX = strings.TrimSpace(b.String())
	}
	pc.Set(displayMathInfoKey, nil)
}

func (p *displayMathParser) CanInterruptParagraph() bool { return true }

func (p *displayMathParser) CanAcceptIndentedLine() bool { return false }

type mathExtension struct{}

// Math adds $..$ inline math and $$..$$ display math to a goldmark parser.
var Math goldmark.Extender = &mathExtension{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(&inlineMathParser{}, priorityInlineMathParser),
		),
		parser.WithBlockParsers(
			util.Prioritized(&displayMathParser{}, priorityDisplayMathParser),
		),
	)
}
