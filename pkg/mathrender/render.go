// Package mathrender typesets TeX into a DOM mount point.
package mathrender

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/wyatt915/treeblood"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stateful/mathedit/internal/dom"
)

// ErrorClass marks the inline error output rendered when parse errors
// are tolerated.
const ErrorClass = "math-error"

const defaultCacheSize = 256

// ResultKind discriminates render results.
type ResultKind int

const (
	Ok ResultKind = iota
	// ParseFailure means the source is not valid TeX. The mount is left
	// untouched.
	ParseFailure
	// OtherFailure is any other error of the engine.
	OtherFailure
)

func (k ResultKind) String() string {
	switch k {
	case Ok:
		return "ok"
	case ParseFailure:
		return "parse failure"
	case OtherFailure:
		return "other failure"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the outcome of a render.
type Result struct {
	Kind ResultKind
	// Description is a human readable explanation of a parse failure.
	Description string
	// Err is set for OtherFailure.
	Err error
}

// Options control how a source is typeset.
type Options struct {
	DisplayMode bool
	Macros      map[string]string
	// ThrowOnError reports parse errors as ParseFailure. When false the
	// source is rendered as an error marker instead and the result is Ok.
	ThrowOnError bool
}

// Renderer typesets source into mount.
type Renderer interface {
	Render(source string, mount *html.Node, opts Options) Result
}

// Engine converts TeX to MathML. *treeblood.Pitziil implements it.
type Engine interface {
	TextStyle(tex string) (string, error)
	DisplayStyle(tex string) (string, error)
}

type Option func(*MathMLRenderer)

// WithCacheSize sets how many typeset sources are kept.
func WithCacheSize(n int) Option {
	return func(r *MathMLRenderer) {
		r.cacheSize = n
	}
}

// WithEngine replaces the treeblood engine. newEngine is called once per
// distinct macro table.
func WithEngine(newEngine func(macros map[string]string) Engine) Option {
	return func(r *MathMLRenderer) {
		r.newEngine = newEngine
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *MathMLRenderer) {
		r.logger = logger
	}
}

type cacheKey struct {
	display bool
	macros  string
	source  string
}

type typeset struct {
	mathML string
	// parseErr is the engine's parse error.
	parseErr error
}

// MathMLRenderer renders TeX as MathML elements.
type MathMLRenderer struct {
	cacheSize int
	newEngine func(macros map[string]string) Engine
	logger    *zap.Logger

	cache   *lru.Cache[cacheKey, typeset]
	engines map[string]Engine
}

var _ Renderer = (*MathMLRenderer)(nil)

// New creates a renderer backed by treeblood.
func New(opts ...Option) (*MathMLRenderer, error) {
	r := &MathMLRenderer{
		cacheSize: defaultCacheSize,
		newEngine: func(macros map[string]string) Engine {
			return treeblood.NewDocument(macros, false)
		},
		logger:  zap.NewNop(),
		engines: make(map[string]Engine),
	}
	for _, opt := range opts {
		opt(r)
	}
	cache, err := lru.New[cacheKey, typeset](r.cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create render cache")
	}
	r.cache = cache
	return r, nil
}

// Render typesets source into mount, replacing its children.
func (r *MathMLRenderer) Render(source string, mount *html.Node, opts Options) Result {
	fp := fingerprint(opts.Macros)
	key := cacheKey{display: opts.DisplayMode, macros: fp, source: source}

	out, ok := r.cache.Get(key)
	if !ok {
		var err error
		out, err = r.typeset(fp, source, opts)
		if err != nil {
			return Result{Kind: OtherFailure, Err: err}
		}
		r.cache.Add(key, out)
	}

	if out.parseErr != nil {
		desc := out.parseErr.Error()
		if opts.ThrowOnError {
			return Result{Kind: ParseFailure, Description: desc}
		}
		span := dom.NewElement("span")
		dom.AddClass(span, ErrorClass)
		dom.SetAttr(span, "title", desc)
		span.AppendChild(dom.NewText(source))
		dom.RemoveChildren(mount)
		mount.AppendChild(span)
		return Result{Kind: Ok}
	}

	nodes, err := html.ParseFragment(strings.NewReader(out.mathML), &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
	})
	if err != nil {
		return Result{Kind: OtherFailure, Err: errors.Wrap(err, "parse MathML")}
	}
	dom.RemoveChildren(mount)
	for _, n := range nodes {
		mount.AppendChild(n)
	}
	return Result{Kind: Ok}
}

func (r *MathMLRenderer) typeset(fp, source string, opts Options) (out typeset, err error) {
	engine, ok := r.engines[fp]
	if !ok {
		engine = r.newEngine(opts.Macros)
		r.engines[fp] = engine
	}

	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("math engine panicked", zap.Any("panic", v), zap.String("source", source))
			err = errors.Errorf("math engine panicked: %v", v)
		}
	}()

	if opts.DisplayMode {
		out.mathML, out.parseErr = engine.DisplayStyle(source)
	} else {
		out.mathML, out.parseErr = engine.TextStyle(source)
	}
	return out, nil
}

// fingerprint identifies a macro table independent of map order.
func fingerprint(macros map[string]string) string {
	if len(macros) == 0 {
		return ""
	}
	names := make([]string, 0, len(macros))
	for name := range macros {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%q=%q;", name, macros[name])
	}
	return b.String()
}
