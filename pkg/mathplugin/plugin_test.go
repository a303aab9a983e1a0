package mathplugin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/internal/ulid"
	"github.com/stateful/mathedit/pkg/commands"
	"github.com/stateful/mathedit/pkg/history"
	"github.com/stateful/mathedit/pkg/keymap"
	"github.com/stateful/mathedit/pkg/mathrender"
	"github.com/stateful/mathedit/pkg/mathview"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

type renderCall struct {
	Source string
	Opts   mathrender.Options
}

type recordingRenderer struct {
	calls []renderCall
}

func (r *recordingRenderer) Render(source string, mount *html.Node, opts mathrender.Options) mathrender.Result {
	r.calls = append(r.calls, renderCall{Source: source, Opts: opts})
	dom.RemoveChildren(mount)
	mount.AppendChild(dom.NewText(source))
	return mathrender.Result{Kind: mathrender.Ok}
}

func newEditor(t *testing.T, doc *model.Node, opts ...Option) (*view.EditorView, *recordingRenderer) {
	t.Helper()
	renderer := &recordingRenderer{}
	opts = append([]Option{WithRenderer(renderer)}, opts...)
	st, err := state.Create(state.Config{
		Doc: doc,
		Plugins: []*state.Plugin{
			New(opts...),
			SelectPlugin(),
			InputRules(),
			MathKeymap(),
			keymap.New(commands.BaseKeymap()),
			history.New(),
		},
	})
	require.NoError(t, err)
	v, err := view.New(dom.NewElement("body"), st)
	require.NoError(t, err)
	v.Focus()
	return v, renderer
}

func mustState(t *testing.T, v *view.EditorView) *State {
	t.Helper()
	s, ok := GetState(v.State())
	require.True(t, ok)
	return s
}

func setSelection(t *testing.T, v *view.EditorView, sel state.Selection) {
	t.Helper()
	require.NoError(t, v.Dispatch(v.State().Tr().SetSelection(sel)))
}

func cursor(t *testing.T, v *view.EditorView, pos int) {
	t.Helper()
	sel, err := state.Cursor(v.State().Doc(), pos)
	require.NoError(t, err)
	setSelection(t, v, sel)
}

func mathViewAt(t *testing.T, v *view.EditorView, pos int) *mathview.MathView {
	t.Helper()
	nv, ok := v.NodeViewAt(pos)
	require.True(t, ok, "no node view at %d", pos)
	mv, ok := nv.(*mathview.MathView)
	require.True(t, ok)
	return mv
}

// 0 <p> 1 a 2 <math> 3 x 4 </math> 5 b 6 </p> 7 <math_display> 8 y 9 </math_display> 10
func twoMathDoc() *model.Node {
	return model.Doc(
		model.Paragraph(model.Text("a"), model.MathInline("x"), model.Text("b")),
		model.MathDisplay("y"),
	)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, b, c := &mathview.MathView{}, &mathview.MathView{}, &mathview.MathView{}

	ha := r.Register(a)
	hb := r.Register(b)
	hc := r.Register(c)
	assert.Same(t, ha, r.Register(a))
	assert.Equal(t, []*mathview.MathView{a, b, c}, r.Active())
	for _, h := range []*Handle{ha, hb, hc} {
		assert.True(t, ulid.ValidID(h.ID), h.ID)
	}
	assert.NotEqual(t, ha.ID, hb.ID)

	active := r.Active()
	hb.Release()
	hb.Release()
	assert.Equal(t, []*mathview.MathView{a, c}, r.Active())
	assert.Equal(t, []*mathview.MathView{a, b, c}, active)
	assert.Equal(t, 2, r.Len())

	var nilHandle *Handle
	nilHandle.Release()

	ha.Release()
	hc.Release()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Active())
}

func TestPlugin_RegistryFollowsNodeViews(t *testing.T) {
	v, _ := newEditor(t, twoMathDoc())
	s := mustState(t, v)
	require.Equal(t, 2, s.Registry.Len())
	assert.Equal(t, []*mathview.MathView{mathViewAt(t, v, 2), mathViewAt(t, v, 7)}, s.Registry.Active())

	tr := v.State().Tr()
	require.NoError(t, tr.Delete(7, 10))
	require.NoError(t, v.Dispatch(tr))
	after := mustState(t, v)
	assert.Same(t, s.Registry, after.Registry)
	assert.Equal(t, []*mathview.MathView{mathViewAt(t, v, 2)}, after.Registry.Active())

	v.Destroy()
	assert.Equal(t, 0, after.Registry.Len())
}

func TestPlugin_StateCarriedForward(t *testing.T) {
	v, _ := newEditor(t, twoMathDoc(), WithMacros(map[string]string{`\RR`: `\mathbb{R}`}))
	first := mustState(t, v)
	assert.Equal(t, map[string]string{`\RR`: `\mathbb{R}`}, first.Macros)

	cursor(t, v, 5)
	cursor(t, v, 6)
	second := mustState(t, v)
	assert.NotSame(t, first, second)
	assert.Same(t, first.Registry, second.Registry)
	assert.Equal(t, first.Macros, second.Macros)
	assert.Equal(t, 5, second.prevCursorPos)
}

func TestPlugin_NoPlugin(t *testing.T) {
	_, ok := GetState(mustCreate(t, twoMathDoc()))
	assert.False(t, ok)

	props := New().Props.(*view.Props)
	_, err := view.New(nil, mustCreate(t, twoMathDoc()), view.WithProps(*props))
	require.ErrorIs(t, err, ErrNoMathPlugin)
}

func mustCreate(t *testing.T, doc *model.Node) *state.EditorState {
	t.Helper()
	st, err := state.Create(state.Config{Doc: doc})
	require.NoError(t, err)
	return st
}

func TestPlugin_UpdatesCursorSide(t *testing.T) {
	v, _ := newEditor(t, twoMathDoc())
	inline := mathViewAt(t, v, 2)
	display := mathViewAt(t, v, 7)

	testCases := []struct {
		name    string
		pos     int
		inline  mathview.CursorSide
		display mathview.CursorSide
	}{
		{name: "before both", pos: 1, inline: mathview.SideStart, display: mathview.SideStart},
		{name: "between", pos: 6, inline: mathview.SideEnd, display: mathview.SideStart},
		{name: "after inline", pos: 5, inline: mathview.SideEnd, display: mathview.SideStart},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cursor(t, v, tc.pos)
			assert.Equal(t, tc.inline, inline.CursorSide())
			assert.Equal(t, tc.display, display.CursorSide())
		})
	}

	// Entering from the left places the inner cursor at the start.
	cursor(t, v, 1)
	sel, err := state.CreateNodeSelection(v.State().Doc(), 2)
	require.NoError(t, err)
	setSelection(t, v, sel)
	require.True(t, inline.IsEditing())
	assert.Equal(t, "cursor(0)", inline.InnerView().State().Selection().String())
}

func TestPlugin_RenderConfiguration(t *testing.T) {
	macros := map[string]string{`\RR`: `\mathbb{R}`}
	testCases := []struct {
		name     string
		opts     []Option
		expected []renderCall
	}{
		{
			name: "defaults",
			expected: []renderCall{
				{Source: "x", Opts: mathrender.Options{ThrowOnError: true, Macros: map[string]string{}}},
				{Source: "y", Opts: mathrender.Options{DisplayMode: true, ThrowOnError: true, Macros: map[string]string{}}},
			},
		},
		{
			name: "macros",
			opts: []Option{WithMacros(macros)},
			expected: []renderCall{
				{Source: "x", Opts: mathrender.Options{ThrowOnError: true, Macros: macros}},
				{Source: "y", Opts: mathrender.Options{DisplayMode: true, ThrowOnError: true, Macros: macros}},
			},
		},
		{
			name: "render options",
			opts: []Option{WithMacros(macros), WithRenderOptions(mathrender.Options{DisplayMode: true})},
			expected: []renderCall{
				{Source: "x", Opts: mathrender.Options{Macros: macros}},
				{Source: "y", Opts: mathrender.Options{DisplayMode: true, Macros: macros}},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, renderer := newEditor(t, twoMathDoc(), tc.opts...)
			if diff := cmp.Diff(tc.expected, renderer.calls); diff != "" {
				t.Fatalf("unexpected render calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlugin_TagNames(t *testing.T) {
	v, _ := newEditor(t, twoMathDoc(), WithTagNames(map[model.Kind]string{model.KindMathDisplay: "tex-block"}))
	assert.Equal(t, "math-inline", mathViewAt(t, v, 2).DOM().Data)
	assert.Equal(t, "tex-block", mathViewAt(t, v, 7).DOM().Data)
}

func TestPlugin_EditingSession(t *testing.T) {
	v, _ := newEditor(t, twoMathDoc())
	mv := mathViewAt(t, v, 2)

	// Backspace after inline math selects it instead of deleting it.
	cursor(t, v, 5)
	handled, err := v.FocusGroup().HandleKey(view.KeyEvent{Key: "Backspace"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "node(2)", v.State().Selection().String())
	require.True(t, mv.IsEditing())
	assert.True(t, dom.HasClass(mv.DOM(), SelectClass))

	handled, err = v.FocusGroup().InsertText("+1")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, `doc(paragraph("a", math_inline("x+1"), "b"), math_display("y"))`, v.State().Doc().String())

	handled, err = v.FocusGroup().HandleKey(view.KeyEvent{Key: "ArrowRight"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "cursor(7)", v.State().Selection().String())
	assert.False(t, mv.IsEditing())
	assert.False(t, dom.HasClass(mv.DOM(), SelectClass))
	assert.Equal(t, "x+1", dom.TextContent(mv.DOM()))
	assert.True(t, v.HasFocus())
}
