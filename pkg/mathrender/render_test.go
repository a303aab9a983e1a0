package mathrender

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/mathedit/internal/dom"
)

type fakeEngine struct {
	macros map[string]string
	calls  int
}

func (e *fakeEngine) style(tag, tex string) (string, error) {
	e.calls++
	if strings.Contains(tex, "{") && !strings.Contains(tex, "}") {
		return "", errors.New("unclosed group")
	}
	if tex == "panic" {
		panic("boom")
	}
	for name, body := range e.macros {
		tex = strings.ReplaceAll(tex, name, body)
	}
	return "<math display=\"" + tag + "\"><mi>" + tex + "</mi></math>", nil
}

func (e *fakeEngine) TextStyle(tex string) (string, error)    { return e.style("inline", tex) }
func (e *fakeEngine) DisplayStyle(tex string) (string, error) { return e.style("block", tex) }

func newFake(t *testing.T) (*MathMLRenderer, *[]*fakeEngine) {
	t.Helper()
	var engines []*fakeEngine
	r, err := New(WithEngine(func(macros map[string]string) Engine {
		e := &fakeEngine{macros: macros}
		engines = append(engines, e)
		return e
	}))
	require.NoError(t, err)
	return r, &engines
}

func TestRender(t *testing.T) {
	testCases := []struct {
		name     string
		source   string
		opts     Options
		kind     ResultKind
		expected string
	}{
		{
			name:     "inline",
			source:   "x",
			opts:     Options{ThrowOnError: true},
			kind:     Ok,
			expected: `<math display="inline"><mi>x</mi></math>`,
		},
		{
			name:     "display",
			source:   "y",
			opts:     Options{DisplayMode: true, ThrowOnError: true},
			kind:     Ok,
			expected: `<math display="block"><mi>y</mi></math>`,
		},
		{
			name:     "macros",
			source:   `\RR`,
			opts:     Options{Macros: map[string]string{`\RR`: "R"}, ThrowOnError: true},
			kind:     Ok,
			expected: `<math display="inline"><mi>R</mi></math>`,
		},
		{
			name:     "parse failure",
			source:   `\frac{`,
			opts:     Options{ThrowOnError: true},
			kind:     ParseFailure,
			expected: "old",
		},
		{
			name:     "tolerated parse failure",
			source:   `\frac{`,
			kind:     Ok,
			expected: `<span class="math-error" title="unclosed group">\frac{</span>`,
		},
		{
			name:     "engine panic",
			source:   "panic",
			opts:     Options{ThrowOnError: true},
			kind:     OtherFailure,
			expected: "old",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newFake(t)
			mount := dom.NewElement("span")
			mount.AppendChild(dom.NewText("old"))

			res := r.Render(tc.source, mount, tc.opts)
			assert.Equal(t, tc.kind, res.Kind, res.Kind.String())
			assert.Equal(t, tc.expected, dom.InnerHTML(mount))
			switch tc.kind {
			case ParseFailure:
				assert.Equal(t, "unclosed group", res.Description)
			case OtherFailure:
				require.Error(t, res.Err)
			}
		})
	}
}

func TestRender_Cache(t *testing.T) {
	r, engines := newFake(t)
	mount := dom.NewElement("span")

	require.Equal(t, Ok, r.Render("x", mount, Options{}).Kind)
	first := dom.InnerHTML(mount)
	require.Equal(t, Ok, r.Render("x", mount, Options{}).Kind)
	assert.Equal(t, first, dom.InnerHTML(mount))
	require.Len(t, *engines, 1)
	assert.Equal(t, 1, (*engines)[0].calls)

	// Display mode and macro tables are part of the key.
	r.Render("x", mount, Options{DisplayMode: true})
	assert.Equal(t, 2, (*engines)[0].calls)
	r.Render("x", mount, Options{Macros: map[string]string{"a": "b", "c": "d"}})
	r.Render("x", mount, Options{Macros: map[string]string{"c": "d", "a": "b"}})
	require.Len(t, *engines, 2)
	assert.Equal(t, 1, (*engines)[1].calls)
}

func TestRender_Treeblood(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	mount := dom.NewElement("span")

	res := r.Render(`x^2`, mount, Options{ThrowOnError: true})
	require.Equal(t, Ok, res.Kind, res.Description)
	assert.Contains(t, dom.InnerHTML(mount), "<math")
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "", fingerprint(nil))
	assert.Equal(t, fingerprint(map[string]string{"a": "1", "b": "2"}), fingerprint(map[string]string{"b": "2", "a": "1"}))
	assert.NotEqual(t, fingerprint(map[string]string{"a": "1"}), fingerprint(map[string]string{"a": "2"}))
}
