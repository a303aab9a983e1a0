package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
)

type session struct {
	t   *testing.T
	st  *state.EditorState
	now time.Time
}

func newSession(t *testing.T, doc *model.Node, opts ...Option) *session {
	t.Helper()
	st, err := state.Create(state.Config{Doc: doc, Plugins: []*state.Plugin{New(opts...)}})
	require.NoError(t, err)
	return &session{t: t, st: st, now: time.Unix(1000, 0)}
}

func (s *session) dispatch(tr *state.Transaction) error {
	next, err := s.st.Apply(tr)
	if err != nil {
		return err
	}
	s.st = next
	return nil
}

// typeAt inserts text at pos, after advancing the clock by gap.
func (s *session) typeAt(pos int, text string, gap time.Duration) {
	s.t.Helper()
	s.now = s.now.Add(gap)
	tr := s.st.Tr().SetTime(s.now)
	require.NoError(s.t, tr.InsertTextAt(text, pos, pos))
	require.NoError(s.t, s.dispatch(tr))
}

func (s *session) run(cmd state.Command) bool {
	s.t.Helper()
	handled, err := cmd(s.st, s.dispatch)
	require.NoError(s.t, err)
	return handled
}

func (s *session) doc() string { return s.st.Doc().String() }

func TestUndoRedo(t *testing.T) {
	s := newSession(t, model.Doc(model.Paragraph(model.Text("ab"))))
	assert.False(t, s.run(Undo))
	assert.False(t, s.run(Redo))

	s.typeAt(3, "c", 0)
	assert.Equal(t, 1, UndoDepth(s.st))

	assert.True(t, s.run(Undo))
	assert.Equal(t, `doc(paragraph("ab"))`, s.doc())
	assert.Equal(t, 0, UndoDepth(s.st))
	assert.Equal(t, 1, RedoDepth(s.st))

	assert.True(t, s.run(Redo))
	assert.Equal(t, `doc(paragraph("abc"))`, s.doc())
	assert.Equal(t, 1, UndoDepth(s.st))
	assert.Equal(t, 0, RedoDepth(s.st))
}

func TestGrouping(t *testing.T) {
	testCases := []struct {
		name   string
		edits  func(s *session)
		depth  int
		undone string
	}{
		{
			name: "adjacent and quick",
			edits: func(s *session) {
				s.typeAt(3, "c", 0)
				s.typeAt(4, "d", 100*time.Millisecond)
			},
			depth:  1,
			undone: `doc(paragraph("ab"))`,
		},
		{
			name: "after the delay",
			edits: func(s *session) {
				s.typeAt(3, "c", 0)
				s.typeAt(4, "d", time.Second)
			},
			depth:  2,
			undone: `doc(paragraph("abc"))`,
		},
		{
			name: "not adjacent",
			edits: func(s *session) {
				s.typeAt(3, "c", 0)
				s.typeAt(1, "d", 100*time.Millisecond)
			},
			depth:  2,
			undone: `doc(paragraph("abc"))`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newSession(t, model.Doc(model.Paragraph(model.Text("ab"))))
			tc.edits(s)
			assert.Equal(t, tc.depth, UndoDepth(s.st))
			assert.True(t, s.run(Undo))
			assert.Equal(t, tc.undone, s.doc())
		})
	}
}

func TestNewChangeClearsRedo(t *testing.T) {
	s := newSession(t, model.Doc(model.Paragraph(model.Text("ab"))))
	s.typeAt(3, "c", 0)
	s.run(Undo)
	require.Equal(t, 1, RedoDepth(s.st))

	s.typeAt(1, "x", time.Second)
	assert.Equal(t, 0, RedoDepth(s.st))
	assert.Equal(t, 1, UndoDepth(s.st))
}

func TestAddToHistoryFalse(t *testing.T) {
	s := newSession(t, model.Doc(model.Paragraph(model.Text("ab"))))
	s.typeAt(3, "c", 0)

	// An untracked change before the tracked one moves it.
	tr := s.st.Tr().SetTime(s.now.Add(time.Second))
	require.NoError(t, tr.InsertTextAt("x", 1, 1))
	tr.SetMeta(state.MetaAddToHistory, false)
	require.NoError(t, s.dispatch(tr))
	assert.Equal(t, `doc(paragraph("xabc"))`, s.doc())
	assert.Equal(t, 1, UndoDepth(s.st))

	assert.True(t, s.run(Undo))
	assert.Equal(t, `doc(paragraph("xab"))`, s.doc())
	assert.False(t, s.run(Undo))
}

func TestUndoRestoresSelection(t *testing.T) {
	s := newSession(t, model.Doc(model.Paragraph(model.MathInline("x"))))
	sel, err := state.CreateNodeSelection(s.st.Doc(), 1)
	require.NoError(t, err)
	require.NoError(t, s.dispatch(s.st.Tr().SetSelection(sel)))

	tr := s.st.Tr()
	require.NoError(t, tr.DeleteSelection())
	require.NoError(t, s.dispatch(tr))
	assert.Equal(t, `doc(paragraph)`, s.doc())

	assert.True(t, s.run(Undo))
	assert.Equal(t, `doc(paragraph(math_inline("x")))`, s.doc())
	assert.Equal(t, "node(1)", s.st.Selection().String())
}

func TestDepth(t *testing.T) {
	s := newSession(t, model.Doc(model.Paragraph()), WithDepth(2), WithNewGroupDelay(0))
	s.typeAt(1, "a", time.Second)
	s.typeAt(2, "b", time.Second)
	s.typeAt(3, "c", time.Second)
	assert.Equal(t, 2, UndoDepth(s.st))
	s.run(Undo)
	s.run(Undo)
	assert.Equal(t, `doc(paragraph("a"))`, s.doc())
	assert.False(t, s.run(Undo))
}
