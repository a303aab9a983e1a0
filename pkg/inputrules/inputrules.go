// Package inputrules runs typed text against patterns and lets matching
// rules replace what was typed.
package inputrules

import (
	"regexp"
	"unicode/utf8"

	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

// maxMatch is how many characters before the cursor rules can see.
const maxMatch = 500

// leafText stands in for atoms in the text rules match against.
const leafText = "\ufffc"

// Handler builds the transaction for a match. start and end delimit the
// matched text in the document, where the last len(typed) characters
// are not inserted yet. Returning nil declines the match.
type Handler func(st *state.EditorState, match []string, start, end int) (*state.Transaction, error)

// InputRule fires when the text before the cursor, including the typed
// text, matches Match. Match should be anchored with $.
type InputRule struct {
	Match   *regexp.Regexp
	Handler Handler
}

// New creates a plugin running rules on text input. The first rule that
// returns a transaction wins.
func New(rules ...InputRule) *state.Plugin {
	return &state.Plugin{Props: &view.Props{
		HandleTextInput: func(v *view.EditorView, from, to int, text string) (bool, error) {
			return run(v.State(), v.Dispatch, rules, from, to, text)
		},
	}}
}

func run(st *state.EditorState, dispatch state.DispatchFunc, rules []InputRule, from, to int, text string) (bool, error) {
	rFrom, err := st.Doc().Resolve(from)
	if err != nil {
		return false, err
	}
	if !rFrom.Parent().InlineContent() || rFrom.Parent().Kind().IsCode() {
		return false, nil
	}
	parent := rFrom.Parent()
	before := parent.TextBetween(max(0, rFrom.ParentOffset-maxMatch), rFrom.ParentOffset, "", leafText) + text
	typed := utf8.RuneCountInString(text)

	for _, rule := range rules {
		match := rule.Match.FindStringSubmatch(before)
		if match == nil {
			continue
		}
		start := from - (utf8.RuneCountInString(match[0]) - typed)
		tr, err := rule.Handler(st, match, start, to)
		if err != nil {
			return false, err
		}
		if tr == nil {
			continue
		}
		return true, dispatch(tr)
	}
	return false, nil
}
