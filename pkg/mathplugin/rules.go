package mathplugin

import (
	"regexp"
	"unicode/utf8"

	"github.com/stateful/mathedit/pkg/inputrules"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
)

var (
	// An opening dollar must not follow a backslash and the source must
	// not end in one, so \$ never delimits.
	inlineMathDollars = regexp.MustCompile(`(^|[^\\])\$(.*[^\\])\$$`)
	blockMathDollars  = regexp.MustCompile(`^\$\$\s+$`)
)

// InlineMathRule turns $expr$ into an inline math node holding expr and
// puts the cursor after it.
func InlineMathRule() inputrules.InputRule {
	return inputrules.InputRule{
		Match: inlineMathDollars,
		Handler: func(st *state.EditorState, match []string, start, end int) (*state.Transaction, error) {
			start += utf8.RuneCountInString(match[1])
			rStart, err := st.Doc().Resolve(start)
			if err != nil {
				return nil, err
			}
			rEnd, err := st.Doc().Resolve(end)
			if err != nil {
				return nil, err
			}
			if !rStart.SameParent(rEnd) || !rStart.Parent().CanReplaceWith(rStart.Index(rStart.Depth), rEnd.Index(rEnd.Depth), model.KindMathInline) {
				return nil, nil
			}
			node := model.MathInline(match[2])
			tr := st.Tr()
			if err := tr.ReplaceRangeWith(start, end, node); err != nil {
				return nil, err
			}
			sel, err := state.Cursor(tr.Doc(), start+node.NodeSize())
			if err != nil {
				return nil, err
			}
			return tr.SetSelection(sel), nil
		},
	}
}

// BlockMathRule turns a textblock starting with $$ and whitespace into a
// display math node and selects it, which opens it for editing.
func BlockMathRule() inputrules.InputRule {
	return inputrules.InputRule{
		Match: blockMathDollars,
		Handler: func(st *state.EditorState, _ []string, start, end int) (*state.Transaction, error) {
			rStart, err := st.Doc().Resolve(start)
			if err != nil {
				return nil, err
			}
			depth := rStart.Depth - 1
			if depth < 0 || !rStart.Node(depth).CanReplaceWith(rStart.Index(depth), rStart.IndexAfter(depth), model.KindMathDisplay) {
				return nil, nil
			}
			tr := st.Tr()
			if err := tr.Delete(start, end); err != nil {
				return nil, err
			}
			if err := tr.SetBlockType(start, start, model.KindMathDisplay); err != nil {
				return nil, err
			}
			sel, err := state.CreateNodeSelection(tr.Doc(), tr.Mapping().Map(rStart.Before(rStart.Depth), -1))
			if err != nil {
				return nil, err
			}
			return tr.SetSelection(sel), nil
		},
	}
}

// InputRules returns a plugin running both math input rules.
func InputRules() *state.Plugin {
	return inputrules.New(InlineMathRule(), BlockMathRule())
}
