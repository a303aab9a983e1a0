package state

import (
	"time"

	"github.com/pkg/errors"

	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/transform"
)

// Well-known metadata keys.
const (
	// MetaAddToHistory set to false keeps a transaction out of the undo history.
	MetaAddToHistory = "addToHistory"
	// MetaAppendedTransaction holds the root transaction of a transaction
	// appended by a plugin.
	MetaAppendedTransaction = "appendedTransaction"
	// MetaUIEvent names the input event that produced a transaction.
	MetaUIEvent = "uiEvent"
)

// Transaction is a transform that also tracks the selection and carries
// metadata. It is created with EditorState.Tr.
type Transaction struct {
	*transform.Transform

	time            time.Time
	curSelection    Selection
	curSelectionFor int
	selectionSet    bool
	meta            map[any]any
}

func newTransaction(st *EditorState) *Transaction {
	return &Transaction{
		Transform:    transform.New(st.doc),
		time:         time.Now(),
		curSelection: st.selection,
	}
}

// Time is the timestamp of the transaction.
func (tr *Transaction) Time() time.Time { return tr.time }

// SetTime overrides the transaction timestamp.
func (tr *Transaction) SetTime(t time.Time) *Transaction {
	tr.time = t
	return tr
}

// Selection returns the selection, mapped through the steps applied so far.
func (tr *Transaction) Selection() Selection {
	if steps := len(tr.Steps()); tr.curSelectionFor < steps {
		tr.curSelection = tr.curSelection.Map(tr.Doc(), tr.Mapping().Slice(tr.curSelectionFor, steps))
		tr.curSelectionFor = steps
	}
	return tr.curSelection
}

// SetSelection updates the selection. sel must be resolved in the
// transaction's current document.
func (tr *Transaction) SetSelection(sel Selection) *Transaction {
	tr.curSelection = sel
	tr.curSelectionFor = len(tr.Steps())
	tr.selectionSet = true
	return tr
}

// SelectionSet reports whether the selection was explicitly set.
func (tr *Transaction) SelectionSet() bool { return tr.selectionSet }

// SetMeta stores metadata under key.
func (tr *Transaction) SetMeta(key any, value any) *Transaction {
	if tr.meta == nil {
		tr.meta = make(map[any]any)
	}
	tr.meta[key] = value
	return tr
}

// GetMeta returns the metadata stored under key.
func (tr *Transaction) GetMeta(key any) (any, bool) {
	v, ok := tr.meta[key]
	return v, ok
}

// InsertText replaces the selection with text. An empty text deletes
// the selection.
func (tr *Transaction) InsertText(text string) error {
	if text == "" {
		return tr.DeleteSelection()
	}
	node, err := model.NewText(text)
	if err != nil {
		return err
	}
	return tr.ReplaceSelectionWith(node)
}

// DeleteSelection deletes the selected content.
func (tr *Transaction) DeleteSelection() error {
	return tr.ReplaceSelection(model.EmptySlice)
}

// ReplaceSelection replaces the selection with slice and places the
// cursor at the end of the inserted content.
func (tr *Transaction) ReplaceSelection(slice model.Slice) error {
	sel := tr.Selection()
	rFrom, rTo := sel.ResolvedFrom(), sel.ResolvedTo()
	slice = fitSlice(rFrom, rTo, slice)

	lastNode := slice.Content.LastChild()
	var lastParent *model.Node
	for i := 0; i < slice.OpenEnd && lastNode != nil; i++ {
		lastParent = lastNode
		lastNode = lastNode.Content().LastChild()
	}
	bias := 1
	if (lastNode != nil && lastNode.IsInline()) || (lastNode == nil && lastParent != nil && lastParent.IsTextblock()) {
		bias = -1
	}

	mapFrom := len(tr.Steps())
	if err := tr.Replace(rFrom.Pos, rTo.Pos, slice); err != nil {
		return err
	}
	tr.selectionToInsertionEnd(mapFrom, bias)
	return nil
}

// ReplaceSelectionWith replaces the selection with node.
func (tr *Transaction) ReplaceSelectionWith(node *model.Node) error {
	sel := tr.Selection()
	mapFrom := len(tr.Steps())
	if err := tr.ReplaceRangeWith(sel.From(), sel.To(), node); err != nil {
		return err
	}
	bias := 1
	if node.IsInline() {
		bias = -1
	}
	tr.selectionToInsertionEnd(mapFrom, bias)
	return nil
}

// ReplaceRangeWith replaces [from, to) with node. A block node placed
// inside a textblock replaces the textblock when it is empty, moves to
// the textblock boundary when placed at one, and splits the textblock
// otherwise.
func (tr *Transaction) ReplaceRangeWith(from, to int, node *model.Node) error {
	if node.IsInline() {
		return tr.ReplaceWith(from, to, node)
	}
	rFrom, err := tr.Doc().Resolve(from)
	if err != nil {
		return err
	}
	parent := rFrom.Parent()
	if !parent.IsTextblock() || rFrom.Depth == 0 {
		return tr.ReplaceWith(from, to, node)
	}
	if from != to {
		if err := tr.Delete(from, to); err != nil {
			return err
		}
		to = from
		if rFrom, err = tr.Doc().Resolve(from); err != nil {
			return err
		}
		parent = rFrom.Parent()
	}
	if parent.Content().Size() == 0 {
		return tr.ReplaceWith(rFrom.Before(rFrom.Depth), rFrom.After(rFrom.Depth), node)
	}
	if point, ok := insertPoint(rFrom, node.Kind()); ok {
		return tr.ReplaceWith(point, point, node)
	}
	split := model.NewSlice(model.NewFragment(parent.Copy(model.Fragment{}), node, parent.Copy(model.Fragment{})), 1, 1)
	return tr.Replace(from, to, split)
}

func insertPoint(rPos *model.ResolvedPos, kind model.Kind) (int, bool) {
	if rPos.ParentOffset == 0 {
		for d := rPos.Depth - 1; d >= 0; d-- {
			index := rPos.Index(d)
			if rPos.Node(d).CanReplaceWith(index, index, kind) {
				return rPos.Before(d + 1), true
			}
			if index > 0 {
				return 0, false
			}
		}
	}
	if rPos.ParentOffset == rPos.Parent().Content().Size() {
		for d := rPos.Depth - 1; d >= 0; d-- {
			index := rPos.IndexAfter(d)
			if rPos.Node(d).CanReplaceWith(index, index, kind) {
				return rPos.After(d + 1), true
			}
			if index < rPos.Node(d).ChildCount() {
				return 0, false
			}
		}
	}
	return 0, false
}

// fitSlice adjusts the open sides of slice so that it can be placed
// between rFrom and rTo: block content dropped into a textblock is
// opened with an empty textblock, open content dropped between blocks
// is closed.
func fitSlice(rFrom, rTo *model.ResolvedPos, slice model.Slice) model.Slice {
	if slice.Content.Size() == 0 {
		return slice
	}
	content, openStart, openEnd := slice.Content, slice.OpenStart, slice.OpenEnd
	first, last := content.FirstChild(), content.LastChild()
	if rFrom.Parent().IsTextblock() && rFrom.Depth > 0 {
		if openStart == 0 && first.IsBlock() {
			content = model.NewFragment(rFrom.Parent().Copy(model.Fragment{})).Append(content)
			openStart = 1
		}
	} else if openStart > 0 && first.IsBlock() {
		openStart = 0
	}
	if rTo.Parent().IsTextblock() && rTo.Depth > 0 {
		if openEnd == 0 && last.IsBlock() {
			content = content.Append(model.NewFragment(rTo.Parent().Copy(model.Fragment{})))
			openEnd = 1
		}
	} else if openEnd > 0 && last.IsBlock() {
		openEnd = 0
	}
	return model.NewSlice(content, openStart, openEnd)
}

func (tr *Transaction) selectionToInsertionEnd(startLen, bias int) {
	last := len(tr.Steps()) - 1
	if last < startLen {
		return
	}
	if _, ok := tr.Steps()[last].(*transform.ReplaceStep); !ok {
		return
	}
	end := -1
	tr.Mapping().Maps()[last].ForEach(func(_, _, _, newTo int) {
		if end < 0 {
			end = newTo
		}
	})
	if end < 0 {
		return
	}
	tr.SetSelection(Near(tr.Doc().MustResolve(end), bias))
}

// SetBlockType changes every textblock between from and to into a node
// of kind. Converting into math keeps only the text of the block.
func (tr *Transaction) SetBlockType(from, to int, kind model.Kind) error {
	if !kind.IsTextblock() {
		return errors.Errorf("%s is not a textblock", kind)
	}
	type target struct {
		pos  int
		node *model.Node
	}
	var targets []target
	tr.Doc().NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsTextblock() {
			return true
		}
		if node.Kind() != kind {
			targets = append(targets, target{pos: pos, node: node})
		}
		return false
	})
	mapFrom := len(tr.Steps())
	for _, t := range targets {
		content := t.node.Content()
		if kind.IsMath() {
			content = model.Fragment{}
			if text := t.node.TextContent(); text != "" {
				content = model.NewFragment(model.Text(text))
			}
		}
		replacement, err := model.New(kind, nil, content)
		if err != nil {
			return errors.Wrapf(err, "set block type at %d", t.pos)
		}
		pos := tr.Mapping().Slice(mapFrom, len(tr.Steps())).Map(t.pos, 1)
		if err := tr.ReplaceWith(pos, pos+t.node.NodeSize(), replacement); err != nil {
			return err
		}
	}
	return nil
}
