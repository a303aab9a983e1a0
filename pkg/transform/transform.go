package transform

import (
	"github.com/pkg/errors"

	"github.com/stateful/mathedit/pkg/model"
)

// ErrStepFailed is returned when a step cannot be applied to the current
// document of a transform.
var ErrStepFailed = errors.New("step failed")

// Transform accumulates steps applied to a document. It keeps the
// intermediate documents and a mapping through all steps.
type Transform struct {
	doc     *model.Node
	steps   []Step
	docs    []*model.Node
	mapping *Mapping
}

// New creates a transform starting at doc.
func New(doc *model.Node) *Transform {
	return &Transform{doc: doc, mapping: NewMapping()}
}

// Doc returns the current document.
func (t *Transform) Doc() *model.Node { return t.doc }

// Before returns the document before any step was applied.
func (t *Transform) Before() *model.Node {
	if len(t.docs) > 0 {
		return t.docs[0]
	}
	return t.doc
}

func (t *Transform) Steps() []Step { return t.steps }

// Docs returns the document before each step.
func (t *Transform) Docs() []*model.Node { return t.docs }

func (t *Transform) Mapping() *Mapping { return t.mapping }

// DocChanged reports whether any step was applied.
func (t *Transform) DocChanged() bool { return len(t.steps) > 0 }

// Step applies step and returns an error wrapping ErrStepFailed when it
// does not apply to the current document.
func (t *Transform) Step(step Step) error {
	result := t.MaybeStep(step)
	if result.Failed != "" {
		return errors.Wrap(ErrStepFailed, result.Failed)
	}
	return nil
}

// MaybeStep tries to apply step and reports the result without failing.
func (t *Transform) MaybeStep(step Step) StepResult {
	result := step.Apply(t.doc)
	if result.Failed == "" {
		t.addStep(step, result.Doc)
	}
	return result
}

func (t *Transform) addStep(step Step, doc *model.Node) {
	t.docs = append(t.docs, t.doc)
	t.steps = append(t.steps, step)
	t.mapping.AppendMap(step.GetMap())
	t.doc = doc
}

// Replace replaces [from, to) with slice. Replacing an empty range with
// an empty slice adds no step.
func (t *Transform) Replace(from, to int, slice model.Slice) error {
	if from == to && slice.Size() == 0 {
		return nil
	}
	return t.Step(NewReplaceStep(from, to, slice))
}

// ReplaceWith replaces [from, to) with the given nodes.
func (t *Transform) ReplaceWith(from, to int, nodes ...*model.Node) error {
	return t.Replace(from, to, model.SliceOf(nodes...))
}

// Insert inserts nodes at pos.
func (t *Transform) Insert(pos int, nodes ...*model.Node) error {
	return t.ReplaceWith(pos, pos, nodes...)
}

// Delete removes the content between from and to.
func (t *Transform) Delete(from, to int) error {
	return t.Replace(from, to, model.EmptySlice)
}

// InsertTextAt replaces [from, to) with text.
func (t *Transform) InsertTextAt(text string, from, to int) error {
	if text == "" {
		return t.Delete(from, to)
	}
	node, err := model.NewText(text)
	if err != nil {
		return err
	}
	return t.ReplaceWith(from, to, node)
}
