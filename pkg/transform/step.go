// Package transform implements document changes as first-class values:
// steps, the position maps they produce, and transforms that accumulate
// them.
package transform

import (
	"github.com/stateful/mathedit/pkg/model"
)

// Step is an atomic change. It generally applies only to the document it
// was created for, since the positions stored in it only make sense for
// that document.
type Step interface {
	// Apply applies the step to doc, returning a result that either
	// indicates failure or holds the transformed document.
	Apply(doc *model.Node) StepResult

	// GetMap returns the map describing the changes made by the step.
	GetMap() *StepMap

	// Invert creates an inverted version of the step. doc is the
	// document as it was before the step.
	Invert(doc *model.Node) Step

	// Map maps the step through mapping. It returns false when the
	// step was entirely deleted by the mapping.
	Map(mapping Mappable) (Step, bool)

	// Merge tries to merge the step with other, to be applied directly
	// after it.
	Merge(other Step) (Step, bool)
}

// StepResult is the result of applying a step: either a new document or a
// failure message.
type StepResult struct {
	Doc    *model.Node
	Failed string
}

// OK creates a successful step result.
func OK(doc *model.Node) StepResult {
	return StepResult{Doc: doc}
}

// Fail creates a failed step result.
func Fail(message string) StepResult {
	return StepResult{Failed: message}
}

// FromReplace calls Node.Replace and turns its error into a failed result.
func FromReplace(doc *model.Node, from, to int, slice model.Slice) StepResult {
	replaced, err := doc.Replace(from, to, slice)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(replaced)
}
