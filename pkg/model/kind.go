package model

import "fmt"

// Kind is a closed enumeration of node types known to the editor.
type Kind int

const (
	KindDoc Kind = iota + 1
	KindParagraph
	KindText
	KindMathInline
	KindMathDisplay
)

// Kinds lists all node kinds in declaration order.
var Kinds = []Kind{
	KindDoc,
	KindParagraph,
	KindText,
	KindMathInline,
	KindMathDisplay,
}

func (k Kind) String() string {
	switch k {
	case KindDoc:
		return "doc"
	case KindParagraph:
		return "paragraph"
	case KindText:
		return "text"
	case KindMathInline:
		return "math_inline"
	case KindMathDisplay:
		return "math_display"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsMath reports whether k is one of the math node kinds.
func (k Kind) IsMath() bool {
	switch k {
	case KindMathInline, KindMathDisplay:
		return true
	case KindDoc, KindParagraph, KindText:
		return false
	default:
		panic(fmt.Sprintf("unknown node kind %d", int(k)))
	}
}

// IsInline reports whether nodes of this kind belong to the inline group.
func (k Kind) IsInline() bool {
	switch k {
	case KindText, KindMathInline:
		return true
	case KindDoc, KindParagraph, KindMathDisplay:
		return false
	default:
		panic(fmt.Sprintf("unknown node kind %d", int(k)))
	}
}

// IsAtom reports whether the outer editor treats nodes of this kind as
// a single unit for cursor traversal and selection.
func (k Kind) IsAtom() bool {
	return k.IsMath()
}

// IsCode reports whether the content of the kind is code-like,
// meaning newlines are inserted literally.
func (k Kind) IsCode() bool {
	return k == KindMathDisplay
}

// InlineContent reports whether nodes of this kind hold inline content.
func (k Kind) InlineContent() bool {
	switch k {
	case KindParagraph, KindMathInline, KindMathDisplay:
		return true
	case KindDoc, KindText:
		return false
	default:
		panic(fmt.Sprintf("unknown node kind %d", int(k)))
	}
}

// IsTextblock reports whether nodes of this kind are blocks with inline content.
func (k Kind) IsTextblock() bool {
	return !k.IsInline() && k.InlineContent()
}

// TagName is the DOM tag the kind serializes to.
func (k Kind) TagName() string {
	switch k {
	case KindDoc:
		return "div"
	case KindParagraph:
		return "p"
	case KindText:
		return ""
	case KindMathInline:
		return "math-inline"
	case KindMathDisplay:
		return "math-display"
	default:
		panic(fmt.Sprintf("unknown node kind %d", int(k)))
	}
}

// Allows reports whether a node of kind k may directly contain a child of kind child.
func (k Kind) Allows(child Kind) bool {
	switch k {
	case KindDoc:
		return child == KindParagraph || child == KindMathDisplay
	case KindParagraph:
		return child == KindText || child == KindMathInline
	case KindMathInline, KindMathDisplay:
		return child == KindText
	case KindText:
		return false
	default:
		panic(fmt.Sprintf("unknown node kind %d", int(k)))
	}
}

// AllowsMarks reports whether text inside a node of kind k may carry marks.
// Math nodes hold raw source text.
func (k Kind) AllowsMarks() bool {
	return !k.IsMath()
}

// CompatibleContent reports whether the content of k can be joined onto other.
func (k Kind) CompatibleContent(other Kind) bool {
	if k == other {
		return true
	}
	return k.InlineContent() && other.InlineContent() && !k.IsCode() && !other.IsCode()
}

// KindByName resolves a kind from its schema name.
func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// MarkKind is a closed enumeration of mark types.
type MarkKind int

const (
	// MarkMathSelect is a zero-width styling mark used to highlight
	// selected math.
	MarkMathSelect MarkKind = iota + 1
)

func (k MarkKind) String() string {
	switch k {
	case MarkMathSelect:
		return "math_select"
	default:
		return fmt.Sprintf("MarkKind(%d)", int(k))
	}
}

// TagName is the DOM tag the mark serializes to.
func (k MarkKind) TagName() string {
	switch k {
	case MarkMathSelect:
		return "math-select"
	default:
		panic(fmt.Sprintf("unknown mark kind %d", int(k)))
	}
}

// Mark is a piece of information attached to inline text.
type Mark struct {
	Kind MarkKind
}

func sameMarks(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
