package glulxasm

import "fmt"

// Label is a symbolic address: declared when emitted into an item stream,
// resolved to a byte offset by the Assembler. Every label must resolve
// exactly once; resolving twice or
// using an unresolved label past assembly is a programmer error in this
// package's callers (the lowerer, layout planner, or prelude) and is
// reported as a LayoutError rather than panicking, so a malformed module
// cannot crash the translator.
type Label struct {
	// Name is used only for diagnostics (panics, String(), --text output).
	Name string

	resolved bool
	offset   uint32
}

// NewLabel creates an unresolved label for diagnostic purposes.
func NewLabel(name string) *Label {
	return &Label{Name: name}
}

func (l *Label) String() string {
	if l.resolved {
		return fmt.Sprintf("%s@%#x", l.Name, l.offset)
	}
	return l.Name + "@?"
}

// IsResolved reports whether the assembler has assigned this label a final
// offset.
func (l *Label) IsResolved() bool { return l.resolved }

// Offset returns the resolved byte offset. Panics if unresolved; callers
// must only read this after Assembler.Assemble returns successfully.
func (l *Label) Offset() uint32 {
	if !l.resolved {
		panic("glulxasm: Offset() read before label " + l.Name + " was resolved")
	}
	return l.offset
}
