package glulxasm

import "fmt"

// LayoutError reports a fatal failure during assembly: an unresolved
// label, a branch displacement that doesn't fit its operand size, an image
// exceeding the 32-bit address space, or a misaligned/negative RAMSTART.
type LayoutError struct {
	Reason string
}

func NewLayoutError(reason string, args ...any) *LayoutError {
	return &LayoutError{Reason: fmt.Sprintf(reason, args...)}
}

func (e *LayoutError) Error() string {
	return "glulxasm: layout error: " + e.Reason
}
