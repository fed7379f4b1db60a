package lower

import (
	"fmt"

	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// unsupportedOpError names an Instr.Op the lowerer doesn't yet translate.
// Opcodes outside this translator's scope never reach the lowerer at all
// (the frontend rejects them during decoding); this error exists for
// opcodes that are in scope but not yet wired into a lowerXxx dispatcher,
// so a gap surfaces as an explicit error instead of silently emitting
// nothing.
type unsupportedOpError struct {
	opc wasmir.Opcode
}

func (e *unsupportedOpError) Error() string {
	return fmt.Sprintf("lower: unsupported instruction (opcode %d)", int(e.opc))
}
