package lower

import "github.com/glulxfic/wasm2glulx/internal/glulxasm"

// controlFrameKind classifies a structured block.
type controlFrameKind byte

const (
	frameBlock controlFrameKind = iota
	frameLoop
	frameIf
)

// controlFrame is one entry in the lowerer's control-flow stack, one per
// currently-open WASM block/loop/if.
type controlFrame struct {
	kind controlFrameKind

	// label is the branch target: the block/if's *exit* label, or the
	// loop's *entry* label.
	label *glulxasm.Label

	// elseLabel is only set for "if" frames reached via the then-branch;
	// it is the label the initial conditional jump targets when the
	// condition is false.
	elseLabel *glulxasm.Label
	// sawElse is never set or read: lowerIf defines elseLabel itself, and
	// an if with no else arm uses its exit label as elseLabel.
	sawElse bool

	// paramCount/resultCount describe the block's arity. A branch to a
	// loop frame materializes paramCount values (the loop re-enters with
	// its parameters on the stack); a branch to a block/if frame
	// materializes resultCount values.
	paramCount, resultCount int
	resultWidths            []widthClass

	// stackHeightAtEntry is the abstract stack height when this frame was
	// opened, after popping the block's own parameters off the enclosing
	// stack (so height+paramCount is where those params live).
	stackHeightAtEntry int

	// unreachable marks that an `unreachable`/untaken-branch point made
	// the rest of this frame's straight-line code dead; the lowerer stops
	// tracking precise stack shape until the next structured boundary,
	// matching how WASM validation treats code after an unconditional
	// branch.
	unreachable bool
}

// branchArity returns how many values a branch to this frame carries: the
// parameter count for a loop, the result count otherwise.
func (f *controlFrame) branchArity() int {
	if f.kind == frameLoop {
		return f.paramCount
	}
	return f.resultCount
}
