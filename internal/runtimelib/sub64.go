package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// buildSub64 mirrors buildAdd64 with borrow propagation instead of carry:
// a borrow out of the low-word subtraction occurs exactly when a_lo < b_lo
// (unsigned), and that borrow is subtracted from the high word.
//
// Params: 0=a_lo 4=a_hi 8=b_lo 12=b_hi. Locals: 16=lo 20=hi.
func buildSub64(refs *Refs) []glulxasm.Item {
	L := refs.Sub64
	borrow := glulxasm.NewLabel("sub64_borrow")
	done := glulxasm.NewLabel("sub64_done")

	items := fnHeader(L, 6)
	items = append(items,
		op(glulxconst.OpSub, false, local(0), local(8), local(16)),
		op(glulxconst.OpJltu, false, local(0), local(8), glulxasm.BranchOperand(borrow)),
		op(glulxconst.OpSub, false, local(4), local(12), local(20)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(done)),
		&glulxasm.LabelDef{L: borrow},
		op(glulxconst.OpSub, false, local(4), local(12), local(20)),
		op(glulxconst.OpSub, false, local(20), imm(1), local(20)),
		&glulxasm.LabelDef{L: done},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(local(16)),
	)
	return items
}
