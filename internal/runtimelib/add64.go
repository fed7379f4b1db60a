package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// buildAdd64 implements 64-bit addition as two 32-bit adds with manual
// carry propagation: the low words are added first, and an unsigned
// less-than check against either input detects whether that add wrapped,
// which is the carry bit into the high-word add. This is the textbook
// technique software 64-bit-on-32-bit runtimes use (e.g. compiler-rt's
// __adddi3), reproduced here because Glulx's `add` opcode only operates on
// 32-bit words and produces no carry flag of its own.
//
// Params (frame offsets): 0=a_lo 4=a_hi 8=b_lo 12=b_hi. Locals: 16=lo 20=hi.
func buildAdd64(refs *Refs) []glulxasm.Item {
	L := refs.Add64
	carry := glulxasm.NewLabel("add64_carry")
	done := glulxasm.NewLabel("add64_done")

	items := fnHeader(L, 6)
	items = append(items,
		op(glulxconst.OpAdd, false, local(0), local(8), local(16)),
		op(glulxconst.OpJltu, false, local(16), local(0), glulxasm.BranchOperand(carry)),
		op(glulxconst.OpAdd, false, local(4), local(12), local(20)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(done)),
		&glulxasm.LabelDef{L: carry},
		op(glulxconst.OpAdd, false, local(4), local(12), local(20)),
		op(glulxconst.OpAdd, false, local(20), imm(1), local(20)),
		&glulxasm.LabelDef{L: done},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(local(16)),
	)
	return items
}
