package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// buildBitops32 emits the bit-counting primitives Glulx has no opcode for:
// count-leading-zeros, count-trailing-zeros, and population count. Each is
// a straightforward 32-iteration bit scan; internal/lower's i64 variants
// call these twice (once per word) and combine the results, since a 64-bit
// value's leading/trailing zero count only needs the second word when the
// first (the high word for clz, the low word for ctz) is entirely zero.
func buildBitops32(refs *Refs) []glulxasm.Item {
	items := buildClz32(refs)
	items = append(items, buildCtz32(refs)...)
	items = append(items, buildPopcnt32(refs)...)
	return items
}

// Params: 0=v. Locals: 4=bit 8=tmp.
func buildClz32(refs *Refs) []glulxasm.Item {
	L := refs.Clz32
	loop := glulxasm.NewLabel("clz32_loop")
	allZero := glulxasm.NewLabel("clz32_allzero")
	found := glulxasm.NewLabel("clz32_found")

	items := fnHeader(L, 3)
	items = append(items,
		op(glulxconst.OpCopy, false, imm(31), local(4)),
		&glulxasm.LabelDef{L: loop},
		op(glulxconst.OpJlt, false, local(4), imm(0), glulxasm.BranchOperand(allZero)),
		op(glulxconst.OpUShiftR, false, local(0), local(4), local(8)),
		op(glulxconst.OpBitAnd, false, local(8), imm(1), local(8)),
		op(glulxconst.OpJnz, false, local(8), glulxasm.BranchOperand(found)),
		op(glulxconst.OpSub, false, local(4), imm(1), local(4)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop)),
		&glulxasm.LabelDef{L: found},
		op(glulxconst.OpSub, false, imm(31), local(4), local(4)),
		ret(local(4)),
		&glulxasm.LabelDef{L: allZero},
		ret(imm(32)),
	)
	return items
}

// Params: 0=v. Locals: 4=bit 8=tmp.
func buildCtz32(refs *Refs) []glulxasm.Item {
	L := refs.Ctz32
	loop := glulxasm.NewLabel("ctz32_loop")
	found := glulxasm.NewLabel("ctz32_found")

	items := fnHeader(L, 3)
	items = append(items,
		op(glulxconst.OpCopy, false, imm(0), local(4)),
		&glulxasm.LabelDef{L: loop},
		op(glulxconst.OpJgeu, false, local(4), imm(32), glulxasm.BranchOperand(found)),
		op(glulxconst.OpUShiftR, false, local(0), local(4), local(8)),
		op(glulxconst.OpBitAnd, false, local(8), imm(1), local(8)),
		op(glulxconst.OpJnz, false, local(8), glulxasm.BranchOperand(found)),
		op(glulxconst.OpAdd, false, local(4), imm(1), local(4)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop)),
		&glulxasm.LabelDef{L: found},
		ret(local(4)),
	)
	return items
}

// Params: 0=v. Locals: 4=count 8=bit 12=tmp.
func buildPopcnt32(refs *Refs) []glulxasm.Item {
	L := refs.Popcnt32
	loop := glulxasm.NewLabel("popcnt32_loop")
	done := glulxasm.NewLabel("popcnt32_done")

	items := fnHeader(L, 4)
	items = append(items,
		op(glulxconst.OpCopy, false, imm(0), local(4)),
		op(glulxconst.OpCopy, false, imm(0), local(8)),
		&glulxasm.LabelDef{L: loop},
		op(glulxconst.OpJgeu, false, local(8), imm(32), glulxasm.BranchOperand(done)),
		op(glulxconst.OpUShiftR, false, local(0), local(8), local(12)),
		op(glulxconst.OpBitAnd, false, local(12), imm(1), local(12)),
		op(glulxconst.OpAdd, false, local(4), local(12), local(4)),
		op(glulxconst.OpAdd, false, local(8), imm(1), local(8)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop)),
		&glulxasm.LabelDef{L: done},
		ret(local(4)),
	)
	return items
}
