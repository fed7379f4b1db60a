package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// buildShift64 emits the three i64 shift operators. WASM masks the shift
// amount to the low 6 bits (shift distances are taken mod 64), which a single
// Glulx `bitand` against 63 reproduces directly.
//
// Each routine handles the "shift amount >= 32" and "shift amount < 32" cases
// separately, since a 32-bit-word shift opcode given a count >= 32 is
// undefined/not guaranteed to produce an all-zero or all-one word the way
// the combined 64-bit result needs.
func buildShift64(refs *Refs) []glulxasm.Item {
	items := buildShl64(refs)
	items = append(items, buildShru64(refs)...)
	items = append(items, buildShrs64(refs)...)
	return items
}

// Params: 0=lo 4=hi 8=amount. Locals: 12=amount(masked) 16=lo 20=hi.
func buildShl64(refs *Refs) []glulxasm.Item {
	L := refs.ShlI64
	wide := glulxasm.NewLabel("shl64_wide")
	done := glulxasm.NewLabel("shl64_done")

	items := fnHeader(L, 6)
	items = append(items,
		op(glulxconst.OpBitAnd, false, local(8), imm(63), local(12)),
		op(glulxconst.OpJgeu, false, local(12), imm(32), glulxasm.BranchOperand(wide)),
		// amount in [0,31]: hi = (hi << amount) | (lo >> (32-amount)), lo <<= amount.
		// amount==0 would make the complementary right-shift by 32 undefined,
		// so it returns the input unchanged via the Jz check below.
		op(glulxconst.OpCopy, false, local(0), local(16)),
		op(glulxconst.OpCopy, false, local(4), local(20)),
		op(glulxconst.OpJz, false, local(12), glulxasm.BranchOperand(done)),
		op(glulxconst.OpShiftL, false, local(4), local(12), local(20)),
		op(glulxconst.OpSub, false, imm(32), local(12), local(16)),
		op(glulxconst.OpUShiftR, false, local(0), local(16), local(16)),
		op(glulxconst.OpBitOr, false, local(20), local(16), local(20)),
		op(glulxconst.OpShiftL, false, local(0), local(12), local(16)),
		&glulxasm.LabelDef{L: done},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(local(16)),
		&glulxasm.LabelDef{L: wide},
		// amount in [32,63]: hi = lo << (amount-32), lo = 0.
		op(glulxconst.OpSub, false, local(12), imm(32), local(12)),
		op(glulxconst.OpShiftL, false, local(0), local(12), local(20)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(imm(0)),
	)
	return items
}

// Params: 0=lo 4=hi 8=amount.
func buildShru64(refs *Refs) []glulxasm.Item {
	L := refs.ShrU64
	wide := glulxasm.NewLabel("shru64_wide")
	done := glulxasm.NewLabel("shru64_done")

	items := fnHeader(L, 6)
	items = append(items,
		op(glulxconst.OpBitAnd, false, local(8), imm(63), local(12)),
		op(glulxconst.OpJgeu, false, local(12), imm(32), glulxasm.BranchOperand(wide)),
		op(glulxconst.OpCopy, false, local(0), local(16)),
		op(glulxconst.OpCopy, false, local(4), local(20)),
		op(glulxconst.OpJz, false, local(12), glulxasm.BranchOperand(done)),
		op(glulxconst.OpUShiftR, false, local(0), local(12), local(16)),
		op(glulxconst.OpSub, false, imm(32), local(12), local(0)),
		op(glulxconst.OpShiftL, false, local(4), local(0), local(0)),
		op(glulxconst.OpBitOr, false, local(16), local(0), local(16)),
		op(glulxconst.OpUShiftR, false, local(4), local(12), local(20)),
		&glulxasm.LabelDef{L: done},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(local(16)),
		&glulxasm.LabelDef{L: wide},
		op(glulxconst.OpSub, false, local(12), imm(32), local(12)),
		op(glulxconst.OpUShiftR, false, local(4), local(12), local(16)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(local(16)),
	)
	return items
}

// Params: 0=lo 4=hi 8=amount.
func buildShrs64(refs *Refs) []glulxasm.Item {
	L := refs.ShrS64
	wide := glulxasm.NewLabel("shrs64_wide")
	done := glulxasm.NewLabel("shrs64_done")

	items := fnHeader(L, 6)
	items = append(items,
		op(glulxconst.OpBitAnd, false, local(8), imm(63), local(12)),
		op(glulxconst.OpJgeu, false, local(12), imm(32), glulxasm.BranchOperand(wide)),
		op(glulxconst.OpCopy, false, local(0), local(16)),
		op(glulxconst.OpCopy, false, local(4), local(20)),
		op(glulxconst.OpJz, false, local(12), glulxasm.BranchOperand(done)),
		op(glulxconst.OpUShiftR, false, local(0), local(12), local(16)),
		op(glulxconst.OpSub, false, imm(32), local(12), local(0)),
		op(glulxconst.OpShiftL, false, local(4), local(0), local(0)),
		op(glulxconst.OpBitOr, false, local(16), local(0), local(16)),
		op(glulxconst.OpSShiftR, false, local(4), local(12), local(20)),
		&glulxasm.LabelDef{L: done},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(local(16)),
		&glulxasm.LabelDef{L: wide},
		// amount in [32,63]: result is hi's sign replicated throughout both
		// words; arithmetic-shifting hi by 31 produces an all-sign-bit word.
		op(glulxconst.OpSub, false, local(12), imm(32), local(12)),
		op(glulxconst.OpSShiftR, false, local(4), local(12), local(16)),
		op(glulxconst.OpSShiftR, false, local(4), imm(31), local(20)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(local(16)),
	)
	return items
}
