package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// buildWidemul32 computes the full 64-bit product of two unsigned 32-bit
// words. Glulx's `mul` truncates to 32 bits, so there is no native way to
// recover a product's high half; this splits each operand into 16-bit
// halves and combines the four 16x16 partial products, the same halving
// trick compiler-rt's __muldi3 support routines use on targets without a
// widening multiply instruction.
//
// Params: 0=a 4=b. Locals: 8=aL 12=aH 16=bL 20=bH 24=t0 28=t1 32=t2 36=t3
// 40=mid 44=carryMid 48=low 52=carryLow 56=hi.
func buildWidemul32(entry *glulxasm.Label, hiResult *glulxasm.Label) []glulxasm.Item {
	carryMidSet := glulxasm.NewLabel("widemul32_carrymidset")
	carryMidDone := glulxasm.NewLabel("widemul32_carrymiddone")
	lowCarrySet := glulxasm.NewLabel("widemul32_lowcarryset")
	lowCarryDone := glulxasm.NewLabel("widemul32_lowcarrydone")

	items := fnHeader(entry, 15)
	items = append(items,
		op(glulxconst.OpBitAnd, false, local(0), imm(0xFFFF), local(8)),
		op(glulxconst.OpUShiftR, false, local(0), imm(16), local(12)),
		op(glulxconst.OpBitAnd, false, local(4), imm(0xFFFF), local(16)),
		op(glulxconst.OpUShiftR, false, local(4), imm(16), local(20)),

		op(glulxconst.OpMul, false, local(8), local(16), local(24)),  // t0 = aL*bL
		op(glulxconst.OpMul, false, local(8), local(20), local(28)),  // t1 = aL*bH
		op(glulxconst.OpMul, false, local(12), local(16), local(32)), // t2 = aH*bL
		op(glulxconst.OpMul, false, local(12), local(20), local(36)), // t3 = aH*bH

		op(glulxconst.OpAdd, false, local(28), local(32), local(40)), // mid = t1+t2
		op(glulxconst.OpJltu, false, local(40), local(28), glulxasm.BranchOperand(carryMidSet)),
		op(glulxconst.OpCopy, false, imm(0), local(44)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(carryMidDone)),
		&glulxasm.LabelDef{L: carryMidSet},
		op(glulxconst.OpCopy, false, imm(1), local(44)),
		&glulxasm.LabelDef{L: carryMidDone},

		// low = t0 + (mid << 16)
		op(glulxconst.OpShiftL, false, local(40), imm(16), local(48)),
		op(glulxconst.OpAdd, false, local(24), local(48), local(48)),
		op(glulxconst.OpJltu, false, local(48), local(24), glulxasm.BranchOperand(lowCarrySet)),
		op(glulxconst.OpCopy, false, imm(0), local(52)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(lowCarryDone)),
		&glulxasm.LabelDef{L: lowCarrySet},
		op(glulxconst.OpCopy, false, imm(1), local(52)),
		&glulxasm.LabelDef{L: lowCarryDone},

		// hi = t3 + ((mid >>> 16) + (carryMid << 16)) + carryLow
		op(glulxconst.OpUShiftR, false, local(40), imm(16), local(56)),
		op(glulxconst.OpShiftL, false, local(44), imm(16), local(44)),
		op(glulxconst.OpAdd, false, local(56), local(44), local(56)),
		op(glulxconst.OpAdd, false, local(56), local(36), local(56)),
		op(glulxconst.OpAdd, false, local(56), local(52), local(56)),

		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(hiResult, 0), imm(0), local(56)),
		ret(local(48)),
	)
	return items
}

// buildMul64 computes the low 64 bits of a 64x64 product (WASM i64.mul
// semantics discard overflow beyond 64 bits, so only low(a)*low(b)'s full
// width plus the two cross terms' low words are needed — the high*high term
// never contributes to the low 64 bits of the result).
//
// Params: 0=a_lo 4=a_hi 8=b_lo 12=b_hi. Locals: 16=lo 20=hi 24=cross.
func buildMul64(refs *Refs) []glulxasm.Item {
	widemul32 := glulxasm.NewLabel("rt_widemul32")
	L := refs.Mul64

	items := buildWidemul32(widemul32, refs.HiResult)
	items = append(items, fnHeader(L, 7)...)
	items = append(items,
		op(glulxconst.OpCallfii, false, glulxasm.LabelConstOperand(widemul32, 0), local(0), local(8), local(16)),
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),

		op(glulxconst.OpMul, false, local(0), local(12), local(24)), // a_lo*b_hi (low word only)
		op(glulxconst.OpAdd, false, local(20), local(24), local(20)),
		op(glulxconst.OpMul, false, local(4), local(8), local(24)), // a_hi*b_lo (low word only)
		op(glulxconst.OpAdd, false, local(20), local(24), local(20)),

		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(local(16)),
	)
	return items
}
