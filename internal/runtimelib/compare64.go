package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// buildCompare64 emits the i64 comparison predicates internal/lower needs
// (eqz, eq, unsigned/signed lt and le); the rest (ne, gt, ge, signed/unsigned
// variants) are derived by the lowerer from these via operand-order swaps
// and negation rather than each getting its own branch ladder.
//
// All return 0/1 as the low word; high word of the result is always 0 (a
// boolean never needs the HiResult cell, but it's still cleared for callers
// that read it out of habit after every runtime call).
func buildCompare64(refs *Refs) []glulxasm.Item {
	items := buildEqz64(refs)
	items = append(items, buildEq64(refs)...)
	items = append(items, buildLtu64(refs)...)
	items = append(items, buildLts64(refs)...)
	items = append(items, buildLeu64(refs)...)
	items = append(items, buildLes64(refs)...)
	return items
}

// Params: 0=lo 4=hi. Result: 1 iff both words are zero.
func buildEqz64(refs *Refs) []glulxasm.Item {
	L := refs.EqzI64
	notZero := glulxasm.NewLabel("eqz64_notzero")
	done := glulxasm.NewLabel("eqz64_done")

	items := fnHeader(L, 2)
	items = append(items,
		op(glulxconst.OpJnz, false, local(0), glulxasm.BranchOperand(notZero)),
		op(glulxconst.OpJnz, false, local(4), glulxasm.BranchOperand(notZero)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(1)),
		&glulxasm.LabelDef{L: notZero},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		&glulxasm.LabelDef{L: done},
		ret(imm(0)),
	)
	return items
}

// Params: 0=a_lo 4=a_hi 8=b_lo 12=b_hi. Result: 1 iff a==b.
func buildEq64(refs *Refs) []glulxasm.Item {
	L := refs.EqI64
	notEqual := glulxasm.NewLabel("eq64_ne")

	items := fnHeader(L, 4)
	items = append(items,
		op(glulxconst.OpJne, false, local(0), local(8), glulxasm.BranchOperand(notEqual)),
		op(glulxconst.OpJne, false, local(4), local(12), glulxasm.BranchOperand(notEqual)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(1)),
		&glulxasm.LabelDef{L: notEqual},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(0)),
	)
	return items
}

// buildWidePairLess emits the common shape of both LtU64 and LtS64: compare
// high words first (with hiJlt choosing signed or unsigned), falling back to
// an unsigned low-word compare only when the high words are equal (a 64-bit
// value's ordering is determined by its high word unless the high words tie).
func buildWidePairLess(entry *glulxasm.Label, refs *Refs, hiJlt glulxconst.Opcode) []glulxasm.Item {
	hiEqual := glulxasm.NewLabel("wless_hieq")
	isLess := glulxasm.NewLabel("wless_lt")

	items := fnHeader(entry, 4)
	items = append(items,
		op(glulxconst.OpJeq, false, local(4), local(12), glulxasm.BranchOperand(hiEqual)),
		op(hiJlt, false, local(4), local(12), glulxasm.BranchOperand(isLess)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(0)),
		&glulxasm.LabelDef{L: hiEqual},
		op(glulxconst.OpJltu, false, local(0), local(8), glulxasm.BranchOperand(isLess)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(0)),
		&glulxasm.LabelDef{L: isLess},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(1)),
	)
	return items
}

func buildLtu64(refs *Refs) []glulxasm.Item {
	return buildWidePairLess(refs.LtU64, refs, glulxconst.OpJltu)
}

func buildLts64(refs *Refs) []glulxasm.Item {
	return buildWidePairLess(refs.LtS64, refs, glulxconst.OpJlt)
}

// buildWidePairLessOrEqual builds le(a,b) with its own branch ladder: a
// greater high word (per hiJgt) gives 0; equal high words fall through to
// an unsigned comparison of the low words.
func buildWidePairLessOrEqual(entry *glulxasm.Label, refs *Refs, hiJgt glulxconst.Opcode) []glulxasm.Item {
	hiEqual := glulxasm.NewLabel("wle_hieq")
	isGreater := glulxasm.NewLabel("wle_gt")

	items := fnHeader(entry, 4)
	items = append(items,
		op(glulxconst.OpJeq, false, local(4), local(12), glulxasm.BranchOperand(hiEqual)),
		op(hiJgt, false, local(4), local(12), glulxasm.BranchOperand(isGreater)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(1)),
		&glulxasm.LabelDef{L: hiEqual},
		op(glulxconst.OpJgtu, false, local(0), local(8), glulxasm.BranchOperand(isGreater)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(1)),
		&glulxasm.LabelDef{L: isGreater},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), imm(0)),
		ret(imm(0)),
	)
	return items
}

func buildLeu64(refs *Refs) []glulxasm.Item {
	return buildWidePairLessOrEqual(refs.LeU64, refs, glulxconst.OpJgtu)
}

func buildLes64(refs *Refs) []glulxasm.Item {
	return buildWidePairLessOrEqual(refs.LeS64, refs, glulxconst.OpJgt)
}
