package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// buildDivMod64 emits unsigned 64-bit division via bit-serial restoring
// division (64 iterations, one dividend bit at a time), the technique
// software div64 runtimes use on machines with no 64-bit divide instruction
// (e.g. compiler-rt's __udivmoddi4): shift the dividend into a 64-bit
// remainder accumulator one bit at a time, and whenever the accumulator is
// large enough to hold another divisor, subtract it out and set the
// corresponding quotient bit. Signed division/remainder are thin wrappers
// around the unsigned core that negate operands around two's-complement
// sign rules.
func buildDivMod64(refs *Refs) []glulxasm.Item {
	items := buildDivModU64(refs)
	items = append(items, buildDivU64(refs)...)
	items = append(items, buildRemU64(refs)...)
	items = append(items, buildDivS64(refs)...)
	items = append(items, buildRemS64(refs)...)
	return items
}

// callStack4 pushes four words onto the Glulx stack and calls fn using the
// stack-based-arguments calling convention (Glulx opcode `call`: the callee
// reads its arguments back out of its own stack frame in push order),
// storing the result in dest. This is how every DivModU64 caller below
// reaches a routine that needs more arguments than the fixed-arity
// callfi/callfii/callfiii opcodes provide.
func callStack4(fn *glulxasm.Label, a, b, c, d glulxasm.Operand, dest glulxasm.Operand) []glulxasm.Item {
	return []glulxasm.Item{
		op(glulxconst.OpCopy, false, a, glulxasm.PushOperand),
		op(glulxconst.OpCopy, false, b, glulxasm.PushOperand),
		op(glulxconst.OpCopy, false, c, glulxasm.PushOperand),
		op(glulxconst.OpCopy, false, d, glulxasm.PushOperand),
		op(glulxconst.OpCall, false, glulxasm.LabelConstOperand(fn, 0), imm(4), dest),
	}
}

// buildDivModU64 is the core unsigned div/mod routine. internal/lower never
// calls it directly (Refs only names DivU64/RemU64/etc.); those wrappers
// call into it and read the extra outputs back from the scratch cells
// following HiResult: HiResult holds the quotient's high word, and the two
// words immediately after it (addend +1 and +2 from the same label) hold
// the remainder's low and high words. The routine itself returns the
// quotient's low word.
//
// Params: 0=n_lo 4=n_hi 8=d_lo 12=d_hi.
// Locals: 16=q_lo 20=q_hi 24=r_lo 28=r_hi 32=bit 36=tmp 40=carry.
func buildDivModU64(refs *Refs) []glulxasm.Item {
	L := refs.DivModU64
	loopTop := glulxasm.NewLabel("divmodu64_loop")
	bringLow := glulxasm.NewLabel("divmodu64_bringlow")
	bitBrought := glulxasm.NewLabel("divmodu64_bitbrought")
	hiEqual := glulxasm.NewLabel("divmodu64_hieq")
	doSub := glulxasm.NewLabel("divmodu64_dosub")
	borrowed := glulxasm.NewLabel("divmodu64_borrowed")
	subDone := glulxasm.NewLabel("divmodu64_subdone")
	noSub := glulxasm.NewLabel("divmodu64_nosub")
	done := glulxasm.NewLabel("divmodu64_done")

	items := fnHeader(L, 11)
	items = append(items,
		op(glulxconst.OpCopy, false, imm(0), local(16)),
		op(glulxconst.OpCopy, false, imm(0), local(20)),
		op(glulxconst.OpCopy, false, imm(0), local(24)),
		op(glulxconst.OpCopy, false, imm(0), local(28)),
		op(glulxconst.OpCopy, false, imm(63), local(32)),

		&glulxasm.LabelDef{L: loopTop},
		// r <<= 1 (as a 64-bit pair).
		op(glulxconst.OpShiftL, false, local(28), imm(1), local(28)),
		op(glulxconst.OpUShiftR, false, local(24), imm(31), local(36)),
		op(glulxconst.OpBitOr, false, local(28), local(36), local(28)),
		op(glulxconst.OpShiftL, false, local(24), imm(1), local(24)),

		// bring down dividend bit number `bit` into r's bit 0.
		op(glulxconst.OpJltu, false, local(32), imm(32), glulxasm.BranchOperand(bringLow)),
		op(glulxconst.OpSub, false, local(32), imm(32), local(40)),
		op(glulxconst.OpUShiftR, false, local(4), local(40), local(36)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(bitBrought)),
		&glulxasm.LabelDef{L: bringLow},
		op(glulxconst.OpUShiftR, false, local(0), local(32), local(36)),
		&glulxasm.LabelDef{L: bitBrought},
		op(glulxconst.OpBitAnd, false, local(36), imm(1), local(36)),
		op(glulxconst.OpBitOr, false, local(24), local(36), local(24)),

		// q <<= 1 (as a 64-bit pair).
		op(glulxconst.OpShiftL, false, local(20), imm(1), local(20)),
		op(glulxconst.OpUShiftR, false, local(16), imm(31), local(36)),
		op(glulxconst.OpBitOr, false, local(20), local(36), local(20)),
		op(glulxconst.OpShiftL, false, local(16), imm(1), local(16)),

		// if r (64-bit unsigned) >= d (64-bit unsigned): r -= d, q |= 1.
		op(glulxconst.OpJeq, false, local(28), local(12), glulxasm.BranchOperand(hiEqual)),
		op(glulxconst.OpJgtu, false, local(28), local(12), glulxasm.BranchOperand(doSub)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(noSub)),
		&glulxasm.LabelDef{L: hiEqual},
		op(glulxconst.OpJltu, false, local(24), local(8), glulxasm.BranchOperand(noSub)),

		// r -= d via borrow-aware 64-bit subtract (inlined: calling Sub64
		// here would clobber this frame's own use of HiResult).
		&glulxasm.LabelDef{L: doSub},
		op(glulxconst.OpJltu, false, local(24), local(8), glulxasm.BranchOperand(borrowed)),
		op(glulxconst.OpSub, false, local(24), local(8), local(24)),
		op(glulxconst.OpSub, false, local(28), local(12), local(28)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(subDone)),
		&glulxasm.LabelDef{L: borrowed},
		op(glulxconst.OpSub, false, local(24), local(8), local(24)),
		op(glulxconst.OpSub, false, local(28), local(12), local(28)),
		op(glulxconst.OpSub, false, local(28), imm(1), local(28)),
		&glulxasm.LabelDef{L: subDone},
		op(glulxconst.OpBitOr, false, local(16), imm(1), local(16)),

		&glulxasm.LabelDef{L: noSub},
		op(glulxconst.OpJz, false, local(32), glulxasm.BranchOperand(done)),
		op(glulxconst.OpSub, false, local(32), imm(1), local(32)),
		op(glulxconst.OpJump, false, glulxasm.BranchOperand(loopTop)),

		&glulxasm.LabelDef{L: done},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(1), local(24)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(2), local(28)),
		ret(local(16)),
	)
	return items
}

// Params: 0=n_lo 4=n_hi 8=d_lo 12=d_hi.
func buildDivU64(refs *Refs) []glulxasm.Item {
	L := refs.DivU64
	items := fnHeader(L, 4)
	items = append(items, callStack4(refs.DivModU64, local(0), local(4), local(8), local(12), local(0))...)
	items = append(items, ret(local(0)))
	return items
}

// Params: 0=n_lo 4=n_hi 8=d_lo 12=d_hi. Result: remainder (low word
// returned, high word in HiResult), read back from DivModU64's scratch
// cells after discarding its quotient.
func buildRemU64(refs *Refs) []glulxasm.Item {
	L := refs.RemU64
	items := fnHeader(L, 6)
	items = append(items, callStack4(refs.DivModU64, local(0), local(4), local(8), local(12), local(16))...)
	items = append(items,
		// DivModU64 left the remainder in its own scratch cells (addend
		// 1 = lo, addend 2 = hi); copy the high word into HiResult (this
		// routine's own result-passing convention) before overwriting it.
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(2), local(20)),
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(1), local(16)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
		ret(local(16)),
	)
	return items
}

// buildDivS64 implements signed division by taking absolute values, calling
// the unsigned core, and negating the quotient when exactly one operand was
// negative, matching the two's-complement identity
// sdiv(a,b) = (a<0 != b<0) ? -udiv(|a|,|b|) : udiv(|a|,|b|).
//
// Params: 0=a_lo 4=a_hi 8=b_lo 12=b_hi. Locals: 16=neg 20=q_lo 24=q_hi.
func buildDivS64(refs *Refs) []glulxasm.Item {
	L := refs.DivS64
	bCheck := glulxasm.NewLabel("divs64_bcheck")
	callDiv := glulxasm.NewLabel("divs64_call")
	noNegate := glulxasm.NewLabel("divs64_nonegate")

	items := fnHeader(L, 7)
	items = append(items,
		op(glulxconst.OpCopy, false, imm(0), local(16)), // neg flag

		op(glulxconst.OpJge, false, local(4), imm(0), glulxasm.BranchOperand(bCheck)),
		op(glulxconst.OpBitXor, false, local(16), imm(1), local(16)),
	)
	items = append(items, callStack4(refs.Sub64, imm(0), imm(0), local(0), local(4), local(0))...)
	items = append(items,
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(4)),

		&glulxasm.LabelDef{L: bCheck},
		op(glulxconst.OpJge, false, local(12), imm(0), glulxasm.BranchOperand(callDiv)),
		op(glulxconst.OpBitXor, false, local(16), imm(1), local(16)),
	)
	items = append(items, callStack4(refs.Sub64, imm(0), imm(0), local(8), local(12), local(8))...)
	items = append(items,
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(12)),

		&glulxasm.LabelDef{L: callDiv},
	)
	items = append(items, callStack4(refs.DivU64, local(0), local(4), local(8), local(12), local(20))...)
	items = append(items,
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(24)),
		op(glulxconst.OpJz, false, local(16), glulxasm.BranchOperand(noNegate)),
	)
	items = append(items, callStack4(refs.Sub64, imm(0), imm(0), local(20), local(24), local(20))...)
	items = append(items,
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(24)),
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(24)),
		ret(local(20)),
		&glulxasm.LabelDef{L: noNegate},
		op(glulxconst.OpAstore, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(24)),
		ret(local(20)),
	)
	return items
}

// buildRemS64 derives the signed remainder from the signed quotient and the
// original operands via a = q*b + r, matching the relationship WASM's
// i64.rem_s shares with compiler-rt's __moddi3 (remainder takes the sign of
// the dividend).
//
// Params: 0=a_lo 4=a_hi 8=b_lo 12=b_hi. Locals: 16=q_lo 20=q_hi 24..=scratch.
func buildRemS64(refs *Refs) []glulxasm.Item {
	L := refs.RemS64
	items := fnHeader(L, 9)
	items = append(items, callStack4(refs.DivS64, local(0), local(4), local(8), local(12), local(16))...)
	items = append(items,
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(20)),
	)
	items = append(items, callStack4(refs.Mul64, local(16), local(20), local(8), local(12), local(24))...)
	items = append(items,
		op(glulxconst.OpAload, false, glulxasm.LabelOperand(refs.HiResult, 0), imm(0), local(28)),
	)
	items = append(items, callStack4(refs.Sub64, local(0), local(4), local(24), local(28), local(24))...)
	items = append(items, ret(local(24)))
	return items
}
