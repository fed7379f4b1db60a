package lower

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// pushBoolFromBranch is the common shape behind every comparison: emit
// whatever branch instruction decides truth, fused with a fresh label for
// the true path, then materialize 0 or 1 onto the abstract stack.
func (c *fnCtx) pushBoolFromBranch(emit func(trueLabel *glulxasm.Label)) {
	t := c.newLabel("cmp_true")
	emit(t)
	done := c.newLabel("cmp_done")
	dest := c.scratchOp(4)
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), dest)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
	c.emit(&glulxasm.LabelDef{L: t})
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(1), dest)
	c.emit(&glulxasm.LabelDef{L: done})
	c.stack.push(localOperand32(c.frame.scratch(4)))
}

func (c *fnCtx) lowerI32Binop(opc wasmir.Opcode) error {
	b := c.materialize32(c.stack.pop(), 2)
	a := c.materialize32(c.stack.pop(), 3)
	dest := c.scratchOp(4)

	if glOp, ok := i32NativeBinOp[opc]; ok {
		c.op(glOp, false, a, b, dest)
		c.stack.push(localOperand32(c.frame.scratch(4)))
		return nil
	}
	switch opc {
	case wasmir.OpI32DivS:
		c.trapIfZero(b, glulxconst.TrapIntegerDivideByZero)
		// INT32_MIN / -1 overflows a signed divide on most native dividers;
		// Glulx's `div` doesn't document trapping on this, so check it
		// explicitly and raise an integer-overflow trap.
		overflowOK := c.newLabel("divs_ovf_ok")
		c.op(glulxconst.OpJne, false, a, glulxasm.ConstOperand(-0x80000000), glulxasm.BranchOperand(overflowOK))
		c.op(glulxconst.OpJne, false, b, glulxasm.ConstOperand(-1), glulxasm.BranchOperand(overflowOK))
		c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapIntegerOverflow)))
		c.emit(&glulxasm.LabelDef{L: overflowOK})
		c.op(glulxconst.OpDiv, false, a, b, dest)
	case wasmir.OpI32RemS:
		c.trapIfZero(b, glulxconst.TrapIntegerDivideByZero)
		c.op(glulxconst.OpMod, false, a, b, dest)
	case wasmir.OpI32DivU, wasmir.OpI32RemU:
		c.trapIfZero(b, glulxconst.TrapIntegerDivideByZero)
		zero := glulxasm.ConstOperand(0)
		fn := c.lx.Runtime.DivU64
		if opc == wasmir.OpI32RemU {
			fn = c.lx.Runtime.RemU64
		}
		c.callStack(glulxasm.LabelConstOperand(fn, 0), []glulxasm.Operand{a, zero, b, zero}, dest)
	case wasmir.OpI32Rotl, wasmir.OpI32Rotr:
		c.lowerRotate32(opc, a, b, dest)
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand32(c.frame.scratch(4)))
	return nil
}

// lowerRotate32 has no native Glulx opcode; rotate is built from two
// opposite shifts plus an or, the standard decomposition
// rotl(x,n) = (x<<n) | (x >> (32-n)).
func (c *fnCtx) lowerRotate32(opc wasmir.Opcode, a, b, dest glulxasm.Operand) {
	amt := c.scratchOp(6)
	c.op(glulxconst.OpBitAnd, false, b, glulxasm.ConstOperand(31), amt)
	zero := c.newLabel("rot32_zero")
	done := c.newLabel("rot32_done")
	c.op(glulxconst.OpJz, false, amt, glulxasm.BranchOperand(zero))

	comp := c.scratchOp(7)
	c.op(glulxconst.OpSub, false, glulxasm.ConstOperand(32), amt, comp)
	lshift, rshift := glulxconst.OpShiftL, glulxconst.OpUShiftR
	if opc == wasmir.OpI32Rotr {
		lshift, rshift = glulxconst.OpUShiftR, glulxconst.OpShiftL
	}
	hi := c.scratchOp(8)
	lo := c.scratchOp(9)
	c.op(lshift, false, a, amt, hi)
	c.op(rshift, false, a, comp, lo)
	c.op(glulxconst.OpBitOr, false, hi, lo, dest)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
	c.emit(&glulxasm.LabelDef{L: zero})
	c.op(glulxconst.OpCopy, false, a, dest)
	c.emit(&glulxasm.LabelDef{L: done})
}

func (c *fnCtx) lowerI32Compare(opc wasmir.Opcode) error {
	if opc == wasmir.OpI32Eqz {
		v := c.materialize32(c.stack.pop(), 2)
		c.pushBoolFromBranch(func(t *glulxasm.Label) {
			c.op(glulxconst.OpJz, false, v, glulxasm.BranchOperand(t))
		})
		return nil
	}
	glOp, ok := i32CompareJump[opc]
	if !ok {
		return c.unsupported(opc)
	}
	b := c.materialize32(c.stack.pop(), 2)
	a := c.materialize32(c.stack.pop(), 3)
	c.pushBoolFromBranch(func(t *glulxasm.Label) {
		c.op(glOp, false, a, b, glulxasm.BranchOperand(t))
	})
	return nil
}

// lowerI32Unary handles clz/ctz/popcnt (no native opcode: calls into
// internal/runtimelib) and extend8_s/extend16_s (native Sexb/Sexs).
func (c *fnCtx) lowerI32Unary(opc wasmir.Opcode) error {
	v := c.materialize32(c.stack.pop(), 2)
	dest := c.scratchOp(4)
	switch opc {
	case wasmir.OpI32Clz:
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(c.lx.Runtime.Clz32, 0), v, dest)
	case wasmir.OpI32Ctz:
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(c.lx.Runtime.Ctz32, 0), v, dest)
	case wasmir.OpI32Popcnt:
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(c.lx.Runtime.Popcnt32, 0), v, dest)
	case wasmir.OpI32Extend8S:
		c.op(glulxconst.OpSexb, false, v, dest)
	case wasmir.OpI32Extend16S:
		c.op(glulxconst.OpSexs, false, v, dest)
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand32(c.frame.scratch(4)))
	return nil
}

// --- i64 ---------------------------------------------------------------

// i64 arithmetic/shift/rotate all go through internal/runtimelib calls
// except bitwise and/or/xor, which apply word-by-word with no carry
// propagation to worry about.
func (c *fnCtx) lowerI64Binop(opc wasmir.Opcode) error {
	b := c.stack.pop()
	a := c.stack.pop()
	aLo, aHi := c.scratchOp(4), c.scratchOp(5)
	bLo, bHi := c.scratchOp(6), c.scratchOp(7)
	c.materialize64Into(a, aLo, aHi)
	c.materialize64Into(b, bLo, bHi)
	destLo, destHi := c.scratchOp(8), c.scratchOp(9)

	switch opc {
	case wasmir.OpI64And:
		c.op(glulxconst.OpBitAnd, false, aLo, bLo, destLo)
		c.op(glulxconst.OpBitAnd, false, aHi, bHi, destHi)
	case wasmir.OpI64Or:
		c.op(glulxconst.OpBitOr, false, aLo, bLo, destLo)
		c.op(glulxconst.OpBitOr, false, aHi, bHi, destHi)
	case wasmir.OpI64Xor:
		c.op(glulxconst.OpBitXor, false, aLo, bLo, destLo)
		c.op(glulxconst.OpBitXor, false, aHi, bHi, destHi)
	case wasmir.OpI64Add, wasmir.OpI64Sub, wasmir.OpI64Mul,
		wasmir.OpI64Shl, wasmir.OpI64ShrU, wasmir.OpI64ShrS:
		fn := c.runtime64BinFn(opc)
		var args []glulxasm.Operand
		if opc == wasmir.OpI64Shl || opc == wasmir.OpI64ShrU || opc == wasmir.OpI64ShrS {
			args = []glulxasm.Operand{aLo, aHi, bLo} // shift amount is a single 32-bit word, low word of b
		} else {
			args = []glulxasm.Operand{aLo, aHi, bLo, bHi}
		}
		c.callStack(glulxasm.LabelConstOperand(fn, 0), args, destLo)
		c.hiResult(destHi)
	case wasmir.OpI64DivS, wasmir.OpI64DivU, wasmir.OpI64RemS, wasmir.OpI64RemU:
		// b is zero only when both words are zero; checking bLo alone would
		// wrongly trap on values like 0x1_00000000.
		bNonzero := c.newLabel("i64_divzero_ok")
		c.op(glulxconst.OpJnz, false, bLo, glulxasm.BranchOperand(bNonzero))
		c.op(glulxconst.OpJnz, false, bHi, glulxasm.BranchOperand(bNonzero))
		c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapIntegerDivideByZero)))
		c.emit(&glulxasm.LabelDef{L: bNonzero})
		if opc == wasmir.OpI64DivS {
			// INT64_MIN / -1 overflows the same way INT32_MIN / -1 does;
			// DivS64 takes the two's-complement absolute value of each
			// operand, and abs(INT64_MIN) is INT64_MIN itself, so this
			// pair needs its own trap check before reaching DivS64.
			overflowOK := c.newLabel("divs64_ovf_ok")
			c.op(glulxconst.OpJnz, false, aLo, glulxasm.BranchOperand(overflowOK))
			c.op(glulxconst.OpJne, false, aHi, glulxasm.ConstOperand(-0x80000000), glulxasm.BranchOperand(overflowOK))
			c.op(glulxconst.OpJne, false, bLo, glulxasm.ConstOperand(-1), glulxasm.BranchOperand(overflowOK))
			c.op(glulxconst.OpJne, false, bHi, glulxasm.ConstOperand(-1), glulxasm.BranchOperand(overflowOK))
			c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapIntegerOverflow)))
			c.emit(&glulxasm.LabelDef{L: overflowOK})
		}
		fn := c.runtime64BinFn(opc)
		c.callStack(glulxasm.LabelConstOperand(fn, 0), []glulxasm.Operand{aLo, aHi, bLo, bHi}, destLo)
		c.hiResult(destHi)
	case wasmir.OpI64Rotl, wasmir.OpI64Rotr:
		c.lowerRotate64(opc, aLo, aHi, bLo, destLo, destHi)
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand64(c.frame.scratch(8)))
	return nil
}

func (c *fnCtx) runtime64BinFn(opc wasmir.Opcode) *glulxasm.Label {
	r := c.lx.Runtime
	switch opc {
	case wasmir.OpI64Add:
		return r.Add64
	case wasmir.OpI64Sub:
		return r.Sub64
	case wasmir.OpI64Mul:
		return r.Mul64
	case wasmir.OpI64Shl:
		return r.ShlI64
	case wasmir.OpI64ShrU:
		return r.ShrU64
	case wasmir.OpI64ShrS:
		return r.ShrS64
	case wasmir.OpI64DivS:
		return r.DivS64
	case wasmir.OpI64DivU:
		return r.DivU64
	case wasmir.OpI64RemS:
		return r.RemS64
	case wasmir.OpI64RemU:
		return r.RemU64
	}
	return nil
}

// lowerRotate64 composes a 64-bit rotate from two shift calls and an or,
// same identity as lowerRotate32 but operating through runtimelib's 64-bit
// shift routines since there is no native 64-bit shift either.
func (c *fnCtx) lowerRotate64(opc wasmir.Opcode, aLo, aHi, amount, destLo, destHi glulxasm.Operand) {
	amt := c.scratchOp(10)
	c.op(glulxconst.OpBitAnd, false, amount, glulxasm.ConstOperand(63), amt)
	comp := c.scratchOp(11)
	c.op(glulxconst.OpSub, false, glulxasm.ConstOperand(64), amt, comp)

	leftFn, rightFn := c.lx.Runtime.ShlI64, c.lx.Runtime.ShrU64
	if opc == wasmir.OpI64Rotr {
		leftFn, rightFn = c.lx.Runtime.ShrU64, c.lx.Runtime.ShlI64
	}
	hiLo, hiHi := c.scratchOp(12), c.scratchOp(13)
	c.callStack(glulxasm.LabelConstOperand(leftFn, 0), []glulxasm.Operand{aLo, aHi, amt}, hiLo)
	c.hiResult(hiHi)
	loLo, loHi := c.scratchOp(14), c.scratchOp(15)
	c.callStack(glulxasm.LabelConstOperand(rightFn, 0), []glulxasm.Operand{aLo, aHi, comp}, loLo)
	c.hiResult(loHi)
	c.op(glulxconst.OpBitOr, false, hiLo, loLo, destLo)
	c.op(glulxconst.OpBitOr, false, hiHi, loHi, destHi)
}

func (c *fnCtx) lowerI64Compare(opc wasmir.Opcode) error {
	if opc == wasmir.OpI64Eqz {
		v := c.stack.pop()
		lo, hi := c.scratchOp(4), c.scratchOp(5)
		c.materialize64Into(v, lo, hi)
		dest := c.scratchOp(6)
		c.op(glulxconst.OpCallfii, false, glulxasm.LabelConstOperand(c.lx.Runtime.EqzI64, 0), lo, hi, dest)
		c.stack.push(localOperand32(c.frame.scratch(6)))
		return nil
	}

	b := c.stack.pop()
	a := c.stack.pop()
	aLo, aHi := c.scratchOp(4), c.scratchOp(5)
	bLo, bHi := c.scratchOp(6), c.scratchOp(7)
	c.materialize64Into(a, aLo, aHi)
	c.materialize64Into(b, bLo, bHi)
	dest := c.scratchOp(8)

	r := c.lx.Runtime
	call := func(fn *glulxasm.Label, x0, x1, x2, x3 glulxasm.Operand) {
		c.callStack(glulxasm.LabelConstOperand(fn, 0), []glulxasm.Operand{x0, x1, x2, x3}, dest)
	}
	switch opc {
	case wasmir.OpI64Eq:
		call(r.EqI64, aLo, aHi, bLo, bHi)
	case wasmir.OpI64Ne:
		call(r.EqI64, aLo, aHi, bLo, bHi)
		c.op(glulxconst.OpBitXor, false, dest, glulxasm.ConstOperand(1), dest)
	case wasmir.OpI64LtU:
		call(r.LtU64, aLo, aHi, bLo, bHi)
	case wasmir.OpI64LtS:
		call(r.LtS64, aLo, aHi, bLo, bHi)
	case wasmir.OpI64GtU:
		call(r.LtU64, bLo, bHi, aLo, aHi)
	case wasmir.OpI64GtS:
		call(r.LtS64, bLo, bHi, aLo, aHi)
	case wasmir.OpI64LeU:
		call(r.LeU64, aLo, aHi, bLo, bHi)
	case wasmir.OpI64LeS:
		call(r.LeS64, aLo, aHi, bLo, bHi)
	case wasmir.OpI64GeU:
		call(r.LeU64, bLo, bHi, aLo, aHi)
	case wasmir.OpI64GeS:
		call(r.LeS64, bLo, bHi, aLo, aHi)
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand32(c.frame.scratch(8)))
	return nil
}

func (c *fnCtx) lowerI64Unary(opc wasmir.Opcode) error {
	v := c.stack.pop()
	lo, hi := c.scratchOp(4), c.scratchOp(5)
	c.materialize64Into(v, lo, hi)
	dest := c.scratchOp(6)
	r := c.lx.Runtime
	switch opc {
	case wasmir.OpI64Clz:
		hiZero := c.newLabel("clz64_hizero")
		done := c.newLabel("clz64_done")
		c.op(glulxconst.OpJz, false, hi, glulxasm.BranchOperand(hiZero))
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(r.Clz32, 0), hi, dest)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: hiZero})
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(r.Clz32, 0), lo, dest)
		c.op(glulxconst.OpAdd, false, dest, glulxasm.ConstOperand(32), dest)
		c.emit(&glulxasm.LabelDef{L: done})
	case wasmir.OpI64Ctz:
		loZero := c.newLabel("ctz64_lozero")
		done := c.newLabel("ctz64_done")
		c.op(glulxconst.OpJz, false, lo, glulxasm.BranchOperand(loZero))
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(r.Ctz32, 0), lo, dest)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: loZero})
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(r.Ctz32, 0), hi, dest)
		c.op(glulxconst.OpAdd, false, dest, glulxasm.ConstOperand(32), dest)
		c.emit(&glulxasm.LabelDef{L: done})
	case wasmir.OpI64Popcnt:
		t := c.scratchOp(7)
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(r.Popcnt32, 0), lo, dest)
		c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(r.Popcnt32, 0), hi, t)
		c.op(glulxconst.OpAdd, false, dest, t, dest)
	case wasmir.OpI64Extend8S:
		c.op(glulxconst.OpSexb, false, lo, dest)
		c.op(glulxconst.OpSShiftR, false, dest, glulxasm.ConstOperand(31), c.scratchOp(7))
		c.stack.push(operand{kind: operandLocal, width: width64, localOffset: c.frame.scratch(6)})
		c.op(glulxconst.OpCopy, false, dest, c.scratchOp(6))
		c.op(glulxconst.OpCopy, false, c.scratchOp(7), c.scratchOp(7))
		return nil
	case wasmir.OpI64Extend16S:
		c.op(glulxconst.OpSexs, false, lo, dest)
		c.op(glulxconst.OpSShiftR, false, dest, glulxasm.ConstOperand(31), c.scratchOp(7))
		c.op(glulxconst.OpCopy, false, dest, c.scratchOp(6))
		c.stack.push(localOperand64(c.frame.scratch(6)))
		return nil
	case wasmir.OpI64Extend32S:
		c.op(glulxconst.OpSShiftR, false, lo, glulxasm.ConstOperand(31), c.scratchOp(7))
		c.op(glulxconst.OpCopy, false, lo, c.scratchOp(6))
		c.stack.push(localOperand64(c.frame.scratch(6)))
		return nil
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand32(c.frame.scratch(6)))
	return nil
}

// --- f32/f64 -------------------------------------------------------------

const f32SignMask = 0x80000000
const f32AbsMask = 0x7fffffff

func (c *fnCtx) lowerF32Binop(opc wasmir.Opcode) error {
	b := c.materialize32(c.stack.pop(), 2)
	a := c.materialize32(c.stack.pop(), 3)
	dest := c.scratchOp(4)
	if glOp, ok := f32NativeBinOp[opc]; ok {
		c.op(glOp, false, a, b, dest)
		c.stack.push(localOperand32(c.frame.scratch(4)))
		return nil
	}
	switch opc {
	case wasmir.OpF32Copysign:
		t := c.scratchOp(5)
		c.op(glulxconst.OpBitAnd, false, a, glulxasm.ConstOperand(f32AbsMask), t)
		c.op(glulxconst.OpBitAnd, false, b, glulxasm.ConstOperand(f32SignMask), dest)
		c.op(glulxconst.OpBitOr, false, t, dest, dest)
	case wasmir.OpF32Min:
		c.floatMinMax(glulxconst.OpJflt, a, b, dest)
	case wasmir.OpF32Max:
		c.floatMinMax(glulxconst.OpJfgt, a, b, dest)
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand32(c.frame.scratch(4)))
	return nil
}

// floatMinMax picks a or b using the given "a REL b" jump opcode; WASM's
// NaN-propagating min/max semantics are approximated here (either operand
// NaN should propagate) by falling back to b whenever the comparison is
// false, which also covers the NaN case since every float comparison
// against NaN is false — a documented simplification, not a precise
// re-derivation of IEEE 754's minNum/maxNum.
func (c *fnCtx) floatMinMax(relJump glulxconst.Opcode, a, b, dest glulxasm.Operand) {
	useA := c.newLabel("fminmax_a")
	done := c.newLabel("fminmax_done")
	c.op(relJump, false, a, b, glulxasm.BranchOperand(useA))
	c.op(glulxconst.OpCopy, false, b, dest)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
	c.emit(&glulxasm.LabelDef{L: useA})
	c.op(glulxconst.OpCopy, false, a, dest)
	c.emit(&glulxasm.LabelDef{L: done})
}

func (c *fnCtx) lowerF32Unary(opc wasmir.Opcode) error {
	v := c.materialize32(c.stack.pop(), 2)
	dest := c.scratchOp(4)
	switch opc {
	case wasmir.OpF32Abs:
		c.op(glulxconst.OpBitAnd, false, v, glulxasm.ConstOperand(f32AbsMask), dest)
	case wasmir.OpF32Neg:
		c.op(glulxconst.OpBitXor, false, v, glulxasm.ConstOperand(f32SignMask), dest)
	case wasmir.OpF32Sqrt:
		c.op(glulxconst.OpSqrt, false, v, dest)
	case wasmir.OpF32Ceil:
		c.op(glulxconst.OpCeil, false, v, dest)
	case wasmir.OpF32Floor:
		c.op(glulxconst.OpFloor, false, v, dest)
	case wasmir.OpF32Trunc:
		tmp := c.scratchOp(5)
		c.op(glulxconst.OpFtoNumZ, false, v, tmp)
		c.op(glulxconst.OpNumToF, false, tmp, dest)
	case wasmir.OpF32Nearest:
		tmp := c.scratchOp(5)
		c.op(glulxconst.OpFtoNumN, false, v, tmp)
		c.op(glulxconst.OpNumToF, false, tmp, dest)
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand32(c.frame.scratch(4)))
	return nil
}

func (c *fnCtx) lowerF32Compare(opc wasmir.Opcode) error {
	glOp, ok := f32CompareJump[opc]
	if !ok {
		return c.unsupported(opc)
	}
	b := c.materialize32(c.stack.pop(), 2)
	a := c.materialize32(c.stack.pop(), 3)
	c.pushBoolFromBranch(func(t *glulxasm.Label) {
		c.op(glOp, false, a, b, glulxasm.BranchOperand(t))
	})
	return nil
}

func (c *fnCtx) lowerF64Binop(opc wasmir.Opcode) error {
	b := c.stack.pop()
	a := c.stack.pop()
	aLo, aHi := c.scratchOp(4), c.scratchOp(5)
	bLo, bHi := c.scratchOp(6), c.scratchOp(7)
	c.materialize64Into(a, aLo, aHi)
	c.materialize64Into(b, bLo, bHi)
	destLo, destHi := c.scratchOp(8), c.scratchOp(9)

	if glOp, ok := f64NativeBinOp[opc]; ok {
		c.op(glOp, false, aLo, aHi, bLo, bHi, destLo, destHi)
		c.stack.push(localOperand64(c.frame.scratch(8)))
		return nil
	}
	switch opc {
	case wasmir.OpF64Copysign:
		c.op(glulxconst.OpBitAnd, false, aHi, glulxasm.ConstOperand(f32AbsMask), destHi)
		t := c.scratchOp(10)
		c.op(glulxconst.OpBitAnd, false, bHi, glulxasm.ConstOperand(f32SignMask), t)
		c.op(glulxconst.OpBitOr, false, destHi, t, destHi)
		c.op(glulxconst.OpCopy, false, aLo, destLo)
	case wasmir.OpF64Min, wasmir.OpF64Max:
		relJump := glulxconst.OpDJlt
		if opc == wasmir.OpF64Max {
			relJump = glulxconst.OpDJgt
		}
		useA := c.newLabel("dminmax_a")
		done := c.newLabel("dminmax_done")
		c.op(relJump, false, aLo, aHi, bLo, bHi, glulxasm.BranchOperand(useA))
		c.op(glulxconst.OpCopy, false, bLo, destLo)
		c.op(glulxconst.OpCopy, false, bHi, destHi)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: useA})
		c.op(glulxconst.OpCopy, false, aLo, destLo)
		c.op(glulxconst.OpCopy, false, aHi, destHi)
		c.emit(&glulxasm.LabelDef{L: done})
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand64(c.frame.scratch(8)))
	return nil
}

func (c *fnCtx) lowerF64Unary(opc wasmir.Opcode) error {
	v := c.stack.pop()
	lo, hi := c.scratchOp(4), c.scratchOp(5)
	c.materialize64Into(v, lo, hi)
	destLo, destHi := c.scratchOp(6), c.scratchOp(7)
	switch opc {
	case wasmir.OpF64Abs:
		c.op(glulxconst.OpBitAnd, false, hi, glulxasm.ConstOperand(f32AbsMask), destHi)
		c.op(glulxconst.OpCopy, false, lo, destLo)
	case wasmir.OpF64Neg:
		c.op(glulxconst.OpBitXor, false, hi, glulxasm.ConstOperand(f32SignMask), destHi)
		c.op(glulxconst.OpCopy, false, lo, destLo)
	case wasmir.OpF64Sqrt:
		c.op(glulxconst.OpDSqrt, false, lo, hi, destLo, destHi)
	case wasmir.OpF64Ceil:
		c.op(glulxconst.OpDCeil, false, lo, hi, destLo, destHi)
	case wasmir.OpF64Floor:
		c.op(glulxconst.OpDFloor, false, lo, hi, destLo, destHi)
	case wasmir.OpF64Trunc:
		tmp := c.scratchOp(8)
		c.op(glulxconst.OpDoubleToNum, false, lo, hi, tmp)
		c.op(glulxconst.OpNumToDouble, false, tmp, destLo, destHi)
	case wasmir.OpF64Nearest:
		tmp := c.scratchOp(8)
		c.op(glulxconst.OpDToNumN, false, lo, hi, tmp)
		c.op(glulxconst.OpNumToDouble, false, tmp, destLo, destHi)
	default:
		return c.unsupported(opc)
	}
	c.stack.push(localOperand64(c.frame.scratch(6)))
	return nil
}

func (c *fnCtx) lowerF64Compare(opc wasmir.Opcode) error {
	glOp, ok := f64CompareJump[opc]
	if !ok {
		return c.unsupported(opc)
	}
	b := c.stack.pop()
	a := c.stack.pop()
	aLo, aHi := c.scratchOp(4), c.scratchOp(5)
	bLo, bHi := c.scratchOp(6), c.scratchOp(7)
	c.materialize64Into(a, aLo, aHi)
	c.materialize64Into(b, bLo, bHi)
	c.pushBoolFromBranch(func(t *glulxasm.Label) {
		c.op(glOp, false, aLo, aHi, bLo, bHi, glulxasm.BranchOperand(t))
	})
	return nil
}

func (c *fnCtx) unsupported(opc wasmir.Opcode) error {
	return &unsupportedOpError{opc: opc}
}
