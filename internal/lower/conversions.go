package lower

// Numeric conversion opcodes: wrap, extend, trunc/trunc_sat, convert,
// demote/promote, and reinterpret. Glulx's float extension only natively
// converts a single
// 32-bit word to/from float32 (numtof/ftonumz/ftonumn) or to/from double
// (numtodouble/doubletonum/dtonumn), always as a SIGNED integer. Everything
// wider (unsigned 32-bit, all of i64) is built from that native core by the
// standard split-at-2^31 decomposition: an unsigned word x decomposes
// exactly as 2*(x>>>1) + (x&1), and both halves fit the signed range so each
// goes through the native conversion safely. i64<->double conversions
// further decompose the double's magnitude by dividing/multiplying by
// 2^32 (exact in double precision, being a power of two) to recover or
// construct the high and low words independently.
//
// Truncating a float32 to i64 widens it to double first (ftod) so only one narrowing
// (dtof) pattern needs re-deriving instead of two; this loses no more
// precision than WASM's own f32 truncation already implies, consistent
// with the acknowledged-approximation treatment numeric.go already gives
// float min/max and round-to-nearest.

import (
	"math"

	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

func doubleConst(f float64) (glulxasm.Operand, glulxasm.Operand) {
	bits := math.Float64bits(f)
	lo := int32(bits)
	hi := int32(bits >> 32)
	return glulxasm.ConstOperand(int64(lo)), glulxasm.ConstOperand(int64(hi))
}

func floatConst(f float32) glulxasm.Operand {
	return glulxasm.ConstOperand(int64(int32(math.Float32bits(f))))
}

// trapIfAnyTrue runs emitBad, which should branch to bad for every
// condition that should trap; falls through to normal control flow
// otherwise.
func (c *fnCtx) trapIfAnyTrue(code glulxconst.TrapCode, emitBad func(bad *glulxasm.Label)) {
	bad := c.newLabel("conv_trap")
	cont := c.newLabel("conv_cont")
	emitBad(bad)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(cont))
	c.emit(&glulxasm.LabelDef{L: bad})
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(code)))
	c.emit(&glulxasm.LabelDef{L: cont})
}

// u32ToF64 converts v, read as an unsigned 32-bit word, to a double bit
// pattern in (destLo, destHi), exactly, via the 2*(v>>>1)+(v&1) split.
func (c *fnCtx) u32ToF64(alloc func() uint32, v, destLo, destHi glulxasm.Operand) {
	half := c.scratchOp(alloc())
	bit := c.scratchOp(alloc())
	c.op(glulxconst.OpUShiftR, false, v, glulxasm.ConstOperand(1), half)
	c.op(glulxconst.OpBitAnd, false, v, glulxasm.ConstOperand(1), bit)
	c.op(glulxconst.OpNumToDouble, false, half, destLo, destHi)
	twoLo, twoHi := doubleConst(2.0)
	c.op(glulxconst.OpDMul, false, destLo, destHi, twoLo, twoHi, destLo, destHi)
	bitDLo, bitDHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.op(glulxconst.OpNumToDouble, false, bit, bitDLo, bitDHi)
	c.op(glulxconst.OpDAdd, false, destLo, destHi, bitDLo, bitDHi, destLo, destHi)
}

// f64ToU32Exact narrows a double (dLo, dHi), assumed already integral and
// in [0, 2^32), to its exact unsigned 32-bit bit pattern in dest.
func (c *fnCtx) f64ToU32Exact(alloc func() uint32, dLo, dHi, dest glulxasm.Operand) {
	boundLo, boundHi := doubleConst(2147483648.0)
	low := c.newLabel("f64tou32_low")
	done := c.newLabel("f64tou32_done")
	c.op(glulxconst.OpDJlt, false, dLo, dHi, boundLo, boundHi, glulxasm.BranchOperand(low))
	subLo, subHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.op(glulxconst.OpDSub, false, dLo, dHi, boundLo, boundHi, subLo, subHi)
	c.op(glulxconst.OpDoubleToNum, false, subLo, subHi, dest)
	c.op(glulxconst.OpAdd, false, dest, glulxasm.ConstOperand(-0x80000000), dest)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
	c.emit(&glulxasm.LabelDef{L: low})
	c.op(glulxconst.OpDoubleToNum, false, dLo, dHi, dest)
	c.emit(&glulxasm.LabelDef{L: done})
}

// f32ToU32Exact is f64ToU32Exact's single-precision analogue, used for
// i32.trunc_f32_u/i32.trunc_sat_f32_u's in-range path.
func (c *fnCtx) f32ToU32Exact(alloc func() uint32, v, dest glulxasm.Operand) {
	bound := floatConst(2147483648.0)
	low := c.newLabel("f32tou32_low")
	done := c.newLabel("f32tou32_done")
	c.op(glulxconst.OpJflt, false, v, bound, glulxasm.BranchOperand(low))
	sub := c.scratchOp(alloc())
	c.op(glulxconst.OpFSub, false, v, bound, sub)
	c.op(glulxconst.OpFtoNumZ, false, sub, dest)
	c.op(glulxconst.OpAdd, false, dest, glulxasm.ConstOperand(-0x80000000), dest)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
	c.emit(&glulxasm.LabelDef{L: low})
	c.op(glulxconst.OpFtoNumZ, false, v, dest)
	c.emit(&glulxasm.LabelDef{L: done})
}

// u64ToF64 converts the unsigned 64-bit value (lo, hi) to a double bit
// pattern in (destLo, destHi): u32ToF64(hi)*2^32 + u32ToF64(lo).
func (c *fnCtx) u64ToF64(alloc func() uint32, lo, hi, destLo, destHi glulxasm.Operand) {
	hiDLo, hiDHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.u32ToF64(alloc, hi, hiDLo, hiDHi)
	boundLo, boundHi := doubleConst(4294967296.0)
	c.op(glulxconst.OpDMul, false, hiDLo, hiDHi, boundLo, boundHi, hiDLo, hiDHi)
	loDLo, loDHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.u32ToF64(alloc, lo, loDLo, loDHi)
	c.op(glulxconst.OpDAdd, false, hiDLo, hiDHi, loDLo, loDHi, destLo, destHi)
}

// i64ToF64 converts the signed 64-bit value (lo, hi) to a double bit
// pattern: the two's-complement identity x = hi_signed*2^32 + lo_unsigned
// holds regardless of x's sign, so only the low word needs the unsigned
// split; the high word goes through numtodouble's native signed path.
func (c *fnCtx) i64ToF64(alloc func() uint32, lo, hi, destLo, destHi glulxasm.Operand) {
	hiDLo, hiDHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.op(glulxconst.OpNumToDouble, false, hi, hiDLo, hiDHi)
	boundLo, boundHi := doubleConst(4294967296.0)
	c.op(glulxconst.OpDMul, false, hiDLo, hiDHi, boundLo, boundHi, hiDLo, hiDHi)
	loDLo, loDHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.u32ToF64(alloc, lo, loDLo, loDHi)
	c.op(glulxconst.OpDAdd, false, hiDLo, hiDHi, loDLo, loDHi, destLo, destHi)
}

// f64ToU64Exact narrows a double (dLo, dHi), assumed integral and in
// [0, 2^64), to its exact unsigned 64-bit word pair (destLo, destHi), by
// dividing out 2^32 to recover the high word and using the remainder for
// the low word.
func (c *fnCtx) f64ToU64Exact(alloc func() uint32, dLo, dHi, destLo, destHi glulxasm.Operand) {
	boundLo, boundHi := doubleConst(4294967296.0)
	quotLo, quotHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.op(glulxconst.OpDDiv, false, dLo, dHi, boundLo, boundHi, quotLo, quotHi)
	c.op(glulxconst.OpDFloor, false, quotLo, quotHi, quotLo, quotHi)
	c.f64ToU32Exact(alloc, quotLo, quotHi, destHi)
	prodLo, prodHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.op(glulxconst.OpDMul, false, quotLo, quotHi, boundLo, boundHi, prodLo, prodHi)
	c.op(glulxconst.OpDSub, false, dLo, dHi, prodLo, prodHi, prodLo, prodHi)
	c.f64ToU32Exact(alloc, prodLo, prodHi, destLo)
}

// truncDoubleToI64 narrows the double (dLo, dHi) to a 64-bit integer
// (destLo, destHi), trapping or saturating (per the saturating flag) on
// NaN and out-of-range values, for both the signed and unsigned
// destination interpretations.
func (c *fnCtx) truncDoubleToI64(alloc func() uint32, dLo, dHi, destLo, destHi glulxasm.Operand, signed, saturating bool) {
	zero := glulxasm.ConstOperand(0)
	var lowLo, lowHi, highLo, highHi glulxasm.Operand
	var clampLoLo, clampLoHi, clampHiLo, clampHiHi int64
	if signed {
		lowLo, lowHi = doubleConst(-9223372036854775808.0)
		highLo, highHi = doubleConst(9223372036854775808.0)
		clampLoLo, clampLoHi = 0, -0x80000000
		clampHiLo, clampHiHi = -1, 0x7fffffff
	} else {
		lowLo, lowHi = zero, zero
		highLo, highHi = doubleConst(18446744073709551616.0)
		clampLoLo, clampLoHi = 0, 0
		clampHiLo, clampHiHi = -1, -1
	}

	magLo, magHi := dLo, dHi
	if signed {
		magLo, magHi = c.scratchOp(alloc()), c.scratchOp(alloc())
		neg := c.newLabel("trunc64_neg")
		haveMag := c.newLabel("trunc64_havemag")
		c.op(glulxconst.OpDJlt, false, dLo, dHi, zero, zero, glulxasm.BranchOperand(neg))
		c.op(glulxconst.OpCopy, false, dLo, magLo)
		c.op(glulxconst.OpCopy, false, dHi, magHi)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(haveMag))
		c.emit(&glulxasm.LabelDef{L: neg})
		c.op(glulxconst.OpDSub, false, zero, zero, dLo, dHi, magLo, magHi)
		c.emit(&glulxasm.LabelDef{L: haveMag})
	}

	finish := func() {
		c.f64ToU64Exact(alloc, magLo, magHi, destLo, destHi)
		if signed {
			neg2 := c.newLabel("trunc64_neg2")
			done2 := c.newLabel("trunc64_done2")
			c.op(glulxconst.OpDJlt, false, dLo, dHi, zero, zero, glulxasm.BranchOperand(neg2))
			c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done2))
			c.emit(&glulxasm.LabelDef{L: neg2})
			c.callStack(glulxasm.LabelConstOperand(c.lx.Runtime.Sub64, 0), []glulxasm.Operand{zero, zero, destLo, destHi}, destLo)
			c.hiResult(destHi)
			c.emit(&glulxasm.LabelDef{L: done2})
		}
	}

	if saturating {
		nan := c.newLabel("trunc64_nan")
		low := c.newLabel("trunc64_low")
		high := c.newLabel("trunc64_high")
		normal := c.newLabel("trunc64_normal")
		done := c.newLabel("trunc64_done")
		c.op(glulxconst.OpDJisnan, false, dLo, dHi, glulxasm.BranchOperand(nan))
		c.op(glulxconst.OpDJlt, false, dLo, dHi, lowLo, lowHi, glulxasm.BranchOperand(low))
		c.op(glulxconst.OpDJge, false, dLo, dHi, highLo, highHi, glulxasm.BranchOperand(high))
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(normal))
		c.emit(&glulxasm.LabelDef{L: nan})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), destLo)
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), destHi)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: low})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(clampLoLo), destLo)
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(clampLoHi), destHi)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: high})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(clampHiLo), destLo)
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(clampHiHi), destHi)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: normal})
		finish()
		c.emit(&glulxasm.LabelDef{L: done})
	} else {
		c.trapIfAnyTrue(glulxconst.TrapInvalidConversion, func(bad *glulxasm.Label) {
			c.op(glulxconst.OpDJisnan, false, dLo, dHi, glulxasm.BranchOperand(bad))
			c.op(glulxconst.OpDJlt, false, dLo, dHi, lowLo, lowHi, glulxasm.BranchOperand(bad))
			c.op(glulxconst.OpDJge, false, dLo, dHi, highLo, highHi, glulxasm.BranchOperand(bad))
		})
		finish()
	}
}

// i32FromF32 handles i32.trunc_f32_{s,u} and i32.trunc_sat_f32_{s,u}.
func (c *fnCtx) i32FromF32(alloc func() uint32, signed, saturating bool) {
	v := c.materialize32(c.stack.pop(), alloc())
	destIdx := alloc()
	dest := c.scratchOp(destIdx)
	var minC, maxC glulxasm.Operand
	var clampLo, clampHi int64
	if signed {
		minC, maxC = floatConst(-2147483648.0), floatConst(2147483648.0)
		clampLo, clampHi = -0x80000000, 0x7fffffff
	} else {
		minC, maxC = floatConst(0.0), floatConst(4294967296.0)
		clampLo, clampHi = 0, -1
	}
	normalOp := func() {
		if signed {
			c.op(glulxconst.OpFtoNumZ, false, v, dest)
		} else {
			c.f32ToU32Exact(alloc, v, dest)
		}
	}
	if saturating {
		nan := c.newLabel("i32f32_nan")
		low := c.newLabel("i32f32_low")
		high := c.newLabel("i32f32_high")
		normal := c.newLabel("i32f32_normal")
		done := c.newLabel("i32f32_done")
		c.op(glulxconst.OpJisnan, false, v, glulxasm.BranchOperand(nan))
		c.op(glulxconst.OpJflt, false, v, minC, glulxasm.BranchOperand(low))
		c.op(glulxconst.OpJfge, false, v, maxC, glulxasm.BranchOperand(high))
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(normal))
		c.emit(&glulxasm.LabelDef{L: nan})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), dest)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: low})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(clampLo), dest)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: high})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(clampHi), dest)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: normal})
		normalOp()
		c.emit(&glulxasm.LabelDef{L: done})
	} else {
		c.trapIfAnyTrue(glulxconst.TrapInvalidConversion, func(bad *glulxasm.Label) {
			c.op(glulxconst.OpJisnan, false, v, glulxasm.BranchOperand(bad))
			c.op(glulxconst.OpJflt, false, v, minC, glulxasm.BranchOperand(bad))
			c.op(glulxconst.OpJfge, false, v, maxC, glulxasm.BranchOperand(bad))
		})
		normalOp()
	}
	c.stack.push(localOperand32(c.frame.scratch(destIdx)))
}

// i32FromF64 handles i32.trunc_f64_{s,u} and i32.trunc_sat_f64_{s,u}.
func (c *fnCtx) i32FromF64(alloc func() uint32, signed, saturating bool) {
	v := c.stack.pop()
	dLo, dHi := c.scratchOp(alloc()), c.scratchOp(alloc())
	c.materialize64Into(v, dLo, dHi)
	destIdx := alloc()
	dest := c.scratchOp(destIdx)
	var minLo, minHi, maxLo, maxHi glulxasm.Operand
	var clampLo, clampHi int64
	if signed {
		minLo, minHi = doubleConst(-2147483649.0)
		maxLo, maxHi = doubleConst(2147483648.0)
		clampLo, clampHi = -0x80000000, 0x7fffffff
	} else {
		minLo, minHi = doubleConst(-1.0)
		maxLo, maxHi = doubleConst(4294967296.0)
		clampLo, clampHi = 0, -1
	}
	normalOp := func() {
		if signed {
			c.op(glulxconst.OpDoubleToNum, false, dLo, dHi, dest)
		} else {
			c.f64ToU32Exact(alloc, dLo, dHi, dest)
		}
	}
	if saturating {
		nan := c.newLabel("i32f64_nan")
		low := c.newLabel("i32f64_low")
		high := c.newLabel("i32f64_high")
		normal := c.newLabel("i32f64_normal")
		done := c.newLabel("i32f64_done")
		c.op(glulxconst.OpDJisnan, false, dLo, dHi, glulxasm.BranchOperand(nan))
		c.op(glulxconst.OpDJlt, false, dLo, dHi, minLo, minHi, glulxasm.BranchOperand(low))
		c.op(glulxconst.OpDJge, false, dLo, dHi, maxLo, maxHi, glulxasm.BranchOperand(high))
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(normal))
		c.emit(&glulxasm.LabelDef{L: nan})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), dest)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: low})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(clampLo), dest)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: high})
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(clampHi), dest)
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: normal})
		normalOp()
		c.emit(&glulxasm.LabelDef{L: done})
	} else {
		c.trapIfAnyTrue(glulxconst.TrapInvalidConversion, func(bad *glulxasm.Label) {
			c.op(glulxconst.OpDJisnan, false, dLo, dHi, glulxasm.BranchOperand(bad))
			c.op(glulxconst.OpDJlt, false, dLo, dHi, minLo, minHi, glulxasm.BranchOperand(bad))
			c.op(glulxconst.OpDJge, false, dLo, dHi, maxLo, maxHi, glulxasm.BranchOperand(bad))
		})
		normalOp()
	}
	c.stack.push(localOperand32(c.frame.scratch(destIdx)))
}

func (c *fnCtx) lowerConversion(opc wasmir.Opcode) error {
	// alloc4 hands out fresh scratch slots starting above the fixed 4-7
	// range most cases below use directly for their popped operand(s) and
	// final result, so a case's own slots never collide with a helper's
	// internal temporaries.
	alloc4 := func() func() uint32 {
		i := uint32(8)
		return func() uint32 { v := i; i++; return v }
	}

	switch opc {
	case wasmir.OpI32WrapI64:
		v := c.stack.pop()
		lo, hi := c.scratchOp(4), c.scratchOp(5)
		c.materialize64Into(v, lo, hi)
		c.stack.push(localOperand32(c.frame.scratch(4)))

	case wasmir.OpI64ExtendI32S:
		v := c.materialize32(c.stack.pop(), 6)
		c.op(glulxconst.OpSShiftR, false, v, glulxasm.ConstOperand(31), c.scratchOp(7))
		c.stack.push(localOperand64(c.frame.scratch(6)))

	case wasmir.OpI64ExtendI32U:
		c.materialize32(c.stack.pop(), 6)
		c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), c.scratchOp(7))
		c.stack.push(localOperand64(c.frame.scratch(6)))

	case wasmir.OpI32ReinterpretF32, wasmir.OpF32ReinterpretI32,
		wasmir.OpI64ReinterpretF64, wasmir.OpF64ReinterpretI64:
		// Glulx stores both ints and IEEE754 floats/doubles as raw words;
		// reinterpreting between them changes no bits.

	case wasmir.OpF32DemoteF64:
		v := c.stack.pop()
		lo, hi := c.scratchOp(4), c.scratchOp(5)
		c.materialize64Into(v, lo, hi)
		dest := c.scratchOp(6)
		c.op(glulxconst.OpDToF, false, lo, hi, dest)
		c.stack.push(localOperand32(c.frame.scratch(6)))

	case wasmir.OpF64PromoteF32:
		v := c.materialize32(c.stack.pop(), 4)
		destLo, destHi := c.scratchOp(6), c.scratchOp(7)
		c.op(glulxconst.OpFToD, false, v, destLo, destHi)
		c.stack.push(localOperand64(c.frame.scratch(6)))

	case wasmir.OpF32ConvertI32S:
		v := c.materialize32(c.stack.pop(), 4)
		dest := c.scratchOp(5)
		c.op(glulxconst.OpNumToF, false, v, dest)
		c.stack.push(localOperand32(c.frame.scratch(5)))

	case wasmir.OpF32ConvertI32U:
		v := c.materialize32(c.stack.pop(), 4)
		alloc := alloc4()
		dLo, dHi := c.scratchOp(alloc()), c.scratchOp(alloc())
		c.u32ToF64(alloc, v, dLo, dHi)
		destIdx := alloc()
		c.op(glulxconst.OpDToF, false, dLo, dHi, c.scratchOp(destIdx))
		c.stack.push(localOperand32(c.frame.scratch(destIdx)))

	case wasmir.OpF32ConvertI64S:
		v := c.stack.pop()
		lo, hi := c.scratchOp(4), c.scratchOp(5)
		c.materialize64Into(v, lo, hi)
		alloc := alloc4()
		dLo, dHi := c.scratchOp(alloc()), c.scratchOp(alloc())
		c.i64ToF64(alloc, lo, hi, dLo, dHi)
		destIdx := alloc()
		c.op(glulxconst.OpDToF, false, dLo, dHi, c.scratchOp(destIdx))
		c.stack.push(localOperand32(c.frame.scratch(destIdx)))

	case wasmir.OpF32ConvertI64U:
		v := c.stack.pop()
		lo, hi := c.scratchOp(4), c.scratchOp(5)
		c.materialize64Into(v, lo, hi)
		alloc := alloc4()
		dLo, dHi := c.scratchOp(alloc()), c.scratchOp(alloc())
		c.u64ToF64(alloc, lo, hi, dLo, dHi)
		destIdx := alloc()
		c.op(glulxconst.OpDToF, false, dLo, dHi, c.scratchOp(destIdx))
		c.stack.push(localOperand32(c.frame.scratch(destIdx)))

	case wasmir.OpF64ConvertI32S:
		v := c.materialize32(c.stack.pop(), 4)
		destLo, destHi := c.scratchOp(6), c.scratchOp(7)
		c.op(glulxconst.OpNumToDouble, false, v, destLo, destHi)
		c.stack.push(localOperand64(c.frame.scratch(6)))

	case wasmir.OpF64ConvertI32U:
		v := c.materialize32(c.stack.pop(), 4)
		alloc := alloc4()
		destLo, destHi := c.scratchOp(6), c.scratchOp(7)
		c.u32ToF64(alloc, v, destLo, destHi)
		c.stack.push(localOperand64(c.frame.scratch(6)))

	case wasmir.OpF64ConvertI64S:
		v := c.stack.pop()
		lo, hi := c.scratchOp(4), c.scratchOp(5)
		c.materialize64Into(v, lo, hi)
		alloc := alloc4()
		destLo, destHi := c.scratchOp(6), c.scratchOp(7)
		c.i64ToF64(alloc, lo, hi, destLo, destHi)
		c.stack.push(localOperand64(c.frame.scratch(6)))

	case wasmir.OpF64ConvertI64U:
		v := c.stack.pop()
		lo, hi := c.scratchOp(4), c.scratchOp(5)
		c.materialize64Into(v, lo, hi)
		alloc := alloc4()
		destLo, destHi := c.scratchOp(6), c.scratchOp(7)
		c.u64ToF64(alloc, lo, hi, destLo, destHi)
		c.stack.push(localOperand64(c.frame.scratch(6)))

	case wasmir.OpI32TruncF32S:
		c.i32FromF32(alloc4(), true, false)
	case wasmir.OpI32TruncF32U:
		c.i32FromF32(alloc4(), false, false)
	case wasmir.OpI32TruncF64S:
		c.i32FromF64(alloc4(), true, false)
	case wasmir.OpI32TruncF64U:
		c.i32FromF64(alloc4(), false, false)
	case wasmir.OpI32TruncSatF32S:
		c.i32FromF32(alloc4(), true, true)
	case wasmir.OpI32TruncSatF32U:
		c.i32FromF32(alloc4(), false, true)
	case wasmir.OpI32TruncSatF64S:
		c.i32FromF64(alloc4(), true, true)
	case wasmir.OpI32TruncSatF64U:
		c.i32FromF64(alloc4(), false, true)

	case wasmir.OpI64TruncF32S, wasmir.OpI64TruncF32U,
		wasmir.OpI64TruncSatF32S, wasmir.OpI64TruncSatF32U:
		v := c.materialize32(c.stack.pop(), 4)
		alloc := alloc4()
		dLo, dHi := c.scratchOp(alloc()), c.scratchOp(alloc())
		c.op(glulxconst.OpFToD, false, v, dLo, dHi)
		destLo, destHi := c.scratchOp(6), c.scratchOp(7)
		signed := opc == wasmir.OpI64TruncF32S || opc == wasmir.OpI64TruncSatF32S
		saturating := opc == wasmir.OpI64TruncSatF32S || opc == wasmir.OpI64TruncSatF32U
		c.truncDoubleToI64(alloc, dLo, dHi, destLo, destHi, signed, saturating)
		c.stack.push(localOperand64(c.frame.scratch(6)))

	case wasmir.OpI64TruncF64S, wasmir.OpI64TruncF64U,
		wasmir.OpI64TruncSatF64S, wasmir.OpI64TruncSatF64U:
		v := c.stack.pop()
		dLo, dHi := c.scratchOp(4), c.scratchOp(5)
		c.materialize64Into(v, dLo, dHi)
		destLo, destHi := c.scratchOp(6), c.scratchOp(7)
		alloc := alloc4()
		signed := opc == wasmir.OpI64TruncF64S || opc == wasmir.OpI64TruncSatF64S
		saturating := opc == wasmir.OpI64TruncSatF64S || opc == wasmir.OpI64TruncSatF64U
		c.truncDoubleToI64(alloc, dLo, dHi, destLo, destHi, signed, saturating)
		c.stack.push(localOperand64(c.frame.scratch(6)))

	default:
		return c.unsupported(opc)
	}
	return nil
}
