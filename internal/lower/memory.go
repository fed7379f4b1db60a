package lower

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// effectiveAddr computes memory_base + static_offset + dynamic_index into a
// scratch local and returns it. WASM linear memory is laid out as the
// final, growable region of the image, so Glulx's own
// getmemsize/setmemsize double as the WASM memory's own size tracking with
// no separate accounting cell — internal/runtimelib's MemoryGrow routine
// and the bounds check below both rely on this.
func (c *fnCtx) effectiveAddr(offset uint32, index glulxasm.Operand) glulxasm.Operand {
	base := glulxasm.LabelConstOperand(c.lx.Layout.MemoryBase, int64(offset))
	dest := c.scratchOp(12)
	c.op(glulxconst.OpAdd, false, base, index, dest)
	return dest
}

// checkMemoryBounds traps with TrapOutOfBoundsMemory unless [addr, addr+n)
// lies entirely within the current (possibly grown) WASM memory region.
func (c *fnCtx) checkMemoryBounds(addr glulxasm.Operand, n int64) {
	memEnd := c.scratchOp(13)
	c.op(glulxconst.OpAdd, false, addr, glulxasm.ConstOperand(n), memEnd)
	imageEnd := c.scratchOp(14)
	c.op(glulxconst.OpGetmemsize, false, imageEnd)
	ok := c.newLabel("membounds_ok")
	c.op(glulxconst.OpJleu, false, memEnd, imageEnd, glulxasm.BranchOperand(ok))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapOutOfBoundsMemory)))
	c.emit(&glulxasm.LabelDef{L: ok})
}

// loadBytesLE reads n bytes (1, 2, or 4) starting at addr and reassembles
// them as a little-endian value, since Glulx memory is addressed byte-wise
// but this translator never assumes a native multi-byte load's endianness
// matches WASM's — every access goes through aloadb one byte at a time,
// which sidesteps the question entirely.
func (c *fnCtx) loadBytesLE(addr glulxasm.Operand, n int, dest glulxasm.Operand) {
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), dest)
	for i := n - 1; i >= 0; i-- {
		b := c.scratchOp(15)
		c.op(glulxconst.OpAloadb, false, addr, glulxasm.ConstOperand(int64(i)), b)
		c.op(glulxconst.OpShiftL, false, dest, glulxasm.ConstOperand(8), dest)
		c.op(glulxconst.OpBitOr, false, dest, b, dest)
	}
}

func (c *fnCtx) storeBytesLE(addr glulxasm.Operand, n int, v glulxasm.Operand) {
	for i := 0; i < n; i++ {
		b := c.scratchOp(15)
		if i == 0 {
			c.op(glulxconst.OpBitAnd, false, v, glulxasm.ConstOperand(0xff), b)
		} else {
			c.op(glulxconst.OpUShiftR, false, v, glulxasm.ConstOperand(int64(8*i)), b)
			c.op(glulxconst.OpBitAnd, false, b, glulxasm.ConstOperand(0xff), b)
		}
		c.op(glulxconst.OpAstoreb, false, addr, glulxasm.ConstOperand(int64(i)), b)
	}
}

func (c *fnCtx) lowerLoad(instr *wasmir.Instr) {
	idx := c.materialize32(c.stack.pop(), 16)
	addr := c.effectiveAddr(instr.Offset, idx)

	switch instr.Op {
	case wasmir.OpI32Load:
		c.checkMemoryBounds(addr, 4)
		dest := c.scratchOp(17)
		c.loadBytesLE(addr, 4, dest)
		c.stack.push(localOperand32(c.frame.scratch(17)))
	case wasmir.OpI32Load8U, wasmir.OpI32Load8S:
		c.checkMemoryBounds(addr, 1)
		dest := c.scratchOp(17)
		c.loadBytesLE(addr, 1, dest)
		if instr.Op == wasmir.OpI32Load8S {
			c.op(glulxconst.OpSexb, false, dest, dest)
		}
		c.stack.push(localOperand32(c.frame.scratch(17)))
	case wasmir.OpI32Load16U, wasmir.OpI32Load16S:
		c.checkMemoryBounds(addr, 2)
		dest := c.scratchOp(17)
		c.loadBytesLE(addr, 2, dest)
		if instr.Op == wasmir.OpI32Load16S {
			c.op(glulxconst.OpSexs, false, dest, dest)
		}
		c.stack.push(localOperand32(c.frame.scratch(17)))
	case wasmir.OpF32Load:
		c.checkMemoryBounds(addr, 4)
		dest := c.scratchOp(17)
		c.loadBytesLE(addr, 4, dest)
		c.stack.push(localOperand32(c.frame.scratch(17)))
	case wasmir.OpI64Load:
		c.checkMemoryBounds(addr, 8)
		lo, hi := c.scratchOp(17), c.scratchOp(18)
		c.loadBytesLE(addr, 4, lo)
		addrHi := c.scratchOp(19)
		c.op(glulxconst.OpAdd, false, addr, glulxasm.ConstOperand(4), addrHi)
		c.loadBytesLE(addrHi, 4, hi)
		c.stack.push(localOperand64(c.frame.scratch(17)))
	case wasmir.OpF64Load:
		c.checkMemoryBounds(addr, 8)
		lo, hi := c.scratchOp(17), c.scratchOp(18)
		c.loadBytesLE(addr, 4, lo)
		addrHi := c.scratchOp(19)
		c.op(glulxconst.OpAdd, false, addr, glulxasm.ConstOperand(4), addrHi)
		c.loadBytesLE(addrHi, 4, hi)
		c.stack.push(localOperand64(c.frame.scratch(17)))
	case wasmir.OpI64Load8U, wasmir.OpI64Load8S:
		c.checkMemoryBounds(addr, 1)
		lo, hi := c.scratchOp(17), c.scratchOp(18)
		c.loadBytesLE(addr, 1, lo)
		if instr.Op == wasmir.OpI64Load8S {
			c.op(glulxconst.OpSexb, false, lo, lo)
			c.op(glulxconst.OpSShiftR, false, lo, glulxasm.ConstOperand(31), hi)
		} else {
			c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), hi)
		}
		c.stack.push(localOperand64(c.frame.scratch(17)))
	case wasmir.OpI64Load16U, wasmir.OpI64Load16S:
		c.checkMemoryBounds(addr, 2)
		lo, hi := c.scratchOp(17), c.scratchOp(18)
		c.loadBytesLE(addr, 2, lo)
		if instr.Op == wasmir.OpI64Load16S {
			c.op(glulxconst.OpSexs, false, lo, lo)
			c.op(glulxconst.OpSShiftR, false, lo, glulxasm.ConstOperand(31), hi)
		} else {
			c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), hi)
		}
		c.stack.push(localOperand64(c.frame.scratch(17)))
	case wasmir.OpI64Load32U, wasmir.OpI64Load32S:
		c.checkMemoryBounds(addr, 4)
		lo, hi := c.scratchOp(17), c.scratchOp(18)
		c.loadBytesLE(addr, 4, lo)
		if instr.Op == wasmir.OpI64Load32S {
			c.op(glulxconst.OpSShiftR, false, lo, glulxasm.ConstOperand(31), hi)
		} else {
			c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), hi)
		}
		c.stack.push(localOperand64(c.frame.scratch(17)))
	}
}

func (c *fnCtx) lowerStore(instr *wasmir.Instr) {
	switch instr.Op {
	case wasmir.OpI32Store, wasmir.OpI32Store8, wasmir.OpI32Store16, wasmir.OpF32Store:
		v := c.materialize32(c.stack.pop(), 17)
		idx := c.materialize32(c.stack.pop(), 16)
		addr := c.effectiveAddr(instr.Offset, idx)
		n := map[wasmir.Opcode]int{
			wasmir.OpI32Store: 4, wasmir.OpI32Store8: 1, wasmir.OpI32Store16: 2, wasmir.OpF32Store: 4,
		}[instr.Op]
		c.checkMemoryBounds(addr, int64(n))
		c.storeBytesLE(addr, n, v)
	case wasmir.OpI64Store, wasmir.OpI64Store8, wasmir.OpI64Store16, wasmir.OpI64Store32, wasmir.OpF64Store:
		v := c.stack.pop()
		lo, hi := c.scratchOp(17), c.scratchOp(18)
		c.materialize64Into(v, lo, hi)
		idx := c.materialize32(c.stack.pop(), 16)
		addr := c.effectiveAddr(instr.Offset, idx)
		switch instr.Op {
		case wasmir.OpI64Store8:
			c.checkMemoryBounds(addr, 1)
			c.storeBytesLE(addr, 1, lo)
		case wasmir.OpI64Store16:
			c.checkMemoryBounds(addr, 2)
			c.storeBytesLE(addr, 2, lo)
		case wasmir.OpI64Store32:
			c.checkMemoryBounds(addr, 4)
			c.storeBytesLE(addr, 4, lo)
		default:
			c.checkMemoryBounds(addr, 8)
			c.storeBytesLE(addr, 4, lo)
			addrHi := c.scratchOp(19)
			c.op(glulxconst.OpAdd, false, addr, glulxasm.ConstOperand(4), addrHi)
			c.storeBytesLE(addrHi, 4, hi)
		}
	}
}

// lowerMemorySize/Grow implement the two size-management instructions in
// terms of internal/runtimelib.MemoryGrow and the same getmemsize-based
// accounting checkMemoryBounds uses.
func (c *fnCtx) lowerMemorySize() {
	total := c.scratchOp(16)
	c.op(glulxconst.OpGetmemsize, false, total)
	base := glulxasm.LabelConstOperand(c.lx.Layout.MemoryBase, 0)
	dest := c.scratchOp(17)
	c.op(glulxconst.OpSub, false, total, base, dest)
	c.op(glulxconst.OpDiv, false, dest, glulxasm.ConstOperand(wasmir.WasmPageSize), dest)
	c.stack.push(localOperand32(c.frame.scratch(17)))
}

func (c *fnCtx) lowerMemoryGrow() {
	delta := c.materialize32(c.stack.pop(), 16)
	dest := c.scratchOp(17)
	c.op(glulxconst.OpCallfi, false, glulxasm.LabelConstOperand(c.lx.Runtime.MemoryGrow, 0), delta, dest)
	c.stack.push(localOperand32(c.frame.scratch(17)))
}

// lowerMemoryFill/Copy/Init implement the bulk-memory proposal's byte-level
// operations with straightforward counted loops; Glulx's mzero/mcopy
// opcodes operate on its own address space directly and would need the same
// per-byte endianness care memory.copy's overlap semantics already demand,
// so a WASM-visible loop over aloadb/astoreb is used uniformly instead of
// reaching for mzero/mcopy (kept available for internal/prelude's own
// non-WASM-visible bulk clears, where no endianness conversion applies).
func (c *fnCtx) lowerMemoryFill() {
	n := c.materialize32(c.stack.pop(), 16)
	val := c.materialize32(c.stack.pop(), 17)
	dst := c.materialize32(c.stack.pop(), 18)
	addr := c.effectiveAddr(0, dst)
	end := c.scratchOp(20)
	c.op(glulxconst.OpAdd, false, addr, n, end)
	c.checkMemoryBounds(end, 0)
	i := c.scratchOp(19)
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), i)
	loop := c.newLabel("memfill_loop")
	done := c.newLabel("memfill_done")
	c.emit(&glulxasm.LabelDef{L: loop})
	c.op(glulxconst.OpJgeu, false, i, n, glulxasm.BranchOperand(done))
	cur := c.scratchOp(20)
	c.op(glulxconst.OpAdd, false, addr, i, cur)
	c.op(glulxconst.OpAstoreb, false, cur, glulxasm.ConstOperand(0), val)
	c.op(glulxconst.OpAdd, false, i, glulxasm.ConstOperand(1), i)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop))
	c.emit(&glulxasm.LabelDef{L: done})
}

func (c *fnCtx) addrPlus(a, b glulxasm.Operand) glulxasm.Operand {
	dest := c.scratchOp(21)
	c.op(glulxconst.OpAdd, false, a, b, dest)
	return dest
}

// lowerMemoryCopy copies as if through an intermediate buffer (the WASM
// bulk-memory proposal's memmove semantics): overlapping ranges where the
// destination starts after the source must copy back-to-front, or the tail
// of the source would be clobbered before it's read.
func (c *fnCtx) lowerMemoryCopy() {
	n := c.materialize32(c.stack.pop(), 16)
	src := c.materialize32(c.stack.pop(), 17)
	dst := c.materialize32(c.stack.pop(), 18)
	srcAddr := c.effectiveAddr(0, src)
	dstAddr := c.scratchOp(22)
	c.op(glulxconst.OpAdd, false, glulxasm.LabelConstOperand(c.lx.Layout.MemoryBase, 0), dst, dstAddr)

	srcEnd := c.addrPlus(srcAddr, n)
	c.checkMemoryBounds(srcEnd, 0)
	dstEnd := c.addrPlus(dstAddr, n)
	c.checkMemoryBounds(dstEnd, 0)

	backward := c.newLabel("memcopy_backward")
	forward := c.newLabel("memcopy_forward")
	done := c.newLabel("memcopy_done")
	c.op(glulxconst.OpJgtu, false, dstAddr, srcAddr, glulxasm.BranchOperand(backward))

	i := c.scratchOp(19)
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), i)
	c.emit(&glulxasm.LabelDef{L: forward})
	c.op(glulxconst.OpJgeu, false, i, n, glulxasm.BranchOperand(done))
	b := c.scratchOp(20)
	srcCur := c.scratchOp(23)
	c.op(glulxconst.OpAdd, false, srcAddr, i, srcCur)
	c.op(glulxconst.OpAloadb, false, srcCur, glulxasm.ConstOperand(0), b)
	dstCur := c.scratchOp(21)
	c.op(glulxconst.OpAdd, false, dstAddr, i, dstCur)
	c.op(glulxconst.OpAstoreb, false, dstCur, glulxasm.ConstOperand(0), b)
	c.op(glulxconst.OpAdd, false, i, glulxasm.ConstOperand(1), i)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(forward))

	c.emit(&glulxasm.LabelDef{L: backward})
	c.op(glulxconst.OpCopy, false, n, i)
	loopBack := c.newLabel("memcopy_loopback")
	c.emit(&glulxasm.LabelDef{L: loopBack})
	c.op(glulxconst.OpJz, false, i, glulxasm.BranchOperand(done))
	c.op(glulxconst.OpSub, false, i, glulxasm.ConstOperand(1), i)
	bb := c.scratchOp(20)
	srcCurB := c.scratchOp(23)
	c.op(glulxconst.OpAdd, false, srcAddr, i, srcCurB)
	c.op(glulxconst.OpAloadb, false, srcCurB, glulxasm.ConstOperand(0), bb)
	dstCurB := c.scratchOp(21)
	c.op(glulxconst.OpAdd, false, dstAddr, i, dstCurB)
	c.op(glulxconst.OpAstoreb, false, dstCurB, glulxasm.ConstOperand(0), bb)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(loopBack))

	c.emit(&glulxasm.LabelDef{L: done})
}

// lowerMemoryInit copies from a data segment's ROM-resident bytes into
// linear memory. A dropped segment behaves as having length zero: any
// nonzero count traps, matching lowerDataDrop's flag.
func (c *fnCtx) lowerMemoryInit(instr *wasmir.Instr) {
	n := c.materialize32(c.stack.pop(), 16)
	src := c.materialize32(c.stack.pop(), 17)
	dst := c.materialize32(c.stack.pop(), 18)

	dropped := c.scratchOp(19)
	c.op(glulxconst.OpAloadb, false, glulxasm.LabelOperand(c.lx.DataSegmentDropFlags[instr.Index], 0), glulxasm.ConstOperand(0), dropped)
	c.trapIfNonZeroUnless(dropped, n, glulxconst.TrapOutOfBoundsMemory)

	segLen := int64(len(c.lx.Module.Data[instr.Index].Bytes))
	srcEnd := c.scratchOp(20)
	c.op(glulxconst.OpAdd, false, src, n, srcEnd)
	ok := c.newLabel("meminit_srcok")
	c.op(glulxconst.OpJleu, false, srcEnd, glulxasm.ConstOperand(segLen), glulxasm.BranchOperand(ok))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapOutOfBoundsMemory)))
	c.emit(&glulxasm.LabelDef{L: ok})

	dstAddr := c.effectiveAddr(0, dst)
	dstEnd := c.addrPlus(dstAddr, n)
	c.checkMemoryBounds(dstEnd, 0)

	segBase := c.lx.DataSegmentBases[instr.Index]
	i := c.scratchOp(21)
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), i)
	loop := c.newLabel("meminit_loop")
	done := c.newLabel("meminit_done")
	c.emit(&glulxasm.LabelDef{L: loop})
	c.op(glulxconst.OpJgeu, false, i, n, glulxasm.BranchOperand(done))
	b := c.scratchOp(22)
	srcCur := c.scratchOp(23)
	c.op(glulxconst.OpAdd, false, src, i, srcCur)
	c.op(glulxconst.OpAloadb, false, glulxasm.LabelConstOperand(segBase, 0), srcCur, b)
	dstCur := c.scratchOp(15)
	c.op(glulxconst.OpAdd, false, dstAddr, i, dstCur)
	c.op(glulxconst.OpAstoreb, false, dstCur, glulxasm.ConstOperand(0), b)
	c.op(glulxconst.OpAdd, false, i, glulxasm.ConstOperand(1), i)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop))
	c.emit(&glulxasm.LabelDef{L: done})
}

// trapIfNonZeroUnless traps with code when cond is nonzero, unless guard is
// zero (used for the dropped-segment "zero count is always fine" rule).
func (c *fnCtx) trapIfNonZeroUnless(cond, guard glulxasm.Operand, code glulxconst.TrapCode) {
	ok := c.newLabel("trap_ok")
	c.op(glulxconst.OpJz, false, cond, glulxasm.BranchOperand(ok))
	c.op(glulxconst.OpJz, false, guard, glulxasm.BranchOperand(ok))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(code)))
	c.emit(&glulxasm.LabelDef{L: ok})
}

func (c *fnCtx) lowerDataDrop(instr *wasmir.Instr) {
	c.op(glulxconst.OpAstoreb, false, glulxasm.LabelOperand(c.lx.DataSegmentDropFlags[instr.Index], 0), glulxasm.ConstOperand(0), glulxasm.ConstOperand(1))
}
