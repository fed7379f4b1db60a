package lower

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// Table ops reuse Instr.TableIndex/Index per wasmir.Instr's convention: for
// table.copy, TableIndex is the destination table and Index is the source
// (WASM's reference-types proposal allows multiple tables, but this
// translator, like the MVP before it, treats a module with exactly one
// table as the overwhelmingly common case the call sites below are written
// against); for table.init/elem.drop, Index names the element segment.

func (c *fnCtx) tableSlotAddr(tableIdx uint32, elemIdx glulxasm.Operand, dest glulxasm.Operand) {
	table := c.lx.Module.Tables[tableIdx]
	base := c.lx.Layout.TableBases[tableIdx]
	slotSize := int64(layout.TableSlotSize(table.ElemType))
	off := c.scratchOp(6)
	c.op(glulxconst.OpMul, false, elemIdx, glulxasm.ConstOperand(slotSize), off)
	c.op(glulxconst.OpAdd, false, glulxasm.LabelConstOperand(base, 0), off, dest)
}

func (c *fnCtx) checkTableBounds(tableIdx uint32, elemIdx glulxasm.Operand) {
	cur := c.scratchOp(7)
	c.op(glulxconst.OpAload, false, glulxasm.LabelOperand(c.lx.Layout.TableSizeCells[tableIdx], 0), glulxasm.ConstOperand(0), cur)
	ok := c.newLabel("tablebounds_ok")
	c.op(glulxconst.OpJltu, false, elemIdx, cur, glulxasm.BranchOperand(ok))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapOutOfBoundsTableAccess)))
	c.emit(&glulxasm.LabelDef{L: ok})
}

func (c *fnCtx) lowerTableGet(instr *wasmir.Instr) {
	idx := c.materialize32(c.stack.pop(), 8)
	c.checkTableBounds(instr.TableIndex, idx)
	slot := c.scratchOp(9)
	c.tableSlotAddr(instr.TableIndex, idx, slot)

	table := c.lx.Module.Tables[instr.TableIndex]
	if table.ElemType == wasmir.ValueTypeFuncref {
		fp, code := c.scratchOp(10), c.scratchOp(11)
		c.op(glulxconst.OpAload, false, slot, glulxasm.ConstOperand(0), fp)
		c.op(glulxconst.OpAload, false, slot, glulxasm.ConstOperand(1), code)
		c.stack.push(localOperand64(c.frame.scratch(10)))
	} else {
		v := c.scratchOp(10)
		c.op(glulxconst.OpAload, false, slot, glulxasm.ConstOperand(0), v)
		c.stack.push(localOperand32(c.frame.scratch(10)))
	}
}

func (c *fnCtx) lowerTableSet(instr *wasmir.Instr) {
	table := c.lx.Module.Tables[instr.TableIndex]
	var fp, code glulxasm.Operand
	if table.ElemType == wasmir.ValueTypeFuncref {
		fp, code = c.scratchOp(12), c.scratchOp(13)
		c.materialize64Into(c.stack.pop(), fp, code)
	} else {
		code = c.materialize32(c.stack.pop(), 13)
	}
	idx := c.materialize32(c.stack.pop(), 8)
	c.checkTableBounds(instr.TableIndex, idx)
	slot := c.scratchOp(9)
	c.tableSlotAddr(instr.TableIndex, idx, slot)

	if table.ElemType == wasmir.ValueTypeFuncref {
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(0), fp)
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(1), code)
	} else {
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(0), code)
	}
}

func (c *fnCtx) lowerTableSize(instr *wasmir.Instr) {
	dest := c.scratchOp(8)
	c.op(glulxconst.OpAload, false, glulxasm.LabelOperand(c.lx.Layout.TableSizeCells[instr.TableIndex], 0), glulxasm.ConstOperand(0), dest)
	c.stack.push(localOperand32(c.frame.scratch(8)))
}

func (c *fnCtx) lowerTableGrow(instr *wasmir.Instr) {
	n := c.materialize32(c.stack.pop(), 8)
	table := c.lx.Module.Tables[instr.TableIndex]
	var fp, code glulxasm.Operand
	if table.ElemType == wasmir.ValueTypeFuncref {
		fp, code = c.scratchOp(9), c.scratchOp(10)
		c.materialize64Into(c.stack.pop(), fp, code)
	} else {
		code = c.materialize32(c.stack.pop(), 10)
	}

	cell := glulxasm.LabelOperand(c.lx.Layout.TableSizeCells[instr.TableIndex], 0)
	cur := c.scratchOp(11)
	c.op(glulxconst.OpAload, false, cell, glulxasm.ConstOperand(0), cur)
	newSize := c.scratchOp(12)
	c.op(glulxconst.OpAdd, false, cur, n, newSize)

	fail := c.newLabel("tablegrow_fail")
	done := c.newLabel("tablegrow_done")
	c.op(glulxconst.OpJgtu, false, newSize, glulxasm.ConstOperand(int64(c.lx.Layout.TableMaxes[instr.TableIndex])), glulxasm.BranchOperand(fail))

	// Fill the newly exposed slots [cur, newSize) with the fill value,
	// then commit the new size, mirroring table.fill's loop.
	fillDone := c.newLabel("tablegrow_filldone")
	i := c.scratchOp(13)
	c.op(glulxconst.OpCopy, false, cur, i)
	loop := c.newLabel("tablegrow_loop")
	c.emit(&glulxasm.LabelDef{L: loop})
	c.op(glulxconst.OpJgeu, false, i, newSize, glulxasm.BranchOperand(fillDone))
	slot := c.scratchOp(14)
	c.tableSlotAddr(instr.TableIndex, i, slot)
	if table.ElemType == wasmir.ValueTypeFuncref {
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(0), fp)
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(1), code)
	} else {
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(0), code)
	}
	c.op(glulxconst.OpAdd, false, i, glulxasm.ConstOperand(1), i)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop))

	c.emit(&glulxasm.LabelDef{L: fillDone})
	c.op(glulxconst.OpAstore, false, cell, glulxasm.ConstOperand(0), newSize)
	dest := c.scratchOp(15)
	c.op(glulxconst.OpCopy, false, cur, dest)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))

	c.emit(&glulxasm.LabelDef{L: fail})
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(-1), dest)

	c.emit(&glulxasm.LabelDef{L: done})
	c.stack.push(localOperand32(c.frame.scratch(15)))
}

func (c *fnCtx) lowerTableFill(instr *wasmir.Instr) {
	n := c.materialize32(c.stack.pop(), 8)
	table := c.lx.Module.Tables[instr.TableIndex]
	var fp, code glulxasm.Operand
	if table.ElemType == wasmir.ValueTypeFuncref {
		fp, code = c.scratchOp(9), c.scratchOp(10)
		c.materialize64Into(c.stack.pop(), fp, code)
	} else {
		code = c.materialize32(c.stack.pop(), 10)
	}
	start := c.materialize32(c.stack.pop(), 11)

	end := c.scratchOp(12)
	c.op(glulxconst.OpAdd, false, start, n, end)
	c.checkTableBoundsInclusiveEnd(instr.TableIndex, end)

	i := c.scratchOp(13)
	c.op(glulxconst.OpCopy, false, start, i)
	loop := c.newLabel("tablefill_loop")
	done := c.newLabel("tablefill_done")
	c.emit(&glulxasm.LabelDef{L: loop})
	c.op(glulxconst.OpJgeu, false, i, end, glulxasm.BranchOperand(done))
	slot := c.scratchOp(14)
	c.tableSlotAddr(instr.TableIndex, i, slot)
	if table.ElemType == wasmir.ValueTypeFuncref {
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(0), fp)
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(1), code)
	} else {
		c.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(0), code)
	}
	c.op(glulxconst.OpAdd, false, i, glulxasm.ConstOperand(1), i)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop))
	c.emit(&glulxasm.LabelDef{L: done})
}

// checkTableBoundsInclusiveEnd traps unless end (an exclusive upper bound
// already computed as start+count) is within the table's current logical
// size, covering the zero-count case where start==size is legal.
func (c *fnCtx) checkTableBoundsInclusiveEnd(tableIdx uint32, end glulxasm.Operand) {
	cur := c.scratchOp(15)
	c.op(glulxconst.OpAload, false, glulxasm.LabelOperand(c.lx.Layout.TableSizeCells[tableIdx], 0), glulxasm.ConstOperand(0), cur)
	ok := c.newLabel("tablebounds_ok")
	c.op(glulxconst.OpJleu, false, end, cur, glulxasm.BranchOperand(ok))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapOutOfBoundsTableAccess)))
	c.emit(&glulxasm.LabelDef{L: ok})
}

func (c *fnCtx) lowerTableCopy(instr *wasmir.Instr) {
	n := c.materialize32(c.stack.pop(), 8)
	src := c.materialize32(c.stack.pop(), 9)
	dst := c.materialize32(c.stack.pop(), 10)

	srcEnd := c.scratchOp(11)
	c.op(glulxconst.OpAdd, false, src, n, srcEnd)
	c.checkTableBoundsInclusiveEnd(instr.Index, srcEnd)
	dstEnd := c.scratchOp(12)
	c.op(glulxconst.OpAdd, false, dst, n, dstEnd)
	c.checkTableBoundsInclusiveEnd(instr.TableIndex, dstEnd)

	backward := c.newLabel("tablecopy_backward")
	done := c.newLabel("tablecopy_done")
	c.op(glulxconst.OpJgtu, false, dst, src, glulxasm.BranchOperand(backward))

	i := c.scratchOp(13)
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), i)
	forward := c.newLabel("tablecopy_forward")
	c.emit(&glulxasm.LabelDef{L: forward})
	c.op(glulxconst.OpJgeu, false, i, n, glulxasm.BranchOperand(done))
	c.tableCopyOneSlot(instr, src, dst, i)
	c.op(glulxconst.OpAdd, false, i, glulxasm.ConstOperand(1), i)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(forward))

	c.emit(&glulxasm.LabelDef{L: backward})
	c.op(glulxconst.OpCopy, false, n, i)
	loopBack := c.newLabel("tablecopy_loopback")
	c.emit(&glulxasm.LabelDef{L: loopBack})
	c.op(glulxconst.OpJz, false, i, glulxasm.BranchOperand(done))
	c.op(glulxconst.OpSub, false, i, glulxasm.ConstOperand(1), i)
	c.tableCopyOneSlot(instr, src, dst, i)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(loopBack))

	c.emit(&glulxasm.LabelDef{L: done})
}

func (c *fnCtx) tableCopyOneSlot(instr *wasmir.Instr, src, dst, i glulxasm.Operand) {
	srcIdx := c.scratchOp(20)
	c.op(glulxconst.OpAdd, false, src, i, srcIdx)
	dstIdx := c.scratchOp(21)
	c.op(glulxconst.OpAdd, false, dst, i, dstIdx)

	srcSlot := c.scratchOp(22)
	c.tableSlotAddr(instr.Index, srcIdx, srcSlot)
	dstSlot := c.scratchOp(23)
	c.tableSlotAddr(instr.TableIndex, dstIdx, dstSlot)

	table := c.lx.Module.Tables[instr.TableIndex]
	if table.ElemType == wasmir.ValueTypeFuncref {
		fp, code := c.scratchOp(14), c.scratchOp(15)
		c.op(glulxconst.OpAload, false, srcSlot, glulxasm.ConstOperand(0), fp)
		c.op(glulxconst.OpAload, false, srcSlot, glulxasm.ConstOperand(1), code)
		c.op(glulxconst.OpAstore, false, dstSlot, glulxasm.ConstOperand(0), fp)
		c.op(glulxconst.OpAstore, false, dstSlot, glulxasm.ConstOperand(1), code)
	} else {
		v := c.scratchOp(14)
		c.op(glulxconst.OpAload, false, srcSlot, glulxasm.ConstOperand(0), v)
		c.op(glulxconst.OpAstore, false, dstSlot, glulxasm.ConstOperand(0), v)
	}
}

// lowerTableInit copies from an element segment (already materialized by
// internal/prelude into its own ROM-resident constant table, one per
// Module.Elements entry) into the live table, the same shape as
// lowerMemoryCopy's forward loop — no overlap concern since segment storage
// and table storage never alias.
func (c *fnCtx) lowerTableInit(instr *wasmir.Instr) {
	segBase := c.lx.ElemSegmentBases[instr.Index]
	n := c.materialize32(c.stack.pop(), 8)
	src := c.materialize32(c.stack.pop(), 9)
	dst := c.materialize32(c.stack.pop(), 10)

	dropped := c.scratchOp(20)
	c.op(glulxconst.OpAloadb, false, glulxasm.LabelOperand(c.lx.ElemSegmentDropFlags[instr.Index], 0), glulxasm.ConstOperand(0), dropped)
	c.trapIfNonZeroUnless(dropped, n, glulxconst.TrapOutOfBoundsTableAccess)

	segElems := int64(len(c.lx.Module.Elements[instr.Index].FuncIndices))
	srcEnd := c.scratchOp(21)
	c.op(glulxconst.OpAdd, false, src, n, srcEnd)
	okSrc := c.newLabel("tableinit_srcok")
	c.op(glulxconst.OpJleu, false, srcEnd, glulxasm.ConstOperand(segElems), glulxasm.BranchOperand(okSrc))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapOutOfBoundsTableAccess)))
	c.emit(&glulxasm.LabelDef{L: okSrc})

	dstEnd := c.scratchOp(11)
	c.op(glulxconst.OpAdd, false, dst, n, dstEnd)
	c.checkTableBoundsInclusiveEnd(instr.TableIndex, dstEnd)

	table := c.lx.Module.Tables[instr.TableIndex]
	slotSize := int64(layout.TableSlotSize(table.ElemType))

	i := c.scratchOp(12)
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), i)
	loop := c.newLabel("tableinit_loop")
	done := c.newLabel("tableinit_done")
	c.emit(&glulxasm.LabelDef{L: loop})
	c.op(glulxconst.OpJgeu, false, i, n, glulxasm.BranchOperand(done))

	srcIdx := c.scratchOp(13)
	c.op(glulxconst.OpAdd, false, src, i, srcIdx)
	srcOff := c.scratchOp(14)
	c.op(glulxconst.OpMul, false, srcIdx, glulxasm.ConstOperand(slotSize), srcOff)
	srcSlot := c.scratchOp(15)
	c.op(glulxconst.OpAdd, false, glulxasm.LabelConstOperand(segBase, 0), srcOff, srcSlot)

	dstIdx := c.scratchOp(16)
	c.op(glulxconst.OpAdd, false, dst, i, dstIdx)
	dstSlot := c.scratchOp(17)
	c.tableSlotAddr(instr.TableIndex, dstIdx, dstSlot)

	if table.ElemType == wasmir.ValueTypeFuncref {
		fp, code := c.scratchOp(18), c.scratchOp(19)
		c.op(glulxconst.OpAload, false, srcSlot, glulxasm.ConstOperand(0), fp)
		c.op(glulxconst.OpAload, false, srcSlot, glulxasm.ConstOperand(1), code)
		c.op(glulxconst.OpAstore, false, dstSlot, glulxasm.ConstOperand(0), fp)
		c.op(glulxconst.OpAstore, false, dstSlot, glulxasm.ConstOperand(1), code)
	} else {
		v := c.scratchOp(18)
		c.op(glulxconst.OpAload, false, srcSlot, glulxasm.ConstOperand(0), v)
		c.op(glulxconst.OpAstore, false, dstSlot, glulxasm.ConstOperand(0), v)
	}

	c.op(glulxconst.OpAdd, false, i, glulxasm.ConstOperand(1), i)
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop))
	c.emit(&glulxasm.LabelDef{L: done})
}

func (c *fnCtx) lowerElemDrop(instr *wasmir.Instr) {
	c.op(glulxconst.OpAstoreb, false, glulxasm.LabelOperand(c.lx.ElemSegmentDropFlags[instr.Index], 0), glulxasm.ConstOperand(0), glulxasm.ConstOperand(1))
}
