package lower

import (
	"math"

	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// lowerLocalGet pushes a WASM local directly as an operandLocal entry
// rather than emitting any instruction: the very next instruction that
// consumes this value reads the local in place, and only has to commit it
// to the real stack if it turns out to be needed across a branch or a
// call.
func (c *fnCtx) lowerLocalGet(idx uint32) {
	width := c.frame.width(idx)
	off := c.frame.offset(idx)
	if width == 8 {
		c.stack.push(localOperand64(off))
	} else {
		c.stack.push(localOperand32(off))
	}
}

func (c *fnCtx) lowerLocalSet(idx uint32) {
	v := c.stack.pop()
	c.storeLocal(idx, v)
}

func (c *fnCtx) lowerLocalTee(idx uint32) {
	v := c.stack.peek()
	c.storeLocal(idx, v)
	// local.tee leaves the value on the stack; re-reading the local is
	// cheaper than re-materializing a pushed operand a second time.
	c.stack.truncate(c.stack.height() - 1)
	c.lowerLocalGet(idx)
}

func (c *fnCtx) storeLocal(idx uint32, v operand) {
	off := c.frame.offset(idx)
	if c.frame.width(idx) == 8 {
		c.materialize64Into(v, glulxasm.LocalOperand(off), glulxasm.LocalOperand(off+4))
		return
	}
	c.op(glulxconst.OpCopy, false, c.materialize32(v, 0), glulxasm.LocalOperand(off))
}

func (c *fnCtx) globalAddr(idx uint32) (addr glulxasm.Operand, width uint32) {
	off := c.lx.Layout.GlobalOffsets[idx]
	g := c.lx.Module.Globals[idx]
	return glulxasm.LabelOperand(c.lx.Layout.GlobalsBase, int64(off)), uint32(g.Type.Size())
}

func (c *fnCtx) lowerGlobalGet(idx uint32) {
	addr, width := c.globalAddr(idx)
	if width == 8 {
		c.op(glulxconst.OpAload, false, addr, glulxasm.ConstOperand(0), c.scratchOp(0))
		c.op(glulxconst.OpAload, false, addr, glulxasm.ConstOperand(1), c.scratchOp(1))
		c.stack.push(localOperand64(c.frame.scratch(0)))
		return
	}
	c.op(glulxconst.OpAload, false, addr, glulxasm.ConstOperand(0), c.scratchOp(0))
	c.stack.push(localOperand32(c.frame.scratch(0)))
}

func (c *fnCtx) lowerGlobalSet(idx uint32) {
	v := c.stack.pop()
	addr, width := c.globalAddr(idx)
	if width == 8 {
		c.materialize64Into(v, c.scratchOp(0), c.scratchOp(1))
		c.op(glulxconst.OpAstore, false, addr, glulxasm.ConstOperand(0), c.scratchOp(0))
		c.op(glulxconst.OpAstore, false, addr, glulxasm.ConstOperand(1), c.scratchOp(1))
		return
	}
	c.op(glulxconst.OpAstore, false, addr, glulxasm.ConstOperand(0), c.materialize32(v, 0))
}

func (c *fnCtx) lowerConst(instr *wasmir.Instr) {
	switch instr.Op {
	case wasmir.OpI32Const:
		c.stack.push(constOperand32(int64(instr.I32Value)))
	case wasmir.OpF32Const:
		c.stack.push(constOperand32(int64(int32(math.Float32bits(instr.F32Value)))))
	case wasmir.OpI64Const:
		lo := int64(int32(uint32(instr.I64Value)))
		hi := int64(int32(uint32(instr.I64Value >> 32)))
		c.stack.push(constOperand64(lo, hi))
	case wasmir.OpF64Const:
		bits := math.Float64bits(instr.F64Value)
		lo := int64(int32(uint32(bits)))
		hi := int64(int32(uint32(bits >> 32)))
		c.stack.push(constOperand64(lo, hi))
	}
}

// lowerDrop discards the top abstract entry. If it was an operandPushed
// value the real Glulx stack still needs the pop to keep the stack
// balanced; if it never got materialized, there is nothing to undo.
func (c *fnCtx) lowerDrop() {
	v := c.stack.pop()
	if v.kind != operandPushed {
		return
	}
	if v.width == width64 {
		c.op(glulxconst.OpCopy, false, glulxasm.PopOperand, glulxasm.LocalOperand(c.frame.scratch(0)))
		c.op(glulxconst.OpCopy, false, glulxasm.PopOperand, glulxasm.LocalOperand(c.frame.scratch(0)))
		return
	}
	c.op(glulxconst.OpCopy, false, glulxasm.PopOperand, glulxasm.LocalOperand(c.frame.scratch(0)))
}

func (c *fnCtx) lowerSelect() {
	cond := c.stack.pop()
	b := c.stack.pop()
	a := c.stack.pop()
	condOp := c.materialize32(cond, 1)

	isB := c.newLabel("select_b")
	done := c.newLabel("select_done")
	c.op(glulxconst.OpJz, false, condOp, glulxasm.BranchOperand(isB))

	if a.width == width64 {
		c.materialize64Into(a, glulxasm.LocalOperand(c.frame.scratch(2)), glulxasm.LocalOperand(c.frame.scratch(3)))
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
		c.emit(&glulxasm.LabelDef{L: isB})
		c.materialize64Into(b, glulxasm.LocalOperand(c.frame.scratch(2)), glulxasm.LocalOperand(c.frame.scratch(3)))
		c.emit(&glulxasm.LabelDef{L: done})
		c.stack.push(localOperand64(c.frame.scratch(2)))
		return
	}
	c.op(glulxconst.OpCopy, false, c.materialize32(a, 3), glulxasm.LocalOperand(c.frame.scratch(2)))
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
	c.emit(&glulxasm.LabelDef{L: isB})
	c.op(glulxconst.OpCopy, false, c.materialize32(b, 3), glulxasm.LocalOperand(c.frame.scratch(2)))
	c.emit(&glulxasm.LabelDef{L: done})
	c.stack.push(localOperand32(c.frame.scratch(2)))
}

// lowerRefNull/IsNull/Func: references are represented the same as any
// other i32/i64-class value. externref is a 4-byte opaque token (0 means
// null), funcref is an 8-byte (type-fingerprint, code
// address) pair (fingerprint 0 means null, since a real function type
// fingerprint is never zero — the funcref invariant).
func (c *fnCtx) lowerRefNull(t wasmir.ValueType) {
	if t == wasmir.ValueTypeFuncref {
		c.stack.push(constOperand64(0, 0))
		return
	}
	c.stack.push(constOperand32(0))
}

func (c *fnCtx) lowerRefIsNull() {
	v := c.stack.pop()
	if v.width == width64 {
		c.materialize64Into(v, c.scratchOp(0), c.scratchOp(1))
		c.op(glulxconst.OpBitOr, false, c.scratchOp(0), c.scratchOp(1), c.scratchOp(0))
		c.op(glulxconst.OpJz, false, c.scratchOp(0), glulxasm.BranchOperand(c.truthyIsNullLabel()))
		c.finishBoolNot()
		return
	}
	c.op(glulxconst.OpJz, false, c.materialize32(v, 2), glulxasm.BranchOperand(c.truthyIsNullLabel()))
	c.finishBoolNot()
}

// truthyIsNullLabel/finishBoolNot implement the common "push 1 if a branch
// taken to a fresh label was reached, else push 0" shape used by ref.is_null.
func (c *fnCtx) truthyIsNullLabel() *glulxasm.Label {
	l := c.newLabel("is_null_true")
	c.pendingTrueLabel = l
	return l
}

func (c *fnCtx) finishBoolNot() {
	done := c.newLabel("is_null_done")
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), c.scratchOp(0))
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(done))
	c.emit(&glulxasm.LabelDef{L: c.pendingTrueLabel})
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(1), c.scratchOp(0))
	c.emit(&glulxasm.LabelDef{L: done})
	c.stack.push(localOperand32(c.frame.scratch(0)))
}

// lowerRefFunc builds a funcref value (type-fingerprint, code-address)
// pair. The code address isn't known as a plain integer until the whole
// image is assembled, so it must be materialized via a label reference
// rather than pushed as a bare constant operand.
func (c *fnCtx) lowerRefFunc(funcIdx uint32) {
	ft := c.lx.Module.Types[c.lx.Module.FuncTypeIndex(funcIdx)]
	fp := int64(ft.Fingerprint())
	// Low word holds the fingerprint, high word the code address, matching
	// the (fp, code) pair order table.go's lowerTableGet/Set and
	// lowerCallIndirect use, so a ref.func value round-trips through
	// table.set/table.get and call_indirect's type check unchanged.
	c.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(fp), c.scratchOp(0))
	c.op(glulxconst.OpCopy, false, glulxasm.LabelConstOperand(c.lx.FuncRefs[funcIdx], 0), c.scratchOp(1))
	c.stack.push(localOperand64(c.frame.scratch(0)))
}
