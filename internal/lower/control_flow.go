package lower

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// Control-flow lowering walks the tree-shaped Instr IR directly: block/loop/
// if carry their nested body inline (Then/Else) rather than a flat stream
// terminated by an explicit End, so there is no separate End-matching pass —
// opening and closing a frame happen in the same recursive call. WASM
// validation (stack-polymorphic types after an unconditional transfer) is
// assumed already enforced upstream of this package per the Non-goals,
// so dead code reachable only through a branch that's already been lowered
// is simply skipped rather than abstractly type-checked: c.dead stops
// lowerBody from walking the remainder of a now-unreachable instruction
// list, and closing a structured frame always resets it, since any code
// following the frame is reachable unless every path through it ended in an
// unconditional transfer too (treating it as reachable in that case just
// emits a few never-executed instructions, never an incorrect result).

// materializeBranchValues pops n values (already typed/ordered as the target
// frame's branchArity, topmost declared result last) off the abstract stack
// and pushes them onto the real Glulx stack in the same push convention
// emitFn.emitReturn uses (low-to-high within a width64 entry, first-declared
// deepest, last-declared topmost). The n values are popped first to recover
// their declaration order, then pushed in that order, since the abstract pop
// order (topmost first) is the reverse of the push order this needs.
func (c *fnCtx) materializeBranchValues(n int) {
	vals := make([]operand, n)
	for i := n - 1; i >= 0; i-- {
		vals[i] = c.stack.pop()
	}
	for i := 0; i < n; i++ {
		c.pushOperandToStack(vals[i])
	}
}

// restoreBranchValues is the receiving half: after landing at a label that
// materializeBranchValues fed, push n freshly-pushed abstract entries so
// following instructions see a canonical (operandPushed) representation
// regardless of which path reached the label. Entries are pushed in
// declaration order (widths[0] first) to match materializeBranchValues'
// push order, so the real stack's physical grouping of width64 vs width32
// entries lines up word-for-word, and the last-declared result ends up
// abstract-top as WASM requires.
func (c *fnCtx) restoreBranchValues(widths []widthClass) {
	for i := 0; i < len(widths); i++ {
		if widths[i] == width64 {
			c.stack.push(pushedOperand64())
		} else {
			c.stack.push(pushedOperand32())
		}
	}
}

func (c *fnCtx) lowerBlock(instr *wasmir.Instr) error {
	params, results := instr.BlockType.Resolve(c.lx.Module)
	exit := c.newLabel("block_exit")
	cf := controlFrame{
		kind:               frameBlock,
		label:              exit,
		paramCount:         len(params),
		resultCount:        len(results),
		resultWidths:       widthsOf(results),
		stackHeightAtEntry: c.stack.height() - len(params),
	}
	c.ctrl = append(c.ctrl, cf)

	if err := c.lowerBody(instr.Then); err != nil {
		return err
	}
	c.dead = false

	c.ctrl = c.ctrl[:len(c.ctrl)-1]
	if cf.resultCount > 0 {
		c.materializeBranchValues(cf.resultCount)
	}
	c.emit(&glulxasm.LabelDef{L: exit})
	if cf.resultCount > 0 {
		c.restoreBranchValues(cf.resultWidths)
	}
	return nil
}

func (c *fnCtx) lowerLoop(instr *wasmir.Instr) error {
	params, results := instr.BlockType.Resolve(c.lx.Module)
	entry := c.newLabel("loop_entry")
	cf := controlFrame{
		kind:               frameLoop,
		label:              entry,
		paramCount:         len(params),
		resultCount:        len(results),
		resultWidths:       widthsOf(results),
		stackHeightAtEntry: c.stack.height() - len(params),
	}

	paramWidths := widthsOf(params)
	if len(params) > 0 {
		c.materializeBranchValues(len(params))
	}
	c.emit(&glulxasm.LabelDef{L: entry})
	if len(params) > 0 {
		c.restoreBranchValues(paramWidths)
	}

	c.ctrl = append(c.ctrl, cf)
	if err := c.lowerBody(instr.Then); err != nil {
		return err
	}
	c.dead = false
	c.ctrl = c.ctrl[:len(c.ctrl)-1]

	// Falling off the end of a loop body behaves exactly like falling off a
	// block: the result values (if any) are simply whatever's left on the
	// abstract stack, no further label needed since nothing branches to a
	// loop's *end*, only to its entry.
	return nil
}

func (c *fnCtx) lowerIf(instr *wasmir.Instr) error {
	params, results := instr.BlockType.Resolve(c.lx.Module)
	cond := c.materialize32(c.stack.pop(), 8)

	exit := c.newLabel("if_exit")
	elseLabel := exit
	if len(instr.Else) > 0 {
		elseLabel = c.newLabel("if_else")
	}
	c.op(glulxconst.OpJz, false, cond, glulxasm.BranchOperand(elseLabel))

	cf := controlFrame{
		kind:               frameIf,
		label:              exit,
		elseLabel:          elseLabel,
		paramCount:         len(params),
		resultCount:        len(results),
		resultWidths:       widthsOf(results),
		stackHeightAtEntry: c.stack.height() - len(params),
	}
	thenSnapshot := c.stack.snapshot()

	c.ctrl = append(c.ctrl, cf)
	if err := c.lowerBody(instr.Then); err != nil {
		return err
	}
	thenDead := c.dead
	c.dead = false
	if cf.resultCount > 0 && !thenDead {
		c.materializeBranchValues(cf.resultCount)
	}
	c.ctrl = c.ctrl[:len(c.ctrl)-1]

	if len(instr.Else) > 0 {
		if !thenDead {
			c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(exit))
		}
		c.emit(&glulxasm.LabelDef{L: elseLabel})
		c.stack.restore(thenSnapshot)

		cf2 := cf
		c.ctrl = append(c.ctrl, cf2)
		if err := c.lowerBody(instr.Else); err != nil {
			return err
		}
		elseDead := c.dead
		c.dead = false
		if cf.resultCount > 0 && !elseDead {
			c.materializeBranchValues(cf.resultCount)
		}
		c.ctrl = c.ctrl[:len(c.ctrl)-1]
	}

	c.emit(&glulxasm.LabelDef{L: exit})
	if cf.resultCount > 0 {
		c.restoreBranchValues(cf.resultWidths)
	}
	return nil
}

// lowerBr/BrIf/BrTable materialize the target frame's carried values and
// jump. LabelIndex counts outward from the innermost open frame (0 = the
// frame lowerBlock/lowerLoop/lowerIf most recently pushed), matching the
// binary format's relative label indices.
func (c *fnCtx) targetFrame(labelIdx uint32) *controlFrame {
	return &c.ctrl[len(c.ctrl)-1-int(labelIdx)]
}

func (c *fnCtx) lowerBr(instr *wasmir.Instr) {
	tf := c.targetFrame(instr.LabelIndex)
	c.stack.truncate(tf.stackHeightAtEntry + tf.branchArity())
	arity := tf.branchArity()
	if arity > 0 {
		c.materializeBranchValues(arity)
	}
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(tf.label))
	c.dead = true
}

func (c *fnCtx) lowerBrIf(instr *wasmir.Instr) {
	cond := c.materialize32(c.stack.pop(), 8)
	tf := c.targetFrame(instr.LabelIndex)
	arity := tf.branchArity()

	// The condition may be false, so the carried values must remain on the
	// abstract stack for the fallthrough path; stage them into scratch
	// locals first, branch conditionally, then push from scratch only on
	// the taken path.
	taken := c.newLabel("br_if_taken")
	notTaken := c.newLabel("br_if_skip")
	c.op(glulxconst.OpJnz, false, cond, glulxasm.BranchOperand(taken))
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(notTaken))
	c.emit(&glulxasm.LabelDef{L: taken})

	snap := c.stack.snapshot()
	c.stack.truncate(tf.stackHeightAtEntry + arity)
	if arity > 0 {
		c.materializeBranchValues(arity)
	}
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(tf.label))

	c.emit(&glulxasm.LabelDef{L: notTaken})
	c.stack.restore(snap)
}

func (c *fnCtx) lowerBrTable(instr *wasmir.Instr) {
	idx := c.materialize32(c.stack.pop(), 8)
	n := int64(len(instr.LabelTable))

	// WASM's br_table labels may carry different arities only in that they
	// all must match the frame each one names individually; this lowerer
	// stages through one shared dispatch: an in-range jump table of direct
	// jumps, each landing on a tiny thunk that truncates/materializes for
	// its own target before the real jump, since the arity handling must
	// happen per-target, not once before dispatch.
	thunks := make([]*glulxasm.Label, n)
	for i := range thunks {
		thunks[i] = c.newLabel("brtable_case")
	}
	def := c.newLabel("brtable_default")

	inRange := c.newLabel("brtable_inrange")
	c.op(glulxconst.OpJltu, false, idx, glulxasm.ConstOperand(n), glulxasm.BranchOperand(inRange))
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(def))
	c.emit(&glulxasm.LabelDef{L: inRange})

	for i, th := range thunks {
		c.op(glulxconst.OpJeq, false, idx, glulxasm.ConstOperand(int64(i)), glulxasm.BranchOperand(th))
	}
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(def))

	snap := c.stack.snapshot()
	for i, th := range thunks {
		c.emit(&glulxasm.LabelDef{L: th})
		c.stack.restore(snap)
		tf := c.targetFrame(instr.LabelTable[i])
		arity := tf.branchArity()
		c.stack.truncate(tf.stackHeightAtEntry + arity)
		if arity > 0 {
			c.materializeBranchValues(arity)
		}
		c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(tf.label))
	}

	c.emit(&glulxasm.LabelDef{L: def})
	c.stack.restore(snap)
	tf := c.targetFrame(instr.DefaultArg)
	arity := tf.branchArity()
	c.stack.truncate(tf.stackHeightAtEntry + arity)
	if arity > 0 {
		c.materializeBranchValues(arity)
	}
	c.op(glulxconst.OpJump, false, glulxasm.BranchOperand(tf.label))
	c.dead = true
}

func (c *fnCtx) lowerReturn() {
	c.emitReturn(c.ft.Results)
	c.dead = true
}

func (c *fnCtx) lowerUnreachable() {
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapUnreachable)))
	c.dead = true
}

// lowerCall/CallIndirect always use the stack-based-arguments convention
// (every argument word pushed, then `call`), matching the convention described in
// internal/lower's callStack and internal/runtimelib's multi-argument
// routines; a single-result call's value lands as the native Glulx return,
// matching emitReturn's own first-result convention, with further results
// popped back off the real stack immediately after (see emitReturn's doc
// comment on the multi-value return convention this mirrors on the call
// side).
func (c *fnCtx) lowerCall(instr *wasmir.Instr) {
	fn := c.lx.Module.Functions[instr.FuncIndex]
	ft := c.lx.Module.Types[fn.TypeIndex]
	c.emitCall(glulxasm.LabelConstOperand(c.lx.FuncRefs[instr.FuncIndex], 0), ft)
}

func (c *fnCtx) lowerCallIndirect(instr *wasmir.Instr) {
	ft := c.lx.Module.Types[instr.TypeIndex]
	elemIdx := c.materialize32(c.stack.pop(), 9)

	table := c.lx.Module.Tables[instr.TableIndex]
	base := c.lx.Layout.TableBases[instr.TableIndex]
	slotSize := int64(layout.TableSlotSize(table.ElemType))
	c.checkTableBounds(instr.TableIndex, elemIdx)

	slotAddr := c.scratchOp(10)
	off := c.scratchOp(11)
	c.op(glulxconst.OpMul, false, elemIdx, glulxasm.ConstOperand(slotSize), off)
	c.op(glulxconst.OpAdd, false, glulxasm.LabelConstOperand(base, 0), off, slotAddr)

	fp := c.scratchOp(12)
	codeAddr := c.scratchOp(13)
	c.op(glulxconst.OpAload, false, slotAddr, glulxasm.ConstOperand(0), fp)
	c.op(glulxconst.OpAload, false, slotAddr, glulxasm.ConstOperand(1), codeAddr)
	c.trapIfZero(codeAddr, glulxconst.TrapUninitializedElement)

	mismatchOk := c.newLabel("call_indirect_typeok")
	c.op(glulxconst.OpJeq, false, fp, glulxasm.ConstOperand(int64(ft.Fingerprint())), glulxasm.BranchOperand(mismatchOk))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapIndirectCallTypeMismatch)))
	c.emit(&glulxasm.LabelDef{L: mismatchOk})

	c.emitCall(codeAddr, ft)
}

// emitCall stages ft's argument words (already on the abstract stack, in
// declared order) and dispatches through the stack-based call convention,
// then unpacks the (possibly multi-word) result the same way emitReturn
// packs it.
func (c *fnCtx) emitCall(target glulxasm.Operand, ft wasmir.FunctionType) {
	n := len(ft.Params)
	operands := make([]operand, n)
	for i := n - 1; i >= 0; i-- {
		operands[i] = c.stack.pop()
	}
	// Each argument is pushed onto the real Glulx stack the moment it's
	// materialized, rather than staged through a shared scratch slot and
	// batched afterward — a shared slot would be overwritten by the next
	// argument before any of them got pushed.
	for _, o := range operands {
		if o.width == width64 {
			lo := c.scratchOp(20)
			hi := c.scratchOp(21)
			c.materialize64Into(o, lo, hi)
			c.op(glulxconst.OpCopy, false, lo, glulxasm.PushOperand)
			c.op(glulxconst.OpCopy, false, hi, glulxasm.PushOperand)
		} else {
			v := c.materialize32(o, 20)
			c.op(glulxconst.OpCopy, false, v, glulxasm.PushOperand)
		}
	}
	argWords := 0
	for _, p := range ft.Params {
		if widthOf(p) == width64 {
			argWords += 2
		} else {
			argWords++
		}
	}

	var dest glulxasm.Operand
	if len(ft.Results) > 0 {
		dest = c.scratchOp(22)
	} else {
		dest = glulxasm.Operand{}
	}
	c.op(glulxconst.OpCall, false, target, glulxasm.ConstOperand(int64(argWords)), dest)

	if len(ft.Results) == 0 {
		return
	}
	// The first-declared result is pushed onto the abstract stack first (it
	// becomes the deepest entry of this group), then the rest are pushed in
	// declaration order, so the last-declared result ends up abstract-top —
	// matching emitReturn's packing and, transitively, what a straight-line
	// (non-call) multi-value producer would leave on the stack.
	if widthOf(ft.Results[0]) == width64 {
		// dest (scratch 22) already holds the low word (the native Glulx
		// return value); the callee convention used throughout this
		// package writes the high word to Refs.HiResult, read back into
		// the adjacent scratch slot so localOperand64's implicit off+4
		// addressing lines up.
		hi := c.scratchOp(23)
		c.hiResult(hi)
		c.stack.push(localOperand64(c.frame.scratch(22)))
	} else {
		c.stack.push(localOperand32(c.frame.scratch(22)))
	}
	for i := 1; i < len(ft.Results); i++ {
		w := widthOf(ft.Results[i])
		if w == width64 {
			c.stack.push(pushedOperand64())
		} else {
			c.stack.push(pushedOperand32())
		}
	}
}
