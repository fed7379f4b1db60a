// Package lower implements the function lowerer: it walks one WASM
// function body at a time and emits a flat stream of glulxasm.Item values
// realizing its control flow and operand-stack semantics on the Glulx VM.
// Rather than allocating registers with spilling to a native stack, it
// tracks abstract operands over Glulx's combined stack/locals machine,
// since Glulx has no general-purpose registers.
package lower

import (
	"fmt"

	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/runtimelib"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// FuncLabels maps a combined function index (imports first, then
// module-defined functions, matching wasmir.Module's index space) to the
// Glulx label for that function's entry point. internal/glkimports fills in
// the entries for imported functions (as thunks); internal/translator fills
// in the rest.
type FuncLabels []*glulxasm.Label

// Lowerer holds the module-wide context every function lowering shares:
// the layout plan, the runtime-library call targets, and the function
// address table used by call/call_indirect.
type Lowerer struct {
	Module   *wasmir.Module
	Layout   *layout.Layout
	Runtime  *runtimelib.Refs
	FuncRefs FuncLabels

	// ElemSegmentBases[i] is the ROM label internal/prelude emits a constant
	// (fingerprint, code-address) or externref-token array for
	// Module.Elements[i], used by table.init. Passive/declarative segments
	// still get a base here (possibly zero-length); active segments are
	// also pre-copied into their table by internal/prelude at startup, same
	// as data segments are for memory.
	ElemSegmentBases []*glulxasm.Label
	// DataSegmentBases[i] is the ROM label for Module.Data[i]'s raw bytes,
	// used by memory.init.
	DataSegmentBases []*glulxasm.Label

	// DataSegmentDropFlags[i]/ElemSegmentDropFlags[i] are 1-byte RAM cells,
	// zero-initialized by internal/prelude, set nonzero by data.drop/
	// elem.drop; memory.init/table.init on a dropped segment traps unless
	// the requested count is zero, matching the bulk-memory proposal's
	// "dropped segments behave as if they had length zero" rule.
	DataSegmentDropFlags []*glulxasm.Label
	ElemSegmentDropFlags []*glulxasm.Label
}

// fnCtx holds the per-function state threaded through one function's
// lowering pass.
type fnCtx struct {
	lx     *Lowerer
	fn     *wasmir.Function
	ft     wasmir.FunctionType
	frame  *frame
	stack  stack
	ctrl   []controlFrame
	items  []glulxasm.Item
	labelN int

	// dead marks that the rest of the current instruction list is
	// unreachable (after br/br_table/return/unreachable); lowerBody stops
	// walking it early. Closing a structured frame always clears it — see
	// control_flow.go's doc comment on why that's sound without full
	// stack-polymorphism tracking.
	dead bool

	// pendingTrueLabel is scratch state for the truthyIsNullLabel/
	// finishBoolNot helper pair in vars.go (a single-use handoff, not
	// meant to persist across unrelated instructions).
	pendingTrueLabel *glulxasm.Label
}

func (c *fnCtx) newLabel(tag string) *glulxasm.Label {
	c.labelN++
	return glulxasm.NewLabel(fmt.Sprintf("%s_%d", tag, c.labelN))
}

func (c *fnCtx) emit(items ...glulxasm.Item) {
	c.items = append(c.items, items...)
}

func (c *fnCtx) op(o glulxconst.Opcode, trap bool, operands ...glulxasm.Operand) {
	c.emit(&glulxasm.Instruction{Op: o, Operands: operands, MayTrap: trap})
}

// Function lowers one module-defined function to a Glulx function body
// (locals-format header plus code), entered at entry.
func (lx *Lowerer) Function(funcIdx uint32, fn *wasmir.Function, entry *glulxasm.Label) ([]glulxasm.Item, error) {
	ft := lx.Module.Types[fn.TypeIndex]
	c := &fnCtx{lx: lx, fn: fn, ft: ft}
	c.frame = buildFrame(ft.Params, fn.Locals)

	c.emit(&glulxasm.LabelDef{L: entry})
	c.emit(&glulxasm.Data{Bytes: c.frame.localsFormat})

	// Parameters start out named directly (operandLocal): consuming an
	// instruction never needs to push a local.get's value first.
	for i := range ft.Params {
		_ = i // params live in the frame; the stack starts empty per WASM's entry-state rule.
	}

	exit := c.newLabel("fn_exit")
	c.ctrl = append(c.ctrl, controlFrame{
		kind:               frameBlock,
		label:              exit,
		resultCount:        len(ft.Results),
		resultWidths:       widthsOf(ft.Results),
		stackHeightAtEntry: 0,
	})

	if err := c.lowerBody(fn.Body); err != nil {
		return nil, err
	}

	c.emit(&glulxasm.LabelDef{L: exit})
	c.emitReturn(ft.Results)

	return c.items, nil
}

func widthsOf(types []wasmir.ValueType) []widthClass {
	out := make([]widthClass, len(types))
	for i, t := range types {
		out[i] = widthOf(t)
	}
	return out
}

func widthOf(t wasmir.ValueType) widthClass {
	if t == wasmir.ValueTypeI64 || t == wasmir.ValueTypeF64 {
		return width64
	}
	return width32
}

// emitReturn materializes the function's declared results (already sitting
// on the abstract stack in order) onto the real Glulx stack and emits
// `return`. Glulx functions only natively return one word, so multi-value
// results beyond the first are passed back via the same push-args stack
// convention internal/runtimelib's callStack4 helper uses on the call side:
// extra results are left pushed on the VM stack for the caller to pop,
// documented at the call site in OpCall's lowering below.
func (c *fnCtx) emitReturn(results []wasmir.ValueType) {
	if len(results) == 0 {
		c.op(glulxconst.OpReturn, false, glulxasm.ConstOperand(0))
		return
	}
	// Pop all declared results off the abstract stack, restoring declaration
	// order (vals[0] is the first-declared result). The first result becomes
	// the native Glulx return value; the rest are pushed onto the real stack
	// in declaration order, so the last-declared result lands topmost, ready
	// for the caller to unpack in the same order emitCall expects.
	vals := make([]operand, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		vals[i] = c.stack.pop()
	}
	for i := 1; i < len(vals); i++ {
		c.pushOperandToStack(vals[i])
	}
	if vals[0].width == width64 {
		// A 64-bit first result returns its low word natively and writes its
		// high word to Refs.HiResult, where emitCall reads it back.
		lo, hi := c.scratchOp(0), c.scratchOp(1)
		c.materialize64Into(vals[0], lo, hi)
		c.op(glulxconst.OpAstore, false, glulxasm.LabelOperand(c.lx.Runtime.HiResult, 0), glulxasm.ConstOperand(0), hi)
		c.op(glulxconst.OpReturn, false, lo)
		return
	}
	c.op(glulxconst.OpReturn, false, c.materializeSingle(vals[0]))
}

func (c *fnCtx) pushOperandToStack(o operand) {
	if o.width == width64 {
		c.op(glulxconst.OpCopy, false, o.hiGlulxOperand(), glulxasm.PushOperand)
		c.op(glulxconst.OpCopy, false, o.asGlulxOperand(), glulxasm.PushOperand)
		return
	}
	c.op(glulxconst.OpCopy, false, o.asGlulxOperand(), glulxasm.PushOperand)
}

// materializeSingle returns a concrete operand for o's low (only, for
// width32) word, committing a pushed value by popping it.
func (c *fnCtx) materializeSingle(o operand) glulxasm.Operand {
	if o.kind == operandPushed {
		return glulxasm.PopOperand
	}
	return o.asGlulxOperand()
}

// scratchOp returns the i'th fixed scratch slot as a Glulx local operand.
func (c *fnCtx) scratchOp(i uint32) glulxasm.Operand {
	return glulxasm.LocalOperand(c.frame.scratch(i))
}

// materialize32 returns a concrete operand for a width32 abstract entry. A
// pushed entry is committed eagerly into the given scratch slot via its own
// Copy instruction (rather than handed back as a raw stack-pop operand) so
// the result can safely be referenced more than once, and so its position
// in a later multi-operand instruction never depends on Glulx's
// operand-evaluation order matching the real stack's LIFO order.
func (c *fnCtx) materialize32(o operand, scratchIdx uint32) glulxasm.Operand {
	if o.kind == operandPushed {
		dst := c.scratchOp(scratchIdx)
		c.op(glulxconst.OpCopy, false, glulxasm.PopOperand, dst)
		return dst
	}
	return o.asGlulxOperand()
}

// materialize64Into pops/copies a width64 abstract entry's low and high
// words into the two given scratch-slot destinations, in that order. Pushed
// width64 entries are always stored on the real Glulx stack as (hi, lo)
// with lo on top (see pushOperandToStack), so the low word is popped first.
func (c *fnCtx) materialize64Into(o operand, loDest, hiDest glulxasm.Operand) {
	if o.kind == operandPushed {
		c.op(glulxconst.OpCopy, false, glulxasm.PopOperand, loDest)
		c.op(glulxconst.OpCopy, false, glulxasm.PopOperand, hiDest)
		return
	}
	c.op(glulxconst.OpCopy, false, o.asGlulxOperand(), loDest)
	c.op(glulxconst.OpCopy, false, o.hiGlulxOperand(), hiDest)
}

// callStack pushes args (in order) and calls fn using Glulx's
// stack-based-arguments convention, storing the single-word result in dest.
// Used for calls into internal/runtimelib's 64-bit routines (three or four
// argument words); WASM-level calls and call_indirect go through emitCall.
func (c *fnCtx) callStack(fn glulxasm.Operand, args []glulxasm.Operand, dest glulxasm.Operand) {
	for _, a := range args {
		c.op(glulxconst.OpCopy, false, a, glulxasm.PushOperand)
	}
	c.op(glulxconst.OpCall, false, fn, glulxasm.ConstOperand(int64(len(args))), dest)
}

// hiResult reads the high word a runtimelib i64-producing call just left in
// the shared scratch cell, per runtimelib's calling convention (see
// runtimelib package doc). Must be read immediately after the call.
func (c *fnCtx) hiResult(dest glulxasm.Operand) {
	c.op(glulxconst.OpAload, false, glulxasm.LabelOperand(c.lx.Runtime.HiResult, 0), glulxasm.ConstOperand(0), dest)
}

// trapIfZero emits a debugtrap(code) when cond is zero.
func (c *fnCtx) trapIfZero(cond glulxasm.Operand, code glulxconst.TrapCode) {
	ok := c.newLabel("trap_ok")
	c.op(glulxconst.OpJnz, false, cond, glulxasm.BranchOperand(ok))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(code)))
	c.emit(&glulxasm.LabelDef{L: ok})
}

// trapIfNonZero emits a debugtrap(code) when cond is non-zero.
func (c *fnCtx) trapIfNonZero(cond glulxasm.Operand, code glulxconst.TrapCode) {
	ok := c.newLabel("trap_ok")
	c.op(glulxconst.OpJz, false, cond, glulxasm.BranchOperand(ok))
	c.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(code)))
	c.emit(&glulxasm.LabelDef{L: ok})
}

func (c *fnCtx) lowerBody(instrs []wasmir.Instr) error {
	for i := range instrs {
		if err := c.lowerInstr(&instrs[i]); err != nil {
			return err
		}
		if c.dead {
			break
		}
	}
	return nil
}
