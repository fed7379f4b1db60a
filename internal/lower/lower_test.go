package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/runtimelib"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

func newTestLowerer(t *testing.T, m *wasmir.Module) *Lowerer {
	t.Helper()
	lay := layout.Plan(m, layout.DefaultOptions())
	_, refs := runtimelib.Build(lay.MemoryBase)
	return &Lowerer{Module: m, Layout: lay, Runtime: refs}
}

// countDebugtraps returns how many Instruction items in items are a
// debugtrap with the given trap code as their sole constant operand.
func countDebugtraps(items []glulxasm.Item, code glulxconst.TrapCode) int {
	n := 0
	for _, it := range items {
		in, ok := it.(*glulxasm.Instruction)
		if !ok || in.Op != glulxconst.OpDebugtrap || len(in.Operands) != 1 {
			continue
		}
		if in.Operands[0].Mode == glulxasm.ModeConst8 && in.Operands[0].Const == int64(code) {
			n++
		}
	}
	return n
}

func TestFunction_I32AddLowersWithoutError(t *testing.T) {
	ft := wasmir.FunctionType{
		Params:  []wasmir.ValueType{wasmir.ValueTypeI32, wasmir.ValueTypeI32},
		Results: []wasmir.ValueType{wasmir.ValueTypeI32},
	}
	m := &wasmir.Module{Types: []wasmir.FunctionType{ft}}
	fn := &wasmir.Function{
		TypeIndex: 0,
		Body: []wasmir.Instr{
			{Op: wasmir.OpLocalGet, Index: 0},
			{Op: wasmir.OpLocalGet, Index: 1},
			{Op: wasmir.OpI32Add},
		},
	}
	lx := newTestLowerer(t, m)
	entry := glulxasm.NewLabel("fn_add")
	items, err := lx.Function(0, fn, entry)
	require.NoError(t, err)
	require.NotEmpty(t, items)
}

// TestFunction_I64DivSTrapsOnMinOverflow asserts that i64.div_s emits an
// explicit TrapIntegerOverflow check before dispatching to the runtime
// division routine, since INT64_MIN / -1 would otherwise silently produce
// a wrong quotient (see DESIGN.md's open-question entry on this).
func TestFunction_I64DivSTrapsOnMinOverflow(t *testing.T) {
	ft := wasmir.FunctionType{
		Params:  []wasmir.ValueType{wasmir.ValueTypeI64, wasmir.ValueTypeI64},
		Results: []wasmir.ValueType{wasmir.ValueTypeI64},
	}
	m := &wasmir.Module{Types: []wasmir.FunctionType{ft}}
	fn := &wasmir.Function{
		TypeIndex: 0,
		Body: []wasmir.Instr{
			{Op: wasmir.OpLocalGet, Index: 0},
			{Op: wasmir.OpLocalGet, Index: 1},
			{Op: wasmir.OpI64DivS},
		},
	}
	lx := newTestLowerer(t, m)
	entry := glulxasm.NewLabel("fn_divs64")
	items, err := lx.Function(0, fn, entry)
	require.NoError(t, err)
	require.Equal(t, 1, countDebugtraps(items, glulxconst.TrapIntegerOverflow))
	require.Equal(t, 1, countDebugtraps(items, glulxconst.TrapIntegerDivideByZero))
}

func TestFunction_MultiValueResultsPushExtraOntoStack(t *testing.T) {
	ft := wasmir.FunctionType{Results: []wasmir.ValueType{wasmir.ValueTypeI32, wasmir.ValueTypeI32}}
	m := &wasmir.Module{Types: []wasmir.FunctionType{ft}}
	fn := &wasmir.Function{
		TypeIndex: 0,
		Body: []wasmir.Instr{
			{Op: wasmir.OpI32Const, I32Value: 1},
			{Op: wasmir.OpI32Const, I32Value: 2},
		},
	}
	lx := newTestLowerer(t, m)
	entry := glulxasm.NewLabel("fn_pair")
	items, err := lx.Function(0, fn, entry)
	require.NoError(t, err)

	var sawPush bool
	var pushedConst int64 = -1
	for _, it := range items {
		if in, ok := it.(*glulxasm.Instruction); ok && in.Op == glulxconst.OpCopy {
			for _, o := range in.Operands {
				if o.Mode == glulxasm.ModeStackPush {
					sawPush = true
				}
			}
		}
	}
	require.True(t, sawPush, "expected the second result to be pushed onto the real stack")

	// The pushed operand must be the second (last-declared) result, 2, not
	// the first, 1: the first result is returned natively and never pushed.
	for _, it := range items {
		in, ok := it.(*glulxasm.Instruction)
		if !ok || in.Op != glulxconst.OpCopy || len(in.Operands) != 2 {
			continue
		}
		if in.Operands[1].Mode != glulxasm.ModeStackPush {
			continue
		}
		src := in.Operands[0]
		if src.Mode == glulxasm.ModeConst8 || src.Mode == glulxasm.ModeConst16 || src.Mode == glulxasm.ModeConst32 {
			pushedConst = src.Const
		}
	}
	require.Equal(t, int64(2), pushedConst, "expected the last-declared result (2) to be the one pushed onto the real stack")
}

// TestFunction_MultiValueResultOrderIsNonCommutative pins down the WASM
// stack-order invariant for multi-value results: a function declaring
// (i32,i32) results leaves the *last*-declared result on top of the abstract
// stack, so a following i32.sub computes result0-result1, not result1-
// result0. Subtraction is non-commutative, so swapping the unpacking order
// would flip the computed sign and this test would catch it.
func TestFunction_MultiValueResultOrderIsNonCommutative(t *testing.T) {
	pairFt := wasmir.FunctionType{Results: []wasmir.ValueType{wasmir.ValueTypeI32, wasmir.ValueTypeI32}}
	callerFt := wasmir.FunctionType{Results: []wasmir.ValueType{wasmir.ValueTypeI32}}
	m := &wasmir.Module{Types: []wasmir.FunctionType{pairFt, callerFt}}
	pairFn := &wasmir.Function{
		TypeIndex: 0,
		Body: []wasmir.Instr{
			{Op: wasmir.OpI32Const, I32Value: 10},
			{Op: wasmir.OpI32Const, I32Value: 3},
		},
	}
	callerFn := &wasmir.Function{
		TypeIndex: 1,
		Body: []wasmir.Instr{
			{Op: wasmir.OpCall, FuncIndex: 0},
			{Op: wasmir.OpI32Sub},
		},
	}
	m.Functions = []wasmir.Function{*pairFn, *callerFn}

	lx := newTestLowerer(t, m)
	entryPair := glulxasm.NewLabel("fn_pair10_3")
	entryCaller := glulxasm.NewLabel("fn_caller")
	lx.FuncRefs = FuncLabels{entryPair, entryCaller}

	items, err := lx.Function(1, &m.Functions[1], entryCaller)
	require.NoError(t, err)

	var subOp *glulxasm.Instruction
	var poppedDest glulxasm.Operand
	var sawPop bool
	for _, it := range items {
		in, ok := it.(*glulxasm.Instruction)
		if !ok {
			continue
		}
		if in.Op == glulxconst.OpCopy && len(in.Operands) == 2 && in.Operands[0].Mode == glulxasm.ModeStackPop {
			poppedDest = in.Operands[1]
			sawPop = true
		}
		if in.Op == glulxconst.OpSub {
			subOp = in
		}
	}
	require.True(t, sawPop, "expected the last-declared call result to be materialized via a stack pop")
	require.NotNil(t, subOp, "expected i32.sub to lower to a Sub instruction")
	require.Len(t, subOp.Operands, 3)

	// The native call result (result0 = 10) is read directly from the call's
	// result slot; the pushed second result (result1 = 3) is the one
	// materialized via the stack pop above. Operand order must be
	// (a=result0, b=result1) so the instruction computes result0-result1 =
	// 10-3 = 7, not 3-10 = -7.
	require.NotEqual(t, poppedDest, subOp.Operands[0],
		"first operand (a) must be the native call result (result0), not the popped result1")
	require.Equal(t, poppedDest, subOp.Operands[1],
		"second operand (b) must be the popped last-declared result (result1)")
}
