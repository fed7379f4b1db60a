package translator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/lower"
	"github.com/glulxfic/wasm2glulx/internal/runtimelib"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// helloWorldModule builds the "Hello-world" scenario: a start
// function that calls the imported glk.put_char once per byte of a fixed
// string, entirely through i32.const arguments (no memory needed).
func helloWorldModule(t *testing.T) *wasmir.Module {
	t.Helper()
	voidFromI32 := wasmir.FunctionType{Params: []wasmir.ValueType{wasmir.ValueTypeI32}}
	noop := wasmir.FunctionType{}

	var body []wasmir.Instr
	for _, ch := range "Hi" {
		body = append(body,
			wasmir.Instr{Op: wasmir.OpI32Const, I32Value: int32(ch)},
			wasmir.Instr{Op: wasmir.OpCall, FuncIndex: 0},
		)
	}
	start := uint32(1)
	return &wasmir.Module{
		Types: []wasmir.FunctionType{voidFromI32, noop},
		Imports: []wasmir.Import{
			{Module: "glk", Field: "put_char", Type: wasmir.ExternTypeFunc, FuncTypeIndex: 0},
		},
		Functions: []wasmir.Function{
			{TypeIndex: 1, Body: body},
		},
		Start: &start,
	}
}

func TestBuild_HelloWorld(t *testing.T) {
	m := helloWorldModule(t)
	img, err := Build(m, layout.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, []byte(glulxconst.HeaderMagic), img[0:4])
	require.Greater(t, len(img), glulxconst.HeaderSize)
}

func TestBuild_UnknownImportModuleIsRejected(t *testing.T) {
	m := &wasmir.Module{
		Types: []wasmir.FunctionType{{}},
		Imports: []wasmir.Import{
			{Module: "env", Field: "mystery", Type: wasmir.ExternTypeFunc, FuncTypeIndex: 0},
		},
	}
	_, err := Build(m, layout.DefaultOptions())
	require.Error(t, err)
	var unk *wasmir.UnknownImportError
	require.ErrorAs(t, err, &unk)
}

func TestBuild_ImportedTableIsRejected(t *testing.T) {
	m := &wasmir.Module{
		Imports: []wasmir.Import{
			{Module: "glk", Field: "x", Type: wasmir.ExternTypeTable},
		},
	}
	_, err := Build(m, layout.DefaultOptions())
	require.Error(t, err)
	var unsupported *wasmir.UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
}

// TestBuild_MultiValueReturn exercises a multi-value return scenario: a
// function returning two i32s, called and both results dropped, making
// sure the translator assembles without error.
func TestBuild_MultiValueReturn(t *testing.T) {
	pair := wasmir.FunctionType{Results: []wasmir.ValueType{wasmir.ValueTypeI32, wasmir.ValueTypeI32}}
	noop := wasmir.FunctionType{}

	pairBody := []wasmir.Instr{
		{Op: wasmir.OpI32Const, I32Value: 1},
		{Op: wasmir.OpI32Const, I32Value: 2},
	}
	startBody := []wasmir.Instr{
		{Op: wasmir.OpCall, FuncIndex: 0},
		{Op: wasmir.OpDrop},
		{Op: wasmir.OpDrop},
	}

	start := uint32(1)
	m := &wasmir.Module{
		Types: []wasmir.FunctionType{pair, noop},
		Functions: []wasmir.Function{
			{TypeIndex: 0, Body: pairBody},
			{TypeIndex: 1, Body: startBody},
		},
		Start: &start,
	}

	img, err := Build(m, layout.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, []byte(glulxconst.HeaderMagic), img[0:4])
}

// TestLowerFunctions_MultiValueResultOrderIsNonCommutative runs the same
// per-function lowering pipeline Build uses (including the peephole pass)
// over a function returning (i32,i32) = (10,3), called by another function
// that subtracts the results. Subtraction is non-commutative, so if the
// last-declared result (3) ever ended up materialized as the first operand
// instead of the second, this would compute 3-10 instead of the correct
// 10-3.
func TestLowerFunctions_MultiValueResultOrderIsNonCommutative(t *testing.T) {
	pair := wasmir.FunctionType{Results: []wasmir.ValueType{wasmir.ValueTypeI32, wasmir.ValueTypeI32}}
	caller := wasmir.FunctionType{Results: []wasmir.ValueType{wasmir.ValueTypeI32}}

	pairBody := []wasmir.Instr{
		{Op: wasmir.OpI32Const, I32Value: 10},
		{Op: wasmir.OpI32Const, I32Value: 3},
	}
	callerBody := []wasmir.Instr{
		{Op: wasmir.OpCall, FuncIndex: 0},
		{Op: wasmir.OpI32Sub},
	}

	m := &wasmir.Module{
		Types: []wasmir.FunctionType{pair, caller},
		Functions: []wasmir.Function{
			{TypeIndex: 0, Body: pairBody},
			{TypeIndex: 1, Body: callerBody},
		},
	}

	lay := layout.Plan(m, layout.DefaultOptions())
	_, refs := runtimelib.Build(lay.MemoryBase)
	lx := &lower.Lowerer{
		Module:   m,
		Layout:   lay,
		Runtime:  refs,
		FuncRefs: lower.FuncLabels{glulxasm.NewLabel("fn_pair10_3"), glulxasm.NewLabel("fn_caller")},
	}

	items, err := lowerFunctions(lx, 0)
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

	require.NotEqual(t, poppedDest, subOp.Operands[0],
		"first operand (a) must be the native call result (result0=10), not the popped result1=3")
	require.Equal(t, poppedDest, subOp.Operands[1],
		"second operand (b) must be the popped last-declared result (result1=3), so the instruction computes 10-3")
}
