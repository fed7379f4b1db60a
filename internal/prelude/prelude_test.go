package prelude

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

func TestEvalConstInit_I32(t *testing.T) {
	lo, _, wide, err := evalConstInit(wasmir.GlobalInit{Op: wasmir.OpI32Const, I32: 7}, nil, nil)
	require.NoError(t, err)
	require.False(t, wide)
	require.Equal(t, glulxasm.ConstOperand(7), lo)
}

func TestEvalConstInit_I64SplitsIntoLowAndHighWords(t *testing.T) {
	lo, hi, wide, err := evalConstInit(wasmir.GlobalInit{Op: wasmir.OpI64Const, I64: 0x1122334455667788}, nil, nil)
	require.NoError(t, err)
	require.True(t, wide)
	require.Equal(t, glulxasm.ConstOperand(int64(int32(0x55667788))), lo)
	require.Equal(t, glulxasm.ConstOperand(int64(int32(0x11223344))), hi)
}

func TestEvalConstInit_F64BitPattern(t *testing.T) {
	v := 3.5
	bits := math.Float64bits(v)
	lo, hi, wide, err := evalConstInit(wasmir.GlobalInit{Op: wasmir.OpF64Const, F64: v}, nil, nil)
	require.NoError(t, err)
	require.True(t, wide)
	require.Equal(t, glulxasm.ConstOperand(int64(int32(uint32(bits)))), lo)
	require.Equal(t, glulxasm.ConstOperand(int64(int32(uint32(bits>>32)))), hi)
}

func TestEvalConstInit_RefNullIsZeroZero(t *testing.T) {
	lo, hi, wide, err := evalConstInit(wasmir.GlobalInit{Op: wasmir.OpRefNull}, nil, nil)
	require.NoError(t, err)
	require.True(t, wide)
	require.Equal(t, glulxasm.ConstOperand(0), lo)
	require.Equal(t, glulxasm.ConstOperand(0), hi)
}

func TestEvalConstInit_GlobalGetIsUnsupported(t *testing.T) {
	_, _, _, err := evalConstInit(wasmir.GlobalInit{Op: wasmir.OpGlobalGet}, nil, nil)
	require.Error(t, err)
	var unsupported *wasmir.UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
}

func TestEvalConstInit_UnrecognizedOpcodeIsUnsupported(t *testing.T) {
	_, _, _, err := evalConstInit(wasmir.GlobalInit{Op: wasmir.OpNop}, nil, nil)
	require.Error(t, err)
	var unsupported *wasmir.UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
}

func TestBuild_StartsAtEntryLabelAndEndsWithReturn(t *testing.T) {
	m := &wasmir.Module{
		Globals: []wasmir.Global{
			{Type: wasmir.ValueTypeI32, Init: wasmir.GlobalInit{Op: wasmir.OpI32Const, I32: 42}},
		},
	}
	lay := layout.Plan(m, layout.DefaultOptions())
	funcRefs := map[uint32]*glulxasm.Label{}
	entry, items, err := Build(m, lay, funcRefs, nil)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NotEmpty(t, items)

	ld, ok := items[0].(*glulxasm.LabelDef)
	require.True(t, ok)
	require.Same(t, entry, ld.L)

	last, ok := items[len(items)-1].(*glulxasm.Instruction)
	require.True(t, ok)
	require.Equal(t, glulxconst.OpReturn, last.Op)
}

func TestBuild_StartFunctionIsCalledExactlyOnce(t *testing.T) {
	noop := wasmir.FunctionType{}
	start := uint32(0)
	m := &wasmir.Module{
		Types:     []wasmir.FunctionType{noop},
		Functions: []wasmir.Function{{TypeIndex: 0}},
		Start:     &start,
	}
	lay := layout.Plan(m, layout.DefaultOptions())
	fn := glulxasm.NewLabel("fn_start")
	funcRefs := map[uint32]*glulxasm.Label{0: fn}

	_, items, err := Build(m, lay, funcRefs, nil)
	require.NoError(t, err)

	calls := 0
	for _, it := range items {
		instr, ok := it.(*glulxasm.Instruction)
		if !ok {
			continue
		}
		if instr.Op == glulxconst.OpCall {
			calls++
		}
	}
	require.Equal(t, 1, calls)
}

func TestBuild_UnsupportedDataSegmentOffsetIsRejected(t *testing.T) {
	m := &wasmir.Module{
		Memories: []wasmir.Memory{{MinPages: 1}},
		Data: []wasmir.Data{
			{Mode: wasmir.DataModeActive, Offset: wasmir.GlobalInit{Op: wasmir.OpI64Const, I64: 0}, Bytes: []byte{1}},
		},
	}
	lay := layout.Plan(m, layout.DefaultOptions())
	_, _, err := Build(m, lay, map[uint32]*glulxasm.Label{}, map[int]*glulxasm.Label{0: glulxasm.NewLabel("data0")})
	require.Error(t, err)
	var unsupported *wasmir.UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
}
