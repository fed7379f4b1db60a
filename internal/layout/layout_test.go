package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

func TestPlan_GlobalOffsetsPackByDeclaredSize(t *testing.T) {
	m := &wasmir.Module{
		Globals: []wasmir.Global{
			{Type: wasmir.ValueTypeI32},
			{Type: wasmir.ValueTypeI64},
			{Type: wasmir.ValueTypeF32},
		},
	}
	l := Plan(m, DefaultOptions())
	require.Equal(t, []uint32{0, 4, 12}, l.GlobalOffsets)
	require.Equal(t, uint32(16), l.GlobalsSize(m))
}

func TestPlan_TableSizeUsesDeclaredMaxOrGrowthLimit(t *testing.T) {
	max := uint32(10)
	m := &wasmir.Module{
		Tables: []wasmir.Table{
			{ElemType: wasmir.ValueTypeFuncref, Min: 2, Max: &max},
			{ElemType: wasmir.ValueTypeExternref, Min: 1},
		},
	}
	opts := DefaultOptions()
	opts.TableGrowthLimit = 100
	l := Plan(m, opts)

	require.Equal(t, uint32(10), l.TableMaxes[0])
	require.Equal(t, uint32(80), l.TableSize(0)) // 10 slots * 8 bytes (funcref)
	require.Equal(t, uint32(100), l.TableMaxes[1])
	require.Equal(t, uint32(400), l.TableSize(1)) // 100 slots * 4 bytes (externref)
}

func TestPlan_MemorySizing(t *testing.T) {
	max := uint32(4)
	m := &wasmir.Module{
		Memories: []wasmir.Memory{{MinPages: 1, MaxPages: &max}},
	}
	l := Plan(m, DefaultOptions())
	require.Equal(t, uint32(wasmir.WasmPageSize), l.MemoryInitialSize)
	require.Equal(t, uint32(4*wasmir.WasmPageSize), l.MemoryMaxSize)
}

func TestFingerprint_DistinguishesSignatures(t *testing.T) {
	m := &wasmir.Module{
		Types: []wasmir.FunctionType{
			{Params: []wasmir.ValueType{wasmir.ValueTypeI32}, Results: []wasmir.ValueType{wasmir.ValueTypeI32}},
			{Params: []wasmir.ValueType{wasmir.ValueTypeI32, wasmir.ValueTypeI32}, Results: []wasmir.ValueType{wasmir.ValueTypeI32}},
			{Results: []wasmir.ValueType{wasmir.ValueTypeI32}},
		},
	}
	l := Plan(m, DefaultOptions())
	require.Len(t, l.FuncTypeFingerprints, 3)
	require.NotEqual(t, l.FuncTypeFingerprints[0], l.FuncTypeFingerprints[1])
	require.NotEqual(t, l.FuncTypeFingerprints[0], l.FuncTypeFingerprints[2])
	for _, fp := range l.FuncTypeFingerprints {
		require.NotZero(t, fp)
	}
}
