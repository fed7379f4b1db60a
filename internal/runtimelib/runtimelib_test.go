package runtimelib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
)

// labelDefs returns the set of labels that appear as a LabelDef in items,
// along with how many times each was defined.
func labelDefs(items []glulxasm.Item) map[*glulxasm.Label]int {
	defs := make(map[*glulxasm.Label]int)
	for _, it := range items {
		if ld, ok := it.(*glulxasm.LabelDef); ok {
			defs[ld.L]++
		}
	}
	return defs
}

func TestBuild_EveryRoutineLabelIsDefinedExactlyOnce(t *testing.T) {
	memBase := glulxasm.NewLabel("mem_base")
	items, refs := Build(memBase)
	require.NotEmpty(t, items)

	defs := labelDefs(items)
	routines := []*glulxasm.Label{
		refs.Add64, refs.Sub64, refs.Mul64,
		refs.DivModU64, refs.DivS64, refs.DivU64, refs.RemS64, refs.RemU64,
		refs.ShlI64, refs.ShrU64, refs.ShrS64,
		refs.EqzI64, refs.EqI64, refs.LtU64, refs.LtS64, refs.LeU64, refs.LeS64,
		refs.MemoryGrow,
		refs.Clz32, refs.Ctz32, refs.Popcnt32,
	}
	for _, lbl := range routines {
		require.Equalf(t, 1, defs[lbl], "label %q defined %d times, want exactly 1", lbl.Name, defs[lbl])
	}
	// HiResult is a RAM scratch cell, not a routine entry point: Build
	// never emits a LabelDef for it, only the reference callers splice
	// into the RAM region themselves.
	require.Zero(t, defs[refs.HiResult])
}

func TestBuild_RoutineLabelsAreDistinct(t *testing.T) {
	_, refs := Build(glulxasm.NewLabel("mem_base"))
	seen := map[string]bool{}
	all := []*glulxasm.Label{
		refs.Add64, refs.Sub64, refs.Mul64,
		refs.DivModU64, refs.DivS64, refs.DivU64, refs.RemS64, refs.RemU64,
		refs.ShlI64, refs.ShrU64, refs.ShrS64,
		refs.EqzI64, refs.EqI64, refs.LtU64, refs.LtS64, refs.LeU64, refs.LeS64,
		refs.MemoryGrow, refs.Clz32, refs.Ctz32, refs.Popcnt32, refs.HiResult,
	}
	for _, lbl := range all {
		require.False(t, seen[lbl.Name], "duplicate label name %q", lbl.Name)
		seen[lbl.Name] = true
	}
}

func TestFnHeader_EncodesLocalsFormat(t *testing.T) {
	entry := glulxasm.NewLabel("rt_test")
	items := fnHeader(entry, 3)
	require.Len(t, items, 2)

	ld, ok := items[0].(*glulxasm.LabelDef)
	require.True(t, ok)
	require.Same(t, entry, ld.L)

	data, ok := items[1].(*glulxasm.Data)
	require.True(t, ok)
	// CallTypeLocalArgs, then one (size=4, count=3) run, then the
	// 0,0 terminator.
	require.Equal(t, byte(4), data.Bytes[1])
	require.Equal(t, byte(3), data.Bytes[2])
	require.Equal(t, byte(0), data.Bytes[len(data.Bytes)-2])
	require.Equal(t, byte(0), data.Bytes[len(data.Bytes)-1])
}

func TestFnHeader_ZeroFrameWordsOmitsLocalsRun(t *testing.T) {
	entry := glulxasm.NewLabel("rt_test_empty")
	items := fnHeader(entry, 0)
	data, ok := items[1].(*glulxasm.Data)
	require.True(t, ok)
	// Just the call type byte plus the 0,0 terminator: no (size,count) run.
	require.Equal(t, []byte{data.Bytes[0], 0, 0}, data.Bytes)
}
