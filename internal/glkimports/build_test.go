package glkimports

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

func testLayout() *layout.Layout {
	return layout.Plan(&wasmir.Module{
		Memories: []wasmir.Memory{{MinPages: 1}},
	}, layout.DefaultOptions())
}

func TestBuild_BindsOneThunkPerFuncImport(t *testing.T) {
	m := &wasmir.Module{
		Types: []wasmir.FunctionType{
			{Results: []wasmir.ValueType{wasmir.ValueTypeI32}}, // window_get_root
			{},
		},
		Imports: []wasmir.Import{
			{Module: "glk", Field: "window_get_root", Type: wasmir.ExternTypeFunc, FuncTypeIndex: 0},
			{Module: "glk", Field: "tick", Type: wasmir.ExternTypeFunc, FuncTypeIndex: 1},
		},
	}
	items, labels, err := Build(m, testLayout())
	require.NoError(t, err)
	require.NotEmpty(t, items)
	require.Len(t, labels, 2)
	require.NotNil(t, labels[0])
	require.NotNil(t, labels[1])
	require.NotSame(t, labels[0], labels[1])
}

func TestBuild_SkipsNonFuncImports(t *testing.T) {
	m := &wasmir.Module{
		Imports: []wasmir.Import{
			{Module: "glk", Field: "mem", Type: wasmir.ExternTypeMemory},
		},
	}
	items, labels, err := Build(m, testLayout())
	require.NoError(t, err)
	require.Empty(t, items)
	require.Empty(t, labels)
}

func TestBuild_UnknownGlkNameIsRejected(t *testing.T) {
	m := &wasmir.Module{
		Types:   []wasmir.FunctionType{{}},
		Imports: []wasmir.Import{{Module: "glk", Field: "not_a_real_glk_func", Type: wasmir.ExternTypeFunc}},
	}
	_, _, err := Build(m, testLayout())
	require.Error(t, err)
	var unk *wasmir.UnknownImportError
	require.ErrorAs(t, err, &unk)
}

func TestBuild_WrongArityGlkImportIsRejected(t *testing.T) {
	m := &wasmir.Module{
		Types:   []wasmir.FunctionType{{Params: []wasmir.ValueType{wasmir.ValueTypeI32}}}, // tick takes no args
		Imports: []wasmir.Import{{Module: "glk", Field: "tick", Type: wasmir.ExternTypeFunc, FuncTypeIndex: 0}},
	}
	_, _, err := Build(m, testLayout())
	require.Error(t, err)
	var wrong *wasmir.WrongSignatureImportError
	require.ErrorAs(t, err, &wrong)
}

func TestBuild_UnknownModuleIsRejected(t *testing.T) {
	m := &wasmir.Module{
		Types:   []wasmir.FunctionType{{}},
		Imports: []wasmir.Import{{Module: "env", Field: "abort", Type: wasmir.ExternTypeFunc}},
	}
	_, _, err := Build(m, testLayout())
	require.Error(t, err)
	var unk *wasmir.UnknownImportError
	require.ErrorAs(t, err, &unk)
}

func TestBuild_GlulxMathImportBinds(t *testing.T) {
	m := &wasmir.Module{
		Types: []wasmir.FunctionType{
			{Params: []wasmir.ValueType{wasmir.ValueTypeI32}, Results: []wasmir.ValueType{wasmir.ValueTypeI32}},
		},
		Imports: []wasmir.Import{
			{Module: "glulx", Field: "floorf", Type: wasmir.ExternTypeFunc, FuncTypeIndex: 0},
		},
	}
	items, labels, err := Build(m, testLayout())
	require.NoError(t, err)
	require.NotEmpty(t, items)
	require.Len(t, labels, 1)
}

func TestLocalsFormatHeader_SplitsRunsAt255(t *testing.T) {
	h := localsFormatHeader(300)
	require.Equal(t, []byte{0xC1, 4, 255, 4, 45, 0, 0}, h)
}
