package wasm2glulx

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

func TestTranslate_ProducesAssembledImage(t *testing.T) {
	m := &wasmir.Module{}
	res, err := Translate(context.Background(), m, NewOptions())
	require.NoError(t, err)
	require.Equal(t, []byte(glulxconst.HeaderMagic), res.Image[0:4])
	require.Empty(t, res.Text)
}

func TestTranslate_WithTextListingPopulatesText(t *testing.T) {
	m := &wasmir.Module{}
	res, err := Translate(context.Background(), m, NewOptions().WithTextListing(true))
	require.NoError(t, err)
	require.NotEmpty(t, res.Text)
	require.True(t, strings.HasPrefix(res.Text, "00000000"))
}

func TestTranslate_WrapsPipelineErrors(t *testing.T) {
	m := &wasmir.Module{
		Imports: []wasmir.Import{
			{Module: "env", Field: "unknown", Type: wasmir.ExternTypeFunc},
		},
	}
	_, err := Translate(context.Background(), m, NewOptions())
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "wasm2glulx: "))
	var unk *wasmir.UnknownImportError
	require.ErrorAs(t, err, &unk)
}

func TestOptions_WithMethodsDoNotMutateReceiver(t *testing.T) {
	base := NewOptions()
	derived := base.WithGlkAreaSize(8192).WithStackSize(2048).WithTableGrowthLimit(10)

	require.Equal(t, base.toLayout().GlkAreaSize, NewOptions().toLayout().GlkAreaSize)
	require.Equal(t, uint32(8192), derived.toLayout().GlkAreaSize)
	require.Equal(t, uint32(2048), derived.toLayout().StackSize)
	require.Equal(t, uint32(10), derived.toLayout().TableGrowthLimit)
}

func TestOptions_WithLoggerNilFallsBackToNop(t *testing.T) {
	o := NewOptions().WithLogger(nil)
	require.NotNil(t, o.logger)
}
