package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// withDecodeModule swaps decodeModule for the duration of fn, restoring the
// original afterward (tests never run in parallel with each other here).
func withDecodeModule(t *testing.T, fn func(io.Reader) (*wasmir.Module, error)) {
	t.Helper()
	orig := decodeModule
	decodeModule = fn
	t.Cleanup(func() { decodeModule = orig })
}

func TestDoMain_NoLinkedDecoderReportsInputError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doMain([]string{"-o", filepath.Join(t.TempDir(), "out.ulx")}, &stdout, &stderr)
	require.Equal(t, exitInputError, code)
	require.Contains(t, stderr.String(), "no WebAssembly binary decoder is linked")
}

func TestDoMain_SuccessWritesImageToOutputFile(t *testing.T) {
	withDecodeModule(t, func(io.Reader) (*wasmir.Module, error) {
		return &wasmir.Module{}, nil
	})

	outPath := filepath.Join(t.TempDir(), "out.ulx")
	var stdout, stderr bytes.Buffer
	code := doMain([]string{"-o", outPath}, &stdout, &stderr)
	require.Equal(t, exitOK, code)
	require.Empty(t, stderr.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.Equal(t, "Glul", string(data[0:4]))
}

func TestDoMain_TranslationFailureReportsLayoutError(t *testing.T) {
	withDecodeModule(t, func(io.Reader) (*wasmir.Module, error) {
		return &wasmir.Module{
			Imports: []wasmir.Import{{Module: "env", Field: "x", Type: wasmir.ExternTypeFunc}},
		}, nil
	})

	outPath := filepath.Join(t.TempDir(), "out.ulx")
	var stdout, stderr bytes.Buffer
	code := doMain([]string{"-o", outPath}, &stdout, &stderr)
	require.Equal(t, exitLayoutError, code)
	require.NotEmpty(t, stderr.String())
}

func TestDoMain_InvalidLogLevelReportsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doMain([]string{"--log-level", "deafening"}, &stdout, &stderr)
	require.Equal(t, exitUsageError, code)
}

func TestDoMain_MissingInputFileReportsUsageError(t *testing.T) {
	withDecodeModule(t, func(io.Reader) (*wasmir.Module, error) {
		return &wasmir.Module{}, nil
	})
	var stdout, stderr bytes.Buffer
	code := doMain([]string{filepath.Join(t.TempDir(), "does-not-exist.wasm")}, &stdout, &stderr)
	require.Equal(t, exitUsageError, code)
}

func TestDeriveOutputName_ReplacesWasmExtension(t *testing.T) {
	require.Equal(t, "game.ulx", deriveOutputName("game.wasm"))
}

func TestDeriveOutputName_NonWasmExtensionAppendsUlx(t *testing.T) {
	require.Equal(t, "game.noext.ulx", deriveOutputName("game.noext"))
}

func TestDoMain_OpenOutputFailureReportsUsageError(t *testing.T) {
	withDecodeModule(t, func(io.Reader) (*wasmir.Module, error) {
		return &wasmir.Module{}, nil
	})
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	// A directory path can never be opened for writing as a file.
	code := doMain([]string{"-o", dir}, &stdout, &stderr)
	require.Equal(t, exitUsageError, code)
}
