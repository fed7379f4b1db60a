// Command wasm2glulx translates a WebAssembly binary into a Glulx story
// file. Flag parsing is the thin wiring layer carved out as an external
// concern; this file's job is only to bind cobra/pflag flags to
// wasm2glulx.Options and report a distinct exit code per failure class,
// keeping doMain's testable logic separate from main's os.Exit call.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/glulxfic/wasm2glulx"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// Exit codes returned by doMain, one per failure class.
const (
	exitOK          = 0
	exitInputError  = 1
	exitLayoutError = 2
	exitUsageError  = 3
)

// decodeModule turns a raw WebAssembly binary into the IR this translator
// consumes. Decoding the binary format itself is explicitly out of scope;
// this hook is the seam a real build links an upstream decoder into. Left
// unwired, it reports a clear input error rather than silently producing a
// malformed empty module.
var decodeModule = func(io.Reader) (*wasmir.Module, error) {
	return nil, fmt.Errorf("wasm2glulx: no WebAssembly binary decoder is linked into this build")
}

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}

// doMain is separated out from main so it can be unit tested with fake
// stdout/stderr and argument slices.
func doMain(args []string, stdout, stderr io.Writer) int {
	var (
		output           string
		glkAreaSize      uint32
		stackSize        uint32
		tableGrowthLimit uint32
		emitText         bool
		logLevel         string
	)

	root := &cobra.Command{
		Use:           "wasm2glulx [input.wasm]",
		Short:         "Translate a WebAssembly module into a Glulx story file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	flags := root.Flags()
	flags.StringVarP(&output, "output", "o", "", "output file (default: derived from input, or stdout)")
	flags.Uint32Var(&glkAreaSize, "glk-area-size", 4096, "byte size of the Glk area")
	flags.Uint32Var(&stackSize, "stack-size", 1048576, "byte size of the Glulx call stack")
	flags.Uint32Var(&tableGrowthLimit, "table-growth-limit", 0xFFFFFFF0, "maximum slots for a table with no declared maximum")
	flags.BoolVar(&emitText, "text", false, "also print a best-effort textual listing")
	flags.StringVar(&logLevel, "log-level", "warn", "log verbosity: debug, info, warn, error")

	exitCode := exitOK
	root.RunE = func(cmd *cobra.Command, cmdArgs []string) error {
		logger, err := newLogger(logLevel, stderr)
		if err != nil {
			exitCode = exitUsageError
			return err
		}
		defer logger.Sync() //nolint:errcheck

		in, closeIn, err := openInput(cmdArgs)
		if err != nil {
			exitCode = exitUsageError
			return err
		}
		defer closeIn()

		m, err := decodeModule(in)
		if err != nil {
			exitCode = exitInputError
			return err
		}

		opts := wasm2glulx.NewOptions().
			WithGlkAreaSize(glkAreaSize).
			WithStackSize(stackSize).
			WithTableGrowthLimit(tableGrowthLimit).
			WithTextListing(emitText).
			WithLogger(logger)

		res, err := wasm2glulx.Translate(cmd.Context(), m, opts)
		if err != nil {
			exitCode = exitLayoutError
			return err
		}

		out, closeOut, err := openOutput(output, cmdArgs)
		if err != nil {
			exitCode = exitUsageError
			return err
		}
		defer closeOut()

		if _, err := out.Write(res.Image); err != nil {
			exitCode = exitLayoutError
			return err
		}
		if emitText {
			fmt.Fprint(stdout, res.Text)
		}
		return nil
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "wasm2glulx:", err)
		if exitCode == exitOK {
			exitCode = exitUsageError
		}
		return exitCode
	}
	return exitCode
}

func newLogger(level string, stderr io.Writer) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(stderr), lvl)
	return zap.New(core), nil
}

func openInput(args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openOutput(output string, args []string) (io.Writer, func(), error) {
	if output == "" {
		if len(args) == 0 || args[0] == "-" {
			return os.Stdout, func() {}, nil
		}
		output = deriveOutputName(args[0])
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func deriveOutputName(input string) string {
	if len(input) > 5 && input[len(input)-5:] == ".wasm" {
		return input[:len(input)-5] + ".ulx"
	}
	return input + ".ulx"
}
