// Package wasm2glulx translates WebAssembly modules (already decoded into
// internal/wasmir's IR by an external parser, which is out of scope for
// this package) into Glulx story files. It exposes the internal pipeline
// (internal/layout, internal/lower, internal/peephole, internal/glulxasm,
// internal/prelude) through an Options struct built with functional
// options, and a single Translate entry point.
package wasm2glulx

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/translator"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// Options controls the translator's CLI-exposed knobs and ambient stack.
// Values are immutable; each With* method returns a new Options, a
// copy-on-write shape that lets a base configuration be shared and
// specialized without aliasing surprises.
type Options struct {
	glkAreaSize      uint32
	stackSize        uint32
	tableGrowthLimit uint32
	emitText         bool
	logger           *zap.Logger
}

// NewOptions returns the default Options: a 4096-byte Glk area, a 1MiB
// Glulx stack, table growth capped just under 2^32 slots, no text listing,
// and a no-op logger.
func NewOptions() Options {
	d := layout.DefaultOptions()
	return Options{
		glkAreaSize:      d.GlkAreaSize,
		stackSize:        d.StackSize,
		tableGrowthLimit: d.TableGrowthLimit,
		logger:           zap.NewNop(),
	}
}

func (o Options) clone() Options { return o }

// WithGlkAreaSize sets the byte size of the Glk area, the fixed RAM region
// outside WASM linear memory the glkarea_* intrinsics address.
func (o Options) WithGlkAreaSize(n uint32) Options {
	ret := o.clone()
	ret.glkAreaSize = n
	return ret
}

// WithStackSize sets the Glulx call stack's byte size (the image header's
// Stack Size field).
func (o Options) WithStackSize(n uint32) Options {
	ret := o.clone()
	ret.stackSize = n
	return ret
}

// WithTableGrowthLimit caps how large a table.grow may make a table that
// declares no explicit maximum, since this translator pre-reserves every
// table's slot array to its maximum up front (internal/layout.Layout.TableSize).
func (o Options) WithTableGrowthLimit(n uint32) Options {
	ret := o.clone()
	ret.tableGrowthLimit = n
	return ret
}

// WithTextListing enables populating Result.Text with a best-effort
// disassembly-adjacent listing of the assembled image alongside the binary
// bytes.
func (o Options) WithTextListing(enabled bool) Options {
	ret := o.clone()
	ret.emitText = enabled
	return ret
}

// WithLogger sets the structured logger used for non-fatal diagnostics
// (a warning when the module declares a mutable global, plus debug-level
// progress and failure messages).
// A nil logger is treated as zap.NewNop().
func (o Options) WithLogger(l *zap.Logger) Options {
	ret := o.clone()
	if l == nil {
		l = zap.NewNop()
	}
	ret.logger = l
	return ret
}

func (o Options) toLayout() layout.Options {
	return layout.Options{
		GlkAreaSize:      o.glkAreaSize,
		StackSize:        o.stackSize,
		TableGrowthLimit: o.tableGrowthLimit,
	}
}

// Result is the output of a successful Translate call.
type Result struct {
	// Image is the assembled Glulx story file.
	Image []byte
	// Text is a best-effort textual listing of Image, populated only when
	// Options.WithTextListing(true) was set.
	Text string
}

// Translate runs the full translation pipeline over m and returns the
// assembled Glulx image. ctx is accepted but not used; the pipeline itself
// does no I/O and never blocks.
func Translate(ctx context.Context, m *wasmir.Module, opts Options) (*Result, error) {
	log := opts.logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("translating module",
		zap.Int("functions", len(m.Functions)),
		zap.Int("imports", len(m.Imports)),
		zap.Int("tables", len(m.Tables)),
	)

	for _, g := range m.Globals {
		if g.Mutable {
			log.Warn("exported mutable global accepted but its export binding is ignored",
				zap.String("type", g.Type.String()))
			break
		}
	}

	image, err := translator.Build(m, opts.toLayout())
	if err != nil {
		log.Debug("translation failed", zap.Error(err))
		return nil, fmt.Errorf("wasm2glulx: %w", err)
	}

	res := &Result{Image: image}
	if opts.emitText {
		res.Text = textListing(image)
	}
	_ = ctx
	return res, nil
}

// textListing produces a best-effort human-readable summary of an assembled
// image: the fixed header fields plus a hex dump of the remainder. This
// translator does not keep a separate disassembler (the Non-goals exclude
// "disassembly listing beyond a best-effort --text dump"), so unlike a real
// decompiler this never decodes ROM back into per-instruction mnemonics.
func textListing(image []byte) string {
	var b []byte
	for i := 0; i < len(image); i += 16 {
		end := i + 16
		if end > len(image) {
			end = len(image)
		}
		b = append(b, []byte(fmt.Sprintf("%08x  % x\n", i, image[i:end]))...)
	}
	return string(b)
}
