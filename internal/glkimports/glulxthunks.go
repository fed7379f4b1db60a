package glkimports

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// buildGlulxThunk emits the thunk for one `"glulx"` import: the
// math/game-state/misc/Glk-area intrinsics lists alongside the
// Glk binding. Unlike "glk" imports these dispatch to native Glulx opcodes
// directly rather than through the `glk` selector mechanism.
//
// f64 values cross this boundary the same way WASM i64 values cross
// internal/lower's call boundary: as two consecutive i32 words, low word
// first (matching internal/lower/frame.go's locals pairing), with a second
// result word returned via the same push-then-native-return convention
// internal/lower's emitReturn uses for multi-value WASM returns. A function
// importing one of the double-precision names below must declare it with
// that expanded word-pair signature; this is the translator's own binding
// convention; `WrongSignatureImportError` check enforces it
// were this translator to validate wider than "argc/resultc"-only, but
// here the per-function signature table below does that checking directly.
func buildGlulxThunk(im wasmir.Import, ft wasmir.FunctionType, lay *layout.Layout) (*glulxasm.Label, []glulxasm.Item, error) {
	sig, ok := glulxFuncSignatures[im.Field]
	if !ok {
		return nil, nil, wasmir.NewUnknownImportError(im.Module, im.Field)
	}
	if len(ft.Params) != sig.params || len(ft.Results) != sig.results {
		return nil, nil, wasmir.NewWrongSignatureImportError(im.Module, im.Field, sig.params, sig.results, len(ft.Params), len(ft.Results))
	}

	entry := glulxasm.NewLabel("glx_" + im.Field)
	tb := newThunkBuilder(entry, uint32(sig.params)*4)

	if err := sig.build(tb, lay); err != nil {
		return nil, nil, err
	}

	return entry, tb.finish(), nil
}

type glulxFuncSig struct {
	params, results int
	build           func(tb *thunkBuilder, lay *layout.Layout) error
}

// demoteToF converts a double (hi, lo word pair) to a float32 bit pattern,
// and promoteToD the reverse, bridging the double-precision import names to
// the single-precision-only transcendental opcodes Glulx actually defines
// (glulxconst.OpExp etc. have no "D" counterpart) — see DESIGN.md.
func demoteToF(tb *thunkBuilder, hi, lo glulxasm.Operand) glulxasm.Operand {
	f := tb.scratch()
	tb.op(glulxconst.OpDToF, false, hi, lo, f)
	return f
}

func promoteToD(tb *thunkBuilder, f glulxasm.Operand) (hi, lo glulxasm.Operand) {
	hi, lo = tb.scratch(), tb.scratch()
	tb.op(glulxconst.OpFToD, false, f, hi, lo)
	return hi, lo
}

// unaryF/binaryF build a single-precision "f"-suffixed math import: the
// argument(s) and result are plain i32 operands already holding float32 bit
// patterns, so the native opcode applies with no conversion.
func unaryF(op glulxconst.Opcode) func(tb *thunkBuilder, lay *layout.Layout) error {
	return func(tb *thunkBuilder, lay *layout.Layout) error {
		dest := tb.scratch()
		tb.op(op, false, tb.param(0), dest)
		tb.returnSingle(dest)
		return nil
	}
}

func binaryF(op glulxconst.Opcode) func(tb *thunkBuilder, lay *layout.Layout) error {
	return func(tb *thunkBuilder, lay *layout.Layout) error {
		dest := tb.scratch()
		tb.op(op, false, tb.param(0), tb.param(1), dest)
		tb.returnSingle(dest)
		return nil
	}
}

// unaryDNative builds a double-precision import backed by a
// native Glulx double opcode (ceil/floor/sqrt: no precision loss needed).
func unaryDNative(op glulxconst.Opcode) func(tb *thunkBuilder, lay *layout.Layout) error {
	return func(tb *thunkBuilder, lay *layout.Layout) error {
		aLo, aHi := tb.param(0), tb.param(1)
		rHi, rLo := tb.scratch(), tb.scratch()
		tb.op(op, false, aHi, aLo, rHi, rLo)
		tb.returnWide(rLo, rHi)
		return nil
	}
}

// unaryDViaFloat/binaryDViaFloat build a double-precision transcendental
// import with no native double opcode, by demoting to float32, calling the
// single-precision opcode, and promoting the result back.
func unaryDViaFloat(op glulxconst.Opcode) func(tb *thunkBuilder, lay *layout.Layout) error {
	return func(tb *thunkBuilder, lay *layout.Layout) error {
		aLo, aHi := tb.param(0), tb.param(1)
		aF := demoteToF(tb, aHi, aLo)
		rF := tb.scratch()
		tb.op(op, false, aF, rF)
		rHi, rLo := promoteToD(tb, rF)
		tb.returnWide(rLo, rHi)
		return nil
	}
}

func binaryDViaFloat(op glulxconst.Opcode) func(tb *thunkBuilder, lay *layout.Layout) error {
	return func(tb *thunkBuilder, lay *layout.Layout) error {
		aLo, aHi := tb.param(0), tb.param(1)
		bLo, bHi := tb.param(2), tb.param(3)
		aF := demoteToF(tb, aHi, aLo)
		bF := demoteToF(tb, bHi, bLo)
		rF := tb.scratch()
		tb.op(op, false, aF, bF, rF)
		rHi, rLo := promoteToD(tb, rF)
		tb.returnWide(rLo, rHi)
		return nil
	}
}

// opCall builds the small fixed-shape game-state/misc
// imports: zero, one, or two i32 operands and an optional i32 result.
func opCall(op glulxconst.Opcode, nargs int, hasResult bool) func(tb *thunkBuilder, lay *layout.Layout) error {
	return func(tb *thunkBuilder, lay *layout.Layout) error {
		args := make([]glulxasm.Operand, nargs)
		for i := range args {
			args[i] = tb.param(i)
		}
		if hasResult {
			dest := tb.scratch()
			tb.op(op, false, append(args, dest)...)
			tb.returnSingle(dest)
		} else {
			tb.op(op, false, args...)
			tb.returnVoid()
		}
		return nil
	}
}

func glkareaSize(tb *thunkBuilder, lay *layout.Layout) error {
	tb.returnSingle(glulxasm.ConstOperand(int64(lay.Opts.GlkAreaSize)))
	return nil
}

// glkareaGetByte/PutByte move one byte between the Glk area and linear
// memory verbatim: a single byte has no endianness to convert.
func glkareaGetByte(tb *thunkBuilder, lay *layout.Layout) error {
	glkIdx, memAddr := tb.param(0), tb.param(1)
	src := tb.addrPlus(glulxasm.LabelOperand(lay.GlkAreaBase, 0), glkIdx)
	v := tb.scratch()
	tb.op(glulxconst.OpAloadb, false, src, glulxasm.ConstOperand(0), v)
	dst := tb.addrPlus(glulxasm.LabelOperand(lay.MemoryBase, 0), memAddr)
	tb.op(glulxconst.OpAstoreb, false, dst, glulxasm.ConstOperand(0), v)
	tb.returnVoid()
	return nil
}

func glkareaPutByte(tb *thunkBuilder, lay *layout.Layout) error {
	memAddr, glkIdx := tb.param(0), tb.param(1)
	src := tb.addrPlus(glulxasm.LabelOperand(lay.MemoryBase, 0), memAddr)
	v := tb.scratch()
	tb.op(glulxconst.OpAloadb, false, src, glulxasm.ConstOperand(0), v)
	dst := tb.addrPlus(glulxasm.LabelOperand(lay.GlkAreaBase, 0), glkIdx)
	tb.op(glulxconst.OpAstoreb, false, dst, glulxasm.ConstOperand(0), v)
	tb.returnVoid()
	return nil
}

// swapWord copies one 4-byte unit from srcBase+srcOff to dstBase+dstOff
// with the bytes reversed, implementing the little-endian/big-endian
// conversion calls for in the word-granularity Glk-area
// helpers: the source's lowest-address byte becomes the destination's
// highest-address byte and vice versa.
func swapWord(tb *thunkBuilder, srcBase *glulxasm.Label, srcOff glulxasm.Operand, dstBase *glulxasm.Label, dstOff glulxasm.Operand) {
	src := tb.addrPlus(glulxasm.LabelOperand(srcBase, 0), srcOff)
	dst := tb.addrPlus(glulxasm.LabelOperand(dstBase, 0), dstOff)
	bytes := make([]glulxasm.Operand, 4)
	for i := 0; i < 4; i++ {
		b := tb.scratch()
		tb.op(glulxconst.OpAloadb, false, src, glulxasm.ConstOperand(int64(i)), b)
		bytes[i] = b
	}
	for i := 0; i < 4; i++ {
		tb.op(glulxconst.OpAstoreb, false, dst, glulxasm.ConstOperand(int64(3-i)), bytes[i])
	}
}

func glkareaGetWord(tb *thunkBuilder, lay *layout.Layout) error {
	glkIdx, memAddr := tb.param(0), tb.param(1)
	swapWord(tb, lay.GlkAreaBase, glkIdx, lay.MemoryBase, memAddr)
	tb.returnVoid()
	return nil
}

func glkareaPutWord(tb *thunkBuilder, lay *layout.Layout) error {
	memAddr, glkIdx := tb.param(0), tb.param(1)
	swapWord(tb, lay.MemoryBase, memAddr, lay.GlkAreaBase, glkIdx)
	tb.returnVoid()
	return nil
}

func glkareaGetBytes(tb *thunkBuilder, lay *layout.Layout) error {
	glkIdx, memAddr, count := tb.param(0), tb.param(1), tb.param(2)
	tb.forLoop(count, func(i glulxasm.Operand) {
		src := tb.addrPlus(glulxasm.LabelOperand(lay.GlkAreaBase, 0), tb.addrPlus(glkIdx, i))
		v := tb.scratch()
		tb.op(glulxconst.OpAloadb, false, src, glulxasm.ConstOperand(0), v)
		dst := tb.addrPlus(glulxasm.LabelOperand(lay.MemoryBase, 0), tb.addrPlus(memAddr, i))
		tb.op(glulxconst.OpAstoreb, false, dst, glulxasm.ConstOperand(0), v)
	})
	tb.returnVoid()
	return nil
}

func glkareaPutBytes(tb *thunkBuilder, lay *layout.Layout) error {
	memAddr, glkIdx, count := tb.param(0), tb.param(1), tb.param(2)
	tb.forLoop(count, func(i glulxasm.Operand) {
		src := tb.addrPlus(glulxasm.LabelOperand(lay.MemoryBase, 0), tb.addrPlus(memAddr, i))
		v := tb.scratch()
		tb.op(glulxconst.OpAloadb, false, src, glulxasm.ConstOperand(0), v)
		dst := tb.addrPlus(glulxasm.LabelOperand(lay.GlkAreaBase, 0), tb.addrPlus(glkIdx, i))
		tb.op(glulxconst.OpAstoreb, false, dst, glulxasm.ConstOperand(0), v)
	})
	tb.returnVoid()
	return nil
}

func glkareaGetWords(tb *thunkBuilder, lay *layout.Layout) error {
	glkIdx, memAddr, count := tb.param(0), tb.param(1), tb.param(2)
	tb.forLoop(count, func(i glulxasm.Operand) {
		off := tb.scratch()
		tb.op(glulxconst.OpMul, false, i, glulxasm.ConstOperand(4), off)
		swapWord(tb, lay.GlkAreaBase, tb.addrPlus(glkIdx, off), lay.MemoryBase, tb.addrPlus(memAddr, off))
	})
	tb.returnVoid()
	return nil
}

func glkareaPutWords(tb *thunkBuilder, lay *layout.Layout) error {
	memAddr, glkIdx, count := tb.param(0), tb.param(1), tb.param(2)
	tb.forLoop(count, func(i glulxasm.Operand) {
		off := tb.scratch()
		tb.op(glulxconst.OpMul, false, i, glulxasm.ConstOperand(4), off)
		swapWord(tb, lay.MemoryBase, tb.addrPlus(memAddr, off), lay.GlkAreaBase, tb.addrPlus(glkIdx, off))
	})
	tb.returnVoid()
	return nil
}

// glulxFuncSignatures enumerates module `"glulx"`'s importable names,
// transcribed the same way glkfuncs.go transcribes the Glk API: plain
// data, not algorithmic logic.
var glulxFuncSignatures = map[string]glulxFuncSig{
	// Double-precision math: two i32 words per f64 argument/result
	// (low word, high word), per this file's doc comment.
	"fmod":  {params: 4, results: 2, build: binaryDViaFloat(glulxconst.OpFmod)},
	"floor": {params: 2, results: 2, build: unaryDNative(glulxconst.OpDFloor)},
	"exp":   {params: 2, results: 2, build: unaryDViaFloat(glulxconst.OpExp)},
	"log":   {params: 2, results: 2, build: unaryDViaFloat(glulxconst.OpLog)},
	"pow":   {params: 4, results: 2, build: binaryDViaFloat(glulxconst.OpPow)},
	"sin":   {params: 2, results: 2, build: unaryDViaFloat(glulxconst.OpSin)},
	"cos":   {params: 2, results: 2, build: unaryDViaFloat(glulxconst.OpCos)},
	"tan":   {params: 2, results: 2, build: unaryDViaFloat(glulxconst.OpTan)},
	"asin":  {params: 2, results: 2, build: unaryDViaFloat(glulxconst.OpAsin)},
	"acos":  {params: 2, results: 2, build: unaryDViaFloat(glulxconst.OpAcos)},
	"atan":  {params: 2, results: 2, build: unaryDViaFloat(glulxconst.OpAtan)},
	"atan2": {params: 4, results: 2, build: binaryDViaFloat(glulxconst.OpAtan2)},

	// Single-precision ("f"-suffixed) math: direct float32 opcodes, no
	// conversion needed.
	"fmodf":  {params: 2, results: 1, build: binaryF(glulxconst.OpFmod)},
	"floorf": {params: 1, results: 1, build: unaryF(glulxconst.OpFloor)},
	"expf":   {params: 1, results: 1, build: unaryF(glulxconst.OpExp)},
	"logf":   {params: 1, results: 1, build: unaryF(glulxconst.OpLog)},
	"powf":   {params: 2, results: 1, build: binaryF(glulxconst.OpPow)},
	"sinf":   {params: 1, results: 1, build: unaryF(glulxconst.OpSin)},
	"cosf":   {params: 1, results: 1, build: unaryF(glulxconst.OpCos)},
	"tanf":   {params: 1, results: 1, build: unaryF(glulxconst.OpTan)},
	"asinf":  {params: 1, results: 1, build: unaryF(glulxconst.OpAsin)},
	"acosf":  {params: 1, results: 1, build: unaryF(glulxconst.OpAcos)},
	"atanf":  {params: 1, results: 1, build: unaryF(glulxconst.OpAtan)},
	"atan2f": {params: 2, results: 1, build: binaryF(glulxconst.OpAtan2)},

	// Game state.
	"restart":      {params: 0, results: 0, build: opCall(glulxconst.OpRestart, 0, false)},
	"save":         {params: 1, results: 1, build: opCall(glulxconst.OpSave, 1, true)},
	"restore":      {params: 1, results: 1, build: opCall(glulxconst.OpRestore, 1, true)},
	"saveundo":     {params: 0, results: 1, build: opCall(glulxconst.OpSaveundo, 0, true)},
	"restoreundo":  {params: 0, results: 1, build: opCall(glulxconst.OpRestoreundo, 0, true)},
	"hasundo":      {params: 0, results: 1, build: opCall(glulxconst.OpHasundo, 0, true)},
	"discardundo":  {params: 0, results: 0, build: opCall(glulxconst.OpDiscardundo, 0, false)},
	"protect":      {params: 2, results: 0, build: opCall(glulxconst.OpProtect, 2, false)},

	// Miscellaneous.
	"gestalt":    {params: 2, results: 1, build: opCall(glulxconst.OpGestalt, 2, true)},
	"random":     {params: 1, results: 1, build: opCall(glulxconst.OpRandom, 1, true)},
	"setrandom":  {params: 1, results: 0, build: opCall(glulxconst.OpSetrandom, 1, false)},

	// Glk-area helpers.
	"glkarea_size":      {params: 0, results: 1, build: glkareaSize},
	"glkarea_get_byte":  {params: 2, results: 0, build: glkareaGetByte},
	"glkarea_put_byte":  {params: 2, results: 0, build: glkareaPutByte},
	"glkarea_get_word":  {params: 2, results: 0, build: glkareaGetWord},
	"glkarea_put_word":  {params: 2, results: 0, build: glkareaPutWord},
	"glkarea_get_bytes": {params: 3, results: 0, build: glkareaGetBytes},
	"glkarea_put_bytes": {params: 3, results: 0, build: glkareaPutBytes},
	"glkarea_get_words": {params: 3, results: 0, build: glkareaGetWords},
	"glkarea_put_words": {params: 3, results: 0, build: glkareaPutWords},
}
