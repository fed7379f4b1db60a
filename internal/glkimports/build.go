package glkimports

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// thunkScratchWords is the fixed scratch pool every thunk's locals frame
// reserves, sized generously rather than computed per-thunk, the same
// tradeoff internal/lower's frame.go makes for WASM function frames.
const thunkScratchWords = 20

// thunkBuilder assembles one ROM function body: a locals-format header
// followed by a straight-line (or loop-bearing) instruction stream. Unlike
// internal/lower's fnCtx, a thunk never has to track an abstract WASM value
// stack — the argument/result shuffling it does is fixed at Build time by
// the import's signature, not the result of walking an arbitrary
// instruction tree.
type thunkBuilder struct {
	items       []glulxasm.Item
	scratchBase uint32
	nextScratch uint32
}

func localsFormatHeader(words uint32) []byte {
	h := []byte{byte(glulxconst.CallTypeLocalArgs)}
	remaining := words
	for remaining > 0 {
		n := remaining
		if n > 255 {
			n = 255
		}
		h = append(h, 4, byte(n))
		remaining -= n
	}
	h = append(h, 0, 0)
	return h
}

func newThunkBuilder(entry *glulxasm.Label, paramWords uint32) *thunkBuilder {
	b := &thunkBuilder{scratchBase: paramWords}
	b.items = append(b.items, &glulxasm.LabelDef{L: entry})
	b.items = append(b.items, &glulxasm.Data{Bytes: localsFormatHeader(paramWords + thunkScratchWords)})
	return b
}

func (b *thunkBuilder) param(i int) glulxasm.Operand {
	return glulxasm.LocalOperand(uint32(i) * 4)
}

func (b *thunkBuilder) scratch() glulxasm.Operand {
	off := b.scratchBase + b.nextScratch*4
	b.nextScratch++
	return glulxasm.LocalOperand(off)
}

func (b *thunkBuilder) op(o glulxconst.Opcode, trap bool, operands ...glulxasm.Operand) {
	b.items = append(b.items, &glulxasm.Instruction{Op: o, Operands: operands, MayTrap: trap})
}

func (b *thunkBuilder) label(l *glulxasm.Label) {
	b.items = append(b.items, &glulxasm.LabelDef{L: l})
}

func (b *thunkBuilder) addrPlus(a, c glulxasm.Operand) glulxasm.Operand {
	dest := b.scratch()
	b.op(glulxconst.OpAdd, false, a, c, dest)
	return dest
}

// forLoop emits a `for i := 0; i < count; i++ { body(i) }` loop using a
// freshly allocated scratch slot for the induction variable, the same
// index-and-compare shape internal/lower's memory.fill/copy loops use.
func (b *thunkBuilder) forLoop(count glulxasm.Operand, body func(i glulxasm.Operand)) {
	i := b.scratch()
	b.op(glulxconst.OpCopy, false, glulxasm.ConstOperand(0), i)
	loop := glulxasm.NewLabel("thunk_loop")
	done := glulxasm.NewLabel("thunk_done")
	b.label(loop)
	b.op(glulxconst.OpJgeu, false, i, count, glulxasm.BranchOperand(done))
	body(i)
	b.op(glulxconst.OpAdd, false, i, glulxasm.ConstOperand(1), i)
	b.op(glulxconst.OpJump, false, glulxasm.BranchOperand(loop))
	b.label(done)
}

// returnWide implements the same multi-value return convention
// internal/lower's emitReturn uses for a two-result function: the second
// (high) word is pushed to the Glulx stack for the caller to pop, and the
// first (low) word is the native return value.
func (b *thunkBuilder) returnWide(lo, hi glulxasm.Operand) {
	b.op(glulxconst.OpCopy, false, hi, glulxasm.PushOperand)
	b.op(glulxconst.OpReturn, false, lo)
}

func (b *thunkBuilder) returnSingle(v glulxasm.Operand) {
	b.op(glulxconst.OpReturn, false, v)
}

func (b *thunkBuilder) returnVoid() {
	b.op(glulxconst.OpReturn, false, glulxasm.ConstOperand(0))
}

func (b *thunkBuilder) finish() []glulxasm.Item { return b.items }

// Build emits the import binding thunks for every function m imports,
// keyed by the function's position in the combined function index space.
// internal/translator splices the returned items into the ROM region and
// merges the returned labels into the rest of the function-reference table
// it builds for internal/lower's calls/call_indirect/ref.func lowering.
func Build(m *wasmir.Module, lay *layout.Layout) ([]glulxasm.Item, map[uint32]*glulxasm.Label, error) {
	var items []glulxasm.Item
	labels := make(map[uint32]*glulxasm.Label)

	funcIdx := uint32(0)
	for _, im := range m.Imports {
		if im.Type != wasmir.ExternTypeFunc {
			continue
		}
		ft := m.Types[im.FuncTypeIndex]

		var entry *glulxasm.Label
		var thunkItems []glulxasm.Item
		var err error
		switch im.Module {
		case "glk":
			entry, thunkItems, err = buildGlkThunk(im, ft, lay)
		case "glulx":
			entry, thunkItems, err = buildGlulxThunk(im, ft, lay)
		default:
			err = wasmir.NewUnknownImportError(im.Module, im.Field)
		}
		if err != nil {
			return nil, nil, err
		}

		labels[funcIdx] = entry
		items = append(items, thunkItems...)
		funcIdx++
	}
	return items, labels, nil
}

type patchRecord struct {
	addr   glulxasm.Operand
	saved  glulxasm.Operand
	isByte bool
}

// buildGlkThunk emits the thunk for one "glk" import: convert each
// argument per its ArgKind, dispatch via the `glk` opcode, restore any
// patched string prefixes, and return the Glk call's result (or 0).
func buildGlkThunk(im wasmir.Import, ft wasmir.FunctionType, lay *layout.Layout) (*glulxasm.Label, []glulxasm.Item, error) {
	gf, ok := ByName(im.Field)
	if !ok {
		return nil, nil, wasmir.NewUnknownImportError(im.Module, im.Field)
	}
	wantResults := 0
	if gf.HasResult {
		wantResults = 1
	}
	if len(ft.Params) != len(gf.Args) || len(ft.Results) != wantResults {
		return nil, nil, wasmir.NewWrongSignatureImportError(im.Module, im.Field, len(gf.Args), wantResults, len(ft.Params), len(ft.Results))
	}
	for _, p := range ft.Params {
		if p != wasmir.ValueTypeI32 {
			return nil, nil, wasmir.NewWrongSignatureImportError(im.Module, im.Field, len(gf.Args), wantResults, len(ft.Params), len(ft.Results))
		}
	}

	entry := glulxasm.NewLabel("glk_" + gf.Name)
	tb := newThunkBuilder(entry, uint32(len(gf.Args))*4)

	var convertedArgs []glulxasm.Operand
	var patches []patchRecord
	for i, kind := range gf.Args {
		p := tb.param(i)
		switch kind {
		case ArgPlain:
			convertedArgs = append(convertedArgs, p)
		case ArgGlkAreaIndex:
			addr := tb.addrPlus(glulxasm.LabelOperand(lay.GlkAreaBase, 0), p)
			convertedArgs = append(convertedArgs, addr)
		case ArgLatin1StringPtr:
			addr := tb.addrPlus(glulxasm.LabelOperand(lay.MemoryBase, 0), p)
			prefixAddr := tb.addrPlus(addr, glulxasm.ConstOperand(-1))
			saved := tb.scratch()
			tb.op(glulxconst.OpAloadb, false, prefixAddr, glulxasm.ConstOperand(0), saved)
			tb.op(glulxconst.OpAstoreb, false, prefixAddr, glulxasm.ConstOperand(0), glulxasm.ConstOperand(int64(glulxconst.GlkLatin1StringPrefix)))
			patches = append(patches, patchRecord{addr: prefixAddr, saved: saved, isByte: true})
			convertedArgs = append(convertedArgs, prefixAddr)
		case ArgUniStringPtr:
			addr := tb.addrPlus(glulxasm.LabelOperand(lay.MemoryBase, 0), p)
			prefixAddr := tb.addrPlus(addr, glulxasm.ConstOperand(-4))
			saved := tb.scratch()
			tb.op(glulxconst.OpAload, false, prefixAddr, glulxasm.ConstOperand(0), saved)
			tb.op(glulxconst.OpAstore, false, prefixAddr, glulxasm.ConstOperand(0), glulxasm.ConstOperand(int64(glulxconst.GlkUnicodeStringPrefixWord)-1<<32))
			patches = append(patches, patchRecord{addr: prefixAddr, saved: saved, isByte: false})
			convertedArgs = append(convertedArgs, prefixAddr)
		}
	}

	for _, a := range convertedArgs {
		tb.op(glulxconst.OpCopy, false, a, glulxasm.PushOperand)
	}

	dest := glulxasm.Operand{} // ModeConstZero as a store target means "discard"
	var destLocal glulxasm.Operand
	if gf.HasResult {
		destLocal = tb.scratch()
		dest = destLocal
	}
	tb.op(glulxconst.OpGlk, false, glulxasm.ConstOperand(int64(gf.Selector)), glulxasm.ConstOperand(int64(len(convertedArgs))), dest)

	for i := len(patches) - 1; i >= 0; i-- {
		pr := patches[i]
		if pr.isByte {
			tb.op(glulxconst.OpAstoreb, false, pr.addr, glulxasm.ConstOperand(0), pr.saved)
		} else {
			tb.op(glulxconst.OpAstore, false, pr.addr, glulxasm.ConstOperand(0), pr.saved)
		}
	}

	if gf.HasResult {
		tb.returnSingle(destLocal)
	} else {
		tb.returnVoid()
	}

	return entry, tb.finish(), nil
}
