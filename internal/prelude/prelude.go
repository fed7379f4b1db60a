// Package prelude implements the initialization routine every translated
// image runs before any WASM code executes: applying data/element
// segments, running global initializers, and invoking the start function.
// It is itself compiled into the image as an ordinary Glulx function,
// since Glulx has no separate "instantiation" phase distinct from running
// code.
package prelude

import (
	"math"

	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// glkExitSelector is Glk 0.7.5's glk_exit selector, called directly (not
// through an import thunk, since the prelude is generated code, not WASM)
// once the module's own entry points return.
const glkExitSelector = 0x0001

const scratchWords = 16

type builder struct {
	items       []glulxasm.Item
	scratchBase uint32
	next        uint32
}

func newBuilder(entry *glulxasm.Label) *builder {
	b := &builder{scratchBase: 0}
	b.items = append(b.items, &glulxasm.LabelDef{L: entry})
	b.items = append(b.items, &glulxasm.Data{Bytes: []byte{byte(glulxconst.CallTypeLocalArgs), 4, byte(scratchWords), 0, 0}})
	b.scratchBase = 0
	return b
}

func (b *builder) scratch() glulxasm.Operand {
	off := b.scratchBase + b.next*4
	b.next++
	return glulxasm.LocalOperand(off)
}

func (b *builder) op(o glulxconst.Opcode, trap bool, operands ...glulxasm.Operand) {
	b.items = append(b.items, &glulxasm.Instruction{Op: o, Operands: operands, MayTrap: trap})
}

func (b *builder) label(l *glulxasm.Label) { b.items = append(b.items, &glulxasm.LabelDef{L: l}) }

func (b *builder) addrPlus(a, c glulxasm.Operand) glulxasm.Operand {
	dest := b.scratch()
	b.op(glulxconst.OpAdd, false, a, c, dest)
	return dest
}

// evalConstInit evaluates a GlobalInit to one or two Glulx operands — two
// for i64/f64 (low word, high word, matching every other 64-bit value's
// representation throughout this translator), one otherwise.
func evalConstInit(init wasmir.GlobalInit, lay *layout.Layout, funcRefs map[uint32]*glulxasm.Label) (lo glulxasm.Operand, hi glulxasm.Operand, wide bool, err error) {
	switch init.Op {
	case wasmir.OpI32Const:
		return glulxasm.ConstOperand(int64(init.I32)), glulxasm.Operand{}, false, nil
	case wasmir.OpF32Const:
		return glulxasm.ConstOperand(int64(int32(math.Float32bits(init.F32)))), glulxasm.Operand{}, false, nil
	case wasmir.OpI64Const:
		lo64 := int64(int32(uint32(init.I64)))
		hi64 := int64(int32(uint32(init.I64 >> 32)))
		return glulxasm.ConstOperand(lo64), glulxasm.ConstOperand(hi64), true, nil
	case wasmir.OpF64Const:
		bits := math.Float64bits(init.F64)
		lo64 := int64(int32(uint32(bits)))
		hi64 := int64(int32(uint32(bits >> 32)))
		return glulxasm.ConstOperand(lo64), glulxasm.ConstOperand(hi64), true, nil
	case wasmir.OpRefNull:
		return glulxasm.ConstOperand(0), glulxasm.ConstOperand(0), true, nil
	case wasmir.OpGlobalGet:
		return glulxasm.Operand{}, glulxasm.Operand{}, false, wasmir.NewUnsupportedFeatureError(
			"global-init", "global.get-of-import initializers are unsupported: neither \"glk\" nor \"glulx\" exports any global")
	default:
		return glulxasm.Operand{}, glulxasm.Operand{}, false, wasmir.NewUnsupportedFeatureError("global-init", "unrecognized constant initializer opcode")
	}
}

// Build emits the initialization routine and returns its entry label,
// suitable for the Glulx header's StartFunc field.
func Build(m *wasmir.Module, lay *layout.Layout, funcRefs map[uint32]*glulxasm.Label, dataBlobs map[int]*glulxasm.Label) (*glulxasm.Label, []glulxasm.Item, error) {
	entry := glulxasm.NewLabel("prelude_start")
	b := newBuilder(entry)

	if err := applyDataSegments(b, m, lay, dataBlobs); err != nil {
		return nil, nil, err
	}
	if err := applyElementSegments(b, m, lay, funcRefs); err != nil {
		return nil, nil, err
	}
	if err := initGlobals(b, m, lay, funcRefs); err != nil {
		return nil, nil, err
	}
	initTableSizeCells(b, lay)

	b.op(glulxconst.OpSetiosys, false, glulxasm.ConstOperand(2), glulxasm.ConstOperand(0))

	if m.Start != nil {
		callVoid(b, funcRefs[*m.Start])
	}
	if exp, ok := m.FindExport("glulx_main", wasmir.ExternTypeFunc); ok {
		if m.Start == nil || *m.Start != exp.Index {
			callVoid(b, funcRefs[exp.Index])
		}
	}

	b.op(glulxconst.OpGlk, false, glulxasm.ConstOperand(glkExitSelector), glulxasm.ConstOperand(0), glulxasm.Operand{})
	b.op(glulxconst.OpReturn, false, glulxasm.ConstOperand(0))

	return entry, b.items, nil
}

func callVoid(b *builder, target *glulxasm.Label) {
	dest := glulxasm.Operand{}
	b.op(glulxconst.OpCall, false, glulxasm.LabelConstOperand(target, 0), glulxasm.ConstOperand(0), dest)
}

// applyDataSegments copies every active data segment's ROM-resident bytes
// into linear memory via a single mcopy, range-checked against the
// module's declared initial memory size the way internal/lower's
// memory.init lowering range-checks a runtime data.init.
func applyDataSegments(b *builder, m *wasmir.Module, lay *layout.Layout, blobs map[int]*glulxasm.Label) error {
	for i, d := range m.Data {
		if d.Mode != wasmir.DataModeActive || len(d.Bytes) == 0 {
			continue
		}
		lo, _, wide, err := evalConstInit(d.Offset, lay, nil)
		if err != nil {
			return err
		}
		if wide {
			return wasmir.NewUnsupportedFeatureError("data-segment-offset", "64-bit offset initializer")
		}
		dst := b.addrPlus(glulxasm.LabelOperand(lay.MemoryBase, 0), lo)
		blob, ok := blobs[i]
		if !ok {
			continue
		}
		end := b.addrPlus(dst, glulxasm.ConstOperand(int64(len(d.Bytes))))
		memEnd := b.scratch()
		b.op(glulxconst.OpGetmemsize, false, memEnd)
		inRange := glulxasm.NewLabel("prelude_data_in_range")
		b.op(glulxconst.OpJleu, false, end, memEnd, glulxasm.BranchOperand(inRange))
		b.op(glulxconst.OpDebugtrap, true, glulxasm.ConstOperand(int64(glulxconst.TrapOutOfBoundsMemory)))
		b.label(inRange)
		b.op(glulxconst.OpMcopy, true,
			glulxasm.ConstOperand(int64(len(d.Bytes))),
			glulxasm.LabelOperand(blob, 0),
			dst,
		)
	}
	return nil
}

// applyElementSegments writes each active element segment's (fingerprint,
// code-address) pairs into its table's slot array, the same pair ordering
// internal/lower/table.go and lowerRefFunc use throughout.
func applyElementSegments(b *builder, m *wasmir.Module, lay *layout.Layout, funcRefs map[uint32]*glulxasm.Label) error {
	for _, e := range m.Elements {
		if e.Mode != wasmir.ElementModeActive {
			continue
		}
		lo, _, wide, err := evalConstInit(e.Offset, lay, nil)
		if err != nil {
			return err
		}
		if wide {
			return wasmir.NewUnsupportedFeatureError("element-segment-offset", "64-bit offset initializer")
		}
		tableBase := lay.TableBases[e.TableIndex]
		slotSize := layout.TableSlotSize(e.ElemType)
		base := b.addrPlus(glulxasm.LabelOperand(tableBase, 0), b.mul(lo, int64(slotSize)))
		for i, fidx := range e.FuncIndices {
			slot := b.addrPlus(base, glulxasm.ConstOperand(int64(uint32(i)*slotSize)))
			ft := m.Types[m.FuncTypeIndex(fidx)]
			fp := int64(ft.Fingerprint())
			b.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(0), glulxasm.ConstOperand(fp))
			b.op(glulxconst.OpAstore, false, slot, glulxasm.ConstOperand(1), glulxasm.LabelConstOperand(funcRefs[fidx], 0))
		}
	}
	return nil
}

func (b *builder) mul(v glulxasm.Operand, k int64) glulxasm.Operand {
	dest := b.scratch()
	b.op(glulxconst.OpMul, false, v, glulxasm.ConstOperand(k), dest)
	return dest
}

// initGlobals writes each module-defined global's constant initializer
// value into the globals region.
func initGlobals(b *builder, m *wasmir.Module, lay *layout.Layout, funcRefs map[uint32]*glulxasm.Label) error {
	for i, g := range m.Globals {
		addr := glulxasm.LabelOperand(lay.GlobalsBase, int64(lay.GlobalOffsets[i]))
		if g.Init.Op == wasmir.OpRefFunc {
			ft := m.Types[m.FuncTypeIndex(g.Init.FuncIndex)]
			fp := int64(ft.Fingerprint())
			b.op(glulxconst.OpAstore, false, addr, glulxasm.ConstOperand(0), glulxasm.ConstOperand(fp))
			b.op(glulxconst.OpAstore, false, addr, glulxasm.ConstOperand(1), glulxasm.LabelConstOperand(funcRefs[g.Init.FuncIndex], 0))
			continue
		}
		lo, hi, wide, err := evalConstInit(g.Init, lay, funcRefs)
		if err != nil {
			return err
		}
		if wide {
			b.op(glulxconst.OpAstore, false, addr, glulxasm.ConstOperand(0), lo)
			b.op(glulxconst.OpAstore, false, addr, glulxasm.ConstOperand(1), hi)
		} else {
			b.op(glulxconst.OpAstore, false, addr, glulxasm.ConstOperand(0), lo)
		}
	}
	return nil
}

func initTableSizeCells(b *builder, lay *layout.Layout) {
	for i, cell := range lay.TableSizeCells {
		b.op(glulxconst.OpAstore, false, glulxasm.LabelOperand(cell, 0), glulxasm.ConstOperand(0), glulxasm.ConstOperand(int64(lay.TableMins[i])))
	}
}
