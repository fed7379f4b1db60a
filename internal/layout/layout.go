// Package layout implements the layout planner: it assigns each WASM
// module entity to a Glulx image region before any function is lowered,
// the same way a module instantiation path assigns memory/table/global
// instance slots before any function is compiled.
package layout

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// Options are the CLI-controlled knobs this translator exposes.
type Options struct {
	GlkAreaSize       uint32
	StackSize         uint32
	TableGrowthLimit  uint32
}

// DefaultOptions mirrors the CLI's documented defaults.
func DefaultOptions() Options {
	return Options{
		GlkAreaSize:      4096,
		StackSize:        1048576,
		TableGrowthLimit: 0xFFFFFFF0,
	}
}

// Layout holds the symbolic RAM region labels and static sizing decisions
// computed from a module before lowering begins. Every address a lowered
// function needs is a *glulxasm.Label (plus a constant addend), resolved
// only once the whole image is assembled — see glulxasm.Operand's doc
// comment for why this sidesteps the ROM/RAM size circularity.
type Layout struct {
	Opts Options

	// RAMStart/ExtStart/EndMem are the three header boundaries. This
	// translator keeps RAMStart == ExtStart (no pre-initialized RAM bytes
	// stored in the file; the initialization prelude sets up all of RAM
	// at startup instead), so RAMStart and ExtStart are in fact the same
	// label.
	RAMStart *glulxasm.Label
	ExtStart *glulxasm.Label
	EndMem   *glulxasm.Label

	// MemoryBase marks the first byte of WASM linear memory within RAM.
	// It is aligned to a 256-byte boundary.
	MemoryBase *glulxasm.Label
	// MemoryInitialSize/MemoryMaxSize are in bytes (pages * 64 KiB).
	MemoryInitialSize uint32
	MemoryMaxSize     uint32

	// GlobalsBase marks the start of the WASM globals region; each global
	// occupies 4 or 8 bytes in declaration order (f64/i64 take 8).
	GlobalsBase   *glulxasm.Label
	GlobalOffsets []uint32 // per wasmir.Module.Globals index

	// TableBases[i] marks the start of table i's slot array. funcref
	// slots are 8 bytes (type fingerprint + code address pair); externref
	// slots are 4 bytes.
	TableBases []*glulxasm.Label
	TableMins  []uint32
	TableMaxes []uint32
	// TableElemTypes[i] is table i's element type, which picks its slot size.
	TableElemTypes []wasmir.ValueType
	// TableSizeCells[i] is a 4-byte RAM word holding table i's current
	// logical element count. Unlike WASM linear memory, a table's slot
	// array is pre-reserved to its maximum (TableMaxes[i]) so growth never
	// relocates it (see TableSize's doc comment); table.grow/table.size
	// still need somewhere to track how many of those pre-reserved slots
	// are "live", since Glulx has no equivalent of getmemsize/setmemsize
	// scoped to a sub-region. internal/prelude initializes each cell to
	// TableMins[i].
	TableSizeCells []*glulxasm.Label

	// GlkAreaBase marks the start of the Glk area, a distinct RAM region
	// addressed by its own zero-based index per invariants.
	GlkAreaBase *glulxasm.Label

	// FuncTypeFingerprints[i] is the constant fingerprint for
	// module.Types[i], used by call_indirect's type check.
	FuncTypeFingerprints []uint32
}

// Plan computes a Layout for m. It does not itself emit any glulxasm.Item;
// callers combine the returned labels into the appropriate item stream
// positions (internal/translator does this: ROM region emitted first by
// internal/lower and internal/glkimports, then the RAM region boundary
// labels, then the RAM region's ZeroFill items).
func Plan(m *wasmir.Module, opts Options) *Layout {
	l := &Layout{
		Opts:     opts,
		RAMStart: glulxasm.NewLabel("RAMSTART"),
		EndMem:   glulxasm.NewLabel("ENDMEM"),
	}
	l.ExtStart = l.RAMStart // no pre-initialized RAM bytes stored in file.
	l.MemoryBase = glulxasm.NewLabel("memory_base")

	if len(m.Memories) > 0 {
		mem := m.Memories[0]
		l.MemoryInitialSize = mem.MinPages * wasmir.WasmPageSize
		if mem.MaxPages != nil {
			l.MemoryMaxSize = *mem.MaxPages * wasmir.WasmPageSize
		} else {
			l.MemoryMaxSize = uint32(0x100000000 - wasmir.WasmPageSize) // practical cap just under 4GiB
		}
	}

	l.GlobalsBase = glulxasm.NewLabel("globals_base")
	offset := uint32(0)
	for _, g := range m.Globals {
		l.GlobalOffsets = append(l.GlobalOffsets, offset)
		offset += uint32(g.Type.Size())
	}

	for _, t := range m.Tables {
		lbl := glulxasm.NewLabel("table_base")
		l.TableBases = append(l.TableBases, lbl)
		l.TableMins = append(l.TableMins, t.Min)
		l.TableElemTypes = append(l.TableElemTypes, t.ElemType)
		if t.Max != nil {
			l.TableMaxes = append(l.TableMaxes, *t.Max)
		} else {
			l.TableMaxes = append(l.TableMaxes, opts.TableGrowthLimit)
		}
		l.TableSizeCells = append(l.TableSizeCells, glulxasm.NewLabel("table_size_cell"))
	}

	l.GlkAreaBase = glulxasm.NewLabel("glkarea_base")

	for _, ft := range m.Types {
		l.FuncTypeFingerprints = append(l.FuncTypeFingerprints, ft.Fingerprint())
	}

	return l
}

// TableSlotSize returns the per-slot byte width for a table of the given
// element type, per reference-value invariant.
func TableSlotSize(t wasmir.ValueType) uint32 {
	if t == wasmir.ValueTypeFuncref {
		return 8
	}
	return 4
}

// GlobalsSize returns the total byte size of the globals region.
func (l *Layout) GlobalsSize(m *wasmir.Module) uint32 {
	total := uint32(0)
	for _, g := range m.Globals {
		total += uint32(g.Type.Size())
	}
	return total
}

// TableSize returns the byte size reserved for table i, sized to its
// declared/implied maximum so growth never needs to relocate the table
// (this translator does not implement table relocation; growth beyond the
// reserved maximum is the TRAP_OUT_OF_BOUNDS_TABLE_ACCESS-adjacent
// "-1 result" path described in memory.grow analogue for
// tables, boundary tests).
func (l *Layout) TableSize(i int) uint32 {
	return l.TableMaxes[i] * TableSlotSize(l.TableElemTypes[i])
}
