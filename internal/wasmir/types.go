// Package wasmir defines the WebAssembly module intermediate representation
// that wasm2glulx consumes. It is intentionally the last stop before
// codegen: decoding the binary `.wasm` format into this shape is assumed to
// be done upstream by a separate parsing package (see the Non-goals),
// so this package only declares the types and does not decode anything.
package wasmir

// ValueType classifies a WebAssembly value, mirroring the byte encodings
// used in the binary format so upstream parsers can assign them directly.
type ValueType byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	default:
		return "unknown"
	}
}

// IsReference reports whether v is funcref or externref.
func (v ValueType) IsReference() bool {
	return v == ValueTypeFuncref || v == ValueTypeExternref
}

// Size returns the in-memory/in-table footprint of a value of this type, in
// bytes, as it appears in a Glulx locals frame or table slot. All scalar
// WASM types widen to 4 bytes in Glulx locals (i64/f64 occupy two 4-byte
// locals, tracked as a pair by the lowerer; see internal/lower).
func (v ValueType) Size() int {
	switch v {
	case ValueTypeI64, ValueTypeF64:
		return 8
	default:
		return 4
	}
}

// ExternType classifies an import or export.
type ExternType byte

const (
	ExternTypeFunc ExternType = iota
	ExternTypeTable
	ExternTypeMemory
	ExternTypeGlobal
)

// FunctionType is a WASM function signature: an ordered parameter list and
// an ordered result list. Multi-value results are a first-class part of the
// type, per the multi-value support.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// Fingerprint is a stable signature used by call_indirect to check that the
// callee's declared type matches the caller's expected type. It is
// computed once per type index by the layout planner and baked into ROM
// as a constant.
func (t *FunctionType) Fingerprint() uint32 {
	h := uint32(2166136261) // FNV-1a offset basis
	upd := func(b byte) {
		h ^= uint32(b)
		h *= 16777619
	}
	for _, p := range t.Params {
		upd(byte(p))
	}
	upd(0xff)
	for _, r := range t.Results {
		upd(byte(r))
	}
	return h
}

// LocalGroup is a run-length encoded group of locals sharing a type, as
// functions declare them in the binary format.
type LocalGroup struct {
	Count int
	Type  ValueType
}

// Function is a module-defined (non-imported) function.
type Function struct {
	TypeIndex uint32
	Locals    []LocalGroup
	Body      []Instr
	// Name is an optional debug name (from the name section, if the
	// upstream parser threaded it through); purely cosmetic.
	Name string
}

// Table holds a funcref or externref table.
type Table struct {
	ElemType ValueType
	Min      uint32
	Max      *uint32
}

// Memory holds the WASM module's single linear memory.
type Memory struct {
	MinPages uint32
	MaxPages *uint32
}

const WasmPageSize = 65536

// GlobalInit is a constant initializer expression: one of a handful of
// const-only opcodes (i32.const, i64.const, f32.const, f64.const,
// ref.null, ref.func, global.get of an imported immutable global).
type GlobalInit struct {
	Op   Opcode
	I32  int32
	I64  int64
	F32  float32
	F64  float64
	// FuncIndex is used by ref.func initializers.
	FuncIndex uint32
	// GlobalIndex is used by global.get initializers.
	GlobalIndex uint32
}

// Global is a module-defined global variable.
type Global struct {
	Type    ValueType
	Mutable bool
	Init    GlobalInit
}

// ElementMode classifies an element segment per the bulk-memory proposal.
type ElementMode byte

const (
	ElementModeActive ElementMode = iota
	ElementModePassive
	ElementModeDeclarative
)

// Element is a table element segment.
type Element struct {
	Mode       ElementMode
	TableIndex uint32
	Offset     GlobalInit
	ElemType   ValueType
	// FuncIndices holds function indices for funcref element segments built
	// from vec(funcidx), the common encoding emitted by compilers.
	FuncIndices []uint32
}

// DataMode classifies a data segment per the bulk-memory proposal.
type DataMode byte

const (
	DataModeActive DataMode = iota
	DataModePassive
)

// Data is a linear-memory data segment.
type Data struct {
	Mode        DataMode
	MemoryIndex uint32
	Offset      GlobalInit
	Bytes       []byte
}

// Import is a single imported entity. Only modules "glk" and "glulx" are
// legal import module names; anything else is an input error.
type Import struct {
	Module string
	Field  string
	Type   ExternType
	// One of the following is populated depending on Type.
	FuncTypeIndex uint32
	Table         Table
	Memory        Memory
	Global        struct {
		Type    ValueType
		Mutable bool
	}
}

// Export is a single exported entity, referring back into the module's own
// index spaces (imports occupy the low indices, same as the binary format).
type Export struct {
	Name  string
	Type  ExternType
	Index uint32
}

// Module is the whole translation unit.
type Module struct {
	Types   []FunctionType
	Imports []Import
	// Functions lists only module-defined functions; imported functions are
	// addressed by index into Imports and occupy the low indices of the
	// combined function index space (Imports-that-are-funcs first, then
	// Functions), matching the binary format's index space rules.
	Functions []Function
	Tables    []Table
	Memories  []Memory
	Globals   []Global
	Elements  []Element
	Data      []Data
	Exports   []Export
	// Start, if non-nil, names the function index to call at instantiation.
	Start *uint32
}

// ImportedFuncCount returns how many of m.Imports are functions; those
// occupy function indices [0, ImportedFuncCount) before m.Functions.
func (m *Module) ImportedFuncCount() int {
	n := 0
	for _, im := range m.Imports {
		if im.Type == ExternTypeFunc {
			n++
		}
	}
	return n
}

// FuncTypeIndex returns the type index for the function at the given
// position in the combined function index space.
func (m *Module) FuncTypeIndex(funcIndex uint32) uint32 {
	imported := uint32(m.ImportedFuncCount())
	if funcIndex < imported {
		i := 0
		for _, im := range m.Imports {
			if im.Type == ExternTypeFunc {
				if uint32(i) == funcIndex {
					return im.FuncTypeIndex
				}
				i++
			}
		}
		panic("wasmir: unreachable import scan")
	}
	return m.Functions[funcIndex-imported].TypeIndex
}

// IsImportedFunc reports whether funcIndex refers to an imported function.
func (m *Module) IsImportedFunc(funcIndex uint32) bool {
	return funcIndex < uint32(m.ImportedFuncCount())
}

// FindExport looks up an export by name and kind.
func (m *Module) FindExport(name string, t ExternType) (Export, bool) {
	for _, e := range m.Exports {
		if e.Name == name && e.Type == t {
			return e, true
		}
	}
	return Export{}, false
}
