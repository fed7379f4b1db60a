package wasmir

// Opcode enumerates the structured-instruction set this translator accepts:
// WASM 1.0 (MVP) plus the ratified bulk-memory, multi-value, reference-types,
// non-trapping-float-to-int, and sign-extension extensions. The numeric
// values are internal to this package (not the binary format's byte
// encodings) since decoding is an upstream concern.
type Opcode int

const (
	OpUnreachable Opcode = iota
	OpNop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpBrTable
	OpReturn
	OpCall
	OpCallIndirect

	// Reference types.
	OpRefNull
	OpRefIsNull
	OpRefFunc

	// Parametric.
	OpDrop
	OpSelect
	OpSelectTyped

	// Variable access.
	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet

	// Table.
	OpTableGet
	OpTableSet
	OpTableSize
	OpTableGrow
	OpTableFill
	OpTableCopy
	OpTableInit
	OpElemDrop

	// Memory.
	OpI32Load
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Load8S
	OpI32Load8U
	OpI32Load16S
	OpI32Load16U
	OpI64Load8S
	OpI64Load8U
	OpI64Load16S
	OpI64Load16U
	OpI64Load32S
	OpI64Load32U
	OpI32Store
	OpI64Store
	OpF32Store
	OpF64Store
	OpI32Store8
	OpI32Store16
	OpI64Store8
	OpI64Store16
	OpI64Store32
	OpMemorySize
	OpMemoryGrow
	OpMemoryFill
	OpMemoryCopy
	OpMemoryInit
	OpDataDrop

	// Numeric constants.
	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const

	// i32 comparisons.
	OpI32Eqz
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU

	// i64 comparisons.
	OpI64Eqz
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LtU
	OpI64GtS
	OpI64GtU
	OpI64LeS
	OpI64LeU
	OpI64GeS
	OpI64GeU

	// f32/f64 comparisons.
	OpF32Eq
	OpF32Ne
	OpF32Lt
	OpF32Gt
	OpF32Le
	OpF32Ge
	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Gt
	OpF64Le
	OpF64Ge

	// i32 arithmetic.
	OpI32Clz
	OpI32Ctz
	OpI32Popcnt
	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr

	// i64 arithmetic.
	OpI64Clz
	OpI64Ctz
	OpI64Popcnt
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr

	// f32/f64 arithmetic.
	OpF32Abs
	OpF32Neg
	OpF32Ceil
	OpF32Floor
	OpF32Trunc
	OpF32Nearest
	OpF32Sqrt
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Copysign
	OpF64Abs
	OpF64Neg
	OpF64Ceil
	OpF64Floor
	OpF64Trunc
	OpF64Nearest
	OpF64Sqrt
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Copysign

	// Conversions.
	OpI32WrapI64
	OpI32TruncF32S
	OpI32TruncF32U
	OpI32TruncF64S
	OpI32TruncF64U
	OpI64ExtendI32S
	OpI64ExtendI32U
	OpI64TruncF32S
	OpI64TruncF32U
	OpI64TruncF64S
	OpI64TruncF64U
	OpF32ConvertI32S
	OpF32ConvertI32U
	OpF32ConvertI64S
	OpF32ConvertI64U
	OpF32DemoteF64
	OpF64ConvertI32S
	OpF64ConvertI32U
	OpF64ConvertI64S
	OpF64ConvertI64U
	OpF64PromoteF32
	OpI32ReinterpretF32
	OpI64ReinterpretF64
	OpF32ReinterpretI32
	OpF64ReinterpretI64

	// Sign extension.
	OpI32Extend8S
	OpI32Extend16S
	OpI64Extend8S
	OpI64Extend16S
	OpI64Extend32S

	// Non-trapping float-to-int (saturating truncation).
	OpI32TruncSatF32S
	OpI32TruncSatF32U
	OpI32TruncSatF64S
	OpI32TruncSatF64U
	OpI64TruncSatF32S
	OpI64TruncSatF32U
	OpI64TruncSatF64S
	OpI64TruncSatF64U
)

// BlockType describes a structured block's parameter and result arity. Like
// the binary format, a block type is either empty, a single value type, or
// an index into the module's type section for full multi-value signatures.
type BlockType struct {
	// TypeIndex, when >= 0, names a FunctionType in Module.Types.
	TypeIndex int32
	// Inline is used when TypeIndex < 0: -1 means "empty", otherwise Inline
	// holds a single result value type (no params).
	Inline ValueType
}

// Resolve returns the param/result lists this block type denotes.
func (bt BlockType) Resolve(m *Module) (params, results []ValueType) {
	if bt.TypeIndex >= 0 {
		ft := m.Types[bt.TypeIndex]
		return ft.Params, ft.Results
	}
	if bt.Inline == 0 {
		return nil, nil
	}
	return nil, []ValueType{bt.Inline}
}

// EmptyBlockType denotes a block with no params and no results.
var EmptyBlockType = BlockType{TypeIndex: -1, Inline: 0}

// Instr is one structured instruction. Block-shaped opcodes (block/loop/if)
// carry nested instruction lists; br_table carries its target list;
// everything else carries at most a couple of immediates in the typed
// fields below. This flat-ish struct (rather than one type per opcode)
// keeps the IR a single tagged struct, switched on in the lowerer, instead
// of a type hierarchy.
type Instr struct {
	Op Opcode

	// Block/loop/if.
	BlockType BlockType
	Then      []Instr
	Else      []Instr

	// br / br_if / br_table: label indices count outward from the
	// innermost enclosing structured construct, same as the binary format.
	LabelIndex  uint32
	LabelTable  []uint32
	DefaultArg  uint32 // default label for br_table
	HasLabelTable bool

	// local.get/set/tee, global.get/set.
	Index uint32

	// call.
	FuncIndex uint32

	// call_indirect.
	TypeIndex  uint32
	TableIndex uint32

	// memory ops: Align is ignored (alignment hints carry no semantic
	// weight on Glulx), Offset is the static byte offset.
	Align  uint32
	Offset uint32

	// table ops additionally reuse TableIndex/Index above.

	// constants.
	I32Value int32
	I64Value int64
	F32Value float32
	F64Value float64

	// ref.null / select (typed).
	RefType ValueType
}
