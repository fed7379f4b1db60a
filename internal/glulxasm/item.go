package glulxasm

import "github.com/glulxfic/wasm2glulx/internal/glulxconst"

// Item is one entry in the ordered list the Assembler lays out: an
// instruction, a label definition, data, an alignment directive, or a
// zero-fill reservation.
type Item interface {
	isItem()
}

// Instruction is one Glulx opcode plus its operand list, in the order the
// real instruction encoding expects (loads first, then the store/"result"
// operand last, matching Glulx's own convention).
type Instruction struct {
	Op       glulxconst.Opcode
	Operands []Operand
	// MayTrap marks instructions that can raise a WASM trap (debugtrap,
	// div/mod, memory access, call_indirect checks). The peephole
	// optimizer (internal/peephole) must not reorder MayTrap instructions
	// relative to one another or relative to stores/calls.
	MayTrap bool
}

func (*Instruction) isItem() {}

// LabelDef declares a label at the current position in the item stream.
type LabelDef struct {
	L *Label
}

func (*LabelDef) isItem() {}

// Data emits a fixed byte blob (constant pool entries, string literals,
// the funcref table, Glk selector tables).
type Data struct {
	Bytes []byte
}

func (*Data) isItem() {}

// DataWord emits a single 4-byte big-endian word whose value may itself be
// label-relative (e.g. a function pointer table entry storing a code
// address).
type DataWord struct {
	Value Operand
}

func (*DataWord) isItem() {}

// Align pads with zero bytes until the next item starts at a multiple of
// Boundary bytes.
type Align struct {
	Boundary int
}

func (*Align) isItem() {}

// ZeroFill reserves N bytes of implicit zero space without writing them to
// the output file. Per the Glulx header fields (ENDMEM), Glulx
// interpreters zero-initialize all memory between EXTSTART and ENDMEM at
// load time, so RAM regions whose initial contents this translator always
// sets up at runtime (the init prelude applies data/element segments and
// global initializers itself) never need to be present in the file.
// Once the first ZeroFill appears in the item stream, every later item that
// occupies space must also be a ZeroFill (label definitions and Align items
// may still follow), since everything after it is implicitly zero too — the
// Assembler enforces this.
type ZeroFill struct {
	N int
}

func (*ZeroFill) isItem() {}
