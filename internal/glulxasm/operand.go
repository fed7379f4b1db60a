package glulxasm

// OperandMode is a Glulx operand addressing mode. Each mode has an
// intrinsic size class; label-relative modes are always encoded at their
// widest size class because the final address is not known until the
// assembler resolves labels.
type OperandMode byte

const (
	// ModeConstZero is the implicit "0" operand, taking no extra bytes.
	ModeConstZero OperandMode = iota
	ModeConst8
	ModeConst16
	ModeConst32
	// ModeAddr is a direct memory address (main memory, not a local).
	ModeAddr8
	ModeAddr16
	ModeAddr32
	// ModeLocal is an offset from the current call frame's locals base.
	ModeLocal8
	ModeLocal16
	ModeLocal32
	// ModeStackPush/ModeStackPop read/write the Glulx value stack; they
	// carry no extra bytes, matching the "stack push(push)/pop(pop)"
	// addressing modes which must be consumed in LIFO order once real
	// (see internal/lower's operand-descriptor discussion).
	ModeStackPush
	ModeStackPop
)

// ValueSize returns how many bytes beyond the mode tag this operand's value
// occupies.
func (m OperandMode) ValueSize() int {
	switch m {
	case ModeConstZero, ModeStackPush, ModeStackPop:
		return 0
	case ModeConst8, ModeAddr8, ModeLocal8:
		return 1
	case ModeConst16, ModeAddr16, ModeLocal16:
		return 2
	default:
		return 4
	}
}

// Operand is one instruction argument. When Label is non-nil, Const is
// added to the label's resolved offset to produce the final value (an
// "addend"), used both for intra-function branch targets and for symbolic
// addresses into the RAM regions the layout planner declares (memory base,
// globals base, table base, Glk area base) — see internal/layout. This is
// how the assembler breaks the chicken-and-egg problem of needing RAM
// addresses, which depend on total ROM size, while ROM size depends on
// code which references those same addresses: everything is symbolic until
// Assemble resolves the whole item stream in one pass.
type Operand struct {
	Mode  OperandMode
	Const int64
	Label *Label
	// Relative marks a branch-target operand whose final value is the
	// label's offset minus the address immediately following this
	// operand, plus 2 (Glulx's native PC-relative branch encoding: "execution
	// continues at PC+offset-2", per the Glulx specification §1.4), as
	// opposed to an absolute address. See "Every emitted
	// branch's target label ... resolves to a byte offset whose distance
	// fits the chosen branch operand size" invariant.
	Relative bool
}

// ConstOperand builds the narrowest constant operand that represents v.
func ConstOperand(v int64) Operand {
	switch {
	case v == 0:
		return Operand{Mode: ModeConstZero}
	case v >= -128 && v <= 127:
		return Operand{Mode: ModeConst8, Const: v}
	case v >= -32768 && v <= 32767:
		return Operand{Mode: ModeConst16, Const: v}
	default:
		return Operand{Mode: ModeConst32, Const: v}
	}
}

// LocalOperand builds the narrowest local-frame operand for a given frame
// offset.
func LocalOperand(offset uint32) Operand {
	switch {
	case offset <= 0xff:
		return Operand{Mode: ModeLocal8, Const: int64(offset)}
	case offset <= 0xffff:
		return Operand{Mode: ModeLocal16, Const: int64(offset)}
	default:
		return Operand{Mode: ModeLocal32, Const: int64(offset)}
	}
}

// AddrOperand builds a direct memory-address operand at a fixed, already
// known address (used rarely — most memory operands in this translator are
// LabelOperand since addresses are only fixed after layout; this helper
// exists for completeness and tests).
func AddrOperand(addr uint32) Operand {
	switch {
	case addr <= 0xff:
		return Operand{Mode: ModeAddr8, Const: int64(addr)}
	case addr <= 0xffff:
		return Operand{Mode: ModeAddr16, Const: int64(addr)}
	default:
		return Operand{Mode: ModeAddr32, Const: int64(addr)}
	}
}

// LabelOperand builds a memory-address operand relative to a label plus an
// addend, always at the widest size class since the label isn't resolved
// yet.
func LabelOperand(l *Label, addend int64) Operand {
	return Operand{Mode: ModeAddr32, Const: addend, Label: l}
}

// BranchOperand builds a PC-relative branch-target operand (see
// Operand.Relative).
func BranchOperand(l *Label) Operand {
	return Operand{Mode: ModeConst32, Label: l, Relative: true}
}

// LabelConstOperand builds a constant operand whose value is a label's
// resolved offset plus an addend (used for e.g. taking a function's code
// address as a value, as opposed to branching to it).
func LabelConstOperand(l *Label, addend int64) Operand {
	return Operand{Mode: ModeConst32, Const: addend, Label: l}
}

var (
	// PushOperand marks a value pushed to / read from the Glulx stack.
	PushOperand = Operand{Mode: ModeStackPush}
	PopOperand  = Operand{Mode: ModeStackPop}
)

// resolvedValue computes the final integer value of the operand, given that
// all labels have been resolved. pcAfter is the byte offset immediately
// following this operand's encoding, used only when o.Relative is set.
func (o Operand) resolvedValue(pcAfter int64) int64 {
	if o.Label == nil {
		return o.Const
	}
	base := int64(o.Label.Offset())
	if o.Relative {
		return base + o.Const - pcAfter + 2
	}
	return base + o.Const
}
