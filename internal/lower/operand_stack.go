package lower

import "github.com/glulxfic/wasm2glulx/internal/glulxasm"

// operandKind classifies how an abstract-stack entry is currently
// available: a compile-time constant, a value still sitting in its WASM
// local, or a value already pushed onto the real Glulx stack.
type operandKind byte

const (
	// operandConst is an immediate value not yet materialized anywhere.
	operandConst operandKind = iota
	// operandLocal names a WASM local directly (local.get pushes this,
	// not a real push, so the very next consuming instruction can read
	// the local operand directly — central fusion trick).
	operandLocal
	// operandPushed means the value has been committed to the real Glulx
	// stack and must be consumed in LIFO order.
	operandPushed
)

type widthClass byte

const (
	width32 widthClass = iota
	width64            // occupies two stack slots / two locals, low word first
)

// operand is one abstract value-stack entry.
type operand struct {
	kind  operandKind
	width widthClass

	// operandConst:
	constLo int64 // low/only word
	constHi int64 // high word, width64 only

	// operandLocal:
	localOffset uint32
}

func constOperand32(v int64) operand { return operand{kind: operandConst, width: width32, constLo: v} }
func constOperand64(lo, hi int64) operand {
	return operand{kind: operandConst, width: width64, constLo: lo, constHi: hi}
}
func localOperand32(off uint32) operand {
	return operand{kind: operandLocal, width: width32, localOffset: off}
}
func localOperand64(off uint32) operand {
	return operand{kind: operandLocal, width: width64, localOffset: off}
}
func pushedOperand32() operand { return operand{kind: operandPushed, width: width32} }
func pushedOperand64() operand { return operand{kind: operandPushed, width: width64} }

// asGlulxOperand converts an abstract entry that is NOT operandPushed into
// a concrete glulxasm.Operand usable directly as an instruction's source.
// Pushed entries must go through commit/pop instead.
func (o operand) asGlulxOperand() glulxasm.Operand {
	switch o.kind {
	case operandConst:
		return glulxasm.ConstOperand(o.constLo)
	case operandLocal:
		return glulxasm.LocalOperand(o.localOffset)
	default:
		panic("lower: asGlulxOperand called on a pushed operand")
	}
}

func (o operand) hiGlulxOperand() glulxasm.Operand {
	switch o.kind {
	case operandConst:
		return glulxasm.ConstOperand(o.constHi)
	case operandLocal:
		return glulxasm.LocalOperand(o.localOffset + 4)
	default:
		panic("lower: hiGlulxOperand called on a pushed operand")
	}
}

// stack is the abstract value stack the lowerer simulates while walking a
// function body, mirroring WASM's value stack one-for-one.
type stack struct {
	entries []operand
}

func (s *stack) push(o operand)  { s.entries = append(s.entries, o) }
func (s *stack) height() int     { return len(s.entries) }
func (s *stack) peek() operand   { return s.entries[len(s.entries)-1] }
func (s *stack) peekAt(depthFromTop int) operand {
	return s.entries[len(s.entries)-1-depthFromTop]
}

func (s *stack) pop() operand {
	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return top
}

// truncate drops entries down to the given height, used when a branch
// discards values below the ones it carries to its target (br/br_if/
// br_table's implicit stack-height adjustment).
func (s *stack) truncate(height int) {
	s.entries = s.entries[:height]
}

func (s *stack) snapshot() []operand {
	cp := make([]operand, len(s.entries))
	copy(cp, s.entries)
	return cp
}

func (s *stack) restore(snap []operand) {
	s.entries = append(s.entries[:0], snap...)
}
