// Package runtimelib generates the Glulx support routines the lowering
// pass calls into for work Glulx has no opcode for: i64 arithmetic/shifts/
// comparisons (Glulx has no native 64-bit opcodes), memory.grow, and 32-bit
// clz/ctz/popcnt. Little-endian WASM loads/stores are byte-swapped inline by
// internal/lower rather than through a routine here. Each routine is an ordinary callable Glulx function
// emitted once into ROM; internal/lower calls into them the same way it
// calls any other function.
//
// i64 values are passed as two 32-bit words (low word, high word), matching
// how internal/lower keeps a WASM i64 as a pair of 4-byte Glulx locals.
// A Glulx function can only `return` one 32-bit result, so
// every routine that produces an i64 returns the low word and writes the
// high word to the fixed RAM scratch cell addressed by Refs.HiResult; the
// caller reads it back immediately after the call, before anything else can
// reuse the cell (single-threaded, non-reentrant by construction).
// DivModU64 additionally needs the remainder alongside the
// quotient, so the HiResult region is reserved as three consecutive words
// (quotient-hi, remainder-lo, remainder-hi), indexed as an array via
// Refs.HiResult's label plus an aload/astore index — internal/translator
// reserves 12 bytes, not 4, for this cell.
package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// Refs names every runtime routine and scratch cell internal/lower may
// call into.
type Refs struct {
	Add64, Sub64, Mul64           *glulxasm.Label
	DivModU64, DivS64, DivU64     *glulxasm.Label
	RemS64, RemU64                *glulxasm.Label
	ShlI64, ShrU64, ShrS64        *glulxasm.Label
	EqzI64, EqI64, LtU64, LtS64   *glulxasm.Label
	LeU64, LeS64                  *glulxasm.Label
	MemoryGrow                    *glulxasm.Label
	Clz32, Ctz32, Popcnt32        *glulxasm.Label
	HiResult                      *glulxasm.Label // RAM scratch word
}

// op is a tiny helper to build a glulxasm.Instruction.
func op(o glulxconst.Opcode, trap bool, operands ...glulxasm.Operand) *glulxasm.Instruction {
	return &glulxasm.Instruction{Op: o, Operands: operands, MayTrap: trap}
}

func local(off uint32) glulxasm.Operand { return glulxasm.LocalOperand(off) }
func imm(v int64) glulxasm.Operand      { return glulxasm.ConstOperand(v) }

// Build emits every runtime routine and returns the label references
// internal/lower and internal/prelude use to call them. The HiResult cell
// is only a label here; the caller reserves its RAM (internal/translator's
// ramRegion emits a 12-byte glulxasm.ZeroFill for it).
// memoryBase is internal/layout's label for the first byte of WASM linear
// memory, needed by memory.grow to report a page count relative to the
// WASM-visible region rather than Glulx's whole extended memory area.
func Build(memoryBase *glulxasm.Label) (items []glulxasm.Item, refs *Refs) {
	refs = &Refs{
		Add64:      glulxasm.NewLabel("rt_add64"),
		Sub64:      glulxasm.NewLabel("rt_sub64"),
		Mul64:      glulxasm.NewLabel("rt_mul64"),
		DivModU64:  glulxasm.NewLabel("rt_divmodu64"),
		DivS64:     glulxasm.NewLabel("rt_divs64"),
		DivU64:     glulxasm.NewLabel("rt_divu64"),
		RemS64:     glulxasm.NewLabel("rt_rems64"),
		RemU64:     glulxasm.NewLabel("rt_remu64"),
		ShlI64:     glulxasm.NewLabel("rt_shl64"),
		ShrU64:     glulxasm.NewLabel("rt_shru64"),
		ShrS64:     glulxasm.NewLabel("rt_shrs64"),
		EqzI64:     glulxasm.NewLabel("rt_eqz64"),
		EqI64:      glulxasm.NewLabel("rt_eq64"),
		LtU64:      glulxasm.NewLabel("rt_ltu64"),
		LtS64:      glulxasm.NewLabel("rt_lts64"),
		LeU64:      glulxasm.NewLabel("rt_leu64"),
		LeS64:      glulxasm.NewLabel("rt_les64"),
		MemoryGrow: glulxasm.NewLabel("rt_memory_grow"),
		Clz32:      glulxasm.NewLabel("rt_clz32"),
		Ctz32:      glulxasm.NewLabel("rt_ctz32"),
		Popcnt32:   glulxasm.NewLabel("rt_popcnt32"),
		HiResult:   glulxasm.NewLabel("rt_hi_result"),
	}

	items = append(items, buildAdd64(refs)...)
	items = append(items, buildSub64(refs)...)
	items = append(items, buildCompare64(refs)...)
	items = append(items, buildShift64(refs)...)
	items = append(items, buildMul64(refs)...)
	items = append(items, buildDivMod64(refs)...)
	items = append(items, buildMemoryGrow(refs, memoryBase)...)
	items = append(items, buildBitops32(refs)...)
	return items, refs
}

// fnHeader starts a new function: a label followed by a locals-format header
// declaring frameWords consecutive 4-byte local slots (covering both the
// function's parameters, which Glulx copies into the low locals at call
// time, and any further working locals the routine needs — every offset the
// routine addresses must fall inside this count).
func fnHeader(entry *glulxasm.Label, frameWords int) []glulxasm.Item {
	items := []glulxasm.Item{&glulxasm.LabelDef{L: entry}}
	header := []byte{byte(glulxconst.CallTypeLocalArgs)}
	if frameWords > 0 {
		header = append(header, 4, byte(frameWords))
	}
	header = append(header, 0, 0)
	items = append(items, &glulxasm.Data{Bytes: header})
	return items
}

func ret(v glulxasm.Operand) *glulxasm.Instruction {
	return op(glulxconst.OpReturn, false, v)
}
