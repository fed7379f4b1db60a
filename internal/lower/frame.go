package lower

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// frame describes one function's Glulx locals layout: parameters occupy the
// first slots in declared order, then the function's own locals follow.
// i64/f64 values occupy two consecutive 4-byte local slots (low word
// first, matching how internal/runtimelib's routines pass i64 words);
// every other WASM value type occupies one 4-byte slot.
type frame struct {
	// slotOffset[i] is the byte offset (from the Glulx frame pointer) of
	// WASM local index i.
	slotOffset []uint32
	// slotWidth[i] is 4 or 8, the number of bytes WASM local i occupies.
	slotWidth []uint32
	size      uint32
	// localsFormat is the Glulx function-header "locals-format" list: runs
	// of (width-byte, count-byte) pairs terminated by (0,0), per the Glulx
	// calling convention.
	localsFormat []byte

	// scratchBase is the frame offset of a fixed pool of 4-byte working
	// slots appended after the function's own WASM locals. Glulx has no
	// general-purpose registers to spill to, so every multi-step
	// expression the lowerer needs to stage through memory (an effective
	// address under assembly, a multi-word call argument list, a
	// byte-by-byte load/store reassembly) borrows one of these instead of
	// inventing a fresh local per use.
	scratchBase  uint32
	scratchCount uint32
}

// numScratchWords is the fixed scratch pool size every function frame
// reserves. It is sized generously (enough for two staged i64 call
// arguments plus a couple of working temporaries) rather than computed
// per-function, matching how a register-starved target's compiler reserves
// a fixed spill area instead of doing per-function liveness analysis.
const numScratchWords = 24

// buildFrame lays out a function's parameters followed by its declared
// locals, then the fixed scratch pool.
func buildFrame(paramTypes []wasmir.ValueType, locals []wasmir.LocalGroup) *frame {
	f := &frame{}

	// Every function this translator emits uses the "local arguments"
	// call type (0xC1): the interpreter copies the caller's pushed
	// argument words straight into the callee's first locals, matching
	// how internal/lower's emitCall/emitReturn stage arguments (push in
	// order, then call) and never pop them back out inside the callee.
	f.localsFormat = append(f.localsFormat, byte(glulxconst.CallTypeLocalArgs))

	addRun := func(width uint32, count int) {
		if width == 8 {
			// An i64/f64 local is two 4-byte Glulx locals.
			width, count = 4, count*2
		}
		for count > 0 {
			n := count
			if n > 255 {
				n = 255
			}
			f.localsFormat = append(f.localsFormat, byte(width), byte(n))
			count -= n
		}
	}

	// Group consecutive parameters of the same Glulx width into runs, the
	// same run-length shape WASM itself uses for declared locals.
	i := 0
	for i < len(paramTypes) {
		width := uint32(paramTypes[i].Size())
		j := i
		for j < len(paramTypes) && uint32(paramTypes[j].Size()) == width {
			f.slotOffset = append(f.slotOffset, f.size)
			f.slotWidth = append(f.slotWidth, width)
			f.size += width
			j++
		}
		addRun(width, j-i)
		i = j
	}

	for _, g := range locals {
		width := uint32(g.Type.Size())
		for k := 0; k < g.Count; k++ {
			f.slotOffset = append(f.slotOffset, f.size)
			f.slotWidth = append(f.slotWidth, width)
			f.size += width
		}
		addRun(width, g.Count)
	}

	f.scratchBase = f.size
	f.scratchCount = numScratchWords
	addRun(4, int(numScratchWords))
	f.size += numScratchWords * 4

	f.localsFormat = append(f.localsFormat, 0, 0)
	return f
}

// offset returns the frame offset of WASM local index idx.
func (f *frame) offset(idx uint32) uint32 {
	return f.slotOffset[idx]
}

func (f *frame) width(idx uint32) uint32 {
	return f.slotWidth[idx]
}

// scratch returns the frame offset of scratch slot i.
func (f *frame) scratch(i uint32) uint32 {
	return f.scratchBase + i*4
}
