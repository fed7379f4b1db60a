// Package peephole implements an operand-fusion optimizer: it runs over a
// function's flat glulxasm.Item stream after lowering and
// collapses push/pop pairs into direct-operand instructions wherever the
// push's value has exactly one later consumer and nothing between the two
// touches the stack.
package peephole

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

const copyOp = glulxconst.OpCopy

// pushSite records a still-unmatched stack push: the index of the
// instruction that produced it within items, so Run can later either
// delete that instruction (relay fusion) or rewrite its destination
// operand in place (sink fusion).
type pushSite struct {
	instrIdx int
}

// Run rewrites items in place (returning the possibly-shorter result) by
// fusing the two canonical push/pop shapes:
//
//  1. relay source: `copy L push` feeding a later source-operand pop —
//     substitute L directly and delete the copy.
//  2. relay sink: a real computation's `push` destination feeding a later
//     `copy pop L` — rewrite the computation's destination to L directly
//     and delete the copy.
//
// Chained cases (`X push; Y push; op pop pop push; copy pop Z`) fall out of
// applying both shapes repeatedly as the pending-push stack unwinds, one
// push/pop pair at a time, with no special-casing needed for depth.
//
// Any non-Instruction item (a label definition, data, alignment, or
// zero-fill) clears the pending-push stack: a label is a potential branch
// target, so a push reaching it can be observed by a path this function
// never walks, and nothing else interleaves with code inside one function
// body in the first place.
func Run(items []glulxasm.Item) []glulxasm.Item {
	deleted := make([]bool, len(items))
	var pending []pushSite

	for i, it := range items {
		instr, ok := it.(*glulxasm.Instruction)
		if !ok {
			pending = pending[:0]
			continue
		}

		for k := range instr.Operands {
			o := &instr.Operands[k]
			if o.Mode != glulxasm.ModeStackPop {
				continue
			}
			if len(pending) == 0 {
				continue
			}
			site := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			if deleted[site.instrIdx] {
				continue
			}
			producer := items[site.instrIdx].(*glulxasm.Instruction)
			fuseOne(items, deleted, producer, site.instrIdx, instr, o, i)
		}

		// call and glk pop their arguments without naming them as pop
		// operands, so no earlier push may be fused across them.
		if instr.Op == glulxconst.OpCall || instr.Op == glulxconst.OpGlk {
			pending = pending[:0]
		}

		if n := len(instr.Operands); n > 0 && instr.Operands[n-1].Mode == glulxasm.ModeStackPush && !deleted[i] {
			pending = append(pending, pushSite{instrIdx: i})
		}
	}

	out := items[:0]
	for i, it := range items {
		if !deleted[i] {
			out = append(out, it)
		}
	}
	return out
}

// fuseOne applies whichever of the two fusion shapes applies to the
// (producer, consumerOperand) pair; if neither shape matches, the push and
// pop are left as real stack traffic.
func fuseOne(items []glulxasm.Item, deleted []bool, producer *glulxasm.Instruction, producerIdx int, consumer *glulxasm.Instruction, consumerOperand *glulxasm.Operand, consumerIdx int) {
	if isRelay(producer) {
		*consumerOperand = producer.Operands[0]
		deleted[producerIdx] = true
		return
	}
	if isSink(consumer) && consumerOperand == &consumer.Operands[0] {
		n := len(producer.Operands)
		producer.Operands[n-1] = consumer.Operands[1]
		deleted[consumerIdx] = true
	}
}

// isRelay reports whether instr's sole purpose is shuttling one value onto
// the stack: `copy src push`.
func isRelay(instr *glulxasm.Instruction) bool {
	return instr.Op == copyOp && len(instr.Operands) == 2 &&
		instr.Operands[1].Mode == glulxasm.ModeStackPush &&
		instr.Operands[0].Mode != glulxasm.ModeStackPop
}

// isSink reports whether instr's sole purpose is relaying a popped value
// into a destination: `copy pop dest`.
func isSink(instr *glulxasm.Instruction) bool {
	return instr.Op == copyOp && len(instr.Operands) == 2 &&
		instr.Operands[0].Mode == glulxasm.ModeStackPop
}
