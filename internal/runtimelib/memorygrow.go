package runtimelib

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// buildMemoryGrow implements WASM's memory.grow: given a delta in 64KiB
// pages, attempt to extend the linear memory region and return the previous
// size in pages, or -1 if the request cannot be satisfied. Glulx's
// `setmemsize` opcode grows or shrinks the whole VM address space up to
// ENDMEM (the heap-style region above static ROM/RAM); WASM linear memory is
// laid out as that entire growable region (everything else — globals,
// tables, the Glk area, this package's own scratch cells — is fixed-size
// below memoryBase), so the WASM-visible size is just getmemsize() minus
// memoryBase.
//
// Params: 0=delta_pages. Locals: 4=old_bytes 8=new_bytes 12=ok.
func buildMemoryGrow(refs *Refs, memoryBase *glulxasm.Label) []glulxasm.Item {
	L := refs.MemoryGrow
	fail := glulxasm.NewLabel("memgrow_fail")
	base := glulxasm.LabelConstOperand(memoryBase, 0)

	items := fnHeader(L, 4)
	items = append(items,
		op(glulxconst.OpGetmemsize, false, local(4)),
		op(glulxconst.OpMul, false, local(0), imm(WasmPageSize), local(8)),
		op(glulxconst.OpAdd, false, local(4), local(8), local(8)),
		op(glulxconst.OpSetmemsize, false, local(8), local(12)),
		op(glulxconst.OpJnz, false, local(12), glulxasm.BranchOperand(fail)),
		op(glulxconst.OpSub, false, local(4), base, local(4)),
		op(glulxconst.OpDiv, false, local(4), imm(WasmPageSize), local(4)),
		ret(local(4)),
		&glulxasm.LabelDef{L: fail},
		ret(imm(-1)),
	)
	return items
}

// WasmPageSize mirrors wasmir.WasmPageSize; duplicated as an untyped
// constant here to avoid an import cycle (wasmir has no reason to depend on
// runtimelib, and importing wasmir here for one constant isn't worth it).
const WasmPageSize = 65536
