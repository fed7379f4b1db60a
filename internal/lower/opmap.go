package lower

import (
	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// i32NativeBinOp/f32NativeBinOp/f64NativeBinOp map WASM opcodes that have a
// single direct Glulx 3-operand (a, b, dest) equivalent, avoiding a
// one-case-per-opcode switch for the common arithmetic/bitwise instructions
// — the same table-driven shape runtimelib's buildWidePairLess family uses
// to avoid per-opcode duplication.
var i32NativeBinOp = map[wasmir.Opcode]glulxconst.Opcode{
	wasmir.OpI32Add:    glulxconst.OpAdd,
	wasmir.OpI32Sub:    glulxconst.OpSub,
	wasmir.OpI32Mul:    glulxconst.OpMul,
	wasmir.OpI32And:    glulxconst.OpBitAnd,
	wasmir.OpI32Or:     glulxconst.OpBitOr,
	wasmir.OpI32Xor:    glulxconst.OpBitXor,
	wasmir.OpI32Shl:    glulxconst.OpShiftL,
	wasmir.OpI32ShrS:   glulxconst.OpSShiftR,
	wasmir.OpI32ShrU:   glulxconst.OpUShiftR,
}

var f32NativeBinOp = map[wasmir.Opcode]glulxconst.Opcode{
	wasmir.OpF32Add: glulxconst.OpFAdd,
	wasmir.OpF32Sub: glulxconst.OpFSub,
	wasmir.OpF32Mul: glulxconst.OpFMul,
	wasmir.OpF32Div: glulxconst.OpFDiv,
}

var f64NativeBinOp = map[wasmir.Opcode]glulxconst.Opcode{
	wasmir.OpF64Add: glulxconst.OpDAdd,
	wasmir.OpF64Sub: glulxconst.OpDSub,
	wasmir.OpF64Mul: glulxconst.OpDMul,
	wasmir.OpF64Div: glulxconst.OpDDiv,
}

// i32CompareJump maps a WASM i32 comparison to the Glulx conditional-branch
// opcode that jumps when the comparison holds.
var i32CompareJump = map[wasmir.Opcode]glulxconst.Opcode{
	wasmir.OpI32Eq:  glulxconst.OpJeq,
	wasmir.OpI32Ne:  glulxconst.OpJne,
	wasmir.OpI32LtS: glulxconst.OpJlt,
	wasmir.OpI32LtU: glulxconst.OpJltu,
	wasmir.OpI32GtS: glulxconst.OpJgt,
	wasmir.OpI32GtU: glulxconst.OpJgtu,
	wasmir.OpI32LeS: glulxconst.OpJle,
	wasmir.OpI32LeU: glulxconst.OpJleu,
	wasmir.OpI32GeS: glulxconst.OpJge,
	wasmir.OpI32GeU: glulxconst.OpJgeu,
}

var f32CompareJump = map[wasmir.Opcode]glulxconst.Opcode{
	wasmir.OpF32Eq: glulxconst.OpJfeq,
	wasmir.OpF32Ne: glulxconst.OpJfne,
	wasmir.OpF32Lt: glulxconst.OpJflt,
	wasmir.OpF32Gt: glulxconst.OpJfgt,
	wasmir.OpF32Le: glulxconst.OpJfle,
	wasmir.OpF32Ge: glulxconst.OpJfge,
}

var f64CompareJump = map[wasmir.Opcode]glulxconst.Opcode{
	wasmir.OpF64Eq: glulxconst.OpDJeq,
	wasmir.OpF64Ne: glulxconst.OpDJne,
	wasmir.OpF64Lt: glulxconst.OpDJlt,
	wasmir.OpF64Gt: glulxconst.OpDJgt,
	wasmir.OpF64Le: glulxconst.OpDJle,
	wasmir.OpF64Ge: glulxconst.OpDJge,
}

