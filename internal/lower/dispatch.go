package lower

import (
	"fmt"

	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// lowerInstr routes a single tree-shaped IR instruction to the helper that
// knows how to lower it. Structured control flow (block/loop/if) recurses
// into lowerBody via its own case below rather than flattening to an
// End-terminated stream first, matching how wasmir hands instructions to
// this package.
func (c *fnCtx) lowerInstr(instr *wasmir.Instr) error {
	switch instr.Op {
	case wasmir.OpUnreachable:
		c.lowerUnreachable()
	case wasmir.OpNop:
		// no-op
	case wasmir.OpBlock:
		return c.lowerBlock(instr)
	case wasmir.OpLoop:
		return c.lowerLoop(instr)
	case wasmir.OpIf:
		return c.lowerIf(instr)
	case wasmir.OpBr:
		c.lowerBr(instr)
	case wasmir.OpBrIf:
		c.lowerBrIf(instr)
	case wasmir.OpBrTable:
		c.lowerBrTable(instr)
	case wasmir.OpReturn:
		c.lowerReturn()
	case wasmir.OpCall:
		c.lowerCall(instr)
	case wasmir.OpCallIndirect:
		c.lowerCallIndirect(instr)

	case wasmir.OpRefNull:
		c.lowerRefNull(instr.RefType)
	case wasmir.OpRefIsNull:
		c.lowerRefIsNull()
	case wasmir.OpRefFunc:
		c.lowerRefFunc(instr.FuncIndex)

	case wasmir.OpDrop:
		c.lowerDrop()
	case wasmir.OpSelect, wasmir.OpSelectTyped:
		c.lowerSelect()

	case wasmir.OpLocalGet:
		c.lowerLocalGet(instr.Index)
	case wasmir.OpLocalSet:
		c.lowerLocalSet(instr.Index)
	case wasmir.OpLocalTee:
		c.lowerLocalTee(instr.Index)
	case wasmir.OpGlobalGet:
		c.lowerGlobalGet(instr.Index)
	case wasmir.OpGlobalSet:
		c.lowerGlobalSet(instr.Index)

	case wasmir.OpTableGet:
		c.lowerTableGet(instr)
	case wasmir.OpTableSet:
		c.lowerTableSet(instr)
	case wasmir.OpTableSize:
		c.lowerTableSize(instr)
	case wasmir.OpTableGrow:
		c.lowerTableGrow(instr)
	case wasmir.OpTableFill:
		c.lowerTableFill(instr)
	case wasmir.OpTableCopy:
		c.lowerTableCopy(instr)
	case wasmir.OpTableInit:
		c.lowerTableInit(instr)
	case wasmir.OpElemDrop:
		c.lowerElemDrop(instr)

	case wasmir.OpI32Load, wasmir.OpI64Load, wasmir.OpF32Load, wasmir.OpF64Load,
		wasmir.OpI32Load8S, wasmir.OpI32Load8U, wasmir.OpI32Load16S, wasmir.OpI32Load16U,
		wasmir.OpI64Load8S, wasmir.OpI64Load8U, wasmir.OpI64Load16S, wasmir.OpI64Load16U,
		wasmir.OpI64Load32S, wasmir.OpI64Load32U:
		c.lowerLoad(instr)
	case wasmir.OpI32Store, wasmir.OpI64Store, wasmir.OpF32Store, wasmir.OpF64Store,
		wasmir.OpI32Store8, wasmir.OpI32Store16, wasmir.OpI64Store8, wasmir.OpI64Store16, wasmir.OpI64Store32:
		c.lowerStore(instr)
	case wasmir.OpMemorySize:
		c.lowerMemorySize()
	case wasmir.OpMemoryGrow:
		c.lowerMemoryGrow()
	case wasmir.OpMemoryFill:
		c.lowerMemoryFill()
	case wasmir.OpMemoryCopy:
		c.lowerMemoryCopy()
	case wasmir.OpMemoryInit:
		c.lowerMemoryInit(instr)
	case wasmir.OpDataDrop:
		c.lowerDataDrop(instr)

	case wasmir.OpI32Const, wasmir.OpI64Const, wasmir.OpF32Const, wasmir.OpF64Const:
		c.lowerConst(instr)

	case wasmir.OpI32Eqz, wasmir.OpI32Clz, wasmir.OpI32Ctz, wasmir.OpI32Popcnt,
		wasmir.OpI32Extend8S, wasmir.OpI32Extend16S:
		return c.lowerI32Unary(instr.Op)
	case wasmir.OpI32Eq, wasmir.OpI32Ne,
		wasmir.OpI32LtS, wasmir.OpI32LtU, wasmir.OpI32GtS, wasmir.OpI32GtU,
		wasmir.OpI32LeS, wasmir.OpI32LeU, wasmir.OpI32GeS, wasmir.OpI32GeU:
		return c.lowerI32Compare(instr.Op)
	case wasmir.OpI32Add, wasmir.OpI32Sub, wasmir.OpI32Mul,
		wasmir.OpI32DivS, wasmir.OpI32DivU, wasmir.OpI32RemS, wasmir.OpI32RemU,
		wasmir.OpI32And, wasmir.OpI32Or, wasmir.OpI32Xor,
		wasmir.OpI32Shl, wasmir.OpI32ShrS, wasmir.OpI32ShrU,
		wasmir.OpI32Rotl, wasmir.OpI32Rotr:
		return c.lowerI32Binop(instr.Op)

	case wasmir.OpI64Eqz, wasmir.OpI64Clz, wasmir.OpI64Ctz, wasmir.OpI64Popcnt,
		wasmir.OpI64Extend8S, wasmir.OpI64Extend16S, wasmir.OpI64Extend32S:
		return c.lowerI64Unary(instr.Op)
	case wasmir.OpI64Eq, wasmir.OpI64Ne,
		wasmir.OpI64LtS, wasmir.OpI64LtU, wasmir.OpI64GtS, wasmir.OpI64GtU,
		wasmir.OpI64LeS, wasmir.OpI64LeU, wasmir.OpI64GeS, wasmir.OpI64GeU:
		return c.lowerI64Compare(instr.Op)
	case wasmir.OpI64Add, wasmir.OpI64Sub, wasmir.OpI64Mul,
		wasmir.OpI64DivS, wasmir.OpI64DivU, wasmir.OpI64RemS, wasmir.OpI64RemU,
		wasmir.OpI64And, wasmir.OpI64Or, wasmir.OpI64Xor,
		wasmir.OpI64Shl, wasmir.OpI64ShrS, wasmir.OpI64ShrU,
		wasmir.OpI64Rotl, wasmir.OpI64Rotr:
		return c.lowerI64Binop(instr.Op)

	case wasmir.OpF32Abs, wasmir.OpF32Neg, wasmir.OpF32Ceil, wasmir.OpF32Floor,
		wasmir.OpF32Trunc, wasmir.OpF32Nearest, wasmir.OpF32Sqrt:
		return c.lowerF32Unary(instr.Op)
	case wasmir.OpF32Eq, wasmir.OpF32Ne, wasmir.OpF32Lt, wasmir.OpF32Gt, wasmir.OpF32Le, wasmir.OpF32Ge:
		return c.lowerF32Compare(instr.Op)
	case wasmir.OpF32Add, wasmir.OpF32Sub, wasmir.OpF32Mul, wasmir.OpF32Div,
		wasmir.OpF32Min, wasmir.OpF32Max, wasmir.OpF32Copysign:
		return c.lowerF32Binop(instr.Op)

	case wasmir.OpF64Abs, wasmir.OpF64Neg, wasmir.OpF64Ceil, wasmir.OpF64Floor,
		wasmir.OpF64Trunc, wasmir.OpF64Nearest, wasmir.OpF64Sqrt:
		return c.lowerF64Unary(instr.Op)
	case wasmir.OpF64Eq, wasmir.OpF64Ne, wasmir.OpF64Lt, wasmir.OpF64Gt, wasmir.OpF64Le, wasmir.OpF64Ge:
		return c.lowerF64Compare(instr.Op)
	case wasmir.OpF64Add, wasmir.OpF64Sub, wasmir.OpF64Mul, wasmir.OpF64Div,
		wasmir.OpF64Min, wasmir.OpF64Max, wasmir.OpF64Copysign:
		return c.lowerF64Binop(instr.Op)

	case wasmir.OpI32WrapI64,
		wasmir.OpI64ExtendI32S, wasmir.OpI64ExtendI32U,
		wasmir.OpI32TruncF32S, wasmir.OpI32TruncF32U, wasmir.OpI32TruncF64S, wasmir.OpI32TruncF64U,
		wasmir.OpI64TruncF32S, wasmir.OpI64TruncF32U, wasmir.OpI64TruncF64S, wasmir.OpI64TruncF64U,
		wasmir.OpI32TruncSatF32S, wasmir.OpI32TruncSatF32U, wasmir.OpI32TruncSatF64S, wasmir.OpI32TruncSatF64U,
		wasmir.OpI64TruncSatF32S, wasmir.OpI64TruncSatF32U, wasmir.OpI64TruncSatF64S, wasmir.OpI64TruncSatF64U,
		wasmir.OpF32ConvertI32S, wasmir.OpF32ConvertI32U, wasmir.OpF32ConvertI64S, wasmir.OpF32ConvertI64U,
		wasmir.OpF64ConvertI32S, wasmir.OpF64ConvertI32U, wasmir.OpF64ConvertI64S, wasmir.OpF64ConvertI64U,
		wasmir.OpF32DemoteF64, wasmir.OpF64PromoteF32,
		wasmir.OpI32ReinterpretF32, wasmir.OpI64ReinterpretF64,
		wasmir.OpF32ReinterpretI32, wasmir.OpF64ReinterpretI64:
		return c.lowerConversion(instr.Op)

	default:
		return fmt.Errorf("lower: unhandled instruction opcode %v", instr.Op)
	}
	return nil
}
