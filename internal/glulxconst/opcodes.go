// Package glulxconst tabulates Glulx virtual machine constants: opcode
// numbers, operand-addressing-mode tags, trap codes, and header field
// layout. This is pure domain data (the Glulx 3.1.3 specification), kept
// as flat constant tables the same way ISA opcode data gets tabulated for
// any other target architecture.
package glulxconst

// Opcode is a Glulx instruction opcode number.
type Opcode uint32

// Opcode numbers, per the Glulx specification §1.4 "List of opcodes".
// Only instructions this translator emits are named; Glulx defines more.
const (
	OpNop       Opcode = 0x00
	OpAdd       Opcode = 0x10
	OpSub       Opcode = 0x11
	OpMul       Opcode = 0x12
	OpDiv       Opcode = 0x13
	OpMod       Opcode = 0x14
	OpNeg       Opcode = 0x15
	OpBitAnd    Opcode = 0x18
	OpBitOr     Opcode = 0x19
	OpBitXor    Opcode = 0x1A
	OpBitNot    Opcode = 0x1B
	OpShiftL    Opcode = 0x1C
	OpSShiftR   Opcode = 0x1D
	OpUShiftR   Opcode = 0x1E

	OpJump     Opcode = 0x20
	OpJz       Opcode = 0x22
	OpJnz      Opcode = 0x23
	OpJeq      Opcode = 0x24
	OpJne      Opcode = 0x25
	OpJlt      Opcode = 0x26
	OpJge      Opcode = 0x27
	OpJgt      Opcode = 0x28
	OpJle      Opcode = 0x29
	OpJltu     Opcode = 0x2A
	OpJgeu     Opcode = 0x2B
	OpJgtu     Opcode = 0x2C
	OpJleu     Opcode = 0x2D

	OpCall      Opcode = 0x30
	OpReturn    Opcode = 0x31
	OpCatch     Opcode = 0x32
	OpThrow     Opcode = 0x33
	OpTailCall  Opcode = 0x34

	OpCopy    Opcode = 0x40
	OpCopys   Opcode = 0x41
	OpCopyb   Opcode = 0x42
	OpSexs    Opcode = 0x44
	OpSexb    Opcode = 0x45

	OpAload   Opcode = 0x48
	OpAloads  Opcode = 0x49
	OpAloadb  Opcode = 0x4A
	OpAloadbit Opcode = 0x4B
	OpAstore  Opcode = 0x4C
	OpAstores Opcode = 0x4D
	OpAstoreb Opcode = 0x4E
	OpAstorebit Opcode = 0x4F

	OpStkcount Opcode = 0x50
	OpStkpeek  Opcode = 0x51
	OpStkswap  Opcode = 0x52
	OpStkcopy  Opcode = 0x53
	OpStkroll  Opcode = 0x54

	OpStreamchar Opcode = 0x70
	OpStreamnum  Opcode = 0x71
	OpStreamstr  Opcode = 0x72
	OpStreamunichar Opcode = 0x73

	OpGestalt     Opcode = 0x100
	OpDebugtrap   Opcode = 0x101
	OpGetmemsize  Opcode = 0x102
	OpSetmemsize  Opcode = 0x103
	OpJumpabs     Opcode = 0x104

	OpRandom    Opcode = 0x110
	OpSetrandom Opcode = 0x111
	OpQuit      Opcode = 0x120
	OpVerify    Opcode = 0x121
	OpRestart   Opcode = 0x122
	OpSave      Opcode = 0x123
	OpRestore   Opcode = 0x124
	OpSaveundo  Opcode = 0x125
	OpRestoreundo Opcode = 0x126
	OpProtect   Opcode = 0x127
	OpHasundo     Opcode = 0x128
	OpDiscardundo Opcode = 0x129

	OpGlk       Opcode = 0x130
	OpSetiosys  Opcode = 0x149
	OpGetiosys  Opcode = 0x148

	OpLinearSearch  Opcode = 0x150
	OpBinarySearch  Opcode = 0x151
	OpLinkedSearch  Opcode = 0x152

	OpCallf  Opcode = 0x160
	OpCallfi Opcode = 0x161
	OpCallfii Opcode = 0x162
	OpCallfiii Opcode = 0x163

	OpMzero Opcode = 0x170
	OpMcopy Opcode = 0x171
	OpMalloc Opcode = 0x178
	OpMfree  Opcode = 0x179

	OpAccelfunc Opcode = 0x180
	OpAccelparam Opcode = 0x181

	OpNumToF   Opcode = 0x190
	OpFtoNumZ  Opcode = 0x191
	OpFtoNumN  Opcode = 0x192
	OpCeil     Opcode = 0x198
	OpFloor    Opcode = 0x199
	OpFAdd     Opcode = 0x1A0
	OpFSub     Opcode = 0x1A1
	OpFMul     Opcode = 0x1A2
	OpFDiv     Opcode = 0x1A3
	OpFmod     Opcode = 0x1A4
	OpSqrt     Opcode = 0x1A8
	OpExp      Opcode = 0x1A9
	OpLog      Opcode = 0x1AA
	OpPow      Opcode = 0x1AB
	OpSin      Opcode = 0x1B0
	OpCos      Opcode = 0x1B1
	OpTan      Opcode = 0x1B2
	OpAsin     Opcode = 0x1B3
	OpAcos     Opcode = 0x1B4
	OpAtan     Opcode = 0x1B5
	OpAtan2    Opcode = 0x1B6
	OpJfeq     Opcode = 0x1C0
	OpJfne     Opcode = 0x1C1
	OpJflt     Opcode = 0x1C2
	OpJfle     Opcode = 0x1C3
	OpJfgt     Opcode = 0x1C4
	OpJfge     Opcode = 0x1C5
	OpJisnan   Opcode = 0x1C8
	OpJisinf   Opcode = 0x1C9

	// Double-precision extension opcodes. internal/lower emits these
	// directly for f64 arithmetic, comparisons and conversions; i64
	// arithmetic has no Glulx opcode and goes through internal/runtimelib
	// calls instead.
	OpNumToDouble Opcode = 0x200
	OpDoubleToNum Opcode = 0x201 // truncating (round toward zero)
	OpDToNumN     Opcode = 0x202 // round to nearest, ties to even
	OpFToD        Opcode = 0x203 // float32 bit pattern -> double bit pattern (promote)
	OpDToF        Opcode = 0x204 // double bit pattern -> float32 bit pattern (demote)
	OpDAdd        Opcode = 0x210
	OpDSub        Opcode = 0x211
	OpDMul        Opcode = 0x212
	OpDDiv        Opcode = 0x213
	OpDCeil       Opcode = 0x216
	OpDFloor      Opcode = 0x217
	OpDSqrt       Opcode = 0x218
	OpDJeq        Opcode = 0x230
	OpDJne        Opcode = 0x231
	OpDJlt        Opcode = 0x232
	OpDJle        Opcode = 0x233
	OpDJgt        Opcode = 0x234
	OpDJge        Opcode = 0x235
	OpDJisnan     Opcode = 0x238
	OpDJisinf     Opcode = 0x239
)
