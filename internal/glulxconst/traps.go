package glulxconst

// TrapCode is the argument to a `debugtrap` instruction used to signal a
// WASM trap from generated code.
type TrapCode uint32

const (
	TrapUnreachable               TrapCode = 0
	TrapIntegerOverflow           TrapCode = 1
	TrapIntegerDivideByZero       TrapCode = 2
	TrapInvalidConversion         TrapCode = 3
	TrapOutOfBoundsMemory         TrapCode = 4
	TrapIndirectCallTypeMismatch  TrapCode = 5
	TrapOutOfBoundsTableAccess    TrapCode = 6
	TrapUndefinedElement          TrapCode = 7
	TrapUninitializedElement      TrapCode = 8
	TrapStackExhausted            TrapCode = 9
)

// Header field layout, per the Glulx specification §1.3.
const (
	HeaderMagic        = "Glul"
	HeaderVersion      = 0x00030103
	HeaderSize         = 36 // 9 big-endian 4-byte words
	HeaderOffsetMagic          = 0
	HeaderOffsetVersion        = 4
	HeaderOffsetRAMStart       = 8
	HeaderOffsetExtStart       = 12
	HeaderOffsetEndMem         = 16
	HeaderOffsetStackSize      = 20
	HeaderOffsetStartFunc      = 24
	HeaderOffsetDecodingTable  = 28
	HeaderOffsetChecksum       = 32
)

// Function-header "locals-format" terminator and call-type tags, per the
// Glulx specification §1.5 "Function calling convention".
const (
	CallTypeStackArgs Opcode = 0xC0
	CallTypeLocalArgs Opcode = 0xC1

	LocalsFormatTerminator = 0x00
)

// Glk dispatch call: `glk <selector> <argc> <result>` is an ordinary
// glulxasm.Instruction with this opcode; it takes the Glk argument list off
// the Glulx stack.
const GlkCallOpcode = OpGlk

// String/buffer prefix bytes Glk expects at buffer - 1 / buffer - 4. The
// import thunks patch these in before calling Glk and restore the original
// byte(s) after.
const (
	GlkLatin1StringPrefix byte = 0xE0
	// GlkUnicodeStringPrefixWord is written as a 4-byte big-endian word
	// immediately preceding a unicode string buffer.
	GlkUnicodeStringPrefixWord uint32 = 0xE2000000
)
