package glulxasm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

func beU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// TestAssemble_Header asserts the fixed header fields byte-for-byte against
// the Glulx specification's layout, the same way instruction-encoding
// tests assert the emitted bytes literally rather than round-tripping
// through a decoder.
func TestAssemble_Header(t *testing.T) {
	start := NewLabel("start")
	ramStart := NewLabel("ram")
	endMem := NewLabel("end")

	a := NewAssembler()
	a.Emit(
		&LabelDef{L: start},
		&Instruction{Op: glulxconst.OpReturn, Operands: []Operand{ConstOperand(0)}},
		&Align{Boundary: 4},
		&LabelDef{L: ramStart},
		&ZeroFill{N: 256},
		&LabelDef{L: endMem},
	)

	img, err := a.Assemble(Header{
		StackSize: 1024,
		StartFunc: start,
		RAMStart:  ramStart,
		ExtStart:  ramStart,
		EndMem:    endMem,
	})
	require.NoError(t, err)
	require.True(t, len(img) >= glulxconst.HeaderSize)

	require.Equal(t, []byte(glulxconst.HeaderMagic), img[0:4])
	require.Equal(t, beU32(glulxconst.HeaderVersion), img[4:8])
	require.Equal(t, beU32(start.Offset()), img[glulxconst.HeaderOffsetStartFunc:glulxconst.HeaderOffsetStartFunc+4])
	require.Equal(t, beU32(ramStart.Offset()), img[glulxconst.HeaderOffsetRAMStart:glulxconst.HeaderOffsetRAMStart+4])
	require.Equal(t, beU32(endMem.Offset()), img[glulxconst.HeaderOffsetEndMem:glulxconst.HeaderOffsetEndMem+4])
	require.Equal(t, beU32(1024), img[glulxconst.HeaderOffsetStackSize:glulxconst.HeaderOffsetStackSize+4])

	// The return instruction is a 4-byte opcode number plus one mode byte
	// (ConstOperand(0) is the zero-byte ModeConstZero encoding, so there is
	// no value byte); the Align then pads those 5 bytes to 8, so RAMSTART
	// lands on the next 4-byte boundary.
	require.Equal(t, uint32(glulxconst.HeaderSize+8), ramStart.Offset())
	// The ZeroFill region isn't written to the file.
	require.Equal(t, glulxconst.HeaderSize+8, len(img))
}

func TestAssemble_UnresolvedLabelFails(t *testing.T) {
	dangling := NewLabel("dangling")
	a := NewAssembler()
	a.Emit(&Instruction{Op: glulxconst.OpJump, Operands: []Operand{BranchOperand(dangling)}})

	_, err := a.Assemble(Header{})
	require.Error(t, err)
	var layoutErr *LayoutError
	require.ErrorAs(t, err, &layoutErr)
}

func TestConstOperand_PicksNarrowestMode(t *testing.T) {
	require.Equal(t, ModeConstZero, ConstOperand(0).Mode)
	require.Equal(t, ModeConst8, ConstOperand(127).Mode)
	require.Equal(t, ModeConst16, ConstOperand(128).Mode)
	require.Equal(t, ModeConst32, ConstOperand(40000).Mode)
}
