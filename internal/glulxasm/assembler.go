package glulxasm

import (
	"math"

	"github.com/glulxfic/wasm2glulx/internal/glulxconst"
)

// Header carries the fields lists as the Glulx header, minus
// the magic/version/checksum which are constants the Assembler writes
// itself. RAMStart/ExtStart/EndMem/StartFunc are labels so the caller (the
// layout planner, internal/layout) can reference the very addresses it is
// asking the Assembler to compute — resolving the chicken-and-egg problem
// of RAM addresses depending on ROM size, which depends on code that
// references those RAM addresses.
type Header struct {
	StackSize uint32
	StartFunc *Label
	RAMStart  *Label
	ExtStart  *Label
	EndMem    *Label
}

// Assembler resolves a symbolic item stream into a bit-exact Glulx image.
//
// Unlike a native assembler that iterates short/long branch encodings to
// convergence because amd64/arm64 branches have a genuinely narrower
// short-jump form worth exploiting, this assembler picks operand widths
// structurally at construction time (ConstOperand/LocalOperand pick
// the narrowest form for an already-known value; LabelOperand/
// BranchOperand always use the 32-bit form because the value isn't known
// until resolution). That makes every item's size fixed before any label is
// resolved, so a single forward pass assigns every label's offset, and a
// second pass emits bytes. This is the "commit to max-width branches in a
// single pass" alternative explicitly permits.
type Assembler struct {
	items []Item
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

func (a *Assembler) Emit(items ...Item) {
	a.items = append(a.items, items...)
}

// instructionSize returns the encoded byte size of an instruction: a
// 4-byte opcode number followed by, for each operand, a 1-byte mode tag
// plus the operand's value bytes.
func instructionSize(in *Instruction) int {
	n := 4
	for _, op := range in.Operands {
		n += 1 + op.Mode.ValueSize()
	}
	return n
}

func itemSize(it Item) (int, bool) {
	switch v := it.(type) {
	case *Instruction:
		return instructionSize(v), false
	case *Data:
		return len(v.Bytes), false
	case *DataWord:
		return 4, false
	case *Align:
		return 0, false // computed during layout, depends on running offset
	case *ZeroFill:
		return v.N, true
	case *LabelDef:
		return 0, false
	default:
		panic("glulxasm: unknown item type")
	}
}

// Assemble performs the size/offset pass and the emit pass described above,
// writing the final header, checksum, and item bytes.
func (a *Assembler) Assemble(h Header) ([]byte, error) {
	offset := int64(glulxconst.HeaderSize)
	inTail := false

	// Pass 1: assign every label's offset.
	for _, it := range a.items {
		if ld, ok := it.(*LabelDef); ok {
			if ld.L.resolved {
				return nil, NewLayoutError("label %q resolved more than once", ld.L.Name)
			}
			if offset < 0 || offset > math.MaxUint32 {
				return nil, NewLayoutError("image exceeds 2^32 bytes while placing label %q", ld.L.Name)
			}
			ld.L.offset = uint32(offset)
			ld.L.resolved = true
			continue
		}
		if al, ok := it.(*Align); ok {
			if pad := int64(al.Boundary) - offset%int64(al.Boundary); pad != int64(al.Boundary) {
				offset += pad
			}
			continue
		}
		size, isZeroFill := itemSize(it)
		if isZeroFill {
			inTail = true
		} else if inTail {
			return nil, NewLayoutError("non-zero-fill item placed after the zero-filled tail region began")
		}
		offset += int64(size)
	}
	if offset > math.MaxUint32 {
		return nil, NewLayoutError("image size %d exceeds 2^32 bytes", offset)
	}

	for _, l := range []*Label{h.RAMStart, h.ExtStart, h.EndMem} {
		if l == nil {
			continue
		}
		if !l.resolved {
			return nil, NewLayoutError("header label %q was never declared in the item stream", l.Name)
		}
		if l.offset%4 != 0 {
			return nil, NewLayoutError("header label %q at offset %#x is not 4-byte aligned", l.Name, l.offset)
		}
	}
	if h.StartFunc != nil && !h.StartFunc.resolved {
		return nil, NewLayoutError("start function label %q was never declared", h.StartFunc.Name)
	}

	// Pass 2: emit. All labels are resolved now.
	buf := &imageBuffer{}
	buf.Pad(glulxconst.HeaderSize)

	for _, it := range a.items {
		switch v := it.(type) {
		case *LabelDef:
			// Nothing to emit; offset already recorded.
		case *Align:
			cur := int64(buf.Len())
			if pad := int64(v.Boundary) - cur%int64(v.Boundary); pad != int64(v.Boundary) {
				buf.Pad(int(pad))
			}
		case *Data:
			buf.Write(v.Bytes)
		case *DataWord:
			val, err := a.resolveScalar(v.Value, int64(buf.Len())+4)
			if err != nil {
				return nil, err
			}
			buf.WriteUint32(uint32(val))
		case *ZeroFill:
			// Not written to the file; Glulx interpreters zero-initialize
			// memory from ExtStart to EndMem on load.
		case *Instruction:
			if err := a.emitInstruction(buf, v); err != nil {
				return nil, err
			}
		default:
			return nil, NewLayoutError("unknown item type %T", it)
		}
	}

	out := buf.Bytes()
	putU32 := func(off int, v uint32) { buf.PutUint32At(off, v) }
	copy(out[glulxconst.HeaderOffsetMagic:], []byte(glulxconst.HeaderMagic))
	putU32(glulxconst.HeaderOffsetVersion, glulxconst.HeaderVersion)
	if h.RAMStart != nil {
		putU32(glulxconst.HeaderOffsetRAMStart, h.RAMStart.offset)
	}
	if h.ExtStart != nil {
		putU32(glulxconst.HeaderOffsetExtStart, h.ExtStart.offset)
	}
	if h.EndMem != nil {
		putU32(glulxconst.HeaderOffsetEndMem, h.EndMem.offset)
	}
	putU32(glulxconst.HeaderOffsetStackSize, h.StackSize)
	if h.StartFunc != nil {
		putU32(glulxconst.HeaderOffsetStartFunc, h.StartFunc.offset)
	}
	putU32(glulxconst.HeaderOffsetDecodingTable, 0)
	putU32(glulxconst.HeaderOffsetChecksum, 0)

	var sum uint32
	for i := 0; i+4 <= len(out); i += 4 {
		sum += uint32(out[i])<<24 | uint32(out[i+1])<<16 | uint32(out[i+2])<<8 | uint32(out[i+3])
	}
	putU32(glulxconst.HeaderOffsetChecksum, sum)

	return out, nil
}

func (a *Assembler) resolveScalar(o Operand, pcAfter int64) (int64, error) {
	if o.Label != nil && !o.Label.resolved {
		return 0, NewLayoutError("unresolved label %q", o.Label.Name)
	}
	return o.resolvedValue(pcAfter), nil
}

func (a *Assembler) emitInstruction(buf *imageBuffer, in *Instruction) error {
	size := instructionSize(in)
	instrEnd := int64(buf.Len()) + int64(size)
	buf.WriteUint32(uint32(in.Op))
	for _, op := range in.Operands {
		buf.WriteByte(byte(op.Mode))
		if op.Label != nil && !op.Label.resolved {
			return NewLayoutError("unresolved label %q referenced by opcode %#x", op.Label.Name, in.Op)
		}
		val := op.resolvedValue(instrEnd)
		switch op.Mode.ValueSize() {
		case 0:
		case 1:
			if val < -128 || val > 255 {
				return NewLayoutError("operand value %d does not fit an 8-bit operand for opcode %#x", val, in.Op)
			}
			buf.WriteByte(byte(val))
		case 2:
			if val < -32768 || val > 65535 {
				return NewLayoutError("operand value %d does not fit a 16-bit operand for opcode %#x", val, in.Op)
			}
			buf.WriteUint16(uint16(val))
		default:
			if val < math.MinInt32 || val > math.MaxUint32 {
				return NewLayoutError("branch/address displacement %d out of range for opcode %#x", val, in.Op)
			}
			buf.WriteUint32(uint32(val))
		}
	}
	return nil
}
