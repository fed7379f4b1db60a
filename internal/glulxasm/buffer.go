package glulxasm

import "encoding/binary"

// imageBuffer is a growable byte buffer the Assembler writes the final
// image into. A native JIT backs this kind of buffer with an mmap'd,
// executable memory mapping because it runs the bytes it just wrote; this
// assembler never executes the bytes it emits — they are written to a
// `.ulx` file for an external interpreter to load — so there is no reason
// to pay for (or link against) a platform-specific mmap layer; a plain
// slice is the correct tool here (see DESIGN.md for why
// internal/platform's mmap dependency is not carried forward).
type imageBuffer struct {
	b []byte
}

func (buf *imageBuffer) Len() int { return len(buf.b) }

func (buf *imageBuffer) WriteByte(b byte) {
	buf.b = append(buf.b, b)
}

func (buf *imageBuffer) Write(p []byte) {
	buf.b = append(buf.b, p...)
}

func (buf *imageBuffer) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func (buf *imageBuffer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func (buf *imageBuffer) PutUint32At(offset int, v uint32) {
	binary.BigEndian.PutUint32(buf.b[offset:offset+4], v)
}

func (buf *imageBuffer) Bytes() []byte { return buf.b }

func (buf *imageBuffer) Pad(n int) {
	for i := 0; i < n; i++ {
		buf.b = append(buf.b, 0)
	}
}
