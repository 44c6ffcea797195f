// Package stream implements the little-endian binary encoding used by world
// snapshots and module payloads.
package stream

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Writer appends fields to a growing byte buffer. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// WriteU8 writes 1 byte.
func (w *Writer) WriteU8(v byte) {
	w.buf = append(w.buf, v)
}

// WriteBool writes 1 byte, 0 or 1.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// WriteU16 writes 2 bytes.
func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteU32 writes 4 bytes.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteI32 writes 4 bytes (signed via cast).
func (w *Writer) WriteI32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteU64 writes 8 bytes.
func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteF32 writes an IEEE-754 single.
func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

// WriteF64 writes an IEEE-754 double.
func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteVec3 writes x, y, z as doubles.
func (w *Writer) WriteVec3(v mgl64.Vec3) {
	w.WriteF64(v[0])
	w.WriteF64(v[1])
	w.WriteF64(v[2])
}

// WriteQuat writes x, y, z, w as doubles.
func (w *Writer) WriteQuat(q mgl64.Quat) {
	w.WriteVec3(q.V)
	w.WriteF64(q.W)
}

// WriteString writes a u32 byte length followed by the raw UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes raw bytes without a length prefix.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Reserve appends n zero bytes and returns their offset so they can be patched later.
func (w *Writer) Reserve(n int) int {
	off := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return off
}

// PatchU32 overwrites 4 bytes at off.
func (w *Writer) PatchU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

// Bytes returns the written content.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}
