package stream

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Reader reads fields written by Writer. Reads past the end return zero values and
// latch the overflow flag; callers check Overflow once after a batch of reads.
type Reader struct {
	data     []byte
	off      int
	overflow bool
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) take(n int) []byte {
	if n < 0 || r.off+n > len(r.data) {
		r.overflow = true
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadU8 reads 1 byte.
func (r *Reader) ReadU8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadBool reads 1 byte; anything but 0 is true.
func (r *Reader) ReadBool() bool {
	return r.ReadU8() != 0
}

// ReadU16 reads 2 bytes.
func (r *Reader) ReadU16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// ReadU32 reads 4 bytes.
func (r *Reader) ReadU32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// ReadI32 reads 4 bytes as a signed value.
func (r *Reader) ReadI32() int32 {
	return int32(r.ReadU32())
}

// ReadU64 reads 8 bytes.
func (r *Reader) ReadU64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadF32 reads an IEEE-754 single.
func (r *Reader) ReadF32() float32 {
	return math.Float32frombits(r.ReadU32())
}

// ReadF64 reads an IEEE-754 double.
func (r *Reader) ReadF64() float64 {
	return math.Float64frombits(r.ReadU64())
}

// ReadVec3 reads three doubles.
func (r *Reader) ReadVec3() mgl64.Vec3 {
	return mgl64.Vec3{r.ReadF64(), r.ReadF64(), r.ReadF64()}
}

// ReadQuat reads x, y, z, w doubles.
func (r *Reader) ReadQuat() mgl64.Quat {
	v := r.ReadVec3()
	return mgl64.Quat{W: r.ReadF64(), V: v}
}

// ReadString reads a u32 length-prefixed string.
func (r *Reader) ReadString() string {
	n := r.ReadU32()
	if uint64(n) > uint64(r.Remaining()) {
		r.overflow = true
		r.off = len(r.data)
		return ""
	}
	return string(r.take(int(n)))
}

// ReadBytes returns the next n bytes without copying.
func (r *Reader) ReadBytes(n int) []byte {
	return r.take(n)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Overflow reports whether any read ran past the end of the data.
func (r *Reader) Overflow() bool {
	return r.overflow
}
