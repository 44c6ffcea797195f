package stream

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterIsLittleEndian(t *testing.T) {
	w := NewWriter()
	w.WriteU16(0x0102)
	w.WriteI32(-2)
	assert.Equal(t, []byte{0x02, 0x01, 0xfe, 0xff, 0xff, 0xff}, w.Bytes())
}

func TestReaderMixedFields(t *testing.T) {
	w := NewWriter()
	w.WriteU8(7)
	w.WriteBool(true)
	w.WriteString("hello")
	w.WriteVec3(mgl64.Vec3{1.5, -2, 1e12})
	w.WriteQuat(mgl64.Quat{W: 0.5, V: mgl64.Vec3{0.5, 0.5, 0.5}})
	w.WriteF32(3.25)

	r := NewReader(w.Bytes())
	assert.Equal(t, byte(7), r.ReadU8())
	assert.True(t, r.ReadBool())
	assert.Equal(t, "hello", r.ReadString())
	assert.Equal(t, mgl64.Vec3{1.5, -2, 1e12}, r.ReadVec3())
	assert.Equal(t, mgl64.Quat{W: 0.5, V: mgl64.Vec3{0.5, 0.5, 0.5}}, r.ReadQuat())
	assert.Equal(t, float32(3.25), r.ReadF32())
	assert.Zero(t, r.Remaining())
	assert.False(t, r.Overflow())
}

func TestReaderOverflowLatches(t *testing.T) {
	r := NewReader([]byte{1, 2})
	assert.Equal(t, uint32(0), r.ReadU32())
	require.True(t, r.Overflow())
	assert.Equal(t, byte(0), r.ReadU8())
	assert.True(t, r.Overflow())
}

func TestReadStringRejectsBogusLength(t *testing.T) {
	w := NewWriter()
	w.WriteU32(1 << 30)
	w.WriteBytes([]byte("abc"))

	r := NewReader(w.Bytes())
	assert.Equal(t, "", r.ReadString())
	assert.True(t, r.Overflow())
}

func TestPatchU32(t *testing.T) {
	w := NewWriter()
	off := w.Reserve(4)
	w.WriteU8(9)
	w.PatchU32(off, 42)

	r := NewReader(w.Bytes())
	assert.Equal(t, uint32(42), r.ReadU32())
	assert.Equal(t, byte(9), r.ReadU8())
}
