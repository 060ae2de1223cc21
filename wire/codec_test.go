package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWriteRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(7)
	w.WriteUint32(1234)
	w.WriteUint64(9876543210)
	w.WriteBytes([]byte{1, 2, 3})
	w.WriteString("hello")

	r := NewReader(w.Bytes())

	u8, err := r.ReadUint8()
	assert.NoError(t, err)
	assert.Equal(t, uint8(7), u8)

	u32, err := r.ReadUint32()
	assert.NoError(t, err)
	assert.Equal(t, uint32(1234), u32)

	u64, err := r.ReadUint64()
	assert.NoError(t, err)
	assert.Equal(t, uint64(9876543210), u64)

	b, err := r.ReadBytes()
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	s, err := r.ReadString()
	assert.NoError(t, err)
	assert.Equal(t, "hello", s)

	assert.True(t, r.Done())
}

func TestReadTruncated(t *testing.T) {
	r := NewReader([]byte{0, 1})
	_, err := r.ReadUint32()
	assert.Equal(t, ErrTruncated, err)
}

func TestReadBytesTruncatedLength(t *testing.T) {
	w := NewWriter()
	w.WriteUint32(100)
	r := NewReader(w.Bytes())
	_, err := r.ReadBytes()
	assert.Equal(t, ErrTruncated, err)
}

type testVal struct {
	a uint64
	b string
}

func (v testVal) MarshalCanonical(w *Writer) {
	w.WriteUint64(v.a)
	w.WriteString(v.b)
}

func TestEncodeAndHashDeterministic(t *testing.T) {
	v := testVal{a: 42, b: "x"}
	h1 := SHA256Hash(v)
	h2 := SHA256Hash(v)
	assert.Equal(t, h1, h2)

	other := testVal{a: 43, b: "x"}
	assert.NotEqual(t, h1, SHA256Hash(other))
}
