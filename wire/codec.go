// Package wire implements the canonical, deterministic binary encoding
// used for every hashed or network-transmitted value in the system:
// fixed-width big-endian integers and explicit length-prefixed byte
// strings, never a map whose iteration order is unspecified. It plays
// the same role ultpb/codec.go plays for the protobuf wire format, minus
// protobuf, since the spec this codec serves forbids non-canonical
// encodings (see DESIGN.md).
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/shawnlimjunhe/superliquid/crypto"
)

var ErrTruncated = errors.New("wire: truncated input")

// Writer accumulates a canonical byte encoding. The zero value is ready
// to use.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) WriteUint8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteBytes writes a 4-byte big-endian length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf.Write(b)
}

// WriteString writes s as a length-prefixed byte string.
func (w *Writer) WriteString(s string) {
	w.WriteBytes([]byte(s))
}

// WriteFixed writes b verbatim with no length prefix, for fields of a
// known fixed width (e.g. a 32-byte hash).
func (w *Writer) WriteFixed(b []byte) {
	w.buf.Write(b)
}

// Reader consumes a canonical byte encoding in the same order it was
// written.
type Reader struct {
	b   []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

func (r *Reader) remaining() int {
	return len(r.b) - r.off
}

func (r *Reader) ReadUint8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, ErrTruncated
	}
	v := r.b[r.off]
	r.off++
	return v, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(r.b[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint64(r.b[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if r.remaining() < int(n) {
		return nil, ErrTruncated
	}
	b := r.b[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, ErrTruncated
	}
	b := r.b[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Done reports whether the reader has consumed the entire input.
func (r *Reader) Done() bool {
	return r.remaining() == 0
}

// Marshaler is implemented by the domain types whose canonical encoding
// is hashed or signed (Block, QC, the vote payload, Transaction). The
// peer and RPC envelopes are encoded by their own Encode* functions.
type Marshaler interface {
	MarshalCanonical(w *Writer)
}

// Encode runs m's canonical encoding into a standalone byte slice.
func Encode(m Marshaler) []byte {
	w := NewWriter()
	m.MarshalCanonical(w)
	return w.Bytes()
}

// SHA256Hash computes the hash of a canonically encoded value, base58
// encoded, mirroring ultpb.SHA256Hash's wrapper shape.
func SHA256Hash(m Marshaler) string {
	return crypto.SHA256Hash(Encode(m))
}

// SHA256HashBytes computes the raw 32-byte hash of a canonically encoded
// value.
func SHA256HashBytes(m Marshaler) [32]byte {
	return crypto.SHA256HashBytes(Encode(m))
}
