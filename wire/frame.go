package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxFrameBytes bounds a single frame's payload to guard against a
// malicious or corrupt length prefix exhausting memory.
const MaxFrameBytes = 16 << 20 // 16 MiB

var ErrFrameTooLarge = errors.New("wire: frame exceeds MaxFrameBytes")

// WriteFrame writes payload to w prefixed with its 4-byte big-endian
// length, the framing spec.md §6.1 mandates for both peer and client
// connections.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameBytes {
		return ErrFrameTooLarge
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
