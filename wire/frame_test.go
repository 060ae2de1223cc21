package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("a proposal message")

	assert.NoError(t, WriteFrame(&buf, payload))

	got, err := ReadFrame(&buf)
	assert.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameTruncatedPrefix(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0}))
	assert.Error(t, err)
}

func TestWriteFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxFrameBytes+1))
	assert.Equal(t, ErrFrameTooLarge, err)
}

func TestMultipleFramesOnSameStream(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, WriteFrame(&buf, []byte("one")))
	assert.NoError(t, WriteFrame(&buf, []byte("two")))

	first, err := ReadFrame(&buf)
	assert.NoError(t, err)
	assert.Equal(t, []byte("one"), first)

	second, err := ReadFrame(&buf)
	assert.NoError(t, err)
	assert.Equal(t, []byte("two"), second)
}
