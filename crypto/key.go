package crypto

import (
	"bytes"
	"encoding/binary"
	"errors"

	b58 "github.com/mr-tron/base58/base58"
)

type KeyType uint8

// enumeration of key type
const (
	_ KeyType = iota // skip zero
	KeyTypeAccountID
	KeyTypeSeed
	KeyTypeNodeID
	KeyTypeBlockHash
	KeyTypeOrderID
)

var (
	ErrInvalidKey = errors.New("invalid key string")
)

// SLKey is the internal key used to represent any base58 encoded hash
// or public key in the system; Code identifies the kind of hash.
type SLKey struct {
	Code KeyType
	Hash [32]byte
}

// DecodeKey decodes a base58 encoded key string to a SLKey.
func DecodeKey(key string) (*SLKey, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	b, err := b58.Decode(key)
	if err != nil {
		return nil, ErrInvalidKey
	}

	var k SLKey
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.BigEndian, &k); err != nil {
		return nil, ErrInvalidKey
	}

	switch k.Code {
	case KeyTypeAccountID, KeyTypeSeed, KeyTypeNodeID, KeyTypeBlockHash, KeyTypeOrderID:
		return &k, nil
	}
	return nil, ErrInvalidKey
}

// EncodeKey encodes a SLKey to a base58 encoded key string.
func EncodeKey(key *SLKey) string {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, key)
	return b58.Encode(buf.Bytes())
}

// IsValidKey checks the validity of a supplied key string.
func IsValidKey(key string) bool {
	_, err := DecodeKey(key)
	return err == nil
}
