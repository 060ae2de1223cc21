package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	b58 "github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/ed25519"
)

// Generate a keypair with the ed25519 algorithm. Since the true private
// key can always be reconstructed from the seed, the seed is treated as
// the equivalent of a private key throughout this package.
func keypair(code KeyType) (string, string, error) {
	var seed [32]byte
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return "", "", err
	}
	privateKey := ed25519.NewKeyFromSeed(seed[:])
	publicKey := privateKey.Public().(ed25519.PublicKey)

	var pk [32]byte
	copy(pk[:], publicKey)
	acc := &SLKey{Code: code, Hash: pk}
	sd := &SLKey{Code: KeyTypeSeed, Hash: seed}

	return EncodeKey(acc), EncodeKey(sd), nil
}

// Reconstruct the true private key from the seed. Should only be used
// where data needs to be signed so the signature can be verified by the
// corresponding public key.
func getPrivateKey(seed string) (ed25519.PrivateKey, error) {
	if seed == "" {
		return nil, fmt.Errorf("empty seed")
	}
	k, err := DecodeKey(seed)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(k.Hash[:]), nil
}

// GetAccountKeypair randomly generates a pair of account public and
// private (seed) keys.
func GetAccountKeypair() (string, string, error) {
	return keypair(KeyTypeAccountID)
}

// GetNodeKeypair randomly generates a pair of validator node public and
// private (seed) keys.
func GetNodeKeypair() (string, string, error) {
	return keypair(KeyTypeNodeID)
}

// GetAccountKeypairFromSeed derives an account keypair from a caller
// supplied 32 byte seed, used to load keys configured via environment
// variables at boot.
func GetAccountKeypairFromSeed(seed []byte) (string, string, error) {
	if len(seed) != 32 {
		return "", "", errors.New("invalid seed, byte length is not 32")
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)

	var pk [32]byte
	copy(pk[:], publicKey)
	acc := &SLKey{Code: KeyTypeAccountID, Hash: pk}

	var sdk [32]byte
	copy(sdk[:], seed)
	sd := &SLKey{Code: KeyTypeSeed, Hash: sdk}

	return EncodeKey(acc), EncodeKey(sd), nil
}

// Sign the data with the provided seed (equivalent private key),
// returning a base58 encoded signature.
func Sign(seed string, data []byte) (string, error) {
	pk, err := getPrivateKey(seed)
	if err != nil {
		return "", err
	}
	signature := ed25519.Sign(pk, data)
	return b58.Encode(signature), nil
}

// Verify the data signature against the base58 encoded public key.
func Verify(publicKey, signature string, data []byte) bool {
	pk, err := DecodeKey(publicKey)
	if err != nil {
		return false
	}
	return VerifyByKey(pk, signature, data)
}

// VerifyByKey verifies the data signature using an already decoded SLKey.
func VerifyByKey(pk *SLKey, signature string, data []byte) bool {
	sn, err := b58.Decode(signature)
	if err != nil {
		return false
	}
	pub := ed25519.PublicKey(pk.Hash[:])
	return ed25519.Verify(pub, data, sn)
}
