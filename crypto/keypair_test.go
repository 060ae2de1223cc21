package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"
)

var fixedSeed = []byte{
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
	0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20,
}

var testData string = "superliquid is awesome!"

// test random keypair generation
func TestGetAccountKeypair(t *testing.T) {
	pub, seed, err := GetAccountKeypair()
	assert.NoError(t, err)
	assert.True(t, IsValidKey(pub))
	assert.True(t, IsValidKey(seed))
}

func TestGetNodeKeypair(t *testing.T) {
	pub, seed, err := GetNodeKeypair()
	assert.NoError(t, err)
	assert.True(t, IsValidKey(pub))
	assert.True(t, IsValidKey(seed))
}

// test deriving a keypair from a caller supplied seed reproduces the same
// public key every time
func TestGetAccountKeypairFromSeedDeterministic(t *testing.T) {
	pub1, seed1, err := GetAccountKeypairFromSeed(fixedSeed)
	assert.NoError(t, err)

	pub2, seed2, err := GetAccountKeypairFromSeed(fixedSeed)
	assert.NoError(t, err)

	assert.Equal(t, pub1, pub2)
	assert.Equal(t, seed1, seed2)
}

func TestGetAccountKeypairFromSeedRejectsBadLength(t *testing.T) {
	_, _, err := GetAccountKeypairFromSeed([]byte{1, 2, 3})
	assert.Error(t, err)
}

// test that getPrivateKey reconstructs a private key whose public half
// matches the account key derived from the same seed
func TestPrivateKeyMatchesPublicKey(t *testing.T) {
	pub, seed, err := GetAccountKeypairFromSeed(fixedSeed)
	assert.NoError(t, err)

	pk, err := getPrivateKey(seed)
	assert.NoError(t, err)

	pubKey, err := DecodeKey(pub)
	assert.NoError(t, err)

	derived := pk.Public().(ed25519.PublicKey)
	assert.Equal(t, pubKey.Hash[:], []byte(derived))
}

func TestGetPrivateKeyRejectsEmptySeed(t *testing.T) {
	_, err := getPrivateKey("")
	assert.Error(t, err)
}

// test data signing and verification round trip
func TestSignAndVerify(t *testing.T) {
	pub, seed, err := GetAccountKeypairFromSeed(fixedSeed)
	assert.NoError(t, err)

	signature, err := Sign(seed, []byte(testData))
	assert.NoError(t, err)
	assert.NotEmpty(t, signature)

	assert.True(t, Verify(pub, signature, []byte(testData)))
	assert.False(t, Verify(pub, signature, []byte("tampered data")))
}

func TestSignIsDeterministic(t *testing.T) {
	_, seed, err := GetAccountKeypairFromSeed(fixedSeed)
	assert.NoError(t, err)

	sig1, err := Sign(seed, []byte(testData))
	assert.NoError(t, err)
	sig2, err := Sign(seed, []byte(testData))
	assert.NoError(t, err)

	assert.Equal(t, sig1, sig2)
}

func TestVerifyRejectsBadKeyOrSignature(t *testing.T) {
	assert.False(t, Verify("garbage", "garbage", []byte(testData)))

	pub, seed, err := GetAccountKeypairFromSeed(fixedSeed)
	assert.NoError(t, err)
	_, err = Sign(seed, []byte(testData))
	assert.NoError(t, err)

	assert.False(t, Verify(pub, "garbage", []byte(testData)))
}
