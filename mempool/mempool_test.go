package mempool

import (
	"testing"

	"github.com/shawnlimjunhe/superliquid/crypto"
	"github.com/stretchr/testify/assert"
)

type fixedNonceSource map[string]uint64

func (f fixedNonceSource) NextExpectedNonce(sender string) uint64 {
	return f[sender]
}

func newSignedTx(t *testing.T, seed, sender string, nonce uint64, class Class) *Transaction {
	t.Helper()
	tx := &Transaction{
		Sender: sender,
		Nonce:  nonce,
		Class:  class,
		Kind:   KindTransfer,
		Transfer: &TransferPayload{
			Recipient: "someone",
			Asset:     1,
			Amount:    10,
		},
	}
	assert.NoError(t, tx.Sign(seed))
	return tx
}

func newAccount(t *testing.T) (pub, seed string) {
	t.Helper()
	pub, seed, err := crypto.GetAccountKeypair()
	assert.NoError(t, err)
	return pub, seed
}

func TestAdmitRejectsBadSignature(t *testing.T) {
	pub, _ := newAccount(t)
	_, seed2 := newAccount(t)
	tx := newSignedTx(t, seed2, pub, 0, Normal)

	mp := New(fixedNonceSource{pub: 0})
	assert.Equal(t, Rejected, mp.Admit(tx))
}

func TestAdmitRejectsStaleNonce(t *testing.T) {
	pub, seed := newAccount(t)
	tx := newSignedTx(t, seed, pub, 0, Normal)

	mp := New(fixedNonceSource{pub: 1})
	assert.Equal(t, Rejected, mp.Admit(tx))
}

func TestAdmitAndDrainSingleAccount(t *testing.T) {
	pub, seed := newAccount(t)
	tx := newSignedTx(t, seed, pub, 0, Normal)

	mp := New(fixedNonceSource{pub: 0})
	assert.Equal(t, Admitted, mp.Admit(tx))

	drained := mp.Drain(10)
	assert.Len(t, drained, 1)
	assert.Equal(t, tx.Hash(), drained[0].Hash())
}

func TestDrainSkipsStalledGap(t *testing.T) {
	pub, seed := newAccount(t)
	tx := newSignedTx(t, seed, pub, 1, Normal) // nonce 1, but expected is 0

	mp := New(fixedNonceSource{pub: 0})
	assert.Equal(t, Admitted, mp.Admit(tx))

	drained := mp.Drain(10)
	assert.Empty(t, drained)
}

func TestReplaceByPriority(t *testing.T) {
	pub, seed := newAccount(t)
	normalTx := newSignedTx(t, seed, pub, 0, Normal)
	urgentTx := newSignedTx(t, seed, pub, 0, Urgent)

	mp := New(fixedNonceSource{pub: 0})
	assert.Equal(t, Admitted, mp.Admit(normalTx))
	assert.Equal(t, Replaced, mp.Admit(urgentTx))

	drained := mp.Drain(10)
	assert.Len(t, drained, 1)
	assert.Equal(t, urgentTx.Hash(), drained[0].Hash())
}

func TestReplaceRefusesLowerPriority(t *testing.T) {
	pub, seed := newAccount(t)
	urgentTx := newSignedTx(t, seed, pub, 0, Urgent)
	normalTx := newSignedTx(t, seed, pub, 0, Normal)

	mp := New(fixedNonceSource{pub: 0})
	assert.Equal(t, Admitted, mp.Admit(urgentTx))
	assert.Equal(t, Rejected, mp.Admit(normalTx))

	drained := mp.Drain(10)
	assert.Len(t, drained, 1)
	assert.Equal(t, urgentTx.Hash(), drained[0].Hash())
}

func TestDrainPrefersUrgentAcrossAccounts(t *testing.T) {
	pubA, seedA := newAccount(t)
	pubB, seedB := newAccount(t)

	normalTx := newSignedTx(t, seedA, pubA, 0, Normal)
	urgentTx := newSignedTx(t, seedB, pubB, 0, Urgent)

	mp := New(fixedNonceSource{pubA: 0, pubB: 0})
	assert.Equal(t, Admitted, mp.Admit(normalTx))
	assert.Equal(t, Admitted, mp.Admit(urgentTx))

	drained := mp.Drain(10)
	assert.Len(t, drained, 2)
	assert.Equal(t, urgentTx.Hash(), drained[0].Hash())
	assert.Equal(t, normalTx.Hash(), drained[1].Hash())
}

func TestOnCommitEvictsAndAdvancesReadiness(t *testing.T) {
	pub, seed := newAccount(t)
	tx0 := newSignedTx(t, seed, pub, 0, Normal)
	tx1 := newSignedTx(t, seed, pub, 1, Normal)

	ns := fixedNonceSource{pub: 0}
	mp := New(ns)
	assert.Equal(t, Admitted, mp.Admit(tx0))
	assert.Equal(t, Admitted, mp.Admit(tx1)) // not ready yet, nonce 1 != expected 0

	assert.Len(t, mp.Drain(10), 1)

	mp.OnCommit([]*Transaction{tx0})
	ns[pub] = 1 // ledger has now advanced past nonce 0

	drained := mp.Drain(10)
	assert.Len(t, drained, 1)
	assert.Equal(t, tx1.Hash(), drained[0].Hash())
}
