package ledger

import (
	"testing"

	"github.com/shawnlimjunhe/superliquid/config"
	"github.com/shawnlimjunhe/superliquid/crypto"
	"github.com/shawnlimjunhe/superliquid/mempool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T) (pub, seed string) {
	t.Helper()
	pub, seed, err := crypto.GetAccountKeypair()
	require.NoError(t, err)
	return pub, seed
}

func signed(t *testing.T, seed string, tx *mempool.Transaction) *mempool.Transaction {
	t.Helper()
	require.NoError(t, tx.Sign(seed))
	return tx
}

func TestBootstrapFundsFaucet(t *testing.T) {
	m := NewManager()
	m.Bootstrap(&config.Config{FaucetPK: "faucet-pk"})

	bal := m.Balances("faucet-pk")
	assert.Equal(t, uint64(1_000_000_000), bal[USD])
	assert.Equal(t, uint64(1_000_000_000), bal[SUPE])
}

func TestApplyDripMints(t *testing.T) {
	m := NewManager()
	faucetPK, faucetSK := newTestAccount(t)
	tx := signed(t, faucetSK, &mempool.Transaction{
		Sender: faucetPK,
		Nonce:  0,
		Kind:   mempool.KindDrip,
		Drip:   &mempool.DripPayload{Asset: "USD", Destination: "alice"},
	})

	m.ApplyBlock([]*mempool.Transaction{tx})

	assert.Equal(t, uint64(1_000_000), m.Balances("alice")[USD])
	assert.Equal(t, uint64(1), m.NextExpectedNonce(faucetPK))
}

func TestApplyTransferMovesBalance(t *testing.T) {
	m := NewManager()
	faucetPK, faucetSK := newTestAccount(t)
	alicePK, aliceSK := newTestAccount(t)

	m.ApplyBlock([]*mempool.Transaction{
		signed(t, faucetSK, &mempool.Transaction{
			Sender: faucetPK, Nonce: 0, Kind: mempool.KindDrip,
			Drip: &mempool.DripPayload{Asset: "USD", Destination: alicePK},
		}),
	})

	tx := signed(t, aliceSK, &mempool.Transaction{
		Sender:   alicePK,
		Nonce:    0,
		Kind:     mempool.KindTransfer,
		Transfer: &mempool.TransferPayload{Recipient: "bob", Asset: USD, Amount: 100},
	})
	m.ApplyBlock([]*mempool.Transaction{tx})

	assert.Equal(t, uint64(999_900), m.Balances(alicePK)[USD])
	assert.Equal(t, uint64(100), m.Balances("bob")[USD])
}

func TestApplyTransferInsufficientBalanceStillAdvancesNonce(t *testing.T) {
	m := NewManager()
	alicePK, aliceSK := newTestAccount(t)
	tx := signed(t, aliceSK, &mempool.Transaction{
		Sender:   alicePK,
		Nonce:    0,
		Kind:     mempool.KindTransfer,
		Transfer: &mempool.TransferPayload{Recipient: "bob", Asset: USD, Amount: 100},
	})
	m.ApplyBlock([]*mempool.Transaction{tx})

	assert.Equal(t, uint64(0), m.Balances("bob")[USD])
	assert.Equal(t, uint64(1), m.NextExpectedNonce(alicePK), "nonce must advance even when execution fails")
}

func TestApplyTxRejectsForgedSignatureAndLeavesNonceUnadvanced(t *testing.T) {
	m := NewManager()
	alicePK, _ := newTestAccount(t)
	_, attackerSK := newTestAccount(t)

	// a block built by a Byzantine leader can carry a tx whose Sender
	// doesn't match whoever actually signed it.
	tx := signed(t, attackerSK, &mempool.Transaction{
		Sender:   alicePK,
		Nonce:    0,
		Kind:     mempool.KindTransfer,
		Transfer: &mempool.TransferPayload{Recipient: "bob", Asset: USD, Amount: 100},
	})
	m.ApplyBlock([]*mempool.Transaction{tx})

	assert.Equal(t, uint64(0), m.Balances("bob")[USD])
	assert.Equal(t, uint64(0), m.NextExpectedNonce(alicePK), "a forged signature must not advance the sender's nonce")
}

func TestApplyTxRejectsNonceMismatchAndLeavesNonceUnadvanced(t *testing.T) {
	m := NewManager()
	faucetPK, faucetSK := newTestAccount(t)
	alicePK, aliceSK := newTestAccount(t)

	m.ApplyBlock([]*mempool.Transaction{
		signed(t, faucetSK, &mempool.Transaction{
			Sender: faucetPK, Nonce: 0, Kind: mempool.KindDrip,
			Drip: &mempool.DripPayload{Asset: "USD", Destination: alicePK},
		}),
	})

	// alice's expected nonce is 0; a leader including this tx at nonce 1
	// (a gap) must not be allowed to advance past it.
	tx := signed(t, aliceSK, &mempool.Transaction{
		Sender:   alicePK,
		Nonce:    1,
		Kind:     mempool.KindTransfer,
		Transfer: &mempool.TransferPayload{Recipient: "bob", Asset: USD, Amount: 100},
	})
	m.ApplyBlock([]*mempool.Transaction{tx})

	assert.Equal(t, uint64(0), m.Balances("bob")[USD])
	assert.Equal(t, uint64(0), m.NextExpectedNonce(alicePK))
}

func TestPlaceLimitAndCancelRoundTrip(t *testing.T) {
	m := NewManager()
	faucetPK, faucetSK := newTestAccount(t)
	alicePK, aliceSK := newTestAccount(t)

	m.ApplyBlock([]*mempool.Transaction{
		signed(t, faucetSK, &mempool.Transaction{
			Sender: faucetPK, Nonce: 0, Kind: mempool.KindDrip,
			Drip: &mempool.DripPayload{Asset: "USD", Destination: alicePK},
		}),
	})

	place := signed(t, aliceSK, &mempool.Transaction{
		Sender:     alicePK,
		Nonce:      0,
		Kind:       mempool.KindPlaceLimit,
		PlaceLimit: &mempool.PlaceLimitPayload{MarketID: SupeUsdMarket, Side: mempool.Bid, Price: 10, Quantity: 5},
	})
	m.ApplyBlock([]*mempool.Transaction{place})

	orders := m.Clearinghouse().OpenOrdersFor(alicePK)
	assert.Len(t, orders, 1)

	cancel := signed(t, aliceSK, &mempool.Transaction{
		Sender: alicePK,
		Nonce:  1,
		Kind:   mempool.KindCancel,
		Cancel: &mempool.CancelPayload{OrderID: orders[0].ID},
	})
	m.ApplyBlock([]*mempool.Transaction{cancel})

	assert.Len(t, m.Clearinghouse().OpenOrdersFor(alicePK), 0)
	assert.Equal(t, uint64(1_000_000), m.Balances(alicePK)[USD])
}
