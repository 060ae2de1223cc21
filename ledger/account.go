// Package ledger holds every account's balances and nonce, implements
// the exchange package's Ledger settlement hooks, and dispatches
// committed transactions into balance transfers, faucet drips, and
// clearinghouse order operations. Grounded on go-ultiledger's
// account.accountManager for the manager shape, generalized from a
// single native asset to the fixed two-asset genesis this domain uses.
package ledger

import "github.com/shawnlimjunhe/superliquid/exchange"

// Account is one address's balances and replay-protection nonce.
// Balances are split the way original_source/src/state/account.rs
// splits them: held is never directly spendable, and
// available+held == total.
type Account struct {
	Available map[exchange.AssetID]uint64
	Held      map[exchange.AssetID]uint64
	NextNonce uint64
}

func newAccount() *Account {
	return &Account{
		Available: make(map[exchange.AssetID]uint64),
		Held:      make(map[exchange.AssetID]uint64),
	}
}

func (a *Account) available(asset exchange.AssetID) uint64 {
	return a.Available[asset]
}

func (a *Account) held(asset exchange.AssetID) uint64 {
	return a.Held[asset]
}
