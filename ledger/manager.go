package ledger

import (
	"errors"
	"sync"

	"github.com/shawnlimjunhe/superliquid/config"
	"github.com/shawnlimjunhe/superliquid/exchange"
	"github.com/shawnlimjunhe/superliquid/log"
	"github.com/shawnlimjunhe/superliquid/mempool"
)

var (
	ErrUnknownAccount = errors.New("ledger: unknown account")
	ErrUnknownAsset   = errors.New("ledger: unknown asset")
	ErrBadSignature   = errors.New("ledger: invalid transaction signature")
	ErrNonceMismatch  = errors.New("ledger: transaction nonce does not match account's next expected nonce")
)

// Result reports one committed transaction's execution outcome, for
// the RPC layer to correlate against the tx hash it is awaiting.
type Result struct {
	TxHash  string
	OrderID uint64
	Fills   []exchange.Fill
	Err     error
}

// Manager is the state machine every replica applies committed blocks
// against: account balances/nonces, and the clearinghouse. It
// implements exchange.Ledger (settlement callbacks), consensus.Executor
// (ApplyBlock) and mempool.NonceSource (NextExpectedNonce), the three
// narrow interfaces the rest of the system depends on instead of this
// concrete type — grounded on go-ultiledger's accountManager, which
// plays the same "the one thing everyone settles against" role.
type Manager struct {
	mu sync.Mutex

	accounts map[string]*Account
	ch       *exchange.Clearinghouse

	// Results carries one Result per applied transaction, in commit
	// order, for node to resolve pending future.ExecResult futures.
	Results chan Result
}

func NewManager() *Manager {
	m := &Manager{accounts: make(map[string]*Account), Results: make(chan Result, 256)}
	m.ch = exchange.NewClearinghouse(m)
	for _, mkt := range genesisMarkets() {
		m.ch.AddMarket(mkt)
	}
	return m
}

// Bootstrap funds the faucet account from cfg, identically on every
// replica so genesis state never diverges. Grounded on
// accountManager.CreateMasterAccount, generalized from one native
// asset balance to the two-asset roster this domain trades.
func (m *Manager) Bootstrap(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	faucet := m.getOrCreate(cfg.FaucetPK)
	faucet.Available[USD] = 1_000_000_000
	faucet.Available[SUPE] = 1_000_000_000
	log.Infof("ledger: bootstrapped faucet account %s", cfg.FaucetPK)
}

func (m *Manager) getOrCreate(owner string) *Account {
	a, ok := m.accounts[owner]
	if !ok {
		a = newAccount()
		m.accounts[owner] = a
	}
	return a
}

// NextExpectedNonce implements mempool.NonceSource.
func (m *Manager) NextExpectedNonce(sender string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[sender]
	if !ok {
		return 0
	}
	return a.NextNonce
}

// Balances returns a snapshot of owner's available balances, for the
// query_balance RPC. Unknown accounts report all-zero balances rather
// than an error, matching a fresh wallet that has never received funds.
func (m *Manager) Balances(owner string) map[exchange.AssetID]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[exchange.AssetID]uint64)
	a, ok := m.accounts[owner]
	if !ok {
		return out
	}
	for asset, amount := range a.Available {
		out[asset] = amount
	}
	return out
}

func (m *Manager) Clearinghouse() *exchange.Clearinghouse { return m.ch }

// EnsureAccount registers owner with a zero balance if it has never
// been touched before. Account-map membership is never hashed into
// consensus (only tx hashes are), so every replica reaching this
// independently for the same owner never causes a state divergence —
// it can run outside the replicated state machine entirely, unlike
// every balance-affecting operation above.
func (m *Manager) EnsureAccount(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(owner)
}

// ApplyBlock implements consensus.Executor. Per-tx execution errors are
// logged and reported on Results (like every outcome); they never stop
// the rest of the block from applying. A tx whose signature is invalid or
// whose nonce doesn't match the sender's expected next nonce has no
// effect and its nonce is left untouched (see applyTx); any other
// execution failure still advances the nonce, so committing it can
// never be retried into a second effect.
func (m *Manager) ApplyBlock(txs []*mempool.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range txs {
		res := m.applyTx(tx)
		if res.Err != nil {
			log.Debugw("ledger: transaction rejected during execution", "sender", tx.Sender, "nonce", tx.Nonce, "err", res.Err)
		}
		select {
		case m.Results <- res:
		default:
			log.Warnf("ledger: results channel full, dropping result for %s", res.TxHash)
		}
	}
}

// applyTx executes one committed transaction. A block is proposed by a
// single leader and every other replica only ever sees its transactions
// here, never through its own mempool's admission checks — so the
// signature and nonce checks mempool.Admit already does for locally
// submitted txs must be repeated here against a Byzantine leader that
// forges a sender or replays/skips a nonce. Both checks run, and the
// nonce is left unadvanced, before any dispatch that could mutate state.
func (m *Manager) applyTx(tx *mempool.Transaction) Result {
	res := Result{TxHash: tx.Hash()}

	if !tx.VerifySignature() {
		res.Err = ErrBadSignature
		return res
	}

	sender := m.getOrCreate(tx.Sender)
	if tx.Nonce != sender.NextNonce {
		res.Err = ErrNonceMismatch
		return res
	}
	defer func() { sender.NextNonce = tx.Nonce + 1 }()

	switch tx.Kind {
	case mempool.KindTransfer:
		res.Err = m.applyTransfer(tx.Sender, tx.Transfer)
	case mempool.KindPlaceLimit:
		res.OrderID, res.Fills, res.Err = m.applyPlaceLimit(tx.Sender, tx.PlaceLimit)
	case mempool.KindPlaceMarket:
		res.OrderID, res.Fills, res.Err = m.applyPlaceMarket(tx.Sender, tx.PlaceMarket)
	case mempool.KindCancel:
		res.Err = m.ch.Cancel(tx.Sender, tx.Cancel.OrderID)
	case mempool.KindDrip:
		res.Err = m.applyDrip(tx.Drip)
	default:
		res.Err = errors.New("ledger: unknown transaction kind")
	}
	return res
}

func (m *Manager) applyTransfer(sender string, p *mempool.TransferPayload) error {
	from := m.getOrCreate(sender)
	if from.available(p.Asset) < p.Amount {
		return exchange.ErrInsufficientBalance
	}
	from.Available[p.Asset] -= p.Amount
	to := m.getOrCreate(p.Recipient)
	to.Available[p.Asset] += p.Amount
	return nil
}

func (m *Manager) applyPlaceLimit(sender string, p *mempool.PlaceLimitPayload) (uint64, []exchange.Fill, error) {
	side := exchange.Bid
	if p.Side == mempool.Ask {
		side = exchange.Ask
	}
	order, fills, err := m.ch.PlaceLimit(sender, p.MarketID, side, p.Price, p.Quantity)
	if order == nil {
		return 0, nil, err
	}
	return order.ID, fills, err
}

func (m *Manager) applyPlaceMarket(sender string, p *mempool.PlaceMarketPayload) (uint64, []exchange.Fill, error) {
	side := exchange.Bid
	if p.Side == mempool.Ask {
		side = exchange.Ask
	}
	order, fills, err := m.ch.PlaceMarket(sender, p.MarketID, side, p.Quantity)
	if order == nil {
		return 0, nil, err
	}
	return order.ID, fills, err
}

// applyDrip mints a fixed amount of asset directly into destination's
// available balance. It is pure minting, not a transfer from the
// signer's own balance. The signer is not checked: any correctly signed
// Drip with the right nonce mints, whoever signed it. The node's drip
// RPC signs with the faucet key, but a Drip signed by any other key
// and sent through submit_tx mints as well.
func (m *Manager) applyDrip(p *mempool.DripPayload) error {
	spec, ok := dripAmounts[p.Asset]
	if !ok {
		return ErrUnknownAsset
	}
	dest := m.getOrCreate(p.Destination)
	dest.Available[spec.asset] += spec.amount
	return nil
}

// --- exchange.Ledger ---

func (m *Manager) Hold(owner string, asset exchange.AssetID, amount uint64) error {
	a := m.getOrCreate(owner)
	if a.available(asset) < amount {
		return exchange.ErrInsufficientBalance
	}
	a.Available[asset] -= amount
	a.Held[asset] += amount
	return nil
}

func (m *Manager) ReleaseHold(owner string, asset exchange.AssetID, amount uint64) {
	a := m.getOrCreate(owner)
	a.Held[asset] -= amount
	a.Available[asset] += amount
}

func (m *Manager) SettleHeld(from, to string, asset exchange.AssetID, amount uint64) {
	src := m.getOrCreate(from)
	src.Held[asset] -= amount
	dst := m.getOrCreate(to)
	dst.Available[asset] += amount
}

func (m *Manager) Credit(owner string, asset exchange.AssetID, amount uint64) {
	a := m.getOrCreate(owner)
	a.Available[asset] += amount
}

func (m *Manager) DebitAvailable(owner string, asset exchange.AssetID, amount uint64) error {
	a := m.getOrCreate(owner)
	if a.available(asset) < amount {
		return exchange.ErrInsufficientBalance
	}
	a.Available[asset] -= amount
	return nil
}

func (m *Manager) AvailableBalance(owner string, asset exchange.AssetID) uint64 {
	a := m.getOrCreate(owner)
	return a.available(asset)
}
