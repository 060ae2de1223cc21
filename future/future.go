// Package future defines deferred-error request/response types used to
// cross the channel boundary between the client-facing RPC loop and the
// replica event loop without either loop blocking on the other.
package future

type Future interface {
	Error() error
}

// Allow a future to respond an error in the future.
type deferError struct {
	err       error
	errChan   chan error
	responded bool
}

// Every future should call this method to initialize the underlying
// error channel.
func (d *deferError) Init() {
	d.errChan = make(chan error, 1)
}

// Respond should be called exactly once; subsequent calls have no effect.
func (d *deferError) Respond(err error) {
	if d.errChan == nil || d.responded {
		return
	}
	d.errChan <- err
	close(d.errChan)
	d.responded = true
}

// Error always returns the first responded error.
func (d *deferError) Error() error {
	if d.err != nil {
		return d.err
	}
	if d.errChan == nil {
		panic("waiting for response on nil channel")
	}
	d.err = <-d.errChan
	return d.err
}

// SubmitTx is the future for the RPC loop to hand a signed transaction to
// the mempool owned by the replica loop. The responded error carries the
// admission outcome once the transaction has been admitted or rejected
// (not yet committed); the execution outcome at commit time is delivered
// separately, through ExecResult below.
type SubmitTx struct {
	deferError
	RawTx []byte
	// TxHash is filled in by the replica loop on successful admission.
	TxHash string
}

// ExecResult is the future used by the RPC server to block until a
// previously admitted transaction's containing block has committed, so a
// transaction-error (e.g. InsufficientBalance) recorded at commit time can
// be surfaced on the original RPC reply per the error propagation policy.
type ExecResult struct {
	deferError
	TxHash string
	// OrderID is set for PlaceLimit/PlaceMarket on success.
	OrderID uint64
	// Fills summarizes a market or limit order's immediate matches.
	Fills []FillSummary
}

type FillSummary struct {
	OrderID  uint64
	Price    uint64
	Quantity uint64
}

// CreateAccount is the future for the console to ask the node to register
// a freshly generated local keypair as a known account with no balances
// (accounts are otherwise created on first ledger touch; a balance query
// for an unknown account reports empty balances either way).
type CreateAccount struct {
	deferError
	PublicKey string
}

// Drip is the future for minting faucet funds to a destination account.
type Drip struct {
	deferError
	Asset       string
	Destination string
}

// Balance is the future for querying an account's balances.
type Balance struct {
	deferError
	PublicKey string
	Balances  map[string]uint64
}

// Book is the future for querying a market's resting orders.
type Book struct {
	deferError
	MarketID uint32
	Bids     []BookLevel
	Asks     []BookLevel
}

type BookLevel struct {
	Price    uint64
	Quantity uint64
}

// Markets is the future for querying the fixed market roster.
type Markets struct {
	deferError
	Markets []MarketView
}

type MarketView struct {
	ID       uint32
	Base     uint32
	Quote    uint32
	TickSize uint64
	LotSize  uint64
}

// OpenOrders is the future for querying an account's open orders.
type OpenOrders struct {
	deferError
	PublicKey string
	Orders    []OrderView
}

type OrderView struct {
	OrderID  uint64
	MarketID uint32
	Side     uint8
	Price    uint64
	Quantity uint64
	Status   uint8
}
