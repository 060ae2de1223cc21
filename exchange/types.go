// Package exchange implements the spot clearinghouse: per-market order
// books, price-time matching, and the balance-hold settlement hooks
// into the ledger. Grounded on go-ultiledger's exchange.Manager/
// exchange/order.go/exchange/sorter.go for structure (price comparison,
// FIFO sort, settlement against an account manager) and on
// original_source/src/state/spot_clearinghouse.rs for the available
// vs. held balance model (locked = total - available).
package exchange

import "errors"

var (
	ErrInsufficientBalance = errors.New("exchange: insufficient balance")
	ErrUnknownMarket       = errors.New("exchange: unknown market")
	ErrUnknownOrder        = errors.New("exchange: unknown order")
	ErrNotOwner            = errors.New("exchange: caller does not own this order")
	ErrPriceNotOnTick      = errors.New("exchange: price is not a multiple of the market's tick size")
	ErrQtyNotOnLot         = errors.New("exchange: quantity is not a multiple of the market's lot size")
	ErrZeroQuantity        = errors.New("exchange: quantity must be positive")
)

type AssetID = uint32

// Asset is a globally unique tradable unit.
type Asset struct {
	ID     AssetID
	Symbol string
}

type MarketID = uint32

// Market pairs a base and quote asset under tick/lot constraints.
type Market struct {
	ID       MarketID
	Base     AssetID
	Quote    AssetID
	TickSize uint64
	LotSize  uint64
}

type Side uint8

const (
	Bid Side = iota
	Ask
)

type OrderKind uint8

const (
	Limit OrderKind = iota
	MarketOrder
)

// OrderStatus is an order's terminal or in-flight state, supplemented
// from original_source/src/state/order.rs. query_open_orders returns
// only resting orders, so it always reports Open; filled and cancelled
// orders are not kept once they leave the book.
type OrderStatus uint8

const (
	Open OrderStatus = iota
	Filled
	Cancelled
	Rejected
)

// Order is a resting or just-matched order. Limit orders carry a
// non-zero Price; market orders never rest, so their Remaining is
// always driven to zero or explicitly Cancelled as residual.
type Order struct {
	ID        uint64
	Owner     string
	MarketID  MarketID
	Side      Side
	Kind      OrderKind
	Price     uint64 // ignored for Kind == MarketOrder
	Quantity  uint64 // original quantity
	Remaining uint64
	Sequence  uint64
	Status    OrderStatus
}

// Fill is one match produced while placing an order.
type Fill struct {
	MakerOrderID uint64
	TakerOrderID uint64
	Price        uint64
	Quantity     uint64
}

// Ledger is the narrow balance-holding surface the clearinghouse needs
// from the ledger package. Kept here, rather than in ledger, so
// exchange never imports ledger — ledger imports exchange instead to
// delegate PlaceLimit/PlaceMarket/Cancel, avoiding a cycle.
type Ledger interface {
	// Hold moves amount of asset from owner's available balance into
	// held, failing with ErrInsufficientBalance if available < amount.
	Hold(owner string, asset AssetID, amount uint64) error
	// ReleaseHold moves amount back from held to available.
	ReleaseHold(owner string, asset AssetID, amount uint64)
	// SettleHeld moves amount out of from's held balance directly into
	// to's available balance — a fill against a holder's resting order.
	SettleHeld(from, to string, asset AssetID, amount uint64)
	// Credit adds amount to owner's available balance directly.
	Credit(owner string, asset AssetID, amount uint64)
	// DebitAvailable subtracts amount from owner's available balance
	// directly, failing if insufficient — used for a market buy's
	// debit-on-the-fly settlement, since its total cost isn't known
	// until each fill's maker price is known.
	DebitAvailable(owner string, asset AssetID, amount uint64) error
	// AvailableBalance reports an owner's available (unheld) balance.
	AvailableBalance(owner string, asset AssetID) uint64
}
