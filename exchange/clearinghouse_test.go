package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeLedger is an in-memory Ledger good enough to exercise the
// clearinghouse's hold/settle/debit/credit call sequence in isolation.
type fakeLedger struct {
	available map[string]map[AssetID]uint64
	held      map[string]map[AssetID]uint64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		available: make(map[string]map[AssetID]uint64),
		held:      make(map[string]map[AssetID]uint64),
	}
}

func (f *fakeLedger) fund(owner string, asset AssetID, amount uint64) {
	if f.available[owner] == nil {
		f.available[owner] = make(map[AssetID]uint64)
	}
	f.available[owner][asset] += amount
}

func (f *fakeLedger) Hold(owner string, asset AssetID, amount uint64) error {
	if f.available[owner][asset] < amount {
		return ErrInsufficientBalance
	}
	f.available[owner][asset] -= amount
	if f.held[owner] == nil {
		f.held[owner] = make(map[AssetID]uint64)
	}
	f.held[owner][asset] += amount
	return nil
}

func (f *fakeLedger) ReleaseHold(owner string, asset AssetID, amount uint64) {
	f.held[owner][asset] -= amount
	f.available[owner][asset] += amount
}

func (f *fakeLedger) SettleHeld(from, to string, asset AssetID, amount uint64) {
	f.held[from][asset] -= amount
	if f.available[to] == nil {
		f.available[to] = make(map[AssetID]uint64)
	}
	f.available[to][asset] += amount
}

func (f *fakeLedger) Credit(owner string, asset AssetID, amount uint64) {
	if f.available[owner] == nil {
		f.available[owner] = make(map[AssetID]uint64)
	}
	f.available[owner][asset] += amount
}

func (f *fakeLedger) DebitAvailable(owner string, asset AssetID, amount uint64) error {
	if f.available[owner][asset] < amount {
		return ErrInsufficientBalance
	}
	f.available[owner][asset] -= amount
	return nil
}

func (f *fakeLedger) AvailableBalance(owner string, asset AssetID) uint64 {
	return f.available[owner][asset]
}

const (
	usd AssetID = 0
	sup AssetID = 1
	mkt         = 0
)

func newTestClearinghouse() (*Clearinghouse, *fakeLedger) {
	ledger := newFakeLedger()
	ch := NewClearinghouse(ledger)
	ch.AddMarket(&Market{ID: mkt, Base: sup, Quote: usd, TickSize: 1, LotSize: 1})
	return ch, ledger
}

func TestPriceTimePriorityAcrossTwoRestingAsks(t *testing.T) {
	ch, ledger := newTestClearinghouse()

	ledger.fund("maker1", sup, 10)
	ledger.fund("maker2", sup, 5)
	ledger.fund("taker", usd, 1_000_000)

	_, _, err := ch.PlaceLimit("maker1", mkt, Ask, 100, 10)
	assert.NoError(t, err)
	_, _, err = ch.PlaceLimit("maker2", mkt, Ask, 100, 5)
	assert.NoError(t, err)

	order, fills, err := ch.PlaceMarket("taker", mkt, Bid, 12)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), order.Remaining)

	assert.Len(t, fills, 2)
	assert.Equal(t, uint64(10), fills[0].Quantity)
	assert.Equal(t, uint64(2), fills[1].Quantity)

	book := ch.books[mkt]
	assert.Len(t, book.Asks, 1)
	assert.Equal(t, uint64(3), book.Asks[0].Remaining)
	assert.Equal(t, "maker2", book.Asks[0].Owner)
}

func TestBookNeverEndsUpCrossed(t *testing.T) {
	ch, ledger := newTestClearinghouse()
	ledger.fund("bidder", usd, 1_000_000)
	ledger.fund("asker", sup, 1_000)

	_, _, err := ch.PlaceLimit("bidder", mkt, Bid, 100, 10)
	assert.NoError(t, err)
	_, _, err = ch.PlaceLimit("asker", mkt, Ask, 90, 5)
	assert.NoError(t, err)

	assert.False(t, ch.books[mkt].Crossed())
}

func TestCancelReleasesHold(t *testing.T) {
	ch, ledger := newTestClearinghouse()
	ledger.fund("bidder", usd, 1_000)

	order, _, err := ch.PlaceLimit("bidder", mkt, Bid, 100, 5)
	assert.NoError(t, err)
	assert.Equal(t, uint64(500), ledger.held["bidder"][usd])

	err = ch.Cancel("bidder", order.ID)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), ledger.held["bidder"][usd])
	assert.Equal(t, uint64(1_000), ledger.available["bidder"][usd])
}

func TestCancelRejectsWrongOwner(t *testing.T) {
	ch, ledger := newTestClearinghouse()
	ledger.fund("bidder", usd, 1_000)

	order, _, err := ch.PlaceLimit("bidder", mkt, Bid, 100, 5)
	assert.NoError(t, err)

	err = ch.Cancel("someone-else", order.ID)
	assert.Equal(t, ErrNotOwner, err)
}

func TestPlaceLimitRejectsInsufficientBalance(t *testing.T) {
	ch, _ := newTestClearinghouse()

	_, _, err := ch.PlaceLimit("broke", mkt, Bid, 100, 5)
	assert.Equal(t, ErrInsufficientBalance, err)
}

func TestPlaceLimitRejectsOffTickPrice(t *testing.T) {
	ch, ledger := newTestClearinghouse()
	ledger.fund("bidder", usd, 1_000)
	ch.markets[mkt].TickSize = 5

	_, _, err := ch.PlaceLimit("bidder", mkt, Bid, 102, 5)
	assert.Equal(t, ErrPriceNotOnTick, err)
}

func TestPlaceMarketBuyStopsEarlyOnInsufficientBalance(t *testing.T) {
	ch, ledger := newTestClearinghouse()
	ledger.fund("maker", sup, 20)
	ledger.fund("taker", usd, 200) // enough for 2 lots at price 100, not all 5

	_, _, err := ch.PlaceLimit("maker", mkt, Ask, 100, 20)
	assert.NoError(t, err)

	order, fills, err := ch.PlaceMarket("taker", mkt, Bid, 5)
	assert.NoError(t, err)
	assert.Len(t, fills, 1)
	assert.Equal(t, uint64(2), fills[0].Quantity)
	assert.Equal(t, uint64(3), order.Remaining)
	assert.Equal(t, uint64(0), ledger.available["taker"][usd])
}

func TestCrossingLimitBuyReleasesPriceImprovementOnFullFill(t *testing.T) {
	ch, ledger := newTestClearinghouse()
	ledger.fund("asker", sup, 10)
	ledger.fund("bidder", usd, 1_000)

	_, _, err := ch.PlaceLimit("asker", mkt, Ask, 90, 10)
	assert.NoError(t, err)

	// bidder holds qty*limit = 10*100 = 1000 up front, but the resting
	// ask fills at 90, so only 900 is owed; the 100 price-improvement
	// must land back in available, not stay stranded in held.
	order, fills, err := ch.PlaceLimit("bidder", mkt, Bid, 100, 10)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), order.Remaining)
	assert.Len(t, fills, 1)
	assert.Equal(t, uint64(90), fills[0].Price)

	assert.Equal(t, uint64(0), ledger.held["bidder"][usd])
	assert.Equal(t, uint64(100), ledger.available["bidder"][usd])
}

func TestCrossingLimitBuyReleasesPriceImprovementOnPartialFill(t *testing.T) {
	ch, ledger := newTestClearinghouse()
	ledger.fund("asker", sup, 4)
	ledger.fund("bidder", usd, 1_000)

	_, _, err := ch.PlaceLimit("asker", mkt, Ask, 90, 4)
	assert.NoError(t, err)

	order, fills, err := ch.PlaceLimit("bidder", mkt, Bid, 100, 10)
	assert.NoError(t, err)
	assert.Equal(t, uint64(6), order.Remaining)
	assert.Len(t, fills, 1)

	// held must reflect only the resting remainder at the bidder's own
	// limit price (6*100=600); the 4*(100-90)=40 price-improvement on
	// the filled portion is back in available.
	assert.Equal(t, uint64(600), ledger.held["bidder"][usd])
	assert.Equal(t, uint64(40), ledger.available["bidder"][usd])

	err = ch.Cancel("bidder", order.ID)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), ledger.held["bidder"][usd])
	// 1000 funded, minus the 360 actually paid for the 4-unit fill.
	assert.Equal(t, uint64(640), ledger.available["bidder"][usd])
}

func TestPlaceMarketSellPreHoldsAndReleasesResidual(t *testing.T) {
	ch, ledger := newTestClearinghouse()
	ledger.fund("maker", usd, 1_000)
	ledger.fund("taker", sup, 10)

	_, _, err := ch.PlaceLimit("maker", mkt, Bid, 100, 4)
	assert.NoError(t, err)

	order, fills, err := ch.PlaceMarket("taker", mkt, Ask, 10)
	assert.NoError(t, err)
	assert.Len(t, fills, 1)
	assert.Equal(t, uint64(6), order.Remaining)
	// residual base hold released back to available, nothing left held
	assert.Equal(t, uint64(0), ledger.held["taker"][sup])
}
