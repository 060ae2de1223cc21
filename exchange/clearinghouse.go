package exchange

import (
	"math/big"
	"sync"
)

// Clearinghouse owns every market's order book and drives price-time
// matching, settling each fill against the Ledger it was constructed
// with. Grounded on go-ultiledger's exchange.Manager shape; the
// matching loop itself is built fresh per spec.md §4.4 since the
// teacher's own offer-matching (`fill`) is a stub in the original.
type Clearinghouse struct {
	mu sync.Mutex

	ledger Ledger

	markets map[MarketID]*Market
	books   map[MarketID]*Book

	nextOrderID  uint64
	nextSequence uint64
}

func NewClearinghouse(ledger Ledger) *Clearinghouse {
	return &Clearinghouse{
		ledger:  ledger,
		markets: make(map[MarketID]*Market),
		books:   make(map[MarketID]*Book),
	}
}

// AddMarket registers a market at genesis. Not safe to call once
// trading has begun — spec.md's validator roster (and, by extension,
// the market list) is fixed at boot.
func (c *Clearinghouse) AddMarket(m *Market) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markets[m.ID] = m
	c.books[m.ID] = NewBook()
}

func (c *Clearinghouse) ListMarkets() []*Market {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Market, 0, len(c.markets))
	for _, m := range c.markets {
		out = append(out, m)
	}
	return out
}

// isMultiple reports whether amount is an integer multiple of unit,
// via math/big.Rat the way go-ultiledger's ComparePrice compares
// ultpb.Price rationals, generalized here to a tick/lot divisibility
// check instead of a price ordering.
func isMultiple(amount, unit uint64) bool {
	if unit == 0 {
		return true
	}
	r := new(big.Rat).SetFrac(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(unit))
	return r.IsInt()
}

func payAsset(m *Market, side Side) AssetID {
	if side == Bid {
		return m.Quote
	}
	return m.Base
}

func opposite(side Side) Side {
	if side == Bid {
		return Ask
	}
	return Bid
}

// PlaceLimit matches a new limit order against the opposite book at
// prices favorable or equal to price, resting any remainder.
func (c *Clearinghouse) PlaceLimit(owner string, marketID MarketID, side Side, price, qty uint64) (*Order, []Fill, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, book, err := c.lookupMarket(marketID)
	if err != nil {
		return nil, nil, err
	}
	if qty == 0 {
		return nil, nil, ErrZeroQuantity
	}
	if !isMultiple(price, m.TickSize) {
		return nil, nil, ErrPriceNotOnTick
	}
	if !isMultiple(qty, m.LotSize) {
		return nil, nil, ErrQtyNotOnLot
	}

	pay := payAsset(m, side)
	holdAmount := qty * price
	if side == Ask {
		holdAmount = qty
	}
	if err := c.ledger.Hold(owner, pay, holdAmount); err != nil {
		return nil, nil, err
	}

	order := c.newOrder(owner, marketID, side, Limit, price, qty)

	fills := c.match(m, book, order, func(bestOpposite *Order) bool {
		if side == Bid {
			return bestOpposite.Price <= price
		}
		return bestOpposite.Price >= price
	})

	if order.Remaining > 0 {
		order.Status = Open
		c.insert(book, order)
	} else {
		order.Status = Filled
	}

	return order, fills, nil
}

// PlaceMarket matches greedily against top-of-book until qty is
// consumed, the book empties, or (for a market buy) the owner's quote
// balance is exhausted mid-match; any residual never rests.
func (c *Clearinghouse) PlaceMarket(owner string, marketID MarketID, side Side, qty uint64) (*Order, []Fill, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, book, err := c.lookupMarket(marketID)
	if err != nil {
		return nil, nil, err
	}
	if qty == 0 {
		return nil, nil, ErrZeroQuantity
	}
	if !isMultiple(qty, m.LotSize) {
		return nil, nil, ErrQtyNotOnLot
	}

	order := c.newOrder(owner, marketID, side, MarketOrder, 0, qty)

	// A market sell's total base cost is known upfront, so it can be
	// pre-held exactly like a limit ask. A market buy's total quote
	// cost depends on which price levels it fills against, so it is
	// settled on the fly per matched fill instead (see matchMarketBuy).
	if side == Ask {
		if err := c.ledger.Hold(owner, m.Base, qty); err != nil {
			return nil, nil, err
		}
		fills := c.match(m, book, order, func(*Order) bool { return true })
		order.Status = Filled
		if order.Remaining > 0 {
			c.ledger.ReleaseHold(owner, m.Base, order.Remaining)
			order.Status = Cancelled
		}
		return order, fills, nil
	}

	fills := c.matchMarketBuy(m, book, order)
	order.Status = Filled
	if order.Remaining > 0 {
		order.Status = Cancelled
	}
	return order, fills, nil
}

// Cancel removes owner's resting order, releasing its remaining hold.
func (c *Clearinghouse) Cancel(owner string, orderID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for marketID, book := range c.books {
		m := c.markets[marketID]
		for _, o := range append(append([]*Order{}, book.Bids...), book.Asks...) {
			if o.ID != orderID {
				continue
			}
			if o.Owner != owner {
				return ErrNotOwner
			}
			book.removeOrder(orderID)
			pay := payAsset(m, o.Side)
			holdAmount := o.Remaining
			if o.Side == Bid {
				holdAmount = o.Remaining * o.Price
			}
			c.ledger.ReleaseHold(owner, pay, holdAmount)
			o.Remaining = 0
			o.Status = Cancelled
			return nil
		}
	}
	return ErrUnknownOrder
}

// OpenOrdersFor returns every resting order across all markets owned by
// owner, for the query_open_orders RPC.
func (c *Clearinghouse) OpenOrdersFor(owner string) []*Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*Order
	for _, book := range c.books {
		for _, o := range book.Bids {
			if o.Owner == owner {
				out = append(out, o)
			}
		}
		for _, o := range book.Asks {
			if o.Owner == owner {
				out = append(out, o)
			}
		}
	}
	return out
}

// BookSnapshot returns the current resting bid/ask levels for a market,
// for the query_book RPC. Levels are returned as individual orders, not
// aggregated by price, since the spec's view of depth is order-level.
func (c *Clearinghouse) BookSnapshot(marketID MarketID) (bids, asks []*Order, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	book, ok := c.books[marketID]
	if !ok {
		return nil, nil, ErrUnknownMarket
	}
	return append([]*Order{}, book.Bids...), append([]*Order{}, book.Asks...), nil
}

func (c *Clearinghouse) lookupMarket(id MarketID) (*Market, *Book, error) {
	m, ok := c.markets[id]
	if !ok {
		return nil, nil, ErrUnknownMarket
	}
	return m, c.books[id], nil
}

func (c *Clearinghouse) newOrder(owner string, marketID MarketID, side Side, kind OrderKind, price, qty uint64) *Order {
	c.nextOrderID++
	return &Order{
		ID:        c.nextOrderID,
		Owner:     owner,
		MarketID:  marketID,
		Side:      side,
		Kind:      kind,
		Price:     price,
		Quantity:  qty,
		Remaining: qty,
	}
}

func (c *Clearinghouse) insert(book *Book, o *Order) {
	c.nextSequence++
	o.Sequence = c.nextSequence
	if o.Side == Bid {
		book.insertBid(o)
	} else {
		book.insertAsk(o)
	}
}

// match runs the common price-time matching loop for an order whose
// full pay-side amount is already held (limit orders, and market
// sells). favorable reports whether the current top-of-book opposite
// order is an acceptable counterparty for the taker.
func (c *Clearinghouse) match(m *Market, book *Book, taker *Order, favorable func(*Order) bool) []Fill {
	var fills []Fill
	oppSide := opposite(taker.Side)

	for taker.Remaining > 0 {
		maker := topOf(book, oppSide)
		if maker == nil || !favorable(maker) {
			break
		}

		tradeQty := min(taker.Remaining, maker.Remaining)
		c.settleFill(m, taker, maker, tradeQty)

		fills = append(fills, Fill{MakerOrderID: maker.ID, TakerOrderID: taker.ID, Price: maker.Price, Quantity: tradeQty})

		taker.Remaining -= tradeQty
		maker.Remaining -= tradeQty
		if maker.Remaining == 0 {
			maker.Status = Filled
			book.popFrontFilled(oppSide)
		}
	}
	return fills
}

// matchMarketBuy is PlaceMarket's Bid-side path: it debits the taker's
// quote balance fill-by-fill instead of pre-holding, stopping (partial
// fill) the moment the taker's available quote balance can no longer
// cover the next maker's price.
func (c *Clearinghouse) matchMarketBuy(m *Market, book *Book, taker *Order) []Fill {
	var fills []Fill

	for taker.Remaining > 0 {
		maker := topOf(book, Ask)
		if maker == nil {
			break
		}
		tradeQty := min(taker.Remaining, maker.Remaining)
		cost := tradeQty * maker.Price
		available := c.ledger.AvailableBalance(taker.Owner, m.Quote)

		starved := false
		if available < cost {
			// afford as much as the remaining balance allows, at this
			// price level, then stop — a genuine partial fill driven by
			// balance exhaustion rather than book exhaustion.
			affordable := available / maker.Price
			if affordable == 0 {
				break
			}
			tradeQty = affordable
			cost = tradeQty * maker.Price
			starved = true
		}

		if err := c.ledger.DebitAvailable(taker.Owner, m.Quote, cost); err != nil {
			break
		}
		c.ledger.Credit(maker.Owner, m.Quote, cost)
		c.ledger.SettleHeld(maker.Owner, taker.Owner, m.Base, tradeQty)

		fills = append(fills, Fill{MakerOrderID: maker.ID, TakerOrderID: taker.ID, Price: maker.Price, Quantity: tradeQty})

		taker.Remaining -= tradeQty
		maker.Remaining -= tradeQty
		if maker.Remaining == 0 {
			maker.Status = Filled
			book.popFrontFilled(Ask)
		}
		if starved {
			break
		}
	}
	return fills
}

// settleFill moves tradeQty between taker and maker at maker's price,
// for the common case where taker's pay-side funds are already held.
// A bid taker holds qty*taker.Price up front (its own limit price); when
// the maker's price improves on that (maker.Price < taker.Price) only
// tradeQty*maker.Price of the hold is owed, so the difference is
// released back to the taker's available balance rather than left
// stranded in Held.
func (c *Clearinghouse) settleFill(m *Market, taker, maker *Order, tradeQty uint64) {
	takerPay := payAsset(m, taker.Side)
	makerPay := payAsset(m, maker.Side)

	payAmount := tradeQty
	if taker.Side == Bid {
		payAmount = tradeQty * maker.Price
	}
	receiveAmount := tradeQty
	if taker.Side == Ask {
		receiveAmount = tradeQty * maker.Price
	}

	c.ledger.SettleHeld(taker.Owner, maker.Owner, takerPay, payAmount)
	c.ledger.SettleHeld(maker.Owner, taker.Owner, makerPay, receiveAmount)

	if taker.Side == Bid && maker.Price < taker.Price {
		c.ledger.ReleaseHold(taker.Owner, takerPay, tradeQty*(taker.Price-maker.Price))
	}
}

func topOf(book *Book, side Side) *Order {
	if side == Bid {
		return book.bestBid()
	}
	return book.bestAsk()
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
