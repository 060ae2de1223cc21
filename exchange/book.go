package exchange

import "sort"

// Book holds one market's resting orders: bids price-descending, asks
// price-ascending, FIFO by sequence number within a price level.
// Grounded on go-ultiledger's OfferSlice sort.Interface, generalized to
// two sides with opposite price ordering.
type Book struct {
	Bids bidSlice
	Asks askSlice
}

func NewBook() *Book {
	return &Book{}
}

// bidSlice sorts descending by price, then ascending by sequence.
type bidSlice []*Order

func (s bidSlice) Len() int      { return len(s) }
func (s bidSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s bidSlice) Less(i, j int) bool {
	if s[i].Price != s[j].Price {
		return s[i].Price > s[j].Price
	}
	return s[i].Sequence < s[j].Sequence
}

// askSlice sorts ascending by price, then ascending by sequence.
type askSlice []*Order

func (s askSlice) Len() int      { return len(s) }
func (s askSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s askSlice) Less(i, j int) bool {
	if s[i].Price != s[j].Price {
		return s[i].Price < s[j].Price
	}
	return s[i].Sequence < s[j].Sequence
}

// insertBid inserts o keeping Bids sorted.
func (b *Book) insertBid(o *Order) {
	b.Bids = append(b.Bids, o)
	sort.Sort(b.Bids)
}

// insertAsk inserts o keeping Asks sorted.
func (b *Book) insertAsk(o *Order) {
	b.Asks = append(b.Asks, o)
	sort.Sort(b.Asks)
}

// bestBid/bestAsk return the top-of-book order, or nil if empty.
func (b *Book) bestBid() *Order {
	if len(b.Bids) == 0 {
		return nil
	}
	return b.Bids[0]
}

func (b *Book) bestAsk() *Order {
	if len(b.Asks) == 0 {
		return nil
	}
	return b.Asks[0]
}

// popFrontFilled removes a fully filled resting order from the front
// of its side.
func (b *Book) popFrontFilled(side Side) {
	switch side {
	case Bid:
		b.Bids = b.Bids[1:]
	case Ask:
		b.Asks = b.Asks[1:]
	}
}

// removeOrder removes an order by id from whichever side holds it.
// Returns the removed order, or nil if not found.
func (b *Book) removeOrder(id uint64) *Order {
	for i, o := range b.Bids {
		if o.ID == id {
			b.Bids = append(b.Bids[:i], b.Bids[i+1:]...)
			return o
		}
	}
	for i, o := range b.Asks {
		if o.ID == id {
			b.Asks = append(b.Asks[:i], b.Asks[i+1:]...)
			return o
		}
	}
	return nil
}

// Crossed reports whether the book's top-of-book is crossed (bid >=
// ask), which must never be observable after a match completes
// (spec.md §3 OrderBook invariant, §8 property 5).
func (b *Book) Crossed() bool {
	bid, ask := b.bestBid(), b.bestAsk()
	if bid == nil || ask == nil {
		return false
	}
	return bid.Price >= ask.Price
}
