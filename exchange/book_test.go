package exchange

import "testing"

func TestInsertBidOrdersDescendingByPriceThenSequence(t *testing.T) {
	b := NewBook()
	b.insertBid(&Order{ID: 1, Price: 100, Sequence: 1})
	b.insertBid(&Order{ID: 2, Price: 110, Sequence: 2})
	b.insertBid(&Order{ID: 3, Price: 110, Sequence: 3})

	if b.bestBid().ID != 2 {
		t.Fatalf("expected order 2 (higher price, earlier sequence) at top, got %d", b.bestBid().ID)
	}
	if b.Bids[1].ID != 3 || b.Bids[2].ID != 1 {
		t.Fatalf("unexpected bid ordering: %+v", b.Bids)
	}
}

func TestInsertAskOrdersAscendingByPriceThenSequence(t *testing.T) {
	b := NewBook()
	b.insertAsk(&Order{ID: 1, Price: 105, Sequence: 1})
	b.insertAsk(&Order{ID: 2, Price: 95, Sequence: 2})

	if b.bestAsk().ID != 2 {
		t.Fatalf("expected cheaper ask at top, got %d", b.bestAsk().ID)
	}
}

func TestRemoveOrderFromEitherSide(t *testing.T) {
	b := NewBook()
	b.insertBid(&Order{ID: 1, Price: 100})
	b.insertAsk(&Order{ID: 2, Price: 200})

	got := b.removeOrder(1)
	if got == nil || got.ID != 1 {
		t.Fatalf("expected to remove bid order 1")
	}
	if len(b.Bids) != 0 {
		t.Fatalf("expected bids empty after removal")
	}

	if b.removeOrder(999) != nil {
		t.Fatalf("expected nil for unknown order id")
	}
}

func TestCrossedDetectsOverlappingTopOfBook(t *testing.T) {
	b := NewBook()
	b.insertBid(&Order{ID: 1, Price: 105})
	b.insertAsk(&Order{ID: 2, Price: 100})

	if !b.Crossed() {
		t.Fatal("expected book to report crossed when bid >= ask")
	}
}
