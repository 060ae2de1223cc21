package mempool

import (
	"github.com/shawnlimjunhe/superliquid/crypto"
	"github.com/shawnlimjunhe/superliquid/wire"
)

// Class is a transaction's mempool priority class. Urgent transactions
// (cancels, liquidations) are drained ahead of Normal ones.
type Class uint8

const (
	Normal Class = iota
	Urgent
)

// Kind selects which payload variant a Transaction carries.
type Kind uint8

const (
	KindTransfer Kind = iota
	KindPlaceLimit
	KindPlaceMarket
	KindCancel
	KindDrip
)

type Side uint8

const (
	Bid Side = iota
	Ask
)

// Transaction is the unit of admission, ordering, and execution:
// sender public key, monotonically increasing nonce, priority class, and
// exactly one populated payload, signed over its canonical encoding.
type Transaction struct {
	Sender string
	Nonce  uint64
	Class  Class
	Kind   Kind

	Transfer    *TransferPayload
	PlaceLimit  *PlaceLimitPayload
	PlaceMarket *PlaceMarketPayload
	Cancel      *CancelPayload
	Drip        *DripPayload

	// Sig is the base58 encoded ed25519 signature over the canonical
	// encoding of every field above it.
	Sig string
}

type TransferPayload struct {
	Recipient string
	Asset     uint32
	Amount    uint64
}

type PlaceLimitPayload struct {
	MarketID uint32
	Side     Side
	Price    uint64
	Quantity uint64
}

type PlaceMarketPayload struct {
	MarketID uint32
	Side     Side
	Quantity uint64
}

type CancelPayload struct {
	OrderID uint64
}

type DripPayload struct {
	Asset       string
	Destination string
}

// MarshalCanonical writes the deterministic byte encoding that is both
// hashed for the tx's identity and signed by its sender.
func (tx *Transaction) MarshalCanonical(w *wire.Writer) {
	w.WriteString(tx.Sender)
	w.WriteUint64(tx.Nonce)
	w.WriteUint8(uint8(tx.Class))
	w.WriteUint8(uint8(tx.Kind))

	switch tx.Kind {
	case KindTransfer:
		p := tx.Transfer
		w.WriteString(p.Recipient)
		w.WriteUint32(p.Asset)
		w.WriteUint64(p.Amount)
	case KindPlaceLimit:
		p := tx.PlaceLimit
		w.WriteUint32(p.MarketID)
		w.WriteUint8(uint8(p.Side))
		w.WriteUint64(p.Price)
		w.WriteUint64(p.Quantity)
	case KindPlaceMarket:
		p := tx.PlaceMarket
		w.WriteUint32(p.MarketID)
		w.WriteUint8(uint8(p.Side))
		w.WriteUint64(p.Quantity)
	case KindCancel:
		w.WriteUint64(tx.Cancel.OrderID)
	case KindDrip:
		p := tx.Drip
		w.WriteString(p.Asset)
		w.WriteString(p.Destination)
	}
}

// Hash is the base58 encoded sha256 of the transaction's canonical
// encoding, used as its identity across the mempool and ledger.
func (tx *Transaction) Hash() string {
	return wire.SHA256Hash(tx)
}

// Sign signs tx with seed and stores the resulting signature on tx.
func (tx *Transaction) Sign(seed string) error {
	sig, err := crypto.Sign(seed, wire.Encode(tx))
	if err != nil {
		return err
	}
	tx.Sig = sig
	return nil
}

// VerifySignature checks tx.Sig against tx.Sender over the canonical
// encoding of every other field.
func (tx *Transaction) VerifySignature() bool {
	if tx.Sig == "" {
		return false
	}
	return crypto.Verify(tx.Sender, tx.Sig, wire.Encode(tx))
}

// EncodeWire serializes tx in full, including its signature and every
// payload field, for peer gossip and block bodies — unlike
// MarshalCanonical, which only covers the bytes that get hashed and
// signed.
func (tx *Transaction) EncodeWire(w *wire.Writer) {
	tx.MarshalCanonical(w)
	w.WriteString(tx.Sig)
}

// DecodeTransaction parses a transaction written by EncodeWire.
func DecodeTransaction(r *wire.Reader) (*Transaction, error) {
	tx := &Transaction{}
	var err error
	if tx.Sender, err = r.ReadString(); err != nil {
		return nil, err
	}
	if tx.Nonce, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	class, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	tx.Class = Class(class)
	kind, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	tx.Kind = Kind(kind)

	switch tx.Kind {
	case KindTransfer:
		p := &TransferPayload{}
		if p.Recipient, err = r.ReadString(); err != nil {
			return nil, err
		}
		if p.Asset, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		if p.Amount, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		tx.Transfer = p
	case KindPlaceLimit:
		p := &PlaceLimitPayload{}
		if p.MarketID, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		side, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		p.Side = Side(side)
		if p.Price, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		if p.Quantity, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		tx.PlaceLimit = p
	case KindPlaceMarket:
		p := &PlaceMarketPayload{}
		if p.MarketID, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		side, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		p.Side = Side(side)
		if p.Quantity, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		tx.PlaceMarket = p
	case KindCancel:
		p := &CancelPayload{}
		if p.OrderID, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		tx.Cancel = p
	case KindDrip:
		p := &DripPayload{}
		if p.Asset, err = r.ReadString(); err != nil {
			return nil, err
		}
		if p.Destination, err = r.ReadString(); err != nil {
			return nil, err
		}
		tx.Drip = p
	default:
		return nil, wire.ErrTruncated
	}

	if tx.Sig, err = r.ReadString(); err != nil {
		return nil, err
	}
	return tx, nil
}
