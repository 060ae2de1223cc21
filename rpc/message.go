// Package rpc implements the client-facing Command protocol: a framed
// request/response pair per call, encoded with the same `wire` framer
// peer gossip uses. Grounded on go-ultiledger's rpc.NodeServer (a
// futures-only handler layer with no direct access to node-owned
// state) re-pointed from generated grpc service methods at hand-rolled
// Command dispatch, since spec.md §6.2 specifies the client protocol as
// a plain framed TCP stream rather than a grpc service.
package rpc

import (
	"errors"
	"sort"

	"github.com/shawnlimjunhe/superliquid/wire"
)

type Command uint8

const (
	CmdCreateAccount Command = iota
	CmdDrip
	CmdQueryBalance
	CmdListMarkets
	CmdSubmitTx
	CmdQueryOpenOrders
	CmdQueryBook
)

var errUnknownCommand = errors.New("rpc: unknown Command on the wire")

// Request is the single envelope type a client sends; only the fields
// its Command uses (noted per field below) are encoded.
type Request struct {
	Cmd       Command
	PublicKey string // create_account / query_balance / query_open_orders
	Asset     string // drip
	Dest      string // drip destination
	MarketID  uint32 // query_book
	RawTx     []byte // submit_tx: wire-encoded *mempool.Transaction
}

func EncodeRequest(r Request) []byte {
	w := wire.NewWriter()
	w.WriteUint8(uint8(r.Cmd))
	switch r.Cmd {
	case CmdCreateAccount, CmdQueryBalance, CmdQueryOpenOrders:
		w.WriteString(r.PublicKey)
	case CmdDrip:
		w.WriteString(r.Asset)
		w.WriteString(r.Dest)
	case CmdListMarkets:
	case CmdSubmitTx:
		w.WriteBytes(r.RawTx)
	case CmdQueryBook:
		w.WriteUint32(r.MarketID)
	}
	return w.Bytes()
}

func DecodeRequest(b []byte) (Request, error) {
	r := wire.NewReader(b)
	c, err := r.ReadUint8()
	if err != nil {
		return Request{}, err
	}
	req := Request{Cmd: Command(c)}
	switch req.Cmd {
	case CmdCreateAccount, CmdQueryBalance, CmdQueryOpenOrders:
		if req.PublicKey, err = r.ReadString(); err != nil {
			return Request{}, err
		}
	case CmdDrip:
		if req.Asset, err = r.ReadString(); err != nil {
			return Request{}, err
		}
		if req.Dest, err = r.ReadString(); err != nil {
			return Request{}, err
		}
	case CmdListMarkets:
	case CmdSubmitTx:
		if req.RawTx, err = r.ReadBytes(); err != nil {
			return Request{}, err
		}
	case CmdQueryBook:
		if req.MarketID, err = r.ReadUint32(); err != nil {
			return Request{}, err
		}
	default:
		return Request{}, errUnknownCommand
	}
	return req, nil
}

// Response is the single envelope type the server sends back.
type Response struct {
	Err         string // empty on success
	TxHash      string
	OrderID     uint64
	Fills       []FillView
	Balances    map[string]uint64
	Markets     []MarketView
	OpenOrders  []OrderView
	Bids, Asks  []LevelView
}

type FillView struct{ Price, Quantity uint64 }
type LevelView struct{ Price, Quantity uint64 }
type MarketView struct {
	ID       uint32
	Base     uint32
	Quote    uint32
	TickSize uint64
	LotSize  uint64
}
type OrderView struct {
	OrderID  uint64
	MarketID uint32
	Side     uint8
	Price    uint64
	Quantity uint64
	Status   uint8
}

func EncodeResponse(resp Response) []byte {
	w := wire.NewWriter()
	w.WriteString(resp.Err)
	w.WriteString(resp.TxHash)
	w.WriteUint64(resp.OrderID)

	w.WriteUint32(uint32(len(resp.Fills)))
	for _, f := range resp.Fills {
		w.WriteUint64(f.Price)
		w.WriteUint64(f.Quantity)
	}

	w.WriteUint32(uint32(len(resp.Balances)))
	symbols := make([]string, 0, len(resp.Balances))
	for symbol := range resp.Balances {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		w.WriteString(symbol)
		w.WriteUint64(resp.Balances[symbol])
	}

	w.WriteUint32(uint32(len(resp.Markets)))
	for _, mkt := range resp.Markets {
		w.WriteUint32(mkt.ID)
		w.WriteUint32(mkt.Base)
		w.WriteUint32(mkt.Quote)
		w.WriteUint64(mkt.TickSize)
		w.WriteUint64(mkt.LotSize)
	}

	w.WriteUint32(uint32(len(resp.OpenOrders)))
	for _, o := range resp.OpenOrders {
		writeOrderView(w, o)
	}

	w.WriteUint32(uint32(len(resp.Bids)))
	for _, l := range resp.Bids {
		w.WriteUint64(l.Price)
		w.WriteUint64(l.Quantity)
	}
	w.WriteUint32(uint32(len(resp.Asks)))
	for _, l := range resp.Asks {
		w.WriteUint64(l.Price)
		w.WriteUint64(l.Quantity)
	}

	return w.Bytes()
}

func writeOrderView(w *wire.Writer, o OrderView) {
	w.WriteUint64(o.OrderID)
	w.WriteUint32(o.MarketID)
	w.WriteUint8(o.Side)
	w.WriteUint64(o.Price)
	w.WriteUint64(o.Quantity)
	w.WriteUint8(o.Status)
}

func DecodeResponse(b []byte) (Response, error) {
	r := wire.NewReader(b)
	var resp Response
	var err error

	if resp.Err, err = r.ReadString(); err != nil {
		return resp, err
	}
	if resp.TxHash, err = r.ReadString(); err != nil {
		return resp, err
	}
	if resp.OrderID, err = r.ReadUint64(); err != nil {
		return resp, err
	}

	nFills, err := r.ReadUint32()
	if err != nil {
		return resp, err
	}
	for i := uint32(0); i < nFills; i++ {
		price, err := r.ReadUint64()
		if err != nil {
			return resp, err
		}
		qty, err := r.ReadUint64()
		if err != nil {
			return resp, err
		}
		resp.Fills = append(resp.Fills, FillView{Price: price, Quantity: qty})
	}

	nBal, err := r.ReadUint32()
	if err != nil {
		return resp, err
	}
	if nBal > 0 {
		resp.Balances = make(map[string]uint64, nBal)
	}
	for i := uint32(0); i < nBal; i++ {
		symbol, err := r.ReadString()
		if err != nil {
			return resp, err
		}
		amount, err := r.ReadUint64()
		if err != nil {
			return resp, err
		}
		resp.Balances[symbol] = amount
	}

	nMkt, err := r.ReadUint32()
	if err != nil {
		return resp, err
	}
	for i := uint32(0); i < nMkt; i++ {
		var mkt MarketView
		if mkt.ID, err = r.ReadUint32(); err != nil {
			return resp, err
		}
		if mkt.Base, err = r.ReadUint32(); err != nil {
			return resp, err
		}
		if mkt.Quote, err = r.ReadUint32(); err != nil {
			return resp, err
		}
		if mkt.TickSize, err = r.ReadUint64(); err != nil {
			return resp, err
		}
		if mkt.LotSize, err = r.ReadUint64(); err != nil {
			return resp, err
		}
		resp.Markets = append(resp.Markets, mkt)
	}

	nOrd, err := r.ReadUint32()
	if err != nil {
		return resp, err
	}
	for i := uint32(0); i < nOrd; i++ {
		o, err := readOrderView(r)
		if err != nil {
			return resp, err
		}
		resp.OpenOrders = append(resp.OpenOrders, o)
	}

	resp.Bids, err = readLevels(r)
	if err != nil {
		return resp, err
	}
	resp.Asks, err = readLevels(r)
	if err != nil {
		return resp, err
	}

	return resp, nil
}

func readOrderView(r *wire.Reader) (OrderView, error) {
	var o OrderView
	var err error
	if o.OrderID, err = r.ReadUint64(); err != nil {
		return o, err
	}
	if o.MarketID, err = r.ReadUint32(); err != nil {
		return o, err
	}
	if o.Side, err = r.ReadUint8(); err != nil {
		return o, err
	}
	if o.Price, err = r.ReadUint64(); err != nil {
		return o, err
	}
	if o.Quantity, err = r.ReadUint64(); err != nil {
		return o, err
	}
	if o.Status, err = r.ReadUint8(); err != nil {
		return o, err
	}
	return o, nil
}

func readLevels(r *wire.Reader) ([]LevelView, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	levels := make([]LevelView, 0, n)
	for i := uint32(0); i < n; i++ {
		price, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		qty, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		levels = append(levels, LevelView{Price: price, Quantity: qty})
	}
	return levels, nil
}
