package rpc

import (
	"errors"
	"net"

	"github.com/shawnlimjunhe/superliquid/future"
	"github.com/shawnlimjunhe/superliquid/log"
	"github.com/shawnlimjunhe/superliquid/wire"
)

// Server accepts client connections and turns each framed Request into
// a future handed to node's event loop; it holds no domain state of
// its own. Grounded on go-ultiledger's rpc.NodeServer/ServerContext
// (futures-only handlers, ValidateServerContext construction pattern),
// re-pointed from grpc service methods at a single Serve loop dispatch.
type Server struct {
	ctx *ServerContext
	ln  net.Listener
}

// ServerContext is every channel the server needs to hand a request
// off to node's event loop, and to later collect a commit-time result.
type ServerContext struct {
	CreateAccountFuture chan<- *future.CreateAccount
	DripFuture          chan<- *future.Drip
	BalanceFuture       chan<- *future.Balance
	MarketsFuture       chan<- *future.Markets
	SubmitTxFuture      chan<- *future.SubmitTx
	ExecResultFuture    chan<- *future.ExecResult
	OpenOrdersFuture    chan<- *future.OpenOrders
	BookFuture          chan<- *future.Book
}

func ValidateServerContext(sc *ServerContext) error {
	if sc == nil {
		return errors.New("rpc: server context is nil")
	}
	if sc.CreateAccountFuture == nil || sc.DripFuture == nil || sc.BalanceFuture == nil ||
		sc.MarketsFuture == nil || sc.SubmitTxFuture == nil || sc.ExecResultFuture == nil ||
		sc.OpenOrdersFuture == nil || sc.BookFuture == nil {
		return errors.New("rpc: server context has a nil future channel")
	}
	return nil
}

func NewServer(ctx *ServerContext) *Server {
	if err := ValidateServerContext(ctx); err != nil {
		log.Fatalf("rpc: %v", err)
	}
	return &Server{ctx: ctx}
}

func (s *Server) Serve(listen string, stopChan chan struct{}) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		<-stopChan
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		raw, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		req, err := DecodeRequest(raw)
		if err != nil {
			log.Warnw("rpc: dropping malformed request", "err", err)
			return
		}
		resp := s.handle(req)
		if err := wire.WriteFrame(conn, EncodeResponse(resp)); err != nil {
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	switch req.Cmd {
	case CmdCreateAccount:
		return s.handleCreateAccount(req)
	case CmdDrip:
		return s.handleDrip(req)
	case CmdQueryBalance:
		return s.handleBalance(req)
	case CmdListMarkets:
		return s.handleMarkets()
	case CmdSubmitTx:
		return s.handleSubmitTx(req)
	case CmdQueryOpenOrders:
		return s.handleOpenOrders(req)
	case CmdQueryBook:
		return s.handleBook(req)
	default:
		return Response{Err: errUnknownCommand.Error()}
	}
}

func (s *Server) handleCreateAccount(req Request) Response {
	f := &future.CreateAccount{PublicKey: req.PublicKey}
	f.Init()
	s.ctx.CreateAccountFuture <- f
	if err := f.Error(); err != nil {
		return Response{Err: err.Error()}
	}
	return Response{}
}

func (s *Server) handleDrip(req Request) Response {
	f := &future.Drip{Asset: req.Asset, Destination: req.Dest}
	f.Init()
	s.ctx.DripFuture <- f
	if err := f.Error(); err != nil {
		return Response{Err: err.Error()}
	}
	return Response{}
}

func (s *Server) handleBalance(req Request) Response {
	f := &future.Balance{PublicKey: req.PublicKey}
	f.Init()
	s.ctx.BalanceFuture <- f
	if err := f.Error(); err != nil {
		return Response{Err: err.Error()}
	}
	return Response{Balances: f.Balances}
}

func (s *Server) handleMarkets() Response {
	f := &future.Markets{}
	f.Init()
	s.ctx.MarketsFuture <- f
	if err := f.Error(); err != nil {
		return Response{Err: err.Error()}
	}
	out := make([]MarketView, len(f.Markets))
	for i, m := range f.Markets {
		out[i] = MarketView{ID: m.ID, Base: m.Base, Quote: m.Quote, TickSize: m.TickSize, LotSize: m.LotSize}
	}
	return Response{Markets: out}
}

// handleSubmitTx admits req.RawTx to the mempool, then blocks until its
// containing block commits so the reply can carry the actual execution
// outcome (order id, fills, or a late-discovered error like
// InsufficientBalance) rather than just admission success.
func (s *Server) handleSubmitTx(req Request) Response {
	submit := &future.SubmitTx{RawTx: req.RawTx}
	submit.Init()
	s.ctx.SubmitTxFuture <- submit
	if err := submit.Error(); err != nil {
		return Response{Err: err.Error()}
	}

	exec := &future.ExecResult{TxHash: submit.TxHash}
	exec.Init()
	s.ctx.ExecResultFuture <- exec
	if err := exec.Error(); err != nil {
		return Response{Err: err.Error(), TxHash: submit.TxHash}
	}

	fills := make([]FillView, len(exec.Fills))
	for i, f := range exec.Fills {
		fills[i] = FillView{Price: f.Price, Quantity: f.Quantity}
	}
	return Response{TxHash: submit.TxHash, OrderID: exec.OrderID, Fills: fills}
}

func (s *Server) handleOpenOrders(req Request) Response {
	f := &future.OpenOrders{PublicKey: req.PublicKey}
	f.Init()
	s.ctx.OpenOrdersFuture <- f
	if err := f.Error(); err != nil {
		return Response{Err: err.Error()}
	}
	out := make([]OrderView, len(f.Orders))
	for i, o := range f.Orders {
		out[i] = OrderView{OrderID: o.OrderID, MarketID: o.MarketID, Side: o.Side, Price: o.Price, Quantity: o.Quantity, Status: o.Status}
	}
	return Response{OpenOrders: out}
}

func (s *Server) handleBook(req Request) Response {
	f := &future.Book{MarketID: req.MarketID}
	f.Init()
	s.ctx.BookFuture <- f
	if err := f.Error(); err != nil {
		return Response{Err: err.Error()}
	}
	bids := make([]LevelView, len(f.Bids))
	for i, l := range f.Bids {
		bids[i] = LevelView{Price: l.Price, Quantity: l.Quantity}
	}
	asks := make([]LevelView, len(f.Asks))
	for i, l := range f.Asks {
		asks[i] = LevelView{Price: l.Price, Quantity: l.Quantity}
	}
	return Response{Bids: bids, Asks: asks}
}
