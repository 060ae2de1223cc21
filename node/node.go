package node

import (
	"errors"
	"sync"

	"github.com/shawnlimjunhe/superliquid/consensus"
	"github.com/shawnlimjunhe/superliquid/future"
	"github.com/shawnlimjunhe/superliquid/ledger"
	"github.com/shawnlimjunhe/superliquid/log"
	"github.com/shawnlimjunhe/superliquid/mempool"
	"github.com/shawnlimjunhe/superliquid/peer"
	"github.com/shawnlimjunhe/superliquid/rpc"
	"github.com/shawnlimjunhe/superliquid/wire"
)

var errRejected = errors.New("node: transaction rejected by mempool")

// Node is the central controller for one replica: it owns the
// consensus replica, mempool, ledger, peer gossip and the client RPC
// server, and runs the two event loops that move messages between
// them. Grounded on go-ultiledger's node.Node, generalized from its
// single txFuture/accountFuture/ledgerFuture set to this domain's
// wider future roster.
type Node struct {
	cfg *Config

	lm *ledger.Manager
	mp *mempool.Mempool
	rm *consensus.Replica
	pm *peer.Manager
	rs *rpc.Server

	stopChan chan struct{}

	createAccountFuture chan *future.CreateAccount
	dripFuture          chan *future.Drip
	balanceFuture       chan *future.Balance
	marketsFuture       chan *future.Markets
	submitTxFuture      chan *future.SubmitTx
	execResultFuture    chan *future.ExecResult
	openOrdersFuture    chan *future.OpenOrders
	bookFuture          chan *future.Book
}

// NewNode constructs every subcomponent and wires their channels
// together, but starts nothing yet.
func NewNode(cfg *Config) *Node {
	lm := ledger.NewManager()

	mp := mempool.New(lm)
	rm := consensus.NewReplica(cfg.Shared, cfg.ValidatorID, cfg.Shared.SecretKeys[cfg.ValidatorID], mp, lm)
	pm := peer.NewManager(cfg.ValidatorID, cfg.PeerListen, cfg.PeerAddrs)

	n := &Node{
		cfg:      cfg,
		lm:       lm,
		mp:       mp,
		rm:       rm,
		pm:       pm,
		stopChan: make(chan struct{}),

		createAccountFuture: make(chan *future.CreateAccount, 64),
		dripFuture:          make(chan *future.Drip, 64),
		balanceFuture:       make(chan *future.Balance, 64),
		marketsFuture:       make(chan *future.Markets, 64),
		submitTxFuture:      make(chan *future.SubmitTx, 64),
		execResultFuture:    make(chan *future.ExecResult, 64),
		openOrdersFuture:    make(chan *future.OpenOrders, 64),
		bookFuture:          make(chan *future.Book, 64),
	}

	serverCtx := &rpc.ServerContext{
		CreateAccountFuture: n.createAccountFuture,
		DripFuture:          n.dripFuture,
		BalanceFuture:       n.balanceFuture,
		MarketsFuture:       n.marketsFuture,
		SubmitTxFuture:      n.submitTxFuture,
		ExecResultFuture:    n.execResultFuture,
		OpenOrdersFuture:    n.openOrdersFuture,
		BookFuture:          n.bookFuture,
	}
	n.rs = rpc.NewServer(serverCtx)

	return n
}

// Start boots every subcomponent's goroutines and the node's own event
// loops. Genesis bootstrap (faucet funding) runs identically on every
// replica so consensus never needs to agree on it.
func (n *Node) Start() {
	n.lm.Bootstrap(n.cfg.Shared)

	if err := n.pm.Start(n.stopChan); err != nil {
		log.Fatalf("node %d: failed to start peer manager: %v", n.cfg.ValidatorID, err)
	}
	n.rm.Start()

	go n.consensusLoop()
	go n.rpcLoop()

	go func() {
		if err := n.rs.Serve(n.cfg.RPCListen, n.stopChan); err != nil {
			log.Errorf("node %d: rpc server stopped: %v", n.cfg.ValidatorID, err)
		}
	}()
}

func (n *Node) Stop() {
	close(n.stopChan)
	n.rm.Stop()
}

// consensusLoop drains inbound peer messages into the replica and
// drains the replica's outbound messages back out to peers.
func (n *Node) consensusLoop() {
	for {
		select {
		case in := <-n.pm.In:
			n.handleInbound(in)
		case out := <-n.rm.Out:
			n.handleOutbound(out)
		case <-n.stopChan:
			return
		}
	}
}

func (n *Node) handleInbound(in peer.Inbound) {
	switch {
	case in.Msg.Proposal != nil:
		if err := n.rm.HandleProposal(in.Msg.Proposal.Block); err != nil {
			log.Debugw("node: rejected proposal", "from", in.From, "err", err)
		}
	case in.Msg.Vote != nil:
		n.rm.HandleVote(in.Msg.Vote)
	case in.Msg.NewView != nil:
		n.rm.HandleNewView(in.Msg.NewView)
	case in.Msg.ClientTx != nil:
		n.admitRawTx(in.Msg.ClientTx, false)
	}
}

func (n *Node) handleOutbound(out consensus.OutboundMsg) {
	msg := peer.Message{Vote: out.Vote, Proposal: out.Proposal, NewView: out.NewView}
	if out.To != nil {
		n.pm.SendTo(*out.To, msg)
		return
	}
	n.pm.Broadcast(msg)
}

// rpcLoop services every future the RPC server hands in, plus the
// ledger's per-commit Results stream used to resolve pending
// ExecResult futures by transaction hash.
func (n *Node) rpcLoop() {
	pending := make(map[string]*future.ExecResult)
	var pendingMu sync.Mutex

	go func() {
		for {
			select {
			case res := <-n.lm.Results:
				pendingMu.Lock()
				f, ok := pending[res.TxHash]
				if ok {
					delete(pending, res.TxHash)
				}
				pendingMu.Unlock()
				if !ok {
					continue
				}
				f.OrderID = res.OrderID
				for _, fill := range res.Fills {
					f.Fills = append(f.Fills, future.FillSummary{
						OrderID:  fill.MakerOrderID,
						Price:    fill.Price,
						Quantity: fill.Quantity,
					})
				}
				f.Respond(res.Err)
			case <-n.stopChan:
				return
			}
		}
	}()

	for {
		select {
		case f := <-n.createAccountFuture:
			n.lm.EnsureAccount(f.PublicKey)
			f.Respond(nil)

		case f := <-n.dripFuture:
			n.lm.EnsureAccount(f.Destination)
			tx, err := n.signFaucetTx(f.Destination, f.Asset)
			if err != nil {
				f.Respond(err)
				continue
			}
			if outcome := n.mp.Admit(tx); outcome == mempool.Rejected {
				f.Respond(errRejected)
				continue
			}
			n.broadcastClientTx(tx)
			f.Respond(nil)

		case f := <-n.balanceFuture:
			f.Balances = make(map[string]uint64)
			for asset, amount := range n.lm.Balances(f.PublicKey) {
				f.Balances[symbolOf(asset)] = amount
			}
			f.Respond(nil)

		case f := <-n.marketsFuture:
			for _, m := range n.lm.Clearinghouse().ListMarkets() {
				f.Markets = append(f.Markets, future.MarketView{
					ID: m.ID, Base: m.Base, Quote: m.Quote, TickSize: m.TickSize, LotSize: m.LotSize,
				})
			}
			f.Respond(nil)

		case f := <-n.submitTxFuture:
			tx, err := n.admitRawTx(f.RawTx, true)
			if err != nil {
				f.Respond(err)
				continue
			}
			f.TxHash = tx.Hash()
			f.Respond(nil)

		case f := <-n.execResultFuture:
			pendingMu.Lock()
			pending[f.TxHash] = f
			pendingMu.Unlock()

		case f := <-n.openOrdersFuture:
			for _, o := range n.lm.Clearinghouse().OpenOrdersFor(f.PublicKey) {
				f.Orders = append(f.Orders, future.OrderView{
					OrderID: o.ID, MarketID: o.MarketID, Side: uint8(o.Side),
					Price: o.Price, Quantity: o.Remaining, Status: uint8(o.Status),
				})
			}
			f.Respond(nil)

		case f := <-n.bookFuture:
			bids, asks, err := n.lm.Clearinghouse().BookSnapshot(f.MarketID)
			if err != nil {
				f.Respond(err)
				continue
			}
			for _, o := range bids {
				f.Bids = append(f.Bids, future.BookLevel{Price: o.Price, Quantity: o.Remaining})
			}
			for _, o := range asks {
				f.Asks = append(f.Asks, future.BookLevel{Price: o.Price, Quantity: o.Remaining})
			}
			f.Respond(nil)

		case <-n.stopChan:
			return
		}
	}
}

// admitRawTx decodes raw into a transaction, verifies and admits it to
// the local mempool, and — unless local is false, meaning raw already
// arrived via peer gossip — rebroadcasts it so every other replica's
// mempool can pick it up too, since only whichever replica leads the
// next view actually drains it into a proposal.
func (n *Node) admitRawTx(raw []byte, local bool) (*mempool.Transaction, error) {
	tx, err := mempool.DecodeTransaction(wire.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if n.mp.Admit(tx) == mempool.Rejected {
		return nil, errRejected
	}
	if local {
		n.broadcastClientTx(tx)
	}
	return tx, nil
}

func (n *Node) broadcastClientTx(tx *mempool.Transaction) {
	w := wire.NewWriter()
	tx.EncodeWire(w)
	n.pm.Broadcast(peer.Message{ClientTx: w.Bytes()})
}

// signFaucetTx builds and signs a Drip transaction on the faucet's
// behalf — the faucet key never leaves the node, so a client can mint
// test funds without ever holding FAUCET_SK itself.
func (n *Node) signFaucetTx(dest, asset string) (*mempool.Transaction, error) {
	faucetPK := n.cfg.Shared.FaucetPK
	tx := &mempool.Transaction{
		Sender: faucetPK,
		Nonce:  n.lm.NextExpectedNonce(faucetPK),
		Class:  mempool.Urgent,
		Kind:   mempool.KindDrip,
		Drip:   &mempool.DripPayload{Asset: asset, Destination: dest},
	}
	if err := tx.Sign(n.cfg.Shared.FaucetSK); err != nil {
		return nil, err
	}
	return tx, nil
}

func symbolOf(asset uint32) string {
	switch asset {
	case ledger.USD:
		return "USD"
	case ledger.SUPE:
		return "SUPE"
	default:
		return "UNKNOWN"
	}
}
