// Package console implements an interactive client for the rpc
// protocol: create or load a keypair, request faucet funds, place and
// cancel orders, and inspect balances/markets/books, grounded on
// original_source/src/console.rs's command set and re-pointed from its
// async tokio REPL at a blocking net.Conn and bufio.Scanner, the way
// go-ultiledger's client.Client wraps a single long-lived connection.
package console

import (
	"fmt"
	"net"

	"github.com/shawnlimjunhe/superliquid/crypto"
	"github.com/shawnlimjunhe/superliquid/mempool"
	"github.com/shawnlimjunhe/superliquid/rpc"
	"github.com/shawnlimjunhe/superliquid/wire"
)

// Client holds the single connection to a node's RPC server and the
// currently loaded account, if any.
type Client struct {
	conn net.Conn

	pk, sk string
	nonce  uint64
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(req rpc.Request) (rpc.Response, error) {
	if err := wire.WriteFrame(c.conn, rpc.EncodeRequest(req)); err != nil {
		return rpc.Response{}, err
	}
	raw, err := wire.ReadFrame(c.conn)
	if err != nil {
		return rpc.Response{}, err
	}
	return rpc.DecodeResponse(raw)
}

// HasAccount reports whether a keypair is currently loaded.
func (c *Client) HasAccount() bool { return c.pk != "" }

func (c *Client) PublicKey() string { return c.pk }

// CreateAccount generates a fresh keypair, loads it, and registers it
// with the node as an account with no balances. Balance and open-order
// queries answer the same (empty) for a key that was never registered.
func (c *Client) CreateAccount() (string, error) {
	pk, sk, err := crypto.GetAccountKeypair()
	if err != nil {
		return "", err
	}
	c.pk, c.sk, c.nonce = pk, sk, 0

	resp, err := c.call(rpc.Request{Cmd: rpc.CmdCreateAccount, PublicKey: pk})
	if err != nil {
		return "", err
	}
	if resp.Err != "" {
		return "", fmt.Errorf("%s", resp.Err)
	}
	return pk, nil
}

// LoadAccount loads an existing keypair (public key and seed) so the
// console can sign on its behalf. The public key is taken as given; it
// is not derived from or checked against the seed.
func (c *Client) LoadAccount(pk, sk string) {
	c.pk, c.sk, c.nonce = pk, sk, 0
}

func (c *Client) Drip(asset string) error {
	resp, err := c.call(rpc.Request{Cmd: rpc.CmdDrip, Asset: asset, Dest: c.pk})
	if err != nil {
		return err
	}
	if resp.Err != "" {
		return fmt.Errorf("%s", resp.Err)
	}
	return nil
}

func (c *Client) Balances() (map[string]uint64, error) {
	resp, err := c.call(rpc.Request{Cmd: rpc.CmdQueryBalance, PublicKey: c.pk})
	if err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("%s", resp.Err)
	}
	return resp.Balances, nil
}

func (c *Client) Markets() ([]rpc.MarketView, error) {
	resp, err := c.call(rpc.Request{Cmd: rpc.CmdListMarkets})
	if err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("%s", resp.Err)
	}
	return resp.Markets, nil
}

func (c *Client) Book(marketID uint32) (bids, asks []rpc.LevelView, err error) {
	resp, err := c.call(rpc.Request{Cmd: rpc.CmdQueryBook, MarketID: marketID})
	if err != nil {
		return nil, nil, err
	}
	if resp.Err != "" {
		return nil, nil, fmt.Errorf("%s", resp.Err)
	}
	return resp.Bids, resp.Asks, nil
}

func (c *Client) OpenOrders() ([]rpc.OrderView, error) {
	resp, err := c.call(rpc.Request{Cmd: rpc.CmdQueryOpenOrders, PublicKey: c.pk})
	if err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("%s", resp.Err)
	}
	return resp.OpenOrders, nil
}

// SubmitResult is what every order/transfer/cancel submission reports
// back once the containing block has committed.
type SubmitResult struct {
	TxHash  string
	OrderID uint64
	Fills   []rpc.FillView
}

func (c *Client) submit(tx *mempool.Transaction) (SubmitResult, error) {
	tx.Nonce = c.nonce
	if err := tx.Sign(c.sk); err != nil {
		return SubmitResult{}, err
	}
	w := wire.NewWriter()
	tx.EncodeWire(w)

	resp, err := c.call(rpc.Request{Cmd: rpc.CmdSubmitTx, RawTx: w.Bytes()})
	if err != nil {
		return SubmitResult{}, err
	}
	c.nonce++
	if resp.Err != "" {
		return SubmitResult{TxHash: resp.TxHash}, fmt.Errorf("%s", resp.Err)
	}
	return SubmitResult{TxHash: resp.TxHash, OrderID: resp.OrderID, Fills: resp.Fills}, nil
}

func (c *Client) Transfer(recipient string, asset uint32, amount uint64) (SubmitResult, error) {
	return c.submit(&mempool.Transaction{
		Sender: c.pk,
		Kind:   mempool.KindTransfer,
		Transfer: &mempool.TransferPayload{
			Recipient: recipient, Asset: asset, Amount: amount,
		},
	})
}

func (c *Client) PlaceLimit(marketID uint32, side mempool.Side, price, qty uint64) (SubmitResult, error) {
	return c.submit(&mempool.Transaction{
		Sender: c.pk,
		Kind:   mempool.KindPlaceLimit,
		PlaceLimit: &mempool.PlaceLimitPayload{
			MarketID: marketID, Side: side, Price: price, Quantity: qty,
		},
	})
}

func (c *Client) PlaceMarket(marketID uint32, side mempool.Side, qty uint64) (SubmitResult, error) {
	return c.submit(&mempool.Transaction{
		Sender: c.pk,
		Kind:   mempool.KindPlaceMarket,
		PlaceMarket: &mempool.PlaceMarketPayload{
			MarketID: marketID, Side: side, Quantity: qty,
		},
	})
}

func (c *Client) Cancel(orderID uint64) (SubmitResult, error) {
	return c.submit(&mempool.Transaction{
		Sender: c.pk,
		Kind:   mempool.KindCancel,
		Cancel: &mempool.CancelPayload{OrderID: orderID},
	})
}
