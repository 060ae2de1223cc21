package console

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shawnlimjunhe/superliquid/future"
	"github.com/shawnlimjunhe/superliquid/rpc"
)

// dialWithRetry masks the startup race between srv.Serve's internal
// net.Listen and the test's Dial, since Serve only reports listen
// failures via its (otherwise unobserved) error return.
func dialWithRetry(t *testing.T, addr string) *Client {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		c, err := Dial(addr)
		if err == nil {
			return c
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial %s: %v", addr, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

const stubAddr = "127.0.0.1:17300"

// startStubServer runs a real rpc.Server on stubAddr backed by
// goroutines answering every future with a canned response, so Client
// is exercised against the genuine framed wire protocol without a full
// node/replica/ledger stack.
func startStubServer(t *testing.T) (addr string, stop func()) {
	t.Helper()

	createAccountFuture := make(chan *future.CreateAccount, 8)
	dripFuture := make(chan *future.Drip, 8)
	balanceFuture := make(chan *future.Balance, 8)
	marketsFuture := make(chan *future.Markets, 8)
	submitTxFuture := make(chan *future.SubmitTx, 8)
	execResultFuture := make(chan *future.ExecResult, 8)
	openOrdersFuture := make(chan *future.OpenOrders, 8)
	bookFuture := make(chan *future.Book, 8)

	srv := rpc.NewServer(&rpc.ServerContext{
		CreateAccountFuture: createAccountFuture,
		DripFuture:          dripFuture,
		BalanceFuture:       balanceFuture,
		MarketsFuture:       marketsFuture,
		SubmitTxFuture:      submitTxFuture,
		ExecResultFuture:    execResultFuture,
		OpenOrdersFuture:    openOrdersFuture,
		BookFuture:          bookFuture,
	})

	answering := make(chan struct{})
	go func() {
		for {
			select {
			case f := <-createAccountFuture:
				f.Respond(nil)
			case f := <-dripFuture:
				f.Respond(nil)
			case f := <-balanceFuture:
				f.Balances = map[string]uint64{"USD": 1000, "SUPE": 50}
				f.Respond(nil)
			case f := <-marketsFuture:
				f.Markets = []future.MarketView{{ID: 0, Base: 1, Quote: 0, TickSize: 1, LotSize: 1}}
				f.Respond(nil)
			case f := <-submitTxFuture:
				f.TxHash = "stub-hash"
				f.Respond(nil)
			case f := <-execResultFuture:
				f.OrderID = 7
				f.Fills = []future.FillSummary{{OrderID: 1, Price: 100, Quantity: 5}}
				f.Respond(nil)
			case f := <-openOrdersFuture:
				f.Respond(nil)
			case f := <-bookFuture:
				f.Respond(nil)
			case <-answering:
				return
			}
		}
	}()

	serveStopChan := make(chan struct{})
	go srv.Serve(stubAddr, serveStopChan)

	return stubAddr, func() {
		close(serveStopChan)
		close(answering)
	}
}

func TestClientCreateAccountDripAndBalances(t *testing.T) {
	addr, stop := startStubServer(t)
	defer stop()

	c := dialWithRetry(t, addr)
	defer c.Close()

	pk, err := c.CreateAccount()
	require.NoError(t, err)
	require.NotEmpty(t, pk)
	require.True(t, c.HasAccount())

	require.NoError(t, c.Drip("USD"))

	bals, err := c.Balances()
	require.NoError(t, err)
	require.Equal(t, uint64(1000), bals["USD"])
	require.Equal(t, uint64(50), bals["SUPE"])
}

func TestClientMarkets(t *testing.T) {
	addr, stop := startStubServer(t)
	defer stop()

	c := dialWithRetry(t, addr)
	defer c.Close()

	markets, err := c.Markets()
	require.NoError(t, err)
	require.Len(t, markets, 1)
	require.Equal(t, uint32(0), markets[0].ID)
}

func TestClientPlaceLimitReturnsFills(t *testing.T) {
	addr, stop := startStubServer(t)
	defer stop()

	c := dialWithRetry(t, addr)
	defer c.Close()
	_, err := c.CreateAccount()
	require.NoError(t, err)

	res, err := c.PlaceLimit(0, 0, 100, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(7), res.OrderID)
	require.Len(t, res.Fills, 1)
	require.Equal(t, uint64(100), res.Fills[0].Price)
}
