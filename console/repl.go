package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shawnlimjunhe/superliquid/mempool"
)

// Run drives the interactive command loop over in/out, grounded on
// original_source/src/console.rs's top-level command set (help,
// create, load, drip, query, transfer, markets, quit), generalized
// with order placement/cancellation commands instead of nesting them
// behind a market submenu.
func Run(c *Client, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "superliquid console. Type `help` for commands.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if err := dispatch(c, fields, out); err != nil {
			if err == errQuit {
				return
			}
			fmt.Fprintln(out, "error:", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func dispatch(c *Client, fields []string, out io.Writer) error {
	switch fields[0] {
	case "help":
		printHelp(out)
	case "create", "c":
		pk, err := c.CreateAccount()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "account created:", pk)
	case "load":
		if len(fields) != 3 {
			fmt.Fprintln(out, "usage: load <public-key> <secret-key>")
			return nil
		}
		c.LoadAccount(fields[1], fields[2])
		fmt.Fprintln(out, "account loaded:", fields[1])
	case "drip":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: drip <USD|SUPE>")
			return nil
		}
		if !c.HasAccount() {
			fmt.Fprintln(out, "create or load an account first")
			return nil
		}
		if err := c.Drip(strings.ToUpper(fields[1])); err != nil {
			return err
		}
		fmt.Fprintln(out, "drip submitted")
	case "balances", "query":
		if !c.HasAccount() {
			fmt.Fprintln(out, "create or load an account first")
			return nil
		}
		bals, err := c.Balances()
		if err != nil {
			return err
		}
		for asset, amount := range bals {
			fmt.Fprintf(out, "  %s: %d\n", asset, amount)
		}
	case "markets":
		markets, err := c.Markets()
		if err != nil {
			return err
		}
		for _, m := range markets {
			fmt.Fprintf(out, "  market %d: base=%d quote=%d tick=%d lot=%d\n",
				m.ID, m.Base, m.Quote, m.TickSize, m.LotSize)
		}
	case "book":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: book <market-id>")
			return nil
		}
		marketID, err := parseUint32(fields[1])
		if err != nil {
			return err
		}
		bids, asks, err := c.Book(marketID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "bids:")
		for _, l := range bids {
			fmt.Fprintf(out, "  %d @ %d\n", l.Quantity, l.Price)
		}
		fmt.Fprintln(out, "asks:")
		for _, l := range asks {
			fmt.Fprintf(out, "  %d @ %d\n", l.Quantity, l.Price)
		}
	case "open":
		if !c.HasAccount() {
			fmt.Fprintln(out, "create or load an account first")
			return nil
		}
		orders, err := c.OpenOrders()
		if err != nil {
			return err
		}
		for _, o := range orders {
			fmt.Fprintf(out, "  #%d market=%d side=%d price=%d qty=%d status=%d\n",
				o.OrderID, o.MarketID, o.Side, o.Price, o.Quantity, o.Status)
		}
	case "transfer":
		if len(fields) != 4 {
			fmt.Fprintln(out, "usage: transfer <to> <asset-id> <amount>")
			return nil
		}
		if !c.HasAccount() {
			fmt.Fprintln(out, "create or load an account first")
			return nil
		}
		asset, err := parseUint32(fields[2])
		if err != nil {
			return err
		}
		amount, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return err
		}
		res, err := c.Transfer(fields[1], asset, amount)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "transfer committed, tx:", res.TxHash)
	case "limit":
		return dispatchLimit(c, fields, out)
	case "market":
		return dispatchMarket(c, fields, out)
	case "cancel":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: cancel <order-id>")
			return nil
		}
		orderID, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return err
		}
		res, err := c.Cancel(orderID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "cancel committed, tx:", res.TxHash)
	case "quit", "q":
		return errQuit
	default:
		fmt.Fprintln(out, "unknown command. Type `help` for options.")
	}
	return nil
}

// dispatchLimit handles `limit buy|sell <market-id> <price> <qty>`.
func dispatchLimit(c *Client, fields []string, out io.Writer) error {
	if len(fields) != 5 {
		fmt.Fprintln(out, "usage: limit buy|sell <market-id> <price> <qty>")
		return nil
	}
	if !c.HasAccount() {
		fmt.Fprintln(out, "create or load an account first")
		return nil
	}
	side, err := parseSide(fields[1])
	if err != nil {
		return err
	}
	marketID, err := parseUint32(fields[2])
	if err != nil {
		return err
	}
	price, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return err
	}
	qty, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return err
	}
	res, err := c.PlaceLimit(marketID, side, price, qty)
	if err != nil {
		return err
	}
	printSubmitResult(out, res)
	return nil
}

// dispatchMarket handles `market buy|sell <market-id> <qty>`.
func dispatchMarket(c *Client, fields []string, out io.Writer) error {
	if len(fields) != 4 {
		fmt.Fprintln(out, "usage: market buy|sell <market-id> <qty>")
		return nil
	}
	if !c.HasAccount() {
		fmt.Fprintln(out, "create or load an account first")
		return nil
	}
	side, err := parseSide(fields[1])
	if err != nil {
		return err
	}
	marketID, err := parseUint32(fields[2])
	if err != nil {
		return err
	}
	qty, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return err
	}
	res, err := c.PlaceMarket(marketID, side, qty)
	if err != nil {
		return err
	}
	printSubmitResult(out, res)
	return nil
}

func printSubmitResult(out io.Writer, res SubmitResult) {
	fmt.Fprintf(out, "order #%d committed, tx: %s\n", res.OrderID, res.TxHash)
	for _, f := range res.Fills {
		fmt.Fprintf(out, "  fill: %d @ %d\n", f.Quantity, f.Price)
	}
}

func parseSide(s string) (mempool.Side, error) {
	switch s {
	case "buy":
		return mempool.Bid, nil
	case "sell":
		return mempool.Ask, nil
	default:
		return 0, fmt.Errorf("side must be buy or sell, got %q", s)
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "  create, c                        creates a new account keypair")
	fmt.Fprintln(out, "  load <pk> <sk>                   loads an existing keypair")
	fmt.Fprintln(out, "  drip <USD|SUPE>                  requests faucet funds")
	fmt.Fprintln(out, "  balances                         shows balances")
	fmt.Fprintln(out, "  markets                          lists markets")
	fmt.Fprintln(out, "  book <market-id>                 shows a market's order book")
	fmt.Fprintln(out, "  open                             shows open orders")
	fmt.Fprintln(out, "  transfer <to> <asset-id> <amt>   transfers a balance")
	fmt.Fprintln(out, "  limit buy|sell <mkt> <px> <qty>  places a limit order")
	fmt.Fprintln(out, "  market buy|sell <mkt> <qty>      places a market order")
	fmt.Fprintln(out, "  cancel <order-id>                cancels an order")
	fmt.Fprintln(out, "  quit, q                          exits the console")
}
