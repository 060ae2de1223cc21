package ledger

import "github.com/shawnlimjunhe/superliquid/exchange"

// The genesis asset and market roster is fixed across every replica —
// every node constructs the identical set at boot, the way
// go-ultiledger's CreateMasterAccount derives its native asset
// deterministically from the network ID rather than from any runtime
// input.
const (
	USD exchange.AssetID = 0
	SUPE exchange.AssetID = 1

	SupeUsdMarket exchange.MarketID = 0
)

// dripAmounts are the fixed per-asset mint amounts for the drip faucet
// transaction, grounded on spec.md §8 scenarios S2/S3 (USD funds a
// buyer's quote balance, SUPE funds a seller's base balance).
var dripAmounts = map[string]struct {
	asset  exchange.AssetID
	amount uint64
}{
	"USD":  {USD, 1_000_000},
	"SUPE": {SUPE, 100},
}

func genesisAssets() []exchange.Asset {
	return []exchange.Asset{
		{ID: USD, Symbol: "USD"},
		{ID: SUPE, Symbol: "SUPE"},
	}
}

func genesisMarkets() []*exchange.Market {
	return []*exchange.Market{
		{ID: SupeUsdMarket, Base: SUPE, Quote: USD, TickSize: 1, LotSize: 1},
	}
}
