package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// CoinGeckoName is the source label for prices from CoinGecko.
const CoinGeckoName = "coingecko"

// SymbolMapping maps ticker symbols to CoinGecko coin IDs.
var SymbolMapping = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
	"LTC":   "litecoin",
}

// CoinGeckoClient fetches USD prices from the CoinGecko simple price API.
type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewCoinGeckoClient creates a new CoinGecko API client. apiKey may be empty.
func NewCoinGeckoClient(baseURL, apiKey string) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

func (c *CoinGeckoClient) Name() string { return CoinGeckoName }

// FetchPrice returns the USD price of a mapped symbol. Unmapped symbols fail without a request.
func (c *CoinGeckoClient) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	coinID, ok := SymbolMapping[symbol]
	if !ok {
		return decimal.Zero, newFailure(CoinGeckoName, symbol, FailureUnknownSymbol, "no CoinGecko id mapping")
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, coinID)

	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": c.apiKey}
	}

	resp, err := get(ctx, c.httpClient, CoinGeckoName, symbol, endpoint, headers)
	if err != nil {
		return decimal.Zero, err
	}
	if resp.status != http.StatusOK {
		return decimal.Zero, statusFailure(CoinGeckoName, symbol, resp)
	}

	// Parse: {"bitcoin":{"usd":45000}}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(resp.body, &raw); err != nil {
		return decimal.Zero, newFailure(CoinGeckoName, symbol, FailureMalformed, "parsing CoinGecko response: %w", err)
	}

	prices, ok := raw[coinID]
	if !ok {
		return decimal.Zero, newFailure(CoinGeckoName, symbol, FailureUnknownSymbol, "coin %s missing from response", coinID)
	}
	usd, ok := prices["usd"]
	if !ok {
		return decimal.Zero, newFailure(CoinGeckoName, symbol, FailureMalformed, "coin %s has no usd price", coinID)
	}

	return checkPrice(CoinGeckoName, symbol, usd)
}
