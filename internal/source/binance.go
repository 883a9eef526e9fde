package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// BinanceName is the source label for prices from the Binance spot ticker.
const BinanceName = "binance"

// binanceInvalidSymbol is the Binance API error code for an unknown trading pair.
const binanceInvalidSymbol = -1121

// BinanceClient reads last-trade prices for SYMBOL/USDT pairs from the Binance public API.
type BinanceClient struct {
	baseURL    string
	quote      string
	httpClient *http.Client
}

// NewBinanceClient creates a Binance ticker client quoting against USDT.
func NewBinanceClient(baseURL string) *BinanceClient {
	return &BinanceClient{
		baseURL:    baseURL,
		quote:      "USDT",
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

func (c *BinanceClient) Name() string { return BinanceName }

// FetchPrice returns the last price of the symbol against USDT.
func (c *BinanceClient) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := symbol + c.quote
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(pair))

	resp, err := get(ctx, c.httpClient, BinanceName, symbol, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}

	switch resp.status {
	case http.StatusOK:
	case http.StatusTeapot: // IP auto-banned after ignoring 429s
		return decimal.Zero, newFailure(BinanceName, symbol, FailureRateLimited, "HTTP 418: %s", truncate(resp.body))
	case http.StatusBadRequest:
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(resp.body, &apiErr) == nil && apiErr.Code == binanceInvalidSymbol {
			return decimal.Zero, newFailure(BinanceName, symbol, FailureUnknownSymbol, "pair %s: %s", pair, apiErr.Msg)
		}
		return decimal.Zero, statusFailure(BinanceName, symbol, resp)
	default:
		return decimal.Zero, statusFailure(BinanceName, symbol, resp)
	}

	// {"symbol":"BTCUSDT","price":"43000.12000000"}
	var ticker struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(resp.body, &ticker); err != nil {
		return decimal.Zero, newFailure(BinanceName, symbol, FailureMalformed, "parsing ticker: %w", err)
	}
	if ticker.Symbol != "" && ticker.Symbol != pair {
		return decimal.Zero, newFailure(BinanceName, symbol, FailureMalformed, "ticker for %s, want %s", ticker.Symbol, pair)
	}

	return checkPrice(BinanceName, symbol, ticker.Price)
}
