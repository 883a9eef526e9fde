package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// YahooName is the source label for prices from Yahoo Finance.
const YahooName = "yahoo"

var errNoData = errors.New("no price data")

// quoteFunc returns the latest price of a Yahoo Finance symbol.
type quoteFunc func(symbol string) (float64, error)

// YahooClient reads equity quotes from Yahoo Finance through go-yfinance.
// go-yfinance takes no context: ctx is checked before a quote starts, but a
// cancellation cannot interrupt a quote already in flight.
type YahooClient struct {
	quote quoteFunc
}

// NewYahooClient creates an equities quote client.
func NewYahooClient() *YahooClient {
	return &YahooClient{quote: yfinanceQuote}
}

func (c *YahooClient) Name() string { return YahooName }

// FetchPrice returns the regular market price, falling back to the last daily close.
func (c *YahooClient) FetchPrice(ctx context.Context, symbol string) (price decimal.Decimal, err error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, AsFailure(YahooName, symbol, err)
	}
	defer recoverFailure(YahooName, symbol, &err)

	p, qErr := c.quote(symbol)
	if qErr != nil {
		if errors.Is(qErr, errNoData) {
			return decimal.Zero, newFailure(YahooName, symbol, FailureUnknownSymbol, "%w", qErr)
		}
		return decimal.Zero, AsFailure(YahooName, symbol, qErr)
	}
	return checkPrice(YahooName, symbol, decimal.NewFromFloat(p))
}

func yfinanceQuote(symbol string) (float64, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return 0, fmt.Errorf("creating ticker: %w", err)
	}
	defer t.Close()

	if quote, err := t.Quote(); err == nil && quote != nil && quote.RegularMarketPrice > 0 {
		return quote.RegularMarketPrice, nil
	}

	bars, err := t.History(models.HistoryParams{
		Period:     "5d",
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return 0, fmt.Errorf("fetching history: %w", err)
	}
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Close > 0 {
			return bars[i].Close, nil
		}
	}
	return 0, errNoData
}
