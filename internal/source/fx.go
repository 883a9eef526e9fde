package source

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const baseCurrency = "USD"

// FXClient resolves USD to target-currency rates. It never fails the caller:
// USD, unknown codes and fetch failures all yield a rate of 1.
type FXClient struct {
	quote quoteFunc
	cache *rateCache
}

// NewFXClient creates an FX client backed by Yahoo Finance currency pairs.
func NewFXClient(cacheTTL time.Duration) *FXClient {
	return &FXClient{
		quote: yfinanceQuote,
		cache: newRateCache(cacheTTL),
	}
}

// FetchRate returns how many units of currency one USD buys. Like YahooClient,
// ctx only gates the start of a fetch.
func (c *FXClient) FetchRate(ctx context.Context, currency string) decimal.Decimal {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == baseCurrency {
		return decimal.NewFromInt(1)
	}
	if rate, ok := c.cache.get(currency); ok {
		return rate
	}

	rate, err := c.fetch(ctx, currency)
	if err != nil {
		slog.Warn("FX rate unavailable, using 1.0", "currency", currency, "error", err)
		return decimal.NewFromInt(1)
	}

	c.cache.set(currency, rate)
	return rate
}

func (c *FXClient) fetch(ctx context.Context, currency string) (rate decimal.Decimal, err error) {
	pair := baseCurrency + currency + "=X"
	if err := ctx.Err(); err != nil {
		return decimal.Zero, AsFailure("fx", pair, err)
	}
	defer recoverFailure("fx", pair, &err)

	p, err := c.quote(pair)
	if err != nil {
		return decimal.Zero, AsFailure("fx", pair, err)
	}
	return checkPrice("fx", pair, decimal.NewFromFloat(p))
}

type rateEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

type rateCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]rateEntry
}

func newRateCache(ttl time.Duration) *rateCache {
	return &rateCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]rateEntry),
	}
}

func (c *rateCache) get(key string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return decimal.Zero, false
	}
	return entry.rate, true
}

func (c *rateCache) set(key string, rate decimal.Decimal) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = rateEntry{
		rate:      rate,
		expiresAt: c.now().Add(c.ttl),
	}
}
