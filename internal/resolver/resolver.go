// Package resolver turns asset symbols into USD prices by walking an ordered
// retry and fallback plan over the configured sources.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/classifier"
	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/source"
)

// PriceStore persists resolved prices and lists the symbols that need them.
type PriceStore interface {
	UpsertPrices(ctx context.Context, prices []domain.PriceRecord) error
	DistinctSymbols(ctx context.Context) ([]string, error)
}

// Config holds the resolver timing.
type Config struct {
	RetryCount  int
	RetryDelay  time.Duration
	PacingDelay time.Duration
}

// DefaultConfig returns 3 attempts, a 2s retry delay and 0.5s between symbols.
func DefaultConfig() Config {
	return Config{
		RetryCount:  3,
		RetryDelay:  2 * time.Second,
		PacingDelay: 500 * time.Millisecond,
	}
}

// Resolver resolves and persists symbol prices.
type Resolver struct {
	store      PriceStore
	sources    Sources
	classifier *classifier.Classifier
	cfg        Config

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates a Resolver. A nil classifier uses the built-in symbol sets.
func New(store PriceStore, sources Sources, cls *classifier.Classifier, cfg Config) *Resolver {
	if cls == nil {
		cls = classifier.New(nil, nil)
	}
	return &Resolver{
		store:      store,
		sources:    sources,
		classifier: cls,
		cfg:        cfg,
		sleep:      sleepContext,
		now:        time.Now,
	}
}

// BatchOption adjusts a single ResolveBatch call.
type BatchOption func(*batchOptions)

type batchOptions struct {
	dryRun bool
}

// DryRun resolves prices without writing them.
func DryRun() BatchOption {
	return func(o *batchOptions) { o.dryRun = true }
}

// Resolve walks the plan for one symbol. It never returns an error; failures
// are reported on the outcome.
func (r *Resolver) Resolve(ctx context.Context, symbol string) *Outcome {
	symbol = domain.NormalizeSymbol(symbol)
	class := r.classifier.Classify(symbol)
	out := &Outcome{Symbol: symbol, Class: class, State: StateNotTried}

	if class == domain.AssetClassStablecoin {
		out.succeed(decimal.NewFromInt(1), domain.SourceFixed)
		return out
	}

	steps := Plan(class, r.sources, r.cfg.RetryCount)
	if len(steps) == 0 {
		out.fail("no source configured")
		return out
	}

	for i, step := range steps {
		if i > 0 {
			prev := steps[i-1]
			if prev.Source.Name() == step.Source.Name() {
				if err := r.sleep(ctx, r.cfg.RetryDelay); err != nil {
					out.fail(ReasonCancelled)
					return out
				}
			} else {
				out.State = StateExhausted
			}
		}
		if err := ctx.Err(); err != nil {
			out.fail(ReasonCancelled)
			return out
		}

		if out.State == StateExhausted || out.State == StateFallbackTrying {
			out.State = StateFallbackTrying
		} else {
			out.State = StateTrying
		}

		price, err := step.Source.FetchPrice(ctx, symbol)
		if err == nil {
			out.succeed(price, step.Source.Name())
			return out
		}

		f := source.AsFailure(step.Source.Name(), symbol, err)
		out.Attempts = append(out.Attempts, Attempt{
			Source:  f.Source,
			Attempt: step.Attempt,
			Kind:    f.Kind,
			Error:   f.Error(),
		})
		slog.Warn("Resolver: attempt failed",
			"symbol", symbol, "source", f.Source, "attempt", step.Attempt, "kind", f.Kind, "error", f.Err)

		if f.Kind == source.FailureCancelled {
			out.fail(ReasonCancelled)
			return out
		}
	}

	last := out.Attempts[len(out.Attempts)-1]
	out.fail(fmt.Sprintf("all sources failed, last: %s %s", last.Source, last.Kind))
	return out
}

// ResolveBatch resolves symbols one at a time, pacing between them, and persists
// every resolved price dated today in a single write. The returned mapping covers
// every requested symbol even when the write fails or the context is cancelled.
func (r *Resolver) ResolveBatch(ctx context.Context, symbols []string, opts ...BatchOption) (BatchResult, error) {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	symbols = normalizeSymbols(symbols)
	result := BatchResult{
		Prices:  make(map[string]*Outcome, len(symbols)),
		Symbols: symbols,
	}

	cancelled := false
	for i, symbol := range symbols {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}
		if cancelled {
			out := &Outcome{Symbol: symbol, Class: r.classifier.Classify(symbol)}
			out.fail(ReasonCancelled)
			result.Prices[symbol] = out
			continue
		}

		out := r.Resolve(ctx, symbol)
		result.Prices[symbol] = out
		if out.Reason == ReasonCancelled {
			cancelled = true
			continue
		}

		if i < len(symbols)-1 {
			if err := r.sleep(ctx, r.cfg.PacingDelay); err != nil {
				cancelled = true
			}
		}
	}

	records := make([]domain.PriceRecord, 0, len(symbols))
	today := domain.DateOf(r.now().UTC())
	for _, symbol := range symbols {
		out := result.Prices[symbol]
		if !out.Resolved() {
			result.Failed++
			continue
		}
		result.Resolved++
		records = append(records, domain.PriceRecord{
			Date:     today,
			Symbol:   symbol,
			PriceUSD: *out.Price,
			Source:   out.Source,
		})
	}

	slog.Info("Resolver: batch completed",
		"symbols", len(symbols), "resolved", result.Resolved, "failed", result.Failed,
		"cancelled", cancelled, "dry_run", o.dryRun)

	if o.dryRun || len(records) == 0 {
		return result, nil
	}
	// Prices resolved before a cancellation are still written.
	if err := r.store.UpsertPrices(context.WithoutCancel(ctx), records); err != nil {
		return result, fmt.Errorf("saving %d resolved prices: %w", len(records), err)
	}
	return result, nil
}

// SymbolsNeedingPrices returns the distinct symbols that appear in snapshots.
func (r *Resolver) SymbolsNeedingPrices(ctx context.Context) ([]string, error) {
	symbols, err := r.store.DistinctSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot symbols: %w", err)
	}
	return normalizeSymbols(symbols), nil
}

// SetManualPrice records an operator-supplied price for a symbol on a date.
func (r *Resolver) SetManualPrice(ctx context.Context, date domain.Date, symbol string, price decimal.Decimal) (domain.PriceRecord, error) {
	record := domain.PriceRecord{
		Date:     date,
		Symbol:   symbol,
		PriceUSD: price,
		Source:   domain.SourceManual,
	}
	record.Normalize()
	if err := record.Validate(); err != nil {
		return domain.PriceRecord{}, err
	}
	if err := r.store.UpsertPrices(ctx, []domain.PriceRecord{record}); err != nil {
		return domain.PriceRecord{}, fmt.Errorf("saving manual price for %s: %w", record.Symbol, err)
	}
	return record, nil
}

func normalizeSymbols(symbols []string) []string {
	normalized := lo.Map(symbols, func(s string, _ int) string { return domain.NormalizeSymbol(s) })
	return lo.Uniq(lo.Compact(normalized))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
