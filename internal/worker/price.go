package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mtlprog/ledger/internal/resolver"
)

// BatchResolver resolves prices for every symbol held in snapshots.
type BatchResolver interface {
	SymbolsNeedingPrices(ctx context.Context) ([]string, error)
	ResolveBatch(ctx context.Context, symbols []string, opts ...resolver.BatchOption) (resolver.BatchResult, error)
}

// AfterUpdateHook is called after each successful price update.
type AfterUpdateHook interface {
	Export(ctx context.Context) error
}

// PriceWorker refreshes today's prices on a cron schedule.
type PriceWorker struct {
	resolver   BatchResolver
	schedule   cron.Schedule
	spec       string
	runOnStart bool
	hook       AfterUpdateHook // optional
}

// NewPriceWorker creates a PriceWorker for a standard 5-field cron spec or a descriptor
// such as "@hourly" or "@every 6h".
func NewPriceWorker(r BatchResolver, spec string, runOnStart bool, hook AfterUpdateHook) (*PriceWorker, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing price schedule %q: %w", spec, err)
	}
	return &PriceWorker{
		resolver:   r,
		schedule:   schedule,
		spec:       spec,
		runOnStart: runOnStart,
		hook:       hook,
	}, nil
}

// Run starts the scheduler. It blocks until the context is cancelled and waits for a
// running update to finish. Overlapping runs are skipped.
func (w *PriceWorker) Run(ctx context.Context) {
	slog.Info("PriceWorker: starting", "schedule", w.spec)

	if w.runOnStart {
		w.update(ctx)
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(w.schedule, cron.FuncJob(func() { w.update(ctx) }))
	c.Start()

	<-ctx.Done()
	slog.Info("PriceWorker: shutting down")
	<-c.Stop().Done()
}

// update resolves every snapshot symbol once.
func (w *PriceWorker) update(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	symbols, err := w.resolver.SymbolsNeedingPrices(ctx)
	if err != nil {
		slog.Error("PriceWorker: listing symbols failed", "error", err)
		return
	}
	if len(symbols) == 0 {
		slog.Info("PriceWorker: no symbols to price")
		return
	}

	result, err := w.resolver.ResolveBatch(ctx, symbols)
	if err != nil {
		slog.Error("PriceWorker: update failed", "error", err)
		return
	}
	slog.Info("PriceWorker: update completed", "resolved", result.Resolved, "failed", result.Failed)
	w.runHook(ctx)
}

// runHook calls the post-update hook if one is configured.
func (w *PriceWorker) runHook(ctx context.Context) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx); err != nil {
		slog.Error("PriceWorker: export hook failed", "error", err)
	} else {
		slog.Info("PriceWorker: export hook completed")
	}
}

// cronLogger forwards cron's internal logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("PriceWorker: cron "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("PriceWorker: cron "+msg, append(keysAndValues, "error", err)...)
}
