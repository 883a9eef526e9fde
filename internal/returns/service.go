// Package returns derives invested capital, profit, period return and annualized
// yield from the ledger. Results are memoized until the ledger content changes.
package returns

import (
	"context"
	"fmt"
	"sync"

	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/store"
	"github.com/mtlprog/ledger/internal/valuation"
)

// DefaultBenchmark is the symbol the portfolio is compared against.
const DefaultBenchmark = "BTC"

// Store is the read side of the ledger used for returns.
type Store interface {
	ListSnapshots(ctx context.Context, filter store.SnapshotFilter) ([]domain.Snapshot, error)
	ListTransfers(ctx context.Context, filter store.TransferFilter) ([]domain.Transfer, error)
	ListPrices(ctx context.Context, filter store.PriceFilter) ([]domain.PriceRecord, error)
	Fingerprint(ctx context.Context) (store.Fingerprint, error)
}

// Report bundles every returns metric.
type Report struct {
	Transfers TransfersSummary `json:"transfers"`
	PnL       PnL              `json:"pnl"`
	Period    PeriodReturn     `json:"period"`
	Benchmark BenchmarkReturn  `json:"benchmark"`
}

// computed holds the metrics derived from one ledger fingerprint.
type computed struct {
	fingerprint store.Fingerprint
	firstDate   domain.Date
	book        *valuation.PriceBook
	transfers   TransfersSummary
	pnl         PnL
	period      PeriodReturn
}

// Service computes returns over the store.
type Service struct {
	store Store

	mu   sync.RWMutex
	memo *computed
}

// NewService creates a new returns Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// TransfersSummary totals every deposit and withdrawal.
func (s *Service) TransfersSummary(ctx context.Context) (TransfersSummary, error) {
	c, err := s.load(ctx)
	if err != nil {
		return TransfersSummary{}, err
	}
	return c.transfers, nil
}

// PnL compares the latest net worth with net invested capital.
func (s *Service) PnL(ctx context.Context) (PnL, error) {
	c, err := s.load(ctx)
	if err != nil {
		return PnL{}, err
	}
	return c.pnl, nil
}

// PeriodReturn returns the cash-flow adjusted return between the first and last snapshot.
func (s *Service) PeriodReturn(ctx context.Context) (PeriodReturn, error) {
	c, err := s.load(ctx)
	if err != nil {
		return PeriodReturn{}, err
	}
	return c.period, nil
}

// Benchmark returns the ROI of holding symbol since the first snapshot.
func (s *Service) Benchmark(ctx context.Context, symbol string) (BenchmarkReturn, error) {
	c, err := s.load(ctx)
	if err != nil {
		return BenchmarkReturn{}, err
	}
	return ComputeBenchmark(symbol, c.firstDate, c.book), nil
}

// Report returns all metrics, benchmarked against DefaultBenchmark.
func (s *Service) Report(ctx context.Context) (Report, error) {
	c, err := s.load(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Transfers: c.transfers,
		PnL:       c.pnl,
		Period:    c.period,
		Benchmark: ComputeBenchmark(DefaultBenchmark, c.firstDate, c.book),
	}, nil
}

func (s *Service) load(ctx context.Context) (*computed, error) {
	fp, err := s.store.Fingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading ledger fingerprint: %w", err)
	}

	s.mu.RLock()
	memo := s.memo
	s.mu.RUnlock()
	if memo != nil && memo.fingerprint == fp {
		return memo, nil
	}

	c, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	c.fingerprint = fp

	s.mu.Lock()
	s.memo = c
	s.mu.Unlock()
	return c, nil
}

func (s *Service) compute(ctx context.Context) (*computed, error) {
	snapshots, err := s.store.ListSnapshots(ctx, store.SnapshotFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}
	transfers, err := s.store.ListTransfers(ctx, store.TransferFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading transfers: %w", err)
	}
	prices, err := s.store.ListPrices(ctx, store.PriceFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading prices: %w", err)
	}

	book := valuation.NewPriceBook(prices)
	summary := SummarizeTransfers(transfers)

	var firstDate, lastDate domain.Date
	for _, snap := range snapshots {
		if firstDate.IsZero() || snap.Date.Before(firstDate) {
			firstDate = snap.Date
		}
		if snap.Date.After(lastDate) {
			lastDate = snap.Date
		}
	}
	netWorth := netWorthOn(lastDate, snapshots, book)

	var periodTransfers []domain.Transfer
	if first, last, ok := PeriodBounds(snapshots); ok {
		periodTransfers, err = s.store.ListTransfers(ctx, store.TransferFilter{After: &first.Date, Through: &last.Date})
		if err != nil {
			return nil, fmt.Errorf("loading period transfers: %w", err)
		}
	}

	return &computed{
		firstDate: firstDate,
		book:      book,
		transfers: summary,
		pnl:       ComputePnL(netWorth, summary.NetInvested),
		period:    ComputePeriodReturn(snapshots, periodTransfers, book),
	}, nil
}
