// Package valuation prices snapshot positions as of their date and aggregates them
// into net worth, per-symbol and per-account totals and a net worth history.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/store"
)

// Store is the read side of the ledger used for valuation.
type Store interface {
	ListSnapshots(ctx context.Context, filter store.SnapshotFilter) ([]domain.Snapshot, error)
	ListPrices(ctx context.Context, filter store.PriceFilter) ([]domain.PriceRecord, error)
	ListTransfers(ctx context.Context, filter store.TransferFilter) ([]domain.Transfer, error)
	LatestSnapshotDate(ctx context.Context) (domain.Date, error)
}

// Service computes valuations from stored facts.
type Service struct {
	store Store
}

// NewService creates a new valuation Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ValueOnDate values the snapshots recorded on date.
func (s *Service) ValueOnDate(ctx context.Context, date domain.Date) (Valuation, error) {
	snapshots, err := s.store.ListSnapshots(ctx, store.SnapshotFilter{Date: &date})
	if err != nil {
		return Valuation{}, fmt.Errorf("loading snapshots for %s: %w", date, err)
	}
	prices, err := s.store.ListPrices(ctx, store.PriceFilter{UpTo: &date})
	if err != nil {
		return Valuation{}, fmt.Errorf("loading prices up to %s: %w", date, err)
	}
	return Evaluate(date, snapshots, NewPriceBook(prices)), nil
}

// Current values the latest snapshot date. An empty ledger yields a zero valuation with no date.
func (s *Service) Current(ctx context.Context) (Valuation, error) {
	latest, err := s.store.LatestSnapshotDate(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Evaluate(domain.Date{}, nil, NewPriceBook(nil)), nil
		}
		return Valuation{}, fmt.Errorf("getting latest snapshot date: %w", err)
	}
	return s.ValueOnDate(ctx, latest)
}

// History returns the net worth on every snapshot date in ascending order.
func (s *Service) History(ctx context.Context) ([]HistoryPoint, error) {
	snapshots, err := s.store.ListSnapshots(ctx, store.SnapshotFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}
	prices, err := s.store.ListPrices(ctx, store.PriceFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading prices: %w", err)
	}
	return HistoryOf(snapshots, NewPriceBook(prices)), nil
}

// HistoryOf values every distinct snapshot date in snapshots.
func HistoryOf(snapshots []domain.Snapshot, book *PriceBook) []HistoryPoint {
	byDate := lo.GroupBy(snapshots, func(s domain.Snapshot) domain.Date { return s.Date })
	dates := lo.Keys(byDate)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return lo.Map(dates, func(d domain.Date, _ int) HistoryPoint {
		return HistoryPoint{Date: d, NetWorth: Evaluate(d, byDate[d], book).NetWorth}
	})
}

// MissingPosition is a snapshot position with no price on or before its date.
type MissingPosition struct {
	Date    domain.Date `json:"date"`
	Symbol  string      `json:"symbol"`
	Account string      `json:"account"`
}

// Diagnostics summarizes the ledger contents and its pricing gaps.
type Diagnostics struct {
	Snapshots        int               `json:"snapshots"`
	Dates            int               `json:"dates"`
	Symbols          int               `json:"symbols"`
	Accounts         int               `json:"accounts"`
	PriceRecords     int               `json:"priceRecords"`
	Transfers        int               `json:"transfers"`
	TotalDeposits    decimal.Decimal   `json:"totalDeposits"`
	TotalWithdrawals decimal.Decimal   `json:"totalWithdrawals"`
	MissingPrices    []MissingPosition `json:"missingPrices"`
}

// Diagnose reports counts and every position that would be valued at zero.
func (s *Service) Diagnose(ctx context.Context) (Diagnostics, error) {
	snapshots, err := s.store.ListSnapshots(ctx, store.SnapshotFilter{})
	if err != nil {
		return Diagnostics{}, fmt.Errorf("loading snapshots: %w", err)
	}
	prices, err := s.store.ListPrices(ctx, store.PriceFilter{})
	if err != nil {
		return Diagnostics{}, fmt.Errorf("loading prices: %w", err)
	}
	transfers, err := s.store.ListTransfers(ctx, store.TransferFilter{})
	if err != nil {
		return Diagnostics{}, fmt.Errorf("loading transfers: %w", err)
	}
	return DiagnoseOf(snapshots, prices, transfers), nil
}

// DiagnoseOf builds Diagnostics from already loaded facts.
func DiagnoseOf(snapshots []domain.Snapshot, prices []domain.PriceRecord, transfers []domain.Transfer) Diagnostics {
	book := NewPriceBook(prices)
	deposits, withdrawals := domain.SumTransfers(transfers)

	missing := lo.FilterMap(snapshots, func(s domain.Snapshot, _ int) (MissingPosition, bool) {
		_, ok := book.AsOf(s.Symbol, s.Date)
		return MissingPosition{Date: s.Date, Symbol: domain.NormalizeSymbol(s.Symbol), Account: s.AccountName}, !ok
	})
	sort.SliceStable(missing, func(i, j int) bool {
		if c := missing[i].Date.Compare(missing[j].Date); c != 0 {
			return c < 0
		}
		if missing[i].Symbol != missing[j].Symbol {
			return missing[i].Symbol < missing[j].Symbol
		}
		return missing[i].Account < missing[j].Account
	})

	return Diagnostics{
		Snapshots:        len(snapshots),
		Dates:            len(lo.UniqBy(snapshots, func(s domain.Snapshot) domain.Date { return s.Date })),
		Symbols:          len(lo.UniqBy(snapshots, func(s domain.Snapshot) string { return domain.NormalizeSymbol(s.Symbol) })),
		Accounts:         len(lo.UniqBy(snapshots, func(s domain.Snapshot) string { return s.AccountName })),
		PriceRecords:     len(prices),
		Transfers:        len(transfers),
		TotalDeposits:    deposits,
		TotalWithdrawals: withdrawals,
		MissingPrices:    missing,
	}
}
