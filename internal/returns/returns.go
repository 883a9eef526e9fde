package returns

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/valuation"
)

// HoursPerYear is the length of a Julian year in hours.
const HoursPerYear = 365.25 * 24

// TransfersSummary totals external cash movements.
type TransfersSummary struct {
	TotalDeposits    decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals decimal.Decimal `json:"totalWithdrawals"`
	NetInvested      decimal.Decimal `json:"netInvested"`
}

// PnL compares current net worth with the net amount invested.
type PnL struct {
	CurrentNetWorth decimal.Decimal `json:"currentNetWorth"`
	NetInvested     decimal.Decimal `json:"netInvested"`
	UnrealizedPnL   decimal.Decimal `json:"unrealizedPnl"`
	ROIPercent      decimal.Decimal `json:"roiPercent"`
}

// PeriodReturn is the cash-flow adjusted return between the first and last snapshot.
type PeriodReturn struct {
	HasData           bool            `json:"hasData"`
	StartDate         domain.Date     `json:"startDate"`
	EndDate           domain.Date     `json:"endDate"`
	StartNetWorth     decimal.Decimal `json:"startNetWorth"`
	EndNetWorth       decimal.Decimal `json:"endNetWorth"`
	PeriodDeposits    decimal.Decimal `json:"periodDeposits"`
	PeriodWithdrawals decimal.Decimal `json:"periodWithdrawals"`
	NetCashFlow       decimal.Decimal `json:"netCashFlow"`
	ElapsedHours      float64         `json:"elapsedHours"`
	ElapsedDays       float64         `json:"elapsedDays"`
	ROIPercent        decimal.Decimal `json:"roiPercent"`
	APYPercent        decimal.Decimal `json:"apyPercent"`
}

// BenchmarkReturn is the return of holding one symbol since the first snapshot.
type BenchmarkReturn struct {
	Symbol     string          `json:"symbol"`
	HasData    bool            `json:"hasData"`
	StartDate  domain.Date     `json:"startDate"`
	StartPrice decimal.Decimal `json:"startPrice"`
	EndDate    domain.Date     `json:"endDate"`
	EndPrice   decimal.Decimal `json:"endPrice"`
	ROIPercent decimal.Decimal `json:"roiPercent"`
}

// SummarizeTransfers totals deposits and withdrawals.
func SummarizeTransfers(transfers []domain.Transfer) TransfersSummary {
	deposits, withdrawals := domain.SumTransfers(transfers)
	return TransfersSummary{
		TotalDeposits:    deposits,
		TotalWithdrawals: withdrawals,
		NetInvested:      deposits.Sub(withdrawals),
	}
}

// ComputePnL derives profit and ROI. ROI is zero unless net invested is positive.
func ComputePnL(netWorth, netInvested decimal.Decimal) PnL {
	p := PnL{
		CurrentNetWorth: netWorth,
		NetInvested:     netInvested,
		UnrealizedPnL:   netWorth.Sub(netInvested),
		ROIPercent:      decimal.Zero,
	}
	if netInvested.IsPositive() {
		p.ROIPercent = domain.Percent(p.UnrealizedPnL, netInvested)
	}
	return p
}

// PeriodBounds returns the earliest and latest snapshot rows, ordered by date then recorded_at.
func PeriodBounds(snapshots []domain.Snapshot) (first, last domain.Snapshot, ok bool) {
	if len(snapshots) < 2 {
		return domain.Snapshot{}, domain.Snapshot{}, false
	}
	ordered := append([]domain.Snapshot(nil), snapshots...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if c := ordered[i].Date.Compare(ordered[j].Date); c != 0 {
			return c < 0
		}
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})
	return ordered[0], ordered[len(ordered)-1], true
}

// ComputePeriodReturn measures the return between the first and last snapshot rows.
// periodTransfers must be the transfers dated in (first date, last date].
// Fewer than two rows, or less than an hour between them, yields HasData=false.
func ComputePeriodReturn(snapshots []domain.Snapshot, periodTransfers []domain.Transfer, book *valuation.PriceBook) PeriodReturn {
	empty := PeriodReturn{
		StartNetWorth:     decimal.Zero,
		EndNetWorth:       decimal.Zero,
		PeriodDeposits:    decimal.Zero,
		PeriodWithdrawals: decimal.Zero,
		NetCashFlow:       decimal.Zero,
		ROIPercent:        decimal.Zero,
		APYPercent:        decimal.Zero,
	}
	first, last, ok := PeriodBounds(snapshots)
	if !ok {
		return empty
	}

	start, end := first.Date.Time(), last.Date.Time()
	if !first.RecordedAt.IsZero() && !last.RecordedAt.IsZero() {
		start, end = first.RecordedAt, last.RecordedAt
	}
	elapsed := end.Sub(start)
	if elapsed < time.Hour {
		return empty
	}
	hours := elapsed.Hours()

	startValue := netWorthOn(first.Date, snapshots, book)
	endValue := netWorthOn(last.Date, snapshots, book)

	deposits, withdrawals := domain.SumTransfers(periodTransfers)
	netCashFlow := deposits.Sub(withdrawals)

	roi := decimal.Zero
	if startValue.IsPositive() {
		roi = domain.Percent(endValue.Sub(startValue).Sub(netCashFlow), startValue)
	}

	return PeriodReturn{
		HasData:           true,
		StartDate:         first.Date,
		EndDate:           last.Date,
		StartNetWorth:     startValue,
		EndNetWorth:       endValue,
		PeriodDeposits:    deposits,
		PeriodWithdrawals: withdrawals,
		NetCashFlow:       netCashFlow,
		ElapsedHours:      hours,
		ElapsedDays:       hours / 24,
		ROIPercent:        roi,
		APYPercent:        annualize(roi, hours),
	}
}

// annualize compounds roi over a year: ((1 + roi/100)^(HoursPerYear/hours) - 1) * 100.
func annualize(roi decimal.Decimal, hours float64) decimal.Decimal {
	if hours <= 0 || roi.LessThanOrEqual(decimal.NewFromInt(-100)) {
		return decimal.Zero
	}
	r := roi.InexactFloat64()
	apy := (math.Pow(1+r/100, HoursPerYear/hours) - 1) * 100
	if math.IsNaN(apy) || math.IsInf(apy, 0) {
		slog.Warn("APY overflow, reporting 0", "roi", roi, "hours", hours)
		return decimal.Zero
	}
	return decimal.NewFromFloat(apy)
}

// ComputeBenchmark is the ROI of holding symbol from the first snapshot date to its latest price.
func ComputeBenchmark(symbol string, firstDate domain.Date, book *valuation.PriceBook) BenchmarkReturn {
	b := BenchmarkReturn{
		Symbol:     domain.NormalizeSymbol(symbol),
		StartPrice: decimal.Zero,
		EndPrice:   decimal.Zero,
		ROIPercent: decimal.Zero,
	}
	if firstDate.IsZero() {
		return b
	}
	start, ok := book.AsOf(b.Symbol, firstDate)
	if !ok {
		return b
	}
	end, ok := book.Latest(b.Symbol)
	if !ok || !start.PriceUSD.IsPositive() {
		return b
	}

	b.HasData = true
	b.StartDate, b.StartPrice = start.Date, start.PriceUSD
	b.EndDate, b.EndPrice = end.Date, end.PriceUSD
	b.ROIPercent = domain.Percent(end.PriceUSD.Sub(start.PriceUSD), start.PriceUSD)
	return b
}

func netWorthOn(date domain.Date, snapshots []domain.Snapshot, book *valuation.PriceBook) decimal.Decimal {
	var onDate []domain.Snapshot
	for _, s := range snapshots {
		if s.Date == date {
			onDate = append(onDate, s)
		}
	}
	return valuation.Evaluate(date, onDate, book).NetWorth
}
