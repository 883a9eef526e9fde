package export

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
)

var (
	historyHeader  = []any{"Date", "Net Worth (USD)", "Change (USD)", "Change %"}
	holdingsHeader = []any{"Account", "Symbol", "Quantity", "Price (USD)", "Value (USD)", "Price Date", "Source", "Missing Price"}
	symbolsHeader  = []any{"Symbol", "Quantity", "Value (USD)", "Share %"}
	dailyHeader    = []any{"Date", "Net Worth (USD)", "Net Invested (USD)", "P&L (USD)", "ROI %", "APY %", "Benchmark ROI %"}
)

// buildHistoryRows lists net worth per snapshot date with the change from the previous date.
func buildHistoryRows(r Report) [][]any {
	data := make([][]any, 0, len(r.History)+1)
	data = append(data, historyHeader)

	for i, p := range r.History {
		var change, changePct any
		if i > 0 {
			prev := r.History[i-1].NetWorth
			change = toFloat(p.NetWorth.Sub(prev))
			if !prev.IsZero() {
				changePct = toFloat(domain.Percent(p.NetWorth.Sub(prev), prev))
			}
		}
		data = append(data, []any{p.Date.String(), toFloat(p.NetWorth), change, changePct})
	}
	return data
}

// buildHoldingsRows lists every position of the current valuation.
func buildHoldingsRows(r Report) [][]any {
	data := make([][]any, 0, len(r.Current.Rows)+1)
	data = append(data, holdingsHeader)

	for _, row := range r.Current.Rows {
		missing := ""
		if row.MissingPrice {
			missing = "yes"
		}
		data = append(data, []any{
			row.Account, row.Symbol,
			toFloat(row.Quantity), toFloat(row.Price), toFloat(row.Value),
			row.PriceDate.String(), row.PriceSource, missing,
		})
	}
	return data
}

// buildSymbolRows lists the current value per symbol with its share of net worth.
func buildSymbolRows(r Report) [][]any {
	data := make([][]any, 0, len(r.Symbols)+1)
	data = append(data, symbolsHeader)

	for _, s := range r.Symbols {
		data = append(data, []any{
			s.Symbol, toFloat(s.Quantity), toFloat(s.Value),
			toFloat(domain.Percent(s.Value, r.Current.NetWorth)),
		})
	}
	return data
}

// buildDailyRow summarizes the report in one row.
func buildDailyRow(r Report) []any {
	return []any{
		r.GeneratedAt.Format(domain.DateFormat),
		toFloat(r.Current.NetWorth),
		toFloat(r.Returns.PnL.NetInvested),
		toFloat(r.Returns.PnL.UnrealizedPnL),
		toFloat(r.Returns.PnL.ROIPercent),
		toFloat(r.Returns.Period.APYPercent),
		toFloat(r.Returns.Benchmark.ROIPercent),
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
