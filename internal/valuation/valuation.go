package valuation

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
)

// BaseCurrency is the currency every stored value is denominated in.
const BaseCurrency = "USD"

// Row is one valued position.
type Row struct {
	Account      string          `json:"account"`
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Value        decimal.Decimal `json:"value"`
	PriceDate    domain.Date     `json:"priceDate"`
	PriceSource  string          `json:"priceSource,omitempty"`
	MissingPrice bool            `json:"missingPrice"`
}

// Valuation is every position held on one date, priced as of that date.
type Valuation struct {
	Date           domain.Date     `json:"date"`
	Currency       string          `json:"currency"`
	Rate           decimal.Decimal `json:"rate"`
	Rows           []Row           `json:"rows"`
	NetWorth       decimal.Decimal `json:"netWorth"`
	MissingSymbols []string        `json:"missingSymbols"`
}

// SymbolTotal aggregates a symbol across accounts.
type SymbolTotal struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// AccountTotal aggregates the value held in one account.
type AccountTotal struct {
	Account string          `json:"account"`
	Value   decimal.Decimal `json:"value"`
}

// HistoryPoint is the net worth on one snapshot date.
type HistoryPoint struct {
	Date     domain.Date     `json:"date"`
	NetWorth decimal.Decimal `json:"netWorth"`
}

// Evaluate values snapshots as of date. A position without a price on or before
// date is valued at zero and reported in MissingSymbols.
func Evaluate(date domain.Date, snapshots []domain.Snapshot, book *PriceBook) Valuation {
	rows := lo.Map(snapshots, func(s domain.Snapshot, _ int) Row {
		row := Row{
			Account:  s.AccountName,
			Symbol:   domain.NormalizeSymbol(s.Symbol),
			Quantity: s.Quantity,
			Price:    decimal.Zero,
			Value:    decimal.Zero,
		}
		price, ok := book.AsOf(row.Symbol, date)
		if !ok {
			row.MissingPrice = true
			return row
		}
		row.Price = price.PriceUSD
		row.Value = s.Quantity.Mul(price.PriceUSD)
		row.PriceDate = price.Date
		row.PriceSource = price.Source
		return row
	})

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Account != rows[j].Account {
			return rows[i].Account < rows[j].Account
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	missing := lo.Uniq(lo.FilterMap(rows, func(r Row, _ int) (string, bool) {
		return r.Symbol, r.MissingPrice
	}))
	sort.Strings(missing)

	return Valuation{
		Date:           date,
		Currency:       BaseCurrency,
		Rate:           decimal.NewFromInt(1),
		Rows:           rows,
		NetWorth:       sumValues(rows),
		MissingSymbols: missing,
	}
}

// BySymbol totals quantity and value per symbol, largest value first.
func BySymbol(rows []Row) []SymbolTotal {
	grouped := lo.GroupBy(rows, func(r Row) string { return r.Symbol })
	totals := lo.MapToSlice(grouped, func(symbol string, rs []Row) SymbolTotal {
		return SymbolTotal{
			Symbol: symbol,
			Quantity: lo.Reduce(rs, func(acc decimal.Decimal, r Row, _ int) decimal.Decimal {
				return acc.Add(r.Quantity)
			}, decimal.Zero),
			Value: sumValues(rs),
		}
	})
	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].Value.Cmp(totals[j].Value); c != 0 {
			return c > 0
		}
		return totals[i].Symbol < totals[j].Symbol
	})
	return totals
}

// ByAccount totals value per account, largest value first.
func ByAccount(rows []Row) []AccountTotal {
	grouped := lo.GroupBy(rows, func(r Row) string { return r.Account })
	totals := lo.MapToSlice(grouped, func(account string, rs []Row) AccountTotal {
		return AccountTotal{Account: account, Value: sumValues(rs)}
	})
	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].Value.Cmp(totals[j].Value); c != 0 {
			return c > 0
		}
		return totals[i].Account < totals[j].Account
	})
	return totals
}

// Convert returns a copy of v with prices and values multiplied by rate.
// Rates that are not positive leave the values unchanged.
func Convert(v Valuation, currency string, rate decimal.Decimal) Valuation {
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
	}
	out := v
	out.Currency = currency
	out.Rate = rate
	out.Rows = lo.Map(v.Rows, func(r Row, _ int) Row {
		r.Price = r.Price.Mul(rate)
		r.Value = r.Value.Mul(rate)
		return r
	})
	out.NetWorth = v.NetWorth.Mul(rate)
	out.MissingSymbols = append([]string(nil), v.MissingSymbols...)
	return out
}

func sumValues(rows []Row) decimal.Decimal {
	return lo.Reduce(rows, func(acc decimal.Decimal, r Row, _ int) decimal.Decimal {
		return acc.Add(r.Value)
	}, decimal.Zero)
}
