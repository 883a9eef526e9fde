package valuation

import (
	"sort"

	"github.com/samber/lo"

	"github.com/mtlprog/ledger/internal/domain"
)

// PriceBook answers as-of price lookups from one read of the price table.
type PriceBook struct {
	bySymbol map[string][]domain.PriceRecord // ascending by date
}

// NewPriceBook indexes prices by symbol. When a (date, symbol) pair repeats, the later record wins.
func NewPriceBook(prices []domain.PriceRecord) *PriceBook {
	grouped := lo.GroupBy(prices, func(p domain.PriceRecord) string {
		return domain.NormalizeSymbol(p.Symbol)
	})
	for symbol, records := range grouped {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Date.Before(records[j].Date)
		})
		deduped := make([]domain.PriceRecord, 0, len(records))
		for _, r := range records {
			if n := len(deduped); n > 0 && deduped[n-1].Date == r.Date {
				deduped[n-1] = r
				continue
			}
			deduped = append(deduped, r)
		}
		grouped[symbol] = deduped
	}
	return &PriceBook{bySymbol: grouped}
}

// AsOf returns the record dated exactly on date if present, else the latest one before it.
func (b *PriceBook) AsOf(symbol string, date domain.Date) (domain.PriceRecord, bool) {
	records := b.bySymbol[domain.NormalizeSymbol(symbol)]
	// first record dated after date
	i := sort.Search(len(records), func(i int) bool {
		return records[i].Date.After(date)
	})
	if i == 0 {
		return domain.PriceRecord{}, false
	}
	return records[i-1], true
}

// Latest returns the most recent record for symbol.
func (b *PriceBook) Latest(symbol string) (domain.PriceRecord, bool) {
	records := b.bySymbol[domain.NormalizeSymbol(symbol)]
	if len(records) == 0 {
		return domain.PriceRecord{}, false
	}
	return records[len(records)-1], true
}

// Len returns the number of indexed records.
func (b *PriceBook) Len() int {
	return lo.SumBy(lo.Values(b.bySymbol), func(records []domain.PriceRecord) int { return len(records) })
}
