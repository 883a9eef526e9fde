package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mtlprog/ledger/internal/database"
	"github.com/mtlprog/ledger/internal/domain"
)

const priceColumns = `date, symbol, price_usd, source, recorded_at`

// UpsertPrices writes all price records in one transaction, replacing price, source
// and recorded_at on (date, symbol) conflicts. Invalid input writes nothing.
func (s *PgStore) UpsertPrices(ctx context.Context, prices []domain.PriceRecord) error {
	for i := range prices {
		prices[i].Normalize()
		if err := prices[i].Validate(); err != nil {
			return err
		}
	}

	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, p := range prices {
			_, err := tx.Exec(ctx,
				`INSERT INTO price_records (date, symbol, price_usd, source, recorded_at)
				 VALUES ($1, $2, $3, $4, COALESCE($5, clock_timestamp()))
				 ON CONFLICT (date, symbol)
				 DO UPDATE SET price_usd = EXCLUDED.price_usd, source = EXCLUDED.source,
				               recorded_at = EXCLUDED.recorded_at`,
				p.Date.Time(), p.Symbol, p.PriceUSD, p.Source, recordedAt(p.RecordedAt))
			if err != nil {
				return fmt.Errorf("saving price for %s on %s: %w", p.Symbol, p.Date, err)
			}
		}
		return bumpRevision(ctx, tx)
	})
}

// ListPrices returns price records ordered by (symbol, date).
func (s *PgStore) ListPrices(ctx context.Context, filter PriceFilter) ([]domain.PriceRecord, error) {
	w := priceWhere(filter)
	rows, err := s.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM price_records`+w.String()+` ORDER BY symbol, date`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.PriceRecord
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func scanPrice(row pgx.Row) (domain.PriceRecord, error) {
	var (
		p    domain.PriceRecord
		date time.Time
	)
	if err := row.Scan(&date, &p.Symbol, &p.PriceUSD, &p.Source, &p.RecordedAt); err != nil {
		return domain.PriceRecord{}, fmt.Errorf("scanning price record: %w", err)
	}
	p.Date = domain.DateOf(date)
	return p, nil
}
