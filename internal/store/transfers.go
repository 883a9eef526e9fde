package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mtlprog/ledger/internal/database"
	"github.com/mtlprog/ledger/internal/domain"
)

const transferColumns = `id, date, kind, amount_usd, note, recorded_at`

// AddTransfer appends a transfer and returns it with its ID and recorded_at set.
func (s *PgStore) AddTransfer(ctx context.Context, t domain.Transfer) (domain.Transfer, error) {
	if err := t.Validate(); err != nil {
		return domain.Transfer{}, err
	}

	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO transfers (date, kind, amount_usd, note, recorded_at)
			 VALUES ($1, $2, $3, $4, COALESCE($5, clock_timestamp()))
			 RETURNING id, recorded_at`,
			t.Date.Time(), string(t.Kind), t.AmountUSD, t.Note, recordedAt(t.RecordedAt)).
			Scan(&t.ID, &t.RecordedAt)
		if err != nil {
			return fmt.Errorf("saving transfer: %w", err)
		}
		return bumpRevision(ctx, tx)
	})
	if err != nil {
		return domain.Transfer{}, err
	}
	return t, nil
}

// ListTransfers returns transfers ordered by date, then insertion.
func (s *PgStore) ListTransfers(ctx context.Context, filter TransferFilter) ([]domain.Transfer, error) {
	w := transferWhere(filter)
	rows, err := s.pool.Query(ctx,
		`SELECT `+transferColumns+` FROM transfers`+w.String()+` ORDER BY date, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	return collectTransfers(rows)
}

// RecentTransfers returns the most recently dated transfers first.
func (s *PgStore) RecentTransfers(ctx context.Context, limit int) ([]domain.Transfer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transferColumns+` FROM transfers ORDER BY date DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent transfers: %w", err)
	}
	return collectTransfers(rows)
}

func collectTransfers(rows pgx.Rows) ([]domain.Transfer, error) {
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		var (
			t    domain.Transfer
			date time.Time
			kind string
		)
		if err := rows.Scan(&t.ID, &date, &kind, &t.AmountUSD, &t.Note, &t.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		t.Date = domain.DateOf(date)
		t.Kind = domain.TransferKind(kind)
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
