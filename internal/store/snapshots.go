package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mtlprog/ledger/internal/database"
	"github.com/mtlprog/ledger/internal/domain"
)

const snapshotColumns = `date, account_name, symbol, quantity, recorded_at`

// UpsertSnapshots writes all snapshots in one transaction, updating quantity and
// recorded_at on (date, account_name, symbol) conflicts. Invalid input writes nothing.
func (s *PgStore) UpsertSnapshots(ctx context.Context, snapshots []domain.Snapshot) error {
	for i := range snapshots {
		snapshots[i].Normalize()
		if err := snapshots[i].Validate(); err != nil {
			return err
		}
	}

	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, snap := range snapshots {
			_, err := tx.Exec(ctx,
				`INSERT INTO snapshots (date, account_name, symbol, quantity, recorded_at)
				 VALUES ($1, $2, $3, $4, COALESCE($5, clock_timestamp()))
				 ON CONFLICT (date, account_name, symbol)
				 DO UPDATE SET quantity = EXCLUDED.quantity, recorded_at = EXCLUDED.recorded_at`,
				snap.Date.Time(), snap.AccountName, snap.Symbol, snap.Quantity, recordedAt(snap.RecordedAt))
			if err != nil {
				return fmt.Errorf("saving snapshot %s/%s on %s: %w", snap.AccountName, snap.Symbol, snap.Date, err)
			}
		}
		return bumpRevision(ctx, tx)
	})
}

// ListSnapshots returns snapshots ordered by (date, recorded_at).
func (s *PgStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]domain.Snapshot, error) {
	w := snapshotWhere(filter)
	rows, err := s.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots`+w.String()+
			` ORDER BY date, recorded_at, account_name, symbol`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

// RecentSnapshots returns the most recently dated snapshots first.
func (s *PgStore) RecentSnapshots(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots
		 ORDER BY date DESC, recorded_at DESC, account_name, symbol
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

func collectSnapshots(rows pgx.Rows) ([]domain.Snapshot, error) {
	defer rows.Close()

	var snapshots []domain.Snapshot
	for rows.Next() {
		var (
			snap domain.Snapshot
			date time.Time
		)
		if err := rows.Scan(&date, &snap.AccountName, &snap.Symbol, &snap.Quantity, &snap.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap.Date = domain.DateOf(date)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// DistinctSymbols returns every symbol that appears in a snapshot.
func (s *PgStore) DistinctSymbols(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT symbol FROM snapshots ORDER BY symbol`)
}

// DistinctAccounts returns every account name that appears in a snapshot.
func (s *PgStore) DistinctAccounts(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT account_name FROM snapshots ORDER BY account_name`)
}

func (s *PgStore) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying distinct values: %w", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning distinct values: %w", err)
	}
	return values, nil
}

// LatestSnapshotDate returns the most recent snapshot date, or ErrNotFound when there are none.
func (s *PgStore) LatestSnapshotDate(ctx context.Context) (domain.Date, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(date) FROM snapshots`).Scan(&latest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Date{}, ErrNotFound
		}
		return domain.Date{}, fmt.Errorf("getting latest snapshot date: %w", err)
	}
	if latest == nil {
		return domain.Date{}, ErrNotFound
	}
	return domain.DateOf(*latest), nil
}
