// Package store persists snapshots, transfers and price records in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/ledger/internal/domain"
)

// ErrNotFound indicates that a single-row lookup matched nothing.
var ErrNotFound = errors.New("not found")

// SnapshotFilter narrows ListSnapshots. A nil Date lists every day.
type SnapshotFilter struct {
	Date *domain.Date
}

// TransferFilter narrows ListTransfers to After < date <= Through. Nil bounds are open.
type TransferFilter struct {
	After   *domain.Date
	Through *domain.Date
}

// PriceFilter narrows ListPrices. A nil UpTo is unbounded.
type PriceFilter struct {
	UpTo *domain.Date
}

// Fingerprint summarizes the content of the store. Every committed write increments
// Revision, including updates that leave the row counts unchanged.
type Fingerprint struct {
	Snapshots int64
	Transfers int64
	Prices    int64
	Revision  int64
}

// PgStore implements the ledger store with PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Fingerprint reads the row counts and the write revision in one statement.
func (s *PgStore) Fingerprint(ctx context.Context) (Fingerprint, error) {
	var fp Fingerprint
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM snapshots),
		   (SELECT COUNT(*) FROM transfers),
		   (SELECT COUNT(*) FROM price_records),
		   (SELECT revision FROM ledger_revision)`).
		Scan(&fp.Snapshots, &fp.Transfers, &fp.Prices, &fp.Revision)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("reading store fingerprint: %w", err)
	}
	return fp, nil
}

// bumpRevision increments the write revision inside tx. The row lock it takes orders
// concurrent writers, so each commit publishes a new revision.
func bumpRevision(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `UPDATE ledger_revision SET revision = revision + 1`); err != nil {
		return fmt.Errorf("bumping ledger revision: %w", err)
	}
	return nil
}

// recordedAt maps a zero timestamp to NULL so the column default applies.
func recordedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
