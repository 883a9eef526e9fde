// Package export writes net worth history and current holdings to spreadsheets.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mtlprog/ledger/internal/returns"
	"github.com/mtlprog/ledger/internal/valuation"
)

// Report is everything written by an export.
type Report struct {
	GeneratedAt time.Time
	History     []valuation.HistoryPoint
	Current     valuation.Valuation
	Symbols     []valuation.SymbolTotal
	Returns     returns.Report
}

// Writer writes a report to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, report Report) error
}

// Valuer provides the valuations included in a report.
type Valuer interface {
	History(ctx context.Context) ([]valuation.HistoryPoint, error)
	Current(ctx context.Context) (valuation.Valuation, error)
}

// ReturnsReporter provides the returns summary included in a report.
type ReturnsReporter interface {
	Report(ctx context.Context) (returns.Report, error)
}

// Service builds reports and delegates writing to its writers.
type Service struct {
	valuer  Valuer
	returns ReturnsReporter
	writers []Writer
	now     func() time.Time
}

// NewService creates a new export Service.
func NewService(valuer Valuer, returns ReturnsReporter, writers ...Writer) *Service {
	return &Service{
		valuer:  valuer,
		returns: returns,
		writers: writers,
		now:     time.Now,
	}
}

// Build assembles a report from the current ledger.
func (s *Service) Build(ctx context.Context) (Report, error) {
	history, err := s.valuer.History(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("computing history: %w", err)
	}
	current, err := s.valuer.Current(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("computing current valuation: %w", err)
	}
	summary, err := s.returns.Report(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("computing returns: %w", err)
	}

	return Report{
		GeneratedAt: s.now().UTC(),
		History:     history,
		Current:     current,
		Symbols:     valuation.BySymbol(current.Rows),
		Returns:     summary,
	}, nil
}

// Export builds a report and writes it with every writer.
// Implements worker.AfterUpdateHook.
func (s *Service) Export(ctx context.Context) error {
	if len(s.writers) == 0 {
		return nil
	}
	report, err := s.Build(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
