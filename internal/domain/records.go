package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalid is wrapped by every validation failure on input records.
var ErrInvalid = errors.New("invalid record")

// Price sources that are not adapter names.
const (
	SourceFixed  = "fixed"
	SourceManual = "manual"
)

// TransferKind distinguishes external cash movements.
type TransferKind string

const (
	TransferDeposit    TransferKind = "deposit"
	TransferWithdrawal TransferKind = "withdrawal"
)

// Snapshot is the quantity of one symbol held in one account on one day.
// Natural key: (Date, AccountName, Symbol).
type Snapshot struct {
	Date        Date            `json:"date"`
	AccountName string          `json:"accountName"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	RecordedAt  time.Time       `json:"recordedAt"`
}

// Transfer is an external deposit or withdrawal in USD. Transfers are append-only.
type Transfer struct {
	ID         int64           `json:"id,omitempty"`
	Date       Date            `json:"date"`
	Kind       TransferKind    `json:"kind"`
	AmountUSD  decimal.Decimal `json:"amountUsd"`
	Note       *string         `json:"note,omitempty"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// PriceRecord is the USD price of a symbol on a day, tagged with its origin.
// Natural key: (Date, Symbol).
type PriceRecord struct {
	Date       Date            `json:"date"`
	Symbol     string          `json:"symbol"`
	PriceUSD   decimal.Decimal `json:"priceUsd"`
	Source     string          `json:"source"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// NormalizeSymbol trims and upper-cases a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Normalize canonicalizes the symbol and account name in place.
func (s *Snapshot) Normalize() {
	s.Symbol = NormalizeSymbol(s.Symbol)
	s.AccountName = strings.TrimSpace(s.AccountName)
}

// Validate checks the snapshot invariants. Call Normalize first.
func (s Snapshot) Validate() error {
	if s.Date.IsZero() {
		return fmt.Errorf("%w: snapshot date is required", ErrInvalid)
	}
	if s.AccountName == "" {
		return fmt.Errorf("%w: account name is required", ErrInvalid)
	}
	if s.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalid)
	}
	if !s.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity of %s must be positive, got %s", ErrInvalid, s.Symbol, s.Quantity)
	}
	return nil
}

// Validate checks the transfer invariants.
func (t Transfer) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("%w: transfer date is required", ErrInvalid)
	}
	switch t.Kind {
	case TransferDeposit, TransferWithdrawal:
	default:
		return fmt.Errorf("%w: unknown transfer kind %q", ErrInvalid, t.Kind)
	}
	if !t.AmountUSD.IsPositive() {
		return fmt.Errorf("%w: transfer amount must be positive, got %s", ErrInvalid, t.AmountUSD)
	}
	return nil
}

// Normalize canonicalizes the symbol in place.
func (p *PriceRecord) Normalize() {
	p.Symbol = NormalizeSymbol(p.Symbol)
	p.Source = strings.TrimSpace(p.Source)
}

// Validate checks the price record invariants. Call Normalize first.
func (p PriceRecord) Validate() error {
	if p.Date.IsZero() {
		return fmt.Errorf("%w: price date is required", ErrInvalid)
	}
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalid)
	}
	if !p.PriceUSD.IsPositive() {
		return fmt.Errorf("%w: price of %s must be positive, got %s", ErrInvalid, p.Symbol, p.PriceUSD)
	}
	if p.Source == "" {
		return fmt.Errorf("%w: price source is required", ErrInvalid)
	}
	if p.Source == SourceFixed && !p.PriceUSD.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: fixed price of %s must be 1, got %s", ErrInvalid, p.Symbol, p.PriceUSD)
	}
	return nil
}

// SumTransfers totals deposits and withdrawals separately.
func SumTransfers(transfers []Transfer) (deposits, withdrawals decimal.Decimal) {
	deposits, withdrawals = decimal.Zero, decimal.Zero
	for _, t := range transfers {
		switch t.Kind {
		case TransferDeposit:
			deposits = deposits.Add(t.AmountUSD)
		case TransferWithdrawal:
			withdrawals = withdrawals.Add(t.AmountUSD)
		}
	}
	return deposits, withdrawals
}
