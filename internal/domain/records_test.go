package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSnapshotNormalizeAndValidate(t *testing.T) {
	s := Snapshot{
		Date:        NewDate(2024, time.January, 1),
		AccountName: "  Binance ",
		Symbol:      " btc ",
		Quantity:    decimal.NewFromFloat(0.5),
	}
	s.Normalize()

	if s.Symbol != "BTC" {
		t.Errorf("Symbol = %q, want BTC", s.Symbol)
	}
	if s.AccountName != "Binance" {
		t.Errorf("AccountName = %q, want Binance", s.AccountName)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSnapshotValidateRejects(t *testing.T) {
	base := Snapshot{
		Date:        NewDate(2024, time.January, 1),
		AccountName: "IBKR",
		Symbol:      "NVDA",
		Quantity:    decimal.NewFromInt(3),
	}

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"zero quantity", func(s *Snapshot) { s.Quantity = decimal.Zero }},
		{"negative quantity", func(s *Snapshot) { s.Quantity = decimal.NewFromInt(-1) }},
		{"empty symbol", func(s *Snapshot) { s.Symbol = "" }},
		{"empty account", func(s *Snapshot) { s.AccountName = "" }},
		{"zero date", func(s *Snapshot) { s.Date = Date{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestTransferValidate(t *testing.T) {
	ok := Transfer{Date: NewDate(2024, time.May, 1), Kind: TransferDeposit, AmountUSD: decimal.NewFromInt(100)}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := ok
	bad.Kind = "refund"
	if err := bad.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown kind error = %v, want ErrInvalid", err)
	}

	bad = ok
	bad.AmountUSD = decimal.Zero
	if err := bad.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("zero amount error = %v, want ErrInvalid", err)
	}
}

func TestPriceRecordValidate(t *testing.T) {
	p := PriceRecord{Date: NewDate(2024, time.May, 1), Symbol: " eth", PriceUSD: decimal.NewFromInt(3000), Source: "binance"}
	p.Normalize()
	if p.Symbol != "ETH" {
		t.Errorf("Symbol = %q, want ETH", p.Symbol)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	fixed := PriceRecord{Date: p.Date, Symbol: "USDT", PriceUSD: decimal.NewFromFloat(1.01), Source: SourceFixed}
	if err := fixed.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("fixed price != 1 error = %v, want ErrInvalid", err)
	}

	noSource := PriceRecord{Date: p.Date, Symbol: "ETH", PriceUSD: decimal.NewFromInt(1)}
	if err := noSource.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("missing source error = %v, want ErrInvalid", err)
	}
}

func TestSumTransfers(t *testing.T) {
	transfers := []Transfer{
		{Kind: TransferDeposit, AmountUSD: decimal.NewFromInt(1000)},
		{Kind: TransferDeposit, AmountUSD: decimal.NewFromInt(500)},
		{Kind: TransferWithdrawal, AmountUSD: decimal.NewFromInt(200)},
	}

	deposits, withdrawals := SumTransfers(transfers)
	if !deposits.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("deposits = %s, want 1500", deposits)
	}
	if !withdrawals.Equal(decimal.NewFromInt(200)) {
		t.Errorf("withdrawals = %s, want 200", withdrawals)
	}

	deposits, withdrawals = SumTransfers(nil)
	if !deposits.IsZero() || !withdrawals.IsZero() {
		t.Errorf("empty sums = %s/%s, want 0/0", deposits, withdrawals)
	}
}
