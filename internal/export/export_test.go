package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/returns"
	"github.com/mtlprog/ledger/internal/valuation"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReport() Report {
	jan, feb := domain.NewDate(2024, time.January, 1), domain.NewDate(2024, time.February, 1)
	current := valuation.Valuation{
		Date: feb,
		Rows: []valuation.Row{
			{Account: "Broker", Symbol: "NVDA", Quantity: d("10"), MissingPrice: true},
			{Account: "Ledger", Symbol: "BTC", Quantity: d("1"), Price: d("50000"), Value: d("50000"), PriceDate: feb, PriceSource: "binance"},
		},
		NetWorth: d("50000"),
	}
	return Report{
		GeneratedAt: time.Date(2024, time.February, 2, 8, 0, 0, 0, time.UTC),
		History: []valuation.HistoryPoint{
			{Date: jan, NetWorth: d("40000")},
			{Date: feb, NetWorth: d("50000")},
		},
		Current: current,
		Symbols: valuation.BySymbol(current.Rows),
	}
}

func TestBuildHistoryRows(t *testing.T) {
	rows := buildHistoryRows(sampleReport())

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[1][0] != "2024-01-01" || rows[1][2] != nil {
		t.Errorf("first row = %v, want date and no change", rows[1])
	}
	if rows[2][2] != 10000.0 || rows[2][3] != 25.0 {
		t.Errorf("second row change = %v / %v, want 10000 / 25", rows[2][2], rows[2][3])
	}
}

func TestBuildHoldingsRows(t *testing.T) {
	rows := buildHoldingsRows(sampleReport())

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[1][1] != "NVDA" || rows[1][7] != "yes" {
		t.Errorf("NVDA row = %v, want missing flag", rows[1])
	}
	if rows[2][4] != 50000.0 || rows[2][6] != "binance" {
		t.Errorf("BTC row = %v", rows[2])
	}
}

func TestBuildDailyRow(t *testing.T) {
	r := sampleReport()
	r.Returns = returns.Report{PnL: returns.PnL{NetInvested: d("40000"), UnrealizedPnL: d("10000"), ROIPercent: d("25")}}

	row := buildDailyRow(r)
	if len(row) != len(dailyHeader) {
		t.Fatalf("row has %d columns, header %d", len(row), len(dailyHeader))
	}
	if row[0] != "2024-02-02" || row[1] != 50000.0 || row[4] != 25.0 {
		t.Errorf("row = %v", row)
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")

	if err := NewXLSXWriter(path).Write(context.Background(), sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	want := []string{SheetHistory, SheetHoldings, SheetSymbols}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d = %s, want %s", i, got[i], want[i])
		}
	}

	if v, _ := f.GetCellValue(SheetHistory, "A1"); v != "Date" {
		t.Errorf("History!A1 = %q, want Date", v)
	}
	if v, _ := f.GetCellValue(SheetHistory, "A3"); v != "2024-02-01" {
		t.Errorf("History!A3 = %q, want 2024-02-01", v)
	}
	if v, _ := f.GetCellValue(SheetHoldings, "B3"); v != "BTC" {
		t.Errorf("Holdings!B3 = %q, want BTC", v)
	}
	rows, err := f.GetRows(SheetSymbols)
	if err != nil {
		t.Fatalf("reading Symbols: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "BTC" {
		t.Errorf("Symbols rows = %v", rows)
	}
}

type mockValuer struct {
	err error
}

func (m *mockValuer) History(_ context.Context) ([]valuation.HistoryPoint, error) {
	return sampleReport().History, m.err
}

func (m *mockValuer) Current(_ context.Context) (valuation.Valuation, error) {
	return sampleReport().Current, nil
}

type mockReturns struct{}

func (mockReturns) Report(_ context.Context) (returns.Report, error) {
	return returns.Report{}, nil
}

type mockWriter struct {
	reports []Report
	err     error
}

func (m *mockWriter) Write(_ context.Context, r Report) error {
	m.reports = append(m.reports, r)
	return m.err
}

func TestServiceExport(t *testing.T) {
	ok := &mockWriter{}
	failing := &mockWriter{err: errors.New("quota exceeded")}
	svc := NewService(&mockValuer{}, mockReturns{}, ok, failing)

	err := svc.Export(context.Background())
	if !errors.Is(err, failing.err) {
		t.Errorf("error = %v, want writer error", err)
	}
	if len(ok.reports) != 1 || len(failing.reports) != 1 {
		t.Fatalf("every writer should be called once")
	}
	r := ok.reports[0]
	if len(r.History) != 2 || len(r.Symbols) != 2 {
		t.Errorf("report = %+v", r)
	}
	if r.Symbols[0].Symbol != "BTC" {
		t.Errorf("top symbol = %s, want BTC", r.Symbols[0].Symbol)
	}
}

func TestServiceExportBuildError(t *testing.T) {
	w := &mockWriter{}
	svc := NewService(&mockValuer{err: errors.New("db down")}, mockReturns{}, w)

	if err := svc.Export(context.Background()); err == nil {
		t.Error("expected error")
	}
	if len(w.reports) != 0 {
		t.Error("writer should not be called when the report cannot be built")
	}
}
