package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/resolver"
	"github.com/mtlprog/ledger/internal/returns"
	"github.com/mtlprog/ledger/internal/valuation"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var feb = domain.NewDate(2024, time.February, 1)

type mockValuer struct {
	askedDate domain.Date
	err       error
}

func (m *mockValuer) valuation(date domain.Date) valuation.Valuation {
	rows := []valuation.Row{
		{Account: "Ledger", Symbol: "BTC", Quantity: d("1"), Price: d("50000"), Value: d("50000")},
		{Account: "Wallet", Symbol: "USDT", Quantity: d("1000"), Price: d("1"), Value: d("1000")},
	}
	return valuation.Valuation{Date: date, Currency: "USD", Rate: d("1"), Rows: rows, NetWorth: d("51000")}
}

func (m *mockValuer) ValueOnDate(_ context.Context, date domain.Date) (valuation.Valuation, error) {
	m.askedDate = date
	return m.valuation(date), m.err
}

func (m *mockValuer) Current(_ context.Context) (valuation.Valuation, error) {
	return m.valuation(feb), m.err
}

func (m *mockValuer) History(_ context.Context) ([]valuation.HistoryPoint, error) {
	return []valuation.HistoryPoint{{Date: feb, NetWorth: d("51000")}}, m.err
}

func (m *mockValuer) Diagnose(_ context.Context) (valuation.Diagnostics, error) {
	return valuation.Diagnostics{Snapshots: 2}, m.err
}

type mockReturns struct{}

func (mockReturns) Report(_ context.Context) (returns.Report, error) {
	return returns.Report{PnL: returns.PnL{ROIPercent: d("25")}}, nil
}

type mockResolver struct {
	symbols  []string
	resolved []string
	dryRun   bool
	batchErr error
	manual   []domain.PriceRecord
}

func (m *mockResolver) SymbolsNeedingPrices(_ context.Context) ([]string, error) {
	return m.symbols, nil
}

func (m *mockResolver) ResolveBatch(_ context.Context, symbols []string, opts ...resolver.BatchOption) (resolver.BatchResult, error) {
	m.resolved = symbols
	m.dryRun = len(opts) > 0
	return resolver.BatchResult{Symbols: symbols, Resolved: len(symbols)}, m.batchErr
}

func (m *mockResolver) SetManualPrice(_ context.Context, date domain.Date, symbol string, price decimal.Decimal) (domain.PriceRecord, error) {
	rec := domain.PriceRecord{Date: date, Symbol: symbol, PriceUSD: price, Source: domain.SourceManual}
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return domain.PriceRecord{}, err
	}
	m.manual = append(m.manual, rec)
	return rec, nil
}

type mockLedger struct {
	snapshots []domain.Snapshot
	transfers []domain.Transfer
	limit     int
}

func (m *mockLedger) UpsertSnapshots(_ context.Context, snapshots []domain.Snapshot) error {
	for i := range snapshots {
		snapshots[i].Normalize()
		if err := snapshots[i].Validate(); err != nil {
			return err
		}
	}
	m.snapshots = append(m.snapshots, snapshots...)
	return nil
}

func (m *mockLedger) AddTransfer(_ context.Context, t domain.Transfer) (domain.Transfer, error) {
	if err := t.Validate(); err != nil {
		return domain.Transfer{}, err
	}
	t.ID = int64(len(m.transfers) + 1)
	m.transfers = append(m.transfers, t)
	return t, nil
}

func (m *mockLedger) RecentSnapshots(_ context.Context, limit int) ([]domain.Snapshot, error) {
	m.limit = limit
	return m.snapshots, nil
}

func (m *mockLedger) RecentTransfers(_ context.Context, limit int) ([]domain.Transfer, error) {
	m.limit = limit
	return m.transfers, nil
}

func (m *mockLedger) DistinctAccounts(_ context.Context) ([]string, error) {
	return []string{"Ledger", "Wallet"}, nil
}

type fixedFX struct{ rate decimal.Decimal }

func (f fixedFX) FetchRate(_ context.Context, currency string) decimal.Decimal {
	if currency == "USD" {
		return decimal.NewFromInt(1)
	}
	return f.rate
}

type fixture struct {
	mux      *http.ServeMux
	valuer   *mockValuer
	resolver *mockResolver
	ledger   *mockLedger
}

func newFixture() *fixture {
	f := &fixture{
		valuer:   &mockValuer{},
		resolver: &mockResolver{symbols: []string{"BTC", "AAPL"}},
		ledger:   &mockLedger{},
	}
	f.mux = NewMux(NewHandler(Services{
		Valuation: f.valuer,
		Returns:   mockReturns{},
		Resolver:  f.resolver,
		Ledger:    f.ledger,
		FX:        fixedFX{rate: d("7")},
	}))
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}
}

func TestGetNetWorthCurrent(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/v1/networth", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp struct {
		Date      string `json:"date"`
		NetWorth  string `json:"netWorth"`
		Currency  string `json:"currency"`
		BySymbol  []struct{ Symbol string }
		ByAccount []struct{ Account string }
	}
	decode(t, w, &resp)
	if resp.Date != "2024-02-01" || resp.NetWorth != "51000" || resp.Currency != "USD" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.BySymbol) != 2 || resp.BySymbol[0].Symbol != "BTC" {
		t.Errorf("bySymbol = %+v", resp.BySymbol)
	}
	if len(resp.ByAccount) != 2 || resp.ByAccount[0].Account != "Ledger" {
		t.Errorf("byAccount = %+v", resp.ByAccount)
	}
}

func TestGetNetWorthOnDateInCurrency(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/v1/networth?date=2024-01-15&currency=cny", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if f.valuer.askedDate != domain.NewDate(2024, time.January, 15) {
		t.Errorf("asked date = %s", f.valuer.askedDate)
	}

	var resp struct {
		NetWorth string `json:"netWorth"`
		Currency string `json:"currency"`
	}
	decode(t, w, &resp)
	if resp.Currency != "CNY" || resp.NetWorth != "357000" {
		t.Errorf("response = %+v, want 357000 CNY", resp)
	}
}

func TestGetNetWorthErrors(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodGet, "/api/v1/networth?date=15-01-2024", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", w.Code)
	}

	f.valuer.err = errors.New("db down")
	if w := f.do(http.MethodGet, "/api/v1/networth", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("store error status = %d, want 500", w.Code)
	}
}

func TestGetHistoryAndReturns(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/v1/networth/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d, want 200", w.Code)
	}
	var hist struct {
		Currency string `json:"currency"`
		Points   []struct {
			Date     string `json:"date"`
			NetWorth string `json:"netWorth"`
		} `json:"points"`
	}
	decode(t, w, &hist)
	if hist.Currency != "USD" || len(hist.Points) != 1 || hist.Points[0].NetWorth != "51000" {
		t.Errorf("history = %+v", hist)
	}

	w = f.do(http.MethodGet, "/api/v1/returns", "")
	if w.Code != http.StatusOK {
		t.Fatalf("returns status = %d, want 200", w.Code)
	}
	var rep struct {
		PnL struct {
			ROIPercent string `json:"roiPercent"`
		} `json:"pnl"`
	}
	decode(t, w, &rep)
	if rep.PnL.ROIPercent != "25" {
		t.Errorf("roi = %q, want 25", rep.PnL.ROIPercent)
	}

	if w := f.do(http.MethodGet, "/api/v1/diagnostics", ""); w.Code != http.StatusOK {
		t.Errorf("diagnostics status = %d, want 200", w.Code)
	}
}

func TestResolvePrices(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSymbols []string
		wantDryRun  bool
	}{
		{"empty body uses snapshot symbols", "", []string{"BTC", "AAPL"}, false},
		{"empty list uses snapshot symbols", `{"symbols":[]}`, []string{"BTC", "AAPL"}, false},
		{"explicit symbols", `{"symbols":["eth"],"dryRun":true}`, []string{"eth"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := f.do(http.MethodPost, "/api/v1/prices/resolve", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
			}
			if strings.Join(f.resolver.resolved, ",") != strings.Join(tt.wantSymbols, ",") {
				t.Errorf("resolved = %v, want %v", f.resolver.resolved, tt.wantSymbols)
			}
			if f.resolver.dryRun != tt.wantDryRun {
				t.Errorf("dryRun = %v, want %v", f.resolver.dryRun, tt.wantDryRun)
			}
		})
	}
}

func TestResolvePricesErrors(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodPost, "/api/v1/prices/resolve", `{"symbols":`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}

	f.resolver.batchErr = errors.New("tx aborted")
	if w := f.do(http.MethodPost, "/api/v1/prices/resolve", `{"symbols":["BTC"]}`); w.Code != http.StatusInternalServerError {
		t.Errorf("persistence error status = %d, want 500", w.Code)
	}
}

func TestPostManualPrice(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/v1/prices", `{"date":"2024-02-01","symbol":"xaut","priceUsd":"2050.5"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if len(f.resolver.manual) != 1 || f.resolver.manual[0].Symbol != "XAUT" {
		t.Errorf("manual = %+v", f.resolver.manual)
	}

	if w := f.do(http.MethodPost, "/api/v1/prices", `{"symbol":"XAUT","priceUsd":"-1"}`); w.Code != http.StatusBadRequest {
		t.Errorf("negative price status = %d, want 400", w.Code)
	}
}

func TestPostSnapshots(t *testing.T) {
	f := newFixture()

	body := `{"date":"2024-02-01","account":" Ledger ","holdings":[{"symbol":"btc","quantity":"0.5"},{"symbol":"eth","quantity":2}]}`
	w := f.do(http.MethodPost, "/api/v1/snapshots", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if len(f.ledger.snapshots) != 2 {
		t.Fatalf("saved = %d, want 2", len(f.ledger.snapshots))
	}
	s := f.ledger.snapshots[0]
	if s.AccountName != "Ledger" || s.Symbol != "BTC" || s.Date != feb {
		t.Errorf("snapshot = %+v", s)
	}

	tests := []struct {
		name string
		body string
	}{
		{"no holdings", `{"account":"Ledger","holdings":[]}`},
		{"zero quantity", `{"account":"Ledger","holdings":[{"symbol":"BTC","quantity":"0"}]}`},
		{"missing account", `{"holdings":[{"symbol":"BTC","quantity":"1"}]}`},
		{"unknown field", `{"account":"Ledger","holdings":[{"symbol":"BTC","quantity":"1"}],"extra":1}`},
		{"bad date", `{"date":"yesterday","account":"Ledger","holdings":[{"symbol":"BTC","quantity":"1"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := f.do(http.MethodPost, "/api/v1/snapshots", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestPostTransfer(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/v1/transfers", `{"date":"2024-01-01","kind":"deposit","amountUsd":"10000","note":"initial"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var saved domain.Transfer
	decode(t, w, &saved)
	if saved.ID != 1 || saved.Kind != domain.TransferDeposit || saved.Note == nil || *saved.Note != "initial" {
		t.Errorf("saved = %+v", saved)
	}

	if w := f.do(http.MethodPost, "/api/v1/transfers", `{"kind":"gift","amountUsd":"1"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", w.Code)
	}
}

func TestListRecent(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/v1/snapshots/recent?limit=5000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if f.ledger.limit != 1000 {
		t.Errorf("limit = %d, want 1000 (capped)", f.ledger.limit)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}

	f.do(http.MethodGet, "/api/v1/transfers/recent", "")
	if f.ledger.limit != 20 {
		t.Errorf("limit = %d, want default 20", f.ledger.limit)
	}

	w = f.do(http.MethodGet, "/api/v1/accounts", "")
	var accounts []string
	decode(t, w, &accounts)
	if len(accounts) != 2 {
		t.Errorf("accounts = %v", accounts)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodDelete, "/api/v1/networth", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
