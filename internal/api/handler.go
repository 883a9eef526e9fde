package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/resolver"
	"github.com/mtlprog/ledger/internal/returns"
	"github.com/mtlprog/ledger/internal/valuation"
)

// Valuer computes valuations.
type Valuer interface {
	ValueOnDate(ctx context.Context, date domain.Date) (valuation.Valuation, error)
	Current(ctx context.Context) (valuation.Valuation, error)
	History(ctx context.Context) ([]valuation.HistoryPoint, error)
	Diagnose(ctx context.Context) (valuation.Diagnostics, error)
}

// ReturnsReporter computes return metrics.
type ReturnsReporter interface {
	Report(ctx context.Context) (returns.Report, error)
}

// PriceResolver resolves and records prices.
type PriceResolver interface {
	SymbolsNeedingPrices(ctx context.Context) ([]string, error)
	ResolveBatch(ctx context.Context, symbols []string, opts ...resolver.BatchOption) (resolver.BatchResult, error)
	SetManualPrice(ctx context.Context, date domain.Date, symbol string, price decimal.Decimal) (domain.PriceRecord, error)
}

// Ledger records and lists snapshots and transfers.
type Ledger interface {
	UpsertSnapshots(ctx context.Context, snapshots []domain.Snapshot) error
	AddTransfer(ctx context.Context, t domain.Transfer) (domain.Transfer, error)
	RecentSnapshots(ctx context.Context, limit int) ([]domain.Snapshot, error)
	RecentTransfers(ctx context.Context, limit int) ([]domain.Transfer, error)
	DistinctAccounts(ctx context.Context) ([]string, error)
}

// RateFetcher converts USD into a display currency. It never fails.
type RateFetcher interface {
	FetchRate(ctx context.Context, currency string) decimal.Decimal
}

// Services are the dependencies of the API handlers.
type Services struct {
	Valuation       Valuer
	Returns         ReturnsReporter
	Resolver        PriceResolver
	Ledger          Ledger
	FX              RateFetcher
	DisplayCurrency string
}

// Handler provides HTTP endpoints for the ledger API.
type Handler struct {
	svc Services
}

// NewHandler creates a new API handler.
func NewHandler(svc Services) *Handler {
	if svc.DisplayCurrency == "" {
		svc.DisplayCurrency = valuation.BaseCurrency
	}
	return &Handler{svc: svc}
}

type netWorthResponse struct {
	valuation.Valuation
	BySymbol  []valuation.SymbolTotal  `json:"bySymbol"`
	ByAccount []valuation.AccountTotal `json:"byAccount"`
}

// GetNetWorth handles GET /api/v1/networth[?date=YYYY-MM-DD&currency=CODE].
func (h *Handler) GetNetWorth(w http.ResponseWriter, r *http.Request) {
	var (
		v   valuation.Valuation
		err error
	)
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, perr := domain.ParseDate(dateStr)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
		v, err = h.svc.Valuation.ValueOnDate(r.Context(), date)
	} else {
		v, err = h.svc.Valuation.Current(r.Context())
	}
	if err != nil {
		slog.Error("failed to compute net worth", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	v = h.convert(r, v)
	writeJSON(w, http.StatusOK, netWorthResponse{
		Valuation: v,
		BySymbol:  valuation.BySymbol(v.Rows),
		ByAccount: valuation.ByAccount(v.Rows),
	})
}

type historyResponse struct {
	Currency string                   `json:"currency"`
	Points   []valuation.HistoryPoint `json:"points"`
}

// GetHistory handles GET /api/v1/networth/history[?currency=CODE].
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	points, err := h.svc.Valuation.History(r.Context())
	if err != nil {
		slog.Error("failed to compute net worth history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	currency := h.currency(r)
	rate := h.rate(r.Context(), currency)
	converted := make([]valuation.HistoryPoint, len(points))
	for i, p := range points {
		converted[i] = valuation.HistoryPoint{Date: p.Date, NetWorth: p.NetWorth.Mul(rate)}
	}
	writeJSON(w, http.StatusOK, historyResponse{Currency: currency, Points: converted})
}

// GetReturns handles GET /api/v1/returns.
func (h *Handler) GetReturns(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Returns.Report(r.Context())
	if err != nil {
		slog.Error("failed to compute returns", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetDiagnostics handles GET /api/v1/diagnostics.
func (h *Handler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	diag, err := h.svc.Valuation.Diagnose(r.Context())
	if err != nil {
		slog.Error("failed to run diagnostics", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, diag)
}

func (h *Handler) currency(r *http.Request) string {
	if c := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency"))); c != "" {
		return c
	}
	return h.svc.DisplayCurrency
}

func (h *Handler) rate(ctx context.Context, currency string) decimal.Decimal {
	if currency == valuation.BaseCurrency || h.svc.FX == nil {
		return decimal.NewFromInt(1)
	}
	return h.svc.FX.FetchRate(ctx, currency)
}

func (h *Handler) convert(r *http.Request, v valuation.Valuation) valuation.Valuation {
	currency := h.currency(r)
	if currency == valuation.BaseCurrency {
		return v
	}
	return valuation.Convert(v, currency, h.rate(r.Context(), currency))
}

// limitParam reads ?limit= bounded to [1, maxLimit], using def when absent or invalid.
func limitParam(r *http.Request, def, maxLimit int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			return min(n, maxLimit)
		}
	}
	return def
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %w", domain.ErrInvalid, err)
	}
	return nil
}

// writeWriteError maps validation failures to 400 and everything else to 500.
func writeWriteError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, domain.ErrInvalid) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("failed to "+action, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
