package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/resolver"
)

type resolveRequest struct {
	Symbols []string `json:"symbols"`
	DryRun  bool     `json:"dryRun"`
}

// ResolvePrices handles POST /api/v1/prices/resolve. An empty symbol list resolves
// every symbol held in snapshots.
func (h *Handler) ResolvePrices(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		var err error
		symbols, err = h.svc.Resolver.SymbolsNeedingPrices(r.Context())
		if err != nil {
			slog.Error("failed to list symbols needing prices", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	var opts []resolver.BatchOption
	if req.DryRun {
		opts = append(opts, resolver.DryRun())
	}

	result, err := h.svc.Resolver.ResolveBatch(r.Context(), symbols, opts...)
	if err != nil {
		slog.Error("failed to save resolved prices", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save resolved prices")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type manualPriceRequest struct {
	Date     domain.Date     `json:"date"`
	Symbol   string          `json:"symbol"`
	PriceUSD decimal.Decimal `json:"priceUsd"`
}

// PostManualPrice handles POST /api/v1/prices. A missing date means today.
func (h *Handler) PostManualPrice(w http.ResponseWriter, r *http.Request) {
	var req manualPriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Date.IsZero() {
		req.Date = domain.Today()
	}

	record, err := h.svc.Resolver.SetManualPrice(r.Context(), req.Date, req.Symbol, req.PriceUSD)
	if err != nil {
		writeWriteError(w, "save manual price", err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}
