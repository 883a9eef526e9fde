package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
)

type holding struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
}

type snapshotRequest struct {
	Date     domain.Date `json:"date"`
	Account  string      `json:"account"`
	Holdings []holding   `json:"holdings"`
}

// PostSnapshots handles POST /api/v1/snapshots: the holdings of one account on one date.
// A missing date means today.
func (h *Handler) PostSnapshots(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Holdings) == 0 {
		writeError(w, http.StatusBadRequest, "at least one holding is required")
		return
	}
	if req.Date.IsZero() {
		req.Date = domain.Today()
	}

	snapshots := make([]domain.Snapshot, len(req.Holdings))
	for i, hl := range req.Holdings {
		snapshots[i] = domain.Snapshot{
			Date:        req.Date,
			AccountName: req.Account,
			Symbol:      hl.Symbol,
			Quantity:    hl.Quantity,
		}
	}

	if err := h.svc.Ledger.UpsertSnapshots(r.Context(), snapshots); err != nil {
		writeWriteError(w, "save snapshots", err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshots)
}

type transferRequest struct {
	Date      domain.Date         `json:"date"`
	Kind      domain.TransferKind `json:"kind"`
	AmountUSD decimal.Decimal     `json:"amountUsd"`
	Note      *string             `json:"note"`
}

// PostTransfer handles POST /api/v1/transfers. A missing date means today.
func (h *Handler) PostTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Date.IsZero() {
		req.Date = domain.Today()
	}

	saved, err := h.svc.Ledger.AddTransfer(r.Context(), domain.Transfer{
		Date:      req.Date,
		Kind:      req.Kind,
		AmountUSD: req.AmountUSD,
		Note:      req.Note,
	})
	if err != nil {
		writeWriteError(w, "save transfer", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ListRecentSnapshots handles GET /api/v1/snapshots/recent[?limit=N].
func (h *Handler) ListRecentSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.svc.Ledger.RecentSnapshots(r.Context(), limitParam(r, 50, 1000))
	if err != nil {
		writeWriteError(w, "list recent snapshots", err)
		return
	}
	if snapshots == nil {
		snapshots = []domain.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// ListRecentTransfers handles GET /api/v1/transfers/recent[?limit=N].
func (h *Handler) ListRecentTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.svc.Ledger.RecentTransfers(r.Context(), limitParam(r, 20, 1000))
	if err != nil {
		writeWriteError(w, "list recent transfers", err)
		return
	}
	if transfers == nil {
		transfers = []domain.Transfer{}
	}
	writeJSON(w, http.StatusOK, transfers)
}

// ListAccounts handles GET /api/v1/accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Ledger.DistinctAccounts(r.Context())
	if err != nil {
		writeWriteError(w, "list accounts", err)
		return
	}
	if accounts == nil {
		accounts = []string{}
	}
	writeJSON(w, http.StatusOK, accounts)
}
