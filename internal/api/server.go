package api

import (
	"net/http"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, handler *Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // price resolution paces and retries per symbol
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers every API route on a new ServeMux.
func NewMux(handler *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/networth", handler.GetNetWorth)
	mux.HandleFunc("GET /api/v1/networth/history", handler.GetHistory)
	mux.HandleFunc("GET /api/v1/returns", handler.GetReturns)
	mux.HandleFunc("GET /api/v1/diagnostics", handler.GetDiagnostics)
	mux.HandleFunc("GET /api/v1/accounts", handler.ListAccounts)

	mux.HandleFunc("POST /api/v1/prices/resolve", handler.ResolvePrices)
	mux.HandleFunc("POST /api/v1/prices", handler.PostManualPrice)

	mux.HandleFunc("POST /api/v1/snapshots", handler.PostSnapshots)
	mux.HandleFunc("GET /api/v1/snapshots/recent", handler.ListRecentSnapshots)
	mux.HandleFunc("POST /api/v1/transfers", handler.PostTransfer)
	mux.HandleFunc("GET /api/v1/transfers/recent", handler.ListRecentTransfers)
	return mux
}
