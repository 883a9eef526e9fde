// Package source holds the external price sources. Every adapter exposes the same
// PriceSource capability and reports every problem as a *Failure; none of them retries.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const httpTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is kept in a Failure.
const maxErrorBody = 256

// PriceSource fetches the current USD price of a symbol.
// Implementations return a *Failure for every error.
type PriceSource interface {
	Name() string
	FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// FailureKind classifies why a source could not produce a price.
type FailureKind string

const (
	FailureNetwork       FailureKind = "network"
	FailureRateLimited   FailureKind = "rate_limited"
	FailureUnknownSymbol FailureKind = "unknown_symbol"
	FailureMalformed     FailureKind = "malformed_response"
	FailureInvalidPrice  FailureKind = "invalid_price"
	FailureCancelled     FailureKind = "cancelled"
)

// Failure is the typed error returned by every adapter.
type Failure struct {
	Source string
	Symbol string
	Kind   FailureKind
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s: %s", f.Source, f.Symbol, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %s: %v", f.Source, f.Symbol, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure returns err as a *Failure, classifying foreign errors as network failures
// and context errors as cancellations.
func AsFailure(sourceName, symbol string, err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	kind := FailureNetwork
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = FailureCancelled
	}
	return &Failure{Source: sourceName, Symbol: symbol, Kind: kind, Err: err}
}

func newFailure(sourceName, symbol string, kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Source: sourceName, Symbol: symbol, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// checkPrice rejects non-positive prices.
func checkPrice(sourceName, symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, newFailure(sourceName, symbol, FailureInvalidPrice, "non-positive price %s", price)
	}
	return price, nil
}

// recoverFailure turns a panic inside a third-party call into a malformed-response failure.
func recoverFailure(sourceName, symbol string, err *error) {
	if r := recover(); r != nil {
		*err = newFailure(sourceName, symbol, FailureMalformed, "recovered panic: %v", r)
	}
}

// response is the raw outcome of a single GET.
type response struct {
	status int
	body   []byte
}

// get performs one GET request. Transport errors come back as *Failure;
// non-200 statuses are returned to the caller for source-specific classification.
func get(ctx context.Context, client *http.Client, sourceName, symbol, url string, headers map[string]string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return response{}, newFailure(sourceName, symbol, FailureNetwork, "creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return response{}, AsFailure(sourceName, symbol, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, AsFailure(sourceName, symbol, fmt.Errorf("reading response: %w", err))
	}
	return response{status: resp.StatusCode, body: body}, nil
}

// statusFailure maps common non-200 statuses to failure kinds.
func statusFailure(sourceName, symbol string, resp response) *Failure {
	kind := FailureNetwork
	switch resp.status {
	case http.StatusTooManyRequests:
		kind = FailureRateLimited
	case http.StatusNotFound:
		kind = FailureUnknownSymbol
	}
	return newFailure(sourceName, symbol, kind, "HTTP %d: %s", resp.status, truncate(resp.body))
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
