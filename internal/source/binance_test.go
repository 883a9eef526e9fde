package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func failureKind(t *testing.T, err error) FailureKind {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("error %v is not a *Failure", err)
	}
	return f.Kind
}

func TestBinanceFetchPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %s, want BTCUSDT", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"43000.12000000"}`))
	}))
	defer server.Close()

	client := NewBinanceClient(server.URL)
	price, err := client.FetchPrice(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("43000.12")) {
		t.Errorf("price = %s, want 43000.12", price)
	}
}

func TestBinanceFailureKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   FailureKind
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, FailureRateLimited},
		{"banned", http.StatusTeapot, `{}`, FailureRateLimited},
		{"invalid symbol", http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`, FailureUnknownSymbol},
		{"other bad request", http.StatusBadRequest, `{"code":-1100,"msg":"Illegal characters"}`, FailureNetwork},
		{"server error", http.StatusInternalServerError, `oops`, FailureNetwork},
		{"malformed body", http.StatusOK, `not json`, FailureMalformed},
		{"zero price", http.StatusOK, `{"symbol":"BTCUSDT","price":"0"}`, FailureInvalidPrice},
		{"wrong pair", http.StatusOK, `{"symbol":"ETHUSDT","price":"1"}`, FailureMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewBinanceClient(server.URL).FetchPrice(context.Background(), "BTC")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := failureKind(t, err); got != tt.want {
				t.Errorf("kind = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBinanceContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1 * time.Second)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewBinanceClient(server.URL).FetchPrice(ctx, "BTC")
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if got := failureKind(t, err); got != FailureCancelled {
		t.Errorf("kind = %s, want cancelled", got)
	}
}

func TestBinanceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewBinanceClient(url).FetchPrice(context.Background(), "BTC")
	if got := failureKind(t, err); got != FailureNetwork {
		t.Errorf("kind = %s, want network", got)
	}
}
