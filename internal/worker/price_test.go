package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mtlprog/ledger/internal/resolver"
)

type mockResolver struct {
	mu       sync.Mutex
	symbols  []string
	listErr  error
	batches  [][]string
	batchErr error
}

func (m *mockResolver) SymbolsNeedingPrices(_ context.Context) ([]string, error) {
	return m.symbols, m.listErr
}

func (m *mockResolver) ResolveBatch(_ context.Context, symbols []string, _ ...resolver.BatchOption) (resolver.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, symbols)
	return resolver.BatchResult{Symbols: symbols, Resolved: len(symbols)}, m.batchErr
}

func (m *mockResolver) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func TestNewPriceWorkerRejectsBadSchedule(t *testing.T) {
	if _, err := NewPriceWorker(&mockResolver{}, "not a schedule", false, nil); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if _, err := NewPriceWorker(&mockResolver{}, "0 */6 * * *", false, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPriceWorkerUpdate(t *testing.T) {
	m := &mockResolver{symbols: []string{"BTC", "AAPL"}}
	w, err := NewPriceWorker(m, "@hourly", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.update(context.Background())

	if m.batchCount() != 1 || len(m.batches[0]) != 2 {
		t.Errorf("batches = %v, want one batch of 2", m.batches)
	}
}

type mockHook struct {
	calls int
	err   error
}

func (h *mockHook) Export(_ context.Context) error {
	h.calls++
	return h.err
}

func TestPriceWorkerHook(t *testing.T) {
	tests := []struct {
		name      string
		batchErr  error
		wantCalls int
	}{
		{"after success", nil, 1},
		{"not after failure", errors.New("write failed"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook := &mockHook{}
			m := &mockResolver{symbols: []string{"BTC"}, batchErr: tt.batchErr}
			w, _ := NewPriceWorker(m, "@hourly", false, hook)

			w.update(context.Background())

			if hook.calls != tt.wantCalls {
				t.Errorf("hook calls = %d, want %d", hook.calls, tt.wantCalls)
			}
		})
	}
}

func TestPriceWorkerUpdateSkipsWithoutSymbols(t *testing.T) {
	tests := []struct {
		name string
		m    *mockResolver
	}{
		{"no symbols", &mockResolver{}},
		{"list error", &mockResolver{listErr: errors.New("db down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := NewPriceWorker(tt.m, "@hourly", false, nil)
			w.update(context.Background())
			if tt.m.batchCount() != 0 {
				t.Errorf("batches = %d, want 0", tt.m.batchCount())
			}
		})
	}
}

func TestPriceWorkerRunsOnStartAndShutdown(t *testing.T) {
	m := &mockResolver{symbols: []string{"BTC"}}
	w, err := NewPriceWorker(m, "@hourly", true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if got := m.batchCount(); got != 1 {
		t.Errorf("batch count = %d, want 1", got)
	}
}
