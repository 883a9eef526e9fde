package resolver

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/source"
)

// State is the position of a symbol in its resolution plan.
type State string

const (
	StateNotTried       State = "not_tried"
	StateTrying         State = "trying"
	StateExhausted      State = "exhausted"
	StateFallbackTrying State = "fallback_trying"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// ReasonCancelled marks symbols left unresolved because the batch was cancelled.
const ReasonCancelled = "cancelled"

// Attempt records one failed source call.
type Attempt struct {
	Source  string             `json:"source"`
	Attempt int                `json:"attempt"`
	Kind    source.FailureKind `json:"kind"`
	Error   string             `json:"error"`
}

// Outcome is the resolution result for one symbol.
type Outcome struct {
	Symbol   string            `json:"symbol"`
	Class    domain.AssetClass `json:"class"`
	State    State             `json:"state"`
	Price    *decimal.Decimal  `json:"price"`
	Source   string            `json:"source,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Attempts []Attempt         `json:"attempts,omitempty"`
}

// Resolved reports whether a price was found.
func (o *Outcome) Resolved() bool {
	return o != nil && o.State == StateSucceeded && o.Price != nil
}

func (o *Outcome) succeed(price decimal.Decimal, sourceName string) {
	o.State = StateSucceeded
	o.Price = &price
	o.Source = sourceName
	o.Reason = ""
}

func (o *Outcome) fail(reason string) {
	o.State = StateFailed
	o.Price = nil
	o.Reason = reason
}

// BatchResult maps every requested symbol to its outcome.
type BatchResult struct {
	Prices   map[string]*Outcome `json:"prices"`
	Symbols  []string            `json:"symbols"`
	Resolved int                 `json:"resolved"`
	Failed   int                 `json:"failed"`
}
