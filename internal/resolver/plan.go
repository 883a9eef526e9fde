package resolver

import (
	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/source"
)

// Sources are the adapters the resolver may call, by role.
type Sources struct {
	Primary   source.PriceSource // crypto exchange
	Secondary source.PriceSource // crypto aggregator, tried once after Primary is exhausted
	Equities  source.PriceSource
}

// Step is one planned source call. Attempt counts from 1 per source.
type Step struct {
	Source  source.PriceSource
	Attempt int
}

// Plan lists, in order, the calls to make for a symbol of the given class.
// Stablecoins get an empty plan. A nil source contributes no steps.
func Plan(class domain.AssetClass, sources Sources, retries int) []Step {
	if retries < 1 {
		retries = 1
	}

	switch class {
	case domain.AssetClassStablecoin:
		return nil
	case domain.AssetClassCrypto:
		steps := repeat(sources.Primary, retries)
		return append(steps, repeat(sources.Secondary, 1)...)
	default:
		return repeat(sources.Equities, retries)
	}
}

func repeat(src source.PriceSource, n int) []Step {
	if src == nil {
		return nil
	}
	steps := make([]Step, 0, n)
	for i := 1; i <= n; i++ {
		steps = append(steps, Step{Source: src, Attempt: i})
	}
	return steps
}
