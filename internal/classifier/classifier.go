// Package classifier decides the asset class of a symbol, which in turn drives the price
// sources tried for it.
package classifier

import (
	"github.com/samber/lo"

	"github.com/mtlprog/ledger/internal/domain"
)

// Stablecoins are USD-pegged tokens priced at exactly 1.
var Stablecoins = []string{"USDT", "USDC", "DAI", "BUSD", "TUSD", "USDP", "FDUSD"}

// CryptoSymbols are the symbols priced from crypto sources.
var CryptoSymbols = []string{
	"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE", "AVAX",
	"DOT", "MATIC", "LINK", "UNI", "ATOM", "LTC", "ETC", "BCH",
	"NEAR", "APT", "ARB", "OP", "SUI", "TIA", "INJ", "SEI",
	"WLD", "PEPE", "SHIB", "FET", "RENDER", "AGIX",
}

// Classifier maps symbols to asset classes. Unknown symbols are equity-like.
type Classifier struct {
	stablecoins map[string]struct{}
	crypto      map[string]struct{}
}

var defaultClassifier = New(nil, nil)

// New creates a Classifier from the built-in sets extended with extra members.
func New(extraCrypto, extraStablecoins []string) *Classifier {
	return &Classifier{
		stablecoins: toSet(Stablecoins, extraStablecoins),
		crypto:      toSet(CryptoSymbols, extraCrypto),
	}
}

// Classify returns the asset class of symbol. Stablecoin membership wins over crypto.
func (c *Classifier) Classify(symbol string) domain.AssetClass {
	symbol = domain.NormalizeSymbol(symbol)
	if _, ok := c.stablecoins[symbol]; ok {
		return domain.AssetClassStablecoin
	}
	if _, ok := c.crypto[symbol]; ok {
		return domain.AssetClassCrypto
	}
	return domain.AssetClassEquity
}

// Classify classifies symbol with the built-in sets.
func Classify(symbol string) domain.AssetClass {
	return defaultClassifier.Classify(symbol)
}

func toSet(base, extra []string) map[string]struct{} {
	all := lo.Map(append(append([]string{}, base...), extra...), func(s string, _ int) string {
		return domain.NormalizeSymbol(s)
	})
	all = lo.Compact(all)
	return lo.SliceToMap(all, func(s string) (string, struct{}) { return s, struct{}{} })
}
