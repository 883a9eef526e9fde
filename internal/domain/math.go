package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// usdPrecision is the number of decimal places shown for USD amounts.
const usdPrecision = 2

var hundred = decimal.NewFromInt(100)

// SafeDivide divides a by b, returning zero when b is zero.
func SafeDivide(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Percent returns part / whole * 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	return SafeDivide(part, whole).Mul(hundred)
}

// FormatAmount rounds to the given number of places and strips trailing zeros.
func FormatAmount(d decimal.Decimal, places int32) string {
	s := d.Round(places).StringFixed(places)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// FormatUSD renders a USD amount with cent precision, e.g. "1234.50".
func FormatUSD(d decimal.Decimal) string {
	return d.Round(usdPrecision).StringFixed(usdPrecision)
}
