// Package money holds the decimal helpers shared by every reconciliation
// algorithm. All comparisons tolerate one cent of drift.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance used for amount equality (0.01 currency units).
var Epsilon = decimal.New(1, -2)

// Equal reports whether a and b differ by less than Epsilon.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// IsZero reports whether a is within Epsilon of zero.
func IsZero(a decimal.Decimal) bool {
	return a.Abs().LessThan(Epsilon)
}

// Positive reports whether a is at least one cent above zero.
func Positive(a decimal.Decimal) bool {
	return a.GreaterThanOrEqual(Epsilon)
}

// Round rounds to cents.
func Round(a decimal.Decimal) decimal.Decimal {
	return a.Round(2)
}

// Sum adds the values; an empty list sums to zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps a at zero.
func NonNegative(a decimal.Decimal) decimal.Decimal {
	if a.IsNegative() {
		return decimal.Zero
	}
	return a
}

// NormalizeCurrency upper-cases and trims an ISO currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SameCurrency compares two codes; an empty code matches anything.
func SameCurrency(a, b string) bool {
	a, b = NormalizeCurrency(a), NormalizeCurrency(b)
	return a == "" || b == "" || a == b
}

// Amount is a value scoped to a currency.
type Amount struct {
	Currency string
	Value    decimal.Decimal
}

// GroupByCurrency totals amounts per normalised currency code. Amounts in
// different currencies are never added together.
func GroupByCurrency(amounts []Amount) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(amounts))
	for _, a := range amounts {
		code := NormalizeCurrency(a.Currency)
		out[code] = out[code].Add(a.Value)
	}
	return out
}
