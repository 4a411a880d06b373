package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// DefaultTolerance is the largest accepted difference between two totals (one ban)
var DefaultTolerance = decimal.New(1, -2)

// FromString parses a decimal, ignoring surrounding whitespace
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// MulQty multiplies an amount by an integer quantity without rounding
func MulQty(amount decimal.Decimal, qty int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(qty)))
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// AbsDiff returns |a - b|
func AbsDiff(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b).Abs()
}

// WithinTolerance reports whether |a - b| <= tolerance
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return AbsDiff(a, b).LessThanOrEqual(tolerance)
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}

// RoundBani rounds to two decimals (RON has 100 bani)
func RoundBani(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
