package model

import "github.com/shopspring/decimal"

// FormatAmount renders an amount with two fractional digits for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Cents converts an amount in major units to minor units, rounding half away from zero.
// Examples: 99.00 → 9900, 0.005 → 1
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
