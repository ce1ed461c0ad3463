package models

import "github.com/shopspring/decimal"

// Monetary amounts are persisted as integer cents to keep SQL arithmetic
// (upsert addition, SUM) exact. These helpers convert at the repository
// boundary.

// AmountFromCents converts stored cents to a decimal amount
func AmountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CentsFromAmount converts a decimal amount to cents, rounding to the
// smallest currency unit first
func CentsFromAmount(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
