package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCentsConversion(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		cents  int64
	}{
		{name: "whole dollars", amount: "120", cents: 12000},
		{name: "with cents", amount: "120.50", cents: 12050},
		{name: "zero", amount: "0", cents: 0},
		{name: "sub-cent rounds to nearest", amount: "0.005", cents: 1},
		{name: "large amount", amount: "99999.99", cents: 9999999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cents, CentsFromAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestAmountFromCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 12050, 9999999} {
		amount := AmountFromCents(cents)
		assert.Equal(t, cents, CentsFromAmount(amount), "cents %d survive the round trip", cents)
	}
}
