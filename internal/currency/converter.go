package currency

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Converter normalizes arbitrary-currency amounts to the reference
// currency. Live rates are cached; on provider failure the hardcoded
// fallback table is consulted before giving up.
type Converter struct {
	provider RateProvider
	cache    *RateCache
	logger   *zap.Logger
}

// NewConverter creates a new converter
func NewConverter(provider RateProvider, cache *RateCache, logger *zap.Logger) *Converter {
	return &Converter{
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

// RateToReference resolves the exchange rate for one unit of currency.
// The reference currency always maps to 1.
func (c *Converter) RateToReference(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)

	if currency == Reference {
		return decimal.NewFromInt(1), nil
	}

	if rate, ok := c.cache.Get(currency); ok {
		return rate, nil
	}

	rate, err := c.provider.RateToReference(ctx, currency)
	if err != nil {
		c.logger.Warn("Live rate lookup failed, using fallback table",
			zap.String("currency", currency),
			zap.Error(err))
		return fallbackRate(currency)
	}

	c.cache.Put(currency, rate)
	return rate, nil
}

// ToReference converts an amount to the reference currency, rounding
// down to the smallest currency unit.
func (c *Converter) ToReference(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	if strings.ToUpper(currency) == Reference {
		return amount, nil
	}

	rate, err := c.RateToReference(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(rate).RoundDown(2), nil
}
