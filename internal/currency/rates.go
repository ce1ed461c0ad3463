package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reference is the currency all limits and balances are expressed in.
const Reference = "USD"

// UnsupportedCurrencyError indicates a currency known to neither the
// live provider nor the fallback table.
type UnsupportedCurrencyError struct {
	Code string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("currency %s not supported", e.Code)
}

// RateProvider fetches the exchange rate from a currency to the
// reference currency. Implementations are external collaborators.
type RateProvider interface {
	RateToReference(ctx context.Context, currency string) (decimal.Decimal, error)
}

// HTTPRateProvider queries exchangerate-api.com for live rates
type HTTPRateProvider struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewHTTPRateProvider creates a provider against the public
// exchangerate-api.com endpoint
func NewHTTPRateProvider(timeout time.Duration, logger *zap.Logger) *HTTPRateProvider {
	return &HTTPRateProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: "https://api.exchangerate-api.com/v4/latest",
		logger:  logger,
	}
}

// NewHTTPRateProviderWithURL creates a provider against a custom base
// URL, used by tests
func NewHTTPRateProviderWithURL(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPRateProvider {
	return &HTTPRateProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger,
	}
}

type ratesResponse struct {
	Rates map[string]json.Number `json:"rates"`
}

// RateToReference fetches the live rate for one unit of currency in USD
func (p *HTTPRateProvider) RateToReference(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)

	url := fmt.Sprintf("%s/%s", p.baseURL, currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate provider returned status %d for %s", resp.StatusCode, currency)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}

	raw, ok := body.Rates[Reference]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate response for %s has no %s entry", currency, Reference)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q for %s: %w", raw.String(), currency, err)
	}

	p.logger.Debug("Fetched live exchange rate",
		zap.String("currency", currency),
		zap.String("rate", rate.String()))

	return rate, nil
}

// fallbackRates are approximate rates used when the live provider is
// unreachable. Conservative enough for limit checks; refreshed manually.
var fallbackRates = map[string]string{
	"RUB": "0.011",
	"EUR": "1.10",
	"GBP": "1.27",
	"JPY": "0.0067",
	"CNY": "0.14",
	"INR": "0.012",
	"CAD": "0.74",
	"AUD": "0.66",
}

func fallbackRate(currency string) (decimal.Decimal, error) {
	raw, ok := fallbackRates[strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, &UnsupportedCurrencyError{Code: strings.ToUpper(currency)}
	}
	return decimal.RequireFromString(raw), nil
}
