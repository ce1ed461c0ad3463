package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category represents a benefit category with its spending limits.
// All limits are expressed in the reference currency (USD). The
// per-transaction cap is independent of the monthly/annual limits.
type Category struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	MaxTransaction decimal.Decimal `json:"max_transaction_amount"`
	AnnualLimit    decimal.Decimal `json:"annual_limit"`
	MonthlyLimit   decimal.Decimal `json:"monthly_limit"`
	Keywords       []Keyword       `json:"keywords,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Keyword is a classification hint attached to a category
type Keyword struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Keyword    string    `json:"keyword"`
	CreatedAt  time.Time `json:"created_at"`
}
