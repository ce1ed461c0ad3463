package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalancePeriod tracks benefit usage for one employee, category and
// calendar month. At most one row exists per (employee, category, year,
// month); rows are created lazily on first use. The annual total is
// derived by summing monthly_used across the year, never stored.
type BalancePeriod struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employee_id"`
	CategoryID  string          `json:"category_id"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	MonthlyUsed decimal.Decimal `json:"monthly_used"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BalanceSummary is the per-category balance view returned by the API.
// Amounts are in the reference currency.
type BalanceSummary struct {
	CategoryID       string          `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	AnnualLimit      decimal.Decimal `json:"annual_limit"`
	MonthlyLimit     decimal.Decimal `json:"monthly_limit"`
	AnnualUsed       decimal.Decimal `json:"annual_used"`
	MonthlyUsed      decimal.Decimal `json:"monthly_used"`
	AnnualRemaining  decimal.Decimal `json:"annual_remaining"`
	MonthlyRemaining decimal.Decimal `json:"monthly_remaining"`
}
