package validation

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/repository"
)

// ErrCategoryNotFound indicates the category referenced by a validation
// request does not exist. Fatal precondition, not a validation failure.
var ErrCategoryNotFound = errors.New("category not found")

// Result is a validation outcome. Invalid results are a normal business
// outcome, not errors; Reason is specific enough to reconstruct which
// limit failed and by how much.
type Result struct {
	Valid     bool
	Reason    string
	Remaining *decimal.Decimal
}

// Validator applies per-transaction, monthly and annual limit checks
// against the balance ledger. Amounts must already be normalized to the
// reference currency.
type Validator struct {
	categories *repository.CategoryRepository
	balances   *repository.BalanceRepository
	logger     *zap.Logger
}

// NewValidator creates a new validator
func NewValidator(categories *repository.CategoryRepository, balances *repository.BalanceRepository, logger *zap.Logger) *Validator {
	return &Validator{
		categories: categories,
		balances:   balances,
		logger:     logger,
	}
}

// Validate checks amount against the category's limits in order:
// transaction cap, monthly remaining, annual remaining. Short-circuits
// on the first failure. Run inside the same transaction as the
// subsequent ledger accumulation so the read-check-write sequence
// cannot interleave with a concurrent submission on the same period.
func (v *Validator) Validate(tx *sql.Tx, employeeID, categoryID string, amount decimal.Decimal, now time.Time) (*Result, error) {
	category, err := v.categories.GetByID(tx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}

	if amount.GreaterThan(category.MaxTransaction) {
		return &Result{
			Valid:  false,
			Reason: fmt.Sprintf("Amount %s exceeds maximum transaction limit of %s", amount, category.MaxTransaction),
		}, nil
	}

	year, month := now.Year(), int(now.Month())

	monthlyUsed, err := v.balances.MonthlyUsed(tx, employeeID, categoryID, year, month)
	if err != nil {
		return nil, err
	}
	monthlyRemaining := category.MonthlyLimit.Sub(monthlyUsed)
	if amount.GreaterThan(monthlyRemaining) {
		return &Result{
			Valid:     false,
			Reason:    fmt.Sprintf("Insufficient monthly balance. Remaining: %s, Requested: %s", monthlyRemaining, amount),
			Remaining: &monthlyRemaining,
		}, nil
	}

	annualUsed, err := v.balances.AnnualUsed(tx, employeeID, categoryID, year)
	if err != nil {
		return nil, err
	}
	annualRemaining := category.AnnualLimit.Sub(annualUsed)
	if amount.GreaterThan(annualRemaining) {
		return &Result{
			Valid:     false,
			Reason:    fmt.Sprintf("Insufficient annual balance. Remaining: %s, Requested: %s", annualRemaining, amount),
			Remaining: &annualRemaining,
		}, nil
	}

	headroom := decimal.Min(monthlyRemaining, annualRemaining)

	v.logger.Debug("Validation passed",
		zap.String("employee_id", employeeID),
		zap.String("category_id", categoryID),
		zap.String("amount", amount.String()),
		zap.String("headroom", headroom.String()))

	return &Result{
		Valid:     true,
		Remaining: &headroom,
	}, nil
}
