package report

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
	"github.com/perkflow/benefit-reimbursement/internal/repository"
)

// BalanceReporter builds per-category balance views for an employee
type BalanceReporter struct {
	categories *repository.CategoryRepository
	balances   *repository.BalanceRepository
	logger     *zap.Logger
}

// NewBalanceReporter creates a new reporter
func NewBalanceReporter(categories *repository.CategoryRepository, balances *repository.BalanceRepository, logger *zap.Logger) *BalanceReporter {
	return &BalanceReporter{
		categories: categories,
		balances:   balances,
		logger:     logger,
	}
}

// Summaries returns one row per category for the given period. Annual
// used is derived by summing that year's monthly rows.
func (r *BalanceReporter) Summaries(employeeID string, year, month int) ([]*models.BalanceSummary, error) {
	categories, err := r.categories.List(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	summaries := make([]*models.BalanceSummary, 0, len(categories))
	for _, category := range categories {
		monthlyUsed, err := r.balances.MonthlyUsed(nil, employeeID, category.ID, year, month)
		if err != nil {
			return nil, err
		}
		annualUsed, err := r.balances.AnnualUsed(nil, employeeID, category.ID, year)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, &models.BalanceSummary{
			CategoryID:       category.ID,
			CategoryName:     category.Name,
			Year:             year,
			Month:            month,
			AnnualLimit:      category.AnnualLimit,
			MonthlyLimit:     category.MonthlyLimit,
			AnnualUsed:       annualUsed,
			MonthlyUsed:      monthlyUsed,
			AnnualRemaining:  category.AnnualLimit.Sub(annualUsed),
			MonthlyRemaining: category.MonthlyLimit.Sub(monthlyUsed),
		})
	}

	return summaries, nil
}
