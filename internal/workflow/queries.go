package workflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// GetRequest returns a request with its invoice and, for approved
// requests, the remaining headroom in the reference currency.
func (e *Engine) GetRequest(ctx context.Context, requestID string) (*Outcome, error) {
	request, err := e.requests.GetByID(nil, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}

	employee, err := e.employees.GetByID(nil, request.EmployeeID)
	if err != nil {
		return nil, err
	}

	invoice, err := e.invoices.GetByRequestID(nil, request.ID)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Request:  request,
		Invoice:  invoice,
		Employee: employee,
	}

	if request.CategoryID == nil {
		return outcome, nil
	}

	category, err := e.categories.GetByID(nil, *request.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return outcome, nil
	}
	outcome.CategoryName = &category.Name

	if request.Status != models.StatusApproved {
		return outcome, nil
	}

	now := e.now()
	year, month := now.Year(), int(now.Month())

	monthlyUsed, err := e.balances.MonthlyUsed(nil, request.EmployeeID, category.ID, year, month)
	if err != nil {
		return nil, err
	}
	annualUsed, err := e.balances.AnnualUsed(nil, request.EmployeeID, category.ID, year)
	if err != nil {
		return nil, err
	}

	remaining := decimal.Min(
		category.MonthlyLimit.Sub(monthlyUsed),
		category.AnnualLimit.Sub(annualUsed),
	)
	outcome.RemainingBalance = &remaining

	return outcome, nil
}
