package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// BalanceRepository is the limit ledger: per-employee, per-category,
// per-month usage records. Rows are created lazily on first accumulation
// and never deleted by normal operation.
type BalanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *sql.DB, logger *zap.Logger) *BalanceRepository {
	return &BalanceRepository{
		db:     db,
		logger: logger,
	}
}

// MonthlyUsed returns the usage recorded for one period. A missing row
// is not an error; it contributes zero.
func (r *BalanceRepository) MonthlyUsed(tx *sql.Tx, employeeID, categoryID string, year, month int) (decimal.Decimal, error) {
	query := `
		SELECT monthly_used_cents
		FROM benefit_balances
		WHERE employee_id = ? AND category_id = ? AND year = ? AND month = ?
	`

	var cents int64
	err := pick(r.db, tx).QueryRow(query, employeeID, categoryID, year, month).Scan(&cents)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		r.logger.Error("Failed to read monthly usage",
			zap.String("employee_id", employeeID),
			zap.String("category_id", categoryID),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to read monthly usage: %w", err)
	}

	return models.AmountFromCents(cents), nil
}

// AnnualUsed derives the annual total by summing monthly rows for the
// year. There is no stored annual counter to drift.
func (r *BalanceRepository) AnnualUsed(tx *sql.Tx, employeeID, categoryID string, year int) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(monthly_used_cents), 0)
		FROM benefit_balances
		WHERE employee_id = ? AND category_id = ? AND year = ?
	`

	var cents int64
	err := pick(r.db, tx).QueryRow(query, employeeID, categoryID, year).Scan(&cents)
	if err != nil {
		r.logger.Error("Failed to read annual usage",
			zap.String("employee_id", employeeID),
			zap.String("category_id", categoryID),
			zap.Int("year", year),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to read annual usage: %w", err)
	}

	return models.AmountFromCents(cents), nil
}

// Accumulate adds delta to the period's usage, creating the row at zero
// if absent, and returns the new monthly total. Callers must run this
// inside the same transaction as the limit checks so concurrent
// submissions against one period serialize.
func (r *BalanceRepository) Accumulate(tx *sql.Tx, employeeID, categoryID string, year, month int, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.IsNegative() {
		return decimal.Zero, fmt.Errorf("accumulate delta must be non-negative, got %s", delta)
	}

	deltaCents := models.CentsFromAmount(delta)

	query := `
		INSERT INTO benefit_balances (id, employee_id, category_id, year, month, monthly_used_cents)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, category_id, year, month) DO UPDATE
		SET monthly_used_cents = monthly_used_cents + excluded.monthly_used_cents,
		    updated_at = CURRENT_TIMESTAMP
	`

	q := pick(r.db, tx)
	if _, err := q.Exec(query, uuid.NewString(), employeeID, categoryID, year, month, deltaCents); err != nil {
		r.logger.Error("Failed to accumulate usage",
			zap.String("employee_id", employeeID),
			zap.String("category_id", categoryID),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to accumulate usage: %w", err)
	}

	return r.MonthlyUsed(tx, employeeID, categoryID, year, month)
}

// PeriodsForYear returns all recorded periods for an employee and
// category in one year, ordered by month.
func (r *BalanceRepository) PeriodsForYear(tx *sql.Tx, employeeID, categoryID string, year int) ([]*models.BalancePeriod, error) {
	query := `
		SELECT id, employee_id, category_id, year, month, monthly_used_cents, created_at, updated_at
		FROM benefit_balances
		WHERE employee_id = ? AND category_id = ? AND year = ?
		ORDER BY month
	`

	rows, err := pick(r.db, tx).Query(query, employeeID, categoryID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance periods: %w", err)
	}
	defer rows.Close()

	var periods []*models.BalancePeriod
	for rows.Next() {
		var p models.BalancePeriod
		var cents int64
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.CategoryID, &p.Year, &p.Month, &cents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance period: %w", err)
		}
		p.MonthlyUsed = models.AmountFromCents(cents)
		periods = append(periods, &p)
	}

	return periods, rows.Err()
}
