package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

var exportHeaders = []string{
	"Category", "Year", "Month",
	"Monthly Limit", "Monthly Used", "Monthly Remaining",
	"Annual Limit", "Annual Used", "Annual Remaining",
}

// ExportXLSX renders an employee's balance summaries as a spreadsheet.
// Amounts are in the reference currency.
func (r *BalanceReporter) ExportXLSX(employee *models.Employee, summaries []*models.BalanceSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	if err := f.SetCellValue(sheet, "A1", fmt.Sprintf("Benefit balances for %s (%s)", employee.Name, employee.EmployeeCode)); err != nil {
		return nil, fmt.Errorf("failed to write report title: %w", err)
	}

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 3)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, s := range summaries {
		row := i + 4
		values := []interface{}{
			s.CategoryName, s.Year, s.Month,
			s.MonthlyLimit.InexactFloat64(), s.MonthlyUsed.InexactFloat64(), s.MonthlyRemaining.InexactFloat64(),
			s.AnnualLimit.InexactFloat64(), s.AnnualUsed.InexactFloat64(), s.AnnualRemaining.InexactFloat64(),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}

	r.logger.Info("Balance report exported",
		zap.String("employee_id", employee.ID),
		zap.Int("categories", len(summaries)))

	return buf.Bytes(), nil
}
