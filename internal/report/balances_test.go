package report

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
	"github.com/perkflow/benefit-reimbursement/internal/repository"
	"github.com/perkflow/benefit-reimbursement/pkg/database"
)

func setupReporter(t *testing.T) (*BalanceReporter, *repository.BalanceRepository, *models.Employee, *models.Category) {
	t.Helper()

	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	employees := repository.NewEmployeeRepository(db.DB, logger)
	categories := repository.NewCategoryRepository(db.DB, logger)
	balances := repository.NewBalanceRepository(db.DB, logger)

	employee := &models.Employee{ID: uuid.NewString(), Name: "Anna Kim", EmployeeCode: "E-1001"}
	require.NoError(t, employees.Create(nil, employee))

	category := &models.Category{
		ID:             uuid.NewString(),
		Name:           "Fitness",
		MaxTransaction: decimal.RequireFromString("1000"),
		AnnualLimit:    decimal.RequireFromString("3000"),
		MonthlyLimit:   decimal.RequireFromString("500"),
	}
	require.NoError(t, categories.Create(nil, category))

	return NewBalanceReporter(categories, balances, logger), balances, employee, category
}

func TestSummaries(t *testing.T) {
	reporter, balances, employee, category := setupReporter(t)

	_, err := balances.Accumulate(nil, employee.ID, category.ID, 2025, 3, decimal.RequireFromString("200"))
	require.NoError(t, err)
	_, err = balances.Accumulate(nil, employee.ID, category.ID, 2025, 6, decimal.RequireFromString("120.50"))
	require.NoError(t, err)

	summaries, err := reporter.Summaries(employee.ID, 2025, 6)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "Fitness", s.CategoryName)
	assert.True(t, s.MonthlyUsed.Equal(decimal.RequireFromString("120.50")))
	assert.True(t, s.MonthlyRemaining.Equal(decimal.RequireFromString("379.50")))
	assert.True(t, s.AnnualUsed.Equal(decimal.RequireFromString("320.50")), "annual spans all months")
	assert.True(t, s.AnnualRemaining.Equal(decimal.RequireFromString("2679.50")))
}

func TestSummariesUntouchedEmployee(t *testing.T) {
	reporter, _, employee, _ := setupReporter(t)

	summaries, err := reporter.Summaries(employee.ID, 2025, 6)
	require.NoError(t, err)
	require.Len(t, summaries, 1, "every category is reported even with no usage")
	assert.True(t, summaries[0].MonthlyUsed.IsZero())
	assert.True(t, summaries[0].MonthlyRemaining.Equal(decimal.RequireFromString("500")))
}

func TestExportXLSX(t *testing.T) {
	reporter, balances, employee, category := setupReporter(t)

	_, err := balances.Accumulate(nil, employee.ID, category.ID, 2025, 6, decimal.RequireFromString("120.50"))
	require.NoError(t, err)

	summaries, err := reporter.Summaries(employee.ID, 2025, 6)
	require.NoError(t, err)

	data, err := reporter.ExportXLSX(employee, summaries)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)

	title, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "Anna Kim")

	name, err := f.GetCellValue(sheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Fitness", name)

	used, err := f.GetCellValue(sheet, "E4")
	require.NoError(t, err)
	assert.Equal(t, "120.5", used)
}
