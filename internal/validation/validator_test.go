package validation

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
	"github.com/perkflow/benefit-reimbursement/internal/repository"
	"github.com/perkflow/benefit-reimbursement/pkg/database"
)

type fixture struct {
	db        *database.DB
	validator *Validator
	balances  *repository.BalanceRepository
	employee  *models.Employee
	category  *models.Category
}

// newFixture seeds one employee and a category with a 1000 transaction
// cap, 500 monthly limit and 3000 annual limit.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	employees := repository.NewEmployeeRepository(db.DB, zap.NewNop())
	categories := repository.NewCategoryRepository(db.DB, zap.NewNop())
	balances := repository.NewBalanceRepository(db.DB, zap.NewNop())

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

	return &fixture{
		db:        db,
		validator: NewValidator(categories, balances, zap.NewNop()),
		balances:  balances,
		employee:  employee,
		category:  category,
	}
}

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestValidateUnknownCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.validator.Validate(nil, f.employee.ID, "no-such-category", decimal.RequireFromString("10"), testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestValidateTransactionCap(t *testing.T) {
	f := newFixture(t)

	result, err := f.validator.Validate(nil, f.employee.ID, f.category.ID, decimal.RequireFromString("1000.01"), testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Amount 1000.01 exceeds maximum transaction limit of 1000", result.Reason)
}

func TestValidateMonthlyBeforeAnnual(t *testing.T) {
	// 1000 passes the transaction cap but exceeds the 500 monthly limit,
	// so the monthly check fires even though the annual limit would also
	// have room to reject
	f := newFixture(t)

	result, err := f.validator.Validate(nil, f.employee.ID, f.category.ID, decimal.RequireFromString("1000"), testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Insufficient monthly balance. Remaining: 500, Requested: 1000", result.Reason)
}

func TestValidateMonthlyAccumulation(t *testing.T) {
	f := newFixture(t)

	result, err := f.validator.Validate(nil, f.employee.ID, f.category.ID, decimal.RequireFromString("300"), testNow)
	require.NoError(t, err)
	require.True(t, result.Valid)

	_, err = f.balances.Accumulate(nil, f.employee.ID, f.category.ID, testNow.Year(), int(testNow.Month()), decimal.RequireFromString("300"))
	require.NoError(t, err)

	result, err = f.validator.Validate(nil, f.employee.ID, f.category.ID, decimal.RequireFromString("300"), testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Insufficient monthly balance. Remaining: 200, Requested: 300", result.Reason)
	require.NotNil(t, result.Remaining)
	assert.True(t, result.Remaining.Equal(decimal.RequireFromString("200")))
}

func TestValidateAnnualAcrossMonths(t *testing.T) {
	f := newFixture(t)

	// 2900 used across earlier months leaves 100 annual headroom even
	// though June itself is untouched
	for _, month := range []int{1, 2, 3, 4, 5} {
		_, err := f.balances.Accumulate(nil, f.employee.ID, f.category.ID, 2025, month, decimal.RequireFromString("580"))
		require.NoError(t, err)
	}

	result, err := f.validator.Validate(nil, f.employee.ID, f.category.ID, decimal.RequireFromString("150"), testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Insufficient annual balance. Remaining: 100, Requested: 150", result.Reason)
}

func TestValidateHeadroomIsTighterLimit(t *testing.T) {
	f := newFixture(t)

	// annual remaining 400 is below the untouched monthly limit 500
	for _, month := range []int{1, 2, 3, 4, 5} {
		_, err := f.balances.Accumulate(nil, f.employee.ID, f.category.ID, 2025, month, decimal.RequireFromString("520"))
		require.NoError(t, err)
	}

	result, err := f.validator.Validate(nil, f.employee.ID, f.category.ID, decimal.RequireFromString("100"), testNow)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.NotNil(t, result.Remaining)
	assert.True(t, result.Remaining.Equal(decimal.RequireFromString("400")), "got %s", result.Remaining)
}

func TestValidateExactRemainingPasses(t *testing.T) {
	f := newFixture(t)

	_, err := f.balances.Accumulate(nil, f.employee.ID, f.category.ID, testNow.Year(), int(testNow.Month()), decimal.RequireFromString("200"))
	require.NoError(t, err)

	result, err := f.validator.Validate(nil, f.employee.ID, f.category.ID, decimal.RequireFromString("300"), testNow)
	require.NoError(t, err)
	assert.True(t, result.Valid, "amount equal to the remaining balance is allowed")
}
