package repository

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
	"github.com/perkflow/benefit-reimbursement/pkg/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	return db
}

func seedEmployee(t *testing.T, db *database.DB) *models.Employee {
	t.Helper()

	employee := &models.Employee{
		ID:           uuid.NewString(),
		Name:         "Ivan Petrov",
		EmployeeCode: "EMP-" + uuid.NewString()[:8],
	}
	require.NoError(t, NewEmployeeRepository(db.DB, zap.NewNop()).Create(nil, employee))
	return employee
}

func seedCategory(t *testing.T, db *database.DB, name string, maxTx, annual, monthly string) *models.Category {
	t.Helper()

	category := &models.Category{
		ID:             uuid.NewString(),
		Name:           name,
		MaxTransaction: decimal.RequireFromString(maxTx),
		AnnualLimit:    decimal.RequireFromString(annual),
		MonthlyLimit:   decimal.RequireFromString(monthly),
	}
	require.NoError(t, NewCategoryRepository(db.DB, zap.NewNop()).Create(nil, category))
	return category
}
