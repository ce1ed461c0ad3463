package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

func TestRequestLifecycle(t *testing.T) {
	db := setupTestDB(t)
	employee := seedEmployee(t, db)
	category := seedCategory(t, db, "Fitness", "1000", "3000", "500")

	repo := NewRequestRepository(db.DB, zap.NewNop())

	request := &models.ReimbursementRequest{
		EmployeeID:  employee.ID,
		DocumentURL: "/documents/abc.jpg",
		DocumentID:  "abc",
	}
	require.NoError(t, repo.Create(nil, request))
	assert.NotEmpty(t, request.ID, "create assigns an id")
	assert.Equal(t, models.StatusProcessing, request.Status)

	request.Amount = decimal.RequireFromString("42.99")
	request.Currency = "EUR"
	require.NoError(t, repo.UpdateExtracted(nil, request))

	request.Status = models.StatusApproved
	request.CategoryID = &category.ID
	require.NoError(t, repo.Finalize(nil, request))

	got, err := repo.GetByID(nil, request.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("42.99")))
	assert.Equal(t, "EUR", got.Currency)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, category.ID, *got.CategoryID)
	assert.Nil(t, got.RejectionReason)
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())

	got, err := repo.GetByID(nil, "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMarkFailedOnlyFromProcessing(t *testing.T) {
	db := setupTestDB(t)
	employee := seedEmployee(t, db)

	repo := NewRequestRepository(db.DB, zap.NewNop())

	request := &models.ReimbursementRequest{
		EmployeeID:  employee.ID,
		DocumentURL: "/documents/abc.jpg",
		DocumentID:  "abc",
	}
	require.NoError(t, repo.Create(nil, request))
	require.NoError(t, repo.MarkFailed(request.ID))

	got, err := repo.GetByID(nil, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)

	// a terminal status never regresses to failed
	request.Status = models.StatusApproved
	require.NoError(t, repo.Finalize(nil, request))
	require.NoError(t, repo.MarkFailed(request.ID))

	got, err = repo.GetByID(nil, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}
