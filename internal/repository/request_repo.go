package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// RequestRepository handles reimbursement request persistence
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new request in its initial state
func (r *RequestRepository) Create(tx *sql.Tx, request *models.ReimbursementRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.StatusProcessing
	}

	query := `
		INSERT INTO reimbursement_requests (id, employee_id, status, amount_cents, currency, document_url, document_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := pick(r.db, tx).Exec(query,
		request.ID,
		request.EmployeeID,
		string(request.Status),
		models.CentsFromAmount(request.Amount),
		request.Currency,
		request.DocumentURL,
		request.DocumentID,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("employee_id", request.EmployeeID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

// UpdateExtracted records the amount and currency read from the invoice,
// replacing the placeholder values from submission time.
func (r *RequestRepository) UpdateExtracted(tx *sql.Tx, request *models.ReimbursementRequest) error {
	query := `
		UPDATE reimbursement_requests
		SET amount_cents = ?, currency = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := pick(r.db, tx).Exec(query,
		models.CentsFromAmount(request.Amount),
		request.Currency,
		request.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update extracted amount", zap.String("id", request.ID), zap.Error(err))
		return fmt.Errorf("failed to update extracted amount: %w", err)
	}

	return nil
}

// Finalize writes the request's single status transition along with the
// classified category and any rejection reason.
func (r *RequestRepository) Finalize(tx *sql.Tx, request *models.ReimbursementRequest) error {
	query := `
		UPDATE reimbursement_requests
		SET status = ?, category_id = ?, rejection_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var categoryID, reason sql.NullString
	if request.CategoryID != nil {
		categoryID = sql.NullString{String: *request.CategoryID, Valid: true}
	}
	if request.RejectionReason != nil {
		reason = sql.NullString{String: *request.RejectionReason, Valid: true}
	}

	_, err := pick(r.db, tx).Exec(query, string(request.Status), categoryID, reason, request.ID)
	if err != nil {
		r.logger.Error("Failed to finalize request",
			zap.String("id", request.ID),
			zap.String("status", string(request.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to finalize request: %w", err)
	}

	return nil
}

// MarkFailed flags a request whose pipeline aborted after the row was
// created. Best effort; used outside the rolled-back transaction.
func (r *RequestRepository) MarkFailed(requestID string) error {
	query := `
		UPDATE reimbursement_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	_, err := r.db.Exec(query, string(models.StatusFailed), requestID, string(models.StatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to mark request failed: %w", err)
	}

	return nil
}

// GetByID retrieves a request, returning nil when not found
func (r *RequestRepository) GetByID(tx *sql.Tx, id string) (*models.ReimbursementRequest, error) {
	query := `
		SELECT id, employee_id, category_id, status, amount_cents, currency,
			document_url, document_id, rejection_reason, submitted_at, created_at, updated_at
		FROM reimbursement_requests
		WHERE id = ?
	`

	var req models.ReimbursementRequest
	var status string
	var amountCents int64
	var categoryID, reason sql.NullString

	err := pick(r.db, tx).QueryRow(query, id).Scan(
		&req.ID,
		&req.EmployeeID,
		&categoryID,
		&status,
		&amountCents,
		&req.Currency,
		&req.DocumentURL,
		&req.DocumentID,
		&reason,
		&req.SubmittedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	req.Status = models.RequestStatus(status)
	req.Amount = models.AmountFromCents(amountCents)
	if categoryID.Valid {
		req.CategoryID = &categoryID.String
	}
	if reason.Valid {
		req.RejectionReason = &reason.String
	}

	return &req, nil
}
