package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus enumerates the states of a reimbursement request.
type RequestStatus string

const (
	StatusProcessing    RequestStatus = "processing"
	StatusApproved      RequestStatus = "approved"
	StatusRejected      RequestStatus = "rejected"
	StatusPendingReview RequestStatus = "pending_review"
	// StatusFailed marks a submission that aborted mid-pipeline after the
	// request row was already durable. Nothing else was persisted for it.
	StatusFailed RequestStatus = "failed"
)

// Terminal reports whether the pipeline will never touch this status again.
func (s RequestStatus) Terminal() bool {
	return s != StatusProcessing
}

// ReimbursementRequest represents one employee submission. Amount and
// currency hold the values extracted from the invoice, not normalized.
type ReimbursementRequest struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employee_id"`
	CategoryID      *string         `json:"category_id,omitempty"`
	Status          RequestStatus   `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	DocumentURL     string          `json:"document_url"`
	DocumentID      string          `json:"document_id"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
