package server

import (
	"github.com/shopspring/decimal"

	"github.com/perkflow/benefit-reimbursement/internal/currency"
	"github.com/perkflow/benefit-reimbursement/internal/models"
	"github.com/perkflow/benefit-reimbursement/internal/workflow"
)

// reimbursementResponse mirrors the submission outcome for API clients
type reimbursementResponse struct {
	ID                       string               `json:"id"`
	EmployeeID               string               `json:"employee_id"`
	EmployeeName             string               `json:"employee_name,omitempty"`
	EmployeeCode             string               `json:"employee_code,omitempty"`
	CategoryID               *string              `json:"category_id,omitempty"`
	CategoryName             *string              `json:"category_name,omitempty"`
	Status                   models.RequestStatus `json:"status"`
	Amount                   decimal.Decimal      `json:"amount"`
	Currency                 string               `json:"currency"`
	DocumentURL              string               `json:"document_url"`
	SubmittedAt              string               `json:"submission_timestamp"`
	RejectionReason          *string              `json:"rejection_reason,omitempty"`
	Invoice                  *models.Invoice      `json:"invoice,omitempty"`
	RemainingBalance         *decimal.Decimal     `json:"remaining_balance,omitempty"`
	RemainingBalanceCurrency string               `json:"remaining_balance_currency"`
}

func toReimbursementResponse(outcome *workflow.Outcome) *reimbursementResponse {
	resp := &reimbursementResponse{
		ID:                       outcome.Request.ID,
		EmployeeID:               outcome.Request.EmployeeID,
		CategoryID:               outcome.Request.CategoryID,
		CategoryName:             outcome.CategoryName,
		Status:                   outcome.Request.Status,
		Amount:                   outcome.Request.Amount,
		Currency:                 outcome.Request.Currency,
		DocumentURL:              outcome.Request.DocumentURL,
		SubmittedAt:              outcome.Request.SubmittedAt.Format("2006-01-02T15:04:05Z07:00"),
		RejectionReason:          outcome.Request.RejectionReason,
		Invoice:                  outcome.Invoice,
		RemainingBalance:         outcome.RemainingBalance,
		RemainingBalanceCurrency: currency.Reference,
	}

	if outcome.Employee != nil {
		resp.EmployeeName = outcome.Employee.Name
		resp.EmployeeCode = outcome.Employee.EmployeeCode
	}

	return resp
}
