package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceItem is one line item extracted from an invoice
type InvoiceItem struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// Invoice holds the structured data extracted from an uploaded document.
// One invoice per request; immutable once written.
type Invoice struct {
	ID            string          `json:"id"`
	RequestID     string          `json:"request_id"`
	VendorName    *string         `json:"vendor_name,omitempty"`
	PurchaseDate  *time.Time      `json:"purchase_date,omitempty"`
	Items         []InvoiceItem   `json:"items,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	InvoiceNumber *string         `json:"invoice_number,omitempty"`
	ExtractedText string          `json:"extracted_text,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
