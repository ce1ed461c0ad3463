package extraction

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// Data is the structured output of document extraction. TotalAmount and
// Currency are required; everything else is best effort.
type Data struct {
	VendorName    *string
	PurchaseDate  *string // YYYY-MM-DD, nil if unreadable
	Items         []models.InvoiceItem
	TotalAmount   decimal.Decimal
	Currency      string
	InvoiceNumber *string
	ExtractedText string
}

// Provider extracts structured invoice data from an uploaded document.
// It is an external collaborator; malformed output must fail loudly,
// never silently default.
type Provider interface {
	Extract(ctx context.Context, content []byte, contentType string) (*Data, error)
}
