package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// InvoiceRepository handles extracted invoice persistence
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an extracted invoice. Line items are stored as JSON.
func (r *InvoiceRepository) Create(tx *sql.Tx, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}

	var items sql.NullString
	if len(invoice.Items) > 0 {
		data, err := json.Marshal(invoice.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal invoice items: %w", err)
		}
		items = sql.NullString{String: string(data), Valid: true}
	}

	var purchaseDate sql.NullTime
	if invoice.PurchaseDate != nil {
		purchaseDate = sql.NullTime{Time: *invoice.PurchaseDate, Valid: true}
	}

	var vendor, number sql.NullString
	if invoice.VendorName != nil {
		vendor = sql.NullString{String: *invoice.VendorName, Valid: true}
	}
	if invoice.InvoiceNumber != nil {
		number = sql.NullString{String: *invoice.InvoiceNumber, Valid: true}
	}

	query := `
		INSERT INTO invoices (id, request_id, vendor_name, purchase_date, items,
			total_cents, currency, invoice_number, extracted_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := pick(r.db, tx).Exec(query,
		invoice.ID,
		invoice.RequestID,
		vendor,
		purchaseDate,
		items,
		models.CentsFromAmount(invoice.TotalAmount),
		invoice.Currency,
		number,
		invoice.ExtractedText,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.String("request_id", invoice.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// GetByRequestID retrieves the invoice for a request, nil when absent
func (r *InvoiceRepository) GetByRequestID(tx *sql.Tx, requestID string) (*models.Invoice, error) {
	query := `
		SELECT id, request_id, vendor_name, purchase_date, items,
			total_cents, currency, invoice_number, extracted_text, created_at
		FROM invoices
		WHERE request_id = ?
	`

	var inv models.Invoice
	var vendor, items, number, text sql.NullString
	var purchaseDate sql.NullTime
	var totalCents int64

	err := pick(r.db, tx).QueryRow(query, requestID).Scan(
		&inv.ID,
		&inv.RequestID,
		&vendor,
		&purchaseDate,
		&items,
		&totalCents,
		&inv.Currency,
		&number,
		&text,
		&inv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	inv.TotalAmount = models.AmountFromCents(totalCents)
	if vendor.Valid {
		inv.VendorName = &vendor.String
	}
	if number.Valid {
		inv.InvoiceNumber = &number.String
	}
	if text.Valid {
		inv.ExtractedText = text.String
	}
	if purchaseDate.Valid {
		t := purchaseDate.Time.Truncate(24 * time.Hour)
		inv.PurchaseDate = &t
	}
	if items.Valid {
		if err := json.Unmarshal([]byte(items.String), &inv.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice items: %w", err)
		}
	}

	return &inv, nil
}
