package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

const extractionPrompt = `Extract the following information from this invoice/receipt image and return it as JSON:
{
    "vendor_name": "name of the merchant/vendor",
    "purchase_date": "YYYY-MM-DD format or null if not found",
    "items": [
        {
            "description": "item description",
            "amount": "amount as number or null"
        }
    ],
    "total_amount": "total amount as number",
    "currency": "currency code (USD, EUR, etc.)",
    "invoice_number": "invoice/receipt number or null if not found",
    "extracted_text": "full text content extracted from the invoice"
}

Be as accurate as possible. If a field is not found, use null.`

// OpenAIExtractor implements Provider using a vision-capable model.
// PDF uploads are rendered to images locally first since the vision
// endpoint only accepts images.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIExtractor creates a new extractor
func NewOpenAIExtractor(apiKey, model string, logger *zap.Logger) *OpenAIExtractor {
	return &OpenAIExtractor{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

type rawExtraction struct {
	VendorName    *string         `json:"vendor_name"`
	PurchaseDate  *string         `json:"purchase_date"`
	Items         []rawItem       `json:"items"`
	TotalAmount   json.RawMessage `json:"total_amount"`
	Currency      string          `json:"currency"`
	InvoiceNumber *string         `json:"invoice_number"`
	ExtractedText string          `json:"extracted_text"`
}

type rawItem struct {
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
}

// Extract runs vision extraction over the document content
func (e *OpenAIExtractor) Extract(ctx context.Context, content []byte, contentType string) (*Data, error) {
	images, mime, err := e.toImages(content, contentType)
	if err != nil {
		return nil, err
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
	}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img)),
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: 2000,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	})
	if err != nil {
		e.logger.Error("Vision extraction call failed", zap.Error(err))
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction returned no choices")
	}

	return parseExtraction(resp.Choices[0].Message.Content)
}

func (e *OpenAIExtractor) toImages(content []byte, contentType string) ([][]byte, string, error) {
	if contentType == "application/pdf" {
		images, err := pdfToImages(content)
		if err != nil {
			return nil, "", fmt.Errorf("failed to render PDF for extraction: %w", err)
		}
		return images, "image/jpeg", nil
	}
	return [][]byte{content}, contentType, nil
}

// parseExtraction decodes the model's JSON strictly: a response without
// a parseable total_amount or currency is a provider failure, not a
// zero-amount invoice.
func parseExtraction(content string) (*Data, error) {
	payload := stripCodeFences(content)

	var raw rawExtraction
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	total, err := decodeAmount(raw.TotalAmount)
	if err != nil || total == nil {
		return nil, fmt.Errorf("extraction response has no usable total_amount: %q", string(raw.TotalAmount))
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		return nil, fmt.Errorf("extraction response has no currency")
	}

	data := &Data{
		VendorName:    raw.VendorName,
		PurchaseDate:  raw.PurchaseDate,
		TotalAmount:   *total,
		Currency:      currency,
		InvoiceNumber: raw.InvoiceNumber,
		ExtractedText: raw.ExtractedText,
	}

	for _, item := range raw.Items {
		amount, err := decodeAmount(item.Amount)
		if err != nil {
			// Per-item amounts are advisory; drop unreadable ones
			amount = nil
		}
		data.Items = append(data.Items, models.InvoiceItem{
			Description: item.Description,
			Amount:      amount,
		})
	}

	return data, nil
}

// decodeAmount accepts both numeric and quoted-string amounts, which
// the model alternates between
func decodeAmount(raw json.RawMessage) (*decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	s := strings.Trim(string(raw), `"`)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return &d, nil
}

func stripCodeFences(content string) string {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	} else if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+3:]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	}
	return strings.TrimSpace(content)
}
