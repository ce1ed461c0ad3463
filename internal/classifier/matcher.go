package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// Result is the classifier provider's output
type Result struct {
	CategoryID      *string  `json:"category_id"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
	Reasoning       string   `json:"reasoning"`
}

// Provider classifies invoice text into one of the catalog categories.
// It is an external collaborator; errors are fatal to the submission.
type Provider interface {
	Classify(ctx context.Context, text string, items []models.InvoiceItem, categories []*models.Category) (*Result, error)
}

// OpenAIMatcher implements Provider using a chat completion model
type OpenAIMatcher struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIMatcher creates a new matcher
func NewOpenAIMatcher(apiKey, model string, temperature float32, logger *zap.Logger) *OpenAIMatcher {
	return &OpenAIMatcher{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

type categoryContext struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Classify matches invoice text against the category catalog
func (m *OpenAIMatcher) Classify(ctx context.Context, text string, items []models.InvoiceItem, categories []*models.Category) (*Result, error) {
	if len(categories) == 0 {
		return &Result{
			Confidence: 0,
			Reasoning:  "no categories available in the system",
		}, nil
	}

	prompt := m.buildPrompt(text, items, categories)

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: m.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a benefit category classifier. Analyze invoices and match them to appropriate benefit categories based on keywords and context. Always respond with valid JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		m.logger.Error("Classifier API call failed", zap.Error(err))
		return nil, fmt.Errorf("classifier call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	content := extractJSON(resp.Choices[0].Message.Content)

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		m.logger.Error("Failed to parse classifier response",
			zap.String("content", content),
			zap.Error(err))
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	// The model occasionally echoes the literal string "null"
	if result.CategoryID != nil && (*result.CategoryID == "" || strings.EqualFold(*result.CategoryID, "null")) {
		result.CategoryID = nil
	}

	m.logger.Info("Classification completed",
		zap.Float64("confidence", result.Confidence),
		zap.Strings("matched_keywords", result.MatchedKeywords))

	return &result, nil
}

func (m *OpenAIMatcher) buildPrompt(text string, items []models.InvoiceItem, categories []*models.Category) string {
	catalog := make([]categoryContext, 0, len(categories))
	for _, c := range categories {
		keywords := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			keywords = append(keywords, k.Keyword)
		}
		catalog = append(catalog, categoryContext{ID: c.ID, Name: c.Name, Keywords: keywords})
	}
	catalogJSON, _ := json.MarshalIndent(catalog, "", "  ")

	var itemsText string
	if len(items) > 0 {
		descriptions := make([]string, 0, len(items))
		for _, item := range items {
			descriptions = append(descriptions, item.Description)
		}
		itemsText = "\nItems: " + strings.Join(descriptions, ", ")
	}

	return fmt.Sprintf(`Analyze the following invoice text and match it to one of the provided benefit categories based on keywords and context.

Invoice text:
%s%s

Available categories with keywords:
%s

IMPORTANT RULES:
1. You MUST only match to one of the categories listed above - no other categories exist
2. Match MUST be based on keywords from the category's keyword list
3. If the invoice description is unclear, unusual, or doesn't match any keywords from any category, you MUST return category_id as null
4. Be strict - only match if there's clear keyword correspondence

Return JSON only:
{
    "category_id": "id of matched category or null if unclear/no match",
    "confidence": 0.0-1.0,
    "matched_keywords": ["keyword1", "keyword2"],
    "reasoning": "explanation - if unclear or no keyword match, explain why category_id is null"
}

If confidence is below %.1f OR no keywords match clearly, set category_id to null.`,
		text, itemsText, string(catalogJSON), DefaultThreshold)
}

// extractJSON strips markdown code fences the model sometimes wraps
// around its JSON payload
func extractJSON(content string) string {
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
