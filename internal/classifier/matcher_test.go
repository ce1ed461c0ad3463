package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

func TestClassifyWithoutCategories(t *testing.T) {
	matcher := NewOpenAIMatcher("test-key", "gpt-4", 0.3, zap.NewNop())

	result, err := matcher.Classify(context.Background(), "some invoice", nil, nil)
	require.NoError(t, err, "an empty catalog short-circuits without calling the API")
	assert.Nil(t, result.CategoryID)
	assert.Zero(t, result.Confidence)
}

func TestBuildPromptIncludesCatalogAndItems(t *testing.T) {
	matcher := NewOpenAIMatcher("test-key", "gpt-4", 0.3, zap.NewNop())

	categories := []*models.Category{
		{
			ID:   "cat-fitness",
			Name: "Fitness",
			Keywords: []models.Keyword{
				{Keyword: "gym"},
				{Keyword: "membership"},
			},
		},
	}
	items := []models.InvoiceItem{
		{Description: "Monthly membership"},
		{Description: "Towel service"},
	}

	prompt := matcher.buildPrompt("Gold Gym receipt", items, categories)

	assert.Contains(t, prompt, "cat-fitness")
	assert.Contains(t, prompt, "gym")
	assert.Contains(t, prompt, "Monthly membership, Towel service")
	assert.Contains(t, prompt, "Gold Gym receipt")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "fenced json",
			content: "```json\n{\"category_id\": \"x\"}\n```",
			want:    `{"category_id": "x"}`,
		},
		{
			name:    "plain json",
			content: `{"category_id": "x"}`,
			want:    `{"category_id": "x"}`,
		},
		{
			name:    "fence without language tag",
			content: "```\n{\"category_id\": \"x\"}\n```",
			want:    `{"category_id": "x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.content))
		})
	}
}
