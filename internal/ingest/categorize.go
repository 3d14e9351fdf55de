package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragbase/ragbase/internal/ai"
	"github.com/ragbase/ragbase/internal/log"
)

// Categories is the closed set of document categories. The first entry is
// the default when the classification service replies with something else.
var Categories = []string{"Finance", "Security", "Architecture", "Compliance", "Integrations"}

// maxCategorizeChars caps the content sent for classification.
const maxCategorizeChars = 4000

// chatClient is the slice of the AI client the categorizer needs.
type chatClient interface {
	Complete(ctx context.Context, messages []ai.ChatMessage, maxTokens int) (string, error)
}

// Categorizer assigns one category label per document via the chat service.
type Categorizer struct {
	client chatClient
	logger log.Logger
}

// NewCategorizer creates a categorizer.
func NewCategorizer(client chatClient, logger log.Logger) *Categorizer {
	return &Categorizer{client: client, logger: logger.With("component", "categorizer")}
}

// Categorize returns one label from Categories. The raw service reply is
// normalized by case-insensitive exact match; anything unmatched maps to
// the first category. Generation services do not reliably honor output
// format instructions, so the normalization is load-bearing.
func (c *Categorizer) Categorize(ctx context.Context, text, filename string) (string, error) {
	content := strings.TrimSpace(text)
	if len(content) > maxCategorizeChars {
		content = content[:maxCategorizeChars]
	}
	if content == "" {
		content = "Filename: " + filename
	}

	system := fmt.Sprintf(
		"You are a document classifier. Reply with exactly one of these category names and nothing else: %s.",
		strings.Join(Categories, ", "))

	reply, err := c.client.Complete(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: fmt.Sprintf("Filename: %s\n\nContent:\n%s", filename, content)},
	}, 20)
	if err != nil {
		return "", err
	}
	return NormalizeCategory(reply), nil
}

// NormalizeCategory maps a raw service reply onto the closed category set,
// trimming whitespace and matching case-insensitively. Unmatched replies
// return the first category.
func NormalizeCategory(raw string) string {
	cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `."'`))
	for _, cat := range Categories {
		if strings.EqualFold(cleaned, cat) {
			return cat
		}
	}
	return Categories[0]
}
