package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"

	"github.com/ragbase/ragbase/internal/ai"
	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/log"
)

// ErrNoChunks indicates metadata generation was requested for a document
// without any persisted chunks.
var ErrNoChunks = errors.New("document has no chunks")

const (
	maxSampledChunks   = 12
	maxSnippetChars    = 500
	maxContextChars    = 12000
	maxTitleChars      = 120
	maxDescChars       = 350
	maxTags            = 15
	maxTagChars        = 40
	metadataPromptName = "metadata-v1"
)

// Generator produces document metadata (title, description, type, tags,
// taxonomy suggestions) from a sample of the document's chunks.
type Generator struct {
	client chatClient
	logger log.Logger
}

// NewGenerator creates a metadata generator.
func NewGenerator(client chatClient, logger log.Logger) *Generator {
	return &Generator{client: client, logger: logger.With("component", "metadata-generator")}
}

// Generate samples chunks, asks the generation service for strict JSON and
// normalizes the result. Returns ai.ErrNotConfigured (wrapped) when no
// generation service is configured and ErrNoChunks for empty input. Sparse
// fields in the reply are logged, never replaced with fabricated values.
func (g *Generator) Generate(ctx context.Context, docID, filename string, chunks []string) (document.Metadata, error) {
	if len(chunks) == 0 {
		return document.Metadata{}, fmt.Errorf("generate metadata for %s: %w", docID, ErrNoChunks)
	}

	contextText := buildMetadataContext(filename, chunks, sampleIndices(len(chunks)))

	system := `You summarize documents for a knowledge base. Return ONLY a JSON object, no prose, with keys:
"title" (string), "description" (string, 30-350 chars), "doc_type" (string),
"tags" (array of short strings), "taxonomy_suggestions" (object with "domains", "rule_types", "applies_to" arrays of short strings).`

	reply, err := g.client.Complete(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: contextText},
	}, 600)
	if err != nil {
		return document.Metadata{}, fmt.Errorf("generate metadata for %s: %w", docID, err)
	}

	var meta document.Metadata
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &meta); err != nil {
		return document.Metadata{}, &ai.ServiceError{Message: "metadata reply is not valid JSON: " + err.Error()}
	}

	meta = normalizeMetadata(meta)
	if meta.Title == "" && meta.Description == "" && len(meta.Tags) == 0 {
		g.logger.Warn("generation returned empty metadata", "document_id", docID, "prompt", metadataPromptName)
	}
	return meta, nil
}

// sampleIndices picks chunk indices with a balanced strategy so the sample
// is not biased toward the document's start: the first 5, a middle window
// of 4, the last 3, then random filler up to the cap. Indices are unique
// and ascending.
func sampleIndices(n int) []int {
	if n <= maxSampledChunks {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	picked := make(map[int]bool)
	add := func(i int) {
		if i >= 0 && i < n {
			picked[i] = true
		}
	}

	for i := 0; i < 5; i++ {
		add(i)
	}
	mid := n / 2
	for i := mid - 2; i < mid+2; i++ {
		add(i)
	}
	for i := n - 3; i < n; i++ {
		add(i)
	}
	for len(picked) < maxSampledChunks {
		add(rand.IntN(n))
	}

	out := make([]int, 0, len(picked))
	for i := range picked {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func buildMetadataContext(filename string, chunks []string, indices []int) string {
	var sb strings.Builder
	sb.WriteString("Filename: " + filename + "\n\n")
	for _, i := range indices {
		snippet := strings.TrimSpace(chunks[i])
		if len(snippet) > maxSnippetChars {
			snippet = snippet[:maxSnippetChars]
		}
		line := fmt.Sprintf("[chunk %d] %s\n", i+1, snippet)
		if sb.Len()+len(line) > maxContextChars {
			break
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// stripCodeFence removes a surrounding markdown code fence from a reply,
// tolerating a language tag after the opening fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:i]), "{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalizeMetadata(meta document.Metadata) document.Metadata {
	meta.Title = truncate(strings.TrimSpace(meta.Title), maxTitleChars)
	meta.Description = truncate(strings.TrimSpace(meta.Description), maxDescChars)
	meta.DocType = kebab(meta.DocType)
	meta.Tags = NormalizeTags(meta.Tags)
	meta.Taxonomy.Domains = NormalizeTags(meta.Taxonomy.Domains)
	meta.Taxonomy.RuleTypes = NormalizeTags(meta.Taxonomy.RuleTypes)
	meta.Taxonomy.AppliesTo = NormalizeTags(meta.Taxonomy.AppliesTo)
	return meta
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}

var nonKebab = regexp.MustCompile(`[^a-z0-9]+`)

// kebab lowercases a label and reduces it to hyphen-separated alphanumeric
// tokens, capped at maxTagChars.
func kebab(s string) string {
	s = nonKebab.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxTagChars {
		s = strings.Trim(s[:maxTagChars], "-")
	}
	return s
}

// NormalizeTags kebab-normalizes every tag, drops empties and duplicates,
// and caps the list at maxTags.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tags {
		k := kebab(t)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
