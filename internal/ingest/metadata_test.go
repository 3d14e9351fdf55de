package ingest

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/ragbase/ragbase/internal/log"
)

func TestSampleIndicesSmallDocument(t *testing.T) {
	got := sampleIndices(4)
	if !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Errorf("sampleIndices(4) = %v", got)
	}
}

func TestSampleIndicesBalanced(t *testing.T) {
	got := sampleIndices(100)

	if len(got) != maxSampledChunks {
		t.Fatalf("len = %d, want %d", len(got), maxSampledChunks)
	}
	if !sort.IntsAreSorted(got) {
		t.Errorf("indices not ascending: %v", got)
	}
	seen := make(map[int]bool)
	for _, i := range got {
		if seen[i] {
			t.Fatalf("duplicate index %d in %v", i, got)
		}
		seen[i] = true
	}
	for _, must := range []int{0, 1, 2, 3, 4, 48, 49, 50, 51, 97, 98, 99} {
		if !seen[must] {
			t.Errorf("index %d missing from balanced sample %v", must, got)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```json\n{}\n```  ", "{}"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	in := []string{
		"Billing Rules!",
		"billing-rules",
		"  API / Integration  ",
		"",
		strings.Repeat("a", 60),
	}
	got := NormalizeTags(in)
	want := []string{"billing-rules", "api-integration", strings.Repeat("a", maxTagChars)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTags() = %v, want %v", got, want)
	}
}

func TestNormalizeTagsCap(t *testing.T) {
	var in []string
	for i := 0; i < 30; i++ {
		in = append(in, strings.Repeat("t", 1)+string(rune('a'+i)))
	}
	if got := NormalizeTags(in); len(got) != maxTags {
		t.Errorf("got %d tags, want cap %d", len(got), maxTags)
	}
}

func TestGenerateParsesFencedReply(t *testing.T) {
	chat := &fakeChat{reply: "```json\n" + `{
		"title": "  Billing Policy  ",
		"description": "Rules for billing enterprise customers across regions.",
		"doc_type": "Policy Document",
		"tags": ["Billing!", "billing", "Enterprise Customers"],
		"taxonomy_suggestions": {"domains": ["Finance Ops"], "rule_types": [], "applies_to": ["EU Region"]}
	}` + "\n```"}
	g := NewGenerator(chat, log.NewNop())

	meta, err := g.Generate(context.Background(), "Doc-2026-0001", "billing.pdf", []string{"chunk one", "chunk two"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if meta.Title != "Billing Policy" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.DocType != "policy-document" {
		t.Errorf("DocType = %q", meta.DocType)
	}
	if !reflect.DeepEqual(meta.Tags, []string{"billing", "enterprise-customers"}) {
		t.Errorf("Tags = %v", meta.Tags)
	}
	if !reflect.DeepEqual(meta.Taxonomy.Domains, []string{"finance-ops"}) {
		t.Errorf("Domains = %v", meta.Taxonomy.Domains)
	}
	if !reflect.DeepEqual(meta.Taxonomy.AppliesTo, []string{"eu-region"}) {
		t.Errorf("AppliesTo = %v", meta.Taxonomy.AppliesTo)
	}
}

func TestGenerateNoChunks(t *testing.T) {
	g := NewGenerator(&fakeChat{}, log.NewNop())
	_, err := g.Generate(context.Background(), "d1", "f", nil)
	if !errors.Is(err, ErrNoChunks) {
		t.Errorf("Generate() error = %v, want ErrNoChunks", err)
	}
}

func TestGenerateContextBounded(t *testing.T) {
	chat := &fakeChat{reply: `{"title":"t","description":"d","doc_type":"x","tags":[],"taxonomy_suggestions":{}}`}
	g := NewGenerator(chat, log.NewNop())

	big := strings.Repeat("lorem ipsum ", 200) // > maxSnippetChars per chunk
	chunks := make([]string, 50)
	for i := range chunks {
		chunks[i] = big
	}
	if _, err := g.Generate(context.Background(), "d1", "f", chunks); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	user := chat.messages[len(chat.messages)-1].Content
	if len(user) > maxContextChars+100 {
		t.Errorf("context length %d exceeds budget", len(user))
	}
}
