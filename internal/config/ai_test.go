package config

import "testing"

func TestEmbeddingEndpointDirect(t *testing.T) {
	cfg := &Config{EmbeddingURL: "https://api.openai.com/v1/embeddings/"}
	if got := cfg.EmbeddingEndpoint(); got != "https://api.openai.com/v1/embeddings" {
		t.Errorf("expected trailing slash trimmed, got %q", got)
	}
}

func TestEmbeddingEndpointDerivedFromChatURL(t *testing.T) {
	cfg := &Config{
		ChatURL:        "https://gw.example.com/openai/deployments/gpt-4o-mini/chat/completions?api-version=2024-06-01",
		ChatModel:      "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
	}

	got := cfg.EmbeddingEndpoint()
	want := "https://gw.example.com/openai/deployments/text-embedding-3-small/embeddings?api-version=2024-06-01"
	if got != want {
		t.Errorf("derived endpoint:\n got  %q\n want %q", got, want)
	}
}

func TestEmbeddingEndpointDerivedSameModel(t *testing.T) {
	// Models equal: only the path suffix is rewritten.
	cfg := &Config{
		ChatURL:        "https://api.example.com/v1/chat/completions",
		ChatModel:      "m",
		EmbeddingModel: "m",
	}
	if got := cfg.EmbeddingEndpoint(); got != "https://api.example.com/v1/embeddings" {
		t.Errorf("unexpected endpoint %q", got)
	}
}

func TestEmbeddingEndpointUnconfigured(t *testing.T) {
	cfg := &Config{}
	if got := cfg.EmbeddingEndpoint(); got != "" {
		t.Errorf("expected empty endpoint, got %q", got)
	}
	if cfg.EmbeddingConfigured() {
		t.Error("expected EmbeddingConfigured to be false")
	}
}

func TestEmbeddingKeyFallback(t *testing.T) {
	cfg := &Config{ChatAPIKey: "chat-key"}
	if got := cfg.EmbeddingKey(); got != "chat-key" {
		t.Errorf("expected fallback to chat key, got %q", got)
	}

	cfg.EmbeddingAPIKey = "embed-key"
	if got := cfg.EmbeddingKey(); got != "embed-key" {
		t.Errorf("expected dedicated key to win, got %q", got)
	}
}

func TestChatConfigured(t *testing.T) {
	cfg := &Config{}
	if cfg.ChatConfigured() {
		t.Error("empty config should not report chat configured")
	}
	cfg.ChatURL = "https://api.example.com/v1/chat/completions"
	cfg.ChatAPIKey = "key"
	if !cfg.ChatConfigured() {
		t.Error("expected chat configured")
	}
}
