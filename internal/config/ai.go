package config

import "strings"

// The service talks to OpenAI-compatible gateways. The chat endpoint is a
// full URL (possibly Azure/Druid style with deployment name and api-version
// query). The embeddings endpoint is either configured directly or derived
// from the chat URL.

// ChatConfigured reports whether a generation (chat) service is available.
func (c *Config) ChatConfigured() bool {
	return strings.TrimSpace(c.ChatURL) != "" && strings.TrimSpace(c.ChatAPIKey) != ""
}

// EmbeddingConfigured reports whether an embedding service is available,
// either directly or derived from the chat endpoint.
func (c *Config) EmbeddingConfigured() bool {
	return c.EmbeddingEndpoint() != "" && c.EmbeddingKey() != ""
}

// EmbeddingEndpoint returns the embeddings URL. When embedding_url is unset
// it is derived from the chat URL: the /chat/completions path segment is
// rewritten to /embeddings, and a /<chat_model>/ deployment segment is
// replaced with the embedding model. Returns "" when neither is configured.
func (c *Config) EmbeddingEndpoint() string {
	if base := strings.TrimSpace(c.EmbeddingURL); base != "" {
		return strings.TrimRight(base, "/")
	}

	chatURL := strings.TrimSpace(c.ChatURL)
	if chatURL == "" {
		return ""
	}

	derived := strings.Replace(chatURL, "/chat/completions", "/embeddings", 1)

	chatModel := strings.TrimSpace(c.ChatModel)
	embedModel := strings.TrimSpace(c.EmbeddingModel)
	if chatModel != "" && embedModel != "" && chatModel != embedModel {
		derived = strings.Replace(derived, "/"+chatModel+"/", "/"+embedModel+"/", 1)
	}

	return strings.TrimRight(derived, "/")
}

// EmbeddingKey returns the API key for embeddings: embedding_api_key when
// set, otherwise the shared chat key. Returns "" when neither is set.
func (c *Config) EmbeddingKey() string {
	if key := strings.TrimSpace(c.EmbeddingAPIKey); key != "" {
		return key
	}
	return strings.TrimSpace(c.ChatAPIKey)
}
