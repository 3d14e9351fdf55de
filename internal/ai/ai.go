// Package ai provides clients for OpenAI-compatible embedding and chat
// (generation) gateways.
//
// Both endpoints are full URLs posted to directly with a bearer token, which
// supports plain OpenAI as well as Azure/Druid-style gateways where the
// deployment name and api-version live in the URL. Endpoint derivation
// (chat URL -> embeddings URL) happens in the config package; this package
// only consumes resolved URLs.
//
// Error taxonomy:
//   - ErrNotConfigured: endpoint or credential missing. Callers in the
//     ingestion pipeline treat this as a degraded (non-fatal) condition.
//   - *ServiceError: the gateway returned a non-2xx status or a malformed
//     body. Scoped to the single call; unrelated calls proceed.
package ai

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotConfigured indicates the required endpoint or API key is missing.
var ErrNotConfigured = errors.New("ai service not configured")

// ServiceError indicates the external service returned an error or a
// malformed response.
type ServiceError struct {
	Endpoint string
	Status   int    // HTTP status, 0 when the failure was not HTTP-level
	Message  string // short description or response body preview
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ai service returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("ai service error: %s", e.Message)
}

// ChatMessage is one message in a chat conversation. Input is validated at
// the boundary: Role must be one of system/user/assistant and Content must
// be non-empty for user messages.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTimeout bounds each gateway call. Calls are not retried; a
// transient failure degrades the calling stage instead of blocking it.
const DefaultTimeout = 60 * time.Second

// Client talks to OpenAI-compatible embedding and chat endpoints.
// A single Client is created per process and shared; it is safe for
// concurrent use.
type Client struct {
	chatURL    string
	chatKey    string
	chatModel  string
	embedURL   string
	embedKey   string
	embedModel string

	httpClient *http.Client
}

// Options configures a Client. Empty chat or embedding settings leave that
// half of the client unconfigured; the corresponding calls then return
// ErrNotConfigured.
type Options struct {
	ChatURL        string
	ChatAPIKey     string
	ChatModel      string
	EmbeddingURL   string
	EmbeddingKey   string
	EmbeddingModel string
	Timeout        time.Duration
}

// New creates a Client from the given options.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		chatURL:    opts.ChatURL,
		chatKey:    opts.ChatAPIKey,
		chatModel:  opts.ChatModel,
		embedURL:   opts.EmbeddingURL,
		embedKey:   opts.EmbeddingKey,
		embedModel: opts.EmbeddingModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ChatConfigured reports whether chat completions are available.
func (c *Client) ChatConfigured() bool {
	return c.chatURL != "" && c.chatKey != ""
}

// EmbeddingConfigured reports whether embeddings are available.
func (c *Client) EmbeddingConfigured() bool {
	return c.embedURL != "" && c.embedKey != ""
}
