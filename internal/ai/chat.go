package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a chat conversation and returns the assistant reply text.
// maxTokens <= 0 lets the gateway apply its own limit.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	if !c.ChatConfigured() {
		return "", fmt.Errorf("chat: %w", ErrNotConfigured)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("chat: no messages")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	respBody, err := c.post(ctx, c.chatURL, c.chatKey, body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ServiceError{Endpoint: c.chatURL, Message: "malformed chat response: " + err.Error()}
	}
	if len(parsed.Choices) == 0 {
		return "", &ServiceError{Endpoint: c.chatURL, Message: "chat response has no choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}
