package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxEmbedChars caps the text sent per embedding input. Longer inputs are
// truncated rather than rejected so oversized chunks still index.
const maxEmbedChars = 8000

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds each text in one request and returns vectors in input
// order. Each text is truncated to maxEmbedChars; blank texts are replaced
// with a single space because the upstream API rejects empty input.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.EmbeddingConfigured() {
		return nil, fmt.Errorf("embeddings: %w", ErrNotConfigured)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		if len(t) > maxEmbedChars {
			t = t[:maxEmbedChars]
		}
		if t == "" {
			t = " "
		}
		input[i] = t
	}

	body, err := json.Marshal(embeddingRequest{Model: c.embedModel, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	respBody, err := c.post(ctx, c.embedURL, c.embedKey, body)
	if err != nil {
		return nil, err
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ServiceError{Endpoint: c.embedURL, Message: "malformed embedding response: " + err.Error()}
	}
	if len(parsed.Data) != len(input) {
		return nil, &ServiceError{
			Endpoint: c.embedURL,
			Message:  fmt.Sprintf("embedding response has %d vectors for %d inputs", len(parsed.Data), len(input)),
		}
	}

	vectors := make([][]float32, len(input))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, &ServiceError{
				Endpoint: c.embedURL,
				Message:  fmt.Sprintf("embedding response index %d out of range", d.Index),
			}
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, &ServiceError{
				Endpoint: c.embedURL,
				Message:  fmt.Sprintf("embedding response missing vector for input %d", i),
			}
		}
	}
	return vectors, nil
}

// post sends a JSON body with a bearer token and returns the response body.
// Non-2xx statuses become a *ServiceError carrying a body preview.
func (c *Client) post(ctx context.Context, url, key string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Endpoint: url, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ServiceError{Endpoint: url, Status: resp.StatusCode, Message: "read response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{Endpoint: url, Status: resp.StatusCode, Message: preview(respBody)}
	}
	return respBody, nil
}

func preview(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
