package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 2 {
			t.Fatalf("got %d inputs, want 2", len(req.Input))
		}
		// Return vectors out of order to exercise index-based placement.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0.2}},
				{"index": 0, "embedding": []float32{0.1}},
			},
		})
	}))
	defer srv.Close()

	c := New(Options{EmbeddingURL: srv.URL, EmbeddingKey: "test-key", EmbeddingModel: "m"})

	vectors, err := c.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.2 {
		t.Errorf("vectors not reordered by index: %v", vectors)
	}
}

func TestEmbedBatchSanitizesInput(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		got = req.Input
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"index": i, "embedding": []float32{1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	c := New(Options{EmbeddingURL: srv.URL, EmbeddingKey: "k", EmbeddingModel: "m"})

	long := strings.Repeat("x", maxEmbedChars+500)
	if _, err := c.EmbedBatch(context.Background(), []string{"", long}); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if got[0] != " " {
		t.Errorf("blank input sent as %q, want single space", got[0])
	}
	if len(got[1]) != maxEmbedChars {
		t.Errorf("long input sent with %d chars, want %d", len(got[1]), maxEmbedChars)
	}
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{1}}},
		})
	}))
	defer srv.Close()

	c := New(Options{EmbeddingURL: srv.URL, EmbeddingKey: "k", EmbeddingModel: "m"})

	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("EmbedBatch() error = %v, want *ServiceError", err)
	}
}

func TestEmbedNotConfigured(t *testing.T) {
	c := New(Options{})
	_, err := c.Embed(context.Background(), "x")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Embed() error = %v, want ErrNotConfigured", err)
	}
}

func TestCompleteReturnsAssistantContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "the answer"}},
			},
		})
	}))
	defer srv.Close()

	c := New(Options{ChatURL: srv.URL, ChatAPIKey: "k", ChatModel: "gpt-4o-mini"})

	got, err := c.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "q"}}, 0)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "the answer" {
		t.Errorf("Complete() = %q", got)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Options{ChatURL: srv.URL, ChatAPIKey: "k", ChatModel: "m"})

	_, err := c.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "q"}}, 0)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("Complete() error = %v, want *ServiceError", err)
	}
	if svcErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", svcErr.Status)
	}
}
