// Package search implements semantic retrieval over the vector index and
// grounded answer synthesis with topic classification.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/log"
	"github.com/ragbase/ragbase/internal/vectorstore"
)

// ErrEmptyQuery indicates a blank query. Rejected before any external call.
var ErrEmptyQuery = errors.New("query text is empty")

// DefaultK is the number of hits retrieved when the caller passes k <= 0.
const DefaultK = 5

// queryEmbedder embeds query text.
type queryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// vectorQuerier runs nearest-neighbor queries.
type vectorQuerier interface {
	Query(ctx context.Context, projectID string, embedding []float32, k int) (*vectorstore.Result, error)
}

// queryLog appends to the search query log.
type queryLog interface {
	LogSearch(ctx context.Context, q *document.SearchQuery) error
}

// Hit is one retrieved chunk with its similarity score.
type Hit struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// Retriever embeds queries and ranks vector hits.
type Retriever struct {
	embedder queryEmbedder
	vectors  vectorQuerier
	queries  queryLog
	defaultK int
	logger   log.Logger
}

// NewRetriever creates a retriever. defaultK <= 0 falls back to DefaultK.
func NewRetriever(embedder queryEmbedder, vectors vectorQuerier, queries queryLog, defaultK int, logger log.Logger) *Retriever {
	if defaultK <= 0 {
		defaultK = DefaultK
	}
	return &Retriever{
		embedder: embedder,
		vectors:  vectors,
		queries:  queries,
		defaultK: defaultK,
		logger:   logger.With("component", "retriever"),
	}
}

// Score converts a vector distance into a similarity score in (0, 1],
// rounded to 4 decimals. score(0) == 1; larger distances score lower.
func Score(distance float64) float64 {
	return math.Round(10000/(1+distance)) / 10000
}

// Search retrieves the k best chunks for a query and logs the call.
// A blank query fails with ErrEmptyQuery before any external call is made.
func (r *Retriever) Search(ctx context.Context, projectID, actor, query string, k int) ([]Hit, error) {
	start := time.Now()

	hits, k, err := r.retrieve(ctx, projectID, query, k)
	if err != nil {
		return nil, err
	}

	r.logQuery(ctx, &document.SearchQuery{
		Timestamp:   start.UTC(),
		Actor:       actor,
		ProjectID:   projectID,
		QueryText:   strings.TrimSpace(query),
		K:           k,
		ResultCount: len(hits),
		LatencyMS:   time.Since(start).Milliseconds(),
	})
	return hits, nil
}

// retrieve embeds the query and ranks hits without logging. Hits missing a
// document id in their metadata are treated as orphaned index entries and
// dropped.
func (r *Retriever) retrieve(ctx context.Context, projectID, query string, k int) ([]Hit, int, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, ErrEmptyQuery
	}
	if k <= 0 {
		k = r.defaultK
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("embed query: %w", err)
	}

	res, err := r.vectors.Query(ctx, projectID, embedding, k)
	if err != nil {
		return nil, 0, fmt.Errorf("vector query: %w", err)
	}

	var hits []Hit
	for i := range res.IDs {
		meta := res.Metadatas[i]
		if meta.DocumentID == "" {
			r.logger.Warn("dropping orphaned vector hit", "entry_id", res.IDs[i])
			continue
		}
		hits = append(hits, Hit{
			ID:         res.IDs[i],
			DocumentID: meta.DocumentID,
			ChunkIndex: meta.ChunkIndex,
			Filename:   meta.Filename,
			Content:    res.Contents[i],
			Score:      Score(res.Distances[i]),
		})
	}
	return hits, k, nil
}

func (r *Retriever) logQuery(ctx context.Context, q *document.SearchQuery) {
	if err := r.queries.LogSearch(ctx, q); err != nil {
		r.logger.Warn("logging search query failed", "error", err)
	}
}
