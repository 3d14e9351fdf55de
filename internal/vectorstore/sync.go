package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/log"
)

// Engine rebuilds a project's collection from persisted chunk records.
type Engine struct {
	store  *Store
	logger log.Logger
}

// NewEngine creates a sync engine over the shared vector store.
func NewEngine(store *Store, logger log.Logger) *Engine {
	return &Engine{store: store, logger: logger.With("component", "sync-engine")}
}

// Resync clears the project's collection and re-adds every record, returning
// how many documents and chunks were synced. A record with unparseable chunk
// JSON is logged and skipped; embeddings are reused only when their count
// matches the chunks, otherwise the store recomputes them. Running Resync
// twice over unchanged records yields identical collection contents and
// identical counts.
func (e *Engine) Resync(ctx context.Context, projectID string, records []document.ResyncRecord) (docs, chunks int, err error) {
	removed, err := e.store.Clear(ctx, projectID)
	if err != nil {
		return 0, 0, fmt.Errorf("resync %s: %w", projectID, err)
	}
	e.logger.Info("cleared collection for resync",
		"project_id", projectID, "removed", removed, "records", len(records))

	for _, rec := range records {
		var texts []string
		if err := json.Unmarshal(rec.ChunkJSON, &texts); err != nil {
			e.logger.Warn("skipping record with unparseable chunks",
				"document_id", rec.DocumentID, "error", err)
			continue
		}
		if len(texts) == 0 {
			continue
		}

		var embeddings [][]float32
		if len(rec.EmbeddingsJSON) > 0 {
			if err := json.Unmarshal(rec.EmbeddingsJSON, &embeddings); err != nil || len(embeddings) != len(texts) {
				e.logger.Warn("stored embeddings unusable, recomputing",
					"document_id", rec.DocumentID,
					"chunks", len(texts),
					"embeddings", len(embeddings))
				embeddings = nil
			}
		}

		if err := e.store.Add(ctx, projectID, rec.DocumentID, texts, embeddings, rec.Filename); err != nil {
			e.logger.Warn("skipping record that failed to index",
				"document_id", rec.DocumentID, "error", err)
			continue
		}
		docs++
		chunks += len(texts)
	}

	e.logger.Info("resync complete", "project_id", projectID, "documents", docs, "chunks", chunks)
	return docs, chunks, nil
}
