package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UpsertChunks writes the single chunk record for a document, replacing any
// existing one. Embeddings are stored only when parallel to the chunks;
// a mismatched array is dropped rather than persisted misaligned.
func (s *Store) UpsertChunks(ctx context.Context, rec ChunkRecord) error {
	if len(rec.Chunks) == 0 {
		return fmt.Errorf("upsert chunks for %s: empty chunk list", rec.DocumentID)
	}

	content, err := json.Marshal(rec.Chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}

	var embeddings []byte
	if len(rec.Embeddings) == len(rec.Chunks) {
		embeddings, err = json.Marshal(rec.Embeddings)
		if err != nil {
			return fmt.Errorf("marshal embeddings: %w", err)
		}
	} else if rec.Embeddings != nil {
		s.logger.Warn("dropping misaligned chunk embeddings",
			"document_id", rec.DocumentID,
			"chunks", len(rec.Chunks),
			"embeddings", len(rec.Embeddings))
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO document_chunks (document_id, content, embeddings, chunk_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id) DO UPDATE
		SET content = EXCLUDED.content,
		    embeddings = EXCLUDED.embeddings,
		    chunk_count = EXCLUDED.chunk_count`,
		rec.DocumentID, content, embeddings, len(rec.Chunks),
	)
	if err != nil {
		return fmt.Errorf("upsert chunks for %s: %w", rec.DocumentID, err)
	}
	return nil
}

// GetChunks returns the chunk record for a document, or ErrNotFound when the
// document has no chunks persisted.
func (s *Store) GetChunks(ctx context.Context, documentID string) (*ChunkRecord, error) {
	var (
		content    []byte
		embeddings []byte
		count      int
	)
	err := s.q.QueryRow(ctx,
		`SELECT content, embeddings, chunk_count FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&content, &embeddings, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chunks for %s: %w", documentID, err)
	}

	rec := ChunkRecord{DocumentID: documentID, ChunkCount: count}
	if err := json.Unmarshal(content, &rec.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshal chunks for %s: %w", documentID, err)
	}
	if len(embeddings) > 0 {
		if err := json.Unmarshal(embeddings, &rec.Embeddings); err != nil {
			// Stored embeddings that fail to parse are treated as absent;
			// the vector store can always recompute from text.
			s.logger.Warn("unparseable stored embeddings", "document_id", documentID, "error", err)
			rec.Embeddings = nil
		}
	}
	return &rec, nil
}

// ResyncRecord is one document's persisted chunk state as raw JSON, the
// input unit for a vector index rebuild. JSON stays unparsed here so a
// corrupt record can be skipped per-document during resync.
type ResyncRecord struct {
	DocumentID     string
	Filename       string
	ChunkJSON      []byte
	EmbeddingsJSON []byte
}

// ResyncRecords returns the chunk records of every ingested, non-deleted
// document in the project, oldest first.
func (s *Store) ResyncRecords(ctx context.Context, projectID string) ([]ResyncRecord, error) {
	rows, err := s.q.Query(ctx, `
		SELECT d.id, d.filename, c.content, c.embeddings
		FROM documents d
		JOIN document_chunks c ON c.document_id = d.id
		WHERE d.project_id = $1 AND d.status = $2 AND d.deleted_at IS NULL
		ORDER BY d.uploaded_at, d.id`,
		projectID, StatusIngested,
	)
	if err != nil {
		return nil, fmt.Errorf("query resync records: %w", err)
	}
	defer rows.Close()

	var records []ResyncRecord
	for rows.Next() {
		var rec ResyncRecord
		if err := rows.Scan(&rec.DocumentID, &rec.Filename, &rec.ChunkJSON, &rec.EmbeddingsJSON); err != nil {
			return nil, fmt.Errorf("scan resync record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query resync records: %w", err)
	}
	return records, nil
}
