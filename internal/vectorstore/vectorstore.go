// Package vectorstore implements the per-project vector index on Postgres
// with pgvector, and the resync engine that rebuilds it from persisted
// chunk records.
//
// Each project owns one logical collection, named project_<id>. Entries are
// keyed doc_<documentID>_chunk_<i> with 1-based chunk indices. The index is
// derived state: everything in it can be rebuilt from document_chunks.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/ragbase/ragbase/internal/log"
)

// Querier is the database surface the store needs. Both *pgxpool.Pool and
// pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EmbedFunc computes embeddings for texts in input order. Used when the
// caller has no precomputed vectors for an Add.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Metadata describes one indexed chunk.
type Metadata struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Filename   string `json:"filename"`
}

// Result holds nearest-neighbor hits as parallel slices ordered by
// ascending distance.
type Result struct {
	IDs       []string
	Contents  []string
	Metadatas []Metadata
	Distances []float64
}

// Store reads and writes vector entries. One Store is constructed per
// process and shared by ingestion, retrieval and resync.
type Store struct {
	q      Querier
	embed  EmbedFunc
	logger log.Logger
}

// New creates a vector store. embed may be nil when every caller supplies
// precomputed embeddings; Add then fails for chunks without vectors.
func New(q Querier, embed EmbedFunc, logger log.Logger) *Store {
	return &Store{q: q, embed: embed, logger: logger.With("component", "vectorstore")}
}

// CollectionName returns the collection a project's entries live in.
func CollectionName(projectID string) string {
	return "project_" + projectID
}

// EntryID returns the id for a document's i-th chunk (1-based).
func EntryID(documentID string, index int) string {
	return fmt.Sprintf("doc_%s_chunk_%d", documentID, index)
}

// Add indexes a document's chunks. Caller-supplied embeddings are used
// verbatim only when their count matches the chunk count; otherwise they
// are ignored and the store computes vectors itself. Existing entries with
// the same ids are replaced.
func (s *Store) Add(ctx context.Context, projectID, documentID string, chunks []string, embeddings [][]float32, filename string) error {
	if len(chunks) == 0 {
		return nil
	}

	if len(embeddings) != len(chunks) {
		if len(embeddings) != 0 {
			s.logger.Warn("ignoring mismatched embeddings on add",
				"document_id", documentID,
				"chunks", len(chunks),
				"embeddings", len(embeddings))
		}
		if s.embed == nil {
			return fmt.Errorf("add %s: no embeddings and no embed function", documentID)
		}
		var err error
		embeddings, err = s.embed(ctx, chunks)
		if err != nil {
			return fmt.Errorf("embed chunks for %s: %w", documentID, err)
		}
	}

	collection := CollectionName(projectID)
	for i, chunk := range chunks {
		index := i + 1
		_, err := s.q.Exec(ctx, `
			INSERT INTO vector_entries (collection, entry_id, document_id, chunk_index, filename, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (collection, entry_id) DO UPDATE
			SET content = EXCLUDED.content,
			    embedding = EXCLUDED.embedding,
			    filename = EXCLUDED.filename`,
			collection, EntryID(documentID, index), documentID, index, filename, chunk,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("insert vector entry %s/%d: %w", documentID, index, err)
		}
	}
	return nil
}

// Delete removes every entry of a document. Deleting an unindexed document
// is a no-op.
func (s *Store) Delete(ctx context.Context, projectID, documentID string) error {
	_, err := s.q.Exec(ctx,
		`DELETE FROM vector_entries WHERE collection = $1 AND document_id = $2`,
		CollectionName(projectID), documentID,
	)
	if err != nil {
		return fmt.Errorf("delete vector entries for %s: %w", documentID, err)
	}
	return nil
}

// Clear removes every entry in a project's collection and returns the count
// removed.
func (s *Store) Clear(ctx context.Context, projectID string) (int, error) {
	tag, err := s.q.Exec(ctx,
		`DELETE FROM vector_entries WHERE collection = $1`,
		CollectionName(projectID),
	)
	if err != nil {
		return 0, fmt.Errorf("clear collection %s: %w", projectID, err)
	}
	return int(tag.RowsAffected()), nil
}

// Count returns the number of entries in a project's collection.
func (s *Store) Count(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.q.QueryRow(ctx,
		`SELECT count(*) FROM vector_entries WHERE collection = $1`,
		CollectionName(projectID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", projectID, err)
	}
	return n, nil
}

// Query returns the k nearest entries to the embedding by cosine distance.
func (s *Store) Query(ctx context.Context, projectID string, embedding []float32, k int) (*Result, error) {
	if k <= 0 {
		return &Result{}, nil
	}

	rows, err := s.q.Query(ctx, `
		SELECT entry_id, content, document_id, chunk_index, filename,
			embedding <=> $2 AS distance
		FROM vector_entries
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		CollectionName(projectID), pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", projectID, err)
	}
	defer rows.Close()

	res := &Result{}
	for rows.Next() {
		var (
			id, content string
			meta        Metadata
			distance    float64
		)
		if err := rows.Scan(&id, &content, &meta.DocumentID, &meta.ChunkIndex, &meta.Filename, &distance); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		res.IDs = append(res.IDs, id)
		res.Contents = append(res.Contents, content)
		res.Metadatas = append(res.Metadatas, meta)
		res.Distances = append(res.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query collection %s: %w", projectID, err)
	}
	return res, nil
}
