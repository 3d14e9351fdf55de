package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ragbase/ragbase/internal/log"
)

// Querier is the database access surface the store needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists documents, chunk records and the search query log.
type Store struct {
	q      Querier
	logger log.Logger
}

// NewStore creates a document store on the given querier.
func NewStore(q Querier, logger log.Logger) *Store {
	return &Store{q: q, logger: logger.With("component", "document-store")}
}

const documentColumns = `id, project_id, filename, content_type, size_bytes, storage_path,
	status, COALESCE(cluster, ''), embedding,
	COALESCE(doc_title, ''), COALESCE(doc_description, ''), COALESCE(doc_type, ''),
	tags, taxonomy, COALESCE(uploaded_by, ''), uploaded_at, ingested_at, deleted_at`

// Create allocates a Doc-YYYY-NNNN id and inserts the document. The caller
// sets everything except ID; Status defaults to pending when empty.
func (s *Store) Create(ctx context.Context, doc *Document) error {
	id, err := s.nextID(ctx, doc.UploadedAt)
	if err != nil {
		return err
	}
	doc.ID = id
	if doc.Status == "" {
		doc.Status = StatusPending
	}

	embedding, err := marshalOrNil(doc.Embedding, len(doc.Embedding) > 0)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO documents (id, project_id, filename, content_type, size_bytes,
			storage_path, status, embedding, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.ProjectID, doc.Filename, doc.ContentType, doc.SizeBytes,
		doc.StoragePath, doc.Status, embedding, nullable(doc.UploadedBy), doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetByID returns the document, including soft-deleted ones.
func (s *Store) GetByID(ctx context.Context, id string) (*Document, error) {
	row := s.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// ListByProject returns non-deleted documents for a project, newest first,
// plus the total matching count for pagination.
func (s *Store) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]Document, int, error) {
	var total int
	err := s.q.QueryRow(ctx,
		`SELECT count(*) FROM documents WHERE project_id = $1 AND deleted_at IS NULL`,
		projectID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	rows, err := s.q.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE project_id = $1 AND deleted_at IS NULL
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		projectID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// SetIngestResult records the best-effort categorization stage: the assigned
// cluster and, when available, the document-level embedding.
func (s *Store) SetIngestResult(ctx context.Context, id, cluster string, embedding []float32) error {
	emb, err := marshalOrNil(embedding, len(embedding) > 0)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	return s.exec(ctx, "update ingest result",
		`UPDATE documents SET cluster = $2, embedding = $3 WHERE id = $1`,
		id, cluster, emb)
}

// SetStoragePath updates the blob storage pointer.
func (s *Store) SetStoragePath(ctx context.Context, id, path string) error {
	return s.exec(ctx, "update storage path",
		`UPDATE documents SET storage_path = $2 WHERE id = $1`, id, path)
}

// MarkIngesting moves the document into the ingesting state.
func (s *Store) MarkIngesting(ctx context.Context, id string) error {
	return s.exec(ctx, "mark ingesting",
		`UPDATE documents SET status = $2 WHERE id = $1`, id, StatusIngesting)
}

// MarkIngested completes ingestion with a timestamp.
func (s *Store) MarkIngested(ctx context.Context, id string, at time.Time) error {
	return s.exec(ctx, "mark ingested",
		`UPDATE documents SET status = $2, ingested_at = $3 WHERE id = $1`,
		id, StatusIngested, at)
}

// MarkFailed records a hard ingestion failure.
func (s *Store) MarkFailed(ctx context.Context, id string) error {
	return s.exec(ctx, "mark failed",
		`UPDATE documents SET status = $2 WHERE id = $1`, id, StatusFailed)
}

// SaveMetadata writes generated metadata onto the document row.
func (s *Store) SaveMetadata(ctx context.Context, id string, meta Metadata) error {
	tags, err := json.Marshal(meta.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	taxonomy, err := json.Marshal(meta.Taxonomy)
	if err != nil {
		return fmt.Errorf("marshal taxonomy: %w", err)
	}
	return s.exec(ctx, "save metadata", `
		UPDATE documents
		SET doc_title = $2, doc_description = $3, doc_type = $4, tags = $5, taxonomy = $6
		WHERE id = $1`,
		id, meta.Title, meta.Description, meta.DocType, tags, taxonomy)
}

// SoftDelete marks the document deleted. The chunk record is retained so the
// row remains auditable; vector entries are removed by the caller.
func (s *Store) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return s.exec(ctx, "soft delete",
		`UPDATE documents SET status = $2, deleted_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		id, StatusDeleted, at)
}

func (s *Store) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		doc           Document
		embeddingJSON []byte
		tagsJSON      []byte
		taxonomyJSON  []byte
	)
	err := row.Scan(
		&doc.ID, &doc.ProjectID, &doc.Filename, &doc.ContentType, &doc.SizeBytes,
		&doc.StoragePath, &doc.Status, &doc.Cluster, &embeddingJSON,
		&doc.Title, &doc.Description, &doc.DocType,
		&tagsJSON, &taxonomyJSON, &doc.UploadedBy,
		&doc.UploadedAt, &doc.IngestedAt, &doc.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &doc.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &doc.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if len(taxonomyJSON) > 0 {
		if err := json.Unmarshal(taxonomyJSON, &doc.Taxonomy); err != nil {
			return nil, fmt.Errorf("unmarshal taxonomy: %w", err)
		}
	}
	return &doc, nil
}

func marshalOrNil(v any, present bool) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
