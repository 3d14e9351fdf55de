// Package document holds the document domain model and its Postgres store:
// document rows, per-document chunk records, and the append-only search
// query log.
package document

import (
	"errors"
	"time"
)

// Status is the ingestion lifecycle state of a document.
// Transitions: pending -> ingesting -> ingested | failed; ingested -> deleted.
type Status string

const (
	StatusPending   Status = "pending"
	StatusIngesting Status = "ingesting"
	StatusIngested  Status = "ingested"
	StatusFailed    Status = "failed"
	StatusDeleted   Status = "deleted"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("document not found")

// LocalStoragePrefix marks storage paths that were never uploaded to blob
// storage. Downloads for these paths cannot be presigned.
const LocalStoragePrefix = "local/"

// Document is one uploaded file and its ingestion state.
type Document struct {
	ID          string
	ProjectID   string
	Filename    string
	ContentType string
	SizeBytes   int64
	StoragePath string
	Status      Status
	Cluster     string
	Embedding   []float32 // document-level embedding, nil when unavailable

	Title       string
	Description string
	DocType     string
	Tags        []string
	Taxonomy    Taxonomy

	UploadedBy string
	UploadedAt time.Time
	IngestedAt *time.Time
	DeletedAt  *time.Time
}

// Taxonomy holds generated classification suggestions. All values are
// lowercase kebab-case.
type Taxonomy struct {
	Domains   []string `json:"domains,omitempty"`
	RuleTypes []string `json:"rule_types,omitempty"`
	AppliesTo []string `json:"applies_to,omitempty"`
}

// Metadata is the generated document metadata written after ingestion.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DocType     string   `json:"doc_type"`
	Tags        []string `json:"tags"`
	Taxonomy    Taxonomy `json:"taxonomy_suggestions"`
}

// ChunkRecord is the persisted chunk state for one document: exactly one
// row per document. Chunks are ordered; index i in Chunks is chunk i+1.
// Embeddings is either nil or parallel to Chunks.
type ChunkRecord struct {
	DocumentID string
	Chunks     []string
	Embeddings [][]float32
	ChunkCount int
}

// SearchQuery is one append-only entry in the search query log.
type SearchQuery struct {
	ID          int64
	Timestamp   time.Time
	Actor       string
	ProjectID   string
	QueryText   string
	K           int
	ResultCount int
	LatencyMS   int64
	Answer      string
	Topic       string
}
