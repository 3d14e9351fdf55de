package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/log"
)

// ErrValidation indicates a malformed ingest request. No partial work is
// performed before validation.
var ErrValidation = errors.New("invalid ingest request")

// UncategorizedCluster is assigned when categorization is unavailable.
const UncategorizedCluster = "Uncategorized"

// metadataTimeout bounds the detached background metadata task.
const metadataTimeout = 2 * time.Minute

// documentStore is the slice of the document store the pipeline needs.
type documentStore interface {
	Create(ctx context.Context, doc *document.Document) error
	SetIngestResult(ctx context.Context, id, cluster string, embedding []float32) error
	SetStoragePath(ctx context.Context, id, path string) error
	MarkIngested(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	UpsertChunks(ctx context.Context, rec document.ChunkRecord) error
	GetChunks(ctx context.Context, documentID string) (*document.ChunkRecord, error)
	SaveMetadata(ctx context.Context, id string, meta document.Metadata) error
}

// vectorIndex is the slice of the vector store the pipeline needs.
type vectorIndex interface {
	Add(ctx context.Context, projectID, documentID string, chunks []string, embeddings [][]float32, filename string) error
	Delete(ctx context.Context, projectID, documentID string) error
}

// embedder computes vectors for texts.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// labeler assigns a category label to document text.
type labeler interface {
	Categorize(ctx context.Context, text, filename string) (string, error)
}

// metadataGenerator produces document metadata from chunks.
type metadataGenerator interface {
	Generate(ctx context.Context, docID, filename string, chunks []string) (document.Metadata, error)
}

// blobStore uploads original document bytes. May be absent.
type blobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	BuildKey(projectID, category, filename string) string
}

// StageStatus is the outcome of one best-effort ingestion stage.
type StageStatus string

const (
	StageOk       StageStatus = "ok"
	StageDegraded StageStatus = "degraded"
	StageSkipped  StageStatus = "skipped"
)

// Stage reports one stage's outcome. Reason is set for degraded stages.
type Stage struct {
	Status StageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

func ok() Stage                   { return Stage{Status: StageOk} }
func degraded(err error) Stage    { return Stage{Status: StageDegraded, Reason: err.Error()} }
func skipped(reason string) Stage { return Stage{Status: StageSkipped, Reason: reason} }

// Report describes how an ingestion went stage by stage. A document can
// reach ingested with every best-effort stage degraded.
type Report struct {
	DocEmbedding   Stage `json:"doc_embedding"`
	Categorization Stage `json:"categorization"`
	ChunkEmbedding Stage `json:"chunk_embedding"`
	VectorIndex    Stage `json:"vector_index"`
	BlobStorage    Stage `json:"blob_storage"`
	ChunkCount     int   `json:"chunk_count"`
	MetadataQueued bool  `json:"metadata_queued"`
}

// Request is one upload to ingest.
type Request struct {
	ProjectID   string
	Actor       string
	Filename    string
	ContentType string
	Body        []byte
}

// Params tunes the pipeline.
type Params struct {
	WordsPerChunk    int
	OverlapWords     int
	GenerateMetadata bool // queue background metadata generation after ingest
}

// Pipeline orchestrates extraction, chunking, embedding, categorization,
// persistence and vector indexing for uploaded documents.
type Pipeline struct {
	docs      documentStore
	vectors   vectorIndex
	embedder  embedder
	labeler   labeler
	generator metadataGenerator
	blobs     blobStore // nil when no blob storage is configured
	params    Params
	logger    log.Logger

	background sync.WaitGroup
}

// NewPipeline creates the ingestion pipeline. blobs may be nil.
func NewPipeline(docs documentStore, vectors vectorIndex, emb embedder, lab labeler,
	gen metadataGenerator, blobs blobStore, params Params, logger log.Logger) *Pipeline {
	return &Pipeline{
		docs:      docs,
		vectors:   vectors,
		embedder:  emb,
		labeler:   lab,
		generator: gen,
		blobs:     blobs,
		params:    params,
		logger:    logger.With("component", "ingestion-pipeline"),
	}
}

// Wait blocks until queued background work finishes. Used on shutdown and
// in tests; requests never call it.
func (p *Pipeline) Wait() { p.background.Wait() }

// Ingest runs the full pipeline for one upload. The document row is created
// first and committed, so it exists even when later stages fail. Only
// validation and extraction failures fail the document; every external
// dependency failure degrades its own stage and the document still reaches
// ingested.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*document.Document, *Report, error) {
	if err := validate(req); err != nil {
		return nil, nil, err
	}

	doc := &document.Document{
		ProjectID:   req.ProjectID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   int64(len(req.Body)),
		StoragePath: "pending",
		Status:      document.StatusIngesting,
		UploadedBy:  req.Actor,
		UploadedAt:  time.Now().UTC(),
	}
	if err := p.docs.Create(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("create document: %w", err)
	}
	logger := p.logger.With("document_id", doc.ID, "project_id", req.ProjectID)

	text, err := ExtractText(req.Filename, req.ContentType, req.Body)
	if err != nil {
		p.fail(ctx, doc.ID, logger)
		return nil, nil, err
	}
	if text == "" {
		text = FallbackText(req.Filename)
		logger.Info("extraction yielded no text, using filename fallback")
	}

	report := &Report{}

	p.classify(ctx, doc, text, report, logger)

	chunks := ChunkWords(text, p.params.WordsPerChunk, p.params.OverlapWords)
	report.ChunkCount = len(chunks)
	if len(chunks) > 0 {
		embeddings := p.embedChunks(ctx, chunks, report, logger)

		if err := p.docs.UpsertChunks(ctx, document.ChunkRecord{
			DocumentID: doc.ID,
			Chunks:     chunks,
			Embeddings: embeddings,
			ChunkCount: len(chunks),
		}); err != nil {
			p.fail(ctx, doc.ID, logger)
			return nil, nil, fmt.Errorf("persist chunks: %w", err)
		}

		if err := p.vectors.Add(ctx, req.ProjectID, doc.ID, chunks, embeddings, req.Filename); err != nil {
			logger.Warn("vector indexing failed, document remains searchable after resync", "error", err)
			report.VectorIndex = degraded(err)
		} else {
			report.VectorIndex = ok()
		}
	} else {
		report.ChunkEmbedding = skipped("no chunks")
		report.VectorIndex = skipped("no chunks")
	}

	p.upload(ctx, doc, req, report, logger)

	now := time.Now().UTC()
	if err := p.docs.MarkIngested(ctx, doc.ID, now); err != nil {
		return nil, nil, fmt.Errorf("mark ingested: %w", err)
	}
	doc.Status = document.StatusIngested
	doc.IngestedAt = &now

	if len(chunks) > 0 && p.params.GenerateMetadata {
		p.queueMetadata(ctx, doc.ID, req.Filename, chunks, logger)
		report.MetadataQueued = true
	}

	logger.Info("document ingested",
		"chunks", len(chunks),
		"cluster", doc.Cluster,
		"storage_path", doc.StoragePath)
	return doc, report, nil
}

// classify runs the best-effort document-level embedding and categorization
// stage. Failures degrade; the cluster falls back to Uncategorized.
func (p *Pipeline) classify(ctx context.Context, doc *document.Document, text string, report *Report, logger log.Logger) {
	embedding, err := p.embedder.Embed(ctx, text)
	if err != nil {
		logger.Warn("document embedding failed", "error", err)
		report.DocEmbedding = degraded(err)
		embedding = nil
	} else {
		report.DocEmbedding = ok()
	}

	cluster, err := p.labeler.Categorize(ctx, text, doc.Filename)
	if err != nil {
		logger.Warn("categorization failed", "error", err)
		report.Categorization = degraded(err)
		cluster = UncategorizedCluster
	} else {
		report.Categorization = ok()
	}

	doc.Cluster = cluster
	doc.Embedding = embedding
	if err := p.docs.SetIngestResult(ctx, doc.ID, cluster, embedding); err != nil {
		logger.Warn("persisting ingest result failed", "error", err)
	}
}

// embedChunks best-effort embeds every chunk. A partial failure discards
// the whole array so it is never persisted misaligned.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []string, report *Report, logger log.Logger) [][]float32 {
	embeddings, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		logger.Warn("chunk embedding failed, persisting chunks without vectors", "error", err)
		report.ChunkEmbedding = degraded(err)
		return nil
	}
	report.ChunkEmbedding = ok()
	return embeddings
}

// upload best-effort stores the original bytes. On failure the storage
// pointer falls back to a local placeholder path.
func (p *Pipeline) upload(ctx context.Context, doc *document.Document, req Request, report *Report, logger log.Logger) {
	path := fmt.Sprintf("local/%s/%s", doc.ID, req.Filename)
	if p.blobs == nil {
		report.BlobStorage = skipped("blob storage not configured")
	} else {
		key := p.blobs.BuildKey(req.ProjectID, doc.Cluster, req.Filename)
		if err := p.blobs.Put(ctx, key, req.Body, req.ContentType); err != nil {
			logger.Warn("blob upload failed, keeping local fallback path", "error", err)
			report.BlobStorage = degraded(err)
		} else {
			path = key
			report.BlobStorage = ok()
		}
	}

	doc.StoragePath = path
	if err := p.docs.SetStoragePath(ctx, doc.ID, path); err != nil {
		logger.Warn("persisting storage path failed", "error", err)
	}
}

// queueMetadata runs metadata generation detached from the request. The
// task gets its own context so request cancellation does not abort it.
func (p *Pipeline) queueMetadata(ctx context.Context, docID, filename string, chunks []string, logger log.Logger) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metadataTimeout)
	p.background.Add(1)
	go func() {
		defer p.background.Done()
		defer cancel()

		meta, err := p.generator.Generate(taskCtx, docID, filename, chunks)
		if err != nil {
			logger.Warn("metadata generation failed", "error", err)
			return
		}
		if err := p.docs.SaveMetadata(taskCtx, docID, meta); err != nil {
			logger.Warn("saving metadata failed", "error", err)
			return
		}
		logger.Info("metadata generated", "tags", len(meta.Tags))
	}()
}

// RegenerateMetadata re-runs metadata generation synchronously from the
// persisted chunk record.
func (p *Pipeline) RegenerateMetadata(ctx context.Context, docID, filename string) (document.Metadata, error) {
	rec, err := p.docs.GetChunks(ctx, docID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return document.Metadata{}, fmt.Errorf("regenerate metadata for %s: %w", docID, ErrNoChunks)
		}
		return document.Metadata{}, err
	}

	meta, err := p.generator.Generate(ctx, docID, filename, rec.Chunks)
	if err != nil {
		return document.Metadata{}, err
	}
	if err := p.docs.SaveMetadata(ctx, docID, meta); err != nil {
		return document.Metadata{}, err
	}
	return meta, nil
}

// Delete soft-deletes a document and removes its vector entries, never
// leaving orphaned index entries behind. The chunk record is retained.
func (p *Pipeline) Delete(ctx context.Context, projectID, docID string) error {
	if err := p.docs.SoftDelete(ctx, docID, time.Now().UTC()); err != nil {
		return err
	}
	if err := p.vectors.Delete(ctx, projectID, docID); err != nil {
		return fmt.Errorf("remove vector entries for %s: %w", docID, err)
	}
	return nil
}

func validate(req Request) error {
	switch {
	case req.ProjectID == "":
		return fmt.Errorf("%w: missing project id", ErrValidation)
	case req.Filename == "":
		return fmt.Errorf("%w: missing filename", ErrValidation)
	case len(req.Body) == 0:
		return fmt.Errorf("%w: empty body", ErrValidation)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, docID string, logger log.Logger) {
	if err := p.docs.MarkFailed(ctx, docID); err != nil {
		logger.Warn("marking document failed did not persist", "error", err)
	}
}
