package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/ingest"
)

// presignTTL is how long document download URLs stay valid.
const presignTTL = 15 * time.Minute

type documentResponse struct {
	ID          string             `json:"id"`
	ProjectID   string             `json:"project_id"`
	Filename    string             `json:"filename"`
	ContentType string             `json:"content_type"`
	SizeBytes   int64              `json:"size_bytes"`
	StoragePath string             `json:"storage_path"`
	Status      document.Status    `json:"status"`
	Cluster     string             `json:"cluster,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	DocType     string             `json:"doc_type,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Taxonomy    *document.Taxonomy `json:"taxonomy,omitempty"`
	UploadedBy  string             `json:"uploaded_by,omitempty"`
	UploadedAt  time.Time          `json:"uploaded_at"`
	IngestedAt  *time.Time         `json:"ingested_at,omitempty"`
	DeletedAt   *time.Time         `json:"deleted_at,omitempty"`
}

func toDocumentResponse(doc *document.Document) documentResponse {
	resp := documentResponse{
		ID:          doc.ID,
		ProjectID:   doc.ProjectID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		StoragePath: doc.StoragePath,
		Status:      doc.Status,
		Cluster:     doc.Cluster,
		Title:       doc.Title,
		Description: doc.Description,
		DocType:     doc.DocType,
		Tags:        doc.Tags,
		UploadedBy:  doc.UploadedBy,
		UploadedAt:  doc.UploadedAt,
		IngestedAt:  doc.IngestedAt,
		DeletedAt:   doc.DeletedAt,
	}
	if len(doc.Taxonomy.Domains)+len(doc.Taxonomy.RuleTypes)+len(doc.Taxonomy.AppliesTo) > 0 {
		tax := doc.Taxonomy
		resp.Taxonomy = &tax
	}
	return resp
}

// handleUpload ingests one multipart upload (form field "file").
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "missing multipart file field")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "reading upload: "+err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, report, err := s.deps.Ingestor.Ingest(r.Context(), ingest.Request{
		ProjectID:   projectID,
		Actor:       actor(r),
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        body,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document": toDocumentResponse(doc),
		"report":   report,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	offset := queryInt(r, "offset", 0)

	docs, total, err := s.deps.Documents.ListByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]documentResponse, 0, len(docs))
	for i := range docs {
		items = append(items, toDocumentResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Documents.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// handleGetChunks lists a document's chunks with 1-based contiguous indices.
func (s *Server) handleGetChunks(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Documents.GetChunks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type chunk struct {
		Index   int    `json:"index"`
		Content string `json:"content"`
	}
	chunks := make([]chunk, 0, len(rec.Chunks))
	for i, c := range rec.Chunks {
		chunks = append(chunks, chunk{Index: i + 1, Content: c})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":    rec.DocumentID,
		"chunk_count":    rec.ChunkCount,
		"has_embeddings": rec.Embeddings != nil,
		"chunks":         chunks,
	})
}

// handleDownload returns a presigned URL for the stored object. Documents
// that only have the local fallback path cannot be served: 503.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Documents.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if doc.Status == document.StatusDeleted {
		writeError(w, http.StatusNotFound, "not_found", "document is deleted")
		return
	}
	if s.deps.Presigner == nil || strings.HasPrefix(doc.StoragePath, document.LocalStoragePrefix) || doc.StoragePath == "pending" {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable",
			"document bytes are not available from blob storage")
		return
	}

	url, err := s.deps.Presigner.PresignGet(r.Context(), doc.StoragePath, doc.Filename, presignTTL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(presignTTL.Seconds()),
	})
}

func (s *Server) handleRegenerateMetadata(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.deps.Documents.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	meta, err := s.deps.Ingestor.RegenerateMetadata(r.Context(), id, doc.Filename)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.deps.Documents.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.deps.Ingestor.Delete(r.Context(), doc.ProjectID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
