// Package api provides the HTTP REST API.
//
// Endpoints:
//
//	GET    /health                                  liveness probe
//	GET    /ready                                   readiness probe (DB ping)
//	POST   /api/projects/{project}/documents        upload + ingest
//	GET    /api/projects/{project}/documents        list documents
//	POST   /api/projects/{project}/search           semantic search
//	POST   /api/projects/{project}/answer           RAG answer
//	POST   /api/projects/{project}/resync           rebuild vector index
//	GET    /api/projects/{project}/queries          search query log
//	GET    /api/documents/{id}                      document detail
//	GET    /api/documents/{id}/chunks               chunk listing
//	GET    /api/documents/{id}/download             presigned download URL
//	POST   /api/documents/{id}/metadata             regenerate metadata
//	DELETE /api/documents/{id}                      soft delete
//	POST   /api/rephrase                            rephrase an answer
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: recovery, logging, request id, rate limiting
//   - response.go: JSON response helpers and error mapping
//   - health.go: probes
//   - documents.go: document endpoints
//   - search.go: search, answer, rephrase, query log
//   - resync.go: vector index rebuild
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/ingest"
	"github.com/ragbase/ragbase/internal/log"
	"github.com/ragbase/ragbase/internal/search"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout = 60 * time.Second

	// WriteTimeout is the maximum duration for writing a response. Answer
	// synthesis makes two generation calls, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout closes idle keep-alive connections.
	IdleTimeout = 120 * time.Second

	// maxUploadBytes caps one uploaded document.
	maxUploadBytes = 50 << 20
)

// Ingestor runs the ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, req ingest.Request) (*document.Document, *ingest.Report, error)
	Delete(ctx context.Context, projectID, docID string) error
	RegenerateMetadata(ctx context.Context, docID, filename string) (document.Metadata, error)
}

// DocumentReader reads persisted document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*document.Document, error)
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]document.Document, int, error)
	GetChunks(ctx context.Context, documentID string) (*document.ChunkRecord, error)
	ListSearchQueries(ctx context.Context, projectID string, limit int) ([]document.SearchQuery, error)
	ResyncRecords(ctx context.Context, projectID string) ([]document.ResyncRecord, error)
}

// Searcher runs semantic retrieval.
type Searcher interface {
	Search(ctx context.Context, projectID, actor, query string, k int) ([]search.Hit, error)
}

// Answerer synthesizes grounded answers.
type Answerer interface {
	Answer(ctx context.Context, projectID, actor, query string, k int) (*search.Answer, error)
	Rephrase(ctx context.Context, question, answer string) (string, error)
}

// Resyncer rebuilds a project's vector index.
type Resyncer interface {
	Resync(ctx context.Context, projectID string, records []document.ResyncRecord) (docs, chunks int, err error)
}

// Presigner issues download URLs for stored objects. Nil when blob storage
// is not configured.
type Presigner interface {
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// Pinger checks the database connection for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the server serves.
type Deps struct {
	Ingestor  Ingestor
	Documents DocumentReader
	Searcher  Searcher
	Answerer  Answerer
	Resyncer  Resyncer
	Presigner Presigner // may be nil
	DB        Pinger
	Logger    log.Logger
}

// Server is the HTTP server.
type Server struct {
	mux    *http.ServeMux
	deps   Deps
	logger log.Logger
}

// NewServer creates the server with all routes registered.
func NewServer(deps Deps) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		deps:   deps,
		logger: deps.Logger.With("component", "api"),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)

	s.mux.HandleFunc("POST /api/projects/{project}/documents", s.handleUpload)
	s.mux.HandleFunc("GET /api/projects/{project}/documents", s.handleListDocuments)
	s.mux.HandleFunc("POST /api/projects/{project}/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/projects/{project}/answer", s.handleAnswer)
	s.mux.HandleFunc("POST /api/projects/{project}/resync", s.handleResync)
	s.mux.HandleFunc("GET /api/projects/{project}/queries", s.handleQueryLog)

	s.mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	s.mux.HandleFunc("GET /api/documents/{id}/chunks", s.handleGetChunks)
	s.mux.HandleFunc("GET /api/documents/{id}/download", s.handleDownload)
	s.mux.HandleFunc("POST /api/documents/{id}/metadata", s.handleRegenerateMetadata)
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	s.mux.HandleFunc("POST /api/rephrase", s.handleRephrase)

	return s
}

// Handler returns the mux wrapped in middleware.
// Order: recovery -> request id -> rate limit -> logging -> routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		s.recoveryMiddleware,
		requestIDMiddleware,
		newRateLimiter().middleware,
		s.loggingMiddleware,
	)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// actor returns the caller identity header, empty when absent. Auth proper
// is handled upstream of this service.
func actor(r *http.Request) string {
	return r.Header.Get("X-Actor")
}
