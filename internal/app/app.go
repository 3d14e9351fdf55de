// Package app wires configuration, stores, AI clients and pipelines into a
// running application. Construction order matters: pool before stores,
// stores before pipelines, pipelines before the server. The vector store is
// built once here and every consumer shares the same handle.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragbase/ragbase/db"
	"github.com/ragbase/ragbase/internal/ai"
	"github.com/ragbase/ragbase/internal/api"
	"github.com/ragbase/ragbase/internal/config"
	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/ingest"
	"github.com/ragbase/ragbase/internal/log"
	"github.com/ragbase/ragbase/internal/search"
	"github.com/ragbase/ragbase/internal/storage"
	"github.com/ragbase/ragbase/internal/vectorstore"
)

// App holds the assembled application.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Pool      *pgxpool.Pool
	Documents *document.Store
	Vectors   *vectorstore.Store
	Engine    *vectorstore.Engine
	AI        *ai.Client
	Blobs     *storage.BlobStore // nil when S3 is not configured
	Pipeline  *ingest.Pipeline
	Retriever *search.Retriever
	Answerer  *search.Answerer
	Server    *api.Server
}

// New builds the application from configuration. Migrations are the
// caller's responsibility (the serve command runs them first).
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	aiClient := ai.New(ai.Options{
		ChatURL:        cfg.ChatURL,
		ChatAPIKey:     cfg.ChatAPIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingURL:   cfg.EmbeddingEndpoint(),
		EmbeddingKey:   cfg.EmbeddingKey(),
		EmbeddingModel: cfg.EmbeddingModel,
	})

	docs := document.NewStore(pool, logger)
	vectors := vectorstore.New(pool, aiClient.EmbedBatch, logger)
	engine := vectorstore.NewEngine(vectors, logger)

	var blobs *storage.BlobStore
	if cfg.S3Configured() {
		blobs, err = storage.New(ctx, storage.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
		if err != nil {
			// Blob storage is optional; ingestion degrades to local paths.
			logger.Warn("blob storage unavailable, uploads will use local fallback paths", "error", err)
			blobs = nil
		}
	}

	categorizer := ingest.NewCategorizer(aiClient, logger)
	generator := ingest.NewGenerator(aiClient, logger)

	// blobStore is an interface: a typed nil pointer must not reach the
	// pipeline as a non-nil interface value.
	var pipeline *ingest.Pipeline
	params := ingest.Params{
		WordsPerChunk:    cfg.WordsPerChunk,
		OverlapWords:     cfg.OverlapWords,
		GenerateMetadata: cfg.ChatConfigured(),
	}
	if blobs != nil {
		pipeline = ingest.NewPipeline(docs, vectors, aiClient, categorizer, generator, blobs, params, logger)
	} else {
		pipeline = ingest.NewPipeline(docs, vectors, aiClient, categorizer, generator, nil, params, logger)
	}

	retriever := search.NewRetriever(aiClient, vectors, docs, cfg.TopK, logger)
	answerer := search.NewAnswerer(retriever, aiClient, docs, logger)

	deps := api.Deps{
		Ingestor:  pipeline,
		Documents: docs,
		Searcher:  retriever,
		Answerer:  answerer,
		Resyncer:  engine,
		DB:        pool,
		Logger:    logger,
	}
	if blobs != nil {
		deps.Presigner = blobs
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Documents: docs,
		Vectors:   vectors,
		Engine:    engine,
		AI:        aiClient,
		Blobs:     blobs,
		Pipeline:  pipeline,
		Retriever: retriever,
		Answerer:  answerer,
		Server:    api.NewServer(deps),
	}, nil
}

// Migrate applies pending schema migrations.
func (a *App) Migrate() error {
	return db.Migrate(a.Config.PostgresURL())
}

// Close waits for background work and releases the pool.
func (a *App) Close() {
	a.Pipeline.Wait()
	a.Pool.Close()
}
