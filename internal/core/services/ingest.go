package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/careworks-oss/regulation-core/internal/chunker"
	"github.com/careworks-oss/regulation-core/internal/classifier"
	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driving"
	"github.com/careworks-oss/regulation-core/internal/runtime"
)

// Ensure ingestService implements IngestService
var _ driving.IngestService = (*ingestService)(nil)

const (
	ingestLockPrefix = "ingest:"
	ingestLockTTL    = 5 * time.Minute
)

// ingestService implements the ingestion pipeline:
// chunk -> classify -> embed -> atomic replace.
// All embeddings are computed before any write, so a failure part way
// through a batch leaves the previous chunk set fully intact.
type ingestService struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	lock          driven.DistributedLock
	chunker       *chunker.Chunker
	classifier    *classifier.Classifier
	services      *runtime.Services
	batchSize     int
	logger        *slog.Logger
}

// IngestServiceConfig holds dependencies for the ingest service
type IngestServiceConfig struct {
	DocumentStore driven.DocumentStore
	ChunkStore    driven.ChunkStore
	Lock          driven.DistributedLock
	Chunker       *chunker.Chunker
	Classifier    *classifier.Classifier
	Services      *runtime.Services
	BatchSize     int
	Logger        *slog.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(cfg IngestServiceConfig) driving.IngestService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	return &ingestService{
		documentStore: cfg.DocumentStore,
		chunkStore:    cfg.ChunkStore,
		lock:          cfg.Lock,
		chunker:       cfg.Chunker,
		classifier:    cfg.Classifier,
		services:      cfg.Services,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// Ingest replaces the indexed chunk set for the document in req.
// Re-running on unchanged content produces the same
// (document_id, chunk_index) -> content/category mapping.
func (s *ingestService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	start := time.Now()

	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, fmt.Errorf("document id is required: %w", domain.ErrInvalidInput)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = id
	}
	format := req.SourceFormat
	if format == "" {
		format = domain.SourceFormatPlain
	}

	release, err := s.acquireLock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	doc := &domain.Document{
		ID:           id,
		Title:        title,
		SourceFormat: format,
		RawContent:   req.Content,
		IngestedAt:   start,
	}

	chunks := s.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrEmptyDocument)
	}

	for _, chunk := range chunks {
		chunk.Category = s.classifier.Classify(chunk.Title, chunk.Content)
	}

	embeddingService, model, err := s.embeddingService()
	if err != nil {
		return nil, err
	}
	if err := s.embedChunks(ctx, embeddingService, chunks); err != nil {
		return nil, err
	}

	if err := s.chunkStore.ReplaceChunks(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("replace chunks for %s: %w: %v", id, domain.ErrStorage, err)
	}

	s.logger.Info("document ingested",
		"document_id", id,
		"chunks", len(chunks),
		"model", model,
		"took", time.Since(start),
	)

	return &domain.IngestResult{
		DocumentID:   id,
		ChunksStored: len(chunks),
		Model:        model,
		Took:         time.Since(start),
	}, nil
}

// Reembed recomputes embeddings for the stored chunk set of a document
// without re-running the chunker
func (s *ingestService) Reembed(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	start := time.Now()

	release, err := s.acquireLock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkStore.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load chunks for %s: %w: %v", documentID, domain.ErrStorage, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s has no chunks: %w", documentID, domain.ErrNotFound)
	}

	embeddingService, model, err := s.embeddingService()
	if err != nil {
		return nil, err
	}
	if err := s.embedChunks(ctx, embeddingService, chunks); err != nil {
		return nil, err
	}

	if err := s.chunkStore.ReplaceChunks(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("replace chunks for %s: %w: %v", documentID, domain.ErrStorage, err)
	}

	s.logger.Info("document re-embedded",
		"document_id", documentID,
		"chunks", len(chunks),
		"model", model,
	)

	return &domain.IngestResult{
		DocumentID:   documentID,
		ChunksStored: len(chunks),
		Model:        model,
		Took:         time.Since(start),
	}, nil
}

// Delete removes a document and its chunks from the index
func (s *ingestService) Delete(ctx context.Context, documentID string) error {
	release, err := s.acquireLock(ctx, documentID)
	if err != nil {
		return err
	}
	defer release()

	return s.documentStore.Delete(ctx, documentID)
}

// GetDocument retrieves a stored document
func (s *ingestService) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.documentStore.Get(ctx, documentID)
}

// ListDocuments retrieves all stored documents
func (s *ingestService) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	return s.documentStore.List(ctx)
}

// acquireLock serialises writes for one document ID
func (s *ingestService) acquireLock(ctx context.Context, documentID string) (func(), error) {
	name := ingestLockPrefix + documentID
	acquired, err := s.lock.Acquire(ctx, name, ingestLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrIngestInProgress)
	}
	return func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			s.logger.Warn("failed to release ingest lock", "document_id", documentID, "error", err)
		}
	}, nil
}

// embeddingService returns the current embedding service or an error when
// none is configured
func (s *ingestService) embeddingService() (driven.EmbeddingService, string, error) {
	svc := s.services.EmbeddingService()
	if svc == nil {
		return nil, "", fmt.Errorf("no embedding service configured: %w", domain.ErrEmbeddingService)
	}
	return svc, svc.Model(), nil
}

// embedChunks fills in embeddings for every chunk, batching requests.
// Nothing is written until the whole set has embedded successfully.
func (s *ingestService) embedChunks(ctx context.Context, svc driven.EmbeddingService, chunks []*domain.Chunk) error {
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		embeddings, err := svc.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at chunk %d: %w: %v", start, domain.ErrEmbeddingService, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embed batch at chunk %d: got %d embeddings for %d texts: %w",
				start, len(embeddings), len(batch), domain.ErrEmbeddingService)
		}
		for i, emb := range embeddings {
			if len(emb) == 0 {
				return fmt.Errorf("empty embedding for chunk %d: %w", start+i, domain.ErrEmbeddingService)
			}
			batch[i].Embedding = emb
		}
	}
	return nil
}
