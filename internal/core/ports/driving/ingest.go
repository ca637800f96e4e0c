package driving

import (
	"context"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
)

// IngestRequest carries a raw policy document into the pipeline.
// Binary-to-text extraction happens before this point; the core only
// accepts text.
type IngestRequest struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	SourceFormat domain.SourceFormat `json:"source_format"`
	Content      string              `json:"content"`
}

// IngestService maintains the embedding index
type IngestService interface {
	// Ingest chunks, classifies, embeds and indexes a document, replacing
	// any previous chunk set for the same ID in one atomic operation.
	// A failure part way through leaves the previous chunk set intact.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error)

	// Reembed recomputes embeddings for an already-chunked document without
	// re-running the chunker. Used when the embedding model changes.
	Reembed(ctx context.Context, documentID string) (*domain.IngestResult, error)

	// Delete removes a document and its chunks from the index
	Delete(ctx context.Context, documentID string) error

	// GetDocument retrieves a stored document
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)

	// ListDocuments retrieves all stored documents
	ListDocuments(ctx context.Context) ([]*domain.Document, error)
}
