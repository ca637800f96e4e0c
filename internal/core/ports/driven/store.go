package driven

import (
	"context"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
)

// DocumentStore handles document persistence
type DocumentStore interface {
	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves all documents ordered by title
	List(ctx context.Context) ([]*domain.Document, error)

	// Delete removes a document and all of its chunks
	Delete(ctx context.Context, id string) error

	// Count returns total document count
	Count(ctx context.Context) (int, error)
}

// ChunkStore handles chunk persistence including embeddings.
//
// ReplaceChunks must be atomic per document: concurrent readers observe
// either the previous chunk set or the new one, never a mix. Backends
// implement this as a staged-commit write: new rows under a fresh version,
// then a single flip of the document's active version pointer.
type ChunkStore interface {
	// ReplaceChunks replaces the whole chunk set for doc.ID with chunks,
	// persisting the document alongside in the same logical operation
	ReplaceChunks(ctx context.Context, doc *domain.Document, chunks []*domain.Chunk) error

	// GetByDocument retrieves the active chunk set for a document,
	// ordered by chunk index
	GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)

	// All returns the active chunk snapshot across all documents, used for
	// the full-scan similarity path. Read-only and safe to call concurrently.
	All(ctx context.Context) ([]*domain.Chunk, error)
}
