package domain

import (
	"fmt"
	"time"
)

// SourceFormat describes how a document's text is laid out
type SourceFormat string

const (
	// SourceFormatStructured has recognisable section markers (headings, articles)
	SourceFormatStructured SourceFormat = "structured"
	// SourceFormatPlain is free-running text with no markers
	SourceFormatPlain SourceFormat = "plain"
)

// Document represents an operating-policy text held in the index.
// Documents are immutable once stored; re-ingesting the same ID replaces
// the whole chunk set, never part of it.
type Document struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	SourceFormat  SourceFormat `json:"source_format"`
	RawContent    string       `json:"raw_content"`
	ActiveVersion int64        `json:"active_version"`
	IngestedAt    time.Time    `json:"ingested_at"`
}

// Chunk is the atomic retrievable unit of a document
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"chunk_index"` // 0-based, defines document-local ordering
	Title      string    `json:"title"`       // nearest enclosing heading, or the document title
	Section    string    `json:"section,omitempty"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkID builds the deterministic identifier for a chunk position.
// Stable IDs keep re-ingestion of unchanged content idempotent.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

// IngestResult summarises a completed ingestion or re-embedding
type IngestResult struct {
	DocumentID   string        `json:"document_id"`
	ChunksStored int           `json:"chunks_stored"`
	Model        string        `json:"model"` // embedding model used
	Took         time.Duration `json:"took"`
}
