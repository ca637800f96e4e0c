package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// Replacement is a staged-commit write: the new chunk set is inserted
// under version N+1, documents.active_version flips to N+1 in the same
// transaction, then the old rows are purged. Readers join on the active
// version, so they see either the old set or the new one, never a mix.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ReplaceChunks replaces the whole chunk set for doc.ID atomically
func (s *ChunkStore) ReplaceChunks(ctx context.Context, doc *domain.Document, chunks []*domain.Chunk) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		// Upsert the document row and claim the next version, locking the
		// row against concurrent replacements of the same document.
		var version int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO documents (id, title, source_format, raw_content, active_version, ingested_at)
			VALUES ($1, $2, $3, $4, 1, $5)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				source_format = EXCLUDED.source_format,
				raw_content = EXCLUDED.raw_content,
				active_version = documents.active_version + 1,
				ingested_at = EXCLUDED.ingested_at
			RETURNING active_version
		`, doc.ID, doc.Title, doc.SourceFormat, doc.RawContent, doc.IngestedAt).Scan(&version)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, document_id, version, chunk_index, title, section, category, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			_, err = stmt.ExecContext(ctx,
				chunk.ID,
				chunk.DocumentID,
				version,
				chunk.Index,
				chunk.Title,
				chunk.Section,
				chunk.Category,
				chunk.Content,
				pq.Array(toFloat64(chunk.Embedding)),
				chunk.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		// Purge superseded versions inside the same transaction
		_, err = tx.ExecContext(ctx,
			`DELETE FROM chunks WHERE document_id = $1 AND version < $2`,
			doc.ID, version,
		)
		return err
	})
}

const activeChunkColumns = `
	c.id, c.document_id, c.chunk_index, c.title, c.section, c.category, c.content, c.embedding, c.created_at
`

// GetByDocument retrieves the active chunk set for a document ordered by
// chunk index
func (s *ChunkStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	query := `
		SELECT ` + activeChunkColumns + `
		FROM chunks c
		JOIN documents d ON d.id = c.document_id AND d.active_version = c.version
		WHERE c.document_id = $1
		ORDER BY c.chunk_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunks(rows)
}

// All returns the active chunk snapshot across all documents
func (s *ChunkStore) All(ctx context.Context) ([]*domain.Chunk, error) {
	query := `
		SELECT ` + activeChunkColumns + `
		FROM chunks c
		JOIN documents d ON d.id = c.document_id AND d.active_version = c.version
		ORDER BY c.document_id ASC, c.chunk_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]*domain.Chunk, error) {
	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var embedding []float64
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Index,
			&chunk.Title,
			&chunk.Section,
			&chunk.Category,
			&chunk.Content,
			pq.Array(&embedding),
			&chunk.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}
		chunk.Embedding = toFloat32(embedding)
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// lib/pq only maps float64 arrays; embeddings are stored widened

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
