package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.DocumentStore = (*Store)(nil)
	_ driven.ChunkStore    = (*Store)(nil)
)

var (
	documentsBucket = []byte("documents")
	chunksBucket    = []byte("chunks")
)

// Store is an embedded document and chunk store backed by bbolt, for
// single-node deployments without Postgres. Documents are stored as JSON
// by ID, chunk sets as one JSON array per document. bbolt transactions
// make ReplaceChunks atomic without version bookkeeping.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database file at path
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(documentsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(chunksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database file
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves a document by ID
func (s *Store) Get(_ context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(documentsBucket).Get([]byte(id))
		if data == nil {
			return domain.ErrNotFound
		}
		doc = &domain.Document{}
		return json.Unmarshal(data, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List retrieves all documents ordered by title
func (s *Store) List(_ context.Context) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).ForEach(func(_, data []byte) error {
			var doc domain.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return err
			}
			docs = append(docs, &doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Title != docs[j].Title {
			return docs[i].Title < docs[j].Title
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document and all of its chunks
func (s *Store) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(id)
		if tx.Bucket(documentsBucket).Get(key) == nil {
			return domain.ErrNotFound
		}
		if err := tx.Bucket(documentsBucket).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(chunksBucket).Delete(key)
	})
}

// Count returns total document count
func (s *Store) Count(_ context.Context) (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(documentsBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// ReplaceChunks replaces the whole chunk set for doc.ID atomically
func (s *Store) ReplaceChunks(_ context.Context, doc *domain.Document, chunks []*domain.Chunk) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(doc.ID)

		stored := *doc
		stored.ActiveVersion = 1
		if prev := tx.Bucket(documentsBucket).Get(key); prev != nil {
			var existing domain.Document
			if err := json.Unmarshal(prev, &existing); err == nil {
				stored.ActiveVersion = existing.ActiveVersion + 1
			}
		}

		docData, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		if err := tx.Bucket(documentsBucket).Put(key, docData); err != nil {
			return err
		}

		chunkData, err := json.Marshal(chunks)
		if err != nil {
			return fmt.Errorf("marshal chunks: %w", err)
		}
		return tx.Bucket(chunksBucket).Put(key, chunkData)
	})
}

// GetByDocument retrieves the chunk set for a document ordered by index
func (s *Store) GetByDocument(_ context.Context, documentID string) ([]*domain.Chunk, error) {
	var chunks []*domain.Chunk
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(chunksBucket).Get([]byte(documentID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &chunks)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// All returns the chunk snapshot across all documents, ordered by
// document ID then chunk index
func (s *Store) All(_ context.Context) ([]*domain.Chunk, error) {
	var all []*domain.Chunk
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(chunksBucket).ForEach(func(_, data []byte) error {
			var chunks []*domain.Chunk
			if err := json.Unmarshal(data, &chunks); err != nil {
				return err
			}
			all = append(all, chunks...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
