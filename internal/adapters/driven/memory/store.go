package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.DocumentStore = (*Store)(nil)
	_ driven.ChunkStore    = (*Store)(nil)
)

// Store is an in-memory document and chunk store for development and
// tests. ReplaceChunks swaps the whole chunk slice under the write lock,
// so readers see either the previous set or the new one, never a mix.
type Store struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	chunks    map[string][]*domain.Chunk
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		documents: make(map[string]*domain.Document),
		chunks:    make(map[string][]*domain.Chunk),
	}
}

// Get retrieves a document by ID
func (s *Store) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// List retrieves all documents ordered by title
func (s *Store) List(_ context.Context) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		copied := *doc
		docs = append(docs, &copied)
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
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// Count returns total document count
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// ReplaceChunks replaces the whole chunk set for doc.ID atomically
func (s *Store) ReplaceChunks(_ context.Context, doc *domain.Document, chunks []*domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *doc
	copied.ActiveVersion++
	if prev, ok := s.documents[doc.ID]; ok {
		copied.ActiveVersion = prev.ActiveVersion + 1
	}

	replacement := make([]*domain.Chunk, len(chunks))
	for i, chunk := range chunks {
		c := *chunk
		replacement[i] = &c
	}

	s.documents[doc.ID] = &copied
	s.chunks[doc.ID] = replacement
	return nil
}

// GetByDocument retrieves the active chunk set for a document ordered by
// chunk index
func (s *Store) GetByDocument(_ context.Context, documentID string) ([]*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.chunks[documentID]
	chunks := make([]*domain.Chunk, len(stored))
	for i, chunk := range stored {
		c := *chunk
		chunks[i] = &c
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// All returns the active chunk snapshot across all documents
func (s *Store) All(_ context.Context) ([]*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var all []*domain.Chunk
	for _, id := range ids {
		for _, chunk := range s.chunks[id] {
			c := *chunk
			all = append(all, &c)
		}
	}
	return all, nil
}
