package mocks

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

// MockEmbeddingService is a deterministic in-memory EmbeddingService.
// Embeddings are bag-of-words vectors over hashed token buckets, so texts
// sharing words score higher under cosine similarity than unrelated texts.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string

	failNext  bool
	failAfter int // fail once this many more texts have been embedded; -1 disables

	// EmbedCalls records how many texts were requested per Embed call
	EmbedCalls []int
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 128,
		model:      "mock-embedding-model",
		failAfter:  -1,
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		m.failNext = false
		return nil, context.DeadlineExceeded
	}

	m.EmbedCalls = append(m.EmbedCalls, len(texts))

	result := make([][]float32, len(texts))
	for i, text := range texts {
		if m.failAfter == 0 {
			return nil, context.DeadlineExceeded
		}
		if m.failAfter > 0 {
			m.failAfter--
		}
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		m.failNext = false
		return nil, context.DeadlineExceeded
	}
	return m.generateEmbedding(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// generateEmbedding hashes each token into a bucket and counts occurrences
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	embedding := make([]float32, m.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?:;()\"'")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		embedding[h.Sum32()%uint32(m.dimensions)]++
	}
	return embedding
}

// Helper methods for testing

// SetFailNext makes the next Embed or EmbedQuery call fail
func (m *MockEmbeddingService) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}

// SetFailAfter makes embedding fail after n more texts have been embedded,
// simulating a mid-batch outage
func (m *MockEmbeddingService) SetFailAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}
