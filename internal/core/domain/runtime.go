package domain

import "sync"

// RuntimeConfig tracks which AI services are available at runtime.
// Availability changes when services are reconfigured (e.g. a new embedding
// model is rolled out before re-embedding the corpus).
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	StorageBackend string // "postgres", "bolt" or "memory"

	// Dynamic capability flags
	embeddingAvailable bool
	llmAvailable       bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(storageBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		StorageBackend: storageBackend,
	}
}

// EmbeddingAvailable returns whether an embedding service is configured
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether a language model service is configured
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// CanIngest returns true if documents can be embedded and indexed
func (c *RuntimeConfig) CanIngest() bool {
	return c.EmbeddingAvailable()
}

// CanAnswer returns true if grounded answering is possible end to end
func (c *RuntimeConfig) CanAnswer() bool {
	return c.EmbeddingAvailable() && c.LLMAvailable()
}
