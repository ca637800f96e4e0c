package driven

import (
	"context"
)

// LLMService invokes a language model to produce grounded answers
type LLMService interface {
	// Generate produces a completion for the given prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
