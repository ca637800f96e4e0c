package mocks

import (
	"context"
	"sync"
)

// MockLLMService is a mock implementation of LLMService for testing.
// It records every prompt so tests can assert whether the model was called.
type MockLLMService struct {
	mu       sync.Mutex
	model    string
	response string
	failNext bool

	// Prompts records every prompt passed to Generate
	Prompts []string
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		model:    "mock-llm-model",
		response: "mock answer",
	}
}

func (m *MockLLMService) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		m.failNext = false
		return "", context.DeadlineExceeded
	}

	m.Prompts = append(m.Prompts, prompt)
	return m.response, nil
}

func (m *MockLLMService) Model() string {
	return m.model
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// Helper methods for testing

// SetResponse sets the text returned by Generate
func (m *MockLLMService) SetResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = text
}

// SetFailNext makes the next Generate call fail
func (m *MockLLMService) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}

// CallCount returns how many times Generate succeeded
func (m *MockLLMService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
