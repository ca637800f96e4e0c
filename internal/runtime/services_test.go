package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven/mocks"
)

// unreachableEmbedding fails its health check, simulating a wrong API key
// or an unreachable endpoint
type unreachableEmbedding struct {
	*mocks.MockEmbeddingService
	closed bool
}

func (u *unreachableEmbedding) HealthCheck(context.Context) error {
	return errors.New("connection refused")
}

func (u *unreachableEmbedding) Close() error {
	u.closed = true
	return nil
}

type unreachableLLM struct {
	*mocks.MockLLMService
	closed bool
}

func (u *unreachableLLM) Ping(context.Context) error {
	return errors.New("connection refused")
}

func (u *unreachableLLM) Close() error {
	u.closed = true
	return nil
}

func TestServicesAvailabilityFlags(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory"))

	if services.Config().CanIngest() {
		t.Error("CanIngest() = true before any service is set")
	}
	if services.EmbeddingService() != nil || services.LLMService() != nil {
		t.Error("services non-nil before being set")
	}

	services.SetEmbeddingService(mocks.NewMockEmbeddingService())
	if !services.Config().CanIngest() {
		t.Error("CanIngest() = false with embedding set")
	}
	if services.Config().CanAnswer() {
		t.Error("CanAnswer() = true without a language model")
	}

	services.SetLLMService(mocks.NewMockLLMService())
	if !services.Config().CanAnswer() {
		t.Error("CanAnswer() = false with both services set")
	}

	services.SetEmbeddingService(nil)
	if services.Config().CanIngest() {
		t.Error("CanIngest() = true after embedding cleared")
	}
}

func TestValidateAndSetEmbedding(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory"))
	ctx := context.Background()

	good := mocks.NewMockEmbeddingService()
	if err := services.ValidateAndSetEmbedding(ctx, good); err != nil {
		t.Fatalf("ValidateAndSetEmbedding() error = %v", err)
	}
	if services.EmbeddingService() != good {
		t.Error("healthy service not installed")
	}

	bad := &unreachableEmbedding{MockEmbeddingService: mocks.NewMockEmbeddingService()}
	if err := services.ValidateAndSetEmbedding(ctx, bad); err == nil {
		t.Fatal("expected error for failing health check")
	}
	if !bad.closed {
		t.Error("rejected service not closed")
	}
	if services.EmbeddingService() != good {
		t.Error("previous service replaced by a failing one")
	}

	if err := services.ValidateAndSetEmbedding(ctx, nil); err != nil {
		t.Fatalf("ValidateAndSetEmbedding(nil) error = %v", err)
	}
	if services.EmbeddingService() != nil {
		t.Error("service not cleared")
	}
}

func TestValidateAndSetLLM(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory"))
	ctx := context.Background()

	good := mocks.NewMockLLMService()
	if err := services.ValidateAndSetLLM(ctx, good); err != nil {
		t.Fatalf("ValidateAndSetLLM() error = %v", err)
	}
	if services.LLMService() != good {
		t.Error("healthy service not installed")
	}

	bad := &unreachableLLM{MockLLMService: mocks.NewMockLLMService()}
	if err := services.ValidateAndSetLLM(ctx, bad); err == nil {
		t.Fatal("expected error for failing ping")
	}
	if !bad.closed {
		t.Error("rejected service not closed")
	}
	if services.LLMService() != good {
		t.Error("previous service replaced by a failing one")
	}
}

func TestServicesClose(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory"))
	services.SetEmbeddingService(mocks.NewMockEmbeddingService())
	services.SetLLMService(mocks.NewMockLLMService())

	if err := services.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if services.EmbeddingService() != nil || services.LLMService() != nil {
		t.Error("services survive Close()")
	}
	if services.Config().CanIngest() || services.Config().CanAnswer() {
		t.Error("availability flags survive Close()")
	}
}
