package driven

import "github.com/careworks-oss/regulation-core/internal/core/domain"

// AIServiceFactory creates AI services from settings.
// Returns nil services (no error) when settings are absent or incomplete.
type AIServiceFactory interface {
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)
	CreateLLMService(settings *domain.LLMSettings) (LLMService, error)
}
