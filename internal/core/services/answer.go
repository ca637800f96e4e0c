package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driving"
	"github.com/careworks-oss/regulation-core/internal/runtime"
)

// Ensure answerService implements AnswerService
var _ driving.AnswerService = (*answerService)(nil)

// ReferralMessage is the canned response when no relevant regulation was
// retrieved. Returned with Grounded=false and without a model call.
const ReferralMessage = "I could not find a regulation covering this question. " +
	"Please contact the administration office for guidance."

const promptInstruction = "You are an assistant for staff of a service-provision organisation. " +
	"Answer the question using only the regulation excerpts below. " +
	"If the excerpts do not contain the answer, say that no governing regulation was found. " +
	"Cite the excerpt titles you relied on."

// answerService builds grounded prompts and invokes the language model.
// It never re-ranks or filters chunks; all grounding policy lives in the
// retriever's threshold and K parameters.
type answerService struct {
	services *runtime.Services
	logger   *slog.Logger
}

// NewAnswerService creates a new AnswerService
func NewAnswerService(services *runtime.Services, logger *slog.Logger) driving.AnswerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &answerService{
		services: services,
		logger:   logger,
	}
}

// Answer generates a grounded answer from retrieved context.
// An empty retrieval yields the referral fallback without calling the model.
func (s *answerService) Answer(ctx context.Context, question string, retrieved *domain.RetrievalResult) (*domain.Answer, error) {
	if retrieved.Empty() {
		s.logger.Info("no grounded context, returning referral", "question_len", len(question))
		return &domain.Answer{
			Text:     ReferralMessage,
			Grounded: false,
		}, nil
	}

	llm := s.services.LLMService()
	if llm == nil {
		return nil, fmt.Errorf("no language model configured: %w", domain.ErrGenerationService)
	}

	prompt := buildPrompt(question, retrieved)

	text, err := llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w: %v", domain.ErrGenerationService, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("language model returned empty response: %w", domain.ErrGenerationService)
	}

	return &domain.Answer{
		Text:           text,
		GroundedChunks: retrieved.ChunkIDs(),
		Grounded:       true,
	}, nil
}

// buildPrompt assembles the grounded prompt: instruction, labeled excerpts
// in descending-similarity order (models weight earlier context more
// heavily), then the question
func buildPrompt(question string, retrieved *domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString(promptInstruction)
	b.WriteString("\n\n")

	for i, rc := range retrieved.Results {
		chunk := rc.Chunk
		b.WriteString(fmt.Sprintf("[Excerpt %d] %s", i+1, chunk.Title))
		if chunk.Section != "" && chunk.Section != chunk.Title {
			b.WriteString(" / " + chunk.Section)
		}
		b.WriteString("\n")
		b.WriteString(chunk.Content)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
