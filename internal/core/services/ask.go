package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driving"
)

// Ensure askService implements AskService
var _ driving.AskService = (*askService)(nil)

// askService is the per-request composition of retrieval and answering.
// No state is retained between calls; multi-turn context, if a product
// needs it, is layered outside by folding prior turns into the question.
type askService struct {
	retrieval driving.RetrievalService
	answers   driving.AnswerService
	opts      domain.RetrieveOptions
}

// NewAskService creates a new AskService with the configured retrieval
// parameters
func NewAskService(retrieval driving.RetrievalService, answers driving.AnswerService, opts domain.RetrieveOptions) driving.AskService {
	defaults := domain.DefaultRetrieveOptions()
	if opts.K <= 0 {
		opts.K = defaults.K
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = defaults.MinSimilarity
	}
	return &askService{
		retrieval: retrieval,
		answers:   answers,
		opts:      opts,
	}
}

// Ask answers a staff question grounded in the indexed regulations
func (s *askService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required: %w", domain.ErrInvalidInput)
	}

	retrieved, err := s.retrieval.Retrieve(ctx, question, s.opts)
	if err != nil {
		return nil, err
	}

	return s.answers.Answer(ctx, question, retrieved)
}
