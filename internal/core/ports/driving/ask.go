package driving

import (
	"context"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
)

// RetrievalService ranks indexed chunks against a question
type RetrievalService interface {
	// Retrieve embeds the question and returns the top-K chunks by cosine
	// similarity, subject to the minimum-similarity threshold. The result
	// may be empty; retrieval never mutates the index.
	Retrieve(ctx context.Context, question string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error)
}

// AnswerService turns retrieved context into a grounded answer.
// All filtering policy lives in the retriever; this service never re-ranks
// or drops chunks itself.
type AnswerService interface {
	// Answer generates a grounded answer from the retrieval result.
	// An empty result yields the referral fallback without a model call.
	Answer(ctx context.Context, question string, retrieved *domain.RetrievalResult) (*domain.Answer, error)
}

// AskService is the per-request orchestration of retrieval and answering.
// Stateless: no conversational memory is kept between calls.
type AskService interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}
