package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driving"
	"github.com/careworks-oss/regulation-core/internal/runtime"
)

// Ensure retrievalService implements RetrievalService
var _ driving.RetrievalService = (*retrievalService)(nil)

// retrievalService ranks the active chunk snapshot against questions.
// Pure read path: safe to run concurrently with other retrievals and
// never mutates the index.
type retrievalService struct {
	chunkStore driven.ChunkStore
	services   *runtime.Services
}

// NewRetrievalService creates a new RetrievalService.
// The embedding service is resolved per call via runtime.Services so the
// query embedding always comes from the model the index was built with.
func NewRetrievalService(chunkStore driven.ChunkStore, services *runtime.Services) driving.RetrievalService {
	return &retrievalService{
		chunkStore: chunkStore,
		services:   services,
	}
}

// Retrieve embeds the question, scores every indexed chunk by cosine
// similarity and returns the top-K above the threshold, strictly ordered
func (s *retrievalService) Retrieve(ctx context.Context, question string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error) {
	start := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required: %w", domain.ErrInvalidInput)
	}

	defaults := domain.DefaultRetrieveOptions()
	if opts.K <= 0 {
		opts.K = defaults.K
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = defaults.MinSimilarity
	}

	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		return nil, fmt.Errorf("no embedding service configured: %w", domain.ErrEmbeddingService)
	}

	queryEmbedding, err := embeddingService.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w: %v", domain.ErrEmbeddingService, err)
	}

	chunks, err := s.chunkStore.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunk snapshot: %w: %v", domain.ErrStorage, err)
	}

	ranked := make([]*domain.RankedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		ranked = append(ranked, &domain.RankedChunk{
			Chunk: chunk,
			Score: cosineSimilarity(queryEmbedding, chunk.Embedding),
		})
	}

	// Descending by score; ties break by chunk index then document ID so
	// identical inputs always produce identical orderings.
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.Index != b.Chunk.Index {
			return a.Chunk.Index < b.Chunk.Index
		}
		return a.Chunk.DocumentID < b.Chunk.DocumentID
	})

	results := make([]*domain.RankedChunk, 0, opts.K)
	for _, rc := range ranked {
		if rc.Score < opts.MinSimilarity {
			break
		}
		results = append(results, rc)
		if len(results) == opts.K {
			break
		}
	}

	return &domain.RetrievalResult{
		Question: question,
		Results:  results,
		Took:     time.Since(start),
	}, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
