package domain

import "time"

// RetrieveOptions configures a retrieval request
type RetrieveOptions struct {
	// K is the maximum number of chunks to return
	K int `json:"k"`

	// MinSimilarity drops results scoring below this cosine threshold.
	// Scores range over [-1, 1]; an empty result is a valid outcome.
	MinSimilarity float64 `json:"min_similarity"`
}

// DefaultRetrieveOptions returns sensible defaults
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		K:             5,
		MinSimilarity: 0.25,
	}
}

// RankedChunk pairs a chunk with its similarity score against the question
type RankedChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is the ranked outcome of a retrieval, ordered by
// descending score. Ties break by chunk index then document ID so that
// identical inputs always produce identical orderings.
type RetrievalResult struct {
	Question string         `json:"question"`
	Results  []*RankedChunk `json:"results"`
	Took     time.Duration  `json:"took"`
}

// Empty reports whether retrieval produced no usable context
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Results) == 0
}

// ChunkIDs returns the IDs of the retrieved chunks in rank order
func (r *RetrievalResult) ChunkIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.Results))
	for i, rc := range r.Results {
		ids[i] = rc.Chunk.ID
	}
	return ids
}

// Answer is the outcome of a grounded question. Grounded is false when the
// referral fallback fired because no relevant material was retrieved.
type Answer struct {
	Text           string   `json:"text"`
	GroundedChunks []string `json:"grounded_chunks,omitempty"`
	Grounded       bool     `json:"grounded"`
}
