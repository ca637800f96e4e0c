package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates a document produced no indexable chunks.
	// Callers should discard or fix the document.
	ErrEmptyDocument = errors.New("document has no indexable content")

	// ErrEmbeddingService indicates the embedding service failed or is not
	// configured. Recoverable; no partial index writes occur.
	ErrEmbeddingService = errors.New("embedding service unavailable")

	// ErrGenerationService indicates the language model call failed.
	// Distinct from the referral fallback, which is not an error.
	ErrGenerationService = errors.New("generation service unavailable")

	// ErrStorage indicates the persistent store failed. The previous chunk
	// set for a document is never left in a mixed state.
	ErrStorage = errors.New("storage unavailable")

	// ErrIngestInProgress indicates an ingestion is already running for the
	// same document
	ErrIngestInProgress = errors.New("ingestion already in progress")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")
)
