package domain

import "errors"

var (
	// ErrCollectionNotFound signals a query or upsert against an unknown collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSchema signals an invalid schema or request shape.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDimensionMismatch signals a document vector that does not match the collection dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrKeywordSearchNotSupported signals a keyword or hybrid query against a
	// backend without text search support.
	ErrKeywordSearchNotSupported = errors.New("keyword search not supported by backend")

	// ErrEmbeddingUnavailable signals that the embedding provider could not be invoked.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")

	// ErrGenerationFailed signals a text-generation call failure.
	// Recovered into results-only responses, never surfaced as a hard error.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrAccessDenied signals missing credentials or permissions on the generation provider.
	ErrAccessDenied = errors.New("access denied")
	// ErrModelNotAvailable signals that the requested generation model is not served.
	ErrModelNotAvailable = errors.New("model not available")
)
