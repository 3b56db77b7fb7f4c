package domain

import "errors"

var (
	// ErrInvalidArgument signals a local precondition violation; never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals mixed embedding dimensionalities,
	// a fatal configuration error for the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrDocumentNotFound signals a missing document in the registry.
	ErrDocumentNotFound = errors.New("document not found")
)
