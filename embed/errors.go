package embed

import "errors"

var (
	// ErrEmbedderRequired indicates a Generator was constructed without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidDimension indicates the configured vector dimension is not positive.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrCountMismatch indicates the embedding service returned a different
	// number of vectors than texts submitted.
	ErrCountMismatch = errors.New("embedding count mismatch")
)
