package chunk

import "errors"

var (
	// ErrTokenizerRequired is returned when a tokenizer is not provided.
	ErrTokenizerRequired = errors.New("tokenizer required")

	// ErrInvalidMaxTokens is returned when maxTokens is <= 0.
	ErrInvalidMaxTokens = errors.New("maxTokens must be greater than 0")

	// ErrInvalidChunkSize is returned when a character chunk size is <= 0.
	ErrInvalidChunkSize = errors.New("chunkSize must be greater than 0")

	// ErrInvalidOverlap is returned when the overlap is negative or not
	// smaller than the chunk budget.
	ErrInvalidOverlap = errors.New("overlap must be >= 0 and smaller than the chunk budget")
)
