package ingest

import "errors"

var (
	// ErrTextProviderRequired indicates no source text provider was supplied.
	ErrTextProviderRequired = errors.New("source text provider is required")

	// ErrChunkerRequired indicates no chunker was supplied.
	ErrChunkerRequired = errors.New("chunker is required")

	// ErrGeneratorRequired indicates no embedding generator was supplied.
	ErrGeneratorRequired = errors.New("embedding generator is required")

	// ErrWriterRequired indicates no index writer was supplied.
	ErrWriterRequired = errors.New("index writer is required")

	// ErrIndexRequiredForSkip indicates skip-unchanged was enabled without
	// an index client to check fingerprints against.
	ErrIndexRequiredForSkip = errors.New("skip-unchanged requires an index client")

	// ErrNoSegments indicates non-empty source text produced no segments.
	ErrNoSegments = errors.New("text produced no segments")
)
