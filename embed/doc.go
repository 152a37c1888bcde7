// Package embed generates embedding vectors for text segments. It wraps an
// ai.Embedder with batching, transient-failure retry, inter-batch pacing,
// and a fixed-dimension contract shared with the vector index.
package embed
