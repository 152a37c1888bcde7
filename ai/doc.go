// Package ai defines the embedding service abstraction consumed by the
// ingestion pipeline, along with its configuration. Concrete providers live
// in subpackages: openai for OpenAI-compatible HTTP APIs, mock for tests.
package ai
