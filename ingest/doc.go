// Package ingest orchestrates the pipeline end to end: fetch source text
// and entity records, chunk, enrich, embed, and store, with per-entity
// outcome reporting and pooled batch processing.
package ingest
