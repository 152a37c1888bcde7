// Package record defines the providers that supply entity records and
// source text to the pipeline. Backends live in subpackages: rest for an
// HTTP API, sqlite for a relational extract, file for a directory of
// plain-text documents.
package record
