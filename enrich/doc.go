// Package enrich merges entity attributes, including nested building
// sub-records, into the flat, null-free key/value maps the vector index
// accepts as metadata.
package enrich
