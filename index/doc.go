// Package index defines the vector index contract and the idempotent Writer
// that stores embedded segments under deterministic IDs. Backends live in
// subpackages: pinecone speaks to a managed service over REST, badger keeps
// a local embedded index.
package index
