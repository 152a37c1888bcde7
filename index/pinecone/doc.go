// Package pinecone implements index.Client against the Pinecone REST API.
package pinecone
