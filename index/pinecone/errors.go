package pinecone

import "errors"

var (
	// ErrHostRequired indicates no index host was configured.
	ErrHostRequired = errors.New("pinecone host is required")

	// ErrAPIKeyRequired indicates no API key was configured.
	ErrAPIKeyRequired = errors.New("pinecone api key is required")
)
