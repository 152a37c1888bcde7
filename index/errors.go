package index

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested vector ID does not exist.
	ErrNotFound = errors.New("vector not found")

	// ErrClientRequired indicates a Writer was constructed without a Client.
	ErrClientRequired = errors.New("index client is required")
)

// StatusError is an HTTP-level failure from a remote index service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("index service returned status code: %d: %s", e.Code, e.Message)
}

// Retryable reports whether the status indicates a transient condition.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case 408, 429:
		return true
	}
	return e.Code >= 500
}
