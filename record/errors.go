package record

import "errors"

// ErrRecordNotFound indicates the provider has no record for the entity ID.
var ErrRecordNotFound = errors.New("entity record not found")
