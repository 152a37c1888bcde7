package rest

import "errors"

// ErrBaseURLRequired indicates no records API base URL was configured.
var ErrBaseURLRequired = errors.New("records api base url is required")
