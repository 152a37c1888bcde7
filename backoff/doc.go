// Package backoff provides an explicit retry wrapper with exponential
// backoff, random jitter, and transient/permanent error classification.
// Every retrying call site in the pipeline goes through Retry; there is
// no decorator magic.
package backoff
