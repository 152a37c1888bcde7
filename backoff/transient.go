package backoff

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Retryabler is implemented by errors that know their own retryability,
// such as HTTP status errors from the index client.
type Retryabler interface {
	Retryable() bool
}

// IsTransient classifies an error as worth retrying.
//
// Transient: rate-limit responses, request timeouts, connection errors.
// Permanent: authentication failures, malformed requests, quota errors,
// and anything else we cannot positively identify as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Canceled callers never want a retry.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryabler Retryabler
	if errors.As(err, &retryabler) {
		return retryabler.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// Remote SDK errors often arrive as opaque strings.
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit",
		"too many requests",
		"status code: 429",
		"status code: 500",
		"status code: 502",
		"status code: 503",
		"timeout",
		"connection reset",
		"unexpected eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
