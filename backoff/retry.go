// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package backoff

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Policy controls how Retry spaces its attempts.
type Policy struct {
	// MaxAttempts is the total number of attempts (must be > 0).
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles on
	// each subsequent retry.
	BaseDelay time.Duration

	// MaxDelay bounds the computed delay. Zero means no bound.
	MaxDelay time.Duration

	// Retryable decides whether an error is worth retrying.
	// Nil means every error is retried.
	Retryable func(error) bool
}

// DefaultPolicy returns a policy suitable for bulk remote calls:
// 3 attempts, 1s base delay, 30s cap, transient errors only.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Retryable:   IsTransient,
	}
}

// Retry runs operation with exponential backoff and random jitter.
// Errors the policy classifies as non-retryable propagate immediately;
// exhausting the attempt budget returns the last error. The sleep between
// attempts blocks the calling goroutine and honors context cancellation.
func Retry(ctx context.Context, operation func() error, policy Policy) error {
	if policy.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			slog.Debug("operation failed with non-retryable error", "error", lastErr)
			return lastErr
		}

		slog.Debug("operation failed, will retry",
			"attempt", attempt, "maxAttempts", policy.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == policy.MaxAttempts {
			break
		}

		delay := jitteredDelay(policy.BaseDelay, policy.MaxDelay, attempt)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return lastErr
}

// jitteredDelay computes baseDelay * 2^(attempt-1), caps it at maxDelay,
// then spreads it uniformly over [delay/2, delay) so concurrent workers
// retrying the same dependency don't stampede in lockstep.
func jitteredDelay(baseDelay, maxDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if maxDelay > 0 && delay >= maxDelay {
			delay = maxDelay
			break
		}
	}
	if delay <= 0 {
		return 0
	}
	half := delay / 2
	return half + rand.N(delay-half+1)
}
