// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retry wraps a single remote call with classification-based retry
// and exponential backoff.
//
// The default classifier retries transport-level failures with HTTP status
// >= 500 or 429; everything else propagates immediately. Backoff is
// deterministic (base * 2^(attempt-1)) with no jitter: concurrent sweeps
// sharing a backend can retry in lockstep, which is an accepted limitation
// of the benchmarking use case rather than something to paper over here.
package retry

import (
	"context"
	"errors"
	"time"
)

// httpStatusCarrier is implemented by errors that carry a transport status
// code, such as backend.StatusError.
type httpStatusCarrier interface {
	HTTPStatus() int
}

// retryAfterCarrier is implemented by errors that carry an explicit
// server-provided retry delay hint.
type retryAfterCarrier interface {
	RetryAfterHint() time.Duration
}

// Policy configures retry behavior for one logical call.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Zero means the operation is attempted exactly once.
	MaxRetries int

	// BaseDelay is the backoff for the first retry. The n-th retry waits
	// BaseDelay * 2^(n-1).
	BaseDelay time.Duration

	// IsRetryable classifies errors. Nil selects RetryableStatus.
	IsRetryable func(error) bool

	// OnRetry, if non-nil, is invoked before each backoff suspension with
	// the upcoming retry number (1-based), the delay about to be slept,
	// and the error that triggered it. Used for progress reporting; it has
	// no effect on the retry decision.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns the policy used by the orchestrators: three retries
// starting at 500ms, retrying only transient transport failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  3,
		BaseDelay:   500 * time.Millisecond,
		IsRetryable: RetryableStatus,
	}
}

// RetryableStatus reports whether err carries an HTTP status that is worth
// retrying: any 5xx, or 429 (rate limited).
func RetryableStatus(err error) bool {
	var sc httpStatusCarrier
	if !errors.As(err, &sc) {
		return false
	}
	code := sc.HTTPStatus()
	return code >= 500 || code == 429
}

// Do executes op, retrying transient failures per the policy.
//
// Description:
//
//	Invokes op; on failure, classifies the error via policy.IsRetryable.
//	Retryable errors suspend for BaseDelay * 2^(attempt-1) and try again,
//	up to MaxRetries. If the error carries a retry-after hint larger than
//	the computed delay, the hint wins. Non-retryable errors and exhausted
//	retries propagate the last error unchanged, so callers can still
//	classify it.
//
//	Retries never multiply observations: callers record one measurement
//	per logical call regardless of how many attempts it took.
//
// Inputs:
//   - ctx: Passed through to op and honored during backoff suspension.
//   - policy: Retry configuration.
//   - op: The remote call. Invoked at least once.
//
// Outputs:
//   - T: The value from the first successful attempt.
//   - error: The last attempt's error if all attempts failed.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	isRetryable := policy.IsRetryable
	if isRetryable == nil {
		isRetryable = RetryableStatus
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt >= policy.MaxRetries || !isRetryable(err) {
			break
		}

		retryNum := attempt + 1
		delay := policy.BaseDelay << uint(attempt)

		// An explicit server hint overrides the computed delay, but only
		// upward: the backend knows better than the backoff schedule when
		// it will accept traffic again.
		var ra retryAfterCarrier
		if errors.As(err, &ra) {
			if hint := ra.RetryAfterHint(); hint > delay {
				delay = hint
			}
		}

		if policy.OnRetry != nil {
			policy.OnRetry(retryNum, delay, err)
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	var zero T
	return zero, lastErr
}
