// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusErr is a minimal transport error for tests.
type statusErr struct {
	code       int
	retryAfter time.Duration
}

func (e *statusErr) Error() string                 { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) HTTPStatus() int               { return e.code }
func (e *statusErr) RetryAfterHint() time.Duration { return e.retryAfter }

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	policy := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}

	var delays []time.Duration
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		delays = append(delays, delay)
	}

	calls := 0
	got, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", &statusErr{code: 503}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	// Two suspensions: base, then 2*base.
	require.Len(t, delays, 2)
	assert.Equal(t, time.Millisecond, delays[0])
	assert.Equal(t, 2*time.Millisecond, delays[1])
}

func TestDo_NonRetryablePropagatesImmediately(t *testing.T) {
	policy := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, &statusErr{code: 404}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "404 must not be retried")

	var se *statusErr
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 404, se.code)
}

func TestDo_ExhaustedRetriesReturnLastError(t *testing.T) {
	policy := Policy{MaxRetries: 2, BaseDelay: time.Millisecond}

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, &statusErr{code: 500}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestDo_RetryAfterHintOverridesUpward(t *testing.T) {
	policy := Policy{MaxRetries: 1, BaseDelay: time.Millisecond}

	var delays []time.Duration
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		delays = append(delays, delay)
	}

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &statusErr{code: 429, retryAfter: 5 * time.Millisecond}
		}
		return 1, nil
	})

	require.NoError(t, err)
	require.Len(t, delays, 1)
	assert.Equal(t, 5*time.Millisecond, delays[0], "hint larger than computed delay wins")
}

func TestDo_RetryAfterHintNeverShortensDelay(t *testing.T) {
	policy := Policy{MaxRetries: 1, BaseDelay: 10 * time.Millisecond}

	var delays []time.Duration
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		delays = append(delays, delay)
	}

	calls := 0
	_, _ = Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &statusErr{code: 503, retryAfter: time.Millisecond}
		}
		return 1, nil
	})

	require.Len(t, delays, 1)
	assert.Equal(t, 10*time.Millisecond, delays[0])
}

func TestDo_ZeroRetriesAttemptsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(ctx context.Context) (int, error) {
		calls++
		return 0, &statusErr{code: 503}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := Policy{MaxRetries: 1, BaseDelay: time.Minute}
	policy.OnRetry = func(int, time.Duration, error) { cancel() }

	_, err := Do(ctx, policy, func(ctx context.Context) (int, error) {
		return 0, &statusErr{code: 503}
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "500 is retryable", err: &statusErr{code: 500}, want: true},
		{name: "503 is retryable", err: &statusErr{code: 503}, want: true},
		{name: "429 is retryable", err: &statusErr{code: 429}, want: true},
		{name: "404 is not", err: &statusErr{code: 404}, want: false},
		{name: "400 is not", err: &statusErr{code: 400}, want: false},
		{name: "wrapped status is unwrapped", err: fmt.Errorf("querying: %w", &statusErr{code: 502}), want: true},
		{name: "plain error is not", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryableStatus(tt.err))
		})
	}
}
