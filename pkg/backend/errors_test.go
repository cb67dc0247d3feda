// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusError_Unwrap(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		sentinel error
	}{
		{"404 maps to not found", 404, ErrNotFound},
		{"500 maps to transient", 500, ErrTransient},
		{"503 maps to transient", 503, ErrTransient},
		{"429 maps to transient", 429, ErrTransient},
		{"400 maps to permanent", 400, ErrPermanent},
		{"401 maps to permanent", 401, ErrPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &StatusError{Code: tt.code, Message: "boom"}
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestStatusError_Carriers(t *testing.T) {
	err := &StatusError{Code: 503, Message: "overloaded", RetryAfter: 2 * time.Second}
	assert.Equal(t, 503, err.HTTPStatus())
	assert.Equal(t, 2*time.Second, err.RetryAfterHint())

	// errors.As digs through wrapping.
	wrapped := fmt.Errorf("query failed: %w", err)
	var se *StatusError
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, 503, se.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found sentinel", ErrNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("x: %w", ErrNotFound), "not_found"},
		{"transient sentinel", ErrTransient, "transient"},
		{"transient status", &StatusError{Code: 502}, "transient"},
		{"permanent status", &StatusError{Code: 422}, "permanent"},
		{"plain error", errors.New("weird"), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsTransient(&StatusError{Code: 500}))
	assert.False(t, IsTransient(&StatusError{Code: 404}))
	assert.True(t, IsNotFound(fmt.Errorf("fetch: %w", ErrNotFound)))
	assert.False(t, IsNotFound(ErrTransient))
}
