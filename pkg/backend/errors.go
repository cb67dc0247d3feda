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
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound indicates an absent namespace or record. Orchestrators
	// treat it as a skip with a logged reason, never a crash.
	ErrNotFound = errors.New("backend: resource not found")

	// ErrTransient marks failures worth retrying (HTTP 5xx, 429).
	ErrTransient = errors.New("backend: transient error")

	// ErrPermanent marks failures that retrying cannot fix (other 4xx,
	// schema and validation errors).
	ErrPermanent = errors.New("backend: permanent error")

	// ErrUnknownKind is returned by Open for a kind outside the closed
	// variant set.
	ErrUnknownKind = errors.New("backend: unknown backend kind")

	// ErrDimensionMismatch indicates a vector whose length does not match
	// the namespace's configured dimensionality.
	ErrDimensionMismatch = errors.New("backend: vector dimension mismatch")
)

// StatusError is a transport-level failure carrying the HTTP status code
// and an optional server-provided retry-after hint.
//
// It unwraps to ErrTransient for 5xx/429 and ErrPermanent otherwise, so
// errors.Is classification and retry.RetryableStatus agree on what is
// worth retrying.
type StatusError struct {
	// Code is the HTTP status code.
	Code int

	// Message is the backend's error text.
	Message string

	// RetryAfter is the server's requested delay before retrying, if the
	// response carried one. Zero means no hint.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Code)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Code, e.Message)
}

// HTTPStatus returns the status code. Consumed by the retry classifier.
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// RetryAfterHint returns the server-provided retry delay, or zero.
func (e *StatusError) RetryAfterHint() time.Duration {
	return e.RetryAfter
}

// Unwrap maps the status code onto the error taxonomy.
func (e *StatusError) Unwrap() error {
	if e.Code == 404 {
		return ErrNotFound
	}
	if e.Code >= 500 || e.Code == 429 {
		return ErrTransient
	}
	return ErrPermanent
}

// IsTransient reports whether err should be absorbed by the retry layer.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsNotFound reports whether err indicates an absent namespace or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Classify returns a short stable label for an error, recorded in the
// error_kind field of failed measurements.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrPermanent):
		return "permanent"
	default:
		return "unknown"
	}
}
