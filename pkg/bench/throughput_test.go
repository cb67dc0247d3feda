// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/vectorbench/pkg/backend"
)

func TestThroughput_ZeroErrorStub(t *testing.T) {
	fb := newFakeBackend()
	cfg := ThroughputConfig{
		Namespaces:   []NamespaceSpec{{Name: "docs", Dimension: 4}},
		TotalQueries: 100,
		Concurrency:  10,
		TopK:         5,
		Seed:         1,
	}
	o, err := NewThroughputOrchestrator(fb, cfg, quietLogger())
	require.NoError(t, err)
	o.progress = newProgressLine(io.Discard)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)

	s := result.Summaries[0]
	assert.Equal(t, 100, s.Operations)
	assert.Equal(t, 0, s.Errors)
	assert.Len(t, result.RawMeasurements, 100)
	require.Positive(t, s.DurationSeconds)
	assert.InDelta(t, 100.0/s.DurationSeconds, s.QPS, s.QPS*0.01,
		"qps is successes over wall clock")
}

func TestThroughput_ErrorsExcludedFromQPS(t *testing.T) {
	fb := newFakeBackend()
	ns := fb.namespace("docs")
	// probe and the first half of the measured calls pass, the rest fail
	ns.queryErr = &backend.StatusError{Code: 503, Message: "overloaded"}
	ns.failAfter = 1 + 20

	cfg := ThroughputConfig{
		Namespaces:   []NamespaceSpec{{Name: "docs", Dimension: 4}},
		TotalQueries: 40,
		Concurrency:  4,
		TopK:         3,
		Seed:         1,
	}
	o, err := NewThroughputOrchestrator(fb, cfg, quietLogger())
	require.NoError(t, err)
	o.progress = newProgressLine(io.Discard)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)

	s := result.Summaries[0]
	assert.Equal(t, 20, s.Errors)
	require.NotNil(t, s.Latency)
	require.Positive(t, s.DurationSeconds)
	assert.InDelta(t, 20.0/s.DurationSeconds, s.QPS, s.QPS*0.05)
}

func TestThroughput_SortedDescendingByQPS(t *testing.T) {
	fb := newFakeBackend()
	cfg := ThroughputConfig{
		Namespaces: []NamespaceSpec{
			{Name: "a", Dimension: 4},
			{Name: "b", Dimension: 4},
		},
		TotalQueries: 30,
		Concurrency:  3,
		TopK:         1,
		Seed:         1,
	}
	o, err := NewThroughputOrchestrator(fb, cfg, quietLogger())
	require.NoError(t, err)
	o.progress = newProgressLine(io.Discard)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Summaries, 2)
	assert.GreaterOrEqual(t, result.Summaries[0].QPS, result.Summaries[1].QPS)
}

func TestThroughput_ProbeFailureSkipsNamespace(t *testing.T) {
	fb := newFakeBackend()
	fb.namespace("gone").queryErr = backend.ErrNotFound

	cfg := ThroughputConfig{
		Namespaces: []NamespaceSpec{
			{Name: "gone", Dimension: 4},
			{Name: "docs", Dimension: 4},
		},
		TotalQueries: 10,
		Concurrency:  2,
		TopK:         1,
		Seed:         1,
	}
	o, err := NewThroughputOrchestrator(fb, cfg, quietLogger())
	require.NoError(t, err)
	o.progress = newProgressLine(io.Discard)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, "docs", result.Summaries[0].Namespace)
}

func TestThroughput_InvalidConfig(t *testing.T) {
	fb := newFakeBackend()
	_, err := NewThroughputOrchestrator(fb, ThroughputConfig{
		Namespaces:   []NamespaceSpec{{Name: "a", Dimension: 2}},
		TotalQueries: 10,
		TopK:         1,
	}, quietLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig, "zero concurrency rejected")
}
