// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bench contains the four benchmark orchestrators (latency,
// throughput, upsert, recall) and the result artifact they produce.
//
// Each orchestrator composes the leaf packages (stats, retry, pool,
// checkpoint) around an injected backend and yields one Result per run.
package bench

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/vectorbench/pkg/backend"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidConfig indicates a constructor rejected its parameters.
	// Raised before any network call is made.
	ErrInvalidConfig = errors.New("invalid benchmark configuration")

	// ErrMissingCapability indicates the selected backend does not
	// support an operation the benchmark requires.
	ErrMissingCapability = errors.New("backend missing required capability")
)

// -----------------------------------------------------------------------------
// Core types
// -----------------------------------------------------------------------------

// NamespaceSpec names a namespace under test and its vector dimensionality.
type NamespaceSpec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
}

// Measurement records one observed call outcome. Never mutated after
// creation.
type Measurement struct {
	Namespace string  `json:"namespace"`
	LatencyMS float64 `json:"latency_ms"`
	Success   bool    `json:"success"`
	ErrorKind string  `json:"error_kind,omitempty"`
}

// LatencySummary is the statistical rollup of successful call latencies.
type LatencySummary struct {
	MeanMS   float64 `json:"mean_ms"`
	StdMS    float64 `json:"std_ms,omitempty"`
	MedianMS float64 `json:"median_ms"`
	P95MS    float64 `json:"p95_ms"`
	MinMS    float64 `json:"min_ms"`
	MaxMS    float64 `json:"max_ms"`
}

// RecallSummary rolls up repeated recall-probe runs for one
// (namespace, topK) pair.
type RecallSummary struct {
	Mean                float64 `json:"mean"`
	Std                 float64 `json:"std"`
	Median              float64 `json:"median"`
	Min                 float64 `json:"min"`
	Max                 float64 `json:"max"`
	CI95Low             float64 `json:"ci95_low"`
	CI95High            float64 `json:"ci95_high"`
	MeanANNCount        float64 `json:"mean_ann_count"`
	MeanExhaustiveCount float64 `json:"mean_exhaustive_count"`
	MeanLatencyMS       float64 `json:"mean_latency_ms"`
}

// ConfigSummary is the rollup for one benchmark configuration. Which
// fields are populated depends on the benchmark that produced it.
type ConfigSummary struct {
	Namespace        string          `json:"namespace"`
	TopK             int             `json:"top_k,omitempty"`
	Operations       int             `json:"operations,omitempty"`
	Errors           int             `json:"errors"`
	Latency          *LatencySummary `json:"latency,omitempty"`
	Recall           *RecallSummary  `json:"recall,omitempty"`
	QPS              float64         `json:"qps,omitempty"`
	RecordsPerSecond float64         `json:"records_per_second,omitempty"`
	Batches          int             `json:"batches,omitempty"`
	BatchP95MS       float64         `json:"batch_p95_ms,omitempty"`
	DurationSeconds  float64         `json:"duration_seconds,omitempty"`
}

// Metadata identifies a single benchmark run.
type Metadata struct {
	RunID     string    `json:"run_id"`
	Benchmark string    `json:"benchmark"`
	Backend   string    `json:"backend"`
	Timestamp time.Time `json:"timestamp"`
	Config    any       `json:"config,omitempty"`
}

// Result is the final artifact of a benchmark run, written exactly once.
type Result struct {
	Metadata        Metadata        `json:"metadata"`
	RawMeasurements []Measurement   `json:"raw_measurements"`
	Summaries       []ConfigSummary `json:"summaries"`
}

func newResult(benchmark string, kind backend.Kind, cfg any) *Result {
	return &Result{
		Metadata: Metadata{
			RunID:     uuid.NewString(),
			Benchmark: benchmark,
			Backend:   string(kind),
			Timestamp: time.Now().UTC(),
			Config:    cfg,
		},
	}
}

// Write serializes the result to path as indented JSON. An empty path
// selects a timestamped default in the working directory. Returns the
// path actually written.
func (r *Result) Write(path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("vectorbench_%s_%s_%s.json",
			r.Metadata.Benchmark,
			r.Metadata.Backend,
			r.Metadata.Timestamp.Format("20060102-150405"))
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}

// -----------------------------------------------------------------------------
// Shared helpers
// -----------------------------------------------------------------------------

// configKey identifies one (namespace, topK) pair within a sweep.
func configKey(namespace string, topK int) string {
	return fmt.Sprintf("%s:%d", namespace, topK)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
