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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/vectorbench/pkg/backend"
)

func TestResultWrite_ExplicitPath(t *testing.T) {
	r := newResult("latency", backend.KindMemory, nil)
	r.Summaries = []ConfigSummary{{Namespace: "docs", Operations: 5}}

	path := filepath.Join(t.TempDir(), "out.json")
	written, err := r.Write(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Result
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, r.Metadata.RunID, loaded.Metadata.RunID)
	require.Len(t, loaded.Summaries, 1)
	assert.Equal(t, "docs", loaded.Summaries[0].Namespace)
}

func TestResultWrite_DefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())

	r := newResult("recall", backend.KindBadger, nil)
	r.Metadata.Timestamp = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	written, err := r.Write("")
	require.NoError(t, err)
	assert.Equal(t, "vectorbench_recall_badger_20250601-123000.json", written)

	_, err = os.Stat(written)
	assert.NoError(t, err)
}

func TestResultWrite_DefaultPathDistinctPerBenchmark(t *testing.T) {
	t.Chdir(t.TempDir())

	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	first := newResult("latency", backend.KindMemory, nil)
	first.Metadata.Timestamp = ts
	second := newResult("throughput", backend.KindMemory, nil)
	second.Metadata.Timestamp = ts

	p1, err := first.Write("")
	require.NoError(t, err)
	p2, err := second.Write("")
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2, "runs in the same second must not collide")
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "docs:10", configKey("docs", 10))
}

func TestWriteReport_Recall(t *testing.T) {
	r := newResult("recall", backend.KindBadger, nil)
	r.Summaries = []ConfigSummary{{
		Namespace:  "docs",
		TopK:       10,
		Operations: 3,
		Recall: &RecallSummary{
			Mean: 0.95, Std: 0.01, Median: 0.95,
			Min: 0.94, Max: 0.96,
			CI95Low: 0.93, CI95High: 0.97,
			MeanANNCount: 40, MeanExhaustiveCount: 200,
			MeanLatencyMS: 12.5,
		},
	}}

	var sb strings.Builder
	WriteReport(&sb, r)
	out := sb.String()
	assert.Contains(t, out, "recall benchmark on badger")
	assert.Contains(t, out, "docs")
	assert.Contains(t, out, "0.9500")
	assert.Contains(t, out, "TOP_K")
	assert.NotContains(t, out, string(rune(0x2014)), "report output stays plain ASCII")
}
