// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package checkpoint persists the progress of a multi-configuration recall
// sweep so a multi-hour run can survive process termination.
//
// The store tracks which configuration keys (e.g. "namespace:top_k") have
// fully completed, together with the raw per-run samples recorded for them.
// Only fully completed configurations are ever marked: a configuration
// interrupted mid-repetition is re-run from repetition zero after restart.
//
// Corruption is never fatal. A checkpoint file that cannot be read or
// parsed is treated exactly like an absent one, because losing a resume
// point costs re-measurement time, not correctness.
//
// Concurrent writers to the same store path are unsupported; one sweep
// process per path.
package checkpoint

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// Run is one recorded recall-probe invocation, tagged with the
// configuration it belongs to so summaries can be rebuilt after a resume.
type Run struct {
	// ConfigKey identifies the (namespace, top_k) pair, e.g. "docs:10".
	ConfigKey string `json:"config_key"`

	// Namespace is the namespace the probe ran against.
	Namespace string `json:"namespace"`

	// TopK is the ANN result size used for the probe.
	TopK int `json:"top_k"`

	// Recall is the mean overlap fraction reported by the probe.
	Recall float64 `json:"recall"`

	// ANNCount is the mean number of ANN candidates evaluated.
	ANNCount float64 `json:"ann_count"`

	// ExhaustiveCount is the mean number of exhaustive candidates evaluated.
	ExhaustiveCount float64 `json:"exhaustive_count"`

	// LatencyMS is the wall-clock duration of the probe call.
	LatencyMS float64 `json:"latency_ms"`
}

// Checkpoint is the durable record of sweep progress.
type Checkpoint struct {
	// CompletedConfigs lists configuration keys whose repetitions have all
	// been recorded. Keys present here are never re-measured.
	CompletedConfigs []string `json:"completed_configs"`

	// RawRuns holds every recorded run, across all completed configurations.
	RawRuns []Run `json:"raw_runs"`
}

// Empty returns a checkpoint with no completed configurations.
func Empty() *Checkpoint {
	return &Checkpoint{}
}

// IsEmpty reports whether the checkpoint records no prior progress.
func (c *Checkpoint) IsEmpty() bool {
	return len(c.CompletedConfigs) == 0 && len(c.RawRuns) == 0
}

// Completed reports whether key has been marked complete.
func (c *Checkpoint) Completed(key string) bool {
	for _, k := range c.CompletedConfigs {
		if k == key {
			return true
		}
	}
	return false
}

// MarkCompleted records key as fully measured. Idempotent.
func (c *Checkpoint) MarkCompleted(key string) {
	if c.Completed(key) {
		return
	}
	c.CompletedConfigs = append(c.CompletedConfigs, key)
}

// Append adds runs to the accumulated raw measurements.
func (c *Checkpoint) Append(runs ...Run) {
	c.RawRuns = append(c.RawRuns, runs...)
}

// RunsFor returns the recorded runs for one configuration key, in the
// order they were appended.
func (c *Checkpoint) RunsFor(key string) []Run {
	var out []Run
	for _, r := range c.RawRuns {
		if r.ConfigKey == key {
			out = append(out, r)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

// Store reads and writes checkpoints at a fixed filesystem path.
//
// Thread Safety: Not safe for concurrent use; a sweep is single-threaded
// at the checkpoint layer by design.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store backed by the file at path.
//
// Inputs:
//   - path: Checkpoint file location. Parent directories are created on save.
//   - logger: Logger for corruption warnings. Nil selects slog.Default().
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted checkpoint.
//
// Description:
//
//	An absent file yields an empty checkpoint. So does an unreadable or
//	malformed one: corruption is logged and swallowed, never surfaced as
//	an error, because the worst case is redoing work.
//
// Outputs:
//   - *Checkpoint: Never nil.
func (s *Store) Load() *Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint unreadable, starting fresh",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
		return Empty()
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warn("checkpoint corrupt, starting fresh",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return Empty()
	}
	return &c
}

// Save overwrites the persisted checkpoint completely.
//
// Description:
//
//	Writes atomically via temp file + rename so an interrupted save leaves
//	the previous checkpoint intact rather than a truncated file.
//
// Outputs:
//   - error: Non-nil if the write or rename fails.
func (s *Store) Save(c *Checkpoint) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}

	success = true
	return nil
}

// Clear removes the persisted checkpoint. Called only after the full sweep
// completed successfully. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
