// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates benchmark scenario files.
//
// A scenario is a YAML document selecting the backend under test, the
// namespaces to exercise, and per-benchmark parameters. Validation
// happens at load time so a bad scenario fails before any network call.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/vectorbench/pkg/backend"
	"github.com/AleutianAI/vectorbench/pkg/bench"
	"github.com/AleutianAI/vectorbench/pkg/retry"
)

var scenarioValidate = validator.New()

// BackendSection selects and configures the backend under test.
type BackendSection struct {
	Kind        string `yaml:"kind" validate:"required,oneof=weaviate badger memory"`
	WeaviateURL string `yaml:"weaviate_url" validate:"omitempty,url"`
	DataDir     string `yaml:"data_dir"`
	Seed        int64  `yaml:"seed"`
}

// NamespaceSection names one namespace and its vector dimensionality.
type NamespaceSection struct {
	Name      string `yaml:"name" validate:"required"`
	Dimension int    `yaml:"dimension" validate:"required,gt=0"`
}

// LatencySection parameterizes the latency benchmark.
type LatencySection struct {
	NumQueries       int `yaml:"num_queries" validate:"gte=0"`
	WarmupQueries    int `yaml:"warmup_queries" validate:"gte=0"`
	TopK             int `yaml:"top_k" validate:"gte=0"`
	InterCallDelayMS int `yaml:"inter_call_delay_ms" validate:"gte=0"`
}

// ThroughputSection parameterizes the throughput benchmark.
type ThroughputSection struct {
	TotalQueries  int `yaml:"total_queries" validate:"gte=0"`
	WarmupQueries int `yaml:"warmup_queries" validate:"gte=0"`
	Concurrency   int `yaml:"concurrency" validate:"gte=0"`
	TopK          int `yaml:"top_k" validate:"gte=0"`
}

// UpsertSection parameterizes the write-throughput benchmark.
type UpsertSection struct {
	TotalRecords int `yaml:"total_records" validate:"gte=0"`
	BatchSize    int `yaml:"batch_size" validate:"gte=0"`
}

// RecallSection parameterizes the recall sweep.
type RecallSection struct {
	TopKValues       []int  `yaml:"top_k_values" validate:"omitempty,dive,gt=0"`
	Runs             int    `yaml:"runs" validate:"gte=0"`
	QueriesPerRun    int    `yaml:"queries_per_run" validate:"gte=0"`
	InterCallDelayMS int    `yaml:"inter_call_delay_ms" validate:"gte=0"`
	CheckpointPath   string `yaml:"checkpoint_path"`
}

// RetrySection tunes transient-error handling for remote calls.
type RetrySection struct {
	MaxRetries  int `yaml:"max_retries" validate:"gte=0"`
	BaseDelayMS int `yaml:"base_delay_ms" validate:"gte=0"`
}

// Scenario is one complete benchmark scenario file.
type Scenario struct {
	Backend    BackendSection     `yaml:"backend" validate:"required"`
	Namespaces []NamespaceSection `yaml:"namespaces" validate:"required,min=1,dive"`
	Latency    LatencySection     `yaml:"latency"`
	Throughput ThroughputSection  `yaml:"throughput"`
	Upsert     UpsertSection      `yaml:"upsert"`
	Recall     RecallSection      `yaml:"recall"`
	Retry      RetrySection       `yaml:"retry"`
}

// Load reads, defaults, and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	s.EnsureDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the scenario against its struct tags.
func (s *Scenario) Validate() error {
	return scenarioValidate.Struct(s)
}

// EnsureDefaults fills optional sections so every benchmark has usable
// parameters even when its section is omitted from the file.
func (s *Scenario) EnsureDefaults() {
	if s.Latency.NumQueries == 0 {
		s.Latency.NumQueries = 100
	}
	if s.Latency.TopK == 0 {
		s.Latency.TopK = 10
	}
	if s.Latency.InterCallDelayMS == 0 {
		s.Latency.InterCallDelayMS = 10
	}
	if s.Throughput.TotalQueries == 0 {
		s.Throughput.TotalQueries = 1000
	}
	if s.Throughput.Concurrency == 0 {
		s.Throughput.Concurrency = 10
	}
	if s.Throughput.TopK == 0 {
		s.Throughput.TopK = 10
	}
	if s.Upsert.TotalRecords == 0 {
		s.Upsert.TotalRecords = 10000
	}
	if s.Upsert.BatchSize == 0 {
		s.Upsert.BatchSize = 200
	}
	if len(s.Recall.TopKValues) == 0 {
		s.Recall.TopKValues = []int{1, 10, 100}
	}
	if s.Recall.Runs == 0 {
		s.Recall.Runs = 5
	}
	if s.Recall.QueriesPerRun == 0 {
		s.Recall.QueriesPerRun = 20
	}
	if s.Recall.CheckpointPath == "" {
		s.Recall.CheckpointPath = "vectorbench_recall.checkpoint.json"
	}
	if s.Retry.MaxRetries == 0 {
		s.Retry.MaxRetries = 3
	}
	if s.Retry.BaseDelayMS == 0 {
		s.Retry.BaseDelayMS = 500
	}
}

// BackendConfig translates the backend section for the factory.
func (s *Scenario) BackendConfig(logger *slog.Logger) backend.Config {
	dims := make(map[string]int, len(s.Namespaces))
	for _, ns := range s.Namespaces {
		dims[ns.Name] = ns.Dimension
	}
	return backend.Config{
		Kind:        backend.Kind(s.Backend.Kind),
		WeaviateURL: s.Backend.WeaviateURL,
		DataDir:     s.Backend.DataDir,
		Dimensions:  dims,
		Seed:        s.Backend.Seed,
		Logger:      logger,
	}
}

func (s *Scenario) namespaceSpecs() []bench.NamespaceSpec {
	specs := make([]bench.NamespaceSpec, 0, len(s.Namespaces))
	for _, ns := range s.Namespaces {
		specs = append(specs, bench.NamespaceSpec{Name: ns.Name, Dimension: ns.Dimension})
	}
	return specs
}

// LatencyConfig translates the latency section for its orchestrator.
func (s *Scenario) LatencyConfig() bench.LatencyConfig {
	return bench.LatencyConfig{
		Namespaces:     s.namespaceSpecs(),
		NumQueries:     s.Latency.NumQueries,
		WarmupQueries:  s.Latency.WarmupQueries,
		TopK:           s.Latency.TopK,
		InterCallDelay: time.Duration(s.Latency.InterCallDelayMS) * time.Millisecond,
		Seed:           s.Backend.Seed,
	}
}

// ThroughputConfig translates the throughput section for its orchestrator.
func (s *Scenario) ThroughputConfig() bench.ThroughputConfig {
	return bench.ThroughputConfig{
		Namespaces:    s.namespaceSpecs(),
		TotalQueries:  s.Throughput.TotalQueries,
		WarmupQueries: s.Throughput.WarmupQueries,
		Concurrency:   s.Throughput.Concurrency,
		TopK:          s.Throughput.TopK,
		Seed:          s.Backend.Seed,
	}
}

// UpsertConfig translates the upsert section for its orchestrator.
func (s *Scenario) UpsertConfig() bench.UpsertConfig {
	return bench.UpsertConfig{
		Namespaces:   s.namespaceSpecs(),
		TotalRecords: s.Upsert.TotalRecords,
		BatchSize:    s.Upsert.BatchSize,
		Seed:         s.Backend.Seed,
		Retry:        s.RetryPolicy(),
	}
}

// RecallConfig translates the recall section for its orchestrator.
func (s *Scenario) RecallConfig() bench.RecallConfig {
	names := make([]string, 0, len(s.Namespaces))
	for _, ns := range s.Namespaces {
		names = append(names, ns.Name)
	}
	return bench.RecallConfig{
		Namespaces:     names,
		TopKValues:     s.Recall.TopKValues,
		Runs:           s.Recall.Runs,
		QueriesPerRun:  s.Recall.QueriesPerRun,
		InterCallDelay: time.Duration(s.Recall.InterCallDelayMS) * time.Millisecond,
		Retry:          s.RetryPolicy(),
	}
}

// RetryPolicy translates the retry section.
func (s *Scenario) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:  s.Retry.MaxRetries,
		BaseDelay:   time.Duration(s.Retry.BaseDelayMS) * time.Millisecond,
		IsRetryable: retry.RetryableStatus,
	}
}
