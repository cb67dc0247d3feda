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
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/vectorbench/pkg/backend"
	"github.com/AleutianAI/vectorbench/pkg/retry"
	"github.com/AleutianAI/vectorbench/pkg/stats"
	"github.com/AleutianAI/vectorbench/pkg/vector"
)

// UpsertConfig parameterizes a write-throughput run.
type UpsertConfig struct {
	Namespaces   []NamespaceSpec `json:"namespaces"`
	TotalRecords int             `json:"total_records"`
	BatchSize    int             `json:"batch_size"`
	Seed         int64           `json:"seed,omitempty"`

	// Retry governs transient-error handling around each batch write.
	// Zero value selects the default policy.
	Retry retry.Policy `json:"-"`
}

func (c UpsertConfig) validate() error {
	if len(c.Namespaces) == 0 {
		return fmt.Errorf("%w: at least one namespace required", ErrInvalidConfig)
	}
	if c.TotalRecords <= 0 {
		return fmt.Errorf("%w: total_records must be positive", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalidConfig)
	}
	for _, ns := range c.Namespaces {
		if ns.Name == "" || ns.Dimension <= 0 {
			return fmt.Errorf("%w: namespace needs a name and positive dimension", ErrInvalidConfig)
		}
	}
	return nil
}

// UpsertOrchestrator measures write throughput with synthetic records.
//
// Description:
//
//	Generates unit-normalized random vectors of each namespace's
//	configured dimensionality plus fixed-pattern text, partitions them
//	into fixed-size batches, and writes the batches strictly
//	sequentially, timing each one. The first batch carries the
//	first-batch flag so the backend can perform schema or index setup.
//	Transient batch errors are retried; any other batch failure
//	terminates the whole run, with no checkpoint and no partial-result
//	recovery.
type UpsertOrchestrator struct {
	backend  backend.Backend
	cfg      UpsertConfig
	logger   *slog.Logger
	progress *progressLine
}

// NewUpsertOrchestrator validates cfg before any network activity.
func NewUpsertOrchestrator(b backend.Backend, cfg UpsertConfig, logger *slog.Logger) (*UpsertOrchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &UpsertOrchestrator{
		backend:  b,
		cfg:      cfg,
		logger:   logger,
		progress: newProgressLine(nil),
	}, nil
}

// Run executes the upsert benchmark and returns its result artifact.
func (o *UpsertOrchestrator) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "bench.Upsert",
		trace.WithAttributes(
			attribute.Int("bench.namespaces", len(o.cfg.Namespaces)),
			attribute.Int("bench.total_records", o.cfg.TotalRecords),
			attribute.Int("bench.batch_size", o.cfg.BatchSize),
		),
	)
	defer span.End()
	defer o.progress.Done()

	seed := o.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	result := newResult("upsert", o.backend.Kind(), o.cfg)

	for _, spec := range o.cfg.Namespaces {
		ns := o.backend.Namespace(spec.Name)
		numBatches := (o.cfg.TotalRecords + o.cfg.BatchSize - 1) / o.cfg.BatchSize

		batchLatencies := make([]float64, 0, numBatches)
		start := time.Now()

		for batch := 0; batch < numBatches; batch++ {
			lo := batch * o.cfg.BatchSize
			hi := lo + o.cfg.BatchSize
			if hi > o.cfg.TotalRecords {
				hi = o.cfg.TotalRecords
			}

			records := make([]backend.Record, 0, hi-lo)
			for i := lo; i < hi; i++ {
				records = append(records, backend.Record{
					ID:     fmt.Sprintf("%s-%06d", spec.Name, i),
					Vector: vector.RandomUnit(rng, spec.Dimension),
					Text:   fmt.Sprintf("synthetic record %06d for %s", i, spec.Name),
				})
			}

			o.progress.Update("upsert %s: batch %d/%d", spec.Name, batch+1, numBatches)

			bs := time.Now()
			firstBatch := batch == 0
			_, err := retry.Do(ctx, o.cfg.Retry, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, ns.Upsert(ctx, records, firstBatch)
			})
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("upsert batch %d of namespace %s: %w", batch, spec.Name, err)
			}
			elapsed := millis(time.Since(bs))
			batchLatencies = append(batchLatencies, elapsed)

			result.RawMeasurements = append(result.RawMeasurements, Measurement{
				Namespace: spec.Name,
				LatencyMS: elapsed,
				Success:   true,
			})
		}

		wall := time.Since(start)
		rps := 0.0
		if secs := wall.Seconds(); secs > 0 {
			rps = float64(o.cfg.TotalRecords) / secs
		}
		p95, _ := stats.Percentile(batchLatencies, 95)

		result.Summaries = append(result.Summaries, ConfigSummary{
			Namespace:        spec.Name,
			Operations:       o.cfg.TotalRecords,
			Batches:          numBatches,
			RecordsPerSecond: rps,
			BatchP95MS:       p95,
			DurationSeconds:  wall.Seconds(),
		})

		o.logger.Info("namespace loaded",
			slog.String("namespace", spec.Name),
			slog.Int("records", o.cfg.TotalRecords),
			slog.Int("batches", numBatches),
			slog.Float64("records_per_second", rps),
		)
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}
