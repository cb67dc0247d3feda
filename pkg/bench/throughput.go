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
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/vectorbench/pkg/backend"
	"github.com/AleutianAI/vectorbench/pkg/pool"
)

// ThroughputConfig parameterizes a throughput run.
type ThroughputConfig struct {
	Namespaces    []NamespaceSpec `json:"namespaces"`
	TotalQueries  int             `json:"total_queries"`
	WarmupQueries int             `json:"warmup_queries"`
	Concurrency   int             `json:"concurrency"`
	TopK          int             `json:"top_k"`
	Seed          int64           `json:"seed,omitempty"`
}

func (c ThroughputConfig) validate() error {
	if len(c.Namespaces) == 0 {
		return fmt.Errorf("%w: at least one namespace required", ErrInvalidConfig)
	}
	if c.TotalQueries <= 0 {
		return fmt.Errorf("%w: total_queries must be positive", ErrInvalidConfig)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	}
	if c.WarmupQueries < 0 {
		return fmt.Errorf("%w: warmup must be non-negative", ErrInvalidConfig)
	}
	for _, ns := range c.Namespaces {
		if ns.Name == "" || ns.Dimension <= 0 {
			return fmt.Errorf("%w: namespace needs a name and positive dimension", ErrInvalidConfig)
		}
	}
	return nil
}

// ThroughputOrchestrator measures sustained query rate per namespace.
//
// Description:
//
//	After a probe and sequential warmup, the configured number of
//	queries is dispatched through a bounded worker pool. QPS is the
//	count of successful queries divided by wall-clock duration of the
//	measured phase. Failed queries are counted but excluded from the
//	latency rollup. Summaries are sorted descending by QPS.
type ThroughputOrchestrator struct {
	backend  backend.Backend
	cfg      ThroughputConfig
	logger   *slog.Logger
	progress *progressLine
}

// NewThroughputOrchestrator validates cfg before any network activity.
func NewThroughputOrchestrator(b backend.Backend, cfg ThroughputConfig, logger *slog.Logger) (*ThroughputOrchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ThroughputOrchestrator{
		backend:  b,
		cfg:      cfg,
		logger:   logger,
		progress: newProgressLine(nil),
	}, nil
}

// Run executes the throughput benchmark and returns its result artifact.
func (o *ThroughputOrchestrator) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "bench.Throughput",
		trace.WithAttributes(
			attribute.Int("bench.namespaces", len(o.cfg.Namespaces)),
			attribute.Int("bench.total_queries", o.cfg.TotalQueries),
			attribute.Int("bench.concurrency", o.cfg.Concurrency),
		),
	)
	defer span.End()
	defer o.progress.Done()

	seed := o.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	result := newResult("throughput", o.backend.Kind(), o.cfg)

	for _, spec := range o.cfg.Namespaces {
		ns := o.backend.Namespace(spec.Name)

		vec, err := probeVector(ctx, ns, spec.Dimension, rng)
		if err != nil {
			o.logger.Warn("skipping namespace, probe failed",
				slog.String("namespace", spec.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		for i := 0; i < o.cfg.WarmupQueries; i++ {
			_, _ = ns.Query(ctx, vec, o.cfg.TopK, false)
		}

		o.progress.Update("throughput %s: %d queries at concurrency %d",
			spec.Name, o.cfg.TotalQueries, o.cfg.Concurrency)

		start := time.Now()
		measurements := pool.Run(ctx, o.cfg.TotalQueries, o.cfg.Concurrency,
			func(ctx context.Context, _ int) Measurement {
				qs := time.Now()
				_, qerr := ns.Query(ctx, vec, o.cfg.TopK, false)
				return Measurement{
					Namespace: spec.Name,
					LatencyMS: millis(time.Since(qs)),
					Success:   qerr == nil,
					ErrorKind: backend.Classify(qerr),
				}
			})
		wall := time.Since(start)

		latencies := make([]float64, 0, len(measurements))
		errCount := 0
		for _, m := range measurements {
			if m.Success {
				latencies = append(latencies, m.LatencyMS)
			} else {
				errCount++
			}
		}
		result.RawMeasurements = append(result.RawMeasurements, measurements...)

		qps := 0.0
		if secs := wall.Seconds(); secs > 0 {
			qps = float64(len(latencies)) / secs
		}

		result.Summaries = append(result.Summaries, ConfigSummary{
			Namespace:       spec.Name,
			TopK:            o.cfg.TopK,
			Operations:      o.cfg.TotalQueries,
			Errors:          errCount,
			Latency:         summarizeLatency(latencies),
			QPS:             qps,
			DurationSeconds: wall.Seconds(),
		})

		o.logger.Info("namespace measured",
			slog.String("namespace", spec.Name),
			slog.Int("queries", o.cfg.TotalQueries),
			slog.Int("errors", errCount),
			slog.Float64("qps", qps),
		)
	}

	sort.SliceStable(result.Summaries, func(i, j int) bool {
		return result.Summaries[i].QPS > result.Summaries[j].QPS
	})

	span.SetStatus(codes.Ok, "")
	return result, nil
}
