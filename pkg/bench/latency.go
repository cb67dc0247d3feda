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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/vectorbench/pkg/backend"
)

var tracer = otel.Tracer("vectorbench.bench")

// LatencyConfig parameterizes a latency run.
type LatencyConfig struct {
	Namespaces     []NamespaceSpec `json:"namespaces"`
	NumQueries     int             `json:"num_queries"`
	WarmupQueries  int             `json:"warmup_queries"`
	TopK           int             `json:"top_k"`
	InterCallDelay time.Duration   `json:"inter_call_delay"`
	Seed           int64           `json:"seed,omitempty"`
}

func (c LatencyConfig) validate() error {
	if len(c.Namespaces) == 0 {
		return fmt.Errorf("%w: at least one namespace required", ErrInvalidConfig)
	}
	if c.NumQueries <= 0 {
		return fmt.Errorf("%w: num_queries must be positive", ErrInvalidConfig)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	}
	if c.WarmupQueries < 0 || c.InterCallDelay < 0 {
		return fmt.Errorf("%w: warmup and delay must be non-negative", ErrInvalidConfig)
	}
	for _, ns := range c.Namespaces {
		if ns.Name == "" || ns.Dimension <= 0 {
			return fmt.Errorf("%w: namespace needs a name and positive dimension", ErrInvalidConfig)
		}
	}
	return nil
}

// LatencyOrchestrator measures single-query latency per namespace.
//
// Description:
//
//	For each namespace it obtains a representative query vector via a
//	probe, runs discarded warmup calls, then issues the configured
//	number of strictly sequential timed queries with a fixed inter-call
//	delay. Namespaces whose probe fails are skipped with a logged
//	reason. Summaries are sorted ascending by median latency.
//
// Thread Safety:
//
//	Not safe for concurrent use. Construct one per run.
type LatencyOrchestrator struct {
	backend  backend.Backend
	cfg      LatencyConfig
	logger   *slog.Logger
	sleep    func(time.Duration)
	progress *progressLine
}

// NewLatencyOrchestrator validates cfg before any network activity.
func NewLatencyOrchestrator(b backend.Backend, cfg LatencyConfig, logger *slog.Logger) (*LatencyOrchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LatencyOrchestrator{
		backend:  b,
		cfg:      cfg,
		logger:   logger,
		sleep:    time.Sleep,
		progress: newProgressLine(nil),
	}, nil
}

// Run executes the latency benchmark and returns its result artifact.
func (o *LatencyOrchestrator) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "bench.Latency",
		trace.WithAttributes(
			attribute.Int("bench.namespaces", len(o.cfg.Namespaces)),
			attribute.Int("bench.num_queries", o.cfg.NumQueries),
			attribute.Int("bench.top_k", o.cfg.TopK),
		),
	)
	defer span.End()
	defer o.progress.Done()

	seed := o.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	result := newResult("latency", o.backend.Kind(), o.cfg)

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

		latencies := make([]float64, 0, o.cfg.NumQueries)
		errCount := 0
		for i := 0; i < o.cfg.NumQueries; i++ {
			o.progress.Update("latency %s: query %d/%d", spec.Name, i+1, o.cfg.NumQueries)

			start := time.Now()
			_, qerr := ns.Query(ctx, vec, o.cfg.TopK, false)
			elapsed := millis(time.Since(start))

			m := Measurement{
				Namespace: spec.Name,
				LatencyMS: elapsed,
				Success:   qerr == nil,
				ErrorKind: backend.Classify(qerr),
			}
			result.RawMeasurements = append(result.RawMeasurements, m)
			if qerr == nil {
				latencies = append(latencies, elapsed)
			} else {
				errCount++
			}

			if o.cfg.InterCallDelay > 0 && i < o.cfg.NumQueries-1 {
				o.sleep(o.cfg.InterCallDelay)
			}
		}

		summary := ConfigSummary{
			Namespace:  spec.Name,
			TopK:       o.cfg.TopK,
			Operations: o.cfg.NumQueries,
			Errors:     errCount,
			Latency:    summarizeLatency(latencies),
		}
		result.Summaries = append(result.Summaries, summary)

		o.logger.Info("namespace measured",
			slog.String("namespace", spec.Name),
			slog.Int("queries", o.cfg.NumQueries),
			slog.Int("errors", errCount),
		)
	}

	sort.SliceStable(result.Summaries, func(i, j int) bool {
		return medianOf(result.Summaries[i]) < medianOf(result.Summaries[j])
	})

	span.SetStatus(codes.Ok, "")
	return result, nil
}

func medianOf(s ConfigSummary) float64 {
	if s.Latency == nil {
		return 0
	}
	return s.Latency.MedianMS
}
