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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/vectorbench/pkg/backend"
	"github.com/AleutianAI/vectorbench/pkg/checkpoint"
	"github.com/AleutianAI/vectorbench/pkg/retry"
	"github.com/AleutianAI/vectorbench/pkg/stats"
)

// RecallConfig parameterizes a recall sweep.
type RecallConfig struct {
	Namespaces     []string      `json:"namespaces"`
	TopKValues     []int         `json:"top_k_values"`
	Runs           int           `json:"runs"`
	QueriesPerRun  int           `json:"queries_per_run"`
	InterCallDelay time.Duration `json:"inter_call_delay"`

	// Retry governs transient-error handling around each probe call.
	// Zero value selects the default policy.
	Retry retry.Policy `json:"-"`
}

func (c RecallConfig) validate() error {
	if len(c.Namespaces) == 0 {
		return fmt.Errorf("%w: at least one namespace required", ErrInvalidConfig)
	}
	if len(c.TopKValues) == 0 {
		return fmt.Errorf("%w: at least one top_k value required", ErrInvalidConfig)
	}
	if c.Runs <= 0 {
		return fmt.Errorf("%w: runs must be positive", ErrInvalidConfig)
	}
	if c.QueriesPerRun <= 0 {
		return fmt.Errorf("%w: queries_per_run must be positive", ErrInvalidConfig)
	}
	if c.InterCallDelay < 0 {
		return fmt.Errorf("%w: delay must be non-negative", ErrInvalidConfig)
	}
	for _, topK := range c.TopKValues {
		if topK <= 0 {
			return fmt.Errorf("%w: top_k values must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

// RecallOrchestrator sweeps ANN recall across namespaces and topK values.
//
// Description:
//
//	Iterates the cartesian product of namespaces and topK values. For
//	each pair it issues the configured number of recall-probe calls,
//	spaced by a fixed delay, retrying transient backend errors. After a
//	pair's runs all complete, progress is checkpointed so an
//	interrupted sweep resumes without re-measuring finished pairs.
//	Summaries are computed from the checkpointed runs, and the
//	checkpoint is cleared only after every pair has been summarized.
//
// Thread Safety:
//
//	Not safe for concurrent use, and two processes must not share one
//	checkpoint path.
type RecallOrchestrator struct {
	backend  backend.Backend
	prober   backend.RecallProber
	store    *checkpoint.Store
	cfg      RecallConfig
	logger   *slog.Logger
	sleep    func(time.Duration)
	progress *progressLine
}

// NewRecallOrchestrator validates cfg and rejects backends that cannot
// serve recall probes. Both checks happen before any network activity.
func NewRecallOrchestrator(b backend.Backend, store *checkpoint.Store, cfg RecallConfig, logger *slog.Logger) (*RecallOrchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: checkpoint store required", ErrInvalidConfig)
	}
	prober, ok := b.(backend.RecallProber)
	if !ok {
		return nil, fmt.Errorf("%w: %s backend has no recall probe", ErrMissingCapability, b.Kind())
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &RecallOrchestrator{
		backend:  b,
		prober:   prober,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		sleep:    time.Sleep,
		progress: newProgressLine(nil),
	}, nil
}

type recallPair struct {
	namespace string
	topK      int
}

func (o *RecallOrchestrator) pairs() []recallPair {
	out := make([]recallPair, 0, len(o.cfg.Namespaces)*len(o.cfg.TopKValues))
	for _, ns := range o.cfg.Namespaces {
		for _, topK := range o.cfg.TopKValues {
			out = append(out, recallPair{namespace: ns, topK: topK})
		}
	}
	return out
}

// Run executes the recall sweep and returns its result artifact.
func (o *RecallOrchestrator) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "bench.Recall",
		trace.WithAttributes(
			attribute.StringSlice("bench.namespaces", o.cfg.Namespaces),
			attribute.IntSlice("bench.top_k_values", o.cfg.TopKValues),
			attribute.Int("bench.runs", o.cfg.Runs),
		),
	)
	defer span.End()
	defer o.progress.Done()

	cp := o.store.Load()
	if !cp.IsEmpty() {
		o.logger.Info("resuming from checkpoint",
			slog.String("path", o.store.Path()),
			slog.Int("completed_pairs", len(cp.CompletedConfigs)),
		)
	}

	pairs := o.pairs()
	for _, pair := range pairs {
		key := configKey(pair.namespace, pair.topK)
		if cp.Completed(key) {
			o.logger.Info("skipping completed pair", slog.String("config", key))
			continue
		}

		if err := o.measurePair(ctx, cp, pair); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		cp.MarkCompleted(key)
		if err := o.store.Save(cp); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("save checkpoint after %s: %w", key, err)
		}
	}

	result := newResult("recall", o.backend.Kind(), o.cfg)
	for _, pair := range pairs {
		key := configKey(pair.namespace, pair.topK)
		runs := cp.RunsFor(key)
		result.Summaries = append(result.Summaries, summarizeRecall(pair, runs))
		for _, run := range runs {
			result.RawMeasurements = append(result.RawMeasurements, Measurement{
				Namespace: run.Namespace,
				LatencyMS: run.LatencyMS,
				Success:   true,
			})
		}
	}

	if err := o.store.Clear(); err != nil {
		o.logger.Warn("failed to clear checkpoint",
			slog.String("path", o.store.Path()),
			slog.String("error", err.Error()),
		)
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}

// measurePair issues the configured number of probe calls for one
// (namespace, topK) pair, appending each outcome to the checkpoint in
// memory. The caller persists the checkpoint once the pair completes.
func (o *RecallOrchestrator) measurePair(ctx context.Context, cp *checkpoint.Checkpoint, pair recallPair) error {
	key := configKey(pair.namespace, pair.topK)

	for run := 0; run < o.cfg.Runs; run++ {
		o.progress.Update("recall %s: run %d/%d", key, run+1, o.cfg.Runs)

		start := time.Now()
		sample, err := retry.Do(ctx, o.cfg.Retry,
			func(ctx context.Context) (*backend.RecallSample, error) {
				return o.prober.ProbeRecall(ctx, pair.namespace, pair.topK, o.cfg.QueriesPerRun)
			})
		if err != nil {
			return fmt.Errorf("recall probe %s run %d: %w", key, run, err)
		}

		cp.Append(checkpoint.Run{
			ConfigKey:       key,
			Namespace:       pair.namespace,
			TopK:            pair.topK,
			Recall:          sample.AvgRecall,
			ANNCount:        sample.AvgANNCount,
			ExhaustiveCount: sample.AvgExhaustiveCount,
			LatencyMS:       millis(time.Since(start)),
		})

		if o.cfg.InterCallDelay > 0 && run < o.cfg.Runs-1 {
			o.sleep(o.cfg.InterCallDelay)
		}
	}

	o.logger.Info("pair measured",
		slog.String("config", key),
		slog.Int("runs", o.cfg.Runs),
	)
	return nil
}

// summarizeRecall rolls up the stored runs of one pair.
func summarizeRecall(pair recallPair, runs []checkpoint.Run) ConfigSummary {
	recalls := make([]float64, 0, len(runs))
	annCounts := make([]float64, 0, len(runs))
	exhaustive := make([]float64, 0, len(runs))
	latencies := make([]float64, 0, len(runs))
	for _, r := range runs {
		recalls = append(recalls, r.Recall)
		annCounts = append(annCounts, r.ANNCount)
		exhaustive = append(exhaustive, r.ExhaustiveCount)
		latencies = append(latencies, r.LatencyMS)
	}

	summary := ConfigSummary{
		Namespace:  pair.namespace,
		TopK:       pair.topK,
		Operations: len(runs),
	}
	if len(recalls) == 0 {
		return summary
	}

	mean, _ := stats.Mean(recalls)
	median, _ := stats.Median(recalls)
	min, _ := stats.Min(recalls)
	max, _ := stats.Max(recalls)
	meanANN, _ := stats.Mean(annCounts)
	meanExh, _ := stats.Mean(exhaustive)
	meanLat, _ := stats.Mean(latencies)

	rs := &RecallSummary{
		Mean:                mean,
		Median:              median,
		Min:                 min,
		Max:                 max,
		CI95Low:             mean,
		CI95High:            mean,
		MeanANNCount:        meanANN,
		MeanExhaustiveCount: meanExh,
		MeanLatencyMS:       meanLat,
	}
	if std, err := stats.SampleStdDev(recalls); err == nil {
		rs.Std = std
	}
	if lo, hi, err := stats.CI95(recalls); err == nil {
		rs.CI95Low = lo
		rs.CI95High = hi
	}
	summary.Recall = rs
	return summary
}
