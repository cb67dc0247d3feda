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
	"github.com/AleutianAI/vectorbench/pkg/stats"
)

// summarizeLatency rolls up successful-call latencies. Returns nil when
// every call failed, so the summary serializes without a latency block.
func summarizeLatency(latencies []float64) *LatencySummary {
	if len(latencies) == 0 {
		return nil
	}
	mean, _ := stats.Mean(latencies)
	median, _ := stats.Median(latencies)
	p95, _ := stats.Percentile(latencies, 95)
	min, _ := stats.Min(latencies)
	max, _ := stats.Max(latencies)

	s := &LatencySummary{
		MeanMS:   mean,
		MedianMS: median,
		P95MS:    p95,
		MinMS:    min,
		MaxMS:    max,
	}
	if std, err := stats.SampleStdDev(latencies); err == nil {
		s.StdMS = std
	}
	return s
}
