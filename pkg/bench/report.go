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
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteReport renders the run's summaries as an aligned text table.
// Column selection follows the benchmark that produced the result.
func WriteReport(w io.Writer, r *Result) {
	fmt.Fprintf(w, "\n%s benchmark on %s (run %s)\n",
		r.Metadata.Benchmark, r.Metadata.Backend, r.Metadata.RunID)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	defer tw.Flush()

	switch r.Metadata.Benchmark {
	case "latency":
		fmt.Fprintln(tw, "NAMESPACE\tOPS\tERRORS\tMEAN(ms)\tMEDIAN(ms)\tP95(ms)\tMIN(ms)\tMAX(ms)")
		for _, s := range r.Summaries {
			if s.Latency == nil {
				fmt.Fprintf(tw, "%s\t%d\t%d\t-\t-\t-\t-\t-\n", s.Namespace, s.Operations, s.Errors)
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
				s.Namespace, s.Operations, s.Errors,
				s.Latency.MeanMS, s.Latency.MedianMS, s.Latency.P95MS,
				s.Latency.MinMS, s.Latency.MaxMS)
		}
	case "throughput":
		fmt.Fprintln(tw, "NAMESPACE\tOPS\tERRORS\tQPS\tMEAN(ms)\tP95(ms)\tDURATION(s)")
		for _, s := range r.Summaries {
			mean, p95 := 0.0, 0.0
			if s.Latency != nil {
				mean, p95 = s.Latency.MeanMS, s.Latency.P95MS
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%.2f\t%.2f\t%.2f\n",
				s.Namespace, s.Operations, s.Errors, s.QPS, mean, p95, s.DurationSeconds)
		}
	case "upsert":
		fmt.Fprintln(tw, "NAMESPACE\tRECORDS\tBATCHES\tRECORDS/S\tBATCH P95(ms)\tDURATION(s)")
		for _, s := range r.Summaries {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%.2f\t%.2f\n",
				s.Namespace, s.Operations, s.Batches,
				s.RecordsPerSecond, s.BatchP95MS, s.DurationSeconds)
		}
	case "recall":
		fmt.Fprintln(tw, "NAMESPACE\tTOP_K\tRUNS\tRECALL\tSTD\tCI95\tANN/EXH\tMEAN LAT(ms)")
		for _, s := range r.Summaries {
			if s.Recall == nil {
				fmt.Fprintf(tw, "%s\t%d\t%d\t-\t-\t-\t-\t-\n", s.Namespace, s.TopK, s.Operations)
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.4f\t[%.4f, %.4f]\t%.0f/%.0f\t%.2f\n",
				s.Namespace, s.TopK, s.Operations,
				s.Recall.Mean, s.Recall.Std,
				s.Recall.CI95Low, s.Recall.CI95High,
				s.Recall.MeanANNCount, s.Recall.MeanExhaustiveCount,
				s.Recall.MeanLatencyMS)
		}
	default:
		fmt.Fprintln(tw, "NAMESPACE\tOPS\tERRORS")
		for _, s := range r.Summaries {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", s.Namespace, s.Operations, s.Errors)
		}
	}
}
