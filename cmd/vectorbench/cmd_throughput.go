// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/vectorbench/pkg/bench"
)

var throughputCmd = &cobra.Command{
	Use:   "throughput",
	Short: "Measure sustained query throughput per namespace",
	Long: `Measures sustained query rate for each namespace in the scenario.

Queries are dispatched through a bounded worker pool at the configured
concurrency. QPS counts only successful queries against wall-clock
time; failures are reported separately. Namespaces are reported in
descending order of QPS.

Examples:
  vectorbench throughput -c scenario.yaml
  vectorbench throughput -c scenario.yaml -o throughput.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, b, err := loadScenarioAndBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		o, err := bench.NewThroughputOrchestrator(b, scenario.ThroughputConfig(), logger.Slog())
		if err != nil {
			return err
		}
		return runAndReport(cmd.Context(), o)
	},
}
