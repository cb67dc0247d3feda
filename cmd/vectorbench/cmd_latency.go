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

var latencyCmd = &cobra.Command{
	Use:   "latency",
	Short: "Measure sequential query latency per namespace",
	Long: `Measures single-query latency for each namespace in the scenario.

Each namespace is probed for a representative query vector, warmed up,
then queried strictly sequentially with a fixed inter-call delay.
Namespaces are reported in ascending order of median latency.

Examples:
  vectorbench latency -c scenario.yaml
  vectorbench latency -c scenario.yaml -o latency.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, b, err := loadScenarioAndBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		o, err := bench.NewLatencyOrchestrator(b, scenario.LatencyConfig(), logger.Slog())
		if err != nil {
			return err
		}
		return runAndReport(cmd.Context(), o)
	},
}
