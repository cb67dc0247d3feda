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

var upsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Measure write throughput with synthetic records",
	Long: `Loads each namespace with synthetic unit-normalized vectors and
measures write throughput.

Records are written in fixed-size batches, strictly sequentially. The
first batch lets the backend perform schema or index setup. A batch
failure aborts the run; there is no checkpoint for this benchmark.

Examples:
  vectorbench upsert -c scenario.yaml
  vectorbench upsert -c scenario.yaml -o upsert.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, b, err := loadScenarioAndBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		o, err := bench.NewUpsertOrchestrator(b, scenario.UpsertConfig(), logger.Slog())
		if err != nil {
			return err
		}
		return runAndReport(cmd.Context(), o)
	},
}
