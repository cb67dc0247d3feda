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
	"github.com/AleutianAI/vectorbench/pkg/checkpoint"
)

var recallCheckpointPath string

var recallCmd = &cobra.Command{
	Use:   "recall",
	Short: "Sweep ANN recall across namespaces and topK values",
	Long: `Sweeps approximate-nearest-neighbor recall over the cartesian product
of the scenario's namespaces and topK values.

Each (namespace, topK) pair is probed repeatedly; the backend compares
its ANN results against an exhaustive search over the same queries.
Progress is checkpointed after each completed pair, so an interrupted
sweep resumes where it left off instead of re-measuring finished
pairs. The checkpoint is removed once the sweep completes.

Requires a backend with a recall probe; the command fails at startup
otherwise.

Examples:
  vectorbench recall -c scenario.yaml
  vectorbench recall -c scenario.yaml --checkpoint /tmp/recall.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, b, err := loadScenarioAndBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		path := recallCheckpointPath
		if path == "" {
			path = scenario.Recall.CheckpointPath
		}
		store := checkpoint.NewStore(path, logger.Slog())

		o, err := bench.NewRecallOrchestrator(b, store, scenario.RecallConfig(), logger.Slog())
		if err != nil {
			return err
		}
		return runAndReport(cmd.Context(), o)
	},
}

func init() {
	recallCmd.Flags().StringVar(&recallCheckpointPath, "checkpoint", "",
		"checkpoint file path (default: from the scenario file)")
}
