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
	"context"
	"fmt"
	"os"

	"github.com/AleutianAI/vectorbench/pkg/backend"
	"github.com/AleutianAI/vectorbench/pkg/bench"
	"github.com/AleutianAI/vectorbench/pkg/config"
)

// runner is the part of an orchestrator the command layer drives.
type runner interface {
	Run(ctx context.Context) (*bench.Result, error)
}

// loadScenarioAndBackend reads the scenario file and opens the backend
// it selects. The caller owns closing the returned backend.
func loadScenarioAndBackend() (*config.Scenario, backend.Backend, error) {
	scenario, err := config.Load(scenarioPath)
	if err != nil {
		return nil, nil, err
	}
	b, err := backend.Open(scenario.BackendConfig(logger.Slog()))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", scenario.Backend.Kind, err)
	}
	return scenario, b, nil
}

// runAndReport drives one orchestrator, prints the summary table, and
// writes the result artifact.
func runAndReport(ctx context.Context, r runner) error {
	result, err := r.Run(ctx)
	if err != nil {
		return err
	}

	bench.WriteReport(os.Stdout, result)

	path, err := result.Write(outputPath)
	if err != nil {
		return err
	}
	fmt.Printf("\nResult written to %s\n", path)
	return nil
}
