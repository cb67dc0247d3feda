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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/vectorbench/pkg/logging"
)

// --- Global Command Variables ---
var (
	scenarioPath string
	outputPath   string
	logLevel     string
	logDir       string
	quiet        bool

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "vectorbench",
		Short: "Benchmark vector-database backends",
		Long: `Vectorbench compares vector-database backends by seeding them with
synthetic datasets and measuring query latency, sustained throughput,
write throughput, and approximate-nearest-neighbor recall.

Each subcommand reads a YAML scenario file, runs one benchmark against
the configured backend, prints a summary table, and writes a JSON
result artifact.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = logging.New(logging.Config{
				Level:   level,
				LogDir:  logDir,
				Service: "vectorbench",
				Quiet:   quiet,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "config", "c", "scenario.yaml",
		"path to the benchmark scenario file")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "",
		"path for the JSON result artifact (default: timestamped file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false,
		"suppress log output on stderr")

	rootCmd.AddCommand(latencyCmd)
	rootCmd.AddCommand(throughputCmd)
	rootCmd.AddCommand(upsertCmd)
	rootCmd.AddCommand(recallCmd)
}
