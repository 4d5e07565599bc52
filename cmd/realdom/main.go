// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command realdom drives a RealDOM from the terminal.
//
//	realdom buttons              interactive focus demo
//	realdom replay batch.yaml    apply batches and print the tree
//	realdom watch dir            apply batches as they are dropped into dir
//	realdom config init path     write the default config
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/realdom/pkg/config"
	"github.com/AleutianAI/realdom/pkg/logging"
	"github.com/AleutianAI/realdom/pkg/telemetry"
)

var (
	configPath  string
	logLevel    string
	logDir      string
	metricsAddr string

	rootCmd = &cobra.Command{
		Use:           "realdom",
		Short:         "Retained DOM with incremental state passes and focus traversal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flags.StringVar(&logDir, "log-dir", "", "also write JSON logs to this directory (overrides config)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve /healthz and /metrics on this address (overrides config)")

	rootCmd.AddCommand(buttonsCmd, replayCmd, watchCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runtime is the ambient stack every command runs with.
type runtime struct {
	cfg      config.Config
	logger   *logging.Logger
	shutdown func(context.Context) error
}

// setup loads configuration, applies flag overrides and starts logging
// and telemetry. quiet keeps log records off the terminal.
func setup(cmd *cobra.Command, quiet bool) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("log-dir") {
		cfg.Log.Dir = logDir
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Telemetry.MetricsAddr = metricsAddr
		if cfg.Telemetry.MetricExporter == "none" {
			cfg.Telemetry.MetricExporter = "prometheus"
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := cfg.Logging("realdom")
	logCfg.Quiet = quiet
	logger := logging.New(logCfg)

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, shutdown: shutdown}, nil
}

func (rt *runtime) close() {
	if err := rt.shutdown(context.Background()); err != nil {
		rt.logger.Warn("telemetry shutdown failed", "error", err)
	}
	_ = rt.logger.Close()
}
