/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"payments-engine-go/internal/common"
	"payments-engine-go/internal/config"
	"payments-engine-go/internal/output"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <transactions.csv>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	formatFlag := flag.String("format", cfg.Output.Format, "Output format: csv, json or yaml")
	workersFlag := flag.Int("workers", cfg.Engine.Workers, "Number of client partitions processed concurrently")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	format, err := output.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	if *workersFlag < 1 {
		fmt.Fprintf(os.Stderr, "workers must be at least 1, got %d\n", *workersFlag)
		os.Exit(2)
	}
	cfg.Engine.Workers = *workersFlag

	logger, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	runId := uuid.New().String()
	logger.Info("Starting payments engine",
		zap.String("run_id", runId),
		zap.String("input", inputPath),
		zap.String("format", string(format)))

	run, runErr := common.ProcessFile(ctx, cfg, inputPath)
	if run == nil {
		logger.Fatal("Failed to process transactions", zap.String("run_id", runId), zap.Error(runErr))
	}
	if runErr != nil {
		logger.Error("Processing stopped early, exporting accounts processed so far",
			zap.String("run_id", runId), zap.Error(runErr))
	}

	if err := output.Write(os.Stdout, format, run.Runner.Snapshot()); err != nil {
		logger.Fatal("Failed to write accounts", zap.String("run_id", runId), zap.Error(err))
	}

	if _, err := run.LogSummary(runId); err != nil {
		logger.Error("Failed to summarize run", zap.String("run_id", runId), zap.Error(err))
	}

	if runErr != nil {
		loggerCleanup()
		os.Exit(1)
	}
}
