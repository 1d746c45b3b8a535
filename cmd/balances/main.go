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
	"io"
	"iter"
	"math"
	"os"

	"payments-engine-go/internal/common"
	"payments-engine-go/internal/config"
	"payments-engine-go/internal/models"

	"go.uber.org/zap"
)

type reportStats struct {
	totalAccounts  int
	lockedAccounts int
	heldAccounts   int
}

func printAmount(w io.Writer, label string, amount string, isLast bool) {
	fmt.Fprintf(w, "%s %-10s: %20s\n", common.BoxPrefix(isLast), label, amount)
}

func printAccount(w io.Writer, row models.AccountSnapshot) {
	status := "active"
	if row.Locked {
		status = "locked"
	}

	fmt.Fprintf(w, "\n┌─ Client: %d (%s)\n", row.Client, status)
	common.PrintBoxSeparator(w, 78)
	printAmount(w, "available", row.Available.StringFixed(models.AmountPrecision), false)
	printAmount(w, "held", row.Held.StringFixed(models.AmountPrecision), false)
	printAmount(w, "total", row.Total.StringFixed(models.AmountPrecision), true)
}

func generateReport(w io.Writer, rows iter.Seq[models.AccountSnapshot]) reportStats {
	stats := reportStats{}

	for row := range rows {
		stats.totalAccounts++
		if row.Locked {
			stats.lockedAccounts++
		}
		if !row.Held.IsZero() {
			stats.heldAccounts++
		}
		printAccount(w, row)
	}

	return stats
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	clientFlag := flag.Int("client", -1, "Only report this client id (optional)")
	flag.Parse()

	client, filtered, err := parseClientFilter(*clientFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-client id] <transactions.csv>\n", os.Args[0])
		os.Exit(2)
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	logger.Info("Starting balance report", zap.String("input", flag.Arg(0)))

	run, runErr := common.ProcessFile(ctx, cfg, flag.Arg(0))
	if run == nil {
		logger.Fatal("Failed to process transactions", zap.Error(runErr))
	}
	if runErr != nil {
		logger.Error("Processing stopped early, reporting accounts processed so far", zap.Error(runErr))
	}

	rows := run.Runner.Snapshot()
	if filtered {
		rows = filterClient(rows, client)
	}

	common.PrintHeader(os.Stdout, "CLIENT ACCOUNT REPORT", common.DefaultWidth)
	stats := generateReport(os.Stdout, rows)

	summary := fmt.Sprintf("SUMMARY: %d accounts (%d locked, %d with held funds)",
		stats.totalAccounts, stats.lockedAccounts, stats.heldAccounts)
	common.PrintFooter(os.Stdout, summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.Int("accounts", stats.totalAccounts),
		zap.Int("locked", stats.lockedAccounts),
		zap.Int("held", stats.heldAccounts))

	if runErr != nil {
		loggerCleanup()
		os.Exit(1)
	}
}

// parseClientFilter maps the -client flag to a client id. A negative value
// disables the filter.
func parseClientFilter(value int) (models.ClientId, bool, error) {
	if value < 0 {
		return 0, false, nil
	}
	if value > math.MaxUint16 {
		return 0, false, fmt.Errorf("client must be between 0 and %d, got %d", math.MaxUint16, value)
	}
	return models.ClientId(value), true, nil
}

func filterClient(rows iter.Seq[models.AccountSnapshot], client models.ClientId) iter.Seq[models.AccountSnapshot] {
	return func(yield func(models.AccountSnapshot) bool) {
		for row := range rows {
			if row.Client != client {
				continue
			}
			yield(row)
			return
		}
	}
}
