package common

import (
	"context"
	"fmt"
	"os"

	"payments-engine-go/internal/engine"
	"payments-engine-go/internal/input"
	"payments-engine-go/internal/metrics"
	"payments-engine-go/internal/models"

	"go.uber.org/zap"
)

// Run holds the outcome of processing one input file
type Run struct {
	Runner   engine.Runner
	Recorder *metrics.Recorder
}

// ProcessFile decodes the transactions in path and applies them to a fresh
// set of accounts backed by the configured ledger.
func ProcessFile(ctx context.Context, cfg *models.Config, path string) (*Run, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open input: %w", err)
	}
	defer file.Close()

	decoder, err := input.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	zap.L().Info("Processing transactions", zap.String("input", path))
	return Process(ctx, cfg, decoder)
}

// Process applies every record from src. When the stream fails partway the
// returned Run still holds the accounts built from the records read so far,
// alongside the error. A nil Run means nothing was processed.
func Process(ctx context.Context, cfg *models.Config, src engine.Source) (*Run, error) {
	ledger, err := OpenLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer ledger.Close()

	recorder := metrics.NewRecorder()
	runner := engine.NewRunner(ledger, recorder, cfg.Engine)
	run := &Run{Runner: runner, Recorder: recorder}

	zap.L().Info("Starting run",
		zap.String("ledger", cfg.Ledger.Backend),
		zap.Int("workers", cfg.Engine.Workers))

	if err := runner.Run(ctx, src); err != nil {
		return run, fmt.Errorf("transaction stream ended early: %w", err)
	}

	if entries, err := ledger.Len(ctx); err == nil {
		zap.L().Info("Ledger populated", zap.Int("entries", entries))
	}

	return run, nil
}

// LogSummary writes the run totals gathered by the metrics registry
func (r *Run) LogSummary(runId string) (metrics.Summary, error) {
	summary, err := r.Recorder.Summarize()
	if err != nil {
		return metrics.Summary{}, err
	}

	fields := []zap.Field{
		zap.String("run_id", runId),
		zap.Int("records", summary.Records),
		zap.Int("accepted", summary.Accepted),
		zap.Int("rejected", summary.RejectedTotal()),
		zap.Int("decode_errors", summary.DecodeErrors),
		zap.Int("locked_clients", summary.Locked),
	}
	for _, reason := range summary.RejectionReasons() {
		fields = append(fields, zap.Int("rejected_"+string(reason), summary.Rejected[reason]))
	}
	zap.L().Info("Run completed", fields...)
	return summary, nil
}
