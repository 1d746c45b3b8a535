package common

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"payments-engine-go/internal/database"
	"payments-engine-go/internal/ledger"
	"payments-engine-go/internal/models"
	"payments-engine-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from a .env file if it exists.
// Stdout carries the snapshot, so nothing is printed unless the file is unreadable.
func init() {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: unable to load .env file: %v\n", err)
	}
}

// InitializeLogger installs a production zap logger writing JSON lines to the
// configured log file. Failing to open the sink is fatal.
func InitializeLogger(cfg models.LogConfig) (*zap.Logger, func()) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	zapCfg.OutputPaths = []string{cfg.File}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// OpenLedger returns the ledger backend named by the configuration
func OpenLedger(ctx context.Context, cfg *models.Config) (store.Ledger, error) {
	switch cfg.Ledger.Backend {
	case models.LedgerBackendMemory, "":
		zap.L().Info("Using in-memory ledger")
		return ledger.NewMemory(), nil
	case models.LedgerBackendSqlite:
		dbService, err := database.NewService(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("unable to open sqlite ledger: %w", err)
		}
		return dbService, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
