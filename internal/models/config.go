package models

import "time"

// Config represents the application configuration
type Config struct {
	Log      LogConfig
	Ledger   LedgerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Output   OutputConfig
}

// LogConfig holds the log sink settings. Logs never go to stdout.
type LogConfig struct {
	File  string
	Level string
}

// LedgerConfig selects the ledger backend ("memory" or "sqlite")
type LedgerConfig struct {
	Backend string
}

// DatabaseConfig holds database connection settings for the SQLite ledger
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// EngineConfig holds transaction processing settings
type EngineConfig struct {
	Workers   int
	QueueSize int
}

// OutputConfig holds snapshot rendering settings
type OutputConfig struct {
	Format string
}

const (
	LedgerBackendMemory = "memory"
	LedgerBackendSqlite = "sqlite"
)
