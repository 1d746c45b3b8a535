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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"payments-engine-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Log: models.LogConfig{
			File:  getEnvString("LOG_FILE", "engine.log"),
			Level: getEnvString("LOG_LEVEL", "info"),
		},
		Ledger: models.LedgerConfig{
			Backend: strings.ToLower(getEnvString("LEDGER_BACKEND", models.LedgerBackendMemory)),
		},
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Engine: models.EngineConfig{
			Workers:   getEnvInt("ENGINE_WORKERS", 1),
			QueueSize: getEnvInt("ENGINE_QUEUE_SIZE", 1024),
		},
		Output: models.OutputConfig{
			Format: strings.ToLower(getEnvString("OUTPUT_FORMAT", "csv")),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	switch cfg.Ledger.Backend {
	case models.LedgerBackendMemory, models.LedgerBackendSqlite:
	default:
		return fmt.Errorf("invalid LEDGER_BACKEND: %q (expected %q or %q)",
			cfg.Ledger.Backend, models.LedgerBackendMemory, models.LedgerBackendSqlite)
	}

	switch cfg.Output.Format {
	case "csv", "json", "yaml":
	default:
		return fmt.Errorf("invalid OUTPUT_FORMAT: %q (expected csv, json or yaml)", cfg.Output.Format)
	}

	if cfg.Engine.Workers < 1 {
		return fmt.Errorf("ENGINE_WORKERS must be at least 1, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.QueueSize < 1 {
		return fmt.Errorf("ENGINE_QUEUE_SIZE must be at least 1, got %d", cfg.Engine.QueueSize)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
