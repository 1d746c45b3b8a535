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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"payments-engine-go/internal/models"
	"payments-engine-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Ledger.
var _ store.Ledger = (*Service)(nil)

const memoryPath = ":memory:"

type Service struct {
	db *sql.DB
}

// NewService opens the SQLite ledger. Any ledger left by a previous run is
// dropped, since balances are never carried between runs.
func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite ledger", zap.String("file", cfg.Path))
	dsn := cfg.Path
	if cfg.Path != memoryPath {
		dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Every connection to :memory: gets its own database
	if cfg.Path == memoryPath {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db)
	if err := service.initSchema(ctx, true); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("SQLite ledger initialized successfully")
	return service, nil
}

func newService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context, reset bool) error {
	if reset {
		if _, err := s.db.ExecContext(ctx, schemaReset); err != nil {
			return fmt.Errorf("failed to drop previous ledger: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, schemaCreate)
	return err
}

// Insert records a new ledger entry
func (s *Service) Insert(ctx context.Context, entry models.LedgerEntry) error {
	// Check for duplicate tx id
	var existing int64
	err := s.db.QueryRowContext(ctx, queryCheckDuplicateEntry, entry.TxId).Scan(&existing)
	if err == nil {
		zap.L().Debug("Duplicate ledger tx id, skipping", zap.Uint32("tx_id", entry.TxId))
		return fmt.Errorf("%w: tx %d already exists", store.ErrDuplicateTransaction, entry.TxId)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for duplicate entry: %w", err)
	}

	state := entry.State
	if state == "" {
		state = models.StateNormal
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	_, err = s.db.ExecContext(ctx, queryInsertEntry,
		entry.TxId, entry.ClientId, entry.Amount.String(), string(entry.Origin), string(state), entry.CreatedAt, now)
	if err != nil {
		// Lost a race with a concurrent insert of the same tx id
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: tx %d already exists", store.ErrDuplicateTransaction, entry.TxId)
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// Lookup returns the entry for txId, or nil if there is none
func (s *Service) Lookup(ctx context.Context, txId models.TransactionId) (*models.LedgerEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, queryGetEntry, txId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("Failed to look up ledger entry", zap.Uint32("tx_id", txId), zap.Error(err))
		return nil, fmt.Errorf("failed to look up entry %d: %w", txId, err)
	}
	return entry, nil
}

// SetState atomically updates the dispute state and appends an audit event
func (s *Service) SetState(ctx context.Context, txId models.TransactionId, state models.DisputeState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, queryGetEntryState, txId).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: tx %d", store.ErrEntryNotFound, txId)
	}
	if err != nil {
		return fmt.Errorf("failed to read current state: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, queryUpdateEntryState, string(state), now, txId); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	if err := recordDisputeEvent(ctx, tx, txId, models.DisputeState(current), state, now); err != nil {
		return fmt.Errorf("failed to record dispute event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Debug("Ledger state change",
		zap.Uint32("tx_id", txId),
		zap.String("from", current),
		zap.String("to", string(state)))
	return nil
}

func (s *Service) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, queryCountEntries).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return n, nil
}

// GetEntriesByState lists entries currently in the given dispute state
func (s *Service) GetEntriesByState(ctx context.Context, state models.DisputeState) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetEntriesByState, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to get entries by state: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during ledger row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var amountStr, origin, state string
	if err := row.Scan(&entry.TxId, &entry.ClientId, &amountStr, &origin, &state, &entry.CreatedAt); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	entry.Amount = amount
	entry.Origin = models.TransactionKind(origin)
	entry.State = models.DisputeState(state)
	return &entry, nil
}
