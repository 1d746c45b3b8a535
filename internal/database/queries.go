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

const (
	schemaReset = `
	DROP TABLE IF EXISTS dispute_events;
	DROP TABLE IF EXISTS ledger_entries;`

	schemaCreate = `
	-- Ledger entries (one row per accepted deposit)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		tx_id INTEGER PRIMARY KEY,
		client_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		origin TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'normal',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Index for per-client lookups
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_client_id ON ledger_entries(client_id);
	-- Index on state for dispute reporting
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_state ON ledger_entries(state);

	-- Dispute audit trail (append-only)
	CREATE TABLE IF NOT EXISTS dispute_events (
		id TEXT PRIMARY KEY,
		tx_id INTEGER NOT NULL REFERENCES ledger_entries(tx_id),
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dispute_events_tx_id ON dispute_events(tx_id);
	CREATE INDEX IF NOT EXISTS idx_dispute_events_created_at ON dispute_events(created_at);`
)

const (
	// Ledger entry queries
	queryCheckDuplicateEntry = `
		SELECT tx_id FROM ledger_entries WHERE tx_id = ? LIMIT 1`

	queryInsertEntry = `
		INSERT INTO ledger_entries (tx_id, client_id, amount, origin, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetEntry = `
		SELECT tx_id, client_id, amount, origin, state, created_at
		FROM ledger_entries
		WHERE tx_id = ?`

	queryGetEntryState = `
		SELECT state FROM ledger_entries WHERE tx_id = ?`

	queryUpdateEntryState = `
		UPDATE ledger_entries
		SET state = ?, updated_at = ?
		WHERE tx_id = ?`

	queryCountEntries = `
		SELECT COUNT(*) FROM ledger_entries`

	queryGetEntriesByState = `
		SELECT tx_id, client_id, amount, origin, state, created_at
		FROM ledger_entries
		WHERE state = ?
		ORDER BY tx_id`

	// Dispute event queries
	queryInsertDisputeEvent = `
		INSERT INTO dispute_events (id, tx_id, from_state, to_state, created_at)
		VALUES (?, ?, ?, ?, ?)`

	queryGetDisputeEvents = `
		SELECT id, tx_id, from_state, to_state, created_at
		FROM dispute_events
		WHERE tx_id = ?
		ORDER BY created_at, rowid`
)
