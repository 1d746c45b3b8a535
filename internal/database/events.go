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
	"fmt"
	"time"

	"payments-engine-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// recordDisputeEvent appends one state transition to the audit trail
func recordDisputeEvent(ctx context.Context, tx *sql.Tx, txId models.TransactionId, from, to models.DisputeState, at time.Time) error {
	eventId := uuid.New().String()
	_, err := tx.ExecContext(ctx, queryInsertDisputeEvent, eventId, txId, string(from), string(to), at)
	return err
}

// GetDisputeEvents returns the state transitions of one ledger entry, oldest first
func (s *Service) GetDisputeEvents(ctx context.Context, txId models.TransactionId) ([]models.DisputeEvent, error) {
	zap.L().Debug("Getting dispute events", zap.Uint32("tx_id", txId))

	rows, err := s.db.QueryContext(ctx, queryGetDisputeEvents, txId)
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute events: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var events []models.DisputeEvent
	for rows.Next() {
		var event models.DisputeEvent
		var from, to string
		if err := rows.Scan(&event.Id, &event.TxId, &from, &to, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispute event: %w", err)
		}
		event.FromState = models.DisputeState(from)
		event.ToState = models.DisputeState(to)
		events = append(events, event)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during dispute event row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating dispute event rows: %w", err)
	}

	return events, nil
}
