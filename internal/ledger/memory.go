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

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payments-engine-go/internal/models"
	"payments-engine-go/internal/store"

	"go.uber.org/zap"
)

// Compile-time check: *Memory must satisfy store.Ledger.
var _ store.Ledger = (*Memory)(nil)

// Memory is a map-backed ledger. It is safe for concurrent use so that
// partitioned engines can share one instance.
type Memory struct {
	mu      sync.RWMutex
	entries map[models.TransactionId]models.LedgerEntry
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[models.TransactionId]models.LedgerEntry),
	}
}

func (m *Memory) Insert(_ context.Context, entry models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.TxId]; exists {
		return fmt.Errorf("%w: tx %d already exists", store.ErrDuplicateTransaction, entry.TxId)
	}
	if entry.State == "" {
		entry.State = models.StateNormal
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.entries[entry.TxId] = entry
	return nil
}

func (m *Memory) Lookup(_ context.Context, txId models.TransactionId) (*models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[txId]
	if !ok {
		return nil, nil
	}
	// Callers get a copy; the stored entry only changes through SetState.
	return &entry, nil
}

func (m *Memory) SetState(_ context.Context, txId models.TransactionId, state models.DisputeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[txId]
	if !ok {
		return fmt.Errorf("%w: tx %d", store.ErrEntryNotFound, txId)
	}

	zap.L().Debug("Ledger state change",
		zap.Uint32("tx_id", txId),
		zap.String("from", string(entry.State)),
		zap.String("to", string(state)))

	entry.State = state
	m.entries[txId] = entry
	return nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Close is a no-op; the entries live until the process exits.
func (m *Memory) Close() {}
