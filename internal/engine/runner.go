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

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"payments-engine-go/internal/metrics"
	"payments-engine-go/internal/models"
	"payments-engine-go/internal/store"

	"go.uber.org/zap"
)

// Source yields decoded transactions in input order. Next returns io.EOF once
// the stream is exhausted. Errors wrapping models.ErrMalformedRecord skip the
// record; any other error ends the run.
type Source interface {
	Next() (models.Transaction, error)
}

// Runner consumes a whole stream and exposes the resulting accounts
type Runner interface {
	Run(ctx context.Context, src Source) error
	Snapshot() iter.Seq[models.AccountSnapshot]
}

var (
	_ Runner = (*Engine)(nil)
	_ Runner = (*Partitioned)(nil)
)

// NewRunner returns the sequential engine for a single worker and a
// partitioned one otherwise.
func NewRunner(ledger store.Ledger, recorder *metrics.Recorder, cfg models.EngineConfig) Runner {
	if cfg.Workers <= 1 {
		return New(ledger, recorder)
	}
	return NewPartitioned(PartitionedConfig{
		Ledger:    ledger,
		Recorder:  recorder,
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
	})
}

func consume(ctx context.Context, src Source, recorder *metrics.Recorder, apply func(models.Transaction) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, models.ErrMalformedRecord) {
			zap.L().Error("Failed to decode transaction", zap.Error(err))
			recorder.ObserveDecodeError()
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read transactions: %w", err)
		}

		zap.L().Debug("Decoded transaction", zap.Stringer("transaction", tx))
		if err := apply(tx); err != nil {
			return err
		}
	}
}

// SliceSource replays an in-memory list of transactions
type SliceSource struct {
	txs []models.Transaction
	pos int
}

func NewSliceSource(txs ...models.Transaction) *SliceSource {
	return &SliceSource{txs: txs}
}

func (s *SliceSource) Next() (models.Transaction, error) {
	if s.pos >= len(s.txs) {
		return models.Transaction{}, io.EOF
	}
	tx := s.txs[s.pos]
	s.pos++
	return tx, nil
}
