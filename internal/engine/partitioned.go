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
	"cmp"
	"context"
	"iter"
	"slices"
	"sync"

	"payments-engine-go/internal/metrics"
	"payments-engine-go/internal/models"
	"payments-engine-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PartitionedConfig contains configuration for Partitioned
type PartitionedConfig struct {
	Ledger    store.Ledger
	Recorder  *metrics.Recorder
	Workers   int
	QueueSize int
}

// Partitioned spreads clients over several engines. A client always maps to
// the same partition and each partition applies its records in arrival order,
// so per-client ordering matches the input. The ledger is shared and must be
// safe for concurrent use. Records that refer to a tx id whose deposit is
// still queued wait for it, so outcomes match a sequential run.
type Partitioned struct {
	partitions []*Engine
	queueSize  int
	recorder   *metrics.Recorder
}

func NewPartitioned(cfg PartitionedConfig) *Partitioned {
	workers := max(cfg.Workers, 1)
	queueSize := max(cfg.QueueSize, 0)

	partitions := make([]*Engine, workers)
	for i := range partitions {
		partitions[i] = New(cfg.Ledger, cfg.Recorder)
	}
	return &Partitioned{
		partitions: partitions,
		queueSize:  queueSize,
		recorder:   cfg.Recorder,
	}
}

func (p *Partitioned) partitionFor(client models.ClientId) int {
	return int(client) % len(p.partitions)
}

// pendingDeposits tracks deposits that were routed but not yet applied, by tx id.
// Records that reference a pending tx id wait until it is applied, so ledger
// inserts for a contested tx id happen in input order.
type pendingDeposits struct {
	mu      sync.Mutex
	pending map[models.TransactionId]chan struct{}
}

func newPendingDeposits() *pendingDeposits {
	return &pendingDeposits{pending: make(map[models.TransactionId]chan struct{})}
}

// wait blocks until no deposit with txId is in flight
func (d *pendingDeposits) wait(ctx context.Context, txId models.TransactionId) error {
	d.mu.Lock()
	done := d.pending[txId]
	d.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *pendingDeposits) add(txId models.TransactionId) chan struct{} {
	done := make(chan struct{})
	d.mu.Lock()
	d.pending[txId] = done
	d.mu.Unlock()
	return done
}

func (d *pendingDeposits) applied(txId models.TransactionId, done chan struct{}) {
	d.mu.Lock()
	if d.pending[txId] == done {
		delete(d.pending, txId)
	}
	d.mu.Unlock()
	close(done)
}

// routed is one record on its way to a partition. done is set for deposits.
type routed struct {
	tx   models.Transaction
	done chan struct{}
}

// Run routes records to their partition until src is exhausted, then waits
// for every partition to drain its queue.
func (p *Partitioned) Run(ctx context.Context, src Source) error {
	zap.L().Info("Starting partitioned run",
		zap.Int("workers", len(p.partitions)),
		zap.Int("queue_size", p.queueSize))

	g, gctx := errgroup.WithContext(ctx)
	deposits := newPendingDeposits()

	queues := make([]chan routed, len(p.partitions))
	for i, part := range p.partitions {
		queue := make(chan routed, p.queueSize)
		queues[i] = queue
		g.Go(func() error {
			// Drain fully even after cancellation; records already routed are applied.
			for r := range queue {
				part.Apply(ctx, r.tx)
				if r.done != nil {
					deposits.applied(r.tx.TxId, r.done)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, queue := range queues {
				close(queue)
			}
		}()
		return consume(gctx, src, p.recorder, func(tx models.Transaction) error {
			r := routed{tx: tx}
			switch tx.Kind {
			case models.KindDeposit, models.KindDispute, models.KindResolve, models.KindChargeback:
				if err := deposits.wait(gctx, tx.TxId); err != nil {
					return err
				}
				if tx.Kind == models.KindDeposit {
					r.done = deposits.add(tx.TxId)
				}
			}

			select {
			case queues[p.partitionFor(tx.ClientId)] <- r:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	return g.Wait()
}

// Snapshot yields every account across all partitions in ascending client id order
func (p *Partitioned) Snapshot() iter.Seq[models.AccountSnapshot] {
	return func(yield func(models.AccountSnapshot) bool) {
		var rows []models.AccountSnapshot
		for _, part := range p.partitions {
			for row := range part.Snapshot() {
				rows = append(rows, row)
			}
		}
		slices.SortFunc(rows, func(a, b models.AccountSnapshot) int {
			return cmp.Compare(a.Client, b.Client)
		})
		for _, row := range rows {
			if !yield(row) {
				return
			}
		}
	}
}
