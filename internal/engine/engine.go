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
	"iter"

	"payments-engine-go/internal/account"
	"payments-engine-go/internal/metrics"
	"payments-engine-go/internal/models"
	"payments-engine-go/internal/store"

	"go.uber.org/zap"
)

// Engine applies transactions to client accounts one at a time, in input order.
//
// Every rejection is a silent no-op: the record is logged, counted and
// dropped, and processing continues with the next one. Within a single
// record the ledger is written before the account, so a ledger failure
// leaves the account untouched.
type Engine struct {
	accounts *account.Table
	ledger   store.Ledger
	recorder *metrics.Recorder
}

// New creates an engine over ledger. recorder may be nil.
func New(ledger store.Ledger, recorder *metrics.Recorder) *Engine {
	return &Engine{
		accounts: account.NewTable(),
		ledger:   ledger,
		recorder: recorder,
	}
}

// Apply processes one transaction and reports what happened to it
func (e *Engine) Apply(ctx context.Context, tx models.Transaction) models.Outcome {
	var outcome models.Outcome
	switch tx.Kind {
	case models.KindDeposit:
		outcome = e.deposit(ctx, tx)
	case models.KindWithdrawal:
		outcome = e.withdraw(tx)
	case models.KindDispute:
		outcome = e.dispute(ctx, tx)
	case models.KindResolve:
		outcome = e.resolve(ctx, tx)
	case models.KindChargeback:
		outcome = e.chargeback(ctx, tx)
	default:
		outcome = models.OutcomeInvalidKind
	}

	e.recorder.ObserveTransaction(tx.Kind, outcome)
	if outcome.Accepted() {
		zap.L().Debug("Transaction applied", transactionFields(tx)...)
	} else {
		zap.L().Warn("Transaction rejected", append(transactionFields(tx), zap.String("reason", string(outcome)))...)
	}
	return outcome
}

func (e *Engine) deposit(ctx context.Context, tx models.Transaction) models.Outcome {
	acct, created := e.accounts.GetOrCreate(tx.ClientId)
	if acct.Locked() {
		return models.OutcomeAccountLocked
	}

	err := e.ledger.Insert(ctx, models.LedgerEntry{
		TxId:     tx.TxId,
		ClientId: tx.ClientId,
		Amount:   tx.Amount,
		Origin:   models.KindDeposit,
		State:    models.StateNormal,
	})
	if errors.Is(err, store.ErrDuplicateTransaction) {
		return models.OutcomeDuplicateTx
	}
	if err != nil {
		zap.L().Error("Failed to record deposit in ledger", append(transactionFields(tx), zap.Error(err))...)
		return models.OutcomeLedgerFailure
	}

	acct.Deposit(tx.Amount)
	if created {
		e.accounts.Put(acct)
	}
	return models.OutcomeAccepted
}

func (e *Engine) withdraw(tx models.Transaction) models.Outcome {
	acct := e.accounts.Get(tx.ClientId)
	if acct == nil {
		return models.OutcomeAccountMissing
	}
	if acct.Locked() {
		return models.OutcomeAccountLocked
	}
	if !acct.Withdraw(tx.Amount) {
		return models.OutcomeInsufficientFunds
	}
	return models.OutcomeAccepted
}

func (e *Engine) dispute(ctx context.Context, tx models.Transaction) models.Outcome {
	acct, entry, outcome := e.referencedEntry(ctx, tx, models.StateNormal)
	if outcome != "" {
		return outcome
	}
	if !e.setState(ctx, tx, models.StateDisputed) {
		return models.OutcomeLedgerFailure
	}
	acct.Hold(entry.Amount)
	return models.OutcomeAccepted
}

func (e *Engine) resolve(ctx context.Context, tx models.Transaction) models.Outcome {
	acct, entry, outcome := e.referencedEntry(ctx, tx, models.StateDisputed)
	if outcome != "" {
		return outcome
	}
	if !e.setState(ctx, tx, models.StateNormal) {
		return models.OutcomeLedgerFailure
	}
	acct.Release(entry.Amount)
	return models.OutcomeAccepted
}

func (e *Engine) chargeback(ctx context.Context, tx models.Transaction) models.Outcome {
	acct, entry, outcome := e.referencedEntry(ctx, tx, models.StateDisputed)
	if outcome != "" {
		return outcome
	}
	if !e.setState(ctx, tx, models.StateChargedBack) {
		return models.OutcomeLedgerFailure
	}
	acct.ChargeBack(entry.Amount)
	zap.L().Info("Account locked by chargeback",
		zap.Uint16("client_id", tx.ClientId),
		zap.Uint32("tx_id", tx.TxId))
	return models.OutcomeAccepted
}

// referencedEntry checks the preconditions shared by dispute, resolve and
// chargeback. A non-empty outcome means the record must be rejected.
func (e *Engine) referencedEntry(ctx context.Context, tx models.Transaction, want models.DisputeState) (*account.Account, *models.LedgerEntry, models.Outcome) {
	acct := e.accounts.Get(tx.ClientId)
	if acct == nil {
		return nil, nil, models.OutcomeAccountMissing
	}
	if acct.Locked() {
		return nil, nil, models.OutcomeAccountLocked
	}

	entry, err := e.ledger.Lookup(ctx, tx.TxId)
	if err != nil {
		zap.L().Error("Failed to look up ledger entry", append(transactionFields(tx), zap.Error(err))...)
		return nil, nil, models.OutcomeLedgerFailure
	}
	if entry == nil {
		return nil, nil, models.OutcomeUnknownTx
	}
	if entry.ClientId != tx.ClientId {
		return nil, nil, models.OutcomeClientMismatch
	}
	if entry.State != want {
		return nil, nil, models.OutcomeInvalidState
	}
	return acct, entry, ""
}

func (e *Engine) setState(ctx context.Context, tx models.Transaction, state models.DisputeState) bool {
	if err := e.ledger.SetState(ctx, tx.TxId, state); err != nil {
		zap.L().Error("Failed to update ledger state",
			append(transactionFields(tx), zap.String("state", string(state)), zap.Error(err))...)
		return false
	}
	return true
}

// Run applies every record from src until it is exhausted
func (e *Engine) Run(ctx context.Context, src Source) error {
	return consume(ctx, src, e.recorder, func(tx models.Transaction) error {
		e.Apply(ctx, tx)
		return nil
	})
}

// Snapshot yields every account in ascending client id order
func (e *Engine) Snapshot() iter.Seq[models.AccountSnapshot] {
	return func(yield func(models.AccountSnapshot) bool) {
		for acct := range e.accounts.All() {
			if !yield(acct.Snapshot()) {
				return
			}
		}
	}
}

func transactionFields(tx models.Transaction) []zap.Field {
	fields := []zap.Field{
		zap.String("type", string(tx.Kind)),
		zap.Uint16("client_id", tx.ClientId),
		zap.Uint32("tx_id", tx.TxId),
	}
	if tx.Kind.CarriesAmount() {
		fields = append(fields, zap.String("amount", tx.Amount.String()))
	}
	return fields
}
