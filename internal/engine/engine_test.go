package engine

import (
	"context"
	"errors"
	"slices"
	"testing"

	"payments-engine-go/internal/ledger"
	"payments-engine-go/internal/metrics"
	"payments-engine-go/internal/models"
	"payments-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func row(client models.ClientId, available, held, total string, locked bool) models.AccountSnapshot {
	return models.AccountSnapshot{
		Client:    client,
		Available: d(available),
		Held:      d(held),
		Total:     d(total),
		Locked:    locked,
	}
}

func snapshot(r Runner) []models.AccountSnapshot {
	return slices.Collect(r.Snapshot())
}

func assertRows(t *testing.T, want []models.AccountSnapshot, got []models.AccountSnapshot) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Client, got[i].Client, "row %d client", i)
		assert.True(t, want[i].Available.Equal(got[i].Available), "client %d available: want %s, got %s", want[i].Client, want[i].Available, got[i].Available)
		assert.True(t, want[i].Held.Equal(got[i].Held), "client %d held: want %s, got %s", want[i].Client, want[i].Held, got[i].Held)
		assert.True(t, want[i].Total.Equal(got[i].Total), "client %d total: want %s, got %s", want[i].Client, want[i].Total, got[i].Total)
		assert.Equal(t, want[i].Locked, got[i].Locked, "client %d locked", want[i].Client)
	}
}

func applyAll(t *testing.T, e *Engine, txs ...models.Transaction) []models.Outcome {
	t.Helper()
	outcomes := make([]models.Outcome, 0, len(txs))
	for _, tx := range txs {
		outcomes = append(outcomes, e.Apply(context.Background(), tx))
	}
	return outcomes
}

func TestEngine_SingleDeposit(t *testing.T) {
	e := New(ledger.NewMemory(), nil)

	outcomes := applyAll(t, e, models.NewDeposit(1, 1, d("10.0000")))

	assert.Equal(t, []models.Outcome{models.OutcomeAccepted}, outcomes)
	assertRows(t, []models.AccountSnapshot{row(1, "10", "0", "10", false)}, snapshot(e))
}

func TestEngine_WithdrawalInsufficientFunds(t *testing.T) {
	e := New(ledger.NewMemory(), nil)

	outcomes := applyAll(t, e,
		models.NewDeposit(1, 1, d("10.0")),
		models.NewWithdrawal(1, 2, d("15.0")),
	)

	assert.Equal(t, models.OutcomeInsufficientFunds, outcomes[1])
	assertRows(t, []models.AccountSnapshot{row(1, "10", "0", "10", false)}, snapshot(e))
}

func TestEngine_DisputeMovesFundsToHeld(t *testing.T) {
	e := New(ledger.NewMemory(), nil)

	outcomes := applyAll(t, e,
		models.NewDeposit(1, 1, d("10.0")),
		models.NewDispute(1, 1),
	)

	assert.Equal(t, models.OutcomeAccepted, outcomes[1])
	assertRows(t, []models.AccountSnapshot{row(1, "0", "10", "10", false)}, snapshot(e))
}

func TestEngine_ChargebackLocksAccount(t *testing.T) {
	l := ledger.NewMemory()
	e := New(l, nil)

	outcomes := applyAll(t, e,
		models.NewDeposit(1, 1, d("10.0")),
		models.NewDispute(1, 1),
		models.NewChargeback(1, 1),
		models.NewDeposit(1, 2, d("5.0")),
	)

	assert.Equal(t, models.OutcomeAccepted, outcomes[2])
	assert.Equal(t, models.OutcomeAccountLocked, outcomes[3])
	assertRows(t, []models.AccountSnapshot{row(1, "0", "0", "0", true)}, snapshot(e))

	// The rejected deposit never reached the ledger.
	entry, err := l.Lookup(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestEngine_DisputeRejections(t *testing.T) {
	tests := []struct {
		name    string
		txs     []models.Transaction
		outcome models.Outcome
		want    []models.AccountSnapshot
	}{
		{
			name:    "unknown tx",
			txs:     []models.Transaction{models.NewDeposit(1, 1, d("3")), models.NewDispute(1, 99)},
			outcome: models.OutcomeUnknownTx,
			want:    []models.AccountSnapshot{row(1, "3", "0", "3", false)},
		},
		{
			name: "tx of another client",
			txs: []models.Transaction{
				models.NewDeposit(1, 1, d("3")),
				models.NewDeposit(2, 2, d("4")),
				models.NewDispute(2, 1),
			},
			outcome: models.OutcomeClientMismatch,
			want:    []models.AccountSnapshot{row(1, "3", "0", "3", false), row(2, "4", "0", "4", false)},
		},
		{
			name:    "client without account",
			txs:     []models.Transaction{models.NewDeposit(1, 1, d("3")), models.NewDispute(3, 1)},
			outcome: models.OutcomeAccountMissing,
			want:    []models.AccountSnapshot{row(1, "3", "0", "3", false)},
		},
		{
			name:    "already disputed",
			txs:     []models.Transaction{models.NewDeposit(1, 1, d("3")), models.NewDispute(1, 1), models.NewDispute(1, 1)},
			outcome: models.OutcomeInvalidState,
			want:    []models.AccountSnapshot{row(1, "0", "3", "3", false)},
		},
		{
			name:    "withdrawals are not disputable",
			txs:     []models.Transaction{models.NewDeposit(1, 1, d("3")), models.NewWithdrawal(1, 2, d("1")), models.NewDispute(1, 2)},
			outcome: models.OutcomeUnknownTx,
			want:    []models.AccountSnapshot{row(1, "2", "0", "2", false)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(ledger.NewMemory(), nil)
			outcomes := applyAll(t, e, tt.txs...)
			assert.Equal(t, tt.outcome, outcomes[len(outcomes)-1])
			assertRows(t, tt.want, snapshot(e))
		})
	}
}

func TestEngine_ResolveAndChargebackRequireDispute(t *testing.T) {
	e := New(ledger.NewMemory(), nil)

	outcomes := applyAll(t, e,
		models.NewDeposit(1, 1, d("5")),
		models.NewResolve(1, 1),
		models.NewChargeback(1, 1),
		models.NewResolve(1, 42),
		models.NewChargeback(1, 42),
	)

	assert.Equal(t, []models.Outcome{
		models.OutcomeAccepted,
		models.OutcomeInvalidState,
		models.OutcomeInvalidState,
		models.OutcomeUnknownTx,
		models.OutcomeUnknownTx,
	}, outcomes)
	assertRows(t, []models.AccountSnapshot{row(1, "5", "0", "5", false)}, snapshot(e))
}

func TestEngine_DisputeResolveRoundTrip(t *testing.T) {
	e := New(ledger.NewMemory(), nil)
	applyAll(t, e,
		models.NewDeposit(4, 1, d("2.5")),
		models.NewDeposit(4, 2, d("1.25")),
		models.NewWithdrawal(4, 3, d("0.75")),
	)
	before := snapshot(e)

	outcomes := applyAll(t, e, models.NewDispute(4, 2), models.NewResolve(4, 2))
	assert.Equal(t, []models.Outcome{models.OutcomeAccepted, models.OutcomeAccepted}, outcomes)
	assertRows(t, before, snapshot(e))

	// Re-issuing the resolve is a no-op.
	assert.Equal(t, models.OutcomeInvalidState, e.Apply(context.Background(), models.NewResolve(4, 2)))
	assertRows(t, before, snapshot(e))

	// The entry can be disputed again after a resolve.
	assert.Equal(t, models.OutcomeAccepted, e.Apply(context.Background(), models.NewDispute(4, 2)))
	assertRows(t, []models.AccountSnapshot{row(4, "1.75", "1.25", "3", false)}, snapshot(e))
}

func TestEngine_RepeatedChargebackIsNoOp(t *testing.T) {
	e := New(ledger.NewMemory(), nil)
	applyAll(t, e,
		models.NewDeposit(1, 1, d("7")),
		models.NewDeposit(1, 2, d("3")),
		models.NewDispute(1, 1),
		models.NewDispute(1, 2),
		models.NewChargeback(1, 1),
	)
	want := []models.AccountSnapshot{row(1, "0", "3", "3", true)}
	assertRows(t, want, snapshot(e))

	// Locked accounts ignore everything, even a chargeback of another disputed tx.
	outcomes := applyAll(t, e,
		models.NewChargeback(1, 1),
		models.NewChargeback(1, 2),
		models.NewResolve(1, 2),
		models.NewWithdrawal(1, 3, d("1")),
	)
	for _, outcome := range outcomes {
		assert.Equal(t, models.OutcomeAccountLocked, outcome)
	}
	assertRows(t, want, snapshot(e))
}

func TestEngine_DuplicateDepositTxId(t *testing.T) {
	e := New(ledger.NewMemory(), nil)

	outcomes := applyAll(t, e,
		models.NewDeposit(1, 1, d("1")),
		models.NewDeposit(1, 1, d("2")),
		models.NewDeposit(2, 1, d("3")),
	)

	assert.Equal(t, []models.Outcome{models.OutcomeAccepted, models.OutcomeDuplicateTx, models.OutcomeDuplicateTx}, outcomes)
	// Client 2 never had an accepted deposit, so it has no account.
	assertRows(t, []models.AccountSnapshot{row(1, "1", "0", "1", false)}, snapshot(e))
}

func TestEngine_WithdrawalWithoutAccount(t *testing.T) {
	e := New(ledger.NewMemory(), nil)

	outcomes := applyAll(t, e,
		models.NewWithdrawal(2, 3, d("1.0001")),
		models.NewDispute(2, 3),
		models.NewResolve(2, 3),
		models.NewChargeback(2, 3),
	)

	for _, outcome := range outcomes {
		assert.Equal(t, models.OutcomeAccountMissing, outcome)
	}
	assert.Empty(t, snapshot(e))
}

// Mirrors a full mixed stream across two clients.
func TestEngine_MixedFlow(t *testing.T) {
	e := New(ledger.NewMemory(), nil)
	applyAll(t, e,
		models.NewDeposit(2, 1, d("1.0")),
		models.NewDeposit(1, 2, d("2.0")),
		models.NewWithdrawal(2, 3, d("0.5")),
		models.NewWithdrawal(1, 4, d("1.2")),
		models.NewWithdrawal(2, 5, d("3.0")),
		models.NewDispute(2, 1),
		models.NewDispute(2, 1),
		models.NewDispute(3, 1),
		models.NewDispute(2, 5),
		models.NewResolve(2, 1),
		models.NewDeposit(2, 6, d("0.1")),
		models.NewDispute(2, 6),
		models.NewChargeback(2, 6),
		models.NewDeposit(2, 7, d("1.0")),
	)

	assertRows(t, []models.AccountSnapshot{
		row(1, "0.8", "0", "0.8", false),
		row(2, "0.5", "0", "0.5", true),
	}, snapshot(e))
}

func TestEngine_PrecisionIsExact(t *testing.T) {
	e := New(ledger.NewMemory(), nil)
	applyAll(t, e,
		models.NewDeposit(2, 1, d("1.2345")),
		models.NewDeposit(2, 2, d("2.0001")),
		models.NewWithdrawal(2, 3, d("1.0001")),
		models.NewDispute(2, 2),
	)

	assertRows(t, []models.AccountSnapshot{row(2, "0.2344", "2.0001", "2.2345", false)}, snapshot(e))
}

type failingLedger struct {
	store.Ledger
	failInsert   bool
	failSetState bool
}

var errBackendDown = errors.New("backend down")

func (f *failingLedger) Insert(ctx context.Context, entry models.LedgerEntry) error {
	if f.failInsert {
		return errBackendDown
	}
	return f.Ledger.Insert(ctx, entry)
}

func (f *failingLedger) SetState(ctx context.Context, txId models.TransactionId, state models.DisputeState) error {
	if f.failSetState {
		return errBackendDown
	}
	return f.Ledger.SetState(ctx, txId, state)
}

func TestEngine_LedgerFailureLeavesAccountUntouched(t *testing.T) {
	l := &failingLedger{Ledger: ledger.NewMemory()}
	recorder := metrics.NewRecorder()
	e := New(l, recorder)

	require.Equal(t, models.OutcomeAccepted, e.Apply(context.Background(), models.NewDeposit(1, 1, d("10"))))

	l.failSetState = true
	assert.Equal(t, models.OutcomeLedgerFailure, e.Apply(context.Background(), models.NewDispute(1, 1)))
	assertRows(t, []models.AccountSnapshot{row(1, "10", "0", "10", false)}, snapshot(e))

	l.failInsert = true
	assert.Equal(t, models.OutcomeLedgerFailure, e.Apply(context.Background(), models.NewDeposit(1, 2, d("5"))))
	assert.Equal(t, models.OutcomeLedgerFailure, e.Apply(context.Background(), models.NewDeposit(9, 3, d("5"))))
	assertRows(t, []models.AccountSnapshot{row(1, "10", "0", "10", false)}, snapshot(e))

	summary, err := recorder.Summarize()
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rejected[models.OutcomeLedgerFailure])
}

func TestEngine_UnknownKind(t *testing.T) {
	e := New(ledger.NewMemory(), nil)
	outcome := e.Apply(context.Background(), models.Transaction{Kind: "transfer", ClientId: 1, TxId: 1})
	assert.Equal(t, models.OutcomeInvalidKind, outcome)
	assert.Empty(t, snapshot(e))
}

func TestEngine_LogsRejections(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	e := New(ledger.NewMemory(), nil)
	applyAll(t, e, models.NewWithdrawal(5, 1, d("1")))

	rejected := logs.FilterMessage("Transaction rejected").All()
	require.Len(t, rejected, 1)
	fields := rejected[0].ContextMap()
	assert.Equal(t, string(models.OutcomeAccountMissing), fields["reason"])
	assert.Equal(t, uint16(5), fields["client_id"])
	assert.Equal(t, "1", fields["amount"])
}
