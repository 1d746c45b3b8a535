// Package ledgertest holds the behaviour every store.Ledger backend must share.
package ledgertest

import (
	"context"
	"errors"
	"testing"

	"payments-engine-go/internal/models"
	"payments-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty ledger. Cleanup is registered by the factory via t.Cleanup.
type Factory func(t *testing.T) store.Ledger

func Run(t *testing.T, newLedger Factory) {
	t.Run("InsertAndLookup", func(t *testing.T) { testInsertAndLookup(t, newLedger(t)) })
	t.Run("LookupMissing", func(t *testing.T) { testLookupMissing(t, newLedger(t)) })
	t.Run("DuplicateInsert", func(t *testing.T) { testDuplicateInsert(t, newLedger(t)) })
	t.Run("SetState", func(t *testing.T) { testSetState(t, newLedger(t)) })
	t.Run("SetStateMissing", func(t *testing.T) { testSetStateMissing(t, newLedger(t)) })
	t.Run("KindAgnosticEntries", func(t *testing.T) { testKindAgnostic(t, newLedger(t)) })
}

func deposit(tx models.TransactionId, client models.ClientId, amount string) models.LedgerEntry {
	return models.LedgerEntry{
		TxId:     tx,
		ClientId: client,
		Amount:   decimal.RequireFromString(amount),
		Origin:   models.KindDeposit,
		State:    models.StateNormal,
	}
}

func testInsertAndLookup(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, deposit(1, 2, "1.2345")))

	entry, err := l.Lookup(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.TransactionId(1), entry.TxId)
	assert.Equal(t, models.ClientId(2), entry.ClientId)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("1.2345")), "amount %s", entry.Amount)
	assert.Equal(t, models.StateNormal, entry.State)
	assert.Equal(t, models.KindDeposit, entry.Origin)

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testLookupMissing(t *testing.T, l store.Ledger) {
	entry, err := l.Lookup(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func testDuplicateInsert(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, deposit(7, 1, "10")))

	err := l.Insert(ctx, deposit(7, 2, "99"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrDuplicateTransaction), "got %v", err)

	// The first entry is untouched.
	entry, err := l.Lookup(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.ClientId(1), entry.ClientId)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(10)))

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testSetState(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, deposit(3, 1, "4.5")))

	for _, state := range []models.DisputeState{models.StateDisputed, models.StateNormal, models.StateDisputed, models.StateChargedBack} {
		require.NoError(t, l.SetState(ctx, 3, state))
		entry, err := l.Lookup(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, state, entry.State)
	}
}

func testSetStateMissing(t *testing.T, l store.Ledger) {
	err := l.SetState(context.Background(), 99, models.StateDisputed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrEntryNotFound), "got %v", err)
}

func testKindAgnostic(t *testing.T, l store.Ledger) {
	ctx := context.Background()
	entry := deposit(11, 5, "2")
	entry.Origin = models.KindWithdrawal
	require.NoError(t, l.Insert(ctx, entry))

	got, err := l.Lookup(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.KindWithdrawal, got.Origin)
	assert.Equal(t, models.StateNormal, got.State)
}
