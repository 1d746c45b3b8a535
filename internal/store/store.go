package store

import (
	"context"
	"errors"

	"payments-engine-go/internal/models"
)

// Sentinel errors shared across all ledger backends.
var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrEntryNotFound        = errors.New("ledger entry not found")
)

// Ledger defines the contract that every ledger backend (memory, SQLite) must satisfy.
//
// The ledger is append-only: entries are inserted once and only their dispute
// state changes afterwards. It does not validate state transitions; callers are
// expected to check the current state before calling SetState.
type Ledger interface {
	// Insert adds a new entry. Returns ErrDuplicateTransaction if the tx id is already present.
	Insert(ctx context.Context, entry models.LedgerEntry) error

	// Lookup returns the entry for txId, or nil if there is none.
	Lookup(ctx context.Context, txId models.TransactionId) (*models.LedgerEntry, error)

	// SetState overwrites the dispute state of an existing entry.
	// Returns ErrEntryNotFound if the tx id is unknown.
	SetState(ctx context.Context, txId models.TransactionId, state models.DisputeState) error

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)

	Close()
}
