package account

import (
	"slices"
	"testing"

	"payments-engine-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertBalances(t *testing.T, a *Account, available, held string) {
	t.Helper()
	assert.True(t, a.Available().Equal(d(available)), "available: want %s, got %s", available, a.Available())
	assert.True(t, a.Held().Equal(d(held)), "held: want %s, got %s", held, a.Held())
	assert.True(t, a.Total().Equal(a.Available().Add(a.Held())), "total must equal available + held")
}

func TestAccount_DepositWithdraw(t *testing.T) {
	a := New(2)
	a.Deposit(d("1.2345"))
	a.Deposit(d("2.0001"))
	assertBalances(t, a, "3.2346", "0")

	assert.True(t, a.Withdraw(d("1.0001")))
	assertBalances(t, a, "2.2345", "0")

	assert.False(t, a.Withdraw(d("5199999.123")), "insufficient funds must be rejected")
	assertBalances(t, a, "2.2345", "0")

	assert.True(t, a.Withdraw(d("2.2345")), "withdrawing the exact balance is allowed")
	assertBalances(t, a, "0", "0")
}

func TestAccount_HoldRelease(t *testing.T) {
	a := New(1)
	a.Deposit(d("10"))

	a.Hold(d("4"))
	assertBalances(t, a, "6", "4")

	a.Release(d("4"))
	assertBalances(t, a, "10", "0")
}

func TestAccount_HoldCanOverdrawAvailable(t *testing.T) {
	a := New(2)
	a.Deposit(d("1"))
	a.Withdraw(d("0.5"))

	a.Hold(d("1"))
	assertBalances(t, a, "-0.5", "1")
	assert.True(t, a.Total().Equal(d("0.5")))
}

func TestAccount_ChargeBackLocks(t *testing.T) {
	a := New(1)
	a.Deposit(d("10"))
	a.Hold(d("10"))

	a.ChargeBack(d("10"))
	assert.True(t, a.Locked())
	assertBalances(t, a, "0", "0")

	a.Deposit(d("5"))
	assert.False(t, a.Withdraw(d("0")))
	a.Hold(d("1"))
	a.Release(d("1"))
	a.ChargeBack(d("1"))
	assertBalances(t, a, "0", "0")
}

func TestAccount_Snapshot(t *testing.T) {
	a := New(9)
	a.Deposit(d("3"))
	a.Hold(d("1"))

	snap := a.Snapshot()
	assert.Equal(t, models.ClientId(9), snap.Client)
	assert.True(t, snap.Available.Equal(d("2")))
	assert.True(t, snap.Held.Equal(d("1")))
	assert.True(t, snap.Total.Equal(d("3")))
	assert.False(t, snap.Locked)
}

func TestTable_GetOrCreateDoesNotStore(t *testing.T) {
	table := NewTable()

	acct, created := table.GetOrCreate(5)
	assert.True(t, created)
	assert.Nil(t, table.Get(5))
	assert.Equal(t, 0, table.Len())

	table.Put(acct)
	again, created := table.GetOrCreate(5)
	assert.False(t, created)
	assert.Same(t, acct, again)
}

func TestTable_AllAscending(t *testing.T) {
	table := NewTable()
	for _, id := range []models.ClientId{42, 7, 65535, 0, 13} {
		acct, _ := table.GetOrCreate(id)
		table.Put(acct)
	}

	var ids []models.ClientId
	for acct := range table.All() {
		ids = append(ids, acct.ClientId())
	}
	assert.Equal(t, []models.ClientId{0, 7, 13, 42, 65535}, ids)
	assert.True(t, slices.IsSorted(ids))
}
