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

package account

import (
	"payments-engine-go/internal/models"

	"github.com/shopspring/decimal"
)

// Account holds the balances of one client. Total is always Available + Held
// and is never stored. Once locked the account ignores every mutation.
type Account struct {
	clientId  models.ClientId
	available decimal.Decimal
	held      decimal.Decimal
	locked    bool
}

func New(clientId models.ClientId) *Account {
	return &Account{
		clientId:  clientId,
		available: decimal.Zero,
		held:      decimal.Zero,
	}
}

func (a *Account) ClientId() models.ClientId  { return a.clientId }
func (a *Account) Available() decimal.Decimal { return a.available }
func (a *Account) Held() decimal.Decimal      { return a.held }
func (a *Account) Total() decimal.Decimal     { return a.available.Add(a.held) }
func (a *Account) Locked() bool               { return a.locked }

// Deposit credits available funds. It has no effect on a locked account.
func (a *Account) Deposit(amount decimal.Decimal) {
	if a.locked {
		return
	}
	a.available = a.available.Add(amount)
}

// Withdraw debits available funds if there are enough of them and reports
// whether it did.
func (a *Account) Withdraw(amount decimal.Decimal) bool {
	if a.locked || a.available.LessThan(amount) {
		return false
	}
	a.available = a.available.Sub(amount)
	return true
}

// Hold moves amount from available to held. Available may go negative when
// the disputed funds were already withdrawn.
func (a *Account) Hold(amount decimal.Decimal) {
	if a.locked {
		return
	}
	a.available = a.available.Sub(amount)
	a.held = a.held.Add(amount)
}

// Release moves amount from held back to available.
func (a *Account) Release(amount decimal.Decimal) {
	if a.locked {
		return
	}
	a.held = a.held.Sub(amount)
	a.available = a.available.Add(amount)
}

// ChargeBack removes held funds and locks the account.
func (a *Account) ChargeBack(amount decimal.Decimal) {
	if a.locked {
		return
	}
	a.held = a.held.Sub(amount)
	a.locked = true
}

// Snapshot returns the exported view of the account
func (a *Account) Snapshot() models.AccountSnapshot {
	return models.AccountSnapshot{
		Client:    a.clientId,
		Available: a.available,
		Held:      a.held,
		Total:     a.Total(),
		Locked:    a.locked,
	}
}
