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
	"iter"
	"slices"

	"payments-engine-go/internal/models"
)

// Table maps client ids to accounts. It is not safe for concurrent use;
// each engine owns exactly one table.
type Table struct {
	accounts map[models.ClientId]*Account
}

func NewTable() *Table {
	return &Table{accounts: make(map[models.ClientId]*Account)}
}

// Get returns the account for clientId, or nil if the client has never had an accepted deposit
func (t *Table) Get(clientId models.ClientId) *Account {
	return t.accounts[clientId]
}

// GetOrCreate returns the existing account or a new empty one. The new
// account is not stored until Put is called, so a rejected first deposit
// leaves no trace.
func (t *Table) GetOrCreate(clientId models.ClientId) (acct *Account, created bool) {
	if acct, ok := t.accounts[clientId]; ok {
		return acct, false
	}
	return New(clientId), true
}

func (t *Table) Put(acct *Account) {
	t.accounts[acct.clientId] = acct
}

func (t *Table) Len() int {
	return len(t.accounts)
}

// All yields accounts in ascending client id order
func (t *Table) All() iter.Seq[*Account] {
	return func(yield func(*Account) bool) {
		ids := make([]models.ClientId, 0, len(t.accounts))
		for id := range t.accounts {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			if !yield(t.accounts[id]) {
				return
			}
		}
	}
}
