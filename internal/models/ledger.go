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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisputeState tracks where a ledger entry is in the dispute lifecycle
type DisputeState string

const (
	StateNormal      DisputeState = "normal"
	StateDisputed    DisputeState = "disputed"
	StateChargedBack DisputeState = "charged_back"
)

// LedgerEntry is the durable record of an accepted transaction that may later be disputed.
// Origin records which kind created the entry; the dispute rules read only Amount and State.
type LedgerEntry struct {
	TxId      TransactionId   `db:"tx_id"`
	ClientId  ClientId        `db:"client_id"`
	Amount    decimal.Decimal `db:"amount"`
	Origin    TransactionKind `db:"origin"`
	State     DisputeState    `db:"state"`
	CreatedAt time.Time       `db:"created_at"`
}

// DisputeEvent is one row of the dispute audit trail kept by the SQLite ledger
type DisputeEvent struct {
	Id        string        `db:"id"`
	TxId      TransactionId `db:"tx_id"`
	FromState DisputeState  `db:"from_state"`
	ToState   DisputeState  `db:"to_state"`
	CreatedAt time.Time     `db:"created_at"`
}
