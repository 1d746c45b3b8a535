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

import "github.com/shopspring/decimal"

// AccountSnapshot is the exported view of one client account
type AccountSnapshot struct {
	Client    ClientId        `json:"client" yaml:"client"`
	Available decimal.Decimal `json:"available" yaml:"available"`
	Held      decimal.Decimal `json:"held" yaml:"held"`
	Total     decimal.Decimal `json:"total" yaml:"total"`
	Locked    bool            `json:"locked" yaml:"locked"`
}

// Outcome is the result of applying one transaction. Rejections are expected
// input and are reported here instead of as errors.
type Outcome string

const (
	OutcomeAccepted          Outcome = "accepted"
	OutcomeAccountLocked     Outcome = "account_locked"
	OutcomeAccountMissing    Outcome = "account_missing"
	OutcomeDuplicateTx       Outcome = "duplicate_tx"
	OutcomeInsufficientFunds Outcome = "insufficient_funds"
	OutcomeUnknownTx         Outcome = "unknown_tx"
	OutcomeClientMismatch    Outcome = "client_mismatch"
	OutcomeInvalidState      Outcome = "invalid_state"
	OutcomeLedgerFailure     Outcome = "ledger_failure"
	OutcomeInvalidKind       Outcome = "invalid_kind"
)

func (o Outcome) Accepted() bool {
	return o == OutcomeAccepted
}
